package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// Common errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateKey      = errors.New("duplicate key violation")
	ErrForeignKey        = errors.New("foreign key violation")
	ErrCheckConstraint   = errors.New("check constraint violation")
	ErrNotNull           = errors.New("not null constraint violation")
	ErrConnectionFailed  = errors.New("database connection failed")
	ErrTimeout           = errors.New("operation timeout")
	ErrCanceled          = errors.New("operation canceled")
	ErrNestedTransaction = errors.New("nested transactions are not supported")
)

// ValidationError is a guard failure raised before any SQL is built
type ValidationError struct {
	Op      string
	Table   string
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	var parts []string
	parts = append(parts, "orm: validation")
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	parts = append(parts, e.Message)
	return strings.Join(parts, ": ")
}

// QueryCompileError reports a where condition the compiler cannot translate
type QueryCompileError struct {
	Field  string
	Reason string
}

func (e *QueryCompileError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("orm: compile: %s", e.Reason)
	}
	return fmt.Sprintf("orm: compile: field=%s: %s", e.Field, e.Reason)
}

// ExecutionError wraps any failure reported by the database driver
type ExecutionError struct {
	Op         string // Operation that failed
	Table      string // Table involved
	Query      string // SQL text as sent
	Kind       error  // One of the sentinel errors above, nil when unclassified
	Err        error  // Underlying driver error
	Constraint string // Constraint or key name, when the driver reports one
	Column     string // Column name, when the driver reports one
	Retryable  bool   // Hint for callers; this package never retries
}

func (e *ExecutionError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("orm: %s", e.Op))

	if e.Table != "" {
		parts = append(parts, fmt.Sprintf("table=%s", e.Table))
	}

	if e.Column != "" {
		parts = append(parts, fmt.Sprintf("column=%s", e.Column))
	}

	if e.Constraint != "" {
		parts = append(parts, fmt.Sprintf("constraint=%s", e.Constraint))
	}

	if e.Kind != nil {
		parts = append(parts, e.Kind.Error())
	}

	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	return strings.Join(parts, ": ")
}

// Unwrap exposes both the classification and the driver error
func (e *ExecutionError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// MappingWarning reports a stored JSON value that could not be decoded.
// It is never returned as an error from a query.
type MappingWarning struct {
	Table  string
	Column string
	Err    error
}

func (w *MappingWarning) Error() string {
	return fmt.Sprintf("orm: mapping: table=%s: column=%s: %v", w.Table, w.Column, w.Err)
}

func (w *MappingWarning) Unwrap() error {
	return w.Err
}

// MySQL server error numbers
const (
	mysqlErrDupEntry          = 1062
	mysqlErrNoReferencedRow   = 1216
	mysqlErrRowIsReferenced   = 1217
	mysqlErrRowIsReferenced2  = 1451
	mysqlErrNoReferencedRow2  = 1452
	mysqlErrBadNull           = 1048
	mysqlErrNoDefaultForField = 1364
	mysqlErrCheckConstraint   = 3819
	mysqlErrLockWaitTimeout   = 1205
	mysqlErrQueryInterrupted  = 3024
)

// classifyError converts a driver error into an ExecutionError
func classifyError(err error, op, table, query string) error {
	if err == nil {
		return nil
	}

	execErr := &ExecutionError{
		Op:    op,
		Table: table,
		Query: query,
		Err:   err,
	}

	var mysqlErr *mysql.MySQLError
	var pqErr *pq.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		execErr.Kind = ErrTimeout
		execErr.Retryable = true

	case errors.Is(err, context.Canceled):
		execErr.Kind = ErrCanceled

	case errors.Is(err, mysql.ErrInvalidConn), errors.Is(err, sql.ErrConnDone):
		execErr.Kind = ErrConnectionFailed
		execErr.Retryable = true

	case errors.As(err, &mysqlErr):
		classifyMySQL(execErr, mysqlErr)

	case errors.As(err, &pqErr):
		classifyPostgres(execErr, pqErr)

	default:
		classifyMessage(execErr, err.Error())
	}

	return execErr
}

func classifyMySQL(execErr *ExecutionError, mysqlErr *mysql.MySQLError) {
	switch mysqlErr.Number {
	case mysqlErrDupEntry:
		execErr.Kind = ErrDuplicateKey
		execErr.Constraint = extractQuoted(mysqlErr.Message, "for key ")
	case mysqlErrNoReferencedRow, mysqlErrRowIsReferenced, mysqlErrRowIsReferenced2, mysqlErrNoReferencedRow2:
		execErr.Kind = ErrForeignKey
		execErr.Constraint = extractQuoted(mysqlErr.Message, "CONSTRAINT ")
	case mysqlErrBadNull, mysqlErrNoDefaultForField:
		execErr.Kind = ErrNotNull
		execErr.Column = extractQuoted(mysqlErr.Message, "Column ")
		if execErr.Column == "" {
			execErr.Column = extractQuoted(mysqlErr.Message, "Field ")
		}
	case mysqlErrCheckConstraint:
		execErr.Kind = ErrCheckConstraint
		execErr.Constraint = extractQuoted(mysqlErr.Message, "constraint ")
	case mysqlErrLockWaitTimeout, mysqlErrQueryInterrupted:
		execErr.Kind = ErrTimeout
		execErr.Retryable = true
	}
}

func classifyPostgres(execErr *ExecutionError, pqErr *pq.Error) {
	switch pqErr.Code {
	case "23505":
		execErr.Kind = ErrDuplicateKey
	case "23503":
		execErr.Kind = ErrForeignKey
	case "23502":
		execErr.Kind = ErrNotNull
	case "23514":
		execErr.Kind = ErrCheckConstraint
	case "57014":
		execErr.Kind = ErrTimeout
		execErr.Retryable = true
	}
	execErr.Constraint = pqErr.Constraint
	execErr.Column = pqErr.Column
}

// classifyMessage covers drivers without typed errors, such as SQLite
func classifyMessage(execErr *ExecutionError, msg string) {
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "unique constraint failed"),
		strings.Contains(lower, "duplicate entry"),
		strings.Contains(lower, "duplicate key value"):
		execErr.Kind = ErrDuplicateKey
	case strings.Contains(lower, "foreign key constraint"):
		execErr.Kind = ErrForeignKey
	case strings.Contains(lower, "not null constraint"):
		execErr.Kind = ErrNotNull
	case strings.Contains(lower, "check constraint"):
		execErr.Kind = ErrCheckConstraint
	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "connection reset"),
		strings.Contains(lower, "broken pipe"),
		strings.Contains(lower, "bad connection"):
		execErr.Kind = ErrConnectionFailed
		execErr.Retryable = true
	}
}

// extractQuoted returns the first quoted token following marker
func extractQuoted(msg, marker string) string {
	idx := strings.Index(msg, marker)
	if idx == -1 {
		return ""
	}
	rest := msg[idx+len(marker):]
	if rest == "" {
		return ""
	}
	quote := rest[0]
	if quote != '\'' && quote != '`' && quote != '"' {
		return ""
	}
	end := strings.IndexByte(rest[1:], quote)
	if end == -1 {
		return ""
	}
	return rest[1 : 1+end]
}

// IsRetryable checks if an error is marked retryable by the driver classification
func IsRetryable(err error) bool {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Retryable
	}
	return false
}

// IsConstraintError checks if an error is a constraint violation
func IsConstraintError(err error) bool {
	return errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrForeignKey) ||
		errors.Is(err, ErrCheckConstraint) ||
		errors.Is(err, ErrNotNull)
}

// IsGuardError reports whether err was raised locally before any
// statement reached the database.
func IsGuardError(err error) bool {
	var validationErr *ValidationError
	var compileErr *QueryCompileError
	return errors.As(err, &validationErr) || errors.As(err, &compileErr)
}

// GetConstraintName extracts the constraint name from an error
func GetConstraintName(err error) string {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Constraint
	}
	return ""
}
