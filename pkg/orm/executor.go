package orm

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// DBExecutor is the part of *sqlx.DB and *sqlx.Tx the executor runs
// statements through.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)

	// Rebind for driver-specific placeholders
	Rebind(query string) string

	// DriverName returns the driverName passed to the Open function for this DB.
	DriverName() string
}

// Compile-time checks to ensure both sqlx.DB and sqlx.Tx implement DBExecutor
var (
	_ DBExecutor = (*sqlx.DB)(nil)
	_ DBExecutor = (*sqlx.Tx)(nil)
)

// DBWrapper provides the pool-level operations only *sqlx.DB offers
type DBWrapper interface {
	DBExecutor
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
	Close() error
}

var _ DBWrapper = (*sqlx.DB)(nil)

// Result is the uniform outcome of any statement
type Result struct {
	Rows         []map[string]interface{}
	AffectedRows int64
	InsertID     int64
}

// Executor runs statements against the pool, or against a single pinned
// connection when bound to a transaction. It never retries.
type Executor struct {
	db         DBWrapper
	conn       DBExecutor
	tx         *sqlx.Tx
	txID       string
	dialect    Dialect
	logger     Logger
	middleware *middlewareManager
}

// NewExecutor creates an executor over db. A nil logger discards output.
func NewExecutor(db DBWrapper, logger Logger) *Executor {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Executor{
		db:         db,
		conn:       db,
		dialect:    DialectFor(db.DriverName()),
		logger:     logger,
		middleware: newMiddlewareManager(),
	}
}

// Use appends middleware to the chain. Transaction-bound executors share
// the chain of the executor they were started from. Statements already
// running keep the chain they started with.
func (e *Executor) Use(middleware ...QueryMiddleware) {
	for _, mw := range middleware {
		e.middleware.AddMiddleware(mw)
	}
}

// Dialect returns the dialect of the underlying driver
func (e *Executor) Dialect() Dialect {
	return e.dialect
}

// Logger returns the executor's logger
func (e *Executor) Logger() Logger {
	return e.logger
}

// IsTransaction reports whether the executor is bound to a transaction
func (e *Executor) IsTransaction() bool {
	return e.tx != nil
}

// TxID returns the id of the bound transaction, empty outside one
func (e *Executor) TxID() string {
	return e.txID
}

// Ping checks the pool can reach the database
func (e *Executor) Ping(ctx context.Context) error {
	if e.db == nil {
		return fmt.Errorf("ping: executor has no pool")
	}
	if err := e.db.PingContext(ctx); err != nil {
		return classifyError(err, "ping", "", "")
	}
	return nil
}

// Stats returns pool statistics
func (e *Executor) Stats() sql.DBStats {
	if e.db == nil {
		return sql.DBStats{}
	}
	return e.db.Stats()
}

// Execute runs a hand-written statement. The statement kind, and with it
// the shape of the result, is taken from the leading keyword.
func (e *Executor) Execute(ctx context.Context, query string, params ...interface{}) (*Result, error) {
	return e.Run(ctx, Statement{
		Kind: statementKind(query),
		Op:   OpQuery,
		SQL:  query,
		Args: params,
	})
}

// Run executes a built statement through the middleware chain
func (e *Executor) Run(ctx context.Context, stmt Statement) (*Result, error) {
	mctx := &MiddlewareContext{
		Operation: stmt.Op,
		TableName: stmt.Table,
		Statement: &stmt,
		TxID:      e.txID,
		StartTime: time.Now(),
		Context:   ctx,
		Metadata:  make(map[string]interface{}),
	}

	err := e.middleware.ExecuteMiddleware(mctx, func(mc *MiddlewareContext) error {
		res, err := e.run(mc.Context, *mc.Statement)
		mc.Duration = time.Since(mc.StartTime)
		mc.Result = res
		mc.Error = err
		return err
	})
	if err != nil {
		return nil, err
	}
	if mctx.Result == nil {
		// a middleware answered without reaching the database
		return &Result{Rows: []map[string]interface{}{}}, nil
	}
	return mctx.Result, nil
}

func (e *Executor) run(ctx context.Context, stmt Statement) (*Result, error) {
	query, args, err := sqlx.In(stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, &QueryCompileError{Reason: fmt.Sprintf("expand list parameters: %v", err)}
	}
	query = e.conn.Rebind(query)

	op := string(stmt.Op)

	switch {
	case stmt.Kind == KindSelect:
		rows, err := e.query(ctx, query, args)
		if err != nil {
			return nil, classifyError(err, op, stmt.Table, query)
		}
		return &Result{Rows: rows}, nil

	case stmt.Kind == KindInsert && stmt.Returning != "":
		rows, err := e.query(ctx, query, args)
		if err != nil {
			return nil, classifyError(err, op, stmt.Table, query)
		}
		res := &Result{Rows: rows, AffectedRows: int64(len(rows))}
		if len(rows) > 0 {
			res.InsertID = toInt64(rows[0][stmt.Returning])
		}
		return res, nil

	default:
		sqlRes, err := e.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, classifyError(err, op, stmt.Table, query)
		}
		res := &Result{Rows: []map[string]interface{}{}}
		if n, err := sqlRes.RowsAffected(); err == nil {
			res.AffectedRows = n
		}
		if stmt.Kind == KindInsert {
			if id, err := sqlRes.LastInsertId(); err == nil {
				res.InsertID = id
			}
		}
		return res, nil
	}
}

func (e *Executor) query(ctx context.Context, query string, args []interface{}) ([]map[string]interface{}, error) {
	rows, err := e.conn.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]map[string]interface{}, 0)
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// statementKind infers the kind of a hand-written statement
func statementKind(query string) StatementKind {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return KindOther
	}
	switch strings.ToUpper(strings.TrimLeft(fields[0], "(")) {
	case "SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "VALUES":
		return KindSelect
	case "INSERT", "REPLACE":
		return KindInsert
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	default:
		return KindOther
	}
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case []byte:
		id, _ := strconv.ParseInt(string(n), 10, 64)
		return id
	case string:
		id, _ := strconv.ParseInt(n, 10, 64)
		return id
	default:
		return 0
	}
}
