package orm

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
)

// Fragment is a compiled boolean SQL fragment with its bound arguments
type Fragment struct {
	SQL  string
	Args []interface{}
}

// ToSql implements squirrel.Sqlizer
func (f Fragment) ToSql() (string, []interface{}, error) {
	return f.SQL, f.Args, nil
}

// IsEmpty reports whether the fragment has no SQL
func (f Fragment) IsEmpty() bool {
	return f.SQL == ""
}

var _ squirrel.Sqlizer = Fragment{}

// ConditionCompiler translates a Where into a parameterized fragment.
// Field names resolve through an allow-list to the SQL expression that
// is written into the statement; anything else is rejected.
type ConditionCompiler struct {
	fields map[string]string
}

// NewConditionCompiler creates a compiler over the given allow-list,
// mapping field names to SQL expressions.
func NewConditionCompiler(fields map[string]string) *ConditionCompiler {
	return &ConditionCompiler{fields: fields}
}

// Compile turns where into a fragment. Entries are joined with AND in
// insertion order. A nil or empty where compiles to an empty fragment.
func (c *ConditionCompiler) Compile(where *Where) (Fragment, error) {
	if where.IsEmpty() {
		return Fragment{}, nil
	}

	parts := make([]string, 0, where.Len())
	var args []interface{}

	for _, entry := range where.entries {
		pred, err := c.compileEntry(entry)
		if err != nil {
			return Fragment{}, err
		}

		sql, predArgs, err := pred.ToSql()
		if err != nil {
			return Fragment{}, &QueryCompileError{Field: entry.field, Reason: err.Error()}
		}

		parts = append(parts, sql)
		args = append(args, predArgs...)
	}

	return Fragment{SQL: strings.Join(parts, " AND "), Args: args}, nil
}

func (c *ConditionCompiler) compileEntry(entry whereEntry) (squirrel.Sqlizer, error) {
	expr := entry.expr

	if expr.kind == kindRaw {
		if entry.field != "" {
			if _, ok := c.fields[entry.field]; !ok {
				return nil, &QueryCompileError{Field: entry.field, Reason: "unknown field"}
			}
		}
		return compileRaw(entry.field, expr)
	}

	if entry.field == "" {
		return nil, &QueryCompileError{Reason: "condition has no field"}
	}

	col, ok := c.fields[entry.field]
	if !ok {
		return nil, &QueryCompileError{Field: entry.field, Reason: "unknown field"}
	}

	switch expr.kind {
	case kindNull:
		return squirrel.Eq{col: nil}, nil

	case kindLiteral:
		if isListValue(expr.value) {
			return nil, &QueryCompileError{Field: entry.field, Reason: "slice value in equality; use List"}
		}
		return squirrel.Expr(col+" = ?", expr.value), nil

	case kindList:
		if len(expr.list) == 0 {
			return nil, &QueryCompileError{Field: entry.field, Reason: "empty list"}
		}
		return squirrel.Expr(col+" IN (?)", expr.list), nil

	case kindOperator:
		return compileOperator(entry.field, col, expr)

	default:
		return nil, &QueryCompileError{Field: entry.field, Reason: "invalid value expression"}
	}
}

func compileOperator(field, col string, expr ValueExpr) (squirrel.Sqlizer, error) {
	if expr.value == nil {
		return nil, &QueryCompileError{Field: field, Reason: fmt.Sprintf("nil value for operator %s", expr.op)}
	}
	if isListValue(expr.value) {
		return nil, &QueryCompileError{Field: field, Reason: fmt.Sprintf("slice value for operator %s", expr.op)}
	}

	switch expr.op {
	case OpGte:
		return squirrel.GtOrEq{col: expr.value}, nil
	case OpLte:
		return squirrel.LtOrEq{col: expr.value}, nil
	case OpGt:
		return squirrel.Gt{col: expr.value}, nil
	case OpLt:
		return squirrel.Lt{col: expr.value}, nil
	case OpLike:
		return squirrel.Like{col: containsPattern(expr.value)}, nil
	case OpNotLike:
		return squirrel.NotLike{col: containsPattern(expr.value)}, nil
	default:
		return squirrel.Expr(col+" = ?", expr.value), nil
	}
}

func compileRaw(field string, expr ValueExpr) (squirrel.Sqlizer, error) {
	sql := strings.TrimSpace(expr.sql)
	if sql == "" {
		return nil, &QueryCompileError{Field: field, Reason: "empty raw fragment"}
	}

	placeholders := strings.Count(sql, "?")
	if placeholders != len(expr.list) {
		return nil, &QueryCompileError{
			Field:  field,
			Reason: fmt.Sprintf("raw fragment has %d placeholders but %d arguments", placeholders, len(expr.list)),
		}
	}

	return squirrel.Expr("("+sql+")", expr.list...), nil
}

func containsPattern(v interface{}) string {
	return fmt.Sprintf("%%%v%%", v)
}
