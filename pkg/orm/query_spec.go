package orm

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Operator names a comparison inside a where condition
type Operator string

const (
	OpGte     Operator = "gte"
	OpLte     Operator = "lte"
	OpGt      Operator = "gt"
	OpLt      Operator = "lt"
	OpLike    Operator = "like"
	OpNotLike Operator = "notLike"
)

type valueKind int

const (
	kindInvalid valueKind = iota
	kindLiteral
	kindNull
	kindList
	kindOperator
	kindRaw
)

// ValueExpr is the right-hand side of a where condition. Build it with
// Lit, Null, List, Op or Raw; the zero value is rejected by the compiler.
type ValueExpr struct {
	kind  valueKind
	op    Operator
	value interface{}
	list  []interface{}
	sql   string
}

// Lit matches the column by equality. Lit(nil) is the same as Null().
func Lit(v interface{}) ValueExpr {
	if v == nil {
		return Null()
	}
	return ValueExpr{kind: kindLiteral, value: v}
}

// Null matches rows where the column IS NULL
func Null() ValueExpr {
	return ValueExpr{kind: kindNull}
}

// List matches rows where the column is one of values
func List(values ...interface{}) ValueExpr {
	return ValueExpr{kind: kindList, list: values}
}

// ListOf converts a typed slice into a List expression
func ListOf[T any](values []T) ValueExpr {
	list := make([]interface{}, len(values))
	for i, v := range values {
		list[i] = v
	}
	return List(list...)
}

// Op compares the column with v using op. Unknown operators compare by equality.
func Op(op Operator, v interface{}) ValueExpr {
	return ValueExpr{kind: kindOperator, op: op, value: v}
}

// Raw is a caller-composed boolean fragment, the only way to express OR.
// Its placeholder count must match len(args).
func Raw(sql string, args ...interface{}) ValueExpr {
	return ValueExpr{kind: kindRaw, sql: sql, list: args}
}

func (v ValueExpr) String() string {
	switch v.kind {
	case kindLiteral:
		return fmt.Sprintf("= %v", v.value)
	case kindNull:
		return "IS NULL"
	case kindList:
		return fmt.Sprintf("IN %v", v.list)
	case kindOperator:
		return fmt.Sprintf("%s %v", v.op, v.value)
	case kindRaw:
		return v.sql
	default:
		return "<invalid>"
	}
}

type whereEntry struct {
	field string
	expr  ValueExpr
}

// Where is an ordered set of conditions joined with AND. Insertion order
// decides clause order so compiled SQL is deterministic.
type Where struct {
	entries []whereEntry
}

// NewWhere starts an empty condition set
func NewWhere() *Where {
	return &Where{}
}

// Eq is shorthand for a where with a single equality condition
func Eq(field string, value interface{}) *Where {
	return NewWhere().Add(field, Lit(value))
}

// Add appends a condition. Adding the same field twice replaces the
// earlier condition in place.
func (w *Where) Add(field string, expr ValueExpr) *Where {
	for i := range w.entries {
		if w.entries[i].field == field && field != "" {
			w.entries[i].expr = expr
			return w
		}
	}
	w.entries = append(w.entries, whereEntry{field: field, expr: expr})
	return w
}

// AddRaw appends a pre-composed fragment
func (w *Where) AddRaw(sql string, args ...interface{}) *Where {
	w.entries = append(w.entries, whereEntry{expr: Raw(sql, args...)})
	return w
}

// Clone returns an independent copy; cloning nil yields an empty Where
func (w *Where) Clone() *Where {
	out := NewWhere()
	if w != nil {
		out.entries = append(out.entries, w.entries...)
	}
	return out
}

// Len returns the number of conditions; a nil Where has none
func (w *Where) Len() int {
	if w == nil {
		return 0
	}
	return len(w.entries)
}

// IsEmpty reports whether there are no conditions
func (w *Where) IsEmpty() bool {
	return w.Len() == 0
}

// Fields returns the condition fields in insertion order
func (w *Where) Fields() []string {
	if w == nil {
		return nil
	}
	fields := make([]string, 0, len(w.entries))
	for _, e := range w.entries {
		fields = append(fields, e.field)
	}
	return fields
}

// Direction is an ORDER BY direction
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ParseDirection accepts asc/desc in any case; empty means ASC
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ASC":
		return Asc, nil
	case "DESC":
		return Desc, nil
	default:
		return "", &ValidationError{Field: "order", Message: fmt.Sprintf("invalid direction %q", s)}
	}
}

// OrderTerm is one ORDER BY column
type OrderTerm struct {
	Column    string
	Direction Direction
}

// By builds an order term
func By(column string, direction Direction) OrderTerm {
	return OrderTerm{Column: column, Direction: direction}
}

// Computed is an extra select expression exposed under Alias. Its SQL may
// contain placeholders bound to Args.
type Computed struct {
	Alias string
	SQL   string
	Args  []interface{}
}

// QuerySpec describes a read. It is built per call and not retained.
type QuerySpec struct {
	Where *Where

	Order    []OrderTerm
	RawOrder string

	Limit  *int
	Offset *int

	// Include enables optional static joins by name
	Include []string

	// Columns narrows the base columns; empty selects all declared columns
	Columns  []string
	Computed []Computed
	GroupBy  []string
	Having   *Where
}

// Paginate sets limit and offset
func (s QuerySpec) Paginate(limit, offset int) QuerySpec {
	s.Limit = &limit
	s.Offset = &offset
	return s
}

// Int returns a pointer to v, for Limit and Offset literals
func Int(v int) *int {
	return &v
}

// ParsePagination coerces limit/offset strings (typically from a query
// string) into non-negative integers. Empty strings mean "not set".
func ParsePagination(limit, offset string) (*int, *int, error) {
	l, err := parseNonNegative("limit", limit)
	if err != nil {
		return nil, nil, err
	}
	o, err := parseNonNegative("offset", offset)
	if err != nil {
		return nil, nil, err
	}
	return l, o, nil
}

func parseNonNegative(field, raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &ValidationError{Field: field, Message: fmt.Sprintf("%q is not an integer", raw)}
	}
	if n < 0 {
		return nil, &ValidationError{Field: field, Message: "must not be negative"}
	}
	return &n, nil
}

func validatePagination(spec QuerySpec) error {
	if spec.Limit != nil && *spec.Limit < 0 {
		return &ValidationError{Field: "limit", Message: "must not be negative"}
	}
	if spec.Offset != nil && *spec.Offset < 0 {
		return &ValidationError{Field: "offset", Message: "must not be negative"}
	}
	return nil
}

func isListValue(v interface{}) bool {
	if v == nil {
		return false
	}
	switch v.(type) {
	case []byte:
		return false
	}
	kind := reflect.TypeOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}
