package orm

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Masterminds/squirrel"
)

// Dialect selects the driver-specific parts of statement building
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// DialectFor maps a database/sql driver name to a dialect. Unknown
// drivers are treated as MySQL.
func DialectFor(driverName string) Dialect {
	switch strings.ToLower(driverName) {
	case "postgres", "pgx", "pq":
		return Postgres
	case "sqlite", "sqlite3":
		return SQLite
	default:
		return MySQL
	}
}

// StatementKind is the shape of result a statement produces
type StatementKind string

const (
	KindSelect StatementKind = "select"
	KindInsert StatementKind = "insert"
	KindUpdate StatementKind = "update"
	KindDelete StatementKind = "delete"
	KindOther  StatementKind = "other"
)

// Statement is a fully built SQL string with its positional arguments.
// SQL always uses ? placeholders; the executor rebinds for the driver.
type Statement struct {
	Kind      StatementKind
	Op        OperationType
	Table     string
	SQL       string
	Args      []interface{}
	Returning string
}

// InsertHook merges the driver-assigned id into the echoed insert payload
type InsertHook func(res *Result) Record

// StatementBuilder emits SELECT/INSERT/UPDATE/DELETE statements for one
// schema. It holds no per-query state and is safe for concurrent use.
type StatementBuilder struct {
	schema  *Schema
	dialect Dialect
}

// NewStatementBuilder creates a builder for schema
func NewStatementBuilder(schema *Schema, dialect Dialect) *StatementBuilder {
	if dialect == "" {
		dialect = MySQL
	}
	return &StatementBuilder{schema: schema, dialect: dialect}
}

// Schema returns the schema the builder was created with
func (b *StatementBuilder) Schema() *Schema {
	return b.schema
}

// Dialect returns the builder's dialect
func (b *StatementBuilder) Dialect() Dialect {
	return b.dialect
}

// BuildSelect compiles a read
func (b *StatementBuilder) BuildSelect(spec QuerySpec) (Statement, error) {
	s := b.schema

	if err := validatePagination(spec); err != nil {
		return Statement{}, withOp(err, string(OpFind), s.Table)
	}

	joins, err := s.activeJoins(spec.Include)
	if err != nil {
		return Statement{}, withOp(err, string(OpFind), s.Table)
	}

	if err := b.validateComputed(spec.Computed, joins); err != nil {
		return Statement{}, err
	}

	qualified := len(joins) > 0
	query := squirrel.Select().From(s.Table)

	columns := spec.Columns
	if len(columns) == 0 {
		columns = s.Columns
	}
	for _, col := range columns {
		if !s.HasColumn(col) {
			return Statement{}, &ValidationError{Op: string(OpFind), Table: s.Table, Field: col, Message: "unknown column"}
		}
		if qualified {
			query = query.Column(s.column(col, true) + " AS " + col)
		} else {
			query = query.Column(col)
		}
	}

	for _, j := range joins {
		for _, col := range j.Columns {
			query = query.Column(col.Source + " AS " + col.Alias)
		}
	}

	for _, c := range spec.Computed {
		query = query.Column(squirrel.Alias(squirrel.Expr(c.SQL, c.Args...), c.Alias))
	}

	for _, j := range joins {
		query = query.JoinClause(j.clause())
	}

	whereFields := s.fields(joins, nil)
	where, err := NewConditionCompiler(whereFields).Compile(spec.Where)
	if err != nil {
		return Statement{}, err
	}
	if !where.IsEmpty() {
		query = query.Where(where)
	}

	if len(spec.GroupBy) > 0 {
		groupBy := make([]string, 0, len(spec.GroupBy))
		for _, field := range spec.GroupBy {
			expr, ok := whereFields[field]
			if !ok {
				return Statement{}, &ValidationError{Op: string(OpFind), Table: s.Table, Field: field, Message: "unknown group by field"}
			}
			groupBy = append(groupBy, expr)
		}
		query = query.GroupBy(groupBy...)
	}

	allFields := s.fields(joins, spec.Computed)

	having, err := NewConditionCompiler(allFields).Compile(spec.Having)
	if err != nil {
		return Statement{}, err
	}
	if !having.IsEmpty() {
		query = query.Having(having)
	}

	orderBy, err := b.orderBy(spec, allFields)
	if err != nil {
		return Statement{}, err
	}
	if len(orderBy) > 0 {
		query = query.OrderBy(orderBy...)
	}

	if spec.Limit != nil || spec.Offset != nil {
		limit, offset := math.MaxInt, 0
		if spec.Limit != nil {
			limit = *spec.Limit
		}
		if spec.Offset != nil {
			offset = *spec.Offset
		}
		query = query.Suffix("LIMIT ? OFFSET ?", limit, offset)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("build select for %s: %w", s.Table, err)
	}

	return Statement{Kind: KindSelect, Op: OpFind, Table: s.Table, SQL: sql, Args: args}, nil
}

// BuildCount compiles a row count over the same joins and conditions a
// select would use. With joins active, rows are counted by distinct
// primary key.
func (b *StatementBuilder) BuildCount(spec QuerySpec) (Statement, error) {
	s := b.schema

	joins, err := s.activeJoins(spec.Include)
	if err != nil {
		return Statement{}, withOp(err, string(OpCount), s.Table)
	}

	countExpr := "COUNT(*) AS count"
	if len(joins) > 0 {
		countExpr = fmt.Sprintf("COUNT(DISTINCT %s) AS count", s.column(s.PrimaryKey, true))
	}

	query := squirrel.Select(countExpr).From(s.Table)
	for _, j := range joins {
		query = query.JoinClause(j.clause())
	}

	where, err := NewConditionCompiler(s.fields(joins, nil)).Compile(spec.Where)
	if err != nil {
		return Statement{}, err
	}
	if !where.IsEmpty() {
		query = query.Where(where)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("build count for %s: %w", s.Table, err)
	}

	return Statement{Kind: KindSelect, Op: OpCount, Table: s.Table, SQL: sql, Args: args}, nil
}

// BuildInsert compiles an insert with columns in payload order. The hook
// returns the payload echoed back with the generated primary key.
func (b *StatementBuilder) BuildInsert(data *Data) (Statement, InsertHook, error) {
	s := b.schema

	if data.Len() == 0 {
		return Statement{}, nil, &ValidationError{Op: string(OpCreate), Table: s.Table, Message: "no data to insert"}
	}

	columns := data.Keys()
	values, err := b.encodeValues(OpCreate, data, columns)
	if err != nil {
		return Statement{}, nil, err
	}

	query := squirrel.Insert(s.Table).Columns(columns...).Values(values...)

	stmt := Statement{Kind: KindInsert, Op: OpCreate, Table: s.Table}
	if b.dialect == Postgres {
		query = query.Suffix("RETURNING " + s.PrimaryKey)
		stmt.Returning = s.PrimaryKey
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return Statement{}, nil, fmt.Errorf("build insert for %s: %w", s.Table, err)
	}
	stmt.SQL = sql
	stmt.Args = args

	echo := data.Record()
	pk := s.PrimaryKey
	hook := func(res *Result) Record {
		rec := make(Record, len(echo)+1)
		for k, v := range echo {
			rec[k] = v
		}
		if _, set := rec[pk]; !set && res != nil && res.InsertID != 0 {
			rec[pk] = res.InsertID
		}
		return rec
	}

	return stmt, hook, nil
}

// BuildUpdate compiles an update. It refuses to build without a where
// condition so a missing filter can never touch the whole table.
func (b *StatementBuilder) BuildUpdate(data *Data, where *Where) (Statement, error) {
	s := b.schema

	if where.IsEmpty() {
		return Statement{}, &ValidationError{Op: string(OpUpdate), Table: s.Table, Field: "where", Message: "update requires a where condition"}
	}
	if data.Len() == 0 {
		return Statement{}, &ValidationError{Op: string(OpUpdate), Table: s.Table, Message: "no data to update"}
	}

	columns := data.Keys()
	values, err := b.encodeValues(OpUpdate, data, columns)
	if err != nil {
		return Statement{}, err
	}

	query := squirrel.Update(s.Table)
	for i, col := range columns {
		query = query.Set(col, values[i])
	}

	cond, err := NewConditionCompiler(s.fields(nil, nil)).Compile(where)
	if err != nil {
		return Statement{}, err
	}
	query = query.Where(cond)

	sql, args, err := query.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("build update for %s: %w", s.Table, err)
	}

	return Statement{Kind: KindUpdate, Op: OpUpdate, Table: s.Table, SQL: sql, Args: args}, nil
}

// BuildDelete compiles a delete; like BuildUpdate it requires a where
func (b *StatementBuilder) BuildDelete(where *Where) (Statement, error) {
	s := b.schema

	if where.IsEmpty() {
		return Statement{}, &ValidationError{Op: string(OpDelete), Table: s.Table, Field: "where", Message: "delete requires a where condition"}
	}

	cond, err := NewConditionCompiler(s.fields(nil, nil)).Compile(where)
	if err != nil {
		return Statement{}, err
	}

	sql, args, err := squirrel.Delete(s.Table).Where(cond).ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("build delete for %s: %w", s.Table, err)
	}

	return Statement{Kind: KindDelete, Op: OpDelete, Table: s.Table, SQL: sql, Args: args}, nil
}

func (b *StatementBuilder) encodeValues(op OperationType, data *Data, columns []string) ([]interface{}, error) {
	values := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		if !b.schema.HasColumn(col) {
			return nil, &ValidationError{Op: string(op), Table: b.schema.Table, Field: col, Message: "unknown column"}
		}
		v, _ := data.Get(col)
		encoded, err := b.encodeValue(col, v)
		if err != nil {
			return nil, &ValidationError{Op: string(op), Table: b.schema.Table, Field: col, Message: err.Error()}
		}
		values = append(values, encoded)
	}
	return values, nil
}

// encodeValue serializes JSON column values to text. Strings, byte slices
// and json.RawMessage are taken as already serialized.
func (b *StatementBuilder) encodeValue(col string, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	if !b.schema.IsJSON(col) {
		if isListValue(v) {
			return nil, fmt.Errorf("slice value for non-JSON column")
		}
		return v, nil
	}

	switch val := v.(type) {
	case string:
		return val, nil
	case json.RawMessage:
		return string(val), nil
	case []byte:
		return string(val), nil
	}

	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode JSON: %w", err)
	}
	return string(encoded), nil
}

func (b *StatementBuilder) validateComputed(computed []Computed, joins []Join) error {
	taken := b.schema.fields(joins, nil)
	for _, c := range computed {
		if !isIdentifier(c.Alias) {
			return &ValidationError{Op: string(OpFind), Table: b.schema.Table, Field: c.Alias, Message: "invalid computed alias"}
		}
		if _, exists := taken[c.Alias]; exists {
			return &ValidationError{Op: string(OpFind), Table: b.schema.Table, Field: c.Alias, Message: "computed alias collides with a column"}
		}
		taken[c.Alias] = c.Alias
		if n := strings.Count(c.SQL, "?"); n != len(c.Args) {
			return &QueryCompileError{Field: c.Alias, Reason: fmt.Sprintf("computed expression has %d placeholders but %d arguments", n, len(c.Args))}
		}
	}
	return nil
}

func (b *StatementBuilder) orderBy(spec QuerySpec, fields map[string]string) ([]string, error) {
	terms := spec.Order
	if spec.RawOrder != "" {
		if len(terms) > 0 {
			return nil, &ValidationError{Op: string(OpFind), Table: b.schema.Table, Field: "order", Message: "set either Order or RawOrder, not both"}
		}
		parsed, err := ParseOrder(spec.RawOrder)
		if err != nil {
			return nil, withOp(err, string(OpFind), b.schema.Table)
		}
		terms = parsed
	}
	if len(terms) == 0 {
		terms = b.schema.DefaultOrder
	}

	out := make([]string, 0, len(terms))
	for _, term := range terms {
		expr, ok := fields[term.Column]
		if !ok {
			return nil, &ValidationError{Op: string(OpFind), Table: b.schema.Table, Field: term.Column, Message: "unknown order column"}
		}
		dir := term.Direction
		if dir == "" {
			dir = Asc
		}
		if dir != Asc && dir != Desc {
			return nil, &ValidationError{Op: string(OpFind), Table: b.schema.Table, Field: term.Column, Message: fmt.Sprintf("invalid direction %q", dir)}
		}
		out = append(out, expr+" "+string(dir))
	}
	return out, nil
}

// ParseOrder parses "col [ASC|DESC], col2 ..." into order terms. Column
// names are checked against the schema when the statement is built.
func ParseOrder(raw string) ([]OrderTerm, error) {
	var terms []OrderTerm
	for _, part := range strings.Split(raw, ",") {
		tokens := strings.Fields(part)
		switch len(tokens) {
		case 0:
			continue
		case 1, 2:
		default:
			return nil, &ValidationError{Field: "order", Message: fmt.Sprintf("invalid order term %q", strings.TrimSpace(part))}
		}

		dir := Asc
		if len(tokens) == 2 {
			d, err := ParseDirection(tokens[1])
			if err != nil {
				return nil, err
			}
			dir = d
		}
		terms = append(terms, OrderTerm{Column: tokens[0], Direction: dir})
	}
	return terms, nil
}

// withOp fills Op and Table on a ValidationError raised by a helper
func withOp(err error, op, table string) error {
	if ve, ok := err.(*ValidationError); ok {
		if ve.Op == "" {
			ve.Op = op
		}
		if ve.Table == "" {
			ve.Table = table
		}
	}
	return err
}
