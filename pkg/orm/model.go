package orm

import (
	"context"
	"fmt"
)

// Model is the CRUD surface of one entity. Entities contribute only a
// Schema; every operation goes through the shared builder and executor.
type Model struct {
	schema   *Schema
	builder  *StatementBuilder
	executor *Executor
}

// NewModel validates schema and binds it to executor
func NewModel(schema *Schema, executor *Executor) (*Model, error) {
	if executor == nil {
		return nil, fmt.Errorf("model %s: executor is required", schema.Table)
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &Model{
		schema:   schema,
		builder:  NewStatementBuilder(schema, executor.Dialect()),
		executor: executor,
	}, nil
}

// WithExecutor returns a copy of the model that runs on ex, typically a
// transaction-bound executor.
func (m *Model) WithExecutor(ex *Executor) *Model {
	return &Model{
		schema:   m.schema,
		builder:  NewStatementBuilder(m.schema, ex.Dialect()),
		executor: ex,
	}
}

// Schema returns the model's schema
func (m *Model) Schema() *Schema {
	return m.schema
}

// Builder returns the statement builder, for callers that only need SQL
func (m *Model) Builder() *StatementBuilder {
	return m.builder
}

// Executor returns the executor the model runs on
func (m *Model) Executor() *Executor {
	return m.executor
}

// FindAll returns every record matching spec
func (m *Model) FindAll(ctx context.Context, spec QuerySpec) ([]Record, error) {
	stmt, err := m.builder.BuildSelect(spec)
	if err != nil {
		return nil, err
	}
	return m.Query(ctx, stmt)
}

// FindOne returns the first record matching spec, or ErrNotFound
func (m *Model) FindOne(ctx context.Context, spec QuerySpec) (Record, error) {
	spec.Limit = Int(1)
	records, err := m.FindAll(ctx, spec)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", m.schema.Table, ErrNotFound)
	}
	return records[0], nil
}

// FindByPk returns the record with the given primary key, or ErrNotFound
func (m *Model) FindByPk(ctx context.Context, id interface{}) (Record, error) {
	return m.FindOne(ctx, QuerySpec{Where: Eq(m.schema.PrimaryKey, id)})
}

// Create inserts data and returns it echoed back with the generated key
func (m *Model) Create(ctx context.Context, data *Data) (Record, error) {
	stmt, hook, err := m.builder.BuildInsert(data)
	if err != nil {
		return nil, err
	}
	res, err := m.executor.Run(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return hook(res), nil
}

// Update applies data to rows matching where and returns the affected
// row count. An empty where is rejected.
func (m *Model) Update(ctx context.Context, data *Data, where *Where) (int64, error) {
	stmt, err := m.builder.BuildUpdate(data, where)
	if err != nil {
		return 0, err
	}
	res, err := m.executor.Run(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return res.AffectedRows, nil
}

// Destroy deletes rows matching where and returns the affected row count.
// An empty where is rejected.
func (m *Model) Destroy(ctx context.Context, where *Where) (int64, error) {
	stmt, err := m.builder.BuildDelete(where)
	if err != nil {
		return 0, err
	}
	res, err := m.executor.Run(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return res.AffectedRows, nil
}

// Count returns the number of rows matching where
func (m *Model) Count(ctx context.Context, where *Where) (int64, error) {
	return m.CountSpec(ctx, QuerySpec{Where: where})
}

// CountSpec counts rows matching spec's conditions and joins; ordering
// and pagination are ignored.
func (m *Model) CountSpec(ctx context.Context, spec QuerySpec) (int64, error) {
	stmt, err := m.builder.BuildCount(spec)
	if err != nil {
		return 0, err
	}
	res, err := m.executor.Run(ctx, stmt)
	if err != nil {
		return 0, err
	}
	if len(res.Rows) == 0 {
		return 0, nil
	}
	return toInt64(res.Rows[0]["count"]), nil
}

// Query runs a select statement built for this model and maps its rows
func (m *Model) Query(ctx context.Context, stmt Statement) ([]Record, error) {
	res, err := m.executor.Run(ctx, stmt)
	if err != nil {
		return nil, err
	}

	records, warnings := MapRows(res.Rows, m.schema)
	for _, w := range warnings {
		m.executor.Logger().Warn("stored JSON could not be decoded; using default",
			"table", w.Table,
			"column", w.Column,
			"error", w.Err,
		)
	}
	return records, nil
}
