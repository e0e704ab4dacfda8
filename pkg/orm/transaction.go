package orm

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// TransactionOptions configures transaction behavior
type TransactionOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

// DefaultTransactionOptions returns the driver defaults
func DefaultTransactionOptions() *TransactionOptions {
	return &TransactionOptions{
		Isolation: sql.LevelDefault,
		ReadOnly:  false,
	}
}

// ToTxOptions converts TransactionOptions to sql.TxOptions
func (o *TransactionOptions) ToTxOptions() *sql.TxOptions {
	if o == nil {
		return nil
	}
	return &sql.TxOptions{
		Isolation: o.Isolation,
		ReadOnly:  o.ReadOnly,
	}
}

// Transaction runs fn with an executor pinned to one connection inside a
// transaction. It commits when fn returns nil and rolls back otherwise,
// including when fn panics, in which case the panic is re-raised.
func (e *Executor) Transaction(ctx context.Context, fn func(tx *Executor) error) error {
	return e.TransactionWithOptions(ctx, nil, fn)
}

// TransactionWithOptions is Transaction with explicit isolation settings
func (e *Executor) TransactionWithOptions(ctx context.Context, opts *TransactionOptions, fn func(tx *Executor) error) error {
	if e.tx != nil {
		return ErrNestedTransaction
	}
	if e.db == nil {
		return fmt.Errorf("begin transaction: executor has no pool")
	}

	if opts == nil {
		opts = DefaultTransactionOptions()
	}

	tx, err := e.db.BeginTxx(ctx, opts.ToTxOptions())
	if err != nil {
		return classifyError(err, "begin", "", "")
	}

	txID := uuid.NewString()
	e.logger.Debug("transaction started", "tx", txID)

	bound := &Executor{
		db:         e.db,
		conn:       tx,
		tx:         tx,
		txID:       txID,
		dialect:    e.dialect,
		logger:     e.logger,
		middleware: e.middleware,
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			e.logger.Error("transaction rolled back after panic", "tx", txID, "panic", p)
			panic(p)
		}
	}()

	if err := fn(bound); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.logger.Error("rollback failed", "tx", txID, "error", rbErr)
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		e.logger.Debug("transaction rolled back", "tx", txID, "error", err)
		return err
	}

	if err := tx.Commit(); err != nil {
		return classifyError(err, "commit", "", "")
	}

	e.logger.Debug("transaction committed", "tx", txID)
	return nil
}

// InTransaction runs fn inside a transaction and returns its value
func InTransaction[T any](ctx context.Context, e *Executor, fn func(tx *Executor) (T, error)) (T, error) {
	var result T
	err := e.Transaction(ctx, func(tx *Executor) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
