package orm

import (
	"context"
	"sync"
	"time"
)

// OperationType represents different types of database operations
type OperationType string

const (
	OpFind   OperationType = "find"
	OpCount  OperationType = "count"
	OpCreate OperationType = "create"
	OpUpdate OperationType = "update"
	OpDelete OperationType = "delete"
	OpQuery  OperationType = "query"
)

// MiddlewareContext contains information passed to middleware. Statement
// may be replaced before calling next; Result, Error and Duration are
// filled in once next returns.
type MiddlewareContext struct {
	Operation OperationType
	TableName string
	Statement *Statement
	Result    *Result
	Error     error
	TxID      string
	StartTime time.Time
	Duration  time.Duration
	Context   context.Context
	Metadata  map[string]interface{}
}

// QueryMiddlewareFunc represents one step of statement execution
type QueryMiddlewareFunc func(ctx *MiddlewareContext) error

// QueryMiddleware wraps statement execution
type QueryMiddleware func(next QueryMiddlewareFunc) QueryMiddlewareFunc

// middlewareManager manages executor middleware
type middlewareManager struct {
	mu         sync.RWMutex
	middleware []QueryMiddleware
}

func newMiddlewareManager() *middlewareManager {
	return &middlewareManager{
		middleware: make([]QueryMiddleware, 0),
	}
}

func (mm *middlewareManager) AddMiddleware(middleware QueryMiddleware) {
	mm.mu.Lock()
	defer mm.mu.Unlock()
	mm.middleware = append(mm.middleware, middleware)
}

// ExecuteMiddleware runs finalFunc wrapped by the chain; the first
// middleware added is the outermost.
func (mm *middlewareManager) ExecuteMiddleware(ctx *MiddlewareContext, finalFunc QueryMiddlewareFunc) error {
	mm.mu.RLock()
	chain := mm.middleware
	mm.mu.RUnlock()

	handler := finalFunc
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}

	return handler(ctx)
}

// LoggingMiddleware logs every statement at debug level and failures at warn
func LoggingMiddleware(logger Logger) QueryMiddleware {
	return func(next QueryMiddlewareFunc) QueryMiddlewareFunc {
		return func(ctx *MiddlewareContext) error {
			err := next(ctx)

			kv := []interface{}{
				"operation", string(ctx.Operation),
				"table", ctx.TableName,
				"duration", ctx.Duration,
			}
			if ctx.Statement != nil {
				kv = append(kv, "sql", ctx.Statement.SQL, "params", len(ctx.Statement.Args))
			}
			if ctx.TxID != "" {
				kv = append(kv, "tx", ctx.TxID)
			}

			if err != nil {
				logger.Warn("statement failed", append(kv, "error", err)...)
				return err
			}

			if ctx.Result != nil {
				kv = append(kv, "rows", len(ctx.Result.Rows), "affected", ctx.Result.AffectedRows)
			}
			logger.Debug("statement executed", kv...)
			return nil
		}
	}
}

// MetricsCollector receives one observation per executed statement
type MetricsCollector interface {
	ObserveQuery(operation, table string, duration time.Duration, err error)
}

// MetricsMiddleware reports statement timings to collector
func MetricsMiddleware(collector MetricsCollector) QueryMiddleware {
	return func(next QueryMiddlewareFunc) QueryMiddlewareFunc {
		return func(ctx *MiddlewareContext) error {
			err := next(ctx)
			duration := ctx.Duration
			if duration == 0 {
				duration = time.Since(ctx.StartTime)
			}
			collector.ObserveQuery(string(ctx.Operation), ctx.TableName, duration, err)
			return err
		}
	}
}
