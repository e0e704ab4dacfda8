package testdb

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/dishdb/internal/database"
	"github.com/eleven-am/dishdb/pkg/orm"
)

// TestDB is a file-backed SQLite database with the dishdb tables created
type TestDB struct {
	DB   *sqlx.DB
	Path string
	t    *testing.T
}

// New creates a database in the test's temp dir and closes it on cleanup
func New(t *testing.T) *TestDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dishdb.sqlite")
	db, err := database.Config{Driver: database.DriverSQLite, URL: path}.Connect(context.Background())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	tdb := &TestDB{DB: db, Path: path, t: t}
	t.Cleanup(func() { db.Close() })

	if err := tdb.ExecuteSQL(Schema); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}
	return tdb
}

// Executor returns an executor over the database
func (tdb *TestDB) Executor() *orm.Executor {
	return orm.NewExecutor(tdb.DB, nil)
}

// ExecuteSQL executes semicolon separated statements one by one
func (tdb *TestDB) ExecuteSQL(sql string) error {
	statements := strings.Split(sql, ";")
	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tdb.DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute SQL: %w\nStatement: %s", err, stmt)
		}
	}
	return nil
}

// TableExists checks if a table exists
func (tdb *TestDB) TableExists(tableName string) (bool, error) {
	var n int
	err := tdb.DB.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, tableName)
	return n > 0, err
}

// RowCount returns the number of rows in table
func (tdb *TestDB) RowCount(tableName string) int {
	tdb.t.Helper()
	var n int
	if err := tdb.DB.Get(&n, "SELECT COUNT(*) FROM "+tableName); err != nil {
		tdb.t.Fatalf("Failed to count %s: %v", tableName, err)
	}
	return n
}
