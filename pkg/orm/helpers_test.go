package orm

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func restaurantSchema() *Schema {
	return &Schema{
		Table:      "restaurants",
		PrimaryKey: "id",
		Columns:    []string{"id", "name", "status", "rating", "tags", "openingHours", "createdAt"},
		JSONColumns: map[string]JSONShape{
			"tags":         JSONArray,
			"openingHours": JSONObject,
		},
		Joins: []Join{
			{
				Name:  "owner",
				Type:  LeftJoin,
				Table: "users",
				Alias: "owner",
				On:    "owner.id = restaurants.ownerId",
				Columns: []JoinColumn{
					{Alias: "ownerName", Source: "owner.name"},
				},
				Optional: true,
			},
		},
		DefaultOrder: []OrderTerm{By("createdAt", Desc)},
	}
}

var restaurantColumns = "id, name, status, rating, tags, openingHours, createdAt"

// newMockExecutor returns an executor over sqlmock using exact SQL matching
func newMockExecutor(t *testing.T, driver string) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewExecutor(sqlx.NewDb(db, driver), nil), mock
}

// recordingLogger keeps warn and error messages for assertions
type recordingLogger struct {
	nopLogger
	warnings []string
	errors   []string
}

func (l *recordingLogger) Warn(msg string, args ...any) {
	l.warnings = append(l.warnings, msg)
}

func (l *recordingLogger) Error(msg string, args ...any) {
	l.errors = append(l.errors, msg)
}
