package orm

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRestaurantModel(t *testing.T, driver string) (*Model, sqlmock.Sqlmock) {
	t.Helper()
	ex, mock := newMockExecutor(t, driver)
	m, err := NewModel(restaurantSchema(), ex)
	require.NoError(t, err)
	return m, mock
}

func TestNewModel(t *testing.T) {
	ex, _ := newMockExecutor(t, "mysql")

	_, err := NewModel(&Schema{Table: "bad table", PrimaryKey: "id", Columns: []string{"id"}}, ex)
	assert.True(t, IsGuardError(err))

	_, err = NewModel(restaurantSchema(), nil)
	assert.Error(t, err)
}

func TestModel_FindAll(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	log := &recordingLogger{}
	m, err := NewModel(restaurantSchema(), NewExecutor(sqlx.NewDb(db, "mysql"), log))
	require.NoError(t, err)

	mock.ExpectQuery("SELECT "+restaurantColumns+" FROM restaurants WHERE status = ? ORDER BY createdAt DESC").
		WithArgs("open").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status", "rating", "tags", "openingHours", "createdAt"}).
			AddRow(int64(1), []byte("Blue Fin"), "open", 4.5, []byte(`["sushi","fish"]`), `{"mon":"9-17"}`, nil).
			AddRow(int64(2), "Broken", "open", nil, nil, "{not json", nil))

	records, err := m.FindAll(ctx, QuerySpec{Where: Eq("status", "open")})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "Blue Fin", records[0]["name"])
	assert.Equal(t, []interface{}{"sushi", "fish"}, records[0]["tags"])
	assert.Equal(t, map[string]interface{}{"mon": "9-17"}, records[0]["openingHours"])

	assert.Nil(t, records[1]["tags"])
	assert.Equal(t, map[string]interface{}{}, records[1]["openingHours"])
	assert.Equal(t, []string{"stored JSON could not be decoded; using default"}, log.warnings)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModel_FindAllWithJoin(t *testing.T) {
	m, mock := newRestaurantModel(t, "mysql")

	mock.ExpectQuery("SELECT restaurants.id AS id, restaurants.name AS name, restaurants.status AS status, restaurants.rating AS rating, restaurants.tags AS tags, restaurants.openingHours AS openingHours, restaurants.createdAt AS createdAt, owner.name AS ownerName FROM restaurants LEFT JOIN users AS owner ON owner.id = restaurants.ownerId WHERE restaurants.status = ? ORDER BY restaurants.createdAt DESC LIMIT ? OFFSET ?").
		WithArgs("open", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status", "rating", "tags", "openingHours", "createdAt", "ownerName"}).
			AddRow(int64(1), "Blue Fin", "open", 4.5, "[]", "{}", nil, []byte("Ada")))

	records, err := m.FindAll(context.Background(), QuerySpec{
		Where:   Eq("status", "open"),
		Include: []string{"owner"},
		Limit:   Int(10),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ada", records[0]["ownerName"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModel_FindOne(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		m, mock := newRestaurantModel(t, "mysql")

		mock.ExpectQuery("SELECT "+restaurantColumns+" FROM restaurants WHERE id = ? ORDER BY createdAt DESC LIMIT ? OFFSET ?").
			WithArgs(5, 1, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(5), "Blue Fin"))

		rec, err := m.FindByPk(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), rec["id"])
	})

	t.Run("not found", func(t *testing.T) {
		m, mock := newRestaurantModel(t, "mysql")

		mock.ExpectQuery("SELECT "+restaurantColumns+" FROM restaurants WHERE id = ? ORDER BY createdAt DESC LIMIT ? OFFSET ?").
			WithArgs(404, 1, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		rec, err := m.FindByPk(ctx, 404)
		assert.Nil(t, rec)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "restaurants")
	})

	t.Run("limit is forced to one", func(t *testing.T) {
		m, mock := newRestaurantModel(t, "mysql")

		mock.ExpectQuery("SELECT "+restaurantColumns+" FROM restaurants WHERE status = ? ORDER BY createdAt DESC LIMIT ? OFFSET ?").
			WithArgs("open", 1, 20).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(21)))

		rec, err := m.FindOne(ctx, QuerySpec{Where: Eq("status", "open"), Limit: Int(50), Offset: Int(20)})
		require.NoError(t, err)
		assert.Equal(t, int64(21), rec["id"])
	})
}

func TestModel_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("mysql uses last insert id", func(t *testing.T) {
		m, mock := newRestaurantModel(t, "mysql")

		mock.ExpectExec("INSERT INTO restaurants (name,status,tags) VALUES (?,?,?)").
			WithArgs("Blue Fin", "open", `["sushi"]`).
			WillReturnResult(sqlmock.NewResult(11, 1))

		rec, err := m.Create(ctx, DataFrom(map[string]interface{}{
			"name":   "Blue Fin",
			"status": "open",
			"tags":   []string{"sushi"},
		}))
		require.NoError(t, err)
		assert.Equal(t, int64(11), rec["id"])
		assert.Equal(t, "Blue Fin", rec["name"])
		assert.Equal(t, []string{"sushi"}, rec["tags"])
	})

	t.Run("postgres uses returning", func(t *testing.T) {
		m, mock := newRestaurantModel(t, "postgres")

		mock.ExpectQuery("INSERT INTO restaurants (name) VALUES ($1) RETURNING id").
			WithArgs("Blue Fin").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

		rec, err := m.Create(ctx, DataFrom(map[string]interface{}{"name": "Blue Fin"}))
		require.NoError(t, err)
		assert.Equal(t, int64(3), rec["id"])
	})

	t.Run("explicit key is kept", func(t *testing.T) {
		m, mock := newRestaurantModel(t, "mysql")

		mock.ExpectExec("INSERT INTO restaurants (id,name) VALUES (?,?)").
			WithArgs("r-1", "Blue Fin").
			WillReturnResult(sqlmock.NewResult(0, 1))

		rec, err := m.Create(ctx, DataFrom(map[string]interface{}{"id": "r-1", "name": "Blue Fin"}))
		require.NoError(t, err)
		assert.Equal(t, "r-1", rec["id"])
	})

	t.Run("unknown column never reaches the database", func(t *testing.T) {
		m, mock := newRestaurantModel(t, "mysql")

		_, err := m.Create(ctx, DataFrom(map[string]interface{}{"name": "x", "secret": 1}))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "secret", vErr.Field)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestModel_UpdateAndDestroy(t *testing.T) {
	ctx := context.Background()

	t.Run("update", func(t *testing.T) {
		m, mock := newRestaurantModel(t, "mysql")

		mock.ExpectExec("UPDATE restaurants SET status = ? WHERE id = ?").
			WithArgs("closed", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := m.Update(ctx, NewData().Set("status", "closed"), Eq("id", 1))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("destroy with list", func(t *testing.T) {
		m, mock := newRestaurantModel(t, "mysql")

		mock.ExpectExec("DELETE FROM restaurants WHERE id IN (?, ?)").
			WithArgs(1, 2).
			WillReturnResult(sqlmock.NewResult(0, 2))

		n, err := m.Destroy(ctx, NewWhere().Add("id", List(1, 2)))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("empty where is refused", func(t *testing.T) {
		m, mock := newRestaurantModel(t, "mysql")

		_, err := m.Update(ctx, NewData().Set("status", "closed"), nil)
		assert.True(t, IsGuardError(err))

		_, err = m.Destroy(ctx, NewWhere())
		assert.True(t, IsGuardError(err))

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure", func(t *testing.T) {
		m, mock := newRestaurantModel(t, "mysql")

		mock.ExpectExec("DELETE FROM restaurants WHERE id = ?").
			WithArgs(1).
			WillReturnError(errors.New("FOREIGN KEY constraint failed"))

		_, err := m.Destroy(ctx, Eq("id", 1))
		assert.ErrorIs(t, err, ErrForeignKey)
	})
}

func TestModel_Count(t *testing.T) {
	ctx := context.Background()
	m, mock := newRestaurantModel(t, "mysql")

	mock.ExpectQuery("SELECT COUNT(*) AS count FROM restaurants WHERE status = ?").
		WithArgs("open").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))
	mock.ExpectQuery("SELECT COUNT(DISTINCT restaurants.id) AS count FROM restaurants LEFT JOIN users AS owner ON owner.id = restaurants.ownerId WHERE owner.name = ?").
		WithArgs("Ada").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow([]byte("2")))

	n, err := m.Count(ctx, Eq("status", "open"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	n, err = m.CountSpec(ctx, QuerySpec{Where: Eq("ownerName", "Ada"), Include: []string{"owner"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestModel_WithExecutor(t *testing.T) {
	m, _ := newRestaurantModel(t, "mysql")
	pg, mock := newMockExecutor(t, "postgres")

	bound := m.WithExecutor(pg)
	assert.Same(t, pg, bound.Executor())
	assert.Same(t, m.Schema(), bound.Schema())
	assert.Equal(t, Postgres, bound.Builder().Dialect())
	assert.Equal(t, MySQL, m.Builder().Dialect())

	mock.ExpectExec("DELETE FROM restaurants WHERE id = $1").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := bound.Destroy(context.Background(), Eq("id", 1))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
