package models

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/dishdb/pkg/orm"
)

func newMockRegistry(t *testing.T) (*Registry, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	reg, err := NewRegistry(orm.NewExecutor(sqlx.NewDb(db, "mysql"), nil))
	require.NoError(t, err)
	return reg, mock
}

// columnList renders schema columns the way a select lists them
func columnList(schema *orm.Schema, qualified bool) string {
	cols := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		if qualified {
			cols[i] = schema.Table + "." + c + " AS " + c
		} else {
			cols[i] = c
		}
	}
	return strings.Join(cols, ", ")
}

func TestSchemas(t *testing.T) {
	schemas := Schemas()
	require.Len(t, schemas, 8)

	for name, schema := range schemas {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, name, schema.Table)
			assert.NoError(t, schema.Validate())
		})
	}

	assert.Equal(t, []string{
		"addresses", "categories", "menu_items", "order_items", "orders", "restaurants", "reviews", "users",
	}, SchemaNames())
}

func TestRegistry_Model(t *testing.T) {
	reg, _ := newMockRegistry(t)

	for _, name := range SchemaNames() {
		m, ok := reg.Model(name)
		require.True(t, ok, name)
		assert.Equal(t, name, m.Schema().Table)
		assert.Same(t, reg.Executor(), m.Executor())
	}

	_, ok := reg.Model("payments")
	assert.False(t, ok)
}

func TestCategories_SetDefault(t *testing.T) {
	ctx := context.Background()

	t.Run("clears then sets", func(t *testing.T) {
		reg, mock := newMockRegistry(t)

		mock.ExpectExec("UPDATE categories SET isDefault = ? WHERE restaurantId = ? AND isDefault = ?").
			WithArgs(false, 1, true).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE categories SET isDefault = ? WHERE id = ? AND restaurantId = ?").
			WithArgs(true, 5, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, reg.Categories.SetDefault(ctx, 1, 5))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown category", func(t *testing.T) {
		reg, mock := newMockRegistry(t)

		mock.ExpectExec("UPDATE categories SET isDefault = ? WHERE restaurantId = ? AND isDefault = ?").
			WithArgs(false, 1, true).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("UPDATE categories SET isDefault = ? WHERE id = ? AND restaurantId = ?").
			WithArgs(true, 99, 1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := reg.Categories.SetDefault(ctx, 1, 99)
		assert.ErrorIs(t, err, orm.ErrNotFound)
	})

	t.Run("inside a transaction", func(t *testing.T) {
		reg, mock := newMockRegistry(t)

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE categories SET isDefault = ? WHERE restaurantId = ? AND isDefault = ?").
			WithArgs(false, 1, true).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE categories SET isDefault = ? WHERE id = ? AND restaurantId = ?").
			WithArgs(true, 5, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := reg.WithTransaction(ctx, func(tx *Registry) error {
			assert.True(t, tx.Executor().IsTransaction())
			return tx.Categories.SetDefault(ctx, 1, 5)
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAddresses_SetDefault(t *testing.T) {
	reg, mock := newMockRegistry(t)

	mock.ExpectExec("UPDATE addresses SET isDefault = ? WHERE userId = ? AND isDefault = ?").
		WithArgs(false, "u1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE addresses SET isDefault = ? WHERE id = ? AND userId = ?").
		WithArgs(true, "a2", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, reg.Addresses.SetDefault(context.Background(), "u1", "a2"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNearbySpec(t *testing.T) {
	b := orm.NewStatementBuilder(RestaurantSchema, orm.MySQL)

	spec := NearbySpec(orm.MySQL, 51.5, -0.12, 3, orm.QuerySpec{Where: orm.Eq("cuisine", "thai"), Limit: orm.Int(10)})
	stmt, err := b.BuildSelect(spec)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT "+columnList(RestaurantSchema, false)+", ("+spec.Computed[0].SQL+") AS distance "+
			"FROM restaurants WHERE cuisine = ? GROUP BY id HAVING distance <= ? ORDER BY distance ASC LIMIT ? OFFSET ?",
		stmt.SQL)
	assert.Equal(t, []interface{}{earthRadiusKm, 51.5, -0.12, 51.5, "thai", 3.0, 10, 0}, stmt.Args)

	ordered := NearbySpec(orm.MySQL, 0, 0, 1, orm.QuerySpec{Order: []orm.OrderTerm{orm.By("rating", orm.Desc)}})
	assert.Equal(t, []orm.OrderTerm{orm.By("rating", orm.Desc)}, ordered.Order)

	assert.Contains(t, spec.Computed[0].SQL, "ACOS(GREATEST(-1, LEAST(1, ")
	sqlite := NearbySpec(orm.SQLite, 51.5, -0.12, 3, orm.QuerySpec{})
	assert.Contains(t, sqlite.Computed[0].SQL, "ACOS(MAX(-1, MIN(1, ")
	assert.NotContains(t, sqlite.Computed[0].SQL, "LEAST")
}

func TestRestaurants_Nearby(t *testing.T) {
	reg, mock := newMockRegistry(t)

	spec := NearbySpec(orm.MySQL, 51.5, -0.12, 3, orm.QuerySpec{})
	base := orm.Eq("cuisine", "thai")

	mock.ExpectQuery("SELECT "+columnList(RestaurantSchema, false)+", ("+spec.Computed[0].SQL+") AS distance "+
		"FROM restaurants WHERE cuisine = ? AND status = ? GROUP BY id HAVING distance <= ? ORDER BY distance ASC").
		WithArgs(earthRadiusKm, 51.5, -0.12, 51.5, "thai", "open", 3.0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "openingHours", "distance"}).
			AddRow(int64(1), "Thai Garden", `{"mon":"11-22"}`, 0.8))

	records, err := reg.Restaurants.Nearby(context.Background(), 51.5, -0.12, 3, orm.QuerySpec{Where: base})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0.8, records[0]["distance"])
	assert.Equal(t, map[string]interface{}{"mon": "11-22"}, records[0]["openingHours"])

	assert.Equal(t, 1, base.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReviews_RatingSummary(t *testing.T) {
	ctx := context.Background()
	query := "SELECT restaurantId, (COUNT(*)) AS reviewCount, (AVG(rating)) AS averageRating " +
		"FROM reviews WHERE restaurantId = ? GROUP BY restaurantId ORDER BY restaurantId ASC"

	t.Run("aggregates", func(t *testing.T) {
		reg, mock := newMockRegistry(t)

		mock.ExpectQuery(query).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"restaurantId", "reviewCount", "averageRating"}).
				AddRow(int64(7), int64(3), []byte("4.5000")))

		summary, err := reg.Reviews.RatingSummary(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, RatingSummary{RestaurantID: 7, Count: 3, Average: 4.5}, summary)
	})

	t.Run("no reviews", func(t *testing.T) {
		reg, mock := newMockRegistry(t)

		mock.ExpectQuery(query).
			WithArgs(8).
			WillReturnRows(sqlmock.NewRows([]string{"restaurantId", "reviewCount", "averageRating"}))

		summary, err := reg.Reviews.RatingSummary(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, RatingSummary{RestaurantID: 8}, summary)
	})

	t.Run("bad aggregate", func(t *testing.T) {
		reg, mock := newMockRegistry(t)

		mock.ExpectQuery(query).
			WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"restaurantId", "reviewCount", "averageRating"}).
				AddRow(int64(9), "many", nil))

		_, err := reg.Reviews.RatingSummary(ctx, 9)
		assert.ErrorContains(t, err, "review count")
	})
}

func TestMenuItems_ListByRestaurant(t *testing.T) {
	reg, mock := newMockRegistry(t)

	mock.ExpectQuery("SELECT "+columnList(MenuItemSchema, true)+", categories.name AS categoryName "+
		"FROM menu_items LEFT JOIN categories ON categories.id = menu_items.categoryId "+
		"WHERE menu_items.restaurantId = ? AND menu_items.isAvailable = ? AND menu_items.name LIKE ? "+
		"ORDER BY menu_items.name ASC LIMIT ? OFFSET ?").
		WithArgs(1, true, "%curry%", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "tags", "categoryName"}).
			AddRow(int64(4), "Green Curry", `["spicy"]`, "Mains"))

	records, err := reg.MenuItems.ListByRestaurant(context.Background(), 1, "curry", orm.QuerySpec{
		Include: []string{"category"},
		Limit:   orm.Int(20),
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Mains", records[0]["categoryName"])
	assert.Equal(t, []interface{}{"spicy"}, records[0]["tags"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOrders_ListForCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("filters by status", func(t *testing.T) {
		reg, mock := newMockRegistry(t)

		mock.ExpectQuery("SELECT "+columnList(OrderSchema, true)+", restaurants.name AS restaurantName "+
			"FROM orders INNER JOIN restaurants ON restaurants.id = orders.restaurantId "+
			"WHERE orders.customerId = ? AND orders.status = ? "+
			"ORDER BY orders.createdAt DESC LIMIT ? OFFSET ?").
			WithArgs("c1", OrderDelivered, 5, 10).
			WillReturnRows(sqlmock.NewRows([]string{"id", "status", "metadata", "restaurantName"}).
				AddRow(int64(1), OrderDelivered, nil, "Thai Garden"))

		records, err := reg.Orders.ListForCustomer(ctx, "c1", OrderDelivered, orm.Int(5), orm.Int(10))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Thai Garden", records[0]["restaurantName"])
		assert.Nil(t, records[0]["metadata"])
	})

	t.Run("unknown status", func(t *testing.T) {
		reg, mock := newMockRegistry(t)

		_, err := reg.Orders.ListForCustomer(ctx, "c1", "lost", nil, nil)
		assert.True(t, orm.IsGuardError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrders_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	reg, mock := newMockRegistry(t)

	mock.ExpectExec("UPDATE orders SET status = ? WHERE id = ?").
		WithArgs(OrderPreparing, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders SET status = ? WHERE id = ?").
		WithArgs(OrderPreparing, 404).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, reg.Orders.UpdateStatus(ctx, 3, OrderPreparing))
	assert.ErrorIs(t, reg.Orders.UpdateStatus(ctx, 404, OrderPreparing), orm.ErrNotFound)
	assert.True(t, orm.IsGuardError(reg.Orders.UpdateStatus(ctx, 3, "teleported")))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidOrderStatus(t *testing.T) {
	for _, s := range []string{OrderPending, OrderConfirmed, OrderPreparing, OrderReady, OrderDelivering, OrderDelivered, OrderCancelled} {
		assert.True(t, ValidOrderStatus(s), s)
	}
	assert.False(t, ValidOrderStatus(""))
	assert.False(t, ValidOrderStatus("Pending"))
}

func TestAppendUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, appendUnique([]string{"a"}, "b"))
	assert.Equal(t, []string{"a"}, appendUnique([]string{"a"}, "a"))
	assert.Equal(t, []string{"a"}, appendUnique(nil, "a"))
}
