package models

import (
	"context"

	"github.com/eleven-am/dishdb/pkg/orm"
)

var MenuItemSchema = &orm.Schema{
	Table:      "menu_items",
	PrimaryKey: "id",
	Columns: []string{
		"id", "restaurantId", "categoryId", "name", "description", "price", "imageUrl",
		"isAvailable", "options", "tags", "createdAt", "updatedAt",
	},
	JSONColumns: map[string]orm.JSONShape{
		"options": orm.JSONArray,
		"tags":    orm.JSONArray,
	},
	Joins: []orm.Join{
		{
			Name:  "restaurant",
			Type:  orm.InnerJoin,
			Table: "restaurants",
			On:    "restaurants.id = menu_items.restaurantId",
			Columns: []orm.JoinColumn{
				{Alias: "restaurantName", Source: "restaurants.name"},
			},
			Optional: true,
		},
		{
			Name:  "category",
			Type:  orm.LeftJoin,
			Table: "categories",
			On:    "categories.id = menu_items.categoryId",
			Columns: []orm.JoinColumn{
				{Alias: "categoryName", Source: "categories.name"},
			},
			Optional: true,
		},
	},
	DefaultOrder: []orm.OrderTerm{orm.By("name", orm.Asc)},
}

// MenuItems is the menu item model
type MenuItems struct {
	*orm.Model
}

// ListByRestaurant returns the available items of a restaurant with their
// category names, optionally filtered by a name fragment. Conditions in
// spec.Where are kept.
func (m *MenuItems) ListByRestaurant(ctx context.Context, restaurantID interface{}, search string, spec orm.QuerySpec) ([]orm.Record, error) {
	where := spec.Where.Clone().
		Add("restaurantId", orm.Lit(restaurantID)).
		Add("isAvailable", orm.Lit(true))
	if search != "" {
		where.Add("name", orm.Op(orm.OpLike, search))
	}

	spec.Where = where
	spec.Include = appendUnique(spec.Include, "category")
	return m.FindAll(ctx, spec)
}
