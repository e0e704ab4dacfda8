package models

import (
	"context"
	"fmt"

	"github.com/eleven-am/dishdb/pkg/orm"
)

var CategorySchema = &orm.Schema{
	Table:      "categories",
	PrimaryKey: "id",
	Columns: []string{
		"id", "restaurantId", "name", "description", "sortOrder", "isDefault", "createdAt",
	},
	DefaultOrder: []orm.OrderTerm{orm.By("sortOrder", orm.Asc)},
}

// Categories is the menu category model
type Categories struct {
	*orm.Model
}

// SetDefault marks categoryID as the default category of the restaurant.
// It runs two independent statements, clearing the old default and then
// setting the new one, so concurrent calls can interleave. Run it on a
// transaction-bound model when that matters.
func (c *Categories) SetDefault(ctx context.Context, restaurantID, categoryID interface{}) error {
	_, err := c.Update(ctx,
		orm.NewData().Set("isDefault", false),
		orm.NewWhere().Add("restaurantId", orm.Lit(restaurantID)).Add("isDefault", orm.Lit(true)),
	)
	if err != nil {
		return fmt.Errorf("clear default category: %w", err)
	}

	n, err := c.Update(ctx,
		orm.NewData().Set("isDefault", true),
		orm.NewWhere().Add("id", orm.Lit(categoryID)).Add("restaurantId", orm.Lit(restaurantID)),
	)
	if err != nil {
		return fmt.Errorf("set default category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %v: %w", categoryID, orm.ErrNotFound)
	}
	return nil
}
