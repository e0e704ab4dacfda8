package models

import (
	"context"
	"fmt"

	"github.com/eleven-am/dishdb/pkg/orm"
)

var AddressSchema = &orm.Schema{
	Table:      "addresses",
	PrimaryKey: "id",
	Columns: []string{
		"id", "userId", "label", "line1", "line2", "city", "postcode",
		"latitude", "longitude", "isDefault", "createdAt",
	},
	DefaultOrder: []orm.OrderTerm{orm.By("isDefault", orm.Desc), orm.By("createdAt", orm.Desc)},
}

// Addresses is the delivery address model
type Addresses struct {
	*orm.Model
}

// SetDefault makes addressID the user's default address. Like
// Categories.SetDefault it issues two separate updates and is not atomic
// outside a transaction.
func (a *Addresses) SetDefault(ctx context.Context, userID, addressID interface{}) error {
	_, err := a.Update(ctx,
		orm.NewData().Set("isDefault", false),
		orm.NewWhere().Add("userId", orm.Lit(userID)).Add("isDefault", orm.Lit(true)),
	)
	if err != nil {
		return fmt.Errorf("clear default address: %w", err)
	}

	n, err := a.Update(ctx,
		orm.NewData().Set("isDefault", true),
		orm.NewWhere().Add("id", orm.Lit(addressID)).Add("userId", orm.Lit(userID)),
	)
	if err != nil {
		return fmt.Errorf("set default address: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("address %v: %w", addressID, orm.ErrNotFound)
	}
	return nil
}
