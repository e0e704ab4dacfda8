package models

import (
	"context"
	"fmt"

	"github.com/eleven-am/dishdb/pkg/orm"
)

// Order statuses in lifecycle order
const (
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderPreparing  = "preparing"
	OrderReady      = "ready"
	OrderDelivering = "delivering"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

var orderStatuses = map[string]bool{
	OrderPending:    true,
	OrderConfirmed:  true,
	OrderPreparing:  true,
	OrderReady:      true,
	OrderDelivering: true,
	OrderDelivered:  true,
	OrderCancelled:  true,
}

var OrderSchema = &orm.Schema{
	Table:      "orders",
	PrimaryKey: "id",
	Columns: []string{
		"id", "customerId", "restaurantId", "addressId", "status", "subtotal", "deliveryFee",
		"total", "paymentStatus", "notes", "metadata", "createdAt", "updatedAt",
	},
	JSONColumns: map[string]orm.JSONShape{
		"metadata": orm.JSONObject,
	},
	Joins: []orm.Join{
		{
			Name:  "customer",
			Type:  orm.InnerJoin,
			Table: "users",
			Alias: "customer",
			On:    "customer.id = orders.customerId",
			Columns: []orm.JoinColumn{
				{Alias: "customerName", Source: "customer.name"},
				{Alias: "customerPhone", Source: "customer.phone"},
			},
			Optional: true,
		},
		{
			Name:  "restaurant",
			Type:  orm.InnerJoin,
			Table: "restaurants",
			On:    "restaurants.id = orders.restaurantId",
			Columns: []orm.JoinColumn{
				{Alias: "restaurantName", Source: "restaurants.name"},
			},
			Optional: true,
		},
	},
	DefaultOrder: []orm.OrderTerm{orm.By("createdAt", orm.Desc)},
}

var OrderItemSchema = &orm.Schema{
	Table:      "order_items",
	PrimaryKey: "id",
	Columns: []string{
		"id", "orderId", "menuItemId", "quantity", "unitPrice", "options", "notes",
	},
	JSONColumns: map[string]orm.JSONShape{
		"options": orm.JSONArray,
	},
	Joins: []orm.Join{
		{
			Name:  "menuItem",
			Type:  orm.LeftJoin,
			Table: "menu_items",
			On:    "menu_items.id = order_items.menuItemId",
			Columns: []orm.JoinColumn{
				{Alias: "itemName", Source: "menu_items.name"},
			},
			Optional: true,
		},
	},
	DefaultOrder: []orm.OrderTerm{orm.By("id", orm.Asc)},
}

// Orders is the order model
type Orders struct {
	*orm.Model
}

// OrderItems is the order line model
type OrderItems struct {
	*orm.Model
}

// ValidOrderStatus reports whether status is a known order status
func ValidOrderStatus(status string) bool {
	return orderStatuses[status]
}

// ListForCustomer returns a customer's orders, newest first, with the
// restaurant name attached. An empty status lists every status.
func (o *Orders) ListForCustomer(ctx context.Context, customerID interface{}, status string, limit, offset *int) ([]orm.Record, error) {
	where := orm.NewWhere().Add("customerId", orm.Lit(customerID))
	if status != "" {
		if !ValidOrderStatus(status) {
			return nil, &orm.ValidationError{Op: "find", Table: OrderSchema.Table, Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
		}
		where.Add("status", orm.Lit(status))
	}

	return o.FindAll(ctx, orm.QuerySpec{
		Where:   where,
		Order:   []orm.OrderTerm{orm.By("createdAt", orm.Desc)},
		Limit:   limit,
		Offset:  offset,
		Include: []string{"restaurant"},
	})
}

// UpdateStatus moves an order to status
func (o *Orders) UpdateStatus(ctx context.Context, id interface{}, status string) error {
	if !ValidOrderStatus(status) {
		return &orm.ValidationError{Op: "update", Table: OrderSchema.Table, Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}

	n, err := o.Update(ctx, orm.NewData().Set("status", status), orm.Eq("id", id))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %v: %w", id, orm.ErrNotFound)
	}
	return nil
}
