package models

import (
	"context"
	"fmt"
	"sort"

	"github.com/eleven-am/dishdb/pkg/orm"
)

// Registry groups the entity models over one executor
type Registry struct {
	executor *orm.Executor

	Users       *Users
	Restaurants *Restaurants
	Categories  *Categories
	MenuItems   *MenuItems
	Addresses   *Addresses
	Orders      *Orders
	OrderItems  *OrderItems
	Reviews     *Reviews
}

// Schemas returns every entity schema keyed by table name
func Schemas() map[string]*orm.Schema {
	return map[string]*orm.Schema{
		UserSchema.Table:       UserSchema,
		RestaurantSchema.Table: RestaurantSchema,
		CategorySchema.Table:   CategorySchema,
		MenuItemSchema.Table:   MenuItemSchema,
		AddressSchema.Table:    AddressSchema,
		OrderSchema.Table:      OrderSchema,
		OrderItemSchema.Table:  OrderItemSchema,
		ReviewSchema.Table:     ReviewSchema,
	}
}

// SchemaNames returns the table names in sorted order
func SchemaNames() []string {
	schemas := Schemas()
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewRegistry binds every model to executor, validating each schema
func NewRegistry(executor *orm.Executor) (*Registry, error) {
	models := make(map[string]*orm.Model, 8)
	for name, schema := range Schemas() {
		m, err := orm.NewModel(schema, executor)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize %s model: %w", name, err)
		}
		models[name] = m
	}

	return &Registry{
		executor:    executor,
		Users:       &Users{Model: models[UserSchema.Table]},
		Restaurants: &Restaurants{Model: models[RestaurantSchema.Table]},
		Categories:  &Categories{Model: models[CategorySchema.Table]},
		MenuItems:   &MenuItems{Model: models[MenuItemSchema.Table]},
		Addresses:   &Addresses{Model: models[AddressSchema.Table]},
		Orders:      &Orders{Model: models[OrderSchema.Table]},
		OrderItems:  &OrderItems{Model: models[OrderItemSchema.Table]},
		Reviews:     &Reviews{Model: models[ReviewSchema.Table]},
	}, nil
}

// Executor returns the executor the registry runs on
func (r *Registry) Executor() *orm.Executor {
	return r.executor
}

// Model returns the generic model for a table name
func (r *Registry) Model(table string) (*orm.Model, bool) {
	switch table {
	case UserSchema.Table:
		return r.Users.Model, true
	case RestaurantSchema.Table:
		return r.Restaurants.Model, true
	case CategorySchema.Table:
		return r.Categories.Model, true
	case MenuItemSchema.Table:
		return r.MenuItems.Model, true
	case AddressSchema.Table:
		return r.Addresses.Model, true
	case OrderSchema.Table:
		return r.Orders.Model, true
	case OrderItemSchema.Table:
		return r.OrderItems.Model, true
	case ReviewSchema.Table:
		return r.Reviews.Model, true
	default:
		return nil, false
	}
}

func (r *Registry) withExecutor(ex *orm.Executor) *Registry {
	return &Registry{
		executor:    ex,
		Users:       &Users{Model: r.Users.WithExecutor(ex)},
		Restaurants: &Restaurants{Model: r.Restaurants.WithExecutor(ex)},
		Categories:  &Categories{Model: r.Categories.WithExecutor(ex)},
		MenuItems:   &MenuItems{Model: r.MenuItems.WithExecutor(ex)},
		Addresses:   &Addresses{Model: r.Addresses.WithExecutor(ex)},
		Orders:      &Orders{Model: r.Orders.WithExecutor(ex)},
		OrderItems:  &OrderItems{Model: r.OrderItems.WithExecutor(ex)},
		Reviews:     &Reviews{Model: r.Reviews.WithExecutor(ex)},
	}
}

// WithTransaction executes fn with a registry whose models all share one
// transaction. Any error from fn rolls the transaction back.
func (r *Registry) WithTransaction(ctx context.Context, fn func(*Registry) error) error {
	return r.WithTransactionOptions(ctx, nil, fn)
}

// WithTransactionOptions is WithTransaction with explicit options
func (r *Registry) WithTransactionOptions(ctx context.Context, opts *orm.TransactionOptions, fn func(*Registry) error) error {
	return r.executor.TransactionWithOptions(ctx, opts, func(tx *orm.Executor) error {
		return fn(r.withExecutor(tx))
	})
}

// PlaceOrder creates an order and its lines atomically. Each line is
// written with the new order's id as orderId; the caller's items are not
// modified.
func (r *Registry) PlaceOrder(ctx context.Context, order *orm.Data, items []*orm.Data) (orm.Record, error) {
	if len(items) == 0 {
		return nil, &orm.ValidationError{Op: "create", Table: OrderSchema.Table, Field: "items", Message: "an order needs at least one item"}
	}

	var created orm.Record
	err := r.WithTransaction(ctx, func(tx *Registry) error {
		rec, err := tx.Orders.Create(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		orderID, ok := rec[OrderSchema.PrimaryKey]
		if !ok {
			return fmt.Errorf("create order: driver returned no id")
		}

		for i, item := range items {
			if _, err := tx.OrderItems.Create(ctx, item.Clone().Set("orderId", orderID)); err != nil {
				return fmt.Errorf("create order item %d: %w", i, err)
			}
		}

		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
