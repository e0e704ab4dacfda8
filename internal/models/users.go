package models

import "github.com/eleven-am/dishdb/pkg/orm"

// User roles
const (
	RoleCustomer = "customer"
	RoleOwner    = "owner"
	RoleCourier  = "courier"
	RoleAdmin    = "admin"
)

var UserSchema = &orm.Schema{
	Table:      "users",
	PrimaryKey: "id",
	Columns: []string{
		"id", "name", "email", "phone", "role", "avatarUrl", "createdAt", "updatedAt",
	},
	DefaultOrder: []orm.OrderTerm{orm.By("createdAt", orm.Desc)},
}

// Users is the user model
type Users struct {
	*orm.Model
}
