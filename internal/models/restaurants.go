package models

import (
	"context"

	"github.com/eleven-am/dishdb/pkg/orm"
)

const earthRadiusKm = 6371.0

var RestaurantSchema = &orm.Schema{
	Table:      "restaurants",
	PrimaryKey: "id",
	Columns: []string{
		"id", "ownerId", "name", "description", "cuisine", "address", "latitude", "longitude",
		"phone", "rating", "status", "deliveryFee", "minimumOrder", "openingHours",
		"specialHolidays", "createdAt", "updatedAt",
	},
	JSONColumns: map[string]orm.JSONShape{
		"openingHours":    orm.JSONObject,
		"specialHolidays": orm.JSONArray,
	},
	Joins: []orm.Join{
		{
			Name:  "owner",
			Type:  orm.LeftJoin,
			Table: "users",
			Alias: "owner",
			On:    "owner.id = restaurants.ownerId",
			Columns: []orm.JoinColumn{
				{Alias: "ownerName", Source: "owner.name"},
				{Alias: "ownerEmail", Source: "owner.email"},
			},
			Optional: true,
		},
	},
	DefaultOrder: []orm.OrderTerm{orm.By("createdAt", orm.Desc)},
}

// Restaurants is the restaurant model
type Restaurants struct {
	*orm.Model
}

// NearbySpec builds the read behind Nearby: a great-circle distance
// column, restaurants grouped by id, and a HAVING bound on the distance.
// Conditions, includes and pagination in base are kept. The ACOS argument
// is clamped to [-1, 1] with the dialect's scalar min/max.
func NearbySpec(dialect orm.Dialect, lat, lng, radiusKm float64, base orm.QuerySpec) orm.QuerySpec {
	cosine := "COS(RADIANS(?)) * COS(RADIANS(restaurants.latitude)) * " +
		"COS(RADIANS(restaurants.longitude) - RADIANS(?)) + " +
		"SIN(RADIANS(?)) * SIN(RADIANS(restaurants.latitude))"

	spec := base
	spec.Computed = append(spec.Computed, orm.Computed{
		Alias: "distance",
		SQL:   "? * ACOS(" + clampUnit(dialect, cosine) + ")",
		Args:  []interface{}{earthRadiusKm, lat, lng, lat},
	})
	spec.GroupBy = []string{"id"}
	spec.Having = orm.NewWhere().Add("distance", orm.Op(orm.OpLte, radiusKm))
	if len(spec.Order) == 0 && spec.RawOrder == "" {
		spec.Order = []orm.OrderTerm{orm.By("distance", orm.Asc)}
	}
	return spec
}

// clampUnit bounds expr to [-1, 1]. SQLite has no LEAST/GREATEST but its
// multi-argument MIN/MAX are scalar.
func clampUnit(dialect orm.Dialect, expr string) string {
	if dialect == orm.SQLite {
		return "MAX(-1, MIN(1, " + expr + "))"
	}
	return "GREATEST(-1, LEAST(1, " + expr + "))"
}

// Nearby returns open restaurants within radiusKm of the point, closest first
func (r *Restaurants) Nearby(ctx context.Context, lat, lng, radiusKm float64, base orm.QuerySpec) ([]orm.Record, error) {
	base.Where = base.Where.Clone().Add("status", orm.Lit("open"))
	return r.FindAll(ctx, NearbySpec(r.Builder().Dialect(), lat, lng, radiusKm, base))
}
