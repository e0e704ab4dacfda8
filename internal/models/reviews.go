package models

import (
	"context"
	"fmt"
	"strconv"

	"github.com/eleven-am/dishdb/pkg/orm"
)

var ReviewSchema = &orm.Schema{
	Table:      "reviews",
	PrimaryKey: "id",
	Columns: []string{
		"id", "orderId", "customerId", "restaurantId", "rating", "comment", "createdAt",
	},
	Joins: []orm.Join{
		{
			Name:  "customer",
			Type:  orm.LeftJoin,
			Table: "users",
			Alias: "customer",
			On:    "customer.id = reviews.customerId",
			Columns: []orm.JoinColumn{
				{Alias: "customerName", Source: "customer.name"},
			},
			Optional: true,
		},
	},
	DefaultOrder: []orm.OrderTerm{orm.By("createdAt", orm.Desc)},
}

// Reviews is the restaurant review model
type Reviews struct {
	*orm.Model
}

// RatingSummary aggregates the reviews of one restaurant
type RatingSummary struct {
	RestaurantID interface{}
	Count        int64
	Average      float64
}

// RatingSummarySpec is the grouped read behind Reviews.RatingSummary
func RatingSummarySpec(restaurantID interface{}) orm.QuerySpec {
	return orm.QuerySpec{
		Where:   orm.Eq("restaurantId", restaurantID),
		Columns: []string{"restaurantId"},
		Computed: []orm.Computed{
			{Alias: "reviewCount", SQL: "COUNT(*)"},
			{Alias: "averageRating", SQL: "AVG(rating)"},
		},
		GroupBy: []string{"restaurantId"},
		Order:   []orm.OrderTerm{orm.By("restaurantId", orm.Asc)},
	}
}

// RatingSummary returns the review count and average rating of a
// restaurant. A restaurant without reviews has a zero summary.
func (r *Reviews) RatingSummary(ctx context.Context, restaurantID interface{}) (RatingSummary, error) {
	summary := RatingSummary{RestaurantID: restaurantID}

	records, err := r.FindAll(ctx, RatingSummarySpec(restaurantID))
	if err != nil {
		return summary, err
	}
	if len(records) == 0 {
		return summary, nil
	}

	rec := records[0]
	if summary.Count, err = toInt64(rec["reviewCount"]); err != nil {
		return summary, fmt.Errorf("review count: %w", err)
	}
	if summary.Average, err = toFloat64(rec["averageRating"]); err != nil {
		return summary, fmt.Errorf("average rating: %w", err)
	}
	return summary, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}
