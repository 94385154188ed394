// Package dataset turns raw per-sale observations into the dense
// per-product daily feature table the demand models train and predict on.
package dataset

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInsufficientData = errors.New("no sales observations available in the requested window")
	ErrProductNotFound  = errors.New("product not found")
)

// Observation is one aggregated sales fact: everything sold of one product
// on one calendar day. Immutable once extracted from the sales feed.
type Observation struct {
	ProductID    int64     `db:"product_id" json:"product_id"`
	ProductName  string    `db:"product_name" json:"product_name"`
	Category     string    `db:"category" json:"category"`
	Date         time.Time `db:"date" json:"date"`
	QuantitySold float64   `db:"quantity_sold" json:"quantity_sold"`
	Revenue      float64   `db:"revenue" json:"revenue"`
	Transactions float64   `db:"transactions" json:"transactions"`
}

// ProductAttributes is a read-only snapshot of the catalog facts for one
// product. Owned by the external product catalog.
type ProductAttributes struct {
	ProductID      int64   `db:"product_id" json:"product_id"`
	Name           string  `db:"name" json:"name"`
	Category       string  `db:"category" json:"category"`
	CostPrice      float64 `db:"cost_price" json:"cost_price"`
	SalePrice      float64 `db:"sale_price" json:"sale_price"`
	MinStock       float64 `db:"min_stock" json:"min_stock"`
	MaxStock       float64 `db:"max_stock" json:"max_stock"`
	ReorderPoint   float64 `db:"reorder_point" json:"reorder_point"`
	CurrentStock   float64 `db:"current_stock" json:"current_stock"`
	IsPerishable   bool    `db:"is_perishable" json:"is_perishable"`
	ExpirationDays float64 `db:"expiration_days" json:"expiration_days"`
}

// ProfitMargin returns the markup percentage over cost, 0 when the cost
// price is not positive.
func (p ProductAttributes) ProfitMargin() float64 {
	if p.CostPrice <= 0 {
		return 0
	}
	return (p.SalePrice - p.CostPrice) / p.CostPrice * 100.0
}

// SalesSource is the boundary to the sales/catalog storage. Implementations
// must return observations aggregated at daily granularity.
type SalesSource interface {
	// Observations returns all daily sales facts on or after since, ordered
	// by product id then date ascending.
	Observations(ctx context.Context, since time.Time) ([]Observation, error)

	// ProductHistory returns the daily sales facts for a single product on
	// or after since, date ascending. Days with no sales are absent.
	ProductHistory(ctx context.Context, productID int64, since time.Time) ([]Observation, error)

	// Product returns the attribute snapshot for one product, or
	// ErrProductNotFound.
	Product(ctx context.Context, productID int64) (ProductAttributes, error)

	// Products returns the attribute snapshots of all active products.
	Products(ctx context.Context) ([]ProductAttributes, error)

	// TopProductsBySales returns the ids of the n best-selling products on
	// or after since, by total quantity sold descending.
	TopProductsBySales(ctx context.Context, n int, since time.Time) ([]int64, error)
}

// Day truncates t to midnight UTC. All grid arithmetic operates on days.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
