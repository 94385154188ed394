package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/minimarket-io/demandcast/dataset"
)

// SalesSource reads the sales feed and product catalog. Implements
// dataset.SalesSource.
type SalesSource struct {
	db *DB
}

func NewSalesSource(db *DB) *SalesSource {
	return &SalesSource{db: db}
}

// observationQuery aggregates completed sale items to one row per
// (product, day). Cancelled and pending sales never reach the models.
const observationQuery = `
	SELECT
		p.id                  AS product_id,
		p.name                AS product_name,
		c.name                AS category,
		DATE(s.sale_date)     AS date,
		SUM(si.quantity)      AS quantity_sold,
		SUM(si.subtotal)      AS revenue,
		COUNT(DISTINCT s.id)  AS transactions
	FROM sale_items si
	JOIN sales s      ON s.id = si.sale_id
	JOIN products p   ON p.id = si.product_id
	JOIN categories c ON c.id = p.category_id
	WHERE s.status = 'COMPLETED'
	  AND s.sale_date >= $1
	GROUP BY p.id, p.name, c.name, DATE(s.sale_date)
	ORDER BY p.id, DATE(s.sale_date)
`

func (s *SalesSource) Observations(ctx context.Context, since time.Time) ([]dataset.Observation, error) {
	var obs []dataset.Observation
	if err := s.db.SelectContext(ctx, &obs, observationQuery, since); err != nil {
		return nil, fmt.Errorf("querying sales observations, %w", err)
	}
	return obs, nil
}

const productHistoryQuery = `
	SELECT
		p.id                  AS product_id,
		p.name                AS product_name,
		c.name                AS category,
		DATE(s.sale_date)     AS date,
		SUM(si.quantity)      AS quantity_sold,
		SUM(si.subtotal)      AS revenue,
		COUNT(DISTINCT s.id)  AS transactions
	FROM sale_items si
	JOIN sales s      ON s.id = si.sale_id
	JOIN products p   ON p.id = si.product_id
	JOIN categories c ON c.id = p.category_id
	WHERE s.status = 'COMPLETED'
	  AND si.product_id = $1
	  AND s.sale_date >= $2
	GROUP BY p.id, p.name, c.name, DATE(s.sale_date)
	ORDER BY DATE(s.sale_date)
`

func (s *SalesSource) ProductHistory(ctx context.Context, productID int64, since time.Time) ([]dataset.Observation, error) {
	var obs []dataset.Observation
	if err := s.db.SelectContext(ctx, &obs, productHistoryQuery, productID, since); err != nil {
		return nil, fmt.Errorf("querying history for product %d, %w", productID, err)
	}
	return obs, nil
}

const productQuery = `
	SELECT
		p.id              AS product_id,
		p.name            AS name,
		c.name            AS category,
		p.cost_price      AS cost_price,
		p.sale_price      AS sale_price,
		p.min_stock       AS min_stock,
		p.max_stock       AS max_stock,
		p.reorder_point   AS reorder_point,
		p.current_stock   AS current_stock,
		p.is_perishable   AS is_perishable,
		p.expiration_days AS expiration_days
	FROM products p
	JOIN categories c ON c.id = p.category_id
`

func (s *SalesSource) Product(ctx context.Context, productID int64) (dataset.ProductAttributes, error) {
	var attr dataset.ProductAttributes
	err := s.db.GetContext(ctx, &attr, productQuery+" WHERE p.id = $1", productID)
	if errors.Is(err, sql.ErrNoRows) {
		return dataset.ProductAttributes{}, fmt.Errorf("product %d, %w", productID, dataset.ErrProductNotFound)
	}
	if err != nil {
		return dataset.ProductAttributes{}, fmt.Errorf("querying product %d, %w", productID, err)
	}
	return attr, nil
}

func (s *SalesSource) Products(ctx context.Context) ([]dataset.ProductAttributes, error) {
	var attrs []dataset.ProductAttributes
	if err := s.db.SelectContext(ctx, &attrs, productQuery+" WHERE p.is_active ORDER BY p.id"); err != nil {
		return nil, fmt.Errorf("querying products, %w", err)
	}
	return attrs, nil
}

const topProductsQuery = `
	SELECT si.product_id
	FROM sale_items si
	JOIN sales s ON s.id = si.sale_id
	WHERE s.status = 'COMPLETED'
	  AND s.sale_date >= $1
	GROUP BY si.product_id
	ORDER BY SUM(si.quantity) DESC, si.product_id
	LIMIT $2
`

func (s *SalesSource) TopProductsBySales(ctx context.Context, n int, since time.Time) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, topProductsQuery, since, n); err != nil {
		return nil, fmt.Errorf("querying top products, %w", err)
	}
	return ids, nil
}
