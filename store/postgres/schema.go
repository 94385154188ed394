package postgres

import (
	"context"
	"fmt"
)

// predictionSchema creates the table this module owns. The sales and
// product tables belong to the surrounding application and are assumed to
// exist.
const predictionSchema = `
	CREATE TABLE IF NOT EXISTS demand_predictions (
		id                 BIGSERIAL PRIMARY KEY,
		product_id         BIGINT NOT NULL,
		date               DATE NOT NULL,
		granularity        TEXT NOT NULL,
		predicted_quantity DOUBLE PRECISION NOT NULL,
		lower_bound        DOUBLE PRECISION NOT NULL,
		upper_bound        DOUBLE PRECISION NOT NULL,
		model_name         TEXT NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (product_id, date, granularity)
	);
	CREATE INDEX IF NOT EXISTS idx_demand_predictions_date
		ON demand_predictions (date);
`

// EnsureSchema creates the prediction table if it does not exist yet.
func EnsureSchema(ctx context.Context, db *DB) error {
	if _, err := db.ExecContext(ctx, predictionSchema); err != nil {
		return fmt.Errorf("creating prediction schema, %w", err)
	}
	return nil
}
