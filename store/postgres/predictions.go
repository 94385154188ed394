package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/minimarket-io/demandcast/predictor"
)

// Granularity is the time grain a stored prediction covers.
type Granularity string

const GranularityDaily Granularity = "DAILY"

// PredictionStore persists forecast rows and pairs them later with
// observed actuals.
type PredictionStore struct {
	db *DB
}

func NewPredictionStore(db *DB) *PredictionStore {
	return &PredictionStore{db: db}
}

// SavePredictions upserts a forecast into demand_predictions. Re-running a
// forecast for the same product and dates overwrites the previous rows
// rather than duplicating them.
func (s *PredictionStore) SavePredictions(ctx context.Context, f *predictor.Forecast) error {
	const query = `
		INSERT INTO demand_predictions (
			product_id, date, granularity, predicted_quantity,
			lower_bound, upper_bound, model_name, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (product_id, date, granularity)
		DO UPDATE SET
			predicted_quantity = EXCLUDED.predicted_quantity,
			lower_bound = EXCLUDED.lower_bound,
			upper_bound = EXCLUDED.upper_bound,
			model_name = EXCLUDED.model_name,
			created_at = NOW()
	`
	return s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return fmt.Errorf("preparing prediction insert, %w", err)
		}
		defer stmt.Close()

		for _, p := range f.Predictions {
			_, err := stmt.ExecContext(ctx,
				p.ProductID,
				p.Date,
				GranularityDaily,
				p.Quantity,
				p.LowerBound,
				p.UpperBound,
				f.ModelName,
			)
			if err != nil {
				return fmt.Errorf("inserting prediction for product %d on %s, %w",
					p.ProductID, p.Date.Format("2006-01-02"), err)
			}
		}
		return nil
	})
}

// AccuracyRow pairs a stored prediction with the quantity actually sold on
// that day. ErrorPct is null when nothing was sold, since a percentage
// error against zero is undefined.
type AccuracyRow struct {
	ProductID int64           `db:"product_id"`
	Date      time.Time       `db:"date"`
	Predicted float64         `db:"predicted_quantity"`
	Actual    float64         `db:"actual_quantity"`
	AbsError  float64         `db:"abs_error"`
	ErrorPct  sql.NullFloat64 `db:"error_pct"`
}

const accuracyQuery = `
	SELECT
		dp.product_id,
		dp.date,
		dp.predicted_quantity,
		COALESCE(actual.quantity, 0) AS actual_quantity,
		ABS(dp.predicted_quantity - COALESCE(actual.quantity, 0)) AS abs_error,
		CASE
			WHEN COALESCE(actual.quantity, 0) > 0 THEN
				ABS(dp.predicted_quantity - actual.quantity) / actual.quantity * 100
		END AS error_pct
	FROM demand_predictions dp
	LEFT JOIN (
		SELECT si.product_id, DATE(s.sale_date) AS date, SUM(si.quantity) AS quantity
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.status = 'COMPLETED'
		GROUP BY si.product_id, DATE(s.sale_date)
	) actual ON actual.product_id = dp.product_id AND actual.date = dp.date
	WHERE dp.granularity = $1
	  AND dp.date >= $2
	  AND dp.date < $3
	ORDER BY dp.product_id, dp.date
`

// Accuracy returns prediction-vs-actual pairs for all stored daily
// predictions whose date falls in [from, to).
func (s *PredictionStore) Accuracy(ctx context.Context, from, to time.Time) ([]AccuracyRow, error) {
	var rows []AccuracyRow
	if err := s.db.SelectContext(ctx, &rows, accuracyQuery, GranularityDaily, from, to); err != nil {
		return nil, fmt.Errorf("querying prediction accuracy, %w", err)
	}
	return rows, nil
}
