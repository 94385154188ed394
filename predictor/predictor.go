// Package predictor runs a persisted model bundle against freshly
// reconstructed features to produce per-product demand forecasts and
// reorder recommendations.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/minimarket-io/demandcast/artifact"
	"github.com/minimarket-io/demandcast/dataset"
	"github.com/minimarket-io/demandcast/models"
	"github.com/minimarket-io/demandcast/stats"
)

var ErrModelNotLoaded = errors.New("no model bundle loaded")

const (
	// historyDays is how far back actual sales seed the series features.
	historyDays = 90

	// bandZ is the multiplier on the prediction spread for the shared
	// confidence band.
	bandZ = 1.96
)

// Prediction is the forecast for one product on one future day.
type Prediction struct {
	ProductID  int64     `json:"product_id"`
	Date       time.Time `json:"date"`
	Quantity   float64   `json:"quantity"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
}

// Forecast is a full horizon of daily predictions for one product.
type Forecast struct {
	ProductID   int64        `json:"product_id"`
	ProductName string       `json:"product_name"`
	ModelName   models.Kind  `json:"model_name"`
	Start       time.Time    `json:"start"`
	Predictions []Prediction `json:"predictions"`
}

// TotalDemand sums the predicted quantities over the horizon.
func (f *Forecast) TotalDemand() float64 {
	var total float64
	for _, p := range f.Predictions {
		total += p.Quantity
	}
	return total
}

// AvgDaily is the mean predicted daily quantity over the horizon.
func (f *Forecast) AvgDaily() float64 {
	if len(f.Predictions) == 0 {
		return 0
	}
	return f.TotalDemand() / float64(len(f.Predictions))
}

// MaxDaily is the largest predicted daily quantity over the horizon.
func (f *Forecast) MaxDaily() float64 {
	var max float64
	for _, p := range f.Predictions {
		if p.Quantity > max {
			max = p.Quantity
		}
	}
	return max
}

// Predictor reconstructs model features for future dates and runs a loaded
// bundle against them.
type Predictor struct {
	src     dataset.SalesSource
	builder *dataset.Builder
	log     zerolog.Logger

	bundle *artifact.Bundle
	pipe   *models.Pipeline

	nowFunc func() time.Time
}

func New(src dataset.SalesSource, cfg dataset.Config, log zerolog.Logger) *Predictor {
	return &Predictor{
		src:     src,
		builder: dataset.NewBuilder(cfg),
		log:     log,
		nowFunc: time.Now,
	}
}

// LoadBundle restores the fitted pipeline from a persisted bundle and uses
// it for all subsequent forecasts.
func (p *Predictor) LoadBundle(b *artifact.Bundle) error {
	pipe, err := b.Restore()
	if err != nil {
		return fmt.Errorf("restoring pipeline from bundle, %w", err)
	}
	p.bundle = b
	p.pipe = pipe
	p.log.Info().
		Str("model", string(b.ModelName)).
		Time("trained_at", b.TrainedAt).
		Msg("model bundle loaded")
	return nil
}

// Bundle returns the currently loaded bundle, or nil.
func (p *Predictor) Bundle() *artifact.Bundle {
	return p.bundle
}

// Forecast predicts daily demand for one product over horizon days
// starting at start. The series features are seeded from the product's
// actual sales over the trailing 90 days and held constant across the
// horizon; only the calendar features vary per day. Predictions are
// floored at 0 and carry a shared confidence band of ±1.96 times the
// spread of the horizon's predictions.
func (p *Predictor) Forecast(ctx context.Context, productID int64, start time.Time, horizon int) (*Forecast, error) {
	if p.pipe == nil {
		return nil, ErrModelNotLoaded
	}
	if horizon < 1 {
		return nil, fmt.Errorf("horizon must be at least 1 day, got %d", horizon)
	}

	attr, err := p.src.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	since := dataset.Day(p.nowFunc()).AddDate(0, 0, -historyDays)
	obs, err := p.src.ProductHistory(ctx, productID, since)
	if err != nil {
		return nil, fmt.Errorf("loading history for product %d, %w", productID, err)
	}
	history := make([]float64, len(obs))
	for i, o := range obs {
		history[i] = o.QuantitySold
	}

	seed := p.builder.SeedHorizon(history, attr, attr.Category)

	names := p.bundle.FeatureNames
	start = dataset.Day(start)
	data := make([]float64, 0, horizon*len(names))
	missing := map[string]struct{}{}
	for i := 0; i < horizon; i++ {
		fm := p.builder.HorizonFeatures(seed, start.AddDate(0, 0, i))
		for _, name := range names {
			v, ok := fm[name]
			if !ok {
				missing[name] = struct{}{}
			}
			data = append(data, v)
		}
	}
	if len(missing) > 0 {
		absent := make([]string, 0, len(missing))
		for name := range missing {
			absent = append(absent, name)
		}
		sort.Strings(absent)
		p.log.Warn().
			Int64("product_id", productID).
			Strs("features", absent).
			Msg("required features unavailable at predict time, filled with zero")
	}

	raw, err := p.pipe.Predict(mat.NewDense(horizon, len(names), data))
	if err != nil {
		return nil, fmt.Errorf("predicting product %d, %w", productID, err)
	}
	for i, v := range raw {
		if v < 0 {
			raw[i] = 0
		}
	}

	band := bandZ * stats.PopStdDev(raw)
	preds := make([]Prediction, horizon)
	for i, v := range raw {
		lower := v - band
		if lower < 0 {
			lower = 0
		}
		preds[i] = Prediction{
			ProductID:  productID,
			Date:       start.AddDate(0, 0, i),
			Quantity:   v,
			LowerBound: lower,
			UpperBound: v + band,
		}
	}

	return &Forecast{
		ProductID:   productID,
		ProductName: attr.Name,
		ModelName:   p.bundle.ModelName,
		Start:       start,
		Predictions: preds,
	}, nil
}

// BatchResult pairs a product id with either its forecast or the error
// that prevented one.
type BatchResult struct {
	ProductID int64
	Forecast  *Forecast
	Err       error
}

// ForecastBatch forecasts every product id, continuing past per-product
// failures. Results come back in the order of ids.
func (p *Predictor) ForecastBatch(ctx context.Context, productIDs []int64, start time.Time, horizon int) ([]BatchResult, error) {
	if p.pipe == nil {
		return nil, ErrModelNotLoaded
	}

	out := make([]BatchResult, len(productIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range productIDs {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := p.Forecast(gctx, id, start, horizon)
			out[i] = BatchResult{ProductID: id, Forecast: f, Err: err}
			if err != nil {
				p.log.Warn().Err(err).Int64("product_id", id).Msg("skipping product")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
