package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeedHorizonLags(t *testing.T) {
	b := NewBuilder(NewDefaultConfig())

	history := make([]float64, 60)
	for i := range history {
		history[i] = float64(i)
	}

	seed := b.SeedHorizon(history, ProductAttributes{}, "")

	// lags read from the trailing 30 values
	assert.Equal(t, 59.0, seed["quantity_sold_lag_1"])
	assert.Equal(t, 53.0, seed["quantity_sold_lag_7"])
	assert.Equal(t, 46.0, seed["quantity_sold_lag_14"])
	assert.Equal(t, 30.0, seed["quantity_sold_lag_30"])
}

func TestSeedHorizonShortHistory(t *testing.T) {
	b := NewBuilder(NewDefaultConfig())

	testData := map[string]struct {
		history []float64
		lag30   float64
		ma7     float64
	}{
		"empty": {
			history: nil,
			lag30:   0,
			ma7:     0,
		},
		"single value": {
			history: []float64{4},
			lag30:   4, // falls back to the most recent value
			ma7:     4,
		},
		"shorter than window": {
			history: []float64{2, 4, 6},
			lag30:   6,
			ma7:     4,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			seed := b.SeedHorizon(td.history, ProductAttributes{}, "")
			assert.Equal(t, td.lag30, seed["quantity_sold_lag_30"])
			assert.InDelta(t, td.ma7, seed["quantity_sold_ma_7"], 1e-12)
		})
	}
}

func TestSeedHorizonStatsAndAttributes(t *testing.T) {
	b := NewBuilder(NewDefaultConfig())

	attr := ProductAttributes{
		CostPrice:    2,
		SalePrice:    3,
		MinStock:     5,
		MaxStock:     25,
		ReorderPoint: 8,
	}
	seed := b.SeedHorizon([]float64{2, 4, 6}, attr, "Snacks")

	assert.Equal(t, 4.0, seed["quantity_sold_mean"])
	assert.Equal(t, 2.0, seed["quantity_sold_std"])
	assert.Equal(t, 2.0, seed["quantity_sold_min"])
	assert.Equal(t, 6.0, seed["quantity_sold_max"])

	assert.Equal(t, 20.0, seed["stock_range"])
	assert.InDelta(t, 50.0, seed["profit_margin"], 1e-12)
	assert.Equal(t, 1.0, seed["category_Snacks"])
	assert.Equal(t, 0.0, seed["category_Bebidas"])

	// revenue and transaction aggregates are unknowable at predict time
	_, ok := seed["revenue_mean"]
	assert.False(t, ok)
	_, ok = seed["transactions_std"]
	assert.False(t, ok)
}

func TestSeedHorizonTrendNeedsFullWindow(t *testing.T) {
	b := NewBuilder(NewDefaultConfig())

	testData := map[string]struct {
		history []float64
		trend   float64
	}{
		"two points":       {[]float64{2, 4}, 0},
		"six points":       {[]float64{1, 2, 3, 4, 5, 6}, 0},
		"full window":      {[]float64{1, 2, 3, 4, 5, 6, 7}, 1},
		"longer than full": {[]float64{9, 9, 9, 1, 2, 3, 4, 5, 6, 7}, 1},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			seed := b.SeedHorizon(td.history, ProductAttributes{}, "")
			assert.InDelta(t, td.trend, seed["quantity_sold_trend_7"], 1e-12)
		})
	}
}

func TestHorizonFeaturesVaryByDay(t *testing.T) {
	b := NewBuilder(NewDefaultConfig())
	seed := b.SeedHorizon([]float64{5, 5, 5}, ProductAttributes{}, "Bebidas")

	start := date(2025, time.December, 24)
	d0 := b.HorizonFeatures(seed, start)
	d1 := b.HorizonFeatures(seed, start.AddDate(0, 0, 1))

	// calendar features move with the date
	assert.Equal(t, 24.0, d0["day"])
	assert.Equal(t, 25.0, d1["day"])
	assert.Equal(t, 1.0, d0["is_holiday"])
	assert.Equal(t, 1.0, d1["is_holiday"])
	assert.Equal(t, float64(SeasonSummer), d0["season"])
	assert.Equal(t, 1.0, d0["season_0"])
	assert.Equal(t, 0.0, d0["season_2"])

	// series features are pinned to the seed
	assert.Equal(t, d0["quantity_sold_lag_1"], d1["quantity_sold_lag_1"])
	assert.Equal(t, d0["quantity_sold_ma_7"], d1["quantity_sold_ma_7"])

	// every schema column except the revenue and transaction aggregates is
	// present in the horizon map
	missing := 0
	for _, name := range b.Schema().Names {
		if _, ok := d0[name]; !ok {
			missing++
		}
	}
	assert.Equal(t, 4, missing)
}
