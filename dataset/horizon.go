package dataset

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/minimarket-io/demandcast/stats"
)

// lagSeedWindow caps how much trailing history seeds the lag features.
const lagSeedWindow = 30

// SeedHorizon computes the history-derived feature values shared by every
// day of a prediction horizon: lags, rolling means, trend, aggregate
// quantity stats, product attributes, and the category one-hot. history is
// the product's recent daily quantity series in date order; the seed is
// computed once and reused for the whole horizon, with no recursive
// feedback of predicted values.
func (b *Builder) SeedHorizon(history []float64, attr ProductAttributes, category string) map[string]float64 {
	seed := make(map[string]float64, b.schema.Len())

	tail := history
	if len(tail) > lagSeedWindow {
		tail = tail[len(tail)-lagSeedWindow:]
	}
	for _, lag := range b.cfg.Lags {
		v := 0.0
		switch {
		case len(tail) >= lag:
			v = tail[len(tail)-lag]
		case len(tail) > 0:
			v = tail[len(tail)-1]
		}
		seed[lagName(lag)] = v
	}

	for _, w := range b.cfg.Windows {
		v := 0.0
		if len(history) > 0 {
			start := len(history) - w
			if start < 0 {
				start = 0
			}
			v = stat.Mean(history[start:], nil)
		}
		seed[maName(w)] = v
	}

	// the trend needs a full window of history; a slope fit through fewer
	// points is noise
	trend := 0.0
	if len(history) >= b.cfg.TrendWindow {
		trend = stats.Slope(history[len(history)-b.cfg.TrendWindow:])
	}
	seed[trendName(b.cfg.TrendWindow)] = trend

	seed["cost_price"] = attr.CostPrice
	seed["sale_price"] = attr.SalePrice
	seed["min_stock"] = attr.MinStock
	seed["max_stock"] = attr.MaxStock
	seed["reorder_point"] = attr.ReorderPoint
	if attr.IsPerishable {
		seed["is_perishable"] = 1
	} else {
		seed["is_perishable"] = 0
	}
	seed["expiration_days"] = attr.ExpirationDays
	seed["profit_margin"] = attr.ProfitMargin()
	seed["stock_range"] = attr.MaxStock - attr.MinStock

	if len(history) > 0 {
		seed["quantity_sold_mean"] = stat.Mean(history, nil)
		seed["quantity_sold_std"] = stats.SampleStdDev(history)
		seed["quantity_sold_min"] = floatsMin(history)
		seed["quantity_sold_max"] = floatsMax(history)
	} else {
		seed["quantity_sold_mean"] = 0
		seed["quantity_sold_std"] = 0
		seed["quantity_sold_min"] = 0
		seed["quantity_sold_max"] = 0
	}

	for _, cat := range b.cfg.Categories {
		v := 0.0
		if cat == category {
			v = 1
		}
		seed["category_"+cat] = v
	}

	return seed
}

// HorizonFeatures merges the shared seed with the calendar features of one
// horizon date into a named feature map.
func (b *Builder) HorizonFeatures(seed map[string]float64, date time.Time) map[string]float64 {
	out := make(map[string]float64, b.schema.Len())
	for k, v := range seed {
		out[k] = v
	}

	f := NewCalendarFeatures(date, b.hcal)
	out["year"] = f.Year
	out["month"] = f.Month
	out["day"] = f.Day
	out["dayofweek"] = f.DayOfWeek
	out["dayofyear"] = f.DayOfYear
	out["week"] = f.Week
	out["quarter"] = f.Quarter
	out["is_weekend"] = f.IsWeekend
	out["is_month_start"] = f.IsMonthStart
	out["is_month_end"] = f.IsMonthEnd
	out["sin_dayofyear"] = f.SinDayOfYear
	out["cos_dayofyear"] = f.CosDayOfYear
	out["sin_dayofweek"] = f.SinDayOfWeek
	out["cos_dayofweek"] = f.CosDayOfWeek
	out["sin_month"] = f.SinMonth
	out["cos_month"] = f.CosMonth
	out["season"] = f.Season
	out["is_holiday"] = f.IsHoliday

	season := SeasonOf(date.Month())
	for s := 0; s < 4; s++ {
		v := 0.0
		if s == season {
			v = 1
		}
		out[seasonName(s)] = v
	}

	return out
}
