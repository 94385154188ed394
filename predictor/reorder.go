package predictor

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/minimarket-io/demandcast/dataset"
)

// Priority is the urgency tier of a reorder recommendation.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// coverDays is the safety margin ordered on top of the forecast demand,
// and the days-of-stock threshold that triggers a reorder.
const coverDays = 7

// Recommendation is a stock replenishment suggestion derived from a
// demand forecast and the product's current stock position.
type Recommendation struct {
	ProductID      int64    `json:"product_id"`
	ProductName    string   `json:"product_name"`
	CurrentStock   float64  `json:"current_stock"`
	ReorderPoint   float64  `json:"reorder_point"`
	TotalDemand    float64  `json:"total_demand"`
	AvgDailyDemand float64  `json:"avg_daily_demand"`
	MaxDailyDemand float64  `json:"max_daily_demand"`
	DaysOfStock    float64  `json:"days_of_stock"`
	NeedsReorder   bool     `json:"needs_reorder"`
	SuggestedOrder float64  `json:"suggested_order"`
	Priority       Priority `json:"priority"`
}

// NewRecommendation derives the reorder decision for one product. Days of
// stock is +Inf when the forecast shows no demand at all. The suggested
// order covers the forecast demand plus a seven-day safety margin at the
// forecast peak.
func NewRecommendation(f *Forecast, attr dataset.ProductAttributes) Recommendation {
	total := f.TotalDemand()
	avgDaily := f.AvgDaily()
	maxDaily := f.MaxDaily()
	stock := attr.CurrentStock

	daysOfStock := math.Inf(1)
	if avgDaily > 0 {
		daysOfStock = stock / avgDaily
	}

	needed := stock <= attr.ReorderPoint || daysOfStock <= coverDays || total > stock

	var suggested float64
	if needed {
		suggested = total + coverDays*maxDaily - stock
		if suggested < 0 {
			suggested = 0
		}
	}

	return Recommendation{
		ProductID:      f.ProductID,
		ProductName:    f.ProductName,
		CurrentStock:   stock,
		ReorderPoint:   attr.ReorderPoint,
		TotalDemand:    total,
		AvgDailyDemand: avgDaily,
		MaxDailyDemand: maxDaily,
		DaysOfStock:    daysOfStock,
		NeedsReorder:   needed,
		SuggestedOrder: suggested,
		Priority:       priorityFor(needed, stock, daysOfStock, attr.ReorderPoint),
	}
}

func priorityFor(needed bool, stock, daysOfStock, reorderPoint float64) Priority {
	switch {
	case !needed:
		return PriorityLow
	case stock <= 0:
		return PriorityCritical
	case daysOfStock <= 3:
		return PriorityHigh
	case stock <= reorderPoint:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// RecommendationError records a product that could not be evaluated.
type RecommendationError struct {
	ProductID int64
	Err       error
}

// Recommendations forecasts every product and derives its reorder
// decision, skipping products that fail and reporting them separately.
// Recommendations come back most urgent first, ties broken by fewest days
// of stock then product id.
func (p *Predictor) Recommendations(ctx context.Context, productIDs []int64, start time.Time, horizon int) ([]Recommendation, []RecommendationError, error) {
	results, err := p.ForecastBatch(ctx, productIDs, start, horizon)
	if err != nil {
		return nil, nil, err
	}

	var recs []Recommendation
	var failed []RecommendationError
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, RecommendationError{ProductID: res.ProductID, Err: res.Err})
			continue
		}
		attr, err := p.src.Product(ctx, res.ProductID)
		if err != nil {
			failed = append(failed, RecommendationError{ProductID: res.ProductID, Err: err})
			continue
		}
		recs = append(recs, NewRecommendation(res.Forecast, attr))
	}

	sort.Slice(recs, func(i, j int) bool {
		if priorityRank[recs[i].Priority] != priorityRank[recs[j].Priority] {
			return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
		}
		if recs[i].DaysOfStock != recs[j].DaysOfStock {
			return recs[i].DaysOfStock < recs[j].DaysOfStock
		}
		return recs[i].ProductID < recs[j].ProductID
	})
	return recs, failed, nil
}
