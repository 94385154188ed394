package dataset

import (
	"context"
	"sort"
	"time"
)

// MemorySource is an in-memory SalesSource. It backs tests and small
// embedded deployments where the sales feed is loaded up front.
type MemorySource struct {
	obs   []Observation
	attrs map[int64]ProductAttributes
}

// NewMemorySource builds a MemorySource from observation and attribute
// slices.
func NewMemorySource(obs []Observation, attrs []ProductAttributes) *MemorySource {
	byID := make(map[int64]ProductAttributes, len(attrs))
	for _, a := range attrs {
		byID[a.ProductID] = a
	}
	cp := make([]Observation, len(obs))
	copy(cp, obs)
	sort.Slice(cp, func(i, j int) bool {
		if cp[i].ProductID != cp[j].ProductID {
			return cp[i].ProductID < cp[j].ProductID
		}
		return cp[i].Date.Before(cp[j].Date)
	})
	return &MemorySource{obs: cp, attrs: byID}
}

func (m *MemorySource) Observations(_ context.Context, since time.Time) ([]Observation, error) {
	var out []Observation
	for _, o := range m.obs {
		if !Day(o.Date).Before(Day(since)) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MemorySource) ProductHistory(_ context.Context, productID int64, since time.Time) ([]Observation, error) {
	if _, ok := m.attrs[productID]; !ok {
		return nil, ErrProductNotFound
	}
	var out []Observation
	for _, o := range m.obs {
		if o.ProductID == productID && !Day(o.Date).Before(Day(since)) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MemorySource) Product(_ context.Context, productID int64) (ProductAttributes, error) {
	a, ok := m.attrs[productID]
	if !ok {
		return ProductAttributes{}, ErrProductNotFound
	}
	return a, nil
}

func (m *MemorySource) Products(_ context.Context) ([]ProductAttributes, error) {
	out := make([]ProductAttributes, 0, len(m.attrs))
	for _, a := range m.attrs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (m *MemorySource) TopProductsBySales(_ context.Context, n int, since time.Time) ([]int64, error) {
	totals := make(map[int64]float64)
	for _, o := range m.obs {
		if !Day(o.Date).Before(Day(since)) {
			totals[o.ProductID] += o.QuantitySold
		}
	}
	ids := make([]int64, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if totals[ids[i]] != totals[ids[j]] {
			return totals[ids[i]] > totals[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if n > 0 && n < len(ids) {
		ids = ids[:n]
	}
	return ids, nil
}
