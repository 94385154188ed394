package dataset

import (
	"math"

	"github.com/minimarket-io/demandcast/stats"
)

// minRowsForClipping guards the IQR clip: with 100 rows or fewer the
// quartile estimates are too noisy to act on.
const minRowsForClipping = 100

const iqrFactor = 3.0

// Clean normalizes the feature table in place: rows missing their product,
// date, or target are dropped; NaN feature values are filled with the
// column median (0 when the median is undefined); infinities become 0; and
// the quantity and revenue columns are clipped to [Q1-3*IQR, Q3+3*IQR]
// when the table is large enough. Cleaning never fails; it is a silent
// data-quality step, not an error path.
func (t *Table) Clean() {
	kept := t.Rows[:0]
	for _, r := range t.Rows {
		if r.ProductID == 0 || r.Date.IsZero() || math.IsNaN(r.QuantitySold) {
			continue
		}
		kept = append(kept, r)
	}
	t.Rows = kept

	t.fillMissing()

	if len(t.Rows) > minRowsForClipping {
		t.clipOutliers()
	}
}

func (t *Table) fillMissing() {
	n := t.Schema.Len()
	col := make([]float64, 0, len(t.Rows))
	for j := 0; j < n; j++ {
		col = col[:0]
		hasMissing := false
		for i := range t.Rows {
			v := t.Rows[i].Features[j]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				hasMissing = true
				continue
			}
			col = append(col, v)
		}
		if !hasMissing {
			continue
		}
		median := stats.Median(col)
		if math.IsNaN(median) {
			median = 0
		}
		for i := range t.Rows {
			v := t.Rows[i].Features[j]
			switch {
			case math.IsInf(v, 0):
				t.Rows[i].Features[j] = 0
			case math.IsNaN(v):
				t.Rows[i].Features[j] = median
			}
		}
	}
}

// clipOutliers bounds quantity and revenue by the Tukey-style IQR fence.
// The upstream system dropped the offending rows instead; clipping keeps
// the one-row-per-day density invariant intact.
func (t *Table) clipOutliers() {
	qty := make([]float64, len(t.Rows))
	rev := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		qty[i] = r.QuantitySold
		rev[i] = r.Revenue
	}

	qtyLo, qtyHi := iqrFence(qty)
	revLo, revHi := iqrFence(rev)
	for i := range t.Rows {
		t.Rows[i].QuantitySold = clip(t.Rows[i].QuantitySold, qtyLo, qtyHi)
		t.Rows[i].Revenue = clip(t.Rows[i].Revenue, revLo, revHi)
	}
}

func iqrFence(y []float64) (lo, hi float64) {
	q1 := stats.Quantile(y, 0.25)
	q3 := stats.Quantile(y, 0.75)
	iqr := q3 - q1
	return q1 - iqrFactor*iqr, q3 + iqrFactor*iqr
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
