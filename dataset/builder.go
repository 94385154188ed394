package dataset

import (
	"math"
	"sort"
	"time"

	"github.com/rickar/cal/v2"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/minimarket-io/demandcast/stats"
)

// Row is one fully engineered (product, date) record. Features holds the
// matrix values in schema column order; the target and the co-located
// revenue/transactions aggregates stay outside the feature vector.
type Row struct {
	ProductID    int64
	ProductName  string
	Category     string
	Date         time.Time
	QuantitySold float64
	Revenue      float64
	Transactions float64
	Features     []float64
}

// Table is the dense feature table: exactly one row per (product, calendar
// day) pair in the extraction range, product-major then date ascending.
type Table struct {
	Schema *Schema
	Rows   []Row
}

// Matrix returns the feature matrix with one row per table row.
func (t *Table) Matrix() *mat.Dense {
	m := len(t.Rows)
	n := t.Schema.Len()
	data := make([]float64, 0, m*n)
	for _, r := range t.Rows {
		data = append(data, r.Features...)
	}
	return mat.NewDense(m, n, data)
}

// Target returns the target vector aligned with Matrix rows.
func (t *Table) Target() []float64 {
	y := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		y[i] = r.QuantitySold
	}
	return y
}

// Builder engineers the feature table from raw observations.
type Builder struct {
	cfg    Config
	schema *Schema
	hcal   *cal.Calendar
}

// NewBuilder returns a Builder for the given feature configuration.
func NewBuilder(cfg Config) *Builder {
	return &Builder{
		cfg:    cfg,
		schema: cfg.Schema(),
		hcal:   newHolidayCalendar(),
	}
}

// Schema returns the feature schema this builder produces.
func (b *Builder) Schema() *Schema {
	return b.schema
}

type productKey struct {
	id  int64
	day time.Time
}

// Build densifies the observations over [minDate, maxDate] and engineers
// every feature column for every (product, day) pair. Days without a sale
// carry zero quantity, revenue, and transactions.
func (b *Builder) Build(obs []Observation, attrs []ProductAttributes) (*Table, error) {
	if len(obs) == 0 {
		return nil, ErrInsufficientData
	}

	attrByID := make(map[int64]ProductAttributes, len(attrs))
	for _, a := range attrs {
		attrByID[a.ProductID] = a
	}

	// aggregate observations per (product, day) in case the feed is not
	// fully collapsed
	type agg struct {
		name     string
		category string
		qty      float64
		rev      float64
		txn      float64
	}
	byKey := make(map[productKey]*agg)
	products := make(map[int64]*agg)
	minDate := Day(obs[0].Date)
	maxDate := minDate
	for _, o := range obs {
		d := Day(o.Date)
		if d.Before(minDate) {
			minDate = d
		}
		if d.After(maxDate) {
			maxDate = d
		}
		k := productKey{o.ProductID, d}
		a, ok := byKey[k]
		if !ok {
			a = &agg{name: o.ProductName, category: o.Category}
			byKey[k] = a
		}
		a.qty += o.QuantitySold
		a.rev += o.Revenue
		a.txn += o.Transactions
		if _, ok := products[o.ProductID]; !ok {
			products[o.ProductID] = &agg{name: o.ProductName, category: o.Category}
		}
	}

	productIDs := make([]int64, 0, len(products))
	for id := range products {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	days := int(maxDate.Sub(minDate).Hours()/24) + 1
	rows := make([]Row, 0, days*len(productIDs))

	for _, pid := range productIDs {
		info := products[pid]
		attr := attrByID[pid]

		qty := make([]float64, days)
		rev := make([]float64, days)
		txn := make([]float64, days)
		for i := 0; i < days; i++ {
			if a, ok := byKey[productKey{pid, minDate.AddDate(0, 0, i)}]; ok {
				qty[i] = a.qty
				rev[i] = a.rev
				txn[i] = a.txn
			}
		}

		ps := newProductStats(qty, rev, txn)

		for i := 0; i < days; i++ {
			date := minDate.AddDate(0, 0, i)
			r := Row{
				ProductID:    pid,
				ProductName:  info.name,
				Category:     info.category,
				Date:         date,
				QuantitySold: qty[i],
				Revenue:      rev[i],
				Transactions: txn[i],
				Features:     make([]float64, b.schema.Len()),
			}
			b.fillCalendar(&r, date)
			b.fillSeries(&r, qty, i)
			b.fillAttributes(&r, attr)
			b.fillStats(&r, ps)
			b.fillOneHot(&r, info.category, SeasonOf(date.Month()))
			rows = append(rows, r)
		}
	}

	return &Table{Schema: b.schema, Rows: rows}, nil
}

func (b *Builder) set(r *Row, name string, v float64) {
	if i, ok := b.schema.Index(name); ok {
		r.Features[i] = v
	}
}

func (b *Builder) fillCalendar(r *Row, date time.Time) {
	f := NewCalendarFeatures(date, b.hcal)
	b.set(r, "year", f.Year)
	b.set(r, "month", f.Month)
	b.set(r, "day", f.Day)
	b.set(r, "dayofweek", f.DayOfWeek)
	b.set(r, "dayofyear", f.DayOfYear)
	b.set(r, "week", f.Week)
	b.set(r, "quarter", f.Quarter)
	b.set(r, "is_weekend", f.IsWeekend)
	b.set(r, "is_month_start", f.IsMonthStart)
	b.set(r, "is_month_end", f.IsMonthEnd)
	b.set(r, "sin_dayofyear", f.SinDayOfYear)
	b.set(r, "cos_dayofyear", f.CosDayOfYear)
	b.set(r, "sin_dayofweek", f.SinDayOfWeek)
	b.set(r, "cos_dayofweek", f.CosDayOfWeek)
	b.set(r, "sin_month", f.SinMonth)
	b.set(r, "cos_month", f.CosMonth)
	b.set(r, "season", f.Season)
	b.set(r, "is_holiday", f.IsHoliday)
}

// fillSeries engineers the lag, rolling-mean, and trend features for the
// row at index i of a product's dense target series.
func (b *Builder) fillSeries(r *Row, qty []float64, i int) {
	for _, lag := range b.cfg.Lags {
		v := 0.0
		if i-lag >= 0 {
			v = qty[i-lag]
		}
		b.set(r, lagName(lag), v)
	}

	for _, w := range b.cfg.Windows {
		start := i - w + 1
		if start < 0 {
			start = 0
		}
		b.set(r, maName(w), stat.Mean(qty[start:i+1], nil))
	}

	start := i - b.cfg.TrendWindow + 1
	if start < 0 {
		start = 0
	}
	b.set(r, trendName(b.cfg.TrendWindow), stats.Slope(qty[start:i+1]))
}

func (b *Builder) fillAttributes(r *Row, attr ProductAttributes) {
	b.set(r, "cost_price", attr.CostPrice)
	b.set(r, "sale_price", attr.SalePrice)
	b.set(r, "min_stock", attr.MinStock)
	b.set(r, "max_stock", attr.MaxStock)
	b.set(r, "reorder_point", attr.ReorderPoint)
	if attr.IsPerishable {
		b.set(r, "is_perishable", 1)
	}
	b.set(r, "expiration_days", attr.ExpirationDays)
	b.set(r, "profit_margin", attr.ProfitMargin())
	b.set(r, "stock_range", attr.MaxStock-attr.MinStock)
}

func (b *Builder) fillStats(r *Row, ps productStats) {
	b.set(r, "quantity_sold_mean", ps.qtyMean)
	b.set(r, "quantity_sold_std", ps.qtyStd)
	b.set(r, "quantity_sold_min", ps.qtyMin)
	b.set(r, "quantity_sold_max", ps.qtyMax)
	b.set(r, "revenue_mean", ps.revMean)
	b.set(r, "revenue_std", ps.revStd)
	b.set(r, "transactions_mean", ps.txnMean)
	b.set(r, "transactions_std", ps.txnStd)
}

func (b *Builder) fillOneHot(r *Row, category string, season int) {
	for _, cat := range b.cfg.Categories {
		if cat == category {
			b.set(r, "category_"+cat, 1)
		}
	}
	b.set(r, seasonName(season), 1)
}

// productStats are the per-product aggregates over the full extraction
// window, joined onto every row of that product. Note these include dates
// after the row being featurized; see DESIGN.md for why this is kept.
type productStats struct {
	qtyMean, qtyStd, qtyMin, qtyMax float64
	revMean, revStd                 float64
	txnMean, txnStd                 float64
}

func newProductStats(qty, rev, txn []float64) productStats {
	return productStats{
		qtyMean: round2(stat.Mean(qty, nil)),
		qtyStd:  round2(stats.SampleStdDev(qty)),
		qtyMin:  round2(floatsMin(qty)),
		qtyMax:  round2(floatsMax(qty)),
		revMean: round2(stat.Mean(rev, nil)),
		revStd:  round2(stats.SampleStdDev(rev)),
		txnMean: round2(stat.Mean(txn, nil)),
		txnStd:  round2(stats.SampleStdDev(txn)),
	}
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}

func floatsMin(y []float64) float64 {
	m := y[0]
	for _, v := range y[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func floatsMax(y []float64) float64 {
	m := y[0]
	for _, v := range y[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
