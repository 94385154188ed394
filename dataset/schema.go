package dataset

import "fmt"

// SchemaVersion identifies the feature layout below. Any change to the
// feature list or its ordering must bump this.
const SchemaVersion = 1

// DefaultCategories is the closed category set of the source catalog.
// Categories outside this set contribute no one-hot column.
var DefaultCategories = []string{
	"Abarrotes",
	"Bebidas",
	"Lácteos",
	"Panadería",
	"Carnes y Embutidos",
	"Frutas y Verduras",
	"Limpieza",
	"Cuidado Personal",
	"Snacks",
	"Congelados",
}

// Config controls which engineered features the builder produces.
type Config struct {
	// Lags are the day offsets for lagged target features.
	Lags []int

	// Windows are the trailing rolling-mean window sizes in days.
	Windows []int

	// TrendWindow is the number of trailing values the linear trend slope
	// is fit over.
	TrendWindow int

	// Categories is the closed set of category names to one-hot encode.
	Categories []string
}

// NewDefaultConfig returns the feature configuration the models ship with.
func NewDefaultConfig() Config {
	return Config{
		Lags:        []int{1, 7, 14, 30},
		Windows:     []int{7, 14, 30},
		TrendWindow: 7,
		Categories:  DefaultCategories,
	}
}

// Schema is the explicit, versioned list of feature columns a model can
// require, in matrix column order. The entity identifiers, date, raw
// category, target, and the same-day revenue/transactions aggregates are
// deliberately not part of the schema.
type Schema struct {
	Version int      `json:"version"`
	Names   []string `json:"names"`

	index map[string]int
}

// Schema derives the feature schema for this configuration.
func (c Config) Schema() *Schema {
	names := []string{
		"year", "month", "day", "dayofweek", "dayofyear", "week", "quarter",
		"is_weekend", "is_month_start", "is_month_end",
	}
	for _, lag := range c.Lags {
		names = append(names, lagName(lag))
	}
	for _, w := range c.Windows {
		names = append(names, maName(w))
	}
	names = append(names, trendName(c.TrendWindow))
	names = append(names,
		"cost_price", "sale_price", "min_stock", "max_stock", "reorder_point",
		"is_perishable", "expiration_days", "profit_margin", "stock_range",
		"quantity_sold_mean", "quantity_sold_std", "quantity_sold_min", "quantity_sold_max",
		"revenue_mean", "revenue_std", "transactions_mean", "transactions_std",
		"sin_dayofyear", "cos_dayofyear", "sin_dayofweek", "cos_dayofweek",
		"sin_month", "cos_month",
		"season", "is_holiday",
	)
	for _, cat := range c.Categories {
		names = append(names, "category_"+cat)
	}
	for s := 0; s < 4; s++ {
		names = append(names, seasonName(s))
	}
	return NewSchema(names)
}

func lagName(lag int) string {
	return fmt.Sprintf("quantity_sold_lag_%d", lag)
}

func maName(w int) string {
	return fmt.Sprintf("quantity_sold_ma_%d", w)
}

func trendName(w int) string {
	return fmt.Sprintf("quantity_sold_trend_%d", w)
}

func seasonName(s int) string {
	return fmt.Sprintf("season_%d", s)
}

// NewSchema builds a schema from an ordered feature name list.
func NewSchema(names []string) *Schema {
	idx := make(map[string]int, len(names))
	for i, name := range names {
		idx[name] = i
	}
	return &Schema{
		Version: SchemaVersion,
		Names:   names,
		index:   idx,
	}
}

// Len returns the number of feature columns.
func (s *Schema) Len() int {
	return len(s.Names)
}

// Index returns the column position for a feature name.
func (s *Schema) Index(name string) (int, bool) {
	if s.index == nil {
		s.index = make(map[string]int, len(s.Names))
		for i, n := range s.Names {
			s.index[n] = i
		}
	}
	i, ok := s.index[name]
	return i, ok
}
