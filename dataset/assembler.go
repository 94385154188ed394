package dataset

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// DefaultDaysBack is the default historical extraction window.
const DefaultDaysBack = 730

// Dataset is the training-ready output of the assembler: an aligned
// feature matrix and target vector plus the schema the matrix columns
// follow. Row order is product-major then date ascending.
type Dataset struct {
	Schema *Schema
	X      *mat.Dense
	Y      []float64
}

// Assembler orchestrates extraction, feature building, and cleaning over a
// trailing historical window.
type Assembler struct {
	src     SalesSource
	builder *Builder
	log     zerolog.Logger
	nowFunc func() time.Time
}

// NewAssembler returns an Assembler reading from src with the given
// feature configuration.
func NewAssembler(src SalesSource, cfg Config, log zerolog.Logger) *Assembler {
	return &Assembler{
		src:     src,
		builder: NewBuilder(cfg),
		log:     log,
		nowFunc: time.Now,
	}
}

// Schema returns the feature schema of assembled datasets.
func (a *Assembler) Schema() *Schema {
	return a.builder.Schema()
}

// Assemble extracts the trailing daysBack days of sales, builds the dense
// feature table, cleans it, and splits it into the feature matrix and
// target vector. Returns ErrInsufficientData when the feed is empty.
func (a *Assembler) Assemble(ctx context.Context, daysBack int) (*Dataset, error) {
	if daysBack <= 0 {
		daysBack = DefaultDaysBack
	}
	since := Day(a.nowFunc()).AddDate(0, 0, -daysBack)

	a.log.Info().Int("days_back", daysBack).Time("since", since).Msg("extracting sales observations")
	obs, err := a.src.Observations(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("extracting observations, %w", err)
	}
	if len(obs) == 0 {
		return nil, ErrInsufficientData
	}
	a.log.Info().Int("observations", len(obs)).Msg("observations extracted")

	attrs, err := a.src.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading product attributes, %w", err)
	}

	table, err := a.builder.Build(obs, attrs)
	if err != nil {
		return nil, err
	}
	a.log.Info().
		Int("rows", len(table.Rows)).
		Int("features", table.Schema.Len()).
		Msg("feature table built")

	table.Clean()

	// rows with an unusable target are dropped from matrix and target in
	// lockstep
	kept := table.Rows[:0]
	for _, r := range table.Rows {
		if math.IsNaN(r.QuantitySold) || math.IsInf(r.QuantitySold, 0) {
			continue
		}
		kept = append(kept, r)
	}
	table.Rows = kept

	if len(table.Rows) == 0 {
		return nil, ErrInsufficientData
	}
	a.log.Info().Int("rows", len(table.Rows)).Msg("feature table cleaned")

	return &Dataset{
		Schema: table.Schema,
		X:      table.Matrix(),
		Y:      table.Target(),
	}, nil
}
