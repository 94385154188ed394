package dataset

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleEmptyFeed(t *testing.T) {
	src := NewMemorySource(nil, nil)
	asm := NewAssembler(src, NewDefaultConfig(), zerolog.Nop())

	_, err := asm.Assemble(context.Background(), 30)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAssembleWindowFiltersOldSales(t *testing.T) {
	now := date(2025, time.June, 30)
	src := NewMemorySource([]Observation{
		obsOn(1, now.AddDate(0, 0, -100), 5), // outside the window
		obsOn(1, now.AddDate(0, 0, -10), 3),
		obsOn(1, now.AddDate(0, 0, -5), 7),
	}, nil)

	asm := NewAssembler(src, NewDefaultConfig(), zerolog.Nop())
	asm.nowFunc = func() time.Time { return now }

	ds, err := asm.Assemble(context.Background(), 30)
	require.NoError(t, err)

	// dense grid spans the in-window observations only: days -10..-5
	rows, cols := ds.X.Dims()
	assert.Equal(t, 6, rows)
	assert.Equal(t, ds.Schema.Len(), cols)
	require.Len(t, ds.Y, 6)
	assert.Equal(t, 3.0, ds.Y[0])
	assert.Equal(t, 7.0, ds.Y[5])
}

func TestAssembleMatrixAlignment(t *testing.T) {
	now := date(2025, time.June, 30)
	obs := make([]Observation, 0, 14)
	for i := 0; i < 14; i++ {
		obs = append(obs, obsOn(1, now.AddDate(0, 0, -14+i), float64(i+1)))
	}
	src := NewMemorySource(obs, []ProductAttributes{{
		ProductID: 1, Name: "product-1", Category: "Bebidas",
		CostPrice: 1, SalePrice: 2,
	}})

	asm := NewAssembler(src, NewDefaultConfig(), zerolog.Nop())
	asm.nowFunc = func() time.Time { return now }

	ds, err := asm.Assemble(context.Background(), 30)
	require.NoError(t, err)

	rows, _ := ds.X.Dims()
	require.Equal(t, 14, rows)
	require.Len(t, ds.Y, 14)

	lagIdx, ok := ds.Schema.Index("quantity_sold_lag_1")
	require.True(t, ok)
	for i := 1; i < rows; i++ {
		assert.Equal(t, ds.Y[i-1], ds.X.At(i, lagIdx), "row %d", i)
	}
}
