package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalerStandard(t *testing.T) {
	s, err := NewScaler(ScalerStandard)
	require.NoError(t, err)

	x := designMatrix([][]float64{
		{1, 100},
		{2, 100},
		{3, 100},
	})
	require.NoError(t, s.Fit(x))

	out, err := s.Transform(x)
	require.NoError(t, err)

	// column 0: mean 2, population std sqrt(2/3)
	assert.InDelta(t, 0.0, out.At(1, 0), 1e-12)
	assert.InDelta(t, -out.At(2, 0), out.At(0, 0), 1e-12)

	// constant column centers to zero without dividing by zero
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, out.At(i, 1))
	}
}

func TestScalerRobust(t *testing.T) {
	s, err := NewScaler(ScalerRobust)
	require.NoError(t, err)

	// an extreme outlier barely moves median and IQR
	x := designMatrix([][]float64{
		{1}, {2}, {3}, {4}, {1000},
	})
	require.NoError(t, s.Fit(x))

	out, err := s.Transform(x)
	require.NoError(t, err)

	// median 3, IQR = 4 - 2 = 2
	assert.InDelta(t, -1.0, out.At(0, 0), 1e-12)
	assert.InDelta(t, 0.0, out.At(2, 0), 1e-12)
	assert.InDelta(t, 0.5, out.At(3, 0), 1e-12)
	assert.InDelta(t, 498.5, out.At(4, 0), 1e-12)
}

func TestScalerStateRoundTrip(t *testing.T) {
	testData := map[string]ScalerKind{
		"standard": ScalerStandard,
		"robust":   ScalerRobust,
	}

	x := designMatrix([][]float64{
		{1, 5},
		{2, 6},
		{3, 9},
		{4, 4},
	})

	for name, kind := range testData {
		t.Run(name, func(t *testing.T) {
			s, err := NewScaler(kind)
			require.NoError(t, err)
			require.NoError(t, s.Fit(x))

			restored, err := NewScalerFromState(s.State())
			require.NoError(t, err)

			want, err := s.Transform(x)
			require.NoError(t, err)
			got, err := restored.Transform(x)
			require.NoError(t, err)
			assert.Equal(t, want.RawMatrix().Data, got.RawMatrix().Data)
		})
	}
}

func TestScalerErrors(t *testing.T) {
	_, err := NewScaler(ScalerKind("minmax"))
	assert.ErrorIs(t, err, ErrUnknownScalerKind)

	s, err := NewScaler(ScalerStandard)
	require.NoError(t, err)

	_, err = s.Transform(designMatrix([][]float64{{1}}))
	assert.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, s.Fit(designMatrix([][]float64{{1, 2}, {3, 4}})))
	_, err = s.Transform(designMatrix([][]float64{{1}}))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)
}
