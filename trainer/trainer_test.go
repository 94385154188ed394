package trainer

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/minimarket-io/demandcast/dataset"
	"github.com/minimarket-io/demandcast/models"
)

// syntheticDataset builds a noiseless linear dataset the linear family
// fits exactly, making selection deterministic.
func syntheticDataset(rows int) *dataset.Dataset {
	schema := dataset.NewSchema([]string{"x0", "x1", "x2"})
	x := mat.NewDense(rows, 3, nil)
	y := make([]float64, rows)
	for i := 0; i < rows; i++ {
		x0 := float64(i)
		x1 := math.Sin(float64(i) / 5)
		x2 := float64(i % 7)
		x.SetRow(i, []float64{x0, x1, x2})
		y[i] = 3 + 0.5*x0 + 2*x1 - x2
	}
	return &dataset.Dataset{Schema: schema, X: x, Y: y}
}

func TestTrainerOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *Options
		valid    bool
		expected *Options
	}{
		"nil":              {nil, true, NewDefaultOptions()},
		"valid":            {&Options{TestFraction: 0.3}, true, &Options{TestFraction: 0.3}},
		"zero is allowed":  {&Options{TestFraction: 0}, true, &Options{TestFraction: 0}},
		"negative":         {&Options{TestFraction: -0.1}, false, nil},
		"one is too large": {&Options{TestFraction: 1.0}, false, nil},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if !td.valid {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestTrainFitsAllCandidates(t *testing.T) {
	tr, err := New(&Options{TestFraction: 0.2}, zerolog.Nop())
	require.NoError(t, err)

	ds := syntheticDataset(100)
	report, err := tr.Train(context.Background(), ds)
	require.NoError(t, err)

	require.Len(t, report.Results, len(models.Panel()))
	assert.Empty(t, report.Failed)
	assert.Equal(t, 80, report.TrainRows)
	assert.Equal(t, 20, report.TestRows)

	// results keep panel registration order
	for i, kind := range models.Panel() {
		assert.Equal(t, kind, report.Results[i].Kind)
	}
}

func TestTrainSelectsLowestTestMAE(t *testing.T) {
	tr, err := New(&Options{TestFraction: 0.2}, zerolog.Nop())
	require.NoError(t, err)

	ds := syntheticDataset(150)
	report, err := tr.Train(context.Background(), ds)
	require.NoError(t, err)

	best := report.BestResult()
	for _, res := range report.Results {
		assert.GreaterOrEqual(t, res.TestMetrics.MAE, best.TestMetrics.MAE)
	}

	// the data is exactly linear while the test rows extrapolate past the
	// training range, so a linear candidate must win over the trees
	assert.Contains(t, []models.Kind{
		models.KindLinear, models.KindRidge, models.KindLasso,
	}, best.Kind)
}

func TestTrainDeterministicSelection(t *testing.T) {
	ds := syntheticDataset(120)

	var kinds []models.Kind
	for i := 0; i < 3; i++ {
		tr, err := New(&Options{TestFraction: 0.2}, zerolog.Nop())
		require.NoError(t, err)
		report, err := tr.Train(context.Background(), ds)
		require.NoError(t, err)
		kinds = append(kinds, report.BestResult().Kind)
	}
	assert.Equal(t, kinds[0], kinds[1])
	assert.Equal(t, kinds[1], kinds[2])
}

func TestTrainFallbackSplit(t *testing.T) {
	tr, err := New(&Options{TestFraction: 0}, zerolog.Nop())
	require.NoError(t, err)

	// a zero test fraction rounds to an empty test split, so the trailing
	// 10% of rows are carved out of training and held for evaluation
	report, err := tr.Train(context.Background(), syntheticDataset(20))
	require.NoError(t, err)
	assert.Equal(t, 18, report.TrainRows)
	assert.Equal(t, 2, report.TestRows)
	assert.NotEmpty(t, report.Results)
}

func TestTrainDegenerateColumnsSkipLinear(t *testing.T) {
	// constant feature columns make the OLS design rank deficient and the
	// lasso column norms zero; those candidates must fail and be skipped
	// instead of winning selection with NaN scores
	rows := 120
	x := mat.NewDense(rows, 3, nil)
	y := make([]float64, rows)
	for i := 0; i < rows; i++ {
		x.SetRow(i, []float64{1, float64(i % 7), 0})
		y[i] = 10
	}
	ds := &dataset.Dataset{Schema: dataset.NewSchema([]string{"c0", "x1", "c2"}), X: x, Y: y}

	tr, err := New(nil, zerolog.Nop())
	require.NoError(t, err)
	report, err := tr.Train(context.Background(), ds)
	require.NoError(t, err)

	assert.ErrorIs(t, report.Failed[models.KindLinear], models.ErrDegenerateFit)
	assert.ErrorIs(t, report.Failed[models.KindLasso], models.ErrDegenerateFit)

	best := report.BestResult()
	assert.NotEqual(t, models.KindLinear, best.Kind)
	assert.False(t, math.IsNaN(best.TestMetrics.MAE))
	assert.InDelta(t, 0, best.TestMetrics.MAE, 1e-9)
}

func TestTrainSingleRow(t *testing.T) {
	tr, err := New(nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = tr.Train(context.Background(), syntheticDataset(1))
	assert.ErrorIs(t, err, ErrNoTrainingData)
}

func TestTrainCVOnLargeDataset(t *testing.T) {
	tr, err := New(&Options{TestFraction: 0.2}, zerolog.Nop())
	require.NoError(t, err)

	// 300 rows leaves 240 training rows, above the CV gate
	report, err := tr.Train(context.Background(), syntheticDataset(300))
	require.NoError(t, err)

	for _, res := range report.Results {
		assert.True(t, res.HasCV, "model %s", res.Kind)
		assert.GreaterOrEqual(t, res.CVStd, 0.0)
	}

	// 100 rows leaves 80, below the gate
	report, err = tr.Train(context.Background(), syntheticDataset(100))
	require.NoError(t, err)
	for _, res := range report.Results {
		assert.False(t, res.HasCV, "model %s", res.Kind)
	}
}

func TestSplitBounds(t *testing.T) {
	testData := map[string]struct {
		rows      int
		fraction  float64
		trainEnd  int
		testStart int
		testEnd   int
	}{
		"standard 80/20": {100, 0.2, 80, 80, 100},
		"rounds down":    {10, 0.25, 8, 8, 10},
		"zero fraction holds out trailing rows": {
			rows: 50, fraction: 0,
			trainEnd: 45, testStart: 45, testEnd: 50,
		},
		"tiny dataset has no disjoint split": {
			rows: 1, fraction: 0.2,
			trainEnd: 1, testStart: 1, testEnd: 1,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			trainEnd, testStart, testEnd := splitBounds(td.rows, td.fraction)
			assert.Equal(t, td.trainEnd, trainEnd)
			assert.Equal(t, td.testStart, testStart)
			assert.Equal(t, td.testEnd, testEnd)

			// train and test ranges never share a row
			assert.LessOrEqual(t, trainEnd, testStart)
			assert.LessOrEqual(t, testStart, testEnd)
			assert.LessOrEqual(t, testEnd, td.rows)
		})
	}
}

func TestImportances(t *testing.T) {
	ds := syntheticDataset(100)
	names := ds.Schema.Names

	for _, kind := range []models.Kind{models.KindLinear, models.KindRandomForest} {
		t.Run(string(kind), func(t *testing.T) {
			pipe, err := models.NewPipeline(kind)
			require.NoError(t, err)
			rows := len(ds.Y)
			require.NoError(t, pipe.Fit(ds.X, mat.NewDense(rows, 1, ds.Y)))

			imp := Importances(pipe, names)
			require.Len(t, imp, len(names))

			// sorted descending
			for i := 1; i < len(imp); i++ {
				assert.GreaterOrEqual(t, imp[i-1].Score, imp[i].Score)
			}

			top := TopImportances(pipe, names, 2)
			assert.Len(t, top, 2)
			assert.Equal(t, imp[0], top[0])
		})
	}
}
