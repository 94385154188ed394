package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/minimarket-io/demandcast/dataset"
	"github.com/minimarket-io/demandcast/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNoTrainingData = errors.New("no rows available to train on")
	ErrNoModelTrained = errors.New("every candidate model failed to train")
)

const (
	// cvMinTrainRows gates cross-validation: below this many training rows
	// the expanding-window folds are too small to be informative.
	cvMinTrainRows = 200
	cvFolds        = 3
)

// Options control the train/test split.
type Options struct {
	// TestFraction is the share of rows, taken from the end of the
	// time-ordered dataset, held out for evaluation.
	TestFraction float64
}

func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.TestFraction < 0 || o.TestFraction >= 1 {
		return nil, fmt.Errorf("test fraction must be in [0, 1), got %f", o.TestFraction)
	}
	return o, nil
}

func NewDefaultOptions() *Options {
	return &Options{
		TestFraction: 0.2,
	}
}

// Result is the evaluation record of one fitted candidate.
type Result struct {
	Kind         models.Kind   `json:"kind"`
	TrainMetrics Metrics       `json:"train_metrics"`
	TestMetrics  Metrics       `json:"test_metrics"`
	CVScore      float64       `json:"cv_score,omitempty"`
	CVStd        float64       `json:"cv_std,omitempty"`
	HasCV        bool          `json:"has_cv"`
	TrainingTime time.Duration `json:"training_time"`

	pipeline *models.Pipeline
}

// Pipeline returns the fitted pipeline behind this result.
func (r *Result) Pipeline() *models.Pipeline {
	return r.pipeline
}

// Report holds the full candidate panel evaluation and the winner.
type Report struct {
	// Results are the successful candidates in registration order.
	Results []Result
	// Best indexes into Results. Selection is lowest test MAE; an exact
	// tie keeps the earlier-registered candidate.
	Best int
	// Failed records candidates that errored during fit, keyed by kind.
	Failed map[models.Kind]error

	TrainRows int
	TestRows  int
}

// BestResult returns the winning candidate.
func (r *Report) BestResult() *Result {
	return &r.Results[r.Best]
}

// Trainer fits the fixed candidate panel on a dataset and selects the
// best performer on the held-out split.
type Trainer struct {
	opt *Options
	log zerolog.Logger
}

func New(opt *Options, log zerolog.Logger) (*Trainer, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &Trainer{opt: opt, log: log}, nil
}

// Train splits ds in time order, fits every candidate in parallel, scores
// each on train and test, cross-validates when the training split is large
// enough, and picks the candidate with the lowest test MAE.
func (t *Trainer) Train(ctx context.Context, ds *dataset.Dataset) (*Report, error) {
	rows, _ := ds.X.Dims()
	if rows == 0 {
		return nil, ErrNoTrainingData
	}

	trainEnd, testStart, testEnd := splitBounds(rows, t.opt.TestFraction)
	if trainEnd < 1 || testEnd-testStart < 1 {
		return nil, fmt.Errorf("%d rows cannot be split into disjoint train and test ranges, %w", rows, ErrNoTrainingData)
	}
	xTrain := rowSlice(ds.X, 0, trainEnd)
	yTrain := ds.Y[:trainEnd]
	xTest := rowSlice(ds.X, testStart, testEnd)
	yTest := ds.Y[testStart:testEnd]

	t.log.Info().
		Int("train_rows", trainEnd).
		Int("test_rows", testEnd-testStart).
		Msg("training candidate panel")

	kinds := models.Panel()
	results := make([]*Result, len(kinds))
	failures := make([]error, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := t.trainOne(kind, xTrain, yTrain, xTest, yTest)
			if err != nil {
				t.log.Warn().Err(err).Str("model", string(kind)).Msg("candidate failed, skipping")
				failures[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Failed:    make(map[models.Kind]error),
		TrainRows: trainEnd,
		TestRows:  testEnd - testStart,
		Best:      -1,
	}
	for i, kind := range kinds {
		if failures[i] != nil {
			report.Failed[kind] = failures[i]
			continue
		}
		res := results[i]
		report.Results = append(report.Results, *res)
		// a candidate with a non-finite test score can never be selected:
		// NaN compares false against everything, so it would otherwise win
		// by being seated first
		if math.IsNaN(res.TestMetrics.MAE) || math.IsInf(res.TestMetrics.MAE, 0) {
			continue
		}
		if report.Best < 0 || res.TestMetrics.MAE < report.Results[report.Best].TestMetrics.MAE {
			report.Best = len(report.Results) - 1
		}
	}
	if report.Best < 0 {
		return nil, ErrNoModelTrained
	}

	best := report.BestResult()
	t.log.Info().
		Str("model", string(best.Kind)).
		Float64("test_mae", best.TestMetrics.MAE).
		Float64("test_r2", best.TestMetrics.R2).
		Msg("selected best model")
	return report, nil
}

func (t *Trainer) trainOne(kind models.Kind, xTrain mat.Matrix, yTrain []float64, xTest mat.Matrix, yTest []float64) (*Result, error) {
	start := time.Now()

	pipe, err := models.NewPipeline(kind)
	if err != nil {
		return nil, err
	}
	nTrain, _ := xTrain.Dims()
	if err := pipe.Fit(xTrain, mat.NewDense(nTrain, 1, yTrain)); err != nil {
		return nil, err
	}

	trainPred, err := pipe.Predict(xTrain)
	if err != nil {
		return nil, err
	}
	trainMetrics, err := Score(trainPred, yTrain)
	if err != nil {
		return nil, err
	}

	testPred, err := pipe.Predict(xTest)
	if err != nil {
		return nil, err
	}
	testMetrics, err := Score(testPred, yTest)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Kind:         kind,
		TrainMetrics: trainMetrics,
		TestMetrics:  testMetrics,
		pipeline:     pipe,
	}

	if nTrain > cvMinTrainRows {
		score, std, cvErr := t.crossValidate(kind, xTrain, yTrain)
		if cvErr != nil {
			t.log.Warn().Err(cvErr).Str("model", string(kind)).Msg("cross-validation failed")
		} else {
			res.CVScore = score
			res.CVStd = std
			res.HasCV = true
		}
	}

	res.TrainingTime = time.Since(start)
	return res, nil
}

// crossValidate runs expanding-window folds over the training split and
// returns the mean and population standard deviation of the fold MAEs.
func (t *Trainer) crossValidate(kind models.Kind, x mat.Matrix, y []float64) (float64, float64, error) {
	n, _ := x.Dims()
	folds, err := models.TimeSeriesCVSplit(n, cvFolds)
	if err != nil {
		return 0, 0, err
	}

	maes := make([]float64, 0, len(folds))
	for _, fold := range folds {
		pipe, err := models.NewPipeline(kind)
		if err != nil {
			return 0, 0, err
		}
		xf := rowSlice(x, 0, fold.TrainEnd)
		yf := y[:fold.TrainEnd]
		if err := pipe.Fit(xf, mat.NewDense(fold.TrainEnd, 1, yf)); err != nil {
			return 0, 0, err
		}
		pred, err := pipe.Predict(rowSlice(x, fold.TrainEnd, fold.TestEnd))
		if err != nil {
			return 0, 0, err
		}
		maes = append(maes, mae(pred, y[fold.TrainEnd:fold.TestEnd]))
	}

	var mean float64
	for _, m := range maes {
		mean += m
	}
	mean /= float64(len(maes))
	var variance float64
	for _, m := range maes {
		d := m - mean
		variance += d * d
	}
	variance /= float64(len(maes))
	return mean, math.Sqrt(variance), nil
}

// splitBounds computes the time-ordered train/test boundaries. When the
// test fraction rounds down to an empty split, the last 10% of the rows
// are carved out of the training range and held out for evaluation so
// scoring never runs on zero samples and never on rows the model saw.
func splitBounds(rows int, testFraction float64) (trainEnd, testStart, testEnd int) {
	trainEnd = rows - int(float64(rows)*testFraction)
	if trainEnd < 1 {
		trainEnd = 1
	}
	if trainEnd >= rows {
		testStart = rows - int(math.Ceil(float64(rows)*0.1))
		if testStart < 1 {
			testStart = 1
		}
		trainEnd = testStart
		return trainEnd, testStart, rows
	}
	return trainEnd, trainEnd, rows
}

// rowSlice returns a view of rows [from, to) of x.
func rowSlice(x mat.Matrix, from, to int) mat.Matrix {
	d, ok := x.(*mat.Dense)
	if ok {
		return d.Slice(from, to, 0, d.RawMatrix().Cols)
	}
	_, cols := x.Dims()
	out := mat.NewDense(to-from, cols, nil)
	for i := from; i < to; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i-from, j, x.At(i, j))
		}
	}
	return out
}
