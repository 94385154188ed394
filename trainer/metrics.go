package trainer

import (
	"errors"
	"fmt"
	"math"
)

var ErrMetricLenMismatch = errors.New("predicted values does not have the same length as actual values")

// Metrics are the regression scores computed on a single evaluation split.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	MAPE float64 `json:"mape"`
	R2   float64 `json:"r2"`
}

// Score computes all metrics for a prediction against its actuals.
func Score(pred, actual []float64) (Metrics, error) {
	if len(pred) != len(actual) {
		return Metrics{}, fmt.Errorf("%d predicted, %d actual, %w", len(pred), len(actual), ErrMetricLenMismatch)
	}
	if len(pred) == 0 {
		return Metrics{}, errors.New("cannot score empty slices")
	}
	return Metrics{
		MAE:  mae(pred, actual),
		RMSE: rmse(pred, actual),
		MAPE: mape(pred, actual),
		R2:   r2(pred, actual),
	}, nil
}

func mae(pred, actual []float64) float64 {
	var sum float64
	for i := range pred {
		sum += math.Abs(pred[i] - actual[i])
	}
	return sum / float64(len(pred))
}

func rmse(pred, actual []float64) float64 {
	var sum float64
	for i := range pred {
		d := pred[i] - actual[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(pred)))
}

// mape averages absolute percentage error over the samples whose actual
// value is non-zero. All-zero actuals score 0 rather than dividing by zero.
func mape(pred, actual []float64) float64 {
	var sum float64
	var n int
	for i := range pred {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - pred[i]) / actual[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) * 100
}

// r2 is the coefficient of determination. A constant actual series has no
// variance to explain, so it scores 1.0 when the fit is exact and is
// otherwise dominated by the residual term.
func r2(pred, actual []float64) float64 {
	var mean float64
	for _, a := range actual {
		mean += a
	}
	mean /= float64(len(actual))

	var ssRes, ssTot float64
	for i := range pred {
		d := actual[i] - pred[i]
		ssRes += d * d
		t := actual[i] - mean
		ssTot += t * t
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1.0
		}
		return 0.0
	}
	return 1.0 - ssRes/ssTot
}
