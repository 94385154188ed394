package models

import "errors"

var ErrTooFewCVSamples = errors.New("not enough samples for the requested number of folds")

// CVFold is one expanding-window fold: the model trains on rows
// [0, TrainEnd) and validates on rows [TrainEnd, TestEnd).
type CVFold struct {
	TrainEnd int
	TestEnd  int
}

// TimeSeriesCVSplit produces forward-chaining folds over n time-ordered
// rows. The rows are split into folds+1 contiguous blocks; fold i trains
// on the first i+1 blocks and validates on block i+2. Later rows are never
// used to train a model validated on earlier rows.
func TimeSeriesCVSplit(n, folds int) ([]CVFold, error) {
	if folds < 2 {
		return nil, errors.New("at least 2 folds required")
	}
	blockSize := n / (folds + 1)
	if blockSize < 1 {
		return nil, ErrTooFewCVSamples
	}
	out := make([]CVFold, 0, folds)
	for i := 0; i < folds; i++ {
		trainEnd := (i + 1) * blockSize
		testEnd := (i + 2) * blockSize
		if i == folds-1 {
			testEnd = n
		}
		out = append(out, CVFold{TrainEnd: trainEnd, TestEnd: testEnd})
	}
	return out, nil
}
