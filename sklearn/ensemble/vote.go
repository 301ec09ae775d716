package ensemble

import (
	"fmt"

	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// MajorityVote aggregates per-estimator predictions. predictions[t][i] is the
// label estimator t assigned to row i. For every row the most frequent label
// wins; among tied labels the lowest one wins.
func MajorityVote(predictions [][]int, nClasses int) ([]int, error) {
	const op = "MajorityVote"
	if len(predictions) == 0 {
		return nil, scierrors.NewEmptyDataError(op)
	}
	if nClasses < 1 {
		return nil, scierrors.NewValidationError("n_classes", "must be at least 1", nClasses)
	}
	nRows := len(predictions[0])
	for t, p := range predictions {
		if len(p) != nRows {
			return nil, scierrors.NewDimensionError(op, nRows, len(p), 0)
		}
		for i, label := range p {
			if label < 0 || label >= nClasses {
				return nil, scierrors.NewValueError(op,
					fmt.Sprintf("estimator %d predicted label %d for row %d, outside [0, %d)", t, label, i, nClasses))
			}
		}
	}

	votes := make([]float64, nClasses)
	out := make([]int, nRows)
	for i := 0; i < nRows; i++ {
		for c := range votes {
			votes[c] = 0
		}
		for _, p := range predictions {
			votes[p[i]]++
		}
		// MaxIdx returns the first index among equal maxima
		out[i] = floats.MaxIdx(votes)
	}
	return out, nil
}
