// Package validation holds the input checks shared by every classifier in
// scitree. All failures are InvalidInput errors from pkg/errors.
package validation

import (
	"fmt"
	"math"

	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CheckX validates a feature matrix: non-nil, at least one row and one
// column, and every cell finite.
func CheckX(op string, X mat.Matrix) (nSamples, nFeatures int, err error) {
	if X == nil {
		return 0, 0, scierrors.NewValueError(op, "X must not be nil")
	}
	nSamples, nFeatures = X.Dims()
	if nSamples == 0 {
		return 0, 0, scierrors.NewEmptyDataError(op)
	}
	if nFeatures == 0 {
		return 0, 0, scierrors.NewValueError(op, "X must have at least one feature")
	}
	if err := scierrors.CheckMatrix(op, X, nSamples, nFeatures); err != nil {
		return 0, 0, err
	}
	return nSamples, nFeatures, nil
}

// CheckPredictX validates X for prediction against the feature count seen
// during fitting.
func CheckPredictX(op string, X mat.Matrix, nFeatures int) (int, error) {
	nSamples, got, err := CheckX(op, X)
	if err != nil {
		return 0, err
	}
	if got != nFeatures {
		return 0, scierrors.NewDimensionError(op, nFeatures, got, 1)
	}
	return nSamples, nil
}

// CheckLabels validates an N×1 label column and converts it to ints. Labels
// must be finite, integral and non-negative.
func CheckLabels(op string, y mat.Matrix, nSamples int) ([]int, error) {
	if y == nil {
		return nil, scierrors.NewValueError(op, "y must not be nil")
	}
	rows, cols := y.Dims()
	if rows == 0 {
		return nil, scierrors.NewEmptyDataError(op)
	}
	if cols != 1 {
		return nil, scierrors.NewDimensionError(op, 1, cols, 1)
	}
	if rows != nSamples {
		return nil, scierrors.NewDimensionError(op, nSamples, rows, 0)
	}

	labels := make([]int, rows)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, scierrors.NewValueError(op, fmt.Sprintf("label %v at row %d is not an integer class index", v, i))
		}
		if v < 0 {
			return nil, scierrors.NewValueError(op, fmt.Sprintf("label %v at row %d is negative", v, i))
		}
		labels[i] = int(v)
	}
	return labels, nil
}

// CheckXy runs CheckX and CheckLabels together.
func CheckXy(op string, X, y mat.Matrix) (labels []int, nFeatures int, err error) {
	nSamples, nFeatures, err := CheckX(op, X)
	if err != nil {
		return nil, 0, err
	}
	labels, err = CheckLabels(op, y, nSamples)
	if err != nil {
		return nil, 0, err
	}
	return labels, nFeatures, nil
}

// CountDistinct returns the number of distinct labels and the largest label.
func CountDistinct(labels []int) (distinct, maxLabel int) {
	seen := make(map[int]struct{}, 8)
	maxLabel = -1
	for _, l := range labels {
		seen[l] = struct{}{}
		if l > maxLabel {
			maxLabel = l
		}
	}
	return len(seen), maxLabel
}

// ResolveNClasses derives the size of the label space. With declared <= 0 it
// is the number of distinct labels; otherwise declared is used and must be at
// least that count. Either way every label must lie in [0, nClasses).
func ResolveNClasses(op string, labels []int, declared int) (int, error) {
	distinct, maxLabel := CountDistinct(labels)
	nClasses := distinct
	if declared > 0 {
		if declared < distinct {
			return 0, scierrors.NewValueError(op,
				fmt.Sprintf("n_classes=%d is smaller than the %d distinct labels in y", declared, distinct))
		}
		nClasses = declared
	}
	if maxLabel >= nClasses {
		return 0, scierrors.NewValueError(op,
			fmt.Sprintf("label %d is out of range: labels must lie in [0, %d)", maxLabel, nClasses))
	}
	return nClasses, nil
}
