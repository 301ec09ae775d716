// Package metrics provides evaluation metrics for classifiers.
package metrics

import (
	"fmt"

	"github.com/YuminosukeSato/scitree/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Accuracy は正解率（一致したラベルの割合）を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewEmptyDataError("Accuracy")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// AccuracyMatrix は N×1 行列形式の入力に対して正解率を計算する
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewEmptyDataError("AccuracyMatrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 {
		return 0, errors.NewEmptyDataError("AccuracyMatrix")
	}
	if cTrue != 1 || cPred != 1 {
		return 0, errors.NewValueError("AccuracyMatrix", "must be a column vector (n×1 matrix)")
	}
	if rTrue != rPred {
		return 0, errors.NewDimensionError("AccuracyMatrix", rTrue, rPred, 0)
	}

	yTrueVec := mat.NewVecDense(rTrue, nil)
	yPredVec := mat.NewVecDense(rPred, nil)
	for i := 0; i < rTrue; i++ {
		yTrueVec.SetVec(i, yTrue.At(i, 0))
		yPredVec.SetVec(i, yPred.At(i, 0))
	}
	return Accuracy(yTrueVec, yPredVec)
}

// AccuracyLabels は整数ラベルのスライスに対して正解率を計算する
func AccuracyLabels(yTrue, yPred []int) (float64, error) {
	if len(yTrue) == 0 {
		return 0, errors.NewEmptyDataError("AccuracyLabels")
	}
	if len(yPred) != len(yTrue) {
		return 0, errors.NewDimensionError("AccuracyLabels", len(yTrue), len(yPred), 0)
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue)), nil
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, errors.Wrap(err, "ClassificationError")
	}
	return 1 - acc, nil
}

// ConfusionMatrix は nClasses×nClasses の混同行列を返す。
// 要素 (i, j) は真のクラスが i で予測が j のサンプル数。
func ConfusionMatrix(yTrue, yPred []int, nClasses int) (*mat.Dense, error) {
	if len(yTrue) == 0 {
		return nil, errors.NewEmptyDataError("ConfusionMatrix")
	}
	if len(yPred) != len(yTrue) {
		return nil, errors.NewDimensionError("ConfusionMatrix", len(yTrue), len(yPred), 0)
	}
	if nClasses < 1 {
		return nil, errors.NewValidationError("n_classes", "must be at least 1", nClasses)
	}

	cm := mat.NewDense(nClasses, nClasses, nil)
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= nClasses || p < 0 || p >= nClasses {
			return nil, errors.NewValueError("ConfusionMatrix",
				fmt.Sprintf("label pair (%d, %d) at row %d is outside [0, %d)", t, p, i, nClasses))
		}
		cm.Set(t, p, cm.At(t, p)+1)
	}
	return cm, nil
}
