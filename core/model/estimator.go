package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。y は N×1 の整数ラベル。
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行い、N×1 のラベル行列を返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator は学習状態を持つモデルのインターフェース
type Estimator interface {
	Fitter
	IsFitted() bool
}
