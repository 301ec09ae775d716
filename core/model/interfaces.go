// Package model provides the interfaces shared by scitree estimators, their
// fitted-state bookkeeping and gob persistence helpers.
package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the mean accuracy on the given data and labels.
	Score(X, y mat.Matrix) float64
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Predictor
	Scorer

	// PredictProba returns probability estimates for each class.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// PredictLabels returns the predicted class of every row as ints.
	PredictLabels(X mat.Matrix) ([]int, error)

	// NClasses returns the size of the label space seen during fitting.
	NClasses() int
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// ParameterizedClassifier is a classifier whose hyperparameters can be read
// and written by name, as the CLI does with its YAML config.
type ParameterizedClassifier interface {
	Classifier
	ParameterGetter
	ParameterSetter
}
