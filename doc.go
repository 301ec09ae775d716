// Package scitree provides CART decision tree and random forest classifiers
// for Go with a scikit-learn-like API.
//
// Models take gonum matrices: X is N×F with finite values, y is an N×1 column
// of integral class labels in [0, C). Missing values are rejected, never
// imputed.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/scitree/sklearn/ensemble"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(6, 1, []float64{1, 2, 3, 7, 8, 9})
//	    y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
//
//	    rf := ensemble.NewRandomForestClassifier(
//	        ensemble.WithNEstimators(50),
//	        ensemble.WithRandomState(42),
//	        ensemble.WithNJobs(-1), // Use all CPU cores
//	    )
//	    if err := rf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    labels, err := rf.PredictLabels(mat.NewDense(2, 1, []float64{2.5, 8.5}))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("Predictions:", labels)
//	}
//
// # Packages
//
//   - sklearn/tree: DecisionTreeClassifier (Gini impurity, greedy best split)
//   - sklearn/ensemble: RandomForestClassifier (bootstrap + majority vote)
//   - metrics: accuracy and confusion matrix
//   - datasets: CSV loading, synthetic blobs, train/test split
//   - core/model: shared interfaces, fitted-state tracking, gob persistence
//   - core/parallel: worker pool used to fit and query trees
//   - pkg/errors: error categories (InvalidInput, NotFitted, InvalidConfiguration)
//   - pkg/log: structured logging backed by zerolog
//
// # Error Handling
//
// Every error belongs to one category and can be tested with errors.Is:
//
//	if err := rf.Fit(X, y); err != nil {
//	    switch {
//	    case errors.IsInvalidInput(err):
//	        // empty data, dimension mismatch, bad labels, NaN features
//	    case errors.IsInvalidConfiguration(err):
//	        // bad hyperparameters
//	    }
//	}
//
// The scitree command (cmd/scitree) trains, evaluates and applies forests on
// CSV files.
package scitree
