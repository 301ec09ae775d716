// Package log defines standard attribute keys for machine learning operations.
//
// Keys follow a hierarchical naming convention (e.g. "model.name",
// "data.samples") so that logs from different estimators can be filtered the
// same way.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of machine learning model.
	// Examples: "DecisionTreeClassifier", "RandomForestClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the machine learning operation being performed.
	// Standard values: "fit", "predict", "predict_proba", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of distinct class labels.
	ClassesKey = "data.classes"
)

// Tree and ensemble shape
const (
	// TreesKey records the number of trees in an ensemble.
	TreesKey = "ensemble.trees"

	// DepthKey records the depth of a fitted tree.
	DepthKey = "tree.depth"

	// LeavesKey records the number of leaves of a fitted tree.
	LeavesKey = "tree.leaves"

	// WorkersKey records the number of goroutines used by a parallel operation.
	WorkersKey = "infra.workers"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"

	// OOBScoreKey records the out-of-bag accuracy of a bagged ensemble.
	OOBScoreKey = "metrics.oob_score"
)

// Error and Warning Context
const (
	// ErrorKey holds the error value passed to Logger.Error.
	ErrorKey = "error"

	// ErrorTypeKey categorizes the type of error or warning encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationPredictProba = "predict_proba"
	OperationScore        = "score"

	PhaseTraining  = "training"
	PhaseInference = "inference"
)
