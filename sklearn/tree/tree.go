// Package tree implements a CART decision tree classifier with Gini impurity.
//
// The tree is grown greedily: every node searches all features for the
// threshold that minimizes the sample-weighted Gini impurity of its two
// children, and splits only when that improves on its own impurity.
//
// Example:
//
//	dt := tree.NewDecisionTreeClassifier(tree.WithMaxDepth(3))
//	if err := dt.Fit(X, y); err != nil {
//	    return err
//	}
//	predictions, err := dt.Predict(XTest)
package tree

import (
	"fmt"
	"sync"
	"time"

	"github.com/YuminosukeSato/scitree/core/model"
	"github.com/YuminosukeSato/scitree/core/parallel"
	"github.com/YuminosukeSato/scitree/metrics"
	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/YuminosukeSato/scitree/pkg/log"
	"github.com/YuminosukeSato/scitree/pkg/validation"
	"gonum.org/v1/gonum/mat"
)

const modelName = "DecisionTreeClassifier"

// parallelRowThreshold is the row count above which prediction routes rows
// through goroutines.
const parallelRowThreshold = 2048

var _ model.ParameterizedClassifier = (*DecisionTreeClassifier)(nil)

// DecisionTreeClassifier is a CART classifier. The fitted tree is immutable
// and replaced wholesale by every successful Fit.
type DecisionTreeClassifier struct {
	state *model.StateManager
	mu    sync.RWMutex

	// Hyperparameters
	criterion       string
	maxDepth        int
	depthLimited    bool // false means grow until no split improves impurity
	minSamplesSplit int
	minSamplesLeaf  int
	nClassesHint    int // 0 means infer from y

	// Fitted attributes
	root       *Node
	nClasses_  int
	nFeatures_ int
	depth_     int
	nLeaves_   int
}

// TreeOption configures a DecisionTreeClassifier.
type TreeOption func(*DecisionTreeClassifier)

// WithCriterion sets the split criterion. Only "gini" is supported; anything
// else is rejected by Fit.
func WithCriterion(criterion string) TreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth bounds the depth of the tree. Depth 0 yields a single leaf.
func WithMaxDepth(depth int) TreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
		dt.depthLimited = true
	}
}

// WithUnlimitedDepth removes any depth bound (the default).
func WithUnlimitedDepth() TreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = -1
		dt.depthLimited = false
	}
}

// WithMinSamplesSplit sets the minimum number of samples a node needs to be
// considered for splitting.
func WithMinSamplesSplit(n int) TreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets min_samples_leaf: a node holding this many samples
// or fewer is never split.
func WithMinSamplesLeaf(n int) TreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithNClasses fixes the size of the label space instead of inferring it
// from y. Ensembles use it so that every member tree reports the same
// number of classes even when a bootstrap sample misses one.
func WithNClasses(n int) TreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.nClassesHint = n
	}
}

// NewDecisionTreeClassifier creates a classifier. Without options it uses the
// Gini criterion, unlimited depth, min_samples_split=2 and min_samples_leaf=1.
func NewDecisionTreeClassifier(opts ...TreeOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       CriterionGini,
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

func (dt *DecisionTreeClassifier) validateParams() error {
	if dt.criterion != CriterionGini {
		return scierrors.NewValidationError("criterion", "only \"gini\" is supported", dt.criterion)
	}
	if dt.depthLimited && dt.maxDepth < 0 {
		return scierrors.NewValidationError("max_depth", "must be non-negative", dt.maxDepth)
	}
	if dt.minSamplesLeaf < 1 {
		return scierrors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	if dt.minSamplesSplit < 2 {
		return scierrors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.nClassesHint < 0 {
		return scierrors.NewValidationError("n_classes", "must be non-negative", dt.nClassesHint)
	}
	return nil
}

func (dt *DecisionTreeClassifier) logger() log.Logger {
	return log.GetLoggerWithName("tree.classifier").With(log.ModelNameKey, modelName)
}

// Fit grows the tree from X (N×F) and y (N×1 integral labels in
// [0, n_classes)). Inputs are validated before any state changes, so a failed
// Fit leaves a previous fit intact.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer scierrors.Recover(&err, "DecisionTreeClassifier.Fit")
	const op = "DecisionTreeClassifier.Fit"

	dt.mu.Lock()
	defer dt.mu.Unlock()

	if err := dt.validateParams(); err != nil {
		return err
	}
	labels, nFeatures, err := validation.CheckXy(op, X, y)
	if err != nil {
		return err
	}
	nClasses, err := validation.ResolveNClasses(op, labels, dt.nClassesHint)
	if err != nil {
		return err
	}

	logger := dt.logger()
	logger.Debug("Fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(labels),
		log.FeaturesKey, nFeatures,
		log.ClassesKey, nClasses,
	)
	start := time.Now()

	data := mat.DenseCopyOf(X).RawMatrix()
	root, depth, leaves, err := dt.grow(data.Data, data.Stride, nFeatures, labels, nClasses)
	if err != nil {
		return err
	}

	dt.root = root
	dt.nClasses_ = nClasses
	dt.nFeatures_ = nFeatures
	dt.depth_ = depth
	dt.nLeaves_ = leaves
	dt.state.SetDimensions(nFeatures, len(labels))
	dt.state.SetFitted()

	logger.Debug("Training completed",
		log.OperationKey, log.OperationFit,
		log.DepthKey, depth,
		log.LeavesKey, leaves,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

type buildItem struct {
	node  *Node
	rows  []int
	depth int
}

// grow builds the tree with an explicit work stack. It returns the root, the
// depth of the deepest node and the number of leaves.
func (dt *DecisionTreeClassifier) grow(data []float64, stride, nFeatures int, labels []int, nClasses int) (*Node, int, int, error) {
	sp := newSplitter(data, stride, nFeatures, labels, nClasses, dt.minSamplesLeaf, dt.minSamplesSplit)

	rows := make([]int, len(labels))
	for i := range rows {
		rows[i] = i
	}
	root := newLeaf(countClasses(labels, rows, nClasses), len(rows))

	var (
		maxDepth int
		leaves   int
	)
	stack := []buildItem{{node: root, rows: rows, depth: 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if it.depth > maxDepth {
			maxDepth = it.depth
		}
		if dt.depthLimited && it.depth >= dt.maxDepth {
			leaves++
			continue
		}

		best, ok := sp.bestSplit(it.rows, it.node.ClassCounts, it.node.Impurity)
		if !ok {
			leaves++
			continue
		}

		// partition in place: left = x[f] < threshold
		i, j := 0, len(it.rows)
		for i < j {
			if data[it.rows[i]*stride+best.feature] < best.threshold {
				i++
			} else {
				j--
				it.rows[i], it.rows[j] = it.rows[j], it.rows[i]
			}
		}
		leftRows, rightRows := it.rows[:i], it.rows[i:]

		left := newLeaf(countClasses(labels, leftRows, nClasses), len(leftRows))
		right := newLeaf(countClasses(labels, rightRows, nClasses), len(rightRows))
		if err := it.node.setChildren(best.feature, best.threshold, left, right); err != nil {
			return nil, 0, 0, err
		}

		stack = append(stack,
			buildItem{node: right, rows: rightRows, depth: it.depth + 1},
			buildItem{node: left, rows: leftRows, depth: it.depth + 1},
		)
	}

	return root, maxDepth, leaves, nil
}

func countClasses(labels, rows []int, nClasses int) []int {
	counts := make([]int, nClasses)
	for _, r := range rows {
		counts[labels[r]]++
	}
	return counts
}

// applyLeaves validates X and returns the leaf every row falls into.
func (dt *DecisionTreeClassifier) applyLeaves(method string, X mat.Matrix) ([]*Node, error) {
	if err := dt.state.RequireFitted(modelName, method); err != nil {
		return nil, err
	}
	nSamples, err := validation.CheckPredictX(modelName+"."+method, X, dt.nFeatures_)
	if err != nil {
		return nil, err
	}

	leaves := make([]*Node, nSamples)
	parallel.ParallelizeWithThreshold(nSamples, parallelRowThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			row := i
			leaves[i] = dt.root.leafFor(func(f int) float64 { return X.At(row, f) })
		}
	})
	return leaves, nil
}

// Predict returns an N×1 matrix of predicted class labels.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	leaves, err := dt.applyLeaves("Predict", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(leaves), 1, nil)
	for i, leaf := range leaves {
		out.Set(i, 0, float64(leaf.PredictedClass))
	}
	return out, nil
}

// PredictLabels returns the predicted class of every row.
func (dt *DecisionTreeClassifier) PredictLabels(X mat.Matrix) ([]int, error) {
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	leaves, err := dt.applyLeaves("PredictLabels", X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(leaves))
	for i, leaf := range leaves {
		out[i] = leaf.PredictedClass
	}
	return out, nil
}

// PredictProba returns an N×n_classes matrix of leaf class frequencies.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	leaves, err := dt.applyLeaves("PredictProba", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(leaves), dt.nClasses_, nil)
	for i, leaf := range leaves {
		n := float64(leaf.NSamples)
		for c, count := range leaf.ClassCounts {
			out.Set(i, c, scierrors.SafeDivide(float64(count), n))
		}
	}
	return out, nil
}

// Score returns the mean accuracy on X and y. Invalid input or an unfitted
// model is logged and scores 0.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err == nil {
		var acc float64
		if acc, err = metrics.AccuracyMatrix(y, pred); err == nil {
			return acc
		}
	}
	dt.logger().Error("Score failed", err, log.OperationKey, log.OperationScore)
	return 0
}

// IsFitted reports whether Fit has succeeded at least once.
func (dt *DecisionTreeClassifier) IsFitted() bool {
	return dt.state.IsFitted()
}

// Root returns the fitted root node, nil before Fit. Callers must not modify
// the returned tree.
func (dt *DecisionTreeClassifier) Root() *Node {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.root
}

// GetDepth returns the depth of the deepest node; a single leaf has depth 0.
func (dt *DecisionTreeClassifier) GetDepth() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.depth_
}

// GetNLeaves returns the number of leaves.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.nLeaves_
}

// NClasses returns the size of the label space seen during fitting.
func (dt *DecisionTreeClassifier) NClasses() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.nClasses_
}

// NFeatures returns the number of features seen during fitting.
func (dt *DecisionTreeClassifier) NFeatures() int {
	dt.mu.RLock()
	defer dt.mu.RUnlock()
	return dt.nFeatures_
}

// GetParams returns the hyperparameters. max_depth is nil when unlimited.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	var maxDepth interface{}
	if dt.depthLimited {
		maxDepth = dt.maxDepth
	}
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"n_classes":         dt.nClassesHint,
	}
}

// SetParams sets hyperparameters by name. Values are checked for type here
// and for range by the next Fit.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	dt.mu.Lock()
	defer dt.mu.Unlock()

	criterion := dt.criterion
	maxDepth, depthLimited := dt.maxDepth, dt.depthLimited
	minSamplesSplit, minSamplesLeaf := dt.minSamplesSplit, dt.minSamplesLeaf
	nClassesHint := dt.nClassesHint

	for key, value := range params {
		switch key {
		case "criterion":
			s, ok := value.(string)
			if !ok {
				return scierrors.NewValidationError(key, "must be a string", value)
			}
			criterion = s
		case "max_depth":
			if value == nil {
				maxDepth, depthLimited = -1, false
				continue
			}
			n, err := IntParam(key, value)
			if err != nil {
				return err
			}
			maxDepth, depthLimited = n, true
		case "min_samples_split", "min_samples_leaf", "n_classes":
			n, err := IntParam(key, value)
			if err != nil {
				return err
			}
			switch key {
			case "min_samples_split":
				minSamplesSplit = n
			case "min_samples_leaf":
				minSamplesLeaf = n
			case "n_classes":
				nClassesHint = n
			}
		default:
			return scierrors.NewValidationError(key, "unknown parameter", value)
		}
	}

	dt.criterion = criterion
	dt.maxDepth, dt.depthLimited = maxDepth, depthLimited
	dt.minSamplesSplit, dt.minSamplesLeaf = minSamplesSplit, minSamplesLeaf
	dt.nClassesHint = nClassesHint
	return nil
}

// IntParam converts a parameter value decoded from Go code, YAML or JSON into
// an int.
func IntParam(name string, value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return 0, scierrors.NewValidationError(name, "must be an integer", value)
}

// String summarizes the fitted tree.
func (dt *DecisionTreeClassifier) String() string {
	if !dt.IsFitted() {
		return modelName + "(unfitted)"
	}
	return fmt.Sprintf("%s(depth=%d, leaves=%d, classes=%d, features=%d)",
		modelName, dt.GetDepth(), dt.GetNLeaves(), dt.NClasses(), dt.NFeatures())
}
