// Package ensemble implements a random forest classifier: bagged CART trees
// combined by majority vote.
//
// Bootstrap indices for every tree are drawn up front from a single seeded
// source, so a fitted forest depends only on the data, the hyperparameters
// and the seed, never on how many workers fit the trees.
//
// Example:
//
//	rf := ensemble.NewRandomForestClassifier(
//	    ensemble.WithNEstimators(50),
//	    ensemble.WithRandomState(42),
//	    ensemble.WithNJobs(-1),
//	)
//	if err := rf.Fit(X, y); err != nil {
//	    return err
//	}
//	labels, err := rf.PredictLabels(XTest)
package ensemble

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/YuminosukeSato/scitree/core/model"
	"github.com/YuminosukeSato/scitree/core/parallel"
	"github.com/YuminosukeSato/scitree/metrics"
	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/YuminosukeSato/scitree/pkg/log"
	"github.com/YuminosukeSato/scitree/pkg/validation"
	"github.com/YuminosukeSato/scitree/sklearn/tree"
	"gonum.org/v1/gonum/mat"
)

const modelName = "RandomForestClassifier"

var _ model.ParameterizedClassifier = (*RandomForestClassifier)(nil)

// RandomForestClassifier fits nEstimators independent decision trees on
// bootstrap resamples and predicts by majority vote.
type RandomForestClassifier struct {
	state *model.StateManager
	mu    sync.RWMutex

	// Hyperparameters
	nEstimators     int
	maxDepth        int
	depthLimited    bool
	minSamplesLeaf  int
	minSamplesSplit int
	bootstrap       bool
	oobScore        bool
	nJobs           int
	randomState     int64 // negative means seed from the clock
	rand            *rand.Rand
	nClassesHint    int

	// Fitted attributes
	estimators_        []*tree.DecisionTreeClassifier
	estimatorsSamples_ [][]int
	nClasses_          int
	nFeatures_         int
	oobScore_          float64
	oobComputed_       bool
}

// ForestOption configures a RandomForestClassifier.
type ForestOption func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nEstimators = n
	}
}

// WithMaxDepth bounds the depth of every tree.
func WithMaxDepth(depth int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = depth
		rf.depthLimited = true
	}
}

// WithUnlimitedDepth lets every tree grow until no split improves impurity.
func WithUnlimitedDepth() ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.maxDepth = -1
		rf.depthLimited = false
	}
}

// WithMinSamplesLeaf sets min_samples_leaf for every tree.
func WithMinSamplesLeaf(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesLeaf = n
	}
}

// WithMinSamplesSplit sets min_samples_split for every tree.
func WithMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.minSamplesSplit = n
	}
}

// WithBootstrap toggles bootstrap resampling. Without it every tree sees the
// full training set.
func WithBootstrap(bootstrap bool) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.bootstrap = bootstrap
	}
}

// WithOOBScore enables out-of-bag accuracy estimation during Fit.
func WithOOBScore(enabled bool) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.oobScore = enabled
	}
}

// WithNClasses declares the size of the label space. Labels absent from a
// particular training set still get a slot in PredictProba.
func WithNClasses(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nClassesHint = n
	}
}

// WithNJobs sets the number of goroutines used to fit and query trees.
// -1 uses every CPU.
func WithNJobs(n int) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.nJobs = n
	}
}

// WithRandomState seeds the bootstrap draws. Every Fit reseeds, so repeated
// fits on the same data produce the same forest.
func WithRandomState(seed int64) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.randomState = seed
	}
}

// WithRand injects the random source used for bootstrap draws. It takes
// precedence over WithRandomState and is consumed across fits.
func WithRand(r *rand.Rand) ForestOption {
	return func(rf *RandomForestClassifier) {
		rf.rand = r
	}
}

// NewRandomForestClassifier creates a forest. Defaults: 100 trees, max depth
// 10, min_samples_leaf 1, min_samples_split 2, bootstrap on, one worker.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		maxDepth:        10,
		depthLimited:    true,
		minSamplesLeaf:  1,
		minSamplesSplit: 2,
		bootstrap:       true,
		nJobs:           1,
		randomState:     -1,
		oobScore_:       math.NaN(),
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

func (rf *RandomForestClassifier) validateParams() error {
	if rf.nEstimators < 1 {
		return scierrors.NewValidationError("n_estimators", "must be at least 1", rf.nEstimators)
	}
	if rf.depthLimited && rf.maxDepth < 0 {
		return scierrors.NewValidationError("max_depth", "must be non-negative", rf.maxDepth)
	}
	if rf.minSamplesLeaf < 1 {
		return scierrors.NewValidationError("min_samples_leaf", "must be at least 1", rf.minSamplesLeaf)
	}
	if rf.minSamplesSplit < 2 {
		return scierrors.NewValidationError("min_samples_split", "must be at least 2", rf.minSamplesSplit)
	}
	if rf.nClassesHint < 0 {
		return scierrors.NewValidationError("n_classes", "must be non-negative", rf.nClassesHint)
	}
	if rf.oobScore && !rf.bootstrap {
		return scierrors.NewValidationError("oob_score", "out-of-bag estimation requires bootstrap", rf.oobScore)
	}
	return nil
}

func (rf *RandomForestClassifier) logger() log.Logger {
	return log.GetLoggerWithName("ensemble.forest").With(log.ModelNameKey, modelName)
}

func (rf *RandomForestClassifier) source() *rand.Rand {
	if rf.rand != nil {
		return rf.rand
	}
	seed := rf.randomState
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func (rf *RandomForestClassifier) treeOptions(nClasses int) []tree.TreeOption {
	opts := []tree.TreeOption{
		tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
		tree.WithMinSamplesSplit(rf.minSamplesSplit),
		tree.WithNClasses(nClasses),
	}
	if rf.depthLimited {
		opts = append(opts, tree.WithMaxDepth(rf.maxDepth))
	}
	return opts
}

// drawSamples returns one index set per tree. All draws happen here, on the
// calling goroutine, before any tree is fitted.
func (rf *RandomForestClassifier) drawSamples(nSamples int) [][]int {
	samples := make([][]int, rf.nEstimators)
	if !rf.bootstrap {
		all := make([]int, nSamples)
		for i := range all {
			all[i] = i
		}
		for t := range samples {
			samples[t] = all
		}
		return samples
	}

	rng := rf.source()
	for t := range samples {
		idx := make([]int, nSamples)
		for i := range idx {
			idx[i] = rng.Intn(nSamples)
		}
		samples[t] = idx
	}
	return samples
}

// resample materializes the rows of data and labels selected by idx.
func resample(data *mat.Dense, labels []int, idx []int) (*mat.Dense, *mat.Dense) {
	_, nFeatures := data.Dims()
	Xb := mat.NewDense(len(idx), nFeatures, nil)
	yb := mat.NewDense(len(idx), 1, nil)
	for r, i := range idx {
		Xb.SetRow(r, data.RawRowView(i))
		yb.Set(r, 0, float64(labels[i]))
	}
	return Xb, yb
}

// Fit draws the bootstrap samples, fits one tree per sample and, when
// enabled, computes the out-of-bag score. A failed Fit leaves a previous
// fit intact.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer scierrors.Recover(&err, "RandomForestClassifier.Fit")
	const op = "RandomForestClassifier.Fit"

	rf.mu.Lock()
	defer rf.mu.Unlock()

	if err := rf.validateParams(); err != nil {
		return err
	}
	labels, nFeatures, err := validation.CheckXy(op, X, y)
	if err != nil {
		return err
	}
	nClasses, err := validation.ResolveNClasses(op, labels, rf.nClassesHint)
	if err != nil {
		return err
	}

	workers := parallel.Workers(rf.nJobs)
	logger := rf.logger()
	logger.Debug("Fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(labels),
		log.FeaturesKey, nFeatures,
		log.ClassesKey, nClasses,
		log.TreesKey, rf.nEstimators,
		log.WorkersKey, workers,
		log.RandomSeedKey, rf.randomState,
	)
	start := time.Now()

	data := mat.DenseCopyOf(X)
	samples := rf.drawSamples(len(labels))
	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)

	err = parallel.ForEach(rf.nEstimators, workers, func(t int) error {
		Xb, yb := resample(data, labels, samples[t])
		dt := tree.NewDecisionTreeClassifier(rf.treeOptions(nClasses)...)
		if err := dt.Fit(Xb, yb); err != nil {
			return scierrors.Wrapf(err, "fitting estimator %d", t)
		}
		trees[t] = dt
		return nil
	})
	if err != nil {
		logger.Error("Fit failed", err, log.OperationKey, log.OperationFit)
		return err
	}

	oob := math.NaN()
	if rf.oobScore {
		oob, err = computeOOB(data, labels, trees, samples, nClasses)
		if err != nil {
			return err
		}
	}

	rf.estimators_ = trees
	rf.estimatorsSamples_ = samples
	rf.nClasses_ = nClasses
	rf.nFeatures_ = nFeatures
	rf.oobScore_ = oob
	rf.oobComputed_ = rf.oobScore
	rf.state.SetDimensions(nFeatures, len(labels))
	rf.state.SetFitted()

	fields := []any{
		log.OperationKey, log.OperationFit,
		log.TreesKey, len(trees),
		log.WorkersKey, workers,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	if rf.oobScore && !math.IsNaN(oob) {
		fields = append(fields, log.OOBScoreKey, oob)
	}
	logger.Info("Training completed", fields...)
	return nil
}

// computeOOB scores every row with the trees whose bootstrap sample missed
// it. Rows that were in every sample are skipped and reported through an
// OOBWarning. The result is NaN when no row could be scored.
func computeOOB(data *mat.Dense, labels []int, trees []*tree.DecisionTreeClassifier, samples [][]int, nClasses int) (float64, error) {
	nSamples := len(labels)
	votes := make([][]int, nSamples)
	for i := range votes {
		votes[i] = make([]int, nClasses)
	}

	inBag := make([]bool, nSamples)
	for t, dt := range trees {
		for i := range inBag {
			inBag[i] = false
		}
		for _, i := range samples[t] {
			inBag[i] = true
		}

		var rows []int
		for i, in := range inBag {
			if !in {
				rows = append(rows, i)
			}
		}
		if len(rows) == 0 {
			continue
		}

		Xoob, _ := resample(data, labels, rows)
		pred, err := dt.PredictLabels(Xoob)
		if err != nil {
			return 0, err
		}
		for k, i := range rows {
			votes[i][pred[k]]++
		}
	}

	var scored, correct int
	for i, v := range votes {
		total := 0
		best := 0
		for c, n := range v {
			total += n
			if n > v[best] {
				best = c
			}
		}
		if total == 0 {
			continue
		}
		scored++
		if best == labels[i] {
			correct++
		}
	}

	if scored < nSamples {
		scierrors.Warn(scierrors.NewOOBWarning(nSamples-scored, nSamples, len(trees)))
	}
	if scored == 0 {
		return math.NaN(), nil
	}
	return scierrors.SafeDivide(float64(correct), float64(scored)), nil
}

// treePredictions returns predictions[t][i], the label of row i from tree t.
func (rf *RandomForestClassifier) treePredictions(method string, X mat.Matrix) ([][]int, error) {
	if err := rf.state.RequireFitted(modelName, method); err != nil {
		return nil, err
	}
	if _, err := validation.CheckPredictX(modelName+"."+method, X, rf.nFeatures_); err != nil {
		return nil, err
	}

	predictions := make([][]int, len(rf.estimators_))
	err := parallel.ForEach(len(rf.estimators_), parallel.Workers(rf.nJobs), func(t int) error {
		p, err := rf.estimators_[t].PredictLabels(X)
		if err != nil {
			return err
		}
		predictions[t] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return predictions, nil
}

// PredictLabels returns the majority-vote label of every row.
func (rf *RandomForestClassifier) PredictLabels(X mat.Matrix) ([]int, error) {
	rf.mu.RLock()
	defer rf.mu.RUnlock()

	predictions, err := rf.treePredictions("PredictLabels", X)
	if err != nil {
		return nil, err
	}
	return MajorityVote(predictions, rf.nClasses_)
}

// Predict returns an N×1 matrix of majority-vote labels.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	rf.mu.RLock()
	defer rf.mu.RUnlock()

	predictions, err := rf.treePredictions("Predict", X)
	if err != nil {
		return nil, err
	}
	labels, err := MajorityVote(predictions, rf.nClasses_)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(labels), 1, nil)
	for i, l := range labels {
		out.Set(i, 0, float64(l))
	}
	return out, nil
}

// PredictProba returns the mean of the trees' class probabilities.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	rf.mu.RLock()
	defer rf.mu.RUnlock()

	if err := rf.state.RequireFitted(modelName, "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, err := validation.CheckPredictX(modelName+".PredictProba", X, rf.nFeatures_)
	if err != nil {
		return nil, err
	}

	probas := make([]mat.Matrix, len(rf.estimators_))
	err = parallel.ForEach(len(rf.estimators_), parallel.Workers(rf.nJobs), func(t int) error {
		p, err := rf.estimators_[t].PredictProba(X)
		if err != nil {
			return err
		}
		probas[t] = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	sum := mat.NewDense(nSamples, rf.nClasses_, nil)
	for _, p := range probas {
		sum.Add(sum, p)
	}
	sum.Scale(1/float64(len(probas)), sum)
	return sum, nil
}

// Score returns the mean accuracy on X and y. Invalid input or an unfitted
// model is logged and scores 0.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := rf.Predict(X)
	if err == nil {
		var acc float64
		if acc, err = metrics.AccuracyMatrix(y, pred); err == nil {
			return acc
		}
	}
	rf.logger().Error("Score failed", err, log.OperationKey, log.OperationScore)
	return 0
}

// OOBScore returns the out-of-bag accuracy computed by the last Fit. It is
// NaN when no row was ever out of bag.
func (rf *RandomForestClassifier) OOBScore() (float64, error) {
	rf.mu.RLock()
	defer rf.mu.RUnlock()

	if err := rf.state.RequireFitted(modelName, "OOBScore"); err != nil {
		return 0, err
	}
	if !rf.oobComputed_ {
		return 0, scierrors.NewValidationError("oob_score", "out-of-bag estimation was not enabled for this fit", false)
	}
	return rf.oobScore_, nil
}

// IsFitted reports whether Fit has succeeded at least once.
func (rf *RandomForestClassifier) IsFitted() bool {
	return rf.state.IsFitted()
}

// Estimators returns the fitted trees in fitting order.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	rf.mu.RLock()
	defer rf.mu.RUnlock()
	out := make([]*tree.DecisionTreeClassifier, len(rf.estimators_))
	copy(out, rf.estimators_)
	return out
}

// EstimatorsSamples returns a copy of the row indices each tree was fitted on.
func (rf *RandomForestClassifier) EstimatorsSamples() [][]int {
	rf.mu.RLock()
	defer rf.mu.RUnlock()
	out := make([][]int, len(rf.estimatorsSamples_))
	for t, s := range rf.estimatorsSamples_ {
		out[t] = append([]int(nil), s...)
	}
	return out
}

// NClasses returns the size of the label space seen during fitting.
func (rf *RandomForestClassifier) NClasses() int {
	rf.mu.RLock()
	defer rf.mu.RUnlock()
	return rf.nClasses_
}

// NFeatures returns the number of features seen during fitting.
func (rf *RandomForestClassifier) NFeatures() int {
	rf.mu.RLock()
	defer rf.mu.RUnlock()
	return rf.nFeatures_
}

// GetParams returns the hyperparameters. max_depth is nil when unlimited.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	rf.mu.RLock()
	defer rf.mu.RUnlock()

	var maxDepth interface{}
	if rf.depthLimited {
		maxDepth = rf.maxDepth
	}
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"max_depth":         maxDepth,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"min_samples_split": rf.minSamplesSplit,
		"bootstrap":         rf.bootstrap,
		"oob_score":         rf.oobScore,
		"n_jobs":            rf.nJobs,
		"random_state":      rf.randomState,
		"n_classes":         rf.nClassesHint,
	}
}

// SetParams sets hyperparameters by name. Ranges are checked by the next Fit.
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	maxDepth, depthLimited := rf.maxDepth, rf.depthLimited
	bootstrap, oobScore := rf.bootstrap, rf.oobScore
	randomState := rf.randomState
	ints := map[string]int{
		"n_estimators":      rf.nEstimators,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"min_samples_split": rf.minSamplesSplit,
		"n_jobs":            rf.nJobs,
		"n_classes":         rf.nClassesHint,
	}

	for key, value := range params {
		switch key {
		case "max_depth":
			if value == nil {
				maxDepth, depthLimited = -1, false
				continue
			}
			n, err := tree.IntParam(key, value)
			if err != nil {
				return err
			}
			maxDepth, depthLimited = n, true
		case "bootstrap", "oob_score":
			b, ok := value.(bool)
			if !ok {
				return scierrors.NewValidationError(key, "must be a bool", value)
			}
			if key == "bootstrap" {
				bootstrap = b
			} else {
				oobScore = b
			}
		case "random_state":
			n, err := tree.IntParam(key, value)
			if err != nil {
				return err
			}
			randomState = int64(n)
		case "n_estimators", "min_samples_leaf", "min_samples_split", "n_jobs", "n_classes":
			n, err := tree.IntParam(key, value)
			if err != nil {
				return err
			}
			ints[key] = n
		default:
			return scierrors.NewValidationError(key, "unknown parameter", value)
		}
	}

	rf.maxDepth, rf.depthLimited = maxDepth, depthLimited
	rf.bootstrap, rf.oobScore = bootstrap, oobScore
	rf.nEstimators = ints["n_estimators"]
	rf.minSamplesLeaf = ints["min_samples_leaf"]
	rf.minSamplesSplit = ints["min_samples_split"]
	rf.nJobs = ints["n_jobs"]
	rf.randomState = randomState
	rf.nClassesHint = ints["n_classes"]
	return nil
}
