package ensemble

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand"
	"testing"

	"github.com/YuminosukeSato/scitree/core/model"
	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/YuminosukeSato/scitree/pkg/log"
	"github.com/YuminosukeSato/scitree/sklearn/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// separableData returns 20 points, 10 per class, separated along feature 0
// between 4.5 and 5.5.
func separableData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(20, 2, nil)
	y := mat.NewDense(20, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i)*0.5)
		X.Set(i, 1, float64(i%3))
		X.Set(10+i, 0, 5.5+float64(i)*0.5)
		X.Set(10+i, 1, float64(i%3))
		y.Set(10+i, 0, 1)
	}
	return X, y
}

func blobData(rng *rand.Rand, perClass, classes int) (*mat.Dense, *mat.Dense) {
	n := perClass * classes
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		c := i % classes
		X.Set(i, 0, float64(c)*4+rng.NormFloat64())
		X.Set(i, 1, float64(c)*-3+rng.NormFloat64())
		y.Set(i, 0, float64(c))
	}
	return X, y
}

func TestMajorityVote(t *testing.T) {
	tests := []struct {
		name        string
		predictions [][]int
		nClasses    int
		want        []int
	}{
		{
			name: "three trees",
			predictions: [][]int{
				{0, 0, 1},
				{0, 1, 1},
				{0, 1, 1},
			},
			nClasses: 2,
			want:     []int{0, 1, 1},
		},
		{
			name:        "even tie goes to the lowest label",
			predictions: [][]int{{0, 1}, {1, 0}},
			nClasses:    2,
			want:        []int{0, 0},
		},
		{
			name:        "multiclass tie",
			predictions: [][]int{{2}, {1}, {2}, {1}, {0}},
			nClasses:    3,
			want:        []int{1},
		},
		{
			name:        "single tree",
			predictions: [][]int{{2, 0, 1}},
			nClasses:    3,
			want:        []int{2, 0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MajorityVote(tt.predictions, tt.nClasses)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMajorityVote_Errors(t *testing.T) {
	_, err := MajorityVote(nil, 2)
	assert.True(t, scierrors.IsInvalidInput(err))

	_, err = MajorityVote([][]int{{0, 1}, {0}}, 2)
	assert.True(t, scierrors.IsInvalidInput(err))

	_, err = MajorityVote([][]int{{0, 2}}, 2)
	assert.True(t, scierrors.IsInvalidInput(err))

	_, err = MajorityVote([][]int{{0}}, 0)
	assert.True(t, scierrors.IsInvalidConfiguration(err))
}

func TestRandomForestClassifier_Defaults(t *testing.T) {
	rf := NewRandomForestClassifier()
	params := rf.GetParams()
	assert.Equal(t, 100, params["n_estimators"])
	assert.Equal(t, 10, params["max_depth"])
	assert.Equal(t, 1, params["min_samples_leaf"])
	assert.Equal(t, true, params["bootstrap"])
	assert.Equal(t, 1, params["n_jobs"])
	assert.False(t, rf.IsFitted())
}

func TestRandomForestClassifier_FitPredict(t *testing.T) {
	X, y := separableData()

	rf := NewRandomForestClassifier(WithNEstimators(25), WithRandomState(42))
	require.NoError(t, rf.Fit(X, y))

	assert.Len(t, rf.Estimators(), 25)
	assert.Equal(t, 2, rf.NClasses())
	assert.Equal(t, 2, rf.NFeatures())
	assert.GreaterOrEqual(t, rf.Score(X, y), 0.95)

	labels, err := rf.PredictLabels(mat.NewDense(2, 2, []float64{0, 0, 10, 0}))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, labels)

	for _, dt := range rf.Estimators() {
		assert.Equal(t, 2, dt.NClasses())
		assert.LessOrEqual(t, dt.GetDepth(), 10)
	}
}

func TestRandomForestClassifier_Multiclass(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	X, y := blobData(rng, 30, 3)

	rf := NewRandomForestClassifier(WithNEstimators(15), WithRandomState(7), WithMaxDepth(4))
	require.NoError(t, rf.Fit(X, y))
	assert.Equal(t, 3, rf.NClasses())
	assert.Greater(t, rf.Score(X, y), 0.9)

	probas, err := rf.PredictProba(X)
	require.NoError(t, err)
	rows, cols := probas.Dims()
	require.Equal(t, 90, rows)
	require.Equal(t, 3, cols)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			p := probas.At(i, j)
			assert.True(t, p >= 0 && p <= 1+1e-12)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestRandomForestClassifier_NClasses(t *testing.T) {
	X, y := separableData()

	rf := NewRandomForestClassifier(WithNEstimators(5), WithRandomState(1), WithNClasses(3))
	require.NoError(t, rf.Fit(X, y))
	assert.Equal(t, 3, rf.NClasses())
	for _, est := range rf.Estimators() {
		assert.Equal(t, 3, est.NClasses())
	}

	proba, err := rf.PredictProba(X)
	require.NoError(t, err)
	r, c := proba.Dims()
	assert.Equal(t, 3, c)
	for i := 0; i < r; i++ {
		assert.Equal(t, 0.0, proba.At(i, 2), "unseen class gets no probability")
	}

	err = NewRandomForestClassifier(WithNEstimators(1), WithNClasses(1)).Fit(X, y)
	require.Error(t, err)
	assert.True(t, scierrors.IsInvalidInput(err))
}

func TestRandomForestClassifier_SingleTreeBootstrap(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	X, y := blobData(rng, 25, 2)
	n, _ := X.Dims()

	rf := NewRandomForestClassifier(WithNEstimators(1), WithRandomState(3))
	require.NoError(t, rf.Fit(X, y))

	root := rf.Estimators()[0].Root()
	assert.Equal(t, n, root.NSamples)

	samples := rf.EstimatorsSamples()
	require.Len(t, samples, 1)
	require.Len(t, samples[0], n)

	// the tree was fitted on the resample, not on the original rows
	seen := make(map[int]bool)
	counts := make([]int, 2)
	for _, i := range samples[0] {
		assert.True(t, i >= 0 && i < n)
		seen[i] = true
		counts[int(y.At(i, 0))]++
	}
	assert.Less(t, len(seen), n, "a bootstrap sample of 50 rows repeats rows")
	assert.Equal(t, counts, root.ClassCounts)
}

func TestRandomForestClassifier_NoBootstrap(t *testing.T) {
	X, y := separableData()

	rf := NewRandomForestClassifier(WithNEstimators(3), WithBootstrap(false), WithMaxDepth(1))
	require.NoError(t, rf.Fit(X, y))

	for _, s := range rf.EstimatorsSamples() {
		for i, idx := range s {
			assert.Equal(t, i, idx)
		}
	}
	trees := rf.Estimators()
	assert.Equal(t, trees[0].Root(), trees[2].Root())
	assert.InDelta(t, 5.0, trees[0].Root().Threshold, 1e-12)
	assert.Equal(t, 1.0, rf.Score(X, y))
}

func TestRandomForestClassifier_Determinism(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	X, y := blobData(rng, 40, 3)

	fit := func(opts ...ForestOption) *RandomForestClassifier {
		rf := NewRandomForestClassifier(append([]ForestOption{WithNEstimators(12), WithRandomState(123)}, opts...)...)
		require.NoError(t, rf.Fit(X, y))
		return rf
	}

	serial := fit(WithNJobs(1))
	parallel := fit(WithNJobs(4))
	all := fit(WithNJobs(-1))

	assert.Equal(t, serial.EstimatorsSamples(), parallel.EstimatorsSamples())
	assert.Equal(t, serial.EstimatorsSamples(), all.EstimatorsSamples())

	want, err := serial.PredictLabels(X)
	require.NoError(t, err)
	got, err := parallel.PredictLabels(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// refitting with the same seed reproduces the forest
	require.NoError(t, serial.Fit(X, y))
	again, err := serial.PredictLabels(X)
	require.NoError(t, err)
	assert.Equal(t, want, again)

	// Predict is idempotent
	first, err := parallel.Predict(X)
	require.NoError(t, err)
	second, err := parallel.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(first, second))
}

func TestRandomForestClassifier_InjectedRand(t *testing.T) {
	X, y := separableData()

	a := NewRandomForestClassifier(WithNEstimators(4), WithRand(rand.New(rand.NewSource(77))))
	b := NewRandomForestClassifier(WithNEstimators(4), WithRand(rand.New(rand.NewSource(77))))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.EstimatorsSamples(), b.EstimatorsSamples())

	// the injected source keeps advancing across fits
	first := a.EstimatorsSamples()
	require.NoError(t, a.Fit(X, y))
	assert.NotEqual(t, first, a.EstimatorsSamples())
}

func TestRandomForestClassifier_OOBScore(t *testing.T) {
	X, y := separableData()

	rf := NewRandomForestClassifier(WithNEstimators(50), WithRandomState(1), WithOOBScore(true))
	require.NoError(t, rf.Fit(X, y))

	score, err := rf.OOBScore()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.8)
	assert.LessOrEqual(t, score, 1.0)

	_, err = NewRandomForestClassifier().OOBScore()
	assert.True(t, scierrors.IsNotFitted(err))

	plain := NewRandomForestClassifier(WithNEstimators(2), WithRandomState(1))
	require.NoError(t, plain.Fit(X, y))
	_, err = plain.OOBScore()
	assert.True(t, scierrors.IsInvalidConfiguration(err))

	// the flag describes the last fit, not the current setting
	require.NoError(t, plain.SetParams(map[string]interface{}{"oob_score": true}))
	_, err = plain.OOBScore()
	assert.True(t, scierrors.IsInvalidConfiguration(err))

	require.NoError(t, rf.SetParams(map[string]interface{}{"oob_score": false}))
	again, err := rf.OOBScore()
	require.NoError(t, err)
	assert.Equal(t, score, again)
}

func TestRandomForestClassifier_SetParamsIsAtomic(t *testing.T) {
	rf := NewRandomForestClassifier(WithNEstimators(5))
	err := rf.SetParams(map[string]interface{}{
		"n_estimators": 9,
		"n_jobs":       4,
		"bootstrap":    "no",
	})
	require.Error(t, err)
	assert.True(t, scierrors.IsInvalidConfiguration(err))

	params := rf.GetParams()
	assert.Equal(t, 5, params["n_estimators"])
	assert.Equal(t, 1, params["n_jobs"])
	assert.Equal(t, true, params["bootstrap"])
}

func TestRandomForestClassifier_OOBWarning(t *testing.T) {
	provider, _ := log.NewTestLoggerProvider(log.LevelDebug)
	prev := log.SetProvider(provider)
	defer log.SetProvider(prev)

	X, y := separableData()

	// a single bootstrap sample of 20 rows always leaves some rows in bag
	rf := NewRandomForestClassifier(WithNEstimators(1), WithRandomState(2), WithOOBScore(true))
	require.NoError(t, rf.Fit(X, y))

	assert.True(t, provider.Logger().ContainsMessage("samples have no out-of-bag prediction"))
	assert.True(t, provider.Logger().ContainsField(log.ErrorTypeKey, "*errors.OOBWarning"))

	score, err := rf.OOBScore()
	require.NoError(t, err)
	assert.False(t, math.IsNaN(score), "some rows are always out of bag")
}

func TestRandomForestClassifier_ConfigurationErrors(t *testing.T) {
	X, y := separableData()

	tests := []struct {
		name string
		opts []ForestOption
	}{
		{"zero trees", []ForestOption{WithNEstimators(0)}},
		{"negative max_depth", []ForestOption{WithMaxDepth(-1)}},
		{"min_samples_leaf", []ForestOption{WithMinSamplesLeaf(0)}},
		{"min_samples_split", []ForestOption{WithMinSamplesSplit(1)}},
		{"oob without bootstrap", []ForestOption{WithBootstrap(false), WithOOBScore(true)}},
		{"negative n_classes", []ForestOption{WithNClasses(-2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf := NewRandomForestClassifier(tt.opts...)
			err := rf.Fit(X, y)
			require.Error(t, err)
			assert.True(t, scierrors.IsInvalidConfiguration(err), "got %v", err)
			assert.False(t, rf.IsFitted())
		})
	}
}

func TestRandomForestClassifier_InputErrors(t *testing.T) {
	rf := NewRandomForestClassifier(WithNEstimators(3), WithRandomState(0))

	err := rf.Fit(&mat.Dense{}, &mat.Dense{})
	require.Error(t, err)
	assert.True(t, scierrors.IsInvalidInput(err))
	assert.True(t, scierrors.Is(err, scierrors.ErrEmptyData))

	X, y := separableData()
	err = rf.Fit(X, mat.NewDense(10, 1, nil))
	assert.True(t, scierrors.IsInvalidInput(err))

	_, err = rf.Predict(X)
	assert.True(t, scierrors.IsNotFitted(err))
	_, err = rf.PredictProba(X)
	assert.True(t, scierrors.IsNotFitted(err))

	require.NoError(t, rf.Fit(X, y))
	_, err = rf.Predict(mat.NewDense(1, 3, nil))
	assert.True(t, scierrors.IsInvalidInput(err))
	_, err = rf.PredictProba(mat.NewDense(1, 1, nil))
	assert.True(t, scierrors.IsInvalidInput(err))
	assert.Equal(t, 0.0, rf.Score(mat.NewDense(1, 1, nil), mat.NewDense(1, 1, nil)))
}

func TestRandomForestClassifier_FailedFitKeepsPreviousForest(t *testing.T) {
	X, y := separableData()
	rf := NewRandomForestClassifier(WithNEstimators(5), WithRandomState(4))
	require.NoError(t, rf.Fit(X, y))
	before := rf.Estimators()

	bad := mat.DenseCopyOf(y)
	bad.Set(0, 0, 0.5)
	require.Error(t, rf.Fit(X, bad))
	assert.True(t, rf.IsFitted())
	assert.Equal(t, before, rf.Estimators())
}

func TestRandomForestClassifier_GetSetParams(t *testing.T) {
	rf := NewRandomForestClassifier()
	err := rf.SetParams(map[string]interface{}{
		"n_estimators":     7,
		"max_depth":        nil,
		"min_samples_leaf": 2,
		"bootstrap":        false,
		"n_jobs":           -1,
		"random_state":     int64(9),
		"n_classes":        2,
	})
	require.NoError(t, err)

	params := rf.GetParams()
	assert.Equal(t, 7, params["n_estimators"])
	assert.Nil(t, params["max_depth"])
	assert.Equal(t, 2, params["min_samples_leaf"])
	assert.Equal(t, false, params["bootstrap"])
	assert.Equal(t, -1, params["n_jobs"])
	assert.Equal(t, int64(9), params["random_state"])
	assert.Equal(t, 2, params["n_classes"])

	assert.True(t, scierrors.IsInvalidConfiguration(rf.SetParams(map[string]interface{}{"bootstrap": "yes"})))
	assert.True(t, scierrors.IsInvalidConfiguration(rf.SetParams(map[string]interface{}{"max_features": 2})))

	X, y := separableData()
	require.NoError(t, rf.Fit(X, y))
	assert.Len(t, rf.Estimators(), 7)
}

func TestRandomForestClassifier_GobDecodeRejectsMismatchedEstimator(t *testing.T) {
	X, y := separableData()
	rf := NewRandomForestClassifier(WithNEstimators(2), WithRandomState(3))
	require.NoError(t, rf.Fit(X, y))

	data, err := rf.GobEncode()
	require.NoError(t, err)
	var snap forestSnapshot
	require.NoError(t, gob.NewDecoder(bytes.NewReader(data)).Decode(&snap))

	narrow := tree.NewDecisionTreeClassifier()
	require.NoError(t, narrow.Fit(mat.NewDense(2, 1, []float64{0, 1}), mat.NewDense(2, 1, []float64{0, 1})))
	snap.Trees[1] = narrow

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(snap))

	loaded := NewRandomForestClassifier()
	err = loaded.GobDecode(buf.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "estimator 1")
	assert.False(t, loaded.IsFitted())
}

func TestRandomForestClassifier_Persistence(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	X, y := blobData(rng, 20, 3)

	rf := NewRandomForestClassifier(WithNEstimators(6), WithRandomState(8), WithOOBScore(true))
	require.NoError(t, rf.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(rf, &buf))

	loaded := NewRandomForestClassifier()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))

	assert.True(t, loaded.IsFitted())
	assert.Equal(t, rf.GetParams(), loaded.GetParams())
	assert.Equal(t, rf.EstimatorsSamples(), loaded.EstimatorsSamples())

	want, err := rf.PredictLabels(X)
	require.NoError(t, err)
	got, err := loaded.PredictLabels(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	wantOOB, err := rf.OOBScore()
	require.NoError(t, err)
	gotOOB, err := loaded.OOBScore()
	require.NoError(t, err)
	if math.IsNaN(wantOOB) {
		assert.True(t, math.IsNaN(gotOOB))
	} else {
		assert.Equal(t, wantOOB, gotOOB)
	}
}

func TestRandomForestClassifier_Logging(t *testing.T) {
	provider, _ := log.NewTestLoggerProvider(log.LevelInfo)
	prev := log.SetProvider(provider)
	defer log.SetProvider(prev)

	X, y := separableData()
	rf := NewRandomForestClassifier(WithNEstimators(3), WithRandomState(5), WithNJobs(2))
	require.NoError(t, rf.Fit(X, y))

	logger := provider.Logger()
	assert.True(t, logger.ContainsMessage("Training completed"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "RandomForestClassifier"))
	assert.True(t, logger.ContainsField(log.ComponentKey, "ensemble.forest"))
	assert.True(t, logger.ContainsField(log.TreesKey, 3.0))
	assert.True(t, logger.ContainsField(log.WorkersKey, 2.0))
}
