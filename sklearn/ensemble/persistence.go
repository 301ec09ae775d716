package ensemble

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/scitree/core/model"
	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/YuminosukeSato/scitree/sklearn/tree"
)

type forestSnapshot struct {
	NEstimators     int
	MaxDepth        int
	DepthLimited    bool
	MinSamplesLeaf  int
	MinSamplesSplit int
	Bootstrap       bool
	OOBScore        bool
	NJobs           int
	RandomState     int64
	NClassesHint    int

	State     model.ModelState
	Trees     []*tree.DecisionTreeClassifier
	Samples   [][]int
	NClasses  int
	NFeatures int
	OOB       float64
	OOBDone   bool
}

// GobEncode implements gob.GobEncoder. An injected random source is not
// saved.
func (rf *RandomForestClassifier) GobEncode() ([]byte, error) {
	rf.mu.RLock()
	defer rf.mu.RUnlock()

	snap := forestSnapshot{
		NEstimators:     rf.nEstimators,
		MaxDepth:        rf.maxDepth,
		DepthLimited:    rf.depthLimited,
		MinSamplesLeaf:  rf.minSamplesLeaf,
		MinSamplesSplit: rf.minSamplesSplit,
		Bootstrap:       rf.bootstrap,
		OOBScore:        rf.oobScore,
		NJobs:           rf.nJobs,
		RandomState:     rf.randomState,
		NClassesHint:    rf.nClassesHint,
		State:           rf.state.GetState(),
		Trees:           rf.estimators_,
		Samples:         rf.estimatorsSamples_,
		NClasses:        rf.nClasses_,
		NFeatures:       rf.nFeatures_,
		OOB:             rf.oobScore_,
		OOBDone:         rf.oobComputed_,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, scierrors.Wrap(err, "failed to encode RandomForestClassifier")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (rf *RandomForestClassifier) GobDecode(data []byte) error {
	var snap forestSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return scierrors.Wrap(err, "failed to decode RandomForestClassifier")
	}
	if snap.State.Fitted && len(snap.Trees) == 0 {
		return scierrors.NewModelError("ensemble.GobDecode", "fitted snapshot has no estimators", nil)
	}
	for t, dt := range snap.Trees {
		if dt == nil || !dt.IsFitted() || dt.NClasses() != snap.NClasses || dt.NFeatures() != snap.NFeatures {
			return scierrors.NewModelError("ensemble.GobDecode", "estimator does not match the forest",
				scierrors.Newf("estimator %d", t))
		}
	}

	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.state == nil {
		rf.state = model.NewStateManager()
	}
	rf.nEstimators = snap.NEstimators
	rf.maxDepth = snap.MaxDepth
	rf.depthLimited = snap.DepthLimited
	rf.minSamplesLeaf = snap.MinSamplesLeaf
	rf.minSamplesSplit = snap.MinSamplesSplit
	rf.bootstrap = snap.Bootstrap
	rf.oobScore = snap.OOBScore
	rf.nJobs = snap.NJobs
	rf.randomState = snap.RandomState
	rf.nClassesHint = snap.NClassesHint
	rf.estimators_ = snap.Trees
	rf.estimatorsSamples_ = snap.Samples
	rf.nClasses_ = snap.NClasses
	rf.nFeatures_ = snap.NFeatures
	rf.oobScore_ = snap.OOB
	rf.oobComputed_ = snap.OOBDone
	rf.state.SetState(snap.State)
	return nil
}
