package tree

import (
	"bytes"
	"encoding/gob"

	"github.com/YuminosukeSato/scitree/core/model"
	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
)

// flatNode is a Node with children replaced by indices into a pre-order
// slice; -1 marks a missing child.
type flatNode struct {
	Impurity       float64
	NSamples       int
	ClassCounts    []int
	PredictedClass int
	Feature        int
	Threshold      float64
	Left, Right    int
}

type treeSnapshot struct {
	Criterion       string
	MaxDepth        int
	DepthLimited    bool
	MinSamplesSplit int
	MinSamplesLeaf  int
	NClassesHint    int

	State     model.ModelState
	Nodes     []flatNode
	NClasses  int
	NFeatures int
	Depth     int
	NLeaves   int
}

func flatten(root *Node) []flatNode {
	if root == nil {
		return nil
	}
	var nodes []flatNode
	index := make(map[*Node]int)
	root.walk(func(n *Node, _ int) {
		index[n] = len(nodes)
		nodes = append(nodes, flatNode{
			Impurity:       n.Impurity,
			NSamples:       n.NSamples,
			ClassCounts:    n.ClassCounts,
			PredictedClass: n.PredictedClass,
			Feature:        n.Feature,
			Threshold:      n.Threshold,
			Left:           -1,
			Right:          -1,
		})
	})
	for n, i := range index {
		if !n.IsLeaf() {
			nodes[i].Left = index[n.Left]
			nodes[i].Right = index[n.Right]
		}
	}
	return nodes
}

// unflatten rebuilds the tree, attaching children through setChildren so a
// corrupted snapshot cannot produce a half-built node. Every node must fit
// the label space and every split must address an existing feature, since
// Predict indexes both without further checks.
func unflatten(nodes []flatNode, nClasses, nFeatures int) (*Node, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	built := make([]*Node, len(nodes))
	for i, fn := range nodes {
		if err := checkFlatNode(i, fn, nClasses, nFeatures); err != nil {
			return nil, err
		}
		built[i] = &Node{
			Impurity:       fn.Impurity,
			NSamples:       fn.NSamples,
			ClassCounts:    fn.ClassCounts,
			PredictedClass: fn.PredictedClass,
			Feature:        -1,
		}
	}
	// pre-order puts every child after its parent
	for i := len(nodes) - 1; i >= 0; i-- {
		fn := nodes[i]
		if fn.Left < 0 && fn.Right < 0 {
			continue
		}
		if fn.Left <= i || fn.Right <= i || fn.Left >= len(nodes) || fn.Right >= len(nodes) {
			return nil, scierrors.NewModelError("tree.GobDecode", "invalid child index", nil)
		}
		if err := built[i].setChildren(fn.Feature, fn.Threshold, built[fn.Left], built[fn.Right]); err != nil {
			return nil, err
		}
	}
	return built[0], nil
}

func checkFlatNode(i int, fn flatNode, nClasses, nFeatures int) error {
	const op = "tree.GobDecode"
	switch {
	case fn.NSamples < 1:
		return scierrors.NewModelError(op, "invalid node",
			scierrors.Newf("node %d has %d samples", i, fn.NSamples))
	case len(fn.ClassCounts) != nClasses:
		return scierrors.NewModelError(op, "invalid node",
			scierrors.Newf("node %d has %d class counts, want %d", i, len(fn.ClassCounts), nClasses))
	case fn.PredictedClass < 0 || fn.PredictedClass >= nClasses:
		return scierrors.NewModelError(op, "invalid node",
			scierrors.Newf("node %d predicts class %d outside [0, %d)", i, fn.PredictedClass, nClasses))
	}
	internal := fn.Left >= 0 || fn.Right >= 0
	if internal && (fn.Feature < 0 || fn.Feature >= nFeatures) {
		return scierrors.NewModelError(op, "invalid node",
			scierrors.Newf("node %d splits on feature %d outside [0, %d)", i, fn.Feature, nFeatures))
	}
	return nil
}

// GobEncode implements gob.GobEncoder.
func (dt *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	snap := treeSnapshot{
		Criterion:       dt.criterion,
		MaxDepth:        dt.maxDepth,
		DepthLimited:    dt.depthLimited,
		MinSamplesSplit: dt.minSamplesSplit,
		MinSamplesLeaf:  dt.minSamplesLeaf,
		NClassesHint:    dt.nClassesHint,
		State:           dt.state.GetState(),
		Nodes:           flatten(dt.root),
		NClasses:        dt.nClasses_,
		NFeatures:       dt.nFeatures_,
		Depth:           dt.depth_,
		NLeaves:         dt.nLeaves_,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil, scierrors.Wrap(err, "failed to encode DecisionTreeClassifier")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeClassifier) GobDecode(data []byte) error {
	var snap treeSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return scierrors.Wrap(err, "failed to decode DecisionTreeClassifier")
	}
	root, err := unflatten(snap.Nodes, snap.NClasses, snap.NFeatures)
	if err != nil {
		return err
	}
	if snap.State.Fitted && root == nil {
		return scierrors.NewModelError("tree.GobDecode", "fitted snapshot has no nodes", nil)
	}

	dt.mu.Lock()
	defer dt.mu.Unlock()

	if dt.state == nil {
		dt.state = model.NewStateManager()
	}
	dt.criterion = snap.Criterion
	dt.maxDepth = snap.MaxDepth
	dt.depthLimited = snap.DepthLimited
	dt.minSamplesSplit = snap.MinSamplesSplit
	dt.minSamplesLeaf = snap.MinSamplesLeaf
	dt.nClassesHint = snap.NClassesHint
	dt.root = root
	dt.nClasses_ = snap.NClasses
	dt.nFeatures_ = snap.NFeatures
	dt.depth_ = snap.Depth
	dt.nLeaves_ = snap.NLeaves
	dt.state.SetState(snap.State)
	return nil
}
