package tree

import (
	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
)

// Node is one node of a fitted decision tree. A node is a leaf iff both
// children are nil; internal nodes always carry Feature/Threshold and both
// children.
type Node struct {
	// Impurity is the Gini impurity of the samples that reached the node.
	Impurity float64
	// NSamples is the number of training samples that reached the node.
	NSamples int
	// ClassCounts holds per-class sample counts, indexed by label.
	ClassCounts []int
	// PredictedClass is the majority class, lowest label on ties.
	PredictedClass int

	// Feature is the split feature index, -1 on leaves.
	Feature int
	// Threshold routes samples left when x[Feature] < Threshold.
	Threshold float64

	Left  *Node
	Right *Node
}

// newLeaf summarizes a label multiset as a leaf node.
func newLeaf(counts []int, nSamples int) *Node {
	return &Node{
		Impurity:       giniFromCounts(counts, nSamples),
		NSamples:       nSamples,
		ClassCounts:    counts,
		PredictedClass: argmaxCount(counts),
		Feature:        -1,
	}
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// setChildren turns a leaf into an internal node in a single step. Both
// children are required and their sample counts must add up to the parent's.
func (n *Node) setChildren(feature int, threshold float64, left, right *Node) error {
	if left == nil || right == nil {
		return scierrors.NewModelError("tree.setChildren", "both children are required", nil)
	}
	if !n.IsLeaf() {
		return scierrors.NewModelError("tree.setChildren", "node already has children", nil)
	}
	if left.NSamples+right.NSamples != n.NSamples {
		return scierrors.NewModelError("tree.setChildren",
			"children do not partition the parent's samples",
			scierrors.Newf("%d + %d != %d", left.NSamples, right.NSamples, n.NSamples))
	}
	n.Feature = feature
	n.Threshold = threshold
	n.Left = left
	n.Right = right
	return nil
}

// leafFor descends from n to the leaf that x falls into.
func (n *Node) leafFor(x func(feature int) float64) *Node {
	node := n
	for !node.IsLeaf() {
		if x(node.Feature) < node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// walk visits every node below n in pre-order, left before right.
func (n *Node) walk(fn func(node *Node, depth int)) {
	type item struct {
		node  *Node
		depth int
	}
	stack := []item{{n, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(it.node, it.depth)
		if !it.node.IsLeaf() {
			stack = append(stack, item{it.node.Right, it.depth + 1}, item{it.node.Left, it.depth + 1})
		}
	}
}

// argmaxCount returns the index of the largest count, lowest index on ties.
func argmaxCount(counts []int) int {
	best := 0
	for c := 1; c < len(counts); c++ {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
