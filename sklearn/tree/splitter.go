package tree

import (
	"math"
	"sort"
)

// splitter searches the best axis-aligned cut of a node's samples.
type splitter struct {
	data      []float64 // row-major training matrix
	stride    int
	nFeatures int
	labels    []int
	nClasses  int

	minSamplesLeaf  int
	minSamplesSplit int

	pairs []valueLabel
	left  []int
	right []int
}

type valueLabel struct {
	value float64
	label int
}

type split struct {
	feature   int
	threshold float64
	impurity  float64 // sample-weighted Gini of the two children
}

func newSplitter(data []float64, stride, nFeatures int, labels []int, nClasses, minSamplesLeaf, minSamplesSplit int) *splitter {
	return &splitter{
		data:            data,
		stride:          stride,
		nFeatures:       nFeatures,
		labels:          labels,
		nClasses:        nClasses,
		minSamplesLeaf:  minSamplesLeaf,
		minSamplesSplit: minSamplesSplit,
		pairs:           make([]valueLabel, len(labels)),
		left:            make([]int, nClasses),
		right:           make([]int, nClasses),
	}
}

func (s *splitter) value(row, feature int) float64 {
	return s.data[row*s.stride+feature]
}

// bestSplit returns the cut with the lowest weighted child Gini that is
// strictly below parentImpurity. Features are scanned in index order and cuts
// left to right; a later candidate only wins with a strictly lower score, so
// the first feature and the first cut win ties.
func (s *splitter) bestSplit(rows []int, parentCounts []int, parentImpurity float64) (split, bool) {
	m := len(rows)
	if m <= s.minSamplesLeaf || m < s.minSamplesSplit {
		return split{}, false
	}

	best := split{feature: -1, impurity: parentImpurity}
	pairs := s.pairs[:m]
	fm := float64(m)

	for f := 0; f < s.nFeatures; f++ {
		for k, r := range rows {
			pairs[k] = valueLabel{value: s.value(r, f), label: s.labels[r]}
		}
		sort.Slice(pairs, func(a, b int) bool {
			if pairs[a].value != pairs[b].value {
				return pairs[a].value < pairs[b].value
			}
			return pairs[a].label < pairs[b].label
		})

		for c := range s.left {
			s.left[c] = 0
		}
		copy(s.right, parentCounts)

		for i := 1; i < m; i++ {
			c := pairs[i-1].label
			s.left[c]++
			s.right[c]--

			// equal values cannot be separated by a threshold
			if pairs[i].value == pairs[i-1].value {
				continue
			}

			g := (float64(i)*giniFromCounts(s.left, i) + float64(m-i)*giniFromCounts(s.right, m-i)) / fm
			if g < best.impurity {
				best = split{
					feature:   f,
					threshold: midpoint(pairs[i-1].value, pairs[i].value),
					impurity:  g,
				}
			}
		}
	}

	return best, best.feature >= 0
}

// midpoint returns a threshold t with lo < t <= hi. When (lo+hi)/2 rounds
// onto lo (adjacent floats) or overflows, hi itself is used.
func midpoint(lo, hi float64) float64 {
	mid := (lo + hi) / 2
	if mid <= lo || mid > hi || math.IsInf(mid, 0) {
		return hi
	}
	return mid
}
