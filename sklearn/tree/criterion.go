package tree

// CriterionGini is the only supported split criterion.
const CriterionGini = "gini"

// GiniImpurity returns 1 - Σ_c (n_c/m)² for the given labels over nClasses
// classes. Labels outside [0, nClasses) are ignored; an empty set has
// impurity 0.
func GiniImpurity(labels []int, nClasses int) float64 {
	if nClasses < 1 {
		return 0
	}
	counts := make([]int, nClasses)
	m := 0
	for _, l := range labels {
		if l >= 0 && l < nClasses {
			counts[l]++
			m++
		}
	}
	return giniFromCounts(counts, m)
}

func giniFromCounts(counts []int, m int) float64 {
	if m == 0 {
		return 0
	}
	sum := 0.0
	fm := float64(m)
	for _, n := range counts {
		p := float64(n) / fm
		sum += p * p
	}
	return 1.0 - sum
}
