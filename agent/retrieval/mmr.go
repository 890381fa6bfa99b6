package retrieval

import "math"

// CosineSimilarity returns 0 for mismatched or zero-length vectors.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// MaximalMarginalRelevance picks up to k candidate indexes, trading
// similarity to the query (weight lambda) against similarity to what has
// already been picked (weight 1-lambda). The most relevant candidate always
// comes first.
func MaximalMarginalRelevance(query []float64, candidates [][]float64, lambda float64, k int) []int {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = CosineSimilarity(query, c)
	}

	selected := make([]int, 0, k)
	picked := make([]bool, len(candidates))

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range candidates {
			if picked[i] {
				continue
			}
			redundancy := 0.0
			if len(selected) > 0 {
				redundancy = math.Inf(-1)
			}
			for _, j := range selected {
				if sim := CosineSimilarity(candidates[i], candidates[j]); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*relevance[i] - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
		if best < 0 {
			break
		}
		picked[best] = true
		selected = append(selected, best)
	}
	return selected
}
