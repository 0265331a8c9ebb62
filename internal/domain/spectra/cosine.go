package spectra

import "math"

// CosineGreedy scores two spectra by exact greedy peak matching: every peak
// of a is matched at most once to the closest unmatched peak of b within the
// m/z tolerance, and the score is the dot product of the matched
// L2-normalized intensities. The result lies in [0, 1].
func CosineGreedy(a, b Spectrum, tolDa float64) float64 {
	if len(a.PeaksMZ) == 0 || len(b.PeaksMZ) == 0 {
		return 0.0
	}

	normA := l2Normalize(a.PeaksInt)
	normB := l2Normalize(b.PeaksInt)
	if normA == nil || normB == nil {
		return 0.0
	}

	used := make([]bool, len(b.PeaksMZ))
	var score float64

	for i, m1 := range a.PeaksMZ {
		bestJ := -1
		minDist := tolDa
		for j, m2 := range b.PeaksMZ {
			if used[j] {
				continue
			}
			if dist := math.Abs(m1 - m2); dist <= minDist {
				minDist = dist
				bestJ = j
			}
		}
		if bestJ >= 0 {
			score += normA[i] * normB[bestJ]
			used[bestJ] = true
		}
	}
	return score
}

// l2Normalize returns the unit-norm copy of xs, or nil for a zero vector.
func l2Normalize(xs []float64) []float64 {
	var ss float64
	for _, v := range xs {
		ss += v * v
	}
	if ss == 0 {
		return nil
	}
	norm := math.Sqrt(ss)
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = v / norm
	}
	return out
}
