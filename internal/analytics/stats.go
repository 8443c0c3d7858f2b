package analytics

import (
	"math"
	"sort"
)

// ctxCheckInterval is how many records are processed between cancellation checks.
const ctxCheckInterval = 4096

// pearson computes the Pearson correlation coefficient. It reports false with
// fewer than two points or when either series has zero variance.
func pearson(x, y []float64) (float64, bool) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, false
	}

	var sumX, sumY float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(len(x))
	meanY := sumY / float64(len(y))

	var sumXY, sumXX, sumYY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sumXY += dx * dy
		sumXX += dx * dx
		sumYY += dy * dy
	}
	if sumXX == 0 || sumYY == 0 {
		return 0, false
	}

	r := sumXY / math.Sqrt(sumXX*sumYY)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	// Rounding can push |r| a hair past 1.
	return math.Max(-1, math.Min(1, r)), true
}

// quantileBands assigns each value a band in [1, k] by rank, weakest first.
// Equal values share the band of their lowest rank position.
func quantileBands(strength []float64, k int) []int {
	n := len(strength)
	bands := make([]int, n)
	if n == 0 {
		return bands
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return strength[order[a]] < strength[order[b]]
	})

	groupStart := 0
	for pos, idx := range order {
		if pos > 0 && strength[idx] != strength[order[pos-1]] {
			groupStart = pos
		}
		bands[idx] = groupStart*k/n + 1
	}
	return bands
}

// emptyBands lists the bands in [1, k] with no members.
func emptyBands(bands []int, k int) []int {
	seen := make([]bool, k+1)
	for _, b := range bands {
		seen[b] = true
	}
	var empty []int
	for b := 1; b <= k; b++ {
		if !seen[b] {
			empty = append(empty, b)
		}
	}
	return empty
}

func floatPtr(v float64) *float64 {
	return &v
}
