package services

import (
	"math"

	"github.com/soaringjerry/psyscore/internal/catalog"
)

const (
	minTScore = 30
	maxTScore = 90
)

// ZScore standardises score against a norm. A norm with no spread yields 0.
func ZScore(score float64, n catalog.Norm) float64 {
	if n.SD <= 0 {
		return 0
	}
	return (score - n.Mean) / n.SD
}

// TScore converts a z-score to the 50/10 T scale clamped to [30, 90].
func TScore(z float64) int {
	t := int(math.Round(50 + 10*z))
	if t < minTScore {
		return minTScore
	}
	if t > maxTScore {
		return maxTScore
	}
	return t
}

// Percentile is the coarse step approximation used on the printed report.
func Percentile(z float64) int {
	switch {
	case z <= -2:
		return 2
	case z <= -1:
		return 16
	case z <= 0:
		return 50
	case z <= 1:
		return 84
	case z <= 2:
		return 98
	default:
		return 99
	}
}

// normScores returns T-score and percentile pointers, or nils when there is
// no norm.
func normScores(score float64, n *catalog.Norm) (*int, *int) {
	if n == nil {
		return nil, nil
	}
	z := ZScore(score, *n)
	t, p := TScore(z), Percentile(z)
	return &t, &p
}
