package services

import "github.com/soaringjerry/psyscore/internal/catalog"

// Classification is the band a score falls into.
type Classification struct {
	catalog.Band
	// Rank orders bands from 0 (lowest) upward, so higher is more severe.
	Rank int
}

// Classify returns the first band (tables are ordered by descending min)
// whose threshold the score reaches. Scores below every threshold fall into
// the last band.
func Classify(table []catalog.Band, score float64) Classification {
	if len(table) == 0 {
		return Classification{}
	}
	for i, b := range table {
		if score >= b.Min {
			return Classification{Band: b, Rank: len(table) - 1 - i}
		}
	}
	return Classification{Band: table[len(table)-1]}
}
