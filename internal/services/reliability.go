package services

import "github.com/soaringjerry/psyscore/internal/catalog"

// FacetAlpha is the internal consistency of one facet over a batch.
type FacetAlpha struct {
	Facet       string  `json:"facet"`
	Alpha       float64 `json:"alpha"`
	Respondents int     `json:"respondents"`
}

// FacetReliability computes Cronbach's alpha per facet using only the
// respondents who answered every item of that facet. Values are reverse
// corrected before entering the matrix.
func FacetReliability(cat *catalog.Catalog, batch []Answers) ([]FacetAlpha, error) {
	out := make([]FacetAlpha, 0, len(cat.FacetNames()))
	for _, f := range cat.Facets() {
		var matrix [][]float64
		for _, answers := range batch {
			row := make([]float64, 0, len(f.Items))
			complete := true
			for _, id := range f.Items {
				v, ok, err := CorrectedValue(cat, id, answers)
				if err != nil {
					return nil, err
				}
				if !ok {
					complete = false
					break
				}
				row = append(row, float64(v))
			}
			if complete {
				matrix = append(matrix, row)
			}
		}
		out = append(out, FacetAlpha{Facet: f.Name, Alpha: CronbachAlpha(matrix), Respondents: len(matrix)})
	}
	return out, nil
}
