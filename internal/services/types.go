package services

// FacetScore is the result for one facet (PID-5) or subscale (DASS-21).
type FacetScore struct {
	Facet                 string  `json:"facet"`
	Domain                string  `json:"domain,omitempty"`
	RawScore              int     `json:"raw_score"`
	MeanScore             float64 `json:"mean_score"`
	ItemCount             int     `json:"item_count"`
	AnsweredCount         int     `json:"answered_count"`
	MissingFraction       float64 `json:"missing_fraction"`
	Interpretation        string  `json:"interpretation"`
	Description           string  `json:"description,omitempty"`
	Computable            bool    `json:"computable"`
	ClinicallySignificant bool    `json:"clinically_significant"`
	TScore                *int    `json:"t_score,omitempty"`
	Percentile            *int    `json:"percentile,omitempty"`

	// rank of the band the score fell into, 0 for the lowest band.
	rank int
}

// Score is the value the facet is classified on: the mean for mean
// catalogs, the raw sum for sum catalogs.
func (f FacetScore) Score(sum bool) float64 {
	if sum {
		return float64(f.RawScore)
	}
	return f.MeanScore
}

// DomainScore aggregates the three primary facets of a domain.
type DomainScore struct {
	Domain                string       `json:"domain"`
	Facets                []FacetScore `json:"facets"`
	MeanScore             float64      `json:"mean_score"`
	Interpretation        string       `json:"interpretation"`
	Description           string       `json:"description,omitempty"`
	Computable            bool         `json:"computable"`
	ClinicallySignificant bool         `json:"clinically_significant"`
	TScore                *int         `json:"t_score,omitempty"`
	Percentile            *int         `json:"percentile,omitempty"`
}

// TotalScore is the summed total some catalogs (DASS-21) report alongside
// their subscales.
type TotalScore struct {
	Label      string `json:"label"`
	RawScore   int    `json:"raw_score"`
	Computable bool   `json:"computable"`
	TScore     *int   `json:"t_score,omitempty"`
	Percentile *int   `json:"percentile,omitempty"`
}

// Profile is the full scoring result for one answer set.
type Profile struct {
	Catalog         string        `json:"catalog"`
	FacetScores     []FacetScore  `json:"facet_scores"`
	DomainScores    []DomainScore `json:"domain_scores,omitempty"`
	OverallScore    float64       `json:"overall_score"`
	OverallSeverity string        `json:"overall_severity"`
	OverallValid    bool          `json:"overall_computable"`
	Total           *TotalScore   `json:"total,omitempty"`
	ClinicalNotes   []string      `json:"clinical_notes"`
	Recommendations []string      `json:"recommendations"`
}

// Facet returns the facet score by name.
func (p *Profile) Facet(name string) (FacetScore, bool) {
	for _, f := range p.FacetScores {
		if f.Facet == name {
			return f, true
		}
	}
	return FacetScore{}, false
}

// Domain returns the domain score by name.
func (p *Profile) Domain(name string) (DomainScore, bool) {
	for _, d := range p.DomainScores {
		if d.Domain == name {
			return d, true
		}
	}
	return DomainScore{}, false
}
