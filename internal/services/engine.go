package services

import (
	"math"

	"github.com/soaringjerry/psyscore/internal/catalog"
)

// Engine scores answer sets against one catalog. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	cat *catalog.Catalog
}

func NewEngine(cat *catalog.Catalog) *Engine { return &Engine{cat: cat} }

func (e *Engine) Catalog() *catalog.Catalog { return e.cat }

func (e *Engine) Score(answers Answers) (*Profile, error) {
	return ScoreQuestionnaire(e.cat, answers)
}

// ScoreQuestionnaire turns a sparse answer set into a Profile. Malformed
// answers fail the whole call with an *AnswerError; ids the catalog does not
// know are ignored.
func ScoreQuestionnaire(cat *catalog.Catalog, answers Answers) (*Profile, error) {
	if cat == nil {
		return nil, NewInvalidError("catalog is required")
	}
	if err := ValidateAnswers(cat, answers); err != nil {
		return nil, err
	}

	p := &Profile{Catalog: cat.ID()}
	byName := map[string]FacetScore{}
	for _, f := range cat.Facets() {
		fs, err := scoreFacet(cat, f, answers)
		if err != nil {
			return nil, err
		}
		p.FacetScores = append(p.FacetScores, fs)
		byName[fs.Facet] = fs
	}
	for _, d := range cat.Domains() {
		p.DomainScores = append(p.DomainScores, scoreDomain(cat, d, byName))
	}
	if t, ok := cat.Total(); ok {
		p.Total = scoreTotal(t, p.FacetScores)
	}
	scoreOverall(cat, p)

	notes, recs, err := buildNarrative(cat, p)
	if err != nil {
		return nil, err
	}
	p.ClinicalNotes = notes
	p.Recommendations = recs
	return p, nil
}

func scoreFacet(cat *catalog.Catalog, f catalog.Facet, answers Answers) (FacetScore, error) {
	fs := FacetScore{Facet: f.Name, Domain: f.Domain, ItemCount: len(f.Items)}
	sum := 0
	for _, id := range f.Items {
		v, ok, err := CorrectedValue(cat, id, answers)
		if err != nil {
			return FacetScore{}, err
		}
		if ok {
			sum += v
			fs.AnsweredCount++
		}
	}
	if fs.ItemCount == 0 {
		fs.Interpretation = cat.Labels().FacetNonComputable
		return fs, nil
	}
	fs.MissingFraction = float64(fs.ItemCount-fs.AnsweredCount) / float64(fs.ItemCount)
	// prorating needs at least one answer; the nominal divisor scores a
	// tolerated gap as zeros
	if fs.MissingFraction > cat.MissingTolerance() || (fs.AnsweredCount == 0 && cat.MissingPolicy() == catalog.MissingProrate) {
		fs.Interpretation = cat.Labels().FacetNonComputable
		return fs, nil
	}

	fs.Computable = true
	switch cat.MissingPolicy() {
	case catalog.MissingProrate:
		fs.RawScore = int(math.Round(float64(sum) * float64(fs.ItemCount) / float64(fs.AnsweredCount)))
		fs.MeanScore = float64(sum) / float64(fs.AnsweredCount)
	default:
		fs.RawScore = sum
		fs.MeanScore = float64(sum) / float64(fs.ItemCount)
	}

	isSum := cat.Aggregation() == catalog.AggregateSum
	score := fs.Score(isSum)
	cls := Classify(cat.Bands(f.Bands), score)
	fs.Interpretation = cls.Label
	fs.Description = cls.Description
	fs.rank = cls.Rank
	fs.ClinicallySignificant = significant(cat, score, cls)
	fs.TScore, fs.Percentile = normScores(score, f.Norm)
	return fs, nil
}

// significant uses the catalog's clinical threshold when it has one and
// otherwise treats any band above the lowest as significant.
func significant(cat *catalog.Catalog, score float64, cls Classification) bool {
	if th := cat.ClinicalThreshold(); th > 0 {
		return score >= th
	}
	return cls.Rank > 0
}

func scoreDomain(cat *catalog.Catalog, d catalog.Domain, facets map[string]FacetScore) DomainScore {
	ds := DomainScore{Domain: d.Name, Computable: true}
	var total float64
	for _, name := range d.Facets {
		fs := facets[name]
		ds.Facets = append(ds.Facets, fs)
		if !fs.Computable {
			ds.Computable = false
			continue
		}
		total += fs.MeanScore
	}
	if !ds.Computable {
		ds.Interpretation = cat.Labels().DomainNonComputable
		return ds
	}
	ds.MeanScore = total / float64(len(d.Facets))
	cls := Classify(cat.Bands(d.Bands), ds.MeanScore)
	ds.Interpretation = cls.Label
	ds.Description = d.Descriptions[cls.Label]
	if ds.Description == "" {
		ds.Description = cls.Description
	}
	ds.ClinicallySignificant = significant(cat, ds.MeanScore, cls)
	ds.TScore, ds.Percentile = normScores(ds.MeanScore, d.Norm)
	return ds
}

// scoreTotal sums the facet raw scores. The total is only reported when
// every facet is computable.
func scoreTotal(t catalog.Total, facets []FacetScore) *TotalScore {
	ts := &TotalScore{Label: t.Label, Computable: true}
	for _, fs := range facets {
		if !fs.Computable {
			ts.Computable = false
			ts.RawScore = 0
			return ts
		}
		ts.RawScore += fs.RawScore
	}
	ts.TScore, ts.Percentile = normScores(float64(ts.RawScore), t.Norm)
	return ts
}

func scoreOverall(cat *catalog.Catalog, p *Profile) {
	p.OverallSeverity = cat.Labels().OverallNonComputable
	ov := cat.Overall()
	switch ov.Method {
	case catalog.OverallWorstFacet:
		worst := -1
		for i, fs := range p.FacetScores {
			if fs.Computable && (worst < 0 || fs.rank > p.FacetScores[worst].rank) {
				worst = i
			}
		}
		if worst < 0 {
			return
		}
		p.OverallValid = true
		p.OverallSeverity = p.FacetScores[worst].Interpretation
		for _, fs := range p.FacetScores {
			if fs.Computable {
				p.OverallScore += float64(fs.RawScore)
			}
		}
	default:
		var sum float64
		n := 0
		for _, ds := range p.DomainScores {
			if ds.Computable {
				sum += ds.MeanScore
				n++
			}
		}
		if n == 0 {
			return
		}
		p.OverallValid = true
		p.OverallScore = sum / float64(n)
		p.OverallSeverity = Classify(cat.Bands(ov.Bands), p.OverallScore).Label
	}
}
