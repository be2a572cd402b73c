package services

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/soaringjerry/psyscore/internal/catalog"
)

var narrativeFuncs = template.FuncMap{
	"lower": strings.ToLower,
}

// narrativeData is what note and recommendation templates can reference.
type narrativeData struct {
	Target string
	Score  float64
	Label  string
	Count  int
}

type ruleHit struct {
	rule catalog.Rule
	data narrativeData
}

func renderNarrative(text string, data narrativeData) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tpl, err := template.New("narrative").Funcs(narrativeFuncs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("services.renderNarrative: parse %q: %w", text, err)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("services.renderNarrative: execute %q: %w", text, err)
	}
	return b.String(), nil
}

// ruleSubject resolves the score a rule looks at. ok is false when the
// target is not computable.
func ruleSubject(p *Profile, r catalog.Rule, sum bool) (narrativeData, bool) {
	switch r.Scope {
	case catalog.ScopeFacet:
		fs, found := p.Facet(r.Target)
		if !found || !fs.Computable {
			return narrativeData{}, false
		}
		return narrativeData{Target: fs.Facet, Score: fs.Score(sum), Label: fs.Interpretation}, true
	case catalog.ScopeDomain:
		ds, found := p.Domain(r.Target)
		if !found || !ds.Computable {
			return narrativeData{}, false
		}
		return narrativeData{Target: ds.Domain, Score: ds.MeanScore, Label: ds.Interpretation}, true
	case catalog.ScopeTotal:
		if p.Total == nil || !p.Total.Computable {
			return narrativeData{}, false
		}
		return narrativeData{Target: p.Total.Label, Score: float64(p.Total.RawScore), Label: p.Total.Label}, true
	case catalog.ScopeOverall:
		if !p.OverallValid {
			return narrativeData{}, false
		}
		return narrativeData{Score: p.OverallScore, Label: p.OverallSeverity}, true
	}
	return narrativeData{}, false
}

// buildNarrative evaluates the catalog's rules against a scored profile.
// Notes and recommendations keep rule order; the normal-range texts stand in
// when no rule produced one, and an incomplete profile gets only the
// incomplete note.
func buildNarrative(cat *catalog.Catalog, p *Profile) (notes, recs []string, err error) {
	nar := cat.Narrative()
	notes, recs = []string{}, []string{}
	if !p.OverallValid {
		if nar.IncompleteNote != "" {
			notes = append(notes, nar.IncompleteNote)
		}
		return notes, recs, nil
	}

	sum := cat.Aggregation() == catalog.AggregateSum
	var hits []ruleHit
	elevated := map[string]bool{}
	for _, r := range nar.Rules {
		data, ok := ruleSubject(p, r, sum)
		if !ok || data.Score < r.Min {
			continue
		}
		hits = append(hits, ruleHit{rule: r, data: data})
		if r.Scope == catalog.ScopeDomain || r.Scope == catalog.ScopeFacet {
			elevated[r.Scope+"/"+r.Target] = true
		}
	}

	for _, h := range hits {
		if h.rule.Note != "" {
			n, err := renderNarrative(h.rule.Note, h.data)
			if err != nil {
				return nil, nil, err
			}
			notes = append(notes, n)
		}
		if h.rule.Recommendation != "" {
			r, err := renderNarrative(h.rule.Recommendation, h.data)
			if err != nil {
				return nil, nil, err
			}
			recs = append(recs, r)
		}
	}

	if len(notes) == 0 && nar.NormalNote != "" {
		notes = append(notes, nar.NormalNote)
	}
	if len(recs) == 0 && nar.NormalRecommendation != "" {
		recs = append(recs, nar.NormalRecommendation)
	}
	if nar.ElevationNote != "" && len(elevated) > 0 {
		n, err := renderNarrative(nar.ElevationNote, narrativeData{Count: len(elevated)})
		if err != nil {
			return nil, nil, err
		}
		notes = append([]string{n}, notes...)
	}
	if nar.SummaryNote != "" {
		n, err := renderNarrative(nar.SummaryNote, narrativeData{Score: p.OverallScore, Label: p.OverallSeverity})
		if err != nil {
			return nil, nil, err
		}
		notes = append(notes, n)
	}
	return notes, recs, nil
}
