// Package render produces human-readable reports from a scored profile.
package render

import (
	"fmt"
	"strings"

	"github.com/soaringjerry/psyscore/internal/catalog"
	"github.com/soaringjerry/psyscore/internal/services"
)

// Markdown renders a profile as a Markdown report.
func Markdown(cat *catalog.Catalog, p *services.Profile) string {
	var b strings.Builder
	sum := cat.Aggregation() == catalog.AggregateSum

	fmt.Fprintf(&b, "# %s\n\n", titleOf(cat))
	if p.OverallValid {
		fmt.Fprintf(&b, "**Livello complessivo:** %s (%s)\n\n", p.OverallSeverity, scoreText(p.OverallScore, sum))
	} else {
		fmt.Fprintf(&b, "**Livello complessivo:** %s\n\n", p.OverallSeverity)
	}
	if t := p.Total; t != nil && t.Computable {
		fmt.Fprintf(&b, "**%s:** %d%s\n\n", t.Label, t.RawScore, normText(t.TScore, t.Percentile))
	}

	if len(p.DomainScores) > 0 {
		b.WriteString("## Domini\n\n")
		b.WriteString("| Dominio | Media | Livello | T | Percentile |\n|---|---|---|---|---|\n")
		for _, d := range p.DomainScores {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", d.Domain, scoreCell(d.Computable, d.MeanScore, false), d.Interpretation, intCell(d.TScore), intCell(d.Percentile))
		}
		b.WriteString("\n")
		for _, d := range p.DomainScores {
			if d.Computable && d.Description != "" {
				fmt.Fprintf(&b, "- **%s:** %s\n", d.Domain, d.Description)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Faccette\n\n")
	scoreHeader := "Media"
	if sum {
		scoreHeader = "Punteggio"
	}
	fmt.Fprintf(&b, "| Faccetta | %s | Risposte | Livello | T |\n|---|---|---|---|---|\n", scoreHeader)
	for _, f := range p.FacetScores {
		fmt.Fprintf(&b, "| %s | %s | %d/%d | %s | %s |\n", f.Facet, scoreCell(f.Computable, f.Score(sum), sum), f.AnsweredCount, f.ItemCount, f.Interpretation, intCell(f.TScore))
	}
	b.WriteString("\n")

	if len(p.ClinicalNotes) > 0 {
		b.WriteString("## Note cliniche\n\n")
		for _, n := range p.ClinicalNotes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
		b.WriteString("\n")
	}
	if len(p.Recommendations) > 0 {
		b.WriteString("## Raccomandazioni\n\n")
		for _, r := range p.Recommendations {
			fmt.Fprintf(&b, "- %s\n", r)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func titleOf(cat *catalog.Catalog) string {
	if cat.Title() != "" {
		return cat.Title()
	}
	return cat.ID()
}

func scoreText(v float64, sum bool) string {
	if sum {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func scoreCell(ok bool, v float64, sum bool) string {
	if !ok {
		return "-"
	}
	return scoreText(v, sum)
}

func intCell(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *p)
}

func normText(t, pct *int) string {
	if t == nil || pct == nil {
		return ""
	}
	return fmt.Sprintf(" (T %d, percentile %d)", *t, *pct)
}
