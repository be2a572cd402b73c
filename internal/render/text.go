package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/soaringjerry/psyscore/internal/catalog"
	"github.com/soaringjerry/psyscore/internal/services"
)

var (
	colorRed    = lipgloss.Color("#f38ba8")
	colorYellow = lipgloss.Color("#f9e2af")
	colorGreen  = lipgloss.Color("#a6e3a1")
	colorBlue   = lipgloss.Color("#89b4fa")
	colorGrey   = lipgloss.Color("#6c7086")
)

// Styles holds the text report styles. The zero value renders plain text.
type Styles struct {
	Header      lipgloss.Style
	Section     lipgloss.Style
	Elevated    lipgloss.Style
	Moderate    lipgloss.Style
	Normal      lipgloss.Style
	Unavailable lipgloss.Style
}

// PlainStyles renders without any escape sequences.
func PlainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{Header: s, Section: s, Elevated: s, Moderate: s, Normal: s, Unavailable: s}
}

// ColorStyles is used when stdout is a terminal.
func ColorStyles() Styles {
	return Styles{
		Header:      lipgloss.NewStyle().Bold(true).Foreground(colorBlue),
		Section:     lipgloss.NewStyle().Bold(true).Underline(true),
		Elevated:    lipgloss.NewStyle().Bold(true).Foreground(colorRed),
		Moderate:    lipgloss.NewStyle().Foreground(colorYellow),
		Normal:      lipgloss.NewStyle().Foreground(colorGreen),
		Unavailable: lipgloss.NewStyle().Italic(true).Foreground(colorGrey),
	}
}

// Text renders a compact terminal report.
func Text(cat *catalog.Catalog, p *services.Profile, st Styles) string {
	var b strings.Builder
	sum := cat.Aggregation() == catalog.AggregateSum

	b.WriteString(st.Header.Render(titleOf(cat)))
	b.WriteString("\n")
	overall := p.OverallSeverity
	if p.OverallValid {
		overall = fmt.Sprintf("%s (%s)", p.OverallSeverity, scoreText(p.OverallScore, sum))
	}
	fmt.Fprintf(&b, "Livello complessivo: %s\n", level(st, p.OverallValid, overallSignificant(cat, p), overall))
	if t := p.Total; t != nil && t.Computable {
		fmt.Fprintf(&b, "%s: %d%s\n", t.Label, t.RawScore, normText(t.TScore, t.Percentile))
	}

	if len(p.DomainScores) > 0 {
		b.WriteString("\n" + st.Section.Render("Domini") + "\n")
		for _, d := range p.DomainScores {
			fmt.Fprintf(&b, "  %-28s %6s  %s\n", d.Domain, scoreCell(d.Computable, d.MeanScore, false),
				level(st, d.Computable, d.ClinicallySignificant, d.Interpretation))
		}
	}

	b.WriteString("\n" + st.Section.Render("Faccette") + "\n")
	for _, f := range p.FacetScores {
		fmt.Fprintf(&b, "  %-36s %6s  %s\n", f.Facet, scoreCell(f.Computable, f.Score(sum), sum),
			level(st, f.Computable, f.ClinicallySignificant, f.Interpretation))
	}

	if len(p.ClinicalNotes) > 0 {
		b.WriteString("\n" + st.Section.Render("Note cliniche") + "\n")
		for _, n := range p.ClinicalNotes {
			fmt.Fprintf(&b, "  - %s\n", n)
		}
	}
	if len(p.Recommendations) > 0 {
		b.WriteString("\n" + st.Section.Render("Raccomandazioni") + "\n")
		for _, r := range p.Recommendations {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
	}
	return b.String()
}

func level(st Styles, computable, significant bool, label string) string {
	switch {
	case !computable:
		return st.Unavailable.Render(label)
	case significant:
		return st.Elevated.Render(label)
	case strings.Contains(label, "Moderat") || strings.Contains(label, "Lieve"):
		return st.Moderate.Render(label)
	default:
		return st.Normal.Render(label)
	}
}

func overallSignificant(cat *catalog.Catalog, p *services.Profile) bool {
	if th := cat.ClinicalThreshold(); th > 0 {
		return p.OverallScore >= th
	}
	for _, f := range p.FacetScores {
		if f.ClinicallySignificant {
			return true
		}
	}
	return false
}
