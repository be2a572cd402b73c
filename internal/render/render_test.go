package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/psyscore/internal/catalog"
	"github.com/soaringjerry/psyscore/internal/services"
)

func scored(t *testing.T, name, value string) (*catalog.Catalog, *services.Profile) {
	t.Helper()
	cat := catalog.MustBuiltin(name)
	answers := services.Answers{}
	for _, it := range cat.Items() {
		answers[it.ID] = value
	}
	p, err := services.ScoreQuestionnaire(cat, answers)
	require.NoError(t, err)
	return cat, p
}

func TestMarkdownPID5(t *testing.T) {
	cat, p := scored(t, "pid5", "3")
	md := Markdown(cat, p)

	assert.True(t, strings.HasPrefix(md, "# PID-5"))
	assert.Contains(t, md, "**Livello complessivo:** Molto Elevato (2.81)")
	assert.Contains(t, md, "## Domini")
	assert.Contains(t, md, "| Psicoticismo | 3.00 | Molto Elevato |")
	assert.Contains(t, md, "| Anedonia | 2.25 | 8/8 | Elevato |")
	assert.Contains(t, md, "## Raccomandazioni")
	assert.Equal(t, 5, strings.Count(md[strings.Index(md, "## Raccomandazioni"):], "\n- "))
}

func TestMarkdownDASS21(t *testing.T) {
	cat, p := scored(t, "dass21", "1")
	md := Markdown(cat, p)

	assert.NotContains(t, md, "## Domini")
	assert.Contains(t, md, "| Faccetta | Punteggio |")
	assert.Contains(t, md, "| Depressione | 7 | 7/7 | Moderato |")
	assert.Contains(t, md, "**Totale:** 21")
}

func TestMarkdownIncomplete(t *testing.T) {
	cat := catalog.MustBuiltin("pid5")
	p, err := services.ScoreQuestionnaire(cat, services.Answers{})
	require.NoError(t, err)
	md := Markdown(cat, p)
	assert.Contains(t, md, "**Livello complessivo:** Non calcolabile\n")
	assert.Contains(t, md, "| Ritiro | - | 0/10 |")
	assert.NotContains(t, md, "## Raccomandazioni")
}

func TestTextPlainHasNoEscapes(t *testing.T) {
	cat, p := scored(t, "dass21", "2")
	out := Text(cat, p, PlainStyles())
	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "Livello complessivo: Estremamente Severo (42)")
	assert.Contains(t, out, "Totale: 42")
	assert.Contains(t, out, "Raccomandazioni")
}
