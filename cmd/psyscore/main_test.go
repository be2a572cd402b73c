package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/psyscore/internal/services"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func uniformJSON(n int, value string) string {
	m := map[string]string{}
	for i := 1; i <= n; i++ {
		m[strconv.Itoa(i)] = value
	}
	b, _ := json.Marshal(map[string]interface{}{"answers": m})
	return string(b)
}

func dassCSV(rows map[string]func(item int) string) string {
	var b strings.Builder
	b.WriteString("respondent")
	for i := 1; i <= 21; i++ {
		b.WriteString(",item_" + strconv.Itoa(i))
	}
	b.WriteString("\n")
	for _, id := range []string{"r1", "r2", "r3"} {
		fn, ok := rows[id]
		if !ok {
			continue
		}
		b.WriteString(id)
		for i := 1; i <= 21; i++ {
			b.WriteString("," + fn(i))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func exitCode(err error) int {
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	return -1
}

func TestCatalogsCommand(t *testing.T) {
	out, _, err := run(t, "catalogs")
	require.NoError(t, err)
	assert.Contains(t, out, "dass21")
	assert.Contains(t, out, "pid5")
	assert.Contains(t, out, "220 items")
}

func TestItemsCommand(t *testing.T) {
	out, _, err := run(t, "items", "dass21")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 22)
	assert.True(t, strings.HasPrefix(lines[0], "item_id,facet"))

	_, _, err = run(t, "items", "mmpi")
	assert.Equal(t, 2, exitCode(err))
}

func TestScoreJSON(t *testing.T) {
	path := writeFile(t, "answers.json", uniformJSON(220, "0"))
	out, _, err := run(t, "score", "pid5", path, "--format", "json")
	require.NoError(t, err)

	var p services.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.True(t, p.OverallValid)
	assert.Equal(t, "Molto Basso", p.OverallSeverity)
	assert.Len(t, p.FacetScores, 25)
}

func TestScoreFlatJSONAndNumbers(t *testing.T) {
	path := writeFile(t, "answers.json", `{"1": 1, "2": "1", "3": 1, "4": 1, "5": 1, "6": 1, "7": 1,
		"8": 1, "9": 1, "10": 1, "11": 1, "12": 1, "13": 1, "14": 1, "15": 1, "16": 1, "17": 1,
		"18": 1, "19": 1, "20": 1, "21": 1}`)
	out, _, err := run(t, "score", "dass21", path, "--format", "md")
	require.NoError(t, err)
	assert.Contains(t, out, "| Depressione | 7 | 7/7 | Moderato |")
}

func TestScoreCSVRespondent(t *testing.T) {
	path := writeFile(t, "wide.csv", dassCSV(map[string]func(int) string{
		"r1": func(int) string { return "0" },
		"r2": func(int) string { return "3" },
	}))

	_, _, err := run(t, "score", "dass21", path)
	assert.Equal(t, 3, exitCode(err))

	out, _, err := run(t, "score", "dass21", path, "--respondent", "r2", "--format", "text", "--color", "never")
	require.NoError(t, err)
	assert.Contains(t, out, "Estremamente Severo")
	assert.NotContains(t, out, "\x1b[")

	out, _, err = run(t, "score", "dass21", path, "--respondent", "r1", "--format", "long")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "respondent_id,item_id"))
	assert.Contains(t, out, "\nr1,1,")
}

func TestScoreRejectsMalformedAnswer(t *testing.T) {
	path := writeFile(t, "answers.json", `{"5": "7", "9": "x"}`)
	_, _, err := run(t, "score", "pid5", path, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
	assert.Contains(t, err.Error(), "item 5")
}

func TestScoreBadFlags(t *testing.T) {
	path := writeFile(t, "answers.json", `{}`)
	_, _, err := run(t, "score", "pid5", path, "--missing", "zero")
	assert.Equal(t, 2, exitCode(err))
	_, _, err = run(t, "score", "pid5", path, "--format", "pdf")
	assert.Equal(t, 2, exitCode(err))
	_, _, err = run(t, "score", "pid5", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, 3, exitCode(err))
}

func TestScoreProrate(t *testing.T) {
	path := writeFile(t, "answers.json", `{}`)
	out, _, err := run(t, "score", "pid5", path, "--format", "json", "--missing", "prorate")
	require.NoError(t, err)
	var p services.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.False(t, p.OverallValid)
}

func TestScoreWritesXLSX(t *testing.T) {
	in := writeFile(t, "answers.json", uniformJSON(21, "2"))
	outPath := filepath.Join(t.TempDir(), "out.xlsx")
	stdout, _, err := run(t, "score", "dass21", in, "--format", "xlsx", "--formulas", "--out", outPath)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestBatchCommand(t *testing.T) {
	path := writeFile(t, "wide.csv", dassCSV(map[string]func(int) string{
		"r1": func(int) string { return "0" },
		"r2": func(i int) string { return strconv.Itoa(i % 4) },
		"r3": func(int) string { return "3" },
	}))
	out, errOut, err := run(t, "batch", "dass21", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "respondent_id,Depressione,Ansia,Stress,overall_score,overall_severity", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "r1,0.000,0.000,0.000,"))
	assert.Contains(t, errOut, "3 respondents")
	assert.Contains(t, errOut, "Depressione")

	_, errOut, err = run(t, "batch", "dass21", path, "--alpha=false")
	require.NoError(t, err)
	assert.Empty(t, errOut)
}

const miniCatalog = `
id: mini
bands:
  b: [{min: 1, label: Alto}, {min: 0, label: Basso}]
overall: {method: domain_mean, bands: b}
facets:
  - {name: A, items: [1, 2], bands: b}
  - {name: B, items: [3], bands: b}
  - {name: C, items: [4], bands: b}
domains:
  - {name: D, facets: [A, B, C], bands: b}
items:
  - {id: 1, text: uno}
  - {id: 2, text: due}
  - {id: 3, text: tre}
  - {id: 4, text: quattro}
`

func TestCatalogFile(t *testing.T) {
	catPath := writeFile(t, "mini.yaml", miniCatalog)
	answers := writeFile(t, "answers.json", `{"1": 3, "2": 3, "3": 3, "4": 3}`)

	out, _, err := run(t, "score", "mini", answers, "--catalog-file", catPath, "--format", "json")
	require.NoError(t, err)
	var p services.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "Alto", p.OverallSeverity)

	_, _, err = run(t, "score", "pid5", answers, "--catalog-file", catPath)
	assert.Equal(t, 2, exitCode(err))
}

func TestPickStyles(t *testing.T) {
	plain := pickStyles("auto", false)
	assert.Equal(t, "x", plain.Elevated.Render("x"))
	assert.Equal(t, "x", pickStyles("never", true).Elevated.Render("x"))
}
