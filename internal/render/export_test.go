package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/psyscore/internal/services"
)

func TestExportFormats(t *testing.T) {
	cat, p := scored(t, "dass21", "1")
	answers := services.Answers{1: "1"}

	cases := []struct {
		format, filename, contentType string
	}{
		{"", "dass21_r1.json", "application/json"},
		{FormatMarkdown, "dass21_r1.md", "text/markdown"},
		{FormatText, "dass21_r1.txt", "text/plain"},
		{FormatCSV, "dass21_r1.csv", "text/csv"},
		{FormatLong, "dass21_r1_long.csv", "text/csv"},
		{FormatXLSX, "dass21_r1.xlsx", "application/vnd.openxmlformats"},
	}
	for _, c := range cases {
		t.Run(c.format, func(t *testing.T) {
			res, err := Export(cat, p, answers, Params{Format: c.format, RespondentID: "r1", Styles: PlainStyles()})
			require.NoError(t, err)
			assert.Equal(t, c.filename, res.Filename)
			assert.True(t, strings.HasPrefix(res.ContentType, c.contentType), res.ContentType)
			assert.NotEmpty(t, res.Data)
		})
	}
}

func TestExportJSONRoundTrip(t *testing.T) {
	cat, p := scored(t, "pid5", "0")
	res, err := Export(cat, p, nil, Params{Format: FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, "pid5.json", res.Filename)

	var back services.Profile
	require.NoError(t, json.Unmarshal(res.Data, &back))
	assert.Equal(t, p.OverallSeverity, back.OverallSeverity)
	assert.Len(t, back.FacetScores, 25)
}

func TestExportUnknownFormat(t *testing.T) {
	cat, p := scored(t, "dass21", "0")
	_, err := Export(cat, p, nil, Params{Format: "pdf"})
	se, ok := services.AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, services.ErrorInvalid, se.Code)
}
