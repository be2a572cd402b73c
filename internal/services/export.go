package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/soaringjerry/psyscore/internal/catalog"
)

// LongRow is one answered item in long format.
type LongRow struct {
	RespondentID string
	ItemID       int
	Facet        string
	RawValue     int
	ScoreValue   int
	Reversed     bool
}

// LongRows lists every answered catalog item of one respondent in item
// order, with the raw and reverse-corrected value.
func LongRows(cat *catalog.Catalog, respondentID string, answers Answers) ([]LongRow, error) {
	var rows []LongRow
	for _, it := range cat.Items() {
		raw, ok, err := parseAnswer(it.ID, answers[it.ID], cat.MaxValue())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		score := raw
		if it.Reversed {
			score = ReverseScore(raw, cat.MaxValue())
		}
		rows = append(rows, LongRow{
			RespondentID: respondentID,
			ItemID:       it.ID,
			Facet:        it.Facet,
			RawValue:     raw,
			ScoreValue:   score,
			Reversed:     it.Reversed,
		})
	}
	return rows, nil
}

// ExportLongCSV renders rows into a long-format CSV.
func ExportLongCSV(rows []LongRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"respondent_id", "item_id", "facet", "raw_value", "score_value", "reversed"})
	for _, r := range rows {
		rec := []string{
			r.RespondentID,
			strconv.Itoa(r.ItemID),
			r.Facet,
			strconv.Itoa(r.RawValue),
			strconv.Itoa(r.ScoreValue),
			strconv.FormatBool(r.Reversed),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportProfileCSV renders one row per facet, then one per domain, then the
// overall line.
func ExportProfileCSV(p *Profile) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"level", "name", "domain", "raw_score", "mean_score", "answered", "item_count", "interpretation", "computable", "t_score", "percentile"})
	for _, f := range p.FacetScores {
		rec := []string{
			"facet", f.Facet, f.Domain,
			strconv.Itoa(f.RawScore), formatScore(f.MeanScore),
			strconv.Itoa(f.AnsweredCount), strconv.Itoa(f.ItemCount),
			f.Interpretation, strconv.FormatBool(f.Computable),
			optInt(f.TScore), optInt(f.Percentile),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	for _, d := range p.DomainScores {
		rec := []string{
			"domain", d.Domain, d.Domain,
			"", formatScore(d.MeanScore), "", "",
			d.Interpretation, strconv.FormatBool(d.Computable),
			optInt(d.TScore), optInt(d.Percentile),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	if t := p.Total; t != nil {
		rec := []string{"total", t.Label, "", strconv.Itoa(t.RawScore), "", "", "", "", strconv.FormatBool(t.Computable), optInt(t.TScore), optInt(t.Percentile)}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	if err := w.Write([]string{"overall", "", "", "", formatScore(p.OverallScore), "", "", p.OverallSeverity, strconv.FormatBool(p.OverallValid), "", ""}); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// BatchRow is one respondent in a batch export.
type BatchRow struct {
	RespondentID string
	Profile      *Profile
}

// ExportBatchCSV renders a wide CSV with one row per respondent and one
// column per facet (mean or raw sum) and domain, followed by the overall
// severity. Respondents are sorted by id.
func ExportBatchCSV(cat *catalog.Catalog, rows []BatchRow) ([]byte, error) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].RespondentID < rows[j].RespondentID })
	sum := cat.Aggregation() == catalog.AggregateSum
	facets := cat.FacetNames()
	domains := cat.DomainNames()

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := append([]string{"respondent_id"}, facets...)
	header = append(header, domains...)
	header = append(header, "overall_score", "overall_severity")
	_ = w.Write(header)
	for _, r := range rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, r.RespondentID)
		for _, f := range r.Profile.FacetScores {
			rec = append(rec, cell(f.Computable, f.Score(sum)))
		}
		for _, d := range r.Profile.DomainScores {
			rec = append(rec, cell(d.Computable, d.MeanScore))
		}
		rec = append(rec, cell(r.Profile.OverallValid, r.Profile.OverallScore), r.Profile.OverallSeverity)
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportItemsCSV renders the catalog's item definitions to aid review.
func ExportItemsCSV(cat *catalog.Catalog) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"item_id", "facet", "domain", "reversed", "text"})
	for _, it := range cat.Items() {
		rec := []string{strconv.Itoa(it.ID), it.Facet, it.Domain, strconv.FormatBool(it.Reversed), it.Text}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// WideRecord is one respondent read from a wide answers CSV.
type WideRecord struct {
	RespondentID string
	Answers      Answers
}

// ParseWideCSV reads a CSV whose first column is the respondent id and whose
// remaining headers are item ids. Blank cells are unanswered.
func ParseWideCSV(r io.Reader) ([]WideRecord, error) {
	recs, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("services.ParseWideCSV: %w", err)
	}
	if len(recs) == 0 {
		return nil, NewInvalidError("empty CSV")
	}
	header := recs[0]
	ids := make([]int, len(header))
	for i := 1; i < len(header); i++ {
		id, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header[i]), "item_")))
		if err != nil {
			return nil, NewInvalidError(fmt.Sprintf("column %q is not an item id", header[i]))
		}
		ids[i] = id
	}
	out := make([]WideRecord, 0, len(recs)-1)
	for n, rec := range recs[1:] {
		if len(rec) != len(header) {
			return nil, NewInvalidError(fmt.Sprintf("row %d has %d columns, want %d", n+2, len(rec), len(header)))
		}
		wr := WideRecord{RespondentID: rec[0], Answers: Answers{}}
		for i := 1; i < len(rec); i++ {
			if strings.TrimSpace(rec[i]) != "" {
				wr.Answers[ids[i]] = rec[i]
			}
		}
		out = append(out, wr)
	}
	return out, nil
}

func formatScore(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

func cell(ok bool, v float64) string {
	if !ok {
		return ""
	}
	return formatScore(v)
}

func optInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
