package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/soaringjerry/psyscore/internal/catalog"
	"github.com/soaringjerry/psyscore/internal/services"
)

const (
	SheetResults  = "Risultati"
	SheetFacets   = "Faccette"
	SheetRaw      = "Dati Grezzi"
	SheetTemplate = "Modello"
)

// WorkbookOptions controls optional workbook content.
type WorkbookOptions struct {
	// Formulas adds the static formula template sheet.
	Formulas bool
}

// Workbook renders a profile and its answers as an XLSX document. All
// scores are written as pre-computed values; the optional template sheet
// only depends on the catalog layout.
func Workbook(cat *catalog.Catalog, p *services.Profile, answers services.Answers, opts WorkbookOptions) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return nil, fmt.Errorf("render.Workbook: %w", err)
	}
	sheets := []sheetWriter{
		{SheetResults, func(f *excelize.File) error { return writeResults(f, cat, p) }},
		{SheetFacets, func(f *excelize.File) error { return writeFacets(f, p) }},
		{SheetRaw, func(f *excelize.File) error { return writeRaw(f, cat, answers) }},
	}
	if opts.Formulas {
		sheets = append(sheets, sheetWriter{SheetTemplate, func(f *excelize.File) error { return writeTemplate(f, cat, answers) }})
	}
	for _, s := range sheets {
		if s.name != SheetResults {
			if _, err := f.NewSheet(s.name); err != nil {
				return nil, fmt.Errorf("render.Workbook: sheet %s: %w", s.name, err)
			}
		}
		if err := s.write(f); err != nil {
			return nil, fmt.Errorf("render.Workbook: sheet %s: %w", s.name, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render.Workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type sheetWriter struct {
	name  string
	write func(*excelize.File) error
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func optValue(p *int) interface{} {
	if p == nil {
		return ""
	}
	return *p
}

func scoreValue(ok bool, v float64) interface{} {
	if !ok {
		return ""
	}
	return v
}

func writeResults(f *excelize.File, cat *catalog.Catalog, p *services.Profile) error {
	rows := [][]interface{}{
		{titleOf(cat)},
		{},
		{"Punteggio complessivo", scoreValue(p.OverallValid, p.OverallScore)},
		{"Livello complessivo", p.OverallSeverity},
	}
	if t := p.Total; t != nil {
		rows = append(rows, []interface{}{t.Label, scoreValue(t.Computable, float64(t.RawScore)), optValue(t.TScore), optValue(t.Percentile)})
	}
	if len(p.DomainScores) > 0 {
		rows = append(rows, []interface{}{}, []interface{}{"Dominio", "Media", "Livello", "T", "Percentile", "Descrizione"})
		for _, d := range p.DomainScores {
			rows = append(rows, []interface{}{d.Domain, scoreValue(d.Computable, d.MeanScore), d.Interpretation, optValue(d.TScore), optValue(d.Percentile), d.Description})
		}
	}
	rows = append(rows, []interface{}{}, []interface{}{"Note cliniche"})
	for _, n := range p.ClinicalNotes {
		rows = append(rows, []interface{}{n})
	}
	rows = append(rows, []interface{}{}, []interface{}{"Raccomandazioni"})
	for _, r := range p.Recommendations {
		rows = append(rows, []interface{}{r})
	}
	for i, r := range rows {
		if err := setRow(f, SheetResults, i+1, r...); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetResults, "A", "A", 32)
}

func writeFacets(f *excelize.File, p *services.Profile) error {
	if err := setRow(f, SheetFacets, 1, "Faccetta", "Dominio", "Punteggio grezzo", "Media", "Risposte", "Item", "Livello", "T", "Percentile"); err != nil {
		return err
	}
	for i, fs := range p.FacetScores {
		err := setRow(f, SheetFacets, i+2,
			fs.Facet, fs.Domain, scoreValue(fs.Computable, float64(fs.RawScore)), scoreValue(fs.Computable, fs.MeanScore),
			fs.AnsweredCount, fs.ItemCount, fs.Interpretation, optValue(fs.TScore), optValue(fs.Percentile))
		if err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetFacets, "A", "B", 32)
}

func writeRaw(f *excelize.File, cat *catalog.Catalog, answers services.Answers) error {
	if err := setRow(f, SheetRaw, 1, "Item", "Faccetta", "Invertito", "Risposta", "Punteggio", "Testo"); err != nil {
		return err
	}
	for i, it := range cat.Items() {
		raw, scored := "", interface{}("")
		if v, ok, err := services.CorrectedValue(cat, it.ID, answers); err != nil {
			return err
		} else if ok {
			raw = strings.TrimSpace(answers[it.ID])
			scored = v
		}
		if err := setRow(f, SheetRaw, i+2, it.ID, it.Facet, it.Reversed, rawValue(raw), scored, it.Text); err != nil {
			return err
		}
	}
	return nil
}

func rawValue(s string) interface{} {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

// writeTemplate lays out one row per item: A item id, B answer, C scored
// value. C is =B{n} or, for reversed items, ={max}-B{n}. Facet rows below
// compute SUM(C...)/item count, the nominal-divisor mean.
func writeTemplate(f *excelize.File, cat *catalog.Catalog, answers services.Answers) error {
	const first = 3
	maxValue := cat.MaxValue()
	note := fmt.Sprintf("Modello statico: colonna B = risposta (0-%d), colonna C = punteggio (%d-B per gli item invertiti), media faccetta = somma / numero di item.", maxValue, maxValue)
	if err := setRow(f, SheetTemplate, 1, note); err != nil {
		return err
	}
	if err := setRow(f, SheetTemplate, 2, "Item", "Risposta", "Punteggio"); err != nil {
		return err
	}

	rowOf := map[int]int{}
	for i, it := range cat.Items() {
		row := first + i
		rowOf[it.ID] = row
		raw := interface{}("")
		if s := strings.TrimSpace(answers[it.ID]); s != "" {
			raw = rawValue(s)
		}
		if err := setRow(f, SheetTemplate, row, it.ID, raw); err != nil {
			return err
		}
		formula := fmt.Sprintf("IF(B%d=\"\",\"\",B%d)", row, row)
		if it.Reversed {
			formula = fmt.Sprintf("IF(B%d=\"\",\"\",%d-B%d)", row, maxValue, row)
		}
		if err := f.SetCellFormula(SheetTemplate, fmt.Sprintf("C%d", row), formula); err != nil {
			return err
		}
	}

	row := first + cat.ItemCount() + 1
	if err := setRow(f, SheetTemplate, row, "Faccetta", "Item", "Media"); err != nil {
		return err
	}
	for _, fc := range cat.Facets() {
		row++
		refs := make([]string, len(fc.Items))
		for i, id := range fc.Items {
			refs[i] = fmt.Sprintf("C%d", rowOf[id])
		}
		if err := setRow(f, SheetTemplate, row, fc.Name, len(fc.Items)); err != nil {
			return err
		}
		formula := fmt.Sprintf("SUM(%s)/B%d", strings.Join(refs, ","), row)
		if err := f.SetCellFormula(SheetTemplate, fmt.Sprintf("C%d", row), formula); err != nil {
			return err
		}
	}
	return nil
}
