package render

import (
	"encoding/json"
	"fmt"

	"github.com/soaringjerry/psyscore/internal/catalog"
	"github.com/soaringjerry/psyscore/internal/services"
)

// Export formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "md"
	FormatCSV      = "csv"
	FormatLong     = "long"
	FormatXLSX     = "xlsx"
	FormatText     = "text"
)

// Params selects an export of one scored answer set.
type Params struct {
	Format       string
	RespondentID string
	Formulas     bool
	Styles       Styles
}

// Result is a rendered export ready to be written or served.
type Result struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Export renders p in the requested format. Format defaults to JSON.
func Export(cat *catalog.Catalog, p *services.Profile, answers services.Answers, params Params) (*Result, error) {
	format := params.Format
	if format == "" {
		format = FormatJSON
	}
	base := cat.ID()
	if params.RespondentID != "" {
		base += "_" + params.RespondentID
	}

	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("render.Export: %w", err)
		}
		return &Result{Filename: base + ".json", ContentType: "application/json", Data: data}, nil
	case FormatMarkdown:
		return &Result{Filename: base + ".md", ContentType: "text/markdown; charset=utf-8", Data: []byte(Markdown(cat, p))}, nil
	case FormatText:
		return &Result{Filename: base + ".txt", ContentType: "text/plain; charset=utf-8", Data: []byte(Text(cat, p, params.Styles))}, nil
	case FormatCSV:
		data, err := services.ExportProfileCSV(p)
		if err != nil {
			return nil, err
		}
		return &Result{Filename: base + ".csv", ContentType: "text/csv; charset=utf-8", Data: data}, nil
	case FormatLong:
		rows, err := services.LongRows(cat, params.RespondentID, answers)
		if err != nil {
			return nil, err
		}
		data, err := services.ExportLongCSV(rows)
		if err != nil {
			return nil, err
		}
		return &Result{Filename: base + "_long.csv", ContentType: "text/csv; charset=utf-8", Data: data}, nil
	case FormatXLSX:
		data, err := Workbook(cat, p, answers, WorkbookOptions{Formulas: params.Formulas})
		if err != nil {
			return nil, err
		}
		return &Result{Filename: base + ".xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Data: data}, nil
	default:
		return nil, services.NewInvalidError(fmt.Sprintf("unsupported format %q", format))
	}
}
