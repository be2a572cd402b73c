package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/soaringjerry/psyscore/internal/catalog"
	"github.com/soaringjerry/psyscore/internal/render"
	"github.com/soaringjerry/psyscore/internal/services"
)

type scoreFlags struct {
	format     string
	out        string
	formulas   bool
	missing    string
	respondent string
	color      string
}

func newScoreCmd() *cobra.Command {
	f := &scoreFlags{}
	cmd := &cobra.Command{
		Use:   "score <catalog> <answers.json|answers.csv>",
		Short: "Score one answer set and print the profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, args[0], args[1], f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "text", "Output format: json, md, csv, long, xlsx or text")
	flags.StringVar(&f.out, "out", "", "Output file path (default: stdout)")
	flags.BoolVar(&f.formulas, "formulas", false, "Add the formula template sheet to xlsx output")
	flags.StringVar(&f.missing, "missing", string(catalog.MissingNominal), "Missing-item policy: nominal or prorate")
	flags.StringVar(&f.respondent, "respondent", "", "Respondent id to pick from a CSV with several rows")
	flags.StringVar(&f.color, "color", "auto", "Colour text output: auto, always or never")
	return cmd
}

func runScore(cmd *cobra.Command, catalogName, answersPath string, f *scoreFlags) error {
	cat, err := loadCatalog(cmd, catalogName)
	if err != nil {
		return err
	}
	if cat, err = cat.WithMissingPolicy(catalog.MissingPolicy(f.missing)); err != nil {
		return exitError(2, "%v", err)
	}
	respondent, answers, err := loadAnswers(answersPath, f.respondent)
	if err != nil {
		return exitError(3, "failed to load answers: %v", err)
	}
	profile, err := services.ScoreQuestionnaire(cat, answers)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAnswer) {
			return exitError(2, "%v", err)
		}
		return err
	}

	res, err := render.Export(cat, profile, answers, render.Params{
		Format:       f.format,
		RespondentID: respondent,
		Formulas:     f.formulas,
		Styles:       pickStyles(f.color, f.out == "" && isatty.IsTerminal(os.Stdout.Fd())),
	})
	if err != nil {
		return exitError(2, "%v", err)
	}
	return writeOutput(cmd.OutOrStdout(), f.out, res.Data)
}

func pickStyles(mode string, terminal bool) render.Styles {
	switch mode {
	case "always":
		return render.ColorStyles()
	case "never":
		return render.PlainStyles()
	}
	if terminal {
		return render.ColorStyles()
	}
	return render.PlainStyles()
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return exitError(3, "failed to write output: %v", err)
	}
	return nil
}

// loadAnswers reads a JSON object of item id to answer (optionally wrapped
// in {"answers": ...}) or a wide CSV. For CSV the row matching respondent
// is used, or the only row when respondent is empty.
func loadAnswers(path, respondent string) (string, services.Answers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		recs, err := services.ParseWideCSV(strings.NewReader(string(data)))
		if err != nil {
			return "", nil, err
		}
		if respondent == "" {
			if len(recs) != 1 {
				return "", nil, fmt.Errorf("%s has %d rows; pick one with --respondent", path, len(recs))
			}
			return recs[0].RespondentID, recs[0].Answers, nil
		}
		for _, r := range recs {
			if r.RespondentID == respondent {
				return r.RespondentID, r.Answers, nil
			}
		}
		return "", nil, fmt.Errorf("respondent %q not found in %s", respondent, path)
	default:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return "", nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if wrapped, ok := raw["answers"]; ok {
			raw = nil
			if err := json.Unmarshal(wrapped, &raw); err != nil {
				return "", nil, fmt.Errorf("parse %s: answers: %w", path, err)
			}
		}
		answers, err := services.DecodeAnswersJSON(raw)
		return respondent, answers, err
	}
}
