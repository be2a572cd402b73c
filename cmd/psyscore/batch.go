package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/psyscore/internal/catalog"
	"github.com/soaringjerry/psyscore/internal/services"
)

type batchFlags struct {
	out     string
	missing string
	alpha   bool
}

func newBatchCmd() *cobra.Command {
	f := &batchFlags{}
	cmd := &cobra.Command{
		Use:   "batch <catalog> <wide.csv>",
		Short: "Score every respondent of a wide CSV",
		Long: "Score every row of a CSV whose first column is the respondent id and whose\n" +
			"other columns are item ids. Writes one CSV row per respondent; with --alpha\n" +
			"prints Cronbach's alpha per facet to stderr.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args[0], args[1], f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.out, "out", "", "Output file path (default: stdout)")
	flags.StringVar(&f.missing, "missing", string(catalog.MissingNominal), "Missing-item policy: nominal or prorate")
	flags.BoolVar(&f.alpha, "alpha", true, "Report facet reliability")
	return cmd
}

func runBatch(cmd *cobra.Command, catalogName, path string, f *batchFlags) error {
	cat, err := loadCatalog(cmd, catalogName)
	if err != nil {
		return err
	}
	if cat, err = cat.WithMissingPolicy(catalog.MissingPolicy(f.missing)); err != nil {
		return exitError(2, "%v", err)
	}
	file, err := os.Open(path)
	if err != nil {
		return exitError(3, "failed to open answers: %v", err)
	}
	defer file.Close()
	recs, err := services.ParseWideCSV(file)
	if err != nil {
		return exitError(3, "failed to load answers: %v", err)
	}

	engine := services.NewEngine(cat)
	rows := make([]services.BatchRow, 0, len(recs))
	batch := make([]services.Answers, 0, len(recs))
	for _, r := range recs {
		p, err := engine.Score(r.Answers)
		if err != nil {
			return exitError(2, "respondent %s: %v", r.RespondentID, err)
		}
		rows = append(rows, services.BatchRow{RespondentID: r.RespondentID, Profile: p})
		batch = append(batch, r.Answers)
	}
	data, err := services.ExportBatchCSV(cat, rows)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), f.out, data); err != nil {
		return err
	}

	if !f.alpha {
		return nil
	}
	alphas, err := services.FacetReliability(cat, batch)
	if err != nil {
		return err
	}
	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "%d respondents\n", len(rows))
	for _, a := range alphas {
		if a.Respondents < 2 {
			fmt.Fprintf(errOut, "  %-32s alpha n/a (n=%d)\n", a.Facet, a.Respondents)
			continue
		}
		fmt.Fprintf(errOut, "  %-32s alpha %.3f (n=%d)\n", a.Facet, a.Alpha, a.Respondents)
	}
	return nil
}
