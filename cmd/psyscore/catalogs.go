package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soaringjerry/psyscore/internal/catalog"
	"github.com/soaringjerry/psyscore/internal/services"
)

// loadCatalog resolves a built-in catalog by name, or the --catalog-file
// document when one is given.
func loadCatalog(cmd *cobra.Command, name string) (*catalog.Catalog, error) {
	if path, _ := cmd.Flags().GetString("catalog-file"); path != "" {
		cat, err := catalog.LoadFile(path)
		if err != nil {
			return nil, exitError(3, "failed to load catalog: %v", err)
		}
		if name != "" && cat.ID() != name {
			return nil, exitError(2, "catalog file defines %q, not %q", cat.ID(), name)
		}
		return cat, nil
	}
	cat, err := catalog.Builtin(name)
	if err != nil {
		return nil, exitError(2, "unknown catalog %q", name)
	}
	return cat, nil
}

func newCatalogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalogs",
		Short: "List the built-in questionnaires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := catalog.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				cat := catalog.MustBuiltin(name)
				fmt.Fprintf(out, "%-8s %3d items  %s\n", cat.ID(), cat.ItemCount(), cat.Title())
				fmt.Fprintf(out, "         facets: %s\n", strings.Join(cat.FacetNames(), ", "))
			}
			return nil
		},
	}
}

func newItemsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "items <catalog>",
		Short: "Print a catalog's items as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(cmd, args[0])
			if err != nil {
				return err
			}
			data, err := services.ExportItemsCSV(cat)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
