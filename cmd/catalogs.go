package cmd

import (
	"fmt"
	"sort"

	"github.com/ginjaninja78/itbp-report-generator/internal/generator"
	"github.com/ginjaninja78/itbp-report-generator/internal/logger"
	"github.com/ginjaninja78/itbp-report-generator/internal/storage"
	"github.com/spf13/cobra"
)

// catalogsCmd fetches and validates the reference catalogs without reading
// any settlement data.
var catalogsCmd = &cobra.Command{
	Use:   "catalogs",
	Short: "Fetch and validate the reference catalogs",
	Long: `Fetch the catalog workbook, check that the ITBP, Transaction Type and
Procesadora sheets carry every required column, and print what was loaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		g := generator.New(appConfig, storage.New(), logger.FromContext(cmd.Context()))
		cat, err := g.LoadCatalogs(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Source:            %s\n", cat.Source)
		fmt.Fprintf(out, "Merchants:         %d\n", len(cat.Merchants))
		fmt.Fprintf(out, "Transaction types: %d\n", len(cat.TxnDescriptions))
		fmt.Fprintf(out, "Countries:         %d\n", len(cat.Processors))

		countries := make([]string, 0, len(cat.Processors))
		for _, p := range cat.Processors {
			countries = append(countries, p.Country)
		}
		sort.Strings(countries)
		for _, c := range countries {
			fmt.Fprintf(out, "  %s\n", c)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogsCmd)
}
