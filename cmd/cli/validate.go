package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var validateSource catalogSource

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate [catalog.json|catalog.xlsx|url]",
	Short: "Load and validate a catalog without planning",
	Example: `  coupon-planner validate ./cart.json
  coupon-planner validate --items ./cart.csv --coupons ./coupons.json --encoding windows-1250`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	f := validateCmd.Flags()
	f.StringVar(&validateSource.items, "items", "", "cart items CSV file")
	f.StringVar(&validateSource.coupons, "coupons", "", "coupons JSON file (used with --items)")
	f.StringVar(&validateSource.encoding, "encoding", "auto", "items CSV encoding")
	f.StringVar(&validateSource.delimiter, "delimiter", "", "items CSV delimiter (default: detect)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cat, err := validateSource.load(cmd.Context(), args)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Metric\tValue\n")
	fmt.Fprintf(w, "------\t-----\n")
	fmt.Fprintf(w, "Items\t%d\n", len(cat.Items()))
	fmt.Fprintf(w, "Shops\t%d\n", len(cat.Shops()))
	fmt.Fprintf(w, "Coupons\t%d\n", len(cat.Rules()))
	fmt.Fprintf(w, "Baseline\t%s\n", cat.Baseline())
	fmt.Fprintf(w, "Fingerprint\t%s\n", cat.Fingerprint())
	w.Flush()

	fmt.Fprintln(cmd.OutOrStdout(), "\nCatalog is valid.")
	return nil
}
