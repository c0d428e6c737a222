package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the news index and highlight match reports",
		Long: `Fetch the configured news index and print its entries in page order.
Match reports are highlighted; entries already rejected as non-football are
struck through. Use the printed number with "matchfed show".`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().BoolP("reports-only", "r", false, "Only print match reports")
	cmd.Flags().Bool("json", false, "Print JSON instead of a table")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	set, err := a.indexer.FetchIndex(cmd.Context(), a.cfg.IndexURL)
	if err != nil {
		return err
	}

	rejected, err := a.verdicts.Rejected()
	if err != nil {
		return fmt.Errorf("failed to load verdicts: %w", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printIndexJSON(cmd.OutOrStdout(), set, rejected)
	}

	reportsOnly, _ := cmd.Flags().GetBool("reports-only")
	printIndex(cmd.OutOrStdout(), set, rejected, reportsOnly)
	return nil
}
