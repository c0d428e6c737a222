package main

import (
	"errors"
	"fmt"

	"github.com/pevans/matchfed/assets"
	"github.com/spf13/cobra"
)

// NewAssetsCmd creates the assets command.
func NewAssetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets [batch]",
		Short: "List the GIFs saved for a report",
		Long: `List the GIFs saved by "matchfed show". Each report's GIFs are stored
in their own batch; without an argument the latest batch is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAssets,
	}

	cmd.Flags().Bool("batches", false, "List stored batches instead, newest first")
	cmd.Flags().Bool("json", false, "Print JSON instead of text")

	return cmd
}

func runAssets(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if listBatches, _ := cmd.Flags().GetBool("batches"); listBatches {
		batches := a.assets.Batches()
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), map[string]any{"batches": batches})
		}
		for _, b := range batches {
			fmt.Fprintln(cmd.OutOrStdout(), b)
		}
		return nil
	}

	batch := a.assets.Latest()
	if len(args) == 1 {
		batch = args[0]
	}
	if batch == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "No assets stored yet.")
		return nil
	}

	result, err := a.assets.List(batch)
	if errors.Is(err, assets.ErrBatchNotFound) {
		return fmt.Errorf("no asset batch %q", batch)
	}
	if err != nil {
		return err
	}

	for _, re := range result.Errors {
		a.logger.Warn("unreadable asset", "batch", batch, "file", re.Filename, "error", re.Err)
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	printAssets(cmd.OutOrStdout(), result)
	return nil
}
