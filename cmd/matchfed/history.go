package main

import (
	"errors"
	"fmt"

	"github.com/pevans/matchfed/history"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored report verdicts",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().String("kind", "", "Only show verdicts of this kind (report, not_football)")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of verdicts (0 for all)")
	cmd.Flags().Bool("json", false, "Print JSON instead of text")

	cmd.AddCommand(&cobra.Command{
		Use:   "forget <url>",
		Short: "Delete the verdict for a link so it can be fetched again",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryForget,
	})

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	kind, _ := cmd.Flags().GetString("kind")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	filter := history.Filter{Limit: limit}
	if kind != "" {
		k := history.Kind(kind)
		if k != history.KindReport && k != history.KindNotFootball {
			return fmt.Errorf("%w: %q", history.ErrInvalidKind, kind)
		}
		filter.Kind = &k
	}
	if limit < 0 {
		return fmt.Errorf("limit must be non-negative")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	verdicts, err := a.verdicts.List(filter)
	if err != nil {
		return fmt.Errorf("failed to list verdicts: %w", err)
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), map[string]any{"verdicts": verdicts})
	}
	printVerdicts(cmd.OutOrStdout(), verdicts)
	return nil
}

func runHistoryForget(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.verdicts.Delete(args[0]); err != nil {
		if errors.Is(err, history.ErrVerdictNotFound) {
			return fmt.Errorf("no verdict recorded for %s", args[0])
		}
		return fmt.Errorf("failed to delete verdict: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Forgot %s\n", args[0])
	return nil
}
