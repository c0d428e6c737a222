package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/pevans/matchfed/history"
	"github.com/spf13/cobra"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <number|url>",
		Short: "Extract the key events of a match report",
		Long: `Fetch a match report and print the commentary under its key events
heading. GIFs are saved to the asset directory, replacing the previous
report's files.

The argument is either an entry number printed by "matchfed list" or a
report URL. Entries that are not match reports, and links previously found
not to be football reports, are refused unless --force is given.`,
		Example: `  matchfed show 3
  matchfed show https://m.dongqiudi.com/article/123.html
  matchfed show 5 --force`,
		Args: cobra.ExactArgs(1),
		RunE: runShow,
	}

	cmd.Flags().BoolP("force", "f", false, "Fetch even if the entry is not a match report")
	cmd.Flags().Bool("json", false, "Print JSON instead of text")

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	link, title := args[0], ""
	if n, err := strconv.Atoi(args[0]); err == nil {
		set, err := a.indexer.FetchIndex(cmd.Context(), a.cfg.IndexURL)
		if err != nil {
			return err
		}
		if n < 1 || n > len(set.Entries) {
			return fmt.Errorf("entry %d out of range (1-%d)", n, len(set.Entries))
		}
		if !set.IsReport(n-1) && !force {
			return fmt.Errorf("entry %d is not a match report (use --force to fetch it anyway)", n)
		}
		link, title = set.Entries[n-1].Link, set.Entries[n-1].Title
	}

	if !force {
		v, err := a.verdicts.Get(link)
		switch {
		case err == nil && v.Kind == history.KindNotFootball:
			return fmt.Errorf("%s was already found not to be a football match report (use --force to fetch it again)", link)
		case err != nil && !errors.Is(err, history.ErrVerdictNotFound):
			return fmt.Errorf("failed to look up verdict: %w", err)
		}
	}

	report, err := a.extractor.FetchDetails(cmd.Context(), link)
	if err != nil {
		return fmt.Errorf("failed to fetch details: %w", err)
	}

	if !report.IsFootball() {
		if _, err := a.verdicts.Record(link, title, history.KindNotFootball, 0, 0); err != nil {
			a.logger.Warn("failed to record verdict", "link", link, "error", err)
		}
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), report)
		}
		printRejected(cmd.OutOrStdout(), link)
		return nil
	}

	if _, err := a.verdicts.Record(link, title, history.KindReport, len(report.Items), len(report.Assets())); err != nil {
		a.logger.Warn("failed to record verdict", "link", link, "error", err)
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	printReport(cmd.OutOrStdout(), title, report)
	return nil
}
