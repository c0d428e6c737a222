package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pevans/matchfed/assets"
	"github.com/pevans/matchfed/history"
	"github.com/pevans/matchfed/matchdetail"
	"github.com/pevans/matchfed/newsindex"
)

const maxTitleWidth = 70

// printIndex prints the numbered index. Numbers are 1-based and stable with
// respect to the full entry list, so they can be passed to show even when
// reportsOnly hides some entries.
func printIndex(w io.Writer, set *newsindex.ReportIndexSet, rejected map[string]bool, reportsOnly bool) {
	if len(set.Entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	fmt.Fprintf(w, "%s %s\n", HeaderStyle.Render("Index:"), LinkStyle.Render(set.Source))
	fmt.Fprintf(w, "%d entries, %d match reports\n\n", len(set.Entries), len(set.Reports))

	for i, entry := range set.Entries {
		report := set.IsReport(i)
		if reportsOnly && !report {
			continue
		}

		title := truncate(entry.Title, maxTitleWidth)
		switch {
		case rejected[entry.Link]:
			title = RejectedStyle.Render(title) + DimStyle.Render(" (not football)")
		case report:
			title = ReportStyle.Render(title)
		default:
			title = DimStyle.Render(title)
		}

		fmt.Fprintf(w, "%3d: %s\n", i+1, title)
	}
}

// printIndexJSON prints the index with per-entry annotations.
func printIndexJSON(w io.Writer, set *newsindex.ReportIndexSet, rejected map[string]bool) error {
	type entry struct {
		Number   int    `json:"number"`
		Title    string `json:"title"`
		Link     string `json:"link"`
		Report   bool   `json:"report"`
		Rejected bool   `json:"rejected"`
	}

	entries := make([]entry, 0, len(set.Entries))
	for i, e := range set.Entries {
		entries = append(entries, entry{
			Number:   i + 1,
			Title:    e.Title,
			Link:     e.Link,
			Report:   set.IsReport(i),
			Rejected: rejected[e.Link],
		})
	}

	return writeJSON(w, map[string]any{
		"source":     set.Source,
		"fetched_at": set.FetchedAt,
		"entries":    entries,
	})
}

// printReport prints the commentary and asset locations of a report.
// Skipped items are omitted.
func printReport(w io.Writer, title string, report *matchdetail.Report) {
	if title != "" {
		fmt.Fprintln(w, HeaderStyle.Render(title))
	}
	fmt.Fprintln(w, LinkStyle.Render(report.URL))
	fmt.Fprintln(w)

	printed := 0
	for _, item := range report.Items {
		switch item.Kind {
		case matchdetail.KindText:
			fmt.Fprintln(w, strings.TrimSpace(item.Text))
			printed++
		case matchdetail.KindAsset:
			fmt.Fprintln(w, MediaStyle.Render(fmt.Sprintf("[GIF %d] %s", item.Asset.Position, item.Asset.Path)))
			printed++
		}
	}

	if printed == 0 {
		fmt.Fprintln(w, DimStyle.Render("The key events section is empty."))
	}
}

// printRejected prints the message shown for a page without key events.
func printRejected(w io.Writer, link string) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Not a football match report:"), link)
}

// printVerdicts prints stored verdicts, newest first.
func printVerdicts(w io.Writer, verdicts []history.Verdict) {
	if len(verdicts) == 0 {
		fmt.Fprintln(w, "No verdicts recorded.")
		return
	}

	for _, v := range verdicts {
		kind := ReportStyle.Render(string(v.Kind))
		if v.Kind == history.KindNotFootball {
			kind = DimStyle.Render(string(v.Kind))
		}

		title := v.Title
		if title == "" {
			title = "(untitled)"
		}

		fmt.Fprintf(w, "%s  %s\n", kind, truncate(title, maxTitleWidth))
		fmt.Fprintf(w, "   %s | Checked: %s", v.Link, v.CheckedAt.Local().Format("2006-01-02 15:04"))
		if v.Kind == history.KindReport {
			fmt.Fprintf(w, " | %d items, %d GIFs", v.Items, v.Assets)
		}
		fmt.Fprintln(w)
	}
}

// printAssets prints the files of one asset batch.
func printAssets(w io.Writer, result *assets.ListResult) {
	fmt.Fprintf(w, "%s %s\n", HeaderStyle.Render("Batch:"), result.Batch)
	if len(result.Files) == 0 {
		fmt.Fprintln(w, "No GIFs in this batch.")
	}
	for _, f := range result.Files {
		fmt.Fprintf(w, "%3d: %s %s\n", f.Position, f.Path, DimStyle.Render(fmt.Sprintf("(%d bytes, %s)", f.Size, f.MIME)))
	}
	for _, re := range result.Errors {
		fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("unreadable:"), re.Error())
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// truncate shortens s to at most width runes.
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
