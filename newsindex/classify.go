package newsindex

import "strings"

// IsMatchReport reports whether title looks like a match report: the bytes
// immediately before and after its first '-' are both ASCII digits.
//
// This is the site's title convention, not a score parser. Only the first
// hyphen is examined, so "Top-10 plays 2-1" is rejected, and only the
// neighbouring digits are checked, so "10-2" matches on "0-2". A hyphen at
// either end of the title has no neighbour and never matches.
func IsMatchReport(title string) bool {
	pos := strings.IndexByte(title, '-')
	if pos <= 0 || pos >= len(title)-1 {
		return false
	}
	return isDigit(title[pos-1]) && isDigit(title[pos+1])
}

// Classify returns the ascending indices of the entries that are match
// reports.
func Classify(entries []NewsEntry) []int {
	reports := []int{}
	for i, entry := range entries {
		if IsMatchReport(entry.Title) {
			reports = append(reports, i)
		}
	}
	return reports
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
