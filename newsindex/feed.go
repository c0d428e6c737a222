package newsindex

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

// ParseFeed reads an RSS or Atom document and returns its items as entries.
// gofeed normalizes both formats, so item.Title and item.Link cover either.
// Items missing a title or link are dropped, as on the HTML index.
func ParseFeed(r io.Reader, base *url.URL) ([]NewsEntry, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]NewsEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		link, ok := resolve(base, item.Link)
		if !ok {
			continue
		}
		entries = append(entries, NewsEntry{Title: title, Link: link})
	}
	return entries, nil
}
