// Package newsindex fetches the news index page, parses its entries and
// flags the ones that are football match reports.
package newsindex

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/matchfed/fetch"
	"github.com/pevans/matchfed/scraper"
	"golang.org/x/net/html"
)

// Index formats.
const (
	FormatHTML = "html"
	FormatFeed = "feed"
)

// NewsEntry is one article listed on the index page.
type NewsEntry struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// ReportIndexSet is the result of one index fetch: the entries in document
// order and the ascending indices of those classified as match reports.
type ReportIndexSet struct {
	Source    string      `json:"source"`
	FetchedAt time.Time   `json:"fetched_at"`
	Entries   []NewsEntry `json:"entries"`
	Reports   []int       `json:"reports"`
}

// NewReportIndexSet classifies entries and wraps them in a set.
func NewReportIndexSet(source string, entries []NewsEntry) *ReportIndexSet {
	if entries == nil {
		entries = []NewsEntry{}
	}
	return &ReportIndexSet{
		Source:    source,
		FetchedAt: time.Now(),
		Entries:   entries,
		Reports:   Classify(entries),
	}
}

// IsReport reports whether the entry at index i is a match report.
func (s *ReportIndexSet) IsReport(i int) bool {
	for _, r := range s.Reports {
		if r == i {
			return true
		}
		if r > i {
			return false
		}
	}
	return false
}

// Indexer fetches and classifies the news index.
type Indexer struct {
	client    *fetch.Client
	selectors scraper.Selectors
	format    string
	logger    *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithSelectors overrides the index markup selectors.
func WithSelectors(s scraper.Selectors) Option {
	return func(ix *Indexer) {
		ix.selectors = s.Merge()
	}
}

// WithFormat selects FormatHTML or FormatFeed.
func WithFormat(format string) Option {
	return func(ix *Indexer) {
		if format != "" {
			ix.format = format
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		ix.logger = logger
	}
}

// NewIndexer creates an indexer using client for its requests.
func NewIndexer(client *fetch.Client, opts ...Option) *Indexer {
	ix := &Indexer{
		client:    client,
		selectors: scraper.DefaultSelectors(),
		format:    FormatHTML,
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.logger == nil {
		ix.logger = slog.Default()
	}
	return ix
}

// FetchIndex downloads the index at indexURL and classifies its entries.
// Transport and parse failures are returned; there is no partial result.
func (ix *Indexer) FetchIndex(ctx context.Context, indexURL string) (*ReportIndexSet, error) {
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("invalid index URL: %w", err)
	}

	var entries []NewsEntry
	switch ix.format {
	case FormatFeed:
		text, err := ix.client.Text(ctx, indexURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch index: %w", err)
		}
		entries, err = ParseFeed(strings.NewReader(text), base)
		if err != nil {
			return nil, err
		}
	case FormatHTML:
		doc, err := ix.client.Document(ctx, indexURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch index: %w", err)
		}
		entries = ParseIndex(doc, base, ix.selectors)
	default:
		return nil, fmt.Errorf("unknown index format %q", ix.format)
	}

	set := NewReportIndexSet(indexURL, entries)
	ix.logger.Info("fetched index", "url", indexURL, "entries", len(set.Entries), "reports", len(set.Reports))
	return set, nil
}

// ParseIndex extracts entries from the list items of an index document.
// Items without a title text node or a link are dropped; ads and other
// non-article list items look like that.
func ParseIndex(doc *goquery.Document, base *url.URL, sel scraper.Selectors) []NewsEntry {
	sel = sel.Merge()
	entries := []NewsEntry{}

	items := doc.Find(sel.ListContainer).First().Find(sel.ListItem)
	items.Each(func(_ int, li *goquery.Selection) {
		title, ok := firstTextNode(li.Find(sel.Title).First())
		if !ok {
			return
		}
		href, ok := li.Find(sel.Link).First().Attr("href")
		if !ok {
			return
		}
		link, ok := resolve(base, href)
		if !ok {
			return
		}
		entries = append(entries, NewsEntry{Title: title, Link: link})
	})

	return entries
}

// firstTextNode returns the first child of s if it is a non-blank text node.
func firstTextNode(s *goquery.Selection) (string, bool) {
	if s.Length() == 0 {
		return "", false
	}
	child := s.Get(0).FirstChild
	if child == nil || child.Type != html.TextNode {
		return "", false
	}
	text := strings.TrimSpace(child.Data)
	if text == "" {
		return "", false
	}
	return text, true
}

// resolve makes href absolute against base.
func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base == nil {
		return ref.String(), true
	}
	return base.ResolveReference(ref).String(), true
}
