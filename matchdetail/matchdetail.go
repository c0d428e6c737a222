// Package matchdetail extracts commentary and key-moment GIFs from a match
// report page.
package matchdetail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pevans/matchfed/assets"
	"github.com/pevans/matchfed/fetch"
	"github.com/pevans/matchfed/scraper"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of GIFs downloaded at once.
const DefaultConcurrency = 4

// AssetSink hands out a fresh batch for every extraction. *assets.Store
// implements it.
type AssetSink interface {
	Begin() (*assets.Batch, error)
}

// Extractor turns report pages into DetailItem sequences.
type Extractor struct {
	client      *fetch.Client
	sink        AssetSink
	selectors   scraper.Selectors
	concurrency int
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSelectors overrides the detail page selectors and marker.
func WithSelectors(s scraper.Selectors) Option {
	return func(e *Extractor) {
		e.selectors = s.Merge()
	}
}

// WithConcurrency sets how many GIFs download in parallel. 1 downloads them
// strictly in order.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an extractor. With a nil sink assets are downloaded
// but not written to disk.
func NewExtractor(client *fetch.Client, sink AssetSink, opts ...Option) *Extractor {
	e := &Extractor{
		client:      client,
		sink:        sink,
		selectors:   scraper.DefaultSelectors(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// FetchDetails downloads reportURL and extracts its key events. A page
// without the key events heading yields a NotFootballReport report, not an
// error. Errors are transport failures and cancellation.
func (e *Extractor) FetchDetails(ctx context.Context, reportURL string) (*Report, error) {
	base, err := url.Parse(reportURL)
	if err != nil {
		return nil, fmt.Errorf("invalid report URL: %w", err)
	}

	doc, err := e.client.Document(ctx, reportURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report page: %w", err)
	}

	return e.Extract(ctx, doc, base)
}

// download is a GIF waiting to be fetched for the item at position.
type download struct {
	position int
	url      string
}

// Extract classifies the siblings of the key events heading in doc. Asset
// URLs are resolved against base.
func (e *Extractor) Extract(ctx context.Context, doc *goquery.Document, base *url.URL) (*Report, error) {
	report := &Report{URL: urlString(base), Items: []DetailItem{}}

	heading := doc.Find(e.selectors.Heading).First()
	if text, ok := soleString(heading); !ok || text != e.selectors.Marker {
		report.Outcome = NotFootballReport
		e.logger.Debug("no key events heading", "url", report.URL)
		return report, nil
	}

	siblings := heading.NextUntil(e.selectors.Heading)
	items := make([]DetailItem, siblings.Length())
	var downloads []download

	siblings.Each(func(i int, s *goquery.Selection) {
		img := s.Filter(e.selectors.Image)
		if img.Length() == 0 {
			img = s.Find(e.selectors.Image).First()
		}

		switch {
		case img.Length() > 0:
			src := strings.TrimSpace(img.AttrOr(e.selectors.GifAttr, ""))
			if src == "" {
				items[i] = SkippedItem(i, SkipAdvertisement)
				return
			}
			downloads = append(downloads, download{position: i, url: resolveAsset(base, src)})
		case strings.TrimSpace(s.Text()) != "":
			items[i] = TextItem(i, s.Text())
		default:
			items[i] = SkippedItem(i, SkipEmpty)
		}
	})

	var batch *assets.Batch
	if e.sink != nil && len(downloads) > 0 {
		var err error
		if batch, err = e.sink.Begin(); err != nil {
			return nil, fmt.Errorf("failed to start asset batch: %w", err)
		}
	}

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for _, d := range downloads {
		g.Go(func() error {
			// Each goroutine owns items[d.position]; nothing else writes it.
			items[d.position] = e.fetchAsset(ctx, batch, d)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		if batch != nil {
			if derr := batch.Discard(); derr != nil {
				e.logger.Warn("failed to discard asset batch", "batch", batch.ID(), "error", derr)
			}
		}
		return nil, err
	}

	if batch != nil {
		if err := batch.Commit(); err != nil {
			e.logger.Warn("failed to prune old asset batches", "error", err)
		}
		report.Batch = batch.ID()
	}

	report.Outcome = Complete
	report.Items = items
	e.logger.Info("extracted report", "url", report.URL, "items", len(items), "assets", len(downloads))
	return report, nil
}

// fetchAsset downloads and stores one GIF. Failures become a skipped item so
// that the rest of the report survives.
func (e *Extractor) fetchAsset(ctx context.Context, batch *assets.Batch, d download) DetailItem {
	data, err := e.client.BytesWithRetry(ctx, d.url)
	if err != nil {
		e.logger.Warn("failed to download asset", "position", d.position, "url", d.url, "error", err)
		return SkippedItem(d.position, SkipDownloadFailed)
	}

	asset := &Asset{
		Position: d.position,
		URL:      d.url,
		Data:     data,
		MIME:     mimetype.Detect(data).String(),
	}

	if batch != nil {
		file, err := batch.Save(d.position, data)
		if err != nil {
			e.logger.Warn("failed to save asset", "position", d.position, "error", err)
			return SkippedItem(d.position, SkipSaveFailed)
		}
		asset.Path = file.Path
	}

	if asset.MIME != "image/gif" {
		e.logger.Warn("asset is not a GIF", "position", d.position, "url", d.url, "mime", asset.MIME)
	}

	return AssetItem(asset)
}

// soleString returns the text of s when its first node has exactly one
// child on every level down to a text node, as in <h2>text</h2> or
// <h2><span>text</span></h2>. Headings with mixed content have no single
// string.
func soleString(s *goquery.Selection) (string, bool) {
	if s.Length() == 0 {
		return "", false
	}
	for n := s.Get(0); ; {
		child := n.FirstChild
		if child == nil || child.NextSibling != nil {
			return "", false
		}
		switch child.Type {
		case html.TextNode:
			return child.Data, true
		case html.ElementNode:
			n = child
		default:
			return "", false
		}
	}
}

// StripQuery drops everything from the first '?' of an asset URL.
func StripQuery(src string) string {
	if i := strings.IndexByte(src, '?'); i >= 0 {
		return src[:i]
	}
	return src
}

func resolveAsset(base *url.URL, src string) string {
	src = StripQuery(src)
	if base == nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(ref).String()
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
