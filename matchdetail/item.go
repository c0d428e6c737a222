package matchdetail

import "fmt"

// Kind tags a DetailItem.
type Kind int

const (
	KindText Kind = iota
	KindAsset
	KindSkipped
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAsset:
		return "asset"
	case KindSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// SkipReason says why a sibling produced no content.
type SkipReason string

const (
	// SkipAdvertisement is an image without a GIF source.
	SkipAdvertisement SkipReason = "advertisement"
	// SkipEmpty is an element with neither image nor text.
	SkipEmpty SkipReason = "empty"
	// SkipDownloadFailed is a GIF that could not be fetched.
	SkipDownloadFailed SkipReason = "download_failed"
	// SkipSaveFailed is a GIF that downloaded but could not be stored.
	SkipSaveFailed SkipReason = "save_failed"
)

// Asset is a downloaded key-moment animation.
type Asset struct {
	Position int    `json:"position"`
	URL      string `json:"url"`
	Data     []byte `json:"-"`
	Path     string `json:"path,omitempty"`
	MIME     string `json:"mime"`
}

// DetailItem is one sibling of the key events heading. Exactly one of Text,
// Asset or Skip is meaningful, selected by Kind.
type DetailItem struct {
	Kind     Kind       `json:"kind"`
	Position int        `json:"position"`
	Text     string     `json:"text,omitempty"`
	Asset    *Asset     `json:"asset,omitempty"`
	Skip     SkipReason `json:"skip,omitempty"`
}

// TextItem returns a commentary item.
func TextItem(position int, text string) DetailItem {
	return DetailItem{Kind: KindText, Position: position, Text: text}
}

// AssetItem returns an item carrying a downloaded asset.
func AssetItem(asset *Asset) DetailItem {
	return DetailItem{Kind: KindAsset, Position: asset.Position, Asset: asset}
}

// SkippedItem returns a placeholder item.
func SkippedItem(position int, reason SkipReason) DetailItem {
	return DetailItem{Kind: KindSkipped, Position: position, Skip: reason}
}

// Outcome is the classification of a detail page.
type Outcome int

const (
	// Complete means the key events section was found and extracted.
	Complete Outcome = iota
	// NotFootballReport means the page has no key events section. This is
	// an expected answer for esports and other non-football reports.
	NotFootballReport
)

func (o Outcome) String() string {
	switch o {
	case Complete:
		return "complete"
	case NotFootballReport:
		return "not_football_report"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Report is the result of one detail fetch.
type Report struct {
	URL     string       `json:"url"`
	Outcome Outcome      `json:"outcome"`
	Batch   string       `json:"batch,omitempty"` // asset batch holding this report's GIFs
	Items   []DetailItem `json:"items"`
}

// IsFootball reports whether the page carried a key events section.
func (r *Report) IsFootball() bool {
	return r.Outcome == Complete
}

// Assets returns the downloaded assets in document order.
func (r *Report) Assets() []*Asset {
	var out []*Asset
	for _, item := range r.Items {
		if item.Kind == KindAsset {
			out = append(out, item.Asset)
		}
	}
	return out
}
