package scraper

// DefaultMarker is the heading text that opens the key events section of a
// match report page ("key events").
const DefaultMarker = "关键事件"

// Selectors describes the markup contract of the news site: where the index
// list lives and how a match report page is laid out.
type Selectors struct {
	// Entries are the ListItem elements under the first ListContainer.
	ListContainer string `yaml:"list_container" json:"list_container"`
	ListItem      string `yaml:"list_item" json:"list_item"`
	Title         string `yaml:"title" json:"title"`
	Link          string `yaml:"link" json:"link"`

	// Heading is the element that opens (and closes) a detail section.
	Heading string `yaml:"heading" json:"heading"`
	Marker  string `yaml:"marker" json:"marker"`
	Image   string `yaml:"image" json:"image"`
	GifAttr string `yaml:"gif_attr" json:"gif_attr"`
}

// DefaultSelectors returns the selectors matching the mobile site's markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ListContainer: "ul",
		ListItem:      "li",
		Title:         "h3",
		Link:          "a",
		Heading:       "h2",
		Marker:        DefaultMarker,
		Image:         "img",
		GifAttr:       "data-gif-src",
	}
}

// Merge returns s with every empty field filled from the defaults.
func (s Selectors) Merge() Selectors {
	d := DefaultSelectors()
	if s.ListContainer == "" {
		s.ListContainer = d.ListContainer
	}
	if s.ListItem == "" {
		s.ListItem = d.ListItem
	}
	if s.Title == "" {
		s.Title = d.Title
	}
	if s.Link == "" {
		s.Link = d.Link
	}
	if s.Heading == "" {
		s.Heading = d.Heading
	}
	if s.Marker == "" {
		s.Marker = d.Marker
	}
	if s.Image == "" {
		s.Image = d.Image
	}
	if s.GifAttr == "" {
		s.GifAttr = d.GifAttr
	}
	return s
}
