package domain

// Background is the paper style rendered behind a page's elements.
type Background string

const (
	BackgroundWhite      Background = "white"
	BackgroundGrid       Background = "grid"
	BackgroundDots       Background = "dots"
	BackgroundDark       Background = "dark"
	BackgroundMangaLines Background = "manga-lines"
)

// Valid reports whether b is one of the known backgrounds.
func (b Background) Valid() bool {
	switch b {
	case BackgroundWhite, BackgroundGrid, BackgroundDots, BackgroundDark, BackgroundMangaLines:
		return true
	}
	return false
}

// Page is one page of the journal. Element order is insertion order and
// determines default paint stacking before ZIndex is consulted.
type Page struct {
	ID         string     `json:"id"`
	Background Background `json:"background"`
	Elements   []Element  `json:"elements"`
}

// Clone returns a deep copy of the page.
func (p Page) Clone() Page {
	out := p
	out.Elements = make([]Element, len(p.Elements))
	copy(out.Elements, p.Elements)
	return out
}

// ClonePages deep-copies a page list.
func ClonePages(pages []Page) []Page {
	out := make([]Page, len(pages))
	for i, p := range pages {
		out[i] = p.Clone()
	}
	return out
}
