package content

import "git.home.luguber.info/inful/sitegraph/internal/frontmatter"

// Visibility holds independent output-surface flags. The zero value hides
// everything; use DefaultVisibility for a normal page.
type Visibility struct {
	Listings bool
	Sitemap  bool
	Search   bool
	Feed     bool
	Menu     bool
}

// DefaultVisibility returns a page visible on every surface.
func DefaultVisibility() Visibility {
	return Visibility{Listings: true, Sitemap: true, Search: true, Feed: true, Menu: true}
}

// Hidden reports whether the page is excluded from every surface.
func (v Visibility) Hidden() bool {
	return !v.Listings && !v.Sitemap && !v.Search && !v.Feed && !v.Menu
}

// VisibilityFrom reads `hidden` and the `visibility` mapping from frontmatter.
// Drafts are hidden everywhere.
func VisibilityFrom(fm frontmatter.Fields) Visibility {
	if fm.Bool("hidden") || fm.Bool("draft") {
		return Visibility{}
	}
	v := DefaultVisibility()
	m, ok := fm.Mapping("visibility")
	if !ok {
		return v
	}
	for key, raw := range m {
		b, isBool := raw.(bool)
		if !isBool {
			continue
		}
		switch key {
		case "listings", "list":
			v.Listings = b
		case "sitemap":
			v.Sitemap = b
		case "search":
			v.Search = b
		case "feed", "rss":
			v.Feed = b
		case "menu":
			v.Menu = b
		}
	}
	return v
}
