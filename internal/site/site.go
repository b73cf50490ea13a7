// Package site holds the in-memory site graph produced by discovery.
package site

import (
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitegraph/internal/config"
	"git.home.luguber.info/inful/sitegraph/internal/content"
	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/pathresolve"
	"git.home.luguber.info/inful/sitegraph/internal/registry"
	"git.home.luguber.info/inful/sitegraph/internal/xref"
)

// Collision is a content-structure collision (duplicate id, path or URL).
type Collision = xref.Collision

// Site is the root of the site graph. Pages and sections change only
// through setters, which invalidate every derived page list.
type Site struct {
	root       string
	cfg        *config.Config
	configHash string

	pages    []*content.Page
	sections []*content.Section
	home     *content.Page
	registry *registry.Registry
	index    *xref.Index

	regular   *Derived[[]*content.Page]
	listable  *Derived[[]*content.Page]
	generated *Derived[[]*content.Page]
}

// New creates an empty site for cfg. The root is canonicalized to an
// absolute path once here.
func New(cfg *config.Config) (*Site, error) {
	root := cfg.Root()
	if !filepath.IsAbs(root) {
		return nil, foundationerrors.ConfigError("site root must be absolute").WithContext("root", root).Build()
	}
	resolved, err := pathresolve.Resolve(root, root)
	if err != nil {
		return nil, foundationerrors.ConfigError("site root cannot be resolved").WithCause(err).Build()
	}

	s := &Site{
		root:       resolved,
		cfg:        cfg,
		configHash: cfg.Hash(),
		registry:   registry.New(cfg.ContentPath()),
	}
	s.index, _ = xref.Build(nil)
	s.regular = NewDerived(func() []*content.Page {
		return s.filter(func(p *content.Page) bool { return !p.Generated && p.Kind == content.KindPage })
	})
	s.listable = NewDerived(func() []*content.Page {
		out := s.filter(func(p *content.Page) bool { return !p.Generated && p.Kind == content.KindPage && p.Listable() })
		SortPages(out)
		return out
	})
	s.generated = NewDerived(func() []*content.Page {
		return s.filter(func(p *content.Page) bool { return p.Generated })
	})
	return s, nil
}

// Root returns the absolute site root.
func (s *Site) Root() string { return s.root }

// Config returns the site configuration.
func (s *Site) Config() *config.Config { return s.cfg }

// ConfigHash returns the configuration hash the site was built with.
func (s *Site) ConfigHash() string { return s.configHash }

// OutputDir implements content.Owner.
func (s *Site) OutputDir() string { return s.cfg.OutputPath() }

// BaseURL implements content.Owner.
func (s *Site) BaseURL() string { return s.cfg.BaseURL }

// Pages returns every page, generated ones included.
func (s *Site) Pages() []*content.Page { return slices.Clone(s.pages) }

// Sections returns the root sections.
func (s *Site) Sections() []*content.Section { return slices.Clone(s.sections) }

// Home returns the home page, which may be nil.
func (s *Site) Home() *content.Page { return s.home }

// Registry returns the section registry.
func (s *Site) Registry() *registry.Registry { return s.registry }

// Index returns the cross-reference index.
func (s *Site) Index() *xref.Index { return s.index }

// SetPages replaces the page list.
func (s *Site) SetPages(pages []*content.Page) {
	s.pages = slices.Clone(pages)
	s.invalidate()
}

// AddPage appends a page.
func (s *Site) AddPage(p *content.Page) {
	s.pages = append(s.pages, p)
	s.invalidate()
}

// SetSections replaces the root sections.
func (s *Site) SetSections(sections []*content.Section) {
	s.sections = slices.Clone(sections)
	s.invalidate()
}

// SetHome sets the home page.
func (s *Site) SetHome(p *content.Page) {
	s.home = p
	s.invalidate()
}

// SetIndex replaces the cross-reference index.
func (s *Site) SetIndex(idx *xref.Index) { s.index = idx }

// RegularPages returns non-generated content pages, index pages excluded.
func (s *Site) RegularPages() []*content.Page { return s.regular.Get() }

// ListablePages returns regular pages visible in listings, ordered by
// weight, then title, then path.
func (s *Site) ListablePages() []*content.Page { return s.listable.Get() }

// GeneratedPages returns synthetic pages.
func (s *Site) GeneratedPages() []*content.Page { return s.generated.Get() }

// InvalidateDerived drops all derived page lists.
func (s *Site) InvalidateDerived() { s.invalidate() }

func (s *Site) invalidate() {
	s.regular.Invalidate()
	s.listable.Invalidate()
	s.generated.Invalidate()
}

func (s *Site) filter(keep func(*content.Page) bool) []*content.Page {
	var out []*content.Page
	for _, p := range s.pages {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// SortPages orders pages by weight, then title, then content path. Pages
// without a weight sort after weighted ones.
func SortPages(pages []*content.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		wi, wj := pages[i].Weight(), pages[j].Weight()
		if wi != wj {
			if wi == 0 || wj == 0 {
				return wj == 0
			}
			return wi < wj
		}
		ti, tj := strings.ToLower(pages[i].Title()), strings.ToLower(pages[j].Title())
		if ti != tj {
			return ti < tj
		}
		return pages[i].RelPath < pages[j].RelPath
	})
}

// ValidateNoURLCollisions returns one collision per URL claimed by more than
// one page, each naming every source. An empty result means no collisions.
func (s *Site) ValidateNoURLCollisions() []Collision {
	claims := make(map[string][]string)
	for _, p := range s.pages {
		u := p.URL()
		claims[u] = append(claims[u], source(p))
	}

	keys := make([]string, 0, len(claims))
	for u, sources := range claims {
		if len(sources) > 1 {
			keys = append(keys, u)
		}
	}
	sort.Strings(keys)

	out := make([]Collision, 0, len(keys))
	for _, u := range keys {
		out = append(out, Collision{Kind: xref.DuplicateURL, Key: u, Sources: claims[u]})
	}
	return out
}

func source(p *content.Page) string {
	if p.Generated {
		return "(generated) " + p.RelPath
	}
	return p.RelPath
}
