// Package xref builds the cross-reference index over a site's pages.
//
// The index is rebuilt in full on every discovery pass; nothing is carried
// over between passes.
package xref

import (
	"errors"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/markdown"
)

var (
	ErrNotFound       = errors.New("reference not found")
	ErrAmbiguous      = errors.New("reference is ambiguous")
	ErrAnchorNotFound = errors.New("anchor not found")
)

// CollisionKind names the kind of content-structure collision.
type CollisionKind string

const (
	DuplicatePath CollisionKind = "duplicate_path"
	DuplicateID   CollisionKind = "duplicate_id"
	DuplicateURL  CollisionKind = "duplicate_url"
	// OutputEscape is a page whose output location leaves the output
	// directory.
	OutputEscape CollisionKind = "output_escape"
)

// Collision reports two or more sources claiming the same key.
type Collision struct {
	Kind    CollisionKind
	Key     string
	Sources []string
}

func (c Collision) Error() string {
	if c.Kind == OutputEscape {
		return fmt.Sprintf("%s: %s resolves outside the output directory (%q)", c.Kind, strings.Join(c.Sources, ", "), c.Key)
	}
	return fmt.Sprintf("%s %q claimed by %s", c.Kind, c.Key, strings.Join(c.Sources, ", "))
}

// HeadingRef locates a heading anchor within a page.
type HeadingRef struct {
	Page    *content.Page
	Heading markdown.Heading
}

// Index is a read-only lookup structure over pages.
type Index struct {
	byPath    map[string]*content.Page
	bySlug    map[string][]*content.Page
	byID      map[string]*content.Page
	byHeading map[string][]HeadingRef
}

// Build indexes pages by canonical path, slug, id and heading anchor.
// Duplicate paths and ids keep the first registration and are reported as
// collisions, one per key, naming every source in registration order.
// Generated pages are indexed by path only.
func Build(pages []*content.Page) (*Index, []Collision) {
	idx := &Index{
		byPath:    make(map[string]*content.Page, len(pages)),
		bySlug:    make(map[string][]*content.Page),
		byID:      make(map[string]*content.Page),
		byHeading: make(map[string][]HeadingRef),
	}
	c := newCollector()

	for _, p := range pages {
		key := content.Key(p.RelPath)
		if first, dup := idx.byPath[key]; dup {
			c.add(DuplicatePath, key, first.RelPath, p.RelPath)
		} else {
			idx.byPath[key] = p
		}

		if p.Generated {
			continue
		}

		if slug := Slugify(p.Slug()); slug != "" {
			idx.bySlug[slug] = append(idx.bySlug[slug], p)
		}

		if id := p.ID(); id != "" {
			if first, dup := idx.byID[id]; dup {
				c.add(DuplicateID, id, first.RelPath, p.RelPath)
			} else {
				idx.byID[id] = p
			}
		}

		if p.Body != nil {
			for _, h := range p.Body.Headings() {
				if h.ID == "" {
					continue
				}
				idx.byHeading[h.ID] = append(idx.byHeading[h.ID], HeadingRef{Page: p, Heading: h})
			}
		}
	}

	return idx, c.list()
}

// ByPath returns the page with canonical key k (content-relative path
// without extension, index files collapsed to their directory).
func (i *Index) ByPath(k string) (*content.Page, bool) {
	p, ok := i.byPath[k]
	return p, ok
}

// BySlug returns every page carrying slug.
func (i *Index) BySlug(slug string) []*content.Page {
	return i.bySlug[Slugify(slug)]
}

// ByID returns the page declaring frontmatter id.
func (i *Index) ByID(id string) (*content.Page, bool) {
	p, ok := i.byID[id]
	return p, ok
}

// ByHeading returns every heading with the given anchor.
func (i *Index) ByHeading(anchor string) []HeadingRef {
	return i.byHeading[anchor]
}

// Len returns the number of pages indexed by path.
func (i *Index) Len() int { return len(i.byPath) }

// Resolve resolves a content reference. Accepted forms:
//
//	id:<id>          frontmatter id
//	/abs/path.md     content-relative path (leading slash optional for paths)
//	path#anchor      path plus heading anchor; "#anchor" alone searches all pages
//	slug             page slug, which must be unique
//
// The returned anchor is empty when the reference has none.
func (i *Index) Resolve(ref string) (*content.Page, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, "", ErrNotFound
	}

	if id, ok := strings.CutPrefix(ref, "id:"); ok {
		if p, found := i.byID[id]; found {
			return p, "", nil
		}
		return nil, "", fmt.Errorf("%w: id %q", ErrNotFound, id)
	}

	target, anchor, hasAnchor := strings.Cut(ref, "#")
	if hasAnchor && target == "" {
		refs := i.byHeading[anchor]
		switch len(refs) {
		case 0:
			return nil, "", fmt.Errorf("%w: #%s", ErrAnchorNotFound, anchor)
		case 1:
			return refs[0].Page, anchor, nil
		default:
			return nil, "", fmt.Errorf("%w: #%s on %d pages", ErrAmbiguous, anchor, len(refs))
		}
	}

	p, err := i.resolveTarget(target)
	if err != nil {
		return nil, "", err
	}
	if hasAnchor && !hasHeading(p, anchor) {
		return nil, "", fmt.Errorf("%w: %s#%s", ErrAnchorNotFound, target, anchor)
	}
	return p, anchor, nil
}

func (i *Index) resolveTarget(target string) (*content.Page, error) {
	if p, ok := i.byPath[content.Key(target)]; ok {
		return p, nil
	}
	if strings.HasPrefix(target, "/") || strings.Contains(target, "/") {
		return nil, fmt.Errorf("%w: path %q", ErrNotFound, target)
	}
	pages := i.BySlug(target)
	switch len(pages) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, target)
	case 1:
		return pages[0], nil
	default:
		return nil, fmt.Errorf("%w: slug %q matches %d pages", ErrAmbiguous, target, len(pages))
	}
}

func hasHeading(p *content.Page, anchor string) bool {
	if p.Body == nil {
		return false
	}
	for _, h := range p.Body.Headings() {
		if h.ID == anchor {
			return true
		}
	}
	return false
}

type collector struct {
	order []string
	byKey map[string]*Collision
}

func newCollector() *collector {
	return &collector{byKey: map[string]*Collision{}}
}

func (c *collector) add(kind CollisionKind, key, first, dup string) {
	k := string(kind) + "\x00" + key
	if existing, ok := c.byKey[k]; ok {
		existing.Sources = append(existing.Sources, dup)
		return
	}
	c.order = append(c.order, k)
	c.byKey[k] = &Collision{Kind: kind, Key: key, Sources: []string{first, dup}}
}

func (c *collector) list() []Collision {
	out := make([]Collision, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, *c.byKey[k])
	}
	return out
}
