package content

import "path"

// Section is a directory of content. Its metadata comes from the index file.
type Section struct {
	Name        string
	Dir         string
	RelPath     string
	FrontMatter map[string]any
	// Cascade is the section's own cascade mapping from its index file.
	Cascade map[string]any
	// EffectiveCascade is inherited cascade merged with Cascade; set by the
	// cascade engine.
	EffectiveCascade map[string]any
	Pages            []*Page
	Sections         []*Section
	Parent           *Section
	Index            *Page
	Owner            Owner
}

// NewSection creates an empty section for a content-relative directory.
func NewSection(dir, relPath string) *Section {
	return &Section{
		Name:        path.Base(relPath),
		Dir:         dir,
		RelPath:     relPath,
		FrontMatter: map[string]any{},
	}
}

// AddPage appends a child page and sets its back-reference.
func (s *Section) AddPage(p *Page) {
	p.Section = s
	s.Pages = append(s.Pages, p)
}

// AddSection appends a subsection and sets its parent.
func (s *Section) AddSection(child *Section) {
	child.Parent = s
	s.Sections = append(s.Sections, child)
}

// SetIndex attaches the section's index page and adopts its metadata.
func (s *Section) SetIndex(p *Page) {
	p.Section = s
	s.Index = p
	s.FrontMatter = p.FrontMatter.Map()
	if c, ok := p.FrontMatter.Mapping("cascade"); ok {
		s.Cascade = c
	}
}

// Ancestors returns the parent chain, nearest first.
func (s *Section) Ancestors() []*Section {
	var out []*Section
	for cur := s.Parent; cur != nil; cur = cur.Parent {
		out = append(out, cur)
	}
	return out
}

// Walk visits s and every descendant section depth-first.
func (s *Section) Walk(fn func(*Section)) {
	fn(s)
	for _, child := range s.Sections {
		child.Walk(fn)
	}
}

// AllPages returns the index page and every page in s and its descendants.
func (s *Section) AllPages() []*Page {
	var out []*Page
	s.Walk(func(cur *Section) {
		if cur.Index != nil {
			out = append(out, cur.Index)
		}
		out = append(out, cur.Pages...)
	})
	return out
}
