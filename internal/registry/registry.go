// Package registry maps section directories to their Section objects.
package registry

import (
	"sort"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/pathresolve"
)

// Registry is a lookup table from canonical directory keys to sections.
// It is rebuilt from scratch on every discovery pass and read-only afterwards.
type Registry struct {
	base     string
	sections map[string]*content.Section
}

// New creates an empty registry resolving relative lookups against
// contentDir, which must be absolute.
func New(contentDir string) *Registry {
	return &Registry{base: contentDir, sections: map[string]*content.Section{}}
}

// Register replaces the registry contents with sections and all their
// descendants. Sections whose directory cannot be resolved are returned.
func (r *Registry) Register(sections []*content.Section) []error {
	r.sections = make(map[string]*content.Section, len(sections))
	var errs []error
	for _, root := range sections {
		root.Walk(func(s *content.Section) {
			key, err := pathresolve.Key(s.Dir, r.base)
			if err != nil {
				errs = append(errs, err)
				return
			}
			r.sections[key] = s
		})
	}
	return errs
}

// Lookup returns the section for any spelling of its directory: relative to
// the content dir, absolute, through a symlink, or differently cased on
// case-insensitive hosts.
func (r *Registry) Lookup(path string) (*content.Section, bool) {
	key, err := pathresolve.Key(path, r.base)
	if err != nil {
		return nil, false
	}
	s, ok := r.sections[key]
	return s, ok
}

// Len returns the number of registered sections.
func (r *Registry) Len() int { return len(r.sections) }

// Sections returns all registered sections sorted by content-relative path.
func (r *Registry) Sections() []*content.Section {
	out := make([]*content.Section, 0, len(r.sections))
	for _, s := range r.sections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out
}
