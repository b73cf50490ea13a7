package build

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/incremental"
	"git.home.luguber.info/inful/sitegraph/internal/site"
	"git.home.luguber.info/inful/sitegraph/internal/util/sets"
)

// planRender returns the pages to render for a cache decision, sorted by
// content path. Beyond the direct misses it adds:
//   - descendants of a missed section index (cascade and metadata)
//   - ancestor index pages and home of every miss (listings)
//   - pages whose output file is missing
//   - every generated page, whenever anything else renders
//
// Pages without an output path (rejected output locations) never render.
func planRender(s *site.Site, d incremental.Decision) []*content.Page {
	pages := slices.DeleteFunc(s.Pages(), func(p *content.Page) bool { return p.OutputPath() == "" })
	if d.ForceFull {
		out := append([]*content.Page(nil), pages...)
		sortByPath(out)
		return out
	}

	misses := sets.New(d.Misses...)
	bySource := make(map[string]*content.Page, len(pages))
	for _, p := range pages {
		if p.SourcePath != "" {
			bySource[p.SourcePath] = p
		}
	}

	chosen := sets.New[*content.Page]()
	add := func(p *content.Page) {
		if p != nil && p.OutputPath() != "" {
			chosen.Add(p)
		}
	}
	addAncestors := func(sec *content.Section) {
		for cur := sec; cur != nil; cur = cur.Parent {
			add(cur.Index)
		}
		add(s.Home())
	}

	for miss := range misses {
		p, ok := bySource[miss]
		if !ok {
			// A source with no page (skipped file): its directory's listings
			// may still show the old version.
			sec, _ := s.Registry().Lookup(filepath.Dir(miss))
			addAncestors(sec)
			continue
		}
		add(p)
		switch p.Kind {
		case content.KindHome:
			for _, q := range pages {
				add(q)
			}
		case content.KindSection:
			if p.Section != nil {
				for _, q := range p.Section.AllPages() {
					add(q)
				}
				addAncestors(p.Section.Parent)
			}
		default:
			addAncestors(p.Section)
		}
	}

	for _, p := range pages {
		if p.Generated || chosen.Has(p) {
			continue
		}
		if outputMissing(p) {
			add(p)
		}
	}

	anyContent := chosen.Len() > 0
	for _, p := range pages {
		if p.Generated && (anyContent || outputMissing(p)) {
			add(p)
		}
	}

	out := make([]*content.Page, 0, chosen.Len())
	for p := range chosen {
		out = append(out, p)
	}
	sortByPath(out)
	return out
}

func outputMissing(p *content.Page) bool {
	out := p.OutputPath()
	if out == "" {
		return false
	}
	_, err := os.Stat(out)
	return errors.Is(err, fs.ErrNotExist)
}

func sortByPath(pages []*content.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].RelPath != pages[j].RelPath {
			return pages[i].RelPath < pages[j].RelPath
		}
		return pages[i].Kind < pages[j].Kind
	})
}
