package site

import (
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/pathresolve"
	"git.home.luguber.info/inful/sitegraph/internal/xref"
)

// OutputPathFor computes the absolute output file for p. A frontmatter `url`
// overrides the location; a `slug` replaces the last path segment of a
// regular page.
func (s *Site) OutputPathFor(p *content.Page) string {
	rel := outputRel(p, s.cfg.Build.PrettyURLs)
	return filepath.Join(s.cfg.OutputPath(), filepath.FromSlash(rel))
}

// AssignOutputPaths sets the output path of every page. A page whose `url`
// or `slug` would place it outside the output directory gets no output path
// and is reported, one entry per page, as an output_escape collision.
func (s *Site) AssignOutputPaths() []Collision {
	outDir := s.cfg.OutputPath()
	var escapes []Collision
	for _, p := range s.pages {
		rel := outputRel(p, s.cfg.Build.PrettyURLs)
		if _, err := pathresolve.Join(outDir, rel); err != nil {
			p.SetOutputPath("")
			escapes = append(escapes, Collision{Kind: xref.OutputEscape, Key: rel, Sources: []string{source(p)}})
			continue
		}
		p.SetOutputPath(filepath.Join(outDir, filepath.FromSlash(rel)))
	}
	return escapes
}

func outputRel(p *content.Page, pretty bool) string {
	if u := strings.Trim(p.FrontMatter.String("url"), "/"); u != "" && !p.Generated {
		if path.Ext(u) == ".html" {
			return u
		}
		return u + "/index.html"
	}

	key := content.Key(p.RelPath)
	if p.Generated {
		key = strings.Trim(p.RelPath, "/")
	}
	if key == "" {
		return "index.html"
	}
	if p.Kind == content.KindPage && !p.Generated {
		if slug := p.FrontMatter.String("slug"); slug != "" {
			dir := path.Dir(key)
			if dir == "." {
				key = slug
			} else {
				key = dir + "/" + slug
			}
		}
	}
	if pretty || p.IsIndex() || p.Generated {
		return key + "/index.html"
	}
	return key + ".html"
}
