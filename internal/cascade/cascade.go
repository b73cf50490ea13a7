// Package cascade propagates section `cascade` metadata down the section tree.
//
// Precedence, highest first: a page's own frontmatter key, the nearest
// section's cascade, then cascades inherited from ancestors. Frontmatter is
// never modified; inherited keys are written to Page.Params, and the page's
// draft and visibility flags are recomputed from the result.
package cascade

import (
	"maps"

	"git.home.luguber.info/inful/sitegraph/internal/content"
)

// Apply runs the cascade over every root section with an empty inherited map.
func Apply(roots []*content.Section) {
	ApplyFrom(nil, roots, nil)
}

// ApplyFrom seeds the traversal with an inherited cascade (the home page's),
// applies it to top-level pages, and then walks every root section.
func ApplyFrom(inherited map[string]any, roots []*content.Section, pages []*content.Page) {
	for _, p := range pages {
		applyToPage(p, inherited)
	}
	for _, s := range roots {
		walk(s, inherited)
	}
}

func walk(s *content.Section, inherited map[string]any) {
	effective := merge(inherited, s.Cascade)
	s.EffectiveCascade = effective

	if s.Index != nil {
		applyToPage(s.Index, effective)
	}
	for _, p := range s.Pages {
		applyToPage(p, effective)
	}
	for _, child := range s.Sections {
		walk(child, effective)
	}
}

// merge returns inherited overlaid with own, without mutating either.
func merge(inherited, own map[string]any) map[string]any {
	if len(own) == 0 {
		return inherited
	}
	out := make(map[string]any, len(inherited)+len(own))
	maps.Copy(out, inherited)
	maps.Copy(out, own)
	return out
}

func applyToPage(p *content.Page, effective map[string]any) {
	if len(effective) == 0 {
		return
	}
	if p.Params == nil {
		p.Params = p.FrontMatter.Map()
	}
	for k, v := range effective {
		if p.FrontMatter.Has(k) {
			continue
		}
		p.Params[k] = v
	}
	p.RefreshFlags()
}
