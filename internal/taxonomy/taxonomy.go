// Package taxonomy generates term pages for configured taxonomies.
package taxonomy

import (
	"sort"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/frontmatter"
	"git.home.luguber.info/inful/sitegraph/internal/site"
	"git.home.luguber.info/inful/sitegraph/internal/xref"
)

// Generate returns one overview page per taxonomy that has terms and one
// term page per distinct term, in deterministic order. Only listable
// content pages contribute terms. Terms that slugify to the same value are
// merged under the first spelling seen.
func Generate(pages []*content.Page, taxonomies []string, owner content.Owner) []*content.Page {
	var out []*content.Page
	for _, tax := range taxonomies {
		taxSlug := xref.Slugify(tax)
		if taxSlug == "" {
			continue
		}

		members := map[string][]*content.Page{}
		labels := map[string]string{}
		for _, p := range pages {
			if p.Generated || p.Kind != content.KindPage || !p.Listable() {
				continue
			}
			seen := map[string]bool{}
			for _, term := range p.Terms(tax) {
				slug := xref.Slugify(term)
				if slug == "" || seen[slug] {
					continue
				}
				seen[slug] = true
				if _, ok := labels[slug]; !ok {
					labels[slug] = term
				}
				members[slug] = append(members[slug], p)
			}
		}
		if len(members) == 0 {
			continue
		}

		slugs := make([]string, 0, len(members))
		for slug := range members {
			slugs = append(slugs, slug)
		}
		sort.Strings(slugs)

		overview := generated(taxSlug, content.KindTaxonomy, frontmatter.NewFields("title", tax, "taxonomy", tax), owner)
		out = append(out, overview)
		for _, slug := range slugs {
			pagesForTerm := members[slug]
			site.SortPages(pagesForTerm)
			term := generated(taxSlug+"/"+slug, content.KindTerm,
				frontmatter.NewFields("title", labels[slug], "taxonomy", tax, "term", labels[slug]), owner)
			term.Members = pagesForTerm
			overview.Members = append(overview.Members, term)
			out = append(out, term)
		}
	}
	return out
}

func generated(rel string, kind content.Kind, fm frontmatter.Fields, owner content.Owner) *content.Page {
	p := content.NewPage("", rel, kind, fm, nil)
	p.Generated = true
	p.Owner = owner
	return p
}
