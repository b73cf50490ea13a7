package discovery

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/markdown"
	"git.home.luguber.info/inful/sitegraph/internal/xref"
)

// checkLinks resolves every internal link in page bodies against the index
// and returns one warning per unresolved destination. Internal links are
// id: references, bare #anchors and paths to Markdown sources; anything
// else (external URLs, site URLs, images, downloads) is not checked.
func checkLinks(pages []*content.Page, idx *xref.Index) []error {
	var problems []error
	for _, p := range pages {
		if p.Generated || p.Body == nil {
			continue
		}
		seen := map[string]bool{}
		for _, l := range p.Body.Links() {
			if l.Kind == markdown.LinkKindAuto || seen[l.Destination] {
				continue
			}
			seen[l.Destination] = true
			ref, ok := internalRef(p.RelPath, l.Destination)
			if !ok {
				continue
			}
			if err := resolveLink(idx, ref); err != nil {
				problems = append(problems, foundationerrors.WrapError(err, foundationerrors.CategoryContent, "unresolved link").
					WithContext("page", p.RelPath).
					WithContext("link", l.Destination).
					Warning().
					Build())
			}
		}
	}
	return problems
}

func resolveLink(idx *xref.Index, ref string) error {
	// Content keys clean away leading "..", so reject escapes up front.
	if ref == ".." || strings.HasPrefix(ref, "../") {
		return fmt.Errorf("%w: path %q is outside the content directory", xref.ErrNotFound, ref)
	}
	_, _, err := idx.Resolve(ref)
	return err
}

// internalRef turns a link destination found in the page at rel into an
// index reference. It reports false for destinations that do not point at
// content.
func internalRef(rel, dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return "", false
	}
	if strings.HasPrefix(dest, "id:") {
		return dest, true
	}

	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	target := u.Path
	anchor := u.Fragment
	if target == "" {
		if anchor == "" {
			return "", false
		}
		// Same-page anchor.
		return rel + "#" + anchor, true
	}

	switch strings.ToLower(path.Ext(target)) {
	case ".md", ".markdown":
	default:
		return "", false
	}

	if !strings.HasPrefix(target, "/") {
		target = path.Join(path.Dir(rel), target)
	}
	if anchor != "" {
		return target + "#" + anchor, true
	}
	return target, true
}
