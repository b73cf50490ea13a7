package content

import (
	"strings"

	"git.home.luguber.info/inful/sitegraph/internal/frontmatter"
	"github.com/inful/mdfp"
)

// Keys that change without the content changing and are left out of the
// fingerprint.
var volatileKeys = []string{mdfp.FingerprintField, "lastmod", "uid", "aliases"}

// Fingerprint returns the canonical content fingerprint over normalized
// frontmatter and the body.
func (p *Page) Fingerprint() (string, error) {
	fm, err := frontmatter.Canonical(p.FrontMatter, volatileKeys...)
	if err != nil {
		return "", err
	}
	var body string
	if p.Body != nil {
		body = string(p.Body.Source())
	}
	return mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(string(fm), "\n"), body), nil
}
