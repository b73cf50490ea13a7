package content

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"git.home.luguber.info/inful/sitegraph/internal/frontmatter"
	"git.home.luguber.info/inful/sitegraph/internal/markdown"
)

// Kind classifies a page.
type Kind string

const (
	KindPage    Kind = "page"
	KindSection Kind = "section"
	KindHome    Kind = "home"
	KindTerm    Kind = "term"
	// KindTaxonomy is the generated overview page of one taxonomy.
	KindTaxonomy Kind = "taxonomy"
)

// Owner is the site a page or section belongs to.
type Owner interface {
	OutputDir() string
	BaseURL() string
}

// Page is a single content document, or a generated page.
type Page struct {
	SourcePath  string
	RelPath     string
	Kind        Kind
	FrontMatter frontmatter.Fields
	// Params holds the effective metadata: own frontmatter plus inherited
	// cascade keys.
	Params     map[string]any
	Body       *markdown.Document
	Section    *Section
	Owner      Owner
	Generated  bool
	Draft      bool
	Visibility Visibility
	// Members lists the pages a generated term page aggregates.
	Members []*Page

	mu         sync.Mutex
	outputPath string
	url        string
	urlCached  bool
}

// NewPage builds a page from parsed frontmatter. Params starts as a copy of
// the frontmatter.
func NewPage(sourcePath, relPath string, kind Kind, fm frontmatter.Fields, body *markdown.Document) *Page {
	p := &Page{
		SourcePath:  sourcePath,
		RelPath:     filepath.ToSlash(relPath),
		Kind:        kind,
		FrontMatter: fm,
		Params:      fm.Map(),
		Body:        body,
	}
	p.RefreshFlags()
	return p
}

// RefreshFlags recomputes Draft and Visibility from Params, so draft,
// hidden and visibility keys inherited through a cascade take effect.
func (p *Page) RefreshFlags() {
	var fm frontmatter.Fields
	for _, k := range []string{"draft", "hidden", "visibility"} {
		if v, ok := p.Params[k]; ok {
			fm.Set(k, v)
		}
	}
	p.Draft = fm.Bool("draft")
	p.Visibility = VisibilityFrom(fm)
}

// OutputPath returns the assigned output file, or "" before assignment.
func (p *Page) OutputPath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outputPath
}

// SetOutputPath assigns the output file and invalidates the cached URL.
func (p *Page) SetOutputPath(out string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outputPath = out
	p.url = ""
	p.urlCached = false
}

// URL returns the page permalink path. It is computed from the output path
// once assigned and cached; before that a fallback derived from the source
// path is returned and never cached.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.urlCached {
		return p.url
	}
	if p.outputPath == "" || p.Owner == nil {
		return p.prefix(fallbackURL(p.RelPath))
	}

	rel, err := filepath.Rel(p.Owner.OutputDir(), p.outputPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p.prefix(fallbackURL(p.RelPath))
	}
	rel = filepath.ToSlash(rel)
	var u string
	switch {
	case rel == "index.html":
		u = "/"
	case strings.HasSuffix(rel, "/index.html"):
		u = "/" + strings.TrimSuffix(rel, "index.html")
	default:
		u = "/" + rel
	}
	p.url = p.prefix(u)
	p.urlCached = true
	return p.url
}

func (p *Page) prefix(u string) string {
	if p.Owner == nil {
		return u
	}
	base, err := url.Parse(p.Owner.BaseURL())
	if err != nil || base.Path == "" || base.Path == "/" {
		return u
	}
	return strings.TrimSuffix(base.Path, "/") + u
}

// fallbackURL derives a pretty URL from a content-relative source path.
func fallbackURL(rel string) string {
	key := Key(rel)
	if key == "" {
		return "/"
	}
	return "/" + key + "/"
}

// Key returns the canonical content key for a content-relative path: the
// path without extension, with index files collapsed to their directory.
func Key(rel string) string {
	rel = strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(rel)), "/")
	dir, file := path.Split(rel)
	stem := strings.TrimSuffix(file, path.Ext(file))
	if IsIndexName(file) {
		return strings.TrimSuffix(dir, "/")
	}
	return dir + stem
}

// IsIndexName reports whether a file name is a section or bundle index.
func IsIndexName(name string) bool {
	stem := strings.TrimSuffix(name, path.Ext(name))
	return stem == "_index" || stem == "index"
}

// Param returns an effective parameter.
func (p *Page) Param(key string) (any, bool) {
	v, ok := p.Params[key]
	return v, ok
}

// Title returns the title parameter, falling back to the file stem.
func (p *Page) Title() string {
	if t, ok := p.Params["title"].(string); ok && t != "" {
		return t
	}
	if p.Section != nil && p.Kind == KindSection {
		return p.Section.Name
	}
	k := Key(p.RelPath)
	if k == "" {
		return ""
	}
	return path.Base(k)
}

// ID returns the frontmatter id, if any.
func (p *Page) ID() string {
	return p.FrontMatter.String("id")
}

// Slug returns the frontmatter slug or the last key segment.
func (p *Page) Slug() string {
	if s := p.FrontMatter.String("slug"); s != "" {
		return s
	}
	k := Key(p.RelPath)
	if k == "" {
		return ""
	}
	return path.Base(k)
}

// Weight returns the ordering weight parameter, or zero.
func (p *Page) Weight() int {
	switch w := p.Params["weight"].(type) {
	case int:
		return w
	case float64:
		return int(w)
	default:
		return 0
	}
}

// Terms returns the page's values for a taxonomy key.
func (p *Page) Terms(taxonomy string) []string {
	return frontmatter.AsStrings(p.Params[taxonomy])
}

// IsIndex reports whether the page is a section index or the home page.
func (p *Page) IsIndex() bool {
	return p.Kind == KindSection || p.Kind == KindHome
}

// Listable reports whether the page appears in listings.
func (p *Page) Listable() bool {
	return !p.Draft && p.Visibility.Listings
}
