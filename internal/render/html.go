package render

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/markdown"
	"git.home.luguber.info/inful/sitegraph/internal/pathresolve"
	"git.home.luguber.info/inful/sitegraph/internal/site"
)

//go:embed templates/default.html
var defaultTemplate string

const defaultTemplateName = "default.html"

// SiteData is the site-wide part of the template context.
type SiteData struct {
	Title   string
	BaseURL string
	Params  map[string]any
}

// PageData is the template context for one page.
type PageData struct {
	Page        *content.Page
	Kind        content.Kind
	Title       string
	URL         string
	Params      map[string]any
	Content     template.HTML
	Headings    []markdown.Heading
	Pages       []*content.Page
	Fingerprint string
	Site        SiteData
}

// HTMLPipeline renders Markdown bodies with goldmark and wraps them in an
// html/template layout.
type HTMLPipeline struct {
	site *site.Site
	md   *markdown.Goldmark
	tmpl *template.Template
}

// NewHTMLFactory returns a factory building one HTMLPipeline per worker.
// Layouts are parsed from the configured layouts directory, if present.
func NewHTMLFactory(s *site.Site) PipelineFactory {
	return func(int) (Pipeline, error) {
		return NewHTMLPipeline(s)
	}
}

// NewHTMLPipeline parses the embedded default layout plus any
// layouts/*.html files. A layout file named default.html replaces the
// embedded one.
func NewHTMLPipeline(s *site.Site) (*HTMLPipeline, error) {
	funcs := template.FuncMap{
		"lower":      strings.ToLower,
		"replaceAll": strings.ReplaceAll,
	}
	tmpl, err := template.New(defaultTemplateName).Funcs(funcs).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse default layout: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(s.Config().LayoutsPath(), "*.html"))
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	if len(matches) > 0 {
		if tmpl, err = tmpl.ParseFiles(matches...); err != nil {
			return nil, fmt.Errorf("parse layouts: %w", err)
		}
	}

	return &HTMLPipeline{site: s, md: markdown.New(), tmpl: tmpl}, nil
}

// Render writes p to its output path.
func (h *HTMLPipeline) Render(_ context.Context, p *content.Page) error {
	out := p.OutputPath()
	if out == "" {
		return fmt.Errorf("page %s has no output path", p.RelPath)
	}
	if !pathresolve.IsWithinBase(out, h.site.OutputDir()) {
		return fmt.Errorf("page %s: output %s: %w", p.RelPath, out, pathresolve.ErrOutsideBase)
	}

	data, err := h.pageData(p)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := h.layoutFor(p).Execute(&buf, data); err != nil {
		return fmt.Errorf("execute layout for %s: %w", p.RelPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	// #nosec G306 -- rendered pages are public content
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}

// layoutFor picks the layout named by the page's `layout` parameter, then
// one named after its kind, then the default.
func (h *HTMLPipeline) layoutFor(p *content.Page) *template.Template {
	var names []string
	if l, ok := p.Params["layout"].(string); ok && l != "" {
		names = append(names, l+".html")
	}
	names = append(names, string(p.Kind)+".html")
	for _, name := range names {
		if t := h.tmpl.Lookup(name); t != nil {
			return t
		}
	}
	return h.tmpl.Lookup(defaultTemplateName)
}

func (h *HTMLPipeline) pageData(p *content.Page) (PageData, error) {
	cfg := h.site.Config()
	data := PageData{
		Page:   p,
		Kind:   p.Kind,
		Title:  p.Title(),
		URL:    p.URL(),
		Params: p.Params,
		Pages:  h.listing(p),
		Site:   SiteData{Title: cfg.Title, BaseURL: cfg.BaseURL, Params: cfg.Params},
	}

	if p.Body != nil {
		html, err := h.md.RenderString(p.Body)
		if err != nil {
			return PageData{}, fmt.Errorf("render markdown for %s: %w", p.RelPath, err)
		}
		// #nosec G203 -- body HTML comes from goldmark, which escapes raw HTML by default
		data.Content = template.HTML(html)
		data.Headings = p.Body.Headings()
	}

	if !p.Generated {
		fp, err := p.Fingerprint()
		if err != nil {
			return PageData{}, fmt.Errorf("fingerprint %s: %w", p.RelPath, err)
		}
		data.Fingerprint = fp
	}
	return data, nil
}

// listing returns the pages an index or generated page lists.
func (h *HTMLPipeline) listing(p *content.Page) []*content.Page {
	switch {
	case p.Kind == content.KindHome:
		return h.site.ListablePages()
	case p.Generated:
		return p.Members
	case p.Kind == content.KindSection && p.Section != nil:
		var out []*content.Page
		for _, child := range p.Section.AllPages() {
			if child.Kind == content.KindPage && child.Listable() {
				out = append(out, child)
			}
		}
		site.SortPages(out)
		return out
	default:
		return nil
	}
}
