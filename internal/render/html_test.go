package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"git.home.luguber.info/inful/sitegraph/internal/config"
	"git.home.luguber.info/inful/sitegraph/internal/content"
	"git.home.luguber.info/inful/sitegraph/internal/frontmatter"
	"git.home.luguber.info/inful/sitegraph/internal/markdown"
	"git.home.luguber.info/inful/sitegraph/internal/site"
	"github.com/stretchr/testify/require"
)

func newTestSite(t *testing.T) *site.Site {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	cfg, err := config.FromMap(root, map[string]any{"title": "Field Notes"})
	require.NoError(t, err)
	s, err := site.New(cfg)
	require.NoError(t, err)
	return s
}

func mdPage(t *testing.T, s *site.Site, rel string, kind content.Kind, fm frontmatter.Fields, body string) *content.Page {
	t.Helper()
	doc, err := markdown.New().Parse([]byte(body))
	require.NoError(t, err)
	p := content.NewPage(filepath.Join(s.Config().ContentPath(), rel), rel, kind, fm, doc)
	p.Owner = s
	return p
}

func TestHTMLPipeline_RendersDefaultLayout(t *testing.T) {
	s := newTestSite(t)
	p := mdPage(t, s, "blog/hello.md", content.KindPage, frontmatter.NewFields("title", "Hello"), "# Greeting\n\nSome *text*.\n")
	s.SetPages([]*content.Page{p})
	s.AssignOutputPaths()

	pipeline, err := NewHTMLPipeline(s)
	require.NoError(t, err)
	require.NoError(t, pipeline.Render(context.Background(), p))

	out, err := os.ReadFile(filepath.Join(s.OutputDir(), "blog", "hello", "index.html"))
	require.NoError(t, err)
	html := string(out)
	require.Contains(t, html, "<title>Hello | Field Notes</title>")
	require.Contains(t, html, `<h1 id="greeting">Greeting</h1>`)
	require.Contains(t, html, "<em>text</em>")
	require.Contains(t, html, `<meta name="fingerprint" content="`)
}

func TestHTMLPipeline_LayoutOverrides(t *testing.T) {
	s := newTestSite(t)
	layouts := s.Config().LayoutsPath()
	require.NoError(t, os.MkdirAll(layouts, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(layouts, "page.html"), []byte(`page:{{ .Title }}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(layouts, "wide.html"), []byte(`wide:{{ .Title }}`), 0o600))

	plain := mdPage(t, s, "a.md", content.KindPage, frontmatter.NewFields("title", "A"), "")
	wide := mdPage(t, s, "b.md", content.KindPage, frontmatter.NewFields("title", "B", "layout", "wide"), "")
	s.SetPages([]*content.Page{plain, wide})
	s.AssignOutputPaths()

	pipeline, err := NewHTMLPipeline(s)
	require.NoError(t, err)
	require.NoError(t, pipeline.Render(context.Background(), plain))
	require.NoError(t, pipeline.Render(context.Background(), wide))

	got, err := os.ReadFile(plain.OutputPath())
	require.NoError(t, err)
	require.Equal(t, "page:A", string(got))
	got, err = os.ReadFile(wide.OutputPath())
	require.NoError(t, err)
	require.Equal(t, "wide:B", string(got))
}

func TestHTMLPipeline_HomeListsListablePages(t *testing.T) {
	s := newTestSite(t)
	home := mdPage(t, s, "_index.md", content.KindHome, frontmatter.NewFields("title", "Home"), "")
	first := mdPage(t, s, "one.md", content.KindPage, frontmatter.NewFields("title", "One", "weight", 1), "")
	second := mdPage(t, s, "two.md", content.KindPage, frontmatter.NewFields("title", "Two", "weight", 2), "")
	draft := mdPage(t, s, "draft.md", content.KindPage, frontmatter.NewFields("title", "Draft", "draft", true), "")
	s.SetPages([]*content.Page{home, first, second, draft})
	s.SetHome(home)
	s.AssignOutputPaths()

	pipeline, err := NewHTMLPipeline(s)
	require.NoError(t, err)
	require.NoError(t, pipeline.Render(context.Background(), home))

	got, err := os.ReadFile(filepath.Join(s.OutputDir(), "index.html"))
	require.NoError(t, err)
	html := string(got)
	require.Contains(t, html, `<a href="/one/">One</a>`)
	require.Contains(t, html, `<a href="/two/">Two</a>`)
	require.NotContains(t, html, "Draft</a>")
	require.Less(t, strings.Index(html, "One</a>"), strings.Index(html, "Two</a>"))
}

func TestHTMLPipeline_MissingOutputPath(t *testing.T) {
	s := newTestSite(t)
	p := mdPage(t, s, "a.md", content.KindPage, frontmatter.Fields{}, "")

	pipeline, err := NewHTMLPipeline(s)
	require.NoError(t, err)
	require.Error(t, pipeline.Render(context.Background(), p))
}

func TestHTMLPipeline_BrokenLayoutFailsFactory(t *testing.T) {
	s := newTestSite(t)
	layouts := s.Config().LayoutsPath()
	require.NoError(t, os.MkdirAll(layouts, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(layouts, "page.html"), []byte(`{{ .Title `), 0o600))

	_, err := NewHTMLFactory(s)(0)
	require.Error(t, err)
}
