package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"git.home.luguber.info/inful/sitegraph/internal/config"
	"git.home.luguber.info/inful/sitegraph/internal/content"
	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/xref"
	"github.com/stretchr/testify/require"
)

// writeTree creates files under root/content.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, data := range files {
		p := filepath.Join(root, "content", filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	}
}

func discover(t *testing.T, files map[string]string, raw map[string]any) *Result {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	writeTree(t, root, files)
	cfg, err := config.FromMap(root, raw)
	require.NoError(t, err)
	res, err := New().Discover(cfg)
	require.NoError(t, err)
	return res
}

func TestDiscover_BuildsSectionTree(t *testing.T) {
	res := discover(t, map[string]string{
		"_index.md":           "---\ntitle: Home\n---\n",
		"about.md":            "---\ntitle: About\n---\nAbout us.\n",
		"blog/_index.md":      "---\ntitle: Blog\n---\n",
		"blog/first.md":       "---\ntitle: First\n---\n# Hello\n",
		"blog/2024/_index.md": "---\ntitle: Archive\n---\n",
		"blog/2024/old.md":    "---\ntitle: Old\n---\n",
		"blog/notes.txt":      "ignored",
		"blog/.hidden.md":     "---\ntitle: Hidden\n---\n",
		".drafts/secret.md":   "---\ntitle: Secret\n---\n",
	}, map[string]any{"taxonomies": []any{}})

	s := res.Site
	require.Empty(t, res.Problems)
	require.Empty(t, res.Collisions)
	require.Len(t, res.Files, 6)

	home := s.Home()
	require.NotNil(t, home)
	require.False(t, home.Generated)
	require.Equal(t, content.KindHome, home.Kind)

	sections := s.Sections()
	require.Len(t, sections, 1)
	blog := sections[0]
	require.Equal(t, "blog", blog.RelPath)
	require.Equal(t, "Blog", blog.Index.Title())
	require.Len(t, blog.Pages, 1)
	require.Len(t, blog.Sections, 1)
	require.Same(t, blog, blog.Sections[0].Parent)

	sec, ok := s.Registry().Lookup("blog/2024")
	require.True(t, ok)
	require.Same(t, blog.Sections[0], sec)

	first, ok := s.Index().ByPath("blog/first")
	require.True(t, ok)
	require.Equal(t, "/blog/first/", first.URL())
	require.Equal(t, filepath.Join(s.OutputDir(), "blog", "first", "index.html"), first.OutputPath())
	require.Equal(t, "hello", first.Body.Headings()[0].ID)

	about, ok := s.Index().ByPath("about")
	require.True(t, ok)
	require.Nil(t, about.Section)
}

func TestDiscover_AppliesCascadeIncludingHome(t *testing.T) {
	res := discover(t, map[string]string{
		"_index.md":      "---\ncascade:\n  author: site\n  license: cc\n---\n",
		"top.md":         "---\ntitle: Top\n---\n",
		"docs/_index.md": "---\ncascade:\n  author: docs-team\n---\n",
		"docs/a.md":      "---\ntitle: A\n---\n",
		"docs/b.md":      "---\ntitle: B\nauthor: bea\n---\n",
	}, nil)

	idx := res.Site.Index()
	top, _ := idx.ByPath("top")
	a, _ := idx.ByPath("docs/a")
	b, _ := idx.ByPath("docs/b")

	require.Equal(t, "site", top.Params["author"])
	require.Equal(t, "docs-team", a.Params["author"])
	require.Equal(t, "cc", a.Params["license"])
	require.Equal(t, "bea", b.Params["author"])
	require.False(t, a.FrontMatter.Has("author"))
}

func TestDiscover_CascadedDraftLeavesListings(t *testing.T) {
	res := discover(t, map[string]string{
		"wip/_index.md": "---\ncascade:\n  draft: true\n---\n",
		"wip/a.md":      "---\ntitle: A\ntags: [go]\n---\n",
		"wip/b.md":      "---\ntitle: B\ndraft: false\ntags: [go]\n---\n",
		"c.md":          "---\ntitle: C\ntags: [go]\n---\n",
	}, map[string]any{"taxonomies": []any{"tags"}})

	idx := res.Site.Index()
	a, _ := idx.ByPath("wip/a")
	b, _ := idx.ByPath("wip/b")
	require.True(t, a.Draft)
	require.False(t, a.Listable())
	require.False(t, b.Draft)

	goTerm, ok := idx.ByPath("tags/go")
	require.True(t, ok)
	var members []string
	for _, m := range goTerm.Members {
		members = append(members, m.RelPath)
	}
	require.ElementsMatch(t, []string{"wip/b.md", "c.md"}, members)
}

func TestDiscover_GeneratesHomeAndTaxonomies(t *testing.T) {
	res := discover(t, map[string]string{
		"a.md": "---\ntitle: A\ntags: [go, web]\n---\n",
		"b.md": "---\ntitle: B\ntags: [go]\n---\n",
	}, map[string]any{"title": "Notes", "taxonomies": []any{"tags"}})

	s := res.Site
	require.True(t, s.Home().Generated)
	require.Equal(t, "Notes", s.Home().Title())
	require.Equal(t, filepath.Join(s.OutputDir(), "index.html"), s.Home().OutputPath())

	goTerm, ok := s.Index().ByPath("tags/go")
	require.True(t, ok)
	require.True(t, goTerm.Generated)
	require.Len(t, goTerm.Members, 2)

	_, ok = s.Index().ByPath("tags")
	require.True(t, ok)
	require.Len(t, s.GeneratedPages(), 4)
}

func TestDiscover_SkipsInvalidFrontMatter(t *testing.T) {
	res := discover(t, map[string]string{
		"good.md": "---\ntitle: Good\n---\n",
		"bad.md":  "---\ntitle: [unclosed\n---\n",
		"open.md": "---\ntitle: Never closed\n",
	}, nil)

	require.Len(t, res.Files, 3)
	require.Len(t, res.Invalid, 2)
	require.Len(t, res.Problems, 2)
	for _, err := range res.Problems {
		require.True(t, errors.Is(err, ErrFrontMatterInvalid))
		require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryContent))
	}

	_, ok := res.Site.Index().ByPath("good")
	require.True(t, ok)
	_, ok = res.Site.Index().ByPath("bad")
	require.False(t, ok)
}

func TestDiscover_ReportsCollisionsTogether(t *testing.T) {
	res := discover(t, map[string]string{
		"a.md":        "---\nid: shared\n---\n",
		"b.md":        "---\nid: shared\n---\n",
		"c.md":        "---\nurl: /same/\n---\n",
		"d.md":        "---\nurl: /same/\n---\n",
		"e/_index.md": "---\ntitle: E\n---\n",
		"e/index.md":  "---\ntitle: E again\n---\n",
	}, nil)

	kinds := map[xref.CollisionKind]int{}
	for _, c := range res.Collisions {
		kinds[c.Kind]++
	}
	require.Equal(t, 1, kinds[xref.DuplicateID])
	require.Equal(t, 1, kinds[xref.DuplicatePath])
	require.GreaterOrEqual(t, kinds[xref.DuplicateURL], 2)
}

func TestDiscover_MissingContentDirIsWarning(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	cfg, err := config.FromMap(root, nil)
	require.NoError(t, err)

	res, err := New().Discover(cfg)
	require.NoError(t, err)
	require.Empty(t, res.Files)
	require.Len(t, res.Problems, 1)
	require.True(t, errors.Is(res.Problems[0], ErrContentRootMissing))
	require.True(t, foundationerrors.HasSeverity(res.Problems[0], foundationerrors.SeverityWarning))
	require.NotNil(t, res.Site.Home())
}

func TestDiscover_ContentPathIsFile(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "content"), []byte("x"), 0o600))
	cfg, err := config.FromMap(root, nil)
	require.NoError(t, err)

	_, err = New().Discover(cfg)
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryDiscovery))
}

func TestDiscover_RebuildsIndexAfterDeletion(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	writeTree(t, root, map[string]string{
		"a.md": "---\nid: alpha\n---\n",
		"b.md": "---\nid: beta\n---\n",
	})
	cfg, err := config.FromMap(root, nil)
	require.NoError(t, err)

	res, err := New().Discover(cfg)
	require.NoError(t, err)
	_, ok := res.Site.Index().ByID("beta")
	require.True(t, ok)

	require.NoError(t, os.Remove(filepath.Join(root, "content", "b.md")))
	res, err = New().Discover(cfg)
	require.NoError(t, err)
	_, ok = res.Site.Index().ByID("beta")
	require.False(t, ok)
	_, ok = res.Site.Index().ByID("alpha")
	require.True(t, ok)
}
