package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	"github.com/stretchr/testify/require"
)

func contentTree(t *testing.T, dirs ...string) string {
	t.Helper()
	base, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(base, filepath.FromSlash(d)), 0o755))
	}
	return base
}

func TestLookup_IdentityAcrossSpellings(t *testing.T) {
	base := contentTree(t, "blog/2024")
	blog := content.NewSection(filepath.Join(base, "blog"), "blog")
	year := content.NewSection(filepath.Join(base, "blog", "2024"), "blog/2024")
	blog.AddSection(year)

	r := New(base)
	require.Empty(t, r.Register([]*content.Section{blog}))
	require.Equal(t, 2, r.Len())

	for _, spelling := range []string{
		"blog",
		"./blog",
		"blog/2024/..",
		filepath.Join(base, "blog"),
	} {
		got, ok := r.Lookup(spelling)
		require.True(t, ok, spelling)
		require.Same(t, blog, got, spelling)
	}

	got, ok := r.Lookup("blog/2024")
	require.True(t, ok)
	require.Same(t, year, got)
}

func TestLookup_ThroughSymlink(t *testing.T) {
	base := contentTree(t, "docs")
	require.NoError(t, os.Symlink(filepath.Join(base, "docs"), filepath.Join(base, "alias")))

	docs := content.NewSection(filepath.Join(base, "docs"), "docs")
	r := New(base)
	r.Register([]*content.Section{docs})

	got, ok := r.Lookup("alias")
	require.True(t, ok)
	require.Same(t, docs, got)
}

func TestRegister_RebuildsFromScratch(t *testing.T) {
	base := contentTree(t, "a", "b")
	r := New(base)
	r.Register([]*content.Section{
		content.NewSection(filepath.Join(base, "a"), "a"),
		content.NewSection(filepath.Join(base, "b"), "b"),
	})
	require.Equal(t, 2, r.Len())

	r.Register([]*content.Section{content.NewSection(filepath.Join(base, "a"), "a")})
	require.Equal(t, 1, r.Len())
	_, ok := r.Lookup("b")
	require.False(t, ok)
}

func TestRegister_ThousandSectionsIsFast(t *testing.T) {
	base := contentTree(t)
	sections := make([]*content.Section, 0, 1000)
	for i := range 1000 {
		rel := fmt.Sprintf("s%04d", i)
		sections = append(sections, content.NewSection(filepath.Join(base, rel), rel))
	}

	r := New(base)
	start := time.Now()
	r.Register(sections)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, 1000, r.Len())

	got, ok := r.Lookup("s0500")
	require.True(t, ok)
	require.Same(t, sections[500], got)

	all := r.Sections()
	require.Equal(t, "s0000", all[0].RelPath)
	require.Equal(t, "s0999", all[999].RelPath)
}
