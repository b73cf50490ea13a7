package pathresolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func canonicalTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestResolve_RelativeJoinsBaseNotCWD(t *testing.T) {
	base := canonicalTempDir(t)

	got, err := Resolve("content/blog/../docs", base)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "content", "docs"), got)
	require.True(t, filepath.IsAbs(got))
}

func TestResolve_AbsoluteInputIgnoresBase(t *testing.T) {
	base := canonicalTempDir(t)
	other := canonicalTempDir(t)

	got, err := Resolve(other, base)
	require.NoError(t, err)
	require.Equal(t, other, got)
}

func TestResolve_RelativeWithoutUsableBase_Fails(t *testing.T) {
	_, err := Resolve("content", "")
	require.ErrorIs(t, err, ErrEmptyBase)

	_, err = Resolve("content", "relative/base")
	var pre *PathResolutionError
	require.ErrorAs(t, err, &pre)
	require.ErrorIs(t, err, ErrRelativeBase)
}

func TestResolve_FollowsSymlinksInExistingPrefix(t *testing.T) {
	base := canonicalTempDir(t)
	target := filepath.Join(base, "real")
	require.NoError(t, os.MkdirAll(target, 0o755))
	require.NoError(t, os.Symlink(target, filepath.Join(base, "link")))

	got, err := Resolve("link/not/yet/written.html", base)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(target, "not", "yet", "written.html"), got)

	require.True(t, Equal("link", "real", base))
}

func TestResolve_SymlinkLoop_ReturnsError(t *testing.T) {
	base := canonicalTempDir(t)
	require.NoError(t, os.Symlink(filepath.Join(base, "b"), filepath.Join(base, "a")))
	require.NoError(t, os.Symlink(filepath.Join(base, "a"), filepath.Join(base, "b")))

	_, err := Resolve("a", base)
	var pre *PathResolutionError
	require.ErrorAs(t, err, &pre)
	require.Equal(t, "a", pre.Path)
	require.ErrorIs(t, err, ErrSymlinkLoop)

	_, err = Resolve("a/not/written.html", base)
	require.ErrorIs(t, err, ErrSymlinkLoop)
}

func TestResolve_BrokenSymlinkIsNotALoop(t *testing.T) {
	base := canonicalTempDir(t)
	require.NoError(t, os.Symlink(filepath.Join(base, "missing"), filepath.Join(base, "dangling")))

	_, err := Resolve("dangling/page.html", base)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSymlinkLoop)
}

func TestIsWithinBase(t *testing.T) {
	base := canonicalTempDir(t)

	require.True(t, IsWithinBase(base, base))
	require.True(t, IsWithinBase("content/a.md", base))
	require.True(t, IsWithinBase(filepath.Join(base, "x", "y"), base))
	require.False(t, IsWithinBase("../escape", base))
	require.False(t, IsWithinBase(filepath.Dir(base), base))
	require.False(t, IsWithinBase(base+"-sibling", base))
}

func TestJoin_RejectsTraversal(t *testing.T) {
	base := canonicalTempDir(t)

	got, err := Join(base, "/blog/post.md")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(base, "blog", "post.md"), got)

	_, err = Join(base, "../../etc/passwd")
	require.ErrorIs(t, err, ErrOutsideBase)

	_, err = Join(base, "  ")
	require.ErrorIs(t, err, ErrEmptyRef)
}

func TestResolver_Rel(t *testing.T) {
	base := canonicalTempDir(t)
	r, err := NewResolver(base)
	require.NoError(t, err)

	rel, err := r.Rel(filepath.Join(base, "content", "blog", "a.md"))
	require.NoError(t, err)
	require.Equal(t, "content/blog/a.md", rel)

	_, err = NewResolver("relative")
	require.ErrorIs(t, err, ErrRelativeBase)
}

func TestKey_StableAcrossSpellings(t *testing.T) {
	base := canonicalTempDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "content", "blog"), 0o755))

	k1, err := Key("content/blog", base)
	require.NoError(t, err)
	k2, err := Key(filepath.Join(base, "content", ".", "blog", "..", "blog"), base)
	require.NoError(t, err)
	require.Equal(t, k1, k2)
}
