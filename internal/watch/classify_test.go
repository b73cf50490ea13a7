package watch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegraph/internal/config"
)

func TestClassify(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "content", "docs"), 0o750))
	cfg, err := config.Load(root, "")
	require.NoError(t, err)
	c := newClassifier(cfg)

	cases := []struct {
		name string
		path string
		want Change
		ok   bool
	}{
		{"markdown", filepath.Join(root, "content", "docs", "a.md"), Change{Path: filepath.Join(root, "content", "docs", "a.md")}, true},
		{"markdown upper ext", filepath.Join(root, "content", "B.Markdown"), Change{Path: filepath.Join(root, "content", "B.Markdown")}, true},
		{"content directory", filepath.Join(root, "content", "docs"), Change{Full: true}, true},
		{"static file", filepath.Join(root, "static", "logo.png"), Change{}, true},
		{"layout", filepath.Join(root, "layouts", "page.html"), Change{}, true},
		{"config file", filepath.Join(root, config.DefaultFileName), Change{Reload: true}, true},
		{"env file", filepath.Join(root, ".env"), Change{Reload: true}, true},
		{"swap file", filepath.Join(root, "content", ".a.md.swp"), Change{}, false},
		{"backup file", filepath.Join(root, "content", "a.md~"), Change{}, false},
		{"emacs autosave", filepath.Join(root, "content", "#a.md#"), Change{}, false},
		{"output", filepath.Join(root, "public", "index.html"), Change{}, false},
		{"cache", filepath.Join(root, ".sitegraph", "cache.json"), Change{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := c.classify(tc.path)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}
