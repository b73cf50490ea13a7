package watch

import (
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitegraph/internal/config"
	"git.home.luguber.info/inful/sitegraph/internal/pathresolve"
)

// classifier maps filesystem events to changes for one configuration.
type classifier struct {
	root       string
	content    string
	static     string
	layouts    string
	configFile string
	envFile    string
}

func newClassifier(cfg *config.Config) classifier {
	file := cfg.SourceFile()
	if file == "" {
		file = filepath.Join(cfg.Root(), config.DefaultFileName)
	}
	return classifier{
		root:       cfg.Root(),
		content:    cfg.ContentPath(),
		static:     cfg.StaticPath(),
		layouts:    cfg.LayoutsPath(),
		configFile: file,
		envFile:    filepath.Join(cfg.Root(), ".env"),
	}
}

// classify reports the change an event path represents, if any.
func (c classifier) classify(path string) (Change, bool) {
	if pathresolve.Equal(path, c.configFile, c.root) || pathresolve.Equal(path, c.envFile, c.root) {
		return Change{Reload: true}, true
	}
	if shouldIgnoreEvent(path) {
		return Change{}, false
	}
	switch {
	case pathresolve.IsWithinBase(path, c.content):
		if isMarkdown(path) {
			return Change{Path: path}, true
		}
		// Directory moves and removals carry no per-file hint.
		return Change{Full: true}, true
	case pathresolve.IsWithinBase(path, c.static), pathresolve.IsWithinBase(path, c.layouts):
		return Change{}, true
	}
	return Change{}, false
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	// Editor temp/swap files
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	return base == "Thumbs.db"
}
