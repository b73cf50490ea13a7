package build

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/pathresolve"
	"git.home.luguber.info/inful/sitegraph/internal/site"
	"git.home.luguber.info/inful/sitegraph/internal/util/sets"
)

// claimedOutputs returns the output files of every page with an output
// path, relative to the output directory in slash form, sorted.
func claimedOutputs(s *site.Site) []string {
	outDir := s.OutputDir()
	claimed := sets.New[string]()
	for _, p := range s.Pages() {
		out := p.OutputPath()
		if out == "" {
			continue
		}
		rel, err := filepath.Rel(outDir, out)
		if err != nil {
			continue
		}
		claimed.Add(filepath.ToSlash(rel))
	}
	return sets.Sorted(claimed)
}

// pruneStale removes outputs recorded by the previous build that no current
// page claims, then any directories left empty below the output directory.
// Entries that resolve outside the output directory are ignored.
func (r *run) pruneStale(outDir string, previous, current []string) int {
	stale := sets.New(previous...).Difference(sets.New(current...))
	if stale.Len() == 0 {
		return 0
	}

	removed := 0
	dirs := sets.New[string]()
	for _, rel := range sets.Sorted(stale) {
		abs, err := pathresolve.Join(outDir, rel)
		if err != nil {
			r.log.Warn("Ignoring recorded output outside the output directory", logfields.Path(rel))
			continue
		}
		if err := os.Remove(abs); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				r.log.Warn("Failed to remove stale output", logfields.Path(abs), logfields.Error(err))
			}
			continue
		}
		removed++
		r.log.Debug("Removed stale output", logfields.Path(abs))
		dirs.Add(filepath.Dir(abs))
	}

	r.removeEmptyDirs(outDir, sets.Sorted(dirs))
	return removed
}

// removeEmptyDirs removes each directory and its parents while they are
// empty, stopping at the output directory.
func (r *run) removeEmptyDirs(outDir string, dirs []string) {
	// Deepest first so parents see their children gone.
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	base, err := pathresolve.Resolve(outDir, outDir)
	if err != nil {
		return
	}
	for _, dir := range dirs {
		for cur := dir; cur != base && pathresolve.IsWithinBase(cur, base); cur = filepath.Dir(cur) {
			entries, err := os.ReadDir(cur)
			if err != nil || len(entries) > 0 {
				break
			}
			if err := os.Remove(cur); err != nil {
				break
			}
		}
	}
}
