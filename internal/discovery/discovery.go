// Package discovery walks the content directory and builds the site graph:
// sections, pages, cascade, taxonomy pages, output paths, the section
// registry and the cross-reference index.
//
// Discovery is single threaded and creates every Page and Section afresh on
// each pass.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitegraph/internal/cascade"
	"git.home.luguber.info/inful/sitegraph/internal/config"
	"git.home.luguber.info/inful/sitegraph/internal/content"
	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/frontmatter"
	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/markdown"
	"git.home.luguber.info/inful/sitegraph/internal/pathresolve"
	"git.home.luguber.info/inful/sitegraph/internal/site"
	"git.home.luguber.info/inful/sitegraph/internal/taxonomy"
	"git.home.luguber.info/inful/sitegraph/internal/xref"
)

// Result is the outcome of one discovery pass.
type Result struct {
	Site *site.Site
	// Files lists every Markdown source found, including files that were
	// skipped because they could not be parsed.
	Files []string
	// Invalid lists files that were skipped.
	Invalid []string
	// Problems holds per-file errors and other recoverable warnings.
	Problems []error
	// Collisions lists duplicate ids, paths and URLs.
	Collisions []site.Collision
	Duration   time.Duration
}

// Discoverer builds a site graph from a configuration.
type Discoverer struct {
	parser markdown.Parser
	logger *slog.Logger
}

// New creates a Discoverer using the goldmark parser.
func New() *Discoverer {
	return &Discoverer{parser: markdown.New(), logger: slog.Default()}
}

// WithParser replaces the body parser.
func (d *Discoverer) WithParser(p markdown.Parser) *Discoverer {
	d.parser = p
	return d
}

// WithLogger sets a custom logger.
func (d *Discoverer) WithLogger(logger *slog.Logger) *Discoverer {
	d.logger = logger
	return d
}

// walkState accumulates the tree while walking.
type walkState struct {
	site     *site.Site
	root     string
	sections map[string]*content.Section
	roots    []*content.Section
	topLevel []*content.Page
	home     *content.Page
	result   *Result
}

// Discover walks the content directory of cfg. Configuration and root
// errors are fatal; a missing content directory yields an empty site plus a
// warning; per-file problems skip the file and are reported in Problems.
func (d *Discoverer) Discover(cfg *config.Config) (*Result, error) {
	start := time.Now()

	s, err := site.New(cfg)
	if err != nil {
		return nil, err
	}
	res := &Result{Site: s}

	contentDir, err := pathresolve.Resolve(cfg.ContentPath(), s.Root())
	if err != nil {
		return nil, foundationerrors.DiscoveryError("content directory cannot be resolved").
			WithContext("path", cfg.ContentPath()).
			WithCause(err).
			Build()
	}

	info, err := os.Stat(contentDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		d.logger.Warn("Content directory not found", logfields.Path(contentDir))
		res.Problems = append(res.Problems, foundationerrors.DiscoveryError("content directory not found").
			Warning().
			WithContext("path", contentDir).
			WithCause(ErrContentRootMissing).
			Build())
		d.finish(&walkState{site: s, root: contentDir, result: res})
		res.Duration = time.Since(start)
		return res, nil
	case err != nil:
		return nil, foundationerrors.DiscoveryError("content directory unreadable").
			WithContext("path", contentDir).
			WithCause(err).
			Build()
	case !info.IsDir():
		return nil, foundationerrors.DiscoveryError("content path is not a directory").
			WithContext("path", contentDir).
			Build()
	}

	st := &walkState{
		site:     s,
		root:     contentDir,
		sections: map[string]*content.Section{},
		result:   res,
	}
	if err := filepath.WalkDir(contentDir, func(p string, entry fs.DirEntry, walkErr error) error {
		return d.visit(st, p, entry, walkErr)
	}); err != nil {
		return nil, foundationerrors.DiscoveryError("content walk failed").
			WithContext("path", contentDir).
			WithCause(fmt.Errorf("%w: %w", ErrContentWalkFailed, err)).
			Build()
	}

	d.finish(st)
	res.Duration = time.Since(start)
	d.logger.Info("Content discovered",
		logfields.Count(len(res.Files)),
		slog.Int("pages", len(s.Pages())),
		slog.Int("sections", s.Registry().Len()),
		logfields.DurationMS(float64(res.Duration.Microseconds())/1000))
	return res, nil
}

func (d *Discoverer) visit(st *walkState, p string, entry fs.DirEntry, walkErr error) error {
	if walkErr != nil {
		return walkErr
	}
	if p == st.root {
		return nil
	}
	if strings.HasPrefix(entry.Name(), ".") {
		if entry.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	rel, err := filepath.Rel(st.root, p)
	if err != nil {
		return err
	}
	rel = filepath.ToSlash(rel)

	if entry.IsDir() {
		sec := content.NewSection(p, rel)
		sec.Owner = st.site
		st.sections[rel] = sec
		if parent, ok := st.sections[path.Dir(rel)]; ok {
			parent.AddSection(sec)
		} else {
			st.roots = append(st.roots, sec)
		}
		return nil
	}
	if !isMarkdown(entry.Name()) || !entry.Type().IsRegular() {
		return nil
	}

	st.result.Files = append(st.result.Files, p)
	page, err := d.load(p, rel)
	if err != nil {
		d.logger.Warn("Skipping content file", logfields.Path(rel), logfields.Error(err))
		st.result.Invalid = append(st.result.Invalid, p)
		st.result.Problems = append(st.result.Problems, err)
		return nil
	}
	page.Owner = st.site
	d.attach(st, page, rel)
	return nil
}

// load reads and parses one content file.
func (d *Discoverer) load(abs, rel string) (*content.Page, error) {
	// #nosec G304 -- path comes from walking the configured content directory
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, contentProblem(rel, fmt.Errorf("%w: %w", ErrFileReadFailed, err))
	}

	fmRaw, body, _, err := frontmatter.Split(raw)
	if err != nil {
		return nil, contentProblem(rel, fmt.Errorf("%w: %w", ErrFrontMatterInvalid, err))
	}
	fields, err := frontmatter.Parse(fmRaw)
	if err != nil {
		return nil, contentProblem(rel, fmt.Errorf("%w: %w", ErrFrontMatterInvalid, err))
	}
	doc, err := d.parser.Parse(body)
	if err != nil {
		return nil, contentProblem(rel, fmt.Errorf("%w: %w", ErrBodyParseFailed, err))
	}

	kind := content.KindPage
	name := path.Base(rel)
	if content.IsIndexName(name) {
		kind = content.KindSection
		if path.Dir(rel) == "." {
			kind = content.KindHome
		}
	}
	return content.NewPage(abs, rel, kind, fields, doc), nil
}

func contentProblem(rel string, err error) error {
	return foundationerrors.NewError(foundationerrors.CategoryContent, "content file skipped").
		WithContext("path", rel).
		WithCause(err).
		Build()
}

// attach places a page in the section tree.
func (d *Discoverer) attach(st *walkState, page *content.Page, rel string) {
	dir := path.Dir(rel)
	switch page.Kind {
	case content.KindHome:
		if st.home == nil {
			st.home = page
			return
		}
		// A second root index still takes part in collision detection.
		st.topLevel = append(st.topLevel, page)
	case content.KindSection:
		sec := st.sections[dir]
		if sec.Index == nil {
			sec.SetIndex(page)
			return
		}
		page.Section = sec
		sec.Pages = append(sec.Pages, page)
	default:
		if sec, ok := st.sections[dir]; ok {
			sec.AddPage(page)
			return
		}
		st.topLevel = append(st.topLevel, page)
	}
	d.logger.Debug("Discovered page", logfields.Page(rel), logfields.Section(dir))
}

// finish builds everything derived from the walked tree.
func (d *Discoverer) finish(st *walkState) {
	s := st.site
	cfg := s.Config()

	home := st.home
	if home == nil {
		home = content.NewPage("", "", content.KindHome, frontmatter.NewFields("title", cfg.Title), nil)
		home.Generated = true
		home.Owner = s
	}

	var homeCascade map[string]any
	if !home.Generated {
		homeCascade, _ = home.FrontMatter.Mapping("cascade")
	}
	cascade.ApplyFrom(homeCascade, st.roots, st.topLevel)

	pages := []*content.Page{home}
	pages = append(pages, st.topLevel...)
	for _, sec := range st.roots {
		pages = append(pages, sec.AllPages()...)
	}
	sort.SliceStable(pages[1:], func(i, j int) bool { return pages[1+i].RelPath < pages[1+j].RelPath })

	pages = append(pages, taxonomy.Generate(pages, cfg.Taxonomies, s)...)

	s.SetSections(st.roots)
	s.SetHome(home)
	s.SetPages(pages)
	escapes := s.AssignOutputPaths()

	for _, err := range s.Registry().Register(st.roots) {
		st.result.Problems = append(st.result.Problems, foundationerrors.WrapError(err, foundationerrors.CategoryDiscovery, "section registration failed").
			Warning().
			Build())
	}

	idx, collisions := xref.Build(pages)
	s.SetIndex(idx)
	for _, err := range checkLinks(pages, idx) {
		d.logger.Warn("Unresolved link", logfields.Error(err))
		st.result.Problems = append(st.result.Problems, err)
	}
	st.result.Collisions = append(collisions, s.ValidateNoURLCollisions()...)
	st.result.Collisions = append(st.result.Collisions, escapes...)
	for _, c := range st.result.Collisions {
		d.logger.Warn("Content collision",
			slog.String("kind", string(c.Kind)),
			slog.String("key", c.Key),
			slog.Any("sources", c.Sources))
	}
}

func isMarkdown(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return true
	default:
		return false
	}
}
