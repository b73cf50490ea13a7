// Package incremental persists per-file content hashes between builds and
// decides which sources can skip rendering.
package incremental

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/sitegraph/internal/logfields"
)

// SchemaVersion is the version of the persisted record layout.
const SchemaVersion = 1

var (
	ErrCacheCorrupt   = errors.New("build cache record is corrupt")
	ErrSchemaMismatch = errors.New("build cache schema version mismatch")
)

// Record is the persisted cache document.
type Record struct {
	SchemaVersion int               `json:"schema_version"`
	ConfigHash    string            `json:"config_hash"`
	LayoutsHash   string            `json:"layouts_hash"`
	FileHashes    map[string]string `json:"file_hashes"`
	// Outputs lists every page output the build claimed, relative to the
	// output directory in slash form. The next build removes entries no
	// page claims any more.
	Outputs   []string  `json:"outputs,omitempty"`
	BuildID   string    `json:"build_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cache maps source files to content hashes plus the configuration hash of
// the build that produced them. Keys are root-relative slash paths.
type Cache struct {
	path       string
	legacy     []string
	root       string
	record     *Record
	loadedFrom string
	logger     *slog.Logger
}

// New creates a cache persisted at path. Keys are made relative to root.
// Legacy locations are read when path does not exist.
func New(path, root string, legacy ...string) *Cache {
	return &Cache{
		path:   path,
		legacy: legacy,
		root:   root,
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger.
func (c *Cache) WithLogger(logger *slog.Logger) *Cache {
	c.logger = logger
	return c
}

// Path returns the primary record location.
func (c *Cache) Path() string { return c.path }

// Loaded reports whether a persisted record is available.
func (c *Cache) Loaded() bool { return c.record != nil }

// LoadedFrom returns the file the record was read from.
func (c *Cache) LoadedFrom() string { return c.loadedFrom }

// Record returns a copy of the current record, or nil.
func (c *Cache) Record() *Record {
	if c.record == nil {
		return nil
	}
	r := *c.record
	r.FileHashes = maps.Clone(c.record.FileHashes)
	r.Outputs = slices.Clone(c.record.Outputs)
	return &r
}

// Load reads the persisted record. A missing, unreadable, corrupt or
// wrong-schema record leaves the cache empty and is logged; it is never an
// error for the build.
func (c *Cache) Load() bool {
	c.record = nil
	c.loadedFrom = ""

	for _, candidate := range append([]string{c.path}, c.legacy...) {
		rec, err := readRecord(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			c.logger.Warn("Ignoring build cache", logfields.Path(candidate), logfields.Error(err))
			return false
		}
		c.record = rec
		c.loadedFrom = candidate
		if candidate != c.path {
			c.logger.Info("Loaded build cache from legacy location", logfields.Path(candidate))
		}
		c.logger.Debug("Loaded build cache",
			logfields.Path(candidate),
			logfields.Count(len(rec.FileHashes)),
			logfields.BuildID(rec.BuildID))
		return true
	}
	c.logger.Debug("No build cache found", logfields.Path(c.path))
	return false
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if rec.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: found %d, want %d", ErrSchemaMismatch, rec.SchemaVersion, SchemaVersion)
	}
	if rec.FileHashes == nil {
		rec.FileHashes = map[string]string{}
	}
	return &rec, nil
}

// Update replaces the in-memory record. Keys in drop (typically pages that
// failed to render) are left out so they miss on the next build.
func (c *Cache) Update(hashes map[string]string, configHash, layoutsHash, buildID string, drop ...string) {
	files := maps.Clone(hashes)
	if files == nil {
		files = map[string]string{}
	}
	for _, k := range drop {
		delete(files, c.Key(k))
	}
	c.record = &Record{
		SchemaVersion: SchemaVersion,
		ConfigHash:    configHash,
		LayoutsHash:   layoutsHash,
		FileHashes:    files,
		BuildID:       buildID,
		UpdatedAt:     time.Now().UTC(),
	}
}

// SetOutputs records the page outputs of the current build. It has no
// effect before Update.
func (c *Cache) SetOutputs(outputs []string) {
	if c.record == nil {
		return
	}
	c.record.Outputs = slices.Sorted(slices.Values(outputs))
}

// Save writes the record atomically (temp file plus rename).
func (c *Cache) Save() error {
	if c.record == nil {
		return nil
	}
	data, err := json.MarshalIndent(c.record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal build cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cache-*.json")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write build cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync build cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close build cache: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("replace build cache: %w", err)
	}
	c.loadedFrom = c.path
	c.logger.Debug("Saved build cache", logfields.Path(c.path), logfields.Count(len(c.record.FileHashes)))
	return nil
}

// Key returns the record key for a source path: root-relative with forward
// slashes. Paths outside root keep their absolute slash form.
func (c *Cache) Key(path string) string {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(filepath.Clean(path))
	}
	rel, err := filepath.Rel(c.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
