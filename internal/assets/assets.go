// Package assets copies the static directory into the output tree.
package assets

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/logfields"
	"git.home.luguber.info/inful/sitegraph/internal/site"
)

// ErrStaticDirMissing reports an absent static directory. It is returned
// wrapped in a warning-severity error.
var ErrStaticDirMissing = errors.New("static directory missing")

// Copier mirrors static files into the output directory. Files whose
// content already matches are left untouched.
type Copier struct {
	logger *slog.Logger
}

// NewCopier creates a Copier.
func NewCopier() *Copier {
	return &Copier{logger: slog.Default()}
}

// WithLogger sets a custom logger.
func (c *Copier) WithLogger(logger *slog.Logger) *Copier {
	c.logger = logger
	return c
}

// Process copies the site's static directory and returns the number of
// files written.
func (c *Copier) Process(_ context.Context, s *site.Site) (int, error) {
	src := s.Config().StaticPath()
	return c.Copy(src, s.OutputDir())
}

// Copy mirrors src into dst.
func (c *Copier) Copy(src, dst string) (int, error) {
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, foundationerrors.FileSystemError("static directory not found").
				Warning().
				WithContext("path", src).
				WithCause(ErrStaticDirMissing).
				Build()
		}
		return 0, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot stat static directory").
			WithContext("path", src).
			Build()
	}
	if !info.IsDir() {
		return 0, foundationerrors.FileSystemError("static path is not a directory").
			WithContext("path", src).
			Build()
	}

	copied := 0
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if !d.Type().IsRegular() {
			return nil
		}

		// #nosec G304 -- path comes from walking the configured static directory
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		// #nosec G304 -- target is inside the output directory
		if existing, err := os.ReadFile(target); err == nil && bytes.Equal(existing, data) {
			return nil
		}
		// #nosec G306 -- static assets are public content
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "copy static assets").
			WithContext("path", src).
			Build()
	}

	c.logger.Debug("Static assets copied", logfields.Path(src), logfields.Count(copied))
	return copied, nil
}
