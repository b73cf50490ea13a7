// Package pathresolve canonicalizes filesystem paths against an explicit base.
//
// Relative inputs are always joined to the supplied base, never to the
// process working directory. Symlinks in the existing prefix of a path are
// resolved; a non-existent tail is appended verbatim so output paths that
// have not been written yet still resolve.
package pathresolve

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
)

var (
	ErrEmptyBase    = errors.New("base path is empty")
	ErrRelativeBase = errors.New("base path is not absolute")
	ErrOutsideBase  = errors.New("path escapes base directory")
	ErrEmptyRef     = errors.New("reference is empty")
	ErrSymlinkLoop  = errors.New("too many levels of symbolic links")
)

// PathResolutionError reports a path that could not be canonicalized.
type PathResolutionError struct {
	Path string
	Base string
	Err  error
}

func (e *PathResolutionError) Error() string {
	return fmt.Sprintf("resolve %q (base %q): %v", e.Path, e.Base, e.Err)
}

func (e *PathResolutionError) Unwrap() error { return e.Err }

// caseInsensitive reports whether the host filesystem folds case by default.
var caseInsensitive = runtime.GOOS == "darwin" || runtime.GOOS == "windows"

// Resolve returns the canonical absolute form of path. A relative path is
// joined to base, which must itself be absolute when used.
func Resolve(path, base string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		if base == "" {
			return "", &PathResolutionError{Path: path, Base: base, Err: ErrEmptyBase}
		}
		if !filepath.IsAbs(base) {
			return "", &PathResolutionError{Path: path, Base: base, Err: ErrRelativeBase}
		}
		abs = filepath.Join(base, abs)
	}
	abs = filepath.Clean(abs)

	resolved, err := evalExistingPrefix(abs)
	if err != nil {
		return "", &PathResolutionError{Path: path, Base: base, Err: err}
	}
	return resolved, nil
}

// Key returns the canonical map key for path: Resolve plus case folding on
// case-insensitive hosts.
func Key(path, base string) (string, error) {
	resolved, err := Resolve(path, base)
	if err != nil {
		return "", err
	}
	return fold(resolved), nil
}

// Equal reports whether a and b name the same location.
func Equal(a, b, base string) bool {
	ka, err := Key(a, base)
	if err != nil {
		return false
	}
	kb, err := Key(b, base)
	if err != nil {
		return false
	}
	return ka == kb
}

// IsWithinBase reports whether path resolves to base or a location below it.
func IsWithinBase(path, base string) bool {
	rb, err := Key(base, base)
	if err != nil {
		return false
	}
	rp, err := Key(path, base)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(rb, rp)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// Join resolves a content reference below base and rejects traversal
// outside it. Leading slashes are treated as relative to base.
func Join(base, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", &PathResolutionError{Path: ref, Base: base, Err: ErrEmptyRef}
	}
	rel := strings.TrimLeft(filepath.FromSlash(ref), `/\`)
	if filepath.VolumeName(rel) != "" {
		return "", &PathResolutionError{Path: ref, Base: base, Err: ErrOutsideBase}
	}
	resolved, err := Resolve(rel, base)
	if err != nil {
		return "", err
	}
	if !IsWithinBase(resolved, base) {
		return "", &PathResolutionError{Path: ref, Base: base, Err: ErrOutsideBase}
	}
	return resolved, nil
}

// Resolver binds a base directory for repeated resolution.
type Resolver struct {
	base string
}

// NewResolver canonicalizes an absolute base once.
func NewResolver(base string) (*Resolver, error) {
	if !filepath.IsAbs(base) {
		return nil, &PathResolutionError{Path: base, Base: base, Err: ErrRelativeBase}
	}
	resolved, err := Resolve(base, base)
	if err != nil {
		return nil, err
	}
	return &Resolver{base: resolved}, nil
}

func (r *Resolver) Base() string                        { return r.base }
func (r *Resolver) Resolve(path string) (string, error) { return Resolve(path, r.base) }
func (r *Resolver) Key(path string) (string, error)     { return Key(path, r.base) }
func (r *Resolver) Within(path string) bool             { return IsWithinBase(path, r.base) }
func (r *Resolver) Join(ref string) (string, error)     { return Join(r.base, ref) }
func (r *Resolver) Equal(a, b string) bool              { return Equal(a, b, r.base) }

// Rel returns path relative to the base in slash form.
func (r *Resolver) Rel(path string) (string, error) {
	resolved, err := r.Resolve(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(r.base, resolved)
	if err != nil {
		return "", &PathResolutionError{Path: path, Base: r.base, Err: err}
	}
	return filepath.ToSlash(rel), nil
}

func fold(p string) string {
	if caseInsensitive {
		return strings.ToLower(p)
	}
	return p
}

// evalExistingPrefix resolves symlinks in the longest existing prefix of an
// absolute, cleaned path and appends the remaining components verbatim.
func evalExistingPrefix(abs string) (string, error) {
	existing := abs
	var tail []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		tail = append(tail, filepath.Base(existing))
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		// EvalSymlinks reports loops untyped; the kernel returns ELOOP.
		if _, serr := os.Stat(existing); errors.Is(serr, syscall.ELOOP) {
			return "", ErrSymlinkLoop
		}
		return "", err
	}
	for i := len(tail) - 1; i >= 0; i-- {
		resolved = filepath.Join(resolved, tail[i])
	}
	return resolved, nil
}
