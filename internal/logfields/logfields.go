package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID     = "build_id"
	KeyStage       = "stage"
	KeyState       = "state"
	KeyDurationMS  = "duration_ms"
	KeyPath        = "path"
	KeyPage        = "page"
	KeySection     = "section"
	KeyURL         = "url"
	KeyWorker      = "worker"
	KeyReason      = "reason"
	KeyCount       = "count"
	KeyCacheHits   = "cache_hits"
	KeyCacheMisses = "cache_misses"
	KeyName        = "name"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func State(s string) slog.Attr        { return slog.String(KeyState, s) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Page(p string) slog.Attr         { return slog.String(KeyPage, p) }
func Section(s string) slog.Attr      { return slog.String(KeySection, s) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Worker(id int) slog.Attr         { return slog.Int(KeyWorker, id) }
func Reason(r string) slog.Attr       { return slog.String(KeyReason, r) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func CacheHits(n int) slog.Attr       { return slog.Int(KeyCacheHits, n) }
func CacheMisses(n int) slog.Attr     { return slog.Int(KeyCacheMisses, n) }
func Name(n string) slog.Attr         { return slog.String(KeyName, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
