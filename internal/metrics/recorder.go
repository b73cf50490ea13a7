package metrics

import "time"

// Outcome enumerates final build outcomes.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Recorder defines observability hooks for builds. Implementations must be
// safe for concurrent use; ObservePageRender is called from render workers.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome Outcome)
	AddCacheHits(n int)
	AddCacheMisses(n int)
	IncForceFull(reason string)
	ObservePageRender(d time.Duration, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(Outcome)                    {}
func (NoopRecorder) AddCacheHits(int)                           {}
func (NoopRecorder) AddCacheMisses(int)                         {}
func (NoopRecorder) IncForceFull(string)                        {}
func (NoopRecorder) ObservePageRender(time.Duration, bool)      {}
