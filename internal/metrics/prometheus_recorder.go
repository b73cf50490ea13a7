package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitegraph"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	cacheHits     prom.Counter
	cacheMisses   prom.Counter
	forceFull     *prom.CounterVec
	pageDuration  *prom.HistogramVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		cacheHits: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Sources whose content hash matched the build cache",
		}),
		cacheMisses: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Sources that missed the build cache",
		}),
		forceFull: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "force_full_total",
			Help:      "Full rebuilds by reason",
		}, []string{"reason"}),
		pageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "page_render_duration_seconds",
			Help:      "Duration of single page renders",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"result"}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.buildOutcome,
		pr.cacheHits, pr.cacheMisses, pr.forceFull, pr.pageDuration)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome Outcome) {
	if p == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddCacheHits(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.cacheHits.Add(float64(n))
}

func (p *PrometheusRecorder) AddCacheMisses(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.cacheMisses.Add(float64(n))
}

func (p *PrometheusRecorder) IncForceFull(reason string) {
	if p == nil || reason == "" {
		return
	}
	p.forceFull.WithLabelValues(reason).Inc()
}

func (p *PrometheusRecorder) ObservePageRender(d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.pageDuration.WithLabelValues(res).Observe(d.Seconds())
}
