// Package metrics provides build metrics for sitegraph.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics never require nil checks at call sites:
//
//	b := build.New(cfg).WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// The Prometheus implementation registers its collectors on the supplied
// registry; HTTPHandler serves that registry (used by watch mode when
// metrics.addr is configured).
package metrics
