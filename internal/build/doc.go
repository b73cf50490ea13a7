// Package build orchestrates one site build.
//
// A build moves through Idle, Discovering, CacheComparing, Rendering,
// Finalizing and Done; Failed is reachable from every non-terminal state.
// Discovery, cache comparison and finalization are single threaded; only
// rendering runs on the worker pool. The context is consulted once, before
// discovery begins.
//
// Content-structure collisions, frontmatter problems and per-page render
// failures are warnings unless strict mode is on, in which case they fail
// the build.
package build
