// Package render runs page rendering on a fixed-size worker pool.
//
// Each worker owns exactly one Pipeline, created by a PipelineFactory before
// any page is rendered and kept for the worker's lifetime. Per-page failures,
// panics included, are recorded and never stop sibling pages.
package render

import (
	"context"

	"git.home.luguber.info/inful/sitegraph/internal/content"
)

// Pipeline renders a single page to its output path.
type Pipeline interface {
	Render(ctx context.Context, p *content.Page) error
}

// PipelineFactory builds the pipeline for one worker.
type PipelineFactory func(workerID int) (Pipeline, error)

// PipelineFunc adapts a function to Pipeline.
type PipelineFunc func(ctx context.Context, p *content.Page) error

func (f PipelineFunc) Render(ctx context.Context, p *content.Page) error { return f(ctx, p) }
