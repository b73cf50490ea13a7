package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"git.home.luguber.info/inful/sitegraph/internal/content"
	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/frontmatter"
	"github.com/stretchr/testify/require"
)

func pages(n int) []*content.Page {
	out := make([]*content.Page, 0, n)
	for i := range n {
		rel := fmt.Sprintf("p%03d.md", i)
		out = append(out, content.NewPage("/site/content/"+rel, rel, content.KindPage, frontmatter.Fields{}, nil))
	}
	return out
}

func TestCoordinator_RendersEveryPageOnce(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	factory := func(int) (Pipeline, error) {
		return PipelineFunc(func(_ context.Context, p *content.Page) error {
			mu.Lock()
			seen[p.RelPath]++
			mu.Unlock()
			return nil
		}), nil
	}

	res, err := NewCoordinator(4, factory).Run(context.Background(), pages(40))
	require.NoError(t, err)
	require.Len(t, res.Rendered, 40)
	require.Empty(t, res.Failures)
	require.Len(t, seen, 40)
	for rel, n := range seen {
		require.Equal(t, 1, n, rel)
	}
	require.Equal(t, "p000.md", res.Rendered[0].RelPath)
}

func TestCoordinator_OnePipelinePerWorker(t *testing.T) {
	var created atomic.Int32
	var mu sync.Mutex
	usedBy := map[int]map[*content.Page]bool{}

	factory := func(id int) (Pipeline, error) {
		created.Add(1)
		return PipelineFunc(func(_ context.Context, p *content.Page) error {
			mu.Lock()
			defer mu.Unlock()
			if usedBy[id] == nil {
				usedBy[id] = map[*content.Page]bool{}
			}
			usedBy[id][p] = true
			return nil
		}), nil
	}

	_, err := NewCoordinator(3, factory).Run(context.Background(), pages(30))
	require.NoError(t, err)
	require.Equal(t, int32(3), created.Load())
	total := 0
	for _, ps := range usedBy {
		total += len(ps)
	}
	require.Equal(t, 30, total)
}

func TestCoordinator_PoolNeverExceedsPageCount(t *testing.T) {
	var created atomic.Int32
	factory := func(int) (Pipeline, error) {
		created.Add(1)
		return PipelineFunc(func(context.Context, *content.Page) error { return nil }), nil
	}

	_, err := NewCoordinator(8, factory).Run(context.Background(), pages(2))
	require.NoError(t, err)
	require.Equal(t, int32(2), created.Load())
}

func TestCoordinator_FailuresDoNotAbortSiblings(t *testing.T) {
	factory := func(int) (Pipeline, error) {
		return PipelineFunc(func(_ context.Context, p *content.Page) error {
			switch p.RelPath {
			case "p003.md":
				return errors.New("template exploded")
			case "p007.md":
				panic("nil layout")
			}
			return nil
		}), nil
	}

	res, err := NewCoordinator(2, factory).Run(context.Background(), pages(10))
	require.NoError(t, err)
	require.Len(t, res.Rendered, 8)
	require.Len(t, res.Failures, 2)

	require.Equal(t, "p003.md", res.Failures[0].Page.RelPath)
	require.False(t, res.Failures[0].Panic)
	require.Equal(t, "p007.md", res.Failures[1].Page.RelPath)
	require.True(t, res.Failures[1].Panic)
	require.Contains(t, res.Failures[1].Err.Error(), "nil layout")
}

func TestCoordinator_FactoryErrorIsFatal(t *testing.T) {
	var rendered atomic.Int32
	factory := func(id int) (Pipeline, error) {
		if id == 1 {
			return nil, errors.New("no layouts")
		}
		return PipelineFunc(func(context.Context, *content.Page) error {
			rendered.Add(1)
			return nil
		}), nil
	}

	_, err := NewCoordinator(2, factory).Run(context.Background(), pages(5))
	require.Error(t, err)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryRender))
	require.True(t, foundationerrors.HasSeverity(err, foundationerrors.SeverityFatal))
	require.Zero(t, rendered.Load())
}

func TestCoordinator_EmptyInput(t *testing.T) {
	factory := func(int) (Pipeline, error) {
		t.Fatal("factory must not be called")
		return nil, nil
	}
	res, err := NewCoordinator(4, factory).Run(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, res.Rendered)
}

func TestProgress_SerializesLines(t *testing.T) {
	var buf bytes.Buffer
	progress := NewProgress(&buf)
	factory := func(int) (Pipeline, error) {
		return PipelineFunc(func(_ context.Context, p *content.Page) error {
			if p.RelPath == "p005.md" {
				return errors.New("boom")
			}
			return nil
		}), nil
	}

	_, err := NewCoordinator(4, factory).WithProgress(progress).Run(context.Background(), pages(20))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 20)
	for _, line := range lines {
		require.True(t, strings.HasPrefix(line, "["), line)
		require.Contains(t, line, "/20]")
	}
	require.Contains(t, buf.String(), "FAIL p005.md: boom")

	done, failed := progress.Counts()
	require.Equal(t, 20, done)
	require.Equal(t, 1, failed)
}

func TestProgress_NilIsNoop(t *testing.T) {
	var p *Progress
	p.Start(3)
	p.Done(pages(1)[0], nil)
	done, failed := p.Counts()
	require.Zero(t, done)
	require.Zero(t, failed)
}
