package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestLoggerCarriesBuildIDAndStage(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithStage(WithBuildID(context.Background(), "b-1"), "discovering")

	Logger(ctx, newBufferLogger(&buf)).Info("Walking content", slog.Int("files", 3))

	out := buf.String()
	require.Contains(t, out, "build_id=b-1")
	require.Contains(t, out, "stage=discovering")
	require.Contains(t, out, "files=3")
}

func TestStageOverwritesPrevious(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithStage(context.Background(), "discovering")
	ctx = WithStage(ctx, "finalizing")

	Logger(ctx, newBufferLogger(&buf)).Debug("done")
	require.Contains(t, buf.String(), "stage=finalizing")
	require.NotContains(t, buf.String(), "stage=discovering")
}

func TestLoggerAnnotatesBase(t *testing.T) {
	var buf bytes.Buffer
	base := newBufferLogger(&buf)

	require.Same(t, base, Logger(context.Background(), base))

	Logger(WithBuildID(context.Background(), "b-9"), base).Info("hello")
	require.Contains(t, buf.String(), "build_id=b-9")
}

func TestLoggerNilBaseUsesDefault(t *testing.T) {
	require.Same(t, slog.Default(), Logger(context.Background(), nil))
}
