package errors

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: ExitOK},
		{name: "validation error", err: ValidationError("invalid input").Build(), expected: ExitUsage},
		{name: "config error", err: ConfigError("bad config").Build(), expected: ExitConfig},
		{name: "content error", err: ContentError("url collision").Build(), expected: ExitContent},
		{name: "render error", err: RenderError("template failed").Build(), expected: ExitRender},
		{name: "build error", err: BuildError("build failed").Build(), expected: ExitBuild},
		{name: "internal error", err: InternalError("boom").Build(), expected: ExitInternal},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, expected: ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adapter.ExitCodeFor(tt.err)
			if got != tt.expected {
				t.Errorf("ExitCodeFor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{name: "internal error hides details", err: InternalError("internal issue").Build(), contains: "use -v for details"},
		{name: "config error shows message", err: ConfigError("bad config").Build(), contains: "bad config"},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, contains: "Error: unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adapter.FormatError(tt.err)
			if !strings.Contains(got, tt.contains) {
				t.Errorf("FormatError() = %q, want to contain %q", got, tt.contains)
			}
		})
	}

	if got := adapter.FormatError(nil); got != "" {
		t.Errorf("FormatError(nil) = %q, want empty string", got)
	}
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logs, out bytes.Buffer
	adapter := NewCLIErrorAdapter(true, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out
	code := -1
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(ContentError("url collision").WithContext("key", "/a/").Build())

	if code != ExitContent {
		t.Errorf("expected exit code %d, got %d", ExitContent, code)
	}
	if !strings.Contains(out.String(), "url collision") {
		t.Errorf("expected message on output, got %q", out.String())
	}
	if !strings.Contains(logs.String(), "category=content") {
		t.Errorf("expected category in log, got %q", logs.String())
	}
}

// customError is a test helper for unclassified errors
type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
