package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startDebouncer(t *testing.T, quiet, maxDelay time.Duration) *Debouncer {
	t.Helper()
	d, err := NewDebouncer(quiet, maxDelay)
	require.NoError(t, err)
	go func() { _ = d.Run(t.Context()) }()

	select {
	case <-d.Ready():
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for debouncer ready")
	}
	return d
}

func TestNewDebouncer_Validates(t *testing.T) {
	_, err := NewDebouncer(0, time.Second)
	require.Error(t, err)

	_, err = NewDebouncer(time.Second, time.Millisecond)
	require.Error(t, err)
}

func TestDebouncer_BurstCoalescesToSingleBatch(t *testing.T) {
	d := startDebouncer(t, 25*time.Millisecond, 500*time.Millisecond)
	ctx := t.Context()

	for _, p := range []string{"/s/content/b.md", "/s/content/a.md", "/s/content/b.md"} {
		d.Submit(ctx, Change{Path: p})
		time.Sleep(5 * time.Millisecond)
	}
	d.Submit(ctx, Change{})

	select {
	case got := <-d.Batches():
		require.Equal(t, []string{"/s/content/a.md", "/s/content/b.md"}, got.Paths)
		require.Equal(t, 4, got.Requests)
		require.Equal(t, "quiet", got.Cause)
		require.False(t, got.Full)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for batch")
	}

	select {
	case <-d.Batches():
		t.Fatal("expected only one batch for burst")
	case <-time.After(75 * time.Millisecond):
	}
}

func TestDebouncer_MaxDelayForcesBatch(t *testing.T) {
	d := startDebouncer(t, 50*time.Millisecond, 120*time.Millisecond)
	ctx := t.Context()

	done := make(chan struct{})
	go func() {
		defer close(done)
		deadline := time.Now().Add(300 * time.Millisecond)
		for time.Now().Before(deadline) {
			d.Submit(ctx, Change{Path: "/s/content/a.md"})
			time.Sleep(10 * time.Millisecond)
		}
	}()

	select {
	case got := <-d.Batches():
		require.Equal(t, "max_delay", got.Cause)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for max-delay batch")
	}
	<-done
}

func TestDebouncer_BusyConsumerGetsOneFollowUp(t *testing.T) {
	d := startDebouncer(t, 20*time.Millisecond, 200*time.Millisecond)
	ctx := t.Context()

	d.Submit(ctx, Change{Path: "/s/content/a.md"})
	require.Eventually(t, func() bool { return len(d.out) == 1 }, time.Second, 5*time.Millisecond)

	d.Submit(ctx, Change{Path: "/s/content/b.md"})
	d.Submit(ctx, Change{Path: "/s/content/c.md", Full: true})
	time.Sleep(100 * time.Millisecond)

	first := <-d.Batches()
	require.Equal(t, []string{"/s/content/a.md"}, first.Paths)

	select {
	case second := <-d.Batches():
		require.Equal(t, []string{"/s/content/b.md", "/s/content/c.md"}, second.Paths)
		require.Equal(t, 2, second.Requests)
		require.True(t, second.Full)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for follow-up batch")
	}
}

func TestDebouncer_ReloadImpliesFull(t *testing.T) {
	d := startDebouncer(t, 10*time.Millisecond, 100*time.Millisecond)
	d.Submit(t.Context(), Change{Reload: true})

	select {
	case got := <-d.Batches():
		require.True(t, got.Reload)
		require.True(t, got.Full)
		require.NotNil(t, got.Paths)
		require.Empty(t, got.Paths)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timed out waiting for batch")
	}
}
