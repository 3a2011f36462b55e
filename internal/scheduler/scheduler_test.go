package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"feedkeeper/internal/source"
)

type stubSource string

func (s stubSource) Name() string { return string(s) }

func (s stubSource) Collect(context.Context) (*source.Batch, error) {
	return &source.Batch{}, nil
}

type recorder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (r *recorder) run(_ context.Context, src source.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, src.Name())
	if r.fail[src.Name()] {
		return errors.New("collect failed")
	}
	return nil
}

func (r *recorder) getCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]string, len(r.calls))
	copy(cp, r.calls)
	return cp
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sources(names ...string) ListFunc {
	return func(context.Context) ([]source.Source, error) {
		out := make([]source.Source, 0, len(names))
		for _, n := range names {
			out = append(out, stubSource(n))
		}
		return out, nil
	}
}

func TestSchedulerRunsSourcesInOrder(t *testing.T) {
	rec := &recorder{}
	sched := New(sources("cve", "retrospective", "lwn"), rec.run, discard())

	if diff := cmp.Diff(0, sched.runAll(context.Background())); diff != "" {
		t.Errorf("failed count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"cve", "retrospective", "lwn"}, rec.getCalls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerContinuesAfterFailure(t *testing.T) {
	rec := &recorder{fail: map[string]bool{"cve": true}}
	sched := New(sources("cve", "lwn"), rec.run, discard())

	if diff := cmp.Diff(1, sched.runAll(context.Background())); diff != "" {
		t.Errorf("failed count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"cve", "lwn"}, rec.getCalls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerCancelledContext(t *testing.T) {
	rec := &recorder{}
	sched := New(sources("cve", "lwn"), rec.run, discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sched.runAll(ctx)

	if diff := cmp.Diff(0, len(rec.getCalls())); diff != "" {
		t.Errorf("expected no runs when context cancelled (-want +got):\n%s", diff)
	}
}

func TestSchedulerListError(t *testing.T) {
	rec := &recorder{}
	list := func(context.Context) ([]source.Source, error) { return nil, errors.New("bad settings") }
	sched := New(list, rec.run, discard())

	if diff := cmp.Diff(0, sched.runAll(context.Background())); diff != "" {
		t.Errorf("failed count mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(0, len(rec.getCalls())); diff != "" {
		t.Errorf("expected no runs (-want +got):\n%s", diff)
	}
}

func TestSchedulerRunRepeats(t *testing.T) {
	rec := &recorder{}
	sched := New(sources("cve"), rec.run, discard())
	sched.SetTickInterval(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
	if got := len(rec.getCalls()); got < 2 {
		t.Errorf("expected the source to run on several ticks, got %d runs", got)
	}
}
