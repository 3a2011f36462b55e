// Package scheduler runs collectors periodically in a single process.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"feedkeeper/internal/source"
)

// ListFunc returns the sources to run on a tick. It is called on every tick
// so that sources see the bookkeeping saved by earlier runs.
type ListFunc func(ctx context.Context) ([]source.Source, error)

// RunFunc collects one source and merges its items into the feed.
type RunFunc func(ctx context.Context, src source.Source) error

// Scheduler runs every source, one at a time, on each tick. Running
// sequentially keeps a single pipeline active against the document.
type Scheduler struct {
	list ListFunc
	run  RunFunc
	log  *slog.Logger
	tick time.Duration
}

// New creates a Scheduler with a one hour interval.
func New(list ListFunc, run RunFunc, log *slog.Logger) *Scheduler {
	return &Scheduler{
		list: list,
		run:  run,
		log:  log,
		tick: 1 * time.Hour,
	}
}

// SetTickInterval overrides the default interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.runAll(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

// runAll runs each source in order and returns the number that failed.
// A failing source does not stop the others.
func (s *Scheduler) runAll(ctx context.Context) int {
	sources, err := s.list(ctx)
	if err != nil {
		s.log.Error("list sources", "error", err)
		return 0
	}

	failed := 0
	for _, src := range sources {
		if ctx.Err() != nil {
			return failed
		}
		start := time.Now()
		s.log.Debug("running source", "source", src.Name())
		if err := s.run(ctx, src); err != nil {
			failed++
			s.log.Error("run source", "source", src.Name(), "error", err)
			continue
		}
		s.log.Debug("source done", "source", src.Name(), "elapsed", time.Since(start))
	}
	if failed > 0 {
		s.log.Warn("run finished with failures", "failed", failed, "total", len(sources))
	}
	return failed
}
