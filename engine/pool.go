package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/use-agent/cardgrab/models"
)

// Pool is a fixed-size bulkhead for browser fetches.
//
// A worker slot is held for as long as the job runs, even after the caller
// gave up on it: jobs are never cancelled from outside, and a slot is only
// released when its job returns. Callers wait at most the hard timeout.
type Pool struct {
	slots       chan struct{}
	hardTimeout time.Duration

	busy      atomic.Int32
	waiting   atomic.Int32
	completed atomic.Int64
	timedOut  atomic.Int64
}

// NewPool creates a pool of workers slots with the given hard timeout.
func NewPool(workers int, hardTimeout time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		slots:       make(chan struct{}, workers),
		hardTimeout: hardTimeout,
	}
}

// Stats returns a snapshot of the pool's current state.
func (p *Pool) Stats() models.PoolStats {
	return models.PoolStats{
		Workers:   cap(p.slots),
		Busy:      int(p.busy.Load()),
		Waiting:   int(p.waiting.Load()),
		Completed: p.completed.Load(),
		TimedOut:  p.timedOut.Load(),
	}
}

type outcome[T any] struct {
	val T
	err error
}

// Run executes fn on a pool worker.
//
// Waiting for a free slot respects ctx. Once fn has started it receives a
// context detached from ctx's cancellation and runs to completion; the
// caller gets a SCRAPE_TIMEOUT error if fn has not returned within the hard
// timeout, or if ctx ends first.
func Run[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	// ── 1. Acquire a slot ────────────────────────────────────────────
	p.waiting.Add(1)
	select {
	case p.slots <- struct{}{}:
		p.waiting.Add(-1)
	case <-ctx.Done():
		p.waiting.Add(-1)
		return zero, models.NewScrapeError(
			models.ErrCodeTimeout,
			"no browser worker became free",
			ctx.Err(),
		)
	}

	// ── 2. Start the job ─────────────────────────────────────────────
	p.busy.Add(1)
	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			p.busy.Add(-1)
			<-p.slots
		}()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("pool: worker panicked", "panic", r)
				done <- outcome[T]{err: models.NewScrapeError(
					models.ErrCodeBrowserCrash,
					"browser worker panicked",
					fmt.Errorf("%v", r),
				)}
			}
		}()
		val, err := fn(context.WithoutCancel(ctx))
		done <- outcome[T]{val: val, err: err}
	}()

	// ── 3. Wait for the job or the hard timeout ──────────────────────
	timer := time.NewTimer(p.hardTimeout)
	defer timer.Stop()

	select {
	case out := <-done:
		p.completed.Add(1)
		return out.val, out.err
	case <-timer.C:
		p.timedOut.Add(1)
		slog.Warn("pool: job exceeded hard timeout, worker left running", "timeout", p.hardTimeout)
		return zero, models.NewScrapeError(
			models.ErrCodeTimeout,
			fmt.Sprintf("page fetch exceeded %s", p.hardTimeout),
			context.DeadlineExceeded,
		)
	case <-ctx.Done():
		p.timedOut.Add(1)
		return zero, models.NewScrapeError(
			models.ErrCodeTimeout,
			"request canceled",
			ctx.Err(),
		)
	}
}
