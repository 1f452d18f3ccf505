// Package scheduler bounds concurrent background work for the prefetch
// engine (spec §5): a user-supplied concurrency limit gates how many
// network/cache tasks run at once, and cancellation is honored at every
// yield point rather than only at submission time.
package scheduler

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Scheduler runs tasks with a bounded number of them in flight at once.
// It does not own a goroutine pool: each Go call spawns a goroutine
// that blocks on the semaphore, matching the spec's "no internal thread
// pool, but many requests in flight" model.
type Scheduler struct {
	sem *semaphore.Weighted
}

// New builds a Scheduler allowing at most maxConcurrency tasks to run
// simultaneously.
func New(maxConcurrency int64) *Scheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Scheduler{sem: semaphore.NewWeighted(maxConcurrency)}
}

// Group batches a set of tasks that share a cancellation scope: the
// first task to return a non-Cancelled error does not stop its
// siblings (the spec only cancels on explicit cancellation, not on
// first error), but Wait still aggregates every error for the caller.
type Group struct {
	sched *Scheduler
	ctx   context.Context

	results chan error
	pending int
}

// NewGroup starts a Group of tasks bound to ctx. Cancelling ctx causes
// any task not yet acquired a scheduler slot to return ctx.Err()
// immediately without running.
func (s *Scheduler) NewGroup(ctx context.Context) *Group {
	return &Group{sched: s, ctx: ctx, results: make(chan error)}
}

// Go schedules fn to run once a concurrency slot is available. fn
// receives the group's context and should check it for cancellation at
// any internal suspension point.
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.pending++
	go func() {
		if err := g.sched.sem.Acquire(g.ctx, 1); err != nil {
			g.results <- g.ctx.Err()
			return
		}
		defer g.sched.sem.Release(1)

		if err := g.ctx.Err(); err != nil {
			g.results <- err
			return
		}
		g.results <- fn(g.ctx)
	}()
}

// Wait blocks until every task scheduled via Go has completed and
// returns every non-nil error collected, in completion order (not
// submission order).
func (g *Group) Wait() []error {
	var errs []error
	for i := 0; i < g.pending; i++ {
		if err := <-g.results; err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
