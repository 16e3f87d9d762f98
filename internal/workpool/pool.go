// Package workpool provides the single process-wide fixed-size worker pool
// that the status engine schedules its shard scans on.
package workpool

import (
	"context"

	"github.com/alitto/pond/v2"
)

// Pool runs nullary tasks on a fixed number of goroutines. It has no
// cancellation primitive of its own; callers that need cooperative
// cancellation build it into the task body (see internal/engine).
type Pool struct {
	p       pond.Pool
	workers int
}

// New creates a pool with the given number of workers. It is meant to be
// constructed once per process before any repository is queried.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		p:       pond.NewPool(workers, pond.WithContext(context.Background())),
		workers: workers,
	}
}

// Workers reports the configured pool size.
func (p *Pool) Workers() int { return p.workers }

// Submit schedules task to run on an idle worker. Submit never blocks the
// caller waiting for the task to run; task bodies are expected to report
// their own failures through whatever mechanism the caller wired up (the
// engine uses a latched error flag, not panics or return values).
func (p *Pool) Submit(task func()) {
	p.p.Submit(task)
}

// StopAndWait drains the pool, waiting for in-flight tasks to finish. Used
// only at process shutdown; the engine itself never stops the shared pool.
func (p *Pool) StopAndWait() {
	p.p.StopAndWait()
}
