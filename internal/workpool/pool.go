// Package workpool implements the bounded thread pool described in
// SPEC_FULL.md §6: a fixed number of workers sharing pending/running
// FIFO lists under a mutex and condition variable, with named tasks and
// per-task cancellation flags shared by pointer between submitter and
// runner. Re-enqueueing a name implicitly cancels whatever instance of
// that name was previously pending or running, which is the mechanism
// guaranteeing at most one in-flight evaluation per key.
package workpool

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// discardHandler is a slog.Handler equivalent to the standard library's
// slog.DiscardHandler (added in Go 1.24); this toolchain predates it.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Pool is a fixed-size worker pool. The zero value is not usable; build
// one with New.
type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  []*task
	running  []*task
	listener Listener
	logger   *slog.Logger
	closed   bool
	wg       sync.WaitGroup

	completed int
	canceled  int
	failed    int
}

// New starts a pool of n workers reporting lifecycle events to
// listener. A nil listener is replaced with NopListener. Lifecycle
// transitions are also logged at slog.Default(), the same light touch
// the rest of this module applies; use SetLogger to redirect them.
func New(n int, listener Listener) *Pool {
	if n < 1 {
		n = 1
	}
	if listener == nil {
		listener = NopListener{}
	}
	p := &Pool{
		listener: listener,
		logger:   slog.Default(),
	}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	return p
}

// Enqueue submits run under name. If name is already pending or
// running, that prior instance is canceled first: if it was still
// pending it is dropped before ever starting; if it was already
// running its cancellation flag is set, so the eventual result is
// reported as canceled rather than finished. Enqueue returns the new
// submission's RunID.
func (p *Pool) Enqueue(name string, run RunFunc) uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelLocked(name)

	t := newTask(name, run)
	p.pending = append(p.pending, t)
	p.cond.Signal()
	return t.RunID
}

// Cancel cancels whatever instance of name is pending or running. It
// returns false if name was not found in either list.
func (p *Pool) Cancel(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelLocked(name)
}

// SetLogger replaces the pool's slog.Logger, used for task lifecycle
// lines. Passing nil discards logging entirely.
func (p *Pool) SetLogger(logger *slog.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if logger == nil {
		logger = slog.New(discardHandler{})
	}
	p.logger = logger
}

// InFlight reports whether name is currently pending or running.
func (p *Pool) InFlight(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.running {
		if t.Name == name {
			return true
		}
	}
	for _, t := range p.pending {
		if t.Name == name {
			return true
		}
	}
	return false
}

// cancelLocked cancels every pending or running instance of name. Under
// re-enqueue it is possible for more than one running instance to share
// a name for the window between a new instance starting and the old
// instance it superseded actually finishing, so every match is canceled
// rather than just the first.
func (p *Pool) cancelLocked(name string) bool {
	found := false
	for i := 0; i < len(p.pending); i++ {
		if p.pending[i].Name == name {
			p.pending = append(p.pending[:i:i], p.pending[i+1:]...)
			i--
			found = true
		}
	}
	for _, t := range p.running {
		if t.Name == name {
			t.requestCancel()
			found = true
		}
	}
	return found
}

// Stats reports the pool's current load (Pending, Running, live gauges)
// alongside cumulative lifetime counters (Completed, Canceled, Failed),
// all read under the same mutex that guards the pending/running lists.
type Stats struct {
	Pending   int
	Running   int
	Completed int
	Canceled  int
	Failed    int
}

// Stats returns a snapshot of the pool's current load and lifetime
// counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Pending:   len(p.pending),
		Running:   len(p.running),
		Completed: p.completed,
		Canceled:  p.canceled,
		Failed:    p.failed,
	}
}

// Shutdown stops accepting new work conceptually by waking every
// blocked worker and waiting for in-flight tasks to drain. It does not
// cancel running tasks; callers that want that should Cancel them
// individually first.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) workerLoop(worker int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.pending) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.pending) == 0 {
			p.mu.Unlock()
			return
		}
		t := p.pending[0]
		p.pending = p.pending[1:]
		p.running = append(p.running, t)
		p.listener.TaskStarting(worker, t.Name)
		p.logger.Debug("task starting", "worker", worker, "name", t.Name, "run_id", t.RunID)
		p.mu.Unlock()

		result, failed := t.runSafely()

		p.mu.Lock()
		for i, rt := range p.running {
			if rt == t {
				p.running = append(p.running[:i:i], p.running[i+1:]...)
				break
			}
		}
		switch {
		case t.isCanceled():
			p.canceled++
			p.logger.Debug("task canceled", "worker", worker, "name", t.Name, "run_id", t.RunID)
			p.listener.TaskCanceled(worker, t.Name)
		case failed:
			p.failed++
			p.logger.Warn("task failed", "worker", worker, "name", t.Name, "run_id", t.RunID)
			p.listener.TaskFinished(worker, t.Name, result)
		default:
			p.completed++
			p.logger.Debug("task finished", "worker", worker, "name", t.Name, "run_id", t.RunID)
			p.listener.TaskFinished(worker, t.Name, result)
		}
		p.mu.Unlock()
	}
}
