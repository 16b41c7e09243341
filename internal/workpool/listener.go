package workpool

import "crtkernel/internal/value"

// Listener observes task lifecycle transitions. worker identifies which
// of the pool's workers the event came from, so a front end can show a
// per-worker busy view. Methods are called with the pool's mutex held,
// so implementations must not call back into the pool (Enqueue, Cancel,
// Stats) from within a callback, and should keep the work they do short.
type Listener interface {
	TaskStarting(worker int, name string)
	TaskCanceled(worker int, name string)
	TaskFinished(worker int, name string, result value.Expression)
}

// NopListener implements Listener with no-ops, for pools that have no
// interest in task lifecycle events.
type NopListener struct{}

func (NopListener) TaskStarting(worker int, name string)                          {}
func (NopListener) TaskCanceled(worker int, name string)                          {}
func (NopListener) TaskFinished(worker int, name string, result value.Expression) {}
