package workpool

import (
	"sync/atomic"

	"github.com/google/uuid"

	"crtkernel/internal/value"
)

// RunFunc is the closure a task executes. It receives a function that
// reports whether the task has been canceled, checked cooperatively:
// setting the flag does not interrupt execution, it only marks the
// eventual result for discard.
type RunFunc func(canceled func() bool) value.Expression

// task is an enqueued unit of work. Name is stable and is the identity
// used for at-most-one-in-flight-per-key cancellation; RunID is a fresh
// identifier per submission, used by diagnostics to tell successive
// submissions of the same name apart.
type task struct {
	Name    string
	RunID   uuid.UUID
	run     RunFunc
	cancel  atomic.Bool
	started bool
}

func newTask(name string, run RunFunc) *task {
	return &task{Name: name, RunID: uuid.New(), run: run}
}

func (t *task) requestCancel() { t.cancel.Store(true) }

func (t *task) isCanceled() bool { return t.cancel.Load() }

// runSafely executes the task body, recovering a panic as a failed run
// rather than crashing the worker. A task that panics after it was
// already canceled is still reported as canceled, not failed.
func (t *task) runSafely() (result value.Expression, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			result = value.NewNone()
			failed = true
		}
	}()
	return t.run(t.isCanceled), false
}
