// Package resolve implements the pure resolution algorithms of
// SPEC_FULL.md §6: resolve_one/resolve_once/resolve_full over a rules
// and products context.Context pair, incremental invalidation on edits,
// a lazy generational stream for progressive UI updates, and a
// worker-pool-backed concurrent variant.
package resolve

import (
	"time"

	rctx "crtkernel/internal/context"
	"crtkernel/internal/value"
	"crtkernel/internal/workpool"
)

// Trace is an optional, purely observational callback accepted by
// FullTraced and Stream.WithTrace (Once and Full run without one): it is
// invoked once per key newly resolved in a pass, naming
// the pass number, the key, and the rule expression it was resolved
// from. It never affects resolution semantics.
type Trace func(pass int, key string, from value.Expression)

// One implements resolve_one: if e's key is already a product, products
// is returned unchanged. If e has no free symbols it is inserted
// verbatim; if every free symbol is already a product, e is resolved
// against products with the default call adapter and the result is
// inserted; otherwise products is returned unchanged.
func One(e value.Expression, products rctx.Context) rctx.Context {
	key := e.Key()
	if products.Has(key) {
		return products
	}
	symbols := value.Symbols(e)
	if symbols.Len() == 0 {
		next, err := products.Insert(e)
		if err != nil {
			return products
		}
		return next
	}
	ready := true
	symbols.Range(func(s string) bool {
		if !products.Has(s) {
			ready = false
			return false
		}
		return true
	})
	if !ready {
		return products
	}
	resolved := value.Resolve(e, products, value.DefaultCallAdapter)
	next, err := products.Insert(resolved)
	if err != nil {
		return products
	}
	return next
}

// Once implements resolve_once: fold One over every rule, in the rules
// context's stable iteration order, starting from products.
func Once(rules, products rctx.Context) rctx.Context {
	return onceTraced(rules, products, 0, nil)
}

func onceTraced(rules, products rctx.Context, pass int, trace Trace) rctx.Context {
	result := products
	for _, key := range rules.Keys() {
		e, _ := rules.Get(key)
		before := result.Has(key)
		result = One(e, result)
		if !before && result.Has(key) && trace != nil {
			trace(pass, key, e)
		}
	}
	return result
}

// Full implements resolve_full: iterate Once until a fixed point, using
// size equality as the termination test, which is sufficient because
// resolved keys are never removed within a single call.
func Full(rules, products rctx.Context) rctx.Context {
	return FullTraced(rules, products, nil)
}

// FullTraced is Full with an optional per-pass Trace callback.
func FullTraced(rules, products rctx.Context, trace Trace) rctx.Context {
	current := products
	pass := 0
	for {
		next := onceTraced(rules, current, pass, trace)
		if next.Len() == current.Len() {
			return next
		}
		current = next
		pass++
	}
}

// InsertInvalidate implements insert_invalidate: insert e into rules,
// then drop e's key and everything downstream of it from products,
// forcing their recomputation on the next resolution pass.
func InsertInvalidate(e value.Expression, rules, products rctx.Context) (rctx.Context, rctx.Context, error) {
	newRules, err := rules.Insert(e)
	if err != nil {
		return rules, products, err
	}
	stale := rules.Referencing(e.Key())
	newProducts := products.EraseSet(stale)
	return newRules, newProducts, nil
}

// Stream is a cold, cancellable, lazy generational sequence of products
// snapshots: on subscription it starts from a seed and repeatedly
// advances by one resolve_once pass, emitting each monotonically larger
// snapshot until a pass makes no progress.
type Stream struct {
	rules rctx.Context
	seed  rctx.Context
	delay time.Duration
	trace Trace
}

// NewStream builds a Stream over rules, starting from seed, sleeping
// delay between passes (zero for no delay).
func NewStream(rules, seed rctx.Context, delay time.Duration) *Stream {
	return &Stream{rules: rules, seed: seed, delay: delay}
}

// WithTrace attaches a Trace callback to the stream's passes, returning
// the same Stream for chaining.
func (s *Stream) WithTrace(trace Trace) *Stream {
	s.trace = trace
	return s
}

// Done reports subscriber cancellation. Implemented by context.Context
// (the standard library one) or any equivalent capability; kept narrow
// so Subscribe takes no hard dependency on a particular cancellation
// type beyond this one method.
type Done interface {
	Done() <-chan struct{}
}

// Subscribe drives the stream, calling emit with each successively
// larger products snapshot. Before every pass it checks done; if done
// has already fired, Subscribe returns immediately without emitting or
// completing by calling emit. The pass number starts at zero.
func (s *Stream) Subscribe(done Done, emit func(rctx.Context)) {
	current := s.seed
	pass := 0
	for {
		select {
		case <-done.Done():
			return
		default:
		}
		if s.delay > 0 {
			select {
			case <-done.Done():
				return
			case <-time.After(s.delay):
			}
		}
		next := onceTraced(s.rules, current, pass, s.trace)
		if next.Len() <= current.Len() {
			return
		}
		current = next
		pass++
		emit(current)
	}
}

// noopDone never fires; useful for driving a Stream to completion
// synchronously with no cancellation path, e.g. in tests.
type noopDone struct{}

func (noopDone) Done() <-chan struct{} { return nil }

// NoopDone returns a Done that never cancels.
func NoopDone() Done { return noopDone{} }

// ConcurrentScan performs the same single-pass scan as Once, but instead
// of resolving ready rules inline it enqueues each one as a named task
// on pool, skipping any rule already in flight. The unchanged products
// is returned immediately; results arrive later through the pool's
// Listener and must be merged back with MergeAsyncResult.
func ConcurrentScan(pool *workpool.Pool, rules, products rctx.Context) rctx.Context {
	for _, key := range rules.Keys() {
		if products.Has(key) {
			continue
		}
		e, _ := rules.Get(key)
		symbols := value.Symbols(e)
		ready := true
		symbols.Range(func(s string) bool {
			if !products.Has(s) {
				ready = false
				return false
			}
			return true
		})
		if !ready || pool.InFlight(key) {
			continue
		}
		rule := e
		scope := products
		pool.Enqueue(key, func(canceled func() bool) value.Expression {
			return value.Resolve(rule, scope, value.DefaultCallAdapter)
		})
	}
	return products
}

// MergeAsyncResult merges an asynchronously computed result for key
// into products, following the same erase-downstream-then-insert shape
// as InsertInvalidate: everything that transitively depended on key is
// dropped so it is recomputed against the fresh value, then the fresh
// value itself is inserted.
func MergeAsyncResult(rules, products rctx.Context, key string, result value.Expression) rctx.Context {
	stale := rules.Referencing(key)
	cleared := products.EraseSet(stale)
	next, err := cleared.Insert(result.Keyed(key))
	if err != nil {
		return cleared
	}
	return next
}
