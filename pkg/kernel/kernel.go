// Package kernel is the public facade over the evaluation kernel: a
// Context of rules, a Context of products, a worker pool for
// asynchronous resolution, and the glue between them. It plays the role
// the teacher's pkg/losp.Runtime played over its evaluator and store,
// generalized from a single-expression interpreter to the incremental,
// reactive kernel of SPEC_FULL.md.
package kernel

import (
	"fmt"
	"strings"
	"sync"
	"time"

	rctx "crtkernel/internal/context"
	"crtkernel/internal/kernelio"
	"crtkernel/internal/parser"
	"crtkernel/internal/resolve"
	"crtkernel/internal/value"
	"crtkernel/internal/workpool"
)

// Kernel owns a rules Context, a products Context, and a worker pool
// used by ResolveAsync. Rules and products are immutable snapshots
// internally; Kernel's methods swap them under a mutex so a snapshot
// returned to a caller is never mutated out from under it.
type Kernel struct {
	mu       sync.RWMutex
	rules    rctx.Context
	products rctx.Context

	pool         *workpool.Pool
	workers      int
	userListener workpool.Listener
	streamDelay  time.Duration
	trace        resolve.Trace

	initialRulesSrc  *string
	initialRulesFile *string
}

// New builds a Kernel and starts its worker pool. If an initial rules
// source was supplied via WithRulesString/WithRulesFile, it is loaded
// before New returns; a malformed source fails construction.
func New(opts ...Option) (*Kernel, error) {
	k := &Kernel{
		rules:    rctx.New(),
		products: rctx.New(),
		workers:  4,
	}
	for _, opt := range opts {
		opt(k)
	}

	switch {
	case k.initialRulesFile != nil:
		rules, err := kernelio.LoadFile(*k.initialRulesFile)
		if err != nil {
			return nil, err
		}
		k.rules = rules
	case k.initialRulesSrc != nil:
		rules, err := kernelio.LoadString(*k.initialRulesSrc)
		if err != nil {
			return nil, err
		}
		k.rules = rules
	}

	k.pool = workpool.New(k.workers, &mergingListener{k: k})
	return k, nil
}

// Rules returns the current rules snapshot.
func (k *Kernel) Rules() rctx.Context {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.rules
}

// Products returns the current products snapshot.
func (k *Kernel) Products() rctx.Context {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.products
}

// Insert parses src as a single keyed part and inserts it, invalidating
// any downstream products exactly as resolve.InsertInvalidate specifies.
// src must carry a key (`name=value`); a keyless source is rejected.
func (k *Kernel) Insert(src string) error {
	e, err := parser.Parse(src)
	if err != nil {
		return err
	}
	return k.InsertExpression(e)
}

// InsertAll parses src as a sequence of top-level parts (the same
// grammar kernelio.Load reads) and inserts each keyed part in turn.
// Keyless parts are dropped rather than rejected, matching kernelio's
// rules-file load behavior. It fails, leaving earlier insertions in
// place, on the first parse error or cycle.
func (k *Kernel) InsertAll(src string) error {
	parts, err := parser.ParseTopLevelParts(strings.NewReader(src))
	if err != nil {
		return err
	}
	for _, e := range parts {
		if e.Key() == "" {
			continue
		}
		if err := k.InsertExpression(e); err != nil {
			return err
		}
	}
	return nil
}

// InsertExpression is Insert for an already-parsed Expression.
func (k *Kernel) InsertExpression(e value.Expression) error {
	if e.Key() == "" {
		return fmt.Errorf("kernel: insert requires a non-empty key")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	newRules, newProducts, err := resolve.InsertInvalidate(e, k.rules, k.products)
	if err != nil {
		return err
	}
	k.rules, k.products = newRules, newProducts
	return nil
}

// Erase removes name from rules, invalidating any downstream products.
func (k *Kernel) Erase(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	stale := k.rules.Referencing(name)
	k.rules = k.rules.Erase(name)
	k.products = k.products.EraseSet(stale)
}

// ResolveSync runs resolve_full synchronously against the current
// rules, stores the result as the new products snapshot, and returns
// it.
func (k *Kernel) ResolveSync() rctx.Context {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.products = resolve.FullTraced(k.rules, k.products, k.trace)
	return k.products
}

// ResolveOnce runs a single resolve_once pass synchronously, stores the
// result as the new products snapshot, and returns it. Unlike
// ResolveSync it does not iterate to a fixed point: rules several
// levels deep in the dependency chain may remain unresolved after one
// call.
func (k *Kernel) ResolveOnce() rctx.Context {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.products = resolve.Once(k.rules, k.products)
	return k.products
}

// ResolveAsync performs one concurrent scan: every rule whose
// dependencies are satisfied and that is not already in flight is
// submitted to the worker pool. Results are merged back into products
// automatically, by the Kernel's own pool listener, as they complete.
// ResolveAsync itself returns immediately.
//
// The scan only reads rules/products snapshots under lock; it must not
// hold the Kernel's mutex while calling into the pool, since a worker
// reports results back through mergingListener while holding the
// pool's own mutex, and taking the locks in opposite orders on the two
// paths would deadlock.
func (k *Kernel) ResolveAsync() {
	k.mu.RLock()
	rules, products := k.rules, k.products
	k.mu.RUnlock()
	resolve.ConcurrentScan(k.pool, rules, products)
}

// Stream returns a lazy generational stream of products snapshots over
// the current rules, starting from the current products, using the
// Kernel's configured stream delay and trace.
func (k *Kernel) Stream() *resolve.Stream {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return resolve.NewStream(k.rules, k.products, k.streamDelay).WithTrace(k.trace)
}

// PoolStats returns a snapshot of the worker pool's current load and
// lifetime counters.
func (k *Kernel) PoolStats() workpool.Stats {
	return k.pool.Stats()
}

// SaveRules writes the current rules to path in the plain-text rules
// file format.
func (k *Kernel) SaveRules(path string) error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return kernelio.SaveFile(path, k.rules)
}

// Close shuts down the worker pool, draining in-flight tasks.
func (k *Kernel) Close() error {
	k.pool.Shutdown()
	return nil
}

// mergingListener wraps the Kernel's own result-merging behavior around
// whatever Listener the caller supplied via WithListener, so products
// stays current without the caller having to do the merge itself.
type mergingListener struct {
	k *Kernel
}

func (m *mergingListener) TaskStarting(worker int, name string) {
	if m.k.userListener != nil {
		m.k.userListener.TaskStarting(worker, name)
	}
}

func (m *mergingListener) TaskCanceled(worker int, name string) {
	if m.k.userListener != nil {
		m.k.userListener.TaskCanceled(worker, name)
	}
}

func (m *mergingListener) TaskFinished(worker int, name string, result value.Expression) {
	m.k.mu.Lock()
	m.k.products = resolve.MergeAsyncResult(m.k.rules, m.k.products, name, result)
	m.k.mu.Unlock()
	if m.k.userListener != nil {
		m.k.userListener.TaskFinished(worker, name, result)
	}
}
