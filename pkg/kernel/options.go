package kernel

import (
	"time"

	"crtkernel/internal/resolve"
	"crtkernel/internal/workpool"
)

// Option configures a Kernel at construction.
type Option func(*Kernel)

// WithWorkers sets the size of the worker pool backing ResolveAsync.
// The default is 4. Values below 1 are clamped to 1 by the pool.
func WithWorkers(n int) Option {
	return func(k *Kernel) { k.workers = n }
}

// WithListener registers a capability to observe worker pool task
// lifecycle transitions, in addition to the Kernel's own bookkeeping
// listener that merges async results back into products.
func WithListener(l workpool.Listener) Option {
	return func(k *Kernel) { k.userListener = l }
}

// WithStreamDelay sets the delay between passes used by Stream.
func WithStreamDelay(d time.Duration) Option {
	return func(k *Kernel) { k.streamDelay = d }
}

// WithTrace attaches a resolve.Trace callback to every resolution pass
// run by ResolveSync and Stream.
func WithTrace(t resolve.Trace) Option {
	return func(k *Kernel) { k.trace = t }
}

// WithRulesString loads initial rules from a source string at
// construction. A malformed source is recorded and surfaced through
// New's error return.
func WithRulesString(src string) Option {
	return func(k *Kernel) { k.initialRulesSrc = &src }
}

// WithRulesFile loads initial rules from a file at construction.
func WithRulesFile(path string) Option {
	return func(k *Kernel) { k.initialRulesFile = &path }
}
