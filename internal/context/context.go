// Package context implements the persistent, dependency-indexed rule
// store described in SPEC_FULL.md §6: a tuple of three persistent maps
// (items, incoming, outgoing) with a conservative cycle check on insert.
// A Context is an immutable value; every mutator returns a new Context
// sharing structure with the original, the same way the teacher's
// Namespace guarded a mutable map with a lock but generalized here to
// structural sharing so a Context may be held by arbitrary goroutines
// (UI threads, async tasks) for arbitrary durations without locking.
package context

import (
	"fmt"

	"crtkernel/internal/pmap"
	"crtkernel/internal/value"
)

// CycleError reports that inserting an expression under key would close
// a dependency cycle in the rules graph; the insert makes no change.
type CycleError struct {
	Key string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("context: inserting %q would create a cycle", e.Key)
}

// Context is an immutable tuple of three persistent maps keyed by name:
// the rules themselves, each rule's free symbols, and each rule's
// dependents. The zero value is a valid empty Context.
type Context struct {
	items    pmap.Map // name -> value.Expression
	incoming pmap.Map // name -> pmap.StringSet
	outgoing pmap.Map // name -> pmap.StringSet
}

// New returns an empty Context.
func New() Context {
	return Context{items: pmap.NewMap(), incoming: pmap.NewMap(), outgoing: pmap.NewMap()}
}

// Len returns the number of items.
func (c Context) Len() int { return c.items.Len() }

// Get returns the expression bound to name and whether it is present.
func (c Context) Get(name string) (value.Expression, bool) {
	v, ok := c.items.Get(name)
	if !ok {
		return nil, false
	}
	return v.(value.Expression), true
}

// Lookup implements value.Scope, so a Context can be used directly as
// the resolution scope for value.Resolve.
func (c Context) Lookup(name string) (value.Expression, bool) {
	return c.Get(name)
}

// Has reports whether name is present.
func (c Context) Has(name string) bool { return c.items.Has(name) }

// Keys returns every item name in this Context's stable iteration order.
func (c Context) Keys() []string { return c.items.Keys() }

// NthKey exposes the Context's stable iteration order to callers such
// as a UI that wants a deterministic row ordering. O(i).
func (c Context) NthKey(i int) (string, bool) {
	if i < 0 {
		return "", false
	}
	idx := 0
	var found string
	ok := false
	c.items.Range(func(k string, _ any) bool {
		if idx == i {
			found, ok = k, true
			return false
		}
		idx++
		return true
	})
	return found, ok
}

func stringSetAt(m pmap.Map, name string) pmap.StringSet {
	v, ok := m.Get(name)
	if !ok {
		return pmap.NewStringSet()
	}
	return v.(pmap.StringSet)
}

func outgoingOf(c Context, name string) pmap.StringSet { return stringSetAt(c.outgoing, name) }
func incomingOf(c Context, name string) pmap.StringSet { return stringSetAt(c.incoming, name) }

// GetOutgoing returns the set of rule names whose expression references
// name. If name is present in items the answer is cached and the lookup
// is O(1) amortized; otherwise every item is scanned, O(N), since
// outgoing edges pointing at an absent name are not cached.
func (c Context) GetOutgoing(name string) pmap.StringSet {
	if c.items.Has(name) {
		return outgoingOf(c, name)
	}
	result := pmap.NewStringSet()
	c.items.Range(func(k string, _ any) bool {
		if incomingOf(c, k).Has(name) {
			result = result.Add(k)
		}
		return true
	})
	return result
}

// Referencing returns the closure of GetOutgoing(name) plus name itself:
// every rule name that transitively depends on name, inclusive.
func (c Context) Referencing(name string) pmap.StringSet {
	result := pmap.NewStringSet(name)
	frontier := []string{name}
	for len(frontier) > 0 {
		next := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		c.GetOutgoing(next).Range(func(dep string) bool {
			if !result.Has(dep) {
				result = result.Add(dep)
				frontier = append(frontier, dep)
			}
			return true
		})
	}
	return result
}

// Insert binds e under its own key, maintaining the incoming/outgoing
// indexes. It fails with a *CycleError, making no change, if any symbol
// of e already transitively depends on e.Key().
func (c Context) Insert(e value.Expression) (Context, error) {
	key := e.Key()
	if key == "" {
		return c, fmt.Errorf("context: insert requires a non-empty key")
	}
	referencing := c.Referencing(key)
	newIncoming := value.Symbols(e)
	cyclic := false
	newIncoming.Range(func(s string) bool {
		if referencing.Has(s) {
			cyclic = true
			return false
		}
		return true
	})
	if cyclic {
		return c, &CycleError{Key: key}
	}

	oldIncoming := incomingOf(c, key)
	outgoing := c.outgoing
	oldIncoming.Range(func(s string) bool {
		outgoing = outgoing.Set(s, stringSetAt(outgoing, s).Remove(key))
		return true
	})
	newIncoming.Range(func(s string) bool {
		outgoing = outgoing.Set(s, stringSetAt(outgoing, s).Add(key))
		return true
	})

	return Context{
		items:    c.items.Set(key, e),
		incoming: c.incoming.Set(key, newIncoming),
		outgoing: outgoing,
	}, nil
}

// Erase removes name from items and incoming, and removes name from the
// outgoing set of every symbol it used to reference. Erasing a missing
// name is a no-op.
func (c Context) Erase(name string) Context {
	if !c.items.Has(name) {
		return c
	}
	oldIncoming := incomingOf(c, name)
	outgoing := c.outgoing
	oldIncoming.Range(func(s string) bool {
		outgoing = outgoing.Set(s, stringSetAt(outgoing, s).Remove(name))
		return true
	})
	return Context{
		items:    c.items.Delete(name),
		incoming: c.incoming.Delete(name),
		outgoing: outgoing,
	}
}

// EraseSet applies Erase for every member of names, in an unspecified
// but deterministic order, folding the single-key form.
func (c Context) EraseSet(names pmap.StringSet) Context {
	result := c
	names.Range(func(name string) bool {
		result = result.Erase(name)
		return true
	})
	return result
}
