package value

import "crtkernel/internal/pmap"

// Symbols recursively collects every free Sym name occurring in e. Func
// bodies are opaque and are not descended into.
func Symbols(e Expression) pmap.StringSet {
	set := pmap.NewStringSet()
	collectSymbols(e, &set)
	return set
}

func collectSymbols(e Expression, set *pmap.StringSet) {
	switch v := e.(type) {
	case Sym:
		*set = set.Add(v.Name)
	case Table:
		for i := 0; i < v.Parts.Len(); i++ {
			collectSymbols(v.Parts.At(i), set)
		}
	case Data:
		collectSymbols(v.Handle.ToTable(), set)
	}
}

// Relabel renames every occurrence of symbol `from` to `to`, recursively.
func Relabel(e Expression, from, to string) Expression {
	return Replace(e, from, NewSym(to).Keyed(""))
}

// Replace substitutes every free occurrence of Sym(symbol) with repl,
// recursively, preserving the key of the replaced occurrence.
func Replace(e Expression, symbol string, repl Expression) Expression {
	switch v := e.(type) {
	case Sym:
		if v.Name == symbol {
			return repl.Keyed(v.key)
		}
		return e
	case Table:
		parts := v.Parts.Slice()
		out := make([]Expression, len(parts))
		for i, p := range parts {
			out[i] = Replace(p, symbol, repl)
		}
		return rebuild(e, out)
	default:
		return e
	}
}

// Substitute replaces every subexpression structurally equal to match
// with repl, recursively, bottom-up.
func Substitute(e Expression, match, repl Expression) Expression {
	switch v := e.(type) {
	case Table:
		parts := v.Parts.Slice()
		out := make([]Expression, len(parts))
		for i, p := range parts {
			out[i] = Substitute(p, match, repl)
		}
		cur := rebuild(e, out)
		if Equal(cur, match) && !isFunc(cur) {
			return repl.Keyed(cur.Key())
		}
		return cur
	default:
		if Equal(e, match) && !isFunc(e) {
			return repl.Keyed(e.Key())
		}
		return e
	}
}

// SubstituteIn substitutes every symbol in e that has a binding in
// lookup (a Scope) with its bound value, recursively. Unbound symbols
// are left untouched.
func SubstituteIn(e Expression, lookup Scope) Expression {
	switch v := e.(type) {
	case Sym:
		if bound, ok := lookup.Lookup(v.Name); ok {
			return bound.Keyed(v.key)
		}
		return e
	case Table:
		parts := v.Parts.Slice()
		out := make([]Expression, len(parts))
		for i, p := range parts {
			out[i] = SubstituteIn(p, lookup)
		}
		return rebuild(e, out)
	default:
		return e
	}
}
