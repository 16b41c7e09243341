// Package value implements the Expression data model: a closed tagged
// union of atoms, symbols, tables, functions and opaque data, each
// carrying an optional key. Expressions are immutable; every operation
// that looks like a mutation returns a new Expression.
package value

import (
	"strconv"
	"strings"

	"crtkernel/internal/pmap"
)

// Expression is the sealed interface every value kind implements. The
// unexported sealed method keeps the union closed to this package, so a
// switch over kinds here can be exhaustive.
type Expression interface {
	Key() string
	Keyed(key string) Expression
	IsEmpty() bool
	sealed()
}

// None is the absent value; equivalent to an empty Table.
type None struct{ key string }

// I32 is a 32-bit integer atom.
type I32 struct {
	key string
	Val int32
}

// F64 is a floating point atom.
type F64 struct {
	key string
	Val float64
}

// Str is a string atom.
type Str struct {
	key string
	Val string
}

// Sym is a symbol: a name to resolve against a Scope.
type Sym struct {
	key  string
	Name string
}

// Table is an ordered sequence of parts, each itself an Expression that
// may carry its own key.
type Table struct {
	key   string
	Parts pmap.Vector[Expression]
}

// Func is an opaque callable. Func values never compare equal to
// anything, not even themselves.
type Func struct {
	key  string
	Call func(args Expression) Expression
}

// DataHandle is the capability an opaque Data value exposes: a type name
// and a projection of itself into table form.
type DataHandle interface {
	TypeName() string
	ToTable() Expression
}

// Data wraps a user-defined value that shares structure by handle.
type Data struct {
	key    string
	Handle DataHandle
}

func (None) sealed()  {}
func (I32) sealed()   {}
func (F64) sealed()   {}
func (Str) sealed()   {}
func (Sym) sealed()   {}
func (Table) sealed() {}
func (Func) sealed()  {}
func (Data) sealed()  {}

func (e None) Key() string  { return e.key }
func (e I32) Key() string   { return e.key }
func (e F64) Key() string   { return e.key }
func (e Str) Key() string   { return e.key }
func (e Sym) Key() string   { return e.key }
func (e Table) Key() string { return e.key }
func (e Func) Key() string  { return e.key }
func (e Data) Key() string  { return e.key }

func (e None) Keyed(k string) Expression  { e.key = k; return e }
func (e I32) Keyed(k string) Expression   { e.key = k; return e }
func (e F64) Keyed(k string) Expression   { e.key = k; return e }
func (e Str) Keyed(k string) Expression   { e.key = k; return e }
func (e Sym) Keyed(k string) Expression   { e.key = k; return e }
func (e Table) Keyed(k string) Expression { e.key = k; return e }
func (e Func) Keyed(k string) Expression  { e.key = k; return e }
func (e Data) Keyed(k string) Expression  { e.key = k; return e }

func (None) IsEmpty() bool  { return true }
func (I32) IsEmpty() bool   { return false }
func (F64) IsEmpty() bool   { return false }
func (Str) IsEmpty() bool   { return false }
func (Sym) IsEmpty() bool   { return false }
func (e Table) IsEmpty() bool { return e.Parts.Len() == 0 }
func (Func) IsEmpty() bool  { return false }
func (Data) IsEmpty() bool  { return false }

// NewNone returns the absent value.
func NewNone() Expression { return None{} }

// NewI32 constructs an int32 atom.
func NewI32(v int32) Expression { return I32{Val: v} }

// NewF64 constructs a float64 atom.
func NewF64(v float64) Expression { return F64{Val: v} }

// NewStr constructs a string atom.
func NewStr(v string) Expression { return Str{Val: v} }

// NewSym constructs a symbol. Panics if name is empty: the parser is
// responsible for enforcing lexical form before a Sym is ever built.
func NewSym(name string) Expression {
	if name == "" {
		panic("value: NewSym requires a non-empty name")
	}
	return Sym{Name: name}
}

// NewFunc wraps a callable as an opaque Func value.
func NewFunc(call func(Expression) Expression) Expression {
	return Func{Call: call}
}

// NewData wraps a DataHandle as an opaque Data value.
func NewData(h DataHandle) Expression {
	return Data{Handle: h}
}

// NewTable builds a Table from parts. An empty parts list collapses to
// None, matching the invariant that None and Table([]) are equal.
func NewTable(parts ...Expression) Expression {
	if len(parts) == 0 {
		return None{}
	}
	return Table{Parts: pmap.NewVector(parts...)}
}

// NewTableFromVector builds a Table directly from an existing persistent
// vector, used internally to avoid a redundant copy.
func NewTableFromVector(v pmap.Vector[Expression]) Expression {
	if v.Len() == 0 {
		return None{}
	}
	return Table{Parts: v}
}

// IsEmpty reports whether e is None or an empty Table; both are
// considered the empty value.
func IsEmpty(e Expression) bool { return e.IsEmpty() }

// Equal reports structural equality, excluding Func which is never equal
// to anything (including itself). The keys of a and b themselves are not
// compared: key is metadata orthogonal to value identity. Within a
// Table, each part's key is compared along with its value.
func Equal(a, b Expression) bool {
	switch av := a.(type) {
	case None:
		return IsEmpty(b) && !isFunc(b)
	case I32:
		switch bv := b.(type) {
		case I32:
			return av.Val == bv.Val
		}
		return false
	case F64:
		if bv, ok := b.(F64); ok {
			return av.Val == bv.Val
		}
		return false
	case Str:
		if bv, ok := b.(Str); ok {
			return av.Val == bv.Val
		}
		return false
	case Sym:
		if bv, ok := b.(Sym); ok {
			return av.Name == bv.Name
		}
		return false
	case Table:
		if IsEmpty(a) {
			return IsEmpty(b) && !isFunc(b)
		}
		bv, ok := b.(Table)
		if !ok {
			return false
		}
		if av.Parts.Len() != bv.Parts.Len() {
			return false
		}
		for i := 0; i < av.Parts.Len(); i++ {
			pa, pb := av.Parts.At(i), bv.Parts.At(i)
			if isFunc(pa) || isFunc(pb) {
				return false
			}
			if pa.Key() != pb.Key() || !Equal(pa, pb) {
				return false
			}
		}
		return true
	case Func:
		return false
	case Data:
		if bv, ok := b.(Data); ok {
			return Equal(av.Handle.ToTable(), bv.Handle.ToTable())
		}
		return false
	}
	return false
}

func isFunc(e Expression) bool {
	_, ok := e.(Func)
	return ok
}

// Unparse returns the canonical, round-trippable serialization of e for
// every variant except Func.
func Unparse(e Expression) string {
	var sb strings.Builder
	writeUnparse(&sb, e, true)
	return sb.String()
}

// UnparseUnkeyed is Unparse but omits e's own key prefix, even if e
// carries one; keys of any nested parts are still printed normally.
// Used by rules-file persistence, which writes the key itself as the
// left-hand side of `key=...` and must not duplicate it.
func UnparseUnkeyed(e Expression) string {
	var sb strings.Builder
	writeUnparse(&sb, e, false)
	return sb.String()
}

func writeUnparse(sb *strings.Builder, e Expression, withKey bool) {
	if withKey && e.Key() != "" {
		sb.WriteString(e.Key())
		sb.WriteByte('=')
	}
	switch v := e.(type) {
	case None:
		sb.WriteString("()")
	case I32:
		sb.WriteString(strconv.FormatInt(int64(v.Val), 10))
	case F64:
		sb.WriteString(formatFloat(v.Val))
	case Str:
		sb.WriteByte('\'')
		sb.WriteString(v.Val)
		sb.WriteByte('\'')
	case Sym:
		sb.WriteString(v.Name)
	case Table:
		if v.Parts.Len() == 0 {
			sb.WriteString("()")
			return
		}
		sb.WriteByte('(')
		for i := 0; i < v.Parts.Len(); i++ {
			if i > 0 {
				sb.WriteByte(' ')
			}
			writeUnparse(sb, v.Parts.At(i), true)
		}
		sb.WriteByte(')')
	case Func:
		sb.WriteString("<func>")
	case Data:
		writeUnparse(sb, v.Handle.ToTable(), false)
	}
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
