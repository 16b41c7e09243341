package value

import "unicode/utf8"

// Size returns the part count of a Table, the rune count of a Str, or
// zero for every other variant.
func Size(e Expression) int {
	switch v := e.(type) {
	case Table:
		return v.Parts.Len()
	case Str:
		return utf8.RuneCountInString(v.Val)
	default:
		return 0
	}
}

func partsOf(e Expression) []Expression {
	switch v := e.(type) {
	case Table:
		return v.Parts.Slice()
	case None:
		return nil
	default:
		return []Expression{e}
	}
}

func rebuild(keySource Expression, parts []Expression) Expression {
	t := NewTable(parts...)
	if keySource.Key() != "" {
		t = t.Keyed(keySource.Key())
	}
	return t
}

// At returns the part at index i, or an OutOfRangeError if i is outside
// [0, Size(e)). On a Str it returns the i-th rune as a one-character Str.
func At(e Expression, i int) (Expression, error) {
	switch v := e.(type) {
	case Table:
		if i < 0 || i >= v.Parts.Len() {
			return nil, &OutOfRangeError{Op: "at", Index: i, Size: v.Parts.Len()}
		}
		return v.Parts.At(i), nil
	case Str:
		runes := []rune(v.Val)
		if i < 0 || i >= len(runes) {
			return nil, &OutOfRangeError{Op: "at", Index: i, Size: len(runes)}
		}
		return Str{Val: string(runes[i])}, nil
	case None:
		return nil, &OutOfRangeError{Op: "at", Index: i, Size: 0}
	default:
		return nil, &TypeMismatchError{Op: "at", Kind: KindName(e)}
	}
}

// Part returns the raw part at index i, or None if i is out of range or
// e is not indexable.
func Part(e Expression, i int) Expression {
	v, err := At(e, i)
	if err != nil {
		return None{}
	}
	return v
}

// Item returns the i-th unkeyed part of e, skipping keyed parts. On a
// Str it behaves like At (one-character substring). Out-of-range or
// non-sequence yields None.
func Item(e Expression, i int) Expression {
	switch v := e.(type) {
	case Str:
		return Part(e, i)
	case Table:
		count := 0
		for j := 0; j < v.Parts.Len(); j++ {
			p := v.Parts.At(j)
			if p.Key() != "" {
				continue
			}
			if count == i {
				return p
			}
			count++
		}
		return None{}
	default:
		return None{}
	}
}

// Attr returns the last part of e whose key equals k, with its own key
// cleared. Returns None if e is not a Table or no part carries that key.
func Attr(e Expression, k string) Expression {
	v, ok := e.(Table)
	if !ok {
		return None{}
	}
	var found Expression
	for i := 0; i < v.Parts.Len(); i++ {
		p := v.Parts.At(i)
		if p.Key() == k {
			found = p
		}
	}
	if found == nil {
		return None{}
	}
	return found.Keyed("")
}

// Append returns a new Table with items appended to e's parts.
func Append(e Expression, items ...Expression) Expression {
	return rebuild(e, append(partsOf(e), items...))
}

// Prepend returns a new Table with items inserted before e's parts.
func Prepend(e Expression, items ...Expression) Expression {
	parts := make([]Expression, 0, len(items)+Size(e))
	parts = append(parts, items...)
	parts = append(parts, partsOf(e)...)
	return rebuild(e, parts)
}

// Concat returns a new Table with b's parts appended to a's parts.
func Concat(a, b Expression) Expression {
	return rebuild(a, append(partsOf(a), partsOf(b)...))
}

// Insert returns a new Table with items spliced in before index i
// (clamped to [0, Size(e)]).
func Insert(e Expression, i int, items ...Expression) Expression {
	parts := partsOf(e)
	if i < 0 {
		i = 0
	}
	if i > len(parts) {
		i = len(parts)
	}
	out := make([]Expression, 0, len(parts)+len(items))
	out = append(out, parts[:i]...)
	out = append(out, items...)
	out = append(out, parts[i:]...)
	return rebuild(e, out)
}

// Erase returns a new Table with the part at index i removed. Out of
// range is a no-op.
func Erase(e Expression, i int) Expression {
	parts := partsOf(e)
	if i < 0 || i >= len(parts) {
		return e
	}
	out := make([]Expression, 0, len(parts)-1)
	out = append(out, parts[:i]...)
	out = append(out, parts[i+1:]...)
	return rebuild(e, out)
}

// Take returns a new Table with only the first n parts (n clamped).
func Take(e Expression, n int) Expression {
	parts := partsOf(e)
	if n < 0 {
		n = 0
	}
	if n > len(parts) {
		n = len(parts)
	}
	return rebuild(e, parts[:n])
}

// PopBack returns a new Table with the last n parts removed (n clamped).
func PopBack(e Expression, n int) Expression {
	parts := partsOf(e)
	if n < 0 {
		n = 0
	}
	keep := len(parts) - n
	if keep < 0 {
		keep = 0
	}
	return rebuild(e, parts[:keep])
}

// PopFront returns a new Table with the first n parts removed (n clamped).
func PopFront(e Expression, n int) Expression {
	parts := partsOf(e)
	if n < 0 {
		n = 0
	}
	if n > len(parts) {
		n = len(parts)
	}
	return rebuild(e, parts[n:])
}

// Nest wraps e as the sole part of a new, keyless Table: "(self)".
func Nest(e Expression) Expression {
	return NewTable(e)
}

// WithoutPart removes the part at index i; alias of Erase.
func WithoutPart(e Expression, i int) Expression { return Erase(e, i) }

// WithPart replaces the part at index i with part, or appends it if i is
// exactly Size(e).
func WithPart(e Expression, i int, part Expression) Expression {
	parts := partsOf(e)
	if i < 0 {
		return e
	}
	if i == len(parts) {
		return Append(e, part)
	}
	if i > len(parts) {
		return e
	}
	out := append([]Expression(nil), parts...)
	out[i] = part
	return rebuild(e, out)
}

// WithAttr upserts a part keyed k: replaces the last existing part with
// that key, or appends a new keyed part if none exists.
func WithAttr(e Expression, k string, v Expression) Expression {
	parts := partsOf(e)
	keyedV := v.Keyed(k)
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i].Key() == k {
			out := append([]Expression(nil), parts...)
			out[i] = keyedV
			return rebuild(e, out)
		}
	}
	return Append(e, keyedV)
}

// WithoutAttr removes the last part keyed k, if any.
func WithoutAttr(e Expression, k string) Expression {
	parts := partsOf(e)
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i].Key() == k {
			out := make([]Expression, 0, len(parts)-1)
			out = append(out, parts[:i]...)
			out = append(out, parts[i+1:]...)
			return rebuild(e, out)
		}
	}
	return e
}
