package value

import "testing"

func TestKeyedAndKey(t *testing.T) {
	e := NewStr("hi").Keyed("k")
	if e.Key() != "k" {
		t.Fatalf("Key() = %q, want %q", e.Key(), "k")
	}
	e2 := e.Keyed("")
	if e2.Key() != "" {
		t.Fatalf("Keyed(\"\") did not clear key")
	}
}

func TestNoneEqualsEmptyTable(t *testing.T) {
	if !Equal(NewNone(), NewTable()) {
		t.Errorf("None should equal Table([])")
	}
	if !IsEmpty(NewTable()) {
		t.Errorf("Table([]) should report IsEmpty")
	}
}

func TestFuncNeverEqual(t *testing.T) {
	f := NewFunc(func(e Expression) Expression { return e })
	if Equal(f, f) {
		t.Errorf("Func must never equal itself")
	}
	table := NewTable(f)
	if Equal(table, table) {
		t.Errorf("a table containing a Func must never equal itself")
	}
}

func TestSymbolsCollection(t *testing.T) {
	e := NewTable(NewSym("a"), NewTable(NewSym("b"), NewI32(1)), NewSym("a"))
	syms := Symbols(e)
	if syms.Len() != 2 {
		t.Fatalf("expected 2 distinct symbols, got %d: %v", syms.Len(), syms.Slice())
	}
	if !syms.Has("a") || !syms.Has("b") {
		t.Errorf("missing expected symbols: %v", syms.Slice())
	}
}

func TestAttrAndWithAttr(t *testing.T) {
	e := NewTable(NewI32(1).Keyed("x"), NewI32(2).Keyed("y"))
	if Int(Attr(e, "x")) != 1 {
		t.Errorf("Attr(x) wrong")
	}
	if !IsEmpty(Attr(e, "z")) {
		t.Errorf("Attr(missing) should be None")
	}
	e2 := WithAttr(e, "x", NewI32(9))
	if Int(Attr(e2, "x")) != 9 {
		t.Errorf("WithAttr did not upsert")
	}
	e3 := WithoutAttr(e, "x")
	if !IsEmpty(Attr(e3, "x")) {
		t.Errorf("WithoutAttr did not remove")
	}
}

func TestItemSkipsKeyedParts(t *testing.T) {
	e := NewTable(NewI32(1).Keyed("k"), NewI32(2), NewI32(3))
	if Int(Item(e, 0)) != 2 {
		t.Errorf("Item(0) should skip keyed parts, got %v", Item(e, 0))
	}
	if Int(Item(e, 1)) != 3 {
		t.Errorf("Item(1) = %v, want 3", Item(e, 1))
	}
}

func TestAtOutOfRange(t *testing.T) {
	e := NewTable(NewI32(1))
	if _, err := At(e, 5); err == nil {
		t.Fatalf("expected OutOfRangeError")
	}
}

func TestUnparseIsNonEmpty(t *testing.T) {
	cases := []Expression{
		NewNone(),
		NewI32(42),
		NewF64(-0.5),
		NewStr("hello"),
		NewSym("foo"),
		NewTable(NewI32(1), NewStr("a").Keyed("k")),
	}
	for _, e := range cases {
		s := Unparse(e)
		if s == "" {
			t.Errorf("empty unparse for %#v", e)
		}
	}
}

func TestCoercions(t *testing.T) {
	if Bool(NewI32(0)) {
		t.Errorf("I32(0) should be falsy")
	}
	if !Bool(NewStr("x")) {
		t.Errorf("Str(\"x\") should be truthy")
	}
	if Int(NewF64(3.9)) != 3 {
		t.Errorf("Float trunc wrong: %d", Int(NewF64(3.9)))
	}
	if String(NewNone()) != "()" {
		t.Errorf("None string coercion wrong: %q", String(NewNone()))
	}
}

func TestResolveSymAbsentIsUnchanged(t *testing.T) {
	scope := MapScope{}
	r := Resolve(NewSym("missing"), scope, DefaultCallAdapter)
	if s, ok := r.(Sym); !ok || s.Name != "missing" {
		t.Errorf("unresolved symbol should be returned unchanged, got %#v", r)
	}
}

func TestResolveDefaultAdapterFunctionCall(t *testing.T) {
	double := NewFunc(func(args Expression) Expression {
		return NewI32(Int(Item(args, 0)) * 2)
	})
	scope := MapScope{"double": double}
	expr := NewTable(NewSym("double"), NewI32(21))
	r := Resolve(expr, scope, DefaultCallAdapter)
	if Int(r) != 42 {
		t.Errorf("expected 42, got %v", r)
	}
}

func TestResolveDefaultAdapterDataLiteral(t *testing.T) {
	scope := MapScope{"b": NewI32(2), "c": NewI32(3)}
	expr := NewTable(NewSym("a"), NewSym("b"), NewSym("c"))
	r := Resolve(expr, scope, DefaultCallAdapter)
	tbl, ok := r.(Table)
	if !ok || tbl.Parts.Len() != 3 {
		t.Fatalf("expected 3-part table, got %#v", r)
	}
	if Int(tbl.Parts.At(1)) != 2 || Int(tbl.Parts.At(2)) != 3 {
		t.Errorf("tail was not resolved: %v", Unparse(r))
	}
}
