package resolve

import (
	"testing"
	"time"

	rctx "crtkernel/internal/context"
	"crtkernel/internal/parser"
	"crtkernel/internal/value"
)

func loadRules(t *testing.T, src string) rctx.Context {
	t.Helper()
	e, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	rules := rctx.New()
	tbl, ok := e.(value.Table)
	if !ok {
		t.Fatalf("expected a table of rules, got %#v", e)
	}
	for i := 0; i < tbl.Parts.Len(); i++ {
		part := tbl.Parts.At(i)
		var insErr error
		rules, insErr = rules.Insert(part)
		if insErr != nil {
			t.Fatalf("insert %v: %v", part, insErr)
		}
	}
	return rules
}

func TestScenarioS1ChainResolvesToConstant(t *testing.T) {
	rules := loadRules(t, "(a=b b=c c=d d=e e=f f=g g=h h=i i=j j=1)")
	products := Full(rules, rctx.New())
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		v, ok := products.Get(k)
		if !ok || value.Int(v) != 1 {
			t.Errorf("products[%s] = %v, want 1", k, v)
		}
	}
}

func TestScenarioS2NestedTablesResolve(t *testing.T) {
	src := "(a=(b c) b=(d e) c=(f g) d=(h i) e=(j k) f=(l m) g=(n o) h=1 i=2 j=3 k=4 l=5 m=6 n=7 o=8)"
	rules := loadRules(t, src)
	products := Full(rules, rctx.New())
	a, ok := products.Get("a")
	if !ok {
		t.Fatalf("a not resolved")
	}
	got := value.UnparseUnkeyed(a)
	// b=(d e) and c=(f g) each resolve via nest(head)++resolved_tail to a
	// concatenation of their two symbols' values: ((1 2) (3 4)) and
	// ((5 6) (7 8)). a=(b c) nests each of those whole values as a single
	// part in turn, so the result preserves one further level of nesting
	// rather than flattening through it.
	want := "(((1 2) (3 4)) ((5 6) (7 8)))"
	if got != want {
		t.Errorf("products[a] = %s, want %s", got, want)
	}
}

func TestScenarioS4InvalidateAndReresolve(t *testing.T) {
	rules := loadRules(t, "(a=b b=c c=d d=e e=f f=g g=h h=i i=j j=1)")
	products := Full(rules, rctx.New())

	newJ := value.NewI32(2).Keyed("j")
	newRules, newProducts, err := InsertInvalidate(newJ, rules, products)
	if err != nil {
		t.Fatalf("InsertInvalidate: %v", err)
	}
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		if newProducts.Has(k) {
			t.Errorf("products[%s] should have been invalidated", k)
		}
	}

	finalProducts := Full(newRules, newProducts)
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		v, ok := finalProducts.Get(k)
		if !ok || value.Int(v) != 2 {
			t.Errorf("after re-resolve products[%s] = %v, want 2", k, v)
		}
	}
}

func TestResolveOnceMonotoneSize(t *testing.T) {
	rules := loadRules(t, "(a=b b=1)")
	products := rctx.New()
	next := Once(rules, products)
	if next.Len() < products.Len() {
		t.Fatalf("resolve_once must not shrink products")
	}
}

func TestResolveFullIsFixedPointAndIdempotent(t *testing.T) {
	rules := loadRules(t, "(a=b b=1)")
	full := Full(rules, rctx.New())
	again := Once(rules, full)
	if again.Len() != full.Len() {
		t.Fatalf("resolve_full is not a fixed point of resolve_once")
	}
	doubleFull := Full(rules, full)
	for _, k := range []string{"a", "b"} {
		va, _ := full.Get(k)
		vb, _ := doubleFull.Get(k)
		if !value.Equal(va, vb) {
			t.Errorf("resolve_full is not idempotent on %s: %v vs %v", k, va, vb)
		}
	}
}

func TestStreamEmitsMonotoneSnapshots(t *testing.T) {
	rules := loadRules(t, "(a=b b=c c=1)")
	stream := NewStream(rules, rctx.New(), 0)
	var sizes []int
	stream.Subscribe(NoopDone(), func(snapshot rctx.Context) {
		sizes = append(sizes, snapshot.Len())
	})
	if len(sizes) == 0 {
		t.Fatalf("expected at least one emission")
	}
	for i := 1; i < len(sizes); i++ {
		if sizes[i] <= sizes[i-1] {
			t.Errorf("emissions not strictly monotone: %v", sizes)
		}
	}
	if sizes[len(sizes)-1] != 3 {
		t.Errorf("final emission size = %d, want 3", sizes[len(sizes)-1])
	}
}

type cancelingDone struct {
	ch chan struct{}
}

func (c cancelingDone) Done() <-chan struct{} { return c.ch }

func TestStreamStopsOnCancellation(t *testing.T) {
	rules := loadRules(t, "(a=b b=c c=1)")
	stream := NewStream(rules, rctx.New(), 5*time.Millisecond)
	done := cancelingDone{ch: make(chan struct{})}
	close(done.ch)
	var emitted bool
	stream.Subscribe(done, func(snapshot rctx.Context) {
		emitted = true
	})
	if emitted {
		t.Errorf("a canceled subscription must not emit")
	}
}

func TestTraceObservesNewlyResolvedKeys(t *testing.T) {
	rules := loadRules(t, "(a=b b=1)")
	var traced []string
	FullTraced(rules, rctx.New(), func(pass int, key string, from value.Expression) {
		traced = append(traced, key)
	})
	if len(traced) != 2 {
		t.Fatalf("expected 2 traced resolutions, got %v", traced)
	}
}
