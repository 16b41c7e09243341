package kernel

import (
	"testing"
	"time"

	rctx "crtkernel/internal/context"
	"crtkernel/internal/resolve"
	"crtkernel/internal/value"
)

func TestNewLoadsInitialRulesFromString(t *testing.T) {
	k, err := New(WithRulesString("a=1 b=2"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	if !k.Rules().Has("a") || !k.Rules().Has("b") {
		t.Fatalf("expected initial rules to be loaded, got %v", k.Rules().Keys())
	}
}

func TestNewPropagatesMalformedInitialRules(t *testing.T) {
	_, err := New(WithRulesString("a='unterminated"))
	if err == nil {
		t.Fatalf("expected malformed initial rules to fail construction")
	}
}

func TestInsertThenResolveSync(t *testing.T) {
	k, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	for _, src := range []string{"a=b", "b=1"} {
		if err := k.Insert(src); err != nil {
			t.Fatalf("Insert(%q): %v", src, err)
		}
	}

	products := k.ResolveSync()
	got, ok := products.Get("a")
	if !ok {
		t.Fatalf("expected a to resolve, products: %v", products.Keys())
	}
	if value.UnparseUnkeyed(got) != "1" {
		t.Errorf("a = %s, want 1", value.UnparseUnkeyed(got))
	}
}

func TestInsertRejectsCycle(t *testing.T) {
	k, err := New(WithRulesString("a=b"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	if err := k.Insert("b=a"); err == nil {
		t.Fatalf("expected cycle to be rejected")
	}
	if k.Rules().Has("b") {
		t.Errorf("rejected insert must not leave b in rules")
	}
}

func TestInsertRejectsKeylessExpression(t *testing.T) {
	k, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	if err := k.Insert("1"); err == nil {
		t.Fatalf("expected a keyless insert to be rejected")
	}
}

func TestEraseInvalidatesDownstreamProducts(t *testing.T) {
	k, err := New(WithRulesString("a=b b=1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	k.ResolveSync()
	if !k.Products().Has("a") {
		t.Fatalf("expected a resolved before erase")
	}

	k.Erase("b")
	if k.Rules().Has("b") {
		t.Errorf("expected b removed from rules")
	}
	if k.Products().Has("a") || k.Products().Has("b") {
		t.Errorf("expected a and b invalidated from products after erasing b, got %v", k.Products().Keys())
	}
}

func TestResolveSyncMatchesResolveFull(t *testing.T) {
	const src = "a=b b=c c=1"
	k, err := New(WithRulesString(src))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	got := k.ResolveSync()
	want := resolve.Full(k.Rules(), rctx.New())
	if got.Len() != want.Len() {
		t.Fatalf("ResolveSync produced %d products, direct resolve.Full produced %d", got.Len(), want.Len())
	}
	for _, key := range want.Keys() {
		wv, _ := want.Get(key)
		gv, ok := got.Get(key)
		if !ok || !value.Equal(gv, wv) {
			t.Errorf("key %s: got %v, want %v", key, gv, wv)
		}
	}
}

func TestResolveAsyncMergesResultsIntoProducts(t *testing.T) {
	k, err := New(WithRulesString("a=b b=1"), WithWorkers(2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	k.ResolveAsync()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if k.Products().Has("a") && k.Products().Has("b") {
			break
		}
		k.ResolveAsync()
		time.Sleep(10 * time.Millisecond)
	}

	products := k.Products()
	got, ok := products.Get("a")
	if !ok {
		t.Fatalf("expected a to resolve asynchronously, products: %v", products.Keys())
	}
	if value.UnparseUnkeyed(got) != "1" {
		t.Errorf("a = %s, want 1", value.UnparseUnkeyed(got))
	}
}

func TestResolveAsyncReportsListenerEvents(t *testing.T) {
	started := make(chan string, 4)
	finished := make(chan string, 4)
	k, err := New(
		WithRulesString("a=1"),
		WithListener(recordingListener{started: started, finished: finished}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	k.ResolveAsync()

	select {
	case name := <-started:
		if name != "a" {
			t.Errorf("TaskStarting name = %q, want a", name)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for TaskStarting")
	}
	select {
	case name := <-finished:
		if name != "a" {
			t.Errorf("TaskFinished name = %q, want a", name)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for TaskFinished")
	}
}

type recordingListener struct {
	started  chan string
	finished chan string
}

func (r recordingListener) TaskStarting(worker int, name string) { r.started <- name }
func (r recordingListener) TaskCanceled(worker int, name string) {}
func (r recordingListener) TaskFinished(worker int, name string, result value.Expression) {
	r.finished <- name
}

func TestStreamEmitsFromCurrentProducts(t *testing.T) {
	k, err := New(WithRulesString("a=b b=c c=1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	var snapshots []int
	k.Stream().Subscribe(resolve.NoopDone(), func(products rctx.Context) {
		snapshots = append(snapshots, products.Len())
	})

	if len(snapshots) == 0 {
		t.Fatalf("expected at least one emitted snapshot")
	}
	for i := 1; i < len(snapshots); i++ {
		if snapshots[i] <= snapshots[i-1] {
			t.Errorf("snapshot sizes not strictly increasing: %v", snapshots)
		}
	}
}

func TestPoolStatsReflectsCompletedAsyncTasks(t *testing.T) {
	k, err := New(WithRulesString("a=1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	k.ResolveAsync()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if k.PoolStats().Completed > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if k.PoolStats().Completed == 0 {
		t.Fatalf("expected at least one completed task, stats: %+v", k.PoolStats())
	}
}

func TestSaveRulesRoundTrips(t *testing.T) {
	k, err := New(WithRulesString("a=1 b=2"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer k.Close()

	path := t.TempDir() + "/rules.txt"
	if err := k.SaveRules(path); err != nil {
		t.Fatalf("SaveRules: %v", err)
	}

	reloaded, err := New(WithRulesFile(path))
	if err != nil {
		t.Fatalf("New from saved rules: %v", err)
	}
	defer reloaded.Close()

	if !reloaded.Rules().Has("a") || !reloaded.Rules().Has("b") {
		t.Errorf("expected reloaded rules to carry a and b, got %v", reloaded.Rules().Keys())
	}
}

func TestCloseDrainsPool(t *testing.T) {
	k, err := New(WithRulesString("a=1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	k.ResolveAsync()
	if err := k.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
