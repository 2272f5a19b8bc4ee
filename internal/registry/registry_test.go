package registry

import (
	"testing"

	"smelter/internal/ids"
)

func TestRegisterGetUnregisterRoundTrip(t *testing.T) {
	r := New[ids.InputId, string]()

	r.Register("cam-1", "a")
	v, ok := r.Get("cam-1")
	if !ok || v != "a" {
		t.Fatalf("expected to find cam-1, got %v %v", v, ok)
	}
	if r.Len() != 1 {
		t.Fatalf("expected len 1, got %d", r.Len())
	}

	r.Unregister("cam-1")
	if r.Len() != 0 {
		t.Fatalf("expected empty registry after unregister, got len %d", r.Len())
	}
	if _, ok := r.Get("cam-1"); ok {
		t.Fatalf("expected cam-1 to be gone after unregister")
	}
}

func TestRegisterReplacesAndReturnsPrevious(t *testing.T) {
	r := New[ids.OutputId, int]()
	r.Register("out-1", 1)
	prev, existed := r.Register("out-1", 2)
	if !existed || prev != 1 {
		t.Fatalf("expected previous value 1, got %v existed=%v", prev, existed)
	}
	v, _ := r.Get("out-1")
	if v != 2 {
		t.Fatalf("expected replaced value 2, got %v", v)
	}
}

func TestIdsReturnsAllRegistered(t *testing.T) {
	r := New[ids.InputId, bool]()
	r.Register("a", true)
	r.Register("b", true)
	got := map[ids.InputId]bool{}
	for _, id := range r.Ids() {
		got[id] = true
	}
	if len(got) != 2 || !got["a"] || !got["b"] {
		t.Fatalf("expected both ids, got %v", got)
	}
}

func TestEachVisitsUnderLock(t *testing.T) {
	r := New[ids.InputId, int]()
	r.Register("a", 1)
	r.Register("b", 2)
	sum := 0
	r.Each(func(_ ids.InputId, v int) { sum += v })
	if sum != 3 {
		t.Fatalf("expected sum 3, got %d", sum)
	}
}
