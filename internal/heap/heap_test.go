// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import "testing"

// testObj is the simplest possible Object: a Header plus an explicit child
// list, so tests can build arbitrary graphs without a real value.Value.
type testObj struct {
	Header
	children []*testObj
}

func (o *testObj) Walk(mark func(Object)) {
	for _, c := range o.children {
		mark(c)
	}
}

func newObj(h *Heap) *testObj {
	o := &testObj{}
	h.Register(o, 16)
	return o
}

func roots(os ...*testObj) RootIterator {
	return func(yield func(Object)) {
		for _, o := range os {
			yield(o)
		}
	}
}

func TestFullGCFreesUnreachable(t *testing.T) {
	h := New(0)
	root := newObj(h)
	garbage := newObj(h)
	_ = garbage

	h.FullGC(roots(root))

	if got := h.AliveCount(); got != 1 {
		t.Fatalf("alive count = %d, want 1", got)
	}
}

func TestFullGCKeepsSharedSubgraph(t *testing.T) {
	h := New(0)
	shared := newObj(h)
	a := newObj(h)
	b := newObj(h)
	a.children = append(a.children, shared)
	b.children = append(b.children, shared)

	h.FullGC(roots(a, b))

	if got := h.AliveCount(); got != 3 {
		t.Fatalf("alive count = %d, want 3 (a, b, shared)", got)
	}
}

func TestSelfCycleDoesNotLeakOrLoop(t *testing.T) {
	h := New(0)
	root := newObj(h)
	cyclic := newObj(h)
	cyclic.children = append(cyclic.children, cyclic)
	root.children = append(root.children, cyclic)

	h.FullGC(roots(root))
	if got := h.AliveCount(); got != 2 {
		t.Fatalf("alive count = %d, want 2 (root, cyclic)", got)
	}

	// Drop the only live reference to the cycle; it must collect.
	root.children = nil
	h.FullGC(roots(root))
	if got := h.AliveCount(); got != 1 {
		t.Fatalf("alive count = %d, want 1 after cycle becomes unreachable", got)
	}
}

func TestLongChainDoesNotOverflowMarkStack(t *testing.T) {
	h := New(0)
	const chainLen = 5000
	head := newObj(h)
	cur := head
	for i := 1; i < chainLen; i++ {
		next := newObj(h)
		cur.children = append(cur.children, next)
		cur = next
	}

	h.FullGC(roots(head))

	if got := h.AliveCount(); got != chainLen {
		t.Fatalf("alive count = %d, want %d", got, chainLen)
	}
}

func TestMinorGCSurvivesUnmarkedOldObject(t *testing.T) {
	h := New(0)
	old := newObj(h)
	h.FullGC(roots(old)) // promotes old to the old generation

	young := newObj(h)

	// old is not reachable from the young-GC root set and has no remembered
	// entry, but a minor collection must still conservatively keep it alive.
	h.MinorGC(roots(young))

	if got := h.AliveCount(); got != 2 {
		t.Fatalf("alive count = %d, want 2 (old survives, young reachable)", got)
	}
}

func TestWriteBarrierRemembersOldToYoungPointer(t *testing.T) {
	h := New(0)
	old := newObj(h)
	h.FullGC(roots(old)) // promotes old to the old generation

	young := newObj(h)
	old.children = append(old.children, young)
	h.WriteBarrier(old, young)

	// young is reachable only via old's remembered-set entry, with no root
	// pointing at it directly.
	h.MinorGC(roots())

	if got := h.AliveCount(); got != 2 {
		t.Fatalf("alive count = %d, want 2 (old, young kept via remembered set)", got)
	}
}

func TestPressureAndExceeded(t *testing.T) {
	h := New(32)
	if h.Pressure() {
		t.Fatal("fresh heap should not be under pressure")
	}
	for i := 0; i < 3; i++ {
		newObj(h)
	}
	if !h.Exceeded() {
		t.Fatal("heap should report exceeded once live bytes pass maxBytes")
	}
}
