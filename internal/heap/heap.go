// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heap implements the generational mark-sweep collector that backs
// every record, closure, and reference cell the engine allocates. It knows
// nothing about the value representation above it: objects are anything
// that can report a Header and walk its own children.
package heap

// Object is anything the collector tracks. Record, Closure, and Reference
// (package value) all embed a Header and implement Walk to report the
// objects they hold a pointer to.
type Object interface {
	// header returns the embedded bookkeeping header.
	header() *Header
	// Walk reports every child Object this object directly owns by
	// calling mark once per child. It must not recurse into the
	// children itself; the collector's mark phase owns that traversal.
	Walk(mark func(Object))
}

// Header is the bookkeeping block every heap object embeds. It threads the
// object onto the heap's intrusive alive-list and carries the mark bit and
// generational metadata the collector needs.
type Header struct {
	marked     bool
	generation generation
	remembered bool
	size       int64
	next, prev Object
}

type generation uint8

const (
	young generation = iota
	old
)

func (h *Header) header() *Header { return h }

// reset clears the header's collector state; Heap.Register calls it before
// an object participates in collection.
func (h *Header) reset() {
	h.marked = false
	h.generation = young
	h.remembered = false
	h.next = nil
	h.prev = nil
}

// Heap owns the alive-list, the mark stack, the remembered set, and the
// allocation-pressure counters that drive the triggering policy in
// (*VM).Alloc-style call sites (see package vm).
type Heap struct {
	head Object // head of the intrusive doubly-linked alive list

	markStack []Object

	remembered   []Object
	liveBytes    int64 // running estimate of live heap size
	threshold    int64 // next size at which a GC is triggered
	maxBytes     int64 // configured ceiling; 0 means unbounded

	objectsAlive int
	fullGCs      int
	minorGCs     int
}

const defaultInitialThreshold = 1 << 20 // 1 MiB, per spec.md §4.1

// New creates a Heap with the given maximum size in bytes. maxBytes <= 0
// means no ceiling is enforced (OOM can never be reported).
func New(maxBytes int64) *Heap {
	h := &Heap{maxBytes: maxBytes}
	h.threshold = defaultInitialThreshold
	if maxBytes > 0 && h.threshold > maxBytes {
		h.threshold = maxBytes
	}
	return h
}

// Register links a freshly constructed object into the alive list, tags it
// young, and accounts its size against the allocation-pressure estimate.
// Callers must call Register exactly once per object, before the object is
// stored anywhere another allocation could make reachable (spec.md §5: a
// partially constructed object must be anchored before any allocation that
// could trigger collection).
func (h *Heap) Register(o Object, size int64) {
	hdr := o.header()
	hdr.reset()
	hdr.size = size
	hdr.next = h.head
	if h.head != nil {
		h.head.header().prev = o
	}
	h.head = o

	h.liveBytes += size
	h.objectsAlive++
}

// Pressure reports whether the live-byte estimate has crossed the current
// threshold, i.e. whether the caller should invoke a collection before the
// next allocation.
func (h *Heap) Pressure() bool { return h.liveBytes >= h.threshold }

// Exceeded reports whether the live-byte estimate still exceeds the
// configured maximum after a collection; the caller must then fail the
// allocation as an out-of-memory Runtime error.
func (h *Heap) Exceeded() bool { return h.maxBytes > 0 && h.liveBytes > h.maxBytes }

// Stats exposes allocation/collection counters for the CLI's --stats flag.
type Stats struct {
	ObjectsAlive int
	LiveBytes    int64
	FullGCs      int
	MinorGCs     int
}

func (h *Heap) Stats() Stats {
	return Stats{
		ObjectsAlive: h.objectsAlive,
		LiveBytes:    h.liveBytes,
		FullGCs:      h.fullGCs,
		MinorGCs:     h.minorGCs,
	}
}

// WriteBarrier must be invoked by the engine on every store that installs a
// child pointer into a heap object: record field write, reference cell
// assignment, and closure environment initialization (spec.md §4.1). owner
// and child may be nil (e.g. storing a non-heap Value); nil is always a
// no-op.
func (h *Heap) WriteBarrier(owner, child Object) {
	if owner == nil || child == nil {
		return
	}
	oh := owner.header()
	ch := child.header()
	if oh.generation == old && ch.generation == young && !oh.remembered {
		oh.remembered = true
		h.remembered = append(h.remembered, owner)
	}
}

func (h *Heap) mark(o Object) {
	if o == nil {
		return
	}
	hdr := o.header()
	if hdr.marked {
		return
	}
	hdr.marked = true
	h.markStack = append(h.markStack, o)
}

// drain processes the explicit mark stack to a fixed point. It is never
// recursive, so graphs of arbitrary depth (spec.md §8.4: chains of 5000+
// nodes) do not consume host call-stack proportional to graph size.
func (h *Heap) drain() {
	for len(h.markStack) > 0 {
		n := len(h.markStack) - 1
		o := h.markStack[n]
		h.markStack[n] = nil
		h.markStack = h.markStack[:n]
		o.Walk(h.mark)
	}
}

// RootIterator supplies the root set at a collection point: globals,
// canonical singletons, and for every live frame its registers, its operand
// stack up to the stack pointer, and its registered reference cells
// (spec.md §4.1 "Root set contract").
type RootIterator func(yield func(Object))

// FullGC marks from roots alone, then sweeps both generations: any object
// not reached is freed regardless of age, and the remembered set is
// cleared (spec.md §4.1).
func (h *Heap) FullGC(roots RootIterator) {
	h.fullGCs++
	roots(h.mark)
	h.drain()
	h.sweep(true)
	h.remembered = h.remembered[:0]
	h.growThreshold()
}

// MinorGC marks from roots union the remembered set, then sweeps only the
// young generation; unmarked old objects survive conservatively (spec.md
// §4.1).
func (h *Heap) MinorGC(roots RootIterator) {
	h.minorGCs++
	roots(h.mark)
	for _, o := range h.remembered {
		h.mark(o)
	}
	h.drain()
	h.sweep(false)
	h.pruneRemembered()
	h.growThreshold()
}

// pruneRemembered drops every entry whose header's remembered flag sweep
// already cleared, so the slice tracks exactly the objects still listed
// (spec.md §4.1: each at most once) rather than growing stale duplicates
// that a later WriteBarrier call would otherwise re-append.
func (h *Heap) pruneRemembered() {
	kept := h.remembered[:0]
	for _, o := range h.remembered {
		if o.header().remembered {
			kept = append(kept, o)
		}
	}
	h.remembered = kept
}

// sweep walks the alive list once. full selects whether unmarked old
// objects are also freed.
func (h *Heap) sweep(full bool) {
	var live int64
	alive := 0
	cur := h.head
	for cur != nil {
		hdr := cur.header()
		next := hdr.next
		if !hdr.marked {
			if full || hdr.generation == young {
				h.unlink(cur)
				cur = next
				continue
			}
			// Unmarked old object survives a minor GC; it may still be
			// reachable through a path the remembered set doesn't cover.
			live += hdr.size
			alive++
			cur = next
			continue
		}
		hdr.marked = false
		hdr.generation = old
		hdr.remembered = false
		live += hdr.size
		alive++
		cur = next
	}
	h.liveBytes = live
	h.objectsAlive = alive
}

func (h *Heap) unlink(o Object) {
	hdr := o.header()
	if hdr.prev != nil {
		hdr.prev.header().next = hdr.next
	} else {
		h.head = hdr.next
	}
	if hdr.next != nil {
		hdr.next.header().prev = hdr.prev
	}
}

func (h *Heap) growThreshold() {
	target := h.liveBytes * 2
	if target < defaultInitialThreshold {
		target = defaultInitialThreshold
	}
	if h.maxBytes > 0 && target > h.maxBytes {
		target = h.maxBytes
	}
	h.threshold = target
}

// AliveCount walks the alive list and counts entries; used by tests that
// want ground truth independent of the Stats counters above.
func (h *Heap) AliveCount() int {
	n := 0
	for cur := h.head; cur != nil; cur = cur.header().next {
		n++
	}
	return n
}
