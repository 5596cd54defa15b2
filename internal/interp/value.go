// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package interp is a second, independent evaluator: it walks the same
// lang AST the compiler emits bytecode from, directly, without ever
// producing a bytecode.Function. The interpret subcommand runs a program
// through this engine, while derby compiles it and runs it on package vm;
// this one reaches its answers by its own route rather than by calling
// into package vm.
package interp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/langvm/langvm/internal/lang"
)

// Value is any runtime value this evaluator produces. The small set of
// concrete types below stands in for the virtual Value hierarchy
// (BooleanValue, IntegerValue, StringValue, RecordValue, FunctionValue,
// NoneValue) a tree-walking OO interpreter would use.
type Value interface {
	String() string
}

type noneValue struct{}

func (noneValue) String() string { return "None" }

// None is the unique None value.
var None Value = noneValue{}

type boolValue bool

// True and False are the canonical Bool values.
var (
	True  Value = boolValue(true)
	False Value = boolValue(false)
)

// Bool returns the canonical True or False for b.
func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func (b boolValue) String() string {
	if b {
		return "true"
	}
	return "false"
}

type intValue int32

// Int wraps a 32-bit integer value.
func Int(v int32) Value { return intValue(v) }

func (i intValue) String() string { return strconv.FormatInt(int64(i), 10) }

type stringValue string

// Str wraps a string value.
func Str(s string) Value { return stringValue(s) }

func (s stringValue) String() string { return string(s) }

// Record is a mutable field map; missing fields read as None rather than
// an error, and any value stringifies into a valid field key on index
// assignment or lookup.
type Record struct {
	fields map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record { return &Record{fields: make(map[string]Value)} }

// Get returns the named field, or None if it was never set.
func (r *Record) Get(name string) Value {
	if v, ok := r.fields[name]; ok {
		return v
	}
	return None
}

// Set stores v under name, overwriting any previous value.
func (r *Record) Set(name string, v Value) { r.fields[name] = v }

// String renders fields in sorted key order, matching the reference
// interpreter's canonical (and test-comparable) record printing.
func (r *Record) String() string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	b.WriteByte('{')
	for _, name := range names {
		fmt.Fprintf(&b, "%s:%s ", name, r.fields[name].String())
	}
	b.WriteByte('}')
	return b.String()
}

// Closure is a user-defined function literal paired with the frame it
// closed over at the point it was created.
type Closure struct {
	Name   string
	Params []string
	Body   *lang.Block
	Env    *Frame
}

func (c *Closure) String() string { return "FUNCTION" }

// Builtin is a host-provided function bound into the global frame
// (print, input, intcast).
type Builtin struct {
	Name  string
	Arity int
	Fn    func(in *Interp, args []Value) (Value, error)
}

func (b *Builtin) String() string { return "FUNCTION" }

// Equal implements the cross-type-is-false equality every binary ==
// reduces to: same concrete type and same value, with Record, Closure,
// and Builtin compared by identity.
func Equal(l, r Value) bool {
	switch lv := l.(type) {
	case intValue:
		rv, ok := r.(intValue)
		return ok && lv == rv
	case stringValue:
		rv, ok := r.(stringValue)
		return ok && lv == rv
	case boolValue:
		rv, ok := r.(boolValue)
		return ok && lv == rv
	case *Record:
		rv, ok := r.(*Record)
		return ok && lv == rv
	case *Closure:
		rv, ok := r.(*Closure)
		return ok && lv == rv
	case *Builtin:
		rv, ok := r.(*Builtin)
		return ok && lv == rv
	case noneValue:
		_, ok := r.(noneValue)
		return ok
	}
	return false
}

func describe(v Value) string {
	switch v.(type) {
	case intValue:
		return "an Int"
	case stringValue:
		return "a String"
	case boolValue:
		return "a Bool"
	case noneValue:
		return "None"
	case *Record:
		return "a Record"
	case *Closure, *Builtin:
		return "a Function"
	}
	return "a value"
}
