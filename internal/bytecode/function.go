// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytecode

import "fmt"

// ConstKind tags the kind of a pool constant. Constants never carry
// Record/Function/Closure/Reference values — those are never pool literals.
type ConstKind uint8

const (
	ConstNone ConstKind = iota
	ConstBool
	ConstInt
	ConstString
)

// Const is one entry of a Function's constant pool.
type Const struct {
	Kind ConstKind
	Bool bool
	Int  int32
	Str  string
}

func (c Const) String() string {
	switch c.Kind {
	case ConstNone:
		return "None"
	case ConstBool:
		if c.Bool {
			return "true"
		}
		return "false"
	case ConstInt:
		return fmt.Sprintf("%d", c.Int)
	case ConstString:
		return fmt.Sprintf("%q", c.Str)
	}
	return "<bad const>"
}

// Function is the unit of compilation: one activation record's worth of
// constants, names, locals, and code (spec.md §3 "Function object").
//
// A Function constructed by a host producer carries only Instrs (the
// stack-form stream). Reg/RegCount are filled in lazily by the stack→
// register lowering pass the first time the engine executes the function
// (spec.md §4.4); once populated they are cached for the life of the
// Function.
type Function struct {
	Name string // diagnostic only; not a pool-indexed identifier

	Constants []Const
	Names     []string // field and global identifiers
	Locals    []string // ordered local variable names
	RefLocals []string // ordered names of locals captured by a nested closure
	FreeVars  []string // ordered free-variable names (closure environment layout)
	Functions []*Function

	ParamCount int

	Instrs []Instr // stack-form instruction stream

	Reg      []RInstr // register-form stream, lowered lazily
	RegCount int      // register count for Reg, valid iff Reg != nil
}

// IsRefLocal reports whether local index i names a ref-local (captured by
// some nested closure), by looking its name up in RefLocals.
func (f *Function) IsRefLocal(localIdx int) bool {
	if localIdx < 0 || localIdx >= len(f.Locals) {
		return false
	}
	name := f.Locals[localIdx]
	for _, r := range f.RefLocals {
		if r == name {
			return true
		}
	}
	return false
}

// RefLocalIndex returns the position of local index i within RefLocals, or
// -1 if it is not a ref-local. This is the index push_reference uses when
// i < len(RefLocals) (spec.md §4.5).
func (f *Function) RefLocalIndex(localIdx int) int {
	if localIdx < 0 || localIdx >= len(f.Locals) {
		return -1
	}
	name := f.Locals[localIdx]
	for i, r := range f.RefLocals {
		if r == name {
			return i
		}
	}
	return -1
}

// UsesReferences reports whether the function contains any reference
// opcode (push_reference/load_reference/store_reference). Dead-store
// elimination (spec.md §4.3 pass 4) is disabled whenever this holds,
// because reference operands index a different table than locals.
func (f *Function) UsesReferences() bool {
	for _, in := range f.Instrs {
		switch in.Op {
		case OpPushReference, OpLoadReference, OpStoreReference:
			return true
		}
	}
	return false
}

// Validate checks the pool-index invariants spec.md §3 requires of every
// Function constructed by an external producer (the host interface,
// spec.md §4.6).
func (f *Function) Validate() error {
	for i, in := range f.Instrs {
		if err := f.validateInstr(in); err != nil {
			return fmt.Errorf("function %q: instruction %d: %w", f.Name, i, err)
		}
	}
	if f.ParamCount < 0 || f.ParamCount > len(f.Locals) {
		return fmt.Errorf("function %q: parameter_count %d out of range of %d locals", f.Name, f.ParamCount, len(f.Locals))
	}
	for _, child := range f.Functions {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (f *Function) validateInstr(in Instr) error {
	idx := int(in.Arg)
	switch in.Op {
	case OpLoadConst:
		if idx < 0 || idx >= len(f.Constants) {
			return fmt.Errorf("load_const index %d out of range", idx)
		}
	case OpLoadFunc, OpAllocClosure:
		if in.Op == OpLoadFunc && (idx < 0 || idx >= len(f.Functions)) {
			return fmt.Errorf("load_func index %d out of range", idx)
		}
	case OpLoadLocal, OpStoreLocal:
		if idx < 0 || idx >= len(f.Locals) {
			return fmt.Errorf("local index %d out of range", idx)
		}
	case OpLoadGlobal, OpStoreGlobal, OpFieldLoad, OpFieldStore:
		if idx < 0 || idx >= len(f.Names) {
			return fmt.Errorf("name index %d out of range", idx)
		}
	case OpPushReference:
		if idx < 0 || idx >= len(f.RefLocals)+len(f.FreeVars) {
			return fmt.Errorf("reference index %d out of range", idx)
		}
	}
	return nil
}
