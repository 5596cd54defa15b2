// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimizer

import "github.com/langvm/langvm/internal/bytecode"

const inlineSizeThreshold = 100

// inlineCalls implements spec.md §4.3 pass 6. It looks for the exact
// `load_func idx; <args>; call argCount` idiom (a call whose callee is
// loaded directly from the pool, not through a global/local variable) and,
// when the loaded function is inlinable, substitutes the sequence with the
// callee's body.
//
// Recursion safety: a function refers to itself only through a variable
// (load_global, load_local or a captured reference), never through
// load_func, so a self-call inside an inlined body stays an ordinary call
// through that variable and is not expanded again. The inlinability check
// below only needs to confirm the callee has no nested closures of its
// own to worry about.
func inlineCalls(f *bytecode.Function) bool {
	changed := false
	for {
		i, j, calleeIdx, ok := findInlineSite(f)
		if !ok {
			break
		}
		if !inlineAt(f, i, j, calleeIdx) {
			break
		}
		changed = true
	}
	return changed
}

// findInlineSite scans for the first load_func;...;call bracket whose
// callee is inlinable, returning the load_func index, the call index, and
// the callee's index into f.Functions.
func findInlineSite(f *bytecode.Function) (loadIdx, callIdx int, calleeIdx int32, ok bool) {
	for i, in := range f.Instrs {
		if in.Op != bytecode.OpLoadFunc {
			continue
		}
		callee := f.Functions[in.Arg]
		if !inlinable(callee) {
			continue
		}
		j, matched := matchCall(f.Instrs, i)
		if !matched {
			continue
		}
		return i, j, in.Arg, true
	}
	return 0, 0, 0, false
}

func inlinable(callee *bytecode.Function) bool {
	if len(callee.FreeVars) != 0 || len(callee.Functions) != 0 || len(callee.RefLocals) != 0 {
		return false
	}
	if len(callee.Instrs) == 0 || callee.Instrs[len(callee.Instrs)-1].Op != bytecode.OpReturn {
		return false
	}
	if len(callee.Instrs) >= inlineSizeThreshold {
		return false
	}
	return true
}

// matchCall finds the call instruction that consumes exactly the Function
// value pushed by the load_func at loadIdx, by tracking the net stack
// depth contributed by every instruction in between. It aborts (no match)
// if a branch or return is reached first, keeping the pattern strictly to
// straight-line argument-evaluation code.
func matchCall(instrs []bytecode.Instr, loadIdx int) (int, bool) {
	depth := 0
	for k := loadIdx + 1; k < len(instrs); k++ {
		in := instrs[k]
		switch in.Op {
		case bytecode.OpGoto, bytecode.OpIf, bytecode.OpReturn:
			return 0, false
		case bytecode.OpAllocClosure:
			if depth == int(in.Arg) {
				return 0, false // consumes the loaded Function itself
			}
		case bytecode.OpCall:
			if depth == int(in.Arg) {
				return k, true
			}
		}
		depth += stackDelta(in)
		if depth < 0 {
			return 0, false
		}
	}
	return 0, false
}

// stackDelta is the net operand-stack effect of executing in, per the
// stack discipline enumerated in spec.md §4.2.
func stackDelta(in bytecode.Instr) int {
	switch in.Op {
	case bytecode.OpLoadConst, bytecode.OpLoadFunc, bytecode.OpLoadLocal, bytecode.OpLoadGlobal,
		bytecode.OpPushReference, bytecode.OpAllocRecord, bytecode.OpDup:
		return 1
	case bytecode.OpStoreLocal, bytecode.OpStoreGlobal, bytecode.OpIf, bytecode.OpPop:
		return -1
	case bytecode.OpFieldLoad, bytecode.OpLoadReference, bytecode.OpNeg, bytecode.OpNot, bytecode.OpSwap, bytecode.OpGoto:
		return 0
	case bytecode.OpIndexLoad, bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv,
		bytecode.OpGt, bytecode.OpGeq, bytecode.OpEq, bytecode.OpAnd, bytecode.OpOr:
		return -1
	case bytecode.OpFieldStore, bytecode.OpStoreReference:
		return -2
	case bytecode.OpIndexStore:
		return -3
	case bytecode.OpAllocClosure:
		return -int(in.Arg)
	case bytecode.OpCall:
		return -int(in.Arg)
	case bytecode.OpReturn:
		return -1
	}
	return 0
}

// inlineAt substitutes instrs[loadIdx..callIdx] (the load_func, the
// argument-evaluation code, and the call) with the callee's body: the
// argument code is kept in place (it still pushes argCount values, one
// per callee parameter), followed by a store_local for each parameter
// (in reverse, since they arrive in evaluation order but the stack pops
// last-pushed-first), then the callee's body with every local index
// offset into the caller's local space, minus its trailing return (the
// returned value is left on the stack in the call's place).
func inlineAt(f *bytecode.Function, loadIdx, callIdx int, calleeIdx int32) bool {
	callee := f.Functions[calleeIdx]
	argCount := int(f.Instrs[callIdx].Arg)
	if argCount != callee.ParamCount {
		return false
	}

	localBase := len(f.Locals)
	f.Locals = append(f.Locals, callee.Locals...)

	var body []bytecode.Instr
	for p := callee.ParamCount - 1; p >= 0; p-- {
		body = append(body, bytecode.Instr{Op: bytecode.OpStoreLocal, Arg: int32(localBase + p)})
	}

	constBase := len(f.Constants)
	f.Constants = append(f.Constants, callee.Constants...)
	nameBase := len(f.Names)
	f.Names = append(f.Names, callee.Names...)

	calleeBody := callee.Instrs[:len(callee.Instrs)-1] // drop trailing return
	remapped := make([]bytecode.Instr, len(calleeBody))
	for i, in := range calleeBody {
		out := in
		switch in.Op {
		case bytecode.OpLoadLocal, bytecode.OpStoreLocal:
			out.Arg += int32(localBase)
		case bytecode.OpLoadConst:
			out.Arg += int32(constBase)
		case bytecode.OpLoadGlobal, bytecode.OpStoreGlobal, bytecode.OpFieldLoad, bytecode.OpFieldStore:
			out.Arg += int32(nameBase)
		}
		if in.Op == bytecode.OpGoto || in.Op == bytecode.OpIf {
			// A branch inside the callee may target the trailing return
			// we just dropped (a fallthrough-to-return). Redirect it to
			// land just past the inlined block instead, which is the
			// same place execution would resume after an ordinary call.
			target := i + 1 + int(in.Arg)
			if target == len(calleeBody) {
				out.Arg = int32(len(calleeBody) - i - 1)
			}
		}
		remapped[i] = out
	}
	body = append(body, remapped...)

	args := append([]bytecode.Instr(nil), f.Instrs[loadIdx+1:callIdx]...)
	newSeq := append(append([]bytecode.Instr(nil), args...), body...)

	delta := len(newSeq) - (callIdx - loadIdx + 1)
	protected := branchTargets(f.Instrs)
	for k := loadIdx; k <= callIdx; k++ {
		if k != loadIdx && protected[k] {
			return false // something jumps into the middle of this call sequence; bail out
		}
	}

	abs := toAbsolute(f.Instrs)
	newInstrs := make([]bytecode.Instr, 0, len(f.Instrs)+delta)
	newInstrs = append(newInstrs, f.Instrs[:loadIdx]...)
	newInstrs = append(newInstrs, newSeq...)
	newInstrs = append(newInstrs, f.Instrs[callIdx+1:]...)

	remap := make([]int, len(f.Instrs)+1)
	for i := 0; i <= len(f.Instrs); i++ {
		switch {
		case i <= loadIdx:
			remap[i] = i
		case i > callIdx:
			remap[i] = i + delta
		default:
			remap[i] = loadIdx // interior of the old window collapses to its start
		}
	}
	for i := range newInstrs {
		var orig bytecode.Instr
		if i < loadIdx || i >= loadIdx+len(newSeq) {
			// outside the rewritten window: corresponds 1:1 to an
			// original instruction, already copied verbatim above.
			origIdx := i
			if i >= loadIdx+len(newSeq) {
				origIdx = i - delta
			}
			orig = abs2instr(abs, origIdx)
		} else {
			continue // part of the inlined body; its own branches (if any) are intra-callee and stay relative
		}
		if orig.Op == bytecode.OpGoto || orig.Op == bytecode.OpIf {
			origIdx := i
			if i >= loadIdx+len(newSeq) {
				origIdx = i - delta
			}
			target := abs[origIdx].Target
			newTarget := remap[target]
			newInstrs[i].Arg = int32(newTarget - i - 1)
		}
	}

	f.Instrs = newInstrs
	return true
}

func abs2instr(abs []absInstr, i int) bytecode.Instr {
	a := abs[i]
	return bytecode.Instr{Op: a.Op, Arg: a.Arg}
}
