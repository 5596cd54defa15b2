// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimizer

import "github.com/langvm/langvm/internal/bytecode"

// peephole implements spec.md §4.3 pass 3: local, window-based rewrites
// that never reach across a jump target. Each rewrite below only ever
// consumes a short, fixed-size window ending at (or starting at) the
// opcode that triggers it, so it never needs to reason about what an
// arbitrary earlier sub-expression computed — it only looks at the last
// one or two instructions that pushed its operands.
func peephole(f *bytecode.Function) bool {
	if len(f.Instrs) == 0 {
		return false
	}
	protected := branchTargets(f.Instrs)
	in := f.Instrs
	out := make([]bytecode.Instr, 0, len(in))
	remap := make([]int, len(in)+1)
	changed := false

	type branchFixup struct {
		outIdx    int
		origTarget int
	}
	var fixups []branchFixup

	i := 0
	for i < len(in) {
		remap[i] = len(out)
		if rewritten, consumed, ok := matchWindow(f, in, i, protected); ok {
			out = append(out, rewritten...)
			for k := 1; k < consumed; k++ {
				remap[i+k] = -1
			}
			i += consumed
			changed = true
			continue
		}
		if in[i].Op == bytecode.OpGoto || in[i].Op == bytecode.OpIf {
			fixups = append(fixups, branchFixup{outIdx: len(out), origTarget: i + 1 + int(in[i].Arg)})
		}
		out = append(out, in[i])
		i++
	}
	remap[len(in)] = len(out)
	if !changed {
		return false
	}

	for _, fx := range fixups {
		nt := remap[fx.origTarget]
		if nt < 0 {
			nt = remap[len(in)]
		}
		out[fx.outIdx].Arg = int32(nt - fx.outIdx - 1)
	}
	f.Instrs = out
	return true
}

// matchWindow tries every pattern starting at index i; it returns the
// replacement instructions, how many original instructions they consume,
// and whether any pattern matched.
func matchWindow(f *bytecode.Function, in []bytecode.Instr, i int, protected map[int]bool) ([]bytecode.Instr, int, bool) {
	at := func(k int) (bytecode.Instr, bool) {
		j := i + k
		if j >= len(in) {
			return bytecode.Instr{}, false
		}
		return in[j], true
	}
	unprotectedInterior := func(n int) bool {
		for k := 1; k < n; k++ {
			if protected[i+k] {
				return false
			}
		}
		return true
	}

	a, aok := at(0)
	b, bok := at(1)
	c, cok := at(2)

	// load_const X; load_const Y; BinOp -> load_const Z
	if aok && bok && cok && a.Op == bytecode.OpLoadConst && b.Op == bytecode.OpLoadConst && isBinOp(c.Op) && unprotectedInterior(3) {
		if z, ok := foldBinary(c.Op, f.Constants[a.Arg], f.Constants[b.Arg]); ok {
			return []bytecode.Instr{{Op: bytecode.OpLoadConst, Arg: int32(internConst(f, z))}}, 3, true
		}
	}
	// load_const X; UnaryOp -> load_const Z
	if aok && bok && a.Op == bytecode.OpLoadConst && isUnOp(b.Op) && unprotectedInterior(2) {
		if z, ok := foldUnary(b.Op, f.Constants[a.Arg]); ok {
			return []bytecode.Instr{{Op: bytecode.OpLoadConst, Arg: int32(internConst(f, z))}}, 2, true
		}
	}
	// not;not and neg;neg cancel
	if aok && bok && ((a.Op == bytecode.OpNot && b.Op == bytecode.OpNot) || (a.Op == bytecode.OpNeg && b.Op == bytecode.OpNeg)) && unprotectedInterior(2) {
		return nil, 2, true
	}
	// store_local i; load_local i -> dup; store_local i
	if aok && bok && a.Op == bytecode.OpStoreLocal && b.Op == bytecode.OpLoadLocal && a.Arg == b.Arg && unprotectedInterior(2) {
		return []bytecode.Instr{{Op: bytecode.OpDup}, {Op: bytecode.OpStoreLocal, Arg: a.Arg}}, 2, true
	}
	// X; load_const 2; mul -> X; dup; add  (strength reduction)
	if aok && bok && a.Op == bytecode.OpLoadConst && b.Op == bytecode.OpMul && unprotectedInterior(2) {
		if k := f.Constants[a.Arg]; k.Kind == bytecode.ConstInt && k.Int == 2 {
			return []bytecode.Instr{{Op: bytecode.OpDup}, {Op: bytecode.OpAdd}}, 2, true
		}
	}
	// X; load_const K; BinOp  algebraic identities (right-hand constant)
	if aok && bok && a.Op == bytecode.OpLoadConst && isBinOp(b.Op) && unprotectedInterior(2) {
		k := f.Constants[a.Arg]
		if k.Kind == bytecode.ConstInt {
			switch {
			case b.Op == bytecode.OpSub && k.Int == 0:
				return nil, 2, true // drop "load_const 0; sub", x unchanged
			case (b.Op == bytecode.OpMul || b.Op == bytecode.OpDiv) && k.Int == 1:
				return nil, 2, true // drop "load_const 1; mul/div", x unchanged
			case b.Op == bytecode.OpMul && k.Int == 0:
				return []bytecode.Instr{{Op: bytecode.OpPop}, {Op: bytecode.OpLoadConst, Arg: int32(internConst(f, bytecode.Const{Kind: bytecode.ConstInt, Int: 0}))}}, 2, true
			}
		}
	}
	// load_const K; X; mul  (left-hand 0 or 1), X a single instruction
	if aok && bok && cok && a.Op == bytecode.OpLoadConst && c.Op == bytecode.OpMul && instrPushesOne(b.Op) && unprotectedInterior(3) {
		k := f.Constants[a.Arg]
		if k.Kind == bytecode.ConstInt {
			switch k.Int {
			case 1:
				return []bytecode.Instr{b}, 3, true
			case 0:
				return []bytecode.Instr{b, {Op: bytecode.OpPop}, {Op: bytecode.OpLoadConst, Arg: int32(internConst(f, bytecode.Const{Kind: bytecode.ConstInt, Int: 0}))}}, 3, true
			}
		}
	}
	// Note: no "load_const 0; X; add -> X" fold here — add is the one
	// arithmetic op that coerces mixed int/string operands (exec.go's add
	// helper), so folding it without knowing X's runtime type would turn
	// "a" + 0 into "a" instead of "a0".

	return nil, 0, false
}

func instrPushesOne(op bytecode.Op) bool {
	switch op {
	case bytecode.OpLoadConst, bytecode.OpLoadFunc, bytecode.OpLoadLocal, bytecode.OpLoadGlobal,
		bytecode.OpPushReference, bytecode.OpAllocRecord, bytecode.OpDup:
		return true
	}
	return false
}

func isBinOp(op bytecode.Op) bool {
	switch op {
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv,
		bytecode.OpGt, bytecode.OpGeq, bytecode.OpEq, bytecode.OpAnd, bytecode.OpOr:
		return true
	}
	return false
}

func isUnOp(op bytecode.Op) bool {
	return op == bytecode.OpNeg || op == bytecode.OpNot
}

func foldBinary(op bytecode.Op, a, b bytecode.Const) (bytecode.Const, bool) {
	switch op {
	case bytecode.OpAdd:
		if a.Kind == bytecode.ConstInt && b.Kind == bytecode.ConstInt {
			return bytecode.Const{Kind: bytecode.ConstInt, Int: a.Int + b.Int}, true
		}
		if a.Kind == bytecode.ConstString && b.Kind == bytecode.ConstString {
			return bytecode.Const{Kind: bytecode.ConstString, Str: a.Str + b.Str}, true
		}
	case bytecode.OpSub:
		if a.Kind == bytecode.ConstInt && b.Kind == bytecode.ConstInt {
			return bytecode.Const{Kind: bytecode.ConstInt, Int: a.Int - b.Int}, true
		}
	case bytecode.OpMul:
		if a.Kind == bytecode.ConstInt && b.Kind == bytecode.ConstInt {
			return bytecode.Const{Kind: bytecode.ConstInt, Int: a.Int * b.Int}, true
		}
	case bytecode.OpDiv:
		if a.Kind == bytecode.ConstInt && b.Kind == bytecode.ConstInt && b.Int != 0 {
			return bytecode.Const{Kind: bytecode.ConstInt, Int: a.Int / b.Int}, true
		}
	case bytecode.OpGt:
		if a.Kind == bytecode.ConstInt && b.Kind == bytecode.ConstInt {
			return bytecode.Const{Kind: bytecode.ConstBool, Bool: a.Int > b.Int}, true
		}
	case bytecode.OpGeq:
		if a.Kind == bytecode.ConstInt && b.Kind == bytecode.ConstInt {
			return bytecode.Const{Kind: bytecode.ConstBool, Bool: a.Int >= b.Int}, true
		}
	case bytecode.OpEq:
		if a.Kind == b.Kind {
			switch a.Kind {
			case bytecode.ConstNone:
				return bytecode.Const{Kind: bytecode.ConstBool, Bool: true}, true
			case bytecode.ConstBool:
				return bytecode.Const{Kind: bytecode.ConstBool, Bool: a.Bool == b.Bool}, true
			case bytecode.ConstInt:
				return bytecode.Const{Kind: bytecode.ConstBool, Bool: a.Int == b.Int}, true
			case bytecode.ConstString:
				return bytecode.Const{Kind: bytecode.ConstBool, Bool: a.Str == b.Str}, true
			}
		}
	case bytecode.OpAnd:
		if a.Kind == bytecode.ConstBool && b.Kind == bytecode.ConstBool {
			return bytecode.Const{Kind: bytecode.ConstBool, Bool: a.Bool && b.Bool}, true
		}
	case bytecode.OpOr:
		if a.Kind == bytecode.ConstBool && b.Kind == bytecode.ConstBool {
			return bytecode.Const{Kind: bytecode.ConstBool, Bool: a.Bool || b.Bool}, true
		}
	}
	return bytecode.Const{}, false
}

func foldUnary(op bytecode.Op, a bytecode.Const) (bytecode.Const, bool) {
	switch op {
	case bytecode.OpNeg:
		if a.Kind == bytecode.ConstInt {
			return bytecode.Const{Kind: bytecode.ConstInt, Int: -a.Int}, true
		}
	case bytecode.OpNot:
		if a.Kind == bytecode.ConstBool {
			return bytecode.Const{Kind: bytecode.ConstBool, Bool: !a.Bool}, true
		}
	}
	return bytecode.Const{}, false
}
