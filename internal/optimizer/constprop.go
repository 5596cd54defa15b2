// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimizer

import "github.com/langvm/langvm/internal/bytecode"

// latKind is the abstract lattice spec.md §4.3 pass 2 describes: Bottom
// (not yet seen), Const(v), or Top (known to vary).
type latKind uint8

const (
	latBottom latKind = iota
	latConst
	latTop
)

type lattice struct {
	kind latKind
	c    bytecode.Const
}

// propagateConstants implements spec.md §4.3 pass 2: a per-local lattice is
// evaluated linearly within each basic block (locals go to Top at every
// block boundary, since a value reaching a block from more than one
// predecessor — a loop or a branch merge — cannot be assumed constant). A
// load_local whose local is currently a known constant is rewritten to
// load_const; later peephole folding (pass 3) takes it from there.
func propagateConstants(f *bytecode.Function) bool {
	blocks := basicBlocks(f.Instrs)
	changed := false
	for _, b := range blocks {
		locals := make(map[int]lattice)
		var stack []lattice
		pop := func() lattice {
			if len(stack) == 0 {
				return lattice{kind: latTop}
			}
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			return v
		}
		for i := b.start; i < b.end; i++ {
			in := f.Instrs[i]
			switch in.Op {
			case bytecode.OpLoadConst:
				stack = append(stack, lattice{kind: latConst, c: f.Constants[in.Arg]})
			case bytecode.OpLoadLocal:
				if lv, ok := locals[int(in.Arg)]; ok && lv.kind == latConst {
					idx := internConst(f, lv.c)
					f.Instrs[i] = bytecode.Instr{Op: bytecode.OpLoadConst, Arg: int32(idx)}
					changed = true
					stack = append(stack, lv)
				} else {
					stack = append(stack, lattice{kind: latTop})
				}
			case bytecode.OpStoreLocal:
				locals[int(in.Arg)] = pop()
			case bytecode.OpDup:
				v := pop()
				stack = append(stack, v, v)
			case bytecode.OpSwap:
				if len(stack) >= 2 {
					n := len(stack)
					stack[n-1], stack[n-2] = stack[n-2], stack[n-1]
				}
			case bytecode.OpPop:
				pop()
			case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv,
				bytecode.OpGt, bytecode.OpGeq, bytecode.OpEq, bytecode.OpAnd, bytecode.OpOr:
				pop()
				pop()
				stack = append(stack, lattice{kind: latTop})
			case bytecode.OpNeg, bytecode.OpNot:
				pop()
				stack = append(stack, lattice{kind: latTop})
			case bytecode.OpIf:
				pop()
			case bytecode.OpReturn:
				pop()
			case bytecode.OpFieldStore:
				pop()
				pop()
			case bytecode.OpIndexStore:
				pop()
				pop()
				pop()
			case bytecode.OpFieldLoad:
				pop()
				stack = append(stack, lattice{kind: latTop})
			case bytecode.OpIndexLoad:
				pop()
				pop()
				stack = append(stack, lattice{kind: latTop})
			case bytecode.OpLoadFunc, bytecode.OpAllocRecord, bytecode.OpLoadGlobal, bytecode.OpPushReference:
				stack = append(stack, lattice{kind: latTop})
			case bytecode.OpStoreGlobal, bytecode.OpLoadReference:
				pop()
				if in.Op == bytecode.OpLoadReference {
					stack = append(stack, lattice{kind: latTop})
				}
			case bytecode.OpStoreReference:
				pop()
				pop()
			case bytecode.OpCall:
				for k := 0; k < int(in.Arg); k++ {
					pop()
				}
				pop()
				stack = append(stack, lattice{kind: latTop})
			case bytecode.OpAllocClosure:
				for k := 0; k < int(in.Arg); k++ {
					pop()
				}
				pop()
				stack = append(stack, lattice{kind: latTop})
			}
		}
	}
	return changed
}

// internConst returns the index of c in f.Constants, appending it if it is
// not already present.
func internConst(f *bytecode.Function, c bytecode.Const) int {
	for i, existing := range f.Constants {
		if existing == c {
			return i
		}
	}
	f.Constants = append(f.Constants, c)
	return len(f.Constants) - 1
}
