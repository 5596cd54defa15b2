// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lower translates a Function's stack-form instruction stream into
// the three-address register form the execution engine actually runs
// (spec.md §4.4). Lowering happens lazily, once per Function, the first
// time it is called.
package lower

import (
	"fmt"

	"github.com/langvm/langvm/internal/bytecode"
)

// Lower populates f.Reg and f.RegCount from f.Instrs if they are not
// already populated. It is idempotent and safe to call on every entry to
// a Function.
func Lower(f *bytecode.Function) error {
	if f.Reg != nil {
		return nil
	}
	reg, count, err := lowerFunc(f)
	if err != nil {
		return err
	}
	f.Reg = reg
	f.RegCount = count
	return nil
}

type fixup struct {
	regIdx    int // index into the emitted register stream needing a patch
	targetOld int // original stack-form index the branch targets
}

type lowering struct {
	f *bytecode.Function

	nextReg int32
	stack   []int32 // symbolic stack of register indices

	out []bytecode.RInstr

	// pcMap[i] is the register-stream index of the first emitted
	// instruction for original stack-form index i.
	pcMap  []int
	fixups []fixup
}

func lowerFunc(f *bytecode.Function) ([]bytecode.RInstr, int, error) {
	l := &lowering{
		f:       f,
		nextReg: int32(len(f.Locals)),
		pcMap:   make([]int, len(f.Instrs)+1),
	}
	for i := 0; i < len(f.Locals); i++ {
		l.stack = nil // locals are addressed by index, not pushed
	}

	for i, in := range f.Instrs {
		l.pcMap[i] = len(l.out)
		if err := l.lowerOne(i, in); err != nil {
			return nil, 0, err
		}
	}
	l.pcMap[len(f.Instrs)] = len(l.out)

	for _, fx := range l.fixups {
		target := l.pcMap[fx.targetOld]
		l.out[fx.regIdx].Arg = int32(target - fx.regIdx - 1)
	}

	maxReg := int32(len(f.Locals)) - 1
	for _, in := range l.out {
		if in.Dst > maxReg {
			maxReg = in.Dst
		}
	}
	return l.out, int(maxReg) + 1, nil
}

func (l *lowering) freshReg() int32 {
	r := l.nextReg
	l.nextReg++
	return r
}

func (l *lowering) push(r int32)        { l.stack = append(l.stack, r) }
func (l *lowering) pop() (int32, error) {
	n := len(l.stack)
	if n == 0 {
		return 0, fmt.Errorf("lowering %q: symbolic stack underflow", l.f.Name)
	}
	r := l.stack[n-1]
	l.stack = l.stack[:n-1]
	return r, nil
}

func (l *lowering) emit(in bytecode.RInstr) int {
	l.out = append(l.out, in)
	return len(l.out) - 1
}

func (l *lowering) lowerOne(i int, in bytecode.Instr) error {
	switch in.Op {
	case bytecode.OpLoadConst:
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: bytecode.RLoadConst, Dst: dst, Arg: in.Arg})
		l.push(dst)
	case bytecode.OpLoadFunc:
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: bytecode.RLoadFunc, Dst: dst, Arg: in.Arg})
		l.push(dst)
	case bytecode.OpAllocRecord:
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: bytecode.RAllocRecord, Dst: dst})
		l.push(dst)
	case bytecode.OpLoadLocal:
		l.push(in.Arg)
	case bytecode.OpStoreLocal:
		src, err := l.pop()
		if err != nil {
			return err
		}
		l.emit(bytecode.RInstr{Op: bytecode.RMoveToLocal, Dst: in.Arg, Src1: src})
	case bytecode.OpLoadGlobal:
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: bytecode.RLoadGlobal, Dst: dst, Arg: in.Arg})
		l.push(dst)
	case bytecode.OpStoreGlobal:
		src, err := l.pop()
		if err != nil {
			return err
		}
		l.emit(bytecode.RInstr{Op: bytecode.RStoreGlobal, Src1: src, Arg: in.Arg})
	case bytecode.OpPushReference:
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: bytecode.RPushReference, Dst: dst, Arg: in.Arg})
		l.push(dst)
	case bytecode.OpLoadReference:
		src, err := l.pop()
		if err != nil {
			return err
		}
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: bytecode.RLoadReference, Dst: dst, Src1: src})
		l.push(dst)
	case bytecode.OpStoreReference:
		val, err := l.pop()
		if err != nil {
			return err
		}
		ref, err := l.pop()
		if err != nil {
			return err
		}
		l.emit(bytecode.RInstr{Op: bytecode.RStoreReference, Src1: ref, Src2: val})
	case bytecode.OpFieldLoad:
		rec, err := l.pop()
		if err != nil {
			return err
		}
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: bytecode.RFieldLoad, Dst: dst, Src1: rec, Arg: in.Arg})
		l.push(dst)
	case bytecode.OpFieldStore:
		val, err := l.pop()
		if err != nil {
			return err
		}
		rec, err := l.pop()
		if err != nil {
			return err
		}
		l.emit(bytecode.RInstr{Op: bytecode.RFieldStore, Src1: rec, Src2: val, Arg: in.Arg})
	case bytecode.OpIndexLoad:
		idx, err := l.pop()
		if err != nil {
			return err
		}
		rec, err := l.pop()
		if err != nil {
			return err
		}
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: bytecode.RIndexLoad, Dst: dst, Src1: rec, Src2: idx})
		l.push(dst)
	case bytecode.OpIndexStore:
		val, err := l.pop()
		if err != nil {
			return err
		}
		idx, err := l.pop()
		if err != nil {
			return err
		}
		rec, err := l.pop()
		if err != nil {
			return err
		}
		// index_store needs three register operands (record, index, value);
		// Dst is repurposed to carry the value register since this op never
		// produces a result.
		l.emit(bytecode.RInstr{Op: bytecode.RIndexStore, Dst: val, Src1: rec, Src2: idx})
	case bytecode.OpAllocClosure:
		freeCount := int(in.Arg)
		cells := make([]int32, freeCount)
		for k := freeCount - 1; k >= 0; k-- {
			r, err := l.pop()
			if err != nil {
				return err
			}
			cells[k] = r
		}
		fnReg, err := l.pop()
		if err != nil {
			return err
		}
		base := l.nextReg
		for _, c := range cells {
			dst := l.freshReg()
			l.emit(bytecode.RInstr{Op: bytecode.RMoveToLocal, Dst: dst, Src1: c})
		}
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: bytecode.RAllocClosure, Dst: dst, Src1: fnReg, Src2: base, Arg: int32(freeCount)})
		l.push(dst)
	case bytecode.OpCall:
		argCount := int(in.Arg)
		args := make([]int32, argCount)
		for k := argCount - 1; k >= 0; k-- {
			r, err := l.pop()
			if err != nil {
				return err
			}
			args[k] = r
		}
		callee, err := l.pop()
		if err != nil {
			return err
		}
		base := l.nextReg
		for _, a := range args {
			dst := l.freshReg()
			l.emit(bytecode.RInstr{Op: bytecode.RMoveToLocal, Dst: dst, Src1: a})
		}
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: bytecode.RCall, Dst: dst, Src1: callee, Src2: base, Arg: int32(argCount)})
		l.push(dst)
	case bytecode.OpReturn:
		src, err := l.pop()
		if err != nil {
			return err
		}
		l.emit(bytecode.RInstr{Op: bytecode.RReturn, Src1: src})
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv,
		bytecode.OpGt, bytecode.OpGeq, bytecode.OpEq, bytecode.OpAnd, bytecode.OpOr:
		b, err := l.pop()
		if err != nil {
			return err
		}
		a, err := l.pop()
		if err != nil {
			return err
		}
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: binToReg(in.Op), Dst: dst, Src1: a, Src2: b})
		l.push(dst)
	case bytecode.OpNeg, bytecode.OpNot:
		a, err := l.pop()
		if err != nil {
			return err
		}
		dst := l.freshReg()
		l.emit(bytecode.RInstr{Op: unToReg(in.Op), Dst: dst, Src1: a})
		l.push(dst)
	case bytecode.OpGoto:
		idx := l.emit(bytecode.RInstr{Op: bytecode.RGoto})
		l.fixups = append(l.fixups, fixup{regIdx: idx, targetOld: i + 1 + int(in.Arg)})
	case bytecode.OpIf:
		src, err := l.pop()
		if err != nil {
			return err
		}
		idx := l.emit(bytecode.RInstr{Op: bytecode.RIf, Src1: src})
		l.fixups = append(l.fixups, fixup{regIdx: idx, targetOld: i + 1 + int(in.Arg)})
	case bytecode.OpDup:
		top, err := l.pop()
		if err != nil {
			return err
		}
		l.push(top)
		l.push(top)
	case bytecode.OpSwap:
		n := len(l.stack)
		if n < 2 {
			return fmt.Errorf("lowering %q: swap on stack of size %d", l.f.Name, n)
		}
		l.stack[n-1], l.stack[n-2] = l.stack[n-2], l.stack[n-1]
	case bytecode.OpPop:
		if _, err := l.pop(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("lowering %q: unsupported stack opcode %v", l.f.Name, in.Op)
	}
	return nil
}

func binToReg(op bytecode.Op) bytecode.RegOp {
	switch op {
	case bytecode.OpAdd:
		return bytecode.RAdd
	case bytecode.OpSub:
		return bytecode.RSub
	case bytecode.OpMul:
		return bytecode.RMul
	case bytecode.OpDiv:
		return bytecode.RDiv
	case bytecode.OpGt:
		return bytecode.RGt
	case bytecode.OpGeq:
		return bytecode.RGeq
	case bytecode.OpEq:
		return bytecode.REq
	case bytecode.OpAnd:
		return bytecode.RAnd
	case bytecode.OpOr:
		return bytecode.ROr
	}
	panic("unreachable")
}

func unToReg(op bytecode.Op) bytecode.RegOp {
	switch op {
	case bytecode.OpNeg:
		return bytecode.RNeg
	case bytecode.OpNot:
		return bytecode.RNot
	}
	panic("unreachable")
}
