// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"bytes"
	"testing"

	"github.com/langvm/langvm/internal/bytecode"
	"github.com/langvm/langvm/internal/value"
)

// regFunc builds a Function with its register form already populated,
// bypassing lower.Lower entirely — these tests exercise the dispatch loop
// directly rather than the stack-form lowering path.
func regFunc(name string, regCount int, reg []bytecode.RInstr) *bytecode.Function {
	return &bytecode.Function{
		Name:     name,
		Reg:      reg,
		RegCount: regCount,
	}
}

func runTop(t *testing.T, top *bytecode.Function) (value.Value, *Error) {
	t.Helper()
	m := New(Config{})
	var stdout bytes.Buffer
	m.stdout = &stdout
	v, err := m.call(value.Func(top), nil)
	if err == nil {
		return v, nil
	}
	vmErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *vm.Error, got %T: %v", err, err)
	}
	return v, vmErr
}

func TestArithmetic(t *testing.T) {
	top := regFunc("main", 3, []bytecode.RInstr{
		{Op: bytecode.RLoadConst, Dst: 0, Arg: 0}, // 7
		{Op: bytecode.RLoadConst, Dst: 1, Arg: 1}, // 5
		{Op: bytecode.RAdd, Dst: 2, Src1: 0, Src2: 1},
		{Op: bytecode.RReturn, Src1: 2},
	})
	top.Constants = []bytecode.Const{
		{Kind: bytecode.ConstInt, Int: 7},
		{Kind: bytecode.ConstInt, Int: 5},
	}
	v, err := runTop(t, top)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := v.AsInt()
	if !ok || n != 12 {
		t.Fatalf("expected 12, got %v", v)
	}
}

func TestDivisionByZero(t *testing.T) {
	top := regFunc("main", 3, []bytecode.RInstr{
		{Op: bytecode.RLoadConst, Dst: 0, Arg: 0}, // 9
		{Op: bytecode.RLoadConst, Dst: 1, Arg: 1}, // 0
		{Op: bytecode.RDiv, Dst: 2, Src1: 0, Src2: 1},
		{Op: bytecode.RReturn, Src1: 2},
	})
	top.Constants = []bytecode.Const{
		{Kind: bytecode.ConstInt, Int: 9},
		{Kind: bytecode.ConstInt, Int: 0},
	}
	_, err := runTop(t, top)
	if err == nil || err.Kind != IllegalArithmetic {
		t.Fatalf("expected IllegalArithmetic, got %v", err)
	}
}

func TestStringConcatAndCoercion(t *testing.T) {
	top := regFunc("main", 3, []bytecode.RInstr{
		{Op: bytecode.RLoadConst, Dst: 0, Arg: 0}, // "x="
		{Op: bytecode.RLoadConst, Dst: 1, Arg: 1}, // 2
		{Op: bytecode.RAdd, Dst: 2, Src1: 0, Src2: 1},
		{Op: bytecode.RReturn, Src1: 2},
	})
	top.Constants = []bytecode.Const{
		{Kind: bytecode.ConstString, Str: "x="},
		{Kind: bytecode.ConstInt, Int: 2},
	}
	v, err := runTop(t, top)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := v.AsString()
	if !ok || s != "x=2" {
		t.Fatalf("expected %q, got %v", "x=2", v)
	}
}

func TestUninitializedGlobal(t *testing.T) {
	top := regFunc("main", 1, []bytecode.RInstr{
		{Op: bytecode.RLoadGlobal, Dst: 0, Arg: 0},
		{Op: bytecode.RReturn, Src1: 0},
	})
	top.Names = []string{"undefined_thing"}
	_, err := runTop(t, top)
	if err == nil || err.Kind != UninitializedVariable {
		t.Fatalf("expected UninitializedVariable, got %v", err)
	}
}

func TestRecordFieldRoundTrip(t *testing.T) {
	top := regFunc("main", 3, []bytecode.RInstr{
		{Op: bytecode.RAllocRecord, Dst: 0},
		{Op: bytecode.RLoadConst, Dst: 1, Arg: 0}, // 99
		{Op: bytecode.RFieldStore, Src1: 0, Src2: 1, Arg: 0},
		{Op: bytecode.RFieldLoad, Dst: 2, Src1: 0, Arg: 0},
		{Op: bytecode.RReturn, Src1: 2},
	})
	top.Constants = []bytecode.Const{{Kind: bytecode.ConstInt, Int: 99}}
	top.Names = []string{"count"}
	v, err := runTop(t, top)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := v.AsInt()
	if !ok || n != 99 {
		t.Fatalf("expected 99, got %v", v)
	}
}

func TestIndexOnNonRecordIsIllegalCast(t *testing.T) {
	top := regFunc("main", 2, []bytecode.RInstr{
		{Op: bytecode.RLoadConst, Dst: 0, Arg: 0}, // 5, not a Record
		{Op: bytecode.RLoadConst, Dst: 1, Arg: 1}, // "k"
		{Op: bytecode.RIndexLoad, Dst: 1, Src1: 0, Src2: 1},
		{Op: bytecode.RReturn, Src1: 1},
	})
	top.Constants = []bytecode.Const{
		{Kind: bytecode.ConstInt, Int: 5},
		{Kind: bytecode.ConstString, Str: "k"},
	}
	_, err := runTop(t, top)
	if err == nil || err.Kind != IllegalCast {
		t.Fatalf("expected IllegalCast, got %v", err)
	}
}

func TestGotoSkipsDeadBranch(t *testing.T) {
	// goto +1 (skip the next instruction); load_const 0 (1); load_const 1 (2); return reg holding 2.
	top := regFunc("main", 2, []bytecode.RInstr{
		{Op: bytecode.RGoto, Arg: 1},
		{Op: bytecode.RLoadConst, Dst: 0, Arg: 0}, // skipped
		{Op: bytecode.RLoadConst, Dst: 1, Arg: 1},
		{Op: bytecode.RReturn, Src1: 1},
	})
	top.Constants = []bytecode.Const{
		{Kind: bytecode.ConstInt, Int: 111},
		{Kind: bytecode.ConstInt, Int: 2},
	}
	v, err := runTop(t, top)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, _ := v.AsInt()
	if n != 2 {
		t.Fatalf("expected 2 (skipped branch), got %v", v)
	}
}

func TestLoopCountsDown(t *testing.T) {
	// locals: reg0=n (param). while n > 0 { n := n - 1 }; return n.
	// 0: r1 = const(0)
	// 1: r2 = gt(r0, r1)
	// 2: if r2 -> +1 (goto 4)
	// 3: goto +3 (to the return, index 7)
	// 4: r3 = const(1)
	// 5: r0 = sub(r0, r3)
	// 6: goto back to 0   (target 0, index 6: 0 - 6 - 1 = -7)
	// 7: return r0
	reg := []bytecode.RInstr{
		{Op: bytecode.RLoadConst, Dst: 1, Arg: 0},
		{Op: bytecode.RGt, Dst: 2, Src1: 0, Src2: 1},
		{Op: bytecode.RIf, Src1: 2, Arg: 1},
		{Op: bytecode.RGoto, Arg: 3},
		{Op: bytecode.RLoadConst, Dst: 3, Arg: 1},
		{Op: bytecode.RSub, Dst: 0, Src1: 0, Src2: 3},
		{Op: bytecode.RGoto},
		{Op: bytecode.RReturn, Src1: 0},
	}
	reg[6].Arg = int32(0 - 6 - 1)
	top := regFunc("main", 4, reg)
	top.Constants = []bytecode.Const{
		{Kind: bytecode.ConstInt, Int: 0},
		{Kind: bytecode.ConstInt, Int: 1},
	}
	top.RegCount = 4

	m := New(Config{})
	fr := &frame{fn: top, regs: make([]value.Value, top.RegCount), slotCell: map[int32]*value.Reference{}}
	fr.regs[0] = value.Int(5)
	v, err := m.run(fr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, _ := v.AsInt()
	if n != 0 {
		t.Fatalf("expected loop to count down to 0, got %v", v)
	}
}

func TestReferenceCellSharedBetweenClosures(t *testing.T) {
	// Build a Reference cell directly and exercise load/store through it,
	// the way two closures sharing a captured variable would.
	m := New(Config{})
	cell, err := m.allocReference(value.Int(1))
	if err != nil {
		t.Fatalf("allocReference: %v", err)
	}
	fr := &frame{
		fn: regFunc("f", 3, []bytecode.RInstr{
			{Op: bytecode.RPushReference, Dst: 0, Arg: 0},
			{Op: bytecode.RLoadConst, Dst: 1, Arg: 0},
			{Op: bytecode.RStoreReference, Src1: 0, Src2: 1},
			{Op: bytecode.RPushReference, Dst: 2, Arg: 0},
			{Op: bytecode.RLoadReference, Dst: 2, Src1: 2},
			{Op: bytecode.RReturn, Src1: 2},
		}),
		regs:     make([]value.Value, 3),
		refCells: []*value.Reference{cell},
		slotCell: map[int32]*value.Reference{},
	}
	fr.fn.Constants = []bytecode.Const{{Kind: bytecode.ConstInt, Int: 42}}
	v, rerr := m.run(fr)
	if rerr != nil {
		t.Fatalf("unexpected error: %v", rerr)
	}
	n, _ := v.AsInt()
	if n != 42 {
		t.Fatalf("expected 42 via shared cell, got %v", v)
	}
	if got, _ := cell.V.AsInt(); got != 42 {
		t.Fatalf("cell itself should observe the write, got %v", cell.V)
	}
}

func TestSingletonIdentity(t *testing.T) {
	if !value.Equal(value.None, value.None) {
		t.Fatal("None must equal None")
	}
	if !value.Equal(value.True, value.True) || !value.Equal(value.False, value.False) {
		t.Fatal("Boolean singletons must equal themselves")
	}
	if value.Equal(value.True, value.False) {
		t.Fatal("True must not equal False")
	}
}
