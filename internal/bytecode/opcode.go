// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bytecode defines the Function program model shared by the
// optimizer, the stack→register lowering pass, and the execution engine:
// constant/name/local/free-var pools, nested functions, and the stack-form
// and register-form instruction streams (spec.md §4.2).
package bytecode

// Op is a stack-form opcode.
type Op uint8

const (
	OpLoadConst Op = iota
	OpLoadFunc
	OpLoadLocal
	OpStoreLocal
	OpLoadGlobal
	OpStoreGlobal
	OpPushReference
	OpLoadReference
	OpStoreReference
	OpAllocRecord
	OpFieldLoad
	OpFieldStore
	OpIndexLoad
	OpIndexStore
	OpAllocClosure
	OpCall
	OpReturn
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpGt
	OpGeq
	OpEq
	OpAnd
	OpOr
	OpNot
	OpGoto
	OpIf
	OpDup
	OpSwap
	OpPop
)

var opNames = [...]string{
	OpLoadConst:      "load_const",
	OpLoadFunc:       "load_func",
	OpLoadLocal:      "load_local",
	OpStoreLocal:     "store_local",
	OpLoadGlobal:     "load_global",
	OpStoreGlobal:    "store_global",
	OpPushReference:  "push_reference",
	OpLoadReference:  "load_reference",
	OpStoreReference: "store_reference",
	OpAllocRecord:    "alloc_record",
	OpFieldLoad:      "field_load",
	OpFieldStore:     "field_store",
	OpIndexLoad:      "index_load",
	OpIndexStore:     "index_store",
	OpAllocClosure:   "alloc_closure",
	OpCall:           "call",
	OpReturn:         "return",
	OpAdd:            "add",
	OpSub:            "sub",
	OpMul:            "mul",
	OpDiv:            "div",
	OpNeg:            "neg",
	OpGt:             "gt",
	OpGeq:            "geq",
	OpEq:             "eq",
	OpAnd:            "and",
	OpOr:             "or",
	OpNot:            "not",
	OpGoto:           "goto",
	OpIf:             "if",
	OpDup:            "dup",
	OpSwap:           "swap",
	OpPop:            "pop",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return "op(?)"
}

// HasImmediate reports whether op always carries a meaningful integer
// immediate (an index or a relative offset). Binary/unary ops and stack
// shuffles never do.
func (op Op) HasImmediate() bool {
	switch op {
	case OpLoadConst, OpLoadFunc, OpLoadLocal, OpStoreLocal,
		OpLoadGlobal, OpStoreGlobal, OpPushReference,
		OpFieldLoad, OpFieldStore, OpAllocClosure, OpCall,
		OpGoto, OpIf:
		return true
	}
	return false
}

// Falls reports whether op, absent an explicit control-transfer, falls
// through to the next instruction. goto and return never do; if forks to
// both (fall-through and the branch target).
func (op Op) Falls() bool {
	return op != OpGoto && op != OpReturn
}

// Instr is one stack-form instruction: an opcode plus its optional integer
// immediate (a pool index or a signed relative branch offset).
type Instr struct {
	Op  Op
	Arg int32
}

// RegOp is a register-form (three-address) opcode, emitted by the
// stack→register lowering pass (spec.md §4.4) from the stack-form stream
// above. Most stack opcodes map onto themselves; a handful of
// lowering-only pseudo-ops (MoveToLocal) have no stack-form counterpart.
type RegOp uint8

const (
	RLoadConst RegOp = iota
	RLoadFunc
	RLoadGlobal
	RStoreGlobal
	RPushReference
	RLoadReference
	RStoreReference
	RAllocRecord
	RFieldLoad
	RFieldStore
	RIndexLoad
	RIndexStore
	RAllocClosure
	RCall
	RReturn
	RAdd
	RSub
	RMul
	RDiv
	RNeg
	RGt
	RGeq
	REq
	RAnd
	ROr
	RNot
	RGoto
	RIf
	RMove // unconditional register-to-register copy; also used by LICM hoists
	RMoveToLocal
)

var regOpNames = [...]string{
	RLoadConst:      "r_load_const",
	RLoadFunc:       "r_load_func",
	RLoadGlobal:     "r_load_global",
	RStoreGlobal:    "r_store_global",
	RPushReference:  "r_push_reference",
	RLoadReference:  "r_load_reference",
	RStoreReference: "r_store_reference",
	RAllocRecord:    "r_alloc_record",
	RFieldLoad:      "r_field_load",
	RFieldStore:     "r_field_store",
	RIndexLoad:      "r_index_load",
	RIndexStore:     "r_index_store",
	RAllocClosure:   "r_alloc_closure",
	RCall:           "r_call",
	RReturn:         "r_return",
	RAdd:            "r_add",
	RSub:            "r_sub",
	RMul:            "r_mul",
	RDiv:            "r_div",
	RNeg:            "r_neg",
	RGt:             "r_gt",
	RGeq:            "r_geq",
	REq:             "r_eq",
	RAnd:            "r_and",
	ROr:             "r_or",
	RNot:            "r_not",
	RGoto:           "r_goto",
	RIf:             "r_if",
	RMove:           "r_move",
	RMoveToLocal:    "r_move_to_local",
}

func (op RegOp) String() string {
	if int(op) < len(regOpNames) && regOpNames[op] != "" {
		return regOpNames[op]
	}
	return "r_op(?)"
}

// IsPure reports whether op has no side effect and always produces the same
// result given the same operand register values — the condition LICM
// (spec.md §4.3 pass 7) requires to hoist an instruction out of a loop.
func (op RegOp) IsPure() bool {
	switch op {
	case RAdd, RSub, RMul, RDiv, RNeg, RGt, RGeq, REq, RAnd, ROr, RNot,
		RLoadConst, RLoadFunc, RLoadLocalAlias, RLoadGlobal, RFieldLoad, RIndexLoad, RMove:
		return true
	}
	return false
}

// RLoadLocalAlias exists only so IsPure's switch above can name "reading a
// local register" without a dedicated register-form opcode: locals live
// directly in registers after lowering, so there is no load instruction for
// them, only the register index itself. It is never actually emitted.
const RLoadLocalAlias RegOp = 255

// RInstr is one register-form (three-address) instruction.
type RInstr struct {
	Op   RegOp
	Dst  int32
	Src1 int32
	Src2 int32
	Arg  int32 // pool index or relative branch offset, op-dependent
}
