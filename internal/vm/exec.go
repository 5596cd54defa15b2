// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"strconv"

	"github.com/langvm/langvm/internal/bytecode"
	"github.com/langvm/langvm/internal/value"
)

// run is the engine's single-function decode loop (spec.md §4.5
// "Dispatch"): a Go switch plays the role of the table of labels, the
// register slice plays "hot state kept in registers", and pc advances by
// one unless an opcode computed its own next pc (goto/if).
func (vm *VM) run(fr *frame) (value.Value, error) {
	fn := fr.fn
	for fr.pc < len(fn.Reg) {
		in := fn.Reg[fr.pc]
		switch in.Op {
		case bytecode.RLoadConst:
			fr.regs[in.Dst] = fromConst(fn.Constants[in.Arg])
		case bytecode.RLoadFunc:
			fr.regs[in.Dst] = value.Func(fn.Functions[in.Arg])
		case bytecode.RLoadGlobal:
			name := fn.Names[in.Arg]
			v, ok := vm.globals[name]
			if !ok {
				return value.None, newError(UninitializedVariable, "global %q read before assignment", name)
			}
			fr.regs[in.Dst] = v
		case bytecode.RStoreGlobal:
			vm.globals[fn.Names[in.Arg]] = fr.regs[in.Src1]
		case bytecode.RPushReference:
			cell, err := vm.resolveRef(fr, int(in.Arg))
			if err != nil {
				return value.None, err
			}
			fr.regs[in.Dst] = value.Ref(cell)
		case bytecode.RLoadReference:
			ref, ok := fr.regs[in.Src1].AsReference()
			if !ok {
				return value.None, newError(IllegalCast, "load_reference on a %s, not a Reference", fr.regs[in.Src1].Kind())
			}
			fr.regs[in.Dst] = ref.V
		case bytecode.RStoreReference:
			ref, ok := fr.regs[in.Src1].AsReference()
			if !ok {
				return value.None, newError(IllegalCast, "store_reference on a %s, not a Reference", fr.regs[in.Src1].Kind())
			}
			val := fr.regs[in.Src2]
			ref.V = val
			vm.heap.WriteBarrier(ref, val.HeapObject())
		case bytecode.RAllocRecord:
			rec, err := vm.allocRecord()
			if err != nil {
				return value.None, err
			}
			fr.regs[in.Dst] = value.Rec(rec)
		case bytecode.RFieldLoad:
			rec, ok := fr.regs[in.Src1].AsRecord()
			if !ok {
				return value.None, newError(IllegalCast, "field access on a %s, not a Record", fr.regs[in.Src1].Kind())
			}
			fr.regs[in.Dst] = rec.Fields[fn.Names[in.Arg]]
		case bytecode.RFieldStore:
			rec, ok := fr.regs[in.Src1].AsRecord()
			if !ok {
				return value.None, newError(IllegalCast, "field assignment on a %s, not a Record", fr.regs[in.Src1].Kind())
			}
			val := fr.regs[in.Src2]
			rec.Fields[fn.Names[in.Arg]] = val
			vm.heap.WriteBarrier(rec, val.HeapObject())
		case bytecode.RIndexLoad:
			rec, ok := fr.regs[in.Src1].AsRecord()
			if !ok {
				return value.None, newError(IllegalCast, "index access on a %s, not a Record", fr.regs[in.Src1].Kind())
			}
			key, err := indexKey(fr.regs[in.Src2])
			if err != nil {
				return value.None, err
			}
			fr.regs[in.Dst] = rec.Fields[key]
		case bytecode.RIndexStore:
			// lowering repurposes Dst to carry the value register for this
			// op, since index_store never produces a result of its own.
			rec, ok := fr.regs[in.Src1].AsRecord()
			if !ok {
				return value.None, newError(IllegalCast, "index assignment on a %s, not a Record", fr.regs[in.Src1].Kind())
			}
			key, err := indexKey(fr.regs[in.Src2])
			if err != nil {
				return value.None, err
			}
			val := fr.regs[in.Dst]
			rec.Fields[key] = val
			vm.heap.WriteBarrier(rec, val.HeapObject())
		case bytecode.RAllocClosure:
			fnVal, ok := fr.regs[in.Src1].AsFunc()
			if !ok {
				return value.None, newError(IllegalCast, "alloc_closure function operand is a %s, not a Function", fr.regs[in.Src1].Kind())
			}
			freeCount := int(in.Arg)
			cells := make([]*value.Reference, freeCount)
			for k := 0; k < freeCount; k++ {
				c, ok := fr.regs[in.Src2+int32(k)].AsReference()
				if !ok {
					return value.None, newError(IllegalCast, "alloc_closure capture %d is a %s, not a Reference", k, fr.regs[in.Src2+int32(k)].Kind())
				}
				cells[k] = c
			}
			clo, err := vm.allocClosure(fnVal, cells)
			if err != nil {
				return value.None, err
			}
			for _, c := range cells {
				vm.heap.WriteBarrier(clo, c)
			}
			fr.regs[in.Dst] = value.Clo(clo)
		case bytecode.RCall:
			argCount := int(in.Arg)
			args := make([]value.Value, argCount)
			copy(args, fr.regs[in.Src2:int(in.Src2)+argCount])
			result, err := vm.call(fr.regs[in.Src1], args)
			if err != nil {
				return value.None, err
			}
			fr.regs[in.Dst] = result
		case bytecode.RReturn:
			return fr.regs[in.Src1], nil
		case bytecode.RAdd, bytecode.RSub, bytecode.RMul, bytecode.RDiv,
			bytecode.RGt, bytecode.RGeq, bytecode.REq, bytecode.RAnd, bytecode.ROr:
			result, err := binOp(in.Op, fr.regs[in.Src1], fr.regs[in.Src2])
			if err != nil {
				return value.None, err
			}
			fr.regs[in.Dst] = result
		case bytecode.RNeg, bytecode.RNot:
			result, err := unOp(in.Op, fr.regs[in.Src1])
			if err != nil {
				return value.None, err
			}
			fr.regs[in.Dst] = result
		case bytecode.RGoto:
			fr.pc += 1 + int(in.Arg)
			continue
		case bytecode.RIf:
			cond, ok := fr.regs[in.Src1].AsBool()
			if !ok {
				return value.None, newError(IllegalCast, "if condition is a %s, not a Boolean", fr.regs[in.Src1].Kind())
			}
			if cond {
				fr.pc += 1 + int(in.Arg)
				continue
			}
		case bytecode.RMove:
			fr.regs[in.Dst] = fr.regs[in.Src1]
		case bytecode.RMoveToLocal:
			val := fr.regs[in.Src1]
			fr.regs[in.Dst] = val
			if cell, ok := fr.cellForSlot(in.Dst); ok {
				cell.V = val
				vm.heap.WriteBarrier(cell, val.HeapObject())
			}
		default:
			return value.None, newError(Runtime, "unsupported register opcode %v", in.Op)
		}
		fr.pc++
	}
	return value.None, newError(Runtime, "function %q fell off its instruction stream without a return", fn.Name)
}

// resolveRef implements push_reference's two-table addressing (spec.md
// §4.5): indices below len(RefLocals) name this frame's own captured
// locals, indices at or beyond that name the closure environment.
func (vm *VM) resolveRef(fr *frame, idx int) (*value.Reference, error) {
	if idx < len(fr.refCells) {
		return fr.refCells[idx], nil
	}
	envIdx := idx - len(fr.refCells)
	if envIdx < 0 || envIdx >= len(fr.env) {
		return nil, newError(Runtime, "reference index %d out of range", idx)
	}
	return fr.env[envIdx], nil
}

func fromConst(c bytecode.Const) value.Value {
	switch c.Kind {
	case bytecode.ConstNone:
		return value.None
	case bytecode.ConstBool:
		return value.Bool(c.Bool)
	case bytecode.ConstInt:
		return value.Int(c.Int)
	case bytecode.ConstString:
		return value.Str(c.Str)
	}
	return value.None
}

// indexKey converts an index_load/index_store operand into the string key
// this language's Records are keyed by — there is no separate array type,
// so bracket indexing and dotted field access address the same map,
// distinguished only by whether the key is computed (index) or literal
// (field).
func indexKey(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindInt:
		n, _ := v.AsInt()
		return strconv.FormatInt(int64(n), 10), nil
	case value.KindString:
		s, _ := v.AsString()
		return s, nil
	}
	return "", newError(IllegalCast, "index operand is a %s, not an Integer or String", v.Kind())
}

func binOp(op bytecode.RegOp, a, b value.Value) (value.Value, error) {
	switch op {
	case bytecode.RAdd:
		return add(a, b)
	case bytecode.REq:
		return value.Bool(value.Equal(a, b)), nil
	case bytecode.RAnd, bytecode.ROr:
		ab, ok1 := a.AsBool()
		bb, ok2 := b.AsBool()
		if !ok1 || !ok2 {
			return value.None, newError(IllegalCast, "%v operands must be Boolean", op)
		}
		if op == bytecode.RAnd {
			return value.Bool(ab && bb), nil
		}
		return value.Bool(ab || bb), nil
	}
	ai, ok1 := a.AsInt()
	bi, ok2 := b.AsInt()
	if !ok1 || !ok2 {
		return value.None, newError(IllegalCast, "%v operands must be Integer", op)
	}
	switch op {
	case bytecode.RSub:
		return value.Int(ai - bi), nil
	case bytecode.RMul:
		return value.Int(ai * bi), nil
	case bytecode.RDiv:
		if bi == 0 {
			return value.None, newError(IllegalArithmetic, "division by zero")
		}
		return value.Int(ai / bi), nil
	case bytecode.RGt:
		return value.Bool(ai > bi), nil
	case bytecode.RGeq:
		return value.Bool(ai >= bi), nil
	}
	return value.None, newError(Runtime, "unhandled binary opcode %v", op)
}

// add implements spec.md §9's `+` rule: Integer+Integer adds, String+String
// concatenates, and a mixed Integer/String pair coerces the non-string
// operand via stringification before concatenating.
func add(a, b value.Value) (value.Value, error) {
	if ai, ok := a.AsInt(); ok {
		if bi, ok := b.AsInt(); ok {
			return value.Int(ai + bi), nil
		}
	}
	if _, ok := a.AsString(); ok {
		return value.Str(a.String() + b.String()), nil
	}
	if _, ok := b.AsString(); ok {
		return value.Str(a.String() + b.String()), nil
	}
	return value.None, newError(IllegalCast, "+ operands must be Integer or String, got %s and %s", a.Kind(), b.Kind())
}

func unOp(op bytecode.RegOp, a value.Value) (value.Value, error) {
	switch op {
	case bytecode.RNeg:
		n, ok := a.AsInt()
		if !ok {
			return value.None, newError(IllegalCast, "neg operand is a %s, not an Integer", a.Kind())
		}
		return value.Int(-n), nil
	case bytecode.RNot:
		b, ok := a.AsBool()
		if !ok {
			return value.None, newError(IllegalCast, "not operand is a %s, not a Boolean", a.Kind())
		}
		return value.Bool(!b), nil
	}
	return value.None, newError(Runtime, "unhandled unary opcode %v", op)
}
