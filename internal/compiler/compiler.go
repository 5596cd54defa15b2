// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"fmt"

	"github.com/langvm/langvm/internal/bytecode"
	"github.com/langvm/langvm/internal/lang"
)

var builtinNames = [3]string{"print", "input", "intcast"}
var builtinParamCounts = [3]int{1, 0, 1}
var builtinLocals = [3][]string{{"s"}, nil, {"s"}}

// Compile parses and compiles src into the top-level Function a vm.VM can
// run, pre-populated with the print/input/intcast sentinel children at
// Functions[0:3] (spec.md §4.5).
func Compile(src string) (*bytecode.Function, error) {
	prog, err := lang.Parse(src)
	if err != nil {
		return nil, err
	}
	top := buildProgramScope(prog)
	resolveFreeVars(top)
	c := &codegen{}
	return c.compileTop(top, prog.Statements), nil
}

type codegen struct{}

// funcBuilder accumulates one Function's constants, names and
// instructions as codegen walks its AST; branch targets are backpatched
// via here()/patch() using raw instruction indices rather than a
// separate fixup list.
type funcBuilder struct {
	s  *scope
	fn *bytecode.Function
	cm map[bytecode.Const]int32
	nm map[string]int32
}

func (b *funcBuilder) internConst(c bytecode.Const) int32 {
	if idx, ok := b.cm[c]; ok {
		return idx
	}
	idx := int32(len(b.fn.Constants))
	b.fn.Constants = append(b.fn.Constants, c)
	b.cm[c] = idx
	return idx
}

func (b *funcBuilder) internName(name string) int32 {
	if idx, ok := b.nm[name]; ok {
		return idx
	}
	idx := int32(len(b.fn.Names))
	b.fn.Names = append(b.fn.Names, name)
	b.nm[name] = idx
	return idx
}

func (b *funcBuilder) emit(op bytecode.Op, arg int32) int {
	b.fn.Instrs = append(b.fn.Instrs, bytecode.Instr{Op: op, Arg: arg})
	return len(b.fn.Instrs) - 1
}

func (b *funcBuilder) emit0(op bytecode.Op) int { return b.emit(op, 0) }

// here returns a label resolving to the next instruction to be emitted.
func (b *funcBuilder) here() int { return len(b.fn.Instrs) }

func (b *funcBuilder) patch(instrIdx int, target int) {
	b.fn.Instrs[instrIdx].Arg = int32(target - instrIdx - 1)
}

func localIndex(s *scope, name string) (int32, bool) {
	for i, n := range s.locals {
		if n == name {
			return int32(i), true
		}
	}
	return 0, false
}

func freeVarIndex(s *scope, name string) (int32, bool) {
	for i, n := range s.freeVars {
		if n == name {
			return int32(i), true
		}
	}
	return 0, false
}

func refLocalIndex(s *scope, name string) (int32, bool) {
	for i, n := range s.refLocals {
		if n == name {
			return int32(i), true
		}
	}
	return 0, false
}

// compileTop builds the top-level Function, with the three native builtin
// children as Functions[0:3] ahead of any user-defined nested functions.
func (c *codegen) compileTop(top *scope, stmts []lang.Statement) *bytecode.Function {
	fn := &bytecode.Function{Name: "<toplevel>"}
	for i, name := range builtinNames {
		fn.Functions = append(fn.Functions, &bytecode.Function{
			Name:       name,
			ParamCount: builtinParamCounts[i],
			Locals:     append([]string(nil), builtinLocals[i]...),
		})
	}
	b := &funcBuilder{s: top, fn: fn, cm: map[bytecode.Const]int32{}, nm: map[string]int32{}}
	c.compileBody(b, stmts)
	return fn
}

// compileFunc builds one nested Function from its scope, recursively
// compiling any further-nested FuncLits it references.
func (c *codegen) compileFunc(s *scope) *bytecode.Function {
	name := s.lit.Name
	if name == "" {
		name = "<anonymous>"
	}
	fn := &bytecode.Function{
		Name:       name,
		ParamCount: len(s.params),
		Locals:     append([]string(nil), s.locals...),
		RefLocals:  append([]string(nil), s.refLocals...),
		FreeVars:   append([]string(nil), s.freeVars...),
	}
	b := &funcBuilder{s: s, fn: fn, cm: map[bytecode.Const]int32{}, nm: map[string]int32{}}
	c.compileBody(b, s.lit.Body.Statements)
	return fn
}

func (c *codegen) compileBody(b *funcBuilder, stmts []lang.Statement) {
	for _, st := range stmts {
		c.compileStmt(b, st)
	}
	noneIdx := b.internConst(bytecode.Const{Kind: bytecode.ConstNone})
	b.emit(bytecode.OpLoadConst, noneIdx)
	b.emit0(bytecode.OpReturn)
}

func (c *codegen) compileStmt(b *funcBuilder, st lang.Statement) {
	switch n := st.(type) {
	case *lang.GlobalDecl:
		// Purely a compile-time declaration; resolved during scope building.
	case *lang.Assignment:
		c.compileAssignment(b, n)
	case *lang.If:
		c.compileIf(b, n)
	case *lang.While:
		c.compileWhile(b, n)
	case *lang.Return:
		if n.Value != nil {
			c.compileExpr(b, n.Value)
		} else {
			noneIdx := b.internConst(bytecode.Const{Kind: bytecode.ConstNone})
			b.emit(bytecode.OpLoadConst, noneIdx)
		}
		b.emit0(bytecode.OpReturn)
	case *lang.ExprStatement:
		c.compileExpr(b, n.Expr)
		b.emit0(bytecode.OpPop)
	case *lang.Block:
		for _, s := range n.Statements {
			c.compileStmt(b, s)
		}
	default:
		panic(fmt.Sprintf("compiler: unhandled statement %T", st))
	}
}

func (c *codegen) compileIf(b *funcBuilder, n *lang.If) {
	c.compileExpr(b, n.Cond)
	b.emit0(bytecode.OpNot)
	ifIdx := b.emit0(bytecode.OpIf) // taken (branches to else/end) when cond was false
	for _, s := range n.Then.Statements {
		c.compileStmt(b, s)
	}
	gotoIdx := b.emit0(bytecode.OpGoto)
	b.patch(ifIdx, b.here())
	if n.Else != nil {
		for _, s := range n.Else.Statements {
			c.compileStmt(b, s)
		}
	}
	b.patch(gotoIdx, b.here())
}

func (c *codegen) compileWhile(b *funcBuilder, n *lang.While) {
	condStart := b.here()
	c.compileExpr(b, n.Cond)
	b.emit0(bytecode.OpNot)
	ifIdx := b.emit0(bytecode.OpIf) // taken (exits the loop) when cond was false
	for _, s := range n.Body.Statements {
		c.compileStmt(b, s)
	}
	gotoIdx := b.emit0(bytecode.OpGoto)
	b.patch(gotoIdx, condStart)
	b.patch(ifIdx, b.here())
}

func (c *codegen) compileAssignment(b *funcBuilder, n *lang.Assignment) {
	switch target := n.Target.(type) {
	case *lang.Variable:
		if lit, ok := n.Value.(*lang.FuncLit); ok && lit.Name == "" {
			lit.Name = target.Name
		}
		c.compileVariableStore(b, target.Name, n.Value)
	case *lang.FieldAccess:
		c.compileExpr(b, target.Object)
		c.compileExpr(b, n.Value)
		b.emit(bytecode.OpFieldStore, b.internName(target.Name))
	case *lang.IndexExpr:
		c.compileExpr(b, target.Object)
		c.compileExpr(b, target.Index)
		c.compileExpr(b, n.Value)
		b.emit0(bytecode.OpIndexStore)
	default:
		panic(fmt.Sprintf("compiler: invalid assignment target %T", n.Target))
	}
}

func (c *codegen) compileVariableStore(b *funcBuilder, name string, value lang.Expression) {
	s := b.s
	if s.isTop {
		c.compileExpr(b, value)
		b.emit(bytecode.OpStoreGlobal, b.internName(name))
		return
	}
	if idx, ok := localIndex(s, name); ok {
		c.compileExpr(b, value)
		b.emit(bytecode.OpStoreLocal, idx)
		return
	}
	if s.declaredGlobal[name] {
		c.compileExpr(b, value)
		b.emit(bytecode.OpStoreGlobal, b.internName(name))
		return
	}
	if idx, ok := refLocalIndex(s, name); ok {
		b.emit(bytecode.OpPushReference, idx)
		c.compileExpr(b, value)
		b.emit0(bytecode.OpStoreReference)
		return
	}
	if idx, ok := freeVarIndex(s, name); ok {
		b.emit(bytecode.OpPushReference, int32(len(s.refLocals))+idx)
		c.compileExpr(b, value)
		b.emit0(bytecode.OpStoreReference)
		return
	}
	panic(fmt.Sprintf("compiler: assignment target %q resolved to neither a local, a global, nor a capture", name))
}

func (c *codegen) compileExpr(b *funcBuilder, expr lang.Expression) {
	switch n := expr.(type) {
	case *lang.IntLit:
		b.emit(bytecode.OpLoadConst, b.internConst(bytecode.Const{Kind: bytecode.ConstInt, Int: n.Value}))
	case *lang.StringLit:
		b.emit(bytecode.OpLoadConst, b.internConst(bytecode.Const{Kind: bytecode.ConstString, Str: n.Value}))
	case *lang.BoolLit:
		b.emit(bytecode.OpLoadConst, b.internConst(bytecode.Const{Kind: bytecode.ConstBool, Bool: n.Value}))
	case *lang.NoneLit:
		b.emit(bytecode.OpLoadConst, b.internConst(bytecode.Const{Kind: bytecode.ConstNone}))
	case *lang.Variable:
		c.compileVariableLoad(b, n.Name)
	case *lang.BinaryExpr:
		c.compileBinary(b, n)
	case *lang.UnaryExpr:
		c.compileExpr(b, n.Operand)
		if n.Op == lang.Neg {
			b.emit0(bytecode.OpNeg)
		} else {
			b.emit0(bytecode.OpNot)
		}
	case *lang.FieldAccess:
		c.compileExpr(b, n.Object)
		b.emit(bytecode.OpFieldLoad, b.internName(n.Name))
	case *lang.IndexExpr:
		c.compileExpr(b, n.Object)
		c.compileExpr(b, n.Index)
		b.emit0(bytecode.OpIndexLoad)
	case *lang.Call:
		c.compileExpr(b, n.Callee)
		for _, a := range n.Args {
			c.compileExpr(b, a)
		}
		b.emit(bytecode.OpCall, int32(len(n.Args)))
	case *lang.RecordLit:
		b.emit0(bytecode.OpAllocRecord)
		for i, name := range n.Names {
			b.emit0(bytecode.OpDup)
			c.compileExpr(b, n.Values[i])
			b.emit(bytecode.OpFieldStore, b.internName(name))
		}
	case *lang.FuncLit:
		c.compileFuncLit(b, n)
	default:
		panic(fmt.Sprintf("compiler: unhandled expression %T", expr))
	}
}

func (c *codegen) compileVariableLoad(b *funcBuilder, name string) {
	s := b.s
	if s.isTop {
		b.emit(bytecode.OpLoadGlobal, b.internName(name))
		return
	}
	if idx, ok := localIndex(s, name); ok {
		b.emit(bytecode.OpLoadLocal, idx)
		return
	}
	if idx, ok := refLocalIndex(s, name); ok {
		b.emit(bytecode.OpPushReference, idx)
		b.emit0(bytecode.OpLoadReference)
		return
	}
	if idx, ok := freeVarIndex(s, name); ok {
		b.emit(bytecode.OpPushReference, int32(len(s.refLocals))+idx)
		b.emit0(bytecode.OpLoadReference)
		return
	}
	b.emit(bytecode.OpLoadGlobal, b.internName(name))
}

func (c *codegen) compileBinary(b *funcBuilder, n *lang.BinaryExpr) {
	switch n.Op {
	case lang.Lt:
		c.compileExpr(b, n.Left)
		c.compileExpr(b, n.Right)
		b.emit0(bytecode.OpSwap)
		b.emit0(bytecode.OpGt)
		return
	case lang.Lte:
		c.compileExpr(b, n.Left)
		c.compileExpr(b, n.Right)
		b.emit0(bytecode.OpSwap)
		b.emit0(bytecode.OpGeq)
		return
	}
	c.compileExpr(b, n.Left)
	c.compileExpr(b, n.Right)
	switch n.Op {
	case lang.Add:
		b.emit0(bytecode.OpAdd)
	case lang.Sub:
		b.emit0(bytecode.OpSub)
	case lang.Mul:
		b.emit0(bytecode.OpMul)
	case lang.Div:
		b.emit0(bytecode.OpDiv)
	case lang.Eq:
		b.emit0(bytecode.OpEq)
	case lang.Gt:
		b.emit0(bytecode.OpGt)
	case lang.Gte:
		b.emit0(bytecode.OpGeq)
	case lang.And:
		b.emit0(bytecode.OpAnd)
	case lang.Or:
		b.emit0(bytecode.OpOr)
	default:
		panic(fmt.Sprintf("compiler: unhandled binary operator %v", n.Op))
	}
}

func (c *codegen) compileFuncLit(b *funcBuilder, n *lang.FuncLit) {
	child, ok := b.s.litScopes[n]
	if !ok {
		panic("compiler: function literal missing its scope")
	}
	childFn := c.compileFunc(child)
	childIdx := int32(len(b.fn.Functions))
	b.fn.Functions = append(b.fn.Functions, childFn)
	b.emit(bytecode.OpLoadFunc, childIdx)
	for _, name := range child.freeVars {
		if idx, ok := refLocalIndex(b.s, name); ok {
			b.emit(bytecode.OpPushReference, idx)
			continue
		}
		if idx, ok := freeVarIndex(b.s, name); ok {
			b.emit(bytecode.OpPushReference, int32(len(b.s.refLocals))+idx)
			continue
		}
		panic(fmt.Sprintf("compiler: free variable %q not threaded through enclosing scope", name))
	}
	b.emit(bytecode.OpAllocClosure, int32(len(child.freeVars)))
}
