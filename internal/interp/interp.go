// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/langvm/langvm/internal/lang"
)

// Config configures one Interp instance.
type Config struct {
	Stdout io.Writer
	Stdin  io.Reader
}

// Interp is one evaluation of a program: a single global frame and the
// I/O streams its builtins read and write.
type Interp struct {
	global *Frame
	stdout io.Writer
	stdin  *bufio.Reader
}

// New constructs an Interp with print/input/intcast bound into its
// global frame.
func New(cfg Config) *Interp {
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	var stdin io.Reader = cfg.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	in := &Interp{
		global: newFrame(nil),
		stdout: stdout,
		stdin:  bufio.NewReader(stdin),
	}
	in.global.bind("print", &Builtin{Name: "print", Arity: 1, Fn: builtinPrint})
	in.global.bind("input", &Builtin{Name: "input", Arity: 0, Fn: builtinInput})
	in.global.bind("intcast", &Builtin{Name: "intcast", Arity: 1, Fn: builtinIntcast})
	return in
}

// Run evaluates prog's top-level statements directly in the global
// frame; a return at this level is a Runtime error, matching the
// reference interpreter's "return outside function" check.
func (in *Interp) Run(prog *lang.Program) error {
	_, returned, err := in.evalBlock(prog.Statements, in.global)
	if err != nil {
		return err
	}
	if returned {
		return newError(Runtime, "return outside function")
	}
	return nil
}

func builtinPrint(in *Interp, args []Value) (Value, error) {
	io.WriteString(in.stdout, strings.TrimRight(args[0].String(), " ")+"\n")
	return None, nil
}

func builtinInput(in *Interp, args []Value) (Value, error) {
	line, _ := in.stdin.ReadString('\n')
	return Str(strings.TrimRight(line, "\r\n")), nil
}

func builtinIntcast(in *Interp, args []Value) (Value, error) {
	return Int(leadingInt(args[0].String())), nil
}

// leadingInt parses the longest valid signed-integer prefix of s, or 0
// if none exists.
func leadingInt(s string) int32 {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}
	var v int64
	neg := s[0] == '-'
	for _, c := range s[digitsStart:end] {
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return int32(v)
}

// evalBlock runs stmts in f in order, short-circuiting on the first
// error or return.
func (in *Interp) evalBlock(stmts []lang.Statement, f *Frame) (Value, bool, error) {
	for _, st := range stmts {
		v, returned, err := in.evalStmt(st, f)
		if err != nil {
			return nil, false, err
		}
		if returned {
			return v, true, nil
		}
	}
	return None, false, nil
}

func (in *Interp) evalStmt(st lang.Statement, f *Frame) (Value, bool, error) {
	switch n := st.(type) {
	case *lang.GlobalDecl:
		f.declareGlobal(n.Name)
		return None, false, nil
	case *lang.Assignment:
		return None, false, in.evalAssignment(n, f)
	case *lang.If:
		cond, err := in.evalExpr(n.Cond, f)
		if err != nil {
			return nil, false, err
		}
		b, ok := cond.(boolValue)
		if !ok {
			return nil, false, newError(IllegalCast, "if condition is %s, not a Bool", describe(cond))
		}
		if bool(b) {
			return in.evalBlock(n.Then.Statements, f)
		}
		if n.Else != nil {
			return in.evalBlock(n.Else.Statements, f)
		}
		return None, false, nil
	case *lang.While:
		for {
			cond, err := in.evalExpr(n.Cond, f)
			if err != nil {
				return nil, false, err
			}
			b, ok := cond.(boolValue)
			if !ok {
				return nil, false, newError(IllegalCast, "while condition is %s, not a Bool", describe(cond))
			}
			if !bool(b) {
				return None, false, nil
			}
			v, returned, err := in.evalBlock(n.Body.Statements, f)
			if err != nil {
				return nil, false, err
			}
			if returned {
				return v, true, nil
			}
		}
	case *lang.Return:
		v := None
		if n.Value != nil {
			var err error
			v, err = in.evalExpr(n.Value, f)
			if err != nil {
				return nil, false, err
			}
		}
		if f.parent == nil {
			return nil, false, newError(Runtime, "return outside function")
		}
		return v, true, nil
	case *lang.ExprStatement:
		_, err := in.evalExpr(n.Expr, f)
		return None, false, err
	case *lang.Block:
		return in.evalBlock(n.Statements, f)
	default:
		panic(fmt.Sprintf("interp: unhandled statement %T", st))
	}
}

func (in *Interp) evalAssignment(n *lang.Assignment, f *Frame) error {
	switch target := n.Target.(type) {
	case *lang.Variable:
		v, err := in.evalExpr(n.Value, f)
		if err != nil {
			return err
		}
		f.set(target.Name, v)
		return nil
	case *lang.FieldAccess:
		obj, err := in.evalExpr(target.Object, f)
		if err != nil {
			return err
		}
		rec, ok := obj.(*Record)
		if !ok {
			return newError(IllegalCast, "field assignment target is %s, not a Record", describe(obj))
		}
		v, err := in.evalExpr(n.Value, f)
		if err != nil {
			return err
		}
		rec.Set(target.Name, v)
		return nil
	case *lang.IndexExpr:
		obj, err := in.evalExpr(target.Object, f)
		if err != nil {
			return err
		}
		rec, ok := obj.(*Record)
		if !ok {
			return newError(IllegalCast, "index assignment target is %s, not a Record", describe(obj))
		}
		idx, err := in.evalExpr(target.Index, f)
		if err != nil {
			return err
		}
		v, err := in.evalExpr(n.Value, f)
		if err != nil {
			return err
		}
		rec.Set(idx.String(), v)
		return nil
	default:
		panic(fmt.Sprintf("interp: invalid assignment target %T", n.Target))
	}
}

func (in *Interp) evalExpr(expr lang.Expression, f *Frame) (Value, error) {
	switch n := expr.(type) {
	case *lang.IntLit:
		return Int(n.Value), nil
	case *lang.StringLit:
		return Str(n.Value), nil
	case *lang.BoolLit:
		return Bool(n.Value), nil
	case *lang.NoneLit:
		return None, nil
	case *lang.Variable:
		return f.get(n.Name)
	case *lang.BinaryExpr:
		return in.evalBinary(n, f)
	case *lang.UnaryExpr:
		v, err := in.evalExpr(n.Operand, f)
		if err != nil {
			return nil, err
		}
		if n.Op == lang.Neg {
			iv, ok := v.(intValue)
			if !ok {
				return nil, newError(IllegalCast, "unary '-' expects an Int, got %s", describe(v))
			}
			return Int(-int32(iv)), nil
		}
		bv, ok := v.(boolValue)
		if !ok {
			return nil, newError(IllegalCast, "unary '!' expects a Bool, got %s", describe(v))
		}
		return Bool(!bool(bv)), nil
	case *lang.FieldAccess:
		obj, err := in.evalExpr(n.Object, f)
		if err != nil {
			return nil, err
		}
		rec, ok := obj.(*Record)
		if !ok {
			return nil, newError(IllegalCast, "field access on %s, not a Record", describe(obj))
		}
		return rec.Get(n.Name), nil
	case *lang.IndexExpr:
		obj, err := in.evalExpr(n.Object, f)
		if err != nil {
			return nil, err
		}
		rec, ok := obj.(*Record)
		if !ok {
			return nil, newError(IllegalCast, "index access on %s, not a Record", describe(obj))
		}
		idx, err := in.evalExpr(n.Index, f)
		if err != nil {
			return nil, err
		}
		return rec.Get(idx.String()), nil
	case *lang.Call:
		return in.evalCall(n, f)
	case *lang.RecordLit:
		rec := NewRecord()
		for i, name := range n.Names {
			v, err := in.evalExpr(n.Values[i], f)
			if err != nil {
				return nil, err
			}
			rec.Set(name, v)
		}
		return rec, nil
	case *lang.FuncLit:
		return &Closure{Name: n.Name, Params: n.Params, Body: n.Body, Env: f}, nil
	default:
		panic(fmt.Sprintf("interp: unhandled expression %T", expr))
	}
}

func opSymbol(op lang.BinOp) string {
	switch op {
	case lang.Add:
		return "+"
	case lang.Sub:
		return "-"
	case lang.Mul:
		return "*"
	case lang.Div:
		return "/"
	case lang.Eq:
		return "=="
	case lang.Lt:
		return "<"
	case lang.Lte:
		return "<="
	case lang.Gt:
		return ">"
	case lang.Gte:
		return ">="
	case lang.And:
		return "&"
	case lang.Or:
		return "|"
	}
	return "?"
}

func (in *Interp) evalBinary(n *lang.BinaryExpr, f *Frame) (Value, error) {
	l, err := in.evalExpr(n.Left, f)
	if err != nil {
		return nil, err
	}
	r, err := in.evalExpr(n.Right, f)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case lang.Add:
		if li, ok := l.(intValue); ok {
			if ri, ok := r.(intValue); ok {
				return Int(int32(li) + int32(ri)), nil
			}
		}
		_, lstr := l.(stringValue)
		_, rstr := r.(stringValue)
		if lstr || rstr {
			return Str(l.String() + r.String()), nil
		}
		return nil, newError(IllegalCast, "operator '+' expects integers or strings")
	case lang.Eq:
		return Bool(Equal(l, r)), nil
	case lang.And, lang.Or:
		lb, lok := l.(boolValue)
		rb, rok := r.(boolValue)
		if !lok || !rok {
			return nil, newError(IllegalCast, "operator %q expects booleans", opSymbol(n.Op))
		}
		if n.Op == lang.And {
			return Bool(bool(lb) && bool(rb)), nil
		}
		return Bool(bool(lb) || bool(rb)), nil
	default:
		li, lok := l.(intValue)
		ri, rok := r.(intValue)
		if !lok || !rok {
			return nil, newError(IllegalCast, "operator %q expects integers", opSymbol(n.Op))
		}
		switch n.Op {
		case lang.Sub:
			return Int(int32(li) - int32(ri)), nil
		case lang.Mul:
			return Int(int32(li) * int32(ri)), nil
		case lang.Div:
			if ri == 0 {
				return nil, newError(IllegalArithmetic, "divide by zero")
			}
			return Int(int32(li) / int32(ri)), nil
		case lang.Lt:
			return Bool(li < ri), nil
		case lang.Lte:
			return Bool(li <= ri), nil
		case lang.Gt:
			return Bool(li > ri), nil
		case lang.Gte:
			return Bool(li >= ri), nil
		}
	}
	panic(fmt.Sprintf("interp: unhandled binary operator %v", n.Op))
}

func (in *Interp) evalCall(n *lang.Call, f *Frame) (Value, error) {
	calleeVal, err := in.evalExpr(n.Callee, f)
	if err != nil {
		return nil, err
	}
	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := in.evalExpr(a, f)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	switch callee := calleeVal.(type) {
	case *Builtin:
		if len(args) != callee.Arity {
			return nil, newError(Runtime, "%s: expected %d arguments, got %d", callee.Name, callee.Arity, len(args))
		}
		return callee.Fn(in, args)
	case *Closure:
		return in.callClosure(callee, args)
	default:
		return nil, newError(IllegalCast, "call target is %s, not callable", describe(calleeVal))
	}
}

// callClosure builds the fresh call frame, pre-binding every name the
// function body ever declares global or assigns (locals default to None
// until their first real assignment runs), then binds the arguments and
// evaluates the body.
func (in *Interp) callClosure(c *Closure, args []Value) (Value, error) {
	if len(args) != len(c.Params) {
		return nil, newError(Runtime, "function %q: expected %d arguments, got %d", c.Name, len(c.Params), len(args))
	}
	callFrame := newFrame(c.Env)

	for _, name := range declaredGlobals(c.Body.Statements) {
		callFrame.declareGlobal(name)
	}
	for _, name := range assignedLocals(c.Body.Statements) {
		if callFrame.declaredGlobal[name] {
			continue
		}
		callFrame.bind(name, None)
	}
	for i, param := range c.Params {
		if callFrame.declaredGlobal[param] {
			continue
		}
		callFrame.bind(param, args[i])
	}

	v, returned, err := in.evalBlock(c.Body.Statements, callFrame)
	if err != nil {
		return nil, err
	}
	if !returned {
		return None, nil
	}
	return v, nil
}
