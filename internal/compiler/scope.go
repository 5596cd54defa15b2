// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compiler lowers a parsed lang.Program directly into a
// bytecode.Function tree (spec.md's SUPPLEMENTED FEATURES), without an
// intervening control-flow-graph representation: one recursive-descent
// pass builds lexical scope information, a second walks the AST emitting
// stack-form instructions with backpatched branch targets.
package compiler

import "github.com/langvm/langvm/internal/lang"

// scope is one function's (or the top-level program's) static lexical
// information, built before any code is emitted.
type scope struct {
	parent *scope
	isTop  bool
	lit    *lang.FuncLit // nil for the top-level scope

	params []string

	locals   []string // ordered: params first, then other assigned names
	localSet map[string]bool

	declaredGlobal map[string]bool

	// freeVars is the ordered list of names this scope must capture from
	// an enclosing function (resolved in resolveFreeVars).
	freeVars   []string
	freeVarSet map[string]bool

	// refLocals is the ordered subset of locals that some nested function
	// captures, making this scope their owner and requiring a Reference
	// cell instead of a bare register for that local.
	refLocals   []string
	refLocalSet map[string]bool

	children []*scope

	// body is the statement list this scope was built from, kept around
	// so rawReads can walk it again during free-variable resolution.
	body []lang.Statement

	// litScopes maps a child FuncLit node to its scope, so code
	// generation can find the already-built scope for a literal it
	// encounters while walking expressions.
	litScopes map[*lang.FuncLit]*scope
}

func newScope(parent *scope, lit *lang.FuncLit) *scope {
	return &scope{
		parent:         parent,
		lit:            lit,
		localSet:       make(map[string]bool),
		declaredGlobal: make(map[string]bool),
		freeVarSet:     make(map[string]bool),
		refLocalSet:    make(map[string]bool),
		litScopes:      make(map[*lang.FuncLit]*scope),
	}
}

func (s *scope) addLocal(name string) {
	if s.localSet[name] {
		return
	}
	s.localSet[name] = true
	s.locals = append(s.locals, name)
}

// buildProgramScope builds the top-level scope and its full descendant
// tree from a parsed program, without yet resolving free variables.
func buildProgramScope(prog *lang.Program) *scope {
	top := newScope(nil, nil)
	top.isTop = true
	top.body = prog.Statements
	collectBlockLocals(top, prog.Statements)
	return top
}

// collectBlockLocals walks stmts (and the blocks nested directly inside
// them via if/while, but NOT inside a nested FuncLit body, which is its
// own scope) recording every locally-assigned name and every nested
// function literal's scope.
func collectBlockLocals(s *scope, stmts []lang.Statement) {
	for _, st := range stmts {
		collectStmtLocals(s, st)
	}
}

func collectStmtLocals(s *scope, st lang.Statement) {
	switch n := st.(type) {
	case *lang.Assignment:
		if v, ok := n.Target.(*lang.Variable); ok {
			// A name that is already a local of an enclosing function is
			// captured, not redeclared: the assignment writes through its
			// reference cell.
			captured := false
			for p := s.parent; p != nil && !p.isTop; p = p.parent {
				captured = captured || p.localSet[v.Name]
			}
			if !s.declaredGlobal[v.Name] && !captured {
				s.addLocal(v.Name)
			}
		}
		collectExprLocals(s, n.Target)
		collectExprLocals(s, n.Value)
	case *lang.If:
		collectExprLocals(s, n.Cond)
		collectBlockLocals(s, n.Then.Statements)
		if n.Else != nil {
			collectBlockLocals(s, n.Else.Statements)
		}
	case *lang.While:
		collectExprLocals(s, n.Cond)
		collectBlockLocals(s, n.Body.Statements)
	case *lang.Return:
		if n.Value != nil {
			collectExprLocals(s, n.Value)
		}
	case *lang.GlobalDecl:
		s.declaredGlobal[n.Name] = true
	case *lang.ExprStatement:
		collectExprLocals(s, n.Expr)
	case *lang.Block:
		collectBlockLocals(s, n.Statements)
	}
}

// collectExprLocals descends into expr looking for nested FuncLits to
// build their scopes; it does not itself decide what is free, that is
// resolveFreeVars's job.
func collectExprLocals(s *scope, expr lang.Expression) {
	switch n := expr.(type) {
	case *lang.FuncLit:
		child := newScope(s, n)
		for _, p := range n.Params {
			child.params = append(child.params, p)
			child.addLocal(p)
		}
		child.body = n.Body.Statements
		collectBlockLocals(child, n.Body.Statements)
		s.children = append(s.children, child)
		s.litScopes[n] = child
	case *lang.BinaryExpr:
		collectExprLocals(s, n.Left)
		collectExprLocals(s, n.Right)
	case *lang.UnaryExpr:
		collectExprLocals(s, n.Operand)
	case *lang.FieldAccess:
		collectExprLocals(s, n.Object)
	case *lang.IndexExpr:
		collectExprLocals(s, n.Object)
		collectExprLocals(s, n.Index)
	case *lang.Call:
		collectExprLocals(s, n.Callee)
		for _, a := range n.Args {
			collectExprLocals(s, a)
		}
	case *lang.RecordLit:
		for _, v := range n.Values {
			collectExprLocals(s, v)
		}
	}
}

// resolveFreeVars walks the whole scope tree bottom-up, propagating each
// scope's unresolved reads up through enclosing non-top scopes until an
// owning local is found (marking it a ref-local there) or the top is
// reached (in which case the name is an ordinary global, not a capture).
func resolveFreeVars(s *scope) {
	for _, c := range s.children {
		resolveFreeVars(c)
	}
	if s.lit == nil {
		return // top level never captures anything itself
	}
	for _, name := range rawReads(s) {
		if s.localSet[name] || s.declaredGlobal[name] || s.freeVarSet[name] {
			continue
		}
		resolveRead(s, name)
	}
}

// resolveRead threads name from s up through enclosing scopes until it
// finds the owning local (or reaches the top, in which case name is left
// as a plain global and no capture chain is built at all).
func resolveRead(s *scope, name string) {
	owner := s.parent
	for owner != nil && !owner.isTop {
		if owner.localSet[name] {
			break
		}
		owner = owner.parent
	}
	if owner == nil || owner.isTop {
		return // resolves as a global; no capture needed
	}
	if !owner.refLocalSet[name] {
		owner.refLocalSet[name] = true
		owner.refLocals = append(owner.refLocals, name)
	}
	for cur := s; cur != owner; cur = cur.parent {
		if !cur.freeVarSet[name] {
			cur.freeVarSet[name] = true
			cur.freeVars = append(cur.freeVars, name)
		}
	}
}

// rawReads collects every Variable name read or assigned anywhere in s's
// own statements, excluding anything inside a nested FuncLit body.
func rawReads(s *scope) []string {
	var order []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	var walkExpr func(e lang.Expression)
	walkExpr = func(e lang.Expression) {
		switch n := e.(type) {
		case *lang.Variable:
			add(n.Name)
		case *lang.BinaryExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *lang.UnaryExpr:
			walkExpr(n.Operand)
		case *lang.FieldAccess:
			walkExpr(n.Object)
		case *lang.IndexExpr:
			walkExpr(n.Object)
			walkExpr(n.Index)
		case *lang.Call:
			walkExpr(n.Callee)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *lang.RecordLit:
			for _, v := range n.Values {
				walkExpr(v)
			}
			// FuncLit: its own free-variable needs are handled by the
			// recursive resolveFreeVars call on its own scope, not here.
		}
	}
	var walkStmt func(st lang.Statement)
	walkStmt = func(st lang.Statement) {
		switch n := st.(type) {
		case *lang.Assignment:
			if v, ok := n.Target.(*lang.Variable); ok {
				add(v.Name)
			} else {
				walkExpr(n.Target)
			}
			walkExpr(n.Value)
		case *lang.If:
			walkExpr(n.Cond)
			for _, s := range n.Then.Statements {
				walkStmt(s)
			}
			if n.Else != nil {
				for _, s := range n.Else.Statements {
					walkStmt(s)
				}
			}
		case *lang.While:
			walkExpr(n.Cond)
			for _, s := range n.Body.Statements {
				walkStmt(s)
			}
		case *lang.Return:
			if n.Value != nil {
				walkExpr(n.Value)
			}
		case *lang.ExprStatement:
			walkExpr(n.Expr)
		case *lang.Block:
			for _, s := range n.Statements {
				walkStmt(s)
			}
		}
	}
	for _, st := range s.stmts() {
		walkStmt(st)
	}
	return order
}

// stmts returns the statement list s was built from, for rawReads.
func (s *scope) stmts() []lang.Statement { return s.body }
