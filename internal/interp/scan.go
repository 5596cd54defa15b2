// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interp

import "github.com/langvm/langvm/internal/lang"

// declaredGlobals collects every name a `global name;` statement names
// anywhere in stmts, recursing into if/while/block but never into a
// nested function literal's own body (that function resolves its own
// globals independently, the first time it is called).
func declaredGlobals(stmts []lang.Statement) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	var walk func([]lang.Statement)
	walk = func(stmts []lang.Statement) {
		for _, st := range stmts {
			switch n := st.(type) {
			case *lang.GlobalDecl:
				add(n.Name)
			case *lang.If:
				walk(n.Then.Statements)
				if n.Else != nil {
					walk(n.Else.Statements)
				}
			case *lang.While:
				walk(n.Body.Statements)
			case *lang.Block:
				walk(n.Statements)
			}
		}
	}
	walk(stmts)
	return names
}

// assignedLocals collects every name some *lang.Variable assignment
// target names anywhere in stmts, with the same recursion boundary as
// declaredGlobals. Every one of these gets pre-initialized to None in a
// fresh call frame (unless declared global instead), so referencing a
// true local before its first assignment reads None rather than raising
// an UninitializedVariable error — only a genuinely undeclared global
// does that.
func assignedLocals(stmts []lang.Statement) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	var walk func([]lang.Statement)
	walk = func(stmts []lang.Statement) {
		for _, st := range stmts {
			switch n := st.(type) {
			case *lang.Assignment:
				if v, ok := n.Target.(*lang.Variable); ok {
					add(v.Name)
				}
			case *lang.If:
				walk(n.Then.Statements)
				if n.Else != nil {
					walk(n.Else.Statements)
				}
			case *lang.While:
				walk(n.Body.Statements)
			case *lang.Block:
				walk(n.Statements)
			}
		}
	}
	walk(stmts)
	return names
}
