// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lang

import "testing"

func TestParseAssignmentAndReturn(t *testing.T) {
	prog, err := Parse(`x = 1 + 2 * 3; return x;`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Statements))
	}
	asn, ok := prog.Statements[0].(*Assignment)
	if !ok {
		t.Fatalf("statement 0: got %T, want *Assignment", prog.Statements[0])
	}
	bin, ok := asn.Value.(*BinaryExpr)
	if !ok || bin.Op != Add {
		t.Fatalf("expected top-level + respecting precedence, got %#v", asn.Value)
	}
	if _, ok := prog.Statements[1].(*Return); !ok {
		t.Fatalf("statement 1: got %T, want *Return", prog.Statements[1])
	}
}

func TestParseIfElseWhile(t *testing.T) {
	prog, err := Parse(`
		if (x < 10) {
			y = 1;
		} else {
			y = 2;
		}
		while (x > 0) {
			x = x - 1;
		}
	`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("got %d statements, want 2", len(prog.Statements))
	}
	ifStmt, ok := prog.Statements[0].(*If)
	if !ok {
		t.Fatalf("statement 0: got %T, want *If", prog.Statements[0])
	}
	if ifStmt.Else == nil {
		t.Fatal("expected an else block")
	}
	if _, ok := prog.Statements[1].(*While); !ok {
		t.Fatalf("statement 1: got %T, want *While", prog.Statements[1])
	}
}

func TestParseFuncLitCallFieldIndex(t *testing.T) {
	prog, err := Parse(`
		f = fun(a, b) { return a + b; };
		r = { x: 1; y: 2; };
		z = f(r.x, r["y"]);
	`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Statements) != 3 {
		t.Fatalf("got %d statements, want 3", len(prog.Statements))
	}
	asn := prog.Statements[0].(*Assignment)
	lit, ok := asn.Value.(*FuncLit)
	if !ok || len(lit.Params) != 2 {
		t.Fatalf("expected a 2-param function literal, got %#v", asn.Value)
	}
	rec := prog.Statements[1].(*Assignment).Value.(*RecordLit)
	if len(rec.Names) != 2 {
		t.Fatalf("expected a 2-field record literal, got %#v", rec)
	}
	call := prog.Statements[2].(*Assignment).Value.(*Call)
	if len(call.Args) != 2 {
		t.Fatalf("expected a 2-argument call, got %#v", call)
	}
	if _, ok := call.Args[0].(*FieldAccess); !ok {
		t.Errorf("arg 0: got %T, want *FieldAccess", call.Args[0])
	}
	if _, ok := call.Args[1].(*IndexExpr); !ok {
		t.Errorf("arg 1: got %T, want *IndexExpr", call.Args[1])
	}
}

func TestParseOperatorPrecedenceAndAssociativity(t *testing.T) {
	prog, err := Parse(`z = 1 | 2 & 3 == 4 + 5 * 6;`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	top := prog.Statements[0].(*Assignment).Value.(*BinaryExpr)
	if top.Op != Or {
		t.Fatalf("expected | at the top, got %v", top.Op)
	}
	and := top.Right.(*BinaryExpr)
	if and.Op != And {
		t.Fatalf("expected & under |, got %v", and.Op)
	}
	eq := and.Right.(*BinaryExpr)
	if eq.Op != Eq {
		t.Fatalf("expected == under &, got %v", eq.Op)
	}
}

func TestParseGlobalDecl(t *testing.T) {
	prog, err := Parse(`
		outer = fun() {
			global counter;
			counter = counter + 1;
		};
	`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	asn := prog.Statements[0].(*Assignment)
	lit := asn.Value.(*FuncLit)
	if _, ok := lit.Body.Statements[0].(*GlobalDecl); !ok {
		t.Fatalf("expected a global declaration as the function's first statement, got %T", lit.Body.Statements[0])
	}
}

func TestParseMissingSemicolonIsError(t *testing.T) {
	if _, err := Parse(`x = 1`); err == nil {
		t.Fatal("expected an error for a missing semicolon")
	}
}
