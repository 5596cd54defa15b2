// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lower_test

import (
	"testing"

	"github.com/langvm/langvm/internal/bytecode"
	"github.com/langvm/langvm/internal/compiler"
	"github.com/langvm/langvm/internal/lower"
)

func TestLowerIsIdempotent(t *testing.T) {
	top, err := compiler.Compile(`
		x = 1;
		y = 2;
		print(x + y);
	`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := lower.Lower(top); err != nil {
		t.Fatalf("Lower: %v", err)
	}
	first := top.Reg
	firstCount := top.RegCount
	if first == nil {
		t.Fatal("Lower left Reg nil")
	}
	if err := lower.Lower(top); err != nil {
		t.Fatalf("second Lower: %v", err)
	}
	if len(first) > 0 && &top.Reg[0] != &first[0] {
		t.Fatal("second Lower call replaced the register stream instead of being a no-op")
	}
	if top.RegCount != firstCount {
		t.Fatalf("RegCount changed across idempotent Lower calls: %d vs %d", top.RegCount, firstCount)
	}
}

// everyFunction collects f and every Function nested within it, depth-first.
func everyFunction(f *bytecode.Function, out *[]*bytecode.Function) {
	*out = append(*out, f)
	for _, child := range f.Functions {
		everyFunction(child, out)
	}
}

func TestLowerEveryNestedFunction(t *testing.T) {
	top, err := compiler.Compile(`
		make = fun() {
			n = 0;
			return fun() {
				n = n + 1;
				return n;
			};
		};
		bump = make();
		print(bump());
	`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	var all []*bytecode.Function
	everyFunction(top, &all)
	if len(all) < 3 {
		t.Fatalf("expected at least 3 functions (top, make, the inner closure), got %d", len(all))
	}
	for _, fn := range all {
		if err := lower.Lower(fn); err != nil {
			t.Fatalf("Lower(%s): %v", fn.Name, err)
		}
		// The print/input/intcast sentinels carry no Instrs (they're
		// intercepted by the VM's builtin dispatch before the register
		// engine ever runs them), so Lower legitimately leaves their Reg
		// stream empty; only non-trivial bodies are checked here.
		if len(fn.Instrs) > 0 && fn.Reg == nil {
			t.Fatalf("Lower(%s) left Reg nil despite a non-empty Instrs stream", fn.Name)
		}
	}
}
