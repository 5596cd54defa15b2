// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimizer_test

import (
	"bytes"
	"testing"

	"github.com/langvm/langvm/internal/compiler"
	"github.com/langvm/langvm/internal/optimizer"
	"github.com/langvm/langvm/internal/vm"
)

// runCompiled compiles src, optionally optimizes it under cfg, executes it,
// and returns everything it printed. Comparing the unoptimized and
// optimized runs of the same program is how this suite checks pass
// soundness: a pass may change the bytecode, but never the observable
// behavior.
func runCompiled(t *testing.T, src string, cfg optimizer.Config, optimize bool) string {
	t.Helper()
	top, err := compiler.Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if optimize {
		if err := optimizer.Optimize(top, cfg); err != nil {
			t.Fatalf("Optimize: %v", err)
		}
	}
	if err := vm.Construct(top); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	var out bytes.Buffer
	machine := vm.New(vm.Config{Stdout: &out})
	if err := machine.Run(top); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func assertSameUnderFullOptimization(t *testing.T, src string) {
	t.Helper()
	want := runCompiled(t, src, optimizer.Config{}, false)
	got := runCompiled(t, src, optimizer.All(), true)
	if got != want {
		t.Fatalf("optimized output %q, want %q (unoptimized)", got, want)
	}
}

func TestDeadCodeEliminationPreservesOutput(t *testing.T) {
	assertSameUnderFullOptimization(t, `
		x = 1;
		if (true) {
			print(x);
		} else {
			print(x + 999);
		}
	`)
}

func TestConstantFoldingPreservesOutput(t *testing.T) {
	assertSameUnderFullOptimization(t, `
		print(2 + 3 * 4);
		print((1 < 2) & (2 < 3));
	`)
}

func TestLoopInvariantHoistPreservesOutput(t *testing.T) {
	assertSameUnderFullOptimization(t, `
		sum = 0;
		i = 0;
		k = 10;
		while (i < 5) {
			sum = sum + k;
			i = i + 1;
		}
		print(sum);
	`)
}

func TestInliningPreservesOutput(t *testing.T) {
	assertSameUnderFullOptimization(t, `
		add = fun(a, b) {
			return a + b;
		};
		print(add(3, 4));
		print(add(add(1, 2), 5));
	`)
}

func TestRecursionAndClosuresPreserveOutputUnderOptimization(t *testing.T) {
	assertSameUnderFullOptimization(t, `
		fact = fun(n) {
			if (n < 2) {
				return 1;
			}
			return n * fact(n - 1);
		};
		counter = fun() {
			n = 0;
			return fun() {
				n = n + 1;
				return n;
			};
		};
		bump = counter();
		print(fact(6));
		print(bump());
		print(bump());
	`)
}

func TestDeadStoreEliminationPreservesOutput(t *testing.T) {
	assertSameUnderFullOptimization(t, `
		x = 1;
		x = 2;
		x = 3;
		print(x);
	`)
}

func TestIndividualPassesAreEachIndependentlySound(t *testing.T) {
	src := `
		total = 0;
		i = 0;
		while (i < 4) {
			total = total + (i * 2 + 1);
			i = i + 1;
		}
		print(total);
	`
	want := runCompiled(t, src, optimizer.Config{}, false)
	for name, cfg := range map[string]optimizer.Config{
		"dce":       {DCE: true},
		"constprop": {ConstProp: true},
		"peephole":  {Peephole: true},
		"deadstore": {DeadStore: true},
		"inline":    {Inline: true},
		"licm":      {LICM: true},
		"compact":   {Compact: true},
	} {
		got := runCompiled(t, src, cfg, true)
		if got != want {
			t.Errorf("pass %q changed output: got %q, want %q", name, got, want)
		}
	}
}
