// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compiler

import (
	"bytes"
	"testing"

	"github.com/langvm/langvm/internal/vm"
)

func run(t *testing.T, src string) string {
	t.Helper()
	top, err := Compile(src)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if err := vm.Construct(top); err != nil {
		t.Fatalf("Construct: %v", err)
	}
	var stdout bytes.Buffer
	m := vm.New(vm.Config{Stdout: &stdout})
	if err := m.Run(top); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return stdout.String()
}

func TestArithmeticAndPrint(t *testing.T) {
	got := run(t, `print(1 + 2 * 3);`)
	if got != "7\n" {
		t.Fatalf("got %q, want %q", got, "7\n")
	}
}

func TestIfElse(t *testing.T) {
	got := run(t, `
		x = 5;
		if (x < 10) {
			print("small");
		} else {
			print("big");
		}
	`)
	if got != "small\n" {
		t.Fatalf("got %q, want %q", got, "small\n")
	}
}

func TestWhileLoop(t *testing.T) {
	got := run(t, `
		i = 0;
		sum = 0;
		while (i < 5) {
			sum = sum + i;
			i = i + 1;
		}
		print(sum);
	`)
	if got != "10\n" {
		t.Fatalf("got %q, want %q", got, "10\n")
	}
}

func TestRecursionThroughGlobal(t *testing.T) {
	got := run(t, `
		fact = fun(n) {
			if (n < 2) {
				return 1;
			}
			return n * fact(n - 1);
		};
		print(fact(5));
	`)
	if got != "120\n" {
		t.Fatalf("got %q, want %q", got, "120\n")
	}
}

func TestClosureCounterFactory(t *testing.T) {
	got := run(t, `
		makeCounter = fun() {
			n = 0;
			return fun() {
				n = n + 1;
				return n;
			};
		};
		c1 = makeCounter();
		c2 = makeCounter();
		print(c1());
		print(c1());
		print(c2());
	`)
	if got != "1\n2\n1\n" {
		t.Fatalf("got %q, want %q", got, "1\n2\n1\n")
	}
}

func TestSharedCaptureBetweenTwoClosures(t *testing.T) {
	got := run(t, `
		makePair = fun() {
			n = 0;
			inc = fun() {
				n = n + 1;
			};
			get = fun() {
				return n;
			};
			inc();
			inc();
			return get();
		};
		print(makePair());
	`)
	if got != "2\n" {
		t.Fatalf("got %q, want %q", got, "2\n")
	}
}

func TestRecordFieldsAndIndex(t *testing.T) {
	got := run(t, `
		r = { x: 1; y: 2; };
		r.z = r.x + r.y;
		print(r["z"]);
	`)
	if got != "3\n" {
		t.Fatalf("got %q, want %q", got, "3\n")
	}
}

func TestStringConcatAndIntcast(t *testing.T) {
	got := run(t, `
		print("n=" + intcast("42"));
	`)
	if got != "n=42\n" {
		t.Fatalf("got %q, want %q", got, "n=42\n")
	}
}

func TestDivisionByZeroPropagatesAsVMError(t *testing.T) {
	top, err := Compile(`x = 1 / 0;`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	m := vm.New(vm.Config{})
	err = m.Run(top)
	if err == nil {
		t.Fatal("expected a division-by-zero error")
	}
	vmErr, ok := err.(*vm.Error)
	if !ok || vmErr.Kind != vm.IllegalArithmetic {
		t.Fatalf("got %v, want IllegalArithmetic", err)
	}
}

func TestGlobalDeclWritesThroughToGlobalScope(t *testing.T) {
	got := run(t, `
		counter = 0;
		bump = fun() {
			global counter;
			counter = counter + 1;
		};
		bump();
		bump();
		print(counter);
	`)
	if got != "2\n" {
		t.Fatalf("got %q, want %q", got, "2\n")
	}
}

func TestEqualityAndSingletonIdentity(t *testing.T) {
	got := run(t, `
		print(None == None);
		print(true == true);
		print(1 == 2);
	`)
	if got != "true\ntrue\nfalse\n" {
		t.Fatalf("got %q, want %q", got, "true\ntrue\nfalse\n")
	}
}

func TestCompileErrorOnMissingSemicolon(t *testing.T) {
	if _, err := Compile(`x = 1`); err == nil {
		t.Fatal("expected a parse error")
	}
}
