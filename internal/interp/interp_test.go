// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interp

import (
	"bytes"
	"testing"

	"github.com/langvm/langvm/internal/lang"
)

func run(t *testing.T, src string) string {
	t.Helper()
	prog, err := lang.Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var stdout bytes.Buffer
	in := New(Config{Stdout: &stdout})
	if err := in.Run(prog); err != nil {
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

func TestRecursionThroughClosureEnvironment(t *testing.T) {
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

// A nested function's assignment to a name it didn't declare global
// creates its own local rather than mutating the enclosing
// function's binding — there is no implicit write-through capture.
func TestAssignmentInNestedFunctionShadowsRatherThanCaptures(t *testing.T) {
	got := run(t, `
		make = fun() {
			n = 0;
			bump = fun() {
				n = 1;
				return n;
			};
			bump();
			bump();
			return n;
		};
		print(make());
	`)
	if got != "0\n" {
		t.Fatalf("got %q, want %q", got, "0\n")
	}
}

func TestGlobalDeclWritesThroughToGlobalFrame(t *testing.T) {
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

func TestClosureReadsEnclosingLocalByReference(t *testing.T) {
	got := run(t, `
		make = fun() {
			n = 41;
			get = fun() {
				return n + 1;
			};
			return get();
		};
		print(make());
	`)
	if got != "42\n" {
		t.Fatalf("got %q, want %q", got, "42\n")
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

func TestMissingRecordFieldReadsAsNone(t *testing.T) {
	got := run(t, `
		r = { x: 1; };
		print(r.missing);
	`)
	if got != "None\n" {
		t.Fatalf("got %q, want %q", got, "None\n")
	}
}

func TestStringConcatAndIntcast(t *testing.T) {
	got := run(t, `print("n=" + intcast("42"));`)
	if got != "n=42\n" {
		t.Fatalf("got %q, want %q", got, "n=42\n")
	}
}

func TestDivisionByZero(t *testing.T) {
	prog, err := lang.Parse(`x = 1 / 0;`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	in := New(Config{})
	err = in.Run(prog)
	if err == nil {
		t.Fatal("expected a division-by-zero error")
	}
	ierr, ok := err.(*Error)
	if !ok || ierr.Kind != IllegalArithmetic {
		t.Fatalf("got %v, want IllegalArithmetic", err)
	}
}

func TestReturnOutsideFunctionIsRuntimeError(t *testing.T) {
	prog, err := lang.Parse(`return 1;`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	in := New(Config{})
	err = in.Run(prog)
	ierr, ok := err.(*Error)
	if !ok || ierr.Kind != Runtime {
		t.Fatalf("got %v, want Runtime", err)
	}
}

func TestUninitializedGlobalRead(t *testing.T) {
	prog, err := lang.Parse(`print(neverset);`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	in := New(Config{})
	err = in.Run(prog)
	ierr, ok := err.(*Error)
	if !ok || ierr.Kind != UninitializedVariable {
		t.Fatalf("got %v, want UninitializedVariable", err)
	}
}

func TestEqualityCrossTypeIsFalse(t *testing.T) {
	got := run(t, `
		print(1 == "1");
		print(None == None);
		print(1 == 1);
	`)
	if got != "false\ntrue\ntrue\n" {
		t.Fatalf("got %q, want %q", got, "false\ntrue\ntrue\n")
	}
}

func TestRecordToStringIsSortedByKey(t *testing.T) {
	got := run(t, `
		r = { b: 2; a: 1; };
		print(r);
	`)
	if got != "{a:1 b:2 }\n" {
		t.Fatalf("got %q, want %q", got, "{a:1 b:2 }\n")
	}
}
