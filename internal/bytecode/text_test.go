// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package bytecode_test

import (
	"bytes"
	"testing"

	"github.com/langvm/langvm/internal/bytecode"
	"github.com/langvm/langvm/internal/compiler"
	"github.com/langvm/langvm/internal/vm"
)

func runFunction(t *testing.T, top *bytecode.Function) string {
	t.Helper()
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

func TestPrintThenParseRoundTrips(t *testing.T) {
	top, err := compiler.Compile(`
		add = fun(a, b) {
			return a + b;
		};
		r = { x: 1; y: 2; };
		print(add(r.x, r.y));
		print("done");
	`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := runFunction(t, top)

	var text bytes.Buffer
	if err := bytecode.Print(&text, top); err != nil {
		t.Fatalf("Print: %v", err)
	}

	reparsed, err := bytecode.Parse(&text)
	if err != nil {
		t.Fatalf("Parse: %v\ntext:\n%s", err, text.String())
	}
	got := runFunction(t, reparsed)

	if got != want {
		t.Fatalf("round-tripped output %q, want %q", got, want)
	}
}

func TestParseRejectsTrailingInput(t *testing.T) {
	src := "function { functions = [] constants = [] names = [] local_vars = [] local_ref_vars = [] free_vars = [] parameter_count = 0 } junk"
	if _, err := bytecode.Parse(bytes.NewBufferString(src)); err == nil {
		t.Fatal("expected an error for trailing input after the function literal")
	}
}
