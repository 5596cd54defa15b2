// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command langvm drives every stage of the runtime from the command line:
// lexing, parsing, compiling to bytecode, tree-walk interpretation, and
// register-VM execution, plus a line-at-a-time REPL.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "langvm: %v\n", err)
		os.Exit(1)
	}
}
