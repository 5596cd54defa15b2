// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/langvm/langvm/internal/compiler"
	"github.com/langvm/langvm/internal/optimizer"
	"github.com/langvm/langvm/internal/vm"
	"github.com/spf13/cobra"
)

func replCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "read-compile-run one line at a time against a shared VM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(os.Stdout)
		},
	}
}

// runRepl feeds each line through the compiler and reuses a single VM, so
// globals assigned on one line are visible on the next (the VM's globals
// map outlives a single Run call, unlike a fresh `derby` invocation).
func runRepl(out io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:      "langvm> ",
		HistoryFile: "",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	cfg, err := parseOptConfig(f.optNames)
	if err != nil {
		return err
	}

	machine := vm.New(vm.Config{MaxHeapBytes: f.maxHeap * (1 << 20), Stdout: out})

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		top, err := compiler.Compile(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if f.optNames != nil {
			if err := optimizer.Optimize(top, cfg); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
		}
		if err := vm.Construct(top); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		if err := machine.Run(top); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}
