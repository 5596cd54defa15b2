// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/langvm/langvm/internal/bytecode"
	"github.com/langvm/langvm/internal/optimizer"
	"github.com/langvm/langvm/internal/vm"
	"github.com/spf13/cobra"
)

func vmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vm [file]",
		Short: "parse bytecode text and execute it on the register VM",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			src, err := readInput(path)
			if err != nil {
				return err
			}
			top, err := bytecode.Parse(bytes.NewReader(src))
			if err != nil {
				return err
			}
			return runOnVM(top)
		},
	}
}

// runOnVM optimizes top per the -O flag, runs it on a fresh VM sized per
// -m, directs its output per -o, and reports GC/rusage stats on stderr
// when --stats is set.
func runOnVM(top *bytecode.Function) error {
	cfg, err := parseOptConfig(f.optNames)
	if err != nil {
		return err
	}
	if f.optNames != nil {
		if err := optimizer.Optimize(top, cfg); err != nil {
			return err
		}
	}
	if err := vm.Construct(top); err != nil {
		return err
	}
	out, err := openOutput(f.output)
	if err != nil {
		return err
	}
	defer out.Close()

	machine := vm.New(vm.Config{MaxHeapBytes: f.maxHeap * (1 << 20), Stdout: out})
	runErr := machine.Run(top)
	if f.stats {
		s := machine.Heap().Stats()
		fmt.Fprintf(os.Stderr, "stats: objects=%d live_bytes=%d full_gcs=%d minor_gcs=%d\n",
			s.ObjectsAlive, s.LiveBytes, s.FullGCs, s.MinorGCs)
		reportRusage(os.Stderr)
	}
	return runErr
}
