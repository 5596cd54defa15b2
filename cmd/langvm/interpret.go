// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/langvm/langvm/internal/interp"
	"github.com/langvm/langvm/internal/lang"
	"github.com/spf13/cobra"
)

func interpretCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interpret [file]",
		Short: "evaluate a source file directly over its syntax tree",
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
			prog, err := lang.Parse(string(src))
			if err != nil {
				return err
			}
			out, err := openOutput(f.output)
			if err != nil {
				return err
			}
			defer out.Close()
			in := interp.New(interp.Config{Stdout: out})
			if err := in.Run(prog); err != nil {
				return err
			}
			if f.stats {
				reportRusage(os.Stderr)
			}
			return nil
		},
	}
}

func reportRusage(w *os.File) {
	usage, err := getrusage()
	if err != nil {
		fmt.Fprintf(w, "stats: rusage unavailable: %v\n", err)
		return
	}
	fmt.Fprintf(w, "stats: peak rss = %d KiB\n", usage)
}
