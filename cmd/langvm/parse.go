// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/langvm/langvm/internal/lang"
	"github.com/spf13/cobra"
)

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [file]",
		Short: "parse a source file and report its statement count",
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
			fmt.Fprintf(out, "ok: %d top-level statements\n", len(prog.Statements))
			return nil
		},
	}
}
