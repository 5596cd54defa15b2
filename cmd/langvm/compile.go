// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/langvm/langvm/internal/bytecode"
	"github.com/langvm/langvm/internal/compiler"
	"github.com/langvm/langvm/internal/optimizer"
	"github.com/spf13/cobra"
)

func compileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile [file]",
		Short: "compile a source file to bytecode text",
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
			top, err := compiler.Compile(string(src))
			if err != nil {
				return err
			}
			cfg, err := parseOptConfig(f.optNames)
			if err != nil {
				return err
			}
			if f.optNames != nil {
				if err := optimizer.Optimize(top, cfg); err != nil {
					return err
				}
			}
			out, err := openOutput(f.output)
			if err != nil {
				return err
			}
			defer out.Close()
			return bytecode.Print(out, top)
		},
	}
}
