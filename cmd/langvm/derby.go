// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/langvm/langvm/internal/compiler"
	"github.com/spf13/cobra"
)

func derbyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derby [file]",
		Short: "compile a source file and immediately run it on the register VM",
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
			return runOnVM(top)
		},
	}
}
