// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/langvm/langvm/internal/lang"
	"github.com/spf13/cobra"
)

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [file]",
		Short: "lex a source file and list its tokens",
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
			toks, err := lang.NewLexer(string(src)).Lex()
			if err != nil {
				return err
			}
			out, err := openOutput(f.output)
			if err != nil {
				return err
			}
			defer out.Close()
			for _, t := range toks {
				fmt.Fprintf(out, "%s %-12s %q\n", t.Start, t.Kind, t.Text)
			}
			return nil
		},
	}
}
