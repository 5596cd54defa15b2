// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/spf13/cobra"
)

// flags holds the persistent command-line options shared by every
// subcommand.
type flags struct {
	output   string
	maxHeap  int64
	optNames []string
	stats    bool
}

var f flags

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "langvm",
		Short:         "lex, parse, compile and run the scripting language",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&f.output, "output", "o", "-", "output path (- for stdout)")
	root.PersistentFlags().Int64VarP(&f.maxHeap, "max-heap", "m", 4, "maximum heap size in MiB (0 for unbounded)")
	root.PersistentFlags().StringSliceVarP(&f.optNames, "optimize", "O", nil, "optimization passes to run: optimize,dce,constprop,inline,licm,all")
	root.PersistentFlags().BoolVar(&f.stats, "stats", false, "report GC and resource usage stats on stderr after running")

	root.AddCommand(scanCmd())
	root.AddCommand(parseCmd())
	root.AddCommand(compileCmd())
	root.AddCommand(interpretCmd())
	root.AddCommand(vmCmd())
	root.AddCommand(derbyCmd())
	root.AddCommand(replCmd())
	return root
}
