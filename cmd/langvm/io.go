// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/langvm/langvm/internal/optimizer"
)

// readInput returns the contents of path, or of stdin when path is "" or
// "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return ioutil.ReadAll(os.Stdin)
	}
	return ioutil.ReadFile(path)
}

// nopWriteCloser adapts os.Stdout (which must never be closed by a
// subcommand) to io.WriteCloser.
type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// openOutput opens path for writing, or wraps stdout when path is "" or
// "-".
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

// parseOptConfig turns the -O flag's comma-separated names into an
// optimizer.Config. "all" enables every pass; "optimize" enables the
// always-safe per-function cleanups (dead-code, constant propagation,
// peephole, dead-store, pool compaction); "dce", "constprop", "inline" and
// "licm" each enable exactly that one pass. An empty names list disables
// optimization entirely, matching a bare compile/vm/derby invocation.
func parseOptConfig(names []string) (optimizer.Config, error) {
	var cfg optimizer.Config
	for _, name := range names {
		switch name {
		case "all":
			cfg = optimizer.All()
		case "optimize":
			cfg.DCE = true
			cfg.ConstProp = true
			cfg.Peephole = true
			cfg.DeadStore = true
			cfg.Compact = true
		case "dce":
			cfg.DCE = true
		case "constprop":
			cfg.ConstProp = true
		case "inline":
			cfg.Inline = true
		case "licm":
			cfg.LICM = true
		default:
			return optimizer.Config{}, fmt.Errorf("unrecognized -O value %q", name)
		}
	}
	return cfg, nil
}
