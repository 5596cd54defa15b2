// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimizer

import "github.com/langvm/langvm/internal/bytecode"

// compactPools implements spec.md §4.3 pass 5: unreferenced constants and
// unreferenced nested functions are dropped, and every load that indexes
// into either pool is re-indexed against the compacted pool.
//
// reservedFuncs protects f.Functions[0:reservedFuncs] from being dropped or
// reordered even if f.Instrs never references them via load_func: the
// program entry point's first three children are the print/input/intcast
// sentinels (spec.md §4.6), called by global name rather than load_func, so
// they would otherwise look unreferenced and get compacted away — breaking
// the VM's positional Functions[0:3] binding in Run.
func compactPools(f *bytecode.Function, reservedFuncs int) {
	usedConst := make(map[int32]bool)
	usedFunc := make(map[int32]bool)
	for _, in := range f.Instrs {
		switch in.Op {
		case bytecode.OpLoadConst:
			usedConst[in.Arg] = true
		case bytecode.OpLoadFunc:
			usedFunc[in.Arg] = true
		}
	}
	for i := 0; i < reservedFuncs && i < len(f.Functions); i++ {
		usedFunc[int32(i)] = true
	}

	if len(usedConst) < len(f.Constants) {
		newConsts := make([]bytecode.Const, 0, len(usedConst))
		remap := make([]int32, len(f.Constants))
		for i, c := range f.Constants {
			if !usedConst[int32(i)] {
				remap[i] = -1
				continue
			}
			remap[i] = int32(len(newConsts))
			newConsts = append(newConsts, c)
		}
		for i, in := range f.Instrs {
			if in.Op == bytecode.OpLoadConst {
				f.Instrs[i].Arg = remap[in.Arg]
			}
		}
		f.Constants = newConsts
	}

	if len(usedFunc) < len(f.Functions) {
		newFuncs := make([]*bytecode.Function, 0, len(usedFunc))
		remap := make([]int32, len(f.Functions))
		for i, c := range f.Functions {
			if !usedFunc[int32(i)] {
				remap[i] = -1
				continue
			}
			remap[i] = int32(len(newFuncs))
			newFuncs = append(newFuncs, c)
		}
		for i, in := range f.Instrs {
			if in.Op == bytecode.OpLoadFunc {
				f.Instrs[i].Arg = remap[in.Arg]
			}
		}
		f.Functions = newFuncs
	}
}
