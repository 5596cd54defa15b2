// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimizer

import "github.com/langvm/langvm/internal/bytecode"

// eliminateUnreachable implements spec.md §4.3 pass 1: a forward walk from
// instruction 0 computes reachability (goto/return don't fall through, if
// forks to both); unreachable instructions are dropped and every branch
// offset is recomputed to preserve target identity.
func eliminateUnreachable(f *bytecode.Function) bool {
	if len(f.Instrs) == 0 {
		return false
	}
	abs := toAbsolute(f.Instrs)

	reachable := make([]bool, len(abs))
	var stack []int
	reachable[0] = true
	stack = append(stack, 0)
	for len(stack) > 0 {
		n := len(stack) - 1
		i := stack[n]
		stack = stack[:n]
		in := abs[i]
		if in.Op == bytecode.OpGoto || in.Op == bytecode.OpIf {
			if t := in.Target; t >= 0 && t < len(abs) && !reachable[t] {
				reachable[t] = true
				stack = append(stack, t)
			}
		}
		if in.Op.Falls() && i+1 < len(abs) && !reachable[i+1] {
			reachable[i+1] = true
			stack = append(stack, i+1)
		}
	}

	remap := make([]int, len(abs))
	var kept []absInstr
	for i, in := range abs {
		if !reachable[i] {
			remap[i] = -1
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, in)
	}
	if len(kept) == len(abs) {
		return false
	}
	for i := range kept {
		if kept[i].Op == bytecode.OpGoto || kept[i].Op == bytecode.OpIf {
			kept[i].Target = remap[kept[i].Target]
		}
	}
	f.Instrs = fromAbsolute(kept)
	return true
}
