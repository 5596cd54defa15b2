// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimizer

import "github.com/langvm/langvm/internal/bytecode"

// absInstr is an Instr with its branch target (if any) expressed as an
// absolute instruction index rather than a relative offset, so that passes
// can freely insert/delete instructions and recompute offsets once at the
// end instead of threading the arithmetic through every rewrite.
type absInstr struct {
	Op     bytecode.Op
	Arg    int32 // meaningful for non-branch ops only
	Target int   // meaningful for OpGoto/OpIf only
}

func toAbsolute(instrs []bytecode.Instr) []absInstr {
	out := make([]absInstr, len(instrs))
	for i, in := range instrs {
		a := absInstr{Op: in.Op, Arg: in.Arg}
		if in.Op == bytecode.OpGoto || in.Op == bytecode.OpIf {
			a.Target = i + 1 + int(in.Arg)
		}
		out[i] = a
	}
	return out
}

// fromAbsolute re-derives relative offsets. remap maps every absolute
// instruction's position in the ORIGINAL stream it was built from to its
// position in abs (identity if abs wasn't built by a prior toAbsolute
// call); branch targets in abs are already absolute indices into abs
// itself by the time this is called (passes keep Target in sync as they
// edit), so no remap is needed here.
func fromAbsolute(abs []absInstr) []bytecode.Instr {
	out := make([]bytecode.Instr, len(abs))
	for i, a := range abs {
		in := bytecode.Instr{Op: a.Op, Arg: a.Arg}
		if a.Op == bytecode.OpGoto || a.Op == bytecode.OpIf {
			in.Arg = int32(a.Target - i - 1)
		}
		out[i] = in
	}
	return out
}

// branchTargets returns the set of instruction indices that are the target
// of some goto/if in instrs — used by the peephole pass to avoid rewriting
// across a jump target (spec.md §4.3 pass 3).
func branchTargets(instrs []bytecode.Instr) map[int]bool {
	targets := make(map[int]bool)
	for i, in := range instrs {
		if in.Op == bytecode.OpGoto || in.Op == bytecode.OpIf {
			targets[i+1+int(in.Arg)] = true
		}
	}
	return targets
}

// block is a maximal run of instructions with a single entry (a leader) and
// a single exit, used by dead-store elimination's liveness analysis
// (spec.md §4.3 pass 4). Leaders are index 0 and every instruction
// immediately following a branch or return (spec.md's definition).
type block struct {
	start, end int // [start, end)
	succs      []int
}

func basicBlocks(instrs []bytecode.Instr) []block {
	isLeader := make([]bool, len(instrs)+1)
	isLeader[0] = true
	for i, in := range instrs {
		if in.Op == bytecode.OpGoto || in.Op == bytecode.OpIf || in.Op == bytecode.OpReturn {
			if i+1 < len(instrs) {
				isLeader[i+1] = true
			}
		}
		if in.Op == bytecode.OpGoto || in.Op == bytecode.OpIf {
			t := i + 1 + int(in.Arg)
			if t >= 0 && t <= len(instrs) {
				isLeader[t] = true
			}
		}
	}
	var leaders []int
	for i := 0; i <= len(instrs); i++ {
		if isLeader[i] && i < len(instrs) {
			leaders = append(leaders, i)
		}
	}
	leaderIndex := make(map[int]int, len(leaders))
	for idx, l := range leaders {
		leaderIndex[l] = idx
	}

	blocks := make([]block, len(leaders))
	for idx, l := range leaders {
		end := len(instrs)
		if idx+1 < len(leaders) {
			end = leaders[idx+1]
		}
		b := block{start: l, end: end}
		if end > l {
			last := instrs[end-1]
			switch last.Op {
			case bytecode.OpReturn:
				// no successors
			case bytecode.OpGoto:
				t := end - 1 + 1 + int(last.Arg)
				if bi, ok := leaderIndex[t]; ok {
					b.succs = append(b.succs, bi)
				}
			case bytecode.OpIf:
				t := end - 1 + 1 + int(last.Arg)
				if bi, ok := leaderIndex[t]; ok {
					b.succs = append(b.succs, bi)
				}
				if end < len(instrs) {
					if bi, ok := leaderIndex[end]; ok {
						b.succs = append(b.succs, bi)
					}
				}
			default:
				if end < len(instrs) {
					if bi, ok := leaderIndex[end]; ok {
						b.succs = append(b.succs, bi)
					}
				}
			}
		}
		blocks[idx] = b
	}
	return blocks
}
