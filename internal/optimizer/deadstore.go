// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package optimizer

import "github.com/langvm/langvm/internal/bytecode"

// eliminateDeadStores implements spec.md §4.3 pass 4: a backward liveness
// analysis over the basic-block CFG computes, for each instruction, which
// locals are live immediately after it; a store_local to a local that is
// neither live afterward nor a ref-local is replaced with pop. The whole
// pass is disabled whenever the function uses any reference opcode, since
// reference operands index push_reference's table, not locals, and a
// naive local-liveness analysis can't tell a captured local's true
// lifetime apart from an ordinary one (spec.md §4.3, §9 open questions).
func eliminateDeadStores(f *bytecode.Function) bool {
	if f.UsesReferences() || len(f.Instrs) == 0 {
		return false
	}

	blocks := basicBlocks(f.Instrs)

	// Classic backward liveness over the basic-block CFG: liveIn(b) is the
	// set of locals live on entry to b, derived from the union of
	// liveIn(successors) pulled backward through b's own loads and stores.
	// Iterate to a fixed point since blocks may form loops.
	liveIn := make([]map[int]bool, len(blocks))
	for i := range liveIn {
		liveIn[i] = make(map[int]bool)
	}
	for iter := 0; iter < len(blocks)+1; iter++ {
		progressed := false
		for bi := len(blocks) - 1; bi >= 0; bi-- {
			b := blocks[bi]
			out := make(map[int]bool)
			for _, s := range b.succs {
				for l := range liveIn[s] {
					out[l] = true
				}
			}
			in := make(map[int]bool, len(out))
			for l := range out {
				in[l] = true
			}
			for i := b.end - 1; i >= b.start; i-- {
				instr := f.Instrs[i]
				switch instr.Op {
				case bytecode.OpStoreLocal:
					delete(in, int(instr.Arg))
				case bytecode.OpLoadLocal:
					in[int(instr.Arg)] = true
				}
			}
			if !sameSet(in, liveIn[bi]) {
				liveIn[bi] = in
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	changedAny := false
	for _, b := range blocks {
		live := make(map[int]bool)
		for _, s := range b.succs {
			for l := range liveIn[s] {
				live[l] = true
			}
		}
		for i := b.end - 1; i >= b.start; i-- {
			instr := f.Instrs[i]
			switch instr.Op {
			case bytecode.OpStoreLocal:
				localIdx := int(instr.Arg)
				if !live[localIdx] && !f.IsRefLocal(localIdx) {
					f.Instrs[i] = bytecode.Instr{Op: bytecode.OpPop}
					changedAny = true
				}
				delete(live, localIdx)
			case bytecode.OpLoadLocal:
				live[int(instr.Arg)] = true
			}
		}
	}
	return changedAny
}

func sameSet(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
