// Copyright 2018 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vm

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/langvm/langvm/internal/bytecode"
	"github.com/langvm/langvm/internal/heap"
	"github.com/langvm/langvm/internal/lower"
	"github.com/langvm/langvm/internal/value"
)

// recordSize and friends are rough per-object byte estimates fed to the
// heap's allocation-pressure accounting (spec.md §4.1); the collector only
// needs a consistent unit, not an exact sizeof.
const (
	recordBaseSize    = 64
	referenceSize     = 32
	closureBaseSize   = 32
	closureCellSize   = 8
)

// Config configures one VM instance (spec.md §4.6 "Run the Function tree
// as the program entry, providing a configurable maximum heap size").
type Config struct {
	MaxHeapBytes int64 // 0 means unbounded
	Stdout       io.Writer
	Stdin        io.Reader
}

// builtinID names the three native functions the top-level Function's
// first three nested children are reserved for (spec.md §4.5 "Native
// builtins").
type builtinID int

const (
	builtinPrint builtinID = iota
	builtinInput
	builtinIntcast
)

// VM is one execution engine instance: the heap, the globals table, the
// builtin dispatch table, and the live call stack (spec.md §5: single
// mutator, no locking, strictly synchronous).
type VM struct {
	heap    *heap.Heap
	globals map[string]value.Value

	builtins map[*bytecode.Function]builtinID

	stdout io.Writer
	stdin  *bufio.Reader

	frames []*frame

	minorGCCount int
}

// New constructs a VM with an empty heap and globals table.
func New(cfg Config) *VM {
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	var stdin io.Reader = cfg.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	return &VM{
		heap:     heap.New(cfg.MaxHeapBytes),
		globals:  make(map[string]value.Value),
		builtins: make(map[*bytecode.Function]builtinID),
		stdout:   stdout,
		stdin:    bufio.NewReader(stdin),
	}
}

// Construct validates a Function tree built by an external producer
// (package compiler) before it is ever run, per the host interface's first
// operation (spec.md §4.6).
func Construct(top *bytecode.Function) error {
	return top.Validate()
}

// Heap exposes the collector for callers that want GC stats (--stats).
func (vm *VM) Heap() *heap.Heap { return vm.heap }

// Run executes top as the program entry point (spec.md §4.6's second
// operation). top.Functions[0:3] must be the print/input/intcast sentinel
// children (spec.md §4.5); Run pre-binds their names as globals pointing
// at Function values the call dispatch recognizes via vm.builtins.
func (vm *VM) Run(top *bytecode.Function) error {
	names := [3]string{"print", "input", "intcast"}
	for i, id := range [3]builtinID{builtinPrint, builtinInput, builtinIntcast} {
		if i >= len(top.Functions) {
			continue
		}
		child := top.Functions[i]
		vm.builtins[child] = id
		vm.globals[names[i]] = value.Func(child)
	}

	_, err := vm.call(value.Func(top), nil)
	return err
}

// call dispatches to either a native builtin or the bytecode engine,
// matching the Closure/Function distinction spec.md §4.5's `call`
// semantics describe: a Closure executes with its own cells as
// environment, a bare Function with an empty one.
func (vm *VM) call(callee value.Value, args []value.Value) (value.Value, error) {
	switch callee.Kind() {
	case value.KindFunction:
		fn, _ := callee.AsFunc()
		if id, ok := vm.builtins[fn]; ok {
			return vm.callBuiltin(id, args)
		}
		return vm.execute(fn, nil, args)
	case value.KindClosure:
		clo, _ := callee.AsClosure()
		return vm.execute(clo.Fn, clo.Cells, args)
	default:
		return value.None, newError(IllegalCast, "call target is a %s, not callable", callee.Kind())
	}
}

// execute runs fn to completion in a fresh frame, the engine's recursive
// implementation of "the call recurses into the engine" (spec.md §4.5).
func (vm *VM) execute(fn *bytecode.Function, env []*value.Reference, args []value.Value) (value.Value, error) {
	if len(args) != fn.ParamCount {
		return value.None, newError(Runtime, "function %q: expected %d arguments, got %d", fn.Name, fn.ParamCount, len(args))
	}
	if err := lower.Lower(fn); err != nil {
		return value.None, newError(Runtime, "function %q: %v", fn.Name, err)
	}

	fr := &frame{
		fn:       fn,
		regs:     make([]value.Value, fn.RegCount),
		slotCell: make(map[int32]*value.Reference),
		env:      env,
	}
	copy(fr.regs, args)

	if len(fn.RefLocals) > 0 {
		fr.refCells = make([]*value.Reference, len(fn.RefLocals))
		for pos, name := range fn.RefLocals {
			slot := localSlot(fn, name)
			var init value.Value
			if slot >= 0 && slot < len(fr.regs) {
				init = fr.regs[slot]
			}
			cell, err := vm.allocReference(init)
			if err != nil {
				return value.None, err
			}
			fr.refCells[pos] = cell
			if slot >= 0 {
				fr.slotCell[int32(slot)] = cell
			}
		}
	}

	vm.frames = append(vm.frames, fr)
	defer func() { vm.frames = vm.frames[:len(vm.frames)-1] }()

	return vm.run(fr)
}

func localSlot(fn *bytecode.Function, name string) int {
	for i, n := range fn.Locals {
		if n == name {
			return i
		}
	}
	return -1
}

func (vm *VM) callBuiltin(id builtinID, args []value.Value) (value.Value, error) {
	switch id {
	case builtinPrint:
		if len(args) != 1 {
			return value.None, newError(Runtime, "print: expected 1 argument, got %d", len(args))
		}
		io.WriteString(vm.stdout, args[0].String()+"\n")
		return value.None, nil
	case builtinInput:
		line, _ := vm.stdin.ReadString('\n')
		return value.Str(strings.TrimRight(line, "\r\n")), nil
	case builtinIntcast:
		if len(args) != 1 {
			return value.None, newError(Runtime, "intcast: expected 1 argument, got %d", len(args))
		}
		s, ok := args[0].AsString()
		if !ok {
			return value.None, newError(IllegalCast, "intcast: argument is a %s, not a String", args[0].Kind())
		}
		n := leadingInt(s)
		return value.Int(n), nil
	}
	return value.None, newError(Runtime, "unknown builtin %d", id)
}

// leadingInt parses the longest valid signed-integer prefix of s, or 0 if
// none exists (spec.md §6 "non-numeric yields 0").
func leadingInt(s string) int32 {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digitsStart := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digitsStart {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

// allocRecord, allocReference, allocClosure all funnel through
// maybeCollect so every allocation site can trigger a GC under pressure
// (spec.md §4.1 "invoked on allocation pressure") before the object is
// registered.
func (vm *VM) allocRecord() (*value.Record, error) {
	if err := vm.maybeCollect(); err != nil {
		return nil, err
	}
	r := value.NewRecord()
	vm.heap.Register(r, recordBaseSize)
	return r, nil
}

func (vm *VM) allocReference(v value.Value) (*value.Reference, error) {
	if err := vm.maybeCollect(); err != nil {
		return nil, err
	}
	r := value.NewReference(v)
	vm.heap.Register(r, referenceSize)
	return r, nil
}

func (vm *VM) allocClosure(fn *bytecode.Function, cells []*value.Reference) (*value.Closure, error) {
	if err := vm.maybeCollect(); err != nil {
		return nil, err
	}
	c := value.NewClosure(fn, cells)
	vm.heap.Register(c, closureBaseSize+closureCellSize*int64(len(cells)))
	return c, nil
}

// maybeCollect runs a GC when the heap reports allocation pressure,
// alternating mostly-minor collections with an occasional full collection
// to actually reclaim old-generation garbage (spec.md §4.1's two modes).
// It reports a Runtime OOM error if the live estimate still exceeds the
// configured maximum afterward.
func (vm *VM) maybeCollect() error {
	if !vm.heap.Pressure() {
		return nil
	}
	vm.minorGCCount++
	if vm.minorGCCount%8 == 0 {
		vm.heap.FullGC(vm.roots)
	} else {
		vm.heap.MinorGC(vm.roots)
	}
	if vm.heap.Exceeded() {
		return newError(Runtime, "out of memory: live heap exceeds configured maximum")
	}
	return nil
}

// roots implements heap.RootIterator per spec.md §4.1's "Root set
// contract": globals, canonical singletons (None/True/False carry no heap
// identity in this Value representation, so nothing to report for them),
// and for every live frame every register, every ref-cell, and every
// closure-environment cell.
func (vm *VM) roots(yield func(heap.Object)) {
	for _, v := range vm.globals {
		if o := v.HeapObject(); o != nil {
			yield(o)
		}
	}
	for _, fr := range vm.frames {
		for _, v := range fr.regs {
			if o := v.HeapObject(); o != nil {
				yield(o)
			}
		}
		for _, c := range fr.refCells {
			if c != nil {
				yield(c)
			}
		}
		for _, c := range fr.env {
			if c != nil {
				yield(c)
			}
		}
	}
}
