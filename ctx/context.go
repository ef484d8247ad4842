// Package ctx defines the Compilation Context (spec.md §3.4): the
// process-wide record every emitter borrows mutably to append functions,
// declare globals, and resolve types. Exactly one Context exists per
// compilation; it is never shared across goroutines (spec.md §5).
//
// Grounded in shape on component/internal/arena.State's pattern of
// parallel, monotonically-growing index spaces threaded through every
// parser/emitter function by pointer.
package ctx

import (
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
	"github.com/rather-labs/move-stylus-wasm/wasm/build"
)

// memoryMinPages is the initial linear memory size: 16 pages (1 MiB), large
// enough for the bump allocator to serve a typical transaction without
// growing.
const memoryMinPages = 16

// bumpCursorStart is the first address of the compile-time constant region;
// the heap starts here too when no constant is declared. Address 0 is
// reserved so that a null pointer is never confused with a valid
// allocation.
const bumpCursorStart = 8

// Context is the compilation-wide state threaded through every emitter.
type Context struct {
	builder *build.Builder

	registry *irtype.Registry
	cache    *runtimefn.Cache

	memoryIdx uint32

	// freePtrGlobal is the bump allocator cursor: the next free byte in
	// linear memory. Reset to the heap start (heapStartGlobal, just past
	// the constant region) by the entrypoint prologue on every top-level
	// invocation (spec.md §5: "the allocator never frees; each top-level
	// invocation starts with a clean bump cursor").
	freePtrGlobal uint32

	// readerPtrGlobal is a mutable i32 global declared for the calldata
	// reader pointer. No emitter reads or writes it: each ABI-unpack
	// function takes the reader pointer as a parameter and returns the
	// advanced one, and the entrypoint keeps it in a local.
	readerPtrGlobal uint32

	// calldataBaseGlobal is a mutable i32 global declared for the
	// linear-memory address of the calldata buffer. No emitter reads or
	// writes it: nested unpack calls receive their base as a parameter.
	calldataBaseGlobal uint32

	// heapStartGlobal is an immutable global holding the same address
	// freePtrGlobal's initializer is patched to at Encode time. The
	// entrypoint prologue copies it into freePtrGlobal (EmitResetAllocator)
	// to give every top-level invocation a clean bump cursor without
	// hardcoding a value that could go stale as more constants are
	// declared during emission.
	heapStartGlobal uint32

	hostImports map[string]uint32

	// constCursor is the next free byte in the compile-time constant
	// region, which shares linear memory with the bump heap but is laid
	// out first: every DeclareConst call claims a range starting here,
	// and freePtrGlobal's initializer is patched to sit just past the
	// last one at Encode time (storage slot sentinels, the keccak
	// "counter" key, and other fixed byte strings all live here).
	constCursor uint32
}

// New creates a fresh Context: declares the module's linear memory and its
// four globals (bump cursor, reader pointer, calldata base, heap start),
// ready for emitters to declare imports, helpers, and the entrypoint.
func New() *Context {
	b := build.New()
	memIdx := b.DeclareMemory(memoryMinPages, nil)

	freePtr := b.DeclareGlobal(wasm.ValI32, true, []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: bumpCursorStart}},
	})
	readerPtr := b.DeclareGlobal(wasm.ValI32, true, []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
	})
	calldataBase := b.DeclareGlobal(wasm.ValI32, true, []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
	})
	heapStart := b.DeclareGlobal(wasm.ValI32, false, []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: bumpCursorStart}},
	})

	return &Context{
		builder:            b,
		registry:           irtype.NewRegistry(),
		cache:              runtimefn.NewCache(),
		memoryIdx:          memIdx,
		freePtrGlobal:      freePtr,
		readerPtrGlobal:    readerPtr,
		calldataBaseGlobal: calldataBase,
		heapStartGlobal:    heapStart,
		hostImports:        make(map[string]uint32),
		constCursor:        bumpCursorStart,
	}
}

// DeclareConst places data in the compile-time constant region and returns
// its address. Repeated calls pack constants back-to-back (32-byte
// aligned, so every constant is itself a valid keccak/storage-slot input
// pointer without further alignment work by the caller).
func (c *Context) DeclareConst(data []byte) uint32 {
	addr := c.constCursor
	c.builder.DeclareData(c.memoryIdx, int32(addr), data)
	size := uint32(len(data))
	aligned := (size + 31) / 32 * 32
	if aligned == 0 {
		aligned = 32
	}
	c.constCursor = addr + aligned
	return addr
}

func (c *Context) Builder() *build.Builder    { return c.builder }
func (c *Context) Registry() *irtype.Registry { return c.registry }
func (c *Context) Cache() *runtimefn.Cache    { return c.cache }

func (c *Context) MemoryIdx() uint32          { return c.memoryIdx }
func (c *Context) FreePtrGlobal() uint32      { return c.freePtrGlobal }
func (c *Context) ReaderPtrGlobal() uint32    { return c.readerPtrGlobal }
func (c *Context) CalldataBaseGlobal() uint32 { return c.calldataBaseGlobal }

// DeclareHostImport registers an import exactly once per name and returns
// its function index; a repeated call with the same name is a no-op that
// returns the existing index, matching §4.1's "register once" discipline
// applied to host imports rather than synthesized helpers.
func (c *Context) DeclareHostImport(module, name string, params, results []wasm.ValType) uint32 {
	if idx, ok := c.hostImports[name]; ok {
		return idx
	}
	idx := c.builder.DeclareImport(module, name, params, results)
	c.hostImports[name] = idx
	return idx
}

// HostImportFunc resolves a previously declared host import by name.
func (c *Context) HostImportFunc(name string) (uint32, bool) {
	idx, ok := c.hostImports[name]
	return idx, ok
}

// Encode patches the bump allocator's start-of-heap global to sit past
// every declared constant, validates the module under construction, and
// finalizes it to its binary form. Must be called exactly once, after all
// emission is finished.
func (c *Context) Encode() ([]byte, error) {
	c.builder.FillGlobalInit(c.freePtrGlobal, []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(c.constCursor)}},
	})
	c.builder.FillGlobalInit(c.heapStartGlobal, []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(c.constCursor)}},
	})
	return c.builder.Encode()
}

// EmitAllocConst emits instructions that bump-allocate size bytes and leave
// the fresh pointer on the stack. The allocator never frees (spec.md §5);
// it is reset to the heap start by the entrypoint prologue
// (EmitResetAllocator).
func (c *Context) EmitAllocConst(size int32) []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpGlobalGet, Imm: wasm.GlobalImm{GlobalIdx: c.freePtrGlobal}},
		{Opcode: wasm.OpGlobalGet, Imm: wasm.GlobalImm{GlobalIdx: c.freePtrGlobal}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: size}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: c.freePtrGlobal}},
	}
}

// EmitAllocDynamic emits instructions that bump-allocate a size computed by
// sizeInstrs (which must leave one i32 on the stack) and leave the fresh
// pointer on the stack.
func (c *Context) EmitAllocDynamic(sizeInstrs []wasm.Instruction) []wasm.Instruction {
	out := []wasm.Instruction{
		{Opcode: wasm.OpGlobalGet, Imm: wasm.GlobalImm{GlobalIdx: c.freePtrGlobal}},
		{Opcode: wasm.OpGlobalGet, Imm: wasm.GlobalImm{GlobalIdx: c.freePtrGlobal}},
	}
	out = append(out, sizeInstrs...)
	out = append(out,
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: c.freePtrGlobal}},
	)
	return out
}

// EmitTrap emits a single unreachable instruction: the lowering of every
// runtime failure category in spec.md §7 to a transaction revert.
func (c *Context) EmitTrap() []wasm.Instruction {
	return []wasm.Instruction{{Opcode: wasm.OpUnreachable}}
}

// EmitResetAllocator emits instructions that reset the bump cursor back to
// the start of the heap (spec.md §5: "the allocator never frees; each
// top-level invocation starts with a clean bump cursor"). Every exported
// entrypoint must run this before its first allocation.
func (c *Context) EmitResetAllocator() []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpGlobalGet, Imm: wasm.GlobalImm{GlobalIdx: c.heapStartGlobal}},
		{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: c.freePtrGlobal}},
	}
}
