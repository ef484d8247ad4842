// Package build provides a fluent wrapper over wasm.Module construction.
//
// Every emitter package in this repository writes into a *Builder rather
// than touching a wasm.Module directly: it interns duplicate function
// types, hands back stable indices across the function/global/memory
// index spaces, and defers instruction encoding (wasm.FuncBody.Code is raw
// bytes) until a function body is finished.
package build

import "github.com/rather-labs/move-stylus-wasm/wasm"

// Builder accumulates the sections of a wasm.Module under construction.
type Builder struct {
	mod *wasm.Module

	// funcNames maps a synthesized function's stable name to its function
	// index (imports occupy the low end of the index space). Used by
	// runtimefn.Cache to look up a previously materialized helper by name.
	funcNames map[string]uint32
}

// New creates an empty Builder over an empty wasm.Module.
func New() *Builder {
	return &Builder{
		mod:       &wasm.Module{},
		funcNames: make(map[string]uint32),
	}
}

// Module returns the wasm.Module under construction. Callers must not
// mutate it directly except to read it for encoding.
func (b *Builder) Module() *wasm.Module {
	return b.mod
}

// Encode validates the assembled module and encodes it to its binary
// representation. A validation failure here means an emitter produced a
// structurally broken module — a compiler bug surfaced before the bytes
// ever reach a host.
func (b *Builder) Encode() ([]byte, error) {
	if err := b.mod.Validate(); err != nil {
		return nil, err
	}
	return b.mod.Encode(), nil
}

// DeclareType interns a function signature and returns its type index.
func (b *Builder) DeclareType(params, results []wasm.ValType) uint32 {
	return b.mod.AddType(wasm.FuncType{Params: params, Results: results})
}

// DeclareImport registers an imported function and returns its function
// index within the combined (imported + local) function index space.
func (b *Builder) DeclareImport(module, name string, params, results []wasm.ValType) uint32 {
	typeIdx := b.DeclareType(params, results)
	b.mod.Imports = append(b.mod.Imports, wasm.Import{
		Module: module,
		Name:   name,
		Desc:   wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: typeIdx},
	})
	return uint32(b.mod.NumImportedFuncs() - 1)
}

// DeclareMemory registers the module's (sole) linear memory and returns its
// memory index.
func (b *Builder) DeclareMemory(minPages uint64, maxPages *uint64) uint32 {
	b.mod.Memories = append(b.mod.Memories, wasm.MemoryType{
		Limits: wasm.Limits{Min: minPages, Max: maxPages},
	})
	return uint32(b.mod.NumImportedMemories() + len(b.mod.Memories) - 1)
}

// DeclareGlobal registers a mutable or immutable i32/i64 global with the
// given constant initializer and returns its global index.
func (b *Builder) DeclareGlobal(valType wasm.ValType, mutable bool, init []wasm.Instruction) uint32 {
	b.mod.Globals = append(b.mod.Globals, wasm.Global{
		Type: wasm.GlobalType{ValType: valType, Mutable: mutable},
		Init: wasm.EncodeInstructions(init),
	})
	return uint32(b.mod.NumImportedGlobals() + len(b.mod.Globals) - 1)
}

// ReserveFunc reserves a function index and binds it to name before the
// body is known, so that self-recursive helpers (and mutually recursive
// ones, e.g. vector-of-vector copy) can reference their own index while
// being synthesized. FillFunc must be called exactly once per reservation,
// before the module is encoded.
func (b *Builder) ReserveFunc(name string, params, results []wasm.ValType) uint32 {
	typeIdx := b.DeclareType(params, results)
	idx := uint32(b.mod.NumImportedFuncs() + len(b.mod.Funcs))
	b.mod.Funcs = append(b.mod.Funcs, typeIdx)
	b.mod.Code = append(b.mod.Code, wasm.FuncBody{})
	b.funcNames[name] = idx
	return idx
}

// FillFunc supplies the body for a previously reserved function.
func (b *Builder) FillFunc(funcIdx uint32, locals []wasm.LocalEntry, body []wasm.Instruction) {
	localIdx := funcIdx - uint32(b.mod.NumImportedFuncs())
	code := wasm.EncodeInstructions(body)
	code = append(code, wasm.OpEnd)
	b.mod.Code[localIdx] = wasm.FuncBody{Locals: locals, Code: code}
}

// LookupFunc returns the function index previously bound to name by
// ReserveFunc, and whether it exists.
func (b *Builder) LookupFunc(name string) (uint32, bool) {
	idx, ok := b.funcNames[name]
	return idx, ok
}

// FillGlobalInit overwrites the constant initializer of a previously
// declared global. Used once, at Encode time, to patch the bump
// allocator's start-of-heap global after every compile-time constant has
// claimed its byte range (ctx.Context.DeclareConst) — the set of
// constants is only fully known once emission is finished, but the
// global's index must be assigned up front like a reserved function.
func (b *Builder) FillGlobalInit(globalIdx uint32, init []wasm.Instruction) {
	localIdx := globalIdx - uint32(b.mod.NumImportedGlobals())
	b.mod.Globals[localIdx].Init = wasm.EncodeInstructions(init)
}

// DeclareExport exports funcIdx under name as a function export. Compile
// exports "entrypoint" (spec.md §6.2) plus the return_ptr, return_len and
// abort_ptr getters, but the builder does not special-case any name —
// callers decide what to export.
func (b *Builder) DeclareExport(name string, funcIdx uint32) {
	b.mod.Exports = append(b.mod.Exports, wasm.Export{
		Name: name,
		Kind: wasm.KindFunc,
		Idx:  funcIdx,
	})
}

// DeclareData appends an active data segment at the given constant memory
// offset and returns nothing: data segments are write-only initializers,
// never referenced by index in this compiler (no bulk-memory memory.init).
func (b *Builder) DeclareData(memIdx uint32, offset int32, bytes []byte) {
	b.mod.Data = append(b.mod.Data, wasm.DataSegment{
		MemIdx: memIdx,
		Offset: wasm.EncodeInstructions([]wasm.Instruction{
			{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: offset}},
		}),
		Init: bytes,
	})
}
