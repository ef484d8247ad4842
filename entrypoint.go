package move2wasm

import (
	"github.com/rather-labs/move-stylus-wasm/abi"
	"github.com/rather-labs/move-stylus-wasm/abi/pack"
	"github.com/rather-labs/move-stylus-wasm/abi/unpack"
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/storage"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// entrypointFunc assembles the exported "entrypoint" function (spec.md
// §6.2): calldata selector check, per-parameter ABI decode, then an
// immediate ABI re-encode of the same values as the return tuple.
//
// The re-encode step stands in for the out-of-scope front-end's function
// body (SPEC_FULL.md §10): because it is a value-for-value round trip, the
// encoded return is always exactly as large as the decoded payload
// (spec.md §8 P1 — pack(T, unpack(T, bytes)) reproduces bytes bit-exactly),
// so the return buffer can be sized from calldataLen directly rather than
// needing a separate size-computation pass over the values.
type entrypointFunc struct {
	ctx             *ctx.Context
	imports         *storage.Imports
	params          []irtype.Type
	selector        uint32 // address of the 4-byte selector constant
	returnPtrGlobal uint32
	returnLenGlobal uint32
	abortPtrGlobal  uint32
}

// Local layout for the entrypoint body. Params occupy indices 0-1
// (calldataPtr, calldataLen); fixed working locals follow, then one value
// local per parameter, i32-typed ones first and i64-typed ones (U64 only)
// last — WASM groups declared locals by type in declaration order.
const (
	lElemBase = 2
	lReader   = 3
	lHeadBase = 4
	lTail     = 5
	firstVal  = 6
)

func (f *entrypointFunc) valueLocals() (i32Locals, i64Locals []uint32) {
	i32Locals = make([]uint32, len(f.params))
	i64Locals = make([]uint32, len(f.params))
	idx := uint32(firstVal)
	for i, t := range f.params {
		if t.Kind() != irtype.KindU64 {
			i32Locals[i] = idx
			idx++
		}
	}
	for i, t := range f.params {
		if t.Kind() == irtype.KindU64 {
			i64Locals[i] = idx
			idx++
		}
	}
	return i32Locals, i64Locals
}

func (f *entrypointFunc) emit() error {
	c := f.ctx
	_ = f.imports // declared on the module regardless of whether this smoke entrypoint calls them (spec.md §6.1)

	unpackFns := make([]uint32, len(f.params))
	packFns := make([]uint32, len(f.params))
	headWords := make([]int, len(f.params))
	for i, t := range f.params {
		ufn, err := unpack.Unpack(c, t)
		if err != nil {
			return err
		}
		pfn, err := pack.Pack(c, t)
		if err != nil {
			return err
		}
		unpackFns[i] = ufn
		packFns[i] = pfn
		headWords[i] = abi.HeadWords(t, c.Registry())
	}
	totalHeadWords := 0
	for _, hw := range headWords {
		totalHeadWords += hw
	}

	i32ValLocal, i64ValLocal := f.valueLocals()
	valLocal := func(i int) uint32 {
		if f.params[i].Kind() == irtype.KindU64 {
			return i64ValLocal[i]
		}
		return i32ValLocal[i]
	}

	var body []wasm.Instruction

	body = append(body, c.EmitResetAllocator()...)

	// elemsBase/reader start right after the 4-byte selector.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 4}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lElemBase}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lElemBase}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lReader}},
	)

	// Trap on a calldata buffer too short to even hold a selector, or on a
	// selector that does not match this function (spec.md §7 "ABI decode
	// failure"). Comparing the raw 4 bytes as an i32.load needs no
	// endianness conversion: both sides are read with the same byte order.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 4}},
		wasm.Instruction{Opcode: wasm.OpI32LtU},
		wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpUnreachable},
		wasm.Instruction{Opcode: wasm.OpEnd},

		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(f.selector)}},
		wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpI32Ne},
		wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpUnreachable},
		wasm.Instruction{Opcode: wasm.OpEnd},
	)

	// Decode every parameter in turn, threading the reader cursor.
	for i, fn := range unpackFns {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lReader}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lElemBase}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: fn}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lReader}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: valLocal(i)}},
		)
	}

	// Allocate the return buffer sized to the decoded payload (calldataLen
	// minus the 4-byte selector) and re-encode every value as the return
	// tuple's head/tail, threading the tail cursor exactly as
	// abi/pack.synthStruct does for a static tuple's own fields.
	body = append(body, c.EmitAllocDynamic([]wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 4}},
		{Opcode: wasm.OpI32Sub},
	})...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeadBase}})
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeadBase}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(totalHeadWords) * abi.WordSize}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTail}},
	)

	wordOffset := 0
	for i, fn := range packFns {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valLocal(i)}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeadBase}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(wordOffset) * abi.WordSize}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTail}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeadBase}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: fn}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTail}},
		)
		wordOffset += headWords[i]
	}

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeadBase}},
		wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: f.returnPtrGlobal}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTail}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeadBase}},
		wasm.Instruction{Opcode: wasm.OpI32Sub},
		wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: f.returnLenGlobal}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
	)

	i32Count := uint32(firstVal-2) + uint32(len(i32NonZero(i32ValLocal)))
	i64Count := uint32(len(i32NonZero(i64ValLocal)))
	locals := []wasm.LocalEntry{{ValType: wasm.ValI32, Count: i32Count}}
	if i64Count > 0 {
		locals = append(locals, wasm.LocalEntry{ValType: wasm.ValI64, Count: i64Count})
	}

	fnIdx := c.Builder().ReserveFunc("entrypoint", []wasm.ValType{wasm.ValI32, wasm.ValI32}, []wasm.ValType{wasm.ValI32})
	c.Builder().FillFunc(fnIdx, locals, body)
	c.Builder().DeclareExport("entrypoint", fnIdx)
	return nil
}

// i32NonZero counts the locals a valueLocals pass actually assigned: a
// zero-valued entry means that parameter's value lives in the other
// type's local array instead.
func i32NonZero(locals []uint32) []uint32 {
	var out []uint32
	for _, l := range locals {
		if l != 0 {
			out = append(out, l)
		}
	}
	return out
}
