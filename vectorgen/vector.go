// Package vectorgen emits the vector engine of spec.md §4.4: allocation,
// copy-on-grow, push/pop/swap/borrow, and the relocation-repair prologue
// that re-homes a mutable reference after a grow.
//
// Grounded in shape on resource.UnifiedTable's handle-keyed lifecycle
// (Insert/Get/Remove by a stable key, one allocation per distinct key) —
// here the key is the element irtype.Type rather than a runtime handle, and
// "handle" is a linear-memory pointer rather than a table index, but the
// one-helper-per-distinct-element-type discipline is the same shape.
package vectorgen

import (
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// Header layout, spec.md §3.2 "Vector": len at offset 0, capacity at offset
// 4, elements starting at offset 8.
const (
	headerLen  = 0
	headerCap  = 4
	HeaderSize = 8
)

// RelocationSentinel is the bit pattern 0xDEADBEEF written into a vacated
// vector header's length field to signal that an outstanding mutable
// reference must chase the forwarding pointer at offset 4 (spec.md §3.2,
// §4.4 "Relocation discipline", glossary "Relocation sentinel").
const RelocationSentinel int32 = -559038737 // 0xDEADBEEF as a signed i32

func elemValType(elem irtype.Type) wasm.ValType {
	if elem.Kind() == irtype.KindU64 {
		return wasm.ValI64
	}
	return wasm.ValI32
}

func elemSize(elem irtype.Type) int32 {
	return int32(irtype.ElementDataSize(elem))
}

func elemLoadOp(elem irtype.Type) byte {
	if elem.Kind() == irtype.KindU64 {
		return wasm.OpI64Load
	}
	return wasm.OpI32Load
}

func elemStoreOp(elem irtype.Type) byte {
	if elem.Kind() == irtype.KindU64 {
		return wasm.OpI64Store
	}
	return wasm.OpI32Store
}

// elemSlotAddr emits [headerPtr + HeaderSize + index*elemSize], the address
// of element index within a vector whose header lives at headerPtr. idxInstrs
// must leave the index as an i32 on the stack.
func elemSlotAddr(headerPtrLocal uint32, elem irtype.Type, idxInstrs []wasm.Instruction) []wasm.Instruction {
	out := []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: headerPtrLocal}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: HeaderSize}},
		{Opcode: wasm.OpI32Add},
	}
	out = append(out, idxInstrs...)
	out = append(out,
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize(elem)}},
		wasm.Instruction{Opcode: wasm.OpI32Mul},
		wasm.Instruction{Opcode: wasm.OpI32Add},
	)
	return out
}

// trapIfOOB emits: if idxLocal >= lenLocal, unreachable. Shared by swap and
// borrow; pop_back does its own "trap on empty" check.
func trapIfOOB(idxLocal, lenLocal uint32) []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: idxLocal}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lenLocal}},
		{Opcode: wasm.OpI32GeU},
		{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		{Opcode: wasm.OpUnreachable},
		{Opcode: wasm.OpEnd},
	}
}
