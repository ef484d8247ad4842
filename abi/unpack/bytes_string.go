package unpack

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// synthBytes implements spec.md §4.2 "Bytes": an opaque passthrough. The
// caller receives the reader-pointer value itself (no allocation, no
// decode) and the reader advances by one slot, exactly as stated.
func synthBytes(c *ctx.Context, funcIdx uint32) error {
	body := []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pReaderPtr}},
	}
	body = append(body, advanceReader(pReaderPtr, slotSize)...)
	c.Builder().FillFunc(funcIdx, nil, body)
	return nil
}

// synthString implements spec.md §4.2 "String": identical to decoding
// Vector<U8> except the payload is contiguous raw bytes (one byte per
// calldata byte, not one 32-byte ABI word per element, the way a generic
// uint8[] would be encoded) — see SPEC_FULL.md §11. The decoded byte
// vector is wrapped in a 4-byte cell holding only the vector pointer.
func synthString(c *ctx.Context, funcIdx uint32) error {
	validator := ensurePointerValidator(c)

	const (
		lRelOffset = 2
		lDataPtr   = 3
		lLen       = 4
		lHeader    = 5
		lWrapper   = 6
	)
	var body []wasm.Instruction

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pReaderPtr}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: validator}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lRelOffset}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pBase}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lRelOffset}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lDataPtr}},

		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lDataPtr}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: validator}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
	)

	// header = alloc(8 + len); header.len = header.cap = len.
	body = append(body, c.EmitAllocDynamic([]wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		{Opcode: wasm.OpI32Add},
	})...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeader}})
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 4}},
	)

	// memory.copy(header+8, dataPtr+32, len) — the raw contiguous bytes.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lDataPtr}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: slotSize}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
	)

	// wrapper = alloc(4); wrapper[0] = header.
	body = append(body, c.EmitAllocConst(4)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lWrapper}})
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lWrapper}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lWrapper}},
	)
	body = append(body, advanceReader(pReaderPtr, slotSize)...)

	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 5}}, body)
	return nil
}
