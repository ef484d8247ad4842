package pack

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// synthBytes implements spec.md §4.3 "Bytes": the in-memory value already
// addresses a vectorgen-shaped {len,cap}+data header (the representation
// every Bytes value the compiler constructs carries, mirroring
// abi/unpack.synthBytes's opaque-passthrough contract, applied to a concrete
// header this direction can actually size and copy). Dynamic: writes the
// offset into the head slot, then the length word and raw bytes at tailPtr.
func synthBytes(c *ctx.Context, funcIdx uint32) error {
	return synthByteSpan(c, funcIdx, false)
}

// synthString implements spec.md §4.3 "String": identical to Bytes except
// the in-memory value is a single-word wrapper pointing at the
// vectorgen-shaped header (abi/unpack.synthString's wrapper cell), so it is
// unwrapped once before encoding.
func synthString(c *ctx.Context, funcIdx uint32) error {
	return synthByteSpan(c, funcIdx, true)
}

func synthByteSpan(c *ctx.Context, funcIdx uint32, wrapped bool) error {
	const (
		lHeader  = 4
		lLen     = 5
		lPadded  = 6
		lContent = 7
	)
	var body []wasm.Instruction

	if wrapped {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
			wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
		)
	} else {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
		)
	}
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
		wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
	)

	// offset = tailPtr - base; write at headPtr.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pBase}},
		wasm.Instruction{Opcode: wasm.OpI32Sub},
	)
	body = append(body, []wasm.Instruction{
		{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lPadded}}, // reuse as scratch for the offset value
	}...)
	body = append(body, zeroSlot32(pHead)...)
	body = append(body, emitStoreBE32(pHead, 28, lPadded)...)

	// length word at tailPtr.
	body = append(body, zeroSlot32(pTail)...)
	body = append(body, emitStoreBE32(pTail, 28, lLen)...)

	// paddedLen = ((len + 31) / 32) * 32; content = tailPtr + 32.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 31}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
		wasm.Instruction{Opcode: wasm.OpI32DivU},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
		wasm.Instruction{Opcode: wasm.OpI32Mul},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lPadded}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: slotSize}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lContent}},
	)
	// zero-pad the last partial word before copying over it (memory.copy only touches len bytes).
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lContent}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lPadded}},
		wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryFill, Operands: []uint32{0}}},
	)
	// memory.copy(content, header+8, len).
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lContent}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
	)

	// nextTail = content + paddedLen.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lContent}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lPadded}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
	)
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 4}}, body)
	return nil
}
