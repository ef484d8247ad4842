package pack

import (
	"github.com/rather-labs/move-stylus-wasm/abi"
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

const pVal = 0

// zeroSlot32 emits memory.fill(ptr, 0, 32), clearing a 32-byte ABI slot
// before its occupied low bytes are written, so untouched high bytes read
// back as the zero-padding the ABI requires.
func zeroSlot32(ptrLocal uint32) []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: slotSize}},
		{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryFill, Operands: []uint32{0}}},
	}
}

// emitStoreBE32 emits instructions that store the i32 value held in
// valLocal as 4 big-endian bytes at ptrLocal+offset.
func emitStoreBE32(ptrLocal uint32, offset uint64, valLocal uint32) []wasm.Instruction {
	var out []wasm.Instruction
	for i := 0; i < 4; i++ {
		shift := int32(3-i) * 8
		out = append(out,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valLocal}},
		)
		if shift > 0 {
			out = append(out,
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: shift}},
				wasm.Instruction{Opcode: wasm.OpI32ShrU},
			)
		}
		out = append(out, wasm.Instruction{Opcode: wasm.OpI32Store8, Imm: wasm.MemoryImm{Offset: offset + uint64(i)}})
	}
	return out
}

// emitStoreBE64 emits instructions that store the i64 value held in
// valLocal as 8 big-endian bytes at ptrLocal+offset.
func emitStoreBE64(ptrLocal uint32, offset uint64, valLocal uint32) []wasm.Instruction {
	var out []wasm.Instruction
	for i := 0; i < 8; i++ {
		shift := int64(7-i) * 8
		out = append(out,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valLocal}},
		)
		if shift > 0 {
			out = append(out,
				wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: shift}},
				wasm.Instruction{Opcode: wasm.OpI64ShrU},
			)
		}
		out = append(out,
			wasm.Instruction{Opcode: wasm.OpI32WrapI64},
			wasm.Instruction{Opcode: wasm.OpI32Store8, Imm: wasm.MemoryImm{Offset: offset + uint64(i)}},
		)
	}
	return out
}

// synthScalar32 implements Bool/U8/U16/U32: zero the head slot, store the
// value's low 4 bytes big-endian at offset 28, tail untouched.
func synthScalar32(c *ctx.Context, funcIdx uint32) error {
	const lVal32 = 4
	var body []wasm.Instruction
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lVal32}},
	)
	body = append(body, zeroSlot32(pHead)...)
	body = append(body, emitStoreBE32(pHead, 28, lVal32)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}})
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
	return nil
}

// synthU64 implements U64: zero the head slot, store the value big-endian
// at offset 24, tail untouched.
func synthU64(c *ctx.Context, funcIdx uint32) error {
	const lVal64 = 4
	var body []wasm.Instruction
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lVal64}},
	)
	body = append(body, zeroSlot32(pHead)...)
	body = append(body, emitStoreBE64(pHead, 24, lVal64)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}})
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 0}, {ValType: wasm.ValI64, Count: 1}}, body)
	return nil
}

// synthHeapScalar implements U128/U256: the value is a pointer to a
// little-endian heap blob; zero the head slot, copy size bytes into the
// slot at dstOffset, reverse them in place to big-endian, tail untouched.
func synthHeapScalar(c *ctx.Context, funcIdx uint32, size int32, dstOffset uint64) error {
	var body []wasm.Instruction
	body = append(body, zeroSlot32(pHead)...)
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pHead}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(dstOffset)}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: size}},
		wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
	)
	swapRole := runtimefn.RoleEndianSwapI256
	if size == 16 {
		swapRole = runtimefn.RoleEndianSwapI128
	}
	swapFn := abi.EnsureByteSwap(c, swapRole, size)
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pHead}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(dstOffset)}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: swapFn}},
	)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}})
	c.Builder().FillFunc(funcIdx, nil, body)
	return nil
}

// synthAddress implements Address: copy the 20/32-byte blob verbatim (no
// swap — same left-padded representation on both sides), tail untouched.
func synthAddress(c *ctx.Context, funcIdx uint32) error {
	var body []wasm.Instruction
	body = append(body, zeroSlot32(pHead)...)
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pHead}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
		wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
	)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}})
	c.Builder().FillFunc(funcIdx, nil, body)
	return nil
}
