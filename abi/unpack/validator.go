package unpack

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// ensurePointerValidator materializes the 32-bit-pointer validator helper
// (runtimefn.RolePointerValidator): given a pointer to a 32-byte ABI slot,
// it traps unless the high 28 bytes are all zero (spec.md §8 S8: a
// dynamic-offset or length word exceeding 2^32-1 must trap) and returns the
// big-endian value of the low 4 bytes as an i32.
func ensurePointerValidator(c *ctx.Context) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RolePointerValidator, "",
		[]wasm.ValType{wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			const pSlot = 0
			var body []wasm.Instruction

			// Trap unless words at offsets 0,4,...,24 are all zero.
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pSlot}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
			)
			for off := uint64(4); off <= 24; off += 4 {
				body = append(body,
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pSlot}},
					wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: off}},
					wasm.Instruction{Opcode: wasm.OpI32Or},
				)
			}
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpUnreachable},
				wasm.Instruction{Opcode: wasm.OpEnd},
			)

			body = append(body, emitLoadBE32(pSlot, 28)...)
			c.Builder().FillFunc(funcIdx, nil, body)
		},
	)
	return idx
}

// emitLoadBE32 emits instructions that load the 4 big-endian bytes at
// ptrLocal+offset and leave their value as a native i32 on the stack.
func emitLoadBE32(ptrLocal uint32, offset uint64) []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
		{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{Offset: offset}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 24}},
		{Opcode: wasm.OpI32Shl},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
		{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{Offset: offset + 1}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 16}},
		{Opcode: wasm.OpI32Shl},
		{Opcode: wasm.OpI32Or},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
		{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{Offset: offset + 2}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
		{Opcode: wasm.OpI32Shl},
		{Opcode: wasm.OpI32Or},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
		{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{Offset: offset + 3}},
		{Opcode: wasm.OpI32Or},
	}
}

// emitLoadBE64 emits instructions that load the 8 big-endian bytes at
// ptrLocal+offset and leave their value as a native i64 on the stack.
func emitLoadBE64(ptrLocal uint32, offset uint64) []wasm.Instruction {
	var out []wasm.Instruction
	for i := 0; i < 8; i++ {
		out = append(out,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{Offset: offset + uint64(i)}},
			wasm.Instruction{Opcode: wasm.OpI64ExtendI32U},
		)
		shift := int64(7-i) * 8
		if shift > 0 {
			out = append(out,
				wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: shift}},
				wasm.Instruction{Opcode: wasm.OpI64Shl},
			)
		}
		if i > 0 {
			out = append(out, wasm.Instruction{Opcode: wasm.OpI64Or})
		}
	}
	return out
}
