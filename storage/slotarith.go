package storage

import (
	"strconv"

	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// ensureSlotAddConst materializes a helper that treats a 32-byte storage
// slot as a big-endian (byte 0 = most significant) 256-bit unsigned
// integer and returns a fresh pointer to slot+n, per spec.md §4.5 "sibling
// slots for a multi-word object are consecutive: parent_slot,
// parent_slot+1, …". n is folded into the function as a monomorphization
// (one helper per distinct sub-slot offset a compilation actually uses).
func ensureSlotAddConst(c *ctx.Context, n int) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleSlotAddConst, strconv.Itoa(n),
		[]wasm.ValType{wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			const pSlot = 0
			const lOut, lCarry, lI, lV = 1, 2, 3, 4
			var body []wasm.Instruction

			body = append(body, c.EmitAllocConst(32)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOut}})
			body = append(body, emitCopy32(lOut, 0, pSlot)...)

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(n)}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 31}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},

				wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},

				// break once the carry is exhausted or we've walked past byte 0.
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
				wasm.Instruction{Opcode: wasm.OpI32Eqz},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
				wasm.Instruction{Opcode: wasm.OpI32LtS},
				wasm.Instruction{Opcode: wasm.OpI32Or},
				wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}},

				// v = byte[i] + (carry & 0xFF)
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOut}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{Offset: 0}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0xFF}},
				wasm.Instruction{Opcode: wasm.OpI32And},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lV}},

				// byte[i] = v & 0xFF
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOut}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lV}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0xFF}},
				wasm.Instruction{Opcode: wasm.OpI32And},
				wasm.Instruction{Opcode: wasm.OpI32Store8, Imm: wasm.MemoryImm{Offset: 0}},

				// carry = (carry >> 8) + (v >> 8)
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
				wasm.Instruction{Opcode: wasm.OpI32ShrU},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lV}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
				wasm.Instruction{Opcode: wasm.OpI32ShrU},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCarry}},

				// i -= 1
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
				wasm.Instruction{Opcode: wasm.OpI32Sub},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},
				wasm.Instruction{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},

				wasm.Instruction{Opcode: wasm.OpEnd}, // loop
				wasm.Instruction{Opcode: wasm.OpEnd}, // block
			)

			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOut}})
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 4}}, body)
		},
	)
	return idx
}
