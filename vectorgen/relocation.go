package vectorgen

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// Repair materializes spec.md §4.4 "Relocation discipline" / glossary
// "Relocation sentinel": (ptr: i32) -> i32, chasing the forwarding-pointer
// chain left behind by PushBack's grow path. A vacated header stores
// RelocationSentinel at offset 0 (headerLen) and the new header's address at
// offset 4 (headerCap); a live header never holds that sentinel as a length,
// since a real vector's length can't exceed its allocation. Every borrowed
// reference into a vector must be re-resolved through this helper before
// use (the caller, not Repair, is responsible for invoking it at each
// potential relocation point — see §4.4 P8/S3).
func Repair(c *ctx.Context, elem irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleVectorRelocationRepair, elem.String(),
		[]wasm.ValType{wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			const pPtr = 0
			const lCur = 1
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pPtr}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCur}},
			)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},

				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCur}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: headerLen}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: RelocationSentinel}},
				wasm.Instruction{Opcode: wasm.OpI32Ne},
				wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}},

				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCur}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: headerCap}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCur}},
				wasm.Instruction{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},

				wasm.Instruction{Opcode: wasm.OpEnd}, // loop
				wasm.Instruction{Opcode: wasm.OpEnd}, // block
			)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCur}})
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
		},
	)
	return idx
}
