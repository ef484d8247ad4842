package enumgen

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// TagOf materializes the variant-discriminant accessor of spec.md §4.2
// "match": (value: i32) -> i32. For a simple enum the value already IS the
// tag (identity), matching ConstructSimple's representation; for a
// non-simple enum the tag is the cell's first word.
func TagOf(c *ctx.Context, decl *irtype.EnumDecl) uint32 {
	mono := decl.Module + "::" + decl.Name
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleEnumTagOf, mono,
		[]wasm.ValType{wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			var body []wasm.Instruction
			if decl.IsSimple() {
				body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}})
			} else {
				body = append(body,
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
					wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
				)
			}
			c.Builder().FillFunc(funcIdx, nil, body)
		},
	)
	return idx
}

// FieldOf emits the address computation for variant field i of a non-simple
// enum cell already known (by prior TagOf/control flow) to hold the variant
// that declares it — spec.md §4.2 "match" binds each arm's payload fields by
// reading straight out of the shared cell shape, since every variant's
// fields occupy the same boxed-pointer slots starting right after the
// discriminant.
func FieldOf(cellPtrLocal uint32, i int) []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: cellPtrLocal}},
		{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: uint64(payloadFieldSlot(i))}},
	}
}
