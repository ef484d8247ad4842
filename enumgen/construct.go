package enumgen

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// ConstructSimple builds a payload-free variant value: just the variant's
// index, loaded as an immediate (spec.md §4.2 "simple enum" — no allocation,
// no boxing, the value IS the tag, the same representation the ABI exposes
// it under as a uint8).
func ConstructSimple(decl *irtype.EnumDecl, variantName string) ([]wasm.Instruction, error) {
	idx := variantIndex(decl, variantName)
	if idx < 0 {
		return nil, errors.Unsupported(errors.PhaseEmit, decl.Module+"::"+decl.Name, "unknown variant "+variantName)
	}
	return []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(idx)}},
	}, nil
}

// Construct materializes, once per (enum, variant), a helper with signature
// (field0: i32, ..., fieldN: i32) -> i32 that allocates a fresh tagged-union
// cell, stamps the variant's discriminant, and stores each field's boxed
// pointer into its slot (spec.md §4.2 "non-simple enum"). Every variant of
// a given enum allocates the SAME size — the widest variant's payload width
// plus the discriminant, per layout.HeapSize — so the cell's shape never
// betrays which variant it holds; only the discriminant does.
func Construct(c *ctx.Context, decl *irtype.EnumDecl, variantName string) (uint32, error) {
	vIdx := variantIndex(decl, variantName)
	if vIdx < 0 {
		return 0, errors.Unsupported(errors.PhaseEmit, decl.Module+"::"+decl.Name, "unknown variant "+variantName)
	}
	variant := decl.Variants[vIdx]
	totalSize := cellSize(decl)

	mono := decl.Module + "::" + decl.Name + "#" + variant.Name
	params := make([]wasm.ValType, len(variant.Fields))
	for i := range params {
		params[i] = wasm.ValI32
	}

	funcIdx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleEnumConstruct, mono,
		params,
		[]wasm.ValType{wasm.ValI32},
		func(fnIdx uint32) {
			lCell := uint32(len(variant.Fields))
			var body []wasm.Instruction

			body = append(body, c.EmitAllocConst(int32(totalSize))...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCell}})

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(vIdx)}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
			)
			for i := range variant.Fields {
				body = append(body,
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: uint32(i)}},
					wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: uint64(payloadFieldSlot(i))}},
				)
			}
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}})
			c.Builder().FillFunc(fnIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
		},
	)
	return funcIdx, nil
}

// cellSize returns the fixed allocation size every variant of decl shares:
// the discriminant plus the widest variant's boxed-pointer payload.
func cellSize(decl *irtype.EnumDecl) int {
	const pointerSize = 4
	maxFields := 0
	for _, v := range decl.Variants {
		if len(v.Fields) > maxFields {
			maxFields = len(v.Fields)
		}
	}
	return discriminantSize + maxFields*pointerSize
}
