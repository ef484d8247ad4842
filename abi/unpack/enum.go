package unpack

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// synthEnum implements spec.md §4.2 "Enum". Only a simple enum (every
// variant carries an empty payload) may appear at an ABI boundary — a
// non-simple enum is an internal-only representation, never decoded here.
// A simple enum decodes like a plain u32 discriminant, trapping if the
// value names no variant, and is boxed as a 4-byte cell holding the index.
func synthEnum(c *ctx.Context, t irtype.Type, funcIdx uint32) error {
	ref := t.StructRef()
	decl, ok := c.Registry().LookupEnum(ref.Module, ref.Name)
	if !ok {
		return errors.UnresolvedIdentifier(errors.PhaseEmit, ref.Module, ref.Name)
	}
	if !decl.IsSimple() {
		return errors.NonSimpleEnumInABI(t.String())
	}

	const lIdx, lDst = 2, 3
	var body []wasm.Instruction

	body = append(body, emitLoadBE32(pReaderPtr, 28)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lIdx}})

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lIdx}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(len(decl.Variants))}},
		wasm.Instruction{Opcode: wasm.OpI32GeU},
		wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpUnreachable},
		wasm.Instruction{Opcode: wasm.OpEnd},
	)

	body = append(body, c.EmitAllocConst(4)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lDst}})
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lDst}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lIdx}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lDst}},
	)
	body = append(body, advanceReader(pReaderPtr, slotSize)...)

	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 2}}, body)
	return nil
}
