package pack

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// synthEnum implements spec.md §4.3 "Enum": only a simple (payload-free)
// enum may appear in ABI position — its discriminant is its whole
// representation, emitted as the bare uint8 value abi/unpack.synthEnum
// accepts on the way in. A non-simple enum reaching an ABI boundary is
// rejected at emission time, matching abi/unpack's own
// errors.NonSimpleEnumInABI rule (SPEC_FULL.md Open Question decision).
func synthEnum(c *ctx.Context, t irtype.Type, funcIdx uint32) error {
	ref := t.StructRef()
	decl, ok := c.Registry().LookupEnum(ref.Module, ref.Name)
	if !ok {
		return errors.UnresolvedIdentifier(errors.PhaseEmit, ref.Module, ref.Name)
	}
	if !decl.IsSimple() {
		return errors.NonSimpleEnumInABI(t.String())
	}

	var body []wasm.Instruction
	body = append(body, zeroSlot32(pHead)...)
	body = append(body, emitStoreBE32(pHead, 28, pVal)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}})
	c.Builder().FillFunc(funcIdx, nil, body)
	return nil
}
