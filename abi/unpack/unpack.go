// Package unpack emits the ABI unpack (calldata decode) functions of
// spec.md §4.2: per-IntermediateType WASM functions that consume an
// encoded value from calldata and either leave an immediate on the stack
// or return a pointer to an allocated in-memory representation.
//
// Grounded in control-flow shape on transcoder.Decoder's type-kind
// dispatch switch, adapted from canonical-ABI/WIT decoding to Solidity
// head/tail ABI decoding, and on original_source's unpacking.rs for the
// reader-bounds-check and Bytes/String layout details spec.md leaves
// implicit (see SPEC_FULL.md §11).
package unpack

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/layout"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// slotSize is the width of one ABI head/tail slot.
const slotSize = 32

// Unpack materializes (once per distinct type) the unpack function for t
// and returns its function index. The function's signature is
// (readerPtr: i32, elementsBase: i32) -> (value, nextReaderPtr: i32):
// value is the decoded immediate for stack-representable types or a
// pointer for everything else; nextReaderPtr is readerPtr advanced past
// the bytes this call consumed. elementsBase is the address that a nested
// dynamic-offset word (inside a struct or vector element) is resolved
// relative to — the calldata base at the top level, or the start of a
// vector's element region one level down, matching the Solidity ABI rule
// that nested dynamic offsets are relative to their own enclosing tuple.
func Unpack(c *ctx.Context, t irtype.Type) (uint32, error) {
	if t.Kind() == irtype.KindTypeParameter {
		return 0, errors.GenericTypeParameter(nil)
	}

	mono := t.String()
	var synthErr error
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleUnpack, mono,
		paramTypes(), resultTypes(c, t),
		func(funcIdx uint32) {
			synthErr = synthesize(c, t, funcIdx)
		},
	)
	if synthErr != nil {
		return 0, synthErr
	}
	return idx, nil
}

func paramTypes() []wasm.ValType {
	return []wasm.ValType{wasm.ValI32, wasm.ValI32}
}

// resultTypes returns the [value, nextReaderPtr] result signature for t.
func resultTypes(c *ctx.Context, t irtype.Type) []wasm.ValType {
	valType := wasm.ValI32
	if t.IsStackRepresentable() && t.Kind() == irtype.KindU64 {
		valType = wasm.ValI64
	}
	return []wasm.ValType{valType, wasm.ValI32}
}

const (
	pReaderPtr = 0
	pBase      = 1
)

func synthesize(c *ctx.Context, t irtype.Type, funcIdx uint32) error {
	switch t.Kind() {
	case irtype.KindBool, irtype.KindU8, irtype.KindU16, irtype.KindU32:
		return synthScalar32(c, funcIdx)
	case irtype.KindU64:
		return synthU64(c, funcIdx)
	case irtype.KindU128:
		return synthHeapScalar(c, funcIdx, 16, 16)
	case irtype.KindU256:
		return synthHeapScalar(c, funcIdx, 32, 0)
	case irtype.KindAddress:
		return synthAddress(c, funcIdx)
	case irtype.KindBytes:
		return synthBytes(c, funcIdx)
	case irtype.KindStr:
		return synthString(c, funcIdx)
	case irtype.KindVector:
		return synthVector(c, t.Elem(), funcIdx)
	case irtype.KindStruct, irtype.KindGenericStructInstance:
		return synthStruct(c, t, funcIdx)
	case irtype.KindEnum, irtype.KindGenericEnumInstance:
		return synthEnum(c, t, funcIdx)
	case irtype.KindRef, irtype.KindMutRef:
		return synthReference(c, t, funcIdx)
	case irtype.KindSigner:
		return errors.Unsupported(errors.PhaseEmit, t.String(), "signer cannot appear in ABI position")
	default:
		return errors.Unsupported(errors.PhaseEmit, t.String(), "no ABI unpack rule for this type")
	}
}

// synthScalar32 implements Bool/U8/U16/U32: load the 4-byte big-endian word
// at offset 28, yield it as i32, advance by 32.
func synthScalar32(c *ctx.Context, funcIdx uint32) error {
	var body []wasm.Instruction
	body = append(body, emitLoadBE32(pReaderPtr, 28)...)
	body = append(body, advanceReader(pReaderPtr, slotSize)...)
	c.Builder().FillFunc(funcIdx, nil, body)
	return nil
}

// synthU64 implements U64: load the 8-byte big-endian word at offset 24,
// yield i64, advance by 32.
func synthU64(c *ctx.Context, funcIdx uint32) error {
	var body []wasm.Instruction
	body = append(body, emitLoadBE64(pReaderPtr, 24)...)
	body = append(body, advanceReader(pReaderPtr, slotSize)...)
	c.Builder().FillFunc(funcIdx, nil, body)
	return nil
}

// synthHeapScalar implements U128/U256: allocate size bytes, copy the
// relevant tail of the slot byte-for-byte, then reverse the copy in place
// (ABI is big-endian, memory is little-endian), advance by 32.
// srcOffset is the slot offset the value's bytes start at (16 for U128,
// whose value occupies the low 16 bytes of the slot; 0 for U256, which
// occupies the whole slot).
func synthHeapScalar(c *ctx.Context, funcIdx uint32, size int32, srcOffset uint64) error {
	const lDst = 2
	var body []wasm.Instruction
	body = append(body, c.EmitAllocConst(size)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lDst}})

	// memory.copy(dst, src=readerPtr+srcOffset, size) via the misc bulk-memory prefix.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lDst}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pReaderPtr}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(srcOffset)}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: size}},
		wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
	)

	swapRole := runtimefn.RoleEndianSwapI256
	if size == 16 {
		swapRole = runtimefn.RoleEndianSwapI128
	}
	swapFn := ensureByteSwap(c, swapRole, size)
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lDst}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: swapFn}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lDst}},
	)
	body = append(body, advanceReader(pReaderPtr, slotSize)...)
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
	return nil
}

// synthAddress implements Address: allocate 32 bytes, copy the slot
// verbatim (no swap — ABI stores addresses left-padded, matching the
// in-memory representation), advance by 32.
func synthAddress(c *ctx.Context, funcIdx uint32) error {
	const lDst = 2
	var body []wasm.Instruction
	body = append(body, c.EmitAllocConst(32)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lDst}})
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lDst}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pReaderPtr}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
		wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lDst}},
	)
	body = append(body, advanceReader(pReaderPtr, slotSize)...)
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
	return nil
}

// synthReference implements Ref/MutRef: delegate to the referent's unpack,
// boxing it into a fresh cell first if the referent is stack-typed.
func synthReference(c *ctx.Context, t irtype.Type, funcIdx uint32) error {
	inner := t.Elem()
	if inner.IsReference() {
		return errors.RefInsideRef(nil)
	}
	innerFn, err := Unpack(c, inner)
	if err != nil {
		return err
	}
	const lVal, lNext = 2, 3
	var body []wasm.Instruction
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pReaderPtr}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pBase}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: innerFn}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNext}},
	)
	if inner.IsStackRepresentable() {
		boxSize := int32(layout.BoxedSize(inner))
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lVal}})
		body = append(body, c.EmitAllocConst(boxSize)...)
		const lCell = 4
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCell}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lVal}},
		)
		store := wasm.OpI32Store
		if boxSize == 8 {
			store = wasm.OpI64Store
		}
		body = append(body,
			wasm.Instruction{Opcode: store, Imm: wasm.MemoryImm{Offset: 0}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
		)
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNext}})
		locals := []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 3}}
		if inner.Kind() == irtype.KindU64 {
			locals = []wasm.LocalEntry{{ValType: wasm.ValI64, Count: 1}, {ValType: wasm.ValI32, Count: 2}}
		}
		c.Builder().FillFunc(funcIdx, locals, body)
		return nil
	}
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNext}})
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 2}}, body)
	return nil
}

// advanceReader emits [readerPtr + n] as the "nextReaderPtr" result word;
// callers append this after the value is already on the stack.
func advanceReader(ptrLocal uint32, n int32) []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: n}},
		{Opcode: wasm.OpI32Add},
	}
}

// elementDataSizeOf mirrors irtype.ElementDataSize but is kept local so
// callers reading this file see the §3.2 rule next to its use.
func elementDataSizeOf(elem irtype.Type) int32 {
	return int32(irtype.ElementDataSize(elem))
}
