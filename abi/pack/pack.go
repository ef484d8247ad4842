// Package pack emits the ABI pack (return/event-buffer encode) functions of
// spec.md §4.3: per-IntermediateType WASM functions that write an in-memory
// value out to a Solidity-ABI return/event buffer, the mirror image of
// abi/unpack.
//
// Grounded in control-flow shape on transcoder.Encoder's type-kind dispatch
// switch and on component/flatten.go's head/tail split, adapted from
// canonical-ABI/WIT flattening to Solidity head/tail ABI encoding.
package pack

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// slotSize is the width of one ABI head/tail slot.
const slotSize = 32

// Pack materializes (once per distinct type) the pack function for t and
// returns its function index. The function's signature is
// (value, headPtr: i32, tailPtr: i32, base: i32) -> (nextTailPtr: i32):
// value is the in-memory immediate or pointer to encode; headPtr is where
// this value's fixed-size head slot (or, for a dynamic type, its offset
// word) is written; tailPtr is the append cursor into the growing tail
// region; base is the address the offset word written at headPtr is
// computed relative to (the start of the enclosing tuple's own content,
// matching abi/unpack's elementsBase convention exactly but for writes).
// Static types leave tailPtr untouched and return it unchanged; dynamic
// types append their payload at tailPtr and return the advanced cursor.
func Pack(c *ctx.Context, t irtype.Type) (uint32, error) {
	if t.Kind() == irtype.KindTypeParameter {
		return 0, errors.GenericTypeParameter(nil)
	}

	mono := t.String()
	var synthErr error
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RolePack, mono,
		paramTypes(t), resultTypes(),
		func(funcIdx uint32) {
			synthErr = synthesize(c, t, funcIdx)
		},
	)
	if synthErr != nil {
		return 0, synthErr
	}
	return idx, nil
}

func paramTypes(t irtype.Type) []wasm.ValType {
	valType := wasm.ValI32
	if t.IsStackRepresentable() && t.Kind() == irtype.KindU64 {
		valType = wasm.ValI64
	}
	return []wasm.ValType{valType, wasm.ValI32, wasm.ValI32, wasm.ValI32}
}

func resultTypes() []wasm.ValType {
	return []wasm.ValType{wasm.ValI32}
}

const (
	pHead = 1
	pTail = 2
	pBase = 3
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
		return errors.Unsupported(errors.PhaseEmit, t.String(), "no ABI pack rule for this type")
	}
}

// synthReference implements Ref/MutRef: unbox (if the referent is a
// stack type boxed into a cell) and delegate to the referent's pack.
func synthReference(c *ctx.Context, t irtype.Type, funcIdx uint32) error {
	inner := t.Elem()
	if inner.IsReference() {
		return errors.RefInsideRef(nil)
	}
	innerFn, err := Pack(c, inner)
	if err != nil {
		return err
	}
	const pVal = 0
	var body []wasm.Instruction
	if inner.IsStackRepresentable() {
		loadOp := wasm.OpI32Load
		if inner.Kind() == irtype.KindU64 {
			loadOp = wasm.OpI64Load
		}
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
			wasm.Instruction{Opcode: loadOp, Imm: wasm.MemoryImm{Offset: 0}},
		)
	} else {
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}})
	}
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pHead}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pBase}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: innerFn}},
	)
	c.Builder().FillFunc(funcIdx, nil, body)
	return nil
}
