// Package eventgen emits the event-log functions of spec.md §4.3/§6.3: one
// synthesized helper per event that derives topic 0 from the canonical
// signature, fills one topic word per indexed parameter (left-padded for
// simple parameters, keccak-hashed for dynamic ones), ABI-encodes the
// non-indexed parameters as the data tuple, and hands the result to the
// host's emit_log import.
//
// Grounded on original_source's tests/framework/mod.rs event fixtures
// (emitTestEvent1-15 and the emitTestAnonEvent variants, which pin topic
// count, topic-0 derivation, and the data tuple's encoding) and, in
// emission shape, on abi/pack's head/tail threading.
package eventgen

import (
	"github.com/rather-labs/move-stylus-wasm/abi"
	"github.com/rather-labs/move-stylus-wasm/abi/pack"
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/keccak"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/storage"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// maxTopics is the EVM's hard cap on log topics.
const maxTopics = 4

// Param is one declared event parameter.
type Param struct {
	Type    irtype.Type
	Indexed bool
}

// Event describes one named event: its canonical signature covers every
// parameter, indexed or not, in declaration order. Anonymous events carry
// no topic-0 word.
type Event struct {
	Name      string
	Params    []Param
	Anonymous bool
}

// Signature renders the canonical signature string topic 0 is derived from.
func (e Event) Signature() string {
	types := make([]irtype.Type, len(e.Params))
	for i, p := range e.Params {
		types[i] = p.Type
	}
	return abi.SignatureString(e.Name, types)
}

// Topic0 is keccak256 of the canonical signature (spec.md §6.3).
func Topic0(e Event) [32]byte {
	return keccak.Sum256([]byte(e.Signature()))
}

// Emitted function locals. Parameters occupy 0..len(Params)-1.
type emitLocals struct {
	topics, heads, tail, scratch, cursor, length, index uint32
}

// Emit materializes (once per distinct signature) the emit function for e:
// it takes e's parameter values in declaration order (immediates for stack
// types, pointers otherwise) and issues the emit_log host call.
func Emit(c *ctx.Context, imports *storage.Imports, e Event) (uint32, error) {
	nTopics := 0
	if !e.Anonymous {
		nTopics = 1
	}
	for _, p := range e.Params {
		if p.Indexed {
			nTopics++
		}
	}
	if nTopics > maxTopics {
		return 0, errors.Unsupported(errors.PhaseEmit, e.Name, "event exceeds the four-topic limit")
	}

	params := make([]wasm.ValType, len(e.Params))
	for i, p := range e.Params {
		params[i] = wasm.ValI32
		if p.Type.Kind() == irtype.KindU64 {
			params[i] = wasm.ValI64
		}
	}

	var synthErr error
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleEventEmit, e.Signature(),
		params, nil,
		func(funcIdx uint32) {
			synthErr = synthesize(c, imports, e, nTopics, funcIdx)
		},
	)
	if synthErr != nil {
		return 0, synthErr
	}
	return idx, nil
}

func synthesize(c *ctx.Context, imports *storage.Imports, e Event, nTopics int, funcIdx uint32) error {
	base := uint32(len(e.Params))
	l := emitLocals{
		topics: base, heads: base + 1, tail: base + 2, scratch: base + 3,
		cursor: base + 4, length: base + 5, index: base + 6,
	}

	var body []wasm.Instruction

	body = append(body, c.EmitAllocConst(int32(nTopics)*32)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l.topics}})

	slot := 0
	if !e.Anonymous {
		t0 := Topic0(e)
		t0Const := c.DeclareConst(t0[:])
		body = append(body, emitCopyConst(l.topics, 0, t0Const, 32)...)
		slot = 1
	}

	for i, p := range e.Params {
		if !p.Indexed {
			continue
		}
		instrs, err := topicFill(c, imports, p.Type, uint32(i), l, int32(slot)*32)
		if err != nil {
			return err
		}
		body = append(body, instrs...)
		slot++
	}

	// Data: the non-indexed parameters encoded as one tuple, heads then
	// tails, exactly as a return tuple is laid out.
	var dataParams []int
	totalHeadWords := 0
	for i, p := range e.Params {
		if p.Indexed {
			continue
		}
		dataParams = append(dataParams, i)
		totalHeadWords += abi.HeadWords(p.Type, c.Registry())
	}

	body = append(body, c.EmitAllocConst(int32(totalHeadWords)*32)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l.heads}})
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.heads}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(totalHeadWords) * 32}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l.tail}},
	)

	wordOffset := 0
	for _, i := range dataParams {
		fn, err := pack.Pack(c, e.Params[i].Type)
		if err != nil {
			return err
		}
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: uint32(i)}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.heads}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(wordOffset) * 32}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.tail}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.heads}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: fn}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l.tail}},
		)
		wordOffset += abi.HeadWords(e.Params[i].Type, c.Registry())
	}

	// Claim the tail region before the emit_log call: the tuple's tails
	// were written past the heads allocation, so the bump cursor must move
	// past them before anything else allocates.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.tail}},
		wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: c.FreePtrGlobal()}},
	)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.topics}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(nTopics)}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.heads}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.tail}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.heads}},
		wasm.Instruction{Opcode: wasm.OpI32Sub},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.EmitLog}},
	)

	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 7}}, body)
	return nil
}

// topicFill emits the instructions that fill one topic slot (byte offset
// slotOff in the topics buffer) from the parameter in local paramLocal,
// applying spec.md §9's indexing rules: simple parameters are left-padded
// to 32 bytes, strings are hashed over their raw bytes, vectors over the
// concatenation of their elements' encodings, and structs over their
// ABI-tuple encoding.
func topicFill(c *ctx.Context, imports *storage.Imports, t irtype.Type, paramLocal uint32, l emitLocals, slotOff int32) ([]wasm.Instruction, error) {
	switch t.Kind() {
	case irtype.KindBool, irtype.KindU8, irtype.KindU16, irtype.KindU32,
		irtype.KindU64, irtype.KindU128, irtype.KindU256, irtype.KindAddress,
		irtype.KindEnum, irtype.KindGenericEnumInstance:
		return topicPad(c, t, paramLocal, l, slotOff)

	case irtype.KindRef, irtype.KindMutRef:
		inner := t.Elem()
		if inner.IsReference() {
			return nil, errors.RefInsideRef(nil)
		}
		if abi.IsDynamic(inner, c.Registry()) || inner.Kind() == irtype.KindStr || inner.Kind() == irtype.KindBytes {
			return nil, errors.Unsupported(errors.PhaseEmit, t.String(), "indexed reference to a dynamic type")
		}
		return topicPad(c, t, paramLocal, l, slotOff)

	case irtype.KindStr:
		return topicHashString(c, imports, paramLocal, l, slotOff), nil

	case irtype.KindVector:
		return topicHashVector(c, imports, t.Elem(), paramLocal, l, slotOff)

	case irtype.KindStruct, irtype.KindGenericStructInstance:
		return topicHashStruct(c, imports, t, paramLocal, l, slotOff)

	case irtype.KindTypeParameter:
		return nil, errors.GenericTypeParameter(nil)

	default:
		// Bytes is opaque in memory (a raw calldata cursor, spec.md §4.2)
		// and carries no recoverable length; Signer never crosses the ABI.
		return nil, errors.Unsupported(errors.PhaseEmit, t.String(), "type cannot be an indexed event parameter")
	}
}

// topicPad writes a simple parameter's 32-byte left-padded big-endian word
// straight into its topic slot by reusing the type's own head-slot pack
// function; static packs never touch their tail or base arguments.
func topicPad(c *ctx.Context, t irtype.Type, paramLocal uint32, l emitLocals, slotOff int32) ([]wasm.Instruction, error) {
	fn, err := pack.Pack(c, t)
	if err != nil {
		return nil, err
	}
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: paramLocal}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.topics}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: slotOff}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: fn}},
		{Opcode: wasm.OpDrop},
	}, nil
}

// topicHashString hashes an indexed string over its raw byte payload: the
// parameter is a one-field cell holding the byte-vector pointer; the bytes
// run contiguously after the 8-byte vector header.
func topicHashString(c *ctx.Context, imports *storage.Imports, paramLocal uint32, l emitLocals, slotOff int32) []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: paramLocal}},
		{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
		{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: l.scratch}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.scratch}},
		{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.topics}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: slotOff}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.Keccak256}},
	}
}

// topicHashVector hashes an indexed vector over the concatenation of its
// elements' 32-byte encodings (no length prefix), matching Solidity's
// indexed-array hashing. Each element must encode into exactly one head
// word, so dynamic and struct element types are rejected.
func topicHashVector(c *ctx.Context, imports *storage.Imports, elem irtype.Type, paramLocal uint32, l emitLocals, slotOff int32) ([]wasm.Instruction, error) {
	switch elem.Kind() {
	case irtype.KindBool, irtype.KindU8, irtype.KindU16, irtype.KindU32,
		irtype.KindU64, irtype.KindU128, irtype.KindU256, irtype.KindAddress,
		irtype.KindEnum, irtype.KindGenericEnumInstance:
	default:
		return nil, errors.Unsupported(errors.PhaseEmit, elem.String(), "indexed vector of this element type")
	}
	elemFn, err := pack.Pack(c, elem)
	if err != nil {
		return nil, err
	}

	elemSize := int32(4)
	loadOp := wasm.OpI32Load
	if elem.IsStackRepresentable() {
		elemSize = int32(elem.StackSize())
		if elemSize == 8 {
			loadOp = wasm.OpI64Load
		}
	}

	var body []wasm.Instruction
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: paramLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l.length}},
	)
	body = append(body, c.EmitAllocDynamic([]wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.length}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
		{Opcode: wasm.OpI32Mul},
	})...)
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: l.scratch}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l.cursor}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l.index}},
	)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.index}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.length}},
		wasm.Instruction{Opcode: wasm.OpI32GeU},
		wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}},

		// element value at vec + 8 + i*elemSize
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: paramLocal}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.index}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize}},
		wasm.Instruction{Opcode: wasm.OpI32Mul},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: loadOp, Imm: wasm.MemoryImm{Offset: 8}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.cursor}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: elemFn}},
		wasm.Instruction{Opcode: wasm.OpDrop},

		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.cursor}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l.cursor}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.index}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l.index}},
		wasm.Instruction{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},
		wasm.Instruction{Opcode: wasm.OpEnd},
		wasm.Instruction{Opcode: wasm.OpEnd},
	)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.scratch}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.cursor}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.scratch}},
		wasm.Instruction{Opcode: wasm.OpI32Sub},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.topics}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: slotOff}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.Keccak256}},
	)
	return body, nil
}

// topicHashStruct hashes an indexed struct over its in-place ABI-tuple
// encoding (spec.md §9: "indexed struct/tuple parameters are keccak-hashed
// over their ABI-tuple encoding"): field heads first, dynamic field tails
// appended after.
func topicHashStruct(c *ctx.Context, imports *storage.Imports, t irtype.Type, paramLocal uint32, l emitLocals, slotOff int32) ([]wasm.Instruction, error) {
	ref := t.StructRef()
	decl, ok := c.Registry().LookupStruct(ref.Module, ref.Name)
	if !ok {
		return nil, errors.UnresolvedIdentifier(errors.PhaseEmit, ref.Module, ref.Name)
	}

	totalHeadWords := 0
	for _, f := range decl.Fields {
		totalHeadWords += abi.HeadWords(f.Type, c.Registry())
	}

	var body []wasm.Instruction
	body = append(body, c.EmitAllocConst(int32(totalHeadWords)*32)...)
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: l.scratch}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(totalHeadWords) * 32}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l.cursor}},
	)

	wordOffset := 0
	for i, f := range decl.Fields {
		fn, err := pack.Pack(c, f.Type)
		if err != nil {
			return nil, err
		}
		// Field slots are uniform 4-byte pointers; stack-typed fields box
		// their immediate behind the pointer (spec.md §3.2).
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: paramLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: uint64(4 * i)}},
		)
		if f.Type.IsStackRepresentable() {
			loadOp := wasm.OpI32Load
			if f.Type.Kind() == irtype.KindU64 {
				loadOp = wasm.OpI64Load
			}
			body = append(body, wasm.Instruction{Opcode: loadOp, Imm: wasm.MemoryImm{Offset: 0}})
		}
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.scratch}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(wordOffset) * 32}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.cursor}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.scratch}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: fn}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l.cursor}},
		)
		wordOffset += abi.HeadWords(f.Type, c.Registry())
	}

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.cursor}},
		wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: c.FreePtrGlobal()}},
	)
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.scratch}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.cursor}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.scratch}},
		wasm.Instruction{Opcode: wasm.OpI32Sub},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: l.topics}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: slotOff}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.Keccak256}},
	)
	return body, nil
}

// emitCopyConst copies n bytes from a compile-time constant region into
// dstLocal+dstOff.
func emitCopyConst(dstLocal uint32, dstOff int32, constAddr uint32, n int32) []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: dstLocal}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: dstOff}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(constAddr)}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: n}},
		{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
	}
}
