package pack

import (
	"github.com/rather-labs/move-stylus-wasm/abi"
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/layout"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// synthStruct implements spec.md §4.3 "Struct", the mirror of
// abi/unpack.synthStruct: a tuple that is ABI-dynamic iff any field is
// (abi.IsDynamic). A dynamic struct's head slot holds an offset to its
// tail, where its fields are packed exactly as a static struct's would be
// inline; each field reads its boxed/immediate value out of the struct's
// heap block (one uniform 4-byte slot per field, mirroring how
// abi/unpack.synthStruct wrote it) before delegating to that field's own
// pack function.
func synthStruct(c *ctx.Context, t irtype.Type, funcIdx uint32) error {
	reg := c.Registry()
	ref := t.StructRef()
	decl, ok := reg.LookupStruct(ref.Module, ref.Name)
	if !ok {
		return errors.UnresolvedIdentifier(errors.PhaseEmit, ref.Module, ref.Name)
	}

	dynamic := abi.IsDynamic(t, reg)

	fieldFns := make([]uint32, len(decl.Fields))
	fieldHeadWords := make([]int, len(decl.Fields))
	for i, f := range decl.Fields {
		fn, err := Pack(c, f.Type)
		if err != nil {
			return err
		}
		fieldFns[i] = fn
		fieldHeadWords[i] = abi.HeadWords(f.Type, reg)
	}

	const (
		lTupleStart = 4
		lElemsBase  = 5
		lFieldHead  = 6
		lTailCursor = 7
		lOffset     = 8
	)

	numFields := len(decl.Fields)
	i32FieldVal := make([]uint32, numFields)
	i64FieldVal := make([]uint32, numFields)

	next := uint32(9)
	for i, f := range decl.Fields {
		if f.Type.Kind() != irtype.KindU64 || !f.Type.IsStackRepresentable() {
			i32FieldVal[i] = next
			next++
		}
	}
	i32Count := next - 9
	for i, f := range decl.Fields {
		if f.Type.Kind() == irtype.KindU64 && f.Type.IsStackRepresentable() {
			i64FieldVal[i] = next
			next++
		}
	}
	i64Count := next - 9 - i32Count

	fieldValLocal := func(i int) uint32 {
		f := decl.Fields[i].Type
		if f.Kind() == irtype.KindU64 && f.IsStackRepresentable() {
			return i64FieldVal[i]
		}
		return i32FieldVal[i]
	}

	var body []wasm.Instruction

	if dynamic {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pBase}},
			wasm.Instruction{Opcode: wasm.OpI32Sub},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOffset}},
		)
		body = append(body, zeroSlot32(pHead)...)
		body = append(body, emitStoreBE32(pHead, 28, lOffset)...)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTupleStart}},
		)
	} else {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pHead}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTupleStart}},
		)
	}
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTupleStart}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
	)

	totalHeadWords := 0
	for _, hw := range fieldHeadWords {
		totalHeadWords += hw
	}
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTupleStart}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(totalHeadWords) * slotSize}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTailCursor}},
	)

	// load each field's boxed/immediate value out of the struct's heap block.
	for i, f := range decl.Fields {
		if f.Type.IsStackRepresentable() {
			boxLoad := wasm.OpI32Load
			if f.Type.Kind() == irtype.KindU64 {
				boxLoad = wasm.OpI64Load
			}
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: uint64(i * layout.PointerSize)}},
				wasm.Instruction{Opcode: boxLoad, Imm: wasm.MemoryImm{Offset: 0}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: fieldValLocal(i)}},
			)
			continue
		}
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
			wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: uint64(i * layout.PointerSize)}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: fieldValLocal(i)}},
		)
	}

	// pack each field in turn, threading the tail cursor; field heads are
	// consecutive words starting at tupleStart.
	wordOffset := 0
	for i := range decl.Fields {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTupleStart}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(wordOffset) * slotSize}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lFieldHead}},
		)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: fieldValLocal(i)}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lFieldHead}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTailCursor}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: fieldFns[i]}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTailCursor}},
		)
		wordOffset += fieldHeadWords[i]
	}

	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTailCursor}})

	locals := []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 5 + i32Count}}
	if i64Count > 0 {
		locals = append(locals, wasm.LocalEntry{ValType: wasm.ValI64, Count: i64Count})
	}
	c.Builder().FillFunc(funcIdx, locals, body)
	return nil
}
