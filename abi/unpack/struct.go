package unpack

import (
	"github.com/rather-labs/move-stylus-wasm/abi"
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/layout"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// synthStruct implements spec.md §4.2 "Struct": a tuple that is ABI-dynamic
// iff any field is (abi.IsDynamic) — a dynamic struct's head slot holds an
// offset to its tail, where its fields are laid out exactly as a static
// struct's would be inline. Each field is decoded in turn, boxing
// stack-representable values into a fresh cell so every field slot of the
// resulting heap block is a uniform 4-byte word.
func synthStruct(c *ctx.Context, t irtype.Type, funcIdx uint32) error {
	reg := c.Registry()
	ref := t.StructRef()
	decl, ok := reg.LookupStruct(ref.Module, ref.Name)
	if !ok {
		return errors.UnresolvedIdentifier(errors.PhaseEmit, ref.Module, ref.Name)
	}

	dynamic := abi.IsDynamic(t, reg)
	heapSize, err := layout.HeapSize(t, reg)
	if err != nil {
		return err
	}

	fieldFns := make([]uint32, len(decl.Fields))
	for i, f := range decl.Fields {
		fn, err := Unpack(c, f.Type)
		if err != nil {
			return err
		}
		fieldFns[i] = fn
	}

	const (
		lTupleBase = 2
		lElemsBase = 3
		lCursor    = 4
		lHeap      = 5
		lCell      = 6
	)

	numFields := len(decl.Fields)
	i32FieldVal := make([]uint32, numFields)
	i64FieldVal := make([]uint32, numFields)
	nextLocal := make([]uint32, numFields)

	idx := uint32(7)
	for i, f := range decl.Fields {
		if f.Type.Kind() != irtype.KindU64 {
			i32FieldVal[i] = idx
			idx++
		}
	}
	for i := range decl.Fields {
		nextLocal[i] = idx
		idx++
	}
	i32Count := idx - 7
	for i, f := range decl.Fields {
		if f.Type.Kind() == irtype.KindU64 {
			i64FieldVal[i] = idx
			idx++
		}
	}
	i64Count := idx - 7 - i32Count

	valLocal := func(i int) uint32 {
		if decl.Fields[i].Type.Kind() == irtype.KindU64 {
			return i64FieldVal[i]
		}
		return i32FieldVal[i]
	}

	var body []wasm.Instruction

	if dynamic {
		validator := ensurePointerValidator(c)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pReaderPtr}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: validator}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pBase}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTupleBase}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTupleBase}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
		)
	} else {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pReaderPtr}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTupleBase}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pBase}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
		)
	}
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTupleBase}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCursor}},
	)

	// Decode each field in turn, threading the cursor and the tuple's own
	// elements-base (for fields whose own offsets nest relative to it).
	for i := range decl.Fields {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCursor}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: fieldFns[i]}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: nextLocal[i]}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: valLocal(i)}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: nextLocal[i]}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCursor}},
		)
	}

	// Allocate the struct's heap block and write each field as a uniform
	// 4-byte slot, boxing stack-representable values into a fresh cell.
	body = append(body, c.EmitAllocConst(int32(heapSize))...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeap}})

	for i, f := range decl.Fields {
		offset := uint64(i * layout.PointerSize)
		if f.Type.IsStackRepresentable() {
			boxSize := int32(layout.BoxedSize(f.Type))
			body = append(body, c.EmitAllocConst(boxSize)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCell}})
			store := wasm.OpI32Store
			if boxSize == 8 {
				store = wasm.OpI64Store
			}
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valLocal(i)}},
				wasm.Instruction{Opcode: store, Imm: wasm.MemoryImm{Offset: 0}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeap}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: offset}},
			)
			continue
		}
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeap}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valLocal(i)}},
			wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: offset}},
		)
	}

	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeap}})
	if dynamic {
		body = append(body, advanceReader(pReaderPtr, slotSize)...)
	} else {
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCursor}})
	}

	locals := []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 5 + i32Count}}
	if i64Count > 0 {
		locals = append(locals, wasm.LocalEntry{ValType: wasm.ValI64, Count: i64Count})
	}
	c.Builder().FillFunc(funcIdx, locals, body)
	return nil
}
