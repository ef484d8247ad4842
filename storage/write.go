// write_and_encode: the write-side counterpart of codec.go's
// ReadAndDecode, spec.md §4.5 "write_and_encode(T, uid, value): symmetric."
package storage

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/layout"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// WriteAndEncode materializes spec.md §4.5 "write_and_encode(T, uid,
// value): symmetric": locate the object (creating its owned(tx_origin)
// location if this is the object's first write), pack fields[1:] of value
// into the object's storage words, and write each dynamic (vector) field's
// header and elements. Traps if the object is frozen (I2).
func WriteAndEncode(c *ctx.Context, t irtype.Type, imports *Imports, sc SlotConsts) (uint32, error) {
	mono := t.String()
	var synthErr error
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleWriteAndEncodeToStorage, mono,
		[]wasm.ValType{wasm.ValI32, wasm.ValI32}, nil,
		func(funcIdx uint32) {
			synthErr = synthWriteAndEncode(c, t, imports, sc, funcIdx)
		},
	)
	if synthErr != nil {
		return 0, synthErr
	}
	return idx, nil
}

func synthWriteAndEncode(c *ctx.Context, t irtype.Type, imports *Imports, sc SlotConsts, funcIdx uint32) error {
	reg := c.Registry()
	ref := t.StructRef()
	decl, ok := reg.LookupStruct(ref.Module, ref.Name)
	if !ok {
		return errors.UnresolvedIdentifier(errors.PhaseStorage, ref.Module, ref.Name)
	}
	fields, wordCount, err := planWords(decl, reg)
	if err != nil {
		return err
	}
	_ = wordCount

	locateFn := ensureLocateOrCreate(c, imports, sc)

	const pUid, pValue = 0, 1
	const lNsTag, lParentSlot = 2, 3
	nextLocal := uint32(4)
	var body []wasm.Instruction

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: locateFn}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lParentSlot}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNsTag}},
	)
	body = append(body, trapIfFrozen(lNsTag)...)

	// A dynamic field interleaved between two static fields of the same
	// word does not reset planWords' word/offset cursor, so fields sharing
	// a wordIndex are not always contiguous in the slice — group them by
	// wordIndex explicitly rather than by position, or a later run would
	// overwrite the word with only its own fields and zero the earlier
	// ones back out.
	staticByWord := map[int][]slotField{}
	// Word 0 always carries the type-hash prefix locate's occupancy check
	// depends on, even for a struct whose fields all land in dynamic
	// sub-slots — it must be written first so it's there to be included.
	wordOrder := []int{0}
	staticByWord[0] = nil
	var dynFields []slotField
	for _, sf := range fields {
		if sf.dynamic {
			dynFields = append(dynFields, sf)
			continue
		}
		if _, seen := staticByWord[sf.wordIndex]; !seen {
			wordOrder = append(wordOrder, sf.wordIndex)
		}
		staticByWord[sf.wordIndex] = append(staticByWord[sf.wordIndex], sf)
	}

	for _, wordIdx := range wordOrder {
		instrs, used := writeStaticWord(c, t, wordIdx, staticByWord[wordIdx], lParentSlot, pValue, imports, nextLocal)
		body = append(body, instrs...)
		nextLocal = used
	}
	for _, sf := range dynFields {
		instrs, used := writeDynVectorField(c, t, sf, lParentSlot, pValue, imports, nextLocal)
		body = append(body, instrs...)
		nextLocal = used
	}

	locals := []wasm.LocalEntry{{ValType: wasm.ValI32, Count: nextLocal - 2}}
	c.Builder().FillFunc(funcIdx, locals, body)
	return nil
}

// writeStaticWord builds one 32-byte storage word from every field group
// assigns to it (word 0 additionally carries the type-hash prefix) and
// writes it with a single storage_store. Returns the next free local index.
func writeStaticWord(c *ctx.Context, t irtype.Type, wordIdx int, group []slotField, parentSlotLocal, valueLocal uint32, imports *Imports, nextLocal uint32) ([]wasm.Instruction, uint32) {
	lBuf := nextLocal
	nextLocal++
	lTmp := nextLocal
	nextLocal++
	lScratch := nextLocal
	nextLocal++

	var body []wasm.Instruction
	body = append(body, c.EmitAllocConst(32)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lBuf}})
	for _, off := range []uint64{0, 8, 16, 24} {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
			wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0}},
			wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: off}},
		)
	}

	if wordIdx == 0 {
		thConst := typeHashConst(c, t)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(thConst)}},
			wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
			wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
		)
	}

	for _, sf := range group {
		fieldOff := uint64(sf.fieldIdx * layout.PointerSize)
		loadBoxPtr := []wasm.Instruction{
			{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valueLocal}},
			{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: fieldOff}},
		}

		switch {
		case sf.field.Type.IsStackRepresentable():
			boxSize := layout.BoxedSize(sf.field.Type)
			body = append(body, loadBoxPtr...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTmp}})
			if boxSize == 8 {
				body = append(body, emitStoreLE64(lBuf, sf.byteOffset, []wasm.Instruction{
					{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTmp}},
					{Opcode: wasm.OpI64Load, Imm: wasm.MemoryImm{Offset: 0}},
				})...)
			} else {
				body = append(body, emitStoreLE(lBuf, sf.byteOffset, sf.size, []wasm.Instruction{
					{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTmp}},
					{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
				}, lScratch)...)
			}

		case sf.field.Type.Kind() == irtype.KindEnum:
			body = append(body, loadBoxPtr...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTmp}})
			body = append(body, emitStoreLE(lBuf, sf.byteOffset, 1, []wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTmp}},
				{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
			}, lScratch)...)

		default:
			// heap-only scalar (U128/U256/Address/Signer): its linear-memory
			// representation is already the same little-endian-packed bytes
			// storage uses, so copy directly.
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sf.byteOffset)}},
				wasm.Instruction{Opcode: wasm.OpI32Add},
			)
			body = append(body, loadBoxPtr...)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sf.size)}},
				wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
			)
		}
	}

	body = append(body, wordSlotPtr(c, parentSlotLocal, wordIdx)...)
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
	)
	return body, nextLocal
}

// writeDynVectorField writes a vector-valued dynamic field back out: the
// header word (len||capacity) at the field's sub-slot, then one storage
// word per element at keccak256(pad32(header_slot)) onwards — the mirror
// image of codec.go's readDynVectorField.
func writeDynVectorField(c *ctx.Context, t irtype.Type, sf slotField, parentSlotLocal, valueLocal uint32, imports *Imports, nextLocal uint32) ([]wasm.Instruction, uint32) {
	elem := sf.field.Type.Elem()
	elemSize := int32(irtype.ElementDataSize(elem))

	headerSlot := nextLocal
	nextLocal++
	vecHeader := nextLocal
	nextLocal++
	lenLocal := nextLocal
	nextLocal++
	lBuf := nextLocal
	nextLocal++
	elemsBaseSlot := nextLocal
	nextLocal++
	iLocal := nextLocal
	nextLocal++
	elemSlot := nextLocal
	nextLocal++
	lTmp := nextLocal
	nextLocal++

	var body []wasm.Instruction
	body = append(body, wordSlotPtr(c, parentSlotLocal, sf.subSlotIdx)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: headerSlot}})

	// vecHeader = the in-memory vector pointer already stored in the heap
	// struct at this field's slot.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valueLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: uint64(sf.fieldIdx * layout.PointerSize)}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: vecHeader}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: vecHeader}},
		wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lenLocal}},
	)

	// header word: len at byte 0, capacity at byte 4.
	body = append(body, c.EmitAllocConst(32)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lBuf}})
	for _, off := range []uint64{0, 8, 16, 24} {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
			wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0}},
			wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: off}},
		)
	}
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lenLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: vecHeader}},
		wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 4}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 4}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: headerSlot}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
	)

	// elemsBaseSlot = keccak256(pad32(header_slot))
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: headerSlot}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: ensureKeccak(c, imports)}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: elemsBaseSlot}},
	)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: iLocal}},
		wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: iLocal}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lenLocal}},
		wasm.Instruction{Opcode: wasm.OpI32GeU},
		wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}},
	)
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: elemsBaseSlot}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: iLocal}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: ensureSlotAddConstDynamic(c)}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: elemSlot}},
	)

	// build the element's 32-byte word from vecHeader[8 + i*elemSize].
	body = append(body, c.EmitAllocConst(32)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTmp}})
	for _, off := range []uint64{0, 8, 16, 24} {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTmp}},
			wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0}},
			wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: off}},
		)
	}

	elemAddr := func() []wasm.Instruction {
		return []wasm.Instruction{
			{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: vecHeader}},
			{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
			{Opcode: wasm.OpI32Add},
			{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: iLocal}},
			{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize}},
			{Opcode: wasm.OpI32Mul},
			{Opcode: wasm.OpI32Add},
		}
	}

	switch {
	case elem.IsStackRepresentable() && elemSize == 8:
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTmp}},
		)
		body = append(body, elemAddr()...)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpI64Load, Imm: wasm.MemoryImm{Offset: 0}},
			wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 0}},
		)
	case elem.IsStackRepresentable():
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTmp}},
		)
		body = append(body, elemAddr()...)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
			wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
		)
	default:
		// heap-only scalar element: the vector slot holds a boxed pointer
		// (spec.md §3.2), so dereference it before copying the natural
		// byte width into the word buffer.
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTmp}},
		)
		body = append(body, elemAddr()...)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
		)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(elem.HeapSize())}},
			wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
		)
	}

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: elemSlot}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTmp}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
	)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: iLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: iLocal}},
		wasm.Instruction{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},
		wasm.Instruction{Opcode: wasm.OpEnd},
		wasm.Instruction{Opcode: wasm.OpEnd},
	)

	return body, nextLocal
}

// emitStoreLE stores the low n bytes (little-endian) of the i32 value
// valueInstrs leaves on the stack into bufLocal+offset. scratch is a
// caller-reserved local used when n < 4 (a single i32.store can't target
// an unaligned byte width).
func emitStoreLE(bufLocal uint32, offset, n int, valueInstrs []wasm.Instruction, scratch uint32) []wasm.Instruction {
	if n == 4 {
		var out []wasm.Instruction
		out = append(out, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: bufLocal}})
		out = append(out, valueInstrs...)
		out = append(out, wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: uint64(offset)}})
		return out
	}
	var out []wasm.Instruction
	out = append(out, valueInstrs...)
	out = append(out, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: scratch}})
	for i := 0; i < n; i++ {
		out = append(out, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: bufLocal}})
		out = append(out, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}})
		if i > 0 {
			out = append(out,
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(8 * i)}},
				wasm.Instruction{Opcode: wasm.OpI32ShrU},
			)
		}
		out = append(out, wasm.Instruction{Opcode: wasm.OpI32Store8, Imm: wasm.MemoryImm{Offset: uint64(offset + i)}})
	}
	return out
}

// emitStoreLE64 stores the i64 value valueInstrs leaves on the stack into
// bufLocal+offset.
func emitStoreLE64(bufLocal uint32, offset int, valueInstrs []wasm.Instruction) []wasm.Instruction {
	var out []wasm.Instruction
	out = append(out, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: bufLocal}})
	out = append(out, valueInstrs...)
	out = append(out, wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: uint64(offset)}})
	return out
}
