// Storage codec: spec.md §4.5. Every object struct's field 0 is its UID
// (spec.md §3.3) and is never itself persisted — the UID is the lookup key
// callers already hold, not payload data — so the codec packs and
// reconstitutes fields[1:] only, writing the reconstructed UID pointer
// into the resulting heap struct's field-0 slot from the caller-supplied
// uid parameter.
package storage

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/keccak"
	"github.com/rather-labs/move-stylus-wasm/layout"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// typeHashPrefixSize mirrors layout's unexported constant of the same
// name: the low 4 bytes of a static object's first storage word identify
// its type.
const typeHashPrefixSize = 4

// slotField is one field's placement within an object's storage words,
// planned by planWords: either packed inline at (wordIndex, byteOffset) or,
// for a dynamic (vector) field, assigned its own sub-slot index.
type slotField struct {
	field      irtype.Field
	fieldIdx   int
	dynamic    bool
	subSlotIdx int // 1-based, dynamic fields only
	wordIndex  int
	byteOffset int
	size       int
}

// planWords assigns every field after index 0 (the UID) a storage
// location: static fields pack greedily into consecutive words exactly as
// layout.PackFields does (low bits first, no field split across a word
// boundary); a vector field instead claims the next 1-based dynamic
// sub-slot index and contributes nothing to the static word count. Nested
// struct fields (static or dynamic), generic struct/enum instances,
// non-simple enums, and vectors of struct/enum/vector elements are
// rejected, so only one level of vector-valued dynamic fields is supported.
func planWords(decl *irtype.StructDecl, reg *irtype.Registry) ([]slotField, int, error) {
	var fields []slotField
	word, offset, dynCount := 0, typeHashPrefixSize, 0

	for i := 1; i < len(decl.Fields); i++ {
		f := decl.Fields[i]
		if f.Type.Kind() == irtype.KindVector {
			elem := f.Type.Elem()
			if !elem.IsStackRepresentable() && !elem.IsHeapOnly() {
				return nil, 0, errors.Unsupported(errors.PhaseStorage, f.Type.String(), "vectors of struct/enum/vector elements are not supported in object storage")
			}
			dynCount++
			fields = append(fields, slotField{field: f, fieldIdx: i, dynamic: true, subSlotIdx: dynCount})
			continue
		}
		if f.Type.Kind() == irtype.KindGenericStructInstance || f.Type.Kind() == irtype.KindGenericEnumInstance {
			return nil, 0, errors.Unsupported(errors.PhaseStorage, f.Type.String(), "generic struct/enum fields are not supported in object storage")
		}
		if f.Type.Kind() == irtype.KindStruct {
			// A nested struct field's in-memory representation is itself a
			// pointer-per-field heap block, not a flat byte run, so it
			// cannot share the scalar packing below without a recursive
			// sub-layout. Object storage in this compiler is restricted to
			// objects whose non-UID fields are scalars, simple enums, or one
			// level of scalar/heap-only vector.
			return nil, 0, errors.Unsupported(errors.PhaseStorage, f.Type.String(), "nested struct fields are not supported in object storage")
		}
		if f.Type.Kind() == irtype.KindEnum {
			e, ok := reg.LookupEnum(f.Type.StructRef().Module, f.Type.StructRef().Name)
			if ok && !e.IsSimple() {
				return nil, 0, errors.Unsupported(errors.PhaseStorage, f.Type.String(), "non-simple enum fields are not supported in object storage")
			}
		}

		size, err := layout.FieldStorageSize(f.Type, reg)
		if err != nil {
			return nil, 0, err
		}
		if size > 32 {
			if offset != 0 {
				word++
				offset = 0
			}
			words := (size + 31) / 32
			fields = append(fields, slotField{field: f, fieldIdx: i, wordIndex: word, byteOffset: 0, size: size})
			word += words
			continue
		}
		if offset+size > 32 {
			word++
			offset = 0
		}
		fields = append(fields, slotField{field: f, fieldIdx: i, wordIndex: word, byteOffset: offset, size: size})
		offset += size
	}

	wordCount := word + 1
	return fields, wordCount, nil
}

// typeHashConst returns the compile-time-constant pointer to t's 4-byte
// type-hash prefix (the low 4 bytes of keccak256 of t's canonical name).
func typeHashConst(c *ctx.Context, t irtype.Type) uint32 {
	h := keccak.Sum256([]byte(t.String()))
	buf := make([]byte, 32)
	copy(buf[:4], h[:4])
	return c.DeclareConst(buf)
}

// wordSlotPtr returns the instructions that push a pointer to the storage
// slot parentSlot + n: for n == 0 the parent slot local itself, otherwise a
// call to the cached ensureSlotAddConst helper for n.
func wordSlotPtr(c *ctx.Context, parentSlotLocal uint32, n int) []wasm.Instruction {
	if n == 0 {
		return []wasm.Instruction{{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: parentSlotLocal}}}
	}
	fn := ensureSlotAddConst(c, n)
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: parentSlotLocal}},
		{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: fn}},
	}
}

// ReadAndDecode materializes spec.md §4.5 "read_and_decode(T, uid)": locate
// the object, read its storage words, and reconstitute the in-memory
// struct, boxing the caller-supplied uid pointer into field 0.
func ReadAndDecode(c *ctx.Context, t irtype.Type, imports *Imports, sc SlotConsts) (uint32, error) {
	mono := t.String()
	var synthErr error
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleReadAndDecodeFromStorage, mono,
		[]wasm.ValType{wasm.ValI32}, []wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			synthErr = synthReadAndDecode(c, t, imports, sc, funcIdx)
		},
	)
	if synthErr != nil {
		return 0, synthErr
	}
	return idx, nil
}

func synthReadAndDecode(c *ctx.Context, t irtype.Type, imports *Imports, sc SlotConsts, funcIdx uint32) error {
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

	locateFn := ensureLocate(c, imports, sc)
	heapSize := layout.PointerSize * len(decl.Fields)

	const pUid = 0
	const lNsTag, lParentSlot, lHeap, lWordPtr, lLoaded, lCell = 1, 2, 3, 4, 5, 6
	nextLocal := uint32(7)
	var body []wasm.Instruction

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: locateFn}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lParentSlot}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNsTag}},
	)

	body = append(body, c.EmitAllocConst(int32(heapSize))...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeap}})

	// field 0 (UID): box the caller-supplied pointer directly.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeap}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
	)

	wordCache := map[int]uint32{}
	loadWord := func(n int) uint32 {
		if l, ok := wordCache[n]; ok {
			return l
		}
		body = append(body, wordSlotPtr(c, lParentSlot, n)...)
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lWordPtr}})
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lWordPtr}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
		)
		l := nextLocal
		nextLocal++
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: l}},
		)
		wordCache[n] = l
		return l
	}

	for _, sf := range fields {
		if sf.dynamic {
			body = append(body, readDynVectorField(c, sf, lParentSlot, lHeap, imports, &nextLocal)...)
			continue
		}
		loaded := loadWord(sf.wordIndex)
		fieldOff := int32(sf.fieldIdx * layout.PointerSize)

		if sf.field.Type.IsStackRepresentable() {
			boxSize := int32(layout.BoxedSize(sf.field.Type))
			body = append(body, c.EmitAllocConst(boxSize)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCell}})
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
			)
			if boxSize == 8 {
				body = append(body, emitLoadLE64(loaded, uint64(sf.byteOffset))...)
				body = append(body, wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 0}})
			} else {
				body = append(body, emitLoadLE(loaded, uint64(sf.byteOffset), sf.size)...)
				body = append(body, wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}})
			}
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeap}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: uint64(fieldOff)}},
			)
			continue
		}

		if sf.field.Type.Kind() == irtype.KindEnum {
			body = append(body, c.EmitAllocConst(4)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCell}})
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
			)
			body = append(body, emitLoadLE(loaded, uint64(sf.byteOffset), 1)...)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeap}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: uint64(fieldOff)}},
			)
			continue
		}

		// heap-only scalar (U128/U256/Address/Signer): its storage byte
		// layout is already the same little-endian-packed representation
		// linear memory uses for the type, so a direct copy reconstructs it.
		allocSize := int32(sf.size)
		body = append(body, c.EmitAllocConst(allocSize)...)
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCell}})
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: loaded}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sf.byteOffset)}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: allocSize}},
			wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeap}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
			wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: uint64(fieldOff)}},
		)
	}
	_ = wordCount

	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeap}})
	locals := []wasm.LocalEntry{{ValType: wasm.ValI32, Count: nextLocal - 1}}
	c.Builder().FillFunc(funcIdx, locals, body)
	return nil
}

// readDynVectorField reads a vector-valued dynamic field (spec.md §4.5
// "For vectors: the header slot holds len||capacity ... elements occupy
// keccak256(pad32(header_slot)) onwards, one 32-byte word per element for
// word-sized types"), allocates its in-memory vector header, and stores
// the result pointer into the parent heap struct's field slot.
func readDynVectorField(c *ctx.Context, sf slotField, parentSlotLocal, heapLocal uint32, imports *Imports, nextLocal *uint32) []wasm.Instruction {
	elem := sf.field.Type.Elem()
	elemSize := int32(irtype.ElementDataSize(elem))

	headerSlot := *nextLocal
	*nextLocal++
	headerWord := *nextLocal
	*nextLocal++
	lenLocal := *nextLocal
	*nextLocal++
	capLocal := *nextLocal
	*nextLocal++
	elemsBaseSlot := *nextLocal
	*nextLocal++
	vecHeader := *nextLocal
	*nextLocal++
	iLocal := *nextLocal
	*nextLocal++
	elemSlot := *nextLocal
	*nextLocal++
	loadedElem := *nextLocal
	*nextLocal++

	var body []wasm.Instruction
	body = append(body, wordSlotPtr(c, parentSlotLocal, sf.subSlotIdx)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: headerSlot}})
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: headerSlot}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: headerWord}},
	)
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: headerWord}},
		wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lenLocal}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: headerWord}},
		wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 4}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: capLocal}},
	)

	// elemsBaseSlot = keccak256(pad32(header_slot))
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: headerSlot}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: ensureKeccak(c, imports)}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: elemsBaseSlot}},
	)

	body = append(body, c.EmitAllocDynamic([]wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: capLocal}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize}},
		{Opcode: wasm.OpI32Mul},
		{Opcode: wasm.OpI32Add},
	})...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: vecHeader}})
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: vecHeader}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lenLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: vecHeader}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: capLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 4}},
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
	// elemSlot = elemsBaseSlot + i (word-indexed, one word per element)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: elemsBaseSlot}})
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: iLocal}})
	body = append(body, wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: ensureSlotAddConstDynamic(c)}})
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: elemSlot}})
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: elemSlot}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: loadedElem}},
	)
	// write element into vecHeader[8 + i*elemSize], the flat layout
	// irtype.ElementDataSize sizes for in-memory vectors: stack-typed
	// elements are stored inline, heap-only scalars as a pointer to a fresh
	// copy.
	if elem.IsStackRepresentable() && elemSize == 8 {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: vecHeader}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: iLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize}},
			wasm.Instruction{Opcode: wasm.OpI32Mul},
			wasm.Instruction{Opcode: wasm.OpI32Add},
		)
		body = append(body, emitLoadLE64(loadedElem, 0)...)
		body = append(body, wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 0}})
	} else if elem.IsStackRepresentable() {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: vecHeader}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: iLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize}},
			wasm.Instruction{Opcode: wasm.OpI32Mul},
			wasm.Instruction{Opcode: wasm.OpI32Add},
		)
		body = append(body, emitLoadLE(loadedElem, 0, int(elemSize))...)
		body = append(body, wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}})
	} else {
		// heap-only scalar element: ElementDataSize reserves a 4-byte
		// pointer slot per element (spec.md §3.2), so box a fresh copy of
		// the element's natural byte width and store its pointer inline.
		boxSize := int32(elem.HeapSize())
		boxLocal := *nextLocal
		*nextLocal++
		body = append(body, c.EmitAllocConst(boxSize)...)
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: boxLocal}})
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: boxLocal}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: loadedElem}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: boxSize}},
			wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
		)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: vecHeader}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: iLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize}},
			wasm.Instruction{Opcode: wasm.OpI32Mul},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: boxLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
		)
	}
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: iLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: iLocal}},
		wasm.Instruction{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},
		wasm.Instruction{Opcode: wasm.OpEnd},
		wasm.Instruction{Opcode: wasm.OpEnd},
	)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: heapLocal}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: vecHeader}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: uint64(sf.fieldIdx * layout.PointerSize)}},
	)
	return body
}

// ensureSlotAddConstDynamic materializes a variant of ensureSlotAddConst
// whose addend is itself a runtime i32 (the loop index into a storage
// vector's element region) rather than a compile-time constant.
func ensureSlotAddConstDynamic(c *ctx.Context) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleSlotAddConst, "dyn",
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			const pSlot, pN = 0, 1
			const lOut, lCarry, lI, lV = 2, 3, 4, 5
			var body []wasm.Instruction
			body = append(body, c.EmitAllocConst(32)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOut}})
			body = append(body, emitCopy32(lOut, 0, pSlot)...)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pN}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 31}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},
				wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
				wasm.Instruction{Opcode: wasm.OpI32Eqz},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
				wasm.Instruction{Opcode: wasm.OpI32LtS},
				wasm.Instruction{Opcode: wasm.OpI32Or},
				wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOut}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{Offset: 0}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0xFF}},
				wasm.Instruction{Opcode: wasm.OpI32And},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lV}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOut}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lV}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0xFF}},
				wasm.Instruction{Opcode: wasm.OpI32And},
				wasm.Instruction{Opcode: wasm.OpI32Store8, Imm: wasm.MemoryImm{Offset: 0}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
				wasm.Instruction{Opcode: wasm.OpI32ShrU},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lV}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
				wasm.Instruction{Opcode: wasm.OpI32ShrU},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
				wasm.Instruction{Opcode: wasm.OpI32Sub},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},
				wasm.Instruction{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},
				wasm.Instruction{Opcode: wasm.OpEnd},
				wasm.Instruction{Opcode: wasm.OpEnd},
			)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOut}})
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 4}}, body)
		},
	)
	return idx
}

// emitLoadLE loads a little-endian n-byte (n<=4) value at ptrLocal+offset
// as an i32. Storage words are already little-endian (spec.md §4.5
// "Numeric fields are stored little-endian"), matching linear memory's own
// convention, so this is a plain unaligned load/shift-or, not a swap.
func emitLoadLE(ptrLocal uint32, offset uint64, n int) []wasm.Instruction {
	if n == 4 {
		return []wasm.Instruction{
			{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
			{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: offset}},
		}
	}
	var out []wasm.Instruction
	for i := 0; i < n; i++ {
		out = append(out,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{Offset: offset + uint64(i)}},
		)
		if i > 0 {
			out = append(out,
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(8 * i)}},
				wasm.Instruction{Opcode: wasm.OpI32Shl},
				wasm.Instruction{Opcode: wasm.OpI32Or},
			)
		}
	}
	if n == 0 {
		return []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}}}
	}
	return out
}

// emitLoadLE64 loads a little-endian 8-byte value at ptrLocal+offset as i64.
func emitLoadLE64(ptrLocal uint32, offset uint64) []wasm.Instruction {
	var out []wasm.Instruction
	for i := 0; i < 8; i++ {
		out = append(out,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{Offset: offset + uint64(i)}},
			wasm.Instruction{Opcode: wasm.OpI64ExtendI32U},
		)
		if i > 0 {
			out = append(out,
				wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: int64(8 * i)}},
				wasm.Instruction{Opcode: wasm.OpI64Shl},
				wasm.Instruction{Opcode: wasm.OpI64Or},
			)
		}
	}
	return out
}
