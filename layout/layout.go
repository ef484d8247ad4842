// Package layout computes linear-memory and storage sizes for
// IntermediateTypes: heap allocation sizes (spec.md §3.2), static-struct
// word-packing (§4.5), and the boxed-cell size used when a stack-typed
// value must be reached through a pointer (vector elements, struct fields,
// references to stack types).
//
// Grounded on transcoder/internal/layout.Calculator's memoized,
// kind-dispatching size calculation, adapted from WIT alignment/size rules
// to this compiler's fixed, pointer-uniform field representation.
package layout

import (
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
)

// PointerSize is the width of every in-memory pointer and boxed-field slot:
// linear memory addresses are 32-bit (i32) regardless of the host's native
// width.
const PointerSize = 4

// BoxedSize returns the size of the fresh cell a stack-representable type
// is copied into when it must be reached by pointer (a boxed struct field,
// a boxed vector element of a stack type, or a reference to a stack-typed
// referent). Equal to the type's natural stack size: 4 bytes, or 8 for U64.
func BoxedSize(t irtype.Type) int {
	if t.IsStackRepresentable() {
		return t.StackSize()
	}
	return PointerSize
}

// HeapSize returns the number of bytes a fresh allocation of t occupies,
// for types that are allocated as a single contiguous block: heap-only
// scalars (fixed size), structs (one pointer/immediate-width slot per
// field), and simple enums (a 4-byte discriminant). Vectors are excluded —
// their size is dynamic and computed by vectorgen from length and capacity.
func HeapSize(t irtype.Type, reg *irtype.Registry) (int, error) {
	switch t.Kind() {
	case irtype.KindU128, irtype.KindU256, irtype.KindAddress, irtype.KindSigner:
		return t.HeapSize(), nil

	case irtype.KindStruct, irtype.KindGenericStructInstance:
		ref := t.StructRef()
		decl, ok := reg.LookupStruct(ref.Module, ref.Name)
		if !ok {
			return 0, errors.UnresolvedIdentifier(errors.PhaseLayout, ref.Module, ref.Name)
		}
		return PointerSize * len(decl.Fields), nil

	case irtype.KindEnum, irtype.KindGenericEnumInstance:
		ref := t.StructRef()
		decl, ok := reg.LookupEnum(ref.Module, ref.Name)
		if !ok {
			return 0, errors.UnresolvedIdentifier(errors.PhaseLayout, ref.Module, ref.Name)
		}
		if decl.IsSimple() {
			return 4, nil
		}
		maxPayload := 0
		for _, v := range decl.Variants {
			size := PointerSize * len(v.Fields)
			if size > maxPayload {
				maxPayload = size
			}
		}
		return 4 + maxPayload, nil

	default:
		return 0, errors.Unsupported(errors.PhaseLayout, t.String(), "type has no fixed heap allocation size")
	}
}

// FieldSlot describes where one packed field lives within a struct's
// static storage words.
type FieldSlot struct {
	Name       string
	WordIndex  int // 0-based index into the struct's consecutive storage words
	ByteOffset int // 0 = low byte of the word (least-significant)
	Size       int // byte width of the packed value
}

// PackFields assigns each field a (word, offset) slot by the greedy
// low-bits-first rule of spec.md §4.5: if the next field fits in the
// remaining bits of the current word it joins that word, otherwise it
// starts a new word. No scalar is ever split across a word boundary. The
// first word reserves its low typeHashPrefixSize bytes for the struct's
// type-hash prefix; pass 0 for types with no type-hash prefix (e.g. when
// packing an enum's variant payload, not an object's fields).
//
// sizes[i] is the packed byte width of field i, per FieldStorageSize.
func PackFields(names []string, sizes []int, typeHashPrefixSize int) ([]FieldSlot, int) {
	slots := make([]FieldSlot, len(sizes))
	word := 0
	offset := typeHashPrefixSize
	for i, size := range sizes {
		if offset+size > 32 {
			word++
			offset = 0
		}
		slots[i] = FieldSlot{Name: names[i], WordIndex: word, ByteOffset: offset, Size: size}
		offset += size
	}
	wordCount := word + 1
	return slots, wordCount
}

// FieldStorageSize returns the packed byte width a field of type t
// contributes to a static storage word: the type's natural width for
// scalars, 1 byte for a simple enum discriminant, and the full 32 bytes for
// any type that cannot be packed below word granularity (vectors, dynamic
// structs, non-simple enums — callers must route these through a dynamic
// sub-slot instead of PackFields).
func FieldStorageSize(t irtype.Type, reg *irtype.Registry) (int, error) {
	switch t.Kind() {
	case irtype.KindBool:
		return 1, nil
	case irtype.KindU8:
		return 1, nil
	case irtype.KindU16:
		return 2, nil
	case irtype.KindU32:
		return 4, nil
	case irtype.KindU64:
		return 8, nil
	case irtype.KindU128:
		return 16, nil
	case irtype.KindU256, irtype.KindAddress:
		return 32, nil
	case irtype.KindSigner:
		return 20, nil
	case irtype.KindEnum:
		ref := t.StructRef()
		decl, ok := reg.LookupEnum(ref.Module, ref.Name)
		if !ok {
			return 0, errors.UnresolvedIdentifier(errors.PhaseLayout, ref.Module, ref.Name)
		}
		if decl.IsSimple() {
			return 1, nil
		}
		return 32, nil
	case irtype.KindStruct:
		ref := t.StructRef()
		decl, ok := reg.LookupStruct(ref.Module, ref.Name)
		if !ok {
			return 0, errors.UnresolvedIdentifier(errors.PhaseLayout, ref.Module, ref.Name)
		}
		if IsStaticStruct(decl, reg) {
			_, words := structWordCount(decl, reg)
			return words * 32, nil
		}
		return 32, nil
	default:
		return 32, nil
	}
}

// IsStaticStruct reports whether every field of decl is itself statically
// sized (no vector, no dynamic nested struct, no non-simple enum) — the
// condition under which the struct packs entirely into consecutive storage
// words rather than needing dynamic sub-slots, per spec.md §4.5.
func IsStaticStruct(decl *irtype.StructDecl, reg *irtype.Registry) bool {
	for _, f := range decl.Fields {
		if !isStaticField(f.Type, reg) {
			return false
		}
	}
	return true
}

func isStaticField(t irtype.Type, reg *irtype.Registry) bool {
	switch t.Kind() {
	case irtype.KindVector:
		return false
	case irtype.KindStruct:
		ref := t.StructRef()
		decl, ok := reg.LookupStruct(ref.Module, ref.Name)
		return ok && IsStaticStruct(decl, reg)
	case irtype.KindGenericStructInstance, irtype.KindGenericEnumInstance:
		return false
	case irtype.KindEnum:
		ref := t.StructRef()
		decl, ok := reg.LookupEnum(ref.Module, ref.Name)
		return ok && decl.IsSimple()
	default:
		return true
	}
}

func structWordCount(decl *irtype.StructDecl, reg *irtype.Registry) ([]FieldSlot, int) {
	names := make([]string, len(decl.Fields))
	sizes := make([]int, len(decl.Fields))
	for i, f := range decl.Fields {
		size, err := FieldStorageSize(f.Type, reg)
		if err != nil {
			size = 32
		}
		names[i] = f.Name
		sizes[i] = size
	}
	return PackFields(names, sizes, typeHashPrefixSize)
}

// typeHashPrefixSize is the width, in bytes, of the fixed type-hash prefix
// spec.md §4.5 places in the low bits of a static struct's first storage
// word, distinguishing struct types in storage.
const typeHashPrefixSize = 4

// StructLayout returns the packed field slots and total word count for a
// static struct declaration.
func StructLayout(decl *irtype.StructDecl, reg *irtype.Registry) ([]FieldSlot, int) {
	return structWordCount(decl, reg)
}
