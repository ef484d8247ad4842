// Package irtype canonicalizes IntermediateType trees and resolves
// struct/enum declarations against a Registry. It is the type registry
// component of the compiler: every other emitter package asks a Type for
// its storage class rather than re-deriving it from the tag.
package irtype

import "strings"

// Kind is the tag of an IntermediateType.
type Kind uint8

const (
	KindBool Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindU256
	KindAddress
	KindSigner
	KindBytes
	KindStr
	KindVector
	KindStruct
	KindGenericStructInstance
	KindEnum
	KindGenericEnumInstance
	KindRef
	KindMutRef
	KindTypeParameter
)

var kindNames = [...]string{
	KindBool:                  "bool",
	KindU8:                    "u8",
	KindU16:                   "u16",
	KindU32:                   "u32",
	KindU64:                   "u64",
	KindU128:                  "u128",
	KindU256:                  "u256",
	KindAddress:               "address",
	KindSigner:                "signer",
	KindBytes:                 "bytes",
	KindStr:                   "string",
	KindVector:                "vector",
	KindStruct:                "struct",
	KindGenericStructInstance: "generic_struct_instance",
	KindEnum:                  "enum",
	KindGenericEnumInstance:   "generic_enum_instance",
	KindRef:                   "ref",
	KindMutRef:                "mut_ref",
	KindTypeParameter:         "type_parameter",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// StructRef names a struct or enum declaration: a module-qualified name
// plus the concrete type arguments it was instantiated with (empty for a
// non-generic declaration).
type StructRef struct {
	Module   string
	Name     string
	TypeArgs []Type
}

// String renders a stable, human-readable monomorphization key, e.g.
// "0x2::coin::Coin<0x2::sui::SUI>". Used by runtimefn as part of a cache
// key and by error messages.
func (s StructRef) String() string {
	var b strings.Builder
	b.WriteString(s.Module)
	b.WriteString("::")
	b.WriteString(s.Name)
	if len(s.TypeArgs) > 0 {
		b.WriteByte('<')
		for i, ta := range s.TypeArgs {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(ta.String())
		}
		b.WriteByte('>')
	}
	return b.String()
}

// Type is an IntermediateType value: a tagged sum as spec'd in §3.1. The
// zero value reads as Bool; construct types via the constructor functions
// below (Bool, U8, ..., Vector, Ref, Struct, Enum, TypeParameter).
type Type struct {
	kind Kind

	// Elem is the inner type for Vector, Ref, and MutRef.
	elem *Type

	// Ref identifies the struct/enum declaration for Struct,
	// GenericStructInstance, Enum, and GenericEnumInstance.
	ref StructRef

	// ix is the De Bruijn index for TypeParameter.
	ix int
}

func Bool() Type    { return Type{kind: KindBool} }
func U8() Type      { return Type{kind: KindU8} }
func U16() Type     { return Type{kind: KindU16} }
func U32() Type     { return Type{kind: KindU32} }
func U64() Type     { return Type{kind: KindU64} }
func U128() Type    { return Type{kind: KindU128} }
func U256() Type    { return Type{kind: KindU256} }
func Address() Type { return Type{kind: KindAddress} }
func Signer() Type  { return Type{kind: KindSigner} }
func Bytes() Type   { return Type{kind: KindBytes} }
func Str() Type     { return Type{kind: KindStr} }

func Vector(elem Type) Type { return Type{kind: KindVector, elem: &elem} }
func Ref(elem Type) Type    { return Type{kind: KindRef, elem: &elem} }
func MutRef(elem Type) Type { return Type{kind: KindMutRef, elem: &elem} }

func Struct(ref StructRef) Type {
	if len(ref.TypeArgs) > 0 {
		return Type{kind: KindGenericStructInstance, ref: ref}
	}
	return Type{kind: KindStruct, ref: ref}
}

func Enum(ref StructRef) Type {
	if len(ref.TypeArgs) > 0 {
		return Type{kind: KindGenericEnumInstance, ref: ref}
	}
	return Type{kind: KindEnum, ref: ref}
}

func TypeParameter(ix int) Type { return Type{kind: KindTypeParameter, ix: ix} }

func (t Type) Kind() Kind { return t.kind }

// Elem returns the inner type of a Vector, Ref, or MutRef. It panics if
// called on any other kind — callers must check Kind() first.
func (t Type) Elem() Type {
	if t.elem == nil {
		panic("irtype: Elem() called on a type with no element: " + t.kind.String())
	}
	return *t.elem
}

// StructRef returns the declaration reference of a Struct,
// GenericStructInstance, Enum, or GenericEnumInstance.
func (t Type) StructRef() StructRef { return t.ref }

// ParamIndex returns the De Bruijn index of a TypeParameter.
func (t Type) ParamIndex() int { return t.ix }

func (t Type) String() string {
	switch t.kind {
	case KindVector, KindRef, KindMutRef:
		return t.kind.String() + "<" + t.elem.String() + ">"
	case KindStruct, KindGenericStructInstance, KindEnum, KindGenericEnumInstance:
		return t.ref.String()
	case KindTypeParameter:
		return "T" + itoa(t.ix)
	default:
		return t.kind.String()
	}
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// Storage class predicates, spec.md §3.1.

// IsStackRepresentable reports whether a value of this type fits directly
// in a WASM i32/i64 stack value.
func (t Type) IsStackRepresentable() bool {
	switch t.kind {
	case KindBool, KindU8, KindU16, KindU32, KindU64:
		return true
	default:
		return false
	}
}

// IsHeapOnly reports whether this type is a fixed-size scalar that does not
// fit a stack value (U128, U256, Address, Signer): the emitter allocates
// these directly and hands back a pointer, but the *semantic* class differs
// from composite types in that there is no header, length, or field table
// to walk.
func (t Type) IsHeapOnly() bool {
	switch t.kind {
	case KindU128, KindU256, KindAddress, KindSigner:
		return true
	default:
		return false
	}
}

// IsComposite reports whether this type is always represented by a 32-bit
// pointer into linear memory with an internal structure (vector header,
// struct field table, or enum tag/union).
func (t Type) IsComposite() bool {
	switch t.kind {
	case KindVector, KindStruct, KindGenericStructInstance, KindEnum, KindGenericEnumInstance, KindBytes, KindStr:
		return true
	default:
		return false
	}
}

// IsReference reports whether this type is Ref or MutRef.
func (t Type) IsReference() bool {
	return t.kind == KindRef || t.kind == KindMutRef
}

// StackSize returns the width in bytes of the WASM value used to hold a
// stack-representable type: 4 for everything except U64, which is 8.
// Panics if the type is not stack-representable.
func (t Type) StackSize() int {
	if !t.IsStackRepresentable() {
		panic("irtype: StackSize() called on non-stack type: " + t.String())
	}
	if t.kind == KindU64 {
		return 8
	}
	return 4
}

// HeapSize returns the fixed byte size of a heap-only scalar's allocation.
// Panics if the type is not heap-only.
func (t Type) HeapSize() int {
	switch t.kind {
	case KindU128:
		return 16
	case KindU256, KindAddress:
		return 32
	case KindSigner:
		return 20
	default:
		panic("irtype: HeapSize() called on non-heap-only type: " + t.String())
	}
}

// ElementDataSize returns the slot width a vector of this element type
// reserves per element: the element's natural stack size for stack types,
// or 4 bytes (a pointer) for heap-only and composite elements. Spec.md
// §3.2 "Vector".
func ElementDataSize(elem Type) int {
	if elem.IsStackRepresentable() {
		return elem.StackSize()
	}
	return 4
}
