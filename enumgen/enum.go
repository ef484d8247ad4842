// Package enumgen emits the enum codec of spec.md §4.2/§3.2: variant
// construction, tag extraction, and the simple/non-simple split that
// decides whether an enum can cross the ABI boundary as a bare uint8 or
// must stay an internal tagged union.
//
// Grounded in shape on layout.HeapSize's own simple/non-simple branch (a
// simple enum is a 4-byte discriminant; a non-simple enum is a 4-byte
// discriminant followed by the widest variant's boxed-pointer payload) and
// on abi/unpack.synthEnum's trap-on-out-of-range-variant discipline.
package enumgen

import (
	"github.com/rather-labs/move-stylus-wasm/irtype"
)

// discriminantSize is the fixed width, in bytes, of an enum's tag word —
// the low 4 bytes of every enum representation, simple or not.
const discriminantSize = 4

// payloadFieldSlot returns the byte offset of variant field i within a
// non-simple enum's payload region (itself starting right after the
// discriminant): one uniform PointerSize-wide boxed slot per field, the same
// convention layout.go applies to struct fields.
func payloadFieldSlot(i int) int32 {
	const pointerSize = 4
	return int32(discriminantSize + i*pointerSize)
}

func variantIndex(decl *irtype.EnumDecl, variantName string) int {
	for i, v := range decl.Variants {
		if v.Name == variantName {
			return i
		}
	}
	return -1
}
