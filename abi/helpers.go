// Package abi provides the Solidity-ABI helpers shared by abi/unpack and
// abi/pack: the dynamic-type classification that decides head/tail layout,
// and the overflow-checked arithmetic used to validate calldata offsets and
// lengths before they are used as memory addresses.
//
// Grounded in shape on transcoder/internal/abi/helpers.go's SafeMulU32 /
// SafeAddU32 / AlignTo helpers, adapted from canonical-ABI flattening math
// to Solidity head/tail ABI math.
package abi

import (
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
)

// WordSize is the width of one ABI slot: 32 bytes, always.
const WordSize = 32

// MaxU32 is the largest value a 32-bit calldata offset/length may take
// before it is rejected — spec.md §8 S8: "a dynamic-offset word exceeding
// 2^32 − 1 must trap."
const MaxU32 = 1<<32 - 1

// IsDynamic reports whether t's ABI encoding is "dynamic" (carries a length
// or offset header rather than occupying a fixed number of head words), per
// the Solidity ABI formal specification: bytes, string, T[], and T[k] for
// dynamic T are dynamic; a struct (tuple) is dynamic iff any field is
// dynamic. reg resolves struct/enum declarations.
func IsDynamic(t irtype.Type, reg *irtype.Registry) bool {
	switch t.Kind() {
	case irtype.KindVector, irtype.KindBytes, irtype.KindStr:
		return true

	case irtype.KindStruct, irtype.KindGenericStructInstance:
		ref := t.StructRef()
		decl, ok := reg.LookupStruct(ref.Module, ref.Name)
		if !ok {
			return false
		}
		for _, f := range decl.Fields {
			if IsDynamic(f.Type, reg) {
				return true
			}
		}
		return false

	default:
		return false
	}
}

// HeadWords returns the number of 32-byte head slots t occupies in the ABI
// encoding of its enclosing tuple: 1 for any scalar or dynamic type (the
// latter's head slot holds an offset), or the sum of its fields' head words
// for a static struct.
func HeadWords(t irtype.Type, reg *irtype.Registry) int {
	if IsDynamic(t, reg) {
		return 1
	}
	if t.Kind() == irtype.KindStruct {
		ref := t.StructRef()
		decl, ok := reg.LookupStruct(ref.Module, ref.Name)
		if ok {
			n := 0
			for _, f := range decl.Fields {
				n += HeadWords(f.Type, reg)
			}
			return n
		}
	}
	return 1
}

// SafeAddU32 adds a and b, returning an errors.Unsupported error when the
// sum exceeds 32 bits instead of wrapping, for computing calldata offsets
// that must themselves fit in 32 bits.
func SafeAddU32(a, b uint64, typeRef string) (uint64, error) {
	sum := a + b
	if sum > MaxU32 {
		return 0, errors.Unsupported(errors.PhaseEmit, typeRef, "calldata offset overflows 32 bits")
	}
	return sum, nil
}

// SafeMulU32 multiplies a and b with the same 32-bit overflow check as
// SafeAddU32, used for length*elementSize bounds computations.
func SafeMulU32(a, b uint64, typeRef string) (uint64, error) {
	product := a * b
	if b != 0 && product/b != a {
		return 0, errors.Unsupported(errors.PhaseEmit, typeRef, "calldata size overflows 32 bits")
	}
	if product > MaxU32 {
		return 0, errors.Unsupported(errors.PhaseEmit, typeRef, "calldata size overflows 32 bits")
	}
	return product, nil
}
