package abi

import (
	"github.com/rather-labs/move-stylus-wasm/irtype"
)

// CanonicalName renders t as the Solidity ABI type string its encoding
// matches — used to derive stable selectors and signatures (function
// selectors, event topic-0 words, revert error selectors), not as part of
// the on-chain type system itself.
func CanonicalName(t irtype.Type) string {
	switch t.Kind() {
	case irtype.KindBool:
		return "bool"
	case irtype.KindU8:
		return "uint8"
	case irtype.KindU16:
		return "uint16"
	case irtype.KindU32:
		return "uint32"
	case irtype.KindU64:
		return "uint64"
	case irtype.KindU128:
		return "uint128"
	case irtype.KindU256:
		return "uint256"
	case irtype.KindAddress:
		return "address"
	case irtype.KindSigner:
		return "address"
	case irtype.KindBytes:
		return "bytes"
	case irtype.KindStr:
		return "string"
	case irtype.KindVector:
		return CanonicalName(t.Elem()) + "[]"
	case irtype.KindStruct, irtype.KindGenericStructInstance:
		return "(" + t.StructRef().String() + ")"
	case irtype.KindEnum, irtype.KindGenericEnumInstance:
		return "uint8"
	default:
		return t.String()
	}
}

// SignatureString renders "name(type,type,...)", the canonical string both
// function selectors (spec.md §6.3) and event topic-0 / revert error
// selectors (spec.md §6.4) are keccak-derived from.
func SignatureString(name string, types []irtype.Type) string {
	s := name + "("
	for i, t := range types {
		if i > 0 {
			s += ","
		}
		s += CanonicalName(t)
	}
	return s + ")"
}
