package move2wasm

import (
	"github.com/rather-labs/move-stylus-wasm/abi"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/keccak"
)

// Selector computes the 4-byte Solidity-style function selector
// keccak256(signature)[0:4] for name applied to paramTypes, the same
// derivation spec.md §6.3/§6.4 uses for event topics and revert error
// selectors.
func Selector(name string, paramTypes []irtype.Type) [4]byte {
	digest := keccak.Sum256([]byte(abi.SignatureString(name, paramTypes)))
	var out [4]byte
	copy(out[:], digest[:4])
	return out
}
