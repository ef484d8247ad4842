// Package keccak provides the Keccak-256 hash used for storage slot
// derivation, UID issuance, and event topic/selector hashing.
//
// The EVM's keccak256 precedes the NIST SHA-3 padding change, so this uses
// the legacy Keccak padding, not standard SHA3-256 — every EVM-targeting Go
// project (go-ethereum among them) makes the same substitution.
package keccak

import "golang.org/x/crypto/sha3"

// Sum256 hashes the concatenation of data and returns the 32-byte digest.
func Sum256(data ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d) //nolint:errcheck // hash.Hash.Write never errors
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Pad32 left-pads b with zero bytes to 32 bytes, truncating from the left
// if b is already longer (callers are expected to pass values ≤ 32 bytes;
// this mirrors the Solidity "pad32" convention spec.md §4.5/§6.3 rely on).
func Pad32(b []byte) []byte {
	out := make([]byte, 32)
	if len(b) >= 32 {
		copy(out, b[len(b)-32:])
		return out
	}
	copy(out[32-len(b):], b)
	return out
}
