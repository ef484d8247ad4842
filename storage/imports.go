// Package storage emits the storage codec, object model, and dynamic
// field/table operations of spec.md §4.5-§4.7: slot derivation, static and
// dynamic struct packing across 32-byte words, object locate/read/write/
// delete, and keyed side-storage attached to an object UID.
//
// Grounded on resource/backend_local.go's typed, handle-keyed store (there
// an in-process map; here the same "one entry per key, lifecycle-checked
// before every access" shape applied to the host's keccak-derived storage
// slots instead of an in-memory table) and on errors.Error for every
// structured failure this package can raise at compile time.
package storage

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// Imports resolves the exact host-import surface of spec.md §6.1, memoized
// by name via ctx.Context.DeclareHostImport so every emitter that needs a
// given import (storage codec, object model, event emission) shares one
// function index.
type Imports struct {
	StorageLoad  uint32
	StorageStore uint32
	Keccak256    uint32
	EmitLog      uint32
	ContractCall uint32

	MsgSender      uint32
	MsgValue       uint32
	TxOrigin       uint32
	BlockNumber    uint32
	BlockBasefee   uint32
	BlockGasLimit  uint32
	BlockTimestamp uint32
	GasPrice       uint32
}

// DeclareHostImports declares every spec.md §6.1 import exactly once and
// returns their function indices.
func DeclareHostImports(c *ctx.Context) *Imports {
	i32, i64 := wasm.ValI32, wasm.ValI64
	return &Imports{
		StorageLoad:  c.DeclareHostImport("env", "storage_load", []wasm.ValType{i32}, []wasm.ValType{i32}),
		StorageStore: c.DeclareHostImport("env", "storage_store", []wasm.ValType{i32, i32}, nil),
		Keccak256:    c.DeclareHostImport("env", "keccak256", []wasm.ValType{i32, i32, i32}, nil),
		EmitLog:      c.DeclareHostImport("env", "emit_log", []wasm.ValType{i32, i32, i32, i32}, nil),
		ContractCall: c.DeclareHostImport("env", "contract_call", []wasm.ValType{i32, i64, i32, i32, i32, i32, i32}, []wasm.ValType{i32}),

		MsgSender:      c.DeclareHostImport("env", "msg_sender", nil, []wasm.ValType{i32}),
		MsgValue:       c.DeclareHostImport("env", "msg_value", nil, []wasm.ValType{i32}),
		TxOrigin:       c.DeclareHostImport("env", "tx_origin", nil, []wasm.ValType{i32}),
		BlockNumber:    c.DeclareHostImport("env", "block_number", nil, []wasm.ValType{i64}),
		BlockBasefee:   c.DeclareHostImport("env", "block_basefee", nil, []wasm.ValType{i32}),
		BlockGasLimit:  c.DeclareHostImport("env", "block_gaslimit", nil, []wasm.ValType{i64}),
		BlockTimestamp: c.DeclareHostImport("env", "block_timestamp", nil, []wasm.ValType{i64}),
		GasPrice:       c.DeclareHostImport("env", "gas_price", nil, []wasm.ValType{i32}),
	}
}

// callNoArgsI32 emits a call to a zero-argument, single-i32-result host
// import (the address/word-pointer tx-context getters).
func callNoArgsI32(funcIdx uint32) []wasm.Instruction {
	return []wasm.Instruction{{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: funcIdx}}}
}
