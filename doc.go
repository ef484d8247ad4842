// Package move2wasm is the emission layer of a compiler that lowers a
// resource-oriented smart-contract bytecode to WebAssembly modules
// executable on an EVM-compatible host (spec.md §1).
//
// The package ties the lower-level emitter packages together into one
// runnable entrypoint:
//
//	irtype      IntermediateType tree + struct/enum registry
//	layout      linear-memory and storage sizing
//	abi/unpack  calldata -> memory decode
//	abi/pack    memory -> return/event buffer encode
//	vectorgen   vector allocation, push/pop/swap/borrow, relocation repair
//	enumgen     variant construction and tag extraction
//	arith       checked addition and downcast helpers
//	eventgen    event topics and data, handed to emit_log
//	revertgen   revert buffers, abort messages, call-unwrap
//	storage     slot derivation, object model, dynamic fields and tables
//	ctx         the per-compilation context every emitter borrows
//	runtimefn   memoized materialization of generic helpers
//	wasm        the emitted module's IR, opcodes, and binary encoder
//
// Compile (compile.go) builds a single exported "entrypoint" function that
// decodes a declared parameter list from calldata and re-encodes the same
// values as the return tuple — a round trip that exercises the ABI
// boundary directly (spec.md §8 P1) without requiring the out-of-scope
// front-end to supply a function body. It exists so the emission layer has
// something runnable to smoke-test against; see cmd/move2wasm and
// SPEC_FULL.md §10.
package move2wasm
