// Package wasm provides the WebAssembly module representation and binary
// encoder the emitter packages build on.
//
// This package implements an in-memory module IR and its encoding to the
// WebAssembly binary format according to the WebAssembly 2.0 specification,
// with opcode and immediate coverage for several post-2.0 proposals. It is
// an emission substrate: modules are assembled section by section (via
// wasm/build.Builder) and encoded once, never parsed back from binary.
//
// # Module Structure
//
// A module under construction contains all sections:
//
//	module.Types      []FuncType    // Function signatures
//	module.Funcs      []uint32      // Type indices for functions
//	module.Tables     []TableType   // Table definitions
//	module.Memories   []MemoryType  // Memory definitions
//	module.Globals    []Global      // Global definitions
//	module.Imports    []Import      // Imported definitions
//	module.Exports    []Export      // Exported definitions
//	module.Code       []FuncBody    // Function bodies
//	module.Data       []DataSegment // Data segments
//	module.Elements   []Element     // Element segments
//
// # Encoding
//
// Encode a module to binary:
//
//	encoded := module.Encode()
//
// Function bodies hold raw bytecode; build one from structured
// instructions:
//
//	code := wasm.EncodeInstructions(instructions)
//
// DecodeInstructions is the inverse, used to round-trip-check instruction
// encodings in tests.
//
// # Validation
//
// Validate module structure before encoding (wasm/build.Builder.Encode
// runs this automatically):
//
//	if err := module.Validate(); err != nil {
//	    log.Printf("invalid module: %v", err)
//	}
//
// Validation checks:
//   - Type, function, table, memory, global and tag indices are in bounds
//   - Export names are unique
//   - The start function, if any, has type [] -> []
//   - The data-count and code section counts agree with their sections
//   - Memory limits are within the page maximum; shared memories declare a max
//
// It does not check function bodies (local indices, operand types), the
// UTF-8 validity of names, or table limits.
//
// # LEB128 Encoding
//
// The package provides LEB128 utilities used throughout:
//
//	wasm.WriteLEB128u(buf, n)  // Unsigned
//	wasm.WriteLEB128s(buf, n)  // Signed
package wasm
