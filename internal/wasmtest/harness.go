// Package wasmtest runs an emitted module against a wazero-backed mock of
// the spec.md §6.1 host import surface, so package tests can instantiate a
// compiled entrypoint and assert on its observable behavior instead of
// only on the WASM bytes the emitter produced.
//
// Grounded on the teacher's linker/internal/bridge package: Harness's
// host functions follow the same api.GoModuleFunc(ctx, mod, stack
// []uint64) shape as bridge.Collector's exports, and Instantiate follows
// linker/canon_test.go's wazero.NewRuntime/CompileModule/InstantiateModule
// sequence, read for a guest module built by this repository's own
// encoder rather than one compiled from WAT text.
package wasmtest

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// memoryPages mirrors ctx.Context's own linear memory size so the harness's
// reserved high-memory regions (below) land at the same addresses the
// compiled module was sized against.
const memoryPages = 16
const memoryBytes = memoryPages * 65536

// The harness reserves two small regions at the very top of linear memory,
// far from the bump allocator's low addresses (spec.md §5's heap starts a
// few dozen bytes in and grows upward): calldataRegion holds the calldata
// CallEntrypoint writes before each call, scratchRegion holds the values
// host-import mocks return pointers into. This is a harness-only layout
// convention, not a contract the real host must share.
const (
	scratchRegionSize  = 256
	calldataRegionSize = 4096

	scratchBase  = memoryBytes - scratchRegionSize
	calldataBase = scratchBase - calldataRegionSize
)

const (
	scratchStorage  = scratchBase + 0
	scratchMsgSndr  = scratchBase + 32
	scratchTxOrigin = scratchBase + 64
	scratchMsgValue = scratchBase + 96
	scratchBasefee  = scratchBase + 128
	scratchGasPrice = scratchBase + 160
)

// LogEntry is one emit_log call captured during a test run.
type LogEntry struct {
	Topics [][32]byte
	Data   []byte
}

// Harness mocks spec.md §6.1's host import surface: a slot-keyed storage
// map, a captured log, and configurable transaction-context values. Zero
// value is ready to use; set the exported fields before calling Instantiate
// to control what a test run observes as msg.sender, tx.origin, and so on.
type Harness struct {
	Storage map[[32]byte][32]byte
	Logs    []LogEntry

	MsgSender      [32]byte
	TxOrigin       [32]byte
	MsgValue       [32]byte
	BlockNumber    uint64
	BlockBasefee   [32]byte
	BlockGasLimit  uint64
	BlockTimestamp uint64
	GasPrice       [32]byte

	// ContractCallResult is what the contract_call mock reports; the zero
	// value means every cross-contract call succeeds.
	ContractCallResult uint32
}

// New returns a Harness with an empty storage map and every
// transaction-context value zeroed.
func New() *Harness {
	return &Harness{Storage: make(map[[32]byte][32]byte)}
}

// Instance is a compiled module instantiated against one Harness.
type Instance struct {
	rt  wazero.Runtime
	mod api.Module
}

// Close releases the underlying wazero runtime and every resource it owns.
func (in *Instance) Close(ctx context.Context) error {
	return in.rt.Close(ctx)
}

// Instantiate compiles wasmBytes and links it against h's host import mock,
// ready for CallEntrypoint.
func (h *Harness) Instantiate(ctx context.Context, wasmBytes []byte) (*Instance, error) {
	rt := wazero.NewRuntime(ctx)

	env := rt.NewHostModuleBuilder("env")
	h.registerStorageLoad(env)
	h.registerStorageStore(env)
	h.registerKeccak256(env)
	h.registerEmitLog(env)
	h.registerContractCall(env)
	h.registerGetterPtr(env, "msg_sender", func() [32]byte { return h.MsgSender }, scratchMsgSndr)
	h.registerGetterPtr(env, "msg_value", func() [32]byte { return h.MsgValue }, scratchMsgValue)
	h.registerGetterPtr(env, "tx_origin", func() [32]byte { return h.TxOrigin }, scratchTxOrigin)
	h.registerGetterPtr(env, "block_basefee", func() [32]byte { return h.BlockBasefee }, scratchBasefee)
	h.registerGetterPtr(env, "gas_price", func() [32]byte { return h.GasPrice }, scratchGasPrice)
	h.registerGetterI64(env, "block_number", func() uint64 { return h.BlockNumber })
	h.registerGetterI64(env, "block_gaslimit", func() uint64 { return h.BlockGasLimit })
	h.registerGetterI64(env, "block_timestamp", func() uint64 { return h.BlockTimestamp })

	if _, err := env.Instantiate(ctx); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wasmtest: instantiate env host module: %w", err)
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wasmtest: compile guest module: %w", err)
	}
	mod, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName("guest"))
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wasmtest: instantiate guest module: %w", err)
	}
	return &Instance{rt: rt, mod: mod}, nil
}

// CallEntrypoint writes calldata into the guest's reserved calldata region,
// calls the exported "entrypoint" function, and reads back the return
// buffer via the return_ptr/return_len getters Compile exports.
func (in *Instance) CallEntrypoint(ctx context.Context, calldata []byte) (returnData []byte, exitCode uint32, err error) {
	if len(calldata) > calldataRegionSize {
		return nil, 0, fmt.Errorf("wasmtest: calldata of %d bytes exceeds harness region of %d", len(calldata), calldataRegionSize)
	}
	mem := in.mod.Memory()
	if !mem.Write(calldataBase, calldata) {
		return nil, 0, fmt.Errorf("wasmtest: failed to write calldata")
	}

	entry := in.mod.ExportedFunction("entrypoint")
	if entry == nil {
		return nil, 0, fmt.Errorf("wasmtest: module has no exported \"entrypoint\" function")
	}
	results, err := entry.Call(ctx, uint64(calldataBase), uint64(len(calldata)))
	if err != nil {
		return nil, 0, fmt.Errorf("wasmtest: entrypoint call trapped: %w", err)
	}
	exitCode = uint32(results[0])

	ptr, err := in.callGetter(ctx, "return_ptr")
	if err != nil {
		return nil, exitCode, err
	}
	length, err := in.callGetter(ctx, "return_len")
	if err != nil {
		return nil, exitCode, err
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		return nil, exitCode, fmt.Errorf("wasmtest: return buffer [%d, %d) out of bounds", ptr, ptr+length)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, exitCode, nil
}

// CallFunction calls any exported function by name with raw i32/i64 args
// (as uint64, the wazero-native stack representation) and returns its raw
// results, for tests that exercise a package emitter's helper directly
// rather than going through the full entrypoint ABI boundary.
func (in *Instance) CallFunction(ctx context.Context, name string, args ...uint64) ([]uint64, error) {
	fn := in.mod.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("wasmtest: module has no exported %q function", name)
	}
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("wasmtest: call %q: %w", name, err)
	}
	return results, nil
}

func (in *Instance) callGetter(ctx context.Context, name string) (uint32, error) {
	fn := in.mod.ExportedFunction(name)
	if fn == nil {
		return 0, fmt.Errorf("wasmtest: module has no exported %q function", name)
	}
	results, err := fn.Call(ctx)
	if err != nil {
		return 0, fmt.Errorf("wasmtest: call %q: %w", name, err)
	}
	return uint32(results[0]), nil
}

// Memory exposes the instantiated guest's linear memory directly, for tests
// that need to inspect state beyond the return buffer (e.g. a storage
// object's in-memory representation before it is written back).
func (in *Instance) Memory() api.Memory {
	return in.mod.Memory()
}
