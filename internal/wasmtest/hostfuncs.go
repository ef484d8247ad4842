package wasmtest

import (
	"context"

	"github.com/rather-labs/move-stylus-wasm/keccak"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// registerStorageLoad mocks storage_load(keyPtr: i32) -> valuePtr: i32: the
// 32 bytes at keyPtr are the slot key; a zero value (Go's map zero value)
// stands for "slot unoccupied", matching storage.ensureLocate's own
// all-zero-word convention.
func (h *Harness) registerStorageLoad(b wazero.HostModuleBuilder) {
	fn := api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
		mem := mod.Memory()
		keyPtr := uint32(stack[0])
		keyBytes, ok := mem.Read(keyPtr, 32)
		if !ok {
			panic("wasmtest: storage_load: out-of-bounds key read")
		}
		var key [32]byte
		copy(key[:], keyBytes)
		val := h.Storage[key]
		mem.Write(scratchStorage, val[:])
		stack[0] = uint64(scratchStorage)
	})
	b.NewFunctionBuilder().
		WithGoModuleFunction(fn, []api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export("storage_load")
}

// registerStorageStore mocks storage_store(keyPtr, valPtr: i32).
func (h *Harness) registerStorageStore(b wazero.HostModuleBuilder) {
	fn := api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
		mem := mod.Memory()
		keyPtr, valPtr := uint32(stack[0]), uint32(stack[1])
		keyBytes, ok := mem.Read(keyPtr, 32)
		if !ok {
			panic("wasmtest: storage_store: out-of-bounds key read")
		}
		valBytes, ok := mem.Read(valPtr, 32)
		if !ok {
			panic("wasmtest: storage_store: out-of-bounds value read")
		}
		var key, val [32]byte
		copy(key[:], keyBytes)
		copy(val[:], valBytes)
		h.Storage[key] = val
	})
	b.NewFunctionBuilder().
		WithGoModuleFunction(fn, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, nil).
		Export("storage_store")
}

// registerKeccak256 mocks keccak256(inputPtr, inputLen, outPtr: i32) using
// this module's own keccak package, so a test's assertions about a derived
// slot/selector and the emitted code's own derivation agree by construction.
func (h *Harness) registerKeccak256(b wazero.HostModuleBuilder) {
	fn := api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
		mem := mod.Memory()
		inPtr, inLen, outPtr := uint32(stack[0]), uint32(stack[1]), uint32(stack[2])
		data, ok := mem.Read(inPtr, inLen)
		if !ok {
			panic("wasmtest: keccak256: out-of-bounds input read")
		}
		digest := keccak.Sum256(data)
		mem.Write(outPtr, digest[:])
	})
	b.NewFunctionBuilder().
		WithGoModuleFunction(fn, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, nil).
		Export("keccak256")
}

// registerEmitLog mocks emit_log(topicsPtr, topicsLen, dataPtr, dataLen:
// i32), appending a LogEntry for test assertions. topicsLen counts 32-byte
// topic words, matching spec.md §6.4's event-topic derivation.
func (h *Harness) registerEmitLog(b wazero.HostModuleBuilder) {
	fn := api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
		mem := mod.Memory()
		topicsPtr, topicsLen := uint32(stack[0]), uint32(stack[1])
		dataPtr, dataLen := uint32(stack[2]), uint32(stack[3])

		topics := make([][32]byte, topicsLen)
		for i := uint32(0); i < topicsLen; i++ {
			word, ok := mem.Read(topicsPtr+i*32, 32)
			if !ok {
				panic("wasmtest: emit_log: out-of-bounds topic read")
			}
			copy(topics[i][:], word)
		}
		data, ok := mem.Read(dataPtr, dataLen)
		if !ok {
			panic("wasmtest: emit_log: out-of-bounds data read")
		}
		entryData := make([]byte, len(data))
		copy(entryData, data)
		h.Logs = append(h.Logs, LogEntry{Topics: topics, Data: entryData})
	})
	b.NewFunctionBuilder().
		WithGoModuleFunction(fn, []api.ValueType{
			api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32,
		}, nil).
		Export("emit_log")
}

// registerContractCall mocks contract_call as a stub that performs no
// nested execution and reports h.ContractCallResult (success by default):
// the revert/unwrap emitters only need the status code to steer their
// failure path, not a real callee.
func (h *Harness) registerContractCall(b wazero.HostModuleBuilder) {
	fn := api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
		stack[0] = uint64(h.ContractCallResult)
	})
	b.NewFunctionBuilder().
		WithGoModuleFunction(fn, []api.ValueType{
			api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeI32, api.ValueTypeI32,
			api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32,
		}, []api.ValueType{api.ValueTypeI32}).
		Export("contract_call")
}

// registerGetterPtr mocks a zero-argument transaction-context getter that
// returns a pointer to a 32-byte value: the harness writes value() into its
// dedicated scratch slot and returns that address, mirroring how the real
// host would return a pointer into its own memory.
func (h *Harness) registerGetterPtr(b wazero.HostModuleBuilder, name string, value func() [32]byte, scratchAddr uint32) {
	fn := api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
		v := value()
		mod.Memory().Write(scratchAddr, v[:])
		stack[0] = uint64(scratchAddr)
	})
	b.NewFunctionBuilder().
		WithGoModuleFunction(fn, nil, []api.ValueType{api.ValueTypeI32}).
		Export(name)
}

// registerGetterI64 mocks a zero-argument getter whose value fits a plain
// i64 stack result (block_number, block_gaslimit, block_timestamp).
func (h *Harness) registerGetterI64(b wazero.HostModuleBuilder, name string, value func() uint64) {
	fn := api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
		stack[0] = value()
	})
	b.NewFunctionBuilder().
		WithGoModuleFunction(fn, nil, []api.ValueType{api.ValueTypeI64}).
		Export(name)
}
