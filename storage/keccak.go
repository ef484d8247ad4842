package storage

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// ensureKeccak materializes the generic runtime-function-cache entry for
// keccak256 (runtimefn.RoleKeccak, spec.md §4.1): given (inputPtr, inputLen)
// it allocates a fresh 32-byte output buffer, calls the host import, and
// returns the output pointer.
func ensureKeccak(c *ctx.Context, imports *Imports) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleKeccak, "",
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			const pInput, pLen = 0, 1
			const lOut = 2
			var body []wasm.Instruction
			body = append(body, c.EmitAllocConst(32)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOut}})
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pInput}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pLen}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOut}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.Keccak256}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOut}},
			)
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
		},
	)
	return idx
}

// ensureParentSlot materializes the parent-slot derivation of spec.md
// §4.5/§6.3: given (nsPtr, idPtr) — both 32-byte pointers — it computes
// keccak256(pad32(id) || keccak256(pad32(namespace) || pad32(0))) and
// returns a pointer to the 32-byte result.
func ensureParentSlot(c *ctx.Context, imports *Imports, sc SlotConsts) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleParentSlot, "",
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			keccakFn := ensureKeccak(c, imports)
			const pNs, pId = 0, 1
			const lBuf1, lInner, lBuf2 = 2, 3, 4
			var body []wasm.Instruction

			// inner = keccak256(pad32(ns) || pad32(0))
			body = append(body, c.EmitAllocConst(64)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lBuf1}})
			body = append(body, emitCopy32(lBuf1, 0, pNs)...)
			body = append(body, emitCopyConst32(lBuf1, 32, sc.zero32)...)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf1}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 64}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: keccakFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lInner}},
			)

			// outer = keccak256(pad32(id) || inner)
			body = append(body, c.EmitAllocConst(64)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lBuf2}})
			body = append(body, emitCopy32(lBuf2, 0, pId)...)
			body = append(body, emitCopy32At(lBuf2, 32, lInner)...)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf2}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 64}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: keccakFn}},
			)

			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 3}}, body)
		},
	)
	return idx
}

// emitCopy32 emits memory.copy(dstLocal+dstOff, srcLocal, 32).
func emitCopy32(dstLocal uint32, dstOff int32, srcLocal uint32) []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: dstLocal}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: dstOff}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: srcLocal}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
		{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
	}
}

// emitCopy32At is emitCopy32 where the source is itself held in a local
// (as opposed to being the local's own value interpreted as a pointer —
// both forms are identical since locals here always hold i32 addresses,
// kept as a distinct name so call sites read as "copy from this computed
// address" versus "copy from this parameter").
func emitCopy32At(dstLocal uint32, dstOff int32, srcLocal uint32) []wasm.Instruction {
	return emitCopy32(dstLocal, dstOff, srcLocal)
}

// emitCopyConst32 copies the 32-byte compile-time constant at address
// constAddr into dstLocal+dstOff.
func emitCopyConst32(dstLocal uint32, dstOff int32, constAddr uint32) []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: dstLocal}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: dstOff}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(constAddr)}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
		{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
	}
}

// emitIsZero32 leaves an i32 on the stack: 1 if every byte at ptrLocal is
// zero, 0 otherwise. Used to test whether a loaded storage word represents
// "slot unoccupied" (spec.md §4.6 locate: "the first namespace where the
// parent slot is non-zero").
func emitIsZero32(ptrLocal uint32) []wasm.Instruction {
	body := []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
		{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
	}
	for off := uint64(4); off < 32; off += 4 {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: ptrLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: off}},
			wasm.Instruction{Opcode: wasm.OpI32Or},
		)
	}
	body = append(body, wasm.Instruction{Opcode: wasm.OpI32Eqz})
	return body
}
