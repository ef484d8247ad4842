// Dynamic tables: spec.md §4.7. A table is a typed collection of dynamic
// fields sharing one key type; it has its own UID (so it can itself be
// attached to an object as a field) and tracks its entry count in a
// dedicated length slot derived from that UID.
package storage

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// tableLenTagBytes returns the tag word that marks the length slot's hash
// input. It cannot collide with a
// dynamic-field slot: field slots hash a 96-byte uid||key||tag buffer,
// the length slot a 64-byte uid||tag one.
func tableLenTagBytes() []byte {
	buf := make([]byte, 32)
	buf[31] = 0xFF
	return buf
}

// ensureDynTableLenSlot materializes the helper deriving a table's length
// slot: (uidPtr) -> slotPtr, keccak256(pad32(uid) || tag).
func ensureDynTableLenSlot(c *ctx.Context, imports *Imports) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDynTableLenSlot, "",
		[]wasm.ValType{wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			keccakFn := ensureKeccak(c, imports)
			tagConst := c.DeclareConst(tableLenTagBytes())
			const pUid, lBuf = 0, 1
			var body []wasm.Instruction

			body = append(body, c.EmitAllocConst(64)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lBuf}})
			body = append(body, emitCopy32(lBuf, 0, pUid)...)
			body = append(body, emitCopyConst32(lBuf, 32, tagConst)...)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 64}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: keccakFn}},
			)
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
		},
	)
	return idx
}

// DynTableNew materializes the table constructor: issue a fresh UID for the
// table. Its length slot starts absent, which reads as zero.
func DynTableNew(c *ctx.Context, imports *Imports, sc SlotConsts) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDynTableNew, "",
		nil, []wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			issueFn := IssueUID(c, imports, sc)
			c.Builder().FillFunc(funcIdx, nil, []wasm.Instruction{
				{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: issueFn}},
			})
		},
	)
	return idx
}

// DynTableLength materializes (uidPtr) -> i32 entry count. The count is
// stored little-endian in the low bytes of the length slot, the same
// convention the storage codec uses for a vector's header word.
func DynTableLength(c *ctx.Context, imports *Imports, sc SlotConsts) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDynTableLength, "",
		[]wasm.ValType{wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			slotFn := ensureDynTableLenSlot(c, imports)
			const pUid = 0
			body := []wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
				{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: slotFn}},
				{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
				{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
			}
			c.Builder().FillFunc(funcIdx, nil, body)
		},
	)
	return idx
}

// emitBumpTableLen reads the count out of the table's length slot, adds
// delta, and stores it back. slotLocal holds the slot pointer; loadedLocal
// and bufLocal are caller-reserved scratch i32 locals.
func emitBumpTableLen(c *ctx.Context, imports *Imports, slotLocal, loadedLocal, bufLocal uint32, delta int32) []wasm.Instruction {
	var body []wasm.Instruction
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: slotLocal}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: loadedLocal}},
	)
	body = append(body, c.EmitAllocConst(32)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: bufLocal}})
	for off := uint64(0); off < 32; off += 8 {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: bufLocal}},
			wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0}},
			wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: off}},
		)
	}
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: bufLocal}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: loadedLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: delta}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: slotLocal}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: bufLocal}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
	)
	return body
}

// DynTableAdd materializes (uidPtr, keyPtr, valuePtr) -> (): insert an
// entry (trapping if the key is already present, as attach does) and bump
// the count.
func DynTableAdd(c *ctx.Context, imports *Imports, sc SlotConsts, keyType, valType irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDynTableAdd, dynFieldMono(typeTag(keyType), typeTag(valType)),
		[]wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32},
		nil,
		func(funcIdx uint32) {
			attachFn := DynFieldAttach(c, imports, sc, keyType, valType)
			slotFn := ensureDynTableLenSlot(c, imports)
			const pUid, pKey, pVal = 0, 1, 2
			const lSlot, lLoaded, lBuf = 3, 4, 5
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pKey}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: attachFn}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: slotFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
			)
			body = append(body, emitBumpTableLen(c, imports, lSlot, lLoaded, lBuf, 1)...)
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 3}}, body)
		},
	)
	return idx
}

// DynTableRemove materializes (uidPtr, keyPtr) -> valuePtr: drop the entry
// (trapping if absent), decrement the count, and return the removed value.
func DynTableRemove(c *ctx.Context, imports *Imports, sc SlotConsts, keyType, valType irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDynTableRemove, dynFieldMono(typeTag(keyType), typeTag(valType)),
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			removeFn := DynFieldRemove(c, imports, sc, keyType, valType)
			slotFn := ensureDynTableLenSlot(c, imports)
			const pUid, pKey = 0, 1
			const lVal, lSlot, lLoaded, lBuf = 2, 3, 4, 5
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pKey}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: removeFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lVal}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: slotFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
			)
			body = append(body, emitBumpTableLen(c, imports, lSlot, lLoaded, lBuf, -1)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lVal}})
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 4}}, body)
		},
	)
	return idx
}

// DynTableContains and DynTableBorrow are the table-level reads: an entry
// is a dynamic field under the table's own UID, so lookup and borrow are
// exactly the field operations applied to that UID.

func DynTableContains(c *ctx.Context, imports *Imports, sc SlotConsts, keyType, valType irtype.Type) uint32 {
	return DynFieldExists(c, imports, sc, keyType, valType)
}

func DynTableBorrow(c *ctx.Context, imports *Imports, sc SlotConsts, keyType, valType irtype.Type) uint32 {
	return DynFieldRead(c, imports, sc, keyType, valType)
}
