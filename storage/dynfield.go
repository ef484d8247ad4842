// Dynamic fields: spec.md §4.7. A dynamic field is a keyed side-slot
// attached to an object UID, independent of that object's own static/dynamic
// struct layout: slot = keccak256(pad32(uid) || encoded_key || type_tag).
// This pass supports scalar and heap-only keys/values (the common case for a
// dynamic table) — a key or value that is itself a struct/vector/enum would
// need the full codec's recursive packing, which dynamic fields (unlike
// objects) have no registry-level declaration to drive.
package storage

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// dynFieldMono keys the per-(key-type, value-type) dynamic field helpers.
func dynFieldMono(keyTag, valTag int32) string {
	return itoaSmall(int(keyTag)) + "_" + itoaSmall(int(valTag))
}

// typeTag is the compile-time-constant discriminant identifying a type for
// the purpose of dynamic-field slot derivation (spec.md §4.7's "type_tag"
// component of the slot formula): the numeric value of its irtype.Kind.
func typeTag(t irtype.Type) int32 {
	return int32(t.Kind())
}

// ensureDynFieldSlot materializes the slot derivation helper for a given
// (key type, value type) pair: given (uidPtr, keyPtr) it returns the
// keccak256(pad32(uid) || pad32(key) || pad32(type_tag)) slot pointer. Keys
// are folded to a 32-byte word by emitKeyAt: a stack-typed key occupies the
// word's last 4 or 8 bytes in little-endian byte order, a heap-only or
// composite key contributes the 32 bytes its pointer addresses.
func ensureDynFieldSlot(c *ctx.Context, imports *Imports, sc SlotConsts, keyType, valType irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDynFieldSlot, dynFieldMono(typeTag(keyType), typeTag(valType)),
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			keccakFn := ensureKeccak(c, imports)
			const pUid, pKey = 0, 1
			const lBuf, lTagBuf = 2, 3
			var body []wasm.Instruction

			body = append(body, c.EmitAllocConst(96)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lBuf}})
			body = append(body, emitCopy32(lBuf, 0, pUid)...)
			body = append(body, emitKeyAt(lBuf, 32, pKey, keyType)...)

			tagConst := c.DeclareConst(tagBytes(valType))
			_ = lTagBuf
			body = append(body, emitCopyConst32(lBuf, 64, tagConst)...)

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 96}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: keccakFn}},
			)
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 2}}, body)
		},
	)
	return idx
}

// tagBytes renders a value type's type_tag as a 32-byte big-endian word.
func tagBytes(t irtype.Type) []byte {
	buf := make([]byte, 32)
	buf[31] = byte(t.Kind())
	return buf
}

// emitKeyAt copies a dynamic field key into dstLocal+dstOff as a 32-byte
// word: heap-only/composite keys (already pointers to >=32-byte data, e.g.
// Address) are copied directly; stack-representable keys are zero-extended
// into the low bytes of a fresh 32-byte scratch buffer first.
func emitKeyAt(dstLocal uint32, dstOff int32, keyLocal uint32, keyType irtype.Type) []wasm.Instruction {
	if !keyType.IsStackRepresentable() {
		return []wasm.Instruction{
			{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: dstLocal}},
			{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: dstOff}},
			{Opcode: wasm.OpI32Add},
			{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: keyLocal}},
			{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
			{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
		}
	}
	// zero the word, then store the scalar's natural width in its last 4 or
	// 8 bytes; the store itself writes those bytes little-endian.
	var out []wasm.Instruction
	out = append(out,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: dstLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: dstOff}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0}},
		wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: dstLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: dstOff}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0}},
		wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 8}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: dstLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: dstOff}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0}},
		wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 16}},
	)
	if keyType.StackSize() == 8 {
		out = append(out,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: dstLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: dstOff + 24}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: keyLocal}},
			wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 0}},
		)
	} else {
		out = append(out,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: dstLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: dstOff + 28}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: keyLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
		)
	}
	return out
}

// DynFieldAttach materializes spec.md §4.7 "Attach writes the value":
// (uidPtr, keyPtr, valuePtr) -> (). Traps if a field already sits at this
// slot (attach is insertion, not upsert — matching the Sui-derived dynamic
// field model this spec draws "dynamic table" from, where attaching over an
// existing entry is a programming error, not silently accepted).
func DynFieldAttach(c *ctx.Context, imports *Imports, sc SlotConsts, keyType, valType irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDynFieldAttach, dynFieldMono(typeTag(keyType), typeTag(valType)),
		[]wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32},
		nil,
		func(funcIdx uint32) {
			slotFn := ensureDynFieldSlot(c, imports, sc, keyType, valType)
			const pUid, pKey, pVal = 0, 1, 2
			const lSlot, lLoaded, lScratch = 3, 4, 5
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pKey}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: slotFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
			)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
			)
			body = append(body, emitIsZero32(lLoaded)...)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpI32Eqz},
				wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpUnreachable},
				wasm.Instruction{Opcode: wasm.OpEnd},
			)
			body = append(body, emitStoreValueWord(c, lSlot, pVal, valType, imports, lScratch)...)
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 3}}, body)
		},
	)
	return idx
}

// DynFieldExists materializes "exists checks the header is nonzero":
// (uidPtr, keyPtr) -> i32 boolean.
func DynFieldExists(c *ctx.Context, imports *Imports, sc SlotConsts, keyType, valType irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDynFieldExists, dynFieldMono(typeTag(keyType), typeTag(valType)),
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			slotFn := ensureDynFieldSlot(c, imports, sc, keyType, valType)
			const pUid, pKey = 0, 1
			const lSlot, lLoaded = 2, 3
			var body []wasm.Instruction
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pKey}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: slotFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
			)
			body = append(body, emitIsZero32(lLoaded)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpI32Eqz})
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 2}}, body)
		},
	)
	return idx
}

// DynFieldRead materializes "read fetches and decodes": (uidPtr, keyPtr) ->
// valuePtr. Traps if absent (storage miss, spec.md §7).
func DynFieldRead(c *ctx.Context, imports *Imports, sc SlotConsts, keyType, valType irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDynFieldRead, dynFieldMono(typeTag(keyType), typeTag(valType)),
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			slotFn := ensureDynFieldSlot(c, imports, sc, keyType, valType)
			const pUid, pKey = 0, 1
			const lSlot, lLoaded, lScratch = 2, 3, 4
			var body []wasm.Instruction
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pKey}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: slotFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
			)
			body = append(body, emitIsZero32(lLoaded)...)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpUnreachable},
				wasm.Instruction{Opcode: wasm.OpEnd},
			)
			body = append(body, emitLoadValueWord(c, lLoaded, valType, lScratch)...)
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 3}}, body)
		},
	)
	return idx
}

// DynFieldRemove materializes "remove zeroes and returns the old value":
// (uidPtr, keyPtr) -> valuePtr. Traps if absent.
func DynFieldRemove(c *ctx.Context, imports *Imports, sc SlotConsts, keyType, valType irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDynFieldRemove, dynFieldMono(typeTag(keyType), typeTag(valType)),
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			slotFn := ensureDynFieldSlot(c, imports, sc, keyType, valType)
			const pUid, pKey = 0, 1
			const lSlot, lLoaded, lResult, lScratch = 2, 3, 4, 5
			var body []wasm.Instruction
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pKey}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: slotFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
			)
			body = append(body, emitIsZero32(lLoaded)...)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpUnreachable},
				wasm.Instruction{Opcode: wasm.OpEnd},
			)
			body = append(body, emitLoadValueWord(c, lLoaded, valType, lScratch)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lResult}})
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sc.zero32)}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lResult}},
			)
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 4}}, body)
		},
	)
	return idx
}

// emitStoreValueWord writes a dynamic field's value into the 32-byte
// storage word at slotLocal, for a scalar or heap-only value type. valLocal
// holds a boxed pointer for stack-representable values (the calling
// convention emitters use throughout this compiler) or a direct pointer for
// heap-only/composite ones. scratch is a caller-reserved i32 local this
// helper may freely overwrite.
func emitStoreValueWord(c *ctx.Context, slotLocal, valLocal uint32, valType irtype.Type, imports *Imports, scratch uint32) []wasm.Instruction {
	buf := c.EmitAllocConst(32)
	var body []wasm.Instruction
	body = append(body, buf...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: scratch}})
	if valType.IsStackRepresentable() {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}},
			wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0}},
			wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 0}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}},
			wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0}},
			wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 8}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}},
			wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0}},
			wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 16}},
		)
		if valType.StackSize() == 8 {
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 24}},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valLocal}},
				wasm.Instruction{Opcode: wasm.OpI64Load, Imm: wasm.MemoryImm{Offset: 0}},
				wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 0}},
			)
		} else {
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 28}},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valLocal}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
			)
		}
	} else {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valLocal}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(valType.HeapSize())}},
			wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
		)
	}
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: slotLocal}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
	)
	return body
}

// emitLoadValueWord reads a dynamic field's value back out of the loaded
// 32-byte storage word at loadedLocal, boxing stack-representable values the
// same way the storage struct codec does. scratch is a caller-reserved i32
// local this helper may freely overwrite.
func emitLoadValueWord(c *ctx.Context, loadedLocal uint32, valType irtype.Type, scratch uint32) []wasm.Instruction {
	var body []wasm.Instruction
	if valType.IsStackRepresentable() {
		size := valType.StackSize()
		body = append(body, c.EmitAllocConst(int32(size))...)
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: scratch}})
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}})
		if size == 8 {
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: loadedLocal}},
				wasm.Instruction{Opcode: wasm.OpI64Load, Imm: wasm.MemoryImm{Offset: 24}},
				wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 0}},
			)
		} else {
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: loadedLocal}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 28}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
			)
		}
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}})
		return body
	}
	size := int32(valType.HeapSize())
	body = append(body, c.EmitAllocConst(size)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: scratch}})
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: loadedLocal}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: size}},
		wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: scratch}},
	)
	return body
}
