// Object model: spec.md §4.6. UID issuance, transfer/share/freeze/delete,
// and the permission checks each mutator enforces before it runs.
package storage

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// IssueUID materializes spec.md §4.6 "UID issuance reads the counter slot,
// increments it, then derives the new UID as keccak256(tx_origin ||
// counter_u64)": a zero-argument helper returning a fresh UID pointer. Cached
// once per compilation — every `new` of an object type shares it.
func IssueUID(c *ctx.Context, imports *Imports, sc SlotConsts) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleIssueUID, "",
		nil, []wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			keccakFn := ensureKeccak(c, imports)
			// i32 locals first (indices 0-4), then the single i64 local
			// (index 5) — WASM groups locals by declared type in order.
			const lLoaded, lOriginPtr, lHashBuf, lUid, lNewBuf = 0, 1, 2, 3, 4
			const lOldVal = 5
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sc.counter)}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
			)
			body = append(body, emitLoadLE64(lLoaded, 0)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOldVal}})

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.TxOrigin}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOriginPtr}},
			)

			body = append(body, c.EmitAllocConst(64)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHashBuf}})
			body = append(body, emitCopy32(lHashBuf, 0, lOriginPtr)...)
			body = append(body, emitCopyConst32(lHashBuf, 32, sc.zero32)...)
			body = append(body, emitStoreBE64(lHashBuf, 56, lOldVal)...)

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHashBuf}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 64}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: keccakFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lUid}},
			)

			body = append(body, c.EmitAllocConst(32)...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNewBuf}})
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNewBuf}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOldVal}},
				wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 1}},
				wasm.Instruction{Opcode: wasm.OpI64Add},
				wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 0}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sc.counter)}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNewBuf}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
			)

			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lUid}})
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 5}, {ValType: wasm.ValI64, Count: 1}}, body)
		},
	)
	return idx
}

// TransferObject materializes spec.md §4.6 "Transfer moves the object's
// slots from owned(A) to owned(B): read, zero the old slots, write under
// the new parent", enforcing I2/I3 and the ownership check of "Permission
// checks": only the current owner (tx_origin) may transfer, and a frozen or
// shared object must trap.
func TransferObject(c *ctx.Context, imports *Imports, sc SlotConsts, words int) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleTransferObject, monoWords(words),
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		nil,
		func(funcIdx uint32) {
			relocateObject(c, imports, sc, words, funcIdx, true)
		},
	)
	return idx
}

// ShareObject materializes "Share moves to shared" — a relocation from
// owned(tx_origin) into the shared namespace. Only an owned object may be
// shared: an object locate finds in the shared or frozen namespace traps on
// the owned-namespace check (I2 bars a frozen object).
func ShareObject(c *ctx.Context, imports *Imports, sc SlotConsts, words int) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleShareObject, monoWords(words),
		[]wasm.ValType{wasm.ValI32},
		nil,
		func(funcIdx uint32) {
			relocateToFixedNamespace(c, imports, sc, words, funcIdx, sc.shared)
		},
	)
	return idx
}

// FreezeObject materializes "Freeze moves to frozen" (I2: irreversible).
func FreezeObject(c *ctx.Context, imports *Imports, sc SlotConsts, words int) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleFreezeObject, monoWords(words),
		[]wasm.ValType{wasm.ValI32},
		nil,
		func(funcIdx uint32) {
			relocateToFixedNamespace(c, imports, sc, words, funcIdx, sc.frozen)
		},
	)
	return idx
}

// DeleteObject materializes "Delete wipes": zero every word the object
// occupies. A frozen object must trap (I2); a shared object's delete is
// unrestricted (I3 only restricts re-ownership), an owned object's delete
// requires tx_origin == owner, enforced by locate's owned(tx_origin) scan
// naturally finding nothing for a non-owner caller.
func DeleteObject(c *ctx.Context, imports *Imports, sc SlotConsts, words int) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDeleteObject, monoWords(words),
		[]wasm.ValType{wasm.ValI32},
		nil,
		func(funcIdx uint32) {
			locateFn := ensureLocate(c, imports, sc)
			const pUid = 0
			const lNsTag, lSlot = 1, 2
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: locateFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNsTag}},
			)
			body = append(body, trapIfFrozen(lNsTag)...)
			body = append(body, zeroWords(c, imports, sc, lSlot, words)...)
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 2}}, body)
		},
	)
	return idx
}

func monoWords(n int) string {
	return "w" + itoaSmall(n)
}

func itoaSmall(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// trapIfFrozen emits the I2 guard shared by every mutator: unreachable if
// nsTagLocal == NamespaceFrozen.
func trapIfFrozen(nsTagLocal uint32) []wasm.Instruction {
	return []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: nsTagLocal}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(NamespaceFrozen)}},
		{Opcode: wasm.OpI32Eq},
		{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		{Opcode: wasm.OpUnreachable},
		{Opcode: wasm.OpEnd},
	}
}

// zeroWords emits, for each of the object's `words` consecutive storage
// words starting at srcSlotLocal, a storage_store of the shared 32-byte
// zero constant.
func zeroWords(c *ctx.Context, imports *Imports, sc SlotConsts, srcSlotLocal uint32, words int) []wasm.Instruction {
	var body []wasm.Instruction
	for w := 0; w < words; w++ {
		body = append(body, wordSlotPtr(c, srcSlotLocal, w)...)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sc.zero32)}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
		)
	}
	return body
}

// relocateObject implements transfer: locate the object and trap unless it
// sits in owned(tx_origin) (another owner's object is not found by locate,
// which traps; a shared or frozen one fails the owned-namespace check),
// copy each word to the new owner's parent slot, then zero the old ones.
func relocateObject(c *ctx.Context, imports *Imports, sc SlotConsts, words int, funcIdx uint32, requireOwned bool) {
	const pUid, pNewOwner = 0, 1
	const lNsTag, lOldSlot, lNewSlot, lWordPtr, lLoaded = 2, 3, 4, 5, 6
	var body []wasm.Instruction

	locateFn := ensureLocate(c, imports, sc)
	parentSlotFn := ensureParentSlot(c, imports, sc)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: locateFn}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOldSlot}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNsTag}},
	)
	// transfer is restricted to an owned object: anything else (shared,
	// frozen) traps, matching I2/I3.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNsTag}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(NamespaceOwned)}},
		wasm.Instruction{Opcode: wasm.OpI32Ne},
		wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpUnreachable},
		wasm.Instruction{Opcode: wasm.OpEnd},
	)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pNewOwner}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: parentSlotFn}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNewSlot}},
	)

	for w := 0; w < words; w++ {
		body = append(body, wordSlotPtr(c, lOldSlot, w)...)
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lWordPtr}})
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lWordPtr}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
		)
		body = append(body, wordSlotPtr(c, lNewSlot, w)...)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
		)
	}
	body = append(body, zeroWords(c, imports, sc, lOldSlot, words)...)
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 5}}, body)
}

// relocateToFixedNamespace implements share/freeze: move from
// owned(tx_origin) to a fixed-sentinel namespace (shared or frozen). A call
// on an object that is not presently owned by tx_origin traps: locate does
// not find another owner's object, and a shared or frozen one fails the
// owned-namespace check.
func relocateToFixedNamespace(c *ctx.Context, imports *Imports, sc SlotConsts, words int, funcIdx uint32, destSentinelConst uint32) {
	const pUid = 0
	const lNsTag, lOldSlot, lNewSlot, lWordPtr, lLoaded = 1, 2, 3, 4, 5
	var body []wasm.Instruction

	locateFn := ensureLocate(c, imports, sc)
	parentSlotFn := ensureParentSlot(c, imports, sc)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: locateFn}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOldSlot}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNsTag}},
	)
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNsTag}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(NamespaceOwned)}},
		wasm.Instruction{Opcode: wasm.OpI32Ne},
		wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpUnreachable},
		wasm.Instruction{Opcode: wasm.OpEnd},
	)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(destSentinelConst)}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: parentSlotFn}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNewSlot}},
	)

	for w := 0; w < words; w++ {
		body = append(body, wordSlotPtr(c, lOldSlot, w)...)
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lWordPtr}})
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lWordPtr}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
		)
		body = append(body, wordSlotPtr(c, lNewSlot, w)...)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
		)
	}
	body = append(body, zeroWords(c, imports, sc, lOldSlot, words)...)
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 5}}, body)
}

// emitStoreBE64 stores the 8-byte big-endian encoding of the i64 in valLocal
// at dstLocal+dstOff (byte 0 = most significant), the representation
// ensureParentSlot's keccak input expects for a hashed integer (spec.md
// §6.3's pad32 convention, matching the sentinel constants in slot.go).
func emitStoreBE64(dstLocal uint32, dstOff int32, valLocal uint32) []wasm.Instruction {
	var out []wasm.Instruction
	for i := 0; i < 8; i++ {
		shift := int64(8 * (7 - i))
		out = append(out,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: dstLocal}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valLocal}},
		)
		if shift > 0 {
			out = append(out,
				wasm.Instruction{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: shift}},
				wasm.Instruction{Opcode: wasm.OpI64ShrU},
			)
		}
		out = append(out,
			wasm.Instruction{Opcode: wasm.OpI32WrapI64},
			wasm.Instruction{Opcode: wasm.OpI32Store8, Imm: wasm.MemoryImm{Offset: uint64(int64(dstOff) + int64(i))}},
		)
	}
	return out
}
