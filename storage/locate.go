package storage

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// ensureLocate materializes spec.md §4.5 "locate(uid)": scans namespaces in
// order {owned(tx_origin), shared, frozen} and returns (namespace tag,
// parent slot pointer) for the first one whose parent slot is non-zero,
// trapping (spec.md §7 "storage miss") if none is occupied.
func ensureLocate(c *ctx.Context, imports *Imports, sc SlotConsts) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleLocateStorageData, "",
		[]wasm.ValType{wasm.ValI32},
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		func(funcIdx uint32) {
			parentSlotFn := ensureParentSlot(c, imports, sc)

			const pUid = 0
			const lOriginPtr, lSlot, lLoaded = 1, 2, 3
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.TxOrigin}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOriginPtr}},
			)

			namespaces := []struct {
				tag    Namespace
				nsInstr []wasm.Instruction
			}{
				{NamespaceOwned, []wasm.Instruction{{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOriginPtr}}}},
				{NamespaceShared, []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sc.shared)}}}},
				{NamespaceFrozen, []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sc.frozen)}}}},
			}

			for _, ns := range namespaces {
				body = append(body, ns.nsInstr...)
				body = append(body,
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
					wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: parentSlotFn}},
					wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
					wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
					wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
				)
				body = append(body, emitIsZero32(lLoaded)...)
				body = append(body,
					wasm.Instruction{Opcode: wasm.OpI32Eqz}, // non-zero => true
					wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
					wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(ns.tag)}},
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
					wasm.Instruction{Opcode: wasm.OpReturn},
					wasm.Instruction{Opcode: wasm.OpEnd},
				)
			}

			body = append(body, wasm.Instruction{Opcode: wasm.OpUnreachable})
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 3}}, body)
		},
	)
	return idx
}

// ensureLocateOrCreate materializes the write-side counterpart of locate:
// the same {owned(tx_origin), shared, frozen} scan, but falls back to
// deriving the owned(tx_origin) parent slot instead of trapping when no
// namespace is occupied yet. write_and_encode uses this so a brand-new
// object's first write has somewhere to land (spec.md §4.6: new objects are
// always created owned by their creator), while a write to an
// already-located object still lands in whatever namespace it currently
// occupies (so, e.g., a frozen object's mutators still observe
// NamespaceFrozen and trap via trapIfFrozen).
func ensureLocateOrCreate(c *ctx.Context, imports *Imports, sc SlotConsts) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleLocateStorageData, "create",
		[]wasm.ValType{wasm.ValI32},
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		func(funcIdx uint32) {
			parentSlotFn := ensureParentSlot(c, imports, sc)

			const pUid = 0
			const lOriginPtr, lSlot, lLoaded = 1, 2, 3
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.TxOrigin}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOriginPtr}},
			)

			namespaces := []struct {
				tag     Namespace
				nsInstr []wasm.Instruction
			}{
				{NamespaceOwned, []wasm.Instruction{{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOriginPtr}}}},
				{NamespaceShared, []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sc.shared)}}}},
				{NamespaceFrozen, []wasm.Instruction{{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sc.frozen)}}}},
			}

			for _, ns := range namespaces {
				body = append(body, ns.nsInstr...)
				body = append(body,
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
					wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: parentSlotFn}},
					wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
					wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
					wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLoaded}},
				)
				body = append(body, emitIsZero32(lLoaded)...)
				body = append(body,
					wasm.Instruction{Opcode: wasm.OpI32Eqz}, // non-zero => true
					wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
					wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(ns.tag)}},
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
					wasm.Instruction{Opcode: wasm.OpReturn},
					wasm.Instruction{Opcode: wasm.OpEnd},
				)
			}

			// Nothing occupied: this is a fresh object, created owned by its
			// creator (spec.md §4.6), so land it at owned(tx_origin)'s
			// parent slot.
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOriginPtr}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: parentSlotFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(NamespaceOwned)}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSlot}},
			)
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 3}}, body)
		},
	)
	return idx
}
