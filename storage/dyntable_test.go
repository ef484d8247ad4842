package storage_test

import (
	"context"
	"testing"

	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/internal/wasmtest"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/storage"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// dynTableModule wires the dynamic-table operations over u64 keys and u64
// values, plus the same alloc32/box_u64 helpers objectModule exports.
func dynTableModule(t *testing.T) (*wasmtest.Harness, *wasmtest.Instance) {
	t.Helper()
	c := ctx.New()
	imports := storage.DeclareHostImports(c)
	sc := storage.EnsureSlotConsts(c)

	key, val := irtype.U64(), irtype.U64()
	c.Builder().DeclareExport("new_table", storage.DynTableNew(c, imports, sc))
	c.Builder().DeclareExport("add", storage.DynTableAdd(c, imports, sc, key, val))
	c.Builder().DeclareExport("remove", storage.DynTableRemove(c, imports, sc, key, val))
	c.Builder().DeclareExport("length", storage.DynTableLength(c, imports, sc))
	c.Builder().DeclareExport("contains", storage.DynTableContains(c, imports, sc, key, val))
	c.Builder().DeclareExport("borrow", storage.DynTableBorrow(c, imports, sc, key, val))

	allocIdx := c.Builder().ReserveFunc("alloc32", nil, []wasm.ValType{wasm.ValI32})
	c.Builder().FillFunc(allocIdx, nil, c.EmitAllocConst(32))
	c.Builder().DeclareExport("alloc32", allocIdx)

	boxIdx := c.Builder().ReserveFunc("box_u64", []wasm.ValType{wasm.ValI64}, []wasm.ValType{wasm.ValI32})
	const pVal, lCell = uint32(0), uint32(1)
	boxBody := append(c.EmitAllocConst(8), wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCell}})
	boxBody = append(boxBody,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
		wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
	)
	c.Builder().FillFunc(boxIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, boxBody)
	c.Builder().DeclareExport("box_u64", boxIdx)

	bg := context.Background()
	h := wasmtest.New()
	wasmBytes, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	inst, err := h.Instantiate(bg, wasmBytes)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	t.Cleanup(func() { inst.Close(bg) })
	return h, inst
}

func tableLength(t *testing.T, bg context.Context, inst *wasmtest.Instance, uid uint32) uint32 {
	t.Helper()
	res, err := inst.CallFunction(bg, "length", uint64(uid))
	if err != nil {
		t.Fatalf("length: %v", err)
	}
	return uint32(res[0])
}

func TestDynTableAddRemoveTracksLength(t *testing.T) {
	bg := context.Background()
	_, inst := dynTableModule(t)

	res, err := inst.CallFunction(bg, "new_table")
	if err != nil {
		t.Fatalf("new_table: %v", err)
	}
	uid := uint32(res[0])

	if got := tableLength(t, bg, inst, uid); got != 0 {
		t.Fatalf("fresh table length = %d, want 0", got)
	}

	k1 := boxU64(t, bg, inst, 100)
	if _, err := inst.CallFunction(bg, "add", uint64(uid), uint64(k1), uint64(boxU64(t, bg, inst, 42))); err != nil {
		t.Fatalf("add k1: %v", err)
	}
	k2 := boxU64(t, bg, inst, 200)
	if _, err := inst.CallFunction(bg, "add", uint64(uid), uint64(k2), uint64(boxU64(t, bg, inst, 43))); err != nil {
		t.Fatalf("add k2: %v", err)
	}
	if got := tableLength(t, bg, inst, uid); got != 2 {
		t.Fatalf("table length after two adds = %d, want 2", got)
	}

	cRes, err := inst.CallFunction(bg, "contains", uint64(uid), uint64(k1))
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if cRes[0] != 1 {
		t.Fatalf("contains(k1) = %d, want 1", cRes[0])
	}

	bRes, err := inst.CallFunction(bg, "borrow", uint64(uid), uint64(k1))
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if got := readBoxedU64(t, inst, uint32(bRes[0])); got != 42 {
		t.Fatalf("borrow(k1) = %d, want 42", got)
	}

	rRes, err := inst.CallFunction(bg, "remove", uint64(uid), uint64(k1))
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := readBoxedU64(t, inst, uint32(rRes[0])); got != 42 {
		t.Fatalf("remove(k1) returned %d, want 42", got)
	}
	if got := tableLength(t, bg, inst, uid); got != 1 {
		t.Fatalf("table length after remove = %d, want 1", got)
	}

	cRes, err = inst.CallFunction(bg, "contains", uint64(uid), uint64(k1))
	if err != nil {
		t.Fatalf("contains after remove: %v", err)
	}
	if cRes[0] != 0 {
		t.Fatalf("contains(k1) after remove = %d, want 0", cRes[0])
	}
}

func TestDynTablesAreIndependent(t *testing.T) {
	bg := context.Background()
	_, inst := dynTableModule(t)

	resA, err := inst.CallFunction(bg, "new_table")
	if err != nil {
		t.Fatalf("new_table: %v", err)
	}
	resB, err := inst.CallFunction(bg, "new_table")
	if err != nil {
		t.Fatalf("new_table: %v", err)
	}
	a, b := uint32(resA[0]), uint32(resB[0])

	k := boxU64(t, bg, inst, 7)
	if _, err := inst.CallFunction(bg, "add", uint64(a), uint64(k), uint64(boxU64(t, bg, inst, 1))); err != nil {
		t.Fatalf("add: %v", err)
	}

	if got := tableLength(t, bg, inst, a); got != 1 {
		t.Fatalf("table A length = %d, want 1", got)
	}
	if got := tableLength(t, bg, inst, b); got != 0 {
		t.Fatalf("table B length = %d, want 0", got)
	}

	cRes, err := inst.CallFunction(bg, "contains", uint64(b), uint64(k))
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if cRes[0] != 0 {
		t.Fatalf("table B contains table A's key")
	}

	if _, err := inst.CallFunction(bg, "remove", uint64(b), uint64(k)); err == nil {
		t.Fatalf("remove from the wrong table should trap")
	}
}
