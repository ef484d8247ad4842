package pack_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/rather-labs/move-stylus-wasm/abi/pack"
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/internal/wasmtest"
	"github.com/rather-labs/move-stylus-wasm/irtype"
)

// word32 renders n as a 32-byte right-aligned (big-endian) ABI head word.
func word32(n uint32) []byte {
	w := make([]byte, 32)
	w[28] = byte(n >> 24)
	w[29] = byte(n >> 16)
	w[30] = byte(n >> 8)
	w[31] = byte(n)
	return w
}

// buildPackModule exports ty's pack function under "pack" so a test can
// call it directly (value, headPtr, tailPtr, base) -> nextTailPtr without
// going through the full entrypoint dispatch.
func buildPackModule(t *testing.T, ty irtype.Type) *wasmtest.Instance {
	t.Helper()
	c := ctx.New()
	idx, err := pack.Pack(c, ty)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	c.Builder().DeclareExport("pack", idx)
	wasmBytes, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	bg := context.Background()
	h := wasmtest.New()
	inst, err := h.Instantiate(bg, wasmBytes)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	t.Cleanup(func() { inst.Close(bg) })
	return inst
}

func readBytes(t *testing.T, inst *wasmtest.Instance, addr uint32, n uint32) []byte {
	t.Helper()
	data, ok := inst.Memory().Read(addr, n)
	if !ok {
		t.Fatalf("read %d bytes at %d: out of bounds", n, addr)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}

// TestPackU32 exercises spec.md §4.3's scalar rule: the value is written
// big-endian at offset 28 of a zeroed 32-byte head slot, the tail untouched.
func TestPackU32(t *testing.T) {
	bg := context.Background()
	inst := buildPackModule(t, irtype.U32())

	const head, tail = 2048, 3072
	res, err := inst.CallFunction(bg, "pack", 46, head, tail, 0)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if got := uint32(res[0]); got != tail {
		t.Fatalf("nextTail = %d, want %d (unchanged)", got, tail)
	}
	got := readBytes(t, inst, head, 32)
	want := word32(46)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("head byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

// TestPackU64 exercises the U64 rule: big-endian at offset 24, i64 value.
func TestPackU64(t *testing.T) {
	bg := context.Background()
	inst := buildPackModule(t, irtype.U64())

	const head, tail = 2048, 3072
	res, err := inst.CallFunction(bg, "pack", 12345, head, tail, 0)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if got := uint32(res[0]); got != tail {
		t.Fatalf("nextTail = %d, want %d (unchanged)", got, tail)
	}
	got := readBytes(t, inst, head, 32)
	for i := 0; i < 24; i++ {
		if got[i] != 0 {
			t.Fatalf("head byte %d = %#x, want 0 (padding)", i, got[i])
		}
	}
	want := []byte{0, 0, 0, 0, 0, 0, 0x30, 0x39}
	for i, w := range want {
		if got[24+i] != w {
			t.Fatalf("head byte %d = %#x, want %#x", 24+i, got[24+i], w)
		}
	}
}

// TestPackU128SwapsEndianness exercises spec.md §4.3's U128 rule, the
// mirror of abi/unpack's: the in-memory little-endian value is reversed
// back to the ABI's big-endian representation on the way out.
func TestPackU128SwapsEndianness(t *testing.T) {
	bg := context.Background()
	inst := buildPackModule(t, irtype.U128())

	const valPtr, head, tail = 1024, 2048, 3072
	little := make([]byte, 16)
	for i := 0; i < 16; i++ {
		little[i] = byte(0x01 + i)
	}
	if !inst.Memory().Write(valPtr, little) {
		t.Fatalf("write source bytes: failed")
	}

	res, err := inst.CallFunction(bg, "pack", uint64(valPtr), head, tail, 0)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if got := uint32(res[0]); got != tail {
		t.Fatalf("nextTail = %d, want %d (unchanged)", got, tail)
	}
	got := readBytes(t, inst, head, 32)
	for i := 0; i < 16; i++ {
		if got[i] != 0 {
			t.Fatalf("head byte %d = %#x, want 0 (padding)", i, got[i])
		}
	}
	for i := 0; i < 16; i++ {
		want := byte(0x10 - i)
		if got[16+i] != want {
			t.Fatalf("head byte %d = %#x, want %#x", 16+i, got[16+i], want)
		}
	}
}

// TestPackAddressCopiesVerbatim exercises the Address rule: no swap.
func TestPackAddressCopiesVerbatim(t *testing.T) {
	bg := context.Background()
	inst := buildPackModule(t, irtype.Address())

	const valPtr, head, tail = 1024, 2048, 3072
	slot := make([]byte, 32)
	for i := 12; i < 32; i++ {
		slot[i] = byte(i)
	}
	if !inst.Memory().Write(valPtr, slot) {
		t.Fatalf("write source bytes: failed")
	}

	res, err := inst.CallFunction(bg, "pack", uint64(valPtr), head, tail, 0)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if got := uint32(res[0]); got != tail {
		t.Fatalf("nextTail = %d, want %d (unchanged)", got, tail)
	}
	got := readBytes(t, inst, head, 32)
	for i := range slot {
		if got[i] != slot[i] {
			t.Fatalf("head byte %d = %#x, want %#x", i, got[i], slot[i])
		}
	}
}

// writeU32VectorHeader lays out a vectorgen-shaped {len,cap}+elements
// header at addr, with U32-sized native little-endian elements, mirroring
// spec.md §3.2.
func writeU32VectorHeader(t *testing.T, inst *wasmtest.Instance, addr uint32, elems []uint32) {
	t.Helper()
	buf := make([]byte, 8+4*len(elems))
	n := uint32(len(elems))
	buf[0], buf[1], buf[2], buf[3] = byte(n), byte(n>>8), byte(n>>16), byte(n>>24)
	buf[4], buf[5], buf[6], buf[7] = byte(n), byte(n>>8), byte(n>>16), byte(n>>24)
	for i, e := range elems {
		off := 8 + i*4
		buf[off] = byte(e)
		buf[off+1] = byte(e >> 8)
		buf[off+2] = byte(e >> 16)
		buf[off+3] = byte(e >> 24)
	}
	if !inst.Memory().Write(addr, buf) {
		t.Fatalf("write vector header: failed")
	}
}

// TestPackVectorU32 exercises spec.md §8 S2-style encoding: the outer head
// slot holds the offset, the tail holds the length word followed by one
// head word per element (U32 has no dynamic tail of its own).
func TestPackVectorU32(t *testing.T) {
	bg := context.Background()
	inst := buildPackModule(t, irtype.Vector(irtype.U32()))

	const vecPtr, head, tail, base = 1024, 2048, 3072, 0
	writeU32VectorHeader(t, inst, vecPtr, []uint32{2, 3, 4})

	res, err := inst.CallFunction(bg, "pack", uint64(vecPtr), head, tail, base)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	wantNextTail := uint32(tail) + 32 + 3*32
	if got := uint32(res[0]); got != wantNextTail {
		t.Fatalf("nextTail = %d, want %d", got, wantNextTail)
	}

	headBytes := readBytes(t, inst, head, 32)
	wantOffset := word32(tail - base)
	for i := range wantOffset {
		if headBytes[i] != wantOffset[i] {
			t.Fatalf("offset word byte %d = %#x, want %#x", i, headBytes[i], wantOffset[i])
		}
	}

	tailBytes := readBytes(t, inst, tail, 32+3*32)
	wantLen := word32(3)
	for i := range wantLen {
		if tailBytes[i] != wantLen[i] {
			t.Fatalf("length word byte %d = %#x, want %#x", i, tailBytes[i], wantLen[i])
		}
	}
	wantElems := []uint32{2, 3, 4}
	for i, e := range wantElems {
		elemWord := word32(e)
		off := 32 + i*32
		for j := range elemWord {
			if tailBytes[off+j] != elemWord[j] {
				t.Fatalf("elem %d byte %d = %#x, want %#x", i, j, tailBytes[off+j], elemWord[j])
			}
		}
	}
}

// TestPackSimpleEnum exercises spec.md §4.3's Enum rule: a simple enum
// encodes as a bare uint8-shaped discriminant, just like a scalar.
func TestPackSimpleEnum(t *testing.T) {
	c := ctx.New()
	decl := irtype.EnumDecl{
		Module: "m", Name: "Color",
		Variants: []irtype.Variant{{Name: "Red"}, {Name: "Green"}, {Name: "Blue"}},
	}
	if err := c.Registry().RegisterEnum(decl); err != nil {
		t.Fatalf("RegisterEnum: %v", err)
	}
	enumTy := irtype.Enum(irtype.StructRef{Module: "m", Name: "Color"})
	idx, err := pack.Pack(c, enumTy)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	c.Builder().DeclareExport("pack", idx)
	wasmBytes, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	bg := context.Background()
	h := wasmtest.New()
	inst, err := h.Instantiate(bg, wasmBytes)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(bg)

	const head, tail = 2048, 3072
	res, err := inst.CallFunction(bg, "pack", 2, head, tail, 0)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if got := uint32(res[0]); got != tail {
		t.Fatalf("nextTail = %d, want %d (unchanged)", got, tail)
	}
	got := readBytes(t, inst, head, 32)
	want := word32(2)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("head byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

// TestPackNonSimpleEnumFails exercises §4.3's rule that only simple enums
// may appear at an ABI boundary.
func TestPackNonSimpleEnumFails(t *testing.T) {
	c := ctx.New()
	decl := irtype.EnumDecl{
		Module: "m", Name: "Maybe",
		Variants: []irtype.Variant{
			{Name: "None"},
			{Name: "Some", Fields: []irtype.Field{{Name: "v", Type: irtype.U32()}}},
		},
	}
	if err := c.Registry().RegisterEnum(decl); err != nil {
		t.Fatalf("RegisterEnum: %v", err)
	}
	enumTy := irtype.Enum(irtype.StructRef{Module: "m", Name: "Maybe"})
	if _, err := pack.Pack(c, enumTy); err == nil {
		t.Fatal("Pack(non-simple enum): expected an error, got nil")
	}
}

// TestPackStaticStruct exercises spec.md §4.3's Struct rule for an
// all-scalar (non-dynamic) tuple: each field packs inline into consecutive
// head words, reading its value out of the struct's boxed heap block.
func TestPackStaticStruct(t *testing.T) {
	c := ctx.New()
	decl := irtype.StructDecl{
		Module: "m", Name: "Pair",
		Fields: []irtype.Field{{Name: "a", Type: irtype.U32()}, {Name: "b", Type: irtype.Bool()}},
	}
	if err := c.Registry().RegisterStruct(decl); err != nil {
		t.Fatalf("RegisterStruct: %v", err)
	}
	structTy := irtype.Struct(irtype.StructRef{Module: "m", Name: "Pair"})
	idx, err := pack.Pack(c, structTy)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	c.Builder().DeclareExport("pack", idx)
	wasmBytes, err := c.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	bg := context.Background()
	h := wasmtest.New()
	inst, err := h.Instantiate(bg, wasmBytes)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	defer inst.Close(bg)

	// Build the boxed heap block abi/unpack.synthStruct would have
	// produced: two 4-byte field slots, each pointing at a fresh cell.
	const heap, cellA, cellB, head, tail = 1024, 1040, 1048, 2048, 3072
	if !inst.Memory().Write(cellA, []byte{46, 0, 0, 0}) {
		t.Fatalf("write cell a: failed")
	}
	if !inst.Memory().Write(cellB, []byte{1, 0, 0, 0}) {
		t.Fatalf("write cell b: failed")
	}
	heapBuf := make([]byte, 8)
	binary.LittleEndian.PutUint32(heapBuf[0:4], uint32(cellA))
	binary.LittleEndian.PutUint32(heapBuf[4:8], uint32(cellB))
	if !inst.Memory().Write(heap, heapBuf) {
		t.Fatalf("write heap block: failed")
	}

	if _, err := inst.CallFunction(bg, "pack", uint64(heap), head, tail, 0); err != nil {
		t.Fatalf("pack: %v", err)
	}

	fieldA := readBytes(t, inst, head, 32)
	wantA := word32(46)
	for i := range wantA {
		if fieldA[i] != wantA[i] {
			t.Fatalf("field a byte %d = %#x, want %#x", i, fieldA[i], wantA[i])
		}
	}
	fieldB := readBytes(t, inst, head+32, 32)
	wantB := word32(1)
	for i := range wantB {
		if fieldB[i] != wantB[i] {
			t.Fatalf("field b byte %d = %#x, want %#x", i, fieldB[i], wantB[i])
		}
	}
}

// TestPackRefUnboxesStackTypedReferent exercises the Ref/MutRef rule: a
// reference to a stack-typed cell is loaded and delegated to the
// referent's own pack function.
func TestPackRefUnboxesStackTypedReferent(t *testing.T) {
	bg := context.Background()
	inst := buildPackModule(t, irtype.Ref(irtype.U32()))

	const cell, head, tail = 1024, 2048, 3072
	if !inst.Memory().Write(cell, []byte{9, 0, 0, 0}) {
		t.Fatalf("write cell: failed")
	}

	res, err := inst.CallFunction(bg, "pack", uint64(cell), head, tail, 0)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	if got := uint32(res[0]); got != tail {
		t.Fatalf("nextTail = %d, want %d (unchanged)", got, tail)
	}
	got := readBytes(t, inst, head, 32)
	want := word32(9)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("head byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}

// TestPackRefInsideRefFails exercises the "ref inside ref" error shared
// with abi/unpack.
func TestPackRefInsideRefFails(t *testing.T) {
	c := ctx.New()
	if _, err := pack.Pack(c, irtype.Ref(irtype.Ref(irtype.U32()))); err == nil {
		t.Fatal("Pack(ref inside ref): expected an error, got nil")
	}
}

// TestPackGenericTypeParameterFails exercises spec.md §3.1's "never valid
// at emission time" rule for TypeParameter.
func TestPackGenericTypeParameterFails(t *testing.T) {
	c := ctx.New()
	if _, err := pack.Pack(c, irtype.TypeParameter(0)); err == nil {
		t.Fatal("Pack(TypeParameter): expected an error, got nil")
	}
}
