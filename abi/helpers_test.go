package abi_test

import (
	"testing"

	"github.com/rather-labs/move-stylus-wasm/abi"
	"github.com/rather-labs/move-stylus-wasm/irtype"
)

func TestIsDynamicScalarsAreStatic(t *testing.T) {
	reg := irtype.NewRegistry()
	static := []irtype.Type{irtype.Bool(), irtype.U8(), irtype.U32(), irtype.U64(), irtype.U256(), irtype.Address()}
	for _, ty := range static {
		if abi.IsDynamic(ty, reg) {
			t.Errorf("IsDynamic(%s) = true, want false", ty)
		}
	}
}

func TestIsDynamicVectorBytesString(t *testing.T) {
	reg := irtype.NewRegistry()
	dynamic := []irtype.Type{irtype.Vector(irtype.U8()), irtype.Bytes(), irtype.Str()}
	for _, ty := range dynamic {
		if !abi.IsDynamic(ty, reg) {
			t.Errorf("IsDynamic(%s) = false, want true", ty)
		}
	}
}

func TestIsDynamicStructPropagatesFromFields(t *testing.T) {
	reg := irtype.NewRegistry()
	static := irtype.StructDecl{
		Module: "m", Name: "Static",
		Fields: []irtype.Field{{Name: "a", Type: irtype.U32()}},
	}
	if err := reg.RegisterStruct(static); err != nil {
		t.Fatalf("RegisterStruct(static): %v", err)
	}
	if abi.IsDynamic(irtype.Struct(irtype.StructRef{Module: "m", Name: "Static"}), reg) {
		t.Error("IsDynamic(static struct) = true, want false")
	}

	dynamic := irtype.StructDecl{
		Module: "m", Name: "Dynamic",
		Fields: []irtype.Field{{Name: "items", Type: irtype.Vector(irtype.U8())}},
	}
	if err := reg.RegisterStruct(dynamic); err != nil {
		t.Fatalf("RegisterStruct(dynamic): %v", err)
	}
	if !abi.IsDynamic(irtype.Struct(irtype.StructRef{Module: "m", Name: "Dynamic"}), reg) {
		t.Error("IsDynamic(dynamic struct) = false, want true")
	}
}

func TestHeadWordsScalarAndDynamic(t *testing.T) {
	reg := irtype.NewRegistry()
	if got := abi.HeadWords(irtype.U32(), reg); got != 1 {
		t.Errorf("HeadWords(U32) = %d, want 1", got)
	}
	if got := abi.HeadWords(irtype.Vector(irtype.U8()), reg); got != 1 {
		t.Errorf("HeadWords(vector) = %d, want 1 (offset slot)", got)
	}
}

func TestHeadWordsStaticStructSumsFields(t *testing.T) {
	reg := irtype.NewRegistry()
	decl := irtype.StructDecl{
		Module: "m", Name: "Pair",
		Fields: []irtype.Field{{Name: "a", Type: irtype.U32()}, {Name: "b", Type: irtype.U64()}},
	}
	if err := reg.RegisterStruct(decl); err != nil {
		t.Fatalf("RegisterStruct: %v", err)
	}
	got := abi.HeadWords(irtype.Struct(irtype.StructRef{Module: "m", Name: "Pair"}), reg)
	if got != 2 {
		t.Errorf("HeadWords(Pair) = %d, want 2", got)
	}
}

func TestSafeAddU32(t *testing.T) {
	sum, err := abi.SafeAddU32(10, 20, "t")
	if err != nil {
		t.Fatalf("SafeAddU32: %v", err)
	}
	if sum != 30 {
		t.Fatalf("sum = %d, want 30", sum)
	}
	if _, err := abi.SafeAddU32(abi.MaxU32, 1, "t"); err == nil {
		t.Fatal("SafeAddU32: expected an overflow error")
	}
}

func TestSafeMulU32(t *testing.T) {
	product, err := abi.SafeMulU32(4, 8, "t")
	if err != nil {
		t.Fatalf("SafeMulU32: %v", err)
	}
	if product != 32 {
		t.Fatalf("product = %d, want 32", product)
	}
	if _, err := abi.SafeMulU32(abi.MaxU32, 2, "t"); err == nil {
		t.Fatal("SafeMulU32: expected an overflow error")
	}
	zero, err := abi.SafeMulU32(0, 0, "t")
	if err != nil {
		t.Fatalf("SafeMulU32(0,0): %v", err)
	}
	if zero != 0 {
		t.Fatalf("SafeMulU32(0,0) = %d, want 0", zero)
	}
}
