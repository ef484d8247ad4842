package irtype_test

import (
	"testing"

	"github.com/rather-labs/move-stylus-wasm/irtype"
)

func TestRegisterStructAndLookup(t *testing.T) {
	r := irtype.NewRegistry()
	decl := irtype.StructDecl{
		Module: "m",
		Name:   "Point",
		Fields: []irtype.Field{
			{Name: "x", Type: irtype.U32()},
			{Name: "y", Type: irtype.U32()},
		},
	}
	if err := r.RegisterStruct(decl); err != nil {
		t.Fatalf("RegisterStruct: %v", err)
	}
	got, ok := r.LookupStruct("m", "Point")
	if !ok {
		t.Fatal("LookupStruct: not found")
	}
	if len(got.Fields) != 2 {
		t.Fatalf("Fields = %d, want 2", len(got.Fields))
	}
}

func TestRegisterStructDirectCycleRejected(t *testing.T) {
	r := irtype.NewRegistry()
	self := irtype.StructDecl{
		Module: "m",
		Name:   "Node",
		Fields: []irtype.Field{
			{Name: "next", Type: irtype.Struct(irtype.StructRef{Module: "m", Name: "Node"})},
		},
	}
	if err := r.RegisterStruct(self); err == nil {
		t.Fatal("RegisterStruct: expected a cycle error, got nil")
	}
	if _, ok := r.LookupStruct("m", "Node"); ok {
		t.Fatal("LookupStruct: cyclic declaration should not remain registered")
	}
}

func TestRegisterStructIndirectCycleRejected(t *testing.T) {
	r := irtype.NewRegistry()
	a := irtype.StructDecl{
		Module: "m", Name: "A",
		Fields: []irtype.Field{{Name: "b", Type: irtype.Struct(irtype.StructRef{Module: "m", Name: "B"})}},
	}
	b := irtype.StructDecl{
		Module: "m", Name: "B",
		Fields: []irtype.Field{{Name: "a", Type: irtype.Struct(irtype.StructRef{Module: "m", Name: "A"})}},
	}
	if err := r.RegisterStruct(a); err != nil {
		t.Fatalf("RegisterStruct(A): %v", err)
	}
	if err := r.RegisterStruct(b); err == nil {
		t.Fatal("RegisterStruct(B): expected a cycle error, got nil")
	}
}

func TestRegisterStructVectorBoundaryBreaksCycle(t *testing.T) {
	r := irtype.NewRegistry()
	decl := irtype.StructDecl{
		Module: "m",
		Name:   "Tree",
		Fields: []irtype.Field{
			{Name: "children", Type: irtype.Vector(irtype.Struct(irtype.StructRef{Module: "m", Name: "Tree"}))},
		},
	}
	if err := r.RegisterStruct(decl); err != nil {
		t.Fatalf("RegisterStruct: unexpected error for vector-indirected self-reference: %v", err)
	}
}

func TestEnumIsSimple(t *testing.T) {
	simple := irtype.EnumDecl{
		Module: "m",
		Name:   "Color",
		Variants: []irtype.Variant{
			{Name: "Red"},
			{Name: "Green"},
			{Name: "Blue"},
		},
	}
	if !simple.IsSimple() {
		t.Error("IsSimple() = false, want true for a payload-free enum")
	}

	withPayload := irtype.EnumDecl{
		Module: "m",
		Name:   "Shape",
		Variants: []irtype.Variant{
			{Name: "Circle", Fields: []irtype.Field{{Name: "radius", Type: irtype.U32()}}},
			{Name: "Point"},
		},
	}
	if withPayload.IsSimple() {
		t.Error("IsSimple() = true, want false when any variant carries a payload")
	}
}

func TestRegisterEnumAndLookup(t *testing.T) {
	r := irtype.NewRegistry()
	decl := irtype.EnumDecl{
		Module: "m",
		Name:   "Status",
		Variants: []irtype.Variant{
			{Name: "Active"},
			{Name: "Inactive"},
		},
	}
	if err := r.RegisterEnum(decl); err != nil {
		t.Fatalf("RegisterEnum: %v", err)
	}
	got, ok := r.LookupEnum("m", "Status")
	if !ok {
		t.Fatal("LookupEnum: not found")
	}
	if len(got.Variants) != 2 {
		t.Fatalf("Variants = %d, want 2", len(got.Variants))
	}
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	r := irtype.NewRegistry()
	if _, ok := r.LookupStruct("m", "Nope"); ok {
		t.Error("LookupStruct: found a declaration that was never registered")
	}
	if _, ok := r.LookupEnum("m", "Nope"); ok {
		t.Error("LookupEnum: found a declaration that was never registered")
	}
}
