package wasm_test

import (
	"bytes"
	"testing"

	"github.com/rather-labs/move-stylus-wasm/wasm"
)

func TestEncodeEmptyModule(t *testing.T) {
	m := &wasm.Module{}
	data := m.Encode()

	if len(data) != 8 {
		t.Errorf("expected 8 bytes for empty module, got %d", len(data))
	}
	if !bytes.Equal(data[:4], []byte{0x00, 0x61, 0x73, 0x6D}) {
		t.Error("invalid magic number")
	}
	if !bytes.Equal(data[4:8], []byte{0x01, 0x00, 0x00, 0x00}) {
		t.Error("invalid version")
	}
}

// sections returns the encoded bytes after the 8-byte header.
func sections(t *testing.T, m *wasm.Module) []byte {
	t.Helper()
	data := m.Encode()
	if len(data) < 8 {
		t.Fatalf("encoded module of %d bytes has no header", len(data))
	}
	return data[8:]
}

func TestEncodeTypeSection(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI64}},
		},
	}
	want := []byte{
		wasm.SectionType, 0x06,
		0x01,             // one type
		0x60, 0x01, 0x7F, // func, params [i32]
		0x01, 0x7E, // results [i64]
	}
	if got := sections(t, m); !bytes.Equal(got, want) {
		t.Errorf("type section: got % x, want % x", got, want)
	}
}

func TestEncodeImportSection(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI32}}},
		Imports: []wasm.Import{
			{Module: "env", Name: "storage_load", Desc: wasm.ImportDesc{Kind: wasm.KindFunc, TypeIdx: 0}},
		},
	}
	want := []byte{
		wasm.SectionImport, 0x14,
		0x01,
		0x03, 'e', 'n', 'v',
		0x0C, 's', 't', 'o', 'r', 'a', 'g', 'e', '_', 'l', 'o', 'a', 'd',
		wasm.KindFunc, 0x00,
	}
	got := sections(t, m)
	// skip the leading type section; the import section follows it.
	typeLen := 2 + int(got[1])
	if got = got[typeLen:]; !bytes.Equal(got, want) {
		t.Errorf("import section: got % x, want % x", got, want)
	}
}

func TestEncodeFunctionAndCodeSections(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{{}},
		Funcs: []uint32{0},
		Code: []wasm.FuncBody{
			{
				Locals: []wasm.LocalEntry{{Count: 2, ValType: wasm.ValI32}},
				Code:   []byte{wasm.OpI32Const, 0x2A, wasm.OpEnd},
			},
		},
	}
	want := []byte{
		wasm.SectionType, 0x04, 0x01, 0x60, 0x00, 0x00,
		wasm.SectionFunction, 0x02, 0x01, 0x00,
		wasm.SectionCode, 0x08,
		0x01,             // one body
		0x06,             // body size
		0x01, 0x02, 0x7F, // one local group: 2 × i32
		wasm.OpI32Const, 0x2A, wasm.OpEnd,
	}
	if got := sections(t, m); !bytes.Equal(got, want) {
		t.Errorf("function/code sections: got % x, want % x", got, want)
	}
}

func TestEncodeMemorySection(t *testing.T) {
	m := &wasm.Module{
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 16}}},
	}
	want := []byte{
		wasm.SectionMemory, 0x03,
		0x01,       // one memory
		0x00, 0x10, // no max, min 16 pages
	}
	if got := sections(t, m); !bytes.Equal(got, want) {
		t.Errorf("memory section: got % x, want % x", got, want)
	}
}

func TestEncodeGlobalSection(t *testing.T) {
	m := &wasm.Module{
		Globals: []wasm.Global{
			{
				Type: wasm.GlobalType{ValType: wasm.ValI32, Mutable: true},
				Init: []byte{wasm.OpI32Const, 0x08, wasm.OpEnd},
			},
		},
	}
	want := []byte{
		wasm.SectionGlobal, 0x06,
		0x01,
		0x7F, 0x01, // i32, mutable
		wasm.OpI32Const, 0x08, wasm.OpEnd,
	}
	if got := sections(t, m); !bytes.Equal(got, want) {
		t.Errorf("global section: got % x, want % x", got, want)
	}
}

func TestEncodeExportSection(t *testing.T) {
	m := &wasm.Module{
		Types:   []wasm.FuncType{{}},
		Funcs:   []uint32{0},
		Code:    []wasm.FuncBody{{Code: []byte{wasm.OpEnd}}},
		Exports: []wasm.Export{{Name: "entrypoint", Kind: wasm.KindFunc, Idx: 0}},
	}
	want := []byte{
		wasm.SectionExport, 0x0E,
		0x01,
		0x0A, 'e', 'n', 't', 'r', 'y', 'p', 'o', 'i', 'n', 't',
		wasm.KindFunc, 0x00,
	}
	got := sections(t, m)
	// walk section headers until the export section.
	for len(got) > 0 && got[0] != wasm.SectionExport {
		got = got[2+int(got[1]):]
	}
	if len(got) < len(want) || !bytes.Equal(got[:len(want)], want) {
		t.Errorf("export section: got % x, want % x", got, want)
	}
}

func TestEncodeDataSection(t *testing.T) {
	m := &wasm.Module{
		Memories: []wasm.MemoryType{{Limits: wasm.Limits{Min: 1}}},
		Data: []wasm.DataSegment{
			{
				Flags:  0,
				Offset: []byte{wasm.OpI32Const, 0x08, wasm.OpEnd},
				Init:   []byte{0xDE, 0xAD},
			},
		},
	}
	want := []byte{
		wasm.SectionData, 0x08,
		0x01,
		0x00, // active, memory 0
		wasm.OpI32Const, 0x08, wasm.OpEnd,
		0x02, 0xDE, 0xAD,
	}
	got := sections(t, m)
	for len(got) > 0 && got[0] != wasm.SectionData {
		got = got[2+int(got[1]):]
	}
	if !bytes.Equal(got, want) {
		t.Errorf("data section: got % x, want % x", got, want)
	}
}
