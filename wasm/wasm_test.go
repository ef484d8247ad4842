package wasm_test

import (
	"bytes"
	"testing"

	"github.com/rather-labs/move-stylus-wasm/wasm"
)

func TestInstructionRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		instrs []wasm.Instruction
	}{
		{
			"simple",
			[]wasm.Instruction{
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 42}},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"locals",
			[]wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
				{Opcode: wasm.OpI32Add},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"block",
			[]wasm.Instruction{
				{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: -1}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
				{Opcode: wasm.OpEnd},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"if_else",
			[]wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
				{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: -64}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
				{Opcode: wasm.OpDrop},
				{Opcode: wasm.OpElse},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 2}},
				{Opcode: wasm.OpDrop},
				{Opcode: wasm.OpEnd},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"loop",
			[]wasm.Instruction{
				{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: -64}},
				{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},
				{Opcode: wasm.OpEnd},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"call",
			[]wasm.Instruction{
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
				{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: 0}},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"return_call",
			[]wasm.Instruction{
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
				{Opcode: wasm.OpReturnCall, Imm: wasm.CallImm{FuncIdx: 5}},
			},
		},
		{
			"return_call_indirect",
			[]wasm.Instruction{
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
				{Opcode: wasm.OpReturnCallIndirect, Imm: wasm.CallIndirectImm{TypeIdx: 2, TableIdx: 1}},
			},
		},
		{
			"memory",
			[]wasm.Instruction{
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
				{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Align: 2, Offset: 0}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 42}},
				{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Align: 2, Offset: 0}},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"globals",
			[]wasm.Instruction{
				{Opcode: wasm.OpGlobalGet, Imm: wasm.GlobalImm{GlobalIdx: 0}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
				{Opcode: wasm.OpI32Add},
				{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: 0}},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"br_table",
			[]wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
				{Opcode: wasm.OpBrTable, Imm: wasm.BrTableImm{Labels: []uint32{0, 1, 2}, Default: 3}},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"floats",
			[]wasm.Instruction{
				{Opcode: wasm.OpF32Const, Imm: wasm.F32Imm{Value: 3.14}},
				{Opcode: wasm.OpF64Const, Imm: wasm.F64Imm{Value: 2.718281828}},
				{Opcode: wasm.OpDrop},
				{Opcode: wasm.OpDrop},
				{Opcode: wasm.OpEnd},
			},
		},
		{
			"i64",
			[]wasm.Instruction{
				{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0x7FFFFFFFFFFFFFFF}},
				{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: -1}},
				{Opcode: wasm.OpI64Add},
				{Opcode: wasm.OpDrop},
				{Opcode: wasm.OpEnd},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstructions(tt.instrs)
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("DecodeInstructions error: %v", err)
			}

			if len(decoded) != len(tt.instrs) {
				t.Fatalf("instruction count: got %d, want %d", len(decoded), len(tt.instrs))
			}

			for i, want := range tt.instrs {
				got := decoded[i]
				if got.Opcode != want.Opcode {
					t.Errorf("instr %d: opcode got 0x%02x, want 0x%02x", i, got.Opcode, want.Opcode)
				}
			}
		})
	}
}

func TestTypedSelectInstruction(t *testing.T) {
	instrs := []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 2}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
		{Opcode: wasm.OpSelectType, Imm: wasm.SelectTypeImm{Types: []wasm.ValType{wasm.ValI32}}},
		{Opcode: wasm.OpEnd},
	}

	encoded := wasm.EncodeInstructions(instrs)
	decoded, err := wasm.DecodeInstructions(encoded)
	if err != nil {
		t.Fatalf("DecodeInstructions error: %v", err)
	}

	if len(decoded) != len(instrs) {
		t.Fatalf("instruction count: got %d, want %d", len(decoded), len(instrs))
	}

	selectInstr := decoded[3]
	if selectInstr.Opcode != wasm.OpSelectType {
		t.Errorf("expected OpSelectType, got 0x%02x", selectInstr.Opcode)
	}

	imm, ok := selectInstr.Imm.(wasm.SelectTypeImm)
	if !ok {
		t.Fatalf("expected SelectTypeImm, got %T", selectInstr.Imm)
	}

	if len(imm.Types) != 1 || imm.Types[0] != wasm.ValI32 {
		t.Errorf("expected [i32], got %v", imm.Types)
	}
}

func TestGCInstructionsRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"struct.new", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCStructNew, TypeIdx: 5}}},
		{"struct.new_default", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCStructNewDefault, TypeIdx: 10}}},
		{"struct.get", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCStructGet, TypeIdx: 3, FieldIdx: 2}}},
		{"struct.get_s", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCStructGetS, TypeIdx: 1, FieldIdx: 0}}},
		{"struct.get_u", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCStructGetU, TypeIdx: 7, FieldIdx: 4}}},
		{"struct.set", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCStructSet, TypeIdx: 2, FieldIdx: 1}}},
		{"array.new", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayNew, TypeIdx: 8}}},
		{"array.new_default", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayNewDefault, TypeIdx: 9}}},
		{"array.new_fixed", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayNewFixed, TypeIdx: 4, Size: 100}}},
		{"array.new_data", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayNewData, TypeIdx: 6, DataIdx: 3}}},
		{"array.new_elem", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayNewElem, TypeIdx: 5, ElemIdx: 2}}},
		{"array.get", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayGet, TypeIdx: 11}}},
		{"array.get_s", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayGetS, TypeIdx: 12}}},
		{"array.get_u", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayGetU, TypeIdx: 13}}},
		{"array.set", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArraySet, TypeIdx: 14}}},
		{"array.fill", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayFill, TypeIdx: 15}}},
		{"array.init_data", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayInitData, TypeIdx: 6, DataIdx: 4}}},
		{"array.init_elem", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayInitElem, TypeIdx: 7, ElemIdx: 5}}},
		{"array.len", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayLen}}},
		{"array.copy", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCArrayCopy, TypeIdx: 16, TypeIdx2: 17}}},
		{"ref.test", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCRefTest, HeapType: 42}}},
		{"ref.test_null", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCRefTestNull, HeapType: 43}}},
		{"ref.cast", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCRefCast, HeapType: 20}}},
		{"ref.cast_null", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCRefCastNull, HeapType: 21}}},
		{"br_on_cast", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCBrOnCast, CastFlags: wasm.CastFlagsBothNull, LabelIdx: 5, HeapType: wasm.HeapTypeAny, HeapType2: wasm.HeapTypeStruct}}},
		{"br_on_cast_fail", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCBrOnCastFail, CastFlags: wasm.CastFlagsSecondNull, LabelIdx: 3, HeapType: wasm.HeapTypeFunc, HeapType2: wasm.HeapTypeExtern}}},
		{"any.convert_extern", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCAnyConvertExtern}}},
		{"extern.convert_any", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCExternConvertAny}}},
		{"ref.i31", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCRefI31}}},
		{"i31.get_s", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCI31GetS}}},
		{"i31.get_u", wasm.Instruction{Opcode: wasm.OpPrefixGC, Imm: wasm.GCImm{SubOpcode: wasm.GCI31GetU}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstructions([]wasm.Instruction{tt.instr})
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("DecodeInstructions error: %v", err)
			}
			if len(decoded) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(decoded))
			}
			if decoded[0].Opcode != wasm.OpPrefixGC {
				t.Errorf("opcode: got 0x%02x, want 0x%02x", decoded[0].Opcode, wasm.OpPrefixGC)
			}
			reencoded := wasm.EncodeInstructions(decoded)
			if !bytes.Equal(encoded, reencoded) {
				t.Errorf("re-encoded bytes differ")
			}
		})
	}
}

func TestGCInstructionsUnknownSubOpcode(t *testing.T) {
	badCode := []byte{wasm.OpPrefixGC, 0xFF, 0x01}
	_, err := wasm.DecodeInstructions(badCode)
	if err == nil {
		t.Error("expected error for unknown sub-opcode")
	}
}

func TestGCInstructionsTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"struct.new truncated", []byte{wasm.OpPrefixGC, byte(wasm.GCStructNew)}},
		{"struct.get missing field", []byte{wasm.OpPrefixGC, byte(wasm.GCStructGet), 0x01}},
		{"array.new_fixed missing size", []byte{wasm.OpPrefixGC, byte(wasm.GCArrayNewFixed), 0x01}},
		{"array.new_data missing dataidx", []byte{wasm.OpPrefixGC, byte(wasm.GCArrayNewData), 0x01}},
		{"array.new_elem missing elemidx", []byte{wasm.OpPrefixGC, byte(wasm.GCArrayNewElem), 0x01}},
		{"array.copy missing typeidx2", []byte{wasm.OpPrefixGC, byte(wasm.GCArrayCopy), 0x01}},
		{"ref.test missing heaptype", []byte{wasm.OpPrefixGC, byte(wasm.GCRefTest)}},
		{"br_on_cast missing labelidx", []byte{wasm.OpPrefixGC, byte(wasm.GCBrOnCast), 0x00}},
		{"br_on_cast missing heaptype1", []byte{wasm.OpPrefixGC, byte(wasm.GCBrOnCast), 0x00, 0x01}},
		{"br_on_cast missing heaptype2", []byte{wasm.OpPrefixGC, byte(wasm.GCBrOnCast), 0x00, 0x01, 0x6F}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wasm.DecodeInstructions(tt.data)
			if err == nil {
				t.Errorf("expected error for truncated %s", tt.name)
			}
		})
	}
}

func TestInstructionsTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"block missing type", []byte{wasm.OpBlock}},
		{"br missing label", []byte{wasm.OpBr}},
		{"br_table missing count", []byte{wasm.OpBrTable}},
		{"call missing func", []byte{wasm.OpCall}},
		{"call_indirect missing type", []byte{wasm.OpCallIndirect}},
		{"local.get missing idx", []byte{wasm.OpLocalGet}},
		{"global.get missing idx", []byte{wasm.OpGlobalGet}},
		{"i32.load missing memarg", []byte{wasm.OpI32Load}},
		{"i32.const missing value", []byte{wasm.OpI32Const}},
		{"i64.const missing value", []byte{wasm.OpI64Const}},
		{"f32.const missing value", []byte{wasm.OpF32Const}},
		{"f64.const missing value", []byte{wasm.OpF64Const}},
		{"memory.size missing mem", []byte{wasm.OpMemorySize}},
		{"select_t missing count", []byte{wasm.OpSelectType}},
		{"try_table missing type", []byte{wasm.OpTryTable}},
		{"throw missing tag", []byte{wasm.OpThrow}},
		{"ref.null missing type", []byte{wasm.OpRefNull}},
		{"ref.func missing idx", []byte{wasm.OpRefFunc}},
		{"table.get missing idx", []byte{wasm.OpTableGet}},
		{"misc prefix only", []byte{wasm.OpPrefixMisc}},
		{"simd prefix only", []byte{wasm.OpPrefixSIMD}},
		{"atomic prefix only", []byte{wasm.OpPrefixAtomic}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := wasm.DecodeInstructions(tt.data)
			if err == nil {
				t.Errorf("expected error for truncated %s", tt.name)
			}
		})
	}
}

func TestSIMDInstructionsRoundTrip(t *testing.T) {
	lane := byte(3)
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"v128.load", wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: 0x00, MemArg: &wasm.MemoryImm{Align: 4, Offset: 16}}}},
		{"v128.store", wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: 0x0B, MemArg: &wasm.MemoryImm{Align: 4, Offset: 32}}}},
		{"v128.const", wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: 0x0C, V128Bytes: []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}}}},
		{"i8x16.shuffle", wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: 0x0D, V128Bytes: []byte{0, 16, 1, 17, 2, 18, 3, 19, 4, 20, 5, 21, 6, 22, 7, 23}}}},
		{"i8x16.extract_lane_s", wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: 0x15, LaneIdx: &lane}}},
		{"v128.load8_lane", wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: 0x54, MemArg: &wasm.MemoryImm{Align: 0, Offset: 8}, LaneIdx: &lane}}},
		{"v128.load32_zero", wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: 0x5C, MemArg: &wasm.MemoryImm{Align: 2, Offset: 0}}}},
		{"i8x16.add", wasm.Instruction{Opcode: wasm.OpPrefixSIMD, Imm: wasm.SIMDImm{SubOpcode: 0x6E}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstructions([]wasm.Instruction{tt.instr})
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("DecodeInstructions error: %v", err)
			}
			if len(decoded) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(decoded))
			}
			reencoded := wasm.EncodeInstructions(decoded)
			if !bytes.Equal(encoded, reencoded) {
				t.Errorf("re-encoded bytes differ")
			}
		})
	}
}

func TestAtomicInstructionsRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"atomic.fence", wasm.Instruction{Opcode: wasm.OpPrefixAtomic, Imm: wasm.AtomicImm{SubOpcode: 0x03}}},
		{"memory.atomic.notify", wasm.Instruction{Opcode: wasm.OpPrefixAtomic, Imm: wasm.AtomicImm{SubOpcode: 0x00, MemArg: &wasm.MemoryImm{Align: 2, Offset: 0}}}},
		{"memory.atomic.wait32", wasm.Instruction{Opcode: wasm.OpPrefixAtomic, Imm: wasm.AtomicImm{SubOpcode: 0x01, MemArg: &wasm.MemoryImm{Align: 2, Offset: 16}}}},
		{"i32.atomic.load", wasm.Instruction{Opcode: wasm.OpPrefixAtomic, Imm: wasm.AtomicImm{SubOpcode: 0x10, MemArg: &wasm.MemoryImm{Align: 2, Offset: 8}}}},
		{"i32.atomic.store", wasm.Instruction{Opcode: wasm.OpPrefixAtomic, Imm: wasm.AtomicImm{SubOpcode: 0x17, MemArg: &wasm.MemoryImm{Align: 2, Offset: 4}}}},
		{"i32.atomic.rmw.add", wasm.Instruction{Opcode: wasm.OpPrefixAtomic, Imm: wasm.AtomicImm{SubOpcode: 0x1E, MemArg: &wasm.MemoryImm{Align: 2, Offset: 0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstructions([]wasm.Instruction{tt.instr})
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("DecodeInstructions error: %v", err)
			}
			if len(decoded) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(decoded))
			}
			reencoded := wasm.EncodeInstructions(decoded)
			if !bytes.Equal(encoded, reencoded) {
				t.Errorf("re-encoded bytes differ")
			}
		})
	}
}

func TestExceptionHandlingInstructions(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"throw", wasm.Instruction{Opcode: wasm.OpThrow, Imm: wasm.ThrowImm{TagIdx: 0}}},
		{"rethrow", wasm.Instruction{Opcode: wasm.OpRethrow, Imm: wasm.BranchImm{LabelIdx: 1}}},
		{"catch", wasm.Instruction{Opcode: wasm.OpCatch, Imm: wasm.ThrowImm{TagIdx: 2}}},
		{"delegate", wasm.Instruction{Opcode: wasm.OpDelegate, Imm: wasm.BranchImm{LabelIdx: 0}}},
		{"try", wasm.Instruction{Opcode: wasm.OpTry, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstructions([]wasm.Instruction{tt.instr})
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("DecodeInstructions error: %v", err)
			}
			if len(decoded) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(decoded))
			}
			if decoded[0].Opcode != tt.instr.Opcode {
				t.Errorf("opcode mismatch: got 0x%02x, want 0x%02x", decoded[0].Opcode, tt.instr.Opcode)
			}
			reencoded := wasm.EncodeInstructions(decoded)
			if !bytes.Equal(encoded, reencoded) {
				t.Errorf("re-encoded bytes differ")
			}
		})
	}
}

func TestTryTableInstruction(t *testing.T) {
	instr := wasm.Instruction{
		Opcode: wasm.OpTryTable,
		Imm: wasm.TryTableImm{
			BlockType: wasm.BlockTypeVoid,
			Catches: []wasm.CatchClause{
				{Kind: wasm.CatchKindCatch, TagIdx: 0, LabelIdx: 1},
				{Kind: wasm.CatchKindCatchRef, TagIdx: 1, LabelIdx: 2},
				{Kind: wasm.CatchKindCatchAll, LabelIdx: 3},
				{Kind: wasm.CatchKindCatchAllRef, LabelIdx: 4},
			},
		},
	}

	encoded := wasm.EncodeInstructions([]wasm.Instruction{instr})
	decoded, err := wasm.DecodeInstructions(encoded)
	if err != nil {
		t.Fatalf("DecodeInstructions error: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("expected 1 instruction, got %d", len(decoded))
	}

	imm, ok := decoded[0].Imm.(wasm.TryTableImm)
	if !ok {
		t.Fatalf("expected TryTableImm, got %T", decoded[0].Imm)
	}
	if len(imm.Catches) != 4 {
		t.Errorf("expected 4 catches, got %d", len(imm.Catches))
	}

	reencoded := wasm.EncodeInstructions(decoded)
	if !bytes.Equal(encoded, reencoded) {
		t.Errorf("re-encoded bytes differ")
	}
}

func TestCallRefInstructions(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"call_ref", wasm.Instruction{Opcode: wasm.OpCallRef, Imm: wasm.CallRefImm{TypeIdx: 5}}},
		{"return_call_ref", wasm.Instruction{Opcode: wasm.OpReturnCallRef, Imm: wasm.CallRefImm{TypeIdx: 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstructions([]wasm.Instruction{tt.instr})
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("DecodeInstructions error: %v", err)
			}
			if len(decoded) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(decoded))
			}
			reencoded := wasm.EncodeInstructions(decoded)
			if !bytes.Equal(encoded, reencoded) {
				t.Errorf("re-encoded bytes differ")
			}
		})
	}
}

func TestBrOnNullInstructions(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"br_on_null", wasm.Instruction{Opcode: wasm.OpBrOnNull, Imm: wasm.BranchImm{LabelIdx: 0}}},
		{"br_on_non_null", wasm.Instruction{Opcode: wasm.OpBrOnNonNull, Imm: wasm.BranchImm{LabelIdx: 5}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstructions([]wasm.Instruction{tt.instr})
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("DecodeInstructions error: %v", err)
			}
			if len(decoded) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(decoded))
			}
			reencoded := wasm.EncodeInstructions(decoded)
			if !bytes.Equal(encoded, reencoded) {
				t.Errorf("re-encoded bytes differ")
			}
		})
	}
}

func TestMultiMemoryInstructions(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"i32.load multi-mem", wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Align: 2, Offset: 0, MemIdx: 1}}},
		{"i32.store multi-mem", wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Align: 2, Offset: 8, MemIdx: 2}}},
		{"memory.size multi-mem", wasm.Instruction{Opcode: wasm.OpMemorySize, Imm: wasm.MemoryIdxImm{MemIdx: 3}}},
		{"memory.grow multi-mem", wasm.Instruction{Opcode: wasm.OpMemoryGrow, Imm: wasm.MemoryIdxImm{MemIdx: 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstructions([]wasm.Instruction{tt.instr})
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("DecodeInstructions error: %v", err)
			}
			if len(decoded) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(decoded))
			}
			reencoded := wasm.EncodeInstructions(decoded)
			if !bytes.Equal(encoded, reencoded) {
				t.Errorf("re-encoded bytes differ: got %v, want %v", reencoded, encoded)
			}
		})
	}
}

func TestMiscInstructionsRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		instr wasm.Instruction
	}{
		{"i32.trunc_sat_f32_s", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscI32TruncSatF32S}}},
		{"i64.trunc_sat_f64_u", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscI64TruncSatF64U}}},
		{"memory.init", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryInit, Operands: []uint32{5, 0}}}},
		{"memory.init multi-memory", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryInit, Operands: []uint32{3, 2}}}},
		{"data.drop", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscDataDrop, Operands: []uint32{7}}}},
		{"memory.copy", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}}},
		{"memory.copy multi-memory", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{1, 2}}}},
		{"memory.fill", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryFill, Operands: []uint32{0}}}},
		{"memory.fill multi-memory", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryFill, Operands: []uint32{3}}}},
		{"table.init", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscTableInit, Operands: []uint32{2, 1}}}},
		{"elem.drop", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscElemDrop, Operands: []uint32{4}}}},
		{"table.copy", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscTableCopy, Operands: []uint32{0, 1}}}},
		{"table.grow", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscTableGrow, Operands: []uint32{2}}}},
		{"table.size", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscTableSize, Operands: []uint32{0}}}},
		{"table.fill", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscTableFill, Operands: []uint32{1}}}},
		{"memory.discard", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryDiscard, Operands: []uint32{0}}}},
		{"memory.discard multi-memory", wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryDiscard, Operands: []uint32{2}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := wasm.EncodeInstructions([]wasm.Instruction{tt.instr})
			decoded, err := wasm.DecodeInstructions(encoded)
			if err != nil {
				t.Fatalf("DecodeInstructions error: %v", err)
			}
			if len(decoded) != 1 {
				t.Fatalf("expected 1 instruction, got %d", len(decoded))
			}
			reencoded := wasm.EncodeInstructions(decoded)
			if !bytes.Equal(encoded, reencoded) {
				t.Errorf("re-encoded bytes differ")
			}
		})
	}
}

func TestAddTypeReuse(t *testing.T) {
	m := &wasm.Module{}

	// Add first type
	ft1 := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI64}}
	idx1 := m.AddType(ft1)

	// Add same type - should reuse
	idx2 := m.AddType(ft1)
	if idx1 != idx2 {
		t.Errorf("expected same index, got %d and %d", idx1, idx2)
	}

	// Add different type - should be new
	ft2 := wasm.FuncType{Params: []wasm.ValType{wasm.ValF32}, Results: []wasm.ValType{}}
	idx3 := m.AddType(ft2)
	if idx3 == idx1 {
		t.Errorf("expected different index for different type")
	}
}

// TDD: Target typesEqual - params mismatch
func TestAddTypeDifferentParams(t *testing.T) {
	m := &wasm.Module{}

	ft1 := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValI64}, Results: []wasm.ValType{}}
	ft2 := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValF32}, Results: []wasm.ValType{}} // different second param

	idx1 := m.AddType(ft1)
	idx2 := m.AddType(ft2)

	if idx1 == idx2 {
		t.Errorf("expected different indices for different param types")
	}
}

// TDD: Target typesEqual - results mismatch
func TestAddTypeDifferentResults(t *testing.T) {
	m := &wasm.Module{}

	ft1 := wasm.FuncType{Params: []wasm.ValType{}, Results: []wasm.ValType{wasm.ValI32}}
	ft2 := wasm.FuncType{Params: []wasm.ValType{}, Results: []wasm.ValType{wasm.ValI64}} // different result

	idx1 := m.AddType(ft1)
	idx2 := m.AddType(ft2)

	if idx1 == idx2 {
		t.Errorf("expected different indices for different result types")
	}
}

// TDD: Target typesEqual - param length mismatch
func TestAddTypeDifferentParamCount(t *testing.T) {
	m := &wasm.Module{}

	ft1 := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{}}
	ft2 := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32, wasm.ValI64}, Results: []wasm.ValType{}} // more params

	idx1 := m.AddType(ft1)
	idx2 := m.AddType(ft2)

	if idx1 == idx2 {
		t.Errorf("expected different indices for different param counts")
	}
}

// TDD: Target typesEqual - result length mismatch
func TestAddTypeDifferentResultCount(t *testing.T) {
	m := &wasm.Module{}

	ft1 := wasm.FuncType{Params: []wasm.ValType{}, Results: []wasm.ValType{wasm.ValI32}}
	ft2 := wasm.FuncType{Params: []wasm.ValType{}, Results: []wasm.ValType{wasm.ValI32, wasm.ValI64}} // more results

	idx1 := m.AddType(ft1)
	idx2 := m.AddType(ft2)

	if idx1 == idx2 {
		t.Errorf("expected different indices for different result counts")
	}
}

// TDD: Target GetFuncType with TypeDefs (GC types)
func TestGetFuncTypeWithTypeDefs(t *testing.T) {
	// Build a module with TypeDefs and a function using type 0
	ft := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{wasm.ValI64}}
	m := &wasm.Module{
		TypeDefs: []wasm.TypeDef{
			{Kind: wasm.TypeDefKindFunc, Func: &ft},
		},
		Types: []wasm.FuncType{ft},
		Funcs: []uint32{0}, // function 0 uses type 0
	}

	got := m.GetFuncType(0)
	if got == nil {
		t.Fatal("expected non-nil FuncType")
	}
	if len(got.Params) != 1 || got.Params[0] != wasm.ValI32 {
		t.Errorf("unexpected params: %v", got.Params)
	}
}

// TDD: Target getFuncTypeByIdx - SubType path
func TestGetFuncTypeWithSubType(t *testing.T) {
	ft := wasm.FuncType{Params: []wasm.ValType{wasm.ValI32}, Results: []wasm.ValType{}}
	m := &wasm.Module{
		TypeDefs: []wasm.TypeDef{
			{Kind: wasm.TypeDefKindSub, Sub: &wasm.SubType{
				Final:    true,
				CompType: wasm.CompType{Kind: wasm.CompKindFunc, Func: &ft},
			}},
		},
		Types: []wasm.FuncType{ft},
		Funcs: []uint32{0}, // function 0 uses type 0
	}

	got := m.GetFuncType(0)
	if got == nil {
		t.Fatal("expected non-nil FuncType")
	}
}

// TDD: Target getFuncTypeByIdx - SubType with non-func CompType
func TestGetFuncTypeWithSubTypeNotFunc(t *testing.T) {
	st := wasm.StructType{Fields: []wasm.FieldType{{Type: wasm.StorageType{Kind: wasm.StorageKindVal, ValType: wasm.ValI32}}}}
	m := &wasm.Module{
		TypeDefs: []wasm.TypeDef{
			{Kind: wasm.TypeDefKindSub, Sub: &wasm.SubType{
				Final:    true,
				CompType: wasm.CompType{Kind: wasm.CompKindStruct, Struct: &st},
			}},
		},
		Funcs: []uint32{0}, // function 0 uses type 0 (a struct type)
	}

	// Looking for function 0 whose type is a struct, not a func
	got := m.GetFuncType(0)
	if got != nil {
		t.Error("expected nil for non-func type")
	}
}

// TDD: Target getFuncTypeByIdx - RecType path
func TestGetFuncTypeWithRecType(t *testing.T) {
	ft := wasm.FuncType{Params: []wasm.ValType{}, Results: []wasm.ValType{wasm.ValI32}}
	m := &wasm.Module{
		TypeDefs: []wasm.TypeDef{
			{Kind: wasm.TypeDefKindRec, Rec: &wasm.RecType{
				Types: []wasm.SubType{
					{Final: true, CompType: wasm.CompType{Kind: wasm.CompKindFunc, Func: &ft}},
				},
			}},
		},
		Types: []wasm.FuncType{ft},
		Funcs: []uint32{0}, // function 0 uses type 0 (first in rec group)
	}

	got := m.GetFuncType(0)
	if got == nil {
		t.Fatal("expected non-nil FuncType")
	}
}

// TDD: Target getFuncTypeByIdx - RecType with non-func
func TestGetFuncTypeWithRecTypeNotFunc(t *testing.T) {
	at := wasm.ArrayType{Element: wasm.FieldType{Type: wasm.StorageType{Kind: wasm.StorageKindVal, ValType: wasm.ValI32}}}
	m := &wasm.Module{
		TypeDefs: []wasm.TypeDef{
			{Kind: wasm.TypeDefKindRec, Rec: &wasm.RecType{
				Types: []wasm.SubType{
					{Final: true, CompType: wasm.CompType{Kind: wasm.CompKindArray, Array: &at}},
				},
			}},
		},
		Funcs: []uint32{0}, // function 0 uses type 0 (array type)
	}

	got := m.GetFuncType(0)
	if got != nil {
		t.Error("expected nil for non-func type in rec")
	}
}

// TDD: Target getFuncTypeByIdx - out of bounds (simple module)
func TestGetFuncTypeOutOfBounds(t *testing.T) {
	m := &wasm.Module{
		Types: []wasm.FuncType{
			{Params: []wasm.ValType{}, Results: []wasm.ValType{}},
		},
		Funcs: []uint32{0}, // Only 1 function
	}

	got := m.GetFuncType(100) // Out of bounds function index
	if got != nil {
		t.Error("expected nil for out of bounds func idx")
	}
}

// TDD: Target getFuncTypeByIdx - TypeDefs out of bounds
func TestGetFuncTypeTypeDefsOutOfBounds(t *testing.T) {
	ft := wasm.FuncType{Params: []wasm.ValType{}, Results: []wasm.ValType{}}
	m := &wasm.Module{
		TypeDefs: []wasm.TypeDef{
			{Kind: wasm.TypeDefKindFunc, Func: &ft},
		},
		Types: []wasm.FuncType{ft},
		Funcs: []uint32{5}, // function 0 uses type 5 (doesn't exist)
	}

	got := m.GetFuncType(0)
	if got != nil {
		t.Error("expected nil for out of bounds type idx in TypeDefs")
	}
}

// TDD: Target typesEqual with ExtParams
func TestAddTypeWithExtParams(t *testing.T) {
	m := &wasm.Module{}

	ft1 := wasm.FuncType{
		ExtParams:  []wasm.ExtValType{{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI32}},
		ExtResults: []wasm.ExtValType{{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI64}},
	}
	ft2 := wasm.FuncType{
		ExtParams:  []wasm.ExtValType{{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI32}},
		ExtResults: []wasm.ExtValType{{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI64}},
	}

	idx1 := m.AddType(ft1)
	idx2 := m.AddType(ft2)

	if idx1 != idx2 {
		t.Errorf("expected same index for equal ExtParams types")
	}
}

// TDD: Target typesEqual - ExtParams length mismatch
func TestAddTypeWithDifferentExtParamsCount(t *testing.T) {
	m := &wasm.Module{}

	ft1 := wasm.FuncType{
		ExtParams: []wasm.ExtValType{{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI32}},
	}
	ft2 := wasm.FuncType{
		ExtParams: []wasm.ExtValType{
			{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI32},
			{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI64},
		},
	}

	idx1 := m.AddType(ft1)
	idx2 := m.AddType(ft2)

	if idx1 == idx2 {
		t.Errorf("expected different indices for different ExtParams counts")
	}
}

// TDD: Target typesEqual - ExtResults mismatch
func TestAddTypeWithDifferentExtResults(t *testing.T) {
	m := &wasm.Module{}

	ft1 := wasm.FuncType{
		ExtParams:  []wasm.ExtValType{{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI32}},
		ExtResults: []wasm.ExtValType{{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI32}},
	}
	ft2 := wasm.FuncType{
		ExtParams:  []wasm.ExtValType{{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI32}},
		ExtResults: []wasm.ExtValType{{Kind: wasm.ExtValKindSimple, ValType: wasm.ValI64}}, // different
	}

	idx1 := m.AddType(ft1)
	idx2 := m.AddType(ft2)

	if idx1 == idx2 {
		t.Errorf("expected different indices for different ExtResults")
	}
}

// TDD: Target extValTypesEqual - RefType comparison
func TestAddTypeWithRefTypeParams(t *testing.T) {
	m := &wasm.Module{}

	ft1 := wasm.FuncType{
		ExtParams: []wasm.ExtValType{{Kind: wasm.ExtValKindRef, ValType: wasm.ValRefNull, RefType: wasm.RefType{Nullable: true, HeapType: -16}}},
	}
	ft2 := wasm.FuncType{
		ExtParams: []wasm.ExtValType{{Kind: wasm.ExtValKindRef, ValType: wasm.ValRefNull, RefType: wasm.RefType{Nullable: true, HeapType: -16}}},
	}

	idx1 := m.AddType(ft1)
	idx2 := m.AddType(ft2)

	if idx1 != idx2 {
		t.Errorf("expected same index for equal RefType params")
	}
}

// TDD: Target extValTypesEqual - different RefType
func TestAddTypeWithDifferentRefType(t *testing.T) {
	m := &wasm.Module{}

	ft1 := wasm.FuncType{
		ExtParams: []wasm.ExtValType{{Kind: wasm.ExtValKindRef, ValType: wasm.ValRefNull, RefType: wasm.RefType{Nullable: true, HeapType: -16}}},
	}
	ft2 := wasm.FuncType{
		ExtParams: []wasm.ExtValType{{Kind: wasm.ExtValKindRef, ValType: wasm.ValRef, RefType: wasm.RefType{Nullable: false, HeapType: -16}}}, // different nullable
	}

	idx1 := m.AddType(ft1)
	idx2 := m.AddType(ft2)

	if idx1 == idx2 {
		t.Errorf("expected different indices for different RefType nullable")
	}
}
