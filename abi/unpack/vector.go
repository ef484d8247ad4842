package unpack

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// synthVector implements spec.md §4.2 "Vector(T)": the outer 32-byte slot
// holds a byte offset (relative to the elements-base param) to a region
// whose first word is the length, followed by len elements of T encoded
// per T's own ABI rule. It allocates a vector header with len == capacity
// and fills it by calling elem's unpack function once per element.
func synthVector(c *ctx.Context, elem irtype.Type, funcIdx uint32) error {
	elemFn, err := Unpack(c, elem)
	if err != nil {
		return err
	}
	validator := ensurePointerValidator(c)

	const (
		lRelOffset = 2
		lDataPtr   = 3
		lLen       = 4
		lHeader    = 5
		lElemsBase = 6
		lCursor    = 7
		lI         = 8
		lNextPtr   = 9
		lVal       = 10
	)
	elemSize := elementDataSizeOf(elem)
	isI64 := elem.Kind() == irtype.KindU64

	var body []wasm.Instruction

	// relOffset = validate(readerPtr); dataPtr = base + relOffset.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pReaderPtr}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: validator}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lRelOffset}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pBase}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lRelOffset}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lDataPtr}},
	)

	// len = validate(dataPtr) (the length word occupies a full 32-byte slot).
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lDataPtr}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: validator}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
	)

	// header = alloc(8 + len*elemSize); header[0]=len; header[4]=len (capacity==len).
	body = append(body, c.EmitAllocDynamic([]wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize}},
		{Opcode: wasm.OpI32Mul},
		{Opcode: wasm.OpI32Add},
	})...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeader}})
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 4}},
	)

	// elementsBase (for nested dynamic elements) = dataPtr + 32 (past the length word).
	// cursor walks the element region; each element's own unpack call advances it.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lDataPtr}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: slotSize}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCursor}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},
	)

	// loop: while i < len { val, next = unpack(elem)(cursor, elemsBase); store; cursor=next; i++ }
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},

		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		wasm.Instruction{Opcode: wasm.OpI32GeU},
		wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}},

		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCursor}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: elemFn}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNextPtr}},
	)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lVal}})
	// compute write address: header + 8 + i*elemSize
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize}},
		wasm.Instruction{Opcode: wasm.OpI32Mul},
		wasm.Instruction{Opcode: wasm.OpI32Add},
	)
	storeOp := wasm.OpI32Store
	if isI64 {
		storeOp = wasm.OpI64Store
	}
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lVal}},
		wasm.Instruction{Opcode: storeOp, Imm: wasm.MemoryImm{Offset: 0}},
	)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNextPtr}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCursor}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},
		wasm.Instruction{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},

		wasm.Instruction{Opcode: wasm.OpEnd}, // loop
		wasm.Instruction{Opcode: wasm.OpEnd}, // block
	)

	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}})
	body = append(body, advanceReader(pReaderPtr, slotSize)...)

	locals := []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 9}}
	if isI64 {
		locals = []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 8}, {ValType: wasm.ValI64, Count: 1}}
	}
	c.Builder().FillFunc(funcIdx, locals, body)
	return nil
}
