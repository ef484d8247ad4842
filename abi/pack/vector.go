package pack

import (
	"github.com/rather-labs/move-stylus-wasm/abi"
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// synthVector implements spec.md §4.3 "Vector(T)" — the mirror of
// abi/unpack.synthVector. Dynamic: writes the offset into the head slot;
// the tail holds the length word followed by len elements laid out per the
// Solidity array rule (each element gets one head word at elemHeadWords
// granularity; dynamic elements append their own tails after every
// element's head word has been reserved, exactly as abi/unpack's
// lElemsBase/lCursor pair threads decoding, just in reverse).
func synthVector(c *ctx.Context, elem irtype.Type, funcIdx uint32) error {
	elemFn, err := Pack(c, elem)
	if err != nil {
		return err
	}
	elemHeadWords := abi.HeadWords(elem, c.Registry())
	elemSize := elementDataSizeOf(elem)
	isI64 := elem.Kind() == irtype.KindU64

	const (
		lOffset      = 4
		lLen         = 5
		lContent     = 6
		lElemsBase   = 7
		lHeadRegion  = 8
		lElemHead    = 9
		lTailCursor  = 10
		lI           = 11
		lElemVal32   = 12
		lNext        = 13
		lElemVal64   = 14
	)

	var body []wasm.Instruction

	// offset = tailPtr - base; write at headPtr.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pBase}},
		wasm.Instruction{Opcode: wasm.OpI32Sub},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOffset}},
	)
	body = append(body, zeroSlot32(pHead)...)
	body = append(body, emitStoreBE32(pHead, 28, lOffset)...)

	// len = vec.len; length word at tailPtr (= content start).
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
		wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pTail}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lContent}},
	)
	body = append(body, zeroSlot32(lContent)...)
	body = append(body, emitStoreBE32(lContent, 28, lLen)...)

	// elemsBase = content + 32; headRegion = len * elemHeadWords * 32.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lContent}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: slotSize}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(elemHeadWords) * slotSize}},
		wasm.Instruction{Opcode: wasm.OpI32Mul},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeadRegion}},
	)

	// tailCursor starts right after the head region; i = 0.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeadRegion}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTailCursor}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},
	)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},

		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		wasm.Instruction{Opcode: wasm.OpI32GeU},
		wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}},
	)

	// elemHead = elemsBase + i*elemHeadWords*32.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(elemHeadWords) * slotSize}},
		wasm.Instruction{Opcode: wasm.OpI32Mul},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lElemHead}},
	)

	// load elem value at vec.data + i*elemSize.
	loadOp := wasm.OpI32Load
	valLocal := uint32(lElemVal32)
	if isI64 {
		loadOp = wasm.OpI64Load
		valLocal = lElemVal64
	}
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 8}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize}},
		wasm.Instruction{Opcode: wasm.OpI32Mul},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: loadOp, Imm: wasm.MemoryImm{Offset: 0}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: valLocal}},
	)

	// call elem's pack function, thread the tail cursor.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: valLocal}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lElemHead}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTailCursor}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: elemFn}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNext}},
	)

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNext}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTailCursor}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},
		wasm.Instruction{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},

		wasm.Instruction{Opcode: wasm.OpEnd}, // loop
		wasm.Instruction{Opcode: wasm.OpEnd}, // block
	)

	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTailCursor}})

	locals := []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 10}}
	if isI64 {
		locals = append(locals, wasm.LocalEntry{ValType: wasm.ValI64, Count: 1})
	}
	c.Builder().FillFunc(funcIdx, locals, body)
	return nil
}

// elementDataSizeOf mirrors irtype.ElementDataSize; kept local so the rule
// sits next to its use, matching abi/unpack's own convention.
func elementDataSizeOf(elem irtype.Type) int32 {
	return int32(irtype.ElementDataSize(elem))
}
