package abi

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// EnsureByteSwap materializes (once per width) a helper that reverses a
// byte span in linear memory in place: byte-swap converts an ABI big-endian
// word to the little-endian representation linear memory uses on unpack,
// and back again on pack (spec.md §3.2, "endianness is swapped at
// encode/decode"). width is the number of bytes to reverse. Shared by
// abi/unpack and abi/pack since the operation is its own inverse — whichever
// direction needs a given width first materializes it, the other reuses it.
func EnsureByteSwap(c *ctx.Context, role runtimefn.Role, width int32) uint32 {
	mono := "w" + itoa(width)
	idx, _ := c.Cache().Get(c.Builder(), role, mono,
		[]wasm.ValType{wasm.ValI32},
		nil,
		func(funcIdx uint32) {
			// params: $ptr (local 0). locals: $i (local 1), $tmp (local 2).
			const pPtr, lI, lTmp = 0, 1, 2
			body := []wasm.Instruction{
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
				{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},
				{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},

				// if i >= width/2, break
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: width / 2}},
				{Opcode: wasm.OpI32GeU},
				{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}},

				// tmp = load8(ptr + i)
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pPtr}},
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				{Opcode: wasm.OpI32Add},
				{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{Align: 0, Offset: 0}},
				{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTmp}},

				// store8(ptr + i, load8(ptr + width-1-i))
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pPtr}},
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				{Opcode: wasm.OpI32Add},
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pPtr}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: width - 1}},
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				{Opcode: wasm.OpI32Sub},
				{Opcode: wasm.OpI32Add},
				{Opcode: wasm.OpI32Load8U, Imm: wasm.MemoryImm{Align: 0, Offset: 0}},
				{Opcode: wasm.OpI32Store8, Imm: wasm.MemoryImm{Align: 0, Offset: 0}},

				// store8(ptr + width-1-i, tmp)
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pPtr}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: width - 1}},
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				{Opcode: wasm.OpI32Sub},
				{Opcode: wasm.OpI32Add},
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTmp}},
				{Opcode: wasm.OpI32Store8, Imm: wasm.MemoryImm{Align: 0, Offset: 0}},

				// i += 1; continue
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
				{Opcode: wasm.OpI32Add},
				{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},
				{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},

				{Opcode: wasm.OpEnd}, // loop
				{Opcode: wasm.OpEnd}, // block
			}
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{
				{ValType: wasm.ValI32, Count: 2}, // $i, $tmp
			}, body)
		},
	)
	return idx
}

func itoa(i int32) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [12]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}
