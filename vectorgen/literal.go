package vectorgen

import (
	"strconv"

	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// Pack materializes spec.md §4.4 "vector::pack(T, n)": (e0, e1, ..., e(n-1))
// -> i32, one helper per distinct (element type, arity) pair. WASM's
// multi-value calling convention lets the arity live entirely in the
// function's param list, so a fixed-n literal never needs a variadic
// calling sequence.
func Pack(c *ctx.Context, elem irtype.Type, n int) uint32 {
	mono := elem.String() + "#" + strconv.Itoa(n)
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleVectorPack, mono,
		params(elem, n),
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			allocFn := AllocWithHeader(c, elem)
			lHeaderIdx := uint32(n) // first local, right after the n params
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(n)}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: allocFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeaderIdx}},
			)
			for i := 0; i < n; i++ {
				body = append(body, elemSlotAddr(lHeaderIdx, elem, []wasm.Instruction{
					{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(i)}},
				})...)
				body = append(body,
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: uint32(i)}},
					wasm.Instruction{Opcode: elemStoreOp(elem), Imm: wasm.MemoryImm{Offset: 0}},
				)
			}
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeaderIdx}})
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
		},
	)
	return idx
}

// Unpack materializes spec.md §4.4 "vector::unpack(T, n)", the inverse of
// Pack: (vecPtr: i32) -> (e0, e1, ..., e(n-1)), traps unless the vector's
// length is exactly n (move-verifier-checked arity, defended here too since
// a hostile caller could forge the pointer). Returns all n elements as a
// single multi-value result, the mirror image of Pack's param list.
func Unpack(c *ctx.Context, elem irtype.Type, n int) uint32 {
	mono := elem.String() + "#" + strconv.Itoa(n)
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleVectorUnpackN, mono,
		[]wasm.ValType{wasm.ValI32},
		params(elem, n),
		func(funcIdx uint32) {
			const pVec = 0
			const lLen = 1
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVec}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: headerLen}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(n)}},
				wasm.Instruction{Opcode: wasm.OpI32Ne},
				wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpUnreachable},
				wasm.Instruction{Opcode: wasm.OpEnd},
			)
			for i := 0; i < n; i++ {
				body = append(body, elemSlotAddr(pVec, elem, []wasm.Instruction{
					{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(i)}},
				})...)
				body = append(body, wasm.Instruction{Opcode: elemLoadOp(elem), Imm: wasm.MemoryImm{Offset: 0}})
			}
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
		},
	)
	return idx
}

func params(elem irtype.Type, n int) []wasm.ValType {
	vt := elemValType(elem)
	out := make([]wasm.ValType, n)
	for i := range out {
		out[i] = vt
	}
	return out
}

// LoadConstant embeds a vector literal's full header+elements layout as one
// constant data blob (spec.md §4.4 "vector literal", §11 data-segment
// layout) and emits the single instruction that pushes its address. Unlike
// every other vectorgen entry point this needs no runtime helper function:
// the content is fixed at compile time, so there is nothing to memoize or
// execute beyond the address load. elemBytes[i] must already be encoded to
// exactly elemSize(elem) bytes, little-endian, in the representation the
// element's own load/store opcodes expect (callers recurse through their own
// constant folder — struct/vector encoders — to produce nested literals).
func LoadConstant(c *ctx.Context, elem irtype.Type, elemBytes [][]byte) []wasm.Instruction {
	n := len(elemBytes)
	width := int(elemSize(elem))
	blob := make([]byte, HeaderSize+n*width)
	putLE32(blob[headerLen:], uint32(n))
	putLE32(blob[headerCap:], uint32(n))
	for i, b := range elemBytes {
		copy(blob[HeaderSize+i*width:HeaderSize+(i+1)*width], b)
	}
	addr := c.DeclareConst(blob)
	return []wasm.Instruction{
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(addr)}},
	}
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
