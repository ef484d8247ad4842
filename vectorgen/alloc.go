package vectorgen

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// AllocWithHeader materializes, once per distinct element type, a helper
// with signature (n: i32) -> i32 that bump-allocates a fresh vector with
// len == capacity == n (the uninitialized-elements variant every literal
// or copy-on-grow path builds on top of), per spec.md §3.2 "Vector".
// Element slots are left zeroed by the bump allocator's backing memory.
func AllocWithHeader(c *ctx.Context, elem irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleAllocVectorWithHeader, elem.String(),
		[]wasm.ValType{wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			const pN = 0
			const lHeader = 1
			var body []wasm.Instruction

			body = append(body, c.EmitAllocDynamic([]wasm.Instruction{
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: HeaderSize}},
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pN}},
				{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize(elem)}},
				{Opcode: wasm.OpI32Mul},
				{Opcode: wasm.OpI32Add},
			})...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeader}})

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pN}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: headerLen}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pN}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: headerCap}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeader}},
			)
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
		},
	)
	return idx
}

// Copy materializes, once per distinct element type, the copy-with-capacity
// helper of spec.md §4.4 "push_back": (oldPtr: i32, newCap: i32) -> i32.
// Allocates a fresh header of capacity newCap, copies the old vector's
// len*elemSize bytes of element data across, and preserves len (only
// capacity grows). Used both by push_back's doubling grow and by any other
// caller that needs to reallocate a vector to a larger capacity.
func Copy(c *ctx.Context, elem irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleVectorCopy, elem.String(),
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			allocFn := AllocWithHeader(c, elem)
			const pOld, pNewCap = 0, 1
			const lLen, lNew = 2, 3
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pOld}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: headerLen}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
			)

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pNewCap}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: allocFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNew}},
			)
			// AllocWithHeader sets len = newCap; correct it to the old length.
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNew}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: headerLen}},
			)

			// memory.copy(new+HeaderSize, old+HeaderSize, len*elemSize)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNew}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: HeaderSize}},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pOld}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: HeaderSize}},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: elemSize(elem)}},
				wasm.Instruction{Opcode: wasm.OpI32Mul},
				wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
			)

			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNew}})
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 2}}, body)
		},
	)
	return idx
}
