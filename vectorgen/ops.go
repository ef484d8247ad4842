package vectorgen

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/layout"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// PushBack materializes spec.md §4.4 "push_back(T)": (vecRefPtr: i32, value)
// -> (). vecRefPtr is the address of the caller's vector-pointer cell (a
// "&vec"), not the vector pointer itself, so a grow can update it in place.
// On grow, the old header is left with the relocation sentinel at offset 0
// and the new pointer at offset 4 (§4.4 "Relocation discipline") so any
// outstanding mutable reference can chase it; see Repair.
func PushBack(c *ctx.Context, elem irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleVectorPushBack, elem.String(),
		[]wasm.ValType{wasm.ValI32, elemValType(elem)},
		nil,
		func(funcIdx uint32) {
			copyFn := Copy(c, elem)
			const pVecRef, pVal = 0, 1
			const lVec, lLen, lCap, lNewCap, lNewPtr = 2, 3, 4, 5, 6
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVecRef}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lVec}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lVec}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: headerLen}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lVec}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: headerCap}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCap}},
			)

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCap}},
				wasm.Instruction{Opcode: wasm.OpI32GeU},
				wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
			)
			// newCap = cap == 0 ? 1 : cap*2
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCap}},
				wasm.Instruction{Opcode: wasm.OpI32Eqz},
				wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNewCap}},
				wasm.Instruction{Opcode: wasm.OpElse},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCap}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 2}},
				wasm.Instruction{Opcode: wasm.OpI32Mul},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNewCap}},
				wasm.Instruction{Opcode: wasm.OpEnd},
			)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lVec}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNewCap}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: copyFn}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNewPtr}},
			)
			// vacate the old header: sentinel at offset 0, forwarding pointer at offset 4.
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lVec}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: RelocationSentinel}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: headerLen}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lVec}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNewPtr}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: headerCap}},
			)
			// *vecRef = newPtr; vec = newPtr.
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVecRef}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNewPtr}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: 0}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lNewPtr}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lVec}},
				wasm.Instruction{Opcode: wasm.OpEnd},
			)

			// vec[len] = val; len += 1.
			body = append(body, elemSlotAddr(lVec, elem, []wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
			})...)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVal}},
				wasm.Instruction{Opcode: elemStoreOp(elem), Imm: wasm.MemoryImm{Offset: 0}},
			)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lVec}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: headerLen}},
			)

			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 5}}, body)
		},
	)
	return idx
}

// PopBack materializes spec.md §4.4 "pop_back(T)": (vecPtr: i32) -> value.
// Traps if the vector is empty. For heap/composite element types the
// returned value is the pointer stored in the vacated slot; for
// stack-representable types it is the immediate itself.
func PopBack(c *ctx.Context, elem irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleVectorPopBack, elem.String(),
		[]wasm.ValType{wasm.ValI32},
		[]wasm.ValType{elemValType(elem)},
		func(funcIdx uint32) {
			const pVec = 0
			const lLen = 1
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVec}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: headerLen}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
				wasm.Instruction{Opcode: wasm.OpI32Eqz},
				wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpUnreachable},
				wasm.Instruction{Opcode: wasm.OpEnd},
			)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
				wasm.Instruction{Opcode: wasm.OpI32Sub},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
			)
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVec}},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: headerLen}},
			)
			body = append(body, elemSlotAddr(pVec, elem, []wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
			})...)
			body = append(body, wasm.Instruction{Opcode: elemLoadOp(elem), Imm: wasm.MemoryImm{Offset: 0}})
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
		},
	)
	return idx
}

// Swap materializes spec.md §4.4 "swap(T)": (vecPtr: i32, i: i32, j: i32) ->
// (). Traps if either index is out of range.
func Swap(c *ctx.Context, elem irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleVectorSwap, elem.String(),
		[]wasm.ValType{wasm.ValI32, wasm.ValI32, wasm.ValI32},
		nil,
		func(funcIdx uint32) {
			const pVec, pI, pJ = 0, 1, 2
			const lLen, lTmp32 = 3, 4
			const lTmp64 = 5
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVec}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: headerLen}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
			)
			body = append(body, trapIfOOB(pI, lLen)...)
			body = append(body, trapIfOOB(pJ, lLen)...)

			tmpLocal := lTmp32
			if elem.Kind() == irtype.KindU64 {
				tmpLocal = lTmp64
			}
			// tmp = vec[i]
			body = append(body, elemSlotAddr(pVec, elem, []wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pI}},
			})...)
			body = append(body, wasm.Instruction{Opcode: elemLoadOp(elem), Imm: wasm.MemoryImm{Offset: 0}})
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: uint32(tmpLocal)}})

			// vec[i] = vec[j]
			body = append(body, elemSlotAddr(pVec, elem, []wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pI}},
			})...)
			body = append(body, elemSlotAddr(pVec, elem, []wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pJ}},
			})...)
			body = append(body, wasm.Instruction{Opcode: elemLoadOp(elem), Imm: wasm.MemoryImm{Offset: 0}})
			body = append(body, wasm.Instruction{Opcode: elemStoreOp(elem), Imm: wasm.MemoryImm{Offset: 0}})

			// vec[j] = tmp
			body = append(body, elemSlotAddr(pVec, elem, []wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pJ}},
			})...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: uint32(tmpLocal)}})
			body = append(body, wasm.Instruction{Opcode: elemStoreOp(elem), Imm: wasm.MemoryImm{Offset: 0}})

			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{
				{ValType: wasm.ValI32, Count: 2},
				{ValType: wasm.ValI64, Count: 1},
			}, body)
		},
	)
	return idx
}

// Borrow materializes spec.md §4.4 "borrow(T, mut?)": (vecPtr: i32, i: i32)
// -> pointer. For heap-only/composite elements the stored value already is
// a pointer, so borrow yields it directly. For stack-representable
// elements — which cannot be addressed as a pointer in place — it boxes a
// fresh cell and copies the value through it, the same contract
// abi/unpack.synthReference applies to a reference to a stack-typed
// referent (spec.md §3.2 "Reference").
func Borrow(c *ctx.Context, elem irtype.Type) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleVectorBorrow, elem.String(),
		[]wasm.ValType{wasm.ValI32, wasm.ValI32},
		[]wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			const pVec, pI = 0, 1
			const lLen = 2
			var body []wasm.Instruction

			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pVec}},
				wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: headerLen}},
				wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
			)
			body = append(body, trapIfOOB(pI, lLen)...)

			if elem.IsStackRepresentable() {
				const lCell, lVal = 3, 4
				body = append(body, elemSlotAddr(pVec, elem, []wasm.Instruction{
					{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pI}},
				})...)
				body = append(body, wasm.Instruction{Opcode: elemLoadOp(elem), Imm: wasm.MemoryImm{Offset: 0}})
				body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lVal}})

				boxSize := int32(layout.BoxedSize(elem))
				body = append(body, c.EmitAllocConst(boxSize)...)
				body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCell}})
				body = append(body,
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lVal}},
					wasm.Instruction{Opcode: elemStoreOp(elem), Imm: wasm.MemoryImm{Offset: 0}},
					wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCell}},
				)
				locals := []wasm.LocalEntry{
					{ValType: wasm.ValI32, Count: 2},
					{ValType: elemValType(elem), Count: 1},
				}
				c.Builder().FillFunc(funcIdx, locals, body)
				return
			}

			body = append(body, elemSlotAddr(pVec, elem, []wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pI}},
			})...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}})
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
		},
	)
	return idx
}
