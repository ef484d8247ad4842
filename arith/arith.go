// Package arith emits the checked integer arithmetic helpers of spec.md §7:
// addition that traps on overflow (for u128/u256, a multi-limb add that
// traps on carry out of the top limb) and the downcast-u64-to-u32 helper of
// spec.md §4.1 that traps when any of the high 32 bits are set.
//
// Grounded on original_source's tests/primitives.rs carry-chain cases (the
// "what happens when there is carry" walk-through that pins limb order and
// the carry-to-the-next-half propagation) and, in emission shape, on
// abi.EnsureByteSwap's cache-one-helper-per-width pattern.
package arith

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// CheckedAdd materializes (once per integer width) the trapping addition
// helper for t. Stack-representable widths take and return immediates
// ((i32,i32)->i32 or (i64,i64)->i64); u128/u256 take two pointers and
// return a pointer to a freshly allocated sum.
func CheckedAdd(c *ctx.Context, t irtype.Type) (uint32, error) {
	switch t.Kind() {
	case irtype.KindU8, irtype.KindU16, irtype.KindU32, irtype.KindU64,
		irtype.KindU128, irtype.KindU256:
	default:
		return 0, errors.Unsupported(errors.PhaseEmit, t.String(), "no checked-add rule for this type")
	}

	params, results := addSignature(t)
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleCheckedAdd, t.String(),
		params, results,
		func(funcIdx uint32) {
			switch t.Kind() {
			case irtype.KindU8:
				synthAddNarrow(c, funcIdx, 0xFF)
			case irtype.KindU16:
				synthAddNarrow(c, funcIdx, 0xFFFF)
			case irtype.KindU32:
				synthAddU32(c, funcIdx)
			case irtype.KindU64:
				synthAddU64(c, funcIdx)
			case irtype.KindU128:
				synthAddLimbs(c, funcIdx, 2)
			case irtype.KindU256:
				synthAddLimbs(c, funcIdx, 4)
			}
		},
	)
	return idx, nil
}

func addSignature(t irtype.Type) (params, results []wasm.ValType) {
	if t.Kind() == irtype.KindU64 {
		return []wasm.ValType{wasm.ValI64, wasm.ValI64}, []wasm.ValType{wasm.ValI64}
	}
	return []wasm.ValType{wasm.ValI32, wasm.ValI32}, []wasm.ValType{wasm.ValI32}
}

// synthAddNarrow adds two sub-word values held zero-extended in i32s and
// traps when the sum exceeds max. The i32 add itself cannot wrap (both
// operands are at most 16 bits wide), so one compare suffices.
func synthAddNarrow(c *ctx.Context, funcIdx uint32, max int32) {
	body := []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
		{Opcode: wasm.OpI32Add},
		{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: 2}},
		{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: max}},
		{Opcode: wasm.OpI32GtU},
		{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		{Opcode: wasm.OpUnreachable},
		{Opcode: wasm.OpEnd},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 2}},
	}
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
}

// synthAddU32 widens both operands to i64 so the carry is observable, traps
// when the 64-bit sum exceeds 32 bits, and wraps back down.
func synthAddU32(c *ctx.Context, funcIdx uint32) {
	const lSum = 2 // i64
	body := []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpI64ExtendI32U},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
		{Opcode: wasm.OpI64ExtendI32U},
		{Opcode: wasm.OpI64Add},
		{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: lSum}},
		{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 0xFFFFFFFF}},
		{Opcode: wasm.OpI64GtU},
		{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		{Opcode: wasm.OpUnreachable},
		{Opcode: wasm.OpEnd},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSum}},
		{Opcode: wasm.OpI32WrapI64},
	}
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI64, Count: 1}}, body)
}

// synthAddU64 adds two i64s and traps on carry: an unsigned sum smaller
// than either operand means the add wrapped.
func synthAddU64(c *ctx.Context, funcIdx uint32) {
	const lSum = 2 // i64
	body := []wasm.Instruction{
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 1}},
		{Opcode: wasm.OpI64Add},
		{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: lSum}},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
		{Opcode: wasm.OpI64LtU},
		{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		{Opcode: wasm.OpUnreachable},
		{Opcode: wasm.OpEnd},
		{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSum}},
	}
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI64, Count: 1}}, body)
}

// synthAddLimbs adds two little-endian multi-limb integers of `limbs` 64-bit
// limbs, propagating the carry upward and trapping if one falls out of the
// top limb (spec.md §8 S7). Allocates and returns the sum.
func synthAddLimbs(c *ctx.Context, funcIdx uint32, limbs int) {
	const pA, pB = 0, 1
	// i32 locals first, then i64 — WASM groups locals by type in order.
	const lOut, lC1, lC2 = 2, 3, 4
	const lA, lSum, lSum2, lCarry = 5, 6, 7, 8

	var body []wasm.Instruction
	body = append(body, c.EmitAllocConst(int32(limbs)*8)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lOut}})

	for i := 0; i < limbs; i++ {
		off := uint64(i) * 8
		body = append(body,
			// sum = a[i] + b[i]
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pA}},
			wasm.Instruction{Opcode: wasm.OpI64Load, Imm: wasm.MemoryImm{Offset: off}},
			wasm.Instruction{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: lA}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pB}},
			wasm.Instruction{Opcode: wasm.OpI64Load, Imm: wasm.MemoryImm{Offset: off}},
			wasm.Instruction{Opcode: wasm.OpI64Add},
			wasm.Instruction{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: lSum}},
			// c1 = sum < a[i]
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lA}},
			wasm.Instruction{Opcode: wasm.OpI64LtU},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lC1}},
			// sum2 = sum + incoming carry
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSum}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
			wasm.Instruction{Opcode: wasm.OpI64Add},
			wasm.Instruction{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: lSum2}},
			// c2 = sum2 < sum
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSum}},
			wasm.Instruction{Opcode: wasm.OpI64LtU},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lC2}},
			// out[i] = sum2
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOut}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lSum2}},
			wasm.Instruction{Opcode: wasm.OpI64Store, Imm: wasm.MemoryImm{Offset: off}},
			// carry = c1 | c2
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lC1}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lC2}},
			wasm.Instruction{Opcode: wasm.OpI32Or},
			wasm.Instruction{Opcode: wasm.OpI64ExtendI32U},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
		)
	}

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lCarry}},
		wasm.Instruction{Opcode: wasm.OpI64Eqz},
		wasm.Instruction{Opcode: wasm.OpI32Eqz},
		wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
		wasm.Instruction{Opcode: wasm.OpUnreachable},
		wasm.Instruction{Opcode: wasm.OpEnd},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lOut}},
	)
	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{
		{ValType: wasm.ValI32, Count: 3},
		{ValType: wasm.ValI64, Count: 4},
	}, body)
}

// DowncastU64ToU32 materializes the spec.md §4.1 downcast helper: traps
// when any of the high 32 bits are set, otherwise wraps to i32.
func DowncastU64ToU32(c *ctx.Context) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDowncastU64ToU32, "",
		[]wasm.ValType{wasm.ValI64}, []wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			body := []wasm.Instruction{
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
				{Opcode: wasm.OpI64Const, Imm: wasm.I64Imm{Value: 32}},
				{Opcode: wasm.OpI64ShrU},
				{Opcode: wasm.OpI64Eqz},
				{Opcode: wasm.OpI32Eqz},
				{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				{Opcode: wasm.OpUnreachable},
				{Opcode: wasm.OpEnd},
				{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: 0}},
				{Opcode: wasm.OpI32WrapI64},
			}
			c.Builder().FillFunc(funcIdx, nil, body)
		},
	)
	return idx
}
