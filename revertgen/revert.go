// Package revertgen emits the revert and abort paths of spec.md §6.4/§7:
// named-error revert buffers (4-byte selector plus ABI-encoded parameters,
// exit code 1), raw-string abort messages (a 4-byte big-endian length
// header at offset 68, the UTF-8 bytes after it, then a trap), and the
// cross-contract call wrapper that writes the literal "101" into the abort
// buffer before trapping when a call fails and the caller asked for its
// result.
//
// Grounded on original_source's tests/framework/mod.rs error and
// cross-contract fixtures (test_revert's selector-plus-params expectation,
// GET_RESULT_ERROR_CODE = "101", and the read of the message length from
// error_ptr+68) and, in emission shape, on abi/pack's head/tail threading.
package revertgen

import (
	"math/bits"

	"github.com/rather-labs/move-stylus-wasm/abi"
	"github.com/rather-labs/move-stylus-wasm/abi/pack"
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/keccak"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/storage"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// abortMessageHeaderOffset is where the big-endian message length sits in
// an abort buffer; the raw UTF-8 bytes follow it. The value matches the
// Error(string) ABI prelude size (4-byte selector + offset word + length
// word) so a host that only understands Solidity reverts still finds the
// string where it expects the payload.
const abortMessageHeaderOffset = 68

// callFailedCode is written into the abort buffer when a cross-contract
// call fails and the caller asked for its result.
const callFailedCode = "101"

// Error is one declared revert error: name plus parameter types, hashed to
// a 4-byte selector the same way a function signature is.
type Error struct {
	Name   string
	Params []irtype.Type
}

// Selector computes keccak256("Name(types)")[0:4] (spec.md §6.4).
func Selector(e Error) [4]byte {
	digest := keccak.Sum256([]byte(abi.SignatureString(e.Name, e.Params)))
	var out [4]byte
	copy(out[:], digest[:4])
	return out
}

// Revert materializes (once per distinct error signature) the helper that
// builds e's revert buffer from its parameter values, records the buffer in
// the abort pointer/length globals, and returns exit code 1 for the
// entrypoint to yield.
func Revert(c *ctx.Context, e Error, abortPtrGlobal, abortLenGlobal uint32) (uint32, error) {
	params := make([]wasm.ValType, len(e.Params))
	for i, t := range e.Params {
		params[i] = wasm.ValI32
		if t.Kind() == irtype.KindU64 {
			params[i] = wasm.ValI64
		}
	}

	var synthErr error
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleRevert, abi.SignatureString(e.Name, e.Params),
		params, []wasm.ValType{wasm.ValI32},
		func(funcIdx uint32) {
			synthErr = synthRevert(c, e, abortPtrGlobal, abortLenGlobal, funcIdx)
		},
	)
	if synthErr != nil {
		return 0, synthErr
	}
	return idx, nil
}

func synthRevert(c *ctx.Context, e Error, abortPtrGlobal, abortLenGlobal uint32, funcIdx uint32) error {
	base := uint32(len(e.Params))
	lBuf, lHeads, lTail := base, base+1, base+2

	headWords := make([]int, len(e.Params))
	totalHeadWords := 0
	packFns := make([]uint32, len(e.Params))
	for i, t := range e.Params {
		fn, err := pack.Pack(c, t)
		if err != nil {
			return err
		}
		packFns[i] = fn
		headWords[i] = abi.HeadWords(t, c.Registry())
		totalHeadWords += headWords[i]
	}

	sel := Selector(e)
	selConst := c.DeclareConst(sel[:])

	var body []wasm.Instruction
	body = append(body, c.EmitAllocConst(4+int32(totalHeadWords)*32)...)
	body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lBuf}})

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(selConst)}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 4}},
		wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},
	)

	// Heads start after the selector; offset words inside the encoded
	// parameter tuple are relative to the tuple's own start, as in a
	// Solidity revert payload.
	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 4}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: lHeads}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(totalHeadWords) * 32}},
		wasm.Instruction{Opcode: wasm.OpI32Add},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTail}},
	)

	wordOffset := 0
	for i, fn := range packFns {
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: uint32(i)}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeads}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(wordOffset) * 32}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTail}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeads}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: fn}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lTail}},
		)
		wordOffset += headWords[i]
	}

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTail}},
		wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: c.FreePtrGlobal()}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
		wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: abortPtrGlobal}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lTail}},
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
		wasm.Instruction{Opcode: wasm.OpI32Sub},
		wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: abortLenGlobal}},
		wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
	)

	c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 3}}, body)
	return nil
}

// AbortMessage materializes (once per distinct message) the helper that
// writes msg's raw UTF-8 bytes into a fresh abort buffer — 4-byte
// big-endian length at offset 68, bytes at 72 — records the buffer in the
// abort pointer global, and traps.
func AbortMessage(c *ctx.Context, msg string, abortPtrGlobal uint32) uint32 {
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleAbortMessage, msg,
		nil, nil,
		func(funcIdx uint32) {
			msgConst := c.DeclareConst([]byte(msg))
			const lBuf = 0

			var body []wasm.Instruction
			body = append(body, c.EmitAllocConst(int32(abortMessageHeaderOffset+4+len(msg)))...)
			body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lBuf}})

			// The bytes before the length header are host-interpreted
			// prelude space; clear them so a stale heap region cannot leak
			// into the revert data.
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: abortMessageHeaderOffset}},
				wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryFill, Operands: []uint32{0}}},
			)

			// A little-endian i32 store of the byte-reversed length leaves
			// big-endian bytes in memory.
			lenBE := int32(bits.ReverseBytes32(uint32(len(msg))))
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: lenBE}},
				wasm.Instruction{Opcode: wasm.OpI32Store, Imm: wasm.MemoryImm{Offset: abortMessageHeaderOffset}},

				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: abortMessageHeaderOffset + 4}},
				wasm.Instruction{Opcode: wasm.OpI32Add},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(msgConst)}},
				wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(len(msg))}},
				wasm.Instruction{Opcode: wasm.OpPrefixMisc, Imm: wasm.MiscImm{SubOpcode: wasm.MiscMemoryCopy, Operands: []uint32{0, 0}}},

				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lBuf}},
				wasm.Instruction{Opcode: wasm.OpGlobalSet, Imm: wasm.GlobalImm{GlobalIdx: abortPtrGlobal}},
				wasm.Instruction{Opcode: wasm.OpUnreachable},
			)

			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
		},
	)
	return idx
}

// CallUnwrap materializes the cross-contract call wrapper: it forwards its
// arguments to the contract_call import and, when the call reports failure,
// writes "101" into the abort buffer and traps instead of returning the
// status for the caller to inspect (spec.md §7).
func CallUnwrap(c *ctx.Context, imports *storage.Imports, abortPtrGlobal uint32) uint32 {
	i32, i64 := wasm.ValI32, wasm.ValI64
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleCallUnwrap, "",
		[]wasm.ValType{i32, i64, i32, i32, i32, i32, i32},
		[]wasm.ValType{i32},
		func(funcIdx uint32) {
			abortFn := AbortMessage(c, callFailedCode, abortPtrGlobal)
			const lRes = 7

			var body []wasm.Instruction
			for p := uint32(0); p < 7; p++ {
				body = append(body, wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: p}})
			}
			body = append(body,
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.ContractCall}},
				wasm.Instruction{Opcode: wasm.OpLocalTee, Imm: wasm.LocalImm{LocalIdx: lRes}},
				wasm.Instruction{Opcode: wasm.OpIf, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
				wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: abortFn}},
				wasm.Instruction{Opcode: wasm.OpEnd},
				wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lRes}},
			)
			c.Builder().FillFunc(funcIdx, []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 1}}, body)
		},
	)
	return idx
}
