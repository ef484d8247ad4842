// delete: the destructor side of the codec, spec.md §4.5 "delete(T, uid):
// walk every slot the object occupies including dynamic sub-regions ...
// write zero to each; do not touch the counter slot". The counter slot is
// keyed by keccak256("counter"), never derived from a parent slot, so it
// is untouchable from here by construction.
package storage

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/errors"
	"github.com/rather-labs/move-stylus-wasm/irtype"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
	"github.com/rather-labs/move-stylus-wasm/wasm"
)

// Delete materializes spec.md §4.5 "delete(T, uid)": locate the object,
// for every dynamic (vector) field zero the element region and the header
// sub-slot, then zero its static words. Traps if the object is frozen (I2)
// or cannot be located.
func Delete(c *ctx.Context, t irtype.Type, imports *Imports, sc SlotConsts) (uint32, error) {
	mono := t.String()
	var synthErr error
	idx, _ := c.Cache().Get(c.Builder(), runtimefn.RoleDeleteFromStorage, mono,
		[]wasm.ValType{wasm.ValI32}, nil,
		func(funcIdx uint32) {
			synthErr = synthDelete(c, t, imports, sc, funcIdx)
		},
	)
	if synthErr != nil {
		return 0, synthErr
	}
	return idx, nil
}

func synthDelete(c *ctx.Context, t irtype.Type, imports *Imports, sc SlotConsts, funcIdx uint32) error {
	reg := c.Registry()
	ref := t.StructRef()
	decl, ok := reg.LookupStruct(ref.Module, ref.Name)
	if !ok {
		return errors.UnresolvedIdentifier(errors.PhaseStorage, ref.Module, ref.Name)
	}
	fields, wordCount, err := planWords(decl, reg)
	if err != nil {
		return err
	}

	locateFn := ensureLocate(c, imports, sc)

	const pUid = 0
	const lNsTag, lParentSlot, lHeaderSlot, lHeaderWord, lLen, lElemsBase, lI = 1, 2, 3, 4, 5, 6, 7
	var body []wasm.Instruction

	body = append(body,
		wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: pUid}},
		wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: locateFn}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lParentSlot}},
		wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lNsTag}},
	)
	body = append(body, trapIfFrozen(lNsTag)...)

	// Dynamic sub-regions first: zeroing word 0 early would wipe the
	// type-hash occupancy marker while the header slots still need their
	// lengths read.
	for _, sf := range fields {
		if !sf.dynamic {
			continue
		}
		body = append(body, wordSlotPtr(c, lParentSlot, sf.subSlotIdx)...)
		body = append(body, wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeaderSlot}})
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeaderSlot}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageLoad}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lHeaderWord}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeaderWord}},
			wasm.Instruction{Opcode: wasm.OpI32Load, Imm: wasm.MemoryImm{Offset: 0}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lLen}},
		)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeaderSlot}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 32}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: ensureKeccak(c, imports)}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
		)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 0}},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},
			wasm.Instruction{Opcode: wasm.OpBlock, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
			wasm.Instruction{Opcode: wasm.OpLoop, Imm: wasm.BlockImm{Type: wasm.BlockTypeVoid}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lLen}},
			wasm.Instruction{Opcode: wasm.OpI32GeU},
			wasm.Instruction{Opcode: wasm.OpBrIf, Imm: wasm.BranchImm{LabelIdx: 1}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lElemsBase}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: ensureSlotAddConstDynamic(c)}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sc.zero32)}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lI}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: 1}},
			wasm.Instruction{Opcode: wasm.OpI32Add},
			wasm.Instruction{Opcode: wasm.OpLocalSet, Imm: wasm.LocalImm{LocalIdx: lI}},
			wasm.Instruction{Opcode: wasm.OpBr, Imm: wasm.BranchImm{LabelIdx: 0}},
			wasm.Instruction{Opcode: wasm.OpEnd},
			wasm.Instruction{Opcode: wasm.OpEnd},
		)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpLocalGet, Imm: wasm.LocalImm{LocalIdx: lHeaderSlot}},
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sc.zero32)}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
		)
	}

	for n := 0; n < wordCount; n++ {
		body = append(body, wordSlotPtr(c, lParentSlot, n)...)
		body = append(body,
			wasm.Instruction{Opcode: wasm.OpI32Const, Imm: wasm.I32Imm{Value: int32(sc.zero32)}},
			wasm.Instruction{Opcode: wasm.OpCall, Imm: wasm.CallImm{FuncIdx: imports.StorageStore}},
		)
	}

	locals := []wasm.LocalEntry{{ValType: wasm.ValI32, Count: 7}}
	c.Builder().FillFunc(funcIdx, locals, body)
	return nil
}
