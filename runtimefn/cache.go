// Package runtimefn materializes and memoizes the compiler's generic
// runtime helper functions: endian swap, the allocator, vector primitives,
// keccak, and the storage locate/read/write/delete helpers (spec.md §4.1).
//
// Grounded on transcoder.Compiler's memoized compile-dispatch (there keyed
// on {goType, witPtr} via sync.Map); here keyed on {Role, monomorphization}
// via a plain map, since spec.md §5 makes the compiler single-threaded —
// the concurrency transcoder.Compiler needed (serving concurrent
// ahead-of-time and lazy compilation paths) does not apply here.
package runtimefn

import (
	"hash/fnv"
	"strconv"

	"github.com/rather-labs/move-stylus-wasm/wasm"
	"github.com/rather-labs/move-stylus-wasm/wasm/build"
)

// Role identifies which generic helper a cache entry materializes.
type Role uint8

const (
	RoleEndianSwapI32 Role = iota
	RoleEndianSwapI64
	RoleEndianSwapI128
	RoleEndianSwapI256
	RolePointerValidator
	RoleAllocVectorWithHeader
	RoleVectorCopy
	RoleVectorPopBack
	RoleVectorSwap
	RoleVectorIncrementLength
	RoleDowncastU64ToU32
	RoleKeccak
	RoleLocateStorageData
	RoleReadAndDecodeFromStorage
	RoleWriteAndEncodeToStorage
	RoleDeleteFromStorage
	RoleUnpack
	RolePack
	RoleCompare
	RoleHashKey
	RoleParentSlot
	RoleSlotAddConst
	RoleIssueUID
	RoleTransferObject
	RoleShareObject
	RoleFreezeObject
	RoleDeleteObject
	RoleDynFieldSlot
	RoleDynFieldAttach
	RoleDynFieldRead
	RoleDynFieldExists
	RoleDynFieldRemove
	RoleEventEmit
	RoleVectorBorrow
	RoleVectorRelocationRepair
	RoleVectorPushBack
	RoleVectorPack
	RoleVectorUnpackN
	RoleEnumConstruct
	RoleEnumTagOf
	RoleCheckedAdd
	RoleRevert
	RoleAbortMessage
	RoleCallUnwrap
	RoleDynTableNew
	RoleDynTableAdd
	RoleDynTableRemove
	RoleDynTableLength
	RoleDynTableLenSlot
)

var roleNames = [...]string{
	RoleEndianSwapI32:            "endian_swap_i32",
	RoleEndianSwapI64:            "endian_swap_i64",
	RoleEndianSwapI128:           "endian_swap_i128",
	RoleEndianSwapI256:           "endian_swap_i256",
	RolePointerValidator:         "ptr_validate",
	RoleAllocVectorWithHeader:    "vec_alloc",
	RoleVectorCopy:               "vec_copy",
	RoleVectorPopBack:            "vec_pop_back",
	RoleVectorSwap:               "vec_swap",
	RoleVectorIncrementLength:    "vec_inc_len",
	RoleDowncastU64ToU32:         "downcast_u64_u32",
	RoleKeccak:                   "keccak",
	RoleLocateStorageData:        "storage_locate",
	RoleReadAndDecodeFromStorage: "storage_read",
	RoleWriteAndEncodeToStorage:  "storage_write",
	RoleDeleteFromStorage:        "storage_delete",
	RoleUnpack:                   "unpack",
	RolePack:                     "pack",
	RoleCompare:                  "compare",
	RoleHashKey:                  "hash_key",
	RoleParentSlot:               "parent_slot",
	RoleSlotAddConst:             "slot_add",
	RoleIssueUID:                 "issue_uid",
	RoleTransferObject:           "obj_transfer",
	RoleShareObject:              "obj_share",
	RoleFreezeObject:             "obj_freeze",
	RoleDeleteObject:             "obj_delete",
	RoleDynFieldSlot:             "dynfield_slot",
	RoleDynFieldAttach:           "dynfield_attach",
	RoleDynFieldRead:             "dynfield_read",
	RoleDynFieldExists:           "dynfield_exists",
	RoleDynFieldRemove:           "dynfield_remove",
	RoleEventEmit:                "event_emit",
	RoleVectorBorrow:             "vec_borrow",
	RoleVectorRelocationRepair:   "vec_reloc_repair",
	RoleVectorPushBack:           "vec_push_back",
	RoleVectorPack:               "vec_pack",
	RoleVectorUnpackN:            "vec_unpack_n",
	RoleEnumConstruct:            "enum_construct",
	RoleEnumTagOf:                "enum_tag_of",
	RoleCheckedAdd:               "checked_add",
	RoleRevert:                   "revert",
	RoleAbortMessage:             "abort_msg",
	RoleCallUnwrap:               "call_unwrap",
	RoleDynTableNew:              "table_new",
	RoleDynTableAdd:              "table_add",
	RoleDynTableRemove:           "table_remove",
	RoleDynTableLength:           "table_len",
	RoleDynTableLenSlot:          "table_len_slot",
}

func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "unknown_role"
}

// Cache memoizes (Role, monomorphization) -> function index. Not safe for
// concurrent use (see package doc).
type Cache struct {
	index map[string]uint32
}

func NewCache() *Cache {
	return &Cache{index: make(map[string]uint32)}
}

// funcName embeds a stable hash of the monomorphization string in the
// generated function's name, per spec.md §4.1 "Naming": identical
// monomorphizations collide deliberately, so two call sites requesting the
// same (role, mono) always resolve to one function.
func funcName(role Role, mono string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(mono))
	return role.String() + "_" + strconv.FormatUint(h.Sum64(), 16)
}

// Get returns the function index for (role, mono), synthesizing it if
// necessary. If the helper is new, Get reserves its function index via
// builder.ReserveFunc (so self-recursive and mutually recursive bodies —
// e.g. vector-of-vector copy — can call their own index while still being
// built) and invokes synthesize with that reserved index; synthesize is
// responsible for calling builder.FillFunc with the emitted body before
// returning. The bool result reports whether this call performed fresh
// synthesis (false on a cache hit).
func (c *Cache) Get(
	b *build.Builder,
	role Role,
	mono string,
	params, results []wasm.ValType,
	synthesize func(funcIdx uint32),
) (uint32, bool) {
	name := funcName(role, mono)
	if idx, ok := b.LookupFunc(name); ok {
		return idx, false
	}
	idx := b.ReserveFunc(name, params, results)
	c.index[name] = idx
	synthesize(idx)
	return idx, true
}

// Lookup reports the function index already materialized for (role, mono),
// without triggering synthesis.
func (c *Cache) Lookup(role Role, mono string) (uint32, bool) {
	idx, ok := c.index[funcName(role, mono)]
	return idx, ok
}
