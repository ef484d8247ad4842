package storage

import (
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/keccak"
)

// Namespace identifies which of the three object namespaces spec.md §3.3
// an object lives in.
type Namespace uint8

const (
	NamespaceOwned Namespace = iota
	NamespaceShared
	NamespaceFrozen
)

// CounterKey is the storage slot the UID-issuance counter lives at:
// keccak256("counter"), pinned bit-exactly by spec.md §6.3 as
// 0x58b5eb4714c8a2c1b363c3b1ec9eda2aa81a0b4642ad06cfdeaff838ec3157fd.
var CounterKey = keccak.Sum256([]byte("counter"))

// sharedSentinel and frozenSentinel are the namespace sentinels used in
// place of an owner address when deriving a parent slot for the shared or
// frozen namespace (spec.md §6.3: "Shared-namespace sentinel: 20-byte
// 0x…0000 0001. Frozen: 0x…0000 0002").
var (
	sharedSentinel = keccak.Pad32([]byte{1})
	frozenSentinel = keccak.Pad32([]byte{2})
)

// SlotConsts caches the compile-time-constant pointers every compilation
// needs at most once: the zero32 word pad32(0) §4.5's parent-slot formula
// hashes against, and the shared/frozen sentinels.
type SlotConsts struct {
	zero32  uint32
	shared  uint32
	frozen  uint32
	counter uint32
}

func EnsureSlotConsts(c *ctx.Context) SlotConsts {
	return SlotConsts{
		zero32:  c.DeclareConst(make([]byte, 32)),
		shared:  c.DeclareConst(sharedSentinel),
		frozen:  c.DeclareConst(frozenSentinel),
		counter: c.DeclareConst(CounterKey[:]),
	}
}

// sentinelPtr returns the compile-time-constant pointer to the namespace
// sentinel bytes for ns, or false for NamespaceOwned, whose sentinel is the
// runtime tx_origin address rather than a fixed constant.
func (sc SlotConsts) sentinelPtr(ns Namespace) (uint32, bool) {
	switch ns {
	case NamespaceShared:
		return sc.shared, true
	case NamespaceFrozen:
		return sc.frozen, true
	default:
		return 0, false
	}
}
