package unpack

import (
	"github.com/rather-labs/move-stylus-wasm/abi"
	"github.com/rather-labs/move-stylus-wasm/ctx"
	"github.com/rather-labs/move-stylus-wasm/runtimefn"
)

// ensureByteSwap delegates to abi.EnsureByteSwap, the direction-agnostic
// in-place byte reversal abi/pack also reuses for the return trip back to
// big-endian.
func ensureByteSwap(c *ctx.Context, role runtimefn.Role, width int32) uint32 {
	return abi.EnsureByteSwap(c, role, width)
}
