// Package log provides the compiler's package-level logger accessor.
//
// Grounded on linker.Logger/SetLogger: a no-op *zap.Logger by default,
// replaceable once by the host before any compilation runs.
package log

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// L returns the compiler's logger. It uses a no-op logger by default, so
// every package can log unconditionally without a host ever having
// configured one.
func L() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the compiler's logger. Must be called before any
// compilation starts; breadcrumbs logged mid-compile are debug-level only
// and never influence control flow.
func SetLogger(l *zap.Logger) {
	logger = l
}
