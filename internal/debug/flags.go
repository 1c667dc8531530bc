// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

// Package debug holds the package-wide switch for verbose per-instruction
// logging in the stack simulator. It is off unless STACK_DEBUG is set or a
// caller enables it.
package debug

import (
	"os"
	"sync/atomic"
)

var enabled atomic.Bool

func init() {
	if v := os.Getenv("STACK_DEBUG"); v == "1" || v == "true" {
		enabled.Store(true)
	}
}

// EnableDebugLogs toggles all simulator debug logs.
func EnableDebugLogs(on bool) { enabled.Store(on) }

// Enabled reports whether debug logging is on.
func Enabled() bool { return enabled.Load() }
