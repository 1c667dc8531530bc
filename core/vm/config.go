// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm

// Config are the configuration options for the Engine.
type Config struct {
	Tracer      *Hooks
	TrackLocals bool   // Remember stored values per slot and reload them
	Debug       bool   // Per-instruction debug logging, in addition to STACK_DEBUG
	DebugEvery  uint32 // Log one instruction in DebugEvery, 0 logs all
}
