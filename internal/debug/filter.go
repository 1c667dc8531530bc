// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package debug

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/exp/slog"
)

// Filter decides whether a sampled record is written.
type Filter interface {
	check() bool
}

// EveryN lets through one record in N. A nil or zero EveryN lets all through.
type EveryN struct {
	N       uint32
	counter uint32
}

func (e *EveryN) check() bool {
	if e == nil || e.N == 0 {
		return true
	}
	c := atomic.AddUint32(&e.counter, 1)
	return c%e.N == 0
}

var _ Filter = &EveryN{}

// TraceBy writes a trace record if filter agrees. Callers gate on Enabled or
// their own switch.
func TraceBy(filter Filter, msg string, ctx ...interface{}) {
	writeBy(filter, log.LevelTrace, msg, ctx...)
}

func writeBy(filter Filter, level slog.Level, msg string, ctx ...interface{}) {
	if filter == nil || filter.check() {
		log.Root().Write(level, msg, ctx...)
	}
}
