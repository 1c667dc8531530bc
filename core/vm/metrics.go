// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm

import "github.com/ethereum/go-ethereum/metrics"

var (
	instructionCount = metrics.NewRegisteredCounter("jvmstack/vm/instructions", nil)
	methodCount      = metrics.NewRegisteredCounter("jvmstack/vm/methods", nil)
	faultCount       = metrics.NewRegisteredCounter("jvmstack/vm/faults", nil)
)
