// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

// Package vmtest provides testing utilities for the stack simulation engine.
package vmtest

import (
	"fmt"
	"os"

	"github.com/jvmstack/jvmstack/core/vm"
)

// Engine tests run under every configuration returned by Configs:
//
//	func TestSomething(t *testing.T) {
//	    for _, cfg := range vmtest.Configs() {
//	        t.Run(vmtest.Name(cfg), func(t *testing.T) {
//	            // test code using cfg
//	        })
//	    }
//	}
//
// Set TEST_WITH_DEBUG=true to add a configuration with per-instruction debug
// logging switched on.

// Configs returns the engine configurations to test.
func Configs() []vm.Config {
	configs := []vm.Config{
		{},                  // plain stack simulation
		{TrackLocals: true}, // with stored values remembered per slot
	}
	if DebugEnabled() {
		configs = append(configs, vm.Config{TrackLocals: true, Debug: true})
	}
	return configs
}

// Name returns a human-readable name for a vm.Config, used for sub-test
// naming.
func Name(cfg vm.Config) string {
	name := "Plain"
	if cfg.TrackLocals {
		name = "TrackLocals"
	}
	if cfg.Debug {
		name += "Debug"
	}
	return name
}

// DebugEnabled returns true if debug configurations are requested via
// environment variable.
func DebugEnabled() bool {
	return os.Getenv("TEST_WITH_DEBUG") == "true"
}

// Method is a method declaration plus body to replay into a visitor.
type Method struct {
	Access     vm.AccessFlags
	Name       string
	Descriptor string
	Params     []string
	Code       []any // vm.Instruction or *vm.Label
}

// Replay delivers m to v, stopping at the first error. If stop is false the
// body is replayed in full and VisitEnd is always called; the first error is
// still returned.
func Replay(v vm.MethodVisitor, m Method, stop bool) error {
	var first error
	fail := func(err error) bool {
		if err != nil && first == nil {
			first = err
		}
		return err != nil && stop
	}
	if fail(v.VisitMethod(m.Access, m.Name, m.Descriptor, "", nil)) {
		return first
	}
	for _, p := range m.Params {
		if fail(v.VisitParameter(p, 0)) {
			return first
		}
	}
	if fail(v.VisitCode()) {
		return first
	}
	for _, c := range m.Code {
		var err error
		switch c := c.(type) {
		case vm.Instruction:
			err = v.VisitInstruction(c)
		case *vm.Label:
			err = v.VisitLabel(c)
		default:
			panic(fmt.Sprintf("vmtest: unexpected code element %T", c))
		}
		if fail(err) {
			return first
		}
	}
	fail(v.VisitEnd())
	return first
}

// Ops turns bare opcodes into operand-less instructions.
func Ops(ops ...vm.OpCode) []any {
	out := make([]any, len(ops))
	for i, op := range ops {
		out[i] = vm.Insn{Op: op}
	}
	return out
}
