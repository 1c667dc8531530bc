// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm

import (
	"github.com/jvmstack/jvmstack/core/types"
)

type (
	// MethodHook is called when a method declaration begins.
	MethodHook = func(m MethodInfo)

	// OpcodeHook is invoked after an instruction has been applied. index is
	// the position of the instruction in the method body.
	OpcodeHook = func(index int, ins Instruction, stack StackView)

	// FaultHook is invoked when an instruction could not be applied. The
	// stack is left as it was before the instruction.
	FaultHook = func(index int, ins Instruction, stack StackView, err error)

	// CodeEndHook is invoked at the end of a method body, before the stack is
	// released. ret is nil unless a value-returning instruction was applied.
	CodeEndHook = func(m MethodInfo, stack StackView, ret *types.Value)
)

// Hooks is a set of observers of the engine. Any field may be nil.
type Hooks struct {
	OnMethod  MethodHook
	OnOpcode  OpcodeHook
	OnFault   FaultHook
	OnCodeEnd CodeEndHook
}
