// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm

import (
	"github.com/jvmstack/jvmstack/descriptor"
)

// OpStackCounts returns the number of values popped from and pushed to the
// stack by the given opcode. ok is false for undefined opcodes and for those
// whose effect depends on operands or operand categories; use StackEffect for
// them.
func OpStackCounts(op OpCode) (pops int, pushes int, ok bool) {
	entry := instructionSet[op]
	if entry == nil || entry.dynamic {
		return 0, 0, false
	}
	return entry.pops, entry.pushes, true
}

// StackEffect returns the number of stack entries ins would pop and push
// when applied to the given stack.
func StackEffect(ins Instruction, stack StackView) (pops int, pushes int, err error) {
	op := ins.Opcode()
	if pops, pushes, ok := OpStackCounts(op); ok {
		return pops, pushes, nil
	}
	if !op.IsDefined() {
		return 0, 0, &ErrInvalidOpCodeError{opcode: op}
	}
	switch ins := ins.(type) {
	case MethodInsn:
		desc, err := descriptor.Lookup(ins.Descriptor)
		if err != nil {
			return 0, 0, err
		}
		pops = len(desc.Params)
		if ins.Op != INVOKESTATIC {
			pops++
		}
		if !desc.IsVoid() {
			pushes = 1
		}
		return pops, pushes, nil
	case InvokeDynamicInsn:
		desc, err := descriptor.Lookup(ins.Descriptor)
		if err != nil {
			return 0, 0, err
		}
		if !desc.IsVoid() {
			pushes = 1
		}
		return len(desc.Params), pushes, nil
	case MultiANewArrayInsn:
		return ins.Dims, 1, nil
	}

	// Category dependent shuffles.
	words := func(skip, n int) (int, error) {
		count, sum := 0, 0
		for sum < n {
			v, err := stack.Peek(skip + count)
			if err != nil {
				return 0, err
			}
			sum += v.Category()
			count++
		}
		return count, nil
	}
	var top, under int
	switch op {
	case POP2:
		top, under = 2, 0
	case DUP_X2:
		top, under = 1, 2
	case DUP2:
		top, under = 2, 0
	case DUP2_X1:
		top, under = 2, 1
	case DUP2_X2:
		top, under = 2, 2
	default:
		return 0, 0, malformedInsn(op, "no stack effect for %v instruction", ins.Form())
	}
	n, err := words(0, top)
	if err != nil {
		return 0, 0, err
	}
	if op == POP2 {
		return n, 0, nil
	}
	m := 0
	if under > 0 {
		if m, err = words(n, under); err != nil {
			return 0, 0, err
		}
	}
	return n + m, 2*n + m, nil
}

// NextStackSize computes the stack height after applying ins to stack.
func NextStackSize(ins Instruction, stack StackView) (int, error) {
	pops, pushes, err := StackEffect(ins, stack)
	if err != nil {
		return 0, err
	}
	return stack.Len() - pops + pushes, nil
}
