// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm

import (
	"errors"
	"fmt"
)

// List of stack simulation errors.
var (
	ErrUnderflow            = errors.New("stack underflow")
	ErrUnexpectedEvent      = errors.New("unexpected visitor event")
	ErrTooManyParameters    = errors.New("too many parameter declarations")
	ErrMalformedInstruction = errors.New("malformed instruction")
	ErrInvalidOpCode        = errors.New("invalid opcode")
)

// ErrStackUnderflow wraps an evaluation error where an instruction needed more
// operands than the stack held.
type ErrStackUnderflow struct {
	stackLen int
	required int
}

func (e *ErrStackUnderflow) Error() string {
	return fmt.Sprintf("stack underflow (%d <=> %d)", e.stackLen, e.required)
}

func (e *ErrStackUnderflow) Unwrap() error {
	return ErrUnderflow
}

// StackLen returns the depth of the stack when the underflow happened.
func (e *ErrStackUnderflow) StackLen() int { return e.stackLen }

// Required returns the number of operands the failing operation needed.
func (e *ErrStackUnderflow) Required() int { return e.required }

// ErrOpUnderflow is an underflow attributed to the instruction that caused it.
type ErrOpUnderflow struct {
	Op    OpCode
	Index int // instruction index within the method body
	Err   *ErrStackUnderflow
}

func (e *ErrOpUnderflow) Error() string {
	return fmt.Sprintf("%v at instruction %d: %v", e.Op, e.Index, e.Err)
}

func (e *ErrOpUnderflow) Unwrap() error {
	return e.Err
}

// ErrInvalidOpCodeError wraps an evaluation error for an opcode outside the
// instruction set.
type ErrInvalidOpCodeError struct {
	opcode OpCode
}

func (e *ErrInvalidOpCodeError) Error() string { return fmt.Sprintf("invalid opcode: %s", e.opcode) }

func (e *ErrInvalidOpCodeError) Unwrap() error { return ErrInvalidOpCode }

// OpCode returns the offending opcode.
func (e *ErrInvalidOpCodeError) OpCode() OpCode { return e.opcode }

// ErrMalformedInstructionError reports an event whose form or operands do not
// fit its opcode.
type ErrMalformedInstructionError struct {
	Op     OpCode
	Reason string
}

func (e *ErrMalformedInstructionError) Error() string {
	return fmt.Sprintf("malformed %v instruction: %s", e.Op, e.Reason)
}

func (e *ErrMalformedInstructionError) Unwrap() error { return ErrMalformedInstruction }

func malformedInsn(op OpCode, format string, args ...any) error {
	return &ErrMalformedInstructionError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ErrUnexpectedEventError reports a visitor event delivered in the wrong
// engine state.
type ErrUnexpectedEventError struct {
	Event string
	State State
}

func (e *ErrUnexpectedEventError) Error() string {
	return fmt.Sprintf("unexpected %s event in state %v", e.Event, e.State)
}

func (e *ErrUnexpectedEventError) Unwrap() error { return ErrUnexpectedEvent }
