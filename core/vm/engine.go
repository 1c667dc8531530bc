// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jvmstack/jvmstack/core/types"
	"github.com/jvmstack/jvmstack/descriptor"
	"github.com/jvmstack/jvmstack/internal/debug"
)

// State is the position of the engine in the visitor event sequence.
type State uint8

const (
	Unattached State = iota // between methods
	InMethod                // declaration seen, code not yet begun
	InCode                  // inside a method body
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case InMethod:
		return "in-method"
	case InCode:
		return "in-code"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// MethodVisitor receives the events of one method at a time:
//
//	VisitMethod VisitParameter* [VisitCode (VisitInstruction | VisitLabel)*] VisitEnd
type MethodVisitor interface {
	VisitMethod(access AccessFlags, name, desc, signature string, exceptions []string) error
	VisitParameter(name string, access AccessFlags) error
	VisitCode() error
	VisitInstruction(ins Instruction) error
	VisitLabel(label *Label) error
	VisitEnd() error
}

// MethodInfo is the declaration of the method being visited.
type MethodInfo struct {
	Access     AccessFlags
	Name       string
	Descriptor string
	Signature  string // generic signature, may be empty
	Exceptions []string
}

func (m MethodInfo) String() string {
	return m.Name + m.Descriptor
}

// Engine simulates the operand stack of one method body at a time. It is a
// MethodVisitor and forwards every event to an optional downstream visitor
// before applying it. Events arriving out of order are rejected without being
// forwarded. An Engine is not safe for concurrent use.
type Engine struct {
	cfg  Config
	next MethodVisitor

	state  State
	method MethodInfo
	desc   *descriptor.Method
	params []string
	locals *LocalSlots
	stack  *Stack

	stored map[int]types.Value // last value stored per slot, with TrackLocals
	args   []types.Value       // operands of the fixed operation being applied
	ret    *types.Value
	sites  int
	index  int
	err    error

	sample *debug.EveryN
}

var _ MethodVisitor = (*Engine)(nil)

// NewEngine returns an engine that forwards events to next, which may be nil.
func NewEngine(cfg Config, next MethodVisitor) *Engine {
	return &Engine{
		cfg:    cfg,
		next:   next,
		sample: &debug.EveryN{N: cfg.DebugEvery},
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// State returns the current position in the event sequence.
func (e *Engine) State() State { return e.state }

// Method returns the declaration of the current or last visited method.
func (e *Engine) Method() MethodInfo { return e.method }

// Stack returns the operand stack, or nil outside a method body. The read
// accessors of a nil stack report it as empty.
func (e *Engine) Stack() *Stack {
	if e.state != InCode {
		return nil
	}
	return e.stack
}

// Locals returns the parameter slot layout of the current method. It is nil
// until code begins.
func (e *Engine) Locals() *LocalSlots { return e.locals }

// ReturnValue returns the value consumed by the last value-returning
// instruction of the current or last method.
func (e *Engine) ReturnValue() (types.Value, bool) {
	if e.ret == nil {
		return types.Value{}, false
	}
	return *e.ret, true
}

// Err returns the error that stopped the current method, if any.
func (e *Engine) Err() error { return e.err }

// Instructions returns the number of instruction events seen in the current
// method body.
func (e *Engine) Instructions() int { return e.index }

func (e *Engine) unexpected(event string) error {
	return &ErrUnexpectedEventError{Event: event, State: e.state}
}

func (e *Engine) debugging() bool {
	return e.cfg.Debug || debug.Enabled()
}

func (e *Engine) releaseStack() {
	if e.stack != nil {
		returnStack(e.stack)
		e.stack = nil
	}
}

// VisitMethod starts a method and discards everything known about the
// previous one, including a sticky error.
func (e *Engine) VisitMethod(access AccessFlags, name, desc, signature string, exceptions []string) error {
	if e.next != nil {
		if err := e.next.VisitMethod(access, name, desc, signature, exceptions); err != nil {
			return err
		}
	}
	e.releaseStack()
	e.state = InMethod
	e.method = MethodInfo{Access: access, Name: name, Descriptor: desc, Signature: signature, Exceptions: exceptions}
	e.desc, e.params, e.locals = nil, nil, nil
	e.stored, e.args, e.ret = nil, nil, nil
	e.sites, e.index, e.err = 0, 0, nil

	if e.cfg.Tracer != nil && e.cfg.Tracer.OnMethod != nil {
		e.cfg.Tracer.OnMethod(e.method)
	}
	d, err := descriptor.Lookup(desc)
	if err != nil {
		e.err = fmt.Errorf("method %s: %w", name, err)
		return e.err
	}
	e.desc = d
	if e.debugging() {
		log.Debug("Visiting method", "name", name, "desc", desc, "access", access)
	}
	return nil
}

// VisitParameter records the name of the next declared parameter.
func (e *Engine) VisitParameter(name string, access AccessFlags) error {
	if e.state != InMethod {
		return e.unexpected("parameter")
	}
	if e.next != nil {
		if err := e.next.VisitParameter(name, access); err != nil {
			return err
		}
	}
	if e.err != nil {
		return e.err
	}
	if len(e.params) == len(e.desc.Params) {
		e.err = fmt.Errorf("method %s: parameter %q: %w", e.method, name, ErrTooManyParameters)
		return e.err
	}
	e.params = append(e.params, name)
	return nil
}

// VisitCode begins the method body and lays out the parameter slots.
func (e *Engine) VisitCode() error {
	if e.state != InMethod {
		return e.unexpected("code")
	}
	if e.next != nil {
		if err := e.next.VisitCode(); err != nil {
			return err
		}
	}
	if e.err != nil {
		return e.err
	}
	locals, err := newLocalSlots(e.method.Access.IsStatic(), e.desc, e.params)
	if err != nil {
		e.err = err
		return err
	}
	e.locals = locals
	e.stack = newstack()
	if e.cfg.TrackLocals {
		e.stored = make(map[int]types.Value)
	}
	e.state = InCode
	return nil
}

// VisitLabel marks a jump target. Control may merge here, so values
// remembered for local slots are forgotten.
func (e *Engine) VisitLabel(label *Label) error {
	if e.state != InCode {
		return e.unexpected("label")
	}
	if e.next != nil {
		if err := e.next.VisitLabel(label); err != nil {
			return err
		}
	}
	if e.err != nil {
		return e.err
	}
	if e.stored != nil {
		clear(e.stored)
	}
	return nil
}

// VisitInstruction applies the stack effect of ins. After the first failure
// the method is dead and every further instruction returns the same error.
func (e *Engine) VisitInstruction(ins Instruction) error {
	if e.state != InCode {
		return e.unexpected("instruction")
	}
	if e.next != nil {
		if err := e.next.VisitInstruction(ins); err != nil {
			return err
		}
	}
	if e.err != nil {
		return e.err
	}
	index := e.index
	e.index++

	if err := e.apply(index, ins); err != nil {
		e.err = err
		faultCount.Inc(1)
		if e.cfg.Tracer != nil && e.cfg.Tracer.OnFault != nil {
			e.cfg.Tracer.OnFault(index, ins, e.stack, err)
		}
		if e.debugging() {
			log.Warn("Stack simulation failed", "method", e.method, "index", index, "insn", ins, "err", err)
		}
		return err
	}
	instructionCount.Inc(1)
	if e.cfg.Tracer != nil && e.cfg.Tracer.OnOpcode != nil {
		e.cfg.Tracer.OnOpcode(index, ins, e.stack)
	}
	if e.debugging() {
		debug.TraceBy(e.sample, "Applied instruction", "method", e.method, "index", index, "insn", ins, "depth", e.stack.Len(), "stack", e.stack)
	}
	return nil
}

func (e *Engine) apply(index int, ins Instruction) error {
	if ins == nil {
		return malformedInsn(NOP, "nil instruction")
	}
	op := ins.Opcode()
	operation := instructionSet[op]
	if operation == nil {
		return &ErrInvalidOpCodeError{opcode: op}
	}
	if ins.Form() != operation.form {
		return malformedInsn(op, "delivered as %v instruction, want %v", ins.Form(), operation.form)
	}
	if operation.dynamic {
		return underflowAt(op, index, operation.execute(e, ins))
	}
	args, err := e.stack.popValues(operation.pops)
	if err != nil {
		return underflowAt(op, index, err)
	}
	e.args = args
	if err := operation.execute(e, ins); err != nil {
		e.stack.pushValues(args...)
		return underflowAt(op, index, err)
	}
	e.args = nil
	return nil
}

// underflowAt attributes a bare stack underflow to the failing instruction.
func underflowAt(op OpCode, index int, err error) error {
	var under *ErrStackUnderflow
	if err != nil && errors.As(err, &under) && err == error(under) {
		return &ErrOpUnderflow{Op: op, Index: index, Err: under}
	}
	return err
}

// VisitEnd finishes the method. It reports the sticky error, if any.
func (e *Engine) VisitEnd() error {
	if e.state == Unattached {
		return e.unexpected("end")
	}
	if e.next != nil {
		if err := e.next.VisitEnd(); err != nil {
			return err
		}
	}
	if e.state == InCode {
		if e.cfg.Tracer != nil && e.cfg.Tracer.OnCodeEnd != nil {
			e.cfg.Tracer.OnCodeEnd(e.method, e.stack, e.ret)
		}
		if e.debugging() {
			log.Debug("Method finished", "method", e.method, "insns", e.index, "depth", e.stack.Len(), "err", e.err)
		}
		methodCount.Inc(1)
		e.releaseStack()
	}
	e.state = Unattached
	return e.err
}

// initialize marks every copy of the reference allocated at site as
// constructed.
func (e *Engine) initialize(site int) {
	for i, v := range e.stack.data {
		if v.Site() == site {
			e.stack.data[i] = v.Initialized()
		}
	}
	for slot, v := range e.stored {
		if v.Site() == site {
			e.stored[slot] = v.Initialized()
		}
	}
}

func (e *Engine) tracked(slot int) (types.Value, bool) {
	if e.stored == nil {
		return types.Value{}, false
	}
	v, ok := e.stored[slot]
	return v, ok
}

func (e *Engine) record(slot int, v types.Value) {
	if e.stored == nil {
		return
	}
	if prev, ok := e.stored[slot-1]; ok && prev.Category() == 2 {
		delete(e.stored, slot-1)
	}
	e.stored[slot] = v
	if v.Category() == 2 {
		delete(e.stored, slot+1)
	}
}
