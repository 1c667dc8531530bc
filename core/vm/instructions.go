// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm

import (
	"fmt"
	"math"

	"github.com/jvmstack/jvmstack/core/types"
	"github.com/jvmstack/jvmstack/descriptor"
)

// Execution functions of fixed operations find their operands, bottom first,
// in e.args; the engine has already removed them from the stack and puts them
// back if the function fails. Dynamic operations inspect the stack themselves
// and must not modify it before they know they will succeed.

func opNop(e *Engine, ins Instruction) error {
	return nil
}

func opDiscard(e *Engine, ins Instruction) error {
	return nil
}

func makeConst(sig string, c types.Constant) executionFunc {
	return func(e *Engine, ins Instruction) error {
		e.stack.Push(types.Const(sig, c))
		return nil
	}
}

func makeResult(sig string) executionFunc {
	return func(e *Engine, ins Instruction) error {
		e.stack.Push(types.Typed(sig))
		return nil
	}
}

func opBipush(e *Engine, ins Instruction) error {
	v := ins.(IntInsn).Operand
	if v < math.MinInt8 || v > math.MaxInt8 {
		return malformedInsn(BIPUSH, "operand %d out of byte range", v)
	}
	e.stack.Push(types.Const(descriptor.Int, types.Int32(int32(v))))
	return nil
}

func opSipush(e *Engine, ins Instruction) error {
	v := ins.(IntInsn).Operand
	if v < math.MinInt16 || v > math.MaxInt16 {
		return malformedInsn(SIPUSH, "operand %d out of short range", v)
	}
	e.stack.Push(types.Const(descriptor.Int, types.Int32(int32(v))))
	return nil
}

func opLdc(e *Engine, ins Instruction) error {
	ldc := ins.(LdcInsn)
	var v types.Value
	switch c := ldc.Value.(type) {
	case string:
		v = types.Const(descriptor.String, types.Text(c))
	case int32:
		v = types.Const(descriptor.Int, types.Int32(c))
	case float32:
		v = types.Const(descriptor.Float, types.Float32(c))
	case int64:
		v = types.Const(descriptor.Long, types.Int64(c))
	case float64:
		v = types.Const(descriptor.Double, types.Float64(c))
	default:
		// Class literals, method handles, method types and dynamic
		// constants carry no type we model.
		v = types.Unknown()
	}
	if wide := v.Category() == 2; wide != (ldc.Opcode() == LDC2_W) {
		return malformedInsn(ldc.Opcode(), "constant %v has the wrong category", ldc.Value)
	}
	e.stack.Push(v)
	return nil
}

// slotOf returns the local variable index of a load or store. Short forms
// carry it in the opcode.
func slotOf(ins Instruction, implied int) (int, error) {
	if implied >= 0 {
		return implied, nil
	}
	slot := ins.(VarInsn).Var
	if slot < 0 || slot > math.MaxUint16 {
		return 0, malformedInsn(ins.Opcode(), "local variable index %d out of range", slot)
	}
	return slot, nil
}

func makeLoad(kind string, implied int) executionFunc {
	return func(e *Engine, ins Instruction) error {
		slot, err := slotOf(ins, implied)
		if err != nil {
			return err
		}
		if v, ok := e.tracked(slot); ok {
			e.stack.Push(v)
			return nil
		}
		if p, ok := e.locals.Lookup(slot); ok {
			e.stack.Push(types.Typed(p.Signature))
			return nil
		}
		e.stack.Push(types.Typed(kind))
		return nil
	}
}

func makeStore(implied int) executionFunc {
	return func(e *Engine, ins Instruction) error {
		slot, err := slotOf(ins, implied)
		if err != nil {
			return err
		}
		if e.cfg.TrackLocals {
			e.record(slot, e.args[0])
		}
		return nil
	}
}

func opIinc(e *Engine, ins Instruction) error {
	iinc := ins.(IincInsn)
	if iinc.Var < 0 || iinc.Var > math.MaxUint16 {
		return malformedInsn(IINC, "local variable index %d out of range", iinc.Var)
	}
	if iinc.Increment < math.MinInt16 || iinc.Increment > math.MaxInt16 {
		return malformedInsn(IINC, "increment %d out of range", iinc.Increment)
	}
	v, ok := e.tracked(iinc.Var)
	if !ok {
		return nil
	}
	if c, ok := v.Constant().Int(); ok {
		e.record(iinc.Var, types.Const(descriptor.Int, types.Int32(c+int32(iinc.Increment))))
	} else {
		e.record(iinc.Var, types.Typed(descriptor.Int))
	}
	return nil
}

func makeArrayLoad(kind string) executionFunc {
	return func(e *Engine, ins Instruction) error {
		array := e.args[0]
		elem, known := descriptor.ElementType(array.Sig())
		switch {
		case kind == descriptor.Object && known && descriptor.IsReference(elem):
			e.stack.Push(types.Typed(elem))
		case kind == descriptor.Byte && known && elem == descriptor.Boolean:
			e.stack.Push(types.Typed(descriptor.Boolean))
		default:
			e.stack.Push(types.Typed(kind))
		}
		return nil
	}
}

func opPop2(e *Engine, ins Instruction) error {
	n, err := e.stack.entries(2)
	if err != nil {
		return err
	}
	return e.stack.PopN(n)
}

// makeDup returns the execution function of the category dependent dup forms.
// The top words are copied and the copy is inserted below the next under
// words. Long and double values count as two words.
func makeDup(top, under int) executionFunc {
	return func(e *Engine, ins Instruction) error {
		n, err := e.stack.entries(top)
		if err != nil {
			return err
		}
		m := 0
		if under > 0 {
			if m, err = e.stack.entriesBelow(n, under); err != nil {
				return err
			}
		}
		moved, err := e.stack.popValues(n + m)
		if err != nil {
			return err
		}
		copied := moved[m:]
		e.stack.pushValues(copied...)
		e.stack.pushValues(moved...)
		return nil
	}
}

func opDup(e *Engine, ins Instruction) error {
	e.stack.Push(e.args[0])
	e.stack.Push(e.args[0])
	return nil
}

func opDupX1(e *Engine, ins Instruction) error {
	e.stack.Push(e.args[1])
	e.stack.Push(e.args[0])
	e.stack.Push(e.args[1])
	return nil
}

func opSwap(e *Engine, ins Instruction) error {
	e.stack.Push(e.args[1])
	e.stack.Push(e.args[0])
	return nil
}

func opJsr(e *Engine, ins Instruction) error {
	if ins.(JumpInsn).Label == nil {
		return malformedInsn(ins.Opcode(), "missing target label")
	}
	e.stack.Push(types.ReturnAddress())
	return nil
}

func opReturnValue(e *Engine, ins Instruction) error {
	v := e.args[0]
	e.ret = &v
	return nil
}

func opGetField(e *Engine, ins Instruction) error {
	f := ins.(FieldInsn)
	if err := descriptor.ValidateField(f.Descriptor); err != nil {
		return fmt.Errorf("%v %s.%s: %w", f.Op, f.Owner, f.Name, err)
	}
	e.stack.Push(types.FromField(types.FieldRef{Owner: f.Owner, Name: f.Name, Descriptor: f.Descriptor}))
	return nil
}

func opInvoke(e *Engine, ins Instruction) error {
	m := ins.(MethodInsn)
	desc, err := descriptor.Lookup(m.Descriptor)
	if err != nil {
		return fmt.Errorf("%v %s.%s: %w", m.Op, m.Owner, m.Name, err)
	}
	n := len(desc.Params)
	if m.Op != INVOKESTATIC {
		n++
	}
	if err := e.stack.require(n); err != nil {
		return err
	}
	if m.Op == INVOKESPECIAL && m.Name == "<init>" {
		recv, _ := e.stack.Peek(len(desc.Params))
		e.stack.PopN(n)
		if recv.IsUninitialized() {
			e.initialize(recv.Site())
		}
	} else {
		e.stack.PopN(n)
	}
	if !desc.IsVoid() {
		e.stack.Push(types.Typed(desc.Return))
	}
	return nil
}

func opInvokeDynamic(e *Engine, ins Instruction) error {
	indy := ins.(InvokeDynamicInsn)
	desc, err := descriptor.Lookup(indy.Descriptor)
	if err != nil {
		return fmt.Errorf("invokedynamic %s: %w", indy.Name, err)
	}
	if err := e.stack.PopN(len(desc.Params)); err != nil {
		return err
	}
	if !desc.IsVoid() {
		e.stack.Push(types.Typed(desc.Return))
	}
	return nil
}

func opNew(e *Engine, ins Instruction) error {
	t := ins.(TypeInsn)
	if t.Type == "" {
		return malformedInsn(NEW, "missing class name")
	}
	e.sites++
	e.stack.Push(types.Uninitialized(descriptor.ObjectType(t.Type), e.sites))
	return nil
}

// newarray element codes, indexed by atype.
var primitiveArrays = map[int]string{
	4:  "[" + descriptor.Boolean,
	5:  "[" + descriptor.Char,
	6:  "[" + descriptor.Float,
	7:  "[" + descriptor.Double,
	8:  "[" + descriptor.Byte,
	9:  "[" + descriptor.Short,
	10: "[" + descriptor.Int,
	11: "[" + descriptor.Long,
}

func opNewArray(e *Engine, ins Instruction) error {
	atype := ins.(IntInsn).Operand
	sig, ok := primitiveArrays[atype]
	if !ok {
		return malformedInsn(NEWARRAY, "invalid array type %d", atype)
	}
	e.stack.Push(types.Typed(sig))
	return nil
}

func opANewArray(e *Engine, ins Instruction) error {
	t := ins.(TypeInsn)
	if t.Type == "" {
		return malformedInsn(ANEWARRAY, "missing element type")
	}
	e.stack.Push(types.Typed(descriptor.ArrayOf(descriptor.ObjectType(t.Type))))
	return nil
}

func opCheckcast(e *Engine, ins Instruction) error {
	t := ins.(TypeInsn)
	if t.Type == "" {
		return malformedInsn(CHECKCAST, "missing target type")
	}
	e.stack.Push(e.args[0].WithSignature(descriptor.ObjectType(t.Type)))
	return nil
}

func opMultiANewArray(e *Engine, ins Instruction) error {
	m := ins.(MultiANewArrayInsn)
	if err := descriptor.ValidateField(m.Descriptor); err != nil {
		return fmt.Errorf("multianewarray: %w", err)
	}
	dims := 0
	for dims < len(m.Descriptor) && m.Descriptor[dims] == '[' {
		dims++
	}
	if m.Dims < 1 || m.Dims > dims {
		return malformedInsn(MULTIANEWARRAY, "%d dimensions for %s", m.Dims, m.Descriptor)
	}
	if err := e.stack.PopN(m.Dims); err != nil {
		return err
	}
	e.stack.Push(types.Typed(m.Descriptor))
	return nil
}
