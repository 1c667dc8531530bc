// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm

import (
	"fmt"

	"github.com/jvmstack/jvmstack/core/types"
	"github.com/jvmstack/jvmstack/descriptor"
)

type executionFunc func(e *Engine, ins Instruction) error

type operation struct {
	execute executionFunc
	form    Form

	// pops and pushes are the fixed number of stack entries the operation
	// consumes and produces. They are meaningless when dynamic is set, in
	// which case execute checks the stack itself.
	pops    int
	pushes  int
	dynamic bool
}

// JumpTable contains the operation for every opcode of the instruction set.
type JumpTable [256]*operation

var instructionSet = newInstructionSet()

// validate panics if a defined opcode has no operation, or an undefined one
// has.
func validate(jt JumpTable) JumpTable {
	for i, op := range jt {
		defined := OpCode(i).IsDefined()
		if op == nil && defined {
			panic(fmt.Sprintf("op %v is not set", OpCode(i)))
		}
		if op != nil && !defined {
			panic(fmt.Sprintf("op %#x is set but not defined", i))
		}
		if op != nil && op.execute == nil {
			panic(fmt.Sprintf("op %v has no execute function", OpCode(i)))
		}
	}
	return jt
}

// Form returns the instruction shape op is delivered in. Undefined opcodes
// report FormInsn.
func (op OpCode) Form() Form {
	if entry := instructionSet[op]; entry != nil {
		return entry.form
	}
	return FormInsn
}

func fixed(form Form, pops, pushes int, fn executionFunc) *operation {
	return &operation{execute: fn, form: form, pops: pops, pushes: pushes}
}

func dynamic(form Form, fn executionFunc) *operation {
	return &operation{execute: fn, form: form, dynamic: true}
}

func newInstructionSet() JumpTable {
	var tbl JumpTable

	tbl[NOP] = fixed(FormInsn, 0, 0, opNop)
	tbl[ACONST_NULL] = fixed(FormInsn, 0, 1, makeConst("", types.Null()))
	for op, v := ICONST_M1, int32(-1); op <= ICONST_5; op, v = op+1, v+1 {
		tbl[op] = fixed(FormInsn, 0, 1, makeConst(descriptor.Int, types.Int32(v)))
	}
	tbl[LCONST_0] = fixed(FormInsn, 0, 1, makeConst(descriptor.Long, types.Int64(0)))
	tbl[LCONST_1] = fixed(FormInsn, 0, 1, makeConst(descriptor.Long, types.Int64(1)))
	tbl[FCONST_0] = fixed(FormInsn, 0, 1, makeConst(descriptor.Float, types.Float32(0)))
	tbl[FCONST_1] = fixed(FormInsn, 0, 1, makeConst(descriptor.Float, types.Float32(1)))
	tbl[FCONST_2] = fixed(FormInsn, 0, 1, makeConst(descriptor.Float, types.Float32(2)))
	tbl[DCONST_0] = fixed(FormInsn, 0, 1, makeConst(descriptor.Double, types.Float64(0)))
	tbl[DCONST_1] = fixed(FormInsn, 0, 1, makeConst(descriptor.Double, types.Float64(1)))
	tbl[BIPUSH] = fixed(FormInt, 0, 1, opBipush)
	tbl[SIPUSH] = fixed(FormInt, 0, 1, opSipush)
	tbl[LDC] = fixed(FormLdc, 0, 1, opLdc)
	tbl[LDC_W] = fixed(FormLdc, 0, 1, opLdc)
	tbl[LDC2_W] = fixed(FormLdc, 0, 1, opLdc)

	// Loads and stores, in the order int, long, float, double, reference.
	kinds := []string{descriptor.Int, descriptor.Long, descriptor.Float, descriptor.Double, ""}
	for k, sig := range kinds {
		tbl[ILOAD+OpCode(k)] = fixed(FormVar, 0, 1, makeLoad(sig, -1))
		tbl[ISTORE+OpCode(k)] = fixed(FormVar, 1, 0, makeStore(-1))
		for n := 0; n < 4; n++ {
			tbl[ILOAD_0+OpCode(4*k+n)] = fixed(FormInsn, 0, 1, makeLoad(sig, n))
			tbl[ISTORE_0+OpCode(4*k+n)] = fixed(FormInsn, 1, 0, makeStore(n))
		}
	}

	// Array element access, in the order int, long, float, double,
	// reference, byte/boolean, char, short.
	elems := []string{
		descriptor.Int, descriptor.Long, descriptor.Float, descriptor.Double,
		descriptor.Object, descriptor.Byte, descriptor.Char, descriptor.Short,
	}
	for k, sig := range elems {
		tbl[IALOAD+OpCode(k)] = fixed(FormInsn, 2, 1, makeArrayLoad(sig))
		tbl[IASTORE+OpCode(k)] = fixed(FormInsn, 3, 0, opDiscard)
	}

	tbl[POP] = fixed(FormInsn, 1, 0, opDiscard)
	tbl[POP2] = dynamic(FormInsn, opPop2)
	tbl[DUP] = fixed(FormInsn, 1, 2, opDup)
	tbl[DUP_X1] = fixed(FormInsn, 2, 3, opDupX1)
	tbl[DUP_X2] = dynamic(FormInsn, makeDup(1, 2))
	tbl[DUP2] = dynamic(FormInsn, makeDup(2, 0))
	tbl[DUP2_X1] = dynamic(FormInsn, makeDup(2, 1))
	tbl[DUP2_X2] = dynamic(FormInsn, makeDup(2, 2))
	tbl[SWAP] = fixed(FormInsn, 2, 2, opSwap)

	// Arithmetic. Each group of four runs int, long, float, double.
	for _, base := range []OpCode{IADD, ISUB, IMUL, IDIV, IREM} {
		for k, sig := range kinds[:4] {
			tbl[base+OpCode(k)] = fixed(FormInsn, 2, 1, makeResult(sig))
		}
	}
	for k, sig := range kinds[:4] {
		tbl[INEG+OpCode(k)] = fixed(FormInsn, 1, 1, makeResult(sig))
	}
	// Shifts and bitwise operations alternate int and long.
	for op := ISHL; op <= LXOR; op++ {
		sig := descriptor.Int
		if (op-ISHL)%2 == 1 {
			sig = descriptor.Long
		}
		tbl[op] = fixed(FormInsn, 2, 1, makeResult(sig))
	}
	tbl[IINC] = fixed(FormIinc, 0, 0, opIinc)

	conversions := map[OpCode]string{
		I2L: descriptor.Long, I2F: descriptor.Float, I2D: descriptor.Double,
		L2I: descriptor.Int, L2F: descriptor.Float, L2D: descriptor.Double,
		F2I: descriptor.Int, F2L: descriptor.Long, F2D: descriptor.Double,
		D2I: descriptor.Int, D2L: descriptor.Long, D2F: descriptor.Float,
		I2B: descriptor.Byte, I2C: descriptor.Char, I2S: descriptor.Short,
	}
	for op, sig := range conversions {
		tbl[op] = fixed(FormInsn, 1, 1, makeResult(sig))
	}
	for op := LCMP; op <= DCMPG; op++ {
		tbl[op] = fixed(FormInsn, 2, 1, makeResult(descriptor.Int))
	}

	for op := IFEQ; op <= IFLE; op++ {
		tbl[op] = fixed(FormJump, 1, 0, opDiscard)
	}
	for op := IF_ICMPEQ; op <= IF_ACMPNE; op++ {
		tbl[op] = fixed(FormJump, 2, 0, opDiscard)
	}
	tbl[IFNULL] = fixed(FormJump, 1, 0, opDiscard)
	tbl[IFNONNULL] = fixed(FormJump, 1, 0, opDiscard)
	tbl[GOTO] = fixed(FormJump, 0, 0, opNop)
	tbl[GOTO_W] = fixed(FormJump, 0, 0, opNop)
	tbl[JSR] = fixed(FormJump, 0, 1, opJsr)
	tbl[JSR_W] = fixed(FormJump, 0, 1, opJsr)
	tbl[RET] = fixed(FormVar, 0, 0, opNop)
	tbl[TABLESWITCH] = fixed(FormTableSwitch, 1, 0, opDiscard)
	tbl[LOOKUPSWITCH] = fixed(FormLookupSwitch, 1, 0, opDiscard)

	for op := IRETURN; op <= ARETURN; op++ {
		tbl[op] = fixed(FormInsn, 1, 0, opReturnValue)
	}
	tbl[RETURN] = fixed(FormInsn, 0, 0, opNop)

	tbl[GETSTATIC] = fixed(FormField, 0, 1, opGetField)
	tbl[PUTSTATIC] = fixed(FormField, 1, 0, opDiscard)
	tbl[GETFIELD] = fixed(FormField, 1, 1, opGetField)
	tbl[PUTFIELD] = fixed(FormField, 2, 0, opDiscard)

	tbl[INVOKEVIRTUAL] = dynamic(FormMethod, opInvoke)
	tbl[INVOKESPECIAL] = dynamic(FormMethod, opInvoke)
	tbl[INVOKESTATIC] = dynamic(FormMethod, opInvoke)
	tbl[INVOKEINTERFACE] = dynamic(FormMethod, opInvoke)
	tbl[INVOKEDYNAMIC] = dynamic(FormInvokeDynamic, opInvokeDynamic)

	tbl[NEW] = fixed(FormType, 0, 1, opNew)
	tbl[NEWARRAY] = fixed(FormInt, 1, 1, opNewArray)
	tbl[ANEWARRAY] = fixed(FormType, 1, 1, opANewArray)
	tbl[ARRAYLENGTH] = fixed(FormInsn, 1, 1, makeResult(descriptor.Int))
	tbl[ATHROW] = fixed(FormInsn, 1, 0, opDiscard)
	tbl[CHECKCAST] = fixed(FormType, 1, 1, opCheckcast)
	tbl[INSTANCEOF] = fixed(FormType, 1, 1, makeResult(descriptor.Boolean))
	tbl[MONITORENTER] = fixed(FormInsn, 1, 0, opDiscard)
	tbl[MONITOREXIT] = fixed(FormInsn, 1, 0, opDiscard)

	tbl[WIDE] = fixed(FormInsn, 0, 0, opNop)
	tbl[MULTIANEWARRAY] = dynamic(FormMultiANewArray, opMultiANewArray)

	return validate(tbl)
}
