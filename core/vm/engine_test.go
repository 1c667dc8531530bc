// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm_test

import (
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/jvmstack/jvmstack/core/types"
	"github.com/jvmstack/jvmstack/core/vm"
	"github.com/jvmstack/jvmstack/descriptor"
	"github.com/jvmstack/jvmstack/internal/vmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	final  []types.Value
	ret    types.Value
	hasRet bool
	err    error
	faults int
}

// run replays m into a fresh engine and captures the stack at code end.
func run(t *testing.T, cfg vm.Config, m vmtest.Method) outcome {
	t.Helper()
	var out outcome
	cfg.Tracer = &vm.Hooks{
		OnFault: func(int, vm.Instruction, vm.StackView, error) { out.faults++ },
		OnCodeEnd: func(_ vm.MethodInfo, st vm.StackView, ret *types.Value) {
			out.final = append([]types.Value(nil), st.Data()...)
			if ret != nil {
				out.ret, out.hasRet = *ret, true
			}
		},
	}
	out.err = vmtest.Replay(vm.NewEngine(cfg, nil), m, false)
	return out
}

// begin returns an engine positioned inside the body of a method.
func begin(t *testing.T, cfg vm.Config, access vm.AccessFlags, desc string, params ...string) *vm.Engine {
	t.Helper()
	e := vm.NewEngine(cfg, nil)
	require.NoError(t, e.VisitMethod(access, "m", desc, "", nil))
	for _, p := range params {
		require.NoError(t, e.VisitParameter(p, 0))
	}
	require.NoError(t, e.VisitCode())
	return e
}

func apply(t *testing.T, e *vm.Engine, code ...vm.Instruction) {
	t.Helper()
	for _, ins := range code {
		require.NoError(t, e.VisitInstruction(ins), "%v\n%s", ins, spew.Sdump(e.Stack().Data()))
	}
}

func top(t *testing.T, e *vm.Engine) types.Value {
	t.Helper()
	v, err := e.Stack().Peek(0)
	require.NoError(t, err)
	return v
}

func TestIconstRoundTrip(t *testing.T) {
	for _, cfg := range vmtest.Configs() {
		t.Run(vmtest.Name(cfg), func(t *testing.T) {
			for op := vm.ICONST_M1; op <= vm.ICONST_5; op++ {
				e := begin(t, cfg, vm.AccStatic, "()V")
				apply(t, e, vm.Insn{Op: op})

				v := top(t, e)
				c, ok := v.Constant().Int()
				require.True(t, ok, "%v", op)
				assert.Equal(t, int32(op)-int32(vm.ICONST_0), c)
				assert.Equal(t, descriptor.Int, v.Sig())
			}
		})
	}
}

func TestAddition(t *testing.T) {
	for _, cfg := range vmtest.Configs() {
		t.Run(vmtest.Name(cfg), func(t *testing.T) {
			e := begin(t, cfg, vm.AccStatic, "()V")
			apply(t, e, vm.Insn{Op: vm.ICONST_3}, vm.Insn{Op: vm.ICONST_4}, vm.Insn{Op: vm.IADD})

			require.Equal(t, 1, e.Stack().Len())
			v := top(t, e)
			assert.Equal(t, descriptor.Int, v.Sig())
			assert.False(t, v.Constant().Known())
		})
	}
}

func TestStraightLineReturns(t *testing.T) {
	tests := []struct {
		name string
		desc string
		code []any
		ret  string // "" for void
	}{
		{"void", "()V", vmtest.Ops(vm.RETURN), ""},
		{"int", "()I", vmtest.Ops(vm.ICONST_3, vm.ICONST_4, vm.IADD, vm.IRETURN), descriptor.Int},
		{"long", "()J", vmtest.Ops(vm.LCONST_1, vm.LRETURN), descriptor.Long},
		{"double", "(D)D", vmtest.Ops(vm.DLOAD_0, vm.DCONST_1, vm.DMUL, vm.DRETURN), descriptor.Double},
		{"null", "()Ljava/lang/Object;", vmtest.Ops(vm.ACONST_NULL, vm.ARETURN), ""},
	}
	for _, cfg := range vmtest.Configs() {
		for _, tt := range tests {
			t.Run(vmtest.Name(cfg)+"/"+tt.name, func(t *testing.T) {
				out := run(t, cfg, vmtest.Method{Access: vm.AccStatic, Name: tt.name, Descriptor: tt.desc, Code: tt.code})
				require.NoError(t, out.err)
				assert.Empty(t, out.final, spew.Sdump(out.final))

				if tt.desc[len(tt.desc)-1] == 'V' {
					assert.False(t, out.hasRet)
					return
				}
				require.True(t, out.hasRet)
				assert.Equal(t, tt.ret, out.ret.Sig())
			})
		}
	}
}

// test1(int, String) returns its second argument.
func TestReturnArgument(t *testing.T) {
	bodies := map[string][]any{
		"short": {vm.Insn{Op: vm.ALOAD_2}, vm.Insn{Op: vm.ARETURN}},
		"long":  {vm.VarInsn{Op: vm.ALOAD, Var: 2}, vm.Insn{Op: vm.ARETURN}},
	}
	for _, cfg := range vmtest.Configs() {
		for name, code := range bodies {
			t.Run(vmtest.Name(cfg)+"/"+name, func(t *testing.T) {
				out := run(t, cfg, vmtest.Method{
					Access:     vm.AccPublic,
					Name:       "test1",
					Descriptor: "(ILjava/lang/String;)Ljava/lang/Object;",
					Params:     []string{"i", "s"},
					Code:       code,
				})
				require.NoError(t, out.err)
				assert.Empty(t, out.final)
				require.True(t, out.hasRet)
				assert.Equal(t, descriptor.String, out.ret.Sig())
			})
		}
	}
}

func TestLocalSlots(t *testing.T) {
	e := begin(t, vm.Config{}, vm.AccPublic, "(IJLjava/lang/Object;)V", "i", "l", "o")
	locals := e.Locals()
	assert.Equal(t, 1, locals.FirstParameterSlot())

	want := []types.LocalSlot{
		{Slot: 1, Name: "i", Signature: "I"},
		{Slot: 2, Name: "l", Signature: "J"},
		{Slot: 4, Name: "o", Signature: "Ljava/lang/Object;"},
	}
	assert.Equal(t, want, locals.Slots())

	l, ok := locals.Lookup(2)
	require.True(t, ok)
	assert.True(t, l.IsWide())
	_, ok = locals.Lookup(3)
	assert.False(t, ok)
	_, ok = locals.Lookup(0)
	assert.False(t, ok)

	static := begin(t, vm.Config{}, vm.AccPublic|vm.AccStatic, "(IJLjava/lang/Object;)V")
	assert.Equal(t, 0, static.Locals().FirstParameterSlot())
	o, ok := static.Locals().Lookup(3)
	require.True(t, ok)
	assert.Equal(t, "", o.Name)
	assert.Equal(t, "Ljava/lang/Object;", o.Signature)
}

func TestTooManyParameters(t *testing.T) {
	e := vm.NewEngine(vm.Config{}, nil)
	require.NoError(t, e.VisitMethod(vm.AccStatic, "m", "(I)V", "", nil))
	require.NoError(t, e.VisitParameter("a", 0))
	err := e.VisitParameter("b", 0)
	assert.True(t, errors.Is(err, vm.ErrTooManyParameters))
	assert.Equal(t, err, e.VisitCode())
}

func TestFieldProvenance(t *testing.T) {
	for _, cfg := range vmtest.Configs() {
		t.Run(vmtest.Name(cfg), func(t *testing.T) {
			e := begin(t, cfg, vm.AccStatic, "()V")
			apply(t, e, vm.FieldInsn{Op: vm.GETSTATIC, Owner: "java/lang/System", Name: "out", Descriptor: "Ljava/io/PrintStream;"})

			ref, ok := top(t, e).Field()
			require.True(t, ok)
			assert.Equal(t, types.FieldRef{Owner: "java/lang/System", Name: "out", Descriptor: "Ljava/io/PrintStream;"}, ref)

			apply(t, e,
				vm.LdcInsn{Value: "hello"},
				vm.MethodInsn{Op: vm.INVOKEVIRTUAL, Owner: "java/io/PrintStream", Name: "println", Descriptor: "(Ljava/lang/String;)V"},
				vm.Insn{Op: vm.RETURN},
			)
			assert.True(t, e.Stack().IsEmpty())
		})
	}
}

func TestGetfieldReplacesReceiver(t *testing.T) {
	e := begin(t, vm.Config{}, vm.AccPublic, "()V")
	apply(t, e, vm.Insn{Op: vm.ALOAD_0}, vm.FieldInsn{Op: vm.GETFIELD, Owner: "Foo", Name: "count", Descriptor: "J"})
	require.Equal(t, 1, e.Stack().Len())
	v := top(t, e)
	assert.Equal(t, 2, v.Category())
	_, ok := v.Field()
	assert.True(t, ok)
}

func TestConstructorInitializesAllCopies(t *testing.T) {
	e := begin(t, vm.Config{}, vm.AccStatic, "()V")
	apply(t, e,
		vm.TypeInsn{Op: vm.NEW, Type: "java/lang/StringBuilder"},
		vm.Insn{Op: vm.DUP},
		vm.Insn{Op: vm.DUP},
	)
	assert.True(t, top(t, e).IsUninitialized())

	apply(t, e, vm.MethodInsn{Op: vm.INVOKESPECIAL, Owner: "java/lang/StringBuilder", Name: "<init>", Descriptor: "()V"})
	require.Equal(t, 2, e.Stack().Len())
	for _, v := range e.Stack().Data() {
		assert.False(t, v.IsUninitialized())
		assert.Equal(t, "Ljava/lang/StringBuilder;", v.Sig())
	}

	apply(t, e, vm.MethodInsn{Op: vm.INVOKEVIRTUAL, Owner: "java/lang/StringBuilder", Name: "toString", Descriptor: "()Ljava/lang/String;"})
	assert.Equal(t, descriptor.String, top(t, e).Sig())
}

func TestDupForms(t *testing.T) {
	tests := []struct {
		name string
		seed []vm.OpCode
		op   vm.OpCode
		want []string
	}{
		{"dup", []vm.OpCode{vm.ICONST_1}, vm.DUP, []string{"I", "I"}},
		{"dup_x1", []vm.OpCode{vm.FCONST_0, vm.ICONST_1}, vm.DUP_X1, []string{"I", "F", "I"}},
		{"dup_x2/1", []vm.OpCode{vm.FCONST_0, vm.FCONST_1, vm.ICONST_1}, vm.DUP_X2, []string{"I", "F", "F", "I"}},
		{"dup_x2/2", []vm.OpCode{vm.LCONST_0, vm.ICONST_1}, vm.DUP_X2, []string{"I", "J", "I"}},
		{"dup2/1", []vm.OpCode{vm.FCONST_0, vm.ICONST_1}, vm.DUP2, []string{"F", "I", "F", "I"}},
		{"dup2/2", []vm.OpCode{vm.DCONST_1}, vm.DUP2, []string{"D", "D"}},
		{"dup2_x1/1", []vm.OpCode{vm.ACONST_NULL, vm.FCONST_0, vm.ICONST_1}, vm.DUP2_X1, []string{"F", "I", "", "F", "I"}},
		{"dup2_x1/2", []vm.OpCode{vm.ICONST_1, vm.LCONST_1}, vm.DUP2_X1, []string{"J", "I", "J"}},
		{"dup2_x2/1", []vm.OpCode{vm.ICONST_0, vm.ICONST_1, vm.FCONST_0, vm.FCONST_1}, vm.DUP2_X2, []string{"F", "F", "I", "I", "F", "F"}},
		{"dup2_x2/2", []vm.OpCode{vm.ICONST_0, vm.ICONST_1, vm.LCONST_0}, vm.DUP2_X2, []string{"J", "I", "I", "J"}},
		{"dup2_x2/3", []vm.OpCode{vm.DCONST_0, vm.ICONST_0, vm.ICONST_1}, vm.DUP2_X2, []string{"I", "I", "D", "I", "I"}},
		{"dup2_x2/4", []vm.OpCode{vm.DCONST_0, vm.LCONST_0}, vm.DUP2_X2, []string{"J", "D", "J"}},
		{"pop2/1", []vm.OpCode{vm.ICONST_0, vm.ICONST_1}, vm.POP2, []string{}},
		{"pop2/2", []vm.OpCode{vm.ICONST_0, vm.LCONST_1}, vm.POP2, []string{"I"}},
		{"swap", []vm.OpCode{vm.ICONST_0, vm.FCONST_0}, vm.SWAP, []string{"F", "I"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := begin(t, vm.Config{}, vm.AccStatic, "()V")
			for _, op := range tt.seed {
				apply(t, e, vm.Insn{Op: op})
			}
			apply(t, e, vm.Insn{Op: tt.op})

			got := []string{}
			for _, v := range e.Stack().Data() {
				got = append(got, v.Sig())
			}
			assert.Equal(t, tt.want, got, spew.Sdump(e.Stack().Data()))
		})
	}
}

func TestDupCopiesConstants(t *testing.T) {
	e := begin(t, vm.Config{}, vm.AccStatic, "()V")
	apply(t, e, vm.IntInsn{Op: vm.BIPUSH, Operand: -100}, vm.Insn{Op: vm.DUP})
	a, _ := e.Stack().Peek(0)
	b, _ := e.Stack().Peek(1)
	assert.True(t, a.Equal(b))
	c, _ := a.Constant().Int()
	assert.Equal(t, int32(-100), c)
}

func TestArrays(t *testing.T) {
	e := begin(t, vm.Config{}, vm.AccStatic, "()V")
	apply(t, e, vm.Insn{Op: vm.ICONST_2}, vm.IntInsn{Op: vm.NEWARRAY, Operand: 4})
	assert.Equal(t, "[Z", top(t, e).Sig())
	apply(t, e, vm.Insn{Op: vm.ICONST_0}, vm.Insn{Op: vm.BALOAD})
	assert.Equal(t, "Z", top(t, e).Sig())

	apply(t, e, vm.TypeInsn{Op: vm.ANEWARRAY, Type: "java/lang/String"})
	assert.Equal(t, "[Ljava/lang/String;", top(t, e).Sig())
	apply(t, e, vm.Insn{Op: vm.ICONST_0}, vm.Insn{Op: vm.AALOAD})
	assert.Equal(t, descriptor.String, top(t, e).Sig())

	apply(t, e, vm.Insn{Op: vm.POP}, vm.Insn{Op: vm.ICONST_2}, vm.Insn{Op: vm.ICONST_3},
		vm.MultiANewArrayInsn{Descriptor: "[[[J", Dims: 2})
	assert.Equal(t, 1, e.Stack().Len())
	assert.Equal(t, "[[[J", top(t, e).Sig())

	apply(t, e, vm.Insn{Op: vm.ARRAYLENGTH})
	assert.Equal(t, descriptor.Int, top(t, e).Sig())
}

func TestCheckcastRetypes(t *testing.T) {
	e := begin(t, vm.Config{}, vm.AccStatic, "(Ljava/lang/Object;)V")
	apply(t, e, vm.Insn{Op: vm.ALOAD_0})
	assert.Equal(t, descriptor.Object, top(t, e).Sig())
	apply(t, e, vm.TypeInsn{Op: vm.CHECKCAST, Type: "java/lang/String"})
	assert.Equal(t, 1, e.Stack().Len())
	assert.Equal(t, descriptor.String, top(t, e).Sig())
	apply(t, e, vm.TypeInsn{Op: vm.CHECKCAST, Type: "[I"})
	assert.Equal(t, "[I", top(t, e).Sig())
	apply(t, e, vm.TypeInsn{Op: vm.INSTANCEOF, Type: "java/lang/String"})
	assert.Equal(t, descriptor.Boolean, top(t, e).Sig())
}

func TestInvokeDynamic(t *testing.T) {
	e := begin(t, vm.Config{}, vm.AccStatic, "(Ljava/lang/String;)V")
	apply(t, e, vm.Insn{Op: vm.ALOAD_0}, vm.InvokeDynamicInsn{
		Name:       "run",
		Descriptor: "(Ljava/lang/String;)Ljava/lang/Runnable;",
		Bootstrap:  vm.Handle{Tag: 6, Owner: "java/lang/invoke/LambdaMetafactory", Name: "metafactory"},
	})
	require.Equal(t, 1, e.Stack().Len())
	assert.Equal(t, "Ljava/lang/Runnable;", top(t, e).Sig())
}

func TestControlFlow(t *testing.T) {
	l := &vm.Label{Name: "L1"}
	e := begin(t, vm.Config{}, vm.AccStatic, "(II)V")
	apply(t, e, vm.Insn{Op: vm.ILOAD_0}, vm.JumpInsn{Op: vm.IFEQ, Label: l})
	assert.True(t, e.Stack().IsEmpty())
	apply(t, e, vm.Insn{Op: vm.ILOAD_0}, vm.Insn{Op: vm.ILOAD_1}, vm.JumpInsn{Op: vm.IF_ICMPGE, Label: l})
	assert.True(t, e.Stack().IsEmpty())
	apply(t, e, vm.JumpInsn{Op: vm.JSR, Label: l})
	assert.True(t, top(t, e).IsReturnAddress())
	apply(t, e, vm.Insn{Op: vm.ASTORE_3}, vm.VarInsn{Op: vm.RET, Var: 3}, vm.JumpInsn{Op: vm.GOTO, Label: l})
	assert.True(t, e.Stack().IsEmpty())
	require.NoError(t, e.VisitLabel(l))
	apply(t, e, vm.Insn{Op: vm.ILOAD_1}, vm.TableSwitchInsn{Min: 0, Max: 1, Default: l, Labels: []*vm.Label{l, l}})
	assert.True(t, e.Stack().IsEmpty())
}

func TestConversions(t *testing.T) {
	e := begin(t, vm.Config{}, vm.AccStatic, "()V")
	apply(t, e, vm.Insn{Op: vm.ICONST_1}, vm.Insn{Op: vm.I2S})
	assert.Equal(t, 1, e.Stack().Len())
	assert.Equal(t, descriptor.Short, top(t, e).Sig())
	apply(t, e, vm.Insn{Op: vm.I2L})
	assert.Equal(t, descriptor.Long, top(t, e).Sig())
	apply(t, e, vm.Insn{Op: vm.L2D}, vm.Insn{Op: vm.DCONST_0}, vm.Insn{Op: vm.DCMPL})
	assert.Equal(t, 1, e.Stack().Len())
	assert.Equal(t, descriptor.Int, top(t, e).Sig())
}

func TestLdcCategories(t *testing.T) {
	tests := []struct {
		value any
		sig   string
	}{
		{"text", descriptor.String},
		{int32(7), descriptor.Int},
		{float32(1.5), descriptor.Float},
		{int64(7), descriptor.Long},
		{float64(1.5), descriptor.Double},
		{vm.Handle{Tag: 6}, ""},
	}
	for _, tt := range tests {
		e := begin(t, vm.Config{}, vm.AccStatic, "()V")
		apply(t, e, vm.LdcInsn{Value: tt.value})
		v := top(t, e)
		assert.Equal(t, tt.sig, v.Sig(), "%v", tt.value)
		if tt.sig != "" {
			assert.Equal(t, tt.value, v.Constant().Interface())
		} else {
			assert.False(t, v.Constant().Known())
		}
	}

	e := begin(t, vm.Config{}, vm.AccStatic, "()V")
	err := e.VisitInstruction(vm.LdcInsn{Op: vm.LDC, Value: int64(1)})
	assert.True(t, errors.Is(err, vm.ErrMalformedInstruction))
}

func TestTrackLocals(t *testing.T) {
	code := []vm.Instruction{
		vm.Insn{Op: vm.ICONST_5},
		vm.Insn{Op: vm.ISTORE_1},
		vm.IincInsn{Var: 1, Increment: 2},
		vm.Insn{Op: vm.ILOAD_1},
	}

	e := begin(t, vm.Config{TrackLocals: true}, vm.AccStatic, "()V")
	apply(t, e, code...)
	c, ok := top(t, e).Constant().Int()
	require.True(t, ok)
	assert.Equal(t, int32(7), c)

	e = begin(t, vm.Config{}, vm.AccStatic, "()V")
	apply(t, e, code...)
	assert.Equal(t, descriptor.Int, top(t, e).Sig())
	assert.False(t, top(t, e).Constant().Known())

	// A label may merge control flow, so stored values are forgotten.
	e = begin(t, vm.Config{TrackLocals: true}, vm.AccStatic, "()V")
	apply(t, e, code[:3]...)
	require.NoError(t, e.VisitLabel(&vm.Label{Name: "L0"}))
	apply(t, e, code[3])
	assert.False(t, top(t, e).Constant().Known())
}

func TestTrackLocalsKeepsProvenance(t *testing.T) {
	e := begin(t, vm.Config{TrackLocals: true}, vm.AccStatic, "()V")
	ref := types.FieldRef{Owner: "java/lang/System", Name: "err", Descriptor: "Ljava/io/PrintStream;"}
	apply(t, e,
		vm.FieldInsn{Op: vm.GETSTATIC, Owner: ref.Owner, Name: ref.Name, Descriptor: ref.Descriptor},
		vm.VarInsn{Op: vm.ASTORE, Var: 4},
		vm.VarInsn{Op: vm.ALOAD, Var: 4},
	)
	got, ok := top(t, e).Field()
	require.True(t, ok)
	assert.Equal(t, ref, got)
}

func TestUnderflowIsSticky(t *testing.T) {
	for _, cfg := range vmtest.Configs() {
		t.Run(vmtest.Name(cfg), func(t *testing.T) {
			out := run(t, cfg, vmtest.Method{
				Access:     vm.AccStatic,
				Name:       "broken",
				Descriptor: "()V",
				Code:       vmtest.Ops(vm.ICONST_1, vm.IADD, vm.ICONST_2, vm.RETURN),
			})
			require.Error(t, out.err)
			assert.True(t, errors.Is(out.err, vm.ErrUnderflow))

			var opErr *vm.ErrOpUnderflow
			require.True(t, errors.As(out.err, &opErr))
			assert.Equal(t, vm.IADD, opErr.Op)
			assert.Equal(t, 1, opErr.Index)
			assert.Equal(t, 1, out.faults)
			// Nothing after the failure was applied.
			assert.Len(t, out.final, 1)
		})
	}
}

func TestEngineResetsOnNextMethod(t *testing.T) {
	e := vm.NewEngine(vm.Config{}, nil)
	err := vmtest.Replay(e, vmtest.Method{Access: vm.AccStatic, Name: "a", Descriptor: "()V", Code: vmtest.Ops(vm.POP)}, true)
	require.Error(t, err)
	assert.Equal(t, err, e.Err())

	err = vmtest.Replay(e, vmtest.Method{Access: vm.AccStatic, Name: "b", Descriptor: "()I", Code: vmtest.Ops(vm.ICONST_0, vm.IRETURN)}, true)
	require.NoError(t, err)
	assert.Equal(t, vm.Unattached, e.State())
	assert.Nil(t, e.Stack())
	v, ok := e.ReturnValue()
	require.True(t, ok)
	assert.Equal(t, descriptor.Int, v.Sig())
}

func TestInvalidInstructions(t *testing.T) {
	tests := []struct {
		ins  vm.Instruction
		want error
	}{
		{vm.Insn{Op: vm.OpCode(0xca)}, vm.ErrInvalidOpCode},
		{vm.VarInsn{Op: vm.IADD, Var: 1}, vm.ErrMalformedInstruction},
		{vm.Insn{Op: vm.ILOAD}, vm.ErrMalformedInstruction},
		{vm.IntInsn{Op: vm.BIPUSH, Operand: 200}, vm.ErrMalformedInstruction},
		{vm.IntInsn{Op: vm.SIPUSH, Operand: -40000}, vm.ErrMalformedInstruction},
		{vm.VarInsn{Op: vm.ILOAD, Var: -1}, vm.ErrMalformedInstruction},
		{vm.TypeInsn{Op: vm.NEW}, vm.ErrMalformedInstruction},
		{vm.MethodInsn{Op: vm.INVOKESTATIC, Owner: "Foo", Name: "m", Descriptor: "(I"}, descriptor.ErrMalformedDescriptor},
		{vm.FieldInsn{Op: vm.GETSTATIC, Owner: "Foo", Name: "f", Descriptor: "V"}, descriptor.ErrMalformedDescriptor},
		{vm.MultiANewArrayInsn{Descriptor: "[I", Dims: 2}, vm.ErrMalformedInstruction},
	}
	for _, tt := range tests {
		e := begin(t, vm.Config{}, vm.AccStatic, "()V")
		err := e.VisitInstruction(tt.ins)
		assert.True(t, errors.Is(err, tt.want), "%v: %v", tt.ins, err)
		assert.True(t, e.Stack().IsEmpty())
	}
}

func TestUnexpectedEvents(t *testing.T) {
	e := vm.NewEngine(vm.Config{}, nil)
	assert.True(t, errors.Is(e.VisitInstruction(vm.Insn{Op: vm.NOP}), vm.ErrUnexpectedEvent))
	assert.True(t, errors.Is(e.VisitCode(), vm.ErrUnexpectedEvent))
	assert.True(t, errors.Is(e.VisitEnd(), vm.ErrUnexpectedEvent))

	require.NoError(t, e.VisitMethod(vm.AccStatic, "m", "()V", "", nil))
	assert.True(t, errors.Is(e.VisitLabel(&vm.Label{}), vm.ErrUnexpectedEvent))
	require.NoError(t, e.VisitCode())
	assert.True(t, errors.Is(e.VisitParameter("late", 0), vm.ErrUnexpectedEvent))
	require.NoError(t, e.VisitEnd())
}

func TestAbstractMethodHasNoCode(t *testing.T) {
	e := vm.NewEngine(vm.Config{}, nil)
	require.NoError(t, e.VisitMethod(vm.AccPublic|vm.AccAbstract, "m", "(I)V", "", nil))
	require.NoError(t, e.VisitEnd())
	assert.Nil(t, e.Locals())
}

// recorder is a downstream visitor that remembers the order of events.
type recorder struct {
	events []string
}

func (r *recorder) VisitMethod(access vm.AccessFlags, name, desc, signature string, exceptions []string) error {
	r.events = append(r.events, "method "+name)
	return nil
}
func (r *recorder) VisitParameter(name string, access vm.AccessFlags) error {
	r.events = append(r.events, "param "+name)
	return nil
}
func (r *recorder) VisitCode() error {
	r.events = append(r.events, "code")
	return nil
}
func (r *recorder) VisitInstruction(ins vm.Instruction) error {
	r.events = append(r.events, ins.String())
	return nil
}
func (r *recorder) VisitLabel(label *vm.Label) error {
	r.events = append(r.events, label.Name+":")
	return nil
}
func (r *recorder) VisitEnd() error {
	r.events = append(r.events, "end")
	return nil
}

func TestEventsAreForwarded(t *testing.T) {
	rec := new(recorder)
	var seen []int
	cfg := vm.Config{Tracer: &vm.Hooks{
		OnOpcode: func(index int, ins vm.Instruction, st vm.StackView) { seen = append(seen, st.Len()) },
	}}
	err := vmtest.Replay(vm.NewEngine(cfg, rec), vmtest.Method{
		Access:     vm.AccStatic,
		Name:       "f",
		Descriptor: "(I)V",
		Params:     []string{"x"},
		Code:       []any{vm.Insn{Op: vm.ILOAD_0}, &vm.Label{Name: "L0"}, vm.Insn{Op: vm.POP}, vm.Insn{Op: vm.RETURN}},
	}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"method f", "param x", "code", "iload_0", "L0:", "pop", "return", "end"}, rec.events)
	assert.Equal(t, []int{1, 0, 0}, seen)
}

func TestStackEmptyAfterCodeEnd(t *testing.T) {
	e := vm.NewEngine(vm.Config{}, nil)
	err := vmtest.Replay(e, vmtest.Method{
		Access:     vm.AccPublic,
		Name:       "test1",
		Descriptor: "(ILjava/lang/String;)Ljava/lang/Object;",
		Code:       []any{vm.VarInsn{Op: vm.ALOAD, Var: 2}, vm.Insn{Op: vm.ARETURN}},
	}, true)
	require.NoError(t, err)

	st := e.Stack()
	assert.True(t, st.IsEmpty())
	assert.Equal(t, 0, st.Len())
	assert.Empty(t, st.Data())
	_, err = st.Peek(0)
	assert.True(t, errors.Is(err, vm.ErrUnderflow))

	v, ok := e.ReturnValue()
	require.True(t, ok)
	assert.Equal(t, "Ljava/lang/String;", v.Sig())
}

func TestRejectedEventsAreNotForwarded(t *testing.T) {
	rec := new(recorder)
	e := vm.NewEngine(vm.Config{}, rec)
	assert.True(t, errors.Is(e.VisitInstruction(vm.Insn{Op: vm.NOP}), vm.ErrUnexpectedEvent))
	assert.True(t, errors.Is(e.VisitEnd(), vm.ErrUnexpectedEvent))

	require.NoError(t, e.VisitMethod(vm.AccStatic, "m", "(I)V", "", nil))
	assert.True(t, errors.Is(e.VisitLabel(&vm.Label{Name: "L0"}), vm.ErrUnexpectedEvent))
	require.NoError(t, e.VisitCode())
	assert.True(t, errors.Is(e.VisitParameter("late", 0), vm.ErrUnexpectedEvent))
	assert.True(t, errors.Is(e.VisitCode(), vm.ErrUnexpectedEvent))
	require.NoError(t, e.VisitEnd())

	assert.Equal(t, []string{"method m", "code", "end"}, rec.events)
}

func TestIntPushesAreInts(t *testing.T) {
	e := begin(t, vm.Config{}, vm.AccStatic, "()V")
	apply(t, e, vm.IntInsn{Op: vm.BIPUSH, Operand: 7}, vm.IntInsn{Op: vm.SIPUSH, Operand: 1000})
	for i, want := range []int32{1000, 7} {
		v, err := e.Stack().Peek(i)
		require.NoError(t, err)
		assert.Equal(t, descriptor.Int, v.Sig())
		c, ok := v.Constant().Int()
		require.True(t, ok)
		assert.Equal(t, want, c)
	}
}

func TestIincLeavesStack(t *testing.T) {
	e := begin(t, vm.Config{TrackLocals: true}, vm.AccStatic, "(I)V")
	apply(t, e, vm.Insn{Op: vm.ICONST_3}, vm.IincInsn{Var: 0, Increment: 1})
	require.Equal(t, 1, e.Stack().Len())
	c, ok := top(t, e).Constant().Int()
	require.True(t, ok)
	assert.Equal(t, int32(3), c)
}
