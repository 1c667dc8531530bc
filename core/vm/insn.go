// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm

import (
	"fmt"
	"strings"
)

// AccessFlags is the access_flags bitmask of a method declaration.
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSynchronized AccessFlags = 0x0020
	AccBridge       AccessFlags = 0x0040
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccMandated     AccessFlags = 0x8000
)

var accessNames = []struct {
	flag AccessFlags
	name string
}{
	{AccPublic, "public"}, {AccPrivate, "private"}, {AccProtected, "protected"},
	{AccStatic, "static"}, {AccFinal, "final"}, {AccSynchronized, "synchronized"},
	{AccBridge, "bridge"}, {AccVarargs, "varargs"}, {AccNative, "native"},
	{AccAbstract, "abstract"}, {AccStrict, "strict"}, {AccSynthetic, "synthetic"},
	{AccMandated, "mandated"},
}

// IsStatic reports whether the static bit is set.
func (a AccessFlags) IsStatic() bool { return a&AccStatic != 0 }

func (a AccessFlags) String() string {
	var parts []string
	for _, n := range accessNames {
		if a&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, " ")
}

// ParseAccess maps a modifier keyword onto its flag.
func ParseAccess(name string) (AccessFlags, bool) {
	for _, n := range accessNames {
		if n.name == name {
			return n.flag, true
		}
	}
	return 0, false
}

// Label marks a position in the instruction stream. Labels are compared by
// identity.
type Label struct {
	Name string
}

func (l *Label) String() string {
	if l == nil {
		return "<nil>"
	}
	return l.Name
}

// Handle is a method handle constant, used as an invokedynamic bootstrap.
type Handle struct {
	Tag        int
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

func (h Handle) String() string {
	return fmt.Sprintf("%s.%s%s (%d)", h.Owner, h.Name, h.Descriptor, h.Tag)
}

// Form identifies which Instruction shape an opcode is delivered in.
type Form uint8

const (
	FormInsn Form = iota
	FormInt
	FormVar
	FormType
	FormField
	FormMethod
	FormInvokeDynamic
	FormJump
	FormLdc
	FormIinc
	FormTableSwitch
	FormLookupSwitch
	FormMultiANewArray
)

var formNames = [...]string{
	FormInsn:           "insn",
	FormInt:            "int",
	FormVar:            "var",
	FormType:           "type",
	FormField:          "field",
	FormMethod:         "method",
	FormInvokeDynamic:  "invokedynamic",
	FormJump:           "jump",
	FormLdc:            "ldc",
	FormIinc:           "iinc",
	FormTableSwitch:    "tableswitch",
	FormLookupSwitch:   "lookupswitch",
	FormMultiANewArray: "multianewarray",
}

func (f Form) String() string {
	if int(f) < len(formNames) {
		return formNames[f]
	}
	return fmt.Sprintf("Form(%d)", f)
}

// Instruction is one decoded instruction event. The set of implementations
// is closed.
type Instruction interface {
	Opcode() OpCode
	Form() Form
	String() string
}

// Insn is an instruction without operands.
type Insn struct {
	Op OpCode
}

// IntInsn carries a single int operand: bipush, sipush and newarray.
type IntInsn struct {
	Op      OpCode
	Operand int
}

// VarInsn loads, stores or returns through a local variable slot.
type VarInsn struct {
	Op  OpCode
	Var int
}

// TypeInsn carries a class internal name or array descriptor.
type TypeInsn struct {
	Op   OpCode
	Type string
}

// FieldInsn accesses a field.
type FieldInsn struct {
	Op         OpCode
	Owner      string
	Name       string
	Descriptor string
}

// MethodInsn invokes a method.
type MethodInsn struct {
	Op         OpCode
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

// InvokeDynamicInsn is an invokedynamic call site.
type InvokeDynamicInsn struct {
	Name          string
	Descriptor    string
	Bootstrap     Handle
	BootstrapArgs []any
}

// JumpInsn transfers control to a label.
type JumpInsn struct {
	Op    OpCode
	Label *Label
}

// LdcInsn pushes a constant pool entry. Value is int32, int64, float32,
// float64 or string for the loadable primitives; any other value stands for
// a class, method type, handle or dynamic constant. Op may be left zero, in
// which case the opcode follows from the value.
type LdcInsn struct {
	Op    OpCode
	Value any
}

// IincInsn increments a local int variable.
type IincInsn struct {
	Var       int
	Increment int
}

// TableSwitchInsn is a dense switch.
type TableSwitchInsn struct {
	Min, Max int
	Default  *Label
	Labels   []*Label
}

// LookupSwitchInsn is a sparse switch.
type LookupSwitchInsn struct {
	Default *Label
	Keys    []int
	Labels  []*Label
}

// MultiANewArrayInsn creates a multi-dimensional array.
type MultiANewArrayInsn struct {
	Descriptor string
	Dims       int
}

func (i Insn) Opcode() OpCode { return i.Op }
func (i IntInsn) Opcode() OpCode { return i.Op }
func (i VarInsn) Opcode() OpCode { return i.Op }
func (i TypeInsn) Opcode() OpCode { return i.Op }
func (i FieldInsn) Opcode() OpCode { return i.Op }
func (i MethodInsn) Opcode() OpCode { return i.Op }
func (InvokeDynamicInsn) Opcode() OpCode { return INVOKEDYNAMIC }
func (i JumpInsn) Opcode() OpCode { return i.Op }
func (IincInsn) Opcode() OpCode { return IINC }
func (TableSwitchInsn) Opcode() OpCode { return TABLESWITCH }
func (LookupSwitchInsn) Opcode() OpCode { return LOOKUPSWITCH }
func (MultiANewArrayInsn) Opcode() OpCode { return MULTIANEWARRAY }

func (i LdcInsn) Opcode() OpCode {
	if i.Op != 0 {
		return i.Op
	}
	switch i.Value.(type) {
	case int64, float64:
		return LDC2_W
	}
	return LDC
}

func (Insn) Form() Form { return FormInsn }
func (IntInsn) Form() Form { return FormInt }
func (VarInsn) Form() Form { return FormVar }
func (TypeInsn) Form() Form { return FormType }
func (FieldInsn) Form() Form { return FormField }
func (MethodInsn) Form() Form { return FormMethod }
func (InvokeDynamicInsn) Form() Form { return FormInvokeDynamic }
func (JumpInsn) Form() Form { return FormJump }
func (LdcInsn) Form() Form { return FormLdc }
func (IincInsn) Form() Form { return FormIinc }
func (TableSwitchInsn) Form() Form { return FormTableSwitch }
func (LookupSwitchInsn) Form() Form { return FormLookupSwitch }
func (MultiANewArrayInsn) Form() Form { return FormMultiANewArray }

func (i Insn) String() string { return i.Op.String() }
func (i IntInsn) String() string { return fmt.Sprintf("%v %d", i.Op, i.Operand) }
func (i VarInsn) String() string { return fmt.Sprintf("%v %d", i.Op, i.Var) }
func (i TypeInsn) String() string {
	return fmt.Sprintf("%v %s", i.Op, i.Type)
}
func (i FieldInsn) String() string {
	return fmt.Sprintf("%v %s.%s %s", i.Op, i.Owner, i.Name, i.Descriptor)
}
func (i MethodInsn) String() string {
	return fmt.Sprintf("%v %s.%s %s", i.Op, i.Owner, i.Name, i.Descriptor)
}
func (i InvokeDynamicInsn) String() string {
	return fmt.Sprintf("invokedynamic %s %s", i.Name, i.Descriptor)
}
func (i JumpInsn) String() string { return fmt.Sprintf("%v %v", i.Op, i.Label) }
func (i LdcInsn) String() string {
	if s, ok := i.Value.(string); ok {
		return fmt.Sprintf("%v %q", i.Opcode(), s)
	}
	return fmt.Sprintf("%v %v", i.Opcode(), i.Value)
}
func (i IincInsn) String() string { return fmt.Sprintf("iinc %d %d", i.Var, i.Increment) }
func (i TableSwitchInsn) String() string {
	return fmt.Sprintf("tableswitch %d..%d default %v", i.Min, i.Max, i.Default)
}
func (i LookupSwitchInsn) String() string {
	return fmt.Sprintf("lookupswitch %v default %v", i.Keys, i.Default)
}
func (i MultiANewArrayInsn) String() string {
	return fmt.Sprintf("multianewarray %s %d", i.Descriptor, i.Dims)
}
