// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

// Package types contains the data types shared by the stack simulator.
package types

import (
	"fmt"
	"strings"

	"github.com/jvmstack/jvmstack/descriptor"
)

// FieldRef identifies the field a value was read from. It is descriptive
// only and never resolved.
type FieldRef struct {
	Owner      string // internal name of the declaring class
	Name       string
	Descriptor string
}

func (f FieldRef) String() string {
	return f.Owner + "." + f.Name + ":" + f.Descriptor
}

// Value is the symbolic model of one operand stack slot. Values are
// immutable; every method that "changes" a value returns a new one.
type Value struct {
	signature string // "" when the type is unknown
	constant  Constant
	field     FieldRef
	hasField  bool

	retAddr bool // pushed by jsr/jsr_w
	site    int  // allocation site of an uninitialized reference, 0 otherwise
}

// Unknown returns a value about which nothing is known.
func Unknown() Value { return Value{} }

// Typed returns a value of known type and unknown content.
func Typed(sig string) Value { return Value{signature: sig} }

// Const returns a value with a known compile-time constant.
func Const(sig string, c Constant) Value { return Value{signature: sig, constant: c} }

// FromField returns a value read from the given field. Its type is the field's
// declared descriptor.
func FromField(ref FieldRef) Value {
	return Value{signature: ref.Descriptor, field: ref, hasField: true}
}

// ReturnAddress returns the opaque value pushed by jump-to-subroutine.
func ReturnAddress() Value { return Value{retAddr: true} }

// Uninitialized returns a reference created by new that has not yet been
// passed to a constructor. Site distinguishes separate allocations and must
// be positive.
func Uninitialized(sig string, site int) Value {
	if site <= 0 {
		panic(fmt.Sprintf("invalid allocation site %d", site))
	}
	return Value{signature: sig, site: site}
}

// Signature returns the type signature and whether it is known.
func (v Value) Signature() (string, bool) { return v.signature, v.signature != "" }

// Sig returns the type signature or "" when unknown.
func (v Value) Sig() string { return v.signature }

// Constant returns the known constant, or the zero Constant.
func (v Value) Constant() Constant { return v.constant }

// Field returns the originating field, if the value was read from one.
func (v Value) Field() (FieldRef, bool) { return v.field, v.hasField }

// IsReturnAddress reports whether the value is a subroutine return address.
func (v Value) IsReturnAddress() bool { return v.retAddr }

// IsUninitialized reports whether the value is a reference still awaiting
// its constructor call.
func (v Value) IsUninitialized() bool { return v.site != 0 }

// Site returns the allocation site of an uninitialized reference.
func (v Value) Site() int { return v.site }

// Category returns the computational type category: 2 for long and double,
// 1 for everything else including values of unknown type.
func (v Value) Category() int {
	if descriptor.IsWide(v.signature) {
		return 2
	}
	return 1
}

// WithSignature returns a copy of v with a different type signature.
func (v Value) WithSignature(sig string) Value {
	v.signature = sig
	return v
}

// Initialized returns a copy of v with the uninitialized marker cleared.
func (v Value) Initialized() Value {
	v.site = 0
	return v
}

// Equal reports whether two values describe the same slot content.
func (v Value) Equal(o Value) bool {
	return v == o
}

func (v Value) String() string {
	var b strings.Builder
	switch {
	case v.retAddr:
		return "<returnAddress>"
	case v.signature == "":
		b.WriteString("?")
	default:
		b.WriteString(v.signature)
	}
	if v.site != 0 {
		fmt.Fprintf(&b, "<uninit#%d>", v.site)
	}
	if v.constant.Known() {
		b.WriteString("=")
		b.WriteString(v.constant.String())
	}
	if v.hasField {
		b.WriteString("@")
		b.WriteString(v.field.Owner)
		b.WriteString(".")
		b.WriteString(v.field.Name)
	}
	return b.String()
}

// LocalSlot describes one declared method parameter.
type LocalSlot struct {
	Slot      int
	Name      string
	Signature string
}

// Size returns the number of slots the parameter occupies.
func (l LocalSlot) Size() int {
	return descriptor.SlotSize(l.Signature)
}

// IsWide reports whether the parameter occupies two slots.
func (l LocalSlot) IsWide() bool {
	return descriptor.IsWide(l.Signature)
}

func (l LocalSlot) String() string {
	if l.Size() == 2 {
		return fmt.Sprintf("%d-%d:%s %s", l.Slot, l.Slot+1, l.Signature, l.Name)
	}
	return fmt.Sprintf("%d:%s %s", l.Slot, l.Signature, l.Name)
}
