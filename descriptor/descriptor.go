// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

// Package descriptor parses the type descriptors of the class file format.
//
// A field descriptor names one type: a primitive code (B C D F I J S Z), a
// class reference (Ljava/lang/String;) or an array of either ([I, [[Ljava/lang/Object;).
// A method descriptor lists its parameter field descriptors in parentheses
// followed by the return type, which may also be V for void:
//
//	(ILjava/lang/String;[J)Ljava/lang/Object;
package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

// Primitive and well-known reference signatures.
const (
	Byte    = "B"
	Char    = "C"
	Double  = "D"
	Float   = "F"
	Int     = "I"
	Long    = "J"
	Short   = "S"
	Boolean = "Z"
	Void    = "V"

	Object = "Ljava/lang/Object;"
	String = "Ljava/lang/String;"
	Class  = "Ljava/lang/Class;"
)

// ErrMalformedDescriptor is returned (wrapped in a MalformedDescriptorError)
// whenever a descriptor does not follow the grammar.
var ErrMalformedDescriptor = errors.New("malformed descriptor")

// MalformedDescriptorError reports where a descriptor stopped making sense.
type MalformedDescriptorError struct {
	Descriptor string
	Offset     int
	Reason     string
}

func (e *MalformedDescriptorError) Error() string {
	return fmt.Sprintf("malformed descriptor %q at offset %d: %s", e.Descriptor, e.Offset, e.Reason)
}

func (e *MalformedDescriptorError) Unwrap() error {
	return ErrMalformedDescriptor
}

func malformed(desc string, offset int, reason string) error {
	return &MalformedDescriptorError{Descriptor: desc, Offset: offset, Reason: reason}
}

// Method is a parsed method descriptor.
type Method struct {
	Params []string
	Return string
}

// ArgumentSlots returns the number of local variable slots the parameters
// occupy, not counting an implicit receiver.
func (m *Method) ArgumentSlots() int {
	n := 0
	for _, p := range m.Params {
		n += SlotSize(p)
	}
	return n
}

// IsVoid reports whether the method returns nothing.
func (m *Method) IsVoid() bool {
	return m.Return == Void
}

// String reassembles the descriptor.
func (m *Method) String() string {
	return "(" + strings.Join(m.Params, "") + ")" + m.Return
}

// ParseMethod parses and validates a complete method descriptor.
func ParseMethod(desc string) (*Method, error) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, malformed(desc, 0, "missing '('")
	}
	var (
		params = []string{}
		pos    = 1
	)
	for {
		if pos >= len(desc) {
			return nil, malformed(desc, pos, "missing ')'")
		}
		if desc[pos] == ')' {
			pos++
			break
		}
		end, err := scanField(desc, pos)
		if err != nil {
			return nil, err
		}
		params = append(params, desc[pos:end])
		pos = end
	}
	if pos >= len(desc) {
		return nil, malformed(desc, pos, "missing return type")
	}
	ret := desc[pos:]
	if ret != Void {
		end, err := scanField(desc, pos)
		if err != nil {
			return nil, err
		}
		if end != len(desc) {
			return nil, malformed(desc, end, "trailing characters after return type")
		}
	}
	return &Method{Params: params, Return: ret}, nil
}

// ParameterSignatures returns the parameter field descriptors of a method
// descriptor, left to right. A method without parameters yields an empty
// slice.
func ParameterSignatures(desc string) ([]string, error) {
	m, err := ParseMethod(desc)
	if err != nil {
		return nil, err
	}
	return m.Params, nil
}

// ReturnSignature returns everything after the closing parenthesis.
func ReturnSignature(desc string) (string, error) {
	m, err := ParseMethod(desc)
	if err != nil {
		return "", err
	}
	return m.Return, nil
}

// ValidateField checks that sig is exactly one field descriptor.
func ValidateField(sig string) error {
	end, err := scanField(sig, 0)
	if err != nil {
		return err
	}
	if end != len(sig) {
		return malformed(sig, end, "trailing characters after field type")
	}
	return nil
}

// scanField returns the offset just past the field descriptor starting at pos.
func scanField(desc string, pos int) (int, error) {
	start := pos
	for pos < len(desc) && desc[pos] == '[' {
		pos++
	}
	if pos-start > 255 {
		return 0, malformed(desc, start, "more than 255 array dimensions")
	}
	if pos >= len(desc) {
		return 0, malformed(desc, pos, "missing element type")
	}
	switch desc[pos] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return pos + 1, nil
	case 'L':
		semi := strings.IndexByte(desc[pos+1:], ';')
		if semi < 0 {
			return 0, malformed(desc, pos, "unterminated class reference")
		}
		if semi == 0 {
			return 0, malformed(desc, pos, "empty class name")
		}
		return pos + 1 + semi + 1, nil
	default:
		return 0, malformed(desc, pos, fmt.Sprintf("unexpected type code %q", desc[pos]))
	}
}

// SlotSize returns how many local variable (or legacy stack) words a value of
// the given type occupies: 2 for long and double, 0 for void, 1 otherwise.
func SlotSize(sig string) int {
	switch sig {
	case Long, Double:
		return 2
	case Void:
		return 0
	}
	return 1
}

// IsWide reports whether sig is one of the two 8-byte numeric types.
func IsWide(sig string) bool {
	return sig == Long || sig == Double
}

// IsReference reports whether sig denotes a class or array type.
func IsReference(sig string) bool {
	return strings.HasPrefix(sig, "L") || strings.HasPrefix(sig, "[")
}

// IsArray reports whether sig denotes an array type.
func IsArray(sig string) bool {
	return strings.HasPrefix(sig, "[")
}

// ElementType strips one array dimension.
func ElementType(sig string) (string, bool) {
	if !IsArray(sig) {
		return "", false
	}
	return sig[1:], true
}

// ArrayOf adds one array dimension.
func ArrayOf(sig string) string {
	return "[" + sig
}

// ObjectType converts an internal class name as used by type instructions
// (java/lang/String) into its field descriptor. Array descriptors are
// already field descriptors and are returned unchanged.
func ObjectType(internalName string) string {
	if IsArray(internalName) {
		return internalName
	}
	return "L" + internalName + ";"
}

// InternalName is the inverse of ObjectType for class references.
func InternalName(sig string) (string, bool) {
	if len(sig) < 3 || sig[0] != 'L' || sig[len(sig)-1] != ';' {
		return "", false
	}
	return sig[1 : len(sig)-1], true
}
