// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package types

import (
	"fmt"
	"math"
	"strconv"
)

// ConstKind enumerates the compile-time constant categories a stack slot can
// carry.
type ConstKind uint8

const (
	NoConstant ConstKind = iota
	NullConstant
	IntConstant
	LongConstant
	FloatConstant
	DoubleConstant
	StringConstant
)

var constKindNames = [...]string{
	NoConstant:     "none",
	NullConstant:   "null",
	IntConstant:    "int",
	LongConstant:   "long",
	FloatConstant:  "float",
	DoubleConstant: "double",
	StringConstant: "string",
}

func (k ConstKind) String() string {
	if int(k) < len(constKindNames) {
		return constKindNames[k]
	}
	return fmt.Sprintf("ConstKind(%d)", k)
}

// Constant is a known compile-time value. The zero Constant means "unknown".
type Constant struct {
	kind ConstKind
	bits uint64 // int32/int64 as two's complement, float32/float64 as IEEE bits
	text string
}

// Null is the constant pushed by aconst_null.
func Null() Constant { return Constant{kind: NullConstant} }

// Int32 wraps a 32-bit integer constant.
func Int32(v int32) Constant { return Constant{kind: IntConstant, bits: uint64(int64(v))} }

// Int64 wraps a 64-bit integer constant.
func Int64(v int64) Constant { return Constant{kind: LongConstant, bits: uint64(v)} }

// Float32 wraps a 32-bit float constant.
func Float32(v float32) Constant {
	return Constant{kind: FloatConstant, bits: uint64(math.Float32bits(v))}
}

// Float64 wraps a 64-bit float constant.
func Float64(v float64) Constant {
	return Constant{kind: DoubleConstant, bits: math.Float64bits(v)}
}

// Text wraps a string constant.
func Text(v string) Constant { return Constant{kind: StringConstant, text: v} }

// ConstantOf maps a Go value of one of the supported runtime categories onto
// a Constant. A nil interface maps to the null constant; anything else is
// reported as not representable.
func ConstantOf(v any) (Constant, bool) {
	switch v := v.(type) {
	case nil:
		return Null(), true
	case int32:
		return Int32(v), true
	case int64:
		return Int64(v), true
	case float32:
		return Float32(v), true
	case float64:
		return Float64(v), true
	case string:
		return Text(v), true
	}
	return Constant{}, false
}

// Kind returns the constant category, NoConstant if unknown.
func (c Constant) Kind() ConstKind { return c.kind }

// Known reports whether the constant carries a value.
func (c Constant) Known() bool { return c.kind != NoConstant }

// IsNull reports whether the constant is the null reference.
func (c Constant) IsNull() bool { return c.kind == NullConstant }

// Int returns the value of an int constant.
func (c Constant) Int() (int32, bool) {
	if c.kind != IntConstant {
		return 0, false
	}
	return int32(int64(c.bits)), true
}

// Long returns the value of a long constant.
func (c Constant) Long() (int64, bool) {
	if c.kind != LongConstant {
		return 0, false
	}
	return int64(c.bits), true
}

// Float returns the value of a float constant.
func (c Constant) Float() (float32, bool) {
	if c.kind != FloatConstant {
		return 0, false
	}
	return math.Float32frombits(uint32(c.bits)), true
}

// Double returns the value of a double constant.
func (c Constant) Double() (float64, bool) {
	if c.kind != DoubleConstant {
		return 0, false
	}
	return math.Float64frombits(c.bits), true
}

// Text returns the value of a string constant.
func (c Constant) Text() (string, bool) {
	if c.kind != StringConstant {
		return "", false
	}
	return c.text, true
}

// Interface returns the constant as a Go value: nil for null and unknown,
// otherwise int32, int64, float32, float64 or string.
func (c Constant) Interface() any {
	switch c.kind {
	case IntConstant:
		v, _ := c.Int()
		return v
	case LongConstant:
		v, _ := c.Long()
		return v
	case FloatConstant:
		v, _ := c.Float()
		return v
	case DoubleConstant:
		v, _ := c.Double()
		return v
	case StringConstant:
		return c.text
	}
	return nil
}

func (c Constant) String() string {
	switch c.kind {
	case NoConstant:
		return "?"
	case NullConstant:
		return "null"
	case IntConstant:
		v, _ := c.Int()
		return strconv.FormatInt(int64(v), 10)
	case LongConstant:
		v, _ := c.Long()
		return strconv.FormatInt(v, 10) + "L"
	case FloatConstant:
		v, _ := c.Float()
		return strconv.FormatFloat(float64(v), 'g', -1, 32) + "F"
	case DoubleConstant:
		v, _ := c.Double()
		return strconv.FormatFloat(v, 'g', -1, 64) + "D"
	case StringConstant:
		return strconv.Quote(c.text)
	}
	return c.kind.String()
}
