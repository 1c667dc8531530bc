// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package asm

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/jvmstack/jvmstack/core/vm"
)

// TypeConstant is a class literal loaded by ldc, e.g. "java/lang/String".
type TypeConstant string

// newarray element type codes.
var arrayTypes = map[string]int{
	"boolean": 4, "char": 5, "float": 6, "double": 7,
	"byte": 8, "short": 9, "int": 10, "long": 11,
}

var errOperands = errors.New("wrong number of operands")

// parser decodes the code lines of one method. Labels are shared by name.
type parser struct {
	labels  map[string]*vm.Label
	defined mapset.Set[string]
}

func newParser() *parser {
	return &parser{labels: make(map[string]*vm.Label), defined: mapset.NewThreadUnsafeSet[string]()}
}

func (p *parser) label(name string) *vm.Label {
	if l, ok := p.labels[name]; ok {
		return l
	}
	l := &vm.Label{Name: name}
	p.labels[name] = l
	return l
}

func (p *parser) undefinedLabels() []string {
	var out []string
	for name := range p.labels {
		if !p.defined.Contains(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// parseLine returns a vm.Instruction or a *vm.Label.
func (p *parser) parseLine(line string) (any, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, errors.New("empty line")
	}
	if strings.HasSuffix(line, ":") && !strings.ContainsAny(line, " \t") {
		name := strings.TrimSuffix(line, ":")
		if name == "" {
			return nil, errors.New("empty label name")
		}
		if !p.defined.Add(name) {
			return nil, fmt.Errorf("label %s defined twice", name)
		}
		return p.label(name), nil
	}
	mnemonic := strings.Fields(line)[0]
	rest := strings.TrimSpace(line[len(mnemonic):])
	op, ok := vm.StringToOp(strings.ToLower(mnemonic))
	if !ok {
		return nil, fmt.Errorf("unknown mnemonic %q", mnemonic)
	}
	if op.Form() == vm.FormLdc {
		return parseLdc(op, rest)
	}
	return p.parseOperands(op, strings.Fields(rest))
}

func (p *parser) parseOperands(op vm.OpCode, args []string) (vm.Instruction, error) {
	want := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%v: %w: have %d, want %d", op, errOperands, len(args), n)
		}
		return nil
	}
	switch op.Form() {
	case vm.FormInsn:
		if err := want(0); err != nil {
			return nil, err
		}
		return vm.Insn{Op: op}, nil

	case vm.FormInt:
		if err := want(1); err != nil {
			return nil, err
		}
		if op == vm.NEWARRAY {
			if atype, ok := arrayTypes[args[0]]; ok {
				return vm.IntInsn{Op: op, Operand: atype}, nil
			}
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("%v: bad operand %q", op, args[0])
		}
		return vm.IntInsn{Op: op, Operand: v}, nil

	case vm.FormVar:
		if err := want(1); err != nil {
			return nil, err
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, fmt.Errorf("%v: bad local variable %q", op, args[0])
		}
		return vm.VarInsn{Op: op, Var: v}, nil

	case vm.FormIinc:
		if err := want(2); err != nil {
			return nil, err
		}
		v, err1 := strconv.Atoi(args[0])
		inc, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("iinc: bad operands %q", strings.Join(args, " "))
		}
		return vm.IincInsn{Var: v, Increment: inc}, nil

	case vm.FormType:
		if err := want(1); err != nil {
			return nil, err
		}
		return vm.TypeInsn{Op: op, Type: args[0]}, nil

	case vm.FormField:
		if err := want(2); err != nil {
			return nil, err
		}
		owner, name, err := splitMember(args[0])
		if err != nil {
			return nil, err
		}
		return vm.FieldInsn{Op: op, Owner: owner, Name: name, Descriptor: args[1]}, nil

	case vm.FormMethod:
		if err := want(2); err != nil {
			return nil, err
		}
		owner, name, err := splitMember(args[0])
		if err != nil {
			return nil, err
		}
		return vm.MethodInsn{Op: op, Owner: owner, Name: name, Descriptor: args[1], Interface: op == vm.INVOKEINTERFACE}, nil

	case vm.FormInvokeDynamic:
		// invokedynamic name desc [bootstrapOwner.name bootstrapDesc]
		if len(args) != 2 && len(args) != 4 {
			return nil, fmt.Errorf("%v: %w: have %d, want 2 or 4", op, errOperands, len(args))
		}
		indy := vm.InvokeDynamicInsn{Name: args[0], Descriptor: args[1]}
		if len(args) == 4 {
			owner, name, err := splitMember(args[2])
			if err != nil {
				return nil, err
			}
			indy.Bootstrap = vm.Handle{Tag: 6, Owner: owner, Name: name, Descriptor: args[3]}
		}
		return indy, nil

	case vm.FormJump:
		if err := want(1); err != nil {
			return nil, err
		}
		return vm.JumpInsn{Op: op, Label: p.label(args[0])}, nil

	case vm.FormTableSwitch:
		// tableswitch min max L... default Ld
		if len(args) < 4 || args[len(args)-2] != "default" {
			return nil, errors.New("tableswitch: want min max labels... default label")
		}
		lo, err1 := strconv.Atoi(args[0])
		hi, err2 := strconv.Atoi(args[1])
		if err1 != nil || err2 != nil || hi < lo {
			return nil, fmt.Errorf("tableswitch: bad range %s..%s", args[0], args[1])
		}
		targets := args[2 : len(args)-2]
		if len(targets) != hi-lo+1 {
			return nil, fmt.Errorf("tableswitch: %d labels for range %d..%d", len(targets), lo, hi)
		}
		sw := vm.TableSwitchInsn{Min: lo, Max: hi, Default: p.label(args[len(args)-1])}
		for _, t := range targets {
			sw.Labels = append(sw.Labels, p.label(t))
		}
		return sw, nil

	case vm.FormLookupSwitch:
		// lookupswitch key:L... default Ld
		if len(args) < 2 || args[len(args)-2] != "default" {
			return nil, errors.New("lookupswitch: want key:label... default label")
		}
		sw := vm.LookupSwitchInsn{Default: p.label(args[len(args)-1])}
		for _, pair := range args[:len(args)-2] {
			k, l, ok := strings.Cut(pair, ":")
			key, err := strconv.Atoi(k)
			if !ok || err != nil || l == "" {
				return nil, fmt.Errorf("lookupswitch: bad case %q", pair)
			}
			if n := len(sw.Keys); n > 0 && key <= sw.Keys[n-1] {
				return nil, fmt.Errorf("lookupswitch: keys not ascending at %d", key)
			}
			sw.Keys = append(sw.Keys, key)
			sw.Labels = append(sw.Labels, p.label(l))
		}
		return sw, nil

	case vm.FormMultiANewArray:
		if err := want(2); err != nil {
			return nil, err
		}
		dims, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("multianewarray: bad dimensions %q", args[1])
		}
		return vm.MultiANewArrayInsn{Descriptor: args[0], Dims: dims}, nil
	}
	return nil, fmt.Errorf("%v: unsupported instruction form", op)
}

// splitMember splits "java/lang/System.out" at the last dot.
func splitMember(s string) (owner, name string, err error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("bad member reference %q, want Owner.name", s)
	}
	return s[:i], s[i+1:], nil
}

// parseLdc decodes a constant operand: a quoted string, a number or a class
// literal. Numbers take an L, F or D suffix; without one, ldc2_w loads long
// or double and the other forms load int or float.
func parseLdc(op vm.OpCode, arg string) (vm.Instruction, error) {
	if arg == "" {
		return nil, fmt.Errorf("%v: missing constant", op)
	}
	var value any
	switch {
	case strings.HasPrefix(arg, `"`):
		s, err := strconv.Unquote(arg)
		if err != nil {
			return nil, fmt.Errorf("%v: bad string constant %s", op, arg)
		}
		value = s
	case isNumeric(arg):
		v, err := parseNumber(arg, op == vm.LDC2_W)
		if err != nil {
			return nil, fmt.Errorf("%v: %v", op, err)
		}
		value = v
	default:
		value = TypeConstant(arg)
	}
	return vm.LdcInsn{Op: op, Value: value}, nil
}

func isNumeric(s string) bool {
	c := s[0]
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func parseNumber(s string, wide bool) (any, error) {
	last := s[len(s)-1]
	body := s[:len(s)-1]
	switch last {
	case 'L', 'l':
		v, err := strconv.ParseInt(body, 10, 64)
		return v, err
	case 'F', 'f':
		v, err := strconv.ParseFloat(body, 32)
		return float32(v), err
	case 'D', 'd':
		return strconv.ParseFloat(body, 64)
	}
	decimal := strings.ContainsAny(s, ".eE")
	switch {
	case decimal && wide:
		return strconv.ParseFloat(s, 64)
	case decimal:
		v, err := strconv.ParseFloat(s, 32)
		return float32(v), err
	case wide:
		return strconv.ParseInt(s, 10, 64)
	}
	v, err := strconv.ParseInt(s, 10, 32)
	return int32(v), err
}
