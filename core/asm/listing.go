// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

// Package asm reads textual method listings and replays them as visitor
// events. A listing is a YAML document:
//
//	class: com/example/Greeter
//	methods:
//	  - name: greet
//	    access: [public, static]
//	    descriptor: (Ljava/lang/String;)V
//	    parameters: [name]
//	    code:
//	      - getstatic java/lang/System.out Ljava/io/PrintStream;
//	      - aload_0
//	      - invokevirtual java/io/PrintStream.println (Ljava/lang/String;)V
//	      - return
//
// Each code entry is one instruction in the usual disassembler notation, or a
// label definition such as "L1:".
package asm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jvmstack/jvmstack/core/vm"
)

// Class is a parsed listing.
type Class struct {
	Name    string
	Methods []*Method
}

// Method is one method of a listing with its body already decoded.
type Method struct {
	Owner      string
	Name       string
	Access     vm.AccessFlags
	Descriptor string
	Signature  string
	Exceptions []string
	Parameters []string

	// Events holds vm.Instruction and *vm.Label values in program order.
	// A method without code has a nil Events slice.
	Events []any
	lines  []string
}

func (m *Method) String() string {
	if m.Owner == "" {
		return m.Name + m.Descriptor
	}
	return m.Owner + "." + m.Name + m.Descriptor
}

// HasCode reports whether the method has a body.
func (m *Method) HasCode() bool { return m.Events != nil }

// Line returns the listing text of the i'th event.
func (m *Method) Line(i int) string {
	if i < 0 || i >= len(m.lines) {
		return ""
	}
	return m.lines[i]
}

// Instructions returns the number of instruction events in the body.
func (m *Method) Instructions() int {
	n := 0
	for _, ev := range m.Events {
		if _, ok := ev.(vm.Instruction); ok {
			n++
		}
	}
	return n
}

// Accept replays the method into v, stopping at the first error.
func (m *Method) Accept(v vm.MethodVisitor) error {
	if err := v.VisitMethod(m.Access, m.Name, m.Descriptor, m.Signature, m.Exceptions); err != nil {
		return err
	}
	for _, p := range m.Parameters {
		if err := v.VisitParameter(p, 0); err != nil {
			return err
		}
	}
	if m.HasCode() {
		if err := v.VisitCode(); err != nil {
			return err
		}
		for _, ev := range m.Events {
			var err error
			switch ev := ev.(type) {
			case vm.Instruction:
				err = v.VisitInstruction(ev)
			case *vm.Label:
				err = v.VisitLabel(ev)
			}
			if err != nil {
				return err
			}
		}
	}
	return v.VisitEnd()
}

// Method returns the first method with the given name, or nil.
func (c *Class) Method(name string) *Method {
	for _, m := range c.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

type listingFile struct {
	Class   string          `yaml:"class"`
	Methods []listingMethod `yaml:"methods"`
}

type listingMethod struct {
	Name       string   `yaml:"name"`
	Access     []string `yaml:"access"`
	Descriptor string   `yaml:"descriptor"`
	Signature  string   `yaml:"signature"`
	Exceptions []string `yaml:"exceptions"`
	Parameters []string `yaml:"parameters"`
	Code       []string `yaml:"code"`
}

// ValidationError aggregates listing problems.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "listing: " + e.Issues[0]
	}
	var b strings.Builder
	b.WriteString("listing validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// Parse reads a listing document.
func Parse(r io.Reader) (*Class, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw listingFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("listing: empty document")
		}
		return nil, pkgerrors.Wrap(err, "listing: parse")
	}
	return raw.toClass()
}

// ParseFile reads the listing stored at path.
func ParseFile(path string) (*Class, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "%s", path)
	}
	return c, nil
}

func (raw *listingFile) toClass() (*Class, error) {
	var issues []string
	c := &Class{Name: raw.Class}
	for i, lm := range raw.Methods {
		if lm.Name == "" {
			issues = append(issues, fmt.Sprintf("methods[%d]: missing name", i))
			continue
		}
		if lm.Descriptor == "" {
			issues = append(issues, fmt.Sprintf("%s: missing descriptor", lm.Name))
			continue
		}
		m := &Method{
			Owner:      raw.Class,
			Name:       lm.Name,
			Descriptor: lm.Descriptor,
			Signature:  lm.Signature,
			Exceptions: lm.Exceptions,
			Parameters: lm.Parameters,
		}
		for _, a := range lm.Access {
			flag, ok := vm.ParseAccess(a)
			if !ok {
				issues = append(issues, fmt.Sprintf("%s: unknown access modifier %q", lm.Name, a))
				continue
			}
			m.Access |= flag
		}
		if lm.Code != nil {
			p := newParser()
			m.Events = make([]any, 0, len(lm.Code))
			for j, line := range lm.Code {
				ev, err := p.parseLine(line)
				if err != nil {
					issues = append(issues, fmt.Sprintf("%s: code[%d] %q: %v", m, j, line, err))
					continue
				}
				m.Events = append(m.Events, ev)
				m.lines = append(m.lines, strings.TrimSpace(line))
			}
			for _, name := range p.undefinedLabels() {
				issues = append(issues, fmt.Sprintf("%s: label %s is never defined", m, name))
			}
		}
		c.Methods = append(c.Methods, m)
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return c, nil
}
