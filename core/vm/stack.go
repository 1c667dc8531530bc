// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm

import (
	"strings"
	"sync"

	"github.com/jvmstack/jvmstack/core/types"
)

var stackPool = sync.Pool{
	New: func() interface{} {
		return &Stack{data: make([]types.Value, 0, 16)}
	},
}

// Stack is the symbolic operand stack of one method body. Values are stored
// by value, so duplicating an entry never aliases it.
type Stack struct {
	data []types.Value
}

func newstack() *Stack {
	return stackPool.Get().(*Stack)
}

func returnStack(s *Stack) {
	s.data = s.data[:0]
	stackPool.Put(s)
}

// NewStack returns an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Data returns the underlying slice, bottom first. Callers must not modify
// the contents of the returned data.
func (st *Stack) Data() []types.Value {
	if st == nil {
		return nil
	}
	return st.data
}

// Push places v on top of the stack.
func (st *Stack) Push(v types.Value) {
	st.data = append(st.data, v)
}

// Pop removes and returns the top value.
func (st *Stack) Pop() (types.Value, error) {
	if len(st.data) == 0 {
		return types.Value{}, &ErrStackUnderflow{stackLen: 0, required: 1}
	}
	v := st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return v, nil
}

// PopN discards the top n values. Nothing is removed if fewer than n are
// present.
func (st *Stack) PopN(n int) error {
	if err := st.require(n); err != nil {
		return err
	}
	st.data = st.data[:len(st.data)-n]
	return nil
}

// Peek returns the n'th value from the top without removing it. Peek(0) is
// the top of the stack.
func (st *Stack) Peek(n int) (types.Value, error) {
	if st == nil {
		return types.Value{}, &ErrStackUnderflow{stackLen: 0, required: n + 1}
	}
	if n < 0 || n >= len(st.data) {
		return types.Value{}, &ErrStackUnderflow{stackLen: len(st.data), required: n + 1}
	}
	return st.data[len(st.data)-n-1], nil
}

// Replace overwrites the n'th value from the top.
func (st *Stack) Replace(n int, v types.Value) error {
	if n < 0 || n >= len(st.data) {
		return &ErrStackUnderflow{stackLen: len(st.data), required: n + 1}
	}
	st.data[len(st.data)-n-1] = v
	return nil
}

// Len returns the number of values on the stack. A nil stack is empty.
func (st *Stack) Len() int {
	if st == nil {
		return 0
	}
	return len(st.data)
}

// IsEmpty reports whether the stack holds no values.
func (st *Stack) IsEmpty() bool {
	return st.Len() == 0
}

func (st *Stack) require(n int) error {
	if len(st.data) < n {
		return &ErrStackUnderflow{stackLen: len(st.data), required: n}
	}
	return nil
}

// entries returns how many values from the top make up the given number of
// words. A value of unknown type counts as one word.
func (st *Stack) entries(words int) (int, error) {
	return st.entriesBelow(0, words)
}

// entriesBelow is like entries but starts skip values below the top.
func (st *Stack) entriesBelow(skip, words int) (int, error) {
	n, sum := 0, 0
	for sum < words {
		i := len(st.data) - 1 - skip - n
		if i < 0 {
			return 0, &ErrStackUnderflow{stackLen: len(st.data), required: skip + n + 1}
		}
		sum += st.data[i].Category()
		n++
	}
	return n, nil
}

// popValues removes the top n values and returns them bottom first.
func (st *Stack) popValues(n int) ([]types.Value, error) {
	if err := st.require(n); err != nil {
		return nil, err
	}
	out := make([]types.Value, n)
	copy(out, st.data[len(st.data)-n:])
	st.data = st.data[:len(st.data)-n]
	return out, nil
}

func (st *Stack) pushValues(vs ...types.Value) {
	st.data = append(st.data, vs...)
}

func (st *Stack) String() string {
	if st == nil {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range st.data {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
	}
	b.WriteByte(']')
	return b.String()
}

// StackView is the read-only face of a Stack handed to observers.
type StackView interface {
	Len() int
	IsEmpty() bool
	Peek(n int) (types.Value, error)
	Data() []types.Value
}
