// Copyright 2026 The jvmstack Authors
// This file is part of the jvmstack library.

package vm

import (
	"github.com/jvmstack/jvmstack/core/types"
	"github.com/jvmstack/jvmstack/descriptor"
)

// LocalSlots maps local variable slots to the parameters declared for them.
// It is built once per method when code begins and read-only afterwards.
type LocalSlots struct {
	first int
	slots map[int]types.LocalSlot
	order []int
}

// newLocalSlots lays out the parameters of desc. Instance methods reserve
// slot 0 for the receiver; long and double parameters take two slots. Names
// are assigned in declaration order, missing names stay empty.
func newLocalSlots(static bool, desc *descriptor.Method, names []string) (*LocalSlots, error) {
	if len(names) > len(desc.Params) {
		return nil, ErrTooManyParameters
	}
	l := &LocalSlots{
		slots: make(map[int]types.LocalSlot, len(desc.Params)),
		order: make([]int, 0, len(desc.Params)),
	}
	if !static {
		l.first = 1
	}
	slot := l.first
	for i, sig := range desc.Params {
		var name string
		if i < len(names) {
			name = names[i]
		}
		l.slots[slot] = types.LocalSlot{Slot: slot, Name: name, Signature: sig}
		l.order = append(l.order, slot)
		slot += descriptor.SlotSize(sig)
	}
	return l, nil
}

// Lookup returns the parameter whose first slot is slot. The second half of
// a wide parameter is not a parameter slot of its own.
func (l *LocalSlots) Lookup(slot int) (types.LocalSlot, bool) {
	if l == nil {
		return types.LocalSlot{}, false
	}
	s, ok := l.slots[slot]
	return s, ok
}

// Slots returns the declared parameters in slot order.
func (l *LocalSlots) Slots() []types.LocalSlot {
	if l == nil {
		return nil
	}
	out := make([]types.LocalSlot, 0, len(l.order))
	for _, slot := range l.order {
		out = append(out, l.slots[slot])
	}
	return out
}

// FirstParameterSlot is 0 for static methods and 1 otherwise.
func (l *LocalSlots) FirstParameterSlot() int {
	if l == nil {
		return 0
	}
	return l.first
}

// Len returns the number of declared parameters.
func (l *LocalSlots) Len() int {
	if l == nil {
		return 0
	}
	return len(l.order)
}
