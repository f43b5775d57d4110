package resource

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by MemTree when an entry does not belong to it.
var ErrNotFound = errors.New("entry not in tree")

// MemTree is an in-memory Tree. It backs tests and callers that build
// documents programmatically.
type MemTree struct {
	Entries []*Entry
}

// NewMemTree returns a tree holding the given entries.
func NewMemTree(entries ...*Entry) *MemTree {
	return &MemTree{Entries: entries}
}

// Children implements Tree.
func (m *MemTree) Children() []*Entry {
	return append([]*Entry(nil), m.Entries...)
}

// Append implements Tree.
func (m *MemTree) Append(e *Entry) (*Entry, error) {
	c := e.Clone()
	m.Entries = append(m.Entries, c)
	return c, nil
}

// MoveAfter implements Tree.
func (m *MemTree) MoveAfter(e, anchor *Entry) error {
	if e == anchor {
		return nil
	}
	from := m.index(e)
	if from < 0 {
		return fmt.Errorf("move %s: %w", describe(e), ErrNotFound)
	}
	if m.index(anchor) < 0 {
		return fmt.Errorf("move after %s: %w", describe(anchor), ErrNotFound)
	}
	m.Entries = append(m.Entries[:from], m.Entries[from+1:]...)
	to := m.index(anchor) + 1
	m.Entries = append(m.Entries, nil)
	copy(m.Entries[to+1:], m.Entries[to:])
	m.Entries[to] = e
	return nil
}

// SetValue implements Tree.
func (m *MemTree) SetValue(e *Entry, raw string, literal bool) error {
	if literal {
		raw = WrapLiteral(raw)
	}
	e.Value = raw
	return nil
}

func (m *MemTree) index(e *Entry) int {
	for i, x := range m.Entries {
		if x == e {
			return i
		}
	}
	return -1
}

func describe(e *Entry) string {
	if key, ok := e.Identity(); ok {
		return fmt.Sprintf("%s %q", e.Kind, key)
	}
	return e.Kind.String()
}
