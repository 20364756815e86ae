package core

import "fmt"

// IdentifierTable hands out small integer identifiers for owners and resolves them back.
// Identifier 0 is never issued so it can stand for "none".
type IdentifierTable[T any] struct {
	owners []*T
}

func NewIdentifierTable[T any](capacity int) *IdentifierTable[T] {
	return &IdentifierTable[T]{
		owners: make([]*T, 1, capacity+1),
	}
}

// Acquire stores the owner in the first free slot and returns its identifier.
func (t *IdentifierTable[T]) Acquire(owner T) uint64 {
	for i := 1; i < len(t.owners); i++ {
		// Existing free spot. Take it.
		if t.owners[i] == nil {
			t.owners[i] = &owner
			return uint64(i)
		}
	}
	t.owners = append(t.owners, &owner)
	return uint64(len(t.owners) - 1)
}

func (t *IdentifierTable[T]) Get(id uint64) (T, bool) {
	var zero T
	if id == 0 || id >= uint64(len(t.owners)) || t.owners[id] == nil {
		return zero, false
	}
	return *t.owners[id], true
}

// Release frees the identifier and returns the owner that held it.
func (t *IdentifierTable[T]) Release(id uint64) (T, error) {
	var zero T
	if id == 0 || id >= uint64(len(t.owners)) {
		return zero, fmt.Errorf("identifier release: id '%d' out of range (max=%d)", id, len(t.owners)-1)
	}
	if t.owners[id] == nil {
		return zero, fmt.Errorf("identifier release: id '%d' is not in use", id)
	}
	owner := *t.owners[id]
	t.owners[id] = nil
	return owner, nil
}

// Len reports how many identifiers are currently in use.
func (t *IdentifierTable[T]) Len() int {
	n := 0
	for i := 1; i < len(t.owners); i++ {
		if t.owners[i] != nil {
			n++
		}
	}
	return n
}
