// Package symtab provides the growable buffers and comparable-keyed symbol
// tables shared by the compiler and the virtual machine: method-name
// symbols and the compiler's constant-pool value-to-index map.
package symtab

import "github.com/dolthub/swiss"

// Buffer is a minimal growable slice wrapper, grounded on the spec's
// "growable byte/int/value buffers".
type Buffer[T any] struct {
	items []T
}

// Write appends v to the buffer and returns its index.
func (b *Buffer[T]) Write(v T) int {
	b.items = append(b.items, v)
	return len(b.items) - 1
}

// Len returns the number of items written so far.
func (b *Buffer[T]) Len() int { return len(b.items) }

// At returns the item at index i.
func (b *Buffer[T]) At(i int) T { return b.items[i] }

// Set overwrites the item at index i, which must already exist (used for
// backpatching, e.g. jump targets).
func (b *Buffer[T]) Set(i int, v T) { b.items[i] = v }

// Items returns the buffer's contents. The caller must not retain or
// mutate a reference past the buffer's next Write.
func (b *Buffer[T]) Items() []T { return b.items }

// Table assigns a stable, densely-packed int32 id to each distinct
// comparable key on first insertion, backed by an open-addressed swiss.Map
// for O(1) lookup (spec §2.3/§3.4: module variables, method-call
// signatures, and the compiler's constant pool all need stable integer IDs
// over a comparable key -- K is string for the first two and
// int64/float64/string for the constant pool).
type Table[K comparable] struct {
	byKey *swiss.Map[K, int32]
	keys  []K
}

// NewTable creates an empty symbol table.
func NewTable[K comparable]() *Table[K] {
	return &Table[K]{byKey: swiss.NewMap[K, int32](16)}
}

// Intern returns the stable id for k, assigning a new one if k has not been
// seen before.
func (t *Table[K]) Intern(k K) int32 {
	if id, ok := t.byKey.Get(k); ok {
		return id
	}
	id := int32(len(t.keys))
	t.keys = append(t.keys, k)
	t.byKey.Put(k, id)
	return id
}

// Lookup returns the id assigned to k, if any.
func (t *Table[K]) Lookup(k K) (int32, bool) {
	return t.byKey.Get(k)
}

// Name returns the key assigned to id. It panics if id is out of range,
// which indicates a compiler bug.
func (t *Table[K]) Name(id int32) K { return t.keys[id] }

// Len returns the number of distinct keys interned so far.
func (t *Table[K]) Len() int { return len(t.keys) }
