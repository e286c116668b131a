// Package ringbuf implements a resizable circular buffer with explicit full and empty signaling.
//
// A Buffer is owned by a single caller. It holds no locks and never blocks; every operation
// either succeeds immediately or returns an error and leaves the buffer unchanged.
package ringbuf

import (
	"slices"
)

const (
	// MinCapacity is the smallest capacity a Buffer can be created with or shrunk to.
	MinCapacity = 2

	// DefaultCapacity is the capacity to use when the caller has no better value.
	DefaultCapacity = MinCapacity
)

type slot[T any] struct {
	written bool
	value   T
}

// A Buffer is a FIFO of slots whose positions wrap from the last index back to the first.
// Occupancy is tracked per slot, so a stored zero value is distinct from an empty slot.
type Buffer[T any] struct {
	slots            []slot[T]
	read             index
	write            index
	free             int
	originalCapacity int
}

// New returns an empty Buffer with room for capacity values.
func New[T any](capacity int) (*Buffer[T], error) {
	if capacity < MinCapacity {
		return nil, &ValidationError{Op: "create", Value: capacity, Reason: "capacity must be at least 2"}
	}
	return &Buffer[T]{
		slots:            make([]slot[T], capacity),
		free:             capacity,
		originalCapacity: capacity,
	}, nil
}

// Read removes and returns the value at the read cursor.
func (b *Buffer[T]) Read() (T, error) {
	s := &b.slots[b.read]
	if !s.written {
		var t T
		return t, &EmptyError{Index: int(b.read)}
	}
	value := s.value
	*s = slot[T]{}
	b.read = b.read.next(len(b.slots))
	b.free++
	return value, nil
}

// Peek returns the value at the read cursor without removing it.
func (b *Buffer[T]) Peek() (T, error) {
	s := b.slots[b.read]
	if !s.written {
		var t T
		return t, &EmptyError{Index: int(b.read)}
	}
	return s.value, nil
}

// Write stores value at the write cursor. The zero value of T is a valid entry.
func (b *Buffer[T]) Write(value T) error {
	if b.full() {
		return &FullError{Index: int(b.write)}
	}
	b.slots[b.write] = slot[T]{written: true, value: value}
	b.write = b.write.next(len(b.slots))
	b.free--
	return nil
}

func (b *Buffer[T]) full() bool {
	return b.write == b.read && b.slots[b.write].written
}

func (b *Buffer[T]) ReadIndex() int {
	return int(b.read)
}

func (b *Buffer[T]) WriteIndex() int {
	return int(b.write)
}

// Size returns the current capacity.
func (b *Buffer[T]) Size() int {
	return len(b.slots)
}

// Free returns the number of writable slots.
func (b *Buffer[T]) Free() int {
	return b.free
}

// Len returns the number of values waiting to be read.
func (b *Buffer[T]) Len() int {
	return len(b.slots) - b.free
}

// Grow adds n empty slots without disturbing the values already written or their order.
//
// The slots are inserted in front of the read cursor, which is where the free region ends. The
// write cursor moves with them only when it sits at or after the insertion point; in a full
// buffer it stays put so that it lands on the first new slot.
func (b *Buffer[T]) Grow(n int) error {
	if n < 1 {
		return &ValidationError{Op: "grow", Value: n, Reason: "amount must be at least 1"}
	}
	full := b.full()
	at := int(b.read)
	b.slots = slices.Insert(b.slots, at, make([]slot[T], n)...)
	if !full && b.write >= b.read {
		b.write += index(n)
	}
	b.read += index(n)
	b.free += n
	return nil
}

// Shrink removes n free slots, starting at the write cursor. It refuses to go below
// MinCapacity and refuses to remove slots that hold unread values.
func (b *Buffer[T]) Shrink(n int) error {
	if n < 0 {
		return &ValidationError{Op: "shrink", Value: n, Reason: "amount must not be negative"}
	}
	if n > len(b.slots)-MinCapacity {
		return &ValidationError{Op: "shrink", Value: n, Reason: "can't shrink to less than 2"}
	}
	if n > b.free {
		return &OccupiedError{Requested: n, Free: b.free}
	}
	for range n {
		at := int(b.write)
		b.slots = slices.Delete(b.slots, at, at+1)
		if b.read > b.write {
			b.read--
		}
		b.write = b.write.wrap(len(b.slots))
		b.read = b.read.wrap(len(b.slots))
	}
	b.free = max(b.free-n, 0)
	return nil
}

// Flush empties the buffer and keeps its current capacity.
func (b *Buffer[T]) Flush() {
	clear(b.slots)
	b.read, b.write = 0, 0
	b.free = len(b.slots)
}

// Reset empties the buffer and restores the capacity it was created with.
func (b *Buffer[T]) Reset() {
	b.slots = make([]slot[T], b.originalCapacity)
	b.read, b.write = 0, 0
	b.free = b.originalCapacity
}
