package ringbuf

import (
	"errors"
	"fmt"
)

var (
	ErrInvalid  = errors.New("invalid argument")
	ErrEmpty    = errors.New("buffer is empty")
	ErrFull     = errors.New("buffer is full")
	ErrOccupied = errors.New("slots are occupied")
)

// A ValidationError reports a rejected construction or resize argument. The buffer is left
// unchanged.
type ValidationError struct {
	Op     string
	Value  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Op, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// An EmptyError is returned by Read and Peek when the slot at the read cursor holds no value.
type EmptyError struct {
	Index int
}

func (e *EmptyError) Error() string {
	return fmt.Sprintf("%v at index %d", ErrEmpty, e.Index)
}

func (e *EmptyError) Unwrap() error {
	return ErrEmpty
}

// A FullError is returned by Write when the slot at the write cursor still holds an unread value.
type FullError struct {
	Index int
}

func (e *FullError) Error() string {
	return fmt.Sprintf("%v at index %d", ErrFull, e.Index)
}

func (e *FullError) Unwrap() error {
	return ErrFull
}

// An OccupiedError is returned by Shrink when removing the requested number of slots would
// discard values that have not been read.
type OccupiedError struct {
	Requested int
	Free      int
}

func (e *OccupiedError) Error() string {
	return fmt.Sprintf("shrink %d: %v, only %d free", e.Requested, ErrOccupied, e.Free)
}

func (e *OccupiedError) Unwrap() error {
	return ErrOccupied
}
