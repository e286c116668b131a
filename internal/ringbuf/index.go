package ringbuf

// An index is a cursor position in [0, capacity). Capacity is passed in rather than stored
// because it changes when the buffer is resized.
type index int

// next returns the position after i, wrapping to 0 once it reaches capacity.
func (i index) next(capacity int) index {
	i++
	if int(i) >= capacity {
		return 0
	}
	return i
}

// wrap folds a position that a resize pushed to or past capacity back to 0.
func (i index) wrap(capacity int) index {
	if int(i) >= capacity {
		return 0
	}
	return i
}
