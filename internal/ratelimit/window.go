// Package ratelimit implements sliding-window rate limiters on top of [ringbuf.Buffer]. Each
// window remembers the times of the most recent events, so its capacity is its limit.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/ttd2089/resizable-ringbuf/internal/ringbuf"
)

// WindowStats is a point-in-time view of a Window.
type WindowStats struct {
	Limit    int `json:"limit"`
	InFlight int `json:"in_flight"`
	Free     int `json:"free"`
}

// A Window allows at most Limit events in any span of period. It is safe for concurrent use.
type Window struct {
	mu     sync.Mutex
	period time.Duration
	events *ringbuf.Buffer[time.Time]
}

func NewWindow(limit int, period time.Duration) (*Window, error) {
	if err := validate(limit, period); err != nil {
		return nil, err
	}
	events, err := ringbuf.New[time.Time](limit)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}
	return &Window{
		period: period,
		events: events,
	}, nil
}

func validate(limit int, period time.Duration) error {
	if limit < ringbuf.MinCapacity {
		return fmt.Errorf("limit %d: must be at least %d: %w", limit, ringbuf.MinCapacity, ringbuf.ErrInvalid)
	}
	if period <= 0 {
		return fmt.Errorf("period %v: must be positive: %w", period, ringbuf.ErrInvalid)
	}
	return nil
}

// Allow records an event at now and reports true if the window has room for it. A rejected
// event is not recorded.
func (w *Window) Allow(now time.Time) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.evict(now); err != nil {
		return false, err
	}
	if w.events.Free() == 0 {
		return false, nil
	}
	if err := w.events.Write(now); err != nil {
		return false, fmt.Errorf("record event: %w", err)
	}
	return true, nil
}

// Reserve records an event and returns how long after now the caller must wait before it is
// allowed. When the window is full the event is scheduled for the moment the oldest one expires.
func (w *Window) Reserve(now time.Time) (time.Duration, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.evict(now); err != nil {
		return 0, err
	}

	at := now
	if w.events.Free() == 0 {
		oldest, err := w.events.Read()
		if err != nil {
			return 0, fmt.Errorf("read oldest event: %w", err)
		}
		at = oldest.Add(w.period)
	}
	if err := w.events.Write(at); err != nil {
		return 0, fmt.Errorf("record event: %w", err)
	}
	return at.Sub(now), nil
}

// evict drops events that are a full period or more older than now. The caller holds w.mu.
func (w *Window) evict(now time.Time) error {
	threshold := now.Add(-w.period)
	for w.events.Len() > 0 {
		oldest, err := w.events.Peek()
		if err != nil {
			return fmt.Errorf("peek oldest event: %w", err)
		}
		if oldest.After(threshold) {
			return nil
		}
		if _, err := w.events.Read(); err != nil {
			return fmt.Errorf("expire event: %w", err)
		}
	}
	return nil
}

// SetLimit changes the number of events allowed per period. Lowering the limit below the number
// of events in flight forgets the oldest of them.
func (w *Window) SetLimit(limit int) error {
	if err := validate(limit, w.period); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	size := w.events.Size()
	switch {
	case limit > size:
		if err := w.events.Grow(limit - size); err != nil {
			return fmt.Errorf("grow window: %w", err)
		}
	case limit < size:
		n := size - limit
		for w.events.Free() < n {
			if _, err := w.events.Read(); err != nil {
				return fmt.Errorf("forget event: %w", err)
			}
		}
		if err := w.events.Shrink(n); err != nil {
			return fmt.Errorf("shrink window: %w", err)
		}
	}
	return nil
}

// Clear forgets every event and keeps the current limit.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events.Flush()
}

// Reset forgets every event and restores the limit the window was created with.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events.Reset()
}

func (w *Window) Stats() WindowStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WindowStats{
		Limit:    w.events.Size(),
		InFlight: w.events.Len(),
		Free:     w.events.Free(),
	}
}
