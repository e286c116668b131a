package ratelimit

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/exp/maps"
)

// Keyed keeps an independent Window per key. Windows are created on first use.
type Keyed struct {
	mu            sync.Mutex
	period        time.Duration
	originalLimit int
	limit         int
	windows       map[string]*Window
}

func NewKeyed(limit int, period time.Duration) (*Keyed, error) {
	if err := validate(limit, period); err != nil {
		return nil, err
	}
	return &Keyed{
		period:        period,
		originalLimit: limit,
		limit:         limit,
		windows:       map[string]*Window{},
	}, nil
}

// Allow records an event for key at now and reports whether the key's window had room for it,
// along with the window's state afterwards.
func (k *Keyed) Allow(key string, now time.Time) (bool, WindowStats, error) {
	w, err := k.window(key)
	if err != nil {
		return false, WindowStats{}, err
	}
	allowed, err := w.Allow(now)
	if err != nil {
		return false, WindowStats{}, fmt.Errorf("allow %q: %w", key, err)
	}
	return allowed, w.Stats(), nil
}

func (k *Keyed) window(key string) (*Window, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if w, ok := k.windows[key]; ok {
		return w, nil
	}

	// New windows start at the original limit so that Reset brings every window back to it.
	w, err := NewWindow(k.originalLimit, k.period)
	if err != nil {
		return nil, fmt.Errorf("create window %q: %w", key, err)
	}
	if k.limit != k.originalLimit {
		if err := w.SetLimit(k.limit); err != nil {
			return nil, fmt.Errorf("create window %q: %w", key, err)
		}
	}
	k.windows[key] = w
	return w, nil
}

// SetLimit changes the limit of every existing window and of windows created later.
func (k *Keyed) SetLimit(limit int) error {
	if err := validate(limit, k.period); err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	for key, w := range k.windows {
		if err := w.SetLimit(limit); err != nil {
			return fmt.Errorf("set limit %q: %w", key, err)
		}
	}
	k.limit = limit
	return nil
}

func (k *Keyed) Limit() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.limit
}

// Clear forgets every event of every window and keeps the current limit.
func (k *Keyed) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, w := range k.windows {
		w.Clear()
	}
}

// Reset forgets every event of every window and restores the original limit.
func (k *Keyed) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, w := range k.windows {
		w.Reset()
	}
	k.limit = k.originalLimit
}

// Keys returns the keys that have a window, in ascending order.
func (k *Keyed) Keys() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	keys := maps.Keys(k.windows)
	slices.Sort(keys)
	return keys
}

func (k *Keyed) Snapshot() map[string]WindowStats {
	k.mu.Lock()
	defer k.mu.Unlock()
	snapshot := make(map[string]WindowStats, len(k.windows))
	for key, w := range k.windows {
		snapshot[key] = w.Stats()
	}
	return snapshot
}
