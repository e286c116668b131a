package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ttd2089/resizable-ringbuf/internal/ringbuf"
)

func mustAllowKey(t *testing.T, k *Keyed, key string, now time.Time) bool {
	t.Helper()
	allowed, _, err := k.Allow(key, now)
	require.NoError(t, err)
	return allowed
}

func TestKeyed(t *testing.T) {

	t.Run("NewKeyed rejects an invalid limit", func(t *testing.T) {
		_, err := NewKeyed(0, time.Second)
		assert.ErrorIs(t, err, ringbuf.ErrInvalid)
	})

	t.Run("limits keys independently", func(t *testing.T) {
		k, err := NewKeyed(2, time.Second)
		require.NoError(t, err)

		assert.True(t, mustAllowKey(t, k, "a:foo", at(0)))
		assert.True(t, mustAllowKey(t, k, "a:foo", at(1)))
		assert.False(t, mustAllowKey(t, k, "a:foo", at(2)))
		assert.True(t, mustAllowKey(t, k, "b:foo", at(3)))

		_, stats, err := k.Allow("b:foo", at(4))
		require.NoError(t, err)
		assert.Equal(t, WindowStats{Limit: 2, InFlight: 2, Free: 0}, stats)
	})

	t.Run("Keys are sorted", func(t *testing.T) {
		k, err := NewKeyed(2, time.Second)
		require.NoError(t, err)
		for _, key := range []string{"c", "a", "b"} {
			mustAllowKey(t, k, key, at(0))
		}
		assert.Equal(t, []string{"a", "b", "c"}, k.Keys())
	})

	t.Run("SetLimit applies to existing and new windows", func(t *testing.T) {
		k, err := NewKeyed(2, time.Second)
		require.NoError(t, err)
		mustAllowKey(t, k, "old", at(0))

		require.NoError(t, k.SetLimit(6))
		mustAllowKey(t, k, "new", at(0))

		assert.Equal(t, 6, k.Limit())
		assert.Equal(t, map[string]WindowStats{
			"old": {Limit: 6, InFlight: 1, Free: 5},
			"new": {Limit: 6, InFlight: 1, Free: 5},
		}, k.Snapshot())
	})

	t.Run("SetLimit rejects an invalid limit", func(t *testing.T) {
		k, err := NewKeyed(3, time.Second)
		require.NoError(t, err)
		assert.Error(t, k.SetLimit(1))
		assert.Equal(t, 3, k.Limit())
	})

	t.Run("Clear keeps limits and Reset restores them", func(t *testing.T) {
		k, err := NewKeyed(2, time.Second)
		require.NoError(t, err)
		mustAllowKey(t, k, "old", at(0))
		require.NoError(t, k.SetLimit(4))
		mustAllowKey(t, k, "new", at(0))

		k.Clear()
		assert.Equal(t, map[string]WindowStats{
			"old": {Limit: 4, InFlight: 0, Free: 4},
			"new": {Limit: 4, InFlight: 0, Free: 4},
		}, k.Snapshot())

		k.Reset()
		assert.Equal(t, 2, k.Limit())
		assert.Equal(t, map[string]WindowStats{
			"old": {Limit: 2, InFlight: 0, Free: 2},
			"new": {Limit: 2, InFlight: 0, Free: 2},
		}, k.Snapshot())
	})
}
