package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	data, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)

	require.NoError(t, store.Set(ctx, "key", []byte("value"), time.Minute))

	data, found, err = store.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("value"), data)
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "key", []byte("value"), 30*time.Minute))

	_, found, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)

	// Advance past the TTL; the entry reports missing and is dropped.
	store.SetClock(func() time.Time { return now.Add(31 * time.Minute) })

	_, found, err = store.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)

	// A rewrite after expiry is readable again.
	require.NoError(t, store.Set(ctx, "key", []byte("fresh"), time.Hour))
	data, found, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("fresh"), data)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", []byte("value"), time.Minute))
	require.NoError(t, store.Delete(ctx, "key"))

	_, found, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreDeleteByPrefix(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "rec:user-1:a", []byte("1"), time.Minute))
	require.NoError(t, store.Set(ctx, "rec:user-1:b", []byte("2"), time.Minute))
	require.NoError(t, store.Set(ctx, "rec:user-2:a", []byte("3"), time.Minute))
	require.NoError(t, store.Set(ctx, "trending:week", []byte("4"), time.Minute))

	require.NoError(t, store.DeleteByPrefix(ctx, "rec:user-1:"))

	_, found, _ := store.Get(ctx, "rec:user-1:a")
	assert.False(t, found)
	_, found, _ = store.Get(ctx, "rec:user-1:b")
	assert.False(t, found)
	_, found, _ = store.Get(ctx, "rec:user-2:a")
	assert.True(t, found)
	_, found, _ = store.Get(ctx, "trending:week")
	assert.True(t, found)
}
