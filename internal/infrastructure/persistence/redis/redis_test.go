package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogakitties/yogakitties-bot/internal/domain/conversation"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	cfg := DefaultConfig()
	cfg.Addr = mr.Addr()
	cache, err := NewCache(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache, mr
}

func TestNewCache_ConnectionError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.DialTimeout = 200 * time.Millisecond

	_, err := NewCache(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrCacheConnection)
}

func TestCache_SetGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct{ N int }
	require.NoError(t, cache.Set(ctx, cache.Key("x"), payload{N: 3}, time.Minute))

	var got payload
	require.NoError(t, cache.Get(ctx, cache.Key("x"), &got))
	assert.Equal(t, 3, got.N)

	assert.ErrorIs(t, cache.Get(ctx, cache.Key("missing"), &got), ErrCacheMiss)
	assert.ErrorIs(t, cache.Set(ctx, "", 1, 0), ErrCacheKeyEmpty)
}

func TestConversationStore(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	store := NewConversationStore(cache, time.Hour)

	_, err := store.Get(ctx, "42")
	assert.ErrorIs(t, err, conversation.ErrNoConversation)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.Put(ctx, &conversation.State{
		UserID: "42", Stage: conversation.StageAwaitingLastName, StartedAt: now, UpdatedAt: now,
	}))

	st, err := store.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, conversation.StageAwaitingLastName, st.Stage)
	assert.True(t, now.Equal(st.StartedAt))
	assert.True(t, mr.Exists("yogakitties:conversation:42"))

	mr.FastForward(2 * time.Hour)
	_, err = store.Get(ctx, "42")
	assert.ErrorIs(t, err, conversation.ErrNoConversation)

	require.NoError(t, store.Delete(ctx, "42"))
}

func TestLocker(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	locker := NewLocker(cache)

	lock, err := locker.Acquire(ctx, "tally_reset", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "tally_reset", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, lock.Release(ctx))
	assert.False(t, mr.Exists("yogakitties:lock:tally_reset"))

	again, err := locker.Acquire(ctx, "tally_reset", time.Minute)
	require.NoError(t, err)

	// A stale holder must not release someone else's lock.
	require.NoError(t, lock.Release(ctx))
	assert.True(t, mr.Exists("yogakitties:lock:tally_reset"))
	require.NoError(t, again.Release(ctx))
}

func TestLocker_TryLock(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	locker := NewLocker(cache)

	unlock, ok, err := locker.TryLock(ctx, "tally_reset", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "tally_reset", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, unlock(ctx))

	_, ok, err = locker.TryLock(ctx, "tally_reset", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
