package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogakitties/yogakitties-bot/internal/application/command"
	"github.com/yogakitties/yogakitties-bot/internal/domain/conversation"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/memory"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/redis"
)

type fakeMutex struct {
	held     bool
	err      error
	unlocked bool
}

func (m *fakeMutex) TryLock(context.Context, string, time.Duration) (func(context.Context) error, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	if m.held {
		return nil, false, nil
	}
	return func(context.Context) error { m.unlocked = true; return nil }, true, nil
}

func seededStore(t *testing.T) (*memory.Store, roster.SessionID) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	sid, err := store.EnsureSession(ctx, "Йога 17:30")
	require.NoError(t, err)
	u, err := roster.NewUser("1", "Анна", "", 0)
	require.NoError(t, err)
	_, err = store.EnsureUser(ctx, u)
	require.NoError(t, err)
	_, err = store.AddParticipant(ctx, sid, "1", "Анна")
	require.NoError(t, err)
	return store, sid
}

func TestTallyResetJob_Run(t *testing.T) {
	ctx := context.Background()
	store, sid := seededStore(t)
	mu := &fakeMutex{}
	job := NewTallyResetJob(command.NewTallyAndResetHandler(store, nil), mu, nil, DefaultTallyResetConfig())

	require.NoError(t, job.Run(ctx))

	assert.False(t, mu.unlocked, "a finished run keeps the lock until it expires")
	require.NotNil(t, job.LastResult())
	assert.Equal(t, 1, job.LastResult().Credited)

	sess, err := store.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.True(t, sess.IsEmpty())
}

type brokenStore struct {
	*memory.Store
}

func (brokenStore) ListSessions(context.Context) ([]*roster.Session, error) {
	return nil, errors.New("store down")
}

func TestTallyResetJob_ReleasesLockOnFailure(t *testing.T) {
	store, _ := seededStore(t)
	mu := &fakeMutex{}
	job := NewTallyResetJob(command.NewTallyAndResetHandler(brokenStore{store}, nil), mu, nil, TallyResetConfig{})

	assert.Error(t, job.Run(context.Background()))
	assert.True(t, mu.unlocked)
}

func TestTallyResetJob_TwoReplicasFireOnce(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := redis.DefaultConfig()
	cfg.Addr = mr.Addr()
	cache, err := redis.NewCache(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	locker := redis.NewLocker(cache)

	store, sid := seededStore(t)
	jobCfg := TallyResetConfig{LockTTL: 10 * time.Minute}
	replica1 := NewTallyResetJob(command.NewTallyAndResetHandler(store, nil), locker, nil, jobCfg)
	replica2 := NewTallyResetJob(command.NewTallyAndResetHandler(store, nil), locker, nil, jobCfg)

	require.NoError(t, replica1.Run(ctx))
	require.NotNil(t, replica1.LastResult())
	assert.Equal(t, 1, replica1.LastResult().Credited)

	// Someone signs up for the next class between the two fires.
	u, err := roster.NewUser("2", "Борис", "", 0)
	require.NoError(t, err)
	_, err = store.EnsureUser(ctx, u)
	require.NoError(t, err)
	_, err = store.AddParticipant(ctx, sid, "2", "Борис")
	require.NoError(t, err)

	require.NoError(t, replica2.Run(ctx))
	assert.Nil(t, replica2.LastResult())

	boris, err := store.GetUser(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 0, boris.WorkoutCount)
	sess, err := store.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.True(t, sess.Has("2"))

	// The next occurrence is days later; by then the lock has expired.
	mr.FastForward(11 * time.Minute)
	require.NoError(t, replica2.Run(ctx))
	require.NotNil(t, replica2.LastResult())
	assert.Equal(t, 1, replica2.LastResult().Credited)
}

func TestTallyResetJob_SkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	store, sid := seededStore(t)
	job := NewTallyResetJob(command.NewTallyAndResetHandler(store, nil), &fakeMutex{held: true}, nil, TallyResetConfig{})

	require.NoError(t, job.Run(ctx))
	assert.Nil(t, job.LastResult())

	sess, err := store.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.Len(t, sess.Participants, 1)
}

func TestTallyResetJob_LockError(t *testing.T) {
	store, _ := seededStore(t)
	lockErr := errors.New("redis down")
	job := NewTallyResetJob(command.NewTallyAndResetHandler(store, nil), &fakeMutex{err: lockErr}, nil, TallyResetConfig{})

	assert.ErrorIs(t, job.Run(context.Background()), lockErr)
}

func TestTallyResetJob_NoMutex(t *testing.T) {
	store, _ := seededStore(t)
	job := NewTallyResetJob(command.NewTallyAndResetHandler(store, nil), nil, nil, TallyResetConfig{})

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "tally_reset", job.Name())
}

func TestConversationSweepJob(t *testing.T) {
	ctx := context.Background()
	states := memory.NewConversationStore()
	now := time.Now()
	require.NoError(t, states.Put(ctx, &conversation.State{UserID: "1", Stage: conversation.StageAwaitingFirstName, UpdatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, states.Put(ctx, &conversation.State{UserID: "2", Stage: conversation.StageAwaitingFirstName, UpdatedAt: now}))

	job := NewConversationSweepJob(states, time.Hour, nil)
	require.NoError(t, job.Run(ctx))

	assert.Equal(t, 1, states.Len())
}
