// Package storetest holds a behavioural test suite shared by every
// roster.Store implementation.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) roster.Store

// Run executes the full suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("EnsureSessionIsIdempotent", func(t *testing.T) { testEnsureSession(t, newStore(t)) })
	t.Run("AddParticipantIsIdempotent", func(t *testing.T) { testAddParticipant(t, newStore(t)) })
	t.Run("RemoveParticipant", func(t *testing.T) { testRemoveParticipant(t, newStore(t)) })
	t.Run("ParticipantsKeepInsertionOrder", func(t *testing.T) { testOrder(t, newStore(t)) })
	t.Run("ClearAll", func(t *testing.T) { testClearAll(t, newStore(t)) })
	t.Run("RemoveEnrollmentsKeepsLaterSignups", func(t *testing.T) { testRemoveEnrollments(t, newStore(t)) })
	t.Run("EnsureUserKeepsExisting", func(t *testing.T) { testEnsureUser(t, newStore(t)) })
	t.Run("UpdateUserName", func(t *testing.T) { testUpdateUserName(t, newStore(t)) })
	t.Run("IncrementWorkouts", func(t *testing.T) { testIncrementWorkouts(t, newStore(t)) })
	t.Run("ResetWorkouts", func(t *testing.T) { testResetWorkouts(t, newStore(t)) })
	t.Run("ConcurrentSubscribes", func(t *testing.T) { testConcurrentSubscribes(t, newStore(t)) })
}

func testEnsureSession(t *testing.T, s roster.Store) {
	ctx := context.Background()

	a, err := s.EnsureSession(ctx, "Йога 17:30")
	require.NoError(t, err)
	b, err := s.EnsureSession(ctx, "Йога 17:30")
	require.NoError(t, err)
	c, err := s.EnsureSession(ctx, "Йога 18:40")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "Йога 17:30", sessions[0].Name)
	assert.Equal(t, "Йога 18:40", sessions[1].Name)

	_, err = s.GetSession(ctx, roster.SessionID("00000000-0000-0000-0000-000000000000"))
	assert.ErrorIs(t, err, roster.ErrSessionNotFound)
}

func testAddParticipant(t *testing.T, s roster.Store) {
	ctx := context.Background()
	sid := mustSession(t, s, "Йога 17:30")

	added, err := s.AddParticipant(ctx, sid, "1", "АннаПетрова")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddParticipant(ctx, sid, "1", "АннаПетрова")
	require.NoError(t, err)
	assert.False(t, added)

	sess, err := s.GetSession(ctx, sid)
	require.NoError(t, err)
	require.Len(t, sess.Participants, 1)
	assert.Equal(t, roster.UserID("1"), sess.Participants[0].UserID)
	assert.Equal(t, "АннаПетрова", sess.Participants[0].DisplayName)
}

func testRemoveParticipant(t *testing.T, s roster.Store) {
	ctx := context.Background()
	sid := mustSession(t, s, "Йога 17:30")

	removed, err := s.RemoveParticipant(ctx, sid, "1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = s.AddParticipant(ctx, sid, "1", "a")
	require.NoError(t, err)

	removed, err = s.RemoveParticipant(ctx, sid, "1")
	require.NoError(t, err)
	assert.True(t, removed)

	sess, err := s.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.True(t, sess.IsEmpty())
}

func testOrder(t *testing.T, s roster.Store) {
	ctx := context.Background()
	sid := mustSession(t, s, "Йога 18:40")

	for _, id := range []roster.UserID{"c", "a", "b"} {
		_, err := s.AddParticipant(ctx, sid, id, "name-"+string(id))
		require.NoError(t, err)
	}
	_, err := s.RemoveParticipant(ctx, sid, "a")
	require.NoError(t, err)
	_, err = s.AddParticipant(ctx, sid, "a", "name-a")
	require.NoError(t, err)

	sess, err := s.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, []string{"name-c", "name-b", "name-a"}, sess.Names())
}

func testClearAll(t *testing.T, s roster.Store) {
	ctx := context.Background()
	a := mustSession(t, s, "Йога 17:30")
	b := mustSession(t, s, "Йога 18:40")

	_, err := s.AddParticipant(ctx, a, "1", "x")
	require.NoError(t, err)
	_, err = s.AddParticipant(ctx, b, "2", "y")
	require.NoError(t, err)

	require.NoError(t, s.ClearAll(ctx))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		assert.True(t, sess.IsEmpty(), sess.Name)
	}
}

func testRemoveEnrollments(t *testing.T, s roster.Store) {
	ctx := context.Background()
	a := mustSession(t, s, "Йога 17:30")
	b := mustSession(t, s, "Йога 18:40")

	_, err := s.AddParticipant(ctx, a, "1", "x")
	require.NoError(t, err)
	_, err = s.AddParticipant(ctx, b, "2", "y")
	require.NoError(t, err)

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	snapshot := roster.Enrollments(sessions)
	require.Len(t, snapshot, 2)

	// Joins after the snapshot.
	_, err = s.AddParticipant(ctx, a, "3", "z")
	require.NoError(t, err)
	_, err = s.AddParticipant(ctx, b, "1", "x")
	require.NoError(t, err)

	require.NoError(t, s.RemoveEnrollments(ctx, snapshot))
	require.NoError(t, s.RemoveEnrollments(ctx, nil))

	sessA, err := s.GetSession(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, sessA.Names())

	sessB, err := s.GetSession(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, sessB.Names())
}

func testEnsureUser(t *testing.T, s roster.Store) {
	ctx := context.Background()

	u, err := roster.NewUser("42", "Анна", "", 42)
	require.NoError(t, err)

	created, err := s.EnsureUser(ctx, u)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, s.UpdateUserName(ctx, "42", roster.FieldFirstName, "Аня"))

	again, err := roster.NewUser("42", "Анна", "Петрова", 42)
	require.NoError(t, err)
	created, err = s.EnsureUser(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.GetUser(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Аня", got.FirstName)
	assert.Equal(t, "", got.LastName)
	assert.Equal(t, int64(42), got.TelegramUserID)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, roster.ErrUserNotFound)
}

func testUpdateUserName(t *testing.T, s roster.Store) {
	ctx := context.Background()
	mustUser(t, s, "7")

	require.NoError(t, s.UpdateUserName(ctx, "7", roster.FieldLastName, "Иванова"))
	got, err := s.GetUser(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "Иванова", got.LastName)

	err = s.UpdateUserName(ctx, "missing", roster.FieldFirstName, "x")
	assert.ErrorIs(t, err, roster.ErrUserNotFound)

	err = s.UpdateUserName(ctx, "7", roster.NameField("nickname"), "x")
	assert.ErrorIs(t, err, roster.ErrInvalidNameField)
}

func testIncrementWorkouts(t *testing.T, s roster.Store) {
	ctx := context.Background()
	for _, id := range []roster.UserID{"A", "B", "C"} {
		mustUser(t, s, id)
	}

	require.NoError(t, s.IncrementWorkouts(ctx, []roster.UserID{"A", "B", "B", "C"}))
	require.NoError(t, s.IncrementWorkouts(ctx, []roster.UserID{"A"}))
	require.NoError(t, s.IncrementWorkouts(ctx, nil))

	want := map[roster.UserID]int{"A": 2, "B": 1, "C": 1}
	for id, n := range want {
		u, err := s.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, n, u.WorkoutCount, string(id))
	}
}

func testResetWorkouts(t *testing.T, s roster.Store) {
	ctx := context.Background()
	mustUser(t, s, "A")
	require.NoError(t, s.IncrementWorkouts(ctx, []roster.UserID{"A"}))

	require.NoError(t, s.ResetWorkouts(ctx, "A"))
	u, err := s.GetUser(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, u.WorkoutCount)

	assert.ErrorIs(t, s.ResetWorkouts(ctx, "missing"), roster.ErrUserNotFound)
}

func testConcurrentSubscribes(t *testing.T, s roster.Store) {
	ctx := context.Background()
	sid := mustSession(t, s, "Йога 17:30")

	const users = 20
	var wg sync.WaitGroup
	errs := make(chan error, users*2)
	for i := 0; i < users; i++ {
		id := roster.UserID(fmt.Sprintf("u%02d", i))
		// Each user subscribes twice concurrently; exactly one insert must win.
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.AddParticipant(ctx, sid, id, string(id)); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	sess, err := s.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.Len(t, sess.Participants, users)
}

func mustSession(t *testing.T, s roster.Store, name string) roster.SessionID {
	t.Helper()
	id, err := s.EnsureSession(context.Background(), name)
	require.NoError(t, err)
	return id
}

func mustUser(t *testing.T, s roster.Store, id roster.UserID) {
	t.Helper()
	u, err := roster.NewUser(id, "Имя"+string(id), "", 0)
	require.NoError(t, err)
	_, err = s.EnsureUser(context.Background(), u)
	require.NoError(t, err)
}
