package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogakitties/yogakitties-bot/internal/domain/classday"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/memory"
)

func seed(t *testing.T) (*memory.Store, roster.SessionID, roster.SessionID) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	early, err := store.EnsureSession(ctx, "Йога 17:30")
	require.NoError(t, err)
	late, err := store.EnsureSession(ctx, "Йога 18:40")
	require.NoError(t, err)

	u, err := roster.NewUser("1", "Анна", "Петрова", 10)
	require.NoError(t, err)
	_, err = store.EnsureUser(ctx, u)
	require.NoError(t, err)

	return store, early, late
}

func TestListParticipants(t *testing.T) {
	ctx := context.Background()
	store, early, _ := seed(t)
	h := NewListParticipantsHandler(store)

	dto, err := h.Handle(ctx, ListParticipantsQuery{SessionID: early})
	require.NoError(t, err)
	assert.True(t, dto.Empty())
	assert.Equal(t, "Йога 17:30", dto.SessionName)

	for _, p := range []struct{ id, name string }{{"2", "Борис"}, {"1", "АннаПетрова"}} {
		_, err := store.AddParticipant(ctx, early, roster.UserID(p.id), p.name)
		require.NoError(t, err)
	}

	dto, err = h.Handle(ctx, ListParticipantsQuery{SessionID: early})
	require.NoError(t, err)
	assert.Equal(t, 2, dto.Count())
	assert.Equal(t, []string{"Борис", "АннаПетрова"}, dto.Names)

	_, err = h.Handle(ctx, ListParticipantsQuery{})
	assert.Error(t, err)

	_, err = h.Handle(ctx, ListParticipantsQuery{SessionID: "missing"})
	assert.ErrorIs(t, err, roster.ErrSessionNotFound)
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	store, _, _ := seed(t)
	require.NoError(t, store.IncrementWorkouts(ctx, []roster.UserID{"1"}))
	h := NewGetProfileHandler(store)

	dto, err := h.Handle(ctx, GetProfileQuery{UserID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "Анна Петрова", dto.FullName())
	assert.Equal(t, 1, dto.WorkoutCount)

	_, err = h.Handle(ctx, GetProfileQuery{UserID: "2"})
	assert.ErrorIs(t, err, roster.ErrUserNotFound)
}

func TestGetSchedule(t *testing.T) {
	ctx := context.Background()
	store, early, late := seed(t)
	_, err := store.AddParticipant(ctx, late, "1", "АннаПетрова")
	require.NoError(t, err)

	loc := time.FixedZone("MSK", 3*3600)
	// Saturday 23:30 UTC is already Sunday in MSK.
	now := time.Date(2026, time.October, 17, 23, 30, 0, 0, time.UTC)

	h := NewGetScheduleHandler(store, classday.DefaultRule(), loc).WithClock(func() time.Time { return now })

	dto, err := h.Handle(ctx, GetScheduleQuery{UserID: "1"})
	require.NoError(t, err)

	assert.Equal(t, time.Monday, dto.ClassDate.Weekday())
	assert.Equal(t, 19, dto.ClassDate.Day())
	require.Len(t, dto.Sessions, 2)
	assert.Equal(t, early, dto.Sessions[0].ID)
	assert.False(t, dto.Sessions[0].Joined)
	assert.Equal(t, 1, dto.Sessions[1].Count)
	assert.True(t, dto.Sessions[1].Joined)
}
