package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogakitties/yogakitties-bot/internal/domain/conversation"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/memory"
)

func newEditProfile(t *testing.T) (*EditProfileHandler, *spyStore, *memory.ConversationStore) {
	t.Helper()
	store := newSpyStore()
	seedUser(t, store, "1", "Анна", "Петрова")
	states := memory.NewConversationStore()
	return NewEditProfileHandler(states, store, nil), store, states
}

func TestEditProfile_FullDialog(t *testing.T) {
	ctx := context.Background()
	h, store, states := newEditProfile(t)

	res, err := h.Start(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, conversation.ReplyAskFirstName, res.Reply)
	assert.Equal(t, conversation.StageAwaitingFirstName, res.Stage)

	res, err = h.Handle(ctx, EditProfileCommand{UserID: "1", Input: conversation.Text("  мария ")})
	require.NoError(t, err)
	assert.Equal(t, conversation.ReplyFirstNameSaved, res.Reply)
	assert.Equal(t, conversation.StageAwaitingLastName, res.Stage)

	res, err = h.Handle(ctx, EditProfileCommand{UserID: "1", Input: conversation.Text("иванова")})
	require.NoError(t, err)
	assert.Equal(t, conversation.ReplySaved, res.Reply)
	assert.Equal(t, conversation.OutcomeCompleted, res.Outcome)

	u, err := store.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "мария", u.FirstName)
	assert.Equal(t, "иванова", u.LastName)
	assert.Equal(t, 0, states.Len())
}

func TestEditProfile_SkipBothKeepsNames(t *testing.T) {
	ctx := context.Background()
	h, store, states := newEditProfile(t)

	_, err := h.Start(ctx, "1")
	require.NoError(t, err)

	res, err := h.Handle(ctx, EditProfileCommand{UserID: "1", Input: conversation.Skip()})
	require.NoError(t, err)
	assert.Equal(t, conversation.ReplyAskLastName, res.Reply)

	res, err = h.Handle(ctx, EditProfileCommand{UserID: "1", Input: conversation.Skip()})
	require.NoError(t, err)
	assert.Equal(t, conversation.ReplySaved, res.Reply)

	u, err := store.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Анна", u.FirstName)
	assert.Equal(t, "Петрова", u.LastName)
	assert.Equal(t, 0, states.Len())
}

func TestEditProfile_CancelAfterFirstName(t *testing.T) {
	ctx := context.Background()
	h, store, states := newEditProfile(t)

	_, err := h.Start(ctx, "1")
	require.NoError(t, err)
	_, err = h.Handle(ctx, EditProfileCommand{UserID: "1", Input: conversation.Text("Аня")})
	require.NoError(t, err)

	res, err := h.Handle(ctx, EditProfileCommand{UserID: "1", Input: conversation.Cancel()})
	require.NoError(t, err)
	assert.Equal(t, conversation.ReplyCancelled, res.Reply)
	assert.Equal(t, conversation.OutcomeCancelled, res.Outcome)

	// the first name was already written
	u, err := store.GetUser(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Аня", u.FirstName)
	assert.Equal(t, "Петрова", u.LastName)
	assert.Equal(t, 0, states.Len())
}

func TestEditProfile_BlankNameReprompts(t *testing.T) {
	ctx := context.Background()
	h, _, _ := newEditProfile(t)

	_, err := h.Start(ctx, "1")
	require.NoError(t, err)

	res, err := h.Handle(ctx, EditProfileCommand{UserID: "1", Input: conversation.Text("   ")})
	require.NoError(t, err)
	assert.Equal(t, conversation.ReplyEmptyName, res.Reply)
	assert.Equal(t, conversation.StageAwaitingFirstName, res.Stage)

	active, err := h.Active(ctx, "1")
	require.NoError(t, err)
	assert.True(t, active)
}

func TestEditProfile_StoreFailureEndsDialog(t *testing.T) {
	ctx := context.Background()
	h, store, states := newEditProfile(t)
	store.updateErr = errDown

	_, err := h.Start(ctx, "1")
	require.NoError(t, err)

	res, err := h.Handle(ctx, EditProfileCommand{UserID: "1", Input: conversation.Text("Аня")})
	require.NoError(t, err)
	assert.Equal(t, conversation.ReplyFailed, res.Reply)
	assert.Equal(t, conversation.OutcomeFailed, res.Outcome)
	assert.Equal(t, 0, states.Len())
}

func TestEditProfile_NoDialog(t *testing.T) {
	ctx := context.Background()
	h, _, _ := newEditProfile(t)

	_, err := h.Handle(ctx, EditProfileCommand{UserID: "1", Input: conversation.Text("Аня")})
	assert.ErrorIs(t, err, conversation.ErrNoConversation)

	active, err := h.Active(ctx, "1")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestEditProfile_RestartResetsStage(t *testing.T) {
	ctx := context.Background()
	h, _, states := newEditProfile(t)

	_, err := h.Start(ctx, "1")
	require.NoError(t, err)
	_, err = h.Handle(ctx, EditProfileCommand{UserID: "1", Input: conversation.Text("Аня")})
	require.NoError(t, err)

	res, err := h.Start(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, conversation.StageAwaitingFirstName, res.Stage)

	st, err := states.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, conversation.StageAwaitingFirstName, st.Stage)
	assert.Equal(t, 1, states.Len())
}
