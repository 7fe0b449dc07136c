package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/yogakitties/yogakitties-bot/internal/domain/conversation"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// ══════════════════════════════════════════════════════════════════════════════
// EDIT PROFILE CONVERSATION
// Drives the conversation state machine against the dialog store and the
// profile store. One call advances the dialog by exactly one input.
// ══════════════════════════════════════════════════════════════════════════════

// EditProfileCommand is one user input inside the dialog.
type EditProfileCommand struct {
	UserID roster.UserID
	Input  conversation.Input
}

// EditProfileResult tells the transport what to reply.
type EditProfileResult struct {
	Reply   conversation.Reply
	Outcome conversation.Outcome
	Stage   conversation.Stage
}

// EditProfileHandler runs the profile-edit dialog.
type EditProfileHandler struct {
	states conversation.StateStore
	users  roster.UserRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewEditProfileHandler creates a new EditProfileHandler.
func NewEditProfileHandler(states conversation.StateStore, users roster.UserRepository, logger *slog.Logger) *EditProfileHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EditProfileHandler{
		states: states,
		users:  users,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start opens the dialog, replacing any dialog already in progress.
func (h *EditProfileHandler) Start(ctx context.Context, userID roster.UserID) (*EditProfileResult, error) {
	if !userID.IsValid() {
		return nil, roster.ErrInvalidUserID
	}

	t := conversation.Start()
	now := h.now()
	err := h.states.Put(ctx, &conversation.State{
		UserID:    userID,
		Stage:     t.Next,
		StartedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("edit_profile: failed to start: %w", err)
	}
	return &EditProfileResult{Reply: t.Reply, Outcome: t.Outcome, Stage: t.Next}, nil
}

// Active reports whether the user is in the middle of the dialog.
func (h *EditProfileHandler) Active(ctx context.Context, userID roster.UserID) (bool, error) {
	_, err := h.states.Get(ctx, userID)
	if errors.Is(err, conversation.ErrNoConversation) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Handle applies one input. Returns conversation.ErrNoConversation when the
// user has no dialog in progress. A failed profile write ends the dialog
// with ReplyFailed rather than an error.
func (h *EditProfileHandler) Handle(ctx context.Context, cmd EditProfileCommand) (*EditProfileResult, error) {
	st, err := h.states.Get(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	t, err := conversation.Next(st.Stage, cmd.Input)
	if err != nil {
		return nil, err
	}

	if t.Action != conversation.ActionNone {
		field := roster.FieldFirstName
		if t.Action == conversation.ActionSetLastName {
			field = roster.FieldLastName
		}
		// Имя сохраняется так, как его ввели (без пробелов по краям).
		if werr := h.users.UpdateUserName(ctx, cmd.UserID, field, t.Value); werr != nil {
			h.logger.Error("profile update failed", "user_id", cmd.UserID, "field", field, "error", werr)
			t = conversation.Failed()
		}
	}

	if t.Outcome.IsTerminal() {
		if err := h.states.Delete(ctx, cmd.UserID); err != nil {
			h.logger.Warn("failed to drop conversation state", "user_id", cmd.UserID, "error", err)
		}
	} else {
		st.Stage = t.Next
		st.UpdatedAt = h.now()
		if err := h.states.Put(ctx, st); err != nil {
			return nil, fmt.Errorf("edit_profile: failed to save state: %w", err)
		}
	}

	return &EditProfileResult{Reply: t.Reply, Outcome: t.Outcome, Stage: t.Next}, nil
}
