package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// ══════════════════════════════════════════════════════════════════════════════
// UNSUBSCRIBE COMMAND
// Removes the user from a session's roster. Leaving a session the user never
// joined is a silent no-op and still confirms.
// ══════════════════════════════════════════════════════════════════════════════

// UnsubscribeCommand contains the data to leave a session.
type UnsubscribeCommand struct {
	SessionID roster.SessionID
	UserID    roster.UserID
}

// Validate validates the command.
func (c UnsubscribeCommand) Validate() error {
	if !c.SessionID.IsValid() {
		return errors.New("unsubscribe: session_id is required")
	}
	if !c.UserID.IsValid() {
		return errors.New("unsubscribe: user_id is required")
	}
	return nil
}

// UnsubscribeResult contains the result of leaving a session.
type UnsubscribeResult struct {
	SessionName string
	Removed     bool
}

// UnsubscribeHandler handles the UnsubscribeCommand.
type UnsubscribeHandler struct {
	sessions roster.SessionRepository
	logger   *slog.Logger
}

// NewUnsubscribeHandler creates a new UnsubscribeHandler.
func NewUnsubscribeHandler(sessions roster.SessionRepository, logger *slog.Logger) *UnsubscribeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UnsubscribeHandler{sessions: sessions, logger: logger}
}

// Handle executes the unsubscribe command.
func (h *UnsubscribeHandler) Handle(ctx context.Context, cmd UnsubscribeCommand) (*UnsubscribeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	sess, err := h.sessions.GetSession(ctx, cmd.SessionID)
	if err != nil {
		return nil, fmt.Errorf("unsubscribe: %w", err)
	}

	removed, err := h.sessions.RemoveParticipant(ctx, cmd.SessionID, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("unsubscribe: %w", err)
	}
	if removed {
		h.logger.Info("user unsubscribed", "user_id", cmd.UserID, "session", sess.Name)
	}

	return &UnsubscribeResult{SessionName: sess.Name, Removed: removed}, nil
}
