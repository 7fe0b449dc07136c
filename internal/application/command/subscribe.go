package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBSCRIBE COMMAND
// Records the user in a session's roster. Joining twice is not an error.
// ══════════════════════════════════════════════════════════════════════════════

// SubscribeCommand contains the data to join a session.
type SubscribeCommand struct {
	SessionID roster.SessionID
	UserID    roster.UserID

	// Sender is used to create the profile if the user never sent /start.
	Sender RegisterUserCommand
}

// Validate validates the command.
func (c SubscribeCommand) Validate() error {
	if !c.SessionID.IsValid() {
		return errors.New("subscribe: session_id is required")
	}
	if !c.UserID.IsValid() {
		return errors.New("subscribe: user_id is required")
	}
	return nil
}

// SubscribeStatus tells whether the join changed the roster.
type SubscribeStatus int

const (
	StatusSubscribed SubscribeStatus = iota
	StatusAlreadySubscribed
)

// SubscribeResult contains the result of joining a session.
type SubscribeResult struct {
	Status      SubscribeStatus
	SessionID   roster.SessionID
	SessionName string
}

// SubscribeHandler handles the SubscribeCommand.
type SubscribeHandler struct {
	store  roster.Store
	logger *slog.Logger
}

// NewSubscribeHandler creates a new SubscribeHandler.
func NewSubscribeHandler(store roster.Store, logger *slog.Logger) *SubscribeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscribeHandler{store: store, logger: logger}
}

// Handle executes the subscribe command.
func (h *SubscribeHandler) Handle(ctx context.Context, cmd SubscribeCommand) (*SubscribeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	sess, err := h.store.GetSession(ctx, cmd.SessionID)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	user, err := h.store.GetUser(ctx, cmd.UserID)
	if errors.Is(err, roster.ErrUserNotFound) {
		sender := cmd.Sender
		sender.UserID = cmd.UserID
		user, _, err = ensureUser(ctx, h.store, sender)
	}
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	added, err := h.store.AddParticipant(ctx, sess.ID, cmd.UserID, user.DisplayName())
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	result := &SubscribeResult{
		Status:      StatusSubscribed,
		SessionID:   sess.ID,
		SessionName: sess.Name,
	}
	if !added {
		result.Status = StatusAlreadySubscribed
		return result, nil
	}

	h.logger.Info("user subscribed", "user_id", cmd.UserID, "session", sess.Name)
	return result, nil
}
