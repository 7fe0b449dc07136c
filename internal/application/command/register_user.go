// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Creates the profile on first contact. An existing profile is left untouched
// so names edited by the user survive repeated /start.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterUserCommand contains the sender data from the chat platform.
type RegisterUserCommand struct {
	UserID         roster.UserID
	FirstName      string
	LastName       string
	TelegramUserID int64
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	if !c.UserID.IsValid() {
		return errors.New("register_user: user_id is required")
	}
	return nil
}

// RegisterUserResult contains the stored profile.
type RegisterUserResult struct {
	User    *roster.User
	Created bool
}

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	users  roster.UserRepository
	logger *slog.Logger
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(users roster.UserRepository, logger *slog.Logger) *RegisterUserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegisterUserHandler{users: users, logger: logger}
}

// Handle executes the register user command.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	user, created, err := ensureUser(ctx, h.users, cmd)
	if err != nil {
		return nil, err
	}
	if created {
		h.logger.Info("user registered", "user_id", cmd.UserID)
	}
	return &RegisterUserResult{User: user, Created: created}, nil
}

// ensureUser creates the profile if absent and returns the stored one.
func ensureUser(ctx context.Context, users roster.UserRepository, cmd RegisterUserCommand) (*roster.User, bool, error) {
	u, err := roster.NewUser(cmd.UserID, NormalizeName(cmd.FirstName), NormalizeName(cmd.LastName), cmd.TelegramUserID)
	if err != nil {
		return nil, false, err
	}

	created, err := users.EnsureUser(ctx, u)
	if err != nil {
		return nil, false, fmt.Errorf("register_user: failed to save: %w", err)
	}

	stored, err := users.GetUser(ctx, cmd.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("register_user: failed to load: %w", err)
	}
	return stored, created, nil
}

// NormalizeName trims whitespace and capitalizes the first letter of every
// word using Russian casing rules. The rest of each word is kept as typed.
func NormalizeName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Title(language.Russian, cases.NoLower).String(s)
}
