package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESET WORKOUTS COMMAND
// Administrative reset of a user's workout counter.
// ══════════════════════════════════════════════════════════════════════════════

// ErrNotAdmin is returned when a non-admin issues an administrative command.
var ErrNotAdmin = shared.NewDomainError("roster", "ResetWorkouts", shared.ErrForbidden, "admin rights required")

// ResetWorkoutsCommand contains the data to reset a counter.
type ResetWorkoutsCommand struct {
	ActorTelegramID int64
	TargetUserID    roster.UserID
}

// Validate validates the command.
func (c ResetWorkoutsCommand) Validate() error {
	if !c.TargetUserID.IsValid() {
		return errors.New("reset_workouts: target user id is required")
	}
	return nil
}

// ResetWorkoutsHandler handles the ResetWorkoutsCommand.
type ResetWorkoutsHandler struct {
	users  roster.UserRepository
	admins map[int64]struct{}
	logger *slog.Logger
}

// NewResetWorkoutsHandler creates a new ResetWorkoutsHandler.
func NewResetWorkoutsHandler(users roster.UserRepository, adminIDs []int64, logger *slog.Logger) *ResetWorkoutsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &ResetWorkoutsHandler{users: users, admins: admins, logger: logger}
}

// IsAdmin reports whether the Telegram user may run administrative commands.
func (h *ResetWorkoutsHandler) IsAdmin(telegramID int64) bool {
	_, ok := h.admins[telegramID]
	return ok
}

// Handle executes the reset.
func (h *ResetWorkoutsHandler) Handle(ctx context.Context, cmd ResetWorkoutsCommand) error {
	if !h.IsAdmin(cmd.ActorTelegramID) {
		return ErrNotAdmin
	}
	if err := cmd.Validate(); err != nil {
		return err
	}

	if err := h.users.ResetWorkouts(ctx, cmd.TargetUserID); err != nil {
		return fmt.Errorf("reset_workouts: %w", err)
	}

	h.logger.Warn("workout counter reset by admin",
		"admin_telegram_id", cmd.ActorTelegramID,
		"user_id", cmd.TargetUserID,
	)
	return nil
}
