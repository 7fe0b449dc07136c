package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// ══════════════════════════════════════════════════════════════════════════════
// TALLY AND RESET COMMAND
// Credits one workout to every distinct participant across all sessions,
// then removes exactly the credited enrollments. Signups that arrive after
// the snapshot stay for the next class. Both steps are skipped when all
// rosters are empty. If the tally fails nothing is cleared; if the clear
// fails the tally stays recorded.
// ══════════════════════════════════════════════════════════════════════════════

// TallyResult describes one tally-and-reset run.
type TallyResult struct {
	// Skipped is true when every roster was empty and nothing was written.
	Skipped bool

	// Credited is the number of distinct users credited with a workout.
	Credited int

	// Sessions is the number of sessions inspected.
	Sessions int

	// Duration is how long the run took.
	Duration time.Duration
}

// TallyAndResetHandler performs the attendance tally followed by the reset.
type TallyAndResetHandler struct {
	store  roster.Store
	logger *slog.Logger
}

// NewTallyAndResetHandler creates a new TallyAndResetHandler.
func NewTallyAndResetHandler(store roster.Store, logger *slog.Logger) *TallyAndResetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TallyAndResetHandler{store: store, logger: logger}
}

// Handle executes the tally and reset.
func (h *TallyAndResetHandler) Handle(ctx context.Context) (*TallyResult, error) {
	start := time.Now()

	sessions, err := h.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally_reset: failed to list sessions: %w", err)
	}

	ids := roster.ParticipantUnion(sessions)
	result := &TallyResult{Sessions: len(sessions)}

	if len(ids) == 0 {
		result.Skipped = true
		result.Duration = time.Since(start)
		h.logger.Info("tally skipped, all rosters empty", "sessions", len(sessions))
		return result, nil
	}

	if err := h.store.IncrementWorkouts(ctx, ids); err != nil {
		return nil, fmt.Errorf("tally_reset: failed to credit workouts: %w", err)
	}
	result.Credited = len(ids)

	if err := h.store.RemoveEnrollments(ctx, roster.Enrollments(sessions)); err != nil {
		h.logger.Error("rosters not cleared after tally", "credited", len(ids), "error", err)
		return result, fmt.Errorf("tally_reset: failed to clear rosters: %w", err)
	}

	result.Duration = time.Since(start)
	h.logger.Info("tally and reset completed",
		"credited", result.Credited,
		"sessions", result.Sessions,
		"duration", result.Duration,
	)
	return result, nil
}
