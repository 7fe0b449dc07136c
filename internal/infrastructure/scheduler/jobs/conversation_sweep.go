package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper drops dialogs that were not advanced since cutoff.
type Sweeper interface {
	Sweep(cutoff time.Time) int
}

// ConversationSweepJob expires abandoned profile-edit dialogs held in memory.
type ConversationSweepJob struct {
	store  Sweeper
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewConversationSweepJob creates the sweep job.
func NewConversationSweepJob(store Sweeper, maxAge time.Duration, logger *slog.Logger) *ConversationSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationSweepJob{
		store:  store,
		maxAge: maxAge,
		logger: logger.With("job", "conversation_sweep"),
		now:    time.Now,
	}
}

// Name returns the job name.
func (j *ConversationSweepJob) Name() string {
	return "conversation_sweep"
}

// Description returns a human-readable description.
func (j *ConversationSweepJob) Description() string {
	return "Drops profile-edit dialogs idle for longer than the conversation TTL"
}

// Run executes the sweep.
func (j *ConversationSweepJob) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n := j.store.Sweep(j.now().Add(-j.maxAge)); n > 0 {
		j.logger.Info("stale conversations dropped", "count", n)
	}
	return nil
}
