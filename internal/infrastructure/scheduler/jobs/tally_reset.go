// Package jobs contains implementations of scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/yogakitties/yogakitties-bot/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// TALLY AND RESET JOB
// ══════════════════════════════════════════════════════════════════════════════

// Mutex guards a job against concurrent runs from other bot replicas.
// ok is false when another replica holds the lock.
type Mutex interface {
	TryLock(ctx context.Context, resource string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

// TallyResetJob credits a workout to everyone on the rosters and clears them.
type TallyResetJob struct {
	handler *command.TallyAndResetHandler
	mutex   Mutex
	logger  *slog.Logger
	config  TallyResetConfig

	lastResult atomic.Pointer[command.TallyResult]
}

// TallyResetConfig contains configuration for the tally job.
type TallyResetConfig struct {
	// Timeout is the maximum duration of one run.
	Timeout time.Duration

	// LockTTL is how long a finished run keeps other replicas from firing
	// again. It must exceed clock skew between replicas and stay well
	// below the gap between scheduled fires.
	LockTTL time.Duration
}

// DefaultTallyResetConfig returns sensible defaults.
func DefaultTallyResetConfig() TallyResetConfig {
	return TallyResetConfig{
		Timeout: 2 * time.Minute,
		LockTTL: 10 * time.Minute,
	}
}

// NewTallyResetJob creates the job. mutex may be nil for a single replica.
func NewTallyResetJob(handler *command.TallyAndResetHandler, mutex Mutex, logger *slog.Logger, config TallyResetConfig) *TallyResetJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTallyResetConfig().Timeout
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultTallyResetConfig().LockTTL
	}
	return &TallyResetJob{
		handler: handler,
		mutex:   mutex,
		logger:  logger.With("job", "tally_reset"),
		config:  config,
	}
}

// Name returns the job name.
func (j *TallyResetJob) Name() string {
	return "tally_reset"
}

// Description returns a human-readable description.
func (j *TallyResetJob) Description() string {
	return "Credits a workout to every signed-up user and clears all rosters"
}

// Run executes the tally.
func (j *TallyResetJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	var unlock func(context.Context) error
	if j.mutex != nil {
		var ok bool
		var err error
		unlock, ok, err = j.mutex.TryLock(ctx, j.Name(), j.config.LockTTL)
		if err != nil {
			return fmt.Errorf("tally_reset: failed to acquire lock: %w", err)
		}
		if !ok {
			j.logger.Info("tally already done or running on another replica, skipping")
			return nil
		}
	}

	result, err := j.handler.Handle(ctx)
	if result != nil {
		j.lastResult.Store(result)
	}

	// After a successful run the lock is kept until LockTTL expires, so
	// replicas firing the same occurrence a moment later skip it.
	if err != nil && unlock != nil {
		if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
			j.logger.Warn("failed to release tally lock", "error", uerr)
		}
	}
	return err
}

// LastResult returns the result of the most recent run, or nil.
func (j *TallyResetJob) LastResult() *command.TallyResult {
	return j.lastResult.Load()
}
