// Package middleware contains Telegram bot middlewares for update processing.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// Catches panics in handlers so one bad update never takes the bot down.
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace enables capturing stack traces.
	EnableStackTrace bool

	// MaxPanicsPerMinute limits how many panics are logged per minute.
	MaxPanicsPerMinute int

	// OnPanic is called when a panic is recovered.
	OnPanic func(ctx context.Context, info *PanicInfo)

	Logger *slog.Logger
}

// DefaultRecoveryConfig returns sensible defaults for recovery middleware.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace:   true,
		MaxPanicsPerMinute: 100,
	}
}

// PanicInfo contains information about a recovered panic.
type PanicInfo struct {
	// Error is the panic value converted to error.
	Error error

	// PanicValue is the raw panic value.
	PanicValue any

	StackTrace string

	// EventID correlates the panic with the update's log lines.
	EventID string

	UserID string
	Route  string

	Timestamp time.Time
}

// RecoveryMiddleware recovers from panics in handlers.
type RecoveryMiddleware struct {
	config       RecoveryConfig
	logger       *slog.Logger
	panicCounter *panicRateLimiter
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(config RecoveryConfig) *RecoveryMiddleware {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RecoveryMiddleware{
		config:       config,
		logger:       config.Logger,
		panicCounter: newPanicRateLimiter(config.MaxPanicsPerMinute),
	}
}

// RequestMeta identifies the update being handled.
type RequestMeta struct {
	EventID string
	UserID  string
	Route   string
}

// RecoveryResult represents the result of running a handler.
type RecoveryResult struct {
	// Recovered indicates if a panic was recovered.
	Recovered bool

	// PanicInfo contains panic details (if recovered).
	PanicInfo *PanicInfo

	// Err is the handler's own error when it did not panic.
	Err error
}

// Run executes fn and recovers from any panic.
func (m *RecoveryMiddleware) Run(ctx context.Context, meta RequestMeta, fn func() error) (result *RecoveryResult) {
	defer func() {
		if r := recover(); r != nil {
			result = m.handlePanic(ctx, r, meta)
		}
	}()

	return &RecoveryResult{Err: fn()}
}

// handlePanic processes a recovered panic.
func (m *RecoveryMiddleware) handlePanic(ctx context.Context, panicValue any, meta RequestMeta) *RecoveryResult {
	info := &PanicInfo{
		Error:      toError(panicValue),
		PanicValue: panicValue,
		EventID:    meta.EventID,
		UserID:     meta.UserID,
		Route:      meta.Route,
		Timestamp:  time.Now(),
	}

	// Too many panics: recover silently
	if !m.panicCounter.allow() {
		return &RecoveryResult{Recovered: true, PanicInfo: info}
	}

	if m.config.EnableStackTrace {
		info.StackTrace = string(debug.Stack())
	}

	m.logger.ErrorContext(ctx, "panic recovered in handler",
		"event_id", info.EventID,
		"user_id", info.UserID,
		"route", info.Route,
		"panic", info.Error,
		"stack", info.StackTrace,
	)

	if m.config.OnPanic != nil {
		m.config.OnPanic(ctx, info)
	}

	return &RecoveryResult{Recovered: true, PanicInfo: info}
}

// toError converts a panic value to an error.
func toError(panicValue any) error {
	switch v := panicValue.(type) {
	case error:
		return v
	case string:
		return fmt.Errorf("%s", v)
	default:
		return fmt.Errorf("panic: %v", v)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PANIC RATE LIMITER
// ══════════════════════════════════════════════════════════════════════════════

type panicRateLimiter struct {
	mu        sync.Mutex
	count     int
	maxPerMin int
	window    time.Time
}

func newPanicRateLimiter(maxPerMin int) *panicRateLimiter {
	if maxPerMin <= 0 {
		maxPerMin = 100
	}
	return &panicRateLimiter{
		maxPerMin: maxPerMin,
		window:    time.Now(),
	}
}

func (p *panicRateLimiter) allow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()

	// Reset counter if minute has passed
	if now.Sub(p.window) > time.Minute {
		p.count = 0
		p.window = now
	}

	if p.count >= p.maxPerMin {
		return false
	}

	p.count++
	return true
}
