// Package telegram is the entry point for all Telegram interactions. It
// receives updates (long polling or webhook), translates them into events,
// routes them to handlers and renders the responses.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/external/telegram"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/event"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/middleware"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/presenter"
	"github.com/yogakitties/yogakitties-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Update receiving modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// ErrAlreadyRunning is returned by Run on a running bot.
var ErrAlreadyRunning = errors.New("bot is already running")

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// Mode is the update receiving mode: "polling" or "webhook".
	Mode string

	// WebhookURL is the public URL Telegram posts updates to.
	WebhookURL string

	// WebhookSecret is sent back by Telegram in X-Telegram-Bot-Api-Secret-Token.
	WebhookSecret string

	// PollingTimeout is the long polling timeout.
	PollingTimeout time.Duration

	// MaxConcurrentUpdates limits concurrent update processing.
	MaxConcurrentUpdates int

	// HandlerTimeout bounds the handling of one update.
	HandlerTimeout time.Duration

	// RateLimit configures per-user throttling.
	RateLimit middleware.RateLimitConfig

	Logger *slog.Logger
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig() BotConfig {
	return BotConfig{
		Mode:                 ModePolling,
		PollingTimeout:       50 * time.Second,
		MaxConcurrentUpdates: 16,
		HandlerTimeout:       30 * time.Second,
		RateLimit:            middleware.DefaultRateLimitConfig(),
	}
}

// Client is the subset of the Bot API client the bot uses.
type Client interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	SendMessage(ctx context.Context, params telegram.SendMessageParams) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackQueryID, text string) error
	SetWebhook(ctx context.Context, params telegram.WebhookParams) error
	DeleteWebhook(ctx context.Context, dropPendingUpdates bool) error
	StartPolling(ctx context.Context, timeout time.Duration, handler telegram.UpdateHandler) error
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot is the main Telegram bot controller.
type Bot struct {
	config BotConfig
	client Client
	router *Router
	logger *slog.Logger

	recovery *middleware.RecoveryMiddleware
	limiter  *middleware.RateLimiter
	metrics  *middleware.MetricsMiddleware
	locks    *middleware.UserLocks

	running   atomic.Bool
	updateSem chan struct{}
	wg        sync.WaitGroup
}

// NewBot creates a new Telegram bot.
func NewBot(config BotConfig, client Client, router *Router) *Bot {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = 16
	}
	if config.HandlerTimeout <= 0 {
		config.HandlerTimeout = 30 * time.Second
	}
	if config.PollingTimeout <= 0 {
		config.PollingTimeout = 50 * time.Second
	}
	log := config.Logger.With(logger.Component("telegram_bot"))

	recoveryConfig := middleware.DefaultRecoveryConfig()
	recoveryConfig.Logger = log

	return &Bot{
		config:    config,
		client:    client,
		router:    router,
		logger:    log,
		recovery:  middleware.NewRecoveryMiddleware(recoveryConfig),
		limiter:   middleware.NewRateLimiter(config.RateLimit),
		metrics:   middleware.NewMetricsMiddleware(),
		locks:     middleware.NewUserLocks(),
		updateSem: make(chan struct{}, config.MaxConcurrentUpdates),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE MANAGEMENT
// ══════════════════════════════════════════════════════════════════════════════

// Run verifies the token and receives updates until ctx is cancelled.
// In webhook mode it registers the webhook and waits; updates arrive through
// HandleUpdate from the HTTP server.
func (b *Bot) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer b.running.Store(false)

	me, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("verify bot token: %w", err)
	}
	b.logger.Info("bot verified", "id", me.ID, "username", me.Username, "mode", b.config.Mode)

	switch b.config.Mode {
	case ModeWebhook:
		err := b.client.SetWebhook(ctx, telegram.WebhookParams{
			URL:            b.config.WebhookURL,
			SecretToken:    b.config.WebhookSecret,
			MaxConnections: b.config.MaxConcurrentUpdates,
		})
		if err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		b.logger.Info("webhook registered", "url", b.config.WebhookURL)
		<-ctx.Done()
		return nil

	case ModePolling, "":
		if err := b.client.DeleteWebhook(ctx, false); err != nil {
			return fmt.Errorf("delete webhook: %w", err)
		}
		return b.client.StartPolling(ctx, b.config.PollingTimeout, b.HandleUpdate)

	default:
		return fmt.Errorf("unknown bot mode: %s", b.config.Mode)
	}
}

// IsRunning returns whether the bot is receiving updates.
func (b *Bot) IsRunning() bool {
	return b.running.Load()
}

// Wait blocks until in-flight updates finish or ctx expires.
func (b *Bot) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Metrics returns handling statistics.
func (b *Bot) Metrics() *middleware.MetricsSnapshot {
	return b.metrics.Snapshot()
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// HandleUpdate schedules an update for processing. It blocks while
// MaxConcurrentUpdates updates are in flight and drops the update if ctx ends
// first. Processing outlives ctx so shutdown does not cut a reply in half.
func (b *Bot) HandleUpdate(ctx context.Context, update *telegram.Update) {
	ev, ok := TranslateUpdate(update)
	if !ok {
		return
	}

	select {
	case b.updateSem <- struct{}{}:
	case <-ctx.Done():
		b.logger.Warn("update dropped on shutdown", "update_id", update.UpdateID)
		return
	}

	// The ticket is taken here, before the goroutine starts, so one user's
	// events run in the order they arrived.
	turn := b.locks.Enqueue(ev.UserID.String())

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer func() { <-b.updateSem }()

		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.config.HandlerTimeout)
		defer cancel()
		b.process(hctx, ev, turn)
	}()
}

// process handles one event once its ticket is ready. Events of one user are
// processed one at a time.
func (b *Bot) process(ctx context.Context, ev event.Event, turn *middleware.Ticket) {
	defer turn.Release()

	ev.ID = uuid.NewString()
	log := b.logger.With(
		"event_id", ev.ID,
		logger.UserID(ev.UserID.String()),
		"route", ev.Route(),
	)
	ctx = logger.WithContext(ctx, log)

	if err := turn.Wait(ctx); err != nil {
		log.Warn("event dropped while waiting for earlier events", logger.Err(err))
		return
	}

	answered := false
	if ev.CallbackID != "" {
		defer func() {
			if !answered {
				b.answer(ctx, log, ev.CallbackID, "")
			}
		}()
	}

	if limit := b.limiter.Check(ev.UserID.String()); !limit.Allowed {
		log.Warn("rate limited", "retry_after", limit.RetryAfter.String())
		text := presenter.RateLimited(int(limit.RetryAfter.Seconds()))
		if ev.CallbackID != "" {
			answered = true
			b.answer(ctx, log, ev.CallbackID, text)
			return
		}
		b.deliver(ctx, log, ev, event.Reply(text))
		return
	}

	rc := b.metrics.Start(ev.Route())
	var resp *event.Response
	result := b.recovery.Run(ctx, middleware.RequestMeta{
		EventID: ev.ID,
		UserID:  ev.UserID.String(),
		Route:   ev.Route(),
	}, func() error {
		var err error
		resp, err = b.router.Dispatch(ctx, ev)
		return err
	})

	switch {
	case result.Recovered:
		b.metrics.RecordPanic()
		rc.End(result.PanicInfo.Error)
		resp = event.Reply(presenter.TextError)
	case result.Err != nil:
		rc.End(result.Err)
		log.ErrorContext(ctx, "failed to handle event", logger.Err(result.Err))
		resp = event.Reply(presenter.TextError)
	default:
		rc.End(nil)
		log.DebugContext(ctx, "event handled", logger.Latency(time.Since(rc.StartTime)))
	}

	if resp != nil {
		b.deliver(ctx, log, ev, resp)
	}
}

// deliver renders a response: an edit of the pressed message or a new message.
func (b *Bot) deliver(ctx context.Context, log *slog.Logger, ev event.Event, resp *event.Response) {
	var err error
	if resp.Edit && ev.CallbackID != "" && ev.MessageID != 0 {
		err = b.client.EditMessageText(ctx, ev.ChatID, ev.MessageID, resp.Text, inlineMarkup(resp.Buttons))
	} else {
		params := telegram.SendMessageParams{ChatID: ev.ChatID, Text: resp.Text}
		switch {
		case resp.ReplyMenu:
			params.ReplyMarkup = replyMenu()
		case len(resp.Buttons) > 0:
			params.ReplyMarkup = inlineMarkup(resp.Buttons)
		}
		_, err = b.client.SendMessage(ctx, params)
	}

	switch {
	case err == nil:
	case telegram.IsBlocked(err):
		log.Info("user blocked the bot")
	default:
		log.ErrorContext(ctx, "failed to send response", logger.Err(err))
	}
}

func (b *Bot) answer(ctx context.Context, log *slog.Logger, callbackID, text string) {
	if err := b.client.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		log.Warn("failed to answer callback query", logger.Err(err))
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSLATION
// ══════════════════════════════════════════════════════════════════════════════

// TranslateUpdate turns a Telegram update into an event. Updates the bot does
// not handle (edited messages, stickers, updates without a sender) yield false.
func TranslateUpdate(update *telegram.Update) (event.Event, bool) {
	switch {
	case update == nil:
		return event.Event{}, false
	case update.Message != nil:
		return translateMessage(update.Message)
	case update.CallbackQuery != nil:
		return translateCallback(update.CallbackQuery)
	}
	return event.Event{}, false
}

func translateMessage(msg *telegram.Message) (event.Event, bool) {
	if msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return event.Event{}, false
	}

	ev := event.Event{
		UserID:    chatUserID(msg.Chat.ID),
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Sender:    sender(msg.From),
	}

	if cmd := telegram.ExtractCommand(msg); cmd != "" {
		ev.Kind = event.KindCommand
		ev.Name = strings.ToLower(cmd)
		ev.Payload = telegram.ExtractCommandArgs(msg)
		return ev, true
	}

	if action, ok := presenter.MenuAction(strings.TrimSpace(msg.Text)); ok {
		ev.Kind = event.KindButtonPress
		ev.Name = action
		return ev, true
	}

	ev.Kind = event.KindText
	ev.Payload = msg.Text
	return ev, true
}

func translateCallback(cq *telegram.CallbackQuery) (event.Event, bool) {
	if cq.From == nil {
		return event.Event{}, false
	}

	chatID := cq.From.ID
	var messageID int64
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
		messageID = cq.Message.MessageID
	}

	name, arg := event.ParseAction(cq.Data)
	return event.Event{
		UserID:     chatUserID(chatID),
		ChatID:     chatID,
		MessageID:  messageID,
		CallbackID: cq.ID,
		Kind:       event.KindButtonPress,
		Name:       name,
		Payload:    arg,
		Sender:     sender(cq.From),
	}, true
}

// chatUserID is the user identity: the private chat id.
func chatUserID(chatID int64) roster.UserID {
	return roster.UserID(strconv.FormatInt(chatID, 10))
}

func sender(u *telegram.User) event.Sender {
	return event.Sender{
		TelegramUserID: u.ID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Username:       u.Username,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RENDERING
// ══════════════════════════════════════════════════════════════════════════════

func inlineMarkup(rows [][]event.Button) *telegram.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: make([][]telegram.InlineKeyboardButton, 0, len(rows)),
	}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		buttons := make([]telegram.InlineKeyboardButton, len(row))
		for i, btn := range row {
			buttons[i] = telegram.InlineKeyboardButton{Text: btn.Text, CallbackData: btn.Data}
		}
		markup.InlineKeyboard = append(markup.InlineKeyboard, buttons)
	}
	return markup
}

func replyMenu() *telegram.ReplyKeyboardMarkup {
	labels := presenter.MenuLabels()
	markup := &telegram.ReplyKeyboardMarkup{
		Keyboard:       make([][]telegram.KeyboardButton, len(labels)),
		ResizeKeyboard: true,
		IsPersistent:   true,
	}
	for i, row := range labels {
		markup.Keyboard[i] = make([]telegram.KeyboardButton, len(row))
		for j, label := range row {
			markup.Keyboard[i][j] = telegram.KeyboardButton{Text: label}
		}
	}
	return markup
}
