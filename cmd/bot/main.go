// Package main - точка входа Telegram-бота записи на занятия йогой.
//
// Бот ведёт списки групп на ближайшее занятие, профили участников и счётчик
// тренировок. По расписанию (по умолчанию вт/чт/сб в 00:10) всем записанным
// начисляется тренировка, а списки очищаются.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yogakitties/yogakitties-bot/config"

	// Application layer
	"github.com/yogakitties/yogakitties-bot/internal/application/command"
	"github.com/yogakitties/yogakitties-bot/internal/application/query"
	"github.com/yogakitties/yogakitties-bot/internal/domain/classday"
	"github.com/yogakitties/yogakitties-bot/internal/domain/conversation"

	// Infrastructure layer
	tgclient "github.com/yogakitties/yogakitties-bot/internal/infrastructure/external/telegram"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/memory"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/redis"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/scheduler"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/scheduler/jobs"

	// Interface layer
	httpserver "github.com/yogakitties/yogakitties-bot/internal/interface/http"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/handler"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/middleware"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/presenter"

	"github.com/yogakitties/yogakitties-bot/pkg/logger"
)

// sweepInterval - как часто чистить брошенные диалоги в памяти.
const sweepInterval = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	log.Info("starting yoga bot",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
		"storage", cfg.Storage.Driver,
		"mode", cfg.Telegram.Mode,
	)

	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}
	classDays, err := catalog.Weekdays()
	if err != nil {
		return err
	}
	rule, err := classday.NewRule(classDays)
	if err != nil {
		return fmt.Errorf("class days: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	storage, err := persistence.Open(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		log.Info("closing storage...")
		storage.Close()
	}()

	if err := persistence.SeedSessions(ctx, storage, catalog.Sessions); err != nil {
		return err
	}
	log.Info("sessions ready", "sessions", catalog.Sessions, "class_days", catalog.ClassDays)

	health := httpserver.NewHealthChecker(cfg.App.Version)
	health.AddCheck("store", storage.Ping)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (опционально): диалоги и блокировка сброса
	// ─────────────────────────────────────────────────────────────────────────
	var (
		states    conversation.StateStore
		tallyLock jobs.Mutex
		sweeper   *memory.ConversationStore
	)
	if cfg.Redis.Enabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Addr = cfg.Redis.Addr
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		cache, err := redis.NewCache(ctx, redisCfg)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer cache.Close()

		states = redis.NewConversationStore(cache, cfg.Redis.ConversationTTL)
		tallyLock = redis.NewLocker(cache)
		health.AddCheck("redis", cache.Ping)
		log.Info("redis connection established", "addr", cfg.Redis.Addr)
	} else {
		sweeper = memory.NewConversationStore()
		states = sweeper
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	register := command.NewRegisterUserHandler(storage, log)
	editProfile := command.NewEditProfileHandler(states, storage, log)
	subscribe := command.NewSubscribeHandler(storage, log)
	unsubscribe := command.NewUnsubscribeHandler(storage, log)
	resetWorkouts := command.NewResetWorkoutsHandler(storage, cfg.Telegram.AdminIDs, log)
	tally := command.NewTallyAndResetHandler(storage, log)

	getProfile := query.NewGetProfileHandler(storage)
	getSchedule := query.NewGetScheduleHandler(storage, rule, cfg.App.Location)
	listParticipants := query.NewListParticipantsHandler(storage)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:   log,
		Timezone: cfg.App.Location,
	})

	if cfg.Scheduler.Enabled {
		resetSchedule, err := scheduler.ParseWeeklySchedule(cfg.Scheduler.ResetDays, cfg.Scheduler.ResetTime, cfg.App.Location)
		if err != nil {
			return fmt.Errorf("reset schedule: %w", err)
		}
		tallyJob := jobs.NewTallyResetJob(tally, tallyLock, log, jobs.TallyResetConfig{
			Timeout: cfg.Scheduler.JobTimeout,
			LockTTL: cfg.Scheduler.LockTTL,
		})
		if err := sched.Register(tallyJob, resetSchedule); err != nil {
			return err
		}
	}
	if sweeper != nil {
		sweep := jobs.NewConversationSweepJob(sweeper, cfg.Redis.ConversationTTL, log)
		if err := sched.Register(sweep, scheduler.NewIntervalSchedule(sweepInterval)); err != nil {
			return err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. TELEGRAM BOT
	// ─────────────────────────────────────────────────────────────────────────
	clientCfg := tgclient.DefaultClientConfig(cfg.Telegram.Token)
	clientCfg.BaseURL = cfg.Telegram.APIURL
	clientCfg.Logger = log
	client := tgclient.NewClient(clientCfg)
	health.AddCheck("telegram", client.Healthy)

	keyboards := presenter.NewKeyboardBuilder()
	router := telegram.NewBotRouter(telegram.Handlers{
		Start:    handler.NewStartHandler(register),
		Profile:  handler.NewProfileHandler(getProfile, register, editProfile, keyboards),
		Schedule: handler.NewScheduleHandler(getSchedule, listParticipants, subscribe, unsubscribe, keyboards),
		Admin:    handler.NewAdminHandler(resetWorkouts),
	}, log)

	botCfg := telegram.DefaultBotConfig()
	botCfg.Mode = cfg.Telegram.Mode
	botCfg.WebhookURL = cfg.Telegram.WebhookURL
	botCfg.WebhookSecret = cfg.Telegram.WebhookSecret
	botCfg.PollingTimeout = cfg.Telegram.PollingTimeout
	botCfg.MaxConcurrentUpdates = cfg.Telegram.MaxConcurrency
	botCfg.RateLimit = rateLimitConfig(cfg.Telegram.AdminIDs)
	botCfg.Logger = log
	bot := telegram.NewBot(botCfg, client, router)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Addr = cfg.HTTP.Addr
	httpCfg.TLSAddr = cfg.Telegram.WebhookListen
	httpCfg.TLSDomain = cfg.Telegram.TLSDomain
	httpCfg.TLSCacheDir = cfg.Telegram.TLSCacheDir
	httpCfg.WebhookSecret = cfg.Telegram.WebhookSecret
	if cfg.UseWebhook() {
		u, err := url.Parse(cfg.Telegram.WebhookURL)
		if err != nil {
			return fmt.Errorf("TELEGRAM_WEBHOOK_URL: %w", err)
		}
		httpCfg.WebhookPath = u.Path
	}

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		Updates: bot,
		Health:  health,
		Stats: map[string]func() any{
			"bot":  func() any { return bot.Metrics() },
			"jobs": func() any { return sched.ListJobs() },
		},
		Logger: log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := bot.Run(gctx); err != nil {
			return fmt.Errorf("telegram bot: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx)
	})

	log.Info("yoga bot is running", "http_addr", cfg.HTTP.Addr, "commands", router.Commands())

	runErr := g.Wait()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("service error", logger.Err(runErr))
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := sched.Stop(); err != nil {
		log.Warn("failed to stop scheduler", logger.Err(err))
	}
	if err := bot.Wait(shutdownCtx); err != nil {
		log.Warn("in-flight updates were not finished", logger.Err(err))
	}

	log.Info("shutdown completed")
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	log := logger.New(logger.Options{
		Level:  level,
		Format: logger.Format(cfg.Observability.LogFormat),
		Output: os.Stdout,
		Attrs: []slog.Attr{
			slog.String("service", cfg.App.Name),
			slog.String("env", string(cfg.App.Environment)),
		},
	})
	slog.SetDefault(log)
	return log
}

// rateLimitConfig освобождает администраторов от ограничения частоты.
func rateLimitConfig(adminIDs []int64) middleware.RateLimitConfig {
	rl := middleware.DefaultRateLimitConfig()
	rl.Whitelisted = make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		rl.Whitelisted[strconv.FormatInt(id, 10)] = true
	}
	return rl
}
