// Package main - служебные разовые операции для бота записи на йогу.
//
// Запускается с тем же окружением, что и бот, но без токена Telegram:
//
//	worker tally                   начислить тренировки и очистить списки сейчас
//	worker sessions                показать группы и число записавшихся
//	worker reset-workouts <id>     обнулить счётчик тренировок пользователя
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/yogakitties/yogakitties-bot/config"
	"github.com/yogakitties/yogakitties-bot/internal/application/command"
	"github.com/yogakitties/yogakitties-bot/internal/application/query"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/redis"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/scheduler/jobs"
	"github.com/yogakitties/yogakitties-bot/pkg/logger"
)

var errUsage = errors.New("usage: worker [-v] tally | sessions | reset-workouts <user-id>")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	cfg, err := config.LoadWorker()
	if err != nil {
		return err
	}

	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if *verbose {
		level = slog.LevelDebug
	}
	log := logger.New(logger.Options{
		Level:  level,
		Format: logger.FormatText,
		Output: os.Stderr,
		Attrs:  []slog.Attr{slog.String("service", cfg.App.Name+"-worker")},
	})

	storage, err := persistence.Open(ctx, cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer storage.Close()

	switch cmd := fs.Arg(0); cmd {
	case "tally":
		return runTally(ctx, cfg, storage, log, out)

	case "sessions":
		catalog, err := config.LoadCatalog(cfg.CatalogFile)
		if err != nil {
			return err
		}
		if err := persistence.SeedSessions(ctx, storage, catalog.Sessions); err != nil {
			return err
		}
		return printSessions(ctx, storage, out)

	case "reset-workouts":
		if fs.NArg() != 2 {
			return errUsage
		}
		id := roster.UserID(fs.Arg(1))
		if err := storage.ResetWorkouts(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "workout count of %s reset\n", id)
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// runTally runs the weekly tally once, honouring the replica lock when Redis
// is configured.
func runTally(ctx context.Context, cfg *config.Config, store roster.Store, log *slog.Logger, out io.Writer) error {
	var mutex jobs.Mutex
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
		mutex = redis.NewLocker(cache)
	}

	job := jobs.NewTallyResetJob(command.NewTallyAndResetHandler(store, log), mutex, log, jobs.TallyResetConfig{
		Timeout: cfg.Scheduler.JobTimeout,
		LockTTL: cfg.Scheduler.LockTTL,
	})
	if err := job.Run(ctx); err != nil {
		return err
	}

	res := job.LastResult()
	switch {
	case res == nil:
		fmt.Fprintln(out, "tally already ran recently or is running elsewhere, nothing done")
	case res.Skipped:
		fmt.Fprintf(out, "all %d rosters empty, nothing to tally\n", res.Sessions)
	default:
		fmt.Fprintf(out, "credited %d users across %d sessions in %s\n", res.Credited, res.Sessions, res.Duration)
	}
	return nil
}

func printSessions(ctx context.Context, sessions roster.SessionRepository, out io.Writer) error {
	dto, err := query.NewGetScheduleHandler(sessions, nil, nil).Handle(ctx, query.GetScheduleQuery{})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIGNED UP")
	for _, s := range dto.Sessions {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", s.ID, s.Name, s.Count)
	}
	return tw.Flush()
}
