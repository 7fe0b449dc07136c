// Package persistence opens the roster store selected by configuration.
package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yogakitties/yogakitties-bot/config"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/memory"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/postgres"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/sqlite"
)

// Storage is an open roster store.
type Storage struct {
	roster.Store

	// Driver is the configured driver name.
	Driver string

	ping  func(ctx context.Context) error
	close func()
}

// Open connects the configured driver and applies migrations.
func Open(ctx context.Context, cfg config.StorageConfig, log *slog.Logger) (*Storage, error) {
	if log == nil {
		log = slog.Default()
	}

	switch cfg.Driver {
	case config.DriverMemory, "":
		log.Warn("using in-memory storage, rosters are lost on restart")
		return &Storage{
			Store:  memory.NewStore(),
			Driver: config.DriverMemory,
			ping:   func(context.Context) error { return nil },
			close:  func() {},
		}, nil

	case config.DriverPostgres:
		pool := postgres.DefaultPoolConfig()
		if cfg.MaxConns > 0 {
			pool.MaxConns = cfg.MaxConns
		}
		conn, err := postgres.Connect(ctx, cfg.DatabaseURL, pool, log)
		if err != nil {
			return nil, err
		}
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &Storage{
			Store:  postgres.NewRosterStore(conn),
			Driver: config.DriverPostgres,
			ping:   conn.Ping,
			close:  conn.Close,
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("sqlite storage opened", "path", cfg.SQLitePath)
		return &Storage{
			Store:  store,
			Driver: config.DriverSQLite,
			ping:   store.Ping,
			close: func() {
				if err := store.Close(); err != nil {
					log.Warn("failed to close sqlite", "error", err)
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

// Ping checks the store connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the connection.
func (s *Storage) Close() {
	s.close()
}

// SeedSessions makes sure every catalog session exists.
func SeedSessions(ctx context.Context, sessions roster.SessionRepository, names []string) error {
	for _, name := range names {
		if _, err := sessions.EnsureSession(ctx, name); err != nil {
			return fmt.Errorf("seed session %q: %w", name, err)
		}
	}
	return nil
}
