package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogakitties/yogakitties-bot/config"
)

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, config.StorageConfig{Driver: config.DriverMemory}, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, config.DriverMemory, s.Driver)
	assert.NoError(t, s.Ping(ctx))
}

func TestOpen_SQLiteSeedsIdempotently(t *testing.T) {
	ctx := context.Background()
	cfg := config.StorageConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "roster.db")}

	s, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	names := []string{"Йога 17:30", "Йога 18:40"}
	require.NoError(t, SeedSessions(ctx, s, names))
	require.NoError(t, SeedSessions(ctx, s, names))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "Йога 17:30", sessions[0].Name)
	s.Close()

	// Sessions survive a reopen.
	s, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer s.Close()
	sessions, err = s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StorageConfig{Driver: "mongo"}, nil)
	assert.ErrorContains(t, err, "unknown storage driver")
}
