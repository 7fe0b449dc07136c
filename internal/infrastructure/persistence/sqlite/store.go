// Package sqlite implements roster.Store on an embedded SQLite database
// for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/domain/shared"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/sqlite/migrations"
)

// Store provides SQLite-backed roster persistence.
// A single connection serializes all statements, which keeps joins, leaves
// and the tally linearizable without busy retries.
type Store struct {
	db *sql.DB
}

var _ roster.Store = (*Store)(nil)

// Open opens the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func nowMillis() int64 { return time.Now().UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// ─────────────────────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────────────────────

// EnsureSession implements roster.SessionRepository.
func (s *Store) EnsureSession(ctx context.Context, name string) (roster.SessionID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" {
		return "", roster.ErrEmptySessionName
	}

	if _, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (id, name, created_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO NOTHING`, uuid.NewString(), name, nowMillis()); err != nil {
		return "", shared.StorageError("roster", "EnsureSession", err)
	}

	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM sessions WHERE name = ?`, name).Scan(&id); err != nil {
		return "", shared.StorageError("roster", "EnsureSession", err)
	}
	return roster.SessionID(id), nil
}

// GetSession implements roster.SessionRepository.
func (s *Store) GetSession(ctx context.Context, id roster.SessionID) (*roster.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sess := &roster.Session{}
	var sid string
	var created int64
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM sessions WHERE id = ?`, string(id)).
		Scan(&sid, &sess.Name, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roster.ErrSessionNotFound
		}
		return nil, shared.StorageError("roster", "GetSession", err)
	}
	sess.ID = roster.SessionID(sid)
	sess.CreatedAt = fromMillis(created)

	rows, err := s.db.QueryContext(ctx, `
SELECT user_id, display_name, joined_at
FROM session_participants
WHERE session_id = ?
ORDER BY position`, sid)
	if err != nil {
		return nil, shared.StorageError("roster", "GetSession", err)
	}
	defer rows.Close()

	for rows.Next() {
		var uid string
		var joined int64
		var p roster.Participant
		if err := rows.Scan(&uid, &p.DisplayName, &joined); err != nil {
			return nil, shared.StorageError("roster", "GetSession", err)
		}
		p.UserID = roster.UserID(uid)
		p.JoinedAt = fromMillis(joined)
		sess.Participants = append(sess.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("roster", "GetSession", err)
	}
	return sess, nil
}

// ListSessions implements roster.SessionRepository.
func (s *Store) ListSessions(ctx context.Context) ([]*roster.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM sessions ORDER BY ordinal`)
	if err != nil {
		return nil, shared.StorageError("roster", "ListSessions", err)
	}
	var sessions []*roster.Session
	byID := make(map[string]*roster.Session)
	for rows.Next() {
		var id string
		var created int64
		sess := &roster.Session{}
		if err := rows.Scan(&id, &sess.Name, &created); err != nil {
			rows.Close()
			return nil, shared.StorageError("roster", "ListSessions", err)
		}
		sess.ID = roster.SessionID(id)
		sess.CreatedAt = fromMillis(created)
		sessions = append(sessions, sess)
		byID[id] = sess
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("roster", "ListSessions", err)
	}

	prows, err := s.db.QueryContext(ctx, `
SELECT session_id, user_id, display_name, joined_at
FROM session_participants
ORDER BY position`)
	if err != nil {
		return nil, shared.StorageError("roster", "ListSessions", err)
	}
	defer prows.Close()

	for prows.Next() {
		var sid, uid string
		var joined int64
		var p roster.Participant
		if err := prows.Scan(&sid, &uid, &p.DisplayName, &joined); err != nil {
			return nil, shared.StorageError("roster", "ListSessions", err)
		}
		p.UserID = roster.UserID(uid)
		p.JoinedAt = fromMillis(joined)
		if sess, ok := byID[sid]; ok {
			sess.Participants = append(sess.Participants, p)
		}
	}
	if err := prows.Err(); err != nil {
		return nil, shared.StorageError("roster", "ListSessions", err)
	}
	return sessions, nil
}

func (s *Store) sessionExists(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, id roster.SessionID) (bool, error) {
	var found int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, string(id)).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// AddParticipant implements roster.SessionRepository.
func (s *Store) AddParticipant(ctx context.Context, sessionID roster.SessionID, userID roster.UserID, displayName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !userID.IsValid() {
		return false, roster.ErrInvalidUserID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, shared.StorageError("roster", "AddParticipant", err)
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := s.sessionExists(ctx, tx, sessionID)
	if err != nil {
		return false, shared.StorageError("roster", "AddParticipant", err)
	}
	if !ok {
		return false, roster.ErrSessionNotFound
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO session_participants (session_id, user_id, display_name, joined_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (session_id, user_id) DO NOTHING`,
		string(sessionID), string(userID), displayName, nowMillis())
	if err != nil {
		return false, shared.StorageError("roster", "AddParticipant", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, shared.StorageError("roster", "AddParticipant", err)
	}
	if err := tx.Commit(); err != nil {
		return false, shared.StorageError("roster", "AddParticipant", err)
	}
	return n == 1, nil
}

// RemoveParticipant implements roster.SessionRepository.
func (s *Store) RemoveParticipant(ctx context.Context, sessionID roster.SessionID, userID roster.UserID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_participants WHERE session_id = ? AND user_id = ?`,
		string(sessionID), string(userID))
	if err != nil {
		return false, shared.StorageError("roster", "RemoveParticipant", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, shared.StorageError("roster", "RemoveParticipant", err)
	}
	if n > 0 {
		return true, nil
	}

	ok, err := s.sessionExists(ctx, s.db, sessionID)
	if err != nil {
		return false, shared.StorageError("roster", "RemoveParticipant", err)
	}
	if !ok {
		return false, roster.ErrSessionNotFound
	}
	return false, nil
}

// ClearAll implements roster.SessionRepository.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_participants`); err != nil {
		return shared.StorageError("roster", "ClearAll", err)
	}
	return nil
}

// RemoveEnrollments implements roster.SessionRepository.
func (s *Store) RemoveEnrollments(ctx context.Context, enrollments []roster.Enrollment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(enrollments) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return shared.StorageError("roster", "RemoveEnrollments", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM session_participants WHERE session_id = ? AND user_id = ?`)
	if err != nil {
		return shared.StorageError("roster", "RemoveEnrollments", err)
	}
	defer stmt.Close()

	for _, e := range enrollments {
		if _, err := stmt.ExecContext(ctx, string(e.SessionID), string(e.UserID)); err != nil {
			return shared.StorageError("roster", "RemoveEnrollments", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return shared.StorageError("roster", "RemoveEnrollments", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

// EnsureUser implements roster.UserRepository.
func (s *Store) EnsureUser(ctx context.Context, u *roster.User) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if u == nil || !u.ID.IsValid() {
		return false, roster.ErrInvalidUserID
	}

	now := nowMillis()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, first_name, last_name, telegram_user_id, workout_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`,
		string(u.ID), u.FirstName, u.LastName, u.TelegramUserID, u.WorkoutCount, now, now)
	if err != nil {
		return false, shared.StorageError("roster", "EnsureUser", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, shared.StorageError("roster", "EnsureUser", err)
	}
	return n == 1, nil
}

// GetUser implements roster.UserRepository.
func (s *Store) GetUser(ctx context.Context, id roster.UserID) (*roster.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u := &roster.User{}
	var uid string
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
SELECT id, first_name, last_name, telegram_user_id, workout_count, created_at, updated_at
FROM users WHERE id = ?`, string(id)).
		Scan(&uid, &u.FirstName, &u.LastName, &u.TelegramUserID, &u.WorkoutCount, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, roster.ErrUserNotFound
		}
		return nil, shared.StorageError("roster", "GetUser", err)
	}
	u.ID = roster.UserID(uid)
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

// UpdateUserName implements roster.UserRepository.
func (s *Store) UpdateUserName(ctx context.Context, id roster.UserID, field roster.NameField, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var query string
	switch field {
	case roster.FieldFirstName:
		query = `UPDATE users SET first_name = ?, updated_at = ? WHERE id = ?`
	case roster.FieldLastName:
		query = `UPDATE users SET last_name = ?, updated_at = ? WHERE id = ?`
	default:
		return roster.ErrInvalidNameField
	}

	res, err := s.db.ExecContext(ctx, query, value, nowMillis(), string(id))
	if err != nil {
		return shared.StorageError("roster", "UpdateUserName", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.ErrUserNotFound
	}
	return nil
}

// IncrementWorkouts implements roster.UserRepository.
func (s *Store) IncrementWorkouts(ctx context.Context, ids []roster.UserID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	uniq := roster.UniqueUserIDs(ids)
	if len(uniq) == 0 {
		return nil
	}

	args := make([]any, 0, len(uniq)+1)
	args = append(args, nowMillis())
	for _, id := range uniq {
		args = append(args, string(id))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(uniq)), ",")

	query := `UPDATE users SET workout_count = workout_count + 1, updated_at = ? WHERE id IN (` + placeholders + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return shared.StorageError("roster", "IncrementWorkouts", err)
	}
	return nil
}

// ResetWorkouts implements roster.UserRepository.
func (s *Store) ResetWorkouts(ctx context.Context, id roster.UserID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET workout_count = 0, updated_at = ? WHERE id = ?`, nowMillis(), string(id))
	if err != nil {
		return shared.StorageError("roster", "ResetWorkouts", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return roster.ErrUserNotFound
	}
	return nil
}
