package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER STORE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// RosterStore implements roster.Store for PostgreSQL.
// Every mutation is a single statement, so joins and leaves are atomic
// without explicit transactions.
type RosterStore struct {
	conn *Connection
}

// NewRosterStore creates a new RosterStore.
func NewRosterStore(conn *Connection) *RosterStore {
	return &RosterStore{conn: conn}
}

var _ roster.Store = (*RosterStore)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────────────────────

// EnsureSession implements roster.SessionRepository.
func (r *RosterStore) EnsureSession(ctx context.Context, name string) (roster.SessionID, error) {
	if name == "" {
		return "", roster.ErrEmptySessionName
	}

	// DO UPDATE is a no-op that lets RETURNING see the existing row.
	query := `
		INSERT INTO sessions (id, name) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	var id uuid.UUID
	if err := r.conn.QueryRow(ctx, query, uuid.New(), name).Scan(&id); err != nil {
		return "", shared.StorageError("roster", "EnsureSession", err)
	}
	return roster.SessionID(id.String()), nil
}

// GetSession implements roster.SessionRepository.
func (r *RosterStore) GetSession(ctx context.Context, id roster.SessionID) (*roster.Session, error) {
	sid, err := uuid.Parse(string(id))
	if err != nil {
		return nil, roster.ErrSessionNotFound
	}

	s := &roster.Session{}
	var dbID uuid.UUID
	err = r.conn.QueryRow(ctx, `SELECT id, name, created_at FROM sessions WHERE id = $1`, sid).
		Scan(&dbID, &s.Name, &s.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, roster.ErrSessionNotFound
		}
		return nil, shared.StorageError("roster", "GetSession", err)
	}
	s.ID = roster.SessionID(dbID.String())

	rows, err := r.conn.Query(ctx, `
		SELECT user_id, display_name, joined_at
		FROM session_participants
		WHERE session_id = $1
		ORDER BY position
	`, sid)
	if err != nil {
		return nil, shared.StorageError("roster", "GetSession", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p roster.Participant
		var uid string
		if err := rows.Scan(&uid, &p.DisplayName, &p.JoinedAt); err != nil {
			return nil, shared.StorageError("roster", "GetSession", err)
		}
		p.UserID = roster.UserID(uid)
		s.Participants = append(s.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("roster", "GetSession", err)
	}
	return s, nil
}

// ListSessions implements roster.SessionRepository.
func (r *RosterStore) ListSessions(ctx context.Context) ([]*roster.Session, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, name, created_at FROM sessions ORDER BY ordinal`)
	if err != nil {
		return nil, shared.StorageError("roster", "ListSessions", err)
	}

	var sessions []*roster.Session
	byID := make(map[uuid.UUID]*roster.Session)
	for rows.Next() {
		s := &roster.Session{}
		var id uuid.UUID
		if err := rows.Scan(&id, &s.Name, &s.CreatedAt); err != nil {
			rows.Close()
			return nil, shared.StorageError("roster", "ListSessions", err)
		}
		s.ID = roster.SessionID(id.String())
		sessions = append(sessions, s)
		byID[id] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("roster", "ListSessions", err)
	}

	prows, err := r.conn.Query(ctx, `
		SELECT session_id, user_id, display_name, joined_at
		FROM session_participants
		ORDER BY position
	`)
	if err != nil {
		return nil, shared.StorageError("roster", "ListSessions", err)
	}
	defer prows.Close()

	for prows.Next() {
		var sid uuid.UUID
		var uid string
		var p roster.Participant
		if err := prows.Scan(&sid, &uid, &p.DisplayName, &p.JoinedAt); err != nil {
			return nil, shared.StorageError("roster", "ListSessions", err)
		}
		p.UserID = roster.UserID(uid)
		if s, ok := byID[sid]; ok {
			s.Participants = append(s.Participants, p)
		}
	}
	if err := prows.Err(); err != nil {
		return nil, shared.StorageError("roster", "ListSessions", err)
	}
	return sessions, nil
}

// AddParticipant implements roster.SessionRepository.
func (r *RosterStore) AddParticipant(ctx context.Context, sessionID roster.SessionID, userID roster.UserID, displayName string) (bool, error) {
	if !userID.IsValid() {
		return false, roster.ErrInvalidUserID
	}
	sid, err := uuid.Parse(string(sessionID))
	if err != nil {
		return false, roster.ErrSessionNotFound
	}

	tag, err := r.conn.Exec(ctx, `
		INSERT INTO session_participants (session_id, user_id, display_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, user_id) DO NOTHING
	`, sid, string(userID), displayName)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return false, roster.ErrSessionNotFound
		}
		return false, shared.StorageError("roster", "AddParticipant", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveParticipant implements roster.SessionRepository.
func (r *RosterStore) RemoveParticipant(ctx context.Context, sessionID roster.SessionID, userID roster.UserID) (bool, error) {
	sid, err := uuid.Parse(string(sessionID))
	if err != nil {
		return false, roster.ErrSessionNotFound
	}

	tag, err := r.conn.Exec(ctx,
		`DELETE FROM session_participants WHERE session_id = $1 AND user_id = $2`,
		sid, string(userID))
	if err != nil {
		return false, shared.StorageError("roster", "RemoveParticipant", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, sid).Scan(&exists); err != nil {
		return false, shared.StorageError("roster", "RemoveParticipant", err)
	}
	if !exists {
		return false, roster.ErrSessionNotFound
	}
	return false, nil
}

// ClearAll implements roster.SessionRepository.
func (r *RosterStore) ClearAll(ctx context.Context) error {
	if _, err := r.conn.Exec(ctx, `DELETE FROM session_participants`); err != nil {
		return shared.StorageError("roster", "ClearAll", err)
	}
	return nil
}

// RemoveEnrollments implements roster.SessionRepository.
// One statement deletes exactly the listed (session, user) pairs.
func (r *RosterStore) RemoveEnrollments(ctx context.Context, enrollments []roster.Enrollment) error {
	if len(enrollments) == 0 {
		return nil
	}
	sessionIDs := make([]string, 0, len(enrollments))
	userIDs := make([]string, 0, len(enrollments))
	for _, e := range enrollments {
		if _, err := uuid.Parse(string(e.SessionID)); err != nil {
			continue
		}
		sessionIDs = append(sessionIDs, string(e.SessionID))
		userIDs = append(userIDs, string(e.UserID))
	}

	_, err := r.conn.Exec(ctx, `
		DELETE FROM session_participants sp
		USING unnest($1::text[], $2::text[]) AS e(session_id, user_id)
		WHERE sp.session_id = e.session_id::uuid AND sp.user_id = e.user_id
	`, sessionIDs, userIDs)
	if err != nil {
		return shared.StorageError("roster", "RemoveEnrollments", err)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

// EnsureUser implements roster.UserRepository.
func (r *RosterStore) EnsureUser(ctx context.Context, u *roster.User) (bool, error) {
	if u == nil || !u.ID.IsValid() {
		return false, roster.ErrInvalidUserID
	}

	tag, err := r.conn.Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, telegram_user_id, workout_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, string(u.ID), u.FirstName, u.LastName, u.TelegramUserID, u.WorkoutCount)
	if err != nil {
		return false, shared.StorageError("roster", "EnsureUser", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetUser implements roster.UserRepository.
func (r *RosterStore) GetUser(ctx context.Context, id roster.UserID) (*roster.User, error) {
	u := &roster.User{}
	var uid string
	err := r.conn.QueryRow(ctx, `
		SELECT id, first_name, last_name, telegram_user_id, workout_count, created_at, updated_at
		FROM users WHERE id = $1
	`, string(id)).Scan(&uid, &u.FirstName, &u.LastName, &u.TelegramUserID, &u.WorkoutCount, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, roster.ErrUserNotFound
		}
		return nil, shared.StorageError("roster", "GetUser", err)
	}
	u.ID = roster.UserID(uid)
	return u, nil
}

// UpdateUserName implements roster.UserRepository.
func (r *RosterStore) UpdateUserName(ctx context.Context, id roster.UserID, field roster.NameField, value string) error {
	var column string
	switch field {
	case roster.FieldFirstName:
		column = "first_name"
	case roster.FieldLastName:
		column = "last_name"
	default:
		return roster.ErrInvalidNameField
	}

	query := fmt.Sprintf(`UPDATE users SET %s = $2, updated_at = NOW() WHERE id = $1`, column)
	tag, err := r.conn.Exec(ctx, query, string(id), value)
	if err != nil {
		return shared.StorageError("roster", "UpdateUserName", err)
	}
	if tag.RowsAffected() == 0 {
		return roster.ErrUserNotFound
	}
	return nil
}

// IncrementWorkouts implements roster.UserRepository.
func (r *RosterStore) IncrementWorkouts(ctx context.Context, ids []roster.UserID) error {
	uniq := roster.UniqueUserIDs(ids)
	if len(uniq) == 0 {
		return nil
	}
	raw := make([]string, len(uniq))
	for i, id := range uniq {
		raw[i] = string(id)
	}

	_, err := r.conn.Exec(ctx, `
		UPDATE users
		SET workout_count = workout_count + 1, updated_at = NOW()
		WHERE id = ANY($1)
	`, raw)
	if err != nil {
		return shared.StorageError("roster", "IncrementWorkouts", err)
	}
	return nil
}

// ResetWorkouts implements roster.UserRepository.
func (r *RosterStore) ResetWorkouts(ctx context.Context, id roster.UserID) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE users SET workout_count = 0, updated_at = NOW() WHERE id = $1`, string(id))
	if err != nil {
		return shared.StorageError("roster", "ResetWorkouts", err)
	}
	if tag.RowsAffected() == 0 {
		return roster.ErrUserNotFound
	}
	return nil
}
