// Package memory contains in-process implementations of the roster and
// conversation stores. State is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// Store implements roster.Store on top of maps guarded by a single mutex,
// so every join, leave and tally is linearizable.
type Store struct {
	mu       sync.RWMutex
	users    map[roster.UserID]*roster.User
	sessions map[roster.SessionID]*roster.Session
	byName   map[string]roster.SessionID
	order    []roster.SessionID
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:    make(map[roster.UserID]*roster.User),
		sessions: make(map[roster.SessionID]*roster.Session),
		byName:   make(map[string]roster.SessionID),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ roster.Store = (*Store)(nil)

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

// EnsureSession implements roster.SessionRepository.
func (s *Store) EnsureSession(ctx context.Context, name string) (roster.SessionID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" {
		return "", roster.ErrEmptySessionName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byName[name]; ok {
		return id, nil
	}
	id := roster.SessionID(uuid.NewString())
	s.sessions[id] = &roster.Session{ID: id, Name: name, CreatedAt: s.now()}
	s.byName[name] = id
	s.order = append(s.order, id)
	return id, nil
}

// GetSession implements roster.SessionRepository.
func (s *Store) GetSession(ctx context.Context, id roster.SessionID) (*roster.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, roster.ErrSessionNotFound
	}
	return copySession(sess), nil
}

// ListSessions implements roster.SessionRepository.
func (s *Store) ListSessions(ctx context.Context) ([]*roster.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*roster.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copySession(s.sessions[id]))
	}
	return out, nil
}

// AddParticipant implements roster.SessionRepository.
func (s *Store) AddParticipant(ctx context.Context, sessionID roster.SessionID, userID roster.UserID, displayName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !userID.IsValid() {
		return false, roster.ErrInvalidUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false, roster.ErrSessionNotFound
	}
	if sess.Has(userID) {
		return false, nil
	}
	sess.Participants = append(sess.Participants, roster.Participant{
		UserID:      userID,
		DisplayName: displayName,
		JoinedAt:    s.now(),
	})
	return true, nil
}

// RemoveParticipant implements roster.SessionRepository.
func (s *Store) RemoveParticipant(ctx context.Context, sessionID roster.SessionID, userID roster.UserID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false, roster.ErrSessionNotFound
	}
	for i, p := range sess.Participants {
		if p.UserID == userID {
			sess.Participants = append(sess.Participants[:i:i], sess.Participants[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ClearAll implements roster.SessionRepository.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		sess.Participants = nil
	}
	return nil
}

// RemoveEnrollments implements roster.SessionRepository.
func (s *Store) RemoveEnrollments(ctx context.Context, enrollments []roster.Enrollment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	drop := make(map[roster.Enrollment]struct{}, len(enrollments))
	for _, e := range enrollments {
		drop[e] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		kept := sess.Participants[:0:0]
		for _, p := range sess.Participants {
			if _, ok := drop[roster.Enrollment{SessionID: id, UserID: p.UserID}]; !ok {
				kept = append(kept, p)
			}
		}
		sess.Participants = kept
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

// EnsureUser implements roster.UserRepository.
func (s *Store) EnsureUser(ctx context.Context, user *roster.User) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if user == nil || !user.ID.IsValid() {
		return false, roster.ErrInvalidUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return false, nil
	}
	u := *user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = &u
	return true, nil
}

// GetUser implements roster.UserRepository.
func (s *Store) GetUser(ctx context.Context, id roster.UserID) (*roster.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, roster.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// UpdateUserName implements roster.UserRepository.
func (s *Store) UpdateUserName(ctx context.Context, id roster.UserID, field roster.NameField, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !field.IsValid() {
		return roster.ErrInvalidNameField
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return roster.ErrUserNotFound
	}
	switch field {
	case roster.FieldFirstName:
		u.FirstName = value
	case roster.FieldLastName:
		u.LastName = value
	}
	u.UpdatedAt = s.now()
	return nil
}

// IncrementWorkouts implements roster.UserRepository.
// Unknown ids are ignored, matching the SQL backends.
func (s *Store) IncrementWorkouts(ctx context.Context, ids []roster.UserID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, id := range roster.UniqueUserIDs(ids) {
		if u, ok := s.users[id]; ok {
			u.WorkoutCount++
			u.UpdatedAt = now
		}
	}
	return nil
}

// ResetWorkouts implements roster.UserRepository.
func (s *Store) ResetWorkouts(ctx context.Context, id roster.UserID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return roster.ErrUserNotFound
	}
	u.WorkoutCount = 0
	u.UpdatedAt = s.now()
	return nil
}

func copySession(src *roster.Session) *roster.Session {
	cp := *src
	cp.Participants = append([]roster.Participant(nil), src.Participants...)
	return &cp
}
