package roster

import (
	"strings"
	"time"

	"github.com/yogakitties/yogakitties-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// UserID - непрозрачный идентификатор пользователя (id чата в Telegram).
type UserID string

// IsValid проверяет, что идентификатор не пустой.
func (u UserID) IsValid() bool {
	return strings.TrimSpace(string(u)) != ""
}

// String возвращает строковое представление.
func (u UserID) String() string {
	return string(u)
}

// SessionID - идентификатор группы занятия (UUID).
type SessionID string

// IsValid проверяет, что идентификатор не пустой.
func (s SessionID) IsValid() bool {
	return strings.TrimSpace(string(s)) != ""
}

// String возвращает строковое представление.
func (s SessionID) String() string {
	return string(s)
}

// NameField определяет, какое поле имени меняется в профиле.
type NameField string

const (
	// FieldFirstName - имя.
	FieldFirstName NameField = "first_name"
	// FieldLastName - фамилия.
	FieldLastName NameField = "last_name"
)

// IsValid проверяет корректность поля.
func (f NameField) IsValid() bool {
	return f == FieldFirstName || f == FieldLastName
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	ErrUserNotFound     = shared.NewDomainError("roster", "GetUser", shared.ErrNotFound, "user not found")
	ErrSessionNotFound  = shared.NewDomainError("roster", "GetSession", shared.ErrNotFound, "session not found")
	ErrInvalidUserID    = shared.NewDomainError("roster", "Validate", shared.ErrInvalidID, "invalid user ID")
	ErrInvalidSessionID = shared.NewDomainError("roster", "Validate", shared.ErrInvalidID, "invalid session ID")
	ErrEmptySessionName = shared.NewDomainError("roster", "Validate", shared.ErrEmptyValue, "session name cannot be empty")
	ErrInvalidNameField = shared.NewDomainError("roster", "Validate", shared.ErrInvalidInput, "unknown name field")
)

// ══════════════════════════════════════════════════════════════════════════════
// USER
// ══════════════════════════════════════════════════════════════════════════════

// User - профиль участника занятий.
type User struct {
	ID             UserID
	FirstName      string
	LastName       string
	TelegramUserID int64
	WorkoutCount   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser создаёт профиль при первом обращении к боту.
func NewUser(id UserID, firstName, lastName string, telegramUserID int64) (*User, error) {
	if !id.IsValid() {
		return nil, ErrInvalidUserID
	}
	now := time.Now().UTC()
	return &User{
		ID:             id,
		FirstName:      strings.TrimSpace(firstName),
		LastName:       strings.TrimSpace(lastName),
		TelegramUserID: telegramUserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// DisplayName возвращает имя для списка группы.
// Имя и фамилия склеиваются без разделителя, как это всегда делал бот.
func (u *User) DisplayName() string {
	return u.FirstName + u.LastName
}

// FullName возвращает имя и фамилию через пробел (для экрана профиля).
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION
// ══════════════════════════════════════════════════════════════════════════════

// Participant - запись пользователя в группе.
type Participant struct {
	UserID      UserID
	DisplayName string
	JoinedAt    time.Time
}

// Session - группа занятия со списком записавшихся.
// Participants упорядочены по времени записи.
type Session struct {
	ID           SessionID
	Name         string
	Participants []Participant
	CreatedAt    time.Time
}

// Has проверяет, записан ли пользователь в группу.
func (s *Session) Has(id UserID) bool {
	for _, p := range s.Participants {
		if p.UserID == id {
			return true
		}
	}
	return false
}

// IsEmpty возвращает true, если в группу никто не записан.
func (s *Session) IsEmpty() bool {
	return len(s.Participants) == 0
}

// Names возвращает имена участников в порядке записи.
func (s *Session) Names() []string {
	names := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		names = append(names, p.DisplayName)
	}
	return names
}

// ParticipantUnion возвращает объединение участников всех групп без повторов.
// Порядок: по группам, внутри группы по времени записи.
func ParticipantUnion(sessions []*Session) []UserID {
	seen := make(map[UserID]struct{})
	ids := make([]UserID, 0)
	for _, s := range sessions {
		for _, p := range s.Participants {
			if _, ok := seen[p.UserID]; ok {
				continue
			}
			seen[p.UserID] = struct{}{}
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// Enrollment - запись конкретного пользователя в конкретную группу.
type Enrollment struct {
	SessionID SessionID
	UserID    UserID
}

// Enrollments перечисляет все записи из снимка групп.
func Enrollments(sessions []*Session) []Enrollment {
	out := make([]Enrollment, 0)
	for _, s := range sessions {
		for _, p := range s.Participants {
			out = append(out, Enrollment{SessionID: s.ID, UserID: p.UserID})
		}
	}
	return out
}

// UniqueUserIDs убирает повторы, сохраняя порядок первого появления.
func UniqueUserIDs(ids []UserID) []UserID {
	seen := make(map[UserID]struct{}, len(ids))
	out := make([]UserID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
