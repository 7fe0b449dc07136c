package roster

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepository хранит группы и их списки участников.
// Запись и отписка линеаризуемы в пределах одной группы.
type SessionRepository interface {
	// EnsureSession создаёт группу с указанным именем, если её ещё нет.
	EnsureSession(ctx context.Context, name string) (SessionID, error)

	// GetSession возвращает группу вместе со списком участников.
	// Возвращает ErrSessionNotFound, если группы нет.
	GetSession(ctx context.Context, id SessionID) (*Session, error)

	// ListSessions возвращает все группы в порядке создания.
	ListSessions(ctx context.Context) ([]*Session, error)

	// AddParticipant записывает пользователя в группу.
	// Возвращает false, если пользователь уже записан.
	AddParticipant(ctx context.Context, sessionID SessionID, userID UserID, displayName string) (bool, error)

	// RemoveParticipant удаляет пользователя из группы.
	// Возвращает false, если пользователь не был записан.
	RemoveParticipant(ctx context.Context, sessionID SessionID, userID UserID) (bool, error)

	// ClearAll очищает списки всех групп.
	ClearAll(ctx context.Context) error

	// RemoveEnrollments удаляет только перечисленные записи. Записи,
	// появившиеся после снимка, остаются. Атомарность - в пределах группы.
	RemoveEnrollments(ctx context.Context, enrollments []Enrollment) error
}

// UserRepository хранит профили пользователей.
type UserRepository interface {
	// EnsureUser создаёт профиль, если его нет. Существующий профиль не меняется.
	EnsureUser(ctx context.Context, user *User) (created bool, err error)

	// GetUser возвращает профиль.
	// Возвращает ErrUserNotFound, если профиля нет.
	GetUser(ctx context.Context, id UserID) (*User, error)

	// UpdateUserName атомарно меняет одно поле имени.
	UpdateUserName(ctx context.Context, id UserID, field NameField, value string) error

	// IncrementWorkouts атомарно увеличивает счётчик тренировок на 1
	// для каждого уникального id из списка.
	IncrementWorkouts(ctx context.Context, ids []UserID) error

	// ResetWorkouts обнуляет счётчик тренировок (административная операция).
	ResetWorkouts(ctx context.Context, id UserID) error
}

// Store объединяет оба хранилища. Единственный владелец пользователей и групп.
type Store interface {
	SessionRepository
	UserRepository
}
