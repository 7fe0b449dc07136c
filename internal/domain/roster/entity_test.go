package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("100", " Анна ", "", 7)
	require.NoError(t, err)

	assert.Equal(t, UserID("100"), u.ID)
	assert.Equal(t, "Анна", u.FirstName)
	assert.Equal(t, 0, u.WorkoutCount)
	assert.Equal(t, "Анна", u.DisplayName())
	assert.Equal(t, "Анна", u.FullName())

	_, err = NewUser(" ", "x", "", 0)
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestUser_DisplayNameHasNoSeparator(t *testing.T) {
	u := &User{FirstName: "Анна", LastName: "Петрова"}
	assert.Equal(t, "АннаПетрова", u.DisplayName())
	assert.Equal(t, "Анна Петрова", u.FullName())
}

func TestParticipantUnion(t *testing.T) {
	sessions := []*Session{
		{Name: "17:30", Participants: []Participant{{UserID: "A"}, {UserID: "B"}}},
		{Name: "18:40", Participants: []Participant{{UserID: "B"}, {UserID: "C"}}},
		{Name: "empty"},
	}

	assert.Equal(t, []UserID{"A", "B", "C"}, ParticipantUnion(sessions))
	assert.Empty(t, ParticipantUnion([]*Session{{Name: "x"}}))
}

func TestSession_Helpers(t *testing.T) {
	s := &Session{Participants: []Participant{{UserID: "A", DisplayName: "a"}, {UserID: "B", DisplayName: "b"}}}

	assert.True(t, s.Has("A"))
	assert.False(t, s.Has("Z"))
	assert.False(t, s.IsEmpty())
	assert.Equal(t, []string{"a", "b"}, s.Names())
}

func TestUniqueUserIDs(t *testing.T) {
	assert.Equal(t, []UserID{"A", "B"}, UniqueUserIDs([]UserID{"A", "B", "A", "B"}))
}
