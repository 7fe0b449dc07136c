package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	notFound := NewDomainError("roster", "GetUser", ErrNotFound, "user not found")
	assert.Equal(t, "roster.GetUser: user not found", notFound.Error())
	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsNotFound(fmt.Errorf("profile: %w", notFound)))
	assert.False(t, IsValidation(notFound))

	assert.True(t, IsValidation(NewDomainError("roster", "NewUser", ErrEmptyValue, "empty name")))
}

func TestStorageError(t *testing.T) {
	cause := errors.New("connection reset")
	err := StorageError("roster", "AddParticipant", cause)

	assert.True(t, IsStorage(err))
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsNotFound(err))
	assert.Equal(t, "roster.AddParticipant: storage operation failed: connection reset", err.Error())
}
