package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogakitties/yogakitties-bot/internal/domain/shared"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name  string
		stage Stage
		input Input
		want  Transition
	}{
		{
			name:  "first name entered",
			stage: StageAwaitingFirstName,
			input: Text("  Анна "),
			want:  Transition{Next: StageAwaitingLastName, Action: ActionSetFirstName, Value: "Анна", Reply: ReplyFirstNameSaved},
		},
		{
			name:  "first name skipped",
			stage: StageAwaitingFirstName,
			input: Skip(),
			want:  Transition{Next: StageAwaitingLastName, Reply: ReplyAskLastName},
		},
		{
			name:  "blank first name re-prompts",
			stage: StageAwaitingFirstName,
			input: Text("   "),
			want:  Transition{Next: StageAwaitingFirstName, Reply: ReplyEmptyName},
		},
		{
			name:  "last name entered",
			stage: StageAwaitingLastName,
			input: Text("Петрова"),
			want:  Transition{Next: StageIdle, Action: ActionSetLastName, Value: "Петрова", Reply: ReplySaved, Outcome: OutcomeCompleted},
		},
		{
			name:  "last name skipped completes",
			stage: StageAwaitingLastName,
			input: Skip(),
			want:  Transition{Next: StageIdle, Reply: ReplySaved, Outcome: OutcomeCompleted},
		},
		{
			name:  "cancel while awaiting first name",
			stage: StageAwaitingFirstName,
			input: Cancel(),
			want:  Transition{Next: StageIdle, Reply: ReplyCancelled, Outcome: OutcomeCancelled},
		},
		{
			name:  "cancel while awaiting last name",
			stage: StageAwaitingLastName,
			input: Cancel(),
			want:  Transition{Next: StageIdle, Reply: ReplyCancelled, Outcome: OutcomeCancelled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.stage, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNext_Idle(t *testing.T) {
	for _, in := range []Input{Text("Анна"), Skip(), Cancel()} {
		_, err := Next(StageIdle, in)
		assert.ErrorIs(t, err, ErrNoConversation)
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	}
}

func TestStartAndFailed(t *testing.T) {
	start := Start()
	assert.Equal(t, StageAwaitingFirstName, start.Next)
	assert.False(t, start.Outcome.IsTerminal())

	failed := Failed()
	assert.Equal(t, StageIdle, failed.Next)
	assert.Equal(t, ReplyFailed, failed.Reply)
	assert.True(t, failed.Outcome.IsTerminal())
}
