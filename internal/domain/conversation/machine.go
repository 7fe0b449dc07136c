// Package conversation описывает диалог редактирования профиля.
//
// Диалог это конечный автомат с двумя активными состояниями:
// ожидание имени и ожидание фамилии. Отсутствие сохранённого состояния
// означает, что диалога нет (Idle). Переходы вычисляются чистой функцией
// Next; побочные эффекты (запись в хранилище) выполняет вызывающий код
// согласно полю Transition.Action.
package conversation

import (
	"strings"

	"github.com/yogakitties/yogakitties-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STAGES
// ══════════════════════════════════════════════════════════════════════════════

// Stage - позиция пользователя в диалоге.
type Stage string

const (
	// StageIdle - диалога нет.
	StageIdle Stage = ""
	// StageAwaitingFirstName - ждём имя.
	StageAwaitingFirstName Stage = "awaiting_first_name"
	// StageAwaitingLastName - ждём фамилию.
	StageAwaitingLastName Stage = "awaiting_last_name"
)

// IsActive возвращает true для состояний, в которых диалог ждёт ввода.
func (s Stage) IsActive() bool {
	return s == StageAwaitingFirstName || s == StageAwaitingLastName
}

// ══════════════════════════════════════════════════════════════════════════════
// INPUTS & TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// InputKind - тип пользовательского ввода.
type InputKind int

const (
	InputText InputKind = iota
	InputSkip
	InputCancel
)

// Input - один шаг пользователя.
type Input struct {
	Kind InputKind
	Text string
}

// Text создаёт текстовый ввод.
func Text(s string) Input { return Input{Kind: InputText, Text: s} }

// Skip создаёт ввод «пропустить».
func Skip() Input { return Input{Kind: InputSkip} }

// Cancel создаёт ввод «отменить».
func Cancel() Input { return Input{Kind: InputCancel} }

// Action - побочный эффект, который должен выполнить вызывающий код.
type Action int

const (
	ActionNone Action = iota
	ActionSetFirstName
	ActionSetLastName
)

// Reply - какой ответ показать пользователю после перехода.
type Reply int

const (
	ReplyAskFirstName Reply = iota
	ReplyFirstNameSaved
	ReplyAskLastName
	ReplyEmptyName
	ReplySaved
	ReplyCancelled
	ReplyFailed
)

// Outcome - итог шага.
type Outcome int

const (
	OutcomeContinue Outcome = iota
	OutcomeCompleted
	OutcomeCancelled
	OutcomeFailed
)

// IsTerminal возвращает true, если диалог завершён.
func (o Outcome) IsTerminal() bool {
	return o != OutcomeContinue
}

// Transition - результат применения ввода к состоянию.
type Transition struct {
	Next    Stage
	Action  Action
	Value   string
	Reply   Reply
	Outcome Outcome
}

// ErrNoConversation возвращается при вводе вне активного диалога.
var ErrNoConversation = shared.NewDomainError("conversation", "Next", shared.ErrInvalidTransition, "no active conversation")

// Start - переход при открытии диалога (из любого состояния).
func Start() Transition {
	return Transition{Next: StageAwaitingFirstName, Reply: ReplyAskFirstName, Outcome: OutcomeContinue}
}

// Failed - переход при ошибке хранилища во время записи.
func Failed() Transition {
	return Transition{Next: StageIdle, Reply: ReplyFailed, Outcome: OutcomeFailed}
}

// Next вычисляет переход из stage по вводу in.
func Next(stage Stage, in Input) (Transition, error) {
	if !stage.IsActive() {
		return Transition{}, ErrNoConversation
	}

	if in.Kind == InputCancel {
		return Transition{Next: StageIdle, Reply: ReplyCancelled, Outcome: OutcomeCancelled}, nil
	}

	switch stage {
	case StageAwaitingFirstName:
		if in.Kind == InputSkip {
			return Transition{Next: StageAwaitingLastName, Reply: ReplyAskLastName, Outcome: OutcomeContinue}, nil
		}
		value := strings.TrimSpace(in.Text)
		if value == "" {
			return Transition{Next: stage, Reply: ReplyEmptyName, Outcome: OutcomeContinue}, nil
		}
		return Transition{
			Next:    StageAwaitingLastName,
			Action:  ActionSetFirstName,
			Value:   value,
			Reply:   ReplyFirstNameSaved,
			Outcome: OutcomeContinue,
		}, nil

	case StageAwaitingLastName:
		if in.Kind == InputSkip {
			return Transition{Next: StageIdle, Reply: ReplySaved, Outcome: OutcomeCompleted}, nil
		}
		value := strings.TrimSpace(in.Text)
		if value == "" {
			return Transition{Next: stage, Reply: ReplyEmptyName, Outcome: OutcomeContinue}, nil
		}
		return Transition{
			Next:    StageIdle,
			Action:  ActionSetLastName,
			Value:   value,
			Reply:   ReplySaved,
			Outcome: OutcomeCompleted,
		}, nil
	}

	return Transition{}, ErrNoConversation
}
