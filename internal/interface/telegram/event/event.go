// Package event defines the transport-neutral messages exchanged between the
// Telegram adapter and the bot handlers. Handlers never see Telegram types:
// the adapter translates every update into an Event and renders every
// Response back.
package event

import (
	"strings"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// Kind tags what the user did.
type Kind int

const (
	// KindCommand is a slash command such as /start or /skip.
	KindCommand Kind = iota + 1

	// KindButtonPress is a press of an inline button or a reply-menu label.
	KindButtonPress

	// KindText is free text.
	KindText
)

// String returns the kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindButtonPress:
		return "button"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Sender is what Telegram tells us about the user.
type Sender struct {
	TelegramUserID int64
	FirstName      string
	LastName       string
	Username       string
}

// Event is one user action.
type Event struct {
	// ID correlates log lines of one update.
	ID string

	// UserID is the opaque per-chat identity.
	UserID roster.UserID

	ChatID    int64
	MessageID int64

	// CallbackID is set for inline button presses.
	CallbackID string

	Kind Kind

	// Name is the command name without the slash, or the button action.
	Name string

	// Payload is the command arguments, the button argument, or the text.
	Payload string

	Sender Sender
}

// Route is the key used for logging and metrics.
func (e Event) Route() string {
	if e.Kind == KindText {
		return e.Kind.String()
	}
	return e.Kind.String() + ":" + e.Name
}

// Button is an inline button. Data is the encoded action, see Action.
type Button struct {
	Text string
	Data string
}

// Response is what a handler wants shown.
type Response struct {
	Text string

	// Buttons is an inline keyboard, one slice per row.
	Buttons [][]Button

	// ReplyMenu attaches the persistent reply menu instead of inline buttons.
	ReplyMenu bool

	// Edit replaces the message the pressed button belongs to.
	Edit bool
}

// Reply is a plain text response.
func Reply(text string) *Response {
	return &Response{Text: text}
}

// actionSeparator splits action name and argument in callback data.
const actionSeparator = ":"

// Action encodes a button action with an optional argument.
func Action(name, arg string) string {
	if arg == "" {
		return name
	}
	return name + actionSeparator + arg
}

// ParseAction splits callback data produced by Action.
func ParseAction(data string) (name, arg string) {
	name, arg, _ = strings.Cut(data, actionSeparator)
	return name, arg
}
