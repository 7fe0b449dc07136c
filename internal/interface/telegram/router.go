package telegram

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/event"
)

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER TYPES
// ══════════════════════════════════════════════════════════════════════════════

// HandlerFunc handles one event. A nil response sends nothing.
type HandlerFunc func(ctx context.Context, ev event.Event) (*event.Response, error)

// Handler is implemented by single-purpose handlers.
type Handler interface {
	Handle(ctx context.Context, ev event.Event) (*event.Response, error)
}

// Conversation is a dialog that captures text and some commands while active.
type Conversation interface {
	Active(ctx context.Context, userID roster.UserID) (bool, error)
	Input(ctx context.Context, ev event.Event) (*event.Response, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// Routes events to handlers by kind and name.
// ══════════════════════════════════════════════════════════════════════════════

// Router routes events to handlers.
type Router struct {
	logger *slog.Logger

	mu       sync.RWMutex
	commands map[string]HandlerFunc
	buttons  map[string]HandlerFunc

	conversation         Conversation
	conversationCommands []string

	fallback HandlerFunc
}

// NewRouter creates a new router. Unrouted events go to fallback.
func NewRouter(fallback HandlerFunc, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if fallback == nil {
		fallback = func(context.Context, event.Event) (*event.Response, error) { return nil, nil }
	}
	return &Router{
		logger:   logger,
		commands: make(map[string]HandlerFunc),
		buttons:  make(map[string]HandlerFunc),
		fallback: fallback,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION METHODS
// ══════════════════════════════════════════════════════════════════════════════

// Command registers a handler for a slash command (without the "/").
func (r *Router) Command(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = h
}

// CommandHandler registers a Handler for a slash command.
func (r *Router) CommandHandler(name string, h Handler) {
	r.Command(name, h.Handle)
}

// Button registers a handler for a button action.
func (r *Router) Button(action string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buttons[action] = h
}

// Conversation sets the dialog that receives free text and the given commands
// while it is active for the user.
func (r *Router) Conversation(c Conversation, commands ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversation = c
	r.conversationCommands = commands
}

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCH
// ══════════════════════════════════════════════════════════════════════════════

// Dispatch routes an event to its handler.
//
// An active conversation takes free text and its own commands. Everything
// else is routed by kind and name. Free text outside a conversation and
// unknown commands or buttons go to the fallback.
func (r *Router) Dispatch(ctx context.Context, ev event.Event) (*event.Response, error) {
	r.mu.RLock()
	conv := r.conversation
	captures := ev.Kind == event.KindText ||
		(ev.Kind == event.KindCommand && slices.Contains(r.conversationCommands, ev.Name))
	var h HandlerFunc
	switch ev.Kind {
	case event.KindCommand:
		h = r.commands[ev.Name]
	case event.KindButtonPress:
		h = r.buttons[ev.Name]
	}
	r.mu.RUnlock()

	if conv != nil && captures {
		active, err := conv.Active(ctx, ev.UserID)
		if err != nil {
			return nil, err
		}
		if active {
			return conv.Input(ctx, ev)
		}
	}

	if h == nil {
		r.logger.DebugContext(ctx, "no handler for event", "route", ev.Route())
		return r.fallback(ctx, ev)
	}
	return h(ctx, ev)
}

// Commands returns the registered command names, sorted.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
