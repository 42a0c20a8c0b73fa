package ai

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/domain/space"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/id"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

// ErrorReply is the fixed assistant message shown when a turn fails for any
// reason.
const ErrorReply = "Sorry, I encountered an error. Please check your API key and try again."

// ErrTurnInFlight rejects a send while the widget's previous turn is still
// streaming.
var ErrTurnInFlight = errors.New("a turn is already in flight for this widget")

// TurnState tracks one widget's lifecycle.
type TurnState string

const (
	StateIdle      TurnState = "idle"
	StateSending   TurnState = "sending"
	StateStreaming TurnState = "streaming"
)

// widget is one chat widget's serialized conversation.
type widget struct {
	state   TurnState
	history []types.ChatMessage
}

// Conversations serializes turns per widget. Independent widgets stream
// concurrently; within one widget a second send is rejected until the
// current turn reaches a terminal state.
type Conversations struct {
	mu      sync.Mutex
	widgets map[string]*widget

	client    *Client
	registry  *space.Registry
	extractor *Extractor
	log       *logging.Logger
}

// NewConversations builds the conversation manager.
func NewConversations(client *Client, registry *space.Registry, extractor *Extractor, log *logging.Logger) *Conversations {
	return &Conversations{
		widgets:   make(map[string]*widget),
		client:    client,
		registry:  registry,
		extractor: extractor,
		log:       log,
	}
}

// Send runs one conversation turn, delivering stream events through deliver.
// It blocks until the turn reaches a terminal state. Failures are reported
// on the stream as an error event carrying the fixed apology, which is also
// appended to the widget's history; input unlocks either way.
func (c *Conversations) Send(ctx context.Context, payload types.ChatPayload, deliver func(types.StreamEvent)) error {
	turnID := id.NewTurnID()

	c.mu.Lock()
	w, ok := c.widgets[payload.WidgetID]
	if !ok {
		w = &widget{state: StateIdle}
		c.widgets[payload.WidgetID] = w
	}
	if w.state != StateIdle {
		c.mu.Unlock()
		c.log.Debug("rejecting concurrent turn",
			zap.String("widget_id", payload.WidgetID), zap.String("turn_id", turnID))
		return ErrTurnInFlight
	}
	w.state = StateSending
	if payload.History != nil {
		w.history = append([]types.ChatMessage(nil), payload.History...)
	}
	c.mu.Unlock()

	finish := func(assistant string) {
		c.mu.Lock()
		w.history = append(w.history,
			types.ChatMessage{Role: types.RoleUser, Content: payload.Message},
			types.ChatMessage{Role: types.RoleAssistant, Content: assistant},
		)
		w.state = StateIdle
		c.mu.Unlock()
	}

	messages := c.buildMessages(payload, w)

	settings := c.registry.Settings()
	apiKey := settings.VeraAI.APIKey
	if apiKey == "" {
		apiKey = settings.OpenAIAPIKey
	}

	events, err := c.client.StreamChat(ctx, apiKey, settings.VeraAI.Model, messages)
	if err != nil {
		c.log.Warn("turn failed to start",
			zap.String("widget_id", payload.WidgetID),
			zap.String("turn_id", turnID),
			zap.Error(err))
		deliver(types.StreamEvent{Type: types.StreamError, Error: ErrorReply})
		finish(ErrorReply)
		return nil
	}

	c.mu.Lock()
	w.state = StateStreaming
	c.mu.Unlock()

	var final string
	failed := false
	for ev := range events {
		switch ev.Type {
		case types.StreamChunk:
			final = ev.Content
			deliver(ev)
		case types.StreamComplete:
			final = ev.Content
			deliver(ev)
		case types.StreamError:
			failed = true
			c.log.Warn("turn failed mid-stream",
				zap.String("widget_id", payload.WidgetID),
				zap.String("turn_id", turnID),
				zap.String("cause", ev.Error))
			deliver(types.StreamEvent{Type: types.StreamError, Error: ErrorReply})
		}
	}

	if failed {
		finish(ErrorReply)
	} else {
		finish(final)
	}
	return nil
}

// buildMessages assembles the system prompt, prior history, and the new user
// message for one turn.
func (c *Conversations) buildMessages(payload types.ChatPayload, w *widget) []types.ChatMessage {
	var sp *types.Space
	if payload.SpaceID != "" {
		sp = c.registry.Space(payload.SpaceID)
	}

	pageContext := ""
	if payload.Page != nil {
		extracted, err := c.extractor.Extract(*payload.Page)
		if err != nil {
			c.log.Warn("page extraction failed",
				zap.String("widget_id", payload.WidgetID), zap.Error(err))
		} else {
			pageContext = FormatContext(extracted)
		}
	}

	messages := []types.ChatMessage{
		{Role: types.RoleSystem, Content: SystemPrompt(sp, pageContext)},
	}
	c.mu.Lock()
	messages = append(messages, w.history...)
	c.mu.Unlock()
	messages = append(messages, types.ChatMessage{Role: types.RoleUser, Content: payload.Message})
	return messages
}

// ClearHistory drops a widget's transient history.
func (c *Conversations) ClearHistory(widgetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.widgets[widgetID]; ok {
		w.history = nil
	}
}

// State reports a widget's current turn state. Unknown widgets are idle.
func (c *Conversations) State(widgetID string) TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.widgets[widgetID]; ok {
		return w.state
	}
	return StateIdle
}
