package types

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn in a conversation. History is transient and never
// persisted.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// PageSnapshot is the structured capture a content view delivers to the
// control process. The control process never injects executable source into
// a surface; the view sends its document and the bridge extracts context
// locally.
type PageSnapshot struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// ChatPayload is the websocket request that starts one conversation turn.
type ChatPayload struct {
	Type       string        `json:"type"`
	WidgetID   string        `json:"widget_id"`
	SpaceID    string        `json:"space_id,omitempty"`
	SubspaceID string        `json:"subspace_id,omitempty"`
	Message    string        `json:"message"`
	History    []ChatMessage `json:"history,omitempty"`
	Page       *PageSnapshot `json:"page,omitempty"`
}

// StreamEventType tags streamed chat events.
type StreamEventType string

const (
	StreamChunk    StreamEventType = "chunk"
	StreamComplete StreamEventType = "complete"
	StreamError    StreamEventType = "error"
)

// StreamEvent is one event on the chat stream channel. Chunk events carry
// the cumulative assistant text so far, so the widget replaces its displayed
// content rather than appending deltas.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
	Error   string          `json:"error,omitempty"`
}
