package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/ai"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

// Handler serves the chat stream channel.
type Handler struct {
	chats    *ai.Conversations
	metrics  *monitoring.Metrics
	log      *logging.Logger
	upgrader websocket.Upgrader
}

// NewHandler builds the stream handler. The service binds loopback only, so
// any local origin may connect.
func NewHandler(chats *ai.Conversations, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	return &Handler{
		chats:   chats,
		metrics: metrics,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// conn wraps a websocket with a write lock so concurrent widget streams
// interleave whole messages. Once the peer goes away writes become logged
// no-ops; a departed surface never fails a turn.
type conn struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
	log    *logging.Logger
}

func (c *conn) send(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.log.Debug("dropping event for departed stream peer")
		return
	}
	if err := c.ws.WriteJSON(v); err != nil {
		c.closed = true
		c.log.Debug("stream peer went away", zap.Error(err))
	}
}

// Stream upgrades the connection and serves chat turns until the peer
// disconnects. Each chat message runs as its own goroutine so independent
// widgets stream concurrently.
func (h *Handler) Stream(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("stream upgrade failed", zap.Error(err))
		return
	}
	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	peer := &conn{ws: ws, log: h.log}
	defer ws.Close()

	// Turns outlive the socket: a peer that disconnects mid-stream stops
	// receiving, but the turn itself runs to completion.
	ctx := context.WithoutCancel(c.Request.Context())
	var turns sync.WaitGroup
	defer turns.Wait()

	for {
		var payload types.ChatPayload
		if err := ws.ReadJSON(&payload); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("stream read ended", zap.Error(err))
			}
			peer.mu.Lock()
			peer.closed = true
			peer.mu.Unlock()
			return
		}
		h.metrics.RecordWSMessage("in", payload.Type)

		switch payload.Type {
		case "chat":
			turns.Add(1)
			go func(p types.ChatPayload) {
				defer turns.Done()
				h.runTurn(ctx, p, peer)
			}(payload)
		case "clear":
			h.chats.ClearHistory(payload.WidgetID)
			peer.send(gin.H{"type": "cleared", "widget_id": payload.WidgetID})
			h.metrics.RecordWSMessage("out", "cleared")
		case "ping":
			peer.send(gin.H{"type": "pong"})
			h.metrics.RecordWSMessage("out", "pong")
		default:
			h.log.Debug("ignoring unknown stream message", zap.String("type", payload.Type))
		}
	}
}

// outEvent is a stream event tagged with its widget so the shell can route
// it.
type outEvent struct {
	Type     types.StreamEventType `json:"type"`
	WidgetID string                `json:"widget_id"`
	Content  string                `json:"content,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// runTurn executes one conversation turn. The turn keeps streaming even if
// the peer disconnects mid-flight; delivery just stops landing anywhere.
func (h *Handler) runTurn(ctx context.Context, payload types.ChatPayload, peer *conn) {
	start := time.Now()
	status := "ok"
	var finalLen int

	err := h.chats.Send(ctx, payload, func(ev types.StreamEvent) {
		if ev.Type == types.StreamError {
			status = "error"
		}
		finalLen = len(ev.Content)
		peer.send(outEvent{
			Type:     ev.Type,
			WidgetID: payload.WidgetID,
			Content:  ev.Content,
			Error:    ev.Error,
		})
		h.metrics.RecordWSMessage("out", string(ev.Type))
	})
	if errors.Is(err, ai.ErrTurnInFlight) {
		peer.send(outEvent{
			Type:     types.StreamError,
			WidgetID: payload.WidgetID,
			Error:    "a turn is already in flight for this widget",
		})
		h.metrics.RecordWSMessage("out", "busy")
		return
	}

	h.metrics.RecordChatTurn(status, finalLen, time.Since(start))
}
