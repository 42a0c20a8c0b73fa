package ws

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/ai"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/domain/space"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/store"
)

var metricsOnce = monitoring.NewMetrics()

func newStreamFixture(t *testing.T, sseLines []string, apiKey string) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range sseLines {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	}))
	t.Cleanup(upstream.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	registry, err := space.NewRegistry(st, logging.Nop())
	require.NoError(t, err)

	if apiKey != "" {
		enabled := true
		_, err = registry.UpdateSettings(types.SettingsUpdate{
			VeraAI: &types.VeraAIUpdate{Enabled: &enabled, APIKey: &apiKey},
		})
		require.NoError(t, err)
	}

	client := ai.NewClient(ai.ClientConfig{BaseURL: upstream.URL}, logging.Nop())
	chats := ai.NewConversations(client, registry, ai.NewExtractor(logging.Nop()), logging.Nop())

	router := gin.New()
	handler := NewHandler(chats, metricsOnce, logging.Nop())
	router.GET("/stream", handler.Stream)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

func TestChatStreamDeliversCumulativeChunks(t *testing.T) {
	conn := newStreamFixture(t, []string{
		`data: {"choices":[{"delta":{"content":"Hel"}}]}`,
		`data: {"choices":[{"delta":{"content":"lo"}}]}`,
		"data: [DONE]",
	}, "sk-test")

	require.NoError(t, conn.WriteJSON(types.ChatPayload{
		Type:     "chat",
		WidgetID: "w1",
		Message:  "hi",
	}))

	var chunks []string
	for {
		var ev map[string]any
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, "w1", ev["widget_id"])
		switch ev["type"] {
		case "chunk":
			chunks = append(chunks, ev["content"].(string))
		case "complete":
			assert.Equal(t, "Hello", ev["content"])
			assert.Equal(t, []string{"Hel", "Hello"}, chunks)
			return
		case "error":
			t.Fatalf("unexpected error event: %v", ev)
		}
	}
}

func TestChatStreamErrorCarriesApology(t *testing.T) {
	// No API key configured: the turn fails before any network call and the
	// widget receives the fixed apology.
	conn := newStreamFixture(t, nil, "")

	require.NoError(t, conn.WriteJSON(types.ChatPayload{
		Type:     "chat",
		WidgetID: "w1",
		Message:  "hi",
	}))

	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "error", ev["type"])
	assert.Equal(t, ai.ErrorReply, ev["error"])
}

func TestPingPong(t *testing.T) {
	conn := newStreamFixture(t, nil, "")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	var pong map[string]any
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, "pong", pong["type"])
}

func TestClearAcknowledged(t *testing.T) {
	conn := newStreamFixture(t, nil, "")

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "clear", "widget_id": "w9"}))
	var ack map[string]any
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "cleared", ack["type"])
	assert.Equal(t, "w9", ack["widget_id"])
}
