package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

func newSSEServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n\n", line)
			flusher.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:     baseURL,
		Model:       "gpt-4-turbo-preview",
		MaxTokens:   2000,
		Temperature: 0.7,
	}, logging.Nop())
}

func delta(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q}}]}`, content)
}

func TestStreamChatYieldsCumulativeSnapshots(t *testing.T) {
	srv := newSSEServer(t, []string{
		delta("Hel"),
		delta("lo"),
		delta(" wor"),
		delta("ld"),
		"data: [DONE]",
	})
	c := newTestClient(srv.URL)

	events, err := c.StreamChat(context.Background(), "sk-test", "", []types.ChatMessage{
		{Role: types.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)

	var chunks []string
	var complete *types.StreamEvent
	for ev := range events {
		switch ev.Type {
		case types.StreamChunk:
			chunks = append(chunks, ev.Content)
		case types.StreamComplete:
			e := ev
			complete = &e
		case types.StreamError:
			t.Fatalf("unexpected error event: %s", ev.Error)
		}
	}

	assert.Equal(t, []string{"Hel", "Hello", "Hello wor", "Hello world"}, chunks)
	require.NotNil(t, complete)
	assert.Equal(t, "Hello world", complete.Content)
}

func TestStreamChatSkipsMalformedChunks(t *testing.T) {
	srv := newSSEServer(t, []string{
		delta("ok"),
		"data: {not json",
		delta("!"),
		"data: [DONE]",
	})
	c := newTestClient(srv.URL)

	events, err := c.StreamChat(context.Background(), "sk-test", "", nil)
	require.NoError(t, err)

	var chunks []string
	for ev := range events {
		if ev.Type == types.StreamChunk {
			chunks = append(chunks, ev.Content)
		}
	}
	assert.Equal(t, []string{"ok", "ok!"}, chunks)
}

func TestStreamChatMissingKey(t *testing.T) {
	c := newTestClient("http://unreachable.invalid")

	events, err := c.StreamChat(context.Background(), "", "", nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Nil(t, events)
}

func TestStreamChatStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(srv.URL)

	events, err := c.StreamChat(context.Background(), "sk-bad", "", nil)
	require.Error(t, err)
	assert.Nil(t, events)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestStreamChatEndWithoutDone(t *testing.T) {
	srv := newSSEServer(t, []string{delta("partial")})
	c := newTestClient(srv.URL)

	events, err := c.StreamChat(context.Background(), "sk-test", "", nil)
	require.NoError(t, err)

	var last types.StreamEvent
	for ev := range events {
		last = ev
	}
	assert.Equal(t, types.StreamComplete, last.Type)
	assert.Equal(t, "partial", last.Content)
}
