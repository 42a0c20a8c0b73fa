package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/domain/space"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/store"
)

type collector struct {
	mu     sync.Mutex
	events []types.StreamEvent
}

func (c *collector) deliver(ev types.StreamEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) all() []types.StreamEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.StreamEvent(nil), c.events...)
}

func newConversationFixture(t *testing.T, baseURL, apiKey string) (*Conversations, *space.Registry) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg, err := space.NewRegistry(st, logging.Nop())
	require.NoError(t, err)
	if apiKey != "" {
		enabled := true
		_, err = reg.UpdateSettings(types.SettingsUpdate{
			VeraAI: &types.VeraAIUpdate{Enabled: &enabled, APIKey: &apiKey},
		})
		require.NoError(t, err)
	}

	client := newTestClient(baseURL)
	return NewConversations(client, reg, NewExtractor(logging.Nop()), logging.Nop()), reg
}

func TestSendStreamsAndRecordsHistory(t *testing.T) {
	srv := newSSEServer(t, []string{delta("Hi "), delta("there"), "data: [DONE]"})
	conv, _ := newConversationFixture(t, srv.URL, "sk-test")

	var sink collector
	err := conv.Send(context.Background(), types.ChatPayload{
		WidgetID: "w1",
		Message:  "hello",
	}, sink.deliver)
	require.NoError(t, err)

	events := sink.all()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, types.StreamComplete, last.Type)
	assert.Equal(t, "Hi there", last.Content)
	assert.Equal(t, StateIdle, conv.State("w1"))
}

func TestSendWithoutKeyDeliversApology(t *testing.T) {
	conv, _ := newConversationFixture(t, "http://unreachable.invalid", "")

	var sink collector
	err := conv.Send(context.Background(), types.ChatPayload{
		WidgetID: "w1",
		Message:  "hello",
	}, sink.deliver)
	require.NoError(t, err)

	events := sink.all()
	require.Len(t, events, 1)
	assert.Equal(t, types.StreamError, events[0].Type)
	assert.Equal(t, ErrorReply, events[0].Error)

	// Input unlocked, apology on record.
	assert.Equal(t, StateIdle, conv.State("w1"))
}

func TestSendSerializedPerWidget(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, delta("slow")+"\n\n")
		flusher.Flush()
		started <- struct{}{}
		<-release
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)

	conv, _ := newConversationFixture(t, srv.URL, "sk-test")

	var sink collector
	done := make(chan error, 1)
	go func() {
		done <- conv.Send(context.Background(), types.ChatPayload{WidgetID: "w1", Message: "first"}, sink.deliver)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never started")
	}

	// Same widget is locked while streaming.
	err := conv.Send(context.Background(), types.ChatPayload{WidgetID: "w1", Message: "second"}, sink.deliver)
	assert.ErrorIs(t, err, ErrTurnInFlight)

	// A different widget streams concurrently.
	var otherSink collector
	otherDone := make(chan error, 1)
	go func() {
		otherDone <- conv.Send(context.Background(), types.ChatPayload{WidgetID: "w2", Message: "parallel"}, otherSink.deliver)
	}()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("second widget never started streaming")
	}

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-otherDone)
	assert.Equal(t, StateIdle, conv.State("w1"))
	assert.Equal(t, StateIdle, conv.State("w2"))
}

func TestClearHistory(t *testing.T) {
	srv := newSSEServer(t, []string{delta("reply"), "data: [DONE]"})
	conv, _ := newConversationFixture(t, srv.URL, "sk-test")

	var sink collector
	require.NoError(t, conv.Send(context.Background(), types.ChatPayload{WidgetID: "w1", Message: "q"}, sink.deliver))

	conv.ClearHistory("w1")
	conv.mu.Lock()
	assert.Empty(t, conv.widgets["w1"].history)
	conv.mu.Unlock()
}
