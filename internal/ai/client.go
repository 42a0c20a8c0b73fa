package ai

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/VeraDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/id"
	"github.com/GriffinCanCode/VeraDesk/backend/internal/shared/types"
)

// ErrMissingAPIKey is returned before any network activity when no key is
// configured.
var ErrMissingAPIKey = errors.New("no API key configured")

// StatusError reports a non-2xx completion response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion API returned status %d", e.Code)
}

// ClientConfig tunes the completion client.
type ClientConfig struct {
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Client streams chat completions from an OpenAI-compatible endpoint.
type Client struct {
	http    *resty.Client
	cfg     ClientConfig
	limiter *rate.Limiter
	log     *logging.Logger
}

// NewClient builds a streaming client. Transport retries cover transient
// connect failures; once a stream is open it is never restarted.
func NewClient(cfg ClientConfig, log *logging.Logger) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = 2
	retry.RetryWaitMin = 500 * time.Millisecond
	retry.RetryWaitMax = 3 * time.Second
	retry.Logger = nil

	rc := resty.NewWithClient(retry.StandardClient()).
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:    rc,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		log:     log,
	}
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []types.ChatMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature"`
	Stream      bool                `json:"stream"`
}

type completionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamChat starts a completion and returns a channel of events. Each chunk
// event carries the cumulative assistant text so far; the channel closes
// after the terminal complete (or error) event. The stream cannot be
// restarted mid-flight.
func (c *Client) StreamChat(ctx context.Context, apiKey, model string, messages []types.ChatMessage) (<-chan types.StreamEvent, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = c.cfg.Model
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqID := id.NewRequestID()
	body := completionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stream:      true,
	}
	raw, err := sonic.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(apiKey).
		SetBody(raw).
		SetDoNotParseResponse(true).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	stream := resp.RawBody()
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		detail, _ := io.ReadAll(io.LimitReader(stream, 4096))
		stream.Close()
		c.log.Warn("completion API rejected request",
			zap.String("request_id", reqID),
			zap.Int("status", resp.StatusCode()))
		return nil, &StatusError{Code: resp.StatusCode(), Body: string(detail)}
	}

	events := make(chan types.StreamEvent)
	go c.readStream(reqID, stream, events)
	return events, nil
}

// readStream consumes server-sent events, emitting a cumulative snapshot per
// content delta. Malformed chunks are skipped, not fatal.
func (c *Client) readStream(reqID string, body io.ReadCloser, events chan<- types.StreamEvent) {
	defer close(events)
	defer body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			events <- types.StreamEvent{Type: types.StreamComplete, Content: full.String()}
			return
		}

		var chunk completionChunk
		if err := sonic.UnmarshalString(data, &chunk); err != nil {
			c.log.Debug("skipping malformed stream chunk",
				zap.String("request_id", reqID), zap.Error(err))
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		full.WriteString(chunk.Choices[0].Delta.Content)
		events <- types.StreamEvent{Type: types.StreamChunk, Content: full.String()}
	}

	if err := scanner.Err(); err != nil {
		c.log.Warn("completion stream broke",
			zap.String("request_id", reqID), zap.Error(err))
		events <- types.StreamEvent{Type: types.StreamError, Error: err.Error()}
		return
	}
	// Stream ended without a [DONE] marker; treat what we have as complete.
	events <- types.StreamEvent{Type: types.StreamComplete, Content: full.String()}
}
