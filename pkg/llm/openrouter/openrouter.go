// Package openrouter implements the llm.StreamClient capability against the
// OpenRouter chat completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/cartableai/cartable/pkg/llm"
	"github.com/cartableai/cartable/pkg/sse"
)

const (
	// DefaultBaseURL is the OpenRouter API base.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is the generation model used when none is configured.
	DefaultModel = "deepseek/deepseek-r1-0528:free"
)

// Config holds configuration for the OpenRouter client.
type Config struct {
	// BaseURL of the OpenRouter-compatible API.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey authenticates requests. When empty the client reports itself
	// as not configured and refuses to stream.
	APIKey string

	// Model is the generation model identifier.
	// Defaults to DefaultModel if empty.
	Model string

	// SiteURL and SiteName populate the HTTP-Referer and X-Title headers
	// OpenRouter uses for app attribution. Both are optional.
	SiteURL  string
	SiteName string
}

// Client streams chat completions from OpenRouter.
type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewClient creates an OpenRouter streaming client. Defaults are applied for
// any unset Config fields.
func NewClient(c Config, logger *zap.Logger) *Client {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	if c.Model == "" {
		c.Model = DefaultModel
	}

	return &Client{
		cfg: c,
		// No client timeout: a streaming completion legitimately stays open
		// for minutes. Cancellation happens through the request context.
		client: &http.Client{},
		logger: logger,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// StreamCompletion initiates one streaming generation request. Fragments are
// delivered through the returned stream as the provider emits them.
func (c *Client) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (*llm.Stream, error) {
	if !c.Configured() {
		return nil, llm.ErrMissingAPIKey
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling completion request: %w", err)
	}

	// Derived context so Stream.Close can abandon the request when the
	// consumer stops reading.
	streamCtx, cancel := context.WithCancel(ctx)

	httpReq, err := http.NewRequestWithContext(streamCtx,
		http.MethodPost,
		c.cfg.BaseURL+"/chat/completions",
		bytes.NewReader(body),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating completion request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.cfg.SiteURL != "" {
		httpReq.Header.Set("HTTP-Referer", c.cfg.SiteURL)
	}
	if c.cfg.SiteName != "" {
		httpReq.Header.Set("X-Title", c.cfg.SiteName)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", llm.ErrStream, err)
	}

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: status %d: %s", llm.ErrStream, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	stream := llm.NewStream(cancel)
	go c.consume(streamCtx, resp.Body, stream)

	return stream, nil
}

// consume reads SSE events from the response body and forwards content deltas
// to the stream until the provider signals completion or fails.
func (c *Client) consume(ctx context.Context, body io.ReadCloser, stream *llm.Stream) {
	defer body.Close()

	reader := sse.NewReader(body)
	for {
		event, err := reader.Next()
		if err != nil {
			c.logger.Warn("completion stream read failed", zap.Error(err))
			stream.Finish(fmt.Errorf("%w: %v", llm.ErrStream, err))
			return
		}
		if event == nil {
			// Upstream closed without the [DONE] sentinel. Treat as
			// normal completion; all emitted fragments were delivered.
			stream.Finish(nil)
			return
		}

		data := strings.TrimSpace(event.Data)
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			stream.Finish(nil)
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Tolerate malformed payloads rather than killing the answer.
			c.logger.Debug("skipping undecodable stream chunk", zap.Error(err))
			continue
		}

		if chunk.Error != nil {
			c.logger.Warn("completion stream reported an error",
				zap.Int("code", chunk.Error.Code),
				zap.String("message", chunk.Error.Message),
			)
			stream.Finish(fmt.Errorf("%w: %s", llm.ErrStream, chunk.Error.Message))
			return
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			if !stream.Send(ctx, choice.Delta.Content) {
				// Consumer abandoned the stream.
				stream.Finish(ctx.Err())
				return
			}
		}
	}
}

var _ llm.StreamClient = (*Client)(nil)
