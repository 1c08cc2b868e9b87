package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartableai/cartable/pkg/eventstream"
	"github.com/cartableai/cartable/pkg/llm"
	"github.com/cartableai/cartable/pkg/rag"
)

// ErrorResponse is the JSON error envelope returned by API handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	// Question is the user's message for this turn.
	Question string `json:"question"`

	// History holds prior conversation messages, most recent last.
	History []string `json:"history,omitempty"`
}

// chatDelta is one SSE data payload in the chat response stream.
type chatDelta struct {
	Delta string `json:"delta,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleChat handles POST /v1/chat requests, streaming the answer as
// server-sent events. Each event carries a JSON delta; the stream ends with
// a "[DONE]" sentinel.
func (s *Server) handleChat(c *fiber.Ctx) error {
	if s.config.Answerer == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error: "chat is not configured",
		})
	}

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "invalid request body",
		})
	}

	if req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "question is required",
		})
	}

	// Use context.Background() instead of c.Context() because fasthttp
	// recycles its RequestCtx after the handler returns, but the streaming
	// callback runs asynchronously in a separate goroutine and needs the
	// answer stream to remain open.
	ctx := context.Background()
	stream := s.config.Answerer.Answer(ctx, req.Question, req.History)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	// Use io.Pipe + SetBodyStream so Flush pressure reaches the TCP socket:
	// pw.Write blocks until fasthttp's chunked writer consumes the data,
	// giving true per-fragment streaming instead of buffering the answer.
	pr, pw := io.Pipe()
	go s.streamToPipe(ctx, req.Question, stream, pw)

	// Unknown size (-1) triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// streamToPipe drains the answer stream into the SSE pipe and publishes the
// turn event once the stream ends.
func (s *Server) streamToPipe(ctx context.Context, question string, stream *llm.Stream, pw *io.PipeWriter) {
	defer pw.Close()
	defer stream.Close()

	for fragment := range stream.Fragments() {
		if err := writeSSEData(pw, chatDelta{Delta: fragment}); err != nil {
			// Client went away; abandon the upstream generation.
			s.logger.Debug("chat client disconnected", zap.Error(err))
			return
		}
	}

	streamErr := stream.Err()
	s.publishTurn(ctx, question, streamErr != nil)

	if streamErr != nil {
		s.logger.Warn("chat stream ended with error", zap.Error(streamErr))
		_ = writeSSEData(pw, chatDelta{Error: streamErr.Error()})
		return
	}

	_, _ = fmt.Fprint(pw, "data: [DONE]\n\n")
}

func (s *Server) publishTurn(ctx context.Context, question string, failed bool) {
	if s.config.Publisher == nil {
		return
	}

	err := s.config.Publisher.Publish(ctx, eventstream.Event{
		ID:            uuid.NewString(),
		Type:          eventstream.TypeTurnAnswered,
		SchemaVersion: eventstream.SchemaVersion,
		Timestamp:     time.Now().UTC(),
		Payload: eventstream.TurnAnswered{
			Intent:       rag.Classify(question).String(),
			WantsSources: rag.WantsSources(question),
			Failed:       failed,
		},
	})
	if err != nil {
		s.logger.Warn("publishing turn event failed", zap.Error(err))
	}
}

func writeSSEData(w io.Writer, payload chatDelta) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
