package api

import (
	"errors"
	"fmt"
	"io"

	"github.com/labstack/echo/v5"
)

// chunkWriter writes chat.completion.chunk events for one completion.
type chunkWriter struct {
	w       io.Writer
	flusher func()
	id      string
	model   string
	created int64
}

func newChunkWriter(c *echo.Context, id, model string, created int64) (*chunkWriter, error) {
	res := c.Response()
	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return nil, errors.New("streaming unsupported")
	}

	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")

	return &chunkWriter{
		w:       res,
		flusher: flusher.Flush,
		id:      id,
		model:   model,
		created: created,
	}, nil
}

func (cw *chunkWriter) delta(msg ChatMessage) error {
	return cw.send(cw.chunk([]ChatChoice{{Index: 0, Delta: &msg}}, nil))
}

func (cw *chunkWriter) finish(reason string) error {
	return cw.send(cw.chunk([]ChatChoice{{
		Index:        0,
		Delta:        &ChatMessage{},
		FinishReason: &reason,
	}}, nil))
}

// usage sends the trailing usage chunk, which carries no choices.
func (cw *chunkWriter) usage(u *ChatUsage) error {
	return cw.send(cw.chunk([]ChatChoice{}, u))
}

// fail reports err as an error event and terminates the stream.
func (cw *chunkWriter) fail(err error) error {
	status, errType, _ := classify(err)
	if err := cw.send(map[string]any{
		"error": ResponseError{
			Message: err.Error(),
			Type:    errType,
			Code:    fmt.Sprint(status),
		},
	}); err != nil {
		return nil
	}
	return cw.done()
}

func (cw *chunkWriter) done() error {
	if _, err := fmt.Fprint(cw.w, "data: [DONE]\n\n"); err != nil {
		return nil
	}
	cw.flusher()
	return nil
}

func (cw *chunkWriter) chunk(choices []ChatChoice, usage *ChatUsage) ChatCompletionChunk {
	return ChatCompletionChunk{
		ID:      cw.id,
		Object:  "chat.completion.chunk",
		Created: cw.created,
		Model:   cw.model,
		Choices: choices,
		Usage:   usage,
	}
}

func (cw *chunkWriter) send(v any) error {
	if err := sendSSEChunk(cw.w, v); err != nil {
		return err
	}
	cw.flusher()
	return nil
}
