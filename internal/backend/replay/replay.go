// Package replay provides an lm.Model that plays back recorded stream
// parts. It backs the stream command and tests that need a deterministic
// model.
package replay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/goccy/go-json"

	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
)

const Provider = "replay"

type Model struct {
	modelID   string
	parts     []lm.StreamPart
	failAfter int
	failErr   error
}

type Option func(*Model)

func WithModelID(id string) Option {
	return func(m *Model) {
		m.modelID = id
	}
}

// WithFailure makes the model fail with err once n parts were delivered.
func WithFailure(n int, err error) Option {
	return func(m *Model) {
		m.failAfter = n
		m.failErr = err
	}
}

func New(parts []lm.StreamPart, opts ...Option) *Model {
	m := &Model{
		modelID:   "replay",
		parts:     parts,
		failAfter: -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads one JSON encoded lm.StreamPart per line. Blank lines are
// skipped.
func Load(r io.Reader, opts ...Option) (*Model, error) {
	parts, err := ReadParts(r)
	if err != nil {
		return nil, err
	}
	return New(parts, opts...), nil
}

func ReadParts(r io.Reader) ([]lm.StreamPart, error) {
	var parts []lm.StreamPart
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var p lm.StreamPart
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if p.Type == "" {
			return nil, fmt.Errorf("line %d: missing part type", line)
		}
		parts = append(parts, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stream parts: %w", err)
	}
	return parts, nil
}

// FromText builds the parts of a single text channel that delivers text in
// chunks of at most size bytes, followed by a stop finish.
func FromText(id, text string, size int) []lm.StreamPart {
	if size <= 0 {
		size = len(text)
	}
	parts := []lm.StreamPart{
		{Type: lm.PartStreamStart},
		{Type: lm.PartTextStart, ID: id},
	}
	for len(text) > 0 {
		n := min(size, len(text))
		parts = append(parts, lm.StreamPart{Type: lm.PartTextDelta, ID: id, Delta: text[:n]})
		text = text[n:]
	}
	return append(parts,
		lm.StreamPart{Type: lm.PartTextEnd, ID: id},
		lm.StreamPart{Type: lm.PartFinish, FinishReason: &lm.FinishReason{Unified: lm.FinishStop, Raw: "stop"}},
	)
}

func (m *Model) Provider() string { return Provider }

func (m *Model) ModelID() string { return m.modelID }

func (m *Model) Stream(ctx context.Context, _ *lm.CallOptions) (*lm.StreamResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &lm.StreamResult{Stream: func(yield func(lm.StreamPart, error) bool) {
		for i, p := range m.parts {
			if i == m.failAfter {
				yield(lm.StreamPart{}, m.failErr)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(lm.StreamPart{}, err)
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}}, nil
}

// Generate folds the recorded stream into a result: deltas are concatenated
// per block id in order of first appearance.
func (m *Model) Generate(ctx context.Context, opts *lm.CallOptions) (*lm.GenerateResult, error) {
	res, err := m.Stream(ctx, opts)
	if err != nil {
		return nil, err
	}
	return Collect(res.Stream)
}

// Collect drains a stream into a GenerateResult.
func Collect(stream iter.Seq2[lm.StreamPart, error]) (*lm.GenerateResult, error) {
	out := &lm.GenerateResult{FinishReason: lm.FinishReason{Unified: lm.FinishOther}}
	index := map[string]int{}

	appendDelta := func(typ, id, delta string) {
		key := typ + "\x00" + id
		i, ok := index[key]
		if !ok {
			i = len(out.Content)
			index[key] = i
			out.Content = append(out.Content, lm.Content{Type: typ})
		}
		out.Content[i].Text += delta
	}

	for p, err := range stream {
		if err != nil {
			return nil, err
		}
		switch p.Type {
		case lm.PartTextDelta:
			appendDelta(lm.ContentText, p.ID, p.Delta)
		case lm.PartReasoningDelta:
			appendDelta(lm.ContentReasoning, p.ID, p.Delta)
		case lm.PartToolCall:
			out.Content = append(out.Content, lm.Content{
				Type:       lm.ContentToolCall,
				ToolCallID: p.ToolCallID,
				ToolName:   p.ToolName,
				Input:      p.Input,
			})
		case lm.PartStreamStart:
			out.Warnings = append(out.Warnings, p.Warnings...)
		case lm.PartFinish:
			if p.FinishReason != nil {
				out.FinishReason = *p.FinishReason
			}
			if p.Usage != nil {
				out.Usage = *p.Usage
			}
		case lm.PartError:
			return nil, p.Err()
		}
	}
	return out, nil
}
