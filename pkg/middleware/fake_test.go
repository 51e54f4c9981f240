package middleware

import (
	"context"
	"iter"

	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
)

// fakeModel returns canned results and records the options it was called
// with.
type fakeModel struct {
	content []lm.Content
	parts   []lm.StreamPart
	// failAfter injects streamErr after that many parts when >= 0.
	failAfter int
	streamErr error

	lastOpts *lm.CallOptions
	pulled   int
}

func newFakeModel() *fakeModel {
	return &fakeModel{failAfter: -1}
}

func (m *fakeModel) Provider() string { return "fake" }

func (m *fakeModel) ModelID() string { return "fake-1" }

func (m *fakeModel) Generate(_ context.Context, opts *lm.CallOptions) (*lm.GenerateResult, error) {
	m.lastOpts = opts
	return &lm.GenerateResult{
		Content:      append([]lm.Content(nil), m.content...),
		FinishReason: lm.FinishReason{Unified: lm.FinishStop},
	}, nil
}

func (m *fakeModel) Stream(_ context.Context, opts *lm.CallOptions) (*lm.StreamResult, error) {
	m.lastOpts = opts
	var seq iter.Seq2[lm.StreamPart, error] = func(yield func(lm.StreamPart, error) bool) {
		for i, p := range m.parts {
			if i == m.failAfter {
				yield(lm.StreamPart{}, m.streamErr)
				return
			}
			m.pulled++
			if !yield(p, nil) {
				return
			}
		}
	}
	return &lm.StreamResult{Stream: seq}, nil
}

func collectStream(res *lm.StreamResult) ([]lm.StreamPart, error) {
	var out []lm.StreamPart
	for p, err := range res.Stream {
		if err != nil {
			return out, err
		}
		out = append(out, p)
	}
	return out, nil
}

func textDeltas(id string, fragments ...string) []lm.StreamPart {
	out := make([]lm.StreamPart, 0, len(fragments))
	for _, f := range fragments {
		out = append(out, lm.StreamPart{Type: lm.PartTextDelta, ID: id, Delta: f})
	}
	return out
}

func finishPart() lm.StreamPart {
	return lm.StreamPart{
		Type:         lm.PartFinish,
		FinishReason: &lm.FinishReason{Unified: lm.FinishStop},
		Usage:        &lm.Usage{InputTokens: 3, OutputTokens: 5},
	}
}
