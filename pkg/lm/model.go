package lm

import (
	"context"
	"iter"
)

// CallOptions are the per-call generation settings. Nil pointers leave the
// backend default in place.
type CallOptions struct {
	Prompt          Prompt
	MaxOutputTokens *int
	Temperature     *float64
	TopP            *float64
	Stop            []string
	Seed            *int64
}

// Clone returns a copy whose Prompt and Stop slices can be replaced without
// touching o.
func (o CallOptions) Clone() CallOptions {
	o.Prompt = append(Prompt(nil), o.Prompt...)
	o.Stop = append([]string(nil), o.Stop...)
	return o
}

type GenerateResult struct {
	Content      []Content
	FinishReason FinishReason
	Usage        Usage
	Warnings     []Warning
}

// StreamResult wraps a pull stream. Ranging over Stream drives the backend;
// breaking out of the loop stops it. A non-nil error ends the stream.
type StreamResult struct {
	Stream iter.Seq2[StreamPart, error]
}

// Model is a text-generating backend.
type Model interface {
	Provider() string
	ModelID() string
	Generate(ctx context.Context, opts *CallOptions) (*GenerateResult, error)
	Stream(ctx context.Context, opts *CallOptions) (*StreamResult, error)
}

// Text concatenates the text items of a result.
func (r *GenerateResult) Text() string {
	return joinContent(r.Content, ContentText)
}

// ReasoningText concatenates the reasoning items of a result.
func (r *GenerateResult) ReasoningText() string {
	return joinContent(r.Content, ContentReasoning)
}

func joinContent(items []Content, typ string) string {
	var out string
	for _, c := range items {
		if c.Type == typ {
			out += c.Text
		}
	}
	return out
}
