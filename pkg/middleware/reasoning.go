package middleware

import (
	"context"
	"iter"
	"strconv"
	"strings"

	"github.com/minpeter/ai-sdk-middleware/internal/logger"
	"github.com/minpeter/ai-sdk-middleware/internal/reasoning"
	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
)

// ReasoningConfig configures ExtractReasoning. Both tags are required and
// matched literally.
type ReasoningConfig struct {
	OpeningTag string
	ClosingTag string
	// Separator joins reasoning and text pieces in generated results.
	Separator string
	// StartWithReasoning treats output as already inside a reasoning block.
	StartWithReasoning bool
	// SeparateStream also applies Separator to streamed deltas.
	SeparateStream bool
}

func (c ReasoningConfig) options() reasoning.Options {
	return reasoning.Options{
		OpeningTag:         c.OpeningTag,
		ClosingTag:         c.ClosingTag,
		Separator:          c.Separator,
		StartWithReasoning: c.StartWithReasoning,
		SeparateStream:     c.SeparateStream,
	}
}

// ExtractReasoning returns a middleware that moves tagged reasoning out of
// text content into reasoning content, for both generated results and
// streams.
func ExtractReasoning(cfg ReasoningConfig) (Middleware, error) {
	if cfg.OpeningTag == "" {
		return Middleware{}, newInvalidConfig("reasoning: opening tag must not be empty")
	}
	if cfg.ClosingTag == "" {
		return Middleware{}, newInvalidConfig("reasoning: closing tag must not be empty")
	}
	opts := cfg.options()

	return Middleware{
		Name: "extract-reasoning",
		WrapGenerate: func(next GenerateFunc) GenerateFunc {
			return func(ctx context.Context, callOpts *lm.CallOptions) (*lm.GenerateResult, error) {
				res, err := next(ctx, callOpts)
				if err != nil {
					return nil, err
				}
				out := *res
				out.Content = extractContent(res.Content, opts)
				return &out, nil
			}
		},
		WrapStream: func(next StreamFunc) StreamFunc {
			return func(ctx context.Context, callOpts *lm.CallOptions) (*lm.StreamResult, error) {
				res, err := next(ctx, callOpts)
				if err != nil {
					return nil, err
				}
				return &lm.StreamResult{Stream: splitStream(ctx, res.Stream, opts)}, nil
			}
		},
	}, nil
}

func extractContent(items []lm.Content, opts reasoning.Options) []lm.Content {
	out := make([]lm.Content, 0, len(items))
	for _, item := range items {
		if item.Type != lm.ContentText || !hasReasoning(item.Text, opts) {
			out = append(out, item)
			continue
		}

		reasoningText, text := reasoning.Collapse(reasoning.Extract(item.Text, opts), opts.Separator)
		if reasoningText != "" {
			out = append(out, lm.Content{
				Type:             lm.ContentReasoning,
				Text:             reasoningText,
				ProviderMetadata: item.ProviderMetadata,
			})
		}
		if text != "" {
			item.Text = text
			out = append(out, item)
		}
	}
	return out
}

// hasReasoning reports whether text opens a reasoning block at all.
func hasReasoning(text string, opts reasoning.Options) bool {
	return opts.StartWithReasoning || strings.Contains(text, opts.OpeningTag)
}

type channel struct {
	id          string
	reasoningID string
	splitter    *reasoning.Splitter
}

// streamSplitter routes text parts of one stream call to per-channel
// splitters.
type streamSplitter struct {
	opts     reasoning.Options
	log      logger.Logger
	channels map[string]*channel
	order    []*channel
}

func splitStream(ctx context.Context, src iter.Seq2[lm.StreamPart, error], opts reasoning.Options) iter.Seq2[lm.StreamPart, error] {
	return func(yield func(lm.StreamPart, error) bool) {
		s := &streamSplitter{
			opts:     opts,
			log:      logger.FromContext(ctx),
			channels: make(map[string]*channel),
		}
		for part, err := range src {
			if err != nil {
				if len(s.channels) > 0 {
					s.log.Debug("stream failed, dropping reasoning state", "channels", len(s.channels), "error", err)
				}
				yield(lm.StreamPart{}, err)
				return
			}
			for _, out := range s.handle(part) {
				if !yield(out, nil) {
					return
				}
			}
		}
		for _, out := range s.flushAll() {
			if !yield(out, nil) {
				return
			}
		}
	}
}

func (s *streamSplitter) handle(part lm.StreamPart) []lm.StreamPart {
	switch part.Type {
	case lm.PartTextDelta:
		ch := s.channel(part.ID)
		return s.convert(nil, ch, ch.splitter.Push(part.Delta), part)
	case lm.PartTextEnd:
		ch, ok := s.channels[part.ID]
		if !ok {
			return []lm.StreamPart{part}
		}
		out := s.convert(nil, ch, ch.splitter.Flush(), part)
		return append(out, part)
	case lm.PartFinish:
		return append(s.flushAll(), part)
	default:
		return []lm.StreamPart{part}
	}
}

func (s *streamSplitter) channel(id string) *channel {
	if ch, ok := s.channels[id]; ok {
		return ch
	}
	ch := &channel{
		id:          id,
		reasoningID: "reasoning-" + strconv.Itoa(len(s.order)),
		splitter:    reasoning.NewSplitter(s.opts),
	}
	s.channels[id] = ch
	s.order = append(s.order, ch)
	s.log.Debug("reasoning channel opened", "id", id, "reasoning_id", ch.reasoningID)
	return ch
}

func (s *streamSplitter) flushAll() []lm.StreamPart {
	var out []lm.StreamPart
	for _, ch := range s.order {
		if ch.splitter.Buffered() == "" {
			continue
		}
		deltas := ch.splitter.Flush()
		s.log.Debug("reasoning channel flushed", "id", ch.id, "deltas", len(deltas))
		out = s.convert(out, ch, deltas, lm.StreamPart{})
	}
	return out
}

// convert maps splitter output to stream parts. src supplies metadata for
// generated parts.
func (s *streamSplitter) convert(out []lm.StreamPart, ch *channel, deltas []reasoning.Delta, src lm.StreamPart) []lm.StreamPart {
	for _, d := range deltas {
		part := lm.StreamPart{ProviderMetadata: src.ProviderMetadata}
		switch d.Kind {
		case reasoning.DeltaText:
			part.Type, part.ID, part.Delta = lm.PartTextDelta, ch.id, d.Text
		case reasoning.DeltaReasoningStart:
			part.Type, part.ID = lm.PartReasoningStart, ch.reasoningID
		case reasoning.DeltaReasoning:
			part.Type, part.ID, part.Delta = lm.PartReasoningDelta, ch.reasoningID, d.Text
		case reasoning.DeltaReasoningEnd:
			part.Type, part.ID = lm.PartReasoningEnd, ch.reasoningID
		}
		out = append(out, part)
	}
	return out
}
