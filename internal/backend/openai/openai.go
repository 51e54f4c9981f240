// Package openai adapts an OpenAI-compatible chat completions endpoint to
// lm.Model.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/minpeter/ai-sdk-middleware/internal/logger"
	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
)

const Provider = "openai-compatible"

type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// RequestsPerSecond limits upstream calls; zero or less disables the
	// limit.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

type Model struct {
	client  *goopenai.Client
	model   string
	limiter *rate.Limiter
}

func New(cfg Config) (*Model, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai: model is required")
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Model{
		client:  goopenai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		limiter: limiter,
	}, nil
}

func (m *Model) Provider() string { return Provider }

func (m *Model) ModelID() string { return m.model }

func (m *Model) Generate(ctx context.Context, opts *lm.CallOptions) (*lm.GenerateResult, error) {
	req, err := m.request(opts, false)
	if err != nil {
		return nil, err
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("openai: rate limit: %w", err)
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion: %w", err)
	}

	out := &lm.GenerateResult{
		FinishReason: lm.FinishReason{Unified: lm.FinishOther},
		Usage:        usageOf(&resp.Usage),
	}
	for i, choice := range resp.Choices {
		if choice.Message.Content != "" {
			out.Content = append(out.Content, lm.Content{Type: lm.ContentText, Text: choice.Message.Content})
		}
		for _, tc := range choice.Message.ToolCalls {
			out.Content = append(out.Content, lm.Content{
				Type:       lm.ContentToolCall,
				ToolCallID: tc.ID,
				ToolName:   tc.Function.Name,
				Input:      tc.Function.Arguments,
			})
		}
		if i == 0 {
			out.FinishReason = finishReason(choice.FinishReason)
		}
	}
	return out, nil
}

func (m *Model) Stream(ctx context.Context, opts *lm.CallOptions) (*lm.StreamResult, error) {
	req, err := m.request(opts, true)
	if err != nil {
		return nil, err
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("openai: rate limit: %w", err)
	}

	stream, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("openai: chat completion stream: %w", err)
	}
	log := logger.FromContext(ctx).With("provider", Provider, "model", m.model)
	return &lm.StreamResult{Stream: func(yield func(lm.StreamPart, error) bool) {
		defer stream.Close()
		s := newStreamState()
		if !yield(lm.StreamPart{Type: lm.PartStreamStart}, nil) {
			return
		}
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				log.Debug("upstream stream failed", "error", err)
				yield(lm.StreamPart{}, fmt.Errorf("openai: stream: %w", err))
				return
			}
			for _, part := range s.handle(resp) {
				if !yield(part, nil) {
					return
				}
			}
		}
		for _, part := range s.finish() {
			if !yield(part, nil) {
				return
			}
		}
	}}, nil
}

func (m *Model) request(opts *lm.CallOptions, stream bool) (goopenai.ChatCompletionRequest, error) {
	req := goopenai.ChatCompletionRequest{
		Model:  m.model,
		Stream: stream,
	}
	if stream {
		req.StreamOptions = &goopenai.StreamOptions{IncludeUsage: true}
	}
	if opts == nil {
		return req, nil
	}

	for i, msg := range opts.Prompt {
		m, err := messageOf(msg)
		if err != nil {
			return req, fmt.Errorf("openai: message %d: %w", i, err)
		}
		req.Messages = append(req.Messages, m)
	}
	if opts.MaxOutputTokens != nil {
		req.MaxTokens = *opts.MaxOutputTokens
	}
	if opts.Temperature != nil {
		req.Temperature = float32(*opts.Temperature)
	}
	if opts.TopP != nil {
		req.TopP = float32(*opts.TopP)
	}
	if len(opts.Stop) > 0 {
		req.Stop = opts.Stop
	}
	if opts.Seed != nil {
		seed := int(*opts.Seed)
		req.Seed = &seed
	}
	return req, nil
}

// messageOf converts a prompt message. Text parts become the content,
// tool-call parts become ToolCalls and a tool-result part sets ToolCallID
// and contributes its output to the content.
func messageOf(msg lm.Message) (goopenai.ChatCompletionMessage, error) {
	text, ok := lm.TextOf(msg.Content)
	if !ok {
		return goopenai.ChatCompletionMessage{}, fmt.Errorf("unsupported content %T", msg.Content)
	}
	out := goopenai.ChatCompletionMessage{Role: msg.Role, Content: text}

	parts, _ := msg.Content.([]lm.Part)
	for _, p := range parts {
		switch p.Type {
		case lm.PartTypeToolCall:
			args, err := encodeValue(p.Input)
			if err != nil {
				return out, fmt.Errorf("tool call %s arguments: %w", p.ToolCallID, err)
			}
			out.ToolCalls = append(out.ToolCalls, goopenai.ToolCall{
				ID:   p.ToolCallID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      p.ToolName,
					Arguments: args,
				},
			})
		case lm.PartTypeToolResult:
			result, err := encodeValue(p.Output)
			if err != nil {
				return out, fmt.Errorf("tool result %s: %w", p.ToolCallID, err)
			}
			out.ToolCallID = p.ToolCallID
			if out.Content == "" {
				out.Content = result
			} else if result != "" {
				out.Content += "\n" + result
			}
		}
	}
	return out, nil
}

// encodeValue keeps strings as they are and JSON-encodes anything else.
func encodeValue(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// TextID names the text block of a choice.
func TextID(index int) string {
	return "txt-" + strconv.Itoa(index)
}

type toolCallAcc struct {
	id        string
	name      string
	arguments string
}

// streamState turns chunk responses into stream parts. Text blocks open on
// their first content and close when the upstream stream ends.
type streamState struct {
	sentMetadata bool
	open         map[int]bool
	order        []int
	toolCalls    map[int]*toolCallAcc
	finishReason lm.FinishReason
	usage        *lm.Usage
}

func newStreamState() *streamState {
	return &streamState{
		open:         make(map[int]bool),
		toolCalls:    make(map[int]*toolCallAcc),
		finishReason: lm.FinishReason{Unified: lm.FinishOther},
	}
}

func (s *streamState) handle(resp goopenai.ChatCompletionStreamResponse) []lm.StreamPart {
	var out []lm.StreamPart
	if !s.sentMetadata {
		s.sentMetadata = true
		out = append(out, lm.StreamPart{
			Type:      lm.PartResponseMetadata,
			ID:        resp.ID,
			ModelID:   resp.Model,
			Timestamp: resp.Created,
		})
	}

	for _, choice := range resp.Choices {
		if choice.Delta.Content != "" {
			id := TextID(choice.Index)
			if !s.open[choice.Index] {
				s.open[choice.Index] = true
				s.order = append(s.order, choice.Index)
				out = append(out, lm.StreamPart{Type: lm.PartTextStart, ID: id})
			}
			out = append(out, lm.StreamPart{Type: lm.PartTextDelta, ID: id, Delta: choice.Delta.Content})
		}
		for _, tc := range choice.Delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			acc, ok := s.toolCalls[idx]
			if !ok {
				acc = &toolCallAcc{}
				s.toolCalls[idx] = acc
			}
			if tc.ID != "" {
				acc.id = tc.ID
			}
			if tc.Function.Name != "" {
				acc.name = tc.Function.Name
			}
			acc.arguments += tc.Function.Arguments
		}
		if choice.FinishReason != "" && choice.Index == 0 {
			s.finishReason = finishReason(choice.FinishReason)
		}
	}

	if resp.Usage != nil {
		u := usageOf(resp.Usage)
		s.usage = &u
	}
	return out
}

func (s *streamState) finish() []lm.StreamPart {
	var out []lm.StreamPart
	for _, idx := range s.order {
		out = append(out, lm.StreamPart{Type: lm.PartTextEnd, ID: TextID(idx)})
	}

	indexes := make([]int, 0, len(s.toolCalls))
	for idx := range s.toolCalls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		tc := s.toolCalls[idx]
		out = append(out, lm.StreamPart{
			Type:       lm.PartToolCall,
			ToolCallID: tc.id,
			ToolName:   tc.name,
			Input:      tc.arguments,
		})
	}

	return append(out, lm.StreamPart{
		Type:         lm.PartFinish,
		FinishReason: &s.finishReason,
		Usage:        s.usage,
	})
}

func finishReason(raw goopenai.FinishReason) lm.FinishReason {
	fr := lm.FinishReason{Raw: string(raw)}
	switch raw {
	case goopenai.FinishReasonStop:
		fr.Unified = lm.FinishStop
	case goopenai.FinishReasonLength:
		fr.Unified = lm.FinishLength
	case goopenai.FinishReasonContentFilter:
		fr.Unified = lm.FinishContentFilter
	case goopenai.FinishReasonToolCalls, goopenai.FinishReasonFunctionCall:
		fr.Unified = lm.FinishToolCalls
	default:
		fr.Unified = lm.FinishOther
	}
	return fr
}

func usageOf(u *goopenai.Usage) lm.Usage {
	out := lm.Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
	if u.CompletionTokensDetails != nil {
		out.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return out
}
