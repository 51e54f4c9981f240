package api

import (
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/minpeter/ai-sdk-middleware/internal/logger"
	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
)

func (s *Server) handleChatCompletions(c *echo.Context) error {
	if s.provider == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "model provider not configured", "", "")
	}

	req, err := decodeJSON[ChatCompletionRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	opts, err := chatToCallOptions(&req)
	if err != nil {
		return writeErr(c, err)
	}

	model, err := s.provider.Model(req.Model)
	if err != nil {
		return writeErr(c, err)
	}

	completionID := "chatcmpl-" + uuid.NewString()
	name := req.Model
	if name == "" {
		name = model.ModelID()
	}

	log := s.log.With("completion_id", completionID, "model", name)
	ctx := logger.WithContext(c.Request().Context(), log)
	c.SetRequest(c.Request().WithContext(ctx))

	if req.Stream != nil && *req.Stream {
		includeUsage := req.StreamOptions != nil && req.StreamOptions.IncludeUsage
		return s.handleChatCompletionsStream(c, model, opts, completionID, name, includeUsage)
	}
	return s.handleChatCompletionsSync(c, model, opts, completionID, name)
}

func (s *Server) handleChatCompletionsSync(c *echo.Context, model lm.Model, opts *lm.CallOptions, completionID, name string) error {
	ctx := c.Request().Context()
	result, err := model.Generate(ctx, opts)
	if err != nil {
		logger.FromContext(ctx).Error("generate failed", "error", err)
		return writeErr(c, err)
	}

	msg := &ChatMessage{
		Role:             lm.RoleAssistant,
		ReasoningContent: result.ReasoningText(),
	}
	for _, item := range result.Content {
		if item.Type != lm.ContentToolCall {
			continue
		}
		msg.ToolCalls = append(msg.ToolCalls, toolCallOf(item, 0, false))
	}
	if text := result.Text(); text != "" || len(msg.ToolCalls) == 0 {
		msg.Content = text
	}

	finish := finishReasonOf(result.FinishReason)
	resp := ChatCompletionResponse{
		ID:      completionID,
		Object:  "chat.completion",
		Created: s.clock().Unix(),
		Model:   name,
		Choices: []ChatChoice{
			{
				Index:        0,
				Message:      msg,
				FinishReason: &finish,
			},
		},
		Usage: usageOf(result.Usage),
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleChatCompletionsStream(c *echo.Context, model lm.Model, opts *lm.CallOptions, completionID, name string, includeUsage bool) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	result, err := model.Stream(ctx, opts)
	if err != nil {
		log.Error("stream failed", "error", err)
		return writeErr(c, err)
	}

	cw, err := newChunkWriter(c, completionID, name, s.clock().Unix())
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if err := cw.delta(ChatMessage{Role: lm.RoleAssistant}); err != nil {
		return err
	}

	var (
		finish lm.FinishReason
		usage  lm.Usage
		tools  int
	)
	for part, err := range result.Stream {
		if err != nil {
			log.Error("stream interrupted", "error", err)
			return cw.fail(err)
		}

		switch part.Type {
		case lm.PartTextDelta:
			if part.Delta == "" {
				continue
			}
			err = cw.delta(ChatMessage{Content: part.Delta})
		case lm.PartReasoningDelta:
			if part.Delta == "" {
				continue
			}
			err = cw.delta(ChatMessage{ReasoningContent: part.Delta})
		case lm.PartToolCall:
			tc := toolCallOf(lm.Content{
				ToolCallID: part.ToolCallID,
				ToolName:   part.ToolName,
				Input:      part.Input,
			}, tools, true)
			tools++
			err = cw.delta(ChatMessage{ToolCalls: []ChatToolCall{tc}})
		case lm.PartFinish:
			if part.FinishReason != nil {
				finish = *part.FinishReason
			}
			if part.Usage != nil {
				usage = *part.Usage
			}
		case lm.PartError:
			log.Error("stream error part", "error", part.Error)
			return cw.fail(part.Err())
		}
		if err != nil {
			// client went away
			return nil
		}
	}

	if err := cw.finish(finishReasonOf(finish)); err != nil {
		return nil
	}
	if includeUsage {
		u := usageOf(usage)
		if err := cw.usage(&u); err != nil {
			return nil
		}
	}
	return cw.done()
}

// chatToCallOptions validates a request and converts it to call options.
func chatToCallOptions(req *ChatCompletionRequest) (*lm.CallOptions, error) {
	if len(req.Messages) == 0 {
		return nil, newInvalidRequest("messages is required and must not be empty", "messages")
	}
	if req.N != nil && *req.N != 1 {
		return nil, newInvalidRequest("only n=1 is supported", "n")
	}

	prompt, err := chatMessagesToPrompt(req.Messages)
	if err != nil {
		return nil, err
	}
	stop, err := stopSequences(req.Stop)
	if err != nil {
		return nil, err
	}

	opts := &lm.CallOptions{
		Prompt:          prompt,
		MaxOutputTokens: req.MaxTokens,
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		Stop:            stop,
		Seed:            req.Seed,
	}
	if req.MaxCompletionTokens != nil {
		opts.MaxOutputTokens = req.MaxCompletionTokens
	}
	return opts, nil
}

func chatMessagesToPrompt(msgs []ChatMessage) (lm.Prompt, error) {
	out := make(lm.Prompt, 0, len(msgs))
	for i, m := range msgs {
		switch m.Role {
		case lm.RoleSystem, lm.RoleUser, lm.RoleAssistant, lm.RoleTool, "developer":
		default:
			return nil, newInvalidRequest(fmt.Sprintf("messages[%d].role: unsupported role %q", i, m.Role), "messages")
		}

		role := m.Role
		if role == "developer" {
			role = lm.RoleSystem
		}

		content, err := messageContent(m.Content)
		if err != nil {
			return nil, newInvalidRequest(fmt.Sprintf("messages[%d].content: %v", i, err), "messages")
		}

		switch {
		case role == lm.RoleTool:
			text, _ := lm.TextOf(content)
			content = []lm.Part{{
				Type:       lm.PartTypeToolResult,
				ToolCallID: m.ToolCallID,
				Output:     text,
			}}
		case len(m.ToolCalls) > 0:
			parts := partsOf(content)
			for _, tc := range m.ToolCalls {
				var input any = tc.Function.Arguments
				var parsed map[string]any
				if json.Unmarshal([]byte(tc.Function.Arguments), &parsed) == nil {
					input = parsed
				}
				parts = append(parts, lm.Part{
					Type:       lm.PartTypeToolCall,
					ToolCallID: tc.ID,
					ToolName:   tc.Function.Name,
					Input:      input,
				})
			}
			content = parts
		}

		out = append(out, lm.Message{Role: role, Content: content})
	}
	return out, nil
}

// messageContent keeps string content as is and converts multi-part content
// to []lm.Part.
func messageContent(content any) (any, error) {
	switch c := content.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	case []any:
		parts := make([]lm.Part, 0, len(c))
		for j, item := range c {
			pm, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("part %d: expected object", j)
			}
			typ, _ := pm["type"].(string)
			switch typ {
			case "text":
				text, _ := pm["text"].(string)
				parts = append(parts, lm.Part{Type: lm.PartTypeText, Text: text})
			case "image_url":
				var url string
				if img, ok := pm["image_url"].(map[string]any); ok {
					url, _ = img["url"].(string)
				}
				parts = append(parts, lm.Part{Type: lm.PartTypeFile, MediaType: "image/*", Data: url})
			default:
				return nil, fmt.Errorf("part %d: unsupported type %q", j, typ)
			}
		}
		return parts, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", content)
	}
}

func partsOf(content any) []lm.Part {
	switch c := content.(type) {
	case []lm.Part:
		return c
	case string:
		if c == "" {
			return nil
		}
		return []lm.Part{{Type: lm.PartTypeText, Text: c}}
	}
	return nil
}

func stopSequences(v any) ([]string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{s}, nil
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, newInvalidRequest("stop must be a string or an array of strings", "stop")
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, newInvalidRequest("stop must be a string or an array of strings", "stop")
	}
}

func toolCallOf(item lm.Content, index int, indexed bool) ChatToolCall {
	tc := ChatToolCall{
		ID:   item.ToolCallID,
		Type: "function",
		Function: ChatFunctionCall{
			Name:      item.ToolName,
			Arguments: item.Input,
		},
	}
	if indexed {
		tc.Index = &index
	}
	return tc
}

func finishReasonOf(fr lm.FinishReason) string {
	switch fr.Unified {
	case lm.FinishLength:
		return "length"
	case lm.FinishContentFilter:
		return "content_filter"
	case lm.FinishToolCalls:
		return "tool_calls"
	default:
		return "stop"
	}
}

func usageOf(u lm.Usage) ChatUsage {
	total := u.TotalTokens
	if total == 0 {
		total = u.InputTokens + u.OutputTokens
	}
	out := ChatUsage{
		PromptTokens:     u.InputTokens,
		CompletionTokens: u.OutputTokens,
		TotalTokens:      total,
	}
	if u.ReasoningTokens > 0 {
		out.CompletionTokensDetails = &ChatCompletionDetail{ReasoningTokens: u.ReasoningTokens}
	}
	return out
}
