// Package lm defines the model-facing types shared by middlewares and
// backends: prompts, generated content, stream parts and the Model
// interface.
package lm

import "strings"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Prompt is an ordered conversation.
type Prompt []Message

// Message is one conversation entry. Content is either a string or a
// []Part; system messages normally carry a string.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Part is one element of multi-part message content.
type Part struct {
	Type       string         `json:"type"`
	Text       string         `json:"text,omitempty"`
	MediaType  string         `json:"media_type,omitempty"`
	Data       string         `json:"data,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	Input      any            `json:"input,omitempty"`
	Output     any            `json:"output,omitempty"`
	Options    map[string]any `json:"provider_options,omitempty"`
}

const (
	PartTypeText       = "text"
	PartTypeFile       = "file"
	PartTypeReasoning  = "reasoning"
	PartTypeToolCall   = "tool-call"
	PartTypeToolResult = "tool-result"
)

// TextOf flattens message content to plain text. Multi-part content yields
// its text parts joined by "\n". ok is false for content that holds no
// recognizable text representation.
func TextOf(content any) (text string, ok bool) {
	switch c := content.(type) {
	case nil:
		return "", true
	case string:
		return c, true
	case []Part:
		texts := make([]string, 0, len(c))
		for _, p := range c {
			if p.Type == PartTypeText {
				texts = append(texts, p.Text)
			}
		}
		return strings.Join(texts, "\n"), true
	case []any:
		// decoded JSON
		texts := make([]string, 0, len(c))
		for _, item := range c {
			m, isMap := item.(map[string]any)
			if !isMap {
				return "", false
			}
			if m["type"] != PartTypeText {
				continue
			}
			if s, isString := m["text"].(string); isString {
				texts = append(texts, s)
			}
		}
		return strings.Join(texts, "\n"), true
	default:
		return "", false
	}
}
