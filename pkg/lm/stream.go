package lm

import (
	"encoding/json"
	"errors"
)

const (
	PartStreamStart      = "stream-start"
	PartTextStart        = "text-start"
	PartTextDelta        = "text-delta"
	PartTextEnd          = "text-end"
	PartReasoningStart   = "reasoning-start"
	PartReasoningDelta   = "reasoning-delta"
	PartReasoningEnd     = "reasoning-end"
	PartToolCall         = "tool-call"
	PartResponseMetadata = "response-metadata"
	PartFinish           = "finish"
	PartError            = "error"
	PartRaw              = "raw"
)

// StreamPart is one event of a streamed generation. Which fields are set
// depends on Type: ID and Delta for text and reasoning parts, Usage and
// FinishReason for finish, and so on.
type StreamPart struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`

	Delta string `json:"delta,omitempty"`

	Warnings []Warning `json:"warnings,omitempty"`

	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`
	Input      string `json:"input,omitempty"`

	ModelID   string `json:"model_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`

	Usage        *Usage        `json:"usage,omitempty"`
	FinishReason *FinishReason `json:"finish_reason,omitempty"`

	Error string          `json:"error,omitempty"`
	Raw   json.RawMessage `json:"raw,omitempty"`

	ProviderMetadata map[string]any `json:"provider_metadata,omitempty"`
}

// IsTextual reports whether the part belongs to a text or reasoning block.
func (p StreamPart) IsTextual() bool {
	switch p.Type {
	case PartTextStart, PartTextDelta, PartTextEnd,
		PartReasoningStart, PartReasoningDelta, PartReasoningEnd:
		return true
	}
	return false
}

// Err turns an error part into an error value; nil for any other part.
func (p StreamPart) Err() error {
	if p.Type != PartError {
		return nil
	}
	if p.Error == "" {
		return errors.New("stream error")
	}
	return errors.New(p.Error)
}
