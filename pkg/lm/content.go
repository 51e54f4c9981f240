package lm

const (
	ContentText      = "text"
	ContentReasoning = "reasoning"
	ContentToolCall  = "tool-call"
	ContentFile      = "file"
	ContentSource    = "source"
)

// Content is one generated item of a GenerateResult.
type Content struct {
	Type             string         `json:"type"`
	Text             string         `json:"text,omitempty"`
	ToolCallID       string         `json:"tool_call_id,omitempty"`
	ToolName         string         `json:"tool_name,omitempty"`
	Input            string         `json:"input,omitempty"`
	MediaType        string         `json:"media_type,omitempty"`
	Data             string         `json:"data,omitempty"`
	URL              string         `json:"url,omitempty"`
	ProviderMetadata map[string]any `json:"provider_metadata,omitempty"`
}

type Usage struct {
	InputTokens     int `json:"input_tokens,omitempty"`
	OutputTokens    int `json:"output_tokens,omitempty"`
	TotalTokens     int `json:"total_tokens,omitempty"`
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
}

const (
	FinishStop          = "stop"
	FinishLength        = "length"
	FinishContentFilter = "content-filter"
	FinishToolCalls     = "tool-calls"
	FinishError         = "error"
	FinishOther         = "other"
)

// FinishReason pairs the normalized reason with the backend's own value.
type FinishReason struct {
	Unified string `json:"unified"`
	Raw     string `json:"raw,omitempty"`
}

type Warning struct {
	Type    string `json:"type"`
	Setting string `json:"setting,omitempty"`
	Message string `json:"message,omitempty"`
}
