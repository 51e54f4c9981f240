package middleware

import (
	"context"

	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
)

// Placement says where a default system prompt goes relative to existing
// system text.
type Placement string

const (
	PlacementFirst Placement = "first"
	PlacementLast  Placement = "last"
)

type SystemPromptConfig struct {
	SystemPrompt string
	// Placement is required.
	Placement Placement
}

// DefaultSystemPrompt returns a middleware that makes sure every call
// carries cfg.SystemPrompt. The merge is not idempotent.
func DefaultSystemPrompt(cfg SystemPromptConfig) (Middleware, error) {
	if cfg.SystemPrompt == "" {
		return Middleware{}, newInvalidConfig("system prompt: text must not be empty")
	}
	placement := cfg.Placement
	if placement != PlacementFirst && placement != PlacementLast {
		return Middleware{}, newInvalidConfig("system prompt: unknown placement %q", cfg.Placement)
	}

	return Middleware{
		Name: "default-system-prompt",
		TransformParams: func(_ context.Context, opts lm.CallOptions) (lm.CallOptions, error) {
			opts.Prompt = MergeSystemPrompt(opts.Prompt, cfg.SystemPrompt, placement)
			return opts, nil
		},
	}, nil
}

// MergeSystemPrompt returns a copy of prompt that contains systemPrompt.
// Without a system message one is inserted at the front (PlacementFirst)
// or the back (PlacementLast). Otherwise the text is merged into the first
// system message only, separated by a blank line. System content that is
// not plain text is never flattened: a []lm.Part gains a text part and
// anything else is kept next to a new system message. prompt is not
// modified.
func MergeSystemPrompt(prompt lm.Prompt, systemPrompt string, placement Placement) lm.Prompt {
	idx := -1
	for i, msg := range prompt {
		if msg.Role == lm.RoleSystem {
			idx = i
			break
		}
	}

	sys := lm.Message{Role: lm.RoleSystem, Content: systemPrompt}
	if idx < 0 {
		if placement == PlacementLast {
			return insertMessage(prompt, len(prompt), sys)
		}
		return insertMessage(prompt, 0, sys)
	}

	existing := prompt[idx].Content
	var merged any
	switch parts, isParts := existing.([]lm.Part); {
	case plainText(existing):
		merged = mergeText(existing, systemPrompt, placement)
	case isParts:
		merged = mergeParts(parts, systemPrompt, placement)
	default:
		if placement == PlacementLast {
			return insertMessage(prompt, idx+1, sys)
		}
		return insertMessage(prompt, idx, sys)
	}

	out := make(lm.Prompt, len(prompt))
	copy(out, prompt)
	out[idx] = lm.Message{Role: lm.RoleSystem, Content: merged}
	return out
}

func insertMessage(prompt lm.Prompt, at int, msg lm.Message) lm.Prompt {
	out := make(lm.Prompt, 0, len(prompt)+1)
	out = append(out, prompt[:at]...)
	out = append(out, msg)
	return append(out, prompt[at:]...)
}

func mergeText(existing any, systemPrompt string, placement Placement) string {
	text, _ := lm.TextOf(existing)
	if text == "" {
		return systemPrompt
	}
	if placement == PlacementLast {
		return text + "\n\n" + systemPrompt
	}
	return systemPrompt + "\n\n" + text
}

func mergeParts(parts []lm.Part, systemPrompt string, placement Placement) []lm.Part {
	text := lm.Part{Type: lm.PartTypeText, Text: systemPrompt}
	out := make([]lm.Part, 0, len(parts)+1)
	if placement == PlacementLast {
		out = append(out, parts...)
		return append(out, text)
	}
	out = append(out, text)
	return append(out, parts...)
}

// plainText reports whether content holds only text, so flattening it
// loses nothing.
func plainText(content any) bool {
	switch c := content.(type) {
	case nil, string:
		return true
	case []lm.Part:
		for _, p := range c {
			if p.Type != lm.PartTypeText {
				return false
			}
		}
		return true
	case []any:
		for _, item := range c {
			m, ok := item.(map[string]any)
			if !ok || m["type"] != lm.PartTypeText {
				return false
			}
		}
		return true
	default:
		return false
	}
}
