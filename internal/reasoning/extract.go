package reasoning

import "strings"

// Kind tells reasoning text apart from answer text.
type Kind int

const (
	KindText Kind = iota
	KindReasoning
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindReasoning:
		return "reasoning"
	default:
		return "unknown"
	}
}

// Options configures tag extraction. OpeningTag and ClosingTag are matched
// literally and case-sensitively; an empty tag never matches.
type Options struct {
	OpeningTag string
	ClosingTag string
	// Separator joins adjacent pieces of the same kind in batch output.
	Separator string
	// StartWithReasoning treats input as already inside a reasoning block,
	// for templates that put the opening tag into the prompt.
	StartWithReasoning bool
	// SeparateStream applies Separator to streamed deltas at phase switches.
	SeparateStream bool
}

// Segment is a contiguous span of one kind.
type Segment struct {
	Kind Kind
	Text string
}

// SplitResult is the batch output collapsed into its two channels.
type SplitResult struct {
	Content   string
	Reasoning string
}

// Extract splits text into alternating text and reasoning segments. An
// unterminated reasoning block runs to the end of text. Empty segments are
// dropped and same-kind neighbours that end up adjacent are joined with
// opts.Separator, so kinds strictly alternate in the result.
func Extract(text string, opts Options) []Segment {
	if text == "" {
		return nil
	}

	var segs []Segment
	inside := opts.StartWithReasoning
	rest := text
	for rest != "" {
		tag, kind := opts.OpeningTag, KindText
		if inside {
			tag, kind = opts.ClosingTag, KindReasoning
		}
		idx := indexTag(rest, tag)
		if idx < 0 {
			segs = appendSegment(segs, kind, rest, opts.Separator)
			break
		}
		segs = appendSegment(segs, kind, rest[:idx], opts.Separator)
		rest = rest[idx+len(tag):]
		inside = !inside
	}
	return segs
}

// Collapse joins every reasoning segment and every text segment with sep.
func Collapse(segs []Segment, sep string) (reasoning, text string) {
	var r, t []string
	for _, s := range segs {
		if s.Kind == KindReasoning {
			r = append(r, s.Text)
		} else {
			t = append(t, s.Text)
		}
	}
	return strings.Join(r, sep), strings.Join(t, sep)
}

// Split separates content and reasoning from a complete model output.
func Split(text string, opts Options) SplitResult {
	reasoning, content := Collapse(Extract(text, opts), opts.Separator)
	return SplitResult{
		Content:   content,
		Reasoning: reasoning,
	}
}

func appendSegment(segs []Segment, kind Kind, text, sep string) []Segment {
	if text == "" {
		return segs
	}
	if n := len(segs); n > 0 && segs[n-1].Kind == kind {
		segs[n-1].Text += sep + text
		return segs
	}
	return append(segs, Segment{Kind: kind, Text: text})
}

func indexTag(s, tag string) int {
	if tag == "" {
		return -1
	}
	return strings.Index(s, tag)
}
