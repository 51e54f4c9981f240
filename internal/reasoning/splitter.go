package reasoning

// Phase is the position of a Splitter relative to a reasoning block.
type Phase int

const (
	PhaseAwaitingOpen Phase = iota
	PhaseInsideReasoning
)

func (p Phase) String() string {
	if p == PhaseInsideReasoning {
		return "inside_reasoning"
	}
	return "awaiting_open"
}

// DeltaKind identifies what a Delta carries.
type DeltaKind int

const (
	DeltaText DeltaKind = iota
	DeltaReasoningStart
	DeltaReasoning
	DeltaReasoningEnd
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaText:
		return "text"
	case DeltaReasoningStart:
		return "reasoning_start"
	case DeltaReasoning:
		return "reasoning"
	case DeltaReasoningEnd:
		return "reasoning_end"
	default:
		return "unknown"
	}
}

// Delta is one unit of Splitter output. Text is empty for boundary kinds.
type Delta struct {
	Kind DeltaKind
	Text string
}

// Splitter incrementally separates reasoning from answer text in streamed
// output for a single channel. Fragments must be pushed in arrival order.
// Only a possible partial tag is ever held back, so the buffer never grows
// beyond the longer tag.
//
// A reasoning start boundary is emitted right before the first reasoning
// text of each block and a matching end boundary when that block closes.
// Blocks with no text produce no boundaries.
type Splitter struct {
	opts   Options
	buffer string
	phase  Phase

	reasoningEmitted bool

	// separator bookkeeping for Options.SeparateStream
	switched      bool
	seenText      bool
	seenReasoning bool
}

// NewSplitter returns a Splitter in its initial phase.
func NewSplitter(opts Options) *Splitter {
	s := &Splitter{opts: opts}
	if opts.StartWithReasoning {
		s.phase = PhaseInsideReasoning
	}
	return s
}

// Phase reports the current phase.
func (s *Splitter) Phase() Phase {
	return s.phase
}

// Buffered returns input held back as a possible partial tag.
func (s *Splitter) Buffered() string {
	return s.buffer
}

// Push consumes the next fragment and returns the deltas it resolves.
func (s *Splitter) Push(fragment string) []Delta {
	s.buffer += fragment

	var out []Delta
	for s.buffer != "" {
		tag := s.opts.OpeningTag
		if s.phase == PhaseInsideReasoning {
			tag = s.opts.ClosingTag
		}

		idx := FindBoundary(s.buffer, tag)
		if idx < 0 {
			out = s.emit(out, s.buffer)
			s.buffer = ""
			break
		}
		out = s.emit(out, s.buffer[:idx])
		if !isFullMatch(s.buffer, tag, idx) {
			// wait for more input to confirm or reject the tag
			s.buffer = s.buffer[idx:]
			break
		}
		s.buffer = s.buffer[idx+len(tag):]
		out = s.toggle(out)
	}
	return out
}

// Flush emits whatever is still buffered as the current phase's kind. An
// open reasoning block is left open: no end boundary is synthesized.
func (s *Splitter) Flush() []Delta {
	out := s.emit(nil, s.buffer)
	s.buffer = ""
	return out
}

func (s *Splitter) emit(out []Delta, text string) []Delta {
	if text == "" {
		return out
	}

	inside := s.phase == PhaseInsideReasoning
	if s.opts.SeparateStream && s.switched {
		if (inside && s.seenReasoning) || (!inside && s.seenText) {
			text = s.opts.Separator + text
		}
	}
	s.switched = false

	if !inside {
		s.seenText = true
		return append(out, Delta{Kind: DeltaText, Text: text})
	}
	if !s.reasoningEmitted {
		out = append(out, Delta{Kind: DeltaReasoningStart})
		s.reasoningEmitted = true
	}
	s.seenReasoning = true
	return append(out, Delta{Kind: DeltaReasoning, Text: text})
}

func (s *Splitter) toggle(out []Delta) []Delta {
	s.switched = true
	if s.phase == PhaseAwaitingOpen {
		s.phase = PhaseInsideReasoning
		return out
	}
	s.phase = PhaseAwaitingOpen
	if s.reasoningEmitted {
		s.reasoningEmitted = false
		out = append(out, Delta{Kind: DeltaReasoningEnd})
	}
	return out
}
