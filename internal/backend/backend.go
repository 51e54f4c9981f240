// Package backend selects the lm.Model a command runs against.
package backend

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/minpeter/ai-sdk-middleware/internal/backend/openai"
	"github.com/minpeter/ai-sdk-middleware/internal/backend/replay"
	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
)

const (
	OpenAI = "openai"
	Replay = "replay"
)

type Config struct {
	OpenAI openai.Config
	// ReplayFile is a JSONL file of recorded stream parts.
	ReplayFile string
}

func Normalize(name string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		return OpenAI, nil
	}
	switch backend {
	case OpenAI, Replay:
		return backend, nil
	default:
		return "", fmt.Errorf("unknown backend %q (expected %s)", backend, Available())
	}
}

// Available returns a comma-separated list of backends.
func Available() string {
	return strings.Join([]string{OpenAI, Replay}, ", ")
}

func New(name string, cfg Config) (lm.Model, error) {
	backend, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	switch backend {
	case Replay:
		return newReplay(cfg)
	default:
		m, err := openai.New(cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

func newReplay(cfg Config) (lm.Model, error) {
	if cfg.ReplayFile == "" {
		return nil, errors.New("replay backend: file is required")
	}
	f, err := os.Open(cfg.ReplayFile)
	if err != nil {
		return nil, fmt.Errorf("replay backend: %w", err)
	}
	defer func() { _ = f.Close() }()

	var opts []replay.Option
	if cfg.OpenAI.Model != "" {
		opts = append(opts, replay.WithModelID(cfg.OpenAI.Model))
	}
	m, err := replay.Load(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay backend: %w", err)
	}
	return m, nil
}
