package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the aimw configuration file (~/.config/aimw/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	Reasoning    ReasoningSection    `yaml:"reasoning"`
	SystemPrompt SystemPromptSection `yaml:"system_prompt"`
	Upstream     UpstreamSection     `yaml:"upstream"`

	ServerAddress string `yaml:"server_address"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
}

type ReasoningSection struct {
	OpeningTag         string  `yaml:"opening_tag"`
	ClosingTag         string  `yaml:"closing_tag"`
	Separator          *string `yaml:"separator"`
	StartWithReasoning *bool   `yaml:"start_with_reasoning"`
	SeparateStream     *bool   `yaml:"separate_stream"`
}

type SystemPromptSection struct {
	Text      string `yaml:"text"`
	Placement string `yaml:"placement"`
}

type UpstreamSection struct {
	Backend           string   `yaml:"backend"`
	ReplayFile        string   `yaml:"replay_file"`
	BaseURL           string   `yaml:"base_url"`
	APIKeyEnv         string   `yaml:"api_key_env"`
	Model             string   `yaml:"model"`
	RequestsPerSecond *float64 `yaml:"requests_per_second"`
}

// loaded holds the config file read by the root command.
var loaded Config

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "aimw", "config.yaml")
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
	}
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyLoggingConfig applies config file defaults to the logging flags
// when the corresponding CLI flag was not explicitly set.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

func applyReasoningConfig(c *cli.Command, cfg Config) {
	r := cfg.Reasoning
	if r.OpeningTag != "" && !c.IsSet("opening-tag") {
		openingTag = r.OpeningTag
	}
	if r.ClosingTag != "" && !c.IsSet("closing-tag") {
		closingTag = r.ClosingTag
	}
	if r.Separator != nil && !c.IsSet("separator") {
		separator = *r.Separator
	}
	if r.StartWithReasoning != nil && !c.IsSet("start-with-reasoning") {
		startWithReasoning = *r.StartWithReasoning
	}
	if r.SeparateStream != nil && !c.IsSet("separate-stream") {
		separateStream = *r.SeparateStream
	}
}

func applySystemPromptConfig(c *cli.Command, cfg Config) {
	if cfg.SystemPrompt.Text != "" && !c.IsSet("system-prompt") {
		systemPrompt = cfg.SystemPrompt.Text
	}
	if cfg.SystemPrompt.Placement != "" && !c.IsSet("system-prompt-placement") {
		promptPlacement = cfg.SystemPrompt.Placement
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, s *serveOptions) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		s.addr = cfg.ServerAddress
	}
	u := cfg.Upstream
	if u.Backend != "" && !c.IsSet("backend") {
		s.backend = u.Backend
	}
	if u.ReplayFile != "" && !c.IsSet("replay-file") {
		s.replayFile = u.ReplayFile
	}
	if u.BaseURL != "" && !c.IsSet("upstream-url") {
		s.baseURL = u.BaseURL
	}
	if u.APIKeyEnv != "" && !c.IsSet("api-key-env") {
		s.apiKeyEnv = u.APIKeyEnv
	}
	if u.Model != "" && !c.IsSet("model") {
		s.model = u.Model
	}
	if u.RequestsPerSecond != nil && !c.IsSet("rps") {
		s.rps = *u.RequestsPerSecond
	}
}
