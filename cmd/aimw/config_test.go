package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.yaml", `
reasoning:
  opening_tag: "<r>"
  closing_tag: "</r>"
  separator: ""
  start_with_reasoning: true
system_prompt:
  text: "Think step by step."
  placement: last
upstream:
  backend: replay
  replay_file: /tmp/parts.jsonl
  base_url: http://localhost:11434/v1
  api_key_env: LOCAL_KEY
  model: qwen3
  requests_per_second: 2.5
server_address: 0.0.0.0:9000
log_level: debug
log_format: json
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	r := cfg.Reasoning
	if r.OpeningTag != "<r>" || r.ClosingTag != "</r>" {
		t.Fatalf("tags: got %q %q", r.OpeningTag, r.ClosingTag)
	}
	if r.Separator == nil || *r.Separator != "" {
		t.Fatalf("separator: got %v", r.Separator)
	}
	if r.StartWithReasoning == nil || !*r.StartWithReasoning {
		t.Fatalf("start_with_reasoning: got %v", r.StartWithReasoning)
	}
	if r.SeparateStream != nil {
		t.Fatalf("separate_stream: expected unset, got %v", *r.SeparateStream)
	}
	if want := (SystemPromptSection{Text: "Think step by step.", Placement: "last"}); cfg.SystemPrompt != want {
		t.Fatalf("system_prompt: got %+v want %+v", cfg.SystemPrompt, want)
	}

	u := cfg.Upstream
	if u.Backend != "replay" || u.ReplayFile != "/tmp/parts.jsonl" || u.Model != "qwen3" || u.APIKeyEnv != "LOCAL_KEY" {
		t.Fatalf("upstream: got %+v", u)
	}
	if u.RequestsPerSecond == nil || *u.RequestsPerSecond != 2.5 {
		t.Fatalf("requests_per_second: got %v", u.RequestsPerSecond)
	}
	if cfg.ServerAddress != "0.0.0.0:9000" || cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Fatalf("top level: got %q %q %q", cfg.ServerAddress, cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != (Config{}) {
		t.Fatalf("expected zero config, got %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config")
	}
}

func TestLoadConfigDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "aimw"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "aimw", "config.yaml"), []byte("log_level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("got %q want %q", cfg.LogLevel, "warn")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeFile(t, "config.yaml", "reasoning: [1, 2\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}
