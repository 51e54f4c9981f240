package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/minpeter/ai-sdk-middleware/internal/backend"
	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
)

// runApp runs the CLI with args and returns what it wrote to stdout.
func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)
	err := app.Run(context.Background(), append([]string{"aimw"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func emptyConfig(t *testing.T) string {
	return writeFile(t, "config.yaml", "")
}

func decodeExtract(t *testing.T, out string) extractOutput {
	t.Helper()
	var got extractOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	return got
}

func mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := runApp(t, stdin, args...)
	if err != nil {
		t.Fatalf("aimw %v: %v", args, err)
	}
	return out
}

func TestExtractCommand(t *testing.T) {
	input := writeFile(t, "out.txt", "<think>plan</think>answer")

	got := decodeExtract(t, mustRun(t, "", "--config", emptyConfig(t), "extract", input))
	if got.Reasoning != "plan" || got.Text != "answer" {
		t.Fatalf("got reasoning %q text %q", got.Reasoning, got.Text)
	}
	want := []lm.Content{
		{Type: lm.ContentReasoning, Text: "plan"},
		{Type: lm.ContentText, Text: "answer"},
	}
	if !reflect.DeepEqual(got.Segments, want) {
		t.Fatalf("segments: got %+v want %+v", got.Segments, want)
	}
}

func TestExtractCommandStdin(t *testing.T) {
	got := decodeExtract(t, mustRun(t, "no tags here", "--config", emptyConfig(t), "extract"))
	if got.Reasoning != "" || got.Text != "no tags here" {
		t.Fatalf("got reasoning %q text %q", got.Reasoning, got.Text)
	}
}

func TestExtractCommandConfigFile(t *testing.T) {
	cfg := writeFile(t, "config.yaml", `
reasoning:
  opening_tag: "<r>"
  closing_tag: "</r>"
  separator: "|"
`)

	got := decodeExtract(t, mustRun(t, "<r>x</r>y<r>z</r>", "--config", cfg, "extract"))
	if got.Reasoning != "x|z" || got.Text != "y" {
		t.Fatalf("got reasoning %q text %q", got.Reasoning, got.Text)
	}

	// explicit flags win over the file
	got = decodeExtract(t, mustRun(t, "<r>x</r>y", "--config", cfg, "extract",
		"--separator", "", "--opening-tag", "<q>", "--closing-tag", "</q>"))
	if got.Reasoning != "" || got.Text != "<r>x</r>y" {
		t.Fatalf("got reasoning %q text %q", got.Reasoning, got.Text)
	}
}

func TestStreamCommandText(t *testing.T) {
	out := mustRun(t, "", "--config", emptyConfig(t), "stream", "--chunk-size", "3", "--text", "<think>abc</think>def")

	var reasoning, text strings.Builder
	var types []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var p lm.StreamPart
		if err := json.Unmarshal(sc.Bytes(), &p); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		types = append(types, p.Type)
		switch p.Type {
		case lm.PartReasoningDelta:
			if p.ID != "reasoning-0" {
				t.Fatalf("reasoning id: got %q", p.ID)
			}
			reasoning.WriteString(p.Delta)
		case lm.PartTextDelta:
			text.WriteString(p.Delta)
		}
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if reasoning.String() != "abc" || text.String() != "def" {
		t.Fatalf("got reasoning %q text %q", reasoning.String(), text.String())
	}
	if types[0] != lm.PartStreamStart || types[len(types)-1] != lm.PartFinish {
		t.Fatalf("unexpected part order: %q", types)
	}
	if !slices.Contains(types, lm.PartReasoningStart) || !slices.Contains(types, lm.PartReasoningEnd) {
		t.Fatalf("missing reasoning boundaries: %q", types)
	}
}

func TestStreamCommandJSONL(t *testing.T) {
	parts := strings.Join([]string{
		`{"type":"text-start","id":"a"}`,
		`{"type":"text-delta","id":"a","delta":"<think>x"}`,
		`{"type":"text-delta","id":"a","delta":"</think>y"}`,
		`{"type":"text-end","id":"a"}`,
		`{"type":"finish","finish_reason":{"unified":"stop"}}`,
	}, "\n")
	path := writeFile(t, "parts.jsonl", parts)

	out := mustRun(t, "", "--config", emptyConfig(t), "stream", path)
	for _, want := range []string{
		`"type":"reasoning-delta","id":"reasoning-0","delta":"x"`,
		`"type":"text-delta","id":"a","delta":"y"`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	badParts := writeFile(t, "parts.jsonl", "{not json}\n")
	goodParts := writeFile(t, "good.jsonl", `{"type":"text-delta","id":"t","delta":"x"}`+"\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "bad stream input", args: []string{"stream", badParts}, want: "line 1"},
		{name: "empty opening tag", args: []string{"extract", "--opening-tag", ""}, want: "opening tag"},
		{name: "unknown log format", args: []string{"--log-format", "xml", "version"}, want: "xml"},
		{name: "serve without model", args: []string{"serve"}, want: "model is required"},
		{name: "unknown backend", args: []string{"serve", "--backend", "tpu"}, want: "unknown backend"},
		{name: "bad replay file", args: []string{"serve", "--backend", "replay", "--replay-file", badParts}, want: "line 1"},
		{
			name: "empty placement",
			args: []string{"serve", "--backend", "replay", "--replay-file", goodParts,
				"--system-prompt", "Be brief.", "--system-prompt-placement", ""},
			want: "placement",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", emptyConfig(t)}, tt.args...)
			_, err := runApp(t, "x", args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestBuildServeModelReplay(t *testing.T) {
	path := writeFile(t, "parts.jsonl", `{"type":"text-start","id":"t"}
{"type":"text-delta","id":"t","delta":"<think>a</think>b"}
{"type":"text-end","id":"t"}
`)
	cfg := writeFile(t, "config.yaml", `
system_prompt:
  text: "Be brief."
upstream:
  backend: replay
  replay_file: `+path+`
`)

	var got *lm.GenerateResult
	app := newApp()
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	for _, c := range app.Commands {
		if c.Name != "serve" {
			continue
		}
		c.Action = func(ctx context.Context, cmd *cli.Command) error {
			opts := serveOptions{backend: backend.OpenAI}
			applyServeConfig(cmd, loaded, &opts)
			model, err := buildServeModel(cmd, opts, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			got, err = model.Generate(ctx, &lm.CallOptions{})
			return err
		}
	}
	if err := app.Run(context.Background(), []string{"aimw", "--config", cfg, "serve"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got == nil {
		t.Fatal("serve action did not run")
	}
	if got.ReasoningText() != "a" || got.Text() != "b" {
		t.Fatalf("got reasoning %q text %q", got.ReasoningText(), got.Text())
	}
}

func TestVersionCommand(t *testing.T) {
	out := mustRun(t, "", "--config", emptyConfig(t), "version")
	if !strings.HasPrefix(out, "version:") {
		t.Fatalf("unexpected output %q", out)
	}
}
