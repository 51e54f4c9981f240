package main

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/minpeter/ai-sdk-middleware/internal/logger"
	"github.com/minpeter/ai-sdk-middleware/pkg/middleware"
)

// setup loads the config file and stores the logger in the context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return ctx, err
	}
	loaded = cfg

	applyLoggingConfig(cmd, cfg)
	if debug {
		logLevel = "debug"
	}
	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return ctx, err
	}
	log := logger.NewWithFormat(errWriter(cmd), format, logger.ParseLevel(logLevel))
	return logger.WithContext(ctx, log), nil
}

func reasoningMiddleware(cmd *cli.Command) (middleware.Middleware, error) {
	applyReasoningConfig(cmd, loaded)
	return middleware.ExtractReasoning(middleware.ReasoningConfig{
		OpeningTag:         openingTag,
		ClosingTag:         closingTag,
		Separator:          separator,
		StartWithReasoning: startWithReasoning,
		SeparateStream:     separateStream,
	})
}

// systemPromptMiddleware returns false when no system prompt is configured.
func systemPromptMiddleware(cmd *cli.Command) (middleware.Middleware, bool, error) {
	applySystemPromptConfig(cmd, loaded)
	if systemPrompt == "" {
		return middleware.Middleware{}, false, nil
	}
	mw, err := middleware.DefaultSystemPrompt(middleware.SystemPromptConfig{
		SystemPrompt: systemPrompt,
		Placement:    middleware.Placement(promptPlacement),
	})
	return mw, err == nil, err
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// openInput opens the named file, or the command's reader for "" and "-".
func openInput(cmd *cli.Command, name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		r := cmd.Root().Reader
		if r == nil {
			r = os.Stdin
		}
		return io.NopCloser(r), nil
	}
	return os.Open(name)
}
