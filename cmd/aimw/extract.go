package main

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/minpeter/ai-sdk-middleware/internal/backend/replay"
	"github.com/minpeter/ai-sdk-middleware/internal/logger"
	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
	"github.com/minpeter/ai-sdk-middleware/pkg/middleware"
)

type extractOutput struct {
	Reasoning string       `json:"reasoning"`
	Text      string       `json:"text"`
	Segments  []lm.Content `json:"segments"`
}

func extractCmd() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Split a complete model output into reasoning and text",
		ArgsUsage: "[file]",
		Flags:     reasoningFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mw, err := reasoningMiddleware(cmd)
			if err != nil {
				return err
			}

			in, err := openInput(cmd, cmd.Args().First())
			if err != nil {
				return err
			}
			defer func() { _ = in.Close() }()
			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			model := middleware.Wrap(replay.New(replay.FromText("txt-0", string(data), 0)), mw)
			res, err := model.Generate(ctx, &lm.CallOptions{})
			if err != nil {
				return err
			}
			logger.FromContext(ctx).Debug("extracted", "items", len(res.Content), "bytes", len(data))

			out := extractOutput{
				Reasoning: res.ReasoningText(),
				Text:      res.Text(),
				Segments:  res.Content,
			}
			if out.Segments == nil {
				out.Segments = []lm.Content{}
			}
			enc := json.NewEncoder(outWriter(cmd))
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
}
