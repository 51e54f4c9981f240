package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/minpeter/ai-sdk-middleware/internal/backend/replay"
	"github.com/minpeter/ai-sdk-middleware/internal/logger"
	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
	"github.com/minpeter/ai-sdk-middleware/pkg/middleware"
)

func streamCmd() *cli.Command {
	var (
		text      string
		chunkSize int64
	)

	return &cli.Command{
		Name:      "stream",
		Usage:     "Replay recorded stream parts (JSONL) through the reasoning middleware",
		ArgsUsage: "[parts.jsonl]",
		Flags: append(reasoningFlags(),
			&cli.StringFlag{
				Name:        "text",
				Usage:       "stream this text instead of reading parts",
				Destination: &text,
			},
			&cli.Int64Flag{
				Name:        "chunk-size",
				Usage:       "delta size in bytes when streaming --text",
				Value:       8,
				Destination: &chunkSize,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			mw, err := reasoningMiddleware(cmd)
			if err != nil {
				return err
			}

			var parts []lm.StreamPart
			if cmd.IsSet("text") {
				parts = replay.FromText("txt-0", text, int(chunkSize))
			} else {
				in, err := openInput(cmd, cmd.Args().First())
				if err != nil {
					return err
				}
				parts, err = replay.ReadParts(in)
				_ = in.Close()
				if err != nil {
					return err
				}
			}

			model := middleware.Wrap(replay.New(parts), mw)
			res, err := model.Stream(ctx, &lm.CallOptions{})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(outWriter(cmd))
			n := 0
			for part, err := range res.Stream {
				if err != nil {
					return fmt.Errorf("stream: %w", err)
				}
				if err := enc.Encode(part); err != nil {
					return err
				}
				n++
			}
			log.Debug("stream replayed", "in", len(parts), "out", n)
			return nil
		},
	}
}
