package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v5"
	echomw "github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	"github.com/minpeter/ai-sdk-middleware/internal/api"
	"github.com/minpeter/ai-sdk-middleware/internal/backend"
	"github.com/minpeter/ai-sdk-middleware/internal/backend/openai"
	"github.com/minpeter/ai-sdk-middleware/internal/logger"
	"github.com/minpeter/ai-sdk-middleware/internal/metrics"
	"github.com/minpeter/ai-sdk-middleware/pkg/lm"
	"github.com/minpeter/ai-sdk-middleware/pkg/middleware"
)

type serveOptions struct {
	addr        string
	readTimeout time.Duration
	backend     string
	replayFile  string
	baseURL     string
	apiKeyEnv   string
	model       string
	rps         float64
}

func serveCmd() *cli.Command {
	var opts serveOptions

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve an OpenAI-compatible chat completions API over an upstream model",
		Flags: append(append(reasoningFlags(), systemPromptFlags()...),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &opts.addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &opts.readTimeout,
			},
			&cli.StringFlag{
				Name:        "backend",
				Usage:       "model backend (" + backend.Available() + ")",
				Value:       backend.OpenAI,
				Destination: &opts.backend,
			},
			&cli.StringFlag{
				Name:        "replay-file",
				Usage:       "JSONL stream parts served by the replay backend",
				Destination: &opts.replayFile,
			},
			&cli.StringFlag{
				Name:        "upstream-url",
				Usage:       "base URL of the OpenAI-compatible upstream",
				Value:       "https://api.openai.com/v1",
				Destination: &opts.baseURL,
			},
			&cli.StringFlag{
				Name:        "api-key-env",
				Usage:       "environment variable holding the upstream API key",
				Value:       "OPENAI_API_KEY",
				Destination: &opts.apiKeyEnv,
			},
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "upstream model id",
				Destination: &opts.model,
			},
			&cli.Float64Flag{
				Name:        "rps",
				Usage:       "upstream requests per second (0 = unlimited)",
				Destination: &opts.rps,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, loaded, &opts)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			model, err := buildServeModel(cmd, opts, reg)
			if err != nil {
				return err
			}

			server := api.NewServer(api.NewStaticProvider(model),
				api.WithLogger(log),
				api.WithGatherer(reg),
			)
			e := echo.New()
			e.Use(echomw.RequestLogger())
			e.Use(echomw.Recover())
			server.Register(e)

			log.Info("starting server", "address", opts.addr, "backend", opts.backend, "model", model.ModelID())
			sc := echo.StartConfig{
				Address: opts.addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = opts.readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

// buildServeModel wraps the upstream with metrics outermost, then the
// system prompt and reasoning middlewares.
func buildServeModel(cmd *cli.Command, opts serveOptions, reg prometheus.Registerer) (lm.Model, error) {
	upstream, err := backend.New(opts.backend, backend.Config{
		OpenAI: openai.Config{
			BaseURL:           opts.baseURL,
			APIKey:            os.Getenv(opts.apiKeyEnv),
			Model:             opts.model,
			RequestsPerSecond: opts.rps,
		},
		ReplayFile: opts.replayFile,
	})
	if err != nil {
		return nil, fmt.Errorf("serve: %w", err)
	}

	mws := []middleware.Middleware{metrics.Middleware(reg)}
	sys, ok, err := systemPromptMiddleware(cmd)
	if err != nil {
		return nil, err
	}
	if ok {
		mws = append(mws, sys)
	}
	rmw, err := reasoningMiddleware(cmd)
	if err != nil {
		return nil, err
	}
	mws = append(mws, rmw)

	return middleware.Wrap(upstream, mws...), nil
}
