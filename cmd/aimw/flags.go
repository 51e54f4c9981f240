package main

import "github.com/urfave/cli/v3"

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	openingTag         string
	closingTag         string
	separator          string
	startWithReasoning bool
	separateStream     bool

	systemPrompt    string
	promptPlacement string
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: user config dir)",
			Destination: &configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func reasoningFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "opening-tag",
			Usage:       "marker that opens a reasoning block",
			Value:       "<think>",
			Destination: &openingTag,
		},
		&cli.StringFlag{
			Name:        "closing-tag",
			Usage:       "marker that closes a reasoning block",
			Value:       "</think>",
			Destination: &closingTag,
		},
		&cli.StringFlag{
			Name:        "separator",
			Usage:       "string joining adjacent pieces of the same kind",
			Destination: &separator,
		},
		&cli.BoolFlag{
			Name:        "start-with-reasoning",
			Usage:       "treat output as already inside a reasoning block",
			Destination: &startWithReasoning,
		},
		&cli.BoolFlag{
			Name:        "separate-stream",
			Usage:       "apply the separator to streamed deltas as well",
			Destination: &separateStream,
		},
	}
}

func systemPromptFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "system-prompt",
			Usage:       "system prompt merged into every request",
			Destination: &systemPrompt,
		},
		&cli.StringFlag{
			Name:        "system-prompt-placement",
			Usage:       "where the system prompt goes (first, last)",
			Value:       "first",
			Destination: &promptPlacement,
		},
	}
}
