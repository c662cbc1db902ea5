package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/vegasq/prequel/internal/logging"
	"github.com/vegasq/prequel/output"
	"github.com/vegasq/prequel/query"
)

// app carries the state shared by all commands.
type app struct {
	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

func newApp(stdout, stderr io.Writer) *cli.Command {
	a := &app{stdout: stdout, stderr: stderr, logger: zap.NewNop()}
	defaults := logging.DefaultConfig()

	return &cli.Command{
		Name:                      "prequel",
		Usage:                     "run structured queries over parquet, JSON and CSV data",
		Writer:                    stdout,
		ErrWriter:                 stderr,
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   defaults.Level,
				Sources: cli.EnvVars("PREQUEL_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "console or json",
				Value:   defaults.Format,
				Sources: cli.EnvVars("PREQUEL_LOG_FORMAT"),
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "write logs to a rotated file instead of stderr (\"-\" disables logging)",
				Sources: cli.EnvVars("PREQUEL_LOG_FILE"),
			},
		},
		Before: a.setup,
		After: func(ctx context.Context, cmd *cli.Command) error {
			_ = a.logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			a.queryCommand(),
			a.schemaCommand(),
			a.serveCommand(),
		},
	}
}

func (a *app) setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg := logging.DefaultConfig()
	cfg.Level = cmd.String("log-level")
	cfg.Format = cmd.String("log-format")
	cfg.File = cmd.String("log-file")

	logger, err := logging.New(cfg, a.stderr)
	if err != nil {
		return ctx, err
	}
	a.logger = logger
	return ctx, nil
}

func (a *app) executor(locale string) (*query.Executor, error) {
	opts := []query.Option{query.WithLogger(a.logger)}
	if locale != "" {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
		}
		opts = append(opts, query.WithLocale(tag))
	}
	return query.NewExecutor(opts...), nil
}

// formatFlag is shared by the commands that print rows.
func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "output format: " + strings.Join(output.Formats, ", "),
		Value:   output.FormatJSONL,
		Sources: cli.EnvVars("PREQUEL_FORMAT"),
	}
}

func dataFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "data",
		Aliases: []string{"d"},
		Usage:   "bind a data file as `name=path` (glob patterns allowed for parquet)",
		Sources: cli.EnvVars("PREQUEL_DATA"),
	}
}

// splitBinding parses name=path. Without a name the file's base name minus
// its extension is used.
func splitBinding(spec string) (string, string, error) {
	if name, path, ok := strings.Cut(spec, "="); ok {
		if name == "" || path == "" {
			return "", "", fmt.Errorf("invalid data binding %q (want name=path)", spec)
		}
		return name, path, nil
	}
	base := filepath.Base(spec)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || strings.ContainsAny(name, "*?[") {
		return "", "", fmt.Errorf("data binding %q needs an explicit name (name=path)", spec)
	}
	return name, spec, nil
}
