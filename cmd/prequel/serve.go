package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/vegasq/prequel/internal/server"
	"github.com/vegasq/prequel/query"
	"github.com/vegasq/prequel/reader"
)

func (a *app) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve queries over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "listen address",
				Value:   ":8080",
				Sources: cli.EnvVars("PREQUEL_ADDR"),
			},
			dataFlag(),
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "per-request timeout",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("PREQUEL_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "locale",
				Usage:   "BCP 47 tag used to order strings",
				Sources: cli.EnvVars("PREQUEL_LOCALE"),
			},
		},
		Action: a.runServe,
	}
}

func (a *app) runServe(ctx context.Context, cmd *cli.Command) error {
	datasets, err := a.loadDatasets(cmd.StringSlice("data"))
	if err != nil {
		return err
	}
	exec, err := a.executor(cmd.String("locale"))
	if err != nil {
		return err
	}

	srv := server.New(cmd.String("addr"), exec,
		server.WithLogger(a.logger),
		server.WithDatasets(datasets),
		server.WithRequestTimeout(cmd.Duration("timeout")),
	)
	return srv.Run(ctx)
}

// loadDatasets reads every bound file into memory so requests can reuse it.
func (a *app) loadDatasets(specs []string) (query.DataEnvironment, error) {
	env := make(query.DataEnvironment, len(specs))
	for _, spec := range specs {
		name, path, err := splitBinding(spec)
		if err != nil {
			return nil, err
		}
		rows, err := reader.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("data %s: %w", name, err)
		}
		env[name] = query.Rows(rows)
		a.logger.Info("loaded dataset", zap.String("name", name), zap.String("path", path), zap.Int("rows", len(rows)))
	}
	return env, nil
}
