package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/vegasq/prequel/internal/astfile"
	"github.com/vegasq/prequel/output"
	"github.com/vegasq/prequel/query"
	"github.com/vegasq/prequel/reader"
)

func (a *app) queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "execute a query document",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "query-file",
				Aliases:  []string{"q"},
				Usage:    "query document (`FILE`, .json or .yaml)",
				Required: true,
			},
			dataFlag(),
			&cli.StringSliceFlag{
				Name:    "param",
				Aliases: []string{"p"},
				Usage:   "bind a value as `name=value` (YAML scalar syntax)",
			},
			formatFlag(),
			&cli.StringFlag{
				Name:    "locale",
				Usage:   "BCP 47 tag used to order strings",
				Sources: cli.EnvVars("PREQUEL_LOCALE"),
			},
		},
		Action: a.runQuery,
	}
}

func (a *app) runQuery(ctx context.Context, cmd *cli.Command) error {
	q, err := astfile.DecodeFile(cmd.String("query-file"))
	if err != nil {
		return err
	}
	formatter, err := output.New(cmd.String("format"), a.stdout)
	if err != nil {
		return err
	}
	exec, err := a.executor(cmd.String("locale"))
	if err != nil {
		return err
	}

	env := query.DataEnvironment{}
	var sources []reader.Source
	bind := func(name, path string) error {
		src, err := reader.Open(path)
		if err != nil {
			return fmt.Errorf("data %s: %w", name, err)
		}
		env[name] = query.Seq(src.Rows())
		sources = append(sources, src)
		a.logger.Debug("bound data", zap.String("name", name), zap.String("path", path))
		return nil
	}

	for _, spec := range cmd.StringSlice("data") {
		name, path, err := splitBinding(spec)
		if err != nil {
			return err
		}
		if err := bind(name, path); err != nil {
			return err
		}
	}
	for _, spec := range cmd.StringSlice("param") {
		name, raw, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid parameter %q (want name=value)", spec)
		}
		v, err := astfile.ParseParam(raw)
		if err != nil {
			return err
		}
		env[name] = query.Value(v)
	}

	// An unbound source that names a readable file is read directly.
	if _, ok := env[q.Source]; !ok {
		if _, err := reader.DetectFormat(q.Source); err == nil {
			if err := bind(q.Source, q.Source); err != nil {
				return err
			}
		}
	}

	rows, err := exec.Execute(ctx, q, env)
	for _, src := range sources {
		if srcErr := src.Err(); srcErr != nil {
			return fmt.Errorf("failed to read %s: %w", src.Path(), srcErr)
		}
	}
	if err != nil {
		return err
	}

	formatter.SetColumns(query.Columns(q))
	if err := formatter.Format(rows); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}
