package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/vegasq/prequel/output"
	"github.com/vegasq/prequel/reader"
)

var schemaColumns = []string{"name", "type", "physical_type", "logical_type", "required", "optional", "repeated"}

func (a *app) schemaCommand() *cli.Command {
	return &cli.Command{
		Name:      "schema",
		Usage:     "show the columns of a parquet file",
		ArgsUsage: "<file.parquet>",
		Flags:     []cli.Flag{formatFlag()},
		Action:    a.runSchema,
	}
}

func (a *app) runSchema(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("schema takes exactly one parquet file argument")
	}
	formatter, err := output.New(cmd.String("format"), a.stdout)
	if err != nil {
		return err
	}

	// For glob patterns, use the first match
	path := cmd.Args().First()
	if strings.ContainsAny(path, "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return fmt.Errorf("invalid glob pattern: %w", err)
		}
		if len(matches) == 0 {
			return fmt.Errorf("no files match pattern: %s", path)
		}
		if len(matches) > 1 {
			fmt.Fprintf(a.stderr, "# Showing schema from: %s (%d files matched)\n", matches[0], len(matches))
		}
		path = matches[0]
	}

	infos, err := reader.ExtractSchemaInfo(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("file '%s' not found", path)
		}
		return err
	}

	rows := make([]map[string]interface{}, len(infos))
	for i, field := range infos {
		rows[i] = map[string]interface{}{
			"name":          field.Name,
			"type":          field.Type,
			"physical_type": field.PhysicalType,
			"logical_type":  field.LogicalType,
			"required":      field.Required,
			"optional":      field.Optional,
			"repeated":      field.Repeated,
		}
	}
	formatter.SetColumns(schemaColumns)
	return formatter.Format(rows)
}
