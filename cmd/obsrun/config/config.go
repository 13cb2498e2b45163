// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config is the `obsrun config` command group.
package config

import (
	"context"
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/matt-FFFFFF/obsrun/cmd/obsrun/cfgfile"
	"github.com/matt-FFFFFF/obsrun/internal/config"
	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/urfave/cli/v3"
)

const (
	pathArg   = "path"
	forceFlag = "force"
)

// ConfigCmd groups the configuration helpers.
var ConfigCmd = &cli.Command{
	Name:  "config",
	Usage: "Create, inspect and evaluate configuration files",
	Commands: []*cli.Command{
		initCmd,
		checkCmd,
		evalCmd,
	},
}

var initCmd = &cli.Command{
	Name:  "init",
	Usage: "Write a starter HCL configuration holding the defaults",
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      pathArg,
			UsageText: "[PATH]",
			Value:     config.DefaultFileName,
		},
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  forceFlag,
			Usage: "Overwrite an existing file",
		},
	},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		path := cmd.StringArg(pathArg)
		if path == "" {
			path = config.DefaultFileName
		}

		if err := config.WriteStarter(path, cmd.Bool(forceFlag)); err != nil {
			return cli.Exit(err.Error(), 1)
		}

		ctxlog.Info(ctx, "configuration written", "path", path)

		return nil
	},
}

var checkCmd = &cli.Command{
	Name:  "check",
	Usage: "Validate a configuration and print the effective values as YAML",
	Flags: []cli.Flag{cfgfile.Flag},
	Action: func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := cfgfile.Load(ctx, cmd)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		out, err := yaml.Marshal(cfg)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}

		fmt.Fprintf(cmd.Writer, "%s", out) //nolint:errcheck
		fmt.Fprintf(cmd.Writer, "# engine steps: %d\n", cfg.Time.StepCount()) //nolint:errcheck

		if err := cfg.Validate(); err != nil {
			return cli.Exit(err.Error(), 1)
		}

		return nil
	},
}

var evalCmd = &cli.Command{
	Name:  "eval",
	Usage: "Evaluate HCL expressions interactively against the configuration context",
	Action: func(_ context.Context, cmd *cli.Command) error {
		config.EnterDebugMode(cmd.Writer)
		return nil
	},
}
