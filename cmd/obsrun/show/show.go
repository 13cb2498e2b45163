// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show is the `obsrun show` command.
package show

import (
	"context"
	"errors"
	"os"

	"github.com/matt-FFFFFF/obsrun/internal/runbatch"
	"github.com/urfave/cli/v3"
)

const (
	fileArg                  = "file"
	outputSuccessDetailsFlag = "output-success-details"
	outputStdOutFlag         = "output-stdout"
)

var (
	// ErrReadFile is returned when the file cannot be read.
	ErrReadFile = errors.New("failed to read file")
	// ErrWriteResults is returned when the results cannot be written.
	ErrWriteResults = errors.New("failed to write results")
)

// ShowCmd renders results saved by `obsrun run --out`.
var ShowCmd = command()

func command() *cli.Command {
	return &cli.Command{
		Name:        "show",
		Usage:       "Show previously saved results",
		Description: "Show results saved with 'obsrun run --out FILE'.",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      fileArg,
				UsageText: "FILE",
			},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    outputSuccessDetailsFlag,
				Aliases: []string{"success"},
				Usage:   "Include successful results in the output",
			},
			&cli.BoolFlag{
				Name:    outputStdOutFlag,
				Aliases: []string{"stdout"},
				Usage:   "Include captured stdout in the results",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			name := cmd.StringArg(fileArg)
			if name == "" {
				return cli.Exit("Please provide a results file", 1)
			}

			file, err := os.Open(name)
			if err != nil {
				return errors.Join(ErrReadFile, err)
			}
			defer file.Close() //nolint:errcheck

			results, err := runbatch.ReadBinary(file)
			if err != nil {
				return err //nolint:wrapcheck
			}

			opts := runbatch.DefaultOutputOptions()
			opts.ShowSuccessDetails = cmd.Bool(outputSuccessDetailsFlag)
			opts.IncludeStdOut = cmd.Bool(outputStdOutFlag)

			if err := results.WriteTextWithOptions(cmd.Writer, opts); err != nil {
				return errors.Join(ErrWriteResults, err)
			}

			return nil
		},
	}
}
