// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cfgfile resolves the --config flag shared by the batch commands.
// Config file URLs use Hashicorp's go-getter syntax.
package cfgfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"
	"github.com/matt-FFFFFF/obsrun/internal/config"
	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/urfave/cli/v3"
)

// FlagName is the name of the configuration flag.
const FlagName = "config"

// ErrGetConfigFile is returned when the configuration cannot be fetched.
var ErrGetConfigFile = errors.New("failed to get config file")

// Flag is the --config flag. Its default is the conventional file in the working directory.
var Flag = &cli.StringFlag{
	Name:    FlagName,
	Aliases: []string{"c"},
	Usage: "URL of the HCL or YAML configuration file. " +
		"Supports Hashicorp's go-getter syntax for fetching files from various sources.",
	Value:     config.DefaultFileName,
	TakesFile: true,
	OnlyOnce:  true,
}

// Load fetches and decodes the configuration named by the flag.
func Load(ctx context.Context, cmd *cli.Command) (*config.Config, error) {
	url := cmd.String(FlagName)

	ctxlog.Debug(ctx, "loading configuration", "url", url)

	content, fileName, err := getURL(ctx, url)
	if err != nil {
		return nil, err
	}

	return config.Parse(content, fileName) //nolint:wrapcheck
}

// getURL retrieves the content from the specified URL using Hashicorp's go-getter.
// It removes the temporary directory after reading the file.
func getURL(ctx context.Context, url string) ([]byte, string, error) {
	if url == "" {
		return nil, "", ErrGetConfigFile
	}

	tmpDir, err := os.MkdirTemp("", "obsrun-getter-*")
	if err != nil {
		return nil, "", errors.Join(ErrGetConfigFile, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	wd, err := os.Getwd()
	if err != nil {
		return nil, "", errors.Join(ErrGetConfigFile, err)
	}

	client := getter.Client{
		DisableSymlinks: true,
	}

	req := &getter.Request{
		Src:     url,
		Dst:     filepath.Join(tmpDir, "g"),
		Pwd:     wd,
		GetMode: getter.ModeDir,
	}

	var fileName string
	// Remote sources are fetched as a directory, then the file is read from it.
	// https://github.com/hashicorp/go-getter/issues/98
	if ok, err := getter.Detect(req, &getter.FileGetter{}); !ok || err != nil {
		if err != nil {
			return nil, "", errors.Join(ErrGetConfigFile, err)
		}

		var newURL string

		newURL, fileName = splitFileNameFromGetterURL(url)
		if newURL == "" || fileName == "" {
			return nil, "", fmt.Errorf("%w: invalid URL format: %s", ErrGetConfigFile, url)
		}

		req.Src = newURL
	}

	if fileName == "" {
		req.Src = filepath.Dir(url)
		fileName = filepath.Base(url)
	}

	res, err := client.Get(ctx, req)
	if err != nil {
		return nil, "", errors.Join(ErrGetConfigFile, err)
	}

	content, err := os.ReadFile(filepath.Join(res.Dst, fileName))
	if err != nil {
		return nil, "", errors.Join(ErrGetConfigFile, err)
	}

	return content, fileName, nil
}

const (
	goGetterPathSeparator = "//"
	goGetterRefSeparator  = "?"
	minimumGetterParts    = 3 // scheme, host and path
)

// splitFileNameFromGetterURL splits a go-getter URL into the directory URL and
// the file name, carrying any ref query over to the directory URL.
func splitFileNameFromGetterURL(url string) (string, string) {
	var ref string

	parts := strings.Split(url, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	last := parts[len(parts)-1]
	if path, query, found := strings.Cut(last, goGetterRefSeparator); found {
		ref = query
		last = path
	}

	if filepath.Clean(last) == filepath.Dir(last) {
		return "", ""
	}

	fileName := filepath.Base(last)
	parts[len(parts)-1] = filepath.Dir(last)

	if parts[len(parts)-1] == "." {
		parts = parts[:len(parts)-1]
	}

	newURL := strings.Join(parts, goGetterPathSeparator)

	if ref != "" {
		newURL += goGetterRefSeparator + ref
	}

	return newURL, fileName
}
