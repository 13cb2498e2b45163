// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
)

// LoadYAML decodes a YAML file over the defaults.
func LoadYAML(path string) (*Config, error) {
	content, err := afero.ReadFile(FsFactory(), path)
	if err != nil {
		return nil, errors.Join(ErrLoad, err)
	}

	return ParseYAML(content)
}

// ParseYAML decodes YAML bytes over the defaults. Unknown keys are rejected.
func ParseYAML(content []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.UnmarshalWithOptions(content, cfg, yaml.Strict()); err != nil {
		return nil, errors.Join(ErrLoad, errors.New(yaml.FormatError(err, false, true)))
	}

	return cfg, nil
}
