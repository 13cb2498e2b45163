// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

var fileSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "prerequisites"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "model"},
		{Type: "engine"},
		{Type: "time"},
		{Type: "execution"},
		{Type: "input"},
		{Type: "results"},
	},
}

// EvalContext is the context HCL expressions are evaluated in.
// It exposes cpu_count, the process environment as env, and a few numeric functions.
func EvalContext() *hcl.EvalContext {
	envVars := map[string]cty.Value{}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}

		envVars[k] = cty.StringVal(v)
	}

	env := cty.MapValEmpty(cty.String)
	if len(envVars) > 0 {
		env = cty.MapVal(envVars)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"cpu_count": cty.NumberIntVal(int64(runtime.NumCPU())),
			"env":       env,
		},
		Functions: map[string]function.Function{
			"ceil":   stdlib.CeilFunc,
			"floor":  stdlib.FloorFunc,
			"max":    stdlib.MaxFunc,
			"min":    stdlib.MinFunc,
			"lookup": stdlib.LookupFunc,
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
		},
	}
}

// LoadHCL reads an HCL file, or the single `*.obsrun.hcl` file of a directory.
func LoadHCL(path string) (*Config, error) {
	fs := FsFactory()

	if info, err := fs.Stat(path); err == nil && info.IsDir() {
		matches, err := afero.Glob(fs, filepath.Join(path, "*"+FileExt))
		if err != nil {
			// the pattern is constant, so only ErrBadPattern could get here.
			panic(err)
		}

		if len(matches) == 0 {
			return nil, ErrNoConfigFile
		}

		slices.Sort(matches)
		path = matches[0]
	}

	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Join(ErrLoad, err)
	}

	return ParseHCL(content, path)
}

// ParseHCL decodes HCL bytes over the defaults.
func ParseHCL(content []byte, filename string) (*Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(content, filename)
	if diags.HasErrors() {
		return nil, errors.Join(ErrLoad, diags)
	}

	body, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, errors.Join(ErrLoad, diags)
	}

	cfg := Default()
	ctx := EvalContext()

	var result *multierror.Error

	seen := map[string]hcl.Range{}

	for _, block := range body.Blocks {
		if prev, ok := seen[block.Type]; ok {
			result = multierror.Append(result,
				fmt.Errorf("duplicate %q block at %s, first defined at %s", block.Type, block.DefRange, prev))

			continue
		}

		seen[block.Type] = block.DefRange

		if d := gohcl.DecodeBody(block.Body, ctx, blockTarget(cfg, block.Type)); d.HasErrors() {
			result = multierror.Append(result, d.Errs()...)
		}
	}

	if attr, ok := body.Attributes["prerequisites"]; ok {
		if d := gohcl.DecodeExpression(attr.Expr, ctx, &cfg.Prerequisites); d.HasErrors() {
			result = multierror.Append(result, d.Errs()...)
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, errors.Join(ErrLoad, err)
	}

	return cfg, nil
}

func blockTarget(cfg *Config, blockType string) any {
	switch blockType {
	case "model":
		return &cfg.Model
	case "engine":
		return &cfg.Engine
	case "time":
		return &cfg.Time
	case "execution":
		return &cfg.Execution
	case "input":
		return &cfg.Input
	case "results":
		return &cfg.Results
	default:
		// fileSchema admits only the types above.
		panic("unexpected block type " + blockType)
	}
}
