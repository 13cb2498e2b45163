// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package inputgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"text/template"

	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"github.com/spf13/afero"
)

var (
	// ErrTemplate is returned when the input template cannot be read or parsed.
	ErrTemplate = errors.New("failed to load input template")
	// ErrRender is returned when rendering the input for a realisation fails.
	ErrRender = errors.New("failed to render realisation input")
	// ErrNoSeed is returned when a realisation has no seed in the list.
	ErrNoSeed = errors.New("no seed for realisation")
)

// Params are the batch-wide values available to the template.
type Params struct {
	ModelName     string
	StepCount     int
	Dt            float64
	DurationHours float64
	Ramp          float64
	StaticEnd     float64
	StaticDt      float64
}

// Data is what the template is executed with for one realisation.
type Data struct {
	Params
	Index  int
	Seed   int
	RunDir string
	Stem   string
}

// TemplateGenerator renders one engine input per realisation from a text template.
type TemplateGenerator struct {
	layout *rundir.Layout
	tmpl   *template.Template
	seeds  []int
	params Params
}

// NewTemplateGenerator reads the template at path through the layout's filesystem.
// seeds[i-1] is the seed of realisation i.
func NewTemplateGenerator(layout *rundir.Layout, path string, seeds []int, params Params) (*TemplateGenerator, error) {
	content, err := afero.ReadFile(layout.Fs(), path)
	if err != nil {
		return nil, errors.Join(ErrTemplate, err)
	}

	tmpl, err := template.New(filepath.Base(path)).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, errors.Join(ErrTemplate, err)
	}

	return &TemplateGenerator{
		layout: layout,
		tmpl:   tmpl,
		seeds:  seeds,
		params: params,
	}, nil
}

// Generate writes the input artifact of realisation i. runDir is exposed to the template.
func (g *TemplateGenerator) Generate(ctx context.Context, i int, runDir string) error {
	if i < 1 || i > len(g.seeds) {
		return fmt.Errorf("%w: %d of %d", ErrNoSeed, i, len(g.seeds))
	}

	data := Data{
		Params: g.params,
		Index:  i,
		Seed:   g.seeds[i-1],
		RunDir: runDir,
		Stem:   g.layout.InputStem(),
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("%w %d: %w", ErrRender, i, err)
	}

	path := g.layout.InputPath(i)
	if err := afero.WriteFile(g.layout.Fs(), path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w %d: %w", ErrRender, i, err)
	}

	ctxlog.Debug(ctx, "input generated", "realisation", i, "seed", data.Seed, "path", path)

	return nil
}
