// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config holds the typed batch configuration, its defaults, and the
// HCL and YAML loaders.
package config

import (
	"errors"
	"math"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/matt-FFFFFF/obsrun/internal/rundir"
	"github.com/spf13/afero"
)

const (
	// FileExt is the extension of HCL configuration files.
	FileExt = ".obsrun.hcl"
	// DefaultFileName is the file searched for when no path is given.
	DefaultFileName = "config" + FileExt
)

var (
	// ErrLoad is returned when a configuration file cannot be read or decoded.
	ErrLoad = errors.New("failed to load configuration")
	// ErrNoConfigFile is returned when no configuration file is found in a directory.
	ErrNoConfigFile = errors.New("no `*.obsrun.hcl` file found in the specified directory")
	// ErrUnsupportedFormat is returned for file extensions other than HCL and YAML.
	ErrUnsupportedFormat = errors.New("unsupported configuration format")
)

// Config is the whole batch configuration.
type Config struct {
	Model         Model     `yaml:"model"`
	Engine        Engine    `yaml:"engine"`
	Time          Time      `yaml:"time"`
	Execution     Execution `yaml:"execution"`
	Input         Input     `yaml:"input"`
	Results       Results   `yaml:"results"`
	Prerequisites []string  `yaml:"prerequisites"`
}

// Model locates the run directory tree.
type Model struct {
	Dir       string `hcl:"dir,optional" yaml:"dir"`
	Name      string `hcl:"name,optional" yaml:"name"`
	InputStem string `hcl:"input_stem,optional" yaml:"input_stem"`
}

// Engine describes the external simulation executable.
type Engine struct {
	Executable string            `hcl:"executable,optional" yaml:"executable"`
	Env        map[string]string `hcl:"env,optional" yaml:"env"`
	TailLines  int               `hcl:"tail_lines,optional" yaml:"tail_lines"`
	Heartbeat  string            `hcl:"heartbeat,optional" yaml:"heartbeat"`
}

// Time is the analysis time control used to derive the engine step count.
type Time struct {
	Dt            float64 `hcl:"dt,optional" yaml:"dt"`
	DurationHours float64 `hcl:"duration_hours,optional" yaml:"duration_hours"`
	Ramp          float64 `hcl:"ramp,optional" yaml:"ramp"`
	StaticEnd     float64 `hcl:"static_end,optional" yaml:"static_end"`
	StaticSteps   int     `hcl:"static_steps,optional" yaml:"static_steps"`
}

// Execution controls what the scheduler does.
type Execution struct {
	Realisations    int     `hcl:"realisations,optional" yaml:"realisations"`
	Concurrency     int     `hcl:"concurrency,optional" yaml:"concurrency"`
	Generate        bool    `hcl:"generate,optional" yaml:"generate"`
	Execute         bool    `hcl:"execute,optional" yaml:"execute"`
	Simulate        bool    `hcl:"simulate,optional" yaml:"simulate"`
	SimulateSeconds float64 `hcl:"simulate_seconds,optional" yaml:"simulate_seconds"`
}

// Input configures per-realisation input generation.
type Input struct {
	Template string `hcl:"template,optional" yaml:"template"`
	BaseSeed uint64 `hcl:"base_seed,optional" yaml:"base_seed"`
}

// Results configures statistics over finished realisations.
type Results struct {
	Channel     int     `hcl:"channel,optional" yaml:"channel"`
	StartTime   float64 `hcl:"start_time,optional" yaml:"start_time"`
	PlotDt      float64 `hcl:"plot_dt,optional" yaml:"plot_dt"`
	PlotBudget  int     `hcl:"plot_budget,optional" yaml:"plot_budget"`
	Tolerance   float64 `hcl:"tolerance,optional" yaml:"tolerance"`
	DesignValue float64 `hcl:"design_value,optional" yaml:"design_value"`
}

// Default returns a configuration populated with the stock values.
func Default() *Config {
	return &Config{
		Model: Model{
			Dir:       ".",
			Name:      "OBS",
			InputStem: "s",
		},
		Engine: Engine{
			Executable: "simla",
			Env:        map[string]string{},
			TailLines:  16,
			Heartbeat:  "30s",
		},
		Time: Time{
			Dt:            0.02,
			DurationHours: 0.15,
			Ramp:          5,
			StaticEnd:     1,
			StaticSteps:   1,
		},
		Execution: Execution{
			Realisations:    7,
			Concurrency:     DefaultConcurrency(),
			Generate:        true,
			Execute:         true,
			SimulateSeconds: 15,
		},
		Input: Input{
			Template: "template.sif",
			BaseSeed: 1,
		},
		Results: Results{
			Channel:    5,
			PlotDt:     0.4,
			PlotBudget: 5000,
			Tolerance:  5,
		},
	}
}

// DefaultConcurrency is a third of the logical cores, at least one.
func DefaultConcurrency() int {
	return max(1, runtime.NumCPU()/3)
}

// StaticDt is the static step size, snapped down to a power of ten and capped at one second.
func (t Time) StaticDt() float64 {
	steps := max(1, t.StaticSteps)
	dt := t.StaticEnd / float64(steps)

	if dt >= 1 || dt <= 0 {
		return 1
	}

	return math.Pow(10, math.Floor(math.Log10(dt)))
}

// StepCount is the number of dynamic steps the engine is asked to run.
// The wave ramp is counted both in the ramp end time and in the wave duration.
func (t Time) StepCount() int {
	rampEnd := t.Ramp + t.StaticEnd
	waveDuration := t.DurationHours*3600 + t.Ramp

	steps := t.StaticEnd/t.StaticDt() + (rampEnd+waveDuration-t.StaticEnd)/t.Dt

	return int(math.Ceil(steps - 1e-9))
}

// StartSample converts the results start time into a sample index.
func (c *Config) StartSample() int {
	if c.Time.Dt <= 0 || c.Results.StartTime <= 0 {
		return 0
	}

	return int(math.Round(c.Results.StartTime / c.Time.Dt))
}

// HeartbeatInterval parses Engine.Heartbeat, falling back to thirty seconds.
func (c *Config) HeartbeatInterval() time.Duration {
	d, err := time.ParseDuration(c.Engine.Heartbeat)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}

	return d
}

// SimulateDuration is the sleep used in place of the engine.
func (c *Config) SimulateDuration() time.Duration {
	return time.Duration(c.Execution.SimulateSeconds * float64(time.Second))
}

// Layout is the run directory layout the configuration describes.
func (c *Config) Layout(fs afero.Fs) *rundir.Layout {
	return rundir.New(fs, c.Model.Dir, c.Model.Name, rundir.WithInputStem(c.Model.InputStem))
}

// Parse decodes content, choosing the decoder by the extension of filename.
func Parse(content []byte, filename string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		return ParseHCL(content, filename)
	case ".yaml", ".yml":
		return ParseYAML(content)
	default:
		return nil, errors.Join(ErrUnsupportedFormat, errors.New(filename))
	}
}

// Load reads a configuration file, choosing the decoder by extension.
func Load(path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return LoadHCL(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, errors.Join(ErrUnsupportedFormat, errors.New(path))
	}
}
