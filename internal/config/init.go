// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
)

// ErrConfigExists is returned by WriteStarter when the target exists and force is not set.
var ErrConfigExists = errors.New("configuration file already exists")

// Starter renders a commented starter configuration holding the defaults.
func Starter() []byte {
	d := Default()
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	model := root.AppendNewBlock("model", nil).Body()
	model.SetAttributeValue("dir", cty.StringVal("runs"))
	model.SetAttributeValue("name", cty.StringVal(d.Model.Name))
	model.SetAttributeValue("input_stem", cty.StringVal(d.Model.InputStem))
	root.AppendNewline()

	engine := root.AppendNewBlock("engine", nil).Body()
	engine.SetAttributeValue("executable", cty.StringVal(d.Engine.Executable))
	engine.SetAttributeRaw("env", hclwrite.TokensForObject([]hclwrite.ObjectAttrTokens{{
		Name:  hclwrite.TokensForIdentifier("SIMLA_HOME"),
		Value: hclwrite.TokensForFunctionCall("lookup", traversal("env"), hclwrite.TokensForValue(cty.StringVal("SIMLA_HOME")), hclwrite.TokensForValue(cty.StringVal(""))),
	}}))
	engine.SetAttributeValue("tail_lines", cty.NumberIntVal(int64(d.Engine.TailLines)))
	engine.SetAttributeValue("heartbeat", cty.StringVal(d.Engine.Heartbeat))
	root.AppendNewline()

	tm := root.AppendNewBlock("time", nil).Body()
	tm.SetAttributeValue("dt", cty.NumberFloatVal(d.Time.Dt))
	tm.SetAttributeValue("duration_hours", cty.NumberFloatVal(d.Time.DurationHours))
	tm.SetAttributeValue("ramp", cty.NumberFloatVal(d.Time.Ramp))
	root.AppendNewline()

	execution := root.AppendNewBlock("execution", nil).Body()
	execution.SetAttributeValue("realisations", cty.NumberIntVal(int64(d.Execution.Realisations)))
	execution.SetAttributeRaw("concurrency", hclwrite.TokensForFunctionCall("max",
		hclwrite.TokensForValue(cty.NumberIntVal(1)),
		hclwrite.TokensForFunctionCall("floor", append(traversal("cpu_count"),
			&hclwrite.Token{Type: hclsyntax.TokenSlash, Bytes: []byte("/")},
			&hclwrite.Token{Type: hclsyntax.TokenNumberLit, Bytes: []byte("3")},
		)),
	))
	execution.SetAttributeValue("generate", cty.True)
	execution.SetAttributeValue("execute", cty.True)
	execution.SetAttributeValue("simulate", cty.False)
	root.AppendNewline()

	input := root.AppendNewBlock("input", nil).Body()
	input.SetAttributeValue("template", cty.StringVal(d.Input.Template))
	input.SetAttributeValue("base_seed", cty.NumberUIntVal(d.Input.BaseSeed))
	root.AppendNewline()

	results := root.AppendNewBlock("results", nil).Body()
	results.SetAttributeValue("channel", cty.NumberIntVal(int64(d.Results.Channel)))
	results.SetAttributeValue("plot_dt", cty.NumberFloatVal(d.Results.PlotDt))
	results.SetAttributeValue("plot_budget", cty.NumberIntVal(int64(d.Results.PlotBudget)))
	results.SetAttributeValue("tolerance", cty.NumberFloatVal(d.Results.Tolerance))

	return hclwrite.Format(f.Bytes())
}

// WriteStarter writes Starter to path.
func WriteStarter(path string, force bool) error {
	fs := FsFactory()

	if !force {
		if _, err := fs.Stat(path); err == nil {
			return errors.Join(ErrConfigExists, errors.New(path))
		}
	}

	return afero.WriteFile(fs, path, Starter(), 0o644) //nolint:wrapcheck
}

func traversal(name string) hclwrite.Tokens {
	return hclwrite.Tokens{&hclwrite.Token{Type: hclsyntax.TokenIdent, Bytes: []byte(name)}}
}
