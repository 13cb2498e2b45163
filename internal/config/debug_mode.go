// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/peterh/liner"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Eval evaluates one HCL expression against EvalContext and renders the result as JSON.
func Eval(input string) (string, error) {
	expression, diags := hclsyntax.ParseExpression([]byte(input), "repl.hcl", hcl.InitialPos)
	if diags.HasErrors() {
		return "", diags
	}

	value, diags := expression.Value(EvalContext())
	if diags.HasErrors() {
		return "", diags
	}

	if !value.IsWhollyKnown() {
		return "(unknown)", nil
	}

	b, err := ctyjson.Marshal(value, value.Type())
	if err != nil {
		return "", err //nolint:wrapcheck
	}

	return string(b), nil
}

// EnterDebugMode runs an expression REPL until `quit`, `exit` or Ctrl+C.
func EnterDebugMode(out io.Writer) {
	line := liner.NewLiner()
	defer func() {
		_ = line.Close()
	}()

	line.SetCtrlCAborts(true)
	fmt.Fprintln(out, "Entering debugging mode, press `quit` or `exit` or Ctrl+C to quit.")

	for {
		input, err := line.Prompt("debug> ")

		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			fmt.Fprintln(out, "Aborted")
			return
		case err != nil:
			fmt.Fprintln(out, "Error reading line: ", err)
			return
		case input == "quit" || input == "exit":
			return
		case input == "":
			continue
		}

		line.AppendHistory(input)

		result, err := Eval(input)
		if err != nil {
			fmt.Fprintln(out, err.Error())
			continue
		}

		fmt.Fprintln(out, result)
	}
}
