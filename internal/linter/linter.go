// Package linter is the static-check gate: a pass/fail capability over a
// text plus language hint, backed by invoking external lint tools. The
// pipeline depends only on the Checker interface; tests substitute fakes.
package linter

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/valpere/reflow/internal/language"
)

// Verdict is the outcome of a static check.
type Verdict int

const (
	// Pass: the text already satisfies the language's lint rules.
	Pass Verdict = iota
	// Fail: the tool reported diagnostics or exited non-zero.
	Fail
	// Unknown: no tool is configured or the tool is not installed.
	// Callers treat Unknown as Pass (the gate never blocks blindly).
	Unknown
)

func (v Verdict) String() string {
	switch v {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Checker reports whether a text satisfies the style rules of a language.
type Checker interface {
	Check(ctx context.Context, text, langHint string) Verdict
}

// ExecChecker runs the language's configured external tool with the text
// on its standard input.
type ExecChecker struct {
	// Lookup resolves the lint invocation for a language hint. Nil uses
	// the built-in language table.
	Lookup func(langHint string) []string
}

func NewExecChecker() *ExecChecker {
	return &ExecChecker{}
}

func (c *ExecChecker) lintCmd(langHint string) []string {
	if c.Lookup != nil {
		return c.Lookup(langHint)
	}
	return language.FromHint(langHint).LintCmd
}

func (c *ExecChecker) Check(ctx context.Context, text, langHint string) Verdict {
	args := c.lintCmd(langHint)
	if len(args) == 0 {
		return Unknown
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(text)
	out, err := cmd.CombinedOutput()

	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
			return Unknown
		}
		return Fail
	}
	if len(bytes.TrimSpace(out)) > 0 {
		return Fail
	}
	return Pass
}
