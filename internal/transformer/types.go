package transformer

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type ServiceConfig struct {
	APIKey  string        `mapstructure:"api_key" json:"api_key"`
	Model   string        `mapstructure:"model" json:"model"`
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

type Request struct {
	Text         string  `json:"text"`
	LanguageHint string  `json:"language_hint"`
	Instructions string  `json:"instructions"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

type Result struct {
	ServiceName  string        `json:"service_name"`
	Text         string        `json:"text"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	Latency      time.Duration `json:"latency"`
}

type Service interface {
	Name() string
	Transform(ctx context.Context, cfg ServiceConfig, req Request) (*Result, error)
	IsAvailable(ctx context.Context) error
}

// DefaultInstructions is the instruction template used when the caller
// supplies none. {lang} is replaced with the language hint.
const DefaultInstructions = "You are an expert {lang} maintainer. Rewrite the following {lang} fragment " +
	"so it conforms to idiomatic, lint-clean style while preserving its exact behavior and meaning. " +
	"Do not add, remove, or reorder functionality."

// buildPrompt fills the instruction template and embeds the fragment body
// in a fenced block so the model returns one back.
func buildPrompt(req Request) string {
	hint := req.LanguageHint
	if hint == "" {
		hint = "text"
	}

	instr := req.Instructions
	if instr == "" {
		instr = DefaultInstructions
	}
	instr = strings.ReplaceAll(instr, "{lang}", hint)

	var sb strings.Builder
	sb.WriteString(instr)
	sb.WriteString("\n\nRespond with ONLY the rewritten fragment inside a single fenced code block. No explanations.\n\n")
	fmt.Fprintf(&sb, "```%s\n%s```\n", hint, ensureTrailingNewline(req.Text))
	return sb.String()
}

func ensureTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
