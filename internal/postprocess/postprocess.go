// Package postprocess extracts the usable payload from raw LLM output.
//
// It is applied to the text returned by any transformation backend before
// the result is used downstream: thinking blocks and instruction echoes
// are stripped, and when the model wrapped its answer in a fenced code
// block the first block's contents are taken verbatim.
package postprocess

import (
	"regexp"
	"strings"
)

// Extract returns the transformed document text contained in raw model
// output. When a fenced code block is present the first block wins and its
// contents are returned exactly (fenced output is code; internal
// whitespace matters). Otherwise the cleaned full response is returned.
func Extract(text string) string {
	text = removeThinkingBlocks(text)
	if body, ok := firstFencedBlock(text); ok {
		return body
	}
	text = removeInstructionEchoes(text)
	return strings.TrimSpace(text)
}

// --- Thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because Go's RE2 engine does not
// support backreferences.
// Flags: i = case-insensitive, s = dot matches newline.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

func removeThinkingBlocks(text string) string {
	return strings.TrimSpace(thinkingBlockRe.ReplaceAllString(text, ""))
}

// --- Fenced code blocks ---

// fenceOpenRe matches an opening fence with an optional language tag,
// anchored to the start of a line.
var fenceOpenRe = regexp.MustCompile("(?m)^```[a-zA-Z0-9_+-]*[ \t]*\r?\n")

// firstFencedBlock returns the contents of the first ``` fenced block.
// An unterminated fence (the model was cut off) yields everything after
// the opening fence.
func firstFencedBlock(text string) (string, bool) {
	loc := fenceOpenRe.FindStringIndex(text)
	if loc == nil {
		return "", false
	}
	rest := text[loc[1]:]
	if end := strings.Index(rest, "```"); end >= 0 {
		return rest[:end], true
	}
	return rest, true
}

// --- Instruction echoes ---

// echoPatterns match introductory phrases that LLMs sometimes prepend even
// when instructed not to. Each pattern is anchored to the start of the
// string and requires a colon to reduce false positives on legitimate
// content.
var echoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:rewritten |reformatted |transformed |updated |corrected )?(?:code|text|document|version)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:rewritten |reformatted |transformed |updated |corrected )(?:code|text|document|version)\s*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:rewritten |reformatted |transformed |updated |corrected )?(?:code|text|document|version)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}
