// Package chunker splits a document into an ordered list of fragments
// using language-aware heuristics, then subdivides oversized fragments to
// respect a token budget.
//
// Splitting is lossless: concatenating the fragments' text in index order
// reproduces the input byte-exactly. That invariant is what lets the
// reassembler rebuild a coherent document even when individual fragments
// fall back to their original text.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/valpere/reflow/internal/costs"
	"github.com/valpere/reflow/internal/language"
)

// Fragment is one lossless slice of the input document, the unit of
// transformation and of checkpointing. Fragments are immutable once
// created; Index is the sole ordering key.
type Fragment struct {
	Index int
	Text  string
}

// Name returns the zero-padded on-disk basename of the fragment's
// original body, e.g. "chunk_0007".
func (f Fragment) Name() string {
	return fmt.Sprintf("chunk_%04d", f.Index)
}

// OutputName returns the basename of the fragment's transformed body.
func (f Fragment) OutputName() string {
	return "output_" + f.Name()
}

// IsEmpty reports whether the fragment carries no visible content.
func (f Fragment) IsEmpty() bool {
	return strings.TrimSpace(f.Text) == ""
}

// Split divides text into fragments according to the language's structure,
// then subdivides any fragment whose estimated token count exceeds
// maxFragmentTokens (≤ 0 disables the budget). An empty or whitespace-only
// document yields exactly one fragment that carries the input verbatim
// rather than the empty string, keeping concatenation byte-exact; IsEmpty
// still reports it as empty.
func Split(text string, lang language.Language, maxFragmentTokens int) []Fragment {
	if strings.TrimSpace(text) == "" {
		return []Fragment{{Index: 0, Text: text}}
	}

	var parts []string
	switch lang.Structure {
	case language.Indented:
		parts = mergeHollow(splitIndented(text, lang), lang, text)
	case language.ShellLike:
		parts = mergeHollow(splitShell(text), lang, text)
	default:
		parts = splitParagraphs(text)
	}

	if maxFragmentTokens > 0 {
		parts = subdivide(parts, maxFragmentTokens)
	}

	frags := make([]Fragment, len(parts))
	for i, p := range parts {
		frags[i] = Fragment{Index: i, Text: p}
	}
	return frags
}

// splitLines cuts text into physical lines, each keeping its trailing
// newline. The invariant strings.Join(lines, "") == text holds.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// splitParagraphs splits on runs of two-or-more consecutive newlines. The
// blank lines forming the run stay attached to the preceding paragraph so
// no byte is dropped.
func splitParagraphs(text string) []string {
	lines := splitLines(text)

	var parts []string
	var cur strings.Builder
	afterBlank := false
	hasContent := false

	for _, line := range lines {
		blank := strings.TrimRight(line, "\n") == ""
		if !blank && afterBlank && hasContent {
			parts = append(parts, cur.String())
			cur.Reset()
			hasContent = false
		}
		cur.WriteString(line)
		if !blank {
			hasContent = true
		}
		afterBlank = blank
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// splitIndented starts a new fragment at every non-blank, non-comment line
// that begins at column 0; indented, blank, and comment lines extend the
// current fragment.
func splitIndented(text string, lang language.Language) []string {
	lines := splitLines(text)

	var parts []string
	var cur strings.Builder

	for _, line := range lines {
		body := strings.TrimRight(line, "\n")
		topLevel := body != "" &&
			!strings.HasPrefix(body, " ") &&
			!strings.HasPrefix(body, "\t") &&
			!lang.IsCommentLine(body)
		if topLevel && cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

var (
	shellFuncRe    = regexp.MustCompile(`^\s*(function\s+[A-Za-z_][\w-]*|[A-Za-z_][\w-]*\s*\(\s*\))`)
	shellKeywordRe = regexp.MustCompile(`^\s*(if|for|while|case)\b`)
	shellHeaderRe  = regexp.MustCompile(`^#(#|\s*[-=]{3,})`)
)

// splitShell starts a new fragment at function definitions, control-flow
// openers, and significant comment headers. A line ending in a backslash
// extends the fragment by one more line no matter what that line is.
func splitShell(text string) []string {
	lines := splitLines(text)

	var parts []string
	var cur strings.Builder
	continued := false

	for _, line := range lines {
		body := strings.TrimRight(line, "\n")
		starts := !continued && cur.Len() > 0 &&
			(shellFuncRe.MatchString(body) ||
				shellKeywordRe.MatchString(body) ||
				shellHeaderRe.MatchString(body))
		if starts {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
		continued = strings.HasSuffix(body, "\\")
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// mergeHollow folds fragments that are purely whitespace or comments into
// their preceding fragment, so they never travel to the service on their
// own but their bytes are kept. When every fragment is hollow the whole
// text collapses to a single fragment.
func mergeHollow(parts []string, lang language.Language, original string) []string {
	hollow := func(p string) bool {
		for _, line := range splitLines(p) {
			body := strings.TrimSpace(line)
			if body != "" && !lang.IsCommentLine(body) {
				return false
			}
		}
		return true
	}

	var out []string
	for _, p := range parts {
		if len(out) > 0 && hollow(p) {
			out[len(out)-1] += p
			continue
		}
		out = append(out, p)
	}
	// A hollow fragment at position 0 folds forward instead.
	if len(out) > 1 && hollow(out[0]) {
		out[1] = out[0] + out[1]
		out = out[1:]
	}
	if len(out) == 1 && hollow(out[0]) {
		return []string{original}
	}
	return out
}

// subdivide re-splits any part whose estimate exceeds the budget, packing
// whole lines greedily. A single line longer than the budget is never
// split mid-line.
func subdivide(parts []string, maxTokens int) []string {
	var out []string
	for _, p := range parts {
		if costs.EstimateTokens(p) <= maxTokens {
			out = append(out, p)
			continue
		}
		var cur strings.Builder
		for _, line := range splitLines(p) {
			if cur.Len() > 0 && costs.EstimateTokens(cur.String()+line) > maxTokens {
				out = append(out, cur.String())
				cur.Reset()
			}
			cur.WriteString(line)
		}
		if cur.Len() > 0 {
			out = append(out, cur.String())
		}
	}
	return out
}
