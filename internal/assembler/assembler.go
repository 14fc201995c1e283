// Package assembler merges processed fragments back into one document,
// optionally under interactive per-fragment review. Output is assembled
// strictly in fragment index order, so the result is byte-identical no
// matter which pipeline worker finished first.
package assembler

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/valpere/reflow/internal/pipeline"
)

// Options control how the document is reassembled.
type Options struct {
	// Interactive prompts for accept / reject / edit on every changed
	// fragment.
	Interactive bool
	// DryRun renders diffs for changed fragments but the caller must not
	// write the target.
	DryRun bool
	// Editor is the external editor command for the edit action; empty
	// falls back to $EDITOR, then vi.
	Editor string
	// In and Out carry review prompts; nil defaults to stdin/stdout.
	In  io.Reader
	Out io.Writer
	Log *log.Logger
}

// Reassemble walks results in index order and concatenates each
// fragment's reviewed text. The final document gets a trailing newline
// when non-empty. Cancelling ctx rejects any fragments still awaiting
// review; it does not abort the assembly.
func Reassemble(ctx context.Context, results []pipeline.Result, opts Options) (string, error) {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Log == nil {
		opts.Log = log.Default()
	}

	ordered := make([]pipeline.Result, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Fragment.Index < ordered[j].Fragment.Index
	})

	session := &ReviewSession{}
	reviewer := newReviewer(opts)

	var b strings.Builder
	for _, r := range ordered {
		text := matchTrailingNewline(r.Fragment.Text, r.Text)
		if text != r.Fragment.Text {
			switch {
			case opts.DryRun:
				renderFragmentDiff(opts.Out, r.Fragment.Name(), r.Fragment.Text, text)
			case opts.Interactive:
				text = reviewer.review(ctx, r.Fragment, text, session)
			}
		}
		b.WriteString(text)
	}

	doc := b.String()
	if doc != "" && !strings.HasSuffix(doc, "\n") {
		doc += "\n"
	}
	return doc, nil
}

// matchTrailingNewline appends a newline to transformed when the original
// ended with one and the transformed text does not. Without this, adjacent
// fragments merge onto one line and corrupt syntax.
func matchTrailingNewline(original, transformed string) string {
	if strings.HasSuffix(original, "\n") && transformed != "" && !strings.HasSuffix(transformed, "\n") {
		return transformed + "\n"
	}
	return transformed
}
