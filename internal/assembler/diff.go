package assembler

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	addLine = color.New(color.FgGreen)
	delLine = color.New(color.FgRed)
)

// renderFragmentDiff writes a line-oriented diff of one fragment to w.
func renderFragmentDiff(w io.Writer, name, original, transformed string) {
	fmt.Fprintf(w, "--- %s\n", name)

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(original, transformed)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			if !strings.HasSuffix(line, "\n") {
				line += "\n"
			}
			switch d.Type {
			case diffmatchpatch.DiffInsert:
				addLine.Fprintf(w, "+%s", line)
			case diffmatchpatch.DiffDelete:
				delLine.Fprintf(w, "-%s", line)
			default:
				fmt.Fprintf(w, " %s", line)
			}
		}
	}
}
