package assembler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/valpere/reflow/internal/chunker"
)

// ReviewSession is the state threaded through an interactive review.
// Once AcceptAll is set it is sticky: later fragments of the same
// document are auto-accepted without prompting.
type ReviewSession struct {
	AcceptAll bool
}

type reviewer struct {
	in     *bufio.Reader
	out    io.Writer
	editor string
	log    *log.Logger

	start sync.Once
	lines chan string
}

func newReviewer(opts Options) *reviewer {
	editor := opts.Editor
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}
	return &reviewer{
		in:     bufio.NewReader(opts.In),
		out:    opts.Out,
		editor: editor,
		log:    opts.Log,
		lines:  make(chan string),
	}
}

// readLine waits for the next input line or for cancellation, whichever
// comes first. The reader goroutine is started lazily so non-interactive
// runs never touch stdin.
func (rv *reviewer) readLine(ctx context.Context) (string, bool) {
	rv.start.Do(func() {
		go func() {
			defer close(rv.lines)
			for {
				line, err := rv.in.ReadString('\n')
				if err != nil {
					return
				}
				rv.lines <- line
			}
		}()
	})

	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-rv.lines:
		return line, ok
	}
}

// review resolves one changed fragment to its final text. Interruption
// during the prompt, whether a closed input or a cancelled context,
// rejects the fragment and keeps going.
func (rv *reviewer) review(ctx context.Context, f chunker.Fragment, transformed string, session *ReviewSession) string {
	if session.AcceptAll {
		return transformed
	}
	if ctx.Err() != nil {
		return f.Text
	}

	renderFragmentDiff(rv.out, f.Name(), f.Text, transformed)

	for {
		fmt.Fprintf(rv.out, "%s: [a]ccept, [r]eject, [e]dit, accept [A]ll? ", f.Name())
		line, ok := rv.readLine(ctx)
		if !ok {
			rv.log.Warn("review interrupted, rejecting fragment", "fragment", f.Name())
			return f.Text
		}

		switch strings.TrimSpace(line) {
		case "a":
			return transformed
		case "r":
			return f.Text
		case "A":
			session.AcceptAll = true
			return transformed
		case "e":
			edited, eerr := rv.edit(transformed)
			if eerr != nil {
				rv.log.Warn("editor failed", "err", eerr)
				continue
			}
			return matchTrailingNewline(f.Text, edited)
		default:
			fmt.Fprintln(rv.out, "please answer a, r, e, or A")
		}
	}
}

// edit round-trips content through the external editor.
func (rv *reviewer) edit(content string) (string, error) {
	tmp, err := os.CreateTemp("", "reflow-edit-*")
	if err != nil {
		return "", fmt.Errorf("failed to create edit buffer: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write edit buffer: %w", err)
	}
	tmp.Close()

	parts := strings.Fields(rv.editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor exited with error: %w", err)
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read edited content: %w", err)
	}
	return string(edited), nil
}
