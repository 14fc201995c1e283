// Package checkpoint persists which fragments of an output target have
// been durably processed, so an interrupted run can resume without
// re-paying for completed work.
//
// The ledger is a plain-text, append-only sibling of the output target:
// one fragment basename per line. Appends are independent single-line
// writes, so completing workers need no shared lock; a crash mid-run loses
// at most the in-flight fragments.
package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Suffix tags the ledger file next to its output target.
const Suffix = ".reflow-ckpt"

// Ledger tracks completed fragment names for one output target.
type Ledger struct {
	path string
}

// PathFor returns the ledger path for an output target.
func PathFor(target string) string {
	return target + Suffix
}

// Open returns the ledger for target. The file itself is created lazily on
// the first append.
func Open(target string) *Ledger {
	return &Ledger{path: PathFor(target)}
}

// Path returns the on-disk location of the ledger file.
func (l *Ledger) Path() string {
	return l.path
}

// Exists reports whether a ledger file is present, i.e. whether this run
// is a resume.
func (l *Ledger) Exists() bool {
	_, err := os.Stat(l.path)
	return err == nil
}

// Load returns the set of fragment names recorded so far. A missing file
// means nothing is complete yet.
func (l *Ledger) Load() (map[string]bool, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer f.Close()

	done := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			done[name] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return done, nil
}

// Append durably records one completed fragment. The file is opened per
// append: the append is the unit of recoverability.
func (l *Ledger) Append(name string) error {
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint for append: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, name); err != nil {
		return fmt.Errorf("failed to append checkpoint entry: %w", err)
	}
	return f.Sync()
}

// Remove deletes the ledger file. Called only when every fragment of the
// target has reached a terminal state without error.
func (l *Ledger) Remove() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove checkpoint: %w", err)
	}
	return nil
}
