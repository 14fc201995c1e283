// Package language maps file extensions and language hints to the
// structural traits the chunker and linter need: how top-level units are
// delimited, what a comment line looks like, and which external lint tool
// understands the language.
package language

import (
	"path/filepath"
	"strings"
)

// Structure describes how a language delimits its top-level units.
type Structure int

const (
	// Plain text: paragraphs separated by blank lines.
	Plain Structure = iota
	// Indented: top-level statements start at column 0, bodies are indented.
	Indented
	// ShellLike: functions and control-flow keywords open units; backslash
	// continuations extend a line.
	ShellLike
)

// Language bundles the traits keyed by a language hint.
type Language struct {
	Hint          string
	Structure     Structure
	CommentPrefix string
	// LintCmd is the external checker invocation; the tool reads the text
	// on stdin. Empty means no checker is known for this language.
	LintCmd []string
}

var byExtension = map[string]Language{
	".py":   {Hint: "python", Structure: Indented, CommentPrefix: "#", LintCmd: []string{"pyflakes"}},
	".pyi":  {Hint: "python", Structure: Indented, CommentPrefix: "#", LintCmd: []string{"pyflakes"}},
	".sh":   {Hint: "shell", Structure: ShellLike, CommentPrefix: "#", LintCmd: []string{"shellcheck", "--shell=bash", "-"}},
	".bash": {Hint: "shell", Structure: ShellLike, CommentPrefix: "#", LintCmd: []string{"shellcheck", "--shell=bash", "-"}},
	".zsh":  {Hint: "shell", Structure: ShellLike, CommentPrefix: "#"},
	".yaml": {Hint: "yaml", Structure: Indented, CommentPrefix: "#", LintCmd: []string{"yamllint", "-"}},
	".yml":  {Hint: "yaml", Structure: Indented, CommentPrefix: "#", LintCmd: []string{"yamllint", "-"}},
	".md":   {Hint: "markdown", Structure: Plain, CommentPrefix: ""},
	".txt":  {Hint: "text", Structure: Plain, CommentPrefix: ""},
}

var byHint = func() map[string]Language {
	m := make(map[string]Language, len(byExtension))
	for _, l := range byExtension {
		// Extensions can share a hint (.sh and .zsh are both "shell");
		// keep the entry that knows a lint command.
		if prev, ok := m[l.Hint]; ok && len(prev.LintCmd) > 0 {
			continue
		}
		m[l.Hint] = l
	}
	return m
}()

// FromPath infers a Language from the file extension. Unknown extensions
// return a Plain language whose hint is the extension without the dot.
func FromPath(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if l, ok := byExtension[ext]; ok {
		return l
	}
	return Language{Hint: strings.TrimPrefix(ext, "."), Structure: Plain}
}

// FromHint resolves a language hint given explicitly by the caller.
// Unknown hints are kept as-is with Plain structure so the hint still
// reaches the transformation prompt.
func FromHint(hint string) Language {
	if l, ok := byHint[strings.ToLower(hint)]; ok {
		return l
	}
	return Language{Hint: hint, Structure: Plain}
}

// IsCommentLine reports whether the trimmed line is a comment in this
// language. Languages without a comment prefix never match.
func (l Language) IsCommentLine(line string) bool {
	if l.CommentPrefix == "" {
		return false
	}
	return strings.HasPrefix(strings.TrimSpace(line), l.CommentPrefix)
}
