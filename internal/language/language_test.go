package language

import "testing"

func TestFromPath(t *testing.T) {
	tests := []struct {
		path      string
		hint      string
		structure Structure
	}{
		{"script.py", "python", Indented},
		{"deploy.sh", "shell", ShellLike},
		{"notes.md", "markdown", Plain},
		{"config.yaml", "yaml", Indented},
		{"README", "", Plain},
		{"archive.xyz", "xyz", Plain},
	}
	for _, tt := range tests {
		l := FromPath(tt.path)
		if l.Hint != tt.hint {
			t.Errorf("FromPath(%q).Hint = %q, want %q", tt.path, l.Hint, tt.hint)
		}
		if l.Structure != tt.structure {
			t.Errorf("FromPath(%q).Structure = %v, want %v", tt.path, l.Structure, tt.structure)
		}
	}
}

func TestFromHint_UnknownKeepsHint(t *testing.T) {
	l := FromHint("fortran")
	if l.Hint != "fortran" {
		t.Errorf("unknown hint lost: %q", l.Hint)
	}
	if l.Structure != Plain {
		t.Errorf("unknown hint should default to Plain")
	}
}

func TestIsCommentLine(t *testing.T) {
	py := FromHint("python")
	if !py.IsCommentLine("  # a comment") {
		t.Error("indented comment not recognized")
	}
	if py.IsCommentLine("x = 1  # trailing") {
		t.Error("code with trailing comment misclassified")
	}

	txt := FromHint("text")
	if txt.IsCommentLine("# not a comment in plain text") {
		t.Error("plain text has no comment syntax")
	}
}
