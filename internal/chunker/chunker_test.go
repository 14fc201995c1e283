package chunker_test

import (
	"strings"
	"testing"

	"github.com/valpere/reflow/internal/chunker"
	"github.com/valpere/reflow/internal/costs"
	"github.com/valpere/reflow/internal/language"
)

func concat(frags []chunker.Fragment) string {
	var b strings.Builder
	for _, f := range frags {
		b.WriteString(f.Text)
	}
	return b.String()
}

// --- Losslessness ---

func TestSplit_Lossless(t *testing.T) {
	texts := []string{
		"Hello, world!",
		"para one\nline two\n\n\npara two\n",
		"def f():\n    pass\n\ndef g():\n    pass\n",
		"# only comments\n# here\n",
		"setup() {\n  echo hi\n}\nif [ -f x ]; then\n  cat x\nfi\n",
		"no trailing newline",
		"\n\n\nleading blanks\n",
		strings.Repeat("long line of text that goes on\n", 50),
	}
	langs := []language.Language{
		language.FromHint("text"),
		language.FromHint("python"),
		language.FromHint("shell"),
	}
	budgets := []int{0, 5, 100}

	for _, text := range texts {
		for _, lang := range langs {
			for _, budget := range budgets {
				frags := chunker.Split(text, lang, budget)
				if got := concat(frags); got != text {
					t.Errorf("lang=%s budget=%d: concatenation differs\n got: %q\nwant: %q",
						lang.Hint, budget, got, text)
				}
				for i, f := range frags {
					if f.Index != i {
						t.Errorf("fragment %d has index %d", i, f.Index)
					}
				}
			}
		}
	}
}

// --- Empty input ---

func TestSplit_EmptyDocument(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t\n"} {
		frags := chunker.Split(text, language.FromHint("python"), 100)
		if len(frags) != 1 {
			t.Fatalf("input %q: expected exactly 1 fragment, got %d", text, len(frags))
		}
		if !frags[0].IsEmpty() {
			t.Errorf("input %q: expected empty fragment, got %q", text, frags[0].Text)
		}
	}
}

// --- Paragraph splitting ---

func TestSplit_ParagraphDelimiterAttachedToPreceding(t *testing.T) {
	text := "para one\nline two\n\n\npara two\n"
	frags := chunker.Split(text, language.FromHint("text"), 0)

	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	if frags[0].Text != "para one\nline two\n\n\n" {
		t.Errorf("delimiter not attached to preceding paragraph: %q", frags[0].Text)
	}
	if frags[1].Text != "para two\n" {
		t.Errorf("unexpected second paragraph: %q", frags[1].Text)
	}
}

// --- Indent-structured splitting ---

func TestSplit_IndentedTopLevelDefs(t *testing.T) {
	text := "def f():\n    pass\n\ndef g():\n    pass\n"
	frags := chunker.Split(text, language.FromHint("python"), 0)

	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	for _, f := range frags {
		if !strings.HasPrefix(f.Text, "def ") {
			t.Errorf("fragment %d does not begin at a def: %q", f.Index, f.Text)
		}
	}
}

func TestSplit_IndentedLeadingCommentFoldsForward(t *testing.T) {
	text := "# module header\n\ndef f():\n    pass\n"
	frags := chunker.Split(text, language.FromHint("python"), 0)

	if len(frags) != 1 {
		t.Fatalf("expected the header to fold into the def, got %d fragments", len(frags))
	}
	if frags[0].Text != text {
		t.Errorf("folded fragment differs: %q", frags[0].Text)
	}
}

func TestSplit_AllCommentsSingleFragment(t *testing.T) {
	text := "# a\n# b\n"
	frags := chunker.Split(text, language.FromHint("python"), 0)
	if len(frags) != 1 || frags[0].Text != text {
		t.Fatalf("expected single fragment with original text, got %+v", frags)
	}
}

// --- Shell splitting ---

func TestSplit_ShellContinuationKeepsLinesTogether(t *testing.T) {
	text := "echo hi \\\n--flag\n"
	frags := chunker.Split(text, language.FromHint("shell"), 0)

	if len(frags) != 1 {
		t.Fatalf("expected 1 fragment across the continuation, got %d", len(frags))
	}
	if frags[0].Text != text {
		t.Errorf("fragment differs: %q", frags[0].Text)
	}
}

func TestSplit_ShellFunctionAndKeywordBoundaries(t *testing.T) {
	text := "setup() {\n  echo hi\n}\nif [ -f x ]; then\n  cat x\nfi\nteardown() {\n  rm x\n}\n"
	frags := chunker.Split(text, language.FromHint("shell"), 0)

	if len(frags) != 3 {
		t.Fatalf("expected 3 fragments, got %d: %+v", len(frags), frags)
	}
	if !strings.HasPrefix(frags[1].Text, "if ") {
		t.Errorf("second fragment should begin at if: %q", frags[1].Text)
	}
	if !strings.HasPrefix(frags[2].Text, "teardown()") {
		t.Errorf("third fragment should begin at teardown: %q", frags[2].Text)
	}
}

// --- Token budget ---

func TestSplit_BudgetBound(t *testing.T) {
	line := strings.Repeat("x", 11) + "\n" // ~3 tokens per line
	text := strings.Repeat(line, 10)
	budget := 5

	frags := chunker.Split(text, language.FromHint("text"), budget)
	if concat(frags) != text {
		t.Fatal("budget subdivision broke losslessness")
	}
	for _, f := range frags {
		if est := costs.EstimateTokens(f.Text); est > budget {
			t.Errorf("fragment %d exceeds budget: %d > %d", f.Index, est, budget)
		}
	}
}

func TestSplit_BudgetNeverSplitsMidLine(t *testing.T) {
	text := strings.Repeat("y", 100) + "\n"
	frags := chunker.Split(text, language.FromHint("text"), 5)

	if len(frags) != 1 {
		t.Fatalf("a single over-budget line must stay whole, got %d fragments", len(frags))
	}
	if frags[0].Text != text {
		t.Errorf("line was altered: %q", frags[0].Text)
	}
}

// --- Naming ---

func TestFragmentNames(t *testing.T) {
	f := chunker.Fragment{Index: 7}
	if f.Name() != "chunk_0007" {
		t.Errorf("unexpected name: %s", f.Name())
	}
	if f.OutputName() != "output_chunk_0007" {
		t.Errorf("unexpected output name: %s", f.OutputName())
	}
}
