package postprocess

import "testing"

func TestExtract_FencedBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "fenced block with language tag",
			input:    "Here is the rewritten code:\n```python\ndef f():\n    pass\n```\nLet me know if you need more.",
			expected: "def f():\n    pass\n",
		},
		{
			name:     "first of several blocks wins",
			input:    "```\nfirst\n```\ntext\n```\nsecond\n```",
			expected: "first\n",
		},
		{
			name:     "unterminated fence keeps the tail",
			input:    "```sh\necho hi\n",
			expected: "echo hi\n",
		},
		{
			name:     "inner whitespace preserved verbatim",
			input:    "```\n    indented\n\n  lines\n```",
			expected: "    indented\n\n  lines\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.input); got != tt.expected {
				t.Errorf("Extract() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtract_ThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no artifacts",
			input:    "plain rewritten text",
			expected: "plain rewritten text",
		},
		{
			name:     "thinking block removed",
			input:    "<thinking>hmm, tricky</thinking>result text",
			expected: "result text",
		},
		{
			name:     "reasoning block removed",
			input:    "start<reasoning>analysis</reasoning> end",
			expected: "start end",
		},
		{
			name:     "case insensitive tags",
			input:    "<THINK>loud thoughts</THINK>answer",
			expected: "answer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.input); got != tt.expected {
				t.Errorf("Extract() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExtract_InstructionEchoes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "here is the rewritten code",
			input:    "Here is the rewritten code: x = 1",
			expected: "x = 1",
		},
		{
			name:     "the updated version",
			input:    "The updated version: y = 2",
			expected: "y = 2",
		},
		{
			name:     "certainly prefix",
			input:    "Certainly, here's the rewritten text: done",
			expected: "done",
		},
		{
			name:     "mid-text phrase is kept",
			input:    "config: here is the rewritten code: value",
			expected: "config: here is the rewritten code: value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.input); got != tt.expected {
				t.Errorf("Extract() = %q, want %q", got, tt.expected)
			}
		})
	}
}
