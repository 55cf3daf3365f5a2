package content

import (
	"strings"
	"testing"
)

func TestReSegment(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		title    string
		expected string
	}{
		{
			"joins hard wrapped lines",
			"他说\n今天很好。\n我们走吧！",
			"",
			"他说今天很好。\n我们走吧！",
		},
		{
			"drops leading title line",
			"第一章\n天亮了。",
			"第一章",
			"天亮了。",
		},
		{
			"blank lines end paragraphs",
			"no end\n\nnext line",
			"",
			"no end\nnext line",
		},
		{
			"trims padding",
			"　　first.\n  second.",
			"",
			"first.\nsecond.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReSegment(tt.text, tt.title); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}

	t.Run("splits long paragraph at dialogue", func(t *testing.T) {
		long := strings.Repeat("风很大。", 60) + "“走吧。”" + strings.Repeat("雨停了。", 10)
		got := strings.Split(ReSegment(long, ""), "\n")
		if len(got) != 2 {
			t.Fatalf("expected 2 paragraphs, got %d: %q", len(got), got)
		}
		if !strings.HasPrefix(got[1], "“走吧。”") {
			t.Errorf("expected dialogue to start second paragraph, got %q", got[1])
		}
	})
}
