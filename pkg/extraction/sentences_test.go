package extraction

import (
	"strings"
	"testing"

	"github.com/tracemed-ai/platform/pkg/common/models"
)

func TestSplitSentences(t *testing.T) {
	text := "I felt feverish in March. Two days later I saw my doctor! Was it the flu? It was."
	sentences := SplitSentences(text)

	want := []string{
		"I felt feverish in March.",
		"Two days later I saw my doctor!",
		"Was it the flu?",
		"It was.",
	}
	if len(sentences) != len(want) {
		t.Fatalf("got %d sentences, want %d: %v", len(sentences), len(want), sentences)
	}
	for i := range want {
		if sentences[i] != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, sentences[i], want[i])
		}
	}
}

func TestSplitSentencesTrailingFragment(t *testing.T) {
	sentences := SplitSentences("First sentence. then it just stops")
	if len(sentences) != 2 {
		t.Fatalf("got %d sentences, want 2: %v", len(sentences), sentences)
	}
	if sentences[1] != "then it just stops" {
		t.Errorf("trailing fragment = %q", sentences[1])
	}
}

func TestSplitSentencesEmpty(t *testing.T) {
	if got := SplitSentences("   "); len(got) != 0 {
		t.Errorf("expected no sentences, got %v", got)
	}
}

func TestSnippetAroundClampsSentinel(t *testing.T) {
	sentences := []string{"a.", "b.", "c.", "d.", "e.", "f."}

	snippet := snippetAround(sentences, models.NoSentence)
	if !strings.HasPrefix(snippet, "a.") {
		t.Errorf("sentinel index should clamp to the start, got %q", snippet)
	}

	snippet = snippetAround(sentences, 100)
	if !strings.HasSuffix(snippet, "f.") {
		t.Errorf("overflow index should clamp to the end, got %q", snippet)
	}

	if got := snippetAround(nil, 0); got != "" {
		t.Errorf("empty sentence list should yield empty snippet, got %q", got)
	}
}

func TestSnippetAroundWindow(t *testing.T) {
	sentences := []string{"s0.", "s1.", "s2.", "s3.", "s4.", "s5.", "s6.", "s7."}
	snippet := snippetAround(sentences, 3)
	if snippet != "s1. s2. s3. s4. s5." {
		t.Errorf("snippet = %q", snippet)
	}
}
