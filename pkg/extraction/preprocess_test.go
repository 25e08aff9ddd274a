package extraction

import (
	"context"
	"testing"

	"github.com/tracemed-ai/platform/pkg/oracle"
)

func TestPreprocessorReplacesTextAndResegments(t *testing.T) {
	client := &stubOracle{
		complete: func(messages []oracle.Message) (string, error) {
			return "I had a fever on March 1st 2021. Then I saw my doctor.", nil
		},
	}
	preprocessor := &Preprocessor{Oracle: client}

	state := &StageState{
		JourneyText: "i had a fevr on 1.3.21, then doctor",
		Sentences:   SplitSentences("i had a fevr on 1.3.21, then doctor"),
	}
	if err := preprocessor.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(state.Sentences) != 2 {
		t.Errorf("got %d sentences after preprocessing, want 2: %v", len(state.Sentences), state.Sentences)
	}
	if state.JourneyText != "I had a fever on March 1st 2021. Then I saw my doctor." {
		t.Errorf("journey text = %q", state.JourneyText)
	}
}

func TestPreprocessorKeepsOriginalOnEmptyAnswer(t *testing.T) {
	client := &stubOracle{
		complete: func(messages []oracle.Message) (string, error) {
			return "   ", nil
		},
	}
	preprocessor := &Preprocessor{Oracle: client}

	original := "I had a fever."
	state := &StageState{JourneyText: original, Sentences: SplitSentences(original)}
	if err := preprocessor.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if state.JourneyText != original {
		t.Errorf("journey text changed: %q", state.JourneyText)
	}
	if len(state.Warnings) != 1 {
		t.Errorf("warnings = %v, want one", state.Warnings)
	}
}
