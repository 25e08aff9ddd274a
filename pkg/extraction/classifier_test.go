package extraction

import (
	"context"
	"testing"

	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/oracle"
)

func TestClassifierCachesRepeatedLabels(t *testing.T) {
	client := &stubOracle{
		structured: func(messages []oracle.Message, schema oracle.Schema) (string, error) {
			return "Doctor Visit", nil
		},
	}
	vocab := DefaultVocabulary()
	classifier := NewEventTypeClassifier(client, DefaultConfiguration(vocab), vocab)

	state := &StageState{Events: []models.Event{
		{Activity: "saw my doctor"},
		{Activity: "felt dizzy"},
		{Activity: "saw my doctor"},
	}}
	if err := classifier.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if client.structuredCalls != 2 {
		t.Errorf("got %d oracle calls, want 2 (one per distinct label)", client.structuredCalls)
	}
	if state.Events[0].EventType != "Doctor Visit" || state.Events[2].EventType != "Doctor Visit" {
		t.Errorf("repeated label classified inconsistently: %+v", state.Events)
	}
}

func TestClassifierFallsBackOnOutOfSetAnswer(t *testing.T) {
	client := &stubOracle{
		structured: func(messages []oracle.Message, schema oracle.Schema) (string, error) {
			return "Something Entirely Different", nil
		},
	}
	vocab := DefaultVocabulary()
	classifier := NewLocationClassifier(client, DefaultConfiguration(vocab), vocab)

	state := &StageState{Events: []models.Event{{Activity: "felt dizzy"}}}
	if err := classifier.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if state.Events[0].Location != vocab.DefaultLocation {
		t.Errorf("location = %q, want fallback %q", state.Events[0].Location, vocab.DefaultLocation)
	}
}

func TestClassifierCanonicalizesCase(t *testing.T) {
	client := &stubOracle{
		structured: func(messages []oracle.Message, schema oracle.Schema) (string, error) {
			return "  hospital admission ", nil
		},
	}
	vocab := DefaultVocabulary()
	classifier := NewEventTypeClassifier(client, DefaultConfiguration(vocab), vocab)

	state := &StageState{Events: []models.Event{{Activity: "was admitted"}}}
	if err := classifier.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if state.Events[0].EventType != "Hospital Admission" {
		t.Errorf("event type = %q, want canonical set member", state.Events[0].EventType)
	}
}

func TestClassifierFallbackCoercedIntoConfiguredSet(t *testing.T) {
	// A run may narrow the vocabulary to a subset that excludes the
	// vocabulary default; the fallback must still be a set member.
	client := &stubOracle{
		structured: func(messages []oracle.Message, schema oracle.Schema) (string, error) {
			return "nonsense", nil
		},
	}
	vocab := DefaultVocabulary()
	cfg := DefaultConfiguration(vocab)
	cfg.EventTypes = []string{"Diagnosis", "Treatment"}

	classifier := NewEventTypeClassifier(client, cfg, vocab)
	state := &StageState{Events: []models.Event{{Activity: "felt dizzy"}}}
	if err := classifier.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if state.Events[0].EventType != "Diagnosis" {
		t.Errorf("event type = %q, want first configured value", state.Events[0].EventType)
	}
}
