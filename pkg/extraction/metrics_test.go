package extraction

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/oracle"
)

func TestMetricsAnalyzerExecute(t *testing.T) {
	client := &stubOracle{
		structured: func(messages []oracle.Message, schema oracle.Schema) (string, error) {
			if schema.Name != "relevance" {
				t.Fatalf("unexpected schema %q", schema.Name)
			}
			return "high relevance", nil
		},
		confident: func(messages []oracle.Message) (string, []oracle.TokenProb, error) {
			return "Yes", yesProbs(-0.2), nil
		},
	}
	analyzer := &MetricsAnalyzer{Oracle: client}

	state := &StageState{
		JourneyText: "I had a fever.",
		Events: []models.Event{
			{Activity: "fever", Start: time.Now(), End: time.Now()},
		},
	}
	if err := analyzer.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	event := state.Events[0]
	if event.Relevance != "High Relevance" {
		t.Errorf("relevance = %q, want canonical set member", event.Relevance)
	}
	if event.TimeCorrect == nil || !*event.TimeCorrect {
		t.Errorf("time correct = %v, want true", event.TimeCorrect)
	}
	want := math.Exp(-0.2)
	if math.Abs(event.TimeConfidence-want) > 1e-9 {
		t.Errorf("confidence = %v, want %v", event.TimeConfidence, want)
	}
}

func TestMetricsAnalyzerFallbackRelevance(t *testing.T) {
	client := &stubOracle{
		structured: func(messages []oracle.Message, schema oracle.Schema) (string, error) {
			return "not a level", nil
		},
		confident: func(messages []oracle.Message) (string, []oracle.TokenProb, error) {
			return "No", []oracle.TokenProb{{Token: "No", LogProb: -0.1}}, nil
		},
	}
	analyzer := &MetricsAnalyzer{Oracle: client}

	state := &StageState{Events: []models.Event{{Activity: "fever"}}}
	if err := analyzer.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	event := state.Events[0]
	if event.Relevance != relevanceFallback {
		t.Errorf("relevance = %q, want fallback", event.Relevance)
	}
	if event.TimeCorrect == nil || *event.TimeCorrect {
		t.Errorf("time correct = %v, want false", event.TimeCorrect)
	}
}

func TestAffirmative(t *testing.T) {
	cases := map[string]bool{
		"Yes":       true,
		" yes. ":    true,
		"True":      true,
		"No":        false,
		"maybe yes": false,
		"":          false,
	}
	for answer, want := range cases {
		if got := affirmative(answer); got != want {
			t.Errorf("affirmative(%q) = %v, want %v", answer, got, want)
		}
	}
}
