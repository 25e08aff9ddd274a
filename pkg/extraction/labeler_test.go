package extraction

import (
	"context"
	"testing"

	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/oracle"
)

func TestParseActivities(t *testing.T) {
	output := "- fever started #0\n- doctor visit #2\n* took ibuprofen #3\n"
	events, warnings := parseActivities(output, 5)

	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	want := []models.Event{
		{Activity: "fever started", SentenceID: 0},
		{Activity: "doctor visit", SentenceID: 2},
		{Activity: "took ibuprofen", SentenceID: 3},
	}
	for i := range want {
		if events[i].Activity != want[i].Activity || events[i].SentenceID != want[i].SentenceID {
			t.Errorf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestParseActivitiesMissingMarker(t *testing.T) {
	events, warnings := parseActivities("- fever started\n- doctor visit #1\n", 3)

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].SentenceID != models.NoSentence {
		t.Errorf("markerless row should keep the sentinel, got %d", events[0].SentenceID)
	}
	if len(warnings) != 1 {
		t.Errorf("got %d warnings, want 1: %v", len(warnings), warnings)
	}
}

func TestParseActivitiesOutOfRangeMarker(t *testing.T) {
	events, warnings := parseActivities("- fever started #7\n- chills #-2\n- rash #x\n", 3)

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, event := range events {
		if event.SentenceID != models.NoSentence {
			t.Errorf("event %d should keep the sentinel, got %d", i, event.SentenceID)
		}
	}
	if len(warnings) != 3 {
		t.Errorf("got %d warnings, want 3: %v", len(warnings), warnings)
	}
}

func TestParseActivitiesSkipsEmptyLines(t *testing.T) {
	events, _ := parseActivities("\n\n- fever #0\n   \n", 2)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
}

func TestActivityLabelerExecute(t *testing.T) {
	client := &stubOracle{
		complete: func(messages []oracle.Message) (string, error) {
			return "- fever started #0\n- doctor visit #1", nil
		},
	}
	labeler := &ActivityLabeler{Oracle: client}

	state := &StageState{Sentences: []string{"I had a fever.", "Then I saw a doctor."}}
	if err := labeler.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(state.Events) != 2 {
		t.Fatalf("got %d events, want 2", len(state.Events))
	}
	if state.Events[1].Activity != "doctor visit" || state.Events[1].SentenceID != 1 {
		t.Errorf("unexpected second event: %+v", state.Events[1])
	}
}
