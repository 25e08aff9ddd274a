package extraction

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/oracle"
)

func TestParseTimestamp(t *testing.T) {
	got := parseTimestamp("20210314T0930")
	want := time.Date(2021, time.March, 14, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseTimestamp = %v, want %v", got, want)
	}

	for _, raw := range []string{"", "N/A", "n/a", "sometime in March", "2021-03-14"} {
		if !parseTimestamp(raw).IsZero() {
			t.Errorf("parseTimestamp(%q) should be zero", raw)
		}
	}
}

func TestResolveTimestampsFillsGaps(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2021, time.March, d, 0, 0, 0, 0, time.UTC) }

	starts := []time.Time{{}, day(3), {}, day(7), {}}
	ends := []time.Time{{}, {}, {}, {}, {}}
	resolveTimestamps(starts, ends)

	wantStarts := []time.Time{day(3), day(3), day(3), day(7), day(7)}
	for i := range wantStarts {
		if !starts[i].Equal(wantStarts[i]) {
			t.Errorf("starts[%d] = %v, want %v", i, starts[i], wantStarts[i])
		}
		if !ends[i].Equal(starts[i]) {
			t.Errorf("ends[%d] = %v, want start %v", i, ends[i], starts[i])
		}
	}
}

func TestResolveTimestampsAllMissingDefaultsToEpoch(t *testing.T) {
	starts := make([]time.Time, 3)
	ends := make([]time.Time, 3)
	resolveTimestamps(starts, ends)

	for i := range starts {
		if !starts[i].Equal(defaultEpoch) {
			t.Errorf("starts[%d] = %v, want epoch", i, starts[i])
		}
		if !ends[i].Equal(defaultEpoch) {
			t.Errorf("ends[%d] = %v, want epoch", i, ends[i])
		}
	}
}

func TestResolveTimestampsEndBeforeStart(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2021, time.March, d, 0, 0, 0, 0, time.UTC) }

	starts := []time.Time{day(10)}
	ends := []time.Time{day(2)}
	resolveTimestamps(starts, ends)

	if !ends[0].Equal(day(10)) {
		t.Errorf("end before start should snap to start, got %v", ends[0])
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{90 * time.Second, "00:01:30"},
		{3 * time.Hour, "03:00:00"},
		{26*time.Hour + 5*time.Minute, "26:05:00"},
		{300 * time.Hour, "300:00:00"},
		{-time.Hour, "00:00:00"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestTimeExtractorExecute(t *testing.T) {
	client := &stubOracle{
		structured: func(messages []oracle.Message, schema oracle.Schema) (string, error) {
			content := messages[len(messages)-1].Content
			switch schema.Name {
			case "start_timestamp":
				if strings.Contains(content, "Activity: fever") {
					return "20210301T0000", nil
				}
				return models.NotAvailable, nil
			case "end_timestamp":
				if strings.Contains(content, "Activity: fever") {
					return "20210303T0000", nil
				}
				return models.NotAvailable, nil
			}
			t.Fatalf("unexpected schema %q", schema.Name)
			return "", nil
		},
	}
	extractor := &TimeExtractor{Oracle: client}

	state := &StageState{
		Sentences: []string{"I had a fever starting March 1st 2021 until March 3rd.", "Then I rested."},
		Events: []models.Event{
			{Activity: "fever", SentenceID: 0},
			{Activity: "rested", SentenceID: 1},
		},
	}
	if err := extractor.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	feverStart := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	feverEnd := time.Date(2021, time.March, 3, 0, 0, 0, 0, time.UTC)
	if !state.Events[0].Start.Equal(feverStart) || !state.Events[0].End.Equal(feverEnd) {
		t.Errorf("fever row = %v .. %v", state.Events[0].Start, state.Events[0].End)
	}
	if state.Events[0].Duration != "48:00:00" {
		t.Errorf("fever duration = %q, want 48:00:00", state.Events[0].Duration)
	}

	// The second row had no parsable answer; it inherits the last known
	// start and its end snaps to that start.
	if !state.Events[1].Start.Equal(feverStart) {
		t.Errorf("rested start = %v, want inherited %v", state.Events[1].Start, feverStart)
	}
	if !state.Events[1].End.Equal(state.Events[1].Start) {
		t.Errorf("rested end = %v, want its start", state.Events[1].End)
	}
	if state.Events[1].Duration != "00:00:00" {
		t.Errorf("rested duration = %q", state.Events[1].Duration)
	}
}
