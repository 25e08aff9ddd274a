package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/oracle"
)

// defaultEpoch replaces a timestamp column that is unparsable in its
// entirety, so downstream sorting and grouping never see a null column.
var defaultEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// TimeExtractor resolves a start and end timestamp per activity from a
// bounded snippet of the journey centered on the activity's sentence, then
// derives the duration. Unparsable values are recovered, never propagated:
// missing entries inherit the nearest known date within the trace.
type TimeExtractor struct {
	Oracle oracle.Client
}

func (t *TimeExtractor) Kind() StageKind { return StageTime }

func (t *TimeExtractor) Execute(ctx context.Context, state *StageState) error {
	starts := make([]time.Time, len(state.Events))
	ends := make([]time.Time, len(state.Events))

	for i, event := range state.Events {
		snippet := snippetAround(state.Sentences, event.SentenceID)

		startRaw, err := t.Oracle.CompleteStructured(ctx, startMessages(snippet, event.Activity), oracle.Schema{
			Name:        "start_timestamp",
			Description: "start timestamp formatted YYYYMMDDTHHMM, or N/A",
		})
		if err != nil {
			return fmt.Errorf("extracting start of %q: %w", event.Activity, err)
		}
		starts[i] = parseTimestamp(startRaw)

		endRaw, err := t.Oracle.CompleteStructured(ctx, endMessages(snippet, event.Activity, startRaw), oracle.Schema{
			Name:        "end_timestamp",
			Description: "end timestamp formatted YYYYMMDDTHHMM, or N/A",
		})
		if err != nil {
			return fmt.Errorf("extracting end of %q: %w", event.Activity, err)
		}
		ends[i] = parseTimestamp(endRaw)
	}

	resolveTimestamps(starts, ends)

	for i := range state.Events {
		state.Events[i].Start = starts[i]
		state.Events[i].End = ends[i]
		state.Events[i].Duration = formatDuration(ends[i].Sub(starts[i]))
	}
	return nil
}

// resolveTimestamps applies the recovery policy: a fully-unparsable column
// defaults to the epoch, remaining gaps fill forward then backward under
// the temporal-continuity assumption, a missing end inherits its start, and
// end >= start is enforced.
func resolveTimestamps(starts, ends []time.Time) {
	if allZero(starts) {
		for i := range starts {
			starts[i] = defaultEpoch
		}
	}
	fillForwardBackward(starts)
	fillForwardBackward(ends)

	for i := range ends {
		if ends[i].IsZero() || ends[i].Before(starts[i]) {
			ends[i] = starts[i]
		}
	}
}

func parseTimestamp(raw string) time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, models.NotAvailable) {
		return time.Time{}
	}
	parsed, err := time.Parse(models.TimestampLayout, trimmed)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func allZero(values []time.Time) bool {
	for _, v := range values {
		if !v.IsZero() {
			return false
		}
	}
	return true
}

func fillForwardBackward(values []time.Time) {
	var last time.Time
	for i := range values {
		if values[i].IsZero() {
			values[i] = last
		} else {
			last = values[i]
		}
	}
	last = time.Time{}
	for i := len(values) - 1; i >= 0; i-- {
		if values[i].IsZero() {
			values[i] = last
		} else {
			last = values[i]
		}
	}
}

// formatDuration renders HH:MM:SS with the hour field widening past two
// digits as needed.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
