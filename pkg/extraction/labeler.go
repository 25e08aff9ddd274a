package extraction

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/oracle"
)

// ActivityLabeler turns the sentence list into the initial working table:
// one row per extracted activity, tagged with its source sentence index.
type ActivityLabeler struct {
	Oracle oracle.Client
}

func (l *ActivityLabeler) Kind() StageKind { return StageLabeling }

func (l *ActivityLabeler) Execute(ctx context.Context, state *StageState) error {
	output, err := l.Oracle.Complete(ctx, labelingMessages(state.Sentences), oracle.Options{MaxTokens: 2048})
	if err != nil {
		return fmt.Errorf("labeling activities: %w", err)
	}

	events, warnings := parseActivities(output, len(state.Sentences))
	state.Events = events
	state.Warnings = append(state.Warnings, warnings...)
	return nil
}

// parseActivities parses one bullet line per activity, each terminated with
// a #<sentence-id> marker. Rows whose marker is missing or unparsable keep
// the sentinel index and surface as warnings; they are never dropped, since
// a human reviews the table downstream.
func parseActivities(output string, sentenceCount int) ([]models.Event, []string) {
	var events []models.Event
	var warnings []string

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-* ")
		if line == "" {
			continue
		}

		marker := strings.LastIndex(line, "#")
		if marker < 0 {
			warnings = append(warnings, fmt.Sprintf("activity %q has no sentence marker", line))
			events = append(events, models.Event{Activity: line, SentenceID: models.NoSentence})
			continue
		}

		activity := strings.TrimSpace(line[:marker])
		if activity == "" {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(line[marker+1:]))
		if err != nil || id < 0 || id >= sentenceCount {
			warnings = append(warnings, fmt.Sprintf("activity %q has unresolvable sentence marker %q",
				activity, strings.TrimSpace(line[marker+1:])))
			events = append(events, models.Event{Activity: activity, SentenceID: models.NoSentence})
			continue
		}

		events = append(events, models.Event{Activity: activity, SentenceID: id})
	}

	return events, warnings
}
