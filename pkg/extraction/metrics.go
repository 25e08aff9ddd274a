package extraction

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/oracle"
)

var relevanceLevels = []string{"High Relevance", "Moderate Relevance", "Low Relevance"}

const relevanceFallback = "Moderate Relevance"

// MetricsAnalyzer scores each event twice: categorical relevance to the
// disease course, and a yes/no check of the extracted timestamps against
// the full narrative. The second answer carries a linear confidence derived
// from the oracle's top-token log probability; this is the one place the
// pipeline reads oracle internals rather than text.
type MetricsAnalyzer struct {
	Oracle oracle.Client
}

func (m *MetricsAnalyzer) Kind() StageKind { return StageMetrics }

func (m *MetricsAnalyzer) Execute(ctx context.Context, state *StageState) error {
	condition := ""
	if state.Cohort != nil {
		condition = state.Cohort.Condition
	}

	for i := range state.Events {
		event := &state.Events[i]

		relevance, err := m.Oracle.CompleteStructured(ctx, relevanceMessages(event.Activity, condition), oracle.Schema{
			Name: "relevance",
			Enum: relevanceLevels,
		})
		if err != nil {
			return fmt.Errorf("scoring relevance of %q: %w", event.Activity, err)
		}
		event.Relevance = canonicalRelevance(relevance)

		answer, probs, err := m.Oracle.CompleteWithConfidence(ctx, timeCheckMessages(
			state.JourneyText,
			event.Activity,
			event.Start.Format(models.TimestampLayout),
			event.End.Format(models.TimestampLayout),
		))
		if err != nil {
			return fmt.Errorf("checking timestamps of %q: %w", event.Activity, err)
		}

		correct := affirmative(answer)
		event.TimeCorrect = &correct
		event.TimeConfidence = topTokenConfidence(probs)
	}
	return nil
}

func canonicalRelevance(answer string) string {
	trimmed := strings.TrimSpace(answer)
	for _, level := range relevanceLevels {
		if strings.EqualFold(level, trimmed) {
			return level
		}
	}
	return relevanceFallback
}

func affirmative(answer string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(answer))
	return strings.HasPrefix(trimmed, "yes") || strings.HasPrefix(trimmed, "true")
}

// topTokenConfidence converts the first token's log probability into a
// linear confidence.
func topTokenConfidence(probs []oracle.TokenProb) float64 {
	if len(probs) == 0 {
		return 0
	}
	return math.Exp(probs[0].LogProb)
}
