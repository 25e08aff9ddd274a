package extraction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/oracle"
)

// TraceComparator aligns the extracted activity sequence against a
// hand-labeled reference sequence. Exact matching is impossible because
// both sides are free-text labels produced independently, so each pair
// inside a local window is judged by the oracle and ties break on the
// linear probability of the affirmative answer. The window bounds the
// quadratic oracle cost and encodes the assumption that corresponding
// events sit temporally close in both sequences.
type TraceComparator struct {
	Oracle oracle.Client
	// Threshold is the minimum confidence an accepted match must carry.
	Threshold float64
	// Pause is slept before every equivalence call as a rate courtesy to
	// the oracle provider.
	Pause time.Duration
}

func (c *TraceComparator) Kind() StageKind { return StageComparison }

func (c *TraceComparator) Execute(ctx context.Context, state *StageState) error {
	if len(state.Reference) == 0 {
		return errors.New("comparison stage requires a reference trace")
	}

	candidate := activityLabels(state.Events)
	reference := activityLabels(state.Reference)

	result, err := c.Compare(ctx, candidate, reference)
	if err != nil {
		return err
	}
	state.Comparison = &result
	return nil
}

// Compare produces both directional mappings plus the diagnostics derived
// from them.
func (c *TraceComparator) Compare(ctx context.Context, candidate, reference []string) (models.ComparisonResult, error) {
	dataToRef, err := c.mapSequence(ctx, candidate, reference)
	if err != nil {
		return models.ComparisonResult{}, err
	}
	refToData, err := c.mapSequence(ctx, reference, candidate)
	if err != nil {
		return models.ComparisonResult{}, err
	}

	// Gap filling works from snapshots so a link adopted in one direction
	// cannot manufacture evidence for the other.
	dataSnapshot := cloneMapping(dataToRef)
	refSnapshot := cloneMapping(refToData)
	fillGaps(&dataToRef, refSnapshot)
	fillGaps(&refToData, dataSnapshot)

	result := models.ComparisonResult{
		DataToReference: dataToRef,
		ReferenceToData: refToData,
		DataMatchPct:    matchPercentage(dataToRef),
		ReferencePct:    matchPercentage(refToData),
		Violations:      orderViolations(refToData, reference),
	}
	for i, mapped := range refToData.Indexes {
		if mapped == models.UnmappedIndex {
			result.Missing = append(result.Missing, reference[i])
		}
	}
	for i, mapped := range dataToRef.Indexes {
		if mapped == models.UnmappedIndex {
			result.Unexpected = append(result.Unexpected, candidate[i])
		}
	}
	return result, nil
}

// mapSequence resolves each entry of from against a window of to. The
// window is sized by to's length, so its width adapts to how much longer
// or shorter the two sequences are.
func (c *TraceComparator) mapSequence(ctx context.Context, from, to []string) (models.Mapping, error) {
	mapping := models.Mapping{
		Indexes:     make([]int, len(from)),
		Confidences: make([]float64, len(from)),
	}

	for i, label := range from {
		mapping.Indexes[i] = models.UnmappedIndex

		center := i
		if center >= len(to) {
			center = len(to) - 1
		}
		lo, hi := windowBounds(center, len(to))

		best := models.UnmappedIndex
		bestConfidence := 0.0
		for j := lo; j < hi; j++ {
			if err := c.pause(ctx); err != nil {
				return models.Mapping{}, err
			}
			answer, probs, err := c.Oracle.CompleteWithConfidence(ctx, equivalenceMessages(label, to[j]))
			if err != nil {
				return models.Mapping{}, fmt.Errorf("comparing %q with %q: %w", label, to[j], err)
			}
			if !affirmative(answer) {
				continue
			}
			if confidence := topTokenConfidence(probs); confidence > bestConfidence {
				best = j
				bestConfidence = confidence
			}
		}

		if best == models.UnmappedIndex || bestConfidence < c.Threshold {
			continue
		}
		mapping.Indexes[i] = best
		mapping.Confidences[i] = bestConfidence
	}

	return mapping, nil
}

// fillGaps recovers matches that were asymmetric due to window placement:
// an unmapped entry adopts the strongest reverse link pointing at it.
func fillGaps(mapping *models.Mapping, reverse models.Mapping) {
	for i, mapped := range mapping.Indexes {
		if mapped != models.UnmappedIndex {
			continue
		}
		best := models.UnmappedIndex
		bestConfidence := 0.0
		for j, back := range reverse.Indexes {
			if back != i {
				continue
			}
			if reverse.Confidences[j] > bestConfidence {
				best = j
				bestConfidence = reverse.Confidences[j]
			}
		}
		if best != models.UnmappedIndex {
			mapping.Indexes[i] = best
			mapping.Confidences[i] = bestConfidence
		}
	}
}

// orderViolations reports every inverted reference pair independently:
// pairwise evidence, deduplicated by exact pair identity, never transitively
// reduced into a total order.
func orderViolations(refToData models.Mapping, reference []string) []models.OrderViolation {
	var violations []models.OrderViolation
	seen := make(map[[2]int]bool)
	for i := 0; i < len(refToData.Indexes); i++ {
		if refToData.Indexes[i] == models.UnmappedIndex {
			continue
		}
		for k := i + 1; k < len(refToData.Indexes); k++ {
			if refToData.Indexes[k] == models.UnmappedIndex {
				continue
			}
			if refToData.Indexes[i] <= refToData.Indexes[k] {
				continue
			}
			pair := [2]int{i, k}
			if seen[pair] {
				continue
			}
			seen[pair] = true
			violations = append(violations, models.OrderViolation{
				First:          i,
				Second:         k,
				FirstActivity:  reference[i],
				SecondActivity: reference[k],
			})
		}
	}
	return violations
}

func matchPercentage(mapping models.Mapping) float64 {
	if len(mapping.Indexes) == 0 {
		return 0
	}
	mapped := 0
	for _, index := range mapping.Indexes {
		if index != models.UnmappedIndex {
			mapped++
		}
	}
	return math.Round(100 * float64(mapped) / float64(len(mapping.Indexes)))
}

func (c *TraceComparator) pause(ctx context.Context) error {
	if c.Pause <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.Pause):
		return nil
	}
}

func cloneMapping(m models.Mapping) models.Mapping {
	return models.Mapping{
		Indexes:     append([]int(nil), m.Indexes...),
		Confidences: append([]float64(nil), m.Confidences...),
	}
}

func activityLabels(events []models.Event) []string {
	labels := make([]string, len(events))
	for i, event := range events {
		labels[i] = event.Activity
	}
	return labels
}
