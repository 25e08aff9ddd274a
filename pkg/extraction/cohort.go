package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/oracle"
)

// CohortTagger extracts demographic metadata once per journey: five
// independent whole-text queries, one per attribute. "Not determinable" is
// a valid outcome for every field; a cohort with no resolved field at all
// collapses to nil.
type CohortTagger struct {
	Oracle oracle.Client
}

func (t *CohortTagger) Kind() StageKind { return StageCohort }

func (t *CohortTagger) Execute(ctx context.Context, state *StageState) error {
	values := make(map[string]string, len(cohortAttributes))
	for _, attribute := range cohortAttributes {
		answer, err := t.Oracle.Complete(ctx, cohortMessages(attribute, state.JourneyText), oracle.Options{MaxTokens: 64})
		if err != nil {
			return fmt.Errorf("tagging cohort attribute %s: %w", attribute.field, err)
		}
		values[attribute.field] = normalizeCohortValue(answer)
	}

	cohort := models.Cohort{
		Condition:            values["condition"],
		Sex:                  values["sex"],
		Age:                  values["age"],
		Origin:               values["origin"],
		PreexistingCondition: values["preexisting_condition"],
	}
	if cohort.Empty() {
		state.Cohort = nil
		return nil
	}
	state.Cohort = &cohort
	return nil
}

func normalizeCohortValue(answer string) string {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" || strings.EqualFold(trimmed, models.NotAvailable) {
		return ""
	}
	return trimmed
}
