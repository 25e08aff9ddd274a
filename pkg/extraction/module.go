package extraction

import (
	"context"
	"fmt"

	"github.com/tracemed-ai/platform/pkg/common/models"
)

type StageKind string

const (
	StagePreprocess StageKind = "preprocess"
	StageLabeling   StageKind = "activity_labeling"
	StageCohort     StageKind = "cohort_tagging"
	StageTime       StageKind = "time_extraction"
	StageEventType  StageKind = "event_type_classification"
	StageLocation   StageKind = "location_classification"
	StageMetrics    StageKind = "metrics"
	StageComparison StageKind = "comparison"
)

// stageOrder fixes the dependency order stages run in. A configuration
// selects a subset; it never reorders.
var stageOrder = []StageKind{
	StagePreprocess,
	StageLabeling,
	StageCohort,
	StageTime,
	StageEventType,
	StageLocation,
	StageMetrics,
	StageComparison,
}

var stageLabels = map[StageKind]string{
	StagePreprocess: "Preprocessing journey",
	StageLabeling:   "Extracting activities",
	StageCohort:     "Tagging cohort",
	StageTime:       "Extracting timestamps",
	StageEventType:  "Classifying event types",
	StageLocation:   "Classifying locations",
	StageMetrics:    "Scoring quality metrics",
	StageComparison: "Comparing against reference",
}

func knownStage(kind StageKind) bool {
	for _, k := range stageOrder {
		if k == kind {
			return true
		}
	}
	return false
}

// StageState is the shared record threaded through the pipeline. Each stage
// reads the columns earlier stages produced and appends its own; no stage
// reorders rows.
type StageState struct {
	JourneyText string
	Sentences   []string
	Events      []models.Event
	Cohort      *models.Cohort
	Reference   []models.Event
	Comparison  *models.ComparisonResult
	Warnings    []string
}

func (s *StageState) Warn(format string, args ...interface{}) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Module is the uniform stage contract. Execute mutates the shared state;
// a returned error aborts the whole run. Per-row judgment failures are
// recovered with sentinel values instead, so only transport-level oracle
// failures surface here.
type Module interface {
	Kind() StageKind
	Execute(ctx context.Context, state *StageState) error
}
