package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tracemed-ai/platform/pkg/common/logger"
	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/oracle"
	"github.com/tracemed-ai/platform/pkg/redaction"
)

// TraceStore is the persistence collaborator the orchestrator saves to and
// loads references from.
type TraceStore interface {
	SaveTrace(ctx context.Context, journeyID uuid.UUID, events []models.Event, cohort *models.Cohort, reference bool) (models.Trace, error)
	LoadReferenceTrace(ctx context.Context, journeyName string) ([]models.Event, error)
}

// Publisher is the event-bus collaborator; nil disables publishing.
type Publisher interface {
	Publish(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// ProgressSink receives coarse progress while a run is in flight; the HTTP
// layer polls whatever the sink wrote. Nil disables reporting.
type ProgressSink interface {
	UpdateProgress(ctx context.Context, runID string, percent int, stage string)
}

// RunResult is everything one pipeline run produces.
type RunResult struct {
	Trace      models.Trace
	Comparison *models.ComparisonResult
	Warnings   []string
}

// Orchestrator executes one extraction run at a time: it instantiates the
// configured stages in fixed dependency order and threads the shared state
// through them sequentially. Every run gets its own state; nothing is
// shared across runs except the collaborators below.
type Orchestrator struct {
	Oracle         oracle.Client
	Store          TraceStore
	Publisher      Publisher
	Progress       ProgressSink
	Vocabulary     Vocabulary
	Redactor       *redaction.Redactor
	MatchThreshold float64
	ComparePause   time.Duration
}

// Run executes the configured pipeline over one journey. Oracle transport
// failures abort the run with nothing persisted; per-row judgment failures
// were already recovered as sentinels inside the stages.
func (o *Orchestrator) Run(ctx context.Context, runID string, journey models.PatientJourney, cfg Configuration) (RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return RunResult{}, fmt.Errorf("invalid configuration: %w", err)
	}

	text := journey.Text
	if o.Redactor != nil {
		masked, hits := o.Redactor.Apply(text)
		if len(hits) > 0 {
			logger.Log.WithFields(map[string]interface{}{
				"run_id": runID,
				"types":  hits,
			}).Info("redacted identifiers from journey text")
		}
		text = masked
	}

	state := &StageState{
		JourneyText: text,
		Sentences:   SplitSentences(text),
	}

	if cfg.stageActive(StageComparison) {
		reference, err := o.Store.LoadReferenceTrace(ctx, journey.Name)
		if err != nil {
			return RunResult{}, fmt.Errorf("loading reference trace: %w", err)
		}
		state.Reference = reference
	}

	stages := o.buildStages(cfg)
	for i, stage := range stages {
		o.report(ctx, runID, i*100/(len(stages)+1), stageLabels[stage.Kind()])
		logger.Log.WithFields(map[string]interface{}{
			"run_id": runID,
			"stage":  stage.Kind(),
		}).Info("executing stage")

		if err := stage.Execute(ctx, state); err != nil {
			return RunResult{}, err
		}
	}

	o.report(ctx, runID, len(stages)*100/(len(stages)+1), "Saving trace")
	trace, err := o.Store.SaveTrace(ctx, journey.ID, state.Events, state.Cohort, false)
	if err != nil {
		return RunResult{}, err
	}

	if o.Publisher != nil {
		data := map[string]interface{}{
			"trace_id":     trace.ID.String(),
			"journey_id":   journey.ID.String(),
			"case_id":      trace.CaseID,
			"activity_key": string(cfg.ActivityKey),
		}
		if err := o.Publisher.Publish(ctx, "trace.saved", "extraction-service", data); err != nil {
			logger.Log.WithError(err).Error("failed to publish trace.saved")
		}
	}

	o.report(ctx, runID, 100, "Done")
	return RunResult{
		Trace:      trace,
		Comparison: state.Comparison,
		Warnings:   state.Warnings,
	}, nil
}

func (o *Orchestrator) buildStages(cfg Configuration) []Module {
	var stages []Module
	for _, kind := range cfg.orderedStages() {
		switch kind {
		case StagePreprocess:
			stages = append(stages, &Preprocessor{Oracle: o.Oracle})
		case StageLabeling:
			stages = append(stages, &ActivityLabeler{Oracle: o.Oracle})
		case StageCohort:
			stages = append(stages, &CohortTagger{Oracle: o.Oracle})
		case StageTime:
			stages = append(stages, &TimeExtractor{Oracle: o.Oracle})
		case StageEventType:
			stages = append(stages, NewEventTypeClassifier(o.Oracle, cfg, o.Vocabulary))
		case StageLocation:
			stages = append(stages, NewLocationClassifier(o.Oracle, cfg, o.Vocabulary))
		case StageMetrics:
			stages = append(stages, &MetricsAnalyzer{Oracle: o.Oracle})
		case StageComparison:
			stages = append(stages, &TraceComparator{
				Oracle:    o.Oracle,
				Threshold: o.MatchThreshold,
				Pause:     o.ComparePause,
			})
		}
	}
	return stages
}

func (o *Orchestrator) report(ctx context.Context, runID string, percent int, stage string) {
	if o.Progress == nil {
		return
	}
	o.Progress.UpdateProgress(ctx, runID, percent, stage)
}
