package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tracemed-ai/platform/pkg/common/logger"
	"github.com/tracemed-ai/platform/pkg/common/models"
)

var ErrRunNotFound = errors.New("extraction: run not found")

// RunRegistry tracks in-flight and recently finished runs in Redis. It
// replaces in-process singleton state: the HTTP caller keeps only the run
// id and rehydrates status by polling. Entries expire after the TTL.
type RunRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRunRegistry(client *redis.Client, ttl time.Duration) *RunRegistry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RunRegistry{client: client, ttl: ttl}
}

func runKey(runID string) string { return "run:" + runID }

func (r *RunRegistry) Create(ctx context.Context, runID string, journeyID uuid.UUID) error {
	key := runKey(runID)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"status":     models.RunPending,
		"percent":    0,
		"journey_id": journeyID.String(),
	})
	pipe.Expire(ctx, key, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// UpdateProgress implements ProgressSink.
func (r *RunRegistry) UpdateProgress(ctx context.Context, runID string, percent int, stage string) {
	err := r.client.HSet(ctx, runKey(runID), map[string]interface{}{
		"status":  models.RunRunning,
		"percent": percent,
		"stage":   stage,
	}).Err()
	if err != nil {
		logger.Log.WithError(err).WithField("run_id", runID).Warn("failed to record run progress")
	}
}

func (r *RunRegistry) Complete(ctx context.Context, runID string, result RunResult) error {
	fields := map[string]interface{}{
		"status":   models.RunCompleted,
		"percent":  100,
		"stage":    "",
		"trace_id": result.Trace.ID.String(),
	}
	if len(result.Warnings) > 0 {
		if data, err := json.Marshal(result.Warnings); err == nil {
			fields["warnings"] = string(data)
		}
	}
	if result.Comparison != nil {
		if data, err := json.Marshal(result.Comparison); err == nil {
			fields["comparison"] = string(data)
		}
	}
	return r.client.HSet(ctx, runKey(runID), fields).Err()
}

func (r *RunRegistry) Fail(ctx context.Context, runID string, cause error) error {
	return r.client.HSet(ctx, runKey(runID), map[string]interface{}{
		"status": models.RunFailed,
		"error":  cause.Error(),
	}).Err()
}

func (r *RunRegistry) Get(ctx context.Context, runID string) (models.RunStatus, error) {
	values, err := r.client.HGetAll(ctx, runKey(runID)).Result()
	if err != nil {
		return models.RunStatus{}, err
	}
	if len(values) == 0 {
		return models.RunStatus{}, ErrRunNotFound
	}

	status := models.RunStatus{
		RunID:  runID,
		Status: values["status"],
		Stage:  values["stage"],
		Error:  values["error"],
	}
	if percent, err := strconv.Atoi(values["percent"]); err == nil {
		status.Percent = percent
	}
	if journeyID, err := uuid.Parse(values["journey_id"]); err == nil {
		status.JourneyID = journeyID
	}
	if traceID, err := uuid.Parse(values["trace_id"]); err == nil {
		status.TraceID = &traceID
	}
	if raw := values["warnings"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &status.Warnings)
	}
	return status, nil
}

// GetComparison returns the stored comparison result for a completed run,
// or nil when the run had no comparison stage.
func (r *RunRegistry) GetComparison(ctx context.Context, runID string) (*models.ComparisonResult, error) {
	raw, err := r.client.HGet(ctx, runKey(runID), "comparison").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result models.ComparisonResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
