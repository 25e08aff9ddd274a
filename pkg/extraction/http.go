package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/tracemed-ai/platform/pkg/common/logger"
	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/journeys"
)

type HTTPHandler struct {
	repo         *journeys.Repository
	registry     *RunRegistry
	orchestrator *Orchestrator
	baseConfig   Configuration
	maxBody      int64
}

func NewHTTPHandler(repo *journeys.Repository, registry *RunRegistry, orchestrator *Orchestrator, baseConfig Configuration, maxBody int64) *HTTPHandler {
	return &HTTPHandler{
		repo:         repo,
		registry:     registry,
		orchestrator: orchestrator,
		baseConfig:   baseConfig,
		maxBody:      maxBody,
	}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/journeys", h.handleCreateJourney).Methods(http.MethodPost)
	router.HandleFunc("/journeys", h.handleListJourneys).Methods(http.MethodGet)
	router.HandleFunc("/journeys/{id}", h.handleGetJourney).Methods(http.MethodGet)
	router.HandleFunc("/journeys/{id}/traces", h.handleListTraces).Methods(http.MethodGet)
	router.HandleFunc("/journeys/{id}/reference", h.handleSaveReference).Methods(http.MethodPost)
	router.HandleFunc("/runs", h.handleStartRun).Methods(http.MethodPost)
	router.HandleFunc("/runs/{id}", h.handleRunStatus).Methods(http.MethodGet)
	router.HandleFunc("/runs/{id}/result", h.handleRunResult).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleCreateJourney(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.CreateJourneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Text) == "" {
		http.Error(w, "name and text are required", http.StatusBadRequest)
		return
	}

	journey, err := h.repo.CreateJourney(r.Context(), req.Name, req.Text)
	if err != nil {
		logger.Log.WithError(err).Error("failed to create journey")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.publish(r.Context(), "journey.created", map[string]interface{}{
		"journey_id": journey.ID.String(),
		"name":       journey.Name,
	})

	writeJSON(w, http.StatusCreated, journey)
}

func (h *HTTPHandler) handleListJourneys(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListJourneys(r.Context(), 0)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list journeys")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *HTTPHandler) handleGetJourney(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid journey id", http.StatusBadRequest)
		return
	}

	journey, err := h.repo.GetJourney(r.Context(), id)
	if err != nil {
		if errors.Is(err, journeys.ErrNotFound) {
			http.Error(w, "journey not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch journey")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, journey)
}

func (h *HTTPHandler) handleListTraces(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid journey id", http.StatusBadRequest)
		return
	}

	traces, err := h.repo.ListTraces(r.Context(), id, 0)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list traces")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, traces)
}

type saveReferenceRequest struct {
	Events []models.Event `json:"events"`
	Cohort *models.Cohort `json:"cohort,omitempty"`
}

func (h *HTTPHandler) handleSaveReference(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid journey id", http.StatusBadRequest)
		return
	}

	var req saveReferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Events) == 0 {
		http.Error(w, "reference trace needs at least one event", http.StatusBadRequest)
		return
	}

	if _, err := h.repo.GetJourney(r.Context(), id); err != nil {
		if errors.Is(err, journeys.ErrNotFound) {
			http.Error(w, "journey not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch journey")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	trace, err := h.repo.SaveTrace(r.Context(), id, req.Events, req.Cohort, true)
	if err != nil {
		logger.Log.WithError(err).Error("failed to save reference trace")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, trace)
}

type startRunRequest struct {
	JourneyID    uuid.UUID `json:"journey_id"`
	EventTypes   *[]string `json:"event_types,omitempty"`
	Locations    *[]string `json:"locations,omitempty"`
	ActiveStages *[]string `json:"active_stages,omitempty"`
	ActivityKey  *string   `json:"activity_key,omitempty"`
}

func (h *HTTPHandler) handleStartRun(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req startRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	journey, err := h.repo.GetJourney(r.Context(), req.JourneyID)
	if err != nil {
		if errors.Is(err, journeys.ErrNotFound) {
			http.Error(w, "journey not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch journey")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	cfg := h.baseConfig.Apply(req.patch())
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	runID := uuid.New().String()
	if err := h.registry.Create(r.Context(), runID, journey.ID); err != nil {
		logger.Log.WithError(err).Error("failed to register run")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// The run outlives the request; the caller polls the registry.
	go h.executeRun(runID, journey, cfg)

	writeJSON(w, http.StatusAccepted, models.StartRunResponse{RunID: runID})
}

func (h *HTTPHandler) executeRun(runID string, journey models.PatientJourney, cfg Configuration) {
	ctx := context.Background()
	result, err := h.orchestrator.Run(ctx, runID, journey, cfg)
	if err != nil {
		logger.Log.WithError(err).WithField("run_id", runID).Error("extraction run failed")
		if regErr := h.registry.Fail(ctx, runID, err); regErr != nil {
			logger.Log.WithError(regErr).Error("failed to record run failure")
		}
		h.publish(ctx, "run.failed", map[string]interface{}{
			"run_id":     runID,
			"journey_id": journey.ID.String(),
			"error":      err.Error(),
		})
		return
	}
	if err := h.registry.Complete(ctx, runID, result); err != nil {
		logger.Log.WithError(err).Error("failed to record run completion")
	}
	h.publish(ctx, "run.completed", map[string]interface{}{
		"run_id":     runID,
		"journey_id": journey.ID.String(),
		"trace_id":   result.Trace.ID.String(),
	})
}

func (h *HTTPHandler) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if h.orchestrator == nil || h.orchestrator.Publisher == nil {
		return
	}
	if err := h.orchestrator.Publisher.Publish(ctx, eventType, "extraction-service", data); err != nil {
		logger.Log.WithError(err).WithField("event_type", eventType).Error("failed to publish event")
	}
}

func (h *HTTPHandler) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	status, err := h.registry.Get(r.Context(), runID)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch run status")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type runResultResponse struct {
	Status     models.RunStatus         `json:"status"`
	Trace      *models.Trace            `json:"trace,omitempty"`
	Comparison *models.ComparisonResult `json:"comparison,omitempty"`
}

func (h *HTTPHandler) handleRunResult(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	status, err := h.registry.Get(r.Context(), runID)
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to fetch run status")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if status.Status != models.RunCompleted {
		http.Error(w, "run not completed", http.StatusConflict)
		return
	}

	response := runResultResponse{Status: status}
	if status.TraceID != nil {
		trace, err := h.repo.GetTrace(r.Context(), *status.TraceID)
		if err != nil {
			logger.Log.WithError(err).Error("failed to fetch trace")
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		response.Trace = &trace
	}
	comparison, err := h.registry.GetComparison(r.Context(), runID)
	if err == nil {
		response.Comparison = comparison
	}

	writeJSON(w, http.StatusOK, response)
}

func (req startRunRequest) patch() Patch {
	patch := Patch{
		EventTypes: req.EventTypes,
		Locations:  req.Locations,
	}
	if req.ActiveStages != nil {
		stages := make([]StageKind, 0, len(*req.ActiveStages))
		for _, name := range *req.ActiveStages {
			stages = append(stages, StageKind(name))
		}
		patch.ActiveStages = &stages
	}
	if req.ActivityKey != nil {
		key := ActivityKey(*req.ActivityKey)
		patch.ActivityKey = &key
	}
	return patch
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
