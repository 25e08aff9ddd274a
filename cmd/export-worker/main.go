package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/tracemed-ai/platform/pkg/common/config"
	"github.com/tracemed-ai/platform/pkg/common/database"
	"github.com/tracemed-ai/platform/pkg/common/kafka"
	"github.com/tracemed-ai/platform/pkg/common/logger"
	"github.com/tracemed-ai/platform/pkg/common/models"
	"github.com/tracemed-ai/platform/pkg/journeys"
	"github.com/tracemed-ai/platform/pkg/processlog"
)

type ExportWorker struct {
	repo      *journeys.Repository
	exportDir string
}

func main() {
	godotenv.Load()
	logger.Init("export-worker")
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres()

	worker := &ExportWorker{
		repo:      journeys.NewRepository(db),
		exportDir: cfg.ExportDir,
	}

	consumer := kafka.NewConsumer("extraction-events", "export-worker")
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Log.Info("Export Worker consuming extraction-events")
		if err := consumer.Consume(ctx, worker.handleEnvelope); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Fatal("Consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, "8081"),
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start health server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Export Worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Export Worker stopped")
}

func (w *ExportWorker) handleEnvelope(ctx context.Context, envelope models.Envelope) error {
	if envelope.Type != "trace.saved" {
		return nil
	}

	raw, _ := envelope.Data["trace_id"].(string)
	traceID, err := uuid.Parse(raw)
	if err != nil {
		logger.Log.WithField("envelope_id", envelope.ID).Warn("trace.saved event without a valid trace_id")
		return nil
	}

	trace, err := w.repo.GetTrace(ctx, traceID)
	if err != nil {
		return fmt.Errorf("loading trace %s: %w", traceID, err)
	}

	keys := processlog.DefaultKeys()
	if key, ok := envelope.Data["activity_key"].(string); ok && key != "" {
		keys.ActivityKey = key
	}

	csvPath, xesPath, err := processlog.ExportTrace(w.exportDir, trace, keys)
	if err != nil {
		return fmt.Errorf("exporting trace %s: %w", traceID, err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"trace_id": traceID.String(),
		"case_id":  trace.CaseID,
		"csv":      csvPath,
		"xes":      xesPath,
	}).Info("Trace exported")

	return nil
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
