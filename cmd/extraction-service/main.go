package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/tracemed-ai/platform/pkg/common/config"
	"github.com/tracemed-ai/platform/pkg/common/database"
	"github.com/tracemed-ai/platform/pkg/common/kafka"
	"github.com/tracemed-ai/platform/pkg/common/logger"
	"github.com/tracemed-ai/platform/pkg/extraction"
	"github.com/tracemed-ai/platform/pkg/journeys"
	"github.com/tracemed-ai/platform/pkg/oracle"
	"github.com/tracemed-ai/platform/pkg/redaction"
)

func main() {
	godotenv.Load()
	logger.Init("extraction-service")
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres()

	repo := journeys.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to run migrations")
	}

	registry := extraction.NewRunRegistry(database.GetRedis(), cfg.RunTTL)
	defer database.CloseRedis()

	producer := kafka.NewProducer("extraction-events")
	defer producer.Close()

	vocabulary := extraction.DefaultVocabulary()
	if cfg.VocabularyPath != "" {
		vocabulary, err = extraction.LoadVocabulary(cfg.VocabularyPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to load vocabulary")
		}
	}

	var redactor *redaction.Redactor
	if cfg.RedactJourneys {
		rules := redaction.DefaultRules()
		if cfg.RedactionRulesPath != "" {
			rules, err = redaction.LoadRules(cfg.RedactionRulesPath)
			if err != nil {
				logger.Log.WithError(err).Fatal("Failed to load redaction rules")
			}
		}
		redactor, err = redaction.NewRedactor(rules)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to build redactor")
		}
	}

	orchestrator := &extraction.Orchestrator{
		Oracle:         oracle.NewChatClient(cfg.OracleAPIKey, cfg.OracleBaseURL, cfg.OracleModelName, cfg.OracleTimeout),
		Store:          repo,
		Publisher:      producer,
		Progress:       registry,
		Vocabulary:     vocabulary,
		Redactor:       redactor,
		MatchThreshold: cfg.MatchThreshold,
		ComparePause:   cfg.ComparePause,
	}

	handler := extraction.NewHTTPHandler(repo, registry, orchestrator, extraction.DefaultConfiguration(vocabulary), cfg.MaxRequestBody)

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	handler.Register(router.PathPrefix("/api/v1").Subrouter())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Extraction Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Extraction Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Extraction Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
