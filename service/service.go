// Package service wires the pipeline to its surroundings: provider
// selection, photo loading, run persistence, and summary publishing.
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"photo-intel-pipeline/analyzers"
	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/classifier"
	"photo-intel-pipeline/config"
	"photo-intel-pipeline/database"
	"photo-intel-pipeline/fetcher"
	"photo-intel-pipeline/gemini"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/metrics"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/openai"
	"photo-intel-pipeline/pipeline"
	"photo-intel-pipeline/rabbitmq"
	"photo-intel-pipeline/stubllm"
	"photo-intel-pipeline/vehicle"

	"github.com/google/uuid"
)

// Service represents the photo intelligence service
type Service struct {
	config    *config.Config
	db        *database.Database
	llmClient llm.Client
	pipeline  *pipeline.Orchestrator
	publisher *rabbitmq.Publisher
}

// NewService creates a new photo intelligence service
func NewService(cfg *config.Config, db *database.Database) *Service {
	client := llm.Client(instrumentedClient{inner: NewLLMClient(cfg)})
	log.Printf("Pipeline LLM provider=%s", client.SourceName())

	memo := cache.New(cfg.CacheTTL)
	orchestrator := pipeline.New(
		fetcher.New(cfg.FetchTimeout),
		classifier.New(client, memo),
		analyzers.New(client, memo),
		vehicle.NewResolver(vehicle.NewRegistry(cfg.RegistryBaseURL), client, memo),
	)

	// Initialize RabbitMQ publisher; generation works without it
	var publisher *rabbitmq.Publisher
	if cfg.RabbitMQURL != "" {
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, "report.generated")
		if err != nil {
			log.Printf("Failed to initialize RabbitMQ publisher: %v", err)
		} else {
			publisher = p
		}
	}

	return &Service{
		config:    cfg,
		db:        db,
		llmClient: client,
		pipeline:  orchestrator,
		publisher: publisher,
	}
}

// instrumentedClient counts upstream inference calls per provider and result.
type instrumentedClient struct {
	inner llm.Client
}

func (c instrumentedClient) SourceName() string { return c.inner.SourceName() }

func (c instrumentedClient) Generate(ctx context.Context, images []models.ImageData, prompt string, tier llm.Tier) (string, error) {
	response, err := c.inner.Generate(ctx, images, prompt, tier)
	result := "success"
	if err != nil {
		result = "error"
	}
	metrics.InferenceCallsTotal.WithLabelValues(c.inner.SourceName(), result).Inc()
	return response, err
}

// NewLLMClient selects the inference provider from config.
func NewLLMClient(cfg *config.Config) llm.Client {
	switch cfg.LLMProvider {
	case "gemini":
		return gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiFastModel, cfg.GeminiDeepModel)
	case "stub":
		return stubllm.NewClient()
	default:
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIFastModel, cfg.OpenAIDeepModel)
	}
}

// Start prepares the service's storage
func (s *Service) Start() error {
	log.Println("Starting photo intelligence service...")
	if err := s.db.CreateTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Stop stops the service
func (s *Service) Stop() {
	log.Println("Stopping photo intelligence service...")
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			log.Printf("Failed to close RabbitMQ publisher: %v", err)
		}
	}
}

// GenerateOptions are the per-request knobs of one generation run.
type GenerateOptions struct {
	// ForcePhotoIDs reprocess even when their content is unchanged.
	ForcePhotoIDs []string
	// FullRerun disables the incremental filter for this run.
	FullRerun bool
}

// GenerateReport runs the pipeline for a report's photos and returns the
// event stream. Persistence (stamps, photo updates, the stored generation)
// and publishing happen when the terminal event passes through.
func (s *Service) GenerateReport(ctx context.Context, reportID string, opts GenerateOptions) (<-chan models.Event, error) {
	photos, err := s.db.GetPhotosByReport(reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to load photos for report %s: %w", reportID, err)
	}

	runID := uuid.New().String()
	pipeOpts := pipeline.Options{
		RunID:            runID,
		IncrementalOnly:  s.config.IncrementalOnly && !opts.FullRerun,
		ForcePhotoIDs:    opts.ForcePhotoIDs,
		Concurrency:      s.config.AnalyzeConcurrency,
		DedupThreshold:   s.config.DedupThreshold,
		InferenceTimeout: s.config.InferenceTimeout,
	}

	started := time.Now()
	stream := s.pipeline.Run(ctx, photos, pipeOpts)

	out := make(chan models.Event, 16)
	go func() {
		defer close(out)
		for event := range stream {
			switch event.Type {
			case models.EventComplete:
				s.finishRun(reportID, "complete", event.Summary, started)
			case models.EventError:
				s.finishRun(reportID, "error", &models.GenerationSummary{
					RunID:    runID,
					Warnings: []string{event.Message},
				}, started)
			}
			select {
			case out <- event:
			case <-ctx.Done():
				// Consumer gone; keep draining so persistence still runs.
			}
		}
	}()
	return out, nil
}

// finishRun persists and publishes one terminal outcome.
func (s *Service) finishRun(reportID, outcome string, summary *models.GenerationSummary, started time.Time) {
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	metrics.RunDurationSeconds.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	metrics.PhotosProcessedTotal.Add(float64(summary.PhotosProcessed))
	metrics.PhotosSkippedTotal.Add(float64(summary.PhotosSkipped))
	metrics.WarningsTotal.Add(float64(len(summary.Warnings)))

	if summary.AutoFill != nil {
		if err := s.db.StampProcessed(summary.AutoFill.Stamps); err != nil {
			log.Printf("Failed to stamp processed photos for report %s: %v", reportID, err)
		}
		if err := s.db.ApplyPhotoUpdates(summary.AutoFill.PhotoUpdates); err != nil {
			log.Printf("Failed to apply photo updates for report %s: %v", reportID, err)
		}
	}

	if err := s.db.SaveGeneration(reportID, outcome, summary); err != nil {
		log.Printf("Failed to save generation for report %s: %v", reportID, err)
	}

	if s.publisher != nil {
		message := map[string]any{
			"report_id": reportID,
			"run_id":    summary.RunID,
			"outcome":   outcome,
			"summary":   summary,
		}
		if err := s.publisher.Publish(message); err != nil {
			log.Printf("Failed to publish generation for report %s: %v", reportID, err)
		}
	}
}

// HandlePhotoUploaded runs a background generation for a report whose photos
// changed, draining the event stream internally.
func (s *Service) HandlePhotoUploaded(ctx context.Context, reportID string) error {
	stream, err := s.GenerateReport(ctx, reportID, GenerateOptions{})
	if err != nil {
		return err
	}
	for event := range stream {
		if event.Type == models.EventError {
			return fmt.Errorf("background generation failed: %s", event.Message)
		}
	}
	return nil
}

// LatestGeneration exposes the stored run for the status endpoints.
func (s *Service) LatestGeneration(reportID string) (*database.Generation, error) {
	return s.db.GetLatestGeneration(reportID)
}
