package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photo-intel-pipeline/config"
	"photo-intel-pipeline/database"
	"photo-intel-pipeline/handlers"
	"photo-intel-pipeline/metrics"
	"photo-intel-pipeline/rabbitmq"
	"photo-intel-pipeline/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load .env if present; real environments set variables directly
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	cfg := config.Load()

	// Validate required configuration
	switch cfg.LLMProvider {
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			log.Fatal("OPENAI_API_KEY environment variable is required")
		}
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			log.Fatal("GEMINI_API_KEY environment variable is required")
		}
	}

	metrics.Register()

	// Initialize database
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize service
	svc := service.NewService(cfg, db)
	if err := svc.Start(); err != nil {
		log.Fatalf("Failed to start service: %v", err)
	}

	// Background generation on photo events, when a broker is configured
	var subscriber *rabbitmq.Subscriber
	if cfg.RabbitMQURL != "" {
		subscriber, err = rabbitmq.NewSubscriber(
			cfg.RabbitMQURL, cfg.RabbitMQExchange, cfg.RabbitMQPhotoQueue,
			cfg.RabbitMQWorkers, cfg.RabbitMQPrefetch)
		if err != nil {
			log.Printf("Failed to initialize RabbitMQ subscriber: %v", err)
		} else {
			err = subscriber.Start(map[string]rabbitmq.CallbackFunc{
				"photos.uploaded": func(msg *rabbitmq.Message) error {
					var payload struct {
						ReportID string `json:"report_id"`
					}
					if err := msg.UnmarshalTo(&payload); err != nil || payload.ReportID == "" {
						return rabbitmq.Permanent(err)
					}
					return svc.HandlePhotoUploaded(context.Background(), payload.ReportID)
				},
			})
			if err != nil {
				log.Printf("Failed to start RabbitMQ subscriber: %v", err)
			}
		}
	}

	// Initialize handlers
	h := handlers.NewHandlers(db, svc)

	// Setup HTTP server
	router := gin.Default()

	// API routes
	api := router.Group("/api/v3")
	{
		api.GET("/health", h.HealthCheck)
		api.POST("/reports/:id/generate", h.GenerateReport)
		api.GET("/reports/:id/generation", h.GetGeneration)
		api.GET("/stats", h.GetStats)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if subscriber != nil {
		if err := subscriber.Close(); err != nil {
			log.Printf("Failed to close subscriber: %v", err)
		}
	}
	svc.Stop()

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
