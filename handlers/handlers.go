package handlers

import (
	"encoding/json"
	"net/http"

	"photo-intel-pipeline/database"
	"photo-intel-pipeline/service"

	"github.com/gin-gonic/gin"
)

// Handlers represents the HTTP handlers
type Handlers struct {
	db      *database.Database
	service *service.Service
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *database.Database, svc *service.Service) *Handlers {
	return &Handlers{db: db, service: svc}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "photo-intel-pipeline",
	})
}

type generateRequest struct {
	ForcePhotoIDs []string `json:"force_photo_ids"`
	FullRerun     bool     `json:"full_rerun"`
}

// GenerateReport starts a generation run and streams its events as
// newline-delimited JSON. The last line is always a complete or error event.
func (h *Handlers) GenerateReport(c *gin.Context) {
	reportID := c.Param("id")
	if reportID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing report id"})
		return
	}

	// An empty body means default options
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	stream, err := h.service.GenerateReport(c.Request.Context(), reportID, service.GenerateOptions{
		ForcePhotoIDs: req.ForcePhotoIDs,
		FullRerun:     req.FullRerun,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start generation"})
		return
	}

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)

	encoder := json.NewEncoder(c.Writer)
	for event := range stream {
		if err := encoder.Encode(event); err != nil {
			// Client went away; the service keeps draining the run.
			return
		}
		c.Writer.Flush()
	}
}

// GetGeneration returns the most recent stored run for a report
func (h *Handlers) GetGeneration(c *gin.Context) {
	reportID := c.Param("id")
	generation, err := h.service.LatestGeneration(reportID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load generation"})
		return
	}
	if generation == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No generation found for report"})
		return
	}
	c.JSON(http.StatusOK, generation)
}

// GetStats returns aggregate generation statistics
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.db.GetGenerationStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get generation stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
