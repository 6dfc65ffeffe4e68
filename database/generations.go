package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"photo-intel-pipeline/models"
)

// Generation is one stored pipeline run.
type Generation struct {
	RunID           string                    `json:"run_id"`
	ReportID        string                    `json:"report_id"`
	Outcome         string                    `json:"outcome"`
	PhotosProcessed int                       `json:"photos_processed"`
	PhotosSkipped   int                       `json:"photos_skipped"`
	VehicleSource   string                    `json:"vehicle_source"`
	Summary         *models.GenerationSummary `json:"summary,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
}

// SaveGeneration persists a finished run. The full summary is stored as JSON
// alongside the queryable columns.
func (d *Database) SaveGeneration(reportID, outcome string, summary *models.GenerationSummary) error {
	blob, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal generation summary: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT INTO report_generations
			(run_id, report_id, outcome, photos_processed, photos_skipped, vehicle_source, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, reportID, outcome,
		summary.PhotosProcessed, summary.PhotosSkipped,
		string(summary.VehicleSource), blob)
	if err != nil {
		return fmt.Errorf("failed to save generation: %w", err)
	}
	return nil
}

// GetLatestGeneration returns the most recent run for a report, or nil when
// the report has never been generated.
func (d *Database) GetLatestGeneration(reportID string) (*Generation, error) {
	row := d.db.QueryRow(`
		SELECT run_id, report_id, outcome, photos_processed, photos_skipped,
		       vehicle_source, summary, created_at
		FROM report_generations
		WHERE report_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, reportID)

	var g Generation
	var blob []byte
	err := row.Scan(&g.RunID, &g.ReportID, &g.Outcome, &g.PhotosProcessed,
		&g.PhotosSkipped, &g.VehicleSource, &blob, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest generation: %w", err)
	}
	if len(blob) > 0 {
		var summary models.GenerationSummary
		if err := json.Unmarshal(blob, &summary); err == nil {
			g.Summary = &summary
		}
	}
	return &g, nil
}

// GenerationStats are the aggregate counters for the status endpoint.
type GenerationStats struct {
	TotalRuns       int `json:"total_runs"`
	CompletedRuns   int `json:"completed_runs"`
	FailedRuns      int `json:"failed_runs"`
	PhotosProcessed int `json:"photos_processed"`
	PhotosSkipped   int `json:"photos_skipped"`
}

// GetGenerationStats aggregates across all stored runs.
func (d *Database) GetGenerationStats() (*GenerationStats, error) {
	row := d.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(outcome = 'complete'), 0),
		       COALESCE(SUM(outcome = 'error'), 0),
		       COALESCE(SUM(photos_processed), 0),
		       COALESCE(SUM(photos_skipped), 0)
		FROM report_generations`)

	var s GenerationStats
	if err := row.Scan(&s.TotalRuns, &s.CompletedRuns, &s.FailedRuns, &s.PhotosProcessed, &s.PhotosSkipped); err != nil {
		return nil, fmt.Errorf("failed to query generation stats: %w", err)
	}
	return &s, nil
}
