package database

import (
	"fmt"
	"log"
)

// CreateTables creates the service's tables if they don't exist
func (d *Database) CreateTables() error {
	if err := d.createReportPhotosTable(); err != nil {
		return err
	}
	if err := d.createGenerationsTable(); err != nil {
		return err
	}
	return nil
}

func (d *Database) createReportPhotosTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS report_photos (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		report_id VARCHAR(64) NOT NULL,
		content_url TEXT NOT NULL,
		override_url TEXT,
		category VARCHAR(32) DEFAULT '',
		position VARCHAR(32) DEFAULT '',
		description TEXT,
		display_order INT DEFAULT 0,
		last_processed_at TIMESTAMP NULL,
		last_processed_hash VARCHAR(64) DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_report_photos_report_id (report_id),
		INDEX idx_report_photos_category (category)
	)`

	_, err := d.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create report_photos table: %w", err)
	}

	log.Println("report_photos table created/verified successfully")
	return nil
}

func (d *Database) createGenerationsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS report_generations (
		run_id VARCHAR(64) NOT NULL PRIMARY KEY,
		report_id VARCHAR(64) NOT NULL,
		outcome ENUM('complete', 'error') NOT NULL,
		photos_processed INT DEFAULT 0,
		photos_skipped INT DEFAULT 0,
		vehicle_source VARCHAR(16) DEFAULT '',
		summary JSON,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_report_generations_report_id (report_id),
		INDEX idx_report_generations_created_at (created_at)
	)`

	_, err := d.db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create report_generations table: %w", err)
	}

	log.Println("report_generations table created/verified successfully")
	return nil
}
