package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"photo-intel-pipeline/config"
	"photo-intel-pipeline/models"

	_ "github.com/go-sql-driver/mysql"
)

// Database represents the database connection
type Database struct {
	db *sql.DB
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection with exponential backoff retry
	var waitInterval time.Duration = 1 * time.Second
	for {
		if err := db.Ping(); err == nil {
			break // Connection successful
		}
		log.Printf("Database connection failed, retrying in %v: %v", waitInterval, err)
		time.Sleep(waitInterval)
		waitInterval *= 2 // Exponential backoff: 1s, 2s, 4s, 8s, ...
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// GetPhotosByReport loads the photo references attached to a report.
func (d *Database) GetPhotosByReport(reportID string) ([]models.PhotoInput, error) {
	rows, err := d.db.Query(`
		SELECT id, content_url, COALESCE(override_url, ''),
		       last_processed_at, COALESCE(last_processed_hash, '')
		FROM report_photos
		WHERE report_id = ?
		ORDER BY display_order, id`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query report photos: %w", err)
	}
	defer rows.Close()

	var photos []models.PhotoInput
	for rows.Next() {
		var p models.PhotoInput
		var processedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.ContentURL, &p.OverrideURL, &processedAt, &p.LastProcessedHash); err != nil {
			return nil, fmt.Errorf("failed to scan photo row: %w", err)
		}
		if processedAt.Valid {
			t := processedAt.Time
			p.LastProcessedAt = &t
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// StampProcessed records the content hash each photo was analyzed against.
func (d *Database) StampProcessed(stamps []models.ProcessedStamp) error {
	if len(stamps) == 0 {
		return nil
	}
	stmt, err := d.db.Prepare(`
		UPDATE report_photos
		SET last_processed_at = NOW(), last_processed_hash = ?
		WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare stamp update: %w", err)
	}
	defer stmt.Close()

	for _, s := range stamps {
		if _, err := stmt.Exec(s.NewHash, s.PhotoID); err != nil {
			return fmt.Errorf("failed to stamp photo %s: %w", s.PhotoID, err)
		}
	}
	return nil
}

// ApplyPhotoUpdates writes back per-photo classification and ordering.
func (d *Database) ApplyPhotoUpdates(updates []models.PhotoUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	stmt, err := d.db.Prepare(`
		UPDATE report_photos
		SET category = ?, position = ?, description = ?, display_order = ?
		WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare photo update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(string(u.Category), string(u.Position), u.Description, u.DisplayOrder, u.PhotoID); err != nil {
			return fmt.Errorf("failed to update photo %s: %w", u.PhotoID, err)
		}
	}
	return nil
}
