package models

import "time"

// PhotoInput is a photo reference handed to the pipeline by the caller.
// The pipeline only reads it; persistence of the processed stamp happens
// on the caller's side using the (photo id, new hash) pairs in the summary.
type PhotoInput struct {
	ID                string     `json:"id"`
	ContentURL        string     `json:"content_url"`
	OverrideURL       string     `json:"override_url,omitempty"`
	LastProcessedAt   *time.Time `json:"last_processed_at,omitempty"`
	LastProcessedHash string     `json:"last_processed_hash,omitempty"`
}

// EffectiveURL is the URL actually analyzed: the override wins when set.
func (p PhotoInput) EffectiveURL() string {
	if p.OverrideURL != "" {
		return p.OverrideURL
	}
	return p.ContentURL
}

// ImageData holds fetched image bytes for the duration of one pipeline run.
// Never persisted.
type ImageData struct {
	Base64    string `json:"base64"`
	MediaType string `json:"media_type"`
}

// ProcessedStamp tells the caller to record that a photo was processed
// against a particular content hash.
type ProcessedStamp struct {
	PhotoID string `json:"photo_id"`
	NewHash string `json:"new_hash"`
}
