package llm

import (
	"context"

	"photo-intel-pipeline/models"
)

// Tier selects the cost/latency class of an inference call. Classification
// and simple extractions run on the fast tier; damage analysis, document
// OCR, and calculation extraction run on the deep tier.
type Tier string

const (
	TierFast Tier = "fast"
	TierDeep Tier = "deep"
)

// Client abstracts the multimodal inference provider.
// Implementations must be concurrency-safe; the pipeline fans out calls
// across goroutines. Responses are free text expected to contain a JSON
// object, possibly wrapped in markdown fences — callers parse fail-soft.
type Client interface {
	// Generate sends one or more images plus an instruction prompt and
	// returns the raw text response.
	Generate(ctx context.Context, images []models.ImageData, prompt string, tier Tier) (string, error)
	// SourceName returns a short provider label (e.g., "ChatGPT", "Gemini").
	SourceName() string
}
