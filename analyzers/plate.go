package analyzers

import (
	"context"
	"fmt"
	"strings"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/parser"
)

const platePrompt = `You are an OCR assistant. Your task is to read the license plate in this photo verbatim, keeping its original spacing and separators.

Respond with a single JSON object and nothing else:
{"plate": "<the plate text, or null if none is readable>"}`

// DetectPlate runs the fast-tier plate read. The result is nil when the
// response is empty or literally "null".
func (a *Analyzer) DetectPlate(ctx context.Context, photoID string, img models.ImageData, _ Context) (*string, []string, error) {
	v, err := cache.GetOrCompute(a.cache, photoID, OpPlate, func() (stringCached, error) {
		response, err := a.llm.Generate(ctx, []models.ImageData{img}, platePrompt, llm.TierFast)
		if err != nil {
			return stringCached{}, fmt.Errorf("plate detection call failed: %w", err)
		}
		return stringCached{Value: DecodePlate(response)}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return v.Value, v.Warnings, nil
}

// DecodePlate extracts the plate string verbatim.
func DecodePlate(response string) *string {
	var raw string
	if obj, ok := parser.Object(response); ok {
		raw = parser.Str(obj, "plate", "")
	} else {
		raw = strings.TrimSpace(response)
	}
	if raw == "" || strings.EqualFold(raw, "null") {
		return nil
	}
	return &raw
}
