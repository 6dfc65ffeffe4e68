package analyzers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/parser"
)

const vinPrompt = `You are an OCR assistant. Your task is to find the vehicle identification number (VIN) in this photo.
A VIN is exactly 17 characters long and never contains the letters I, O, or Q.

Respond with a single JSON object and nothing else:
{"vin": "<the 17-character VIN, or null if none is readable>"}`

// vinPattern matches the standard 17-character VIN alphabet (no I, O, Q).
var vinPattern = regexp.MustCompile(`[A-HJ-NPR-Z0-9]{17}`)

// DetectVIN runs the fast-tier VIN read. The result is nil when no valid
// identifier appears anywhere in the response.
func (a *Analyzer) DetectVIN(ctx context.Context, photoID string, img models.ImageData, _ Context) (*string, []string, error) {
	v, err := cache.GetOrCompute(a.cache, photoID, OpVIN, func() (stringCached, error) {
		response, err := a.llm.Generate(ctx, []models.ImageData{img}, vinPrompt, llm.TierFast)
		if err != nil {
			return stringCached{}, fmt.Errorf("vin detection call failed: %w", err)
		}
		vin, warnings := DecodeVIN(photoID, response)
		return stringCached{Value: vin, Warnings: warnings}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return v.Value, v.Warnings, nil
}

// DecodeVIN extracts a valid VIN from the response. The JSON field is
// preferred; failing that, the whole free-text response is scanned so a
// chatty model still yields a result.
func DecodeVIN(photoID, response string) (*string, []string) {
	if obj, ok := parser.Object(response); ok {
		if raw := parser.Str(obj, "vin", ""); raw != "" {
			candidate := strings.ToUpper(strings.ReplaceAll(raw, " ", ""))
			if m := vinPattern.FindString(candidate); m != "" {
				return &m, nil
			}
			return nil, []string{fmt.Sprintf("photo %s: reported VIN %q is not a valid 17-character VIN", photoID, raw)}
		}
	}

	if m := vinPattern.FindString(strings.ToUpper(response)); m != "" {
		return &m, nil
	}
	return nil, nil
}
