package analyzers

import (
	"context"
	"fmt"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/parser"
)

const overviewPrompt = `You are a vehicle condition reporter. Briefly describe the vehicle overview shown in this full-body photo.

Respond with a single JSON object and nothing else:
{
  "color": "<main paint color or null>",
  "make": "<manufacturer or null>",
  "model": "<model name or null>",
  "body_type": "<e.g. sedan, wagon, suv, hatchback or null>",
  "condition_front": "<short note on the visible front condition or null>",
  "condition_rear": "<short note on the visible rear condition or null>"
}`

// AnalyzeOverview runs the fast-tier full-body read. Any field may be empty.
func (a *Analyzer) AnalyzeOverview(ctx context.Context, photoID string, img models.ImageData, _ Context) (models.OverviewResult, []string, error) {
	v, err := cache.GetOrCompute(a.cache, photoID, OpOverview, func() (overviewCached, error) {
		response, err := a.llm.Generate(ctx, []models.ImageData{img}, overviewPrompt, llm.TierFast)
		if err != nil {
			return overviewCached{}, fmt.Errorf("overview analysis call failed: %w", err)
		}
		result, warnings := DecodeOverview(photoID, response)
		return overviewCached{Result: result, Warnings: warnings}, nil
	})
	if err != nil {
		return models.OverviewResult{}, nil, err
	}
	return v.Result, v.Warnings, nil
}

// DecodeOverview validates a raw overview response. The fallback is the
// empty result: every field optional, nothing fatal.
func DecodeOverview(photoID, response string) (models.OverviewResult, []string) {
	obj, ok := parser.Object(response)
	if !ok {
		return models.OverviewResult{}, []string{
			fmt.Sprintf("photo %s: overview response was not valid JSON", photoID),
		}
	}

	return models.OverviewResult{
		Color:          parser.Str(obj, "color", ""),
		Make:           parser.Str(obj, "make", ""),
		Model:          parser.Str(obj, "model", ""),
		BodyType:       parser.Str(obj, "body_type", ""),
		ConditionFront: parser.Str(obj, "condition_front", ""),
		ConditionRear:  parser.Str(obj, "condition_rear", ""),
	}, nil
}
