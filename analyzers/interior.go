package analyzers

import (
	"context"
	"fmt"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/parser"
)

const interiorPrompt = `You are a vehicle condition reporter. Please assess the interior shown in this cabin photo.

Respond with a single JSON object and nothing else:
{
  "condition": "<good | acceptable | worn | damaged>",
  "features": ["<notable equipment, e.g. navigation, leather seats>"]
}`

var interiorConditionValues = []string{"good", "acceptable", "worn", "damaged"}

// AnalyzeInterior runs the fast-tier interior read.
func (a *Analyzer) AnalyzeInterior(ctx context.Context, photoID string, img models.ImageData, _ Context) (models.InteriorResult, []string, error) {
	v, err := cache.GetOrCompute(a.cache, photoID, OpInterior, func() (interiorCached, error) {
		response, err := a.llm.Generate(ctx, []models.ImageData{img}, interiorPrompt, llm.TierFast)
		if err != nil {
			return interiorCached{}, fmt.Errorf("interior analysis call failed: %w", err)
		}
		result, warnings := DecodeInterior(photoID, response)
		return interiorCached{Result: result, Warnings: warnings}, nil
	})
	if err != nil {
		return models.InteriorResult{}, nil, err
	}
	return v.Result, v.Warnings, nil
}

// DecodeInterior validates a raw interior response.
func DecodeInterior(photoID, response string) (models.InteriorResult, []string) {
	obj, ok := parser.Object(response)
	if !ok {
		return models.InteriorResult{Condition: "acceptable"}, []string{
			fmt.Sprintf("photo %s: interior response was not valid JSON, using fallback", photoID),
		}
	}

	return models.InteriorResult{
		Condition: parser.Enum(obj, "condition", interiorConditionValues, "acceptable"),
		Features:  parser.StringList(obj, "features"),
	}, nil
}
