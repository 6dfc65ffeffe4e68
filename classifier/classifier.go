// Package classifier assigns each photo its category, vehicle position,
// and ordering hint.
package classifier

import (
	"context"
	"fmt"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/parser"
)

// Operation is the cache operation key for classification results.
const Operation = "classify"

const prompt = `You are a vehicle damage report assistant. Your task is to classify the vehicle photo into exactly one category.

Categories:
- "damage": visible damage to the vehicle body (dents, scratches, broken parts)
- "vin": a close-up of the 17-character vehicle identification number (stamped, etched, or on a sticker)
- "plate": a readable license plate
- "document": a vehicle registration document or title paper
- "overview": a full or three-quarter body shot of the whole vehicle
- "tire": a close-up of a wheel or tire
- "interior": cabin, seats, dashboard, or odometer
- "other": anything else

Also determine:
- "position": where on the vehicle the photo was taken from, one of: front, front_left, front_right, left, right, rear, rear_left, rear_right, roof, underbody, engine_bay, trunk, interior, dashboard, odometer, vin_plate, other
- "suggested_order": a display ordering hint from 1 (lead photo, full front view) to 20 (documents and close-ups last)
- "confidence": your confidence in the category, 0.0 to 1.0
- "damage_location": a short free-text location of the damage, only when category is "damage", otherwise null

Respond with a single JSON object and nothing else:
{"category": "...", "confidence": 0.0, "position": "...", "suggested_order": 1, "damage_location": null}`

// Classifier runs cached, fast-tier classification calls.
type Classifier struct {
	llm   llm.Client
	cache *cache.Memory
}

func New(client llm.Client, memo *cache.Memory) *Classifier {
	return &Classifier{llm: client, cache: memo}
}

type cached struct {
	Result   models.ClassificationResult
	Warnings []string
}

// Classify returns the classification for one photo. An inference transport
// failure is returned as an error; a malformed response degrades to the
// documented fallbacks with warnings instead.
func (c *Classifier) Classify(ctx context.Context, photoID string, img models.ImageData) (models.ClassificationResult, []string, error) {
	v, err := cache.GetOrCompute(c.cache, photoID, Operation, func() (cached, error) {
		response, err := c.llm.Generate(ctx, []models.ImageData{img}, prompt, llm.TierFast)
		if err != nil {
			return cached{}, fmt.Errorf("classification call failed: %w", err)
		}
		result, warnings := Decode(photoID, response)
		return cached{Result: result, Warnings: warnings}, nil
	})
	if err != nil {
		return models.ClassificationResult{}, nil, err
	}
	return v.Result, v.Warnings, nil
}

var categoryValues = func() []string {
	out := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		out[i] = string(c)
	}
	return out
}()

var positionValues = func() []string {
	out := make([]string, len(models.Positions))
	for i, p := range models.Positions {
		out[i] = string(p)
	}
	return out
}()

// Decode maps a raw model response onto a ClassificationResult. Every field
// is validated independently; invalid values fall back and are reported as
// warnings, never as errors.
func Decode(photoID, response string) (models.ClassificationResult, []string) {
	var warnings []string

	obj, ok := parser.Object(response)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("photo %s: classification response was not valid JSON, defaulting to other", photoID))
		return models.ClassificationResult{
			PhotoID:        photoID,
			Category:       models.CategoryOther,
			Confidence:     0,
			Position:       models.PositionOther,
			SuggestedOrder: 20,
		}, warnings
	}

	rawCategory := parser.Str(obj, "category", "")
	category := parser.Enum(obj, "category", categoryValues, string(models.CategoryOther))
	if rawCategory != "" && rawCategory != category {
		warnings = append(warnings, fmt.Sprintf("photo %s: unknown category %q, defaulting to other", photoID, rawCategory))
	}

	rawPosition := parser.Str(obj, "position", "")
	position := parser.Enum(obj, "position", positionValues, string(models.PositionOther))
	if rawPosition != "" && rawPosition != position {
		warnings = append(warnings, fmt.Sprintf("photo %s: unknown position %q, defaulting to other", photoID, rawPosition))
	}

	result := models.ClassificationResult{
		PhotoID:        photoID,
		Category:       models.Category(category),
		Confidence:     parser.ClampFloat(obj, "confidence", 0, 1, 0),
		Position:       models.Position(position),
		SuggestedOrder: parser.ClampInt(obj, "suggested_order", 1, 20, 10),
	}

	// damage_location only applies to damage photos.
	if result.Category == models.CategoryDamage {
		result.DamageLocation = parser.Str(obj, "damage_location", "")
	}

	return result, warnings
}
