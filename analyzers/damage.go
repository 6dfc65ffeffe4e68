package analyzers

import (
	"context"
	"fmt"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/parser"
)

const damagePrompt = `You are a vehicle damage appraiser. Carefully analyze the vehicle damage visible in this photo.%s

Respond with a single JSON object and nothing else:
{
  "description": "<1-3 sentences describing the damage>",
  "severity": "<minor | moderate | severe>",
  "damage_types": ["<e.g. dent, scratch, crack, broken>"],
  "affected_parts": ["<e.g. front bumper, left fender>"],
  "repair_approach": "<short repair recommendation, e.g. repair, replace, paint>",
  "repair_hours": <estimated labor hours or null>,
  "bounding_boxes": [{"x": 0.0, "y": 0.0, "width": 0.0, "height": 0.0}],
  "diagram_position": {"x": 0, "y": 0, "comment": "<short marker label>"}
}

Bounding box coordinates are fractions of the image in [0,1].
The diagram position locates the damage on a top-down vehicle schematic:
x is 0 (left side) to 100 (right side), y is 0 (front) to 100 (rear).`

var severityValues = []string{
	string(models.SeverityMinor),
	string(models.SeverityModerate),
	string(models.SeveritySevere),
}

// damageFallback is the result used when the model response cannot be
// parsed at all. It keeps the run alive with a visible, generic marker.
func damageFallback() models.DamageResult {
	return models.DamageResult{
		Description:   "Damage detected",
		Severity:      models.SeverityModerate,
		BoundingBoxes: []models.BoundingBox{},
		DiagramPosition: models.DiagramPosition{
			X: 50, Y: 50, Comment: "Damage detected",
		},
	}
}

// AnalyzeDamage runs the deep-tier damage analysis for one photo.
func (a *Analyzer) AnalyzeDamage(ctx context.Context, photoID string, img models.ImageData, actx Context) (models.DamageResult, []string, error) {
	hint := ""
	if actx.Classification.DamageLocation != "" {
		hint = fmt.Sprintf(" The damage is located at: %s.", actx.Classification.DamageLocation)
	}
	prompt := fmt.Sprintf(damagePrompt, hint)

	v, err := cache.GetOrCompute(a.cache, photoID, OpDamage, func() (damageCached, error) {
		response, err := a.llm.Generate(ctx, []models.ImageData{img}, prompt, llm.TierDeep)
		if err != nil {
			return damageCached{}, fmt.Errorf("damage analysis call failed: %w", err)
		}
		result, warnings := DecodeDamage(photoID, response)
		return damageCached{Result: result, Warnings: warnings}, nil
	})
	if err != nil {
		return models.DamageResult{}, nil, err
	}
	return v.Result, v.Warnings, nil
}

// DecodeDamage validates a raw damage response field by field.
func DecodeDamage(photoID, response string) (models.DamageResult, []string) {
	var warnings []string

	obj, ok := parser.Object(response)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("photo %s: damage response was not valid JSON, using fallback", photoID))
		return damageFallback(), warnings
	}

	result := models.DamageResult{
		Description:    parser.Str(obj, "description", "Damage detected"),
		Severity:       models.Severity(parser.Enum(obj, "severity", severityValues, string(models.SeverityModerate))),
		DamageTypes:    parser.StringList(obj, "damage_types"),
		AffectedParts:  parser.StringList(obj, "affected_parts"),
		RepairApproach: parser.Str(obj, "repair_approach", ""),
		RepairHours:    parser.FloatPtr(obj, "repair_hours"),
		BoundingBoxes:  []models.BoundingBox{},
	}

	for _, box := range parser.ObjectList(obj, "bounding_boxes") {
		result.BoundingBoxes = append(result.BoundingBoxes, models.BoundingBox{
			X:      parser.ClampFloat(box, "x", 0, 1, 0),
			Y:      parser.ClampFloat(box, "y", 0, 1, 0),
			Width:  parser.ClampFloat(box, "width", 0, 1, 0),
			Height: parser.ClampFloat(box, "height", 0, 1, 0),
		})
	}

	pos, ok := parser.Child(obj, "diagram_position")
	if !ok {
		warnings = append(warnings, fmt.Sprintf("photo %s: damage response missing diagram position, using center", photoID))
		pos = map[string]any{}
	}
	result.DiagramPosition = models.DiagramPosition{
		X:       parser.ClampFloat(pos, "x", 0, 100, 50),
		Y:       parser.ClampFloat(pos, "y", 0, 100, 50),
		Comment: parser.Str(pos, "comment", "Damage detected"),
	}

	// Severity and repair approach travel with the marker for display.
	result.DiagramPosition.Comment += " (" + string(result.Severity) + ")"
	if result.RepairApproach != "" {
		result.DiagramPosition.Comment += " - " + result.RepairApproach
	}

	return result, warnings
}
