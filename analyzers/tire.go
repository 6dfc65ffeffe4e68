package analyzers

import (
	"context"
	"fmt"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/parser"
)

const tirePrompt = `You are a tire inspector. Carefully read the tire shown in this wheel close-up.

Respond with a single JSON object and nothing else:
{
  "manufacturer": "<tire brand or null>",
  "size": "<e.g. 205/55 R16 or null>",
  "tread_depth_mm": <estimated remaining tread depth in millimeters>,
  "profile": "<good | acceptable | worn | critical>",
  "usability": <1 = fine, 2 = replace soon, 3 = replace now>,
  "tire_type": "<summer | winter | all-season or null>",
  "dot_code": "<4-digit DOT week/year code or null>",
  "position": "<VL | VR | HL | HR, or null when not determinable>"
}`

var tireProfileValues = []string{
	string(models.TireProfileGood),
	string(models.TireProfileAcceptable),
	string(models.TireProfileWorn),
	string(models.TireProfileCritical),
}

// wheelCorner maps the classifier's general vehicle position onto the
// nearest wheel corner, used when the model gives no position of its own.
var wheelCorner = map[models.Position]models.WheelPosition{
	models.PositionFront:      models.WheelFrontLeft,
	models.PositionFrontLeft:  models.WheelFrontLeft,
	models.PositionFrontRight: models.WheelFrontRight,
	models.PositionLeft:       models.WheelFrontLeft,
	models.PositionRight:      models.WheelFrontRight,
	models.PositionRear:       models.WheelRearLeft,
	models.PositionRearLeft:   models.WheelRearLeft,
	models.PositionRearRight:  models.WheelRearRight,
}

// WheelCornerFor returns the nearest wheel corner for a vehicle position.
func WheelCornerFor(p models.Position) models.WheelPosition {
	if c, ok := wheelCorner[p]; ok {
		return c
	}
	return models.WheelFrontLeft
}

// AnalyzeTire runs the fast-tier tire read for one wheel photo.
func (a *Analyzer) AnalyzeTire(ctx context.Context, photoID string, img models.ImageData, actx Context) (models.TireResult, []string, error) {
	v, err := cache.GetOrCompute(a.cache, photoID, OpTire, func() (tireCached, error) {
		response, err := a.llm.Generate(ctx, []models.ImageData{img}, tirePrompt, llm.TierFast)
		if err != nil {
			return tireCached{}, fmt.Errorf("tire analysis call failed: %w", err)
		}
		result, warnings := DecodeTire(photoID, response, actx.Classification.Position)
		return tireCached{Result: result, Warnings: warnings}, nil
	})
	if err != nil {
		return models.TireResult{}, nil, err
	}
	return v.Result, v.Warnings, nil
}

// DecodeTire validates a raw tire response. When the model supplies no
// wheel position, the classifier's vehicle position picks the corner.
func DecodeTire(photoID, response string, photoPosition models.Position) (models.TireResult, []string) {
	var warnings []string

	obj, ok := parser.Object(response)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("photo %s: tire response was not valid JSON, using fallback", photoID))
		obj = map[string]any{}
	}

	result := models.TireResult{
		Manufacturer: parser.Str(obj, "manufacturer", ""),
		Size:         parser.Str(obj, "size", ""),
		TreadDepthMM: parser.ClampFloat(obj, "tread_depth_mm", 0, 20, 0),
		Profile:      models.TireProfile(parser.Enum(obj, "profile", tireProfileValues, string(models.TireProfileAcceptable))),
		Usability:    parser.ClampInt(obj, "usability", 1, 3, 2),
		TireType:     parser.Str(obj, "tire_type", ""),
		DOTCode:      parser.Str(obj, "dot_code", ""),
	}

	switch pos := parser.Str(obj, "position", ""); pos {
	case string(models.WheelFrontLeft), string(models.WheelFrontRight),
		string(models.WheelRearLeft), string(models.WheelRearRight):
		result.Position = models.WheelPosition(pos)
	default:
		result.Position = WheelCornerFor(photoPosition)
	}

	return result, warnings
}
