package analyzers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/parser"
)

// MaxCalculationImages caps how many damage photos feed one calculation
// extraction call.
const MaxCalculationImages = 5

const calculationPrompt = `You are a repair cost estimator. Looking at all the damage photos together, derive repair calculation classification fields for the whole vehicle.

Respond with a single JSON object and nothing else:
{
  "damage_class": "<light | medium | heavy | total>",
  "repair_method": "<conventional | spot | smart | replacement>",
  "structural_risks": ["<e.g. frame deformation, airbag deployment>"],
  "alignment_required": <true | false>,
  "measurement_required": <true | false>,
  "paint_required": <true | false>,
  "plastic_repair": <true | false>,
  "estimated_repair_days": <number of working days or null>
}`

var (
	damageClassValues  = []string{"light", "medium", "heavy", "total"}
	repairMethodValues = []string{"conventional", "spot", "smart", "replacement"}
)

type calculationCached struct {
	Result   *models.CalculationFields
	Warnings []string
}

// ExtractCalculation runs the deep-tier batched calculation extraction over
// up to MaxCalculationImages damage photos. Returns nil (not an error) when
// images is empty or the response is unusable.
func (a *Analyzer) ExtractCalculation(ctx context.Context, photoIDs []string, images []models.ImageData) (*models.CalculationFields, []string, error) {
	if len(images) == 0 {
		return nil, nil, nil
	}
	if len(images) > MaxCalculationImages {
		images = images[:MaxCalculationImages]
		photoIDs = photoIDs[:MaxCalculationImages]
	}

	// One cache entry per photo set, independent of slice order.
	sorted := append([]string(nil), photoIDs...)
	sort.Strings(sorted)
	subject := strings.Join(sorted, ",")

	v, err := cache.GetOrCompute(a.cache, subject, OpCalculation, func() (calculationCached, error) {
		response, err := a.llm.Generate(ctx, images, calculationPrompt, llm.TierDeep)
		if err != nil {
			return calculationCached{}, fmt.Errorf("calculation extraction call failed: %w", err)
		}
		result, warnings := DecodeCalculation(response)
		return calculationCached{Result: result, Warnings: warnings}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return v.Result, v.Warnings, nil
}

// DecodeCalculation validates a raw calculation response; nil on an
// unparseable response, per the null-on-failure contract.
func DecodeCalculation(response string) (*models.CalculationFields, []string) {
	obj, ok := parser.Object(response)
	if !ok {
		return nil, []string{"calculation response was not valid JSON"}
	}

	return &models.CalculationFields{
		DamageClass:         parser.Enum(obj, "damage_class", damageClassValues, "medium"),
		RepairMethod:        parser.Enum(obj, "repair_method", repairMethodValues, "conventional"),
		StructuralRisks:     parser.StringList(obj, "structural_risks"),
		AlignmentRequired:   parser.Bool(obj, "alignment_required", false),
		MeasurementRequired: parser.Bool(obj, "measurement_required", false),
		PaintRequired:       parser.Bool(obj, "paint_required", false),
		PlasticRepair:       parser.Bool(obj, "plastic_repair", false),
		EstimatedRepairDays: parser.FloatPtr(obj, "estimated_repair_days"),
	}, nil
}
