package vehicle

import (
	"context"
	"fmt"
	"log"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/parser"
)

// Cache operation key for VIN lookups.
const OpLookup = "vin_lookup"

// registryConfidenceFloor is the confidence below which the registry
// answer triggers the AI-decode fallback.
const registryConfidenceFloor = 0.3

// trackedFieldCount is the denominator for lookup confidence: the 7 core
// fields a useful decode populates.
const trackedFieldCount = 7

const decodePrompt = `You are a vehicle data assistant. Please decode this vin: %s

From the VIN structure alone, infer what you can about the vehicle.
Respond with a single JSON object and nothing else. Use null for anything the VIN does not encode:
{
  "manufacturer": null, "model": null, "year": null, "body_type": null,
  "fuel_type": null, "displacement": null, "power_kw": null,
  "cylinders": null, "engine_design": null, "transmission": null
}`

// Confidence scores a partial vehicle spec as the fraction of populated
// tracked fields.
func Confidence(f models.VehicleFields) float64 {
	populated := 0
	for _, v := range []string{
		f.Manufacturer, f.Model, f.Year, f.BodyType, f.FuelType,
		f.Displacement, f.PowerKW,
	} {
		if v != "" {
			populated++
		}
	}
	return float64(populated) / float64(trackedFieldCount)
}

// Resolver combines the registry lookup, the AI-decode fallback, and the
// document-OCR merge.
type Resolver struct {
	registry *Registry
	llm      llm.Client
	cache    *cache.Memory
}

func NewResolver(registry *Registry, client llm.Client, memo *cache.Memory) *Resolver {
	return &Resolver{registry: registry, llm: client, cache: memo}
}

// Lookup resolves a VIN through the registry, falling back to an AI decode
// when the registry answer is too sparse. The higher-confidence source
// wins; using the fallback at all is recorded as a warning.
func (r *Resolver) Lookup(ctx context.Context, vin string) models.VehicleLookupResult {
	if vin == "" {
		return models.VehicleLookupResult{Source: models.LookupSourceNone}
	}

	result, err := cache.GetOrCompute(r.cache, vin, OpLookup, func() (models.VehicleLookupResult, error) {
		return r.lookup(ctx, vin), nil
	})
	if err != nil {
		// Lookup never errors; keep the signature honest anyway.
		return models.VehicleLookupResult{Source: models.LookupSourceNone, Warnings: []string{err.Error()}}
	}
	return result
}

func (r *Resolver) lookup(ctx context.Context, vin string) models.VehicleLookupResult {
	var warnings []string

	registry, err := r.registry.DecodeVIN(ctx, vin)
	if err != nil {
		log.Printf("Registry lookup failed for VIN %s: %v", vin, err)
		warnings = append(warnings, fmt.Sprintf("registry lookup failed: %v", err))
		registry = models.VehicleLookupResult{Source: models.LookupSourceRegistry}
	}

	if registry.Confidence >= registryConfidenceFloor {
		registry.Warnings = append(registry.Warnings, warnings...)
		return registry
	}

	decoded, err := r.aiDecode(ctx, vin)
	if err != nil {
		log.Printf("AI VIN decode failed for %s: %v", vin, err)
		warnings = append(warnings, fmt.Sprintf("ai vin decode failed: %v", err))
	} else if decoded.Confidence > registry.Confidence {
		decoded.Warnings = append(decoded.Warnings, warnings...)
		decoded.Warnings = append(decoded.Warnings,
			"registry lookup was sparse, used AI VIN decode instead")
		return decoded
	}

	if registry.Confidence == 0 {
		return models.VehicleLookupResult{Source: models.LookupSourceNone, Warnings: warnings}
	}
	registry.Warnings = append(registry.Warnings, warnings...)
	return registry
}

func (r *Resolver) aiDecode(ctx context.Context, vin string) (models.VehicleLookupResult, error) {
	response, err := r.llm.Generate(ctx, nil, fmt.Sprintf(decodePrompt, vin), llm.TierFast)
	if err != nil {
		return models.VehicleLookupResult{}, err
	}

	obj, ok := parser.Object(response)
	if !ok {
		return models.VehicleLookupResult{Source: models.LookupSourceAIDecode}, nil
	}

	fields := models.VehicleFields{
		VIN:          vin,
		Manufacturer: parser.Str(obj, "manufacturer", ""),
		Model:        parser.Str(obj, "model", ""),
		Year:         parser.Str(obj, "year", ""),
		BodyType:     parser.Str(obj, "body_type", ""),
		FuelType:     parser.Str(obj, "fuel_type", ""),
		Displacement: parser.Str(obj, "displacement", ""),
		PowerKW:      parser.Str(obj, "power_kw", ""),
		Cylinders:    parser.Str(obj, "cylinders", ""),
		EngineDesign: parser.Str(obj, "engine_design", ""),
		Transmission: parser.Str(obj, "transmission", ""),
	}

	return models.VehicleLookupResult{
		Source:     models.LookupSourceAIDecode,
		Fields:     fields,
		Confidence: Confidence(fields),
	}, nil
}

// Merge combines a VIN lookup with document OCR into one vehicle record.
// Precedence is per field: the VIN itself comes from the document when
// present; manufacturer and technical specs prefer the lookup; model and
// subtype prefer the lookup; registration dates and prior owners exist
// only on the document; body and fuel types are normalized through the
// fixed vocabulary regardless of source.
func Merge(lookup models.VehicleLookupResult, doc *models.DocumentFields) models.VehicleFields {
	l := lookup.Fields
	d := models.DocumentFields{}
	if doc != nil {
		d = *doc
	}

	prefer := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}

	merged := models.VehicleFields{
		VIN:          prefer(d.VIN, l.VIN),
		Manufacturer: prefer(l.Manufacturer, d.Manufacturer),
		Model:        prefer(l.Model, d.Model),
		Subtype:      l.Subtype,
		Year:         l.Year,
		Displacement: prefer(l.Displacement, d.Displacement),
		PowerKW:      prefer(l.PowerKW, d.Power),
		Cylinders:    l.Cylinders,
		EngineDesign: l.EngineDesign,
		Transmission: prefer(l.Transmission, d.Transmission),

		// Document-only fields.
		FirstRegistration: d.FirstRegistration,
		RegistrationDate:  d.RegistrationDate,
		PriorOwners:       d.PriorOwners,
		Plate:             d.Plate,
		Color:             d.Color,
		Seats:             d.Seats,
		Mileage:           d.Mileage,
	}

	merged.BodyType = NormalizeBodyType(prefer(l.BodyType, d.VehicleType))
	merged.FuelType = NormalizeFuelType(prefer(l.FuelType, d.Fuel))

	return merged
}
