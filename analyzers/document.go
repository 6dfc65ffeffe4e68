package analyzers

import (
	"context"
	"fmt"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/parser"
)

const documentPrompt = `You are a document OCR assistant. Your task is to extract the registration document fields from this photo of a vehicle registration certificate.

Respond with a single JSON object and nothing else. Use an empty string for any field that is not readable:
{
  "manufacturer": "", "model": "", "vin": "", "plate": "",
  "first_registration": "", "registration_date": "",
  "displacement": "", "power": "", "fuel": "", "mileage": "",
  "authority_code": "", "prior_owners": "", "vehicle_type": "",
  "color": "", "seats": "", "transmission": ""
}`

// ExtractDocument runs the deep-tier registration-document OCR. Fields
// absent from the response default to empty strings.
func (a *Analyzer) ExtractDocument(ctx context.Context, photoID string, img models.ImageData, _ Context) (models.DocumentFields, []string, error) {
	v, err := cache.GetOrCompute(a.cache, photoID, OpDocument, func() (documentCached, error) {
		response, err := a.llm.Generate(ctx, []models.ImageData{img}, documentPrompt, llm.TierDeep)
		if err != nil {
			return documentCached{}, fmt.Errorf("document extraction call failed: %w", err)
		}
		result, warnings := DecodeDocument(photoID, response)
		return documentCached{Result: result, Warnings: warnings}, nil
	})
	if err != nil {
		return models.DocumentFields{}, nil, err
	}
	return v.Result, v.Warnings, nil
}

// DecodeDocument validates a raw document OCR response.
func DecodeDocument(photoID, response string) (models.DocumentFields, []string) {
	obj, ok := parser.Object(response)
	if !ok {
		return models.DocumentFields{}, []string{
			fmt.Sprintf("photo %s: document response was not valid JSON", photoID),
		}
	}

	return models.DocumentFields{
		Manufacturer:      parser.Str(obj, "manufacturer", ""),
		Model:             parser.Str(obj, "model", ""),
		VIN:               parser.Str(obj, "vin", ""),
		Plate:             parser.Str(obj, "plate", ""),
		FirstRegistration: parser.Str(obj, "first_registration", ""),
		RegistrationDate:  parser.Str(obj, "registration_date", ""),
		Displacement:      parser.Str(obj, "displacement", ""),
		Power:             parser.Str(obj, "power", ""),
		Fuel:              parser.Str(obj, "fuel", ""),
		Mileage:           parser.Str(obj, "mileage", ""),
		AuthorityCode:     parser.Str(obj, "authority_code", ""),
		PriorOwners:       parser.Str(obj, "prior_owners", ""),
		VehicleType:       parser.Str(obj, "vehicle_type", ""),
		Color:             parser.Str(obj, "color", ""),
		Seats:             parser.Str(obj, "seats", ""),
		Transmission:      parser.Str(obj, "transmission", ""),
	}, nil
}
