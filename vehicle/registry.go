// Package vehicle resolves the vehicle record from VIN lookups and
// document OCR, by field-level precedence.
package vehicle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"photo-intel-pipeline/models"
)

const defaultRegistryBaseURL = "https://vpic.nhtsa.dot.gov/api"

// Registry queries the free public VIN decoder.
type Registry struct {
	baseURL string
	http    *http.Client
}

// NewRegistry creates a registry client; baseURL "" uses the public API.
func NewRegistry(baseURL string) *Registry {
	if baseURL == "" {
		baseURL = defaultRegistryBaseURL
	}
	return &Registry{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type registryResponse struct {
	Results []map[string]string `json:"Results"`
}

// DecodeVIN looks the VIN up in the registry and maps the decoded values
// onto a partial vehicle spec.
func (r *Registry) DecodeVIN(ctx context.Context, vin string) (models.VehicleLookupResult, error) {
	url := fmt.Sprintf("%s/vehicles/DecodeVinValues/%s?format=json", r.baseURL, vin)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return models.VehicleLookupResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return models.VehicleLookupResult{}, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.VehicleLookupResult{}, fmt.Errorf("failed to read registry response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return models.VehicleLookupResult{}, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var parsed registryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.VehicleLookupResult{}, fmt.Errorf("failed to parse registry response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return models.VehicleLookupResult{Source: models.LookupSourceRegistry}, nil
	}

	row := parsed.Results[0]
	get := func(key string) string {
		v := strings.TrimSpace(row[key])
		if strings.EqualFold(v, "not applicable") {
			return ""
		}
		return v
	}

	fields := models.VehicleFields{
		VIN:          vin,
		Manufacturer: get("Make"),
		Model:        get("Model"),
		Subtype:      get("Series"),
		Year:         get("ModelYear"),
		BodyType:     get("BodyClass"),
		FuelType:     get("FuelTypePrimary"),
		Displacement: get("DisplacementCC"),
		PowerKW:      get("EngineKW"),
		Cylinders:    get("EngineCylinders"),
		EngineDesign: get("EngineConfiguration"),
		Transmission: get("TransmissionStyle"),
	}

	return models.VehicleLookupResult{
		Source:     models.LookupSourceRegistry,
		Fields:     fields,
		Confidence: Confidence(fields),
	}, nil
}
