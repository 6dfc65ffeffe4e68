package vehicle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/stubllm"
)

const testVIN = "WVWZZZ1KZAW123456"

func registryServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestRegistryDecodeVIN(t *testing.T) {
	server := registryServer(t, `{"Results": [{
		"Make": "VOLKSWAGEN", "Model": "Golf", "Series": "GTI",
		"ModelYear": "2015", "BodyClass": "Hatchback",
		"FuelTypePrimary": "Diesel", "DisplacementCC": "1968",
		"EngineKW": "110", "EngineCylinders": "4",
		"EngineConfiguration": "In-Line", "TransmissionStyle": "Manual"
	}]}`)
	defer server.Close()

	result, err := NewRegistry(server.URL).DecodeVIN(context.Background(), testVIN)
	if err != nil {
		t.Fatalf("DecodeVIN() error: %v", err)
	}
	if result.Source != models.LookupSourceRegistry {
		t.Errorf("DecodeVIN() source = %v", result.Source)
	}
	if result.Fields.Manufacturer != "VOLKSWAGEN" || result.Fields.Subtype != "GTI" {
		t.Errorf("DecodeVIN() fields = %+v", result.Fields)
	}
	if result.Confidence != 1.0 {
		t.Errorf("DecodeVIN() confidence = %v, want 1.0", result.Confidence)
	}
}

func TestRegistryFiltersNotApplicable(t *testing.T) {
	server := registryServer(t, `{"Results": [{
		"Make": "VOLKSWAGEN", "Model": "Not Applicable", "ModelYear": "2015"
	}]}`)
	defer server.Close()

	result, err := NewRegistry(server.URL).DecodeVIN(context.Background(), testVIN)
	if err != nil {
		t.Fatal(err)
	}
	if result.Fields.Model != "" {
		t.Errorf("DecodeVIN() model = %q, want filtered", result.Fields.Model)
	}
}

func TestConfidence(t *testing.T) {
	if c := Confidence(models.VehicleFields{}); c != 0 {
		t.Errorf("Confidence(empty) = %v, want 0", c)
	}

	full := models.VehicleFields{
		Manufacturer: "VW", Model: "Golf", Year: "2015", BodyType: "hatchback",
		FuelType: "diesel", Displacement: "1968", PowerKW: "110",
	}
	if c := Confidence(full); c != 1.0 {
		t.Errorf("Confidence(full) = %v, want 1.0", c)
	}

	// Untracked fields like cylinders do not move the score.
	partial := models.VehicleFields{Manufacturer: "VW", Cylinders: "4"}
	if c := Confidence(partial); c != 1.0/7.0 {
		t.Errorf("Confidence(partial) = %v, want 1/7", c)
	}
}

func TestLookupPrefersRegistry(t *testing.T) {
	server := registryServer(t, `{"Results": [{
		"Make": "VOLKSWAGEN", "Model": "Golf", "ModelYear": "2015"
	}]}`)
	defer server.Close()

	r := NewResolver(NewRegistry(server.URL), stubllm.NewClient(), cache.New(time.Hour))
	result := r.Lookup(context.Background(), testVIN)
	if result.Source != models.LookupSourceRegistry {
		t.Errorf("Lookup() source = %v, want registry", result.Source)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Lookup() warnings = %v, want none", result.Warnings)
	}
}

func TestLookupFallsBackToAIDecode(t *testing.T) {
	// Registry knows almost nothing: confidence 1/7, below the floor.
	server := registryServer(t, `{"Results": [{"Make": "VOLKSWAGEN"}]}`)
	defer server.Close()

	r := NewResolver(NewRegistry(server.URL), stubllm.NewClient(), cache.New(time.Hour))
	result := r.Lookup(context.Background(), testVIN)
	if result.Source != models.LookupSourceAIDecode {
		t.Fatalf("Lookup() source = %v, want ai-decode", result.Source)
	}
	if result.Fields.Manufacturer != "Volkswagen" {
		t.Errorf("Lookup() fields = %+v", result.Fields)
	}
	if len(result.Warnings) == 0 {
		t.Error("Lookup() fallback recorded no warning")
	}
}

func TestLookupRegistryDownKeepsAIAnswer(t *testing.T) {
	server := registryServer(t, "boom")
	server.Close() // connection refused

	r := NewResolver(NewRegistry(server.URL), stubllm.NewClient(), cache.New(time.Hour))
	result := r.Lookup(context.Background(), testVIN)
	if result.Source != models.LookupSourceAIDecode {
		t.Errorf("Lookup() source = %v, want ai-decode", result.Source)
	}
	if len(result.Warnings) < 2 {
		t.Errorf("Lookup() warnings = %v, want failure + fallback notes", result.Warnings)
	}
}

func TestLookupNothingKnown(t *testing.T) {
	server := registryServer(t, `{"Results": []}`)
	defer server.Close()

	stub := stubllm.NewClient()
	stub.Responses = map[string]string{stubllm.MarkerVINDecode: `{}`}

	r := NewResolver(NewRegistry(server.URL), stub, cache.New(time.Hour))
	result := r.Lookup(context.Background(), testVIN)
	if result.Source != models.LookupSourceNone {
		t.Errorf("Lookup() source = %v, want none", result.Source)
	}
}

func TestLookupEmptyVIN(t *testing.T) {
	r := NewResolver(NewRegistry("http://unused"), stubllm.NewClient(), cache.New(time.Hour))
	result := r.Lookup(context.Background(), "")
	if result.Source != models.LookupSourceNone {
		t.Errorf("Lookup(\"\") source = %v, want none", result.Source)
	}
}

func TestMergePrecedence(t *testing.T) {
	lookup := models.VehicleLookupResult{
		Source: models.LookupSourceRegistry,
		Fields: models.VehicleFields{
			VIN: testVIN, Manufacturer: "VOLKSWAGEN", Model: "Golf",
			Subtype: "GTI", Year: "2015", BodyType: "Hatchback",
			FuelType: "Diesel", Displacement: "1968", PowerKW: "110",
			Transmission: "Manual",
		},
	}
	doc := &models.DocumentFields{
		VIN: "WAUZZZ8K9DA123456", Manufacturer: "VW AG", Model: "GOLF VII",
		Fuel: "benzin", Power: "85", FirstRegistration: "2015-03-12",
		PriorOwners: "2", Mileage: "98000", Color: "black",
	}

	merged := Merge(lookup, doc)

	if merged.VIN != "WAUZZZ8K9DA123456" {
		t.Errorf("Merge() VIN = %q, want document value", merged.VIN)
	}
	if merged.Manufacturer != "VOLKSWAGEN" || merged.Model != "Golf" {
		t.Errorf("Merge() manufacturer/model = %q/%q, want lookup values", merged.Manufacturer, merged.Model)
	}
	if merged.PowerKW != "110" {
		t.Errorf("Merge() power = %q, want lookup value", merged.PowerKW)
	}
	if merged.FuelType != "diesel" {
		t.Errorf("Merge() fuel = %q, want normalized lookup value", merged.FuelType)
	}
	if merged.BodyType != "hatchback" {
		t.Errorf("Merge() body type = %q, want normalized", merged.BodyType)
	}
	if merged.FirstRegistration != "2015-03-12" || merged.PriorOwners != "2" {
		t.Errorf("Merge() document-only fields missing: %+v", merged)
	}
	if merged.Mileage != "98000" || merged.Color != "black" {
		t.Errorf("Merge() document extras missing: %+v", merged)
	}
}

func TestMergeDocumentFillsLookupGaps(t *testing.T) {
	lookup := models.VehicleLookupResult{Source: models.LookupSourceNone}
	doc := &models.DocumentFields{
		Manufacturer: "AUDI", Fuel: "benzin", VehicleType: "kombi",
	}

	merged := Merge(lookup, doc)
	if merged.Manufacturer != "AUDI" {
		t.Errorf("Merge() manufacturer = %q", merged.Manufacturer)
	}
	if merged.FuelType != "petrol" {
		t.Errorf("Merge() fuel = %q, want petrol from benzin", merged.FuelType)
	}
	if merged.BodyType != "wagon" {
		t.Errorf("Merge() body = %q, want wagon from kombi", merged.BodyType)
	}
}

func TestMergeNilDocument(t *testing.T) {
	lookup := models.VehicleLookupResult{
		Fields: models.VehicleFields{VIN: testVIN, Manufacturer: "VW"},
	}
	merged := Merge(lookup, nil)
	if merged.VIN != testVIN || merged.Manufacturer != "VW" {
		t.Errorf("Merge(nil doc) = %+v", merged)
	}
}

func TestNormalizeVocab(t *testing.T) {
	tests := []struct {
		fn       func(string) string
		in, want string
	}{
		{NormalizeBodyType, "Estate", "wagon"},
		{NormalizeBodyType, "Sedan/Saloon", "sedan"},
		{NormalizeBodyType, "Wagon (4-door)", "wagon"},
		{NormalizeBodyType, "Spaceship", "spaceship"},
		{NormalizeBodyType, "", ""},
		{NormalizeFuelType, "Benzin", "petrol"},
		{NormalizeFuelType, "DIESEL", "diesel"},
		{NormalizeFuelType, "Elektro", "electric"},
		{NormalizeFuelType, "steam", "steam"},
	}
	for _, tt := range tests {
		if got := tt.fn(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
