package models

// VehicleLookupSource identifies where a vehicle lookup came from.
type VehicleLookupSource string

const (
	LookupSourceRegistry VehicleLookupSource = "registry"
	LookupSourceAIDecode VehicleLookupSource = "ai-decode"
	LookupSourceNone     VehicleLookupSource = "none"
)

// VehicleFields is a partial vehicle spec. Empty string means unknown.
type VehicleFields struct {
	VIN               string `json:"vin,omitempty"`
	Manufacturer      string `json:"manufacturer,omitempty"`
	Model             string `json:"model,omitempty"`
	Subtype           string `json:"subtype,omitempty"`
	Year              string `json:"year,omitempty"`
	BodyType          string `json:"body_type,omitempty"`
	FuelType          string `json:"fuel_type,omitempty"`
	Displacement      string `json:"displacement,omitempty"`
	PowerKW           string `json:"power_kw,omitempty"`
	Cylinders         string `json:"cylinders,omitempty"`
	EngineDesign      string `json:"engine_design,omitempty"`
	Transmission      string `json:"transmission,omitempty"`
	FirstRegistration string `json:"first_registration,omitempty"`
	RegistrationDate  string `json:"registration_date,omitempty"`
	PriorOwners       string `json:"prior_owners,omitempty"`
	Plate             string `json:"plate,omitempty"`
	Color             string `json:"color,omitempty"`
	Seats             string `json:"seats,omitempty"`
	Mileage           string `json:"mileage,omitempty"`
}

// VehicleLookupResult is the outcome of a VIN-based lookup attempt.
type VehicleLookupResult struct {
	Source     VehicleLookupSource `json:"source"`
	Fields     VehicleFields       `json:"fields"`
	Confidence float64             `json:"confidence"`
	Warnings   []string            `json:"warnings,omitempty"`
}
