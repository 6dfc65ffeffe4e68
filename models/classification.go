package models

// Category is the closed classification label assigned to a photo.
type Category string

const (
	CategoryDamage   Category = "damage"
	CategoryVIN      Category = "vin"
	CategoryPlate    Category = "plate"
	CategoryDocument Category = "document"
	CategoryOverview Category = "overview"
	CategoryTire     Category = "tire"
	CategoryInterior Category = "interior"
	CategoryOther    Category = "other"
)

// Categories lists every valid category value.
var Categories = []Category{
	CategoryDamage, CategoryVIN, CategoryPlate, CategoryDocument,
	CategoryOverview, CategoryTire, CategoryInterior, CategoryOther,
}

// ValidCategory reports whether s is one of the closed category values.
func ValidCategory(s string) bool {
	for _, c := range Categories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Position is a vehicle-relative position from a closed 17-value set.
type Position string

const (
	PositionFront      Position = "front"
	PositionFrontLeft  Position = "front_left"
	PositionFrontRight Position = "front_right"
	PositionLeft       Position = "left"
	PositionRight      Position = "right"
	PositionRear       Position = "rear"
	PositionRearLeft   Position = "rear_left"
	PositionRearRight  Position = "rear_right"
	PositionRoof       Position = "roof"
	PositionUnderbody  Position = "underbody"
	PositionEngineBay  Position = "engine_bay"
	PositionTrunk      Position = "trunk"
	PositionInterior   Position = "interior"
	PositionDashboard  Position = "dashboard"
	PositionOdometer   Position = "odometer"
	PositionVINPlate   Position = "vin_plate"
	PositionOther      Position = "other"
)

// Positions lists every valid position value.
var Positions = []Position{
	PositionFront, PositionFrontLeft, PositionFrontRight,
	PositionLeft, PositionRight,
	PositionRear, PositionRearLeft, PositionRearRight,
	PositionRoof, PositionUnderbody, PositionEngineBay, PositionTrunk,
	PositionInterior, PositionDashboard, PositionOdometer, PositionVINPlate,
	PositionOther,
}

// ValidPosition reports whether s is one of the closed position values.
func ValidPosition(s string) bool {
	for _, p := range Positions {
		if string(p) == s {
			return true
		}
	}
	return false
}

// ClassificationResult is the classifier's verdict for one photo.
// DamageLocation is only set when Category is damage.
type ClassificationResult struct {
	PhotoID        string   `json:"photo_id"`
	Category       Category `json:"category"`
	Confidence     float64  `json:"confidence"`
	Position       Position `json:"position"`
	SuggestedOrder int      `json:"suggested_order"`
	DamageLocation string   `json:"damage_location,omitempty"`
}
