package models

// Severity is the damage severity tier.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// TireProfile is the qualitative tread condition tier.
type TireProfile string

const (
	TireProfileGood       TireProfile = "good"
	TireProfileAcceptable TireProfile = "acceptable"
	TireProfileWorn       TireProfile = "worn"
	TireProfileCritical   TireProfile = "critical"
)

// WheelPosition identifies a wheel corner (front-left, front-right,
// rear-left, rear-right in the source system's notation).
type WheelPosition string

const (
	WheelFrontLeft  WheelPosition = "VL"
	WheelFrontRight WheelPosition = "VR"
	WheelRearLeft   WheelPosition = "HL"
	WheelRearRight  WheelPosition = "HR"
)

// BoundingBox is an image-space rectangle with fractional coordinates,
// each clamped to [0,1] at parse time.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DiagramPosition is a marker on the top-down vehicle diagram,
// coordinates clamped to [0,100].
type DiagramPosition struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Comment string  `json:"comment"`
}

// DamageResult is the deep-tier damage analysis for one photo.
type DamageResult struct {
	Description     string          `json:"description"`
	Severity        Severity        `json:"severity"`
	DamageTypes     []string        `json:"damage_types"`
	AffectedParts   []string        `json:"affected_parts"`
	RepairApproach  string          `json:"repair_approach"`
	RepairHours     *float64        `json:"repair_hours,omitempty"`
	BoundingBoxes   []BoundingBox   `json:"bounding_boxes"`
	DiagramPosition DiagramPosition `json:"diagram_position"`
}

// OverviewResult captures full-body-shot extractions; any field may be empty.
type OverviewResult struct {
	Color          string `json:"color"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	BodyType       string `json:"body_type"`
	ConditionFront string `json:"condition_front"`
	ConditionRear  string `json:"condition_rear"`
}

// TireResult is the tire read for one wheel photo.
type TireResult struct {
	Manufacturer string        `json:"manufacturer"`
	Size         string        `json:"size"`
	TreadDepthMM float64       `json:"tread_depth_mm"`
	Profile      TireProfile   `json:"profile"`
	Usability    int           `json:"usability"`
	TireType     string        `json:"tire_type"`
	DOTCode      string        `json:"dot_code"`
	Position     WheelPosition `json:"position"`
}

// InteriorResult is the interior condition read.
type InteriorResult struct {
	Condition string   `json:"condition"`
	Features  []string `json:"features"`
}

// DocumentFields are the registration-document OCR extractions.
// Absent fields default to empty strings.
type DocumentFields struct {
	Manufacturer      string `json:"manufacturer"`
	Model             string `json:"model"`
	VIN               string `json:"vin"`
	Plate             string `json:"plate"`
	FirstRegistration string `json:"first_registration"`
	RegistrationDate  string `json:"registration_date"`
	Displacement      string `json:"displacement"`
	Power             string `json:"power"`
	Fuel              string `json:"fuel"`
	Mileage           string `json:"mileage"`
	AuthorityCode     string `json:"authority_code"`
	PriorOwners       string `json:"prior_owners"`
	VehicleType       string `json:"vehicle_type"`
	Color             string `json:"color"`
	Seats             string `json:"seats"`
	Transmission      string `json:"transmission"`
}

// CalculationFields are repair-relevant classification fields inferred
// across the damage photos of a run. Nil means the extraction failed or
// no damage photos existed.
type CalculationFields struct {
	DamageClass          string   `json:"damage_class"`
	RepairMethod         string   `json:"repair_method"`
	StructuralRisks      []string `json:"structural_risks"`
	AlignmentRequired    bool     `json:"alignment_required"`
	MeasurementRequired  bool     `json:"measurement_required"`
	PaintRequired        bool     `json:"paint_required"`
	PlasticRepair        bool     `json:"plastic_repair"`
	EstimatedRepairDays  *float64 `json:"estimated_repair_days,omitempty"`
}

// PhotoProcessingResult is the tagged union of per-category analysis
// outcomes for one photo. Exactly one variant pointer is non-nil, matching
// Category; "other" photos carry classification only.
type PhotoProcessingResult struct {
	PhotoID        string               `json:"photo_id"`
	Category       Category             `json:"category"`
	Classification ClassificationResult `json:"classification"`
	Damage         *DamageResult        `json:"damage,omitempty"`
	Overview       *OverviewResult      `json:"overview,omitempty"`
	Tire           *TireResult          `json:"tire,omitempty"`
	Interior       *InteriorResult      `json:"interior,omitempty"`
	VIN            *string              `json:"vin,omitempty"`
	Plate          *string              `json:"plate,omitempty"`
	Document       *DocumentFields      `json:"document,omitempty"`
}

// NewDamageProcessingResult builds the damage variant.
func NewDamageProcessingResult(cls ClassificationResult, d *DamageResult) PhotoProcessingResult {
	return PhotoProcessingResult{PhotoID: cls.PhotoID, Category: CategoryDamage, Classification: cls, Damage: d}
}

// NewOverviewProcessingResult builds the overview variant.
func NewOverviewProcessingResult(cls ClassificationResult, o *OverviewResult) PhotoProcessingResult {
	return PhotoProcessingResult{PhotoID: cls.PhotoID, Category: CategoryOverview, Classification: cls, Overview: o}
}

// NewTireProcessingResult builds the tire variant.
func NewTireProcessingResult(cls ClassificationResult, t *TireResult) PhotoProcessingResult {
	return PhotoProcessingResult{PhotoID: cls.PhotoID, Category: CategoryTire, Classification: cls, Tire: t}
}

// NewInteriorProcessingResult builds the interior variant.
func NewInteriorProcessingResult(cls ClassificationResult, i *InteriorResult) PhotoProcessingResult {
	return PhotoProcessingResult{PhotoID: cls.PhotoID, Category: CategoryInterior, Classification: cls, Interior: i}
}

// NewVINProcessingResult builds the vin variant; vin may be nil when no
// valid identifier was found.
func NewVINProcessingResult(cls ClassificationResult, vin *string) PhotoProcessingResult {
	return PhotoProcessingResult{PhotoID: cls.PhotoID, Category: CategoryVIN, Classification: cls, VIN: vin}
}

// NewPlateProcessingResult builds the plate variant; plate may be nil.
func NewPlateProcessingResult(cls ClassificationResult, plate *string) PhotoProcessingResult {
	return PhotoProcessingResult{PhotoID: cls.PhotoID, Category: CategoryPlate, Classification: cls, Plate: plate}
}

// NewDocumentProcessingResult builds the document variant.
func NewDocumentProcessingResult(cls ClassificationResult, d *DocumentFields) PhotoProcessingResult {
	return PhotoProcessingResult{PhotoID: cls.PhotoID, Category: CategoryDocument, Classification: cls, Document: d}
}

// NewOtherProcessingResult builds the pass-through variant for photos that
// need no category analysis.
func NewOtherProcessingResult(cls ClassificationResult) PhotoProcessingResult {
	return PhotoProcessingResult{PhotoID: cls.PhotoID, Category: CategoryOther, Classification: cls}
}
