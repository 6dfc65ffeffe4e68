package models

// AutoFillPayload is everything the caller persists after a run. The
// pipeline itself writes nothing; it hands the whole payload back.
type AutoFillPayload struct {
	Vehicle      map[string]any          `json:"vehicle,omitempty"`
	Accident     map[string]any          `json:"accident,omitempty"`
	Condition    map[string]any          `json:"condition,omitempty"`
	Calculation  map[string]any          `json:"calculation,omitempty"`
	PhotoUpdates []PhotoUpdate           `json:"photo_updates,omitempty"`
	PhotoOrder   []string                `json:"photo_order,omitempty"`
	Stamps       []ProcessedStamp        `json:"stamps,omitempty"`
	Results      []PhotoProcessingResult `json:"results,omitempty"`
}

// PhotoUpdate carries per-photo description/classification/bounding-box
// updates for the caller's photo records.
type PhotoUpdate struct {
	PhotoID       string        `json:"photo_id"`
	Category      Category      `json:"category"`
	Position      Position      `json:"position"`
	Description   string        `json:"description,omitempty"`
	BoundingBoxes []BoundingBox `json:"bounding_boxes,omitempty"`
	DisplayOrder  int           `json:"display_order"`
}

// GenerationSummary is the aggregate result of one pipeline invocation.
// It is created fresh per run and never mutated after the terminal event.
type GenerationSummary struct {
	RunID           string           `json:"run_id"`
	PhotosProcessed int              `json:"photos_processed"`
	PhotosSkipped   int              `json:"photos_skipped"`
	SkippedPhotoIDs []string         `json:"skipped_photo_ids,omitempty"`
	Classifications map[Category]int `json:"classifications"`
	FilledSections  []string         `json:"filled_sections,omitempty"`
	FilledFields    map[string][]string `json:"filled_fields,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
	PhotoOrder      []string         `json:"photo_order,omitempty"`
	AutoFill        *AutoFillPayload `json:"auto_fill,omitempty"`
	VehicleSource   VehicleLookupSource `json:"vehicle_source,omitempty"`
}
