package pipeline

import (
	"sort"

	"photo-intel-pipeline/dedup"
	"photo-intel-pipeline/models"
)

// Report sections the pipeline can auto-fill.
const (
	SectionVehicle     = "vehicle"
	SectionAccident    = "accident"
	SectionCondition   = "condition"
	SectionCalculation = "calculation"
)

// assemble folds the per-photo results into the auto-fill payload: ordered
// photo updates, processed stamps, and the four report sections.
func (o *Orchestrator) assemble(active []*photoState, merged models.VehicleFields, calc *models.CalculationFields, opts Options) *models.AutoFillPayload {
	ordered := orderPhotos(active)

	payload := &models.AutoFillPayload{}
	for i, s := range ordered {
		payload.PhotoOrder = append(payload.PhotoOrder, s.decision.Photo.ID)
		payload.Results = append(payload.Results, s.result)

		update := models.PhotoUpdate{
			PhotoID:      s.decision.Photo.ID,
			Category:     s.cls.Category,
			Position:     s.cls.Position,
			DisplayOrder: i + 1,
		}
		if d := s.result.Damage; d != nil {
			update.Description = d.Description
			update.BoundingBoxes = d.BoundingBoxes
		}
		payload.PhotoUpdates = append(payload.PhotoUpdates, update)

		// Photos whose analysis failed are left unstamped so the next
		// incremental run retries them.
		if !s.failed {
			payload.Stamps = append(payload.Stamps, models.ProcessedStamp{
				PhotoID: s.decision.Photo.ID,
				NewHash: s.decision.Hash,
			})
		}
	}

	payload.Vehicle = vehicleSection(merged, ordered)
	payload.Accident = accidentSection(ordered, opts.DedupThreshold)
	payload.Condition = conditionSection(ordered)
	payload.Calculation = calculationSection(calc)

	return payload
}

// vehicleSection maps the merged vehicle record onto report fields,
// dropping unknowns. The plate falls back to the first plate photo read.
func vehicleSection(v models.VehicleFields, ordered []*photoState) map[string]any {
	fields := map[string]any{}
	put := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	put("vin", v.VIN)
	put("manufacturer", v.Manufacturer)
	put("model", v.Model)
	put("subtype", v.Subtype)
	put("year", v.Year)
	put("body_type", v.BodyType)
	put("fuel_type", v.FuelType)
	put("displacement", v.Displacement)
	put("power_kw", v.PowerKW)
	put("cylinders", v.Cylinders)
	put("engine_design", v.EngineDesign)
	put("transmission", v.Transmission)
	put("first_registration", v.FirstRegistration)
	put("registration_date", v.RegistrationDate)
	put("prior_owners", v.PriorOwners)
	put("color", v.Color)
	put("seats", v.Seats)
	put("mileage", v.Mileage)

	plate := v.Plate
	if plate == "" {
		for _, s := range ordered {
			if s.result.Plate != nil && *s.result.Plate != "" {
				plate = *s.result.Plate
				break
			}
		}
	}
	put("plate", plate)

	return fields
}

// accidentSection aggregates the damage analyses: one description list and
// the deduplicated diagram markers.
func accidentSection(ordered []*photoState, threshold float64) map[string]any {
	var descriptions []string
	var markers []models.DiagramPosition
	severity := models.Severity("")
	for _, s := range ordered {
		d := s.result.Damage
		if d == nil {
			continue
		}
		if d.Description != "" {
			descriptions = append(descriptions, d.Description)
		}
		markers = append(markers, d.DiagramPosition)
		if severityRank(d.Severity) > severityRank(severity) {
			severity = d.Severity
		}
	}
	if len(markers) == 0 && len(descriptions) == 0 {
		return nil
	}

	fields := map[string]any{
		"damage_count":    len(markers),
		"diagram_markers": dedup.MergeMarkers(markers, threshold),
	}
	if len(descriptions) > 0 {
		fields["damage_descriptions"] = descriptions
	}
	if severity != "" {
		fields["overall_severity"] = severity
	}
	return fields
}

func severityRank(s models.Severity) int {
	switch s {
	case models.SeverityMinor:
		return 1
	case models.SeverityModerate:
		return 2
	case models.SeveritySevere:
		return 3
	}
	return 0
}

// conditionSection collects the overview, tire, and interior reads.
func conditionSection(ordered []*photoState) map[string]any {
	fields := map[string]any{}

	for _, s := range ordered {
		if ov := s.result.Overview; ov != nil {
			if ov.Color != "" {
				fields["color"] = ov.Color
			}
			if ov.ConditionFront != "" {
				fields["condition_front"] = ov.ConditionFront
			}
			if ov.ConditionRear != "" {
				fields["condition_rear"] = ov.ConditionRear
			}
			break
		}
	}

	var tires []models.TireResult
	for _, s := range ordered {
		if s.result.Tire != nil {
			tires = append(tires, *s.result.Tire)
		}
	}
	if len(tires) > 0 {
		fields["tires"] = tires
	}

	for _, s := range ordered {
		if in := s.result.Interior; in != nil {
			if in.Condition != "" {
				fields["interior_condition"] = in.Condition
			}
			if len(in.Features) > 0 {
				fields["interior_features"] = in.Features
			}
			break
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// calculationSection exposes the batched calculation extraction, when any.
func calculationSection(calc *models.CalculationFields) map[string]any {
	if calc == nil {
		return nil
	}
	fields := map[string]any{
		"damage_class":         calc.DamageClass,
		"repair_method":        calc.RepairMethod,
		"alignment_required":   calc.AlignmentRequired,
		"measurement_required": calc.MeasurementRequired,
		"paint_required":       calc.PaintRequired,
		"plastic_repair":       calc.PlasticRepair,
	}
	if len(calc.StructuralRisks) > 0 {
		fields["structural_risks"] = calc.StructuralRisks
	}
	if calc.EstimatedRepairDays != nil {
		fields["estimated_repair_days"] = *calc.EstimatedRepairDays
	}
	return fields
}

// sectionFields returns one section's field map from the payload.
func sectionFields(payload *models.AutoFillPayload, section string) map[string]any {
	switch section {
	case SectionVehicle:
		return payload.Vehicle
	case SectionAccident:
		return payload.Accident
	case SectionCondition:
		return payload.Condition
	case SectionCalculation:
		return payload.Calculation
	}
	return nil
}

// fieldNames lists a section's keys in stable order for the summary.
func fieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
