package analyzers

import (
	"testing"

	"photo-intel-pipeline/models"
)

func TestDecodeDamage(t *testing.T) {
	response := `{
		"description": "Deep dent with paint damage on the front left fender.",
		"severity": "severe",
		"damage_types": ["dent", "scratch"],
		"affected_parts": ["front left fender"],
		"repair_approach": "replace",
		"repair_hours": 4.5,
		"bounding_boxes": [{"x": 0.1, "y": 0.25, "width": 0.3, "height": 0.2}],
		"diagram_position": {"x": 15, "y": 25, "comment": "Front left fender"}
	}`

	result, warnings := DecodeDamage("p1", response)
	if len(warnings) != 0 {
		t.Errorf("DecodeDamage() warnings = %v, want none", warnings)
	}
	if result.Severity != models.SeveritySevere {
		t.Errorf("DecodeDamage() severity = %v, want severe", result.Severity)
	}
	if result.RepairHours == nil || *result.RepairHours != 4.5 {
		t.Errorf("DecodeDamage() repair hours = %v, want 4.5", result.RepairHours)
	}
	if len(result.BoundingBoxes) != 1 || result.BoundingBoxes[0].X != 0.1 {
		t.Errorf("DecodeDamage() bounding boxes = %v", result.BoundingBoxes)
	}
	if result.DiagramPosition.X != 15 || result.DiagramPosition.Y != 25 {
		t.Errorf("DecodeDamage() diagram position = %+v", result.DiagramPosition)
	}
	// Severity and repair approach ride along in the marker comment.
	want := "Front left fender (severe) - replace"
	if result.DiagramPosition.Comment != want {
		t.Errorf("DecodeDamage() comment = %q, want %q", result.DiagramPosition.Comment, want)
	}
}

func TestDecodeDamageClampsCoordinates(t *testing.T) {
	response := `{
		"description": "d",
		"severity": "minor",
		"bounding_boxes": [{"x": -0.5, "y": 1.8, "width": 2.0, "height": 0.5}],
		"diagram_position": {"x": 150, "y": -10, "comment": "c"}
	}`

	result, _ := DecodeDamage("p1", response)
	box := result.BoundingBoxes[0]
	if box.X != 0 || box.Y != 1 || box.Width != 1 || box.Height != 0.5 {
		t.Errorf("DecodeDamage() box not clamped: %+v", box)
	}
	if result.DiagramPosition.X != 100 || result.DiagramPosition.Y != 0 {
		t.Errorf("DecodeDamage() diagram position not clamped: %+v", result.DiagramPosition)
	}
}

func TestDecodeDamageInvalidSeverity(t *testing.T) {
	result, _ := DecodeDamage("p1", `{"description": "d", "severity": "catastrophic"}`)
	if result.Severity != models.SeverityModerate {
		t.Errorf("DecodeDamage() severity = %v, want moderate fallback", result.Severity)
	}
}

func TestDecodeDamageUnparseableFallsBack(t *testing.T) {
	result, warnings := DecodeDamage("p1", "not json at all")
	if len(warnings) != 1 {
		t.Errorf("DecodeDamage() warnings = %v, want 1", warnings)
	}
	if result.Severity != models.SeverityModerate {
		t.Errorf("DecodeDamage() fallback severity = %v, want moderate", result.Severity)
	}
	if result.DiagramPosition.X != 50 || result.DiagramPosition.Y != 50 {
		t.Errorf("DecodeDamage() fallback marker = %+v, want center", result.DiagramPosition)
	}
	if len(result.BoundingBoxes) != 0 {
		t.Errorf("DecodeDamage() fallback boxes = %v, want empty", result.BoundingBoxes)
	}
}

func TestDecodeDamageMissingDiagramPosition(t *testing.T) {
	result, warnings := DecodeDamage("p1", `{"description": "d", "severity": "minor"}`)
	if len(warnings) != 1 {
		t.Errorf("DecodeDamage() warnings = %v, want 1", warnings)
	}
	if result.DiagramPosition.X != 50 || result.DiagramPosition.Y != 50 {
		t.Errorf("DecodeDamage() marker = %+v, want center default", result.DiagramPosition)
	}
}
