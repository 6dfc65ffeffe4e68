package dedup

import (
	"reflect"
	"testing"

	"photo-intel-pipeline/models"
)

func TestMergeMarkersWithinThreshold(t *testing.T) {
	markers := []models.DiagramPosition{
		{X: 50, Y: 50, Comment: "Dent on front door"},
		{X: 55, Y: 52, Comment: "Paint scratch"},
	}

	got := MergeMarkers(markers, 10)
	if len(got) != 1 {
		t.Fatalf("MergeMarkers() returned %d markers, want 1", len(got))
	}
	if got[0].X != 50 || got[0].Y != 50 {
		t.Errorf("MergeMarkers() kept position (%v, %v), want first appearance (50, 50)", got[0].X, got[0].Y)
	}
	if got[0].Comment != "Dent on front door; Paint scratch" {
		t.Errorf("MergeMarkers() comment = %q, want concatenation", got[0].Comment)
	}
}

func TestMergeMarkersOutsideThreshold(t *testing.T) {
	markers := []models.DiagramPosition{
		{X: 10, Y: 10, Comment: "front left"},
		{X: 90, Y: 90, Comment: "rear right"},
	}

	got := MergeMarkers(markers, 10)
	if len(got) != 2 {
		t.Fatalf("MergeMarkers() returned %d markers, want 2", len(got))
	}
}

func TestMergeMarkersOneAxisClose(t *testing.T) {
	// Close on X only; must not merge.
	markers := []models.DiagramPosition{
		{X: 50, Y: 10, Comment: "a"},
		{X: 52, Y: 80, Comment: "b"},
	}

	if got := MergeMarkers(markers, 10); len(got) != 2 {
		t.Errorf("MergeMarkers() merged markers %v apart on Y, want 2 kept", 70)
	}
}

func TestMergeMarkersIdempotent(t *testing.T) {
	markers := []models.DiagramPosition{
		{X: 20, Y: 20, Comment: "a"},
		{X: 25, Y: 25, Comment: "b"},
		{X: 80, Y: 80, Comment: "c"},
	}

	once := MergeMarkers(markers, 10)
	twice := MergeMarkers(once, 10)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("MergeMarkers() not idempotent: %v vs %v", once, twice)
	}
}

func TestMergeMarkersPreservesOrder(t *testing.T) {
	markers := []models.DiagramPosition{
		{X: 80, Y: 80, Comment: "first"},
		{X: 10, Y: 10, Comment: "second"},
		{X: 12, Y: 12, Comment: "third"},
	}

	got := MergeMarkers(markers, 10)
	if len(got) != 2 {
		t.Fatalf("MergeMarkers() returned %d markers, want 2", len(got))
	}
	if got[0].Comment != "first" {
		t.Errorf("MergeMarkers() reordered markers: first = %q", got[0].Comment)
	}
	if got[1].Comment != "second; third" {
		t.Errorf("MergeMarkers() merged comment = %q", got[1].Comment)
	}
}

func TestMergeMarkersEmptyComment(t *testing.T) {
	markers := []models.DiagramPosition{
		{X: 50, Y: 50},
		{X: 51, Y: 51, Comment: "dent"},
	}

	got := MergeMarkers(markers, 10)
	if len(got) != 1 || got[0].Comment != "dent" {
		t.Errorf("MergeMarkers() = %v, want single marker with comment dent", got)
	}
}
