// Package dedup merges near-duplicate damage markers on the vehicle diagram.
package dedup

import (
	"math"

	"photo-intel-pipeline/models"
)

// DefaultThreshold is the proximity (diagram units, per axis) within which
// two markers are considered the same spot.
const DefaultThreshold = 10.0

// MergeMarkers collapses markers that sit within threshold units of an
// already-accepted marker on both axes. The duplicate's comment is joined
// onto the survivor with "; "; positions of first appearance win. No marker
// is dropped, only merged, so the operation is idempotent.
func MergeMarkers(markers []models.DiagramPosition, threshold float64) []models.DiagramPosition {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var accepted []models.DiagramPosition
	for _, m := range markers {
		merged := false
		for i := range accepted {
			if math.Abs(accepted[i].X-m.X) <= threshold && math.Abs(accepted[i].Y-m.Y) <= threshold {
				if m.Comment != "" && m.Comment != accepted[i].Comment {
					if accepted[i].Comment == "" {
						accepted[i].Comment = m.Comment
					} else {
						accepted[i].Comment += "; " + m.Comment
					}
				}
				merged = true
				break
			}
		}
		if !merged {
			accepted = append(accepted, m)
		}
	}
	return accepted
}
