// Package incremental decides which photos need reprocessing. A photo is
// skipped only when its effective URL still hashes to the value stamped at
// the last successful run.
package incremental

import (
	"crypto/sha256"
	"encoding/hex"

	"photo-intel-pipeline/models"
)

// Hash returns the deterministic content hash of a photo's effective URL.
// Change detection only, not a security boundary.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Options controls the filter.
type Options struct {
	// IncrementalOnly skips photos whose stored hash matches the current one.
	// When false every photo is processed unconditionally.
	IncrementalOnly bool
	// ForcePhotoIDs always reprocess, regardless of stored hashes.
	ForcePhotoIDs []string
}

// Decision is the filter outcome for one photo.
type Decision struct {
	Photo   models.PhotoInput
	Process bool
	// Hash of the current effective URL; the caller stamps it after a
	// successful run.
	Hash string
}

// Decide evaluates one photo against the options.
func Decide(photo models.PhotoInput, opts Options) Decision {
	h := Hash(photo.EffectiveURL())
	d := Decision{Photo: photo, Hash: h, Process: true}

	if !opts.IncrementalOnly {
		return d
	}
	for _, id := range opts.ForcePhotoIDs {
		if id == photo.ID {
			return d
		}
	}
	if photo.LastProcessedAt == nil {
		return d
	}
	if photo.LastProcessedHash != h {
		return d
	}
	d.Process = false
	return d
}

// Filter splits photos into those needing processing and those skipped.
func Filter(photos []models.PhotoInput, opts Options) (process []Decision, skipped []Decision) {
	for _, p := range photos {
		d := Decide(p, opts)
		if d.Process {
			process = append(process, d)
		} else {
			skipped = append(skipped, d)
		}
	}
	return process, skipped
}
