// Package analyzers holds the per-category photo analyzers. All analyzers
// share one contract: photo id + image + classification context in,
// validated structured result out. A transport failure surfaces as an
// error for the orchestrator to downgrade; a malformed model response
// degrades to the analyzer's documented fallback with warnings.
package analyzers

import (
	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
)

// Cache operation keys, one per analyzer.
const (
	OpDamage      = "analyze_damage"
	OpOverview    = "analyze_overview"
	OpTire        = "analyze_tire"
	OpInterior    = "analyze_interior"
	OpVIN         = "detect_vin"
	OpPlate       = "detect_plate"
	OpDocument    = "extract_document"
	OpCalculation = "extract_calculation"
)

// Context is what the classifier already knows about the photo when an
// analyzer runs.
type Context struct {
	Classification models.ClassificationResult
}

// Analyzer runs the category analyses against the inference client, memoized
// per (photo, operation).
type Analyzer struct {
	llm   llm.Client
	cache *cache.Memory
}

func New(client llm.Client, memo *cache.Memory) *Analyzer {
	return &Analyzer{llm: client, cache: memo}
}

type damageCached struct {
	Result   models.DamageResult
	Warnings []string
}

type overviewCached struct {
	Result   models.OverviewResult
	Warnings []string
}

type tireCached struct {
	Result   models.TireResult
	Warnings []string
}

type interiorCached struct {
	Result   models.InteriorResult
	Warnings []string
}

type stringCached struct {
	Value    *string
	Warnings []string
}

type documentCached struct {
	Result   models.DocumentFields
	Warnings []string
}
