// Package pipeline orchestrates one report generation run: filter, fetch,
// classify, analyze, resolve the vehicle, extract the calculation, and
// assemble the auto-fill payload, streaming progress events throughout.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"photo-intel-pipeline/analyzers"
	"photo-intel-pipeline/classifier"
	"photo-intel-pipeline/fetcher"
	"photo-intel-pipeline/incremental"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/vehicle"
)

// Step names on the progress stream, in run order.
const (
	StepFiltering   = "filtering"
	StepFetching    = "fetching"
	StepClassifying = "classifying"
	StepProcessing  = "processing"
	StepVehicle     = "resolving_vehicle"
	StepCalculation = "extracting_calculation"
	StepAssembling  = "assembling"
)

const (
	// DefaultConcurrency bounds the analysis fan-out per batch.
	DefaultConcurrency = 5

	defaultInferenceTimeout = 2 * time.Minute
)

// Options configures one run.
type Options struct {
	RunID string
	// IncrementalOnly skips photos whose content hash is unchanged since the
	// last successful run.
	IncrementalOnly bool
	// ForcePhotoIDs reprocess regardless of stored hashes.
	ForcePhotoIDs []string
	// Concurrency bounds the analysis batches; <= 0 uses DefaultConcurrency.
	Concurrency int
	// DedupThreshold for diagram marker merging; <= 0 uses the default.
	DedupThreshold float64
	// InferenceTimeout caps each inference call; <= 0 uses two minutes.
	InferenceTimeout time.Duration
}

// Orchestrator wires the pipeline stages together. Safe for concurrent runs.
type Orchestrator struct {
	fetcher    *fetcher.Fetcher
	classifier *classifier.Classifier
	analyzer   *analyzers.Analyzer
	resolver   *vehicle.Resolver
}

func New(f *fetcher.Fetcher, c *classifier.Classifier, a *analyzers.Analyzer, r *vehicle.Resolver) *Orchestrator {
	return &Orchestrator{fetcher: f, classifier: c, analyzer: a, resolver: r}
}

// Run starts a generation run and returns its event stream. The stream
// always ends with exactly one terminal event (complete or error) and is
// then closed. Canceling ctx stops dispatch of new work; inference calls
// already in flight run to completion on their own timeouts.
func (o *Orchestrator) Run(ctx context.Context, photos []models.PhotoInput, opts Options) <-chan models.Event {
	events := make(chan models.Event, 16)
	go func() {
		defer close(events)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Pipeline run %s panicked: %v", opts.RunID, r)
				o.emit(ctx, events, models.ErrorEvent(fmt.Sprintf("internal pipeline failure: %v", r)))
			}
		}()
		o.run(ctx, photos, opts, events)
	}()
	return events
}

// emit delivers an event unless the consumer is gone. Buffer space is used
// even after cancellation so a terminal event still reaches a consumer that
// is draining the stream.
func (o *Orchestrator) emit(ctx context.Context, events chan<- models.Event, e models.Event) bool {
	select {
	case events <- e:
		return true
	default:
	}
	select {
	case events <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

// callContext detaches an inference call from run cancellation so an
// in-flight call finishes (and lands in the cache) even when the consumer
// disconnects mid-run.
func callContext(opts Options) (context.Context, context.CancelFunc) {
	t := opts.InferenceTimeout
	if t <= 0 {
		t = defaultInferenceTimeout
	}
	return context.WithTimeout(context.Background(), t)
}

// photoState carries one photo through the stages of a run.
type photoState struct {
	decision incremental.Decision
	index    int // input order, the tiebreaker for display ordering
	image    models.ImageData
	cls      models.ClassificationResult
	result   models.PhotoProcessingResult
	failed   bool
}

func (o *Orchestrator) run(ctx context.Context, photos []models.PhotoInput, opts Options, events chan<- models.Event) {
	summary := &models.GenerationSummary{
		RunID:           opts.RunID,
		Classifications: map[models.Category]int{},
		FilledFields:    map[string][]string{},
	}
	warn := func(format string, args ...any) {
		w := fmt.Sprintf(format, args...)
		log.Printf("Run %s: %s", opts.RunID, w)
		summary.Warnings = append(summary.Warnings, w)
	}

	// Filtering.
	if !o.emit(ctx, events, models.ProgressEvent(StepFiltering, 0, len(photos), "Selecting photos to process")) {
		return
	}
	process, skipped := incremental.Filter(photos, incremental.Options{
		IncrementalOnly: opts.IncrementalOnly,
		ForcePhotoIDs:   opts.ForcePhotoIDs,
	})
	summary.PhotosSkipped = len(skipped)
	for _, d := range skipped {
		summary.SkippedPhotoIDs = append(summary.SkippedPhotoIDs, d.Photo.ID)
	}
	if len(process) == 0 {
		warn("no photos to process")
		o.emit(ctx, events, models.CompleteEvent(summary))
		return
	}

	// Fetching and classifying, one goroutine per photo. Both are I/O
	// bound; the analysis batches below are where the expensive calls live.
	if !o.emit(ctx, events, models.ProgressEvent(StepFetching, 0, len(process), "Downloading photos")) {
		return
	}
	states := make([]*photoState, len(process))
	errs := make([]error, len(process))
	clsWarnings := make([][]string, len(process))
	var wg sync.WaitGroup
	for i, d := range process {
		states[i] = &photoState{decision: d, index: i}
		wg.Add(1)
		go func(s *photoState) {
			defer wg.Done()
			img, err := o.fetcher.Fetch(ctx, s.decision.Photo.EffectiveURL())
			if err != nil {
				errs[s.index] = fmt.Errorf("photo %s: %w", s.decision.Photo.ID, err)
				return
			}
			s.image = img

			callCtx, cancel := callContext(opts)
			defer cancel()
			cls, warnings, err := o.classifier.Classify(callCtx, s.decision.Photo.ID, img)
			if err != nil {
				errs[s.index] = fmt.Errorf("photo %s: %w", s.decision.Photo.ID, err)
				return
			}
			s.cls = cls
			clsWarnings[s.index] = warnings
		}(states[i])
	}
	wg.Wait()

	if ctx.Err() != nil {
		o.emitCanceled(ctx, events)
		return
	}

	// A failed fetch or classification drops the photo with a warning; the
	// rest of the run continues.
	var active []*photoState
	for i, s := range states {
		if errs[i] != nil {
			warn("%v", errs[i])
			continue
		}
		for _, w := range clsWarnings[i] {
			warn("%s", w)
		}
		active = append(active, s)
	}
	if len(active) == 0 {
		warn("every photo failed to fetch or classify")
		o.emit(ctx, events, models.CompleteEvent(summary))
		return
	}

	if !o.emit(ctx, events, models.ProgressEvent(StepClassifying, len(active), len(process), "Classifying photos")) {
		return
	}
	for _, s := range active {
		summary.Classifications[s.cls.Category]++
		if !o.emit(ctx, events, models.ClassifiedEvent(s.cls)) {
			return
		}
	}

	// Category analysis in bounded batches. A batch finishes entirely
	// before the next one starts.
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	done := 0
	for start := 0; start < len(active); start += concurrency {
		if ctx.Err() != nil {
			o.emitCanceled(ctx, events)
			return
		}
		end := start + concurrency
		if end > len(active) {
			end = len(active)
		}
		batch := active[start:end]

		var bwg sync.WaitGroup
		batchWarnings := make([][]string, len(batch))
		for i, s := range batch {
			bwg.Add(1)
			go func(i int, s *photoState) {
				defer bwg.Done()
				batchWarnings[i] = o.analyzePhoto(opts, s)
			}(i, s)
		}
		bwg.Wait()

		for i, s := range batch {
			for _, w := range batchWarnings[i] {
				warn("%s", w)
			}
			done++
			if !o.emit(ctx, events, models.ProcessedEvent(s.result)) {
				return
			}
		}
		if !o.emit(ctx, events, models.ProgressEvent(StepProcessing, done, len(active), "Analyzing photos")) {
			return
		}
	}
	summary.PhotosProcessed = len(active)

	// Vehicle resolution from VIN photos and document OCR.
	if !o.emit(ctx, events, models.ProgressEvent(StepVehicle, 0, 1, "Resolving vehicle data")) {
		return
	}
	doc := firstDocument(active)
	vin := firstVIN(active, doc)
	var lookup models.VehicleLookupResult
	if vin != "" {
		callCtx, cancel := callContext(opts)
		lookup = o.resolver.Lookup(callCtx, vin)
		cancel()
		for _, w := range lookup.Warnings {
			warn("%s", w)
		}
	} else {
		lookup = models.VehicleLookupResult{Source: models.LookupSourceNone}
		warn("no VIN found in photos or documents, skipping vehicle lookup")
	}
	summary.VehicleSource = lookup.Source
	merged := vehicle.Merge(lookup, doc)

	if ctx.Err() != nil {
		o.emitCanceled(ctx, events)
		return
	}

	// Calculation extraction over the damage photos.
	if !o.emit(ctx, events, models.ProgressEvent(StepCalculation, 0, 1, "Deriving repair calculation")) {
		return
	}
	var calcIDs []string
	var calcImages []models.ImageData
	for _, s := range active {
		if s.cls.Category == models.CategoryDamage && !s.failed {
			calcIDs = append(calcIDs, s.decision.Photo.ID)
			calcImages = append(calcImages, s.image)
		}
	}
	var calc *models.CalculationFields
	if len(calcImages) > 0 {
		callCtx, cancel := callContext(opts)
		result, warnings, err := o.analyzer.ExtractCalculation(callCtx, calcIDs, calcImages)
		cancel()
		if err != nil {
			warn("calculation extraction failed: %v", err)
		} else {
			calc = result
			for _, w := range warnings {
				warn("%s", w)
			}
		}
	}

	// Assembly.
	if !o.emit(ctx, events, models.ProgressEvent(StepAssembling, 0, 1, "Assembling report data")) {
		return
	}
	autoFill := o.assemble(active, merged, calc, opts)
	summary.AutoFill = autoFill
	summary.PhotoOrder = autoFill.PhotoOrder

	for _, section := range []string{SectionVehicle, SectionAccident, SectionCondition, SectionCalculation} {
		fields := sectionFields(autoFill, section)
		if len(fields) == 0 {
			continue
		}
		summary.FilledSections = append(summary.FilledSections, section)
		summary.FilledFields[section] = fieldNames(fields)
		if !o.emit(ctx, events, models.AutoFillEvent(section, fields)) {
			return
		}
	}

	o.emit(ctx, events, models.CompleteEvent(summary))
}

func (o *Orchestrator) emitCanceled(_ context.Context, events chan<- models.Event) {
	// Best effort: the consumer that canceled is usually gone already.
	select {
	case events <- models.ErrorEvent("generation canceled"):
	default:
	}
}

// analyzePhoto runs the category analyzer for one photo and fills in its
// processing result. Analyzer transport failures degrade the photo to a
// classification-only result; the returned warnings feed the summary.
func (o *Orchestrator) analyzePhoto(opts Options, s *photoState) []string {
	callCtx, cancel := callContext(opts)
	defer cancel()

	actx := analyzers.Context{Classification: s.cls}
	photoID := s.decision.Photo.ID

	var warnings []string
	var err error
	switch s.cls.Category {
	case models.CategoryDamage:
		var d models.DamageResult
		d, warnings, err = o.analyzer.AnalyzeDamage(callCtx, photoID, s.image, actx)
		if err == nil {
			s.result = models.NewDamageProcessingResult(s.cls, &d)
		}
	case models.CategoryOverview:
		var ov models.OverviewResult
		ov, warnings, err = o.analyzer.AnalyzeOverview(callCtx, photoID, s.image, actx)
		if err == nil {
			s.result = models.NewOverviewProcessingResult(s.cls, &ov)
		}
	case models.CategoryTire:
		var tr models.TireResult
		tr, warnings, err = o.analyzer.AnalyzeTire(callCtx, photoID, s.image, actx)
		if err == nil {
			s.result = models.NewTireProcessingResult(s.cls, &tr)
		}
	case models.CategoryInterior:
		var in models.InteriorResult
		in, warnings, err = o.analyzer.AnalyzeInterior(callCtx, photoID, s.image, actx)
		if err == nil {
			s.result = models.NewInteriorProcessingResult(s.cls, &in)
		}
	case models.CategoryVIN:
		var vin *string
		vin, warnings, err = o.analyzer.DetectVIN(callCtx, photoID, s.image, actx)
		if err == nil {
			s.result = models.NewVINProcessingResult(s.cls, vin)
		}
	case models.CategoryPlate:
		var plate *string
		plate, warnings, err = o.analyzer.DetectPlate(callCtx, photoID, s.image, actx)
		if err == nil {
			s.result = models.NewPlateProcessingResult(s.cls, plate)
		}
	case models.CategoryDocument:
		var doc models.DocumentFields
		doc, warnings, err = o.analyzer.ExtractDocument(callCtx, photoID, s.image, actx)
		if err == nil {
			s.result = models.NewDocumentProcessingResult(s.cls, &doc)
		}
	default:
		s.result = models.NewOtherProcessingResult(s.cls)
	}

	if err != nil {
		s.failed = true
		s.result = models.PhotoProcessingResult{
			PhotoID:        photoID,
			Category:       s.cls.Category,
			Classification: s.cls,
		}
		warnings = append(warnings, fmt.Sprintf("photo %s: analysis failed, keeping classification only: %v", photoID, err))
	}
	return warnings
}

// firstDocument returns the first successfully extracted registration
// document in input order.
func firstDocument(states []*photoState) *models.DocumentFields {
	for _, s := range states {
		if s.result.Document != nil {
			return s.result.Document
		}
	}
	return nil
}

// firstVIN prefers an OCR'd VIN photo, then the document's VIN field.
func firstVIN(states []*photoState, doc *models.DocumentFields) string {
	for _, s := range states {
		if s.result.VIN != nil && *s.result.VIN != "" {
			return *s.result.VIN
		}
	}
	if doc != nil {
		return doc.VIN
	}
	return ""
}

// orderPhotos sorts by the classifier's ordering hint, input order breaking
// ties so the sort is deterministic.
func orderPhotos(states []*photoState) []*photoState {
	ordered := append([]*photoState(nil), states...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].cls.SuggestedOrder != ordered[j].cls.SuggestedOrder {
			return ordered[i].cls.SuggestedOrder < ordered[j].cls.SuggestedOrder
		}
		return ordered[i].index < ordered[j].index
	})
	return ordered
}
