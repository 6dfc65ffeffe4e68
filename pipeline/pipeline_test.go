package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"photo-intel-pipeline/analyzers"
	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/classifier"
	"photo-intel-pipeline/fetcher"
	"photo-intel-pipeline/incremental"
	"photo-intel-pipeline/llm"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/stubllm"
	"photo-intel-pipeline/vehicle"
)

// scriptedLLM routes classification answers per image so one run can mix
// categories; everything else falls through to the stub.
type scriptedLLM struct {
	stub *stubllm.Client
	// image base64 -> {category, suggested order}
	classifications map[string]scriptedClass

	mu             sync.Mutex
	damageInFlight int
	damageMaxSeen  int
	damageGate     chan struct{} // when set, damage calls block until closed
}

type scriptedClass struct {
	category string
	order    int
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{
		stub:            stubllm.NewClient(),
		classifications: map[string]scriptedClass{},
	}
}

func (s *scriptedLLM) SourceName() string { return "Scripted" }

func (s *scriptedLLM) Generate(ctx context.Context, images []models.ImageData, prompt string, tier llm.Tier) (string, error) {
	if strings.Contains(prompt, stubllm.MarkerClassify) && len(images) == 1 {
		if c, ok := s.classifications[images[0].Base64]; ok {
			return fmt.Sprintf(
				`{"category": %q, "confidence": 0.9, "position": "front", "suggested_order": %d, "damage_location": null}`,
				c.category, c.order), nil
		}
	}
	if strings.Contains(prompt, stubllm.MarkerDamage) {
		s.mu.Lock()
		s.damageInFlight++
		if s.damageInFlight > s.damageMaxSeen {
			s.damageMaxSeen = s.damageInFlight
		}
		gate := s.damageGate
		s.mu.Unlock()
		if gate != nil {
			<-gate
		}
		defer func() {
			s.mu.Lock()
			s.damageInFlight--
			s.mu.Unlock()
		}()
	}
	return s.stub.Generate(ctx, images, prompt, tier)
}

// photoServer serves deterministic image bytes per photo path.
func photoServer(bodies map[string]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte(body))
	}))
}

func registryServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Results": [{
			"Make": "VOLKSWAGEN", "Model": "Golf", "ModelYear": "2015",
			"BodyClass": "Hatchback", "FuelTypePrimary": "Diesel",
			"DisplacementCC": "1968", "EngineKW": "110"
		}]}`))
	}))
}

func newOrchestrator(client llm.Client, registryURL string) *Orchestrator {
	memo := cache.New(time.Hour)
	return New(
		fetcher.New(5*time.Second),
		classifier.New(client, memo),
		analyzers.New(client, memo),
		vehicle.NewResolver(vehicle.NewRegistry(registryURL), client, memo),
	)
}

func collect(t *testing.T, events <-chan models.Event) []models.Event {
	t.Helper()
	var out []models.Event
	deadline := time.After(10 * time.Second)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, e)
		case <-deadline:
			t.Fatalf("event stream did not close; got %d events", len(out))
		}
	}
}

func terminal(t *testing.T, events []models.Event) models.Event {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	return events[len(events)-1]
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestRunEndToEnd(t *testing.T) {
	photos := photoServer(map[string]string{
		"/overview": "overview-bytes",
		"/damage":   "damage-bytes",
		"/vin":      "vin-bytes",
		"/doc":      "doc-bytes",
	})
	defer photos.Close()
	registry := registryServer()
	defer registry.Close()

	client := newScriptedLLM()
	client.classifications[b64("overview-bytes")] = scriptedClass{"overview", 1}
	client.classifications[b64("damage-bytes")] = scriptedClass{"damage", 5}
	client.classifications[b64("vin-bytes")] = scriptedClass{"vin", 12}
	client.classifications[b64("doc-bytes")] = scriptedClass{"document", 18}

	o := newOrchestrator(client, registry.URL)
	input := []models.PhotoInput{
		{ID: "p-doc", ContentURL: photos.URL + "/doc"},
		{ID: "p-overview", ContentURL: photos.URL + "/overview"},
		{ID: "p-vin", ContentURL: photos.URL + "/vin"},
		{ID: "p-damage", ContentURL: photos.URL + "/damage"},
	}

	events := collect(t, o.Run(context.Background(), input, Options{RunID: "run-1"}))
	last := terminal(t, events)
	if last.Type != models.EventComplete {
		t.Fatalf("terminal event = %s (%s), want complete", last.Type, last.Message)
	}

	summary := last.Summary
	if summary.PhotosProcessed != 4 || summary.PhotosSkipped != 0 {
		t.Errorf("processed/skipped = %d/%d, want 4/0", summary.PhotosProcessed, summary.PhotosSkipped)
	}
	if summary.Classifications[models.CategoryDamage] != 1 || summary.Classifications[models.CategoryOverview] != 1 {
		t.Errorf("classification tallies = %v", summary.Classifications)
	}
	if summary.VehicleSource != models.LookupSourceRegistry {
		t.Errorf("vehicle source = %v, want registry", summary.VehicleSource)
	}

	wantOrder := []string{"p-overview", "p-damage", "p-vin", "p-doc"}
	if len(summary.PhotoOrder) != len(wantOrder) {
		t.Fatalf("photo order = %v, want %v", summary.PhotoOrder, wantOrder)
	}
	for i, id := range wantOrder {
		if summary.PhotoOrder[i] != id {
			t.Errorf("photo order[%d] = %s, want %s", i, summary.PhotoOrder[i], id)
		}
	}

	classified, processed := 0, 0
	for _, e := range events {
		switch e.Type {
		case models.EventPhotoClassified:
			classified++
		case models.EventPhotoProcessed:
			processed++
		}
	}
	if classified != 4 || processed != 4 {
		t.Errorf("classified/processed events = %d/%d, want 4/4", classified, processed)
	}

	auto := summary.AutoFill
	if auto == nil {
		t.Fatal("no auto-fill payload")
	}
	if auto.Vehicle["manufacturer"] != "VOLKSWAGEN" {
		t.Errorf("vehicle section = %v", auto.Vehicle)
	}
	if auto.Vehicle["vin"] != "WVWZZZ1KZAW123456" {
		t.Errorf("vehicle vin = %v", auto.Vehicle["vin"])
	}
	if auto.Accident["damage_count"] != 1 {
		t.Errorf("accident section = %v", auto.Accident)
	}
	if auto.Calculation == nil {
		t.Error("calculation section missing despite damage photo")
	}
	if len(auto.Stamps) != 4 {
		t.Errorf("stamps = %d, want 4", len(auto.Stamps))
	}
	for _, section := range []string{SectionVehicle, SectionAccident, SectionCondition, SectionCalculation} {
		found := false
		for _, s := range summary.FilledSections {
			if s == section {
				found = true
			}
		}
		if !found && section != SectionCondition {
			t.Errorf("section %s not reported as filled (%v)", section, summary.FilledSections)
		}
	}
}

func TestRunEmptyBatchCompletes(t *testing.T) {
	o := newOrchestrator(stubllm.NewClient(), "http://unused")
	ts := time.Now()
	photos := []models.PhotoInput{
		{ID: "p1", ContentURL: "http://x/1", LastProcessedAt: &ts, LastProcessedHash: incremental.Hash("http://x/1")},
		{ID: "p2", ContentURL: "http://x/2", LastProcessedAt: &ts, LastProcessedHash: incremental.Hash("http://x/2")},
	}

	events := collect(t, o.Run(context.Background(), photos, Options{RunID: "run-2", IncrementalOnly: true}))
	last := terminal(t, events)
	if last.Type != models.EventComplete {
		t.Fatalf("terminal event = %s, want complete", last.Type)
	}
	if last.Summary.PhotosSkipped != 2 || last.Summary.PhotosProcessed != 0 {
		t.Errorf("skipped/processed = %d/%d", last.Summary.PhotosSkipped, last.Summary.PhotosProcessed)
	}
	if len(last.Summary.Warnings) == 0 {
		t.Error("empty batch completed without a warning")
	}
}

func TestRunPartialFetchFailure(t *testing.T) {
	photos := photoServer(map[string]string{"/ok": "ok-bytes"})
	defer photos.Close()

	client := newScriptedLLM()
	client.classifications[b64("ok-bytes")] = scriptedClass{"overview", 1}

	o := newOrchestrator(client, "http://unused")
	input := []models.PhotoInput{
		{ID: "p-ok", ContentURL: photos.URL + "/ok"},
		{ID: "p-missing", ContentURL: photos.URL + "/missing"},
	}

	events := collect(t, o.Run(context.Background(), input, Options{RunID: "run-3"}))
	last := terminal(t, events)
	if last.Type != models.EventComplete {
		t.Fatalf("terminal event = %s, want complete despite one failed fetch", last.Type)
	}
	if last.Summary.PhotosProcessed != 1 {
		t.Errorf("processed = %d, want 1", last.Summary.PhotosProcessed)
	}
	found := false
	for _, w := range last.Summary.Warnings {
		if strings.Contains(w, "p-missing") {
			found = true
		}
	}
	if !found {
		t.Errorf("no warning names the failed photo: %v", last.Summary.Warnings)
	}
}

func TestRunBoundedAnalysisBatches(t *testing.T) {
	bodies := map[string]string{}
	var input []models.PhotoInput
	client := newScriptedLLM()
	for i := 0; i < 5; i++ {
		body := fmt.Sprintf("damage-%d", i)
		path := fmt.Sprintf("/d%d", i)
		bodies[path] = body
		client.classifications[b64(body)] = scriptedClass{"damage", 5}
		input = append(input, models.PhotoInput{
			ID:         fmt.Sprintf("p%d", i),
			ContentURL: path, // completed below once the server URL exists
		})
	}
	photos := photoServer(bodies)
	defer photos.Close()
	for i := range input {
		input[i].ContentURL = photos.URL + input[i].ContentURL
	}

	o := newOrchestrator(client, "http://unused")
	events := collect(t, o.Run(context.Background(), input, Options{RunID: "run-4", Concurrency: 2}))
	if terminal(t, events).Type != models.EventComplete {
		t.Fatal("run did not complete")
	}

	client.mu.Lock()
	max := client.damageMaxSeen
	client.mu.Unlock()
	if max > 2 {
		t.Errorf("damage analyses in flight peaked at %d, want <= 2", max)
	}
}

func TestRunCancellationStopsDispatch(t *testing.T) {
	photos := photoServer(map[string]string{"/d0": "damage-0", "/d1": "damage-1"})
	defer photos.Close()

	client := newScriptedLLM()
	client.classifications[b64("damage-0")] = scriptedClass{"damage", 5}
	client.classifications[b64("damage-1")] = scriptedClass{"damage", 6}
	gate := make(chan struct{})
	client.damageGate = gate

	ctx, cancel := context.WithCancel(context.Background())
	o := newOrchestrator(client, "http://unused")
	input := []models.PhotoInput{
		{ID: "p0", ContentURL: photos.URL + "/d0"},
		{ID: "p1", ContentURL: photos.URL + "/d1"},
	}
	stream := o.Run(ctx, input, Options{RunID: "run-5", Concurrency: 1})

	// Wait for the first analysis to be in flight, cancel, then release it.
	for {
		client.mu.Lock()
		inFlight := client.damageInFlight
		client.mu.Unlock()
		if inFlight > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	close(gate)

	events := collect(t, stream)
	last := terminal(t, events)
	if last.Type != models.EventError {
		t.Fatalf("terminal event = %s, want error after cancellation", last.Type)
	}
	for _, e := range events {
		if e.Type == models.EventComplete {
			t.Error("complete event emitted after cancellation")
		}
	}
}
