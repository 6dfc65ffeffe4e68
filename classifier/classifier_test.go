package classifier

import (
	"context"
	"testing"
	"time"

	"photo-intel-pipeline/cache"
	"photo-intel-pipeline/models"
	"photo-intel-pipeline/stubllm"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected models.ClassificationResult
		warnings int
	}{
		{
			name:     "valid damage classification",
			response: `{"category": "damage", "confidence": 0.92, "position": "front_left", "suggested_order": 3, "damage_location": "front left fender"}`,
			expected: models.ClassificationResult{
				PhotoID: "p1", Category: models.CategoryDamage, Confidence: 0.92,
				Position: models.PositionFrontLeft, SuggestedOrder: 3, DamageLocation: "front left fender",
			},
		},
		{
			name:     "fenced response",
			response: "```json\n{\"category\": \"tire\", \"confidence\": 0.8, \"position\": \"rear_left\", \"suggested_order\": 12}\n```",
			expected: models.ClassificationResult{
				PhotoID: "p1", Category: models.CategoryTire, Confidence: 0.8,
				Position: models.PositionRearLeft, SuggestedOrder: 12,
			},
		},
		{
			name:     "unknown category falls back to other",
			response: `{"category": "selfie", "confidence": 0.5, "position": "front", "suggested_order": 5}`,
			expected: models.ClassificationResult{
				PhotoID: "p1", Category: models.CategoryOther, Confidence: 0.5,
				Position: models.PositionFront, SuggestedOrder: 5,
			},
			warnings: 1,
		},
		{
			name:     "unknown position falls back to other",
			response: `{"category": "overview", "confidence": 0.7, "position": "hood ornament", "suggested_order": 2}`,
			expected: models.ClassificationResult{
				PhotoID: "p1", Category: models.CategoryOverview, Confidence: 0.7,
				Position: models.PositionOther, SuggestedOrder: 2,
			},
			warnings: 1,
		},
		{
			name:     "out of range values are clamped",
			response: `{"category": "damage", "confidence": 5.0, "position": "rear", "suggested_order": 99}`,
			expected: models.ClassificationResult{
				PhotoID: "p1", Category: models.CategoryDamage, Confidence: 1.0,
				Position: models.PositionRear, SuggestedOrder: 20,
			},
		},
		{
			name:     "damage_location dropped for non-damage category",
			response: `{"category": "overview", "confidence": 0.9, "position": "front", "suggested_order": 1, "damage_location": "should be ignored"}`,
			expected: models.ClassificationResult{
				PhotoID: "p1", Category: models.CategoryOverview, Confidence: 0.9,
				Position: models.PositionFront, SuggestedOrder: 1,
			},
		},
		{
			name:     "unparseable response defaults everything",
			response: "I could not process this image, sorry!",
			expected: models.ClassificationResult{
				PhotoID: "p1", Category: models.CategoryOther, Confidence: 0,
				Position: models.PositionOther, SuggestedOrder: 20,
			},
			warnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, warnings := Decode("p1", tt.response)
			if result != tt.expected {
				t.Errorf("Decode() = %+v, want %+v", result, tt.expected)
			}
			if len(warnings) != tt.warnings {
				t.Errorf("Decode() warnings = %v, want %d", warnings, tt.warnings)
			}
		})
	}
}

func TestClassifyCaches(t *testing.T) {
	memo := cache.New(time.Hour)
	stub := stubllm.NewClient()
	stub.Category = "damage"
	c := New(stub, memo)

	img := models.ImageData{Base64: "aGVsbG8=", MediaType: "image/jpeg"}

	first, _, err := c.Classify(context.Background(), "p1", img)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if first.Category != models.CategoryDamage {
		t.Errorf("Classify() category = %v, want damage", first.Category)
	}

	// Second call must hit the cache even if the stub's answer changes.
	stub.Category = "tire"
	second, _, err := c.Classify(context.Background(), "p1", img)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	if second.Category != models.CategoryDamage {
		t.Errorf("Classify() second call category = %v, want cached damage", second.Category)
	}
}
