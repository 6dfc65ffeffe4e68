package models

// Event types on the generation stream. The terminal event of every run is
// either complete or error, and it is always the last one emitted.
const (
	EventProgress        = "progress"
	EventPhotoClassified = "photo_classified"
	EventPhotoProcessed  = "photo_processed"
	EventAutoFill        = "auto_fill"
	EventComplete        = "complete"
	EventError           = "error"
)

// Event is one newline-delimited JSON object on the generation stream.
// Only the fields relevant to its Type are populated.
type Event struct {
	Type           string                 `json:"type"`
	Step           string                 `json:"step,omitempty"`
	Current        int                    `json:"current,omitempty"`
	Total          int                    `json:"total,omitempty"`
	Message        string                 `json:"message,omitempty"`
	PhotoID        string                 `json:"photo_id,omitempty"`
	Classification *ClassificationResult  `json:"classification,omitempty"`
	Result         *PhotoProcessingResult `json:"result,omitempty"`
	Section        string                 `json:"section,omitempty"`
	Fields         map[string]any         `json:"fields,omitempty"`
	Summary        *GenerationSummary     `json:"summary,omitempty"`
}

// ProgressEvent builds a progress event for a step.
func ProgressEvent(step string, current, total int, message string) Event {
	return Event{Type: EventProgress, Step: step, Current: current, Total: total, Message: message}
}

// ClassifiedEvent builds a per-photo classification event.
func ClassifiedEvent(cls ClassificationResult) Event {
	c := cls
	return Event{Type: EventPhotoClassified, PhotoID: cls.PhotoID, Classification: &c}
}

// ProcessedEvent builds a per-photo analysis event.
func ProcessedEvent(res PhotoProcessingResult) Event {
	r := res
	return Event{Type: EventPhotoProcessed, PhotoID: res.PhotoID, Result: &r}
}

// AutoFillEvent announces a filled report section.
func AutoFillEvent(section string, fields map[string]any) Event {
	return Event{Type: EventAutoFill, Section: section, Fields: fields}
}

// CompleteEvent is the terminal success event.
func CompleteEvent(summary *GenerationSummary) Event {
	return Event{Type: EventComplete, Summary: summary}
}

// ErrorEvent is the terminal failure event.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
