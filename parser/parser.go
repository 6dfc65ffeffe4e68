package parser

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ExtractJSONFromMarkdown extracts a JSON object from a model response that
// may wrap it in markdown code fences or surrounding prose.
func ExtractJSONFromMarkdown(response string) string {
	startMarker := "```"
	endMarker := "```"

	startIdx := strings.Index(response, startMarker)
	if startIdx == -1 {
		// No code block found, try to find the JSON object directly
		startIdx = strings.Index(response, "{")
		if startIdx == -1 {
			return response
		}
		endIdx := strings.LastIndex(response, "}")
		if endIdx == -1 {
			return response
		}
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	endIdx := strings.Index(response[startIdx+len(startMarker):], endMarker)
	if endIdx == -1 {
		return response
	}
	endIdx += startIdx + len(startMarker)

	content := response[startIdx+len(startMarker) : endIdx]

	// Remove the language identifier if present (e.g., "json")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 && (strings.TrimSpace(lines[0]) == "json" || strings.TrimSpace(lines[0]) == "") {
		content = strings.Join(lines[1:], "\n")
	}

	return strings.TrimSpace(content)
}

// Object parses a model response into a generic JSON object. The second
// return is false when no object could be recovered at all; callers then
// fall back to their documented defaults instead of erroring.
func Object(response string) (map[string]any, bool) {
	cleaned := ExtractJSONFromMarkdown(strings.TrimSpace(response))
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// Str reads a string field; missing, null, or the literal "null" yield
// the fallback.
func Str(obj map[string]any, key, fallback string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return fallback
	}
	return s
}

// Float reads a numeric field; JSON numbers and numeric strings both count.
func Float(obj map[string]any, key string, fallback float64) float64 {
	v, ok := obj[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return f
		}
	}
	return fallback
}

// Clamp bounds v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampFloat reads a numeric field and clamps it to [min, max].
func ClampFloat(obj map[string]any, key string, min, max, fallback float64) float64 {
	return Clamp(Float(obj, key, fallback), min, max)
}

// ClampInt reads a numeric field, truncates it, and clamps to [min, max].
func ClampInt(obj map[string]any, key string, min, max, fallback int) int {
	v := int(Float(obj, key, float64(fallback)))
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Bool reads a boolean field; the strings "true"/"false" also count.
func Bool(obj map[string]any, key string, fallback bool) bool {
	v, ok := obj[key]
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b
		}
	}
	return fallback
}

// Enum reads a string field and maps any value outside the closed set to
// the fallback.
func Enum(obj map[string]any, key string, allowed []string, fallback string) string {
	raw := strings.ToLower(Str(obj, key, fallback))
	for _, a := range allowed {
		if raw == a {
			return a
		}
	}
	return fallback
}

// StringList reads an array field, keeping only non-empty string elements.
func StringList(obj map[string]any, key string) []string {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, e := range arr {
		if s, ok := e.(string); ok {
			s = strings.TrimSpace(s)
			if s != "" && !strings.EqualFold(s, "null") {
				out = append(out, s)
			}
		}
	}
	return out
}

// ObjectList reads an array field of JSON objects.
func ObjectList(obj map[string]any, key string) []map[string]any {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Child reads a nested JSON object field.
func Child(obj map[string]any, key string) (map[string]any, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// FloatPtr reads an optional numeric field; nil when absent or unparseable.
func FloatPtr(obj map[string]any, key string) *float64 {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		f := t
		return &f
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return &f
		}
	}
	return nil
}
