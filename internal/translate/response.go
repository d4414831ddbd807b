package translate

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// returned when a response does not answer exactly the items it was asked for
var ErrResultMismatch = errors.New("translation results do not match request")

// parses a model response for one batch. Every item of the batch must come
// back exactly once, under its own index.
func parseResponse(responseText string, batch []TranslationItem) ([]TranslationResult, error) {
	text := stripCodeFence(responseText)
	if text == "" {
		return nil, fmt.Errorf("empty response")
	}

	results, err := decodeResults(text)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to parse JSON response: %w (response: %s)",
			err,
			truncateString(text, 200),
		)
	}

	if err := matchBatch(results, batch); err != nil {
		return nil, err
	}
	return results, nil
}

func matchBatch(results []TranslationResult, batch []TranslationItem) error {
	if len(results) != len(batch) {
		return fmt.Errorf(
			"%w: expected %d results, got %d",
			ErrResultMismatch,
			len(batch),
			len(results),
		)
	}

	answered := make(map[int]bool, len(batch))
	for _, item := range batch {
		answered[item.Index] = false
	}
	for _, r := range results {
		done, ok := answered[r.Index]
		if !ok {
			return fmt.Errorf("%w: index %d was not requested", ErrResultMismatch, r.Index)
		}
		if done {
			return fmt.Errorf("%w: index %d returned twice", ErrResultMismatch, r.Index)
		}
		answered[r.Index] = true
	}
	return nil
}

// models wrap JSON in ```json fences despite being told not to
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodes the first JSON array in text, or the first array-valued field of
// a wrapping object such as {"translations": [...]}
func decodeResults(text string) ([]TranslationResult, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err != nil {
			continue
		}
		if results, ok := resultsFrom(raw); ok {
			return results, nil
		}
	}
	return nil, fmt.Errorf("no translation array found")
}

func resultsFrom(raw json.RawMessage) ([]TranslationResult, bool) {
	var results []TranslationResult
	if err := json.Unmarshal(raw, &results); err == nil {
		return results, len(results) > 0
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, false
	}
	for _, key := range slices.Sorted(maps.Keys(wrapper)) {
		if err := json.Unmarshal(wrapper[key], &results); err == nil && len(results) > 0 {
			return results, true
		}
	}
	return nil, false
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
