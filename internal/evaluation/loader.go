package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadGoldenMessages reads and parses a golden message set from a JSON file.
func LoadGoldenMessages(path string) ([]GoldenMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden messages file: %w", err)
	}

	var messages []GoldenMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse golden messages: %w", err)
	}

	return messages, nil
}

var validDifficulties = map[string]bool{
	"easy":   true,
	"medium": true,
	"hard":   true,
}

// ValidateGoldenMessages checks that all golden messages have required fields
// and valid label values.
func ValidateGoldenMessages(messages []GoldenMessage) error {
	validTypes := make(map[string]bool)
	for _, t := range ValidServiceTypes() {
		validTypes[t] = true
	}

	seen := make(map[string]struct{}, len(messages))
	for i, m := range messages {
		if m.ID == "" {
			return fmt.Errorf("message at index %d: missing id", i)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("message at index %d: duplicate id %q", i, m.ID)
		}
		seen[m.ID] = struct{}{}

		if m.Message == "" {
			return fmt.Errorf("message %q: missing message text", m.ID)
		}
		if !validTypes[m.ServiceType] {
			return fmt.Errorf("message %q: invalid service type %q", m.ID, m.ServiceType)
		}
		if !validDifficulties[m.Difficulty] {
			return fmt.Errorf("message %q: invalid difficulty %q (must be easy/medium/hard)", m.ID, m.Difficulty)
		}
	}

	return nil
}
