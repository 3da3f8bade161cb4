// services/structured_output.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedOutput reports structured output that failed to decode.
// Malformed output is recoverable per item: the caller audits the unit and
// continues, it never aborts a batch.
var ErrMalformedOutput = errors.New("malformed structured output")

// stripCodeFences removes a wrapping markdown fence, which prompt-enforced
// JSON modes sometimes add around the object.
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// parseStructuredOutput decodes one structured-output payload into v.
func parseStructuredOutput(raw string, v interface{}) error {
	cleaned := stripCodeFences(raw)
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}
