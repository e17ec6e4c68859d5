package sanity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WriteError is a non-2xx response from the Sanity API.
type WriteError struct {
	StatusCode int
	Message    string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("sanity API error (status %d): %s", e.StatusCode, e.Message)
}

// errorMessage extracts error.description from a Sanity error body.
func errorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Description string `json:"description"`
			Type        string `json:"type"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error.Description != "" {
			return payload.Error.Description
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}
