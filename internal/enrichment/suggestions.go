package enrichment

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

// MaxConfidence caps every confidence score a provider reports.
const MaxConfidence = 0.95

// ErrNoJSON is returned when a completion contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in completion")

// Suggestions are the structured annotations a provider returns for one payload.
type Suggestions struct {
	Summary    string   `json:"summary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	AltText    string   `json:"alt_text,omitempty"`
	Confidence float64  `json:"confidence"`
	// Fallback marks the fixed structure substituted after a failure. It is
	// reported but never merged into a document.
	Fallback bool `json:"fallback,omitempty"`
}

// FallbackSuggestions is the fixed structure used when a completion cannot be used.
func FallbackSuggestions() Suggestions {
	return Suggestions{
		Summary:    "",
		Tags:       []string{},
		AltText:    "",
		Confidence: 0,
		Fallback:   true,
	}
}

// ParseSuggestions extracts the first balanced JSON object from a completion
// and decodes it. Confidence is clamped to [0, MaxConfidence].
func ParseSuggestions(completion string) (Suggestions, error) {
	raw, ok := extractJSONObject(completion)
	if !ok {
		return FallbackSuggestions(), ErrNoJSON
	}

	var s Suggestions
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return FallbackSuggestions(), errors.Wrap(err, "decode suggestions")
	}

	s.Summary = strings.TrimSpace(s.Summary)
	s.AltText = strings.TrimSpace(s.AltText)
	tags := make([]string, 0, len(s.Tags))
	for _, tag := range s.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	s.Tags = tags
	s.Confidence = clampConfidence(s.Confidence)
	s.Fallback = false
	return s, nil
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > MaxConfidence:
		return MaxConfidence
	default:
		return c
	}
}

// extractJSONObject returns the first {...} substring whose braces balance,
// ignoring braces inside JSON strings.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		depth := 0
		inString, escaped := false, false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
		// Unbalanced from here; try the next opening brace
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}
