// Package fields turns a source item's loosely typed field bag into tagged
// FieldValues and groups fields by shape for reporting.
package fields

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mrlokans/cms-migrator/internal/entities"
)

// Layouts tried, in order, when deciding whether a string is a date.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"02-Jan-2006",
}

// Webflow uploads live under /uploads or on the website-files CDN; anything
// else must at least end in an image extension.
var imagePathPattern = regexp.MustCompile(`(?i)(/uploads?/|website-files\.com/|\.(jpe?g|png|webp|gif|svg|avif)(\?|#|$))`)

// Parse converts a raw field bag into tagged values.
func Parse(raw map[string]any) map[string]entities.FieldValue {
	values := make(map[string]entities.FieldValue, len(raw))
	for name, v := range raw {
		values[name] = ParseValue(v)
	}
	return values
}

// ParseValue converts one decoded JSON value.
func ParseValue(v any) entities.FieldValue {
	switch val := v.(type) {
	case nil:
		return entities.FieldValue{Kind: entities.FieldUnknown}
	case float64:
		return entities.FieldValue{Kind: entities.FieldNumber, Number: val, Raw: v}
	case int:
		return entities.FieldValue{Kind: entities.FieldNumber, Number: float64(val), Raw: v}
	case int64:
		return entities.FieldValue{Kind: entities.FieldNumber, Number: float64(val), Raw: v}
	case bool:
		return entities.FieldValue{Kind: entities.FieldBool, Bool: val, Raw: v}
	case string:
		if t, ok := ParseDate(val); ok {
			return entities.FieldValue{Kind: entities.FieldDate, Text: val, Date: t, Raw: v}
		}
		return entities.FieldValue{Kind: entities.FieldText, Text: val, Raw: v}
	case map[string]any:
		if u, ok := val["url"].(string); ok && LooksLikeImage(u) {
			alt, _ := val["alt"].(string)
			return entities.FieldValue{Kind: entities.FieldImage, Image: entities.ImageRef{URL: u, Alt: alt}, Raw: v}
		}
		return entities.FieldValue{Kind: entities.FieldUnknown, Raw: v}
	case []any:
		list := make([]string, 0, len(val))
		for _, elem := range val {
			list = append(list, listElement(elem))
		}
		return entities.FieldValue{Kind: entities.FieldList, List: list, Raw: v}
	case []string:
		return entities.FieldValue{Kind: entities.FieldList, List: append([]string(nil), val...), Raw: v}
	default:
		return entities.FieldValue{Kind: entities.FieldUnknown, Raw: v}
	}
}

// ParseDate reports whether s is a calendar date. Strings without a '-' are
// never dates, so "2021", "3" and "05/01/2021" stay text.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "-") {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LooksLikeImage reports whether a URL looks like an uploaded image.
func LooksLikeImage(u string) bool {
	return u != "" && imagePathPattern.MatchString(u)
}

// Reference lists hold ids; objects with an id or url are reduced to it.
func listElement(v any) string {
	switch elem := v.(type) {
	case string:
		return elem
	case map[string]any:
		for _, key := range []string{"id", "_id", "url"} {
			if s, ok := elem[key].(string); ok {
				return s
			}
		}
	}
	return fmt.Sprint(v)
}
