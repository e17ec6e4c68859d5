package transform

import (
	"regexp"
	"strings"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)
	htmlTags     = regexp.MustCompile(`<[^>]*>`)
)

// Slugify lower-cases name, replaces each run of characters outside [a-z0-9]
// with one hyphen and trims hyphens from both ends. Slugify(Slugify(x)) == Slugify(x).
func Slugify(name string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// CoerceBool is true only for the boolean true or the exact text "true".
func CoerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return val == "true"
	default:
		return false
	}
}

// SplitMulti splits a ';' separated value, trimming parts and dropping empty ones.
func SplitMulti(s string) []string {
	var parts []string
	for _, p := range strings.Split(s, ";") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Primary returns the first ';' separated value.
func Primary(s string) (string, bool) {
	parts := SplitMulti(s)
	if len(parts) == 0 {
		return "", false
	}
	return parts[0], true
}

// ExtractPlainText strips tags, unescapes only &nbsp; and &amp;, and trims.
// Headings, lists, links and emphasis are lost. ok is false when nothing is left.
func ExtractPlainText(s string) (text string, ok bool) {
	text = htmlTags.ReplaceAllString(s, "")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.TrimSpace(text)
	return text, text != ""
}

// MapCategory looks code up in table, passing unknown codes through unchanged.
func MapCategory(table map[string]string, code string) string {
	if mapped, ok := table[code]; ok {
		return mapped
	}
	return code
}
