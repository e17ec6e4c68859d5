package fields

import (
	"sort"

	"github.com/mrlokans/cms-migrator/internal/entities"
)

// Classify buckets field names by value shape. Names in each bucket are sorted.
// Numbers, dates, text, images and lists get their own bucket; booleans,
// nulls and non-image objects are unknown.
func Classify(values map[string]entities.FieldValue) entities.Classification {
	var c entities.Classification
	for name, v := range values {
		switch v.Kind {
		case entities.FieldNumber:
			c.NumberFields = append(c.NumberFields, name)
		case entities.FieldDate:
			c.DateFields = append(c.DateFields, name)
		case entities.FieldText:
			c.TextFields = append(c.TextFields, name)
		case entities.FieldImage:
			c.ImageFields = append(c.ImageFields, name)
		case entities.FieldList:
			c.ReferenceFields = append(c.ReferenceFields, name)
		default:
			c.UnknownFields = append(c.UnknownFields, name)
		}
	}

	for _, bucket := range [][]string{c.TextFields, c.ImageFields, c.ReferenceFields, c.DateFields, c.NumberFields, c.UnknownFields} {
		sort.Strings(bucket)
	}
	return c
}

// ClassifyRaw parses and classifies a raw field bag.
func ClassifyRaw(raw map[string]any) entities.Classification {
	return Classify(Parse(raw))
}

// FieldSummary counts how often a field landed in each bucket across items.
type FieldSummary struct {
	Name   string         `json:"name"`
	Counts map[string]int `json:"counts"`
	Seen   int            `json:"seen"`
}

// Dominant returns the most frequent bucket, preferring the lexically
// smaller name on ties so reports are stable.
func (s FieldSummary) Dominant() string {
	best, bestCount := entities.BucketUnknown, -1
	for bucket, n := range s.Counts {
		if n > bestCount || (n == bestCount && bucket < best) {
			best, bestCount = bucket, n
		}
	}
	return best
}

// Mixed reports whether items disagreed on the field's shape.
func (s FieldSummary) Mixed() bool {
	return len(s.Counts) > 1
}

// Summarize classifies every item independently and aggregates per field.
// The result is sorted by field name.
func Summarize(items []entities.SourceItem) []FieldSummary {
	byName := make(map[string]*FieldSummary)
	for _, item := range items {
		for bucket, names := range ClassifyRaw(item.FieldData).Buckets() {
			for _, name := range names {
				s, ok := byName[name]
				if !ok {
					s = &FieldSummary{Name: name, Counts: make(map[string]int)}
					byName[name] = s
				}
				s.Counts[bucket]++
				s.Seen++
			}
		}
	}

	summaries := make([]FieldSummary, 0, len(byName))
	for _, s := range byName {
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Name < summaries[j].Name })
	return summaries
}
