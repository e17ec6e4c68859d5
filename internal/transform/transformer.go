// Package transform maps a source item onto a destination document using a
// job's explicit field mapping.
package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/mrlokans/cms-migrator/internal/config"
	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/fields"
)

// ErrNoSlug is returned for items with neither a slug nor a name to derive one from.
var ErrNoSlug = errors.New("item has no slug and no name to derive one from")

// Result is the outcome of transforming one item. When Skipped is set,
// Document is nil. Warnings name mapped values that were altered or left out.
type Result struct {
	Document   *entities.Document
	Skipped    bool
	SkipReason string
	Warnings   []string
}

// Transformer applies one job's mapping.
type Transformer struct {
	job    config.Job
	newKey func() string
}

func New(job config.Job) *Transformer {
	return &Transformer{job: job, newKey: newKey}
}

func newKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Transform converts item into a document, or skips it when an exclusion flag
// is set. Exclusion is checked before any field is read.
func (t *Transformer) Transform(item entities.SourceItem) (Result, error) {
	if reason, skip := t.excluded(item); skip {
		return Result{Skipped: true, SkipReason: reason}, nil
	}

	values := fields.Parse(item.FieldData)
	label := strings.TrimSpace(values[t.job.NameField].String())

	slug := ""
	if t.job.SlugField != "" {
		slug = strings.TrimSpace(values[t.job.SlugField].String())
	}
	if slug == "" {
		slug = Slugify(label)
	}
	if slug == "" {
		return Result{}, errors.Wrapf(ErrNoSlug, "item %s", item.ID)
	}
	if label == "" {
		label = slug
	}

	doc := entities.NewDocument(t.job.Type, item.ID, label)
	doc.SetSlug(slug)

	var warnings []string
	for _, f := range t.job.Fields {
		v, ok := values[f.Source]
		if !ok && f.Kind != config.KindBool {
			continue
		}

		_, existed := doc.Attributes[f.Target]
		assets := len(doc.Assets)
		if warning := t.apply(doc, f, v); warning != "" {
			warnings = append(warnings, f.Source+": "+warning)
		}

		_, set := doc.Attributes[f.Target]
		if !existed && !set && len(doc.Assets) == assets && hasContent(v) {
			warnings = append(warnings, fmt.Sprintf("%s: %s value %q cannot be mapped as %s, left out",
				f.Source, v.Kind, truncate(describe(v), 60), f.Kind))
		}
	}

	return Result{Document: doc, Warnings: warnings}, nil
}

// hasContent reports whether a value carries data worth migrating. Nulls,
// blank text and markup without text do not.
func hasContent(v entities.FieldValue) bool {
	switch v.Kind {
	case entities.FieldUnknown:
		return v.Raw != nil
	case entities.FieldText:
		_, ok := ExtractPlainText(v.Text)
		return ok
	case entities.FieldList:
		return len(nonBlank(v.List)) > 0
	default:
		return true
	}
}

func describe(v entities.FieldValue) string {
	switch v.Kind {
	case entities.FieldList:
		return strings.Join(v.List, "; ")
	case entities.FieldUnknown:
		return fmt.Sprint(v.Raw)
	default:
		return v.String()
	}
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}

func nonBlank(values []string) []string {
	var out []string
	for _, s := range values {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// text flattens a value for text attributes. Lists join with "; ", the same
// separator SplitMulti reads.
func text(v entities.FieldValue) string {
	if v.Kind == entities.FieldList {
		return strings.Join(nonBlank(v.List), "; ")
	}
	return strings.TrimSpace(v.String())
}

func (t *Transformer) excluded(item entities.SourceItem) (string, bool) {
	for _, flag := range t.job.ExcludeIfTrue {
		if CoerceBool(item.FieldData[flag]) {
			return flag + " is true", true
		}
	}
	if t.job.SkipArchived && item.IsArchived {
		return "archived", true
	}
	if t.job.SkipDrafts && item.IsDraft {
		return "draft", true
	}
	return "", false
}

// apply sets the attribute for one mapped field. It returns a warning when
// the value was kept in a different shape or partly dropped.
func (t *Transformer) apply(doc *entities.Document, f config.FieldMapping, v entities.FieldValue) string {
	switch f.Kind {
	case config.KindText:
		if s := text(v); s != "" {
			doc.Attributes[f.Target] = s
		}

	case config.KindNumber:
		switch v.Kind {
		case entities.FieldNumber:
			doc.Attributes[f.Target] = v.Number
		case entities.FieldText:
			if n, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64); err == nil {
				doc.Attributes[f.Target] = n
			}
		}

	case config.KindDate:
		if v.Kind == entities.FieldDate {
			doc.Attributes[f.Target] = v.Text
			break
		}
		if s := text(v); s != "" {
			doc.Attributes[f.Target] = s
			return fmt.Sprintf("%q is not a calendar date, copied as text", s)
		}

	case config.KindBool:
		doc.Attributes[f.Target] = CoerceBool(v.Raw)

	case config.KindPrimary:
		if v.Kind == entities.FieldList {
			if values := nonBlank(v.List); len(values) > 0 {
				doc.Attributes[f.Target] = values[0]
			}
			break
		}
		if primary, ok := Primary(v.String()); ok {
			doc.Attributes[f.Target] = primary
		}

	case config.KindList:
		var list []string
		if v.Kind == entities.FieldList {
			list = nonBlank(v.List)
		} else {
			list = SplitMulti(v.String())
		}
		if len(list) > 0 {
			doc.Attributes[f.Target] = list
		}

	case config.KindRichText:
		if plain, ok := ExtractPlainText(text(v)); ok {
			doc.Attributes[f.Target] = []entities.Block{t.block(plain)}
		}

	case config.KindImage:
		imageURL, alt := "", ""
		switch v.Kind {
		case entities.FieldImage:
			imageURL, alt = v.Image.URL, v.Image.Alt
		case entities.FieldText:
			imageURL = strings.TrimSpace(v.Text)
		}
		if imageURL != "" {
			doc.Assets = append(doc.Assets, entities.PendingAsset{
				Field:   f.Target,
				URL:     imageURL,
				Label:   doc.Label,
				AltText: alt,
			})
		}

	case config.KindCategory:
		if v.Kind == entities.FieldList {
			codes := nonBlank(v.List)
			if len(codes) == 0 {
				break
			}
			doc.Attributes[f.Target] = MapCategory(t.job.Categories, codes[0])
			if len(codes) > 1 {
				return fmt.Sprintf("kept category %q, dropped %s", codes[0], strings.Join(codes[1:], "; "))
			}
			break
		}
		if code := strings.TrimSpace(v.String()); code != "" {
			doc.Attributes[f.Target] = MapCategory(t.job.Categories, code)
		}

	case config.KindReference:
		ids := v.List
		if v.Kind != entities.FieldList {
			ids = SplitMulti(v.String())
		}
		refs := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			if id == "" {
				continue
			}
			refs = append(refs, map[string]any{
				"_type": "reference",
				"_key":  t.newKey(),
				"_ref":  f.RefPrefix + id,
				"_weak": true,
			})
		}
		if len(refs) > 0 {
			doc.Attributes[f.Target] = refs
		}
	}
	return ""
}

// block wraps text in a single unmarked normal paragraph.
func (t *Transformer) block(text string) entities.Block {
	return entities.Block{
		Type:     "block",
		Key:      t.newKey(),
		Style:    "normal",
		MarkDefs: []any{},
		Children: []entities.Span{{
			Type:  "span",
			Key:   t.newKey(),
			Text:  text,
			Marks: []string{},
		}},
	}
}
