// Package enrichment asks an external annotation service for summaries,
// tags and image alt text, and merges usable answers into documents.
package enrichment

import (
	"context"
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mrlokans/cms-migrator/internal/config"
	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/logging"
)

const maxPayloadChars = 12000

const textSystemPrompt = `You annotate CMS content for a website migration.
Reply with one JSON object and nothing else:
{"summary": "<one or two sentence summary>", "tags": ["<tag>", ...], "confidence": <0..1>}`

const imageSystemPrompt = `You write alt text for website images.
Reply with one JSON object and nothing else:
{"alt_text": "<concise description, under 125 characters>", "tags": ["<tag>", ...], "confidence": <0..1>}`

// EnrichmentError describes a failed or unusable annotation. The document is
// still written without suggestions.
type EnrichmentError struct {
	Op  string // "prepare", "complete" or "parse"
	Err error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("enrichment %s failed: %v", e.Op, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// Enricher wraps a Provider with prompt building, request spacing and
// response parsing.
type Enricher struct {
	provider  Provider
	converter *md.Converter
	limiter   *rate.Limiter
	logger    *zap.SugaredLogger
}

func NewEnricher(provider Provider, logger *zap.SugaredLogger) *Enricher {
	return &Enricher{
		provider:  provider,
		converter: md.NewConverter("", true, nil),
		logger:    logging.OrNop(logger),
	}
}

// SetRequestInterval spaces provider calls at least interval apart (optional).
func (e *Enricher) SetRequestInterval(interval time.Duration) {
	if interval <= 0 {
		e.limiter = nil
		return
	}
	e.limiter = rate.NewLimiter(rate.Every(interval), 1)
}

// EnrichText annotates a text or HTML payload. On failure it returns the
// fallback suggestions together with an *EnrichmentError.
func (e *Enricher) EnrichText(ctx context.Context, text, hint string) (Suggestions, error) {
	payload, err := e.prepare(text)
	if err != nil {
		return FallbackSuggestions(), &EnrichmentError{Op: "prepare", Err: err}
	}

	user := "Content:\n" + payload
	if hint != "" {
		user = fmt.Sprintf("Context: %s\n\n%s", hint, user)
	}
	return e.complete(ctx, Prompt{System: textSystemPrompt, User: user})
}

// EnrichImage asks for alt text describing the image at imageURL.
func (e *Enricher) EnrichImage(ctx context.Context, imageURL, hint string) (Suggestions, error) {
	if strings.TrimSpace(imageURL) == "" {
		return FallbackSuggestions(), &EnrichmentError{Op: "prepare", Err: errors.New("empty image URL")}
	}

	user := "Describe this image."
	if hint != "" {
		user = fmt.Sprintf("Describe this image. It belongs to: %s", hint)
	}
	return e.complete(ctx, Prompt{System: imageSystemPrompt, User: user, ImageURL: imageURL})
}

func (e *Enricher) complete(ctx context.Context, prompt Prompt) (Suggestions, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return FallbackSuggestions(), &EnrichmentError{Op: "complete", Err: err}
		}
	}

	completion, err := e.provider.Complete(ctx, prompt)
	if err != nil {
		return FallbackSuggestions(), &EnrichmentError{Op: "complete", Err: err}
	}

	suggestions, err := ParseSuggestions(completion)
	if err != nil {
		return suggestions, &EnrichmentError{Op: "parse", Err: err}
	}
	return suggestions, nil
}

// prepare converts HTML to markdown and truncates long payloads.
func (e *Enricher) prepare(text string) (string, error) {
	text = strings.TrimSpace(text)
	if strings.Contains(text, "<") {
		converted, err := e.converter.ConvertString(text)
		if err != nil {
			return "", errors.Wrap(err, "convert HTML to markdown")
		}
		text = strings.TrimSpace(converted)
	}
	if text == "" {
		return "", errors.New("empty payload")
	}
	if len(text) > maxPayloadChars {
		text = text[:maxPayloadChars]
	}
	return text, nil
}

// EnrichDocument applies a job's enrichment mapping to doc. source is the raw
// value of the mapped source field. Failures never touch the document; they
// are combined into the returned error.
func (e *Enricher) EnrichDocument(ctx context.Context, doc *entities.Document, source any, m *config.EnrichMapping) error {
	if m == nil {
		return nil
	}

	var errs error

	if m.Field != "" && (m.SummaryTarget != "" || m.TagsTarget != "") {
		if text, ok := source.(string); ok && strings.TrimSpace(text) != "" {
			suggestions, err := e.EnrichText(ctx, text, doc.Label)
			if err != nil {
				errs = errors.CombineErrors(errs, err)
			} else {
				Merge(doc, m, suggestions)
			}
		}
	}

	if m.ImageAlt {
		for i := range doc.Assets {
			asset := &doc.Assets[i]
			if asset.AltText != "" {
				continue
			}
			suggestions, err := e.EnrichImage(ctx, asset.URL, doc.Label)
			if err != nil {
				errs = errors.CombineErrors(errs, err)
				continue
			}
			if !suggestions.Fallback && suggestions.AltText != "" {
				asset.AltText = suggestions.AltText
			}
		}
	}

	if errs != nil {
		e.logger.Warnw("enrichment incomplete", "label", doc.Label, "error", errs)
	}
	return errs
}

// Merge copies usable suggestions onto doc. Fallback suggestions are ignored.
func Merge(doc *entities.Document, m *config.EnrichMapping, s Suggestions) {
	if s.Fallback {
		return
	}
	if m.SummaryTarget != "" && s.Summary != "" {
		doc.Attributes[m.SummaryTarget] = s.Summary
	}
	if m.TagsTarget != "" && len(s.Tags) > 0 {
		doc.Attributes[m.TagsTarget] = s.Tags
	}
}
