package fields

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mrlokans/cms-migrator/internal/entities"
)

// RichTextLoss counts the markup a plain-text extraction of one field drops.
type RichTextLoss struct {
	Field    string `json:"field"`
	Items    int    `json:"items"` // items whose value contained any of the below
	Links    int    `json:"links"`
	Images   int    `json:"images"`
	Lists    int    `json:"lists"`
	Headings int    `json:"headings"`
	Embeds   int    `json:"embeds"`
}

// Lossy reports whether extraction drops anything beyond paragraphs and inline styling.
func (l RichTextLoss) Lossy() bool {
	return l.Links+l.Images+l.Lists+l.Headings+l.Embeds > 0
}

func (l *RichTextLoss) add(other RichTextLoss) {
	l.Links += other.Links
	l.Images += other.Images
	l.Lists += other.Lists
	l.Headings += other.Headings
	l.Embeds += other.Embeds
}

// InspectRichText parses an HTML fragment and counts the structures that do not
// survive plain-text extraction. Values without markup report nothing.
func InspectRichText(html string) RichTextLoss {
	var loss RichTextLoss
	if !strings.Contains(html, "<") {
		return loss
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return loss
	}

	loss.Links = doc.Find("a[href]").Length()
	loss.Images = doc.Find("img").Length()
	loss.Lists = doc.Find("ul, ol").Length()
	loss.Headings = doc.Find("h1, h2, h3, h4, h5, h6").Length()
	loss.Embeds = doc.Find("iframe, video, figure.w-richtext-figure-type-video").Length()
	return loss
}

// RichTextReport aggregates InspectRichText over every text field of items.
// Only lossy fields are returned, sorted by name.
func RichTextReport(items []entities.SourceItem) []RichTextLoss {
	byField := make(map[string]*RichTextLoss)
	for _, item := range items {
		for name, raw := range item.FieldData {
			s, ok := raw.(string)
			if !ok {
				continue
			}
			loss := InspectRichText(s)
			if !loss.Lossy() {
				continue
			}
			agg, ok := byField[name]
			if !ok {
				agg = &RichTextLoss{Field: name}
				byField[name] = agg
			}
			agg.Items++
			agg.add(loss)
		}
	}

	report := make([]RichTextLoss, 0, len(byField))
	for _, loss := range byField {
		report = append(report, *loss)
	}
	sort.Slice(report, func(i, j int) bool { return report[i].Field < report[j].Field })
	return report
}
