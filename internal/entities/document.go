package entities

// Document is a destination document ready to be written. Attributes always
// contain "_type"; images are held in Assets until relocated.
type Document struct {
	Type       string
	SourceID   string
	Label      string
	Slug       string
	Attributes map[string]any
	Assets     []PendingAsset
}

// NewDocument returns a document carrying its type tag.
func NewDocument(docType, sourceID, label string) *Document {
	return &Document{
		Type:       docType,
		SourceID:   sourceID,
		Label:      label,
		Attributes: map[string]any{"_type": docType},
	}
}

// SetSlug stores the slug object recognised by the destination schema.
func (d *Document) SetSlug(slug string) {
	d.Slug = slug
	d.Attributes["slug"] = map[string]any{"_type": "slug", "current": slug}
}

// Payload returns a copy of the attributes suitable for a create mutation.
func (d *Document) Payload() map[string]any {
	payload := make(map[string]any, len(d.Attributes)+1)
	for k, v := range d.Attributes {
		payload[k] = v
	}
	payload["_type"] = d.Type
	return payload
}

// PendingAsset is an image the relocator must copy before the document is written.
type PendingAsset struct {
	Field   string
	URL     string
	Label   string
	AltText string
}

// Block is a destination rich-text paragraph.
type Block struct {
	Type     string `json:"_type"`
	Key      string `json:"_key"`
	Style    string `json:"style"`
	MarkDefs []any  `json:"markDefs"`
	Children []Span `json:"children"`
}

// Span is an inline run of text inside a Block. Marks is always empty.
type Span struct {
	Type  string   `json:"_type"`
	Key   string   `json:"_key"`
	Text  string   `json:"text"`
	Marks []string `json:"marks"`
}

// AssetReference points at an image the migrator uploaded itself. Either
// AssetID (an embeddable asset document) or URL (a public file) is set.
type AssetReference struct {
	AssetID string `json:"assetId,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Value returns the attribute value to store on the owning document.
func (r AssetReference) Value(alt string) any {
	if r.AssetID != "" {
		image := map[string]any{
			"_type": "image",
			"asset": map[string]any{"_type": "reference", "_ref": r.AssetID},
		}
		if alt != "" {
			image["alt"] = alt
		}
		return image
	}
	return r.URL
}
