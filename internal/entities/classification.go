package entities

// Classification groups an item's field names by detected shape. It is
// advisory: the transformer copies fields by explicit mapping, not by bucket.
type Classification struct {
	TextFields      []string `json:"textFields"`
	ImageFields     []string `json:"imageFields"`
	ReferenceFields []string `json:"referenceFields"`
	DateFields      []string `json:"dateFields"`
	NumberFields    []string `json:"numberFields"`
	UnknownFields   []string `json:"unknownFields"`
}

const (
	BucketText      = "text"
	BucketImage     = "image"
	BucketReference = "reference"
	BucketDate      = "date"
	BucketNumber    = "number"
	BucketUnknown   = "unknown"
)

// Buckets returns the classification keyed by bucket name.
func (c Classification) Buckets() map[string][]string {
	return map[string][]string{
		BucketText:      c.TextFields,
		BucketImage:     c.ImageFields,
		BucketReference: c.ReferenceFields,
		BucketDate:      c.DateFields,
		BucketNumber:    c.NumberFields,
		BucketUnknown:   c.UnknownFields,
	}
}
