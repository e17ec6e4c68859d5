package entities

import (
	"strconv"
	"time"
)

// FieldKind tags the variant held by a FieldValue.
type FieldKind int

const (
	FieldUnknown FieldKind = iota
	FieldText
	FieldNumber
	FieldBool
	FieldDate
	FieldImage
	FieldList
)

func (k FieldKind) String() string {
	switch k {
	case FieldText:
		return "text"
	case FieldNumber:
		return "number"
	case FieldBool:
		return "bool"
	case FieldDate:
		return "date"
	case FieldImage:
		return "image"
	case FieldList:
		return "list"
	default:
		return "unknown"
	}
}

// ImageRef is a source image descriptor.
type ImageRef struct {
	URL string
	Alt string
}

// FieldValue is a parsed source field. Only the member matching Kind is set;
// Raw always holds the decoded JSON value.
type FieldValue struct {
	Kind   FieldKind
	Text   string
	Number float64
	Bool   bool
	Date   time.Time
	Image  ImageRef
	List   []string
	Raw    any
}

// String renders scalar values as text. Images render as their URL; lists and
// unknown values render empty.
func (v FieldValue) String() string {
	switch v.Kind {
	case FieldText, FieldDate:
		return v.Text
	case FieldNumber:
		if raw, ok := v.Raw.(string); ok {
			return raw
		}
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case FieldBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case FieldImage:
		return v.Image.URL
	default:
		return ""
	}
}
