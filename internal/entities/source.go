package entities

import "time"

// SourceCollection is a Webflow CMS collection. Read-only to the migrator.
type SourceCollection struct {
	ID           string `json:"id"`
	DisplayName  string `json:"displayName"`
	SingularName string `json:"singularName,omitempty"`
	Slug         string `json:"slug"`
}

// Matches reports whether ref names this collection by id, slug or display name.
func (c SourceCollection) Matches(ref string) bool {
	return ref != "" && (c.ID == ref || c.Slug == ref || c.DisplayName == ref)
}

// SourceItem is one item of a source collection with its flat field bag.
type SourceItem struct {
	ID          string         `json:"id"`
	CreatedOn   *time.Time     `json:"createdOn,omitempty"`
	LastUpdated *time.Time     `json:"lastUpdated,omitempty"`
	IsArchived  bool           `json:"isArchived"`
	IsDraft     bool           `json:"isDraft"`
	FieldData   map[string]any `json:"fieldData"`
}
