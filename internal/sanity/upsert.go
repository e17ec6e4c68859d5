package sanity

import (
	"context"

	"github.com/cockroachdb/errors"
)

// SlugUpserter writes documents keyed on type and slug: an existing document
// is patched in place, otherwise a new one is created. Re-running a migration
// through it updates instead of duplicating.
type SlugUpserter struct {
	client *Client
}

func NewSlugUpserter(client *Client) *SlugUpserter {
	return &SlugUpserter{client: client}
}

// Create implements the writer destination contract.
func (u *SlugUpserter) Create(ctx context.Context, doc map[string]any) (string, error) {
	docType, _ := doc["_type"].(string)
	slug := slugOf(doc)
	if docType == "" || slug == "" {
		return u.client.Create(ctx, doc)
	}

	id, err := u.client.FindIDBySlug(ctx, docType, slug)
	if err != nil {
		return "", errors.Wrapf(err, "look up %s %q", docType, slug)
	}
	if id == "" {
		return u.client.Create(ctx, doc)
	}

	set := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_type" || k == "_id" {
			continue
		}
		set[k] = v
	}
	if err := u.client.Patch(ctx, id, set); err != nil {
		return "", err
	}
	return id, nil
}

func slugOf(doc map[string]any) string {
	switch s := doc["slug"].(type) {
	case map[string]any:
		current, _ := s["current"].(string)
		return current
	case string:
		return s
	}
	return ""
}
