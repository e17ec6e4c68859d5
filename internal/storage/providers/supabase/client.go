// Package supabase stores relocated images in a Supabase Storage bucket.
package supabase

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/storage"
)

// Client implements storage.AssetStore for Supabase Storage
type Client struct {
	baseURL    string
	key        string
	bucket     string
	httpClient *http.Client
}

var _ storage.AssetStore = (*Client)(nil)

// NewClient creates a Supabase Storage client for one bucket
func NewClient(baseURL, key, bucket string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		bucket:  bucket,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// UploadAsset writes the object with upsert enabled, so re-running for the
// same filename overwrites it.
func (c *Client) UploadAsset(ctx context.Context, upload storage.Upload) (*entities.AssetReference, error) {
	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, url.PathEscape(c.bucket), url.PathEscape(upload.Filename))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, upload.Content)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	if upload.Size > 0 {
		req.ContentLength = upload.Size
	}

	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("apikey", c.key)
	req.Header.Set("Content-Type", upload.ContentType)
	req.Header.Set("x-upsert", "true")
	req.Header.Set("Cache-Control", "max-age=3600")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upload file")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Newf("supabase storage error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return &entities.AssetReference{URL: c.PublicURL(upload.Filename)}, nil
}

// PublicURL is where a public bucket serves filename.
func (c *Client) PublicURL(filename string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, url.PathEscape(c.bucket), url.PathEscape(filename))
}
