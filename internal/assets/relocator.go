// Package assets copies images referenced by source items into the
// destination's asset store.
package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/logging"
	"github.com/mrlokans/cms-migrator/internal/storage"
	"github.com/mrlokans/cms-migrator/internal/utils"
)

const (
	userAgent       = "CMSMigrator/1.0"
	downloadTimeout = 30 * time.Second
	maxImageBytes   = 25 << 20
)

// AssetError describes an image that could not be relocated. The owning
// document is still written, without the image attribute.
type AssetError struct {
	URL string
	Op  string // "download" or "upload"
	Err error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s failed for %s: %v", e.Op, e.URL, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// Relocator downloads source images and re-uploads them to an AssetStore.
type Relocator struct {
	store      storage.AssetStore
	httpClient *http.Client
	cache      *Cache
	logger     *zap.SugaredLogger

	mu       sync.Mutex
	uploaded map[string]*entities.AssetReference
}

// NewRelocator creates a relocator writing to store.
func NewRelocator(store storage.AssetStore, logger *zap.SugaredLogger) *Relocator {
	return &Relocator{
		store:      store,
		httpClient: &http.Client{Timeout: downloadTimeout},
		logger:     logging.OrNop(logger),
		uploaded:   make(map[string]*entities.AssetReference),
	}
}

// SetCache enables the on-disk download cache.
func (r *Relocator) SetCache(cache *Cache) {
	r.cache = cache
}

// SetHTTPClient replaces the client used for downloads.
func (r *Relocator) SetHTTPClient(client *http.Client) {
	r.httpClient = client
}

// Relocate copies one image and returns its new reference, or nil when the
// download or upload failed. Failures are logged, never returned.
func (r *Relocator) Relocate(ctx context.Context, imageURL, label string) *entities.AssetReference {
	ref, err := r.relocate(ctx, imageURL, label)
	if err != nil {
		r.logger.Warnw("image not relocated", "label", label, "url", imageURL, "error", err)
		return nil
	}
	return ref
}

func (r *Relocator) relocate(ctx context.Context, imageURL, label string) (*entities.AssetReference, error) {
	filename := utils.AssetFilename(label, imageURL)
	memoKey := filename + "\x00" + imageURL

	r.mu.Lock()
	if ref, ok := r.uploaded[memoKey]; ok {
		r.mu.Unlock()
		return ref, nil
	}
	r.mu.Unlock()

	content, err := r.fetch(ctx, imageURL)
	if err != nil {
		return nil, &AssetError{URL: imageURL, Op: "download", Err: err}
	}

	ref, err := r.store.UploadAsset(ctx, storage.Upload{
		Filename:    filename,
		ContentType: utils.ContentTypeForExtension(utils.ImageExtension(imageURL)),
		Content:     bytes.NewReader(content),
		Size:        int64(len(content)),
	})
	if err != nil {
		return nil, &AssetError{URL: imageURL, Op: "upload", Err: err}
	}
	if ref == nil {
		return nil, &AssetError{URL: imageURL, Op: "upload", Err: errors.New("store returned no reference")}
	}

	r.mu.Lock()
	r.uploaded[memoKey] = ref
	r.mu.Unlock()

	r.logger.Debugw("image relocated", "label", label, "filename", filename)
	return ref, nil
}

func (r *Relocator) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	if r.cache != nil {
		if path, ok := r.cache.Lookup(imageURL); ok {
			return os.ReadFile(path)
		}
	}

	content, err := r.download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if _, err := r.cache.Store(imageURL, bytes.NewReader(content)); err != nil {
			r.logger.Debugw("failed to cache image", "url", imageURL, "error", err)
		}
	}
	return content, nil
}

func (r *Relocator) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("failed to fetch image: status %d", resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image")
	}
	if len(content) > maxImageBytes {
		return nil, errors.Newf("image exceeds %d bytes", maxImageBytes)
	}
	return content, nil
}

// Apply resolves every pending asset of doc. A relocated image is stored on
// its target attribute; a failed one leaves the attribute unset. Returns the
// number of images that could not be relocated.
func (r *Relocator) Apply(ctx context.Context, doc *entities.Document) int {
	failed := 0
	for _, pending := range doc.Assets {
		ref := r.Relocate(ctx, pending.URL, pending.Label)
		if ref == nil {
			delete(doc.Attributes, pending.Field)
			failed++
			continue
		}
		doc.Attributes[pending.Field] = ref.Value(pending.AltText)
	}
	doc.Assets = nil
	return failed
}
