package assets

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Cache keeps downloaded source images on disk so a re-run does not fetch
// them again.
type Cache struct {
	dir string
}

// NewCache creates a download cache at the specified directory.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "create asset cache dir")
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// Lookup returns the cached file for imageURL, if present.
func (c *Cache) Lookup(imageURL string) (string, bool) {
	path := c.pathFor(imageURL)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Store copies r into the cache entry for imageURL and returns its path.
func (c *Cache) Store(imageURL string, r io.Reader) (string, error) {
	path := c.pathFor(imageURL)

	// Temp file in the same directory so the rename is atomic
	tmpFile, err := os.CreateTemp(c.dir, "asset_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return "", err
	}
	return path, nil
}

// Invalidate removes the cached file for imageURL.
func (c *Cache) Invalidate(imageURL string) error {
	if err := os.Remove(c.pathFor(imageURL)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *Cache) pathFor(imageURL string) string {
	hash := sha256.Sum256([]byte(imageURL))
	return filepath.Join(c.dir, fmt.Sprintf("asset_%x", hash[:12]))
}
