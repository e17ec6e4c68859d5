package storage

import (
	"context"
	"io"

	"github.com/mrlokans/cms-migrator/internal/entities"
)

// Upload describes one binary to store.
type Upload struct {
	Filename    string
	ContentType string
	Content     io.Reader
	Size        int64
}

// AssetStore is a destination for relocated images. Implementations must
// overwrite an existing object with the same filename rather than duplicate
// it, and must only return a reference once the store confirmed the upload.
//
// Implementations:
//   - sanity.Client (internal/sanity) - image assets referenced by asset id
//   - supabase.Client (providers/supabase) - bucket objects referenced by public URL
type AssetStore interface {
	UploadAsset(ctx context.Context, upload Upload) (*entities.AssetReference, error)
}
