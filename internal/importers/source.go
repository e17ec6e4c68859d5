package importers

import (
	"context"
	"iter"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/mrlokans/cms-migrator/internal/config"
	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/webflow"
)

// Source yields the items of one job in source order. Ranging over Items
// again starts from the beginning. A *RowError marks one unreadable item and
// the job goes on; any other error aborts the job.
//
// Implementations:
//   - WebflowSource (source.go) - a Webflow CMS collection, paged lazily
//   - CSVSource (csv.go) - a CSV export with a header row
type Source interface {
	Name() string
	Items(ctx context.Context) iter.Seq2[entities.SourceItem, error]
}

// RowError is one source item that could not be read.
type RowError struct {
	SourceID string
	Err      error
}

func (e *RowError) Error() string {
	return e.SourceID + ": " + e.Err.Error()
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// CollectionReader is the part of the Webflow client a WebflowSource needs.
type CollectionReader interface {
	ListCollections(ctx context.Context) ([]entities.SourceCollection, error)
	Items(ctx context.Context, collectionID string) iter.Seq2[entities.SourceItem, error]
}

var _ CollectionReader = (*webflow.Client)(nil)

// WebflowSource reads one collection.
type WebflowSource struct {
	reader     CollectionReader
	collection entities.SourceCollection
}

func NewWebflowSource(reader CollectionReader, collection entities.SourceCollection) *WebflowSource {
	return &WebflowSource{reader: reader, collection: collection}
}

func (s *WebflowSource) Name() string {
	return "webflow:" + s.collection.Slug
}

func (s *WebflowSource) Items(ctx context.Context) iter.Seq2[entities.SourceItem, error] {
	return s.reader.Items(ctx, s.collection.ID)
}

// SourceResolver builds the Source of each job. Webflow collections are
// listed once, up front: if that fails the whole run is aborted.
type SourceResolver struct {
	reader      CollectionReader
	collections []entities.SourceCollection
	baseDir     string
}

// NewSourceResolver prepares sources for jobs. reader may be nil when no job
// reads from Webflow. Relative CSV paths are resolved against baseDir.
func NewSourceResolver(ctx context.Context, reader CollectionReader, jobs []config.Job, baseDir string) (*SourceResolver, error) {
	r := &SourceResolver{reader: reader, baseDir: baseDir}

	if config.HasWebflowSource(jobs) {
		if reader == nil {
			return nil, errors.New("jobs read from webflow but no webflow client is configured")
		}
		collections, err := reader.ListCollections(ctx)
		if err != nil {
			return nil, err
		}
		r.collections = collections
	}
	return r, nil
}

// Collections returns the collections listed at construction.
func (r *SourceResolver) Collections() []entities.SourceCollection {
	return r.collections
}

// Resolve returns the source for job. An unknown collection fails only that job.
func (r *SourceResolver) Resolve(job config.Job) (Source, error) {
	switch job.Source.Kind {
	case config.SourceWebflow:
		collection, err := webflow.FindCollection(r.collections, job.Source.Collection)
		if err != nil {
			return nil, err
		}
		return NewWebflowSource(r.reader, collection), nil

	case config.SourceCSV:
		path := job.Source.Path
		if !filepath.IsAbs(path) && r.baseDir != "" {
			path = filepath.Join(r.baseDir, path)
		}
		return NewCSVSource(path), nil
	}
	return nil, errors.Newf("job %s: unknown source kind %q", job.Name, job.Source.Kind)
}
