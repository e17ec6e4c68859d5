package importers

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/cms-migrator/internal/assets"
	"github.com/mrlokans/cms-migrator/internal/config"
	"github.com/mrlokans/cms-migrator/internal/database"
	"github.com/mrlokans/cms-migrator/internal/database/items"
	"github.com/mrlokans/cms-migrator/internal/database/runs"
	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/storage"
	"github.com/mrlokans/cms-migrator/internal/webflow"
	"github.com/mrlokans/cms-migrator/internal/writer"
)

// sliceSource yields fixed items, then an optional error.
type sliceSource struct {
	items []entities.SourceItem
	err   error
}

func (s *sliceSource) Name() string { return "test" }

func (s *sliceSource) Items(context.Context) iter.Seq2[entities.SourceItem, error] {
	return func(yield func(entities.SourceItem, error) bool) {
		for _, item := range s.items {
			if !yield(item, nil) {
				return
			}
		}
		if s.err != nil {
			yield(entities.SourceItem{}, s.err)
		}
	}
}

// memoryDestination stands in for the Sanity client.
type memoryDestination struct {
	docs   []map[string]any
	failOn map[string]bool
}

func (d *memoryDestination) Create(_ context.Context, doc map[string]any) (string, error) {
	name, _ := doc["name"].(string)
	if d.failOn[name] {
		return "", errors.Newf("sanity write failed (status 400): rejected %s", name)
	}
	d.docs = append(d.docs, doc)
	return fmt.Sprintf("doc-%d", len(d.docs)), nil
}

type memoryStore struct {
	fail bool
}

func (s *memoryStore) UploadAsset(_ context.Context, upload storage.Upload) (*entities.AssetReference, error) {
	if s.fail {
		return nil, errors.New("upload refused")
	}
	return &entities.AssetReference{AssetID: "image-" + upload.Filename}, nil
}

type stubEnricher struct {
	calls int
	err   error
}

func (e *stubEnricher) EnrichDocument(_ context.Context, doc *entities.Document, source any, m *config.EnrichMapping) error {
	e.calls++
	if e.err != nil {
		return e.err
	}
	if text, ok := source.(string); ok {
		doc.Attributes[m.SummaryTarget] = "summary of " + text
	}
	return nil
}

func teamJob() config.Job {
	return config.Job{
		Name:          "team",
		Type:          "teamMember",
		Source:        config.JobSource{Kind: config.SourceCSV, Path: "employees.csv"},
		NameField:     "Name",
		ExcludeIfTrue: []string{"Archived"},
		Fields: []config.FieldMapping{
			{Source: "Name", Target: "name", Kind: config.KindText},
			{Source: "Department", Target: "department", Kind: config.KindCategory},
			{Source: "Avatar", Target: "image", Kind: config.KindImage},
		},
	}
}

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".jpg") {
			_, _ = w.Write([]byte("jpeg bytes"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	return server
}

func employee(id, name, archived, avatar string) entities.SourceItem {
	return entities.SourceItem{
		ID: id,
		FieldData: map[string]any{
			"Name":       name,
			"Department": "sales",
			"Archived":   archived,
			"Avatar":     avatar,
		},
	}
}

func newPipeline(dest writer.Creator, store storage.AssetStore) *Pipeline {
	return NewPipeline(
		writer.New(dest, writer.NoopPacer{}, 10, nil),
		assets.NewRelocator(store, nil),
		nil,
	)
}

func TestPipeline_EndToEnd(t *testing.T) {
	images := newImageServer(t)
	dest := &memoryDestination{}

	source := &sliceSource{items: []entities.SourceItem{
		employee("e1", "Jo Lee", "false", images.URL+"/photo.jpg"),
		employee("e2", "Old Timer", "true", images.URL+"/old.jpg"),
		employee("e3", "Sam Park", "false", ""),
	}}

	summary, err := newPipeline(dest, &memoryStore{}).Run(context.Background(), teamJob(), source)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Read)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.AssetFailures)

	require.Len(t, dest.docs, 2)
	jo := dest.docs[0]
	assert.Equal(t, "teamMember", jo["_type"])
	assert.Equal(t, map[string]any{"_type": "slug", "current": "jo-lee"}, jo["slug"])
	assert.Equal(t, "sales", jo["department"])
	assert.Equal(t, map[string]any{
		"_type": "image",
		"asset": map[string]any{"_type": "reference", "_ref": "image-Jo-Lee.jpg"},
	}, jo["image"])

	assert.Equal(t, "Sam Park", dest.docs[1]["name"], "source order is kept")
}

func TestPipeline_UploadFailureOmitsImage(t *testing.T) {
	images := newImageServer(t)
	dest := &memoryDestination{}

	source := &sliceSource{items: []entities.SourceItem{
		employee("e1", "Jo Lee", "false", images.URL+"/photo.jpg"),
	}}

	summary, err := newPipeline(dest, &memoryStore{fail: true}).Run(context.Background(), teamJob(), source)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.AssetFailures)
	require.Len(t, dest.docs, 1)
	_, hasImage := dest.docs[0]["image"]
	assert.False(t, hasImage, "no reference to an asset that was never uploaded")
	assert.Equal(t, "Jo Lee", dest.docs[0]["name"])
}

func TestPipeline_ReadErrorWritesNothing(t *testing.T) {
	dest := &memoryDestination{}
	readErr := &webflow.RemoteError{StatusCode: 500, Message: "internal"}

	source := &sliceSource{
		items: []entities.SourceItem{employee("e1", "Jo Lee", "false", "")},
		err:   readErr,
	}

	summary, err := newPipeline(dest, &memoryStore{}).Run(context.Background(), teamJob(), source)

	require.Error(t, err)
	assert.Equal(t, err, summary.Err)
	assert.Empty(t, dest.docs)
	var remote *webflow.RemoteError
	assert.True(t, errors.As(err, &remote))
}

func TestPipeline_WriteFailureContinues(t *testing.T) {
	dest := &memoryDestination{failOn: map[string]bool{"Person 15": true}}

	var list []entities.SourceItem
	for i := 1; i <= 23; i++ {
		list = append(list, employee(fmt.Sprintf("e%d", i), fmt.Sprintf("Person %d", i), "false", ""))
	}

	summary, err := newPipeline(dest, &memoryStore{}).Run(context.Background(), teamJob(), &sliceSource{items: list})
	require.NoError(t, err)

	assert.Equal(t, 22, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, dest.docs, 22)
	assert.Equal(t, "Person 23", dest.docs[21]["name"])
}

func TestPipeline_TransformErrorIsPerItem(t *testing.T) {
	dest := &memoryDestination{}
	source := &sliceSource{items: []entities.SourceItem{
		employee("e1", "!!!", "false", ""),
		employee("e2", "Jo Lee", "false", ""),
	}}

	summary, err := newPipeline(dest, &memoryStore{}).Run(context.Background(), teamJob(), source)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "e1", summary.Results[0].SourceID)
	assert.Contains(t, summary.Results[0].Error, "no slug")
}

func TestPipeline_MalformedCSVRowIsReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "employees.csv")
	csv := "Name,Department,Archived,Avatar\n" +
		"Jo Lee,sales,false,\n" +
		"Sam \"The\" Park,eng,false,\n" +
		"Ana Ruiz,ops,false,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	dest := &memoryDestination{}
	summary, err := newPipeline(dest, &memoryStore{}).Run(context.Background(), teamJob(), NewCSVSource(path))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Read)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, dest.docs, 2)

	require.Len(t, summary.Results, 3)
	assert.Equal(t, "line-3", summary.Results[0].SourceID)
	assert.False(t, summary.Results[0].Succeeded)
	assert.Contains(t, summary.Results[0].Error, "bare \" in non-quoted-field")
}

func TestPipeline_TransformWarningsAreKept(t *testing.T) {
	job := teamJob()
	job.Fields = append(job.Fields, config.FieldMapping{Source: "Joined", Target: "joined", Kind: config.KindDate})

	item := employee("e1", "Jo Lee", "false", "")
	item.FieldData["Joined"] = "05/01/2021"

	dest := &memoryDestination{}
	summary, err := newPipeline(dest, &memoryStore{}).Run(context.Background(), job, &sliceSource{items: []entities.SourceItem{item}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, "05/01/2021", dest.docs[0]["joined"])
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "e1: Joined: ")
}

func TestPipeline_DryRun(t *testing.T) {
	images := newImageServer(t)
	dest := &memoryDestination{}
	source := &sliceSource{items: []entities.SourceItem{
		employee("e1", "Jo Lee", "false", images.URL+"/photo.jpg"),
	}}

	p := newPipeline(dest, &memoryStore{fail: true})
	p.SetOptions(Options{DryRun: true})

	summary, err := p.Run(context.Background(), teamJob(), source)
	require.NoError(t, err)

	assert.Empty(t, dest.docs)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 1, summary.Planned)
	require.Len(t, summary.Documents, 1)
	assert.Len(t, summary.Documents[0].Assets, 1, "images are not relocated in a dry run")
	assert.Equal(t, 0, summary.AssetFailures)
}

func TestPipeline_Enrichment(t *testing.T) {
	job := teamJob()
	job.Fields = append(job.Fields, config.FieldMapping{Source: "Bio", Target: "bio", Kind: config.KindRichText})
	job.Enrich = &config.EnrichMapping{Field: "Bio", SummaryTarget: "excerpt"}

	item := employee("e1", "Jo Lee", "false", "")
	item.FieldData["Bio"] = "Builds things"

	t.Run("merged", func(t *testing.T) {
		dest := &memoryDestination{}
		enricher := &stubEnricher{}
		p := newPipeline(dest, &memoryStore{})
		p.SetEnricher(enricher)

		summary, err := p.Run(context.Background(), job, &sliceSource{items: []entities.SourceItem{item}})
		require.NoError(t, err)

		assert.Equal(t, 1, enricher.calls)
		assert.Equal(t, "summary of Builds things", dest.docs[0]["excerpt"])
		assert.Equal(t, 0, summary.EnrichFailed)
	})

	t.Run("failure never blocks the write", func(t *testing.T) {
		dest := &memoryDestination{}
		p := newPipeline(dest, &memoryStore{})
		p.SetEnricher(&stubEnricher{err: errors.New("enrichment parse failed")})

		summary, err := p.Run(context.Background(), job, &sliceSource{items: []entities.SourceItem{item}})
		require.NoError(t, err)

		assert.Equal(t, 1, summary.Succeeded)
		assert.Equal(t, 1, summary.EnrichFailed)
		_, hasExcerpt := dest.docs[0]["excerpt"]
		assert.False(t, hasExcerpt)
	})
}

func setupLedger(t *testing.T) (*runs.Repository, *items.Repository) {
	dbPath := "./test_pipeline_" + t.Name() + ".db"
	dbPath = strings.ReplaceAll(dbPath, "/", "_")
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})
	return runs.NewRepository(db.DB), items.NewRepository(db.DB)
}

func TestPipeline_LedgerSkipsMigrated(t *testing.T) {
	runsRepo, itemsRepo := setupLedger(t)
	dest := &memoryDestination{}

	p := newPipeline(dest, &memoryStore{})
	p.SetRecorder(runsRepo)
	p.SetItemLedger(itemsRepo)
	p.SetOptions(Options{SkipMigrated: true})

	source := &sliceSource{items: []entities.SourceItem{
		employee("e1", "Jo Lee", "false", ""),
		employee("e2", "Sam Park", "false", ""),
	}}

	first, err := p.Run(context.Background(), teamJob(), source)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Succeeded)
	assert.NotEmpty(t, first.RunID)

	second, err := p.Run(context.Background(), teamJob(), source)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Succeeded)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, dest.docs, 2, "re-run creates no duplicates")

	item, err := itemsRepo.Get("team", "e1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", item.DestinationID)
	assert.Equal(t, "jo-lee", item.Slug)

	run, err := runsRepo.GetRun(first.RunID)
	require.NoError(t, err)
	assert.Equal(t, entities.RunStatusCompleted, run.Status)
	assert.Equal(t, 2, run.Succeeded)
}

func TestPipeline_RefusesConcurrentRun(t *testing.T) {
	runsRepo, _ := setupLedger(t)
	_, err := runsRepo.StartRun("team", false)
	require.NoError(t, err)

	dest := &memoryDestination{}
	p := newPipeline(dest, &memoryStore{})
	p.SetRecorder(runsRepo)

	_, err = p.Run(context.Background(), teamJob(), &sliceSource{items: []entities.SourceItem{employee("e1", "Jo Lee", "false", "")}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrJobRunning))
	assert.Empty(t, dest.docs)
}

func TestPipeline_FailedRunRecorded(t *testing.T) {
	runsRepo, _ := setupLedger(t)
	p := newPipeline(&memoryDestination{}, &memoryStore{})
	p.SetRecorder(runsRepo)

	summary, err := p.Run(context.Background(), teamJob(), &sliceSource{err: errors.New("boom")})
	require.Error(t, err)

	run, err := runsRepo.GetRun(summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, entities.RunStatusFailed, run.Status)
	assert.Equal(t, "boom", run.Error)
}

// fakeCollections serves collections and items from memory.
type fakeCollections struct {
	collections []entities.SourceCollection
	items       map[string][]entities.SourceItem
	listErr     error
	readErr     map[string]error
}

func (f *fakeCollections) ListCollections(context.Context) ([]entities.SourceCollection, error) {
	return f.collections, f.listErr
}

func (f *fakeCollections) Items(_ context.Context, id string) iter.Seq2[entities.SourceItem, error] {
	return func(yield func(entities.SourceItem, error) bool) {
		if err := f.readErr[id]; err != nil {
			yield(entities.SourceItem{}, err)
			return
		}
		for _, item := range f.items[id] {
			if !yield(item, nil) {
				return
			}
		}
	}
}

func webflowJob(name, collection string) config.Job {
	job := teamJob()
	job.Name = name
	job.Source = config.JobSource{Kind: config.SourceWebflow, Collection: collection}
	return job
}

func TestRunAll_SiblingJobsContinue(t *testing.T) {
	reader := &fakeCollections{
		collections: []entities.SourceCollection{
			{ID: "c1", Slug: "team", DisplayName: "Team"},
			{ID: "c2", Slug: "alumni", DisplayName: "Alumni"},
		},
		items: map[string][]entities.SourceItem{
			"c2": {employee("a1", "Former Person", "false", "")},
		},
		readErr: map[string]error{"c1": &webflow.RemoteError{StatusCode: 500, Message: "down"}},
	}
	jobs := []config.Job{
		webflowJob("team", "team"),
		webflowJob("missing", "does-not-exist"),
		webflowJob("alumni", "Alumni"),
	}

	resolver, err := NewSourceResolver(context.Background(), reader, jobs, "")
	require.NoError(t, err)

	dest := &memoryDestination{}
	summaries := newPipeline(dest, &memoryStore{}).RunAll(context.Background(), jobs, resolver)

	require.Len(t, summaries, 3)
	assert.Error(t, summaries[0].Err)
	assert.True(t, errors.Is(summaries[1].Err, webflow.ErrNotFound))
	assert.NoError(t, summaries[2].Err)
	assert.Equal(t, 1, summaries[2].Succeeded)
	assert.Len(t, dest.docs, 1)

	totals := Total(summaries)
	assert.Equal(t, 3, totals.Jobs)
	assert.Equal(t, 2, totals.JobsFailed)
	assert.Equal(t, 1, totals.Succeeded)
	assert.True(t, totals.HasFailures())
}

func TestNewSourceResolver_ListingFailureAborts(t *testing.T) {
	reader := &fakeCollections{listErr: &webflow.RemoteError{StatusCode: 401, Message: "bad token"}}

	_, err := NewSourceResolver(context.Background(), reader, []config.Job{webflowJob("team", "team")}, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, webflow.ErrInvalidToken))
}

func TestNewSourceResolver_CSVOnlySkipsListing(t *testing.T) {
	resolver, err := NewSourceResolver(context.Background(), nil, []config.Job{teamJob()}, "/data")
	require.NoError(t, err)

	source, err := resolver.Resolve(teamJob())
	require.NoError(t, err)
	assert.Equal(t, "csv:/data/employees.csv", source.Name())
}
