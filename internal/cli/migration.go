package cli

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/mrlokans/cms-migrator/internal/config"
	"github.com/mrlokans/cms-migrator/internal/database"
	"github.com/mrlokans/cms-migrator/internal/database/items"
	"github.com/mrlokans/cms-migrator/internal/database/runs"
	"github.com/mrlokans/cms-migrator/internal/importers"
	"github.com/mrlokans/cms-migrator/internal/sanity"
	"github.com/mrlokans/cms-migrator/internal/writer"
)

type migrationOptions struct {
	importers.Options
	Jobs   []string
	Upsert bool
}

// migration is a fully wired pipeline for a set of jobs.
type migration struct {
	jobs     []config.Job
	baseDir  string
	reader   importers.CollectionReader
	pipeline *importers.Pipeline
	db       *database.Database
}

// requirementsFor lists the settings a run of jobs cannot start without.
// Dry runs never touch the destination.
func requirementsFor(jobs []config.Job, dryRun bool) []config.Requirement {
	var reqs []config.Requirement
	if config.HasWebflowSource(jobs) {
		reqs = append(reqs, config.RequireWebflow)
	}
	if dryRun {
		return reqs
	}
	reqs = append(reqs, config.RequireSanity)
	if config.NeedsAssets(jobs) {
		reqs = append(reqs, config.RequireAssets)
	}
	if hasEnrichment(jobs) {
		reqs = append(reqs, config.RequireEnrichment)
	}
	return reqs
}

func hasEnrichment(jobs []config.Job) bool {
	for _, job := range jobs {
		if job.Enrich != nil {
			return true
		}
	}
	return false
}

// newMigration loads the mapping, checks configuration and wires the
// pipeline. It makes no network calls.
func newMigration(app *App, opts migrationOptions) (*migration, error) {
	cfg := app.Config
	logger := app.Logger

	mapping, err := config.LoadMapping(cfg.Migration.MappingFile)
	if err != nil {
		return nil, err
	}
	jobs, err := mapping.Select(opts.Jobs)
	if err != nil {
		return nil, err
	}
	if err := cfg.Require(requirementsFor(jobs, opts.DryRun)...); err != nil {
		return nil, err
	}
	if opts.SkipMigrated && cfg.Ledger.Path == "" {
		return nil, errors.WithHint(
			errors.New("--skip-migrated needs the migration ledger"),
			"set LEDGER_PATH to a sqlite file",
		)
	}

	m := &migration{
		jobs:    jobs,
		baseDir: filepath.Dir(cfg.Migration.MappingFile),
	}
	if config.HasWebflowSource(jobs) {
		m.reader = newWebflowClient(cfg, logger)
	}

	var docWriter importers.DocumentWriter
	var applier importers.AssetApplier
	if !opts.DryRun {
		sanityClient := newSanityClient(cfg, logger)

		var dest writer.Creator = sanityClient
		if opts.Upsert {
			dest = sanity.NewSlugUpserter(sanityClient)
		}
		docWriter = writer.New(dest, writer.NewPacer(cfg.Migration.WriteDelay), cfg.Migration.BatchSize, logger)

		if config.NeedsAssets(jobs) {
			store, err := newAssetStore(cfg, sanityClient)
			if err != nil {
				return nil, err
			}
			relocator, err := newRelocator(cfg, store, logger)
			if err != nil {
				return nil, err
			}
			applier = relocator
		}
	}

	m.pipeline = importers.NewPipeline(docWriter, applier, logger)
	m.pipeline.SetOptions(opts.Options)

	if !opts.DryRun && hasEnrichment(jobs) {
		if enricher := newEnricher(cfg, logger); enricher != nil {
			m.pipeline.SetEnricher(enricher)
		}
	}

	if cfg.Ledger.Path != "" {
		db, err := database.NewDatabase(cfg.Ledger.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "open ledger %s", cfg.Ledger.Path)
		}
		m.db = db
		m.pipeline.SetRecorder(runs.NewRepository(db.DB))
		m.pipeline.SetItemLedger(items.NewRepository(db.DB))
	}

	return m, nil
}

// Run lists source collections once and runs every job. Only a failure to
// list collections is returned; job failures are in the summaries.
func (m *migration) Run(ctx context.Context) ([]*importers.RunSummary, error) {
	resolver, err := importers.NewSourceResolver(ctx, m.reader, m.jobs, m.baseDir)
	if err != nil {
		return nil, errors.Wrap(err, "list source collections")
	}
	return m.pipeline.RunAll(ctx, m.jobs, resolver), nil
}

func (m *migration) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}
