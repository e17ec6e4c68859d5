package importers

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/mrlokans/cms-migrator/internal/config"
	"github.com/mrlokans/cms-migrator/internal/database/runs"
	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/logging"
	"github.com/mrlokans/cms-migrator/internal/transform"
)

// ErrJobRunning is returned when another run of the same job is in progress.
var ErrJobRunning = errors.New("job is already running")

// DocumentWriter creates documents and reports one result per document, in order.
type DocumentWriter interface {
	WriteAll(ctx context.Context, docs []*entities.Document) []entities.BatchResult
}

// AssetApplier relocates the pending images of a document and returns how
// many could not be relocated.
type AssetApplier interface {
	Apply(ctx context.Context, doc *entities.Document) int
}

// DocumentEnricher merges annotation suggestions into a document.
type DocumentEnricher interface {
	EnrichDocument(ctx context.Context, doc *entities.Document, source any, m *config.EnrichMapping) error
}

// RunRecorder keeps run history.
type RunRecorder interface {
	StartRun(job string, dryRun bool) (*entities.MigrationRun, error)
	UpdateRun(runID string, counts runs.Counts) error
	CompleteRun(runID string, counts runs.Counts, errorMsg string) error
	IsJobRunning(job string) (bool, error)
}

// ItemLedger remembers which source items already have a document.
type ItemLedger interface {
	IsMigrated(job, sourceID string) (bool, error)
	RecordMigrated(item entities.MigratedItem) error
}

// Options change how a run treats the destination.
type Options struct {
	// DryRun reads and transforms but never uploads or writes.
	DryRun bool
	// SkipMigrated skips items the ledger already maps to a document.
	SkipMigrated bool
}

// RunSummary reports one job.
type RunSummary struct {
	Job           string
	RunID         string
	DryRun        bool
	Read          int
	Skipped       int
	Planned       int // documents produced by the transformer
	Succeeded     int
	Failed        int
	AssetFailures int
	EnrichFailed  int
	Results       []entities.BatchResult
	Warnings      []string             // "<source id>: <message>" for values altered or left out
	Documents     []*entities.Document // kept for dry runs only
	// Err is set when the job was aborted before writing, e.g. on a source read error.
	Err error
}

func (s *RunSummary) counts() runs.Counts {
	return runs.Counts{Read: s.Read, Skipped: s.Skipped, Succeeded: s.Succeeded, Failed: s.Failed}
}

// Pipeline handles one migration job end to end:
// read → transform → skip migrated → enrich → relocate images → write.
//
// Jobs are processed one at a time and items keep their source order.
type Pipeline struct {
	writer    DocumentWriter
	relocator AssetApplier
	enricher  DocumentEnricher
	recorder  RunRecorder
	ledger    ItemLedger
	options   Options
	logger    *zap.SugaredLogger
}

// NewPipeline creates a pipeline. relocator may be nil when no job maps images.
func NewPipeline(writer DocumentWriter, relocator AssetApplier, logger *zap.SugaredLogger) *Pipeline {
	return &Pipeline{
		writer:    writer,
		relocator: relocator,
		logger:    logging.OrNop(logger),
	}
}

// SetEnricher enables enrichment for jobs that configure it (optional).
func (p *Pipeline) SetEnricher(enricher DocumentEnricher) {
	p.enricher = enricher
}

// SetRecorder enables run history (optional).
func (p *Pipeline) SetRecorder(recorder RunRecorder) {
	p.recorder = recorder
}

// SetItemLedger enables the migrated-item ledger (optional).
func (p *Pipeline) SetItemLedger(ledger ItemLedger) {
	p.ledger = ledger
}

// SetOptions replaces the run options.
func (p *Pipeline) SetOptions(options Options) {
	p.options = options
}

// Options returns the current run options.
func (p *Pipeline) Options() Options {
	return p.options
}

type pendingDoc struct {
	doc    *entities.Document
	source any
}

// Run migrates one job from source. A returned error means nothing was
// written for the job; per-item failures are reported in the summary.
func (p *Pipeline) Run(ctx context.Context, job config.Job, source Source) (*RunSummary, error) {
	summary := &RunSummary{Job: job.Name, DryRun: p.options.DryRun}

	if p.recorder != nil {
		running, err := p.recorder.IsJobRunning(job.Name)
		if err != nil {
			return p.abort(summary, errors.Wrap(err, "check running jobs"))
		}
		if running {
			return p.abort(summary, errors.Wrapf(ErrJobRunning, "job %s", job.Name))
		}
		run, err := p.recorder.StartRun(job.Name, p.options.DryRun)
		if err != nil {
			return p.abort(summary, err)
		}
		summary.RunID = run.RunID
	}

	p.logger.Infof("→ %s: reading from %s", job.Name, source.Name())

	pending, err := p.collect(ctx, job, source, summary)
	if err != nil {
		return p.abort(summary, err)
	}
	summary.Planned = len(pending)
	p.logger.Infof("→ %s: %d read, %d skipped, %d to write", job.Name, summary.Read, summary.Skipped, summary.Planned)
	p.updateRun(summary)

	docs := make([]*entities.Document, 0, len(pending))
	for _, pd := range pending {
		docs = append(docs, pd.doc)
	}

	if p.options.DryRun {
		summary.Documents = docs
		p.complete(summary, "")
		return summary, nil
	}

	for _, pd := range pending {
		if p.enricher != nil && job.Enrich != nil {
			if err := p.enricher.EnrichDocument(ctx, pd.doc, pd.source, job.Enrich); err != nil {
				summary.EnrichFailed++
			}
		}
		if len(pd.doc.Assets) > 0 {
			if p.relocator == nil {
				summary.AssetFailures += len(pd.doc.Assets)
				pd.doc.Assets = nil
				continue
			}
			summary.AssetFailures += p.relocator.Apply(ctx, pd.doc)
		}
	}

	results := p.writer.WriteAll(ctx, docs)
	summary.Results = append(summary.Results, results...)

	for i, result := range results {
		if !result.Succeeded {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		if p.ledger != nil {
			err := p.ledger.RecordMigrated(entities.MigratedItem{
				Job:           job.Name,
				SourceID:      result.SourceID,
				DestinationID: result.DestinationID,
				Slug:          docs[i].Slug,
				RunID:         summary.RunID,
			})
			if err != nil {
				p.logger.Warnw("failed to record migrated item", "job", job.Name, "source_id", result.SourceID, "error", err)
			}
		}
	}

	p.complete(summary, "")
	p.logger.Infof("✓ %s: %d succeeded, %d failed", job.Name, summary.Succeeded, summary.Failed)
	return summary, nil
}

// collect reads and transforms every item. Nothing is written until the whole
// source was read, so a read error leaves the destination untouched.
func (p *Pipeline) collect(ctx context.Context, job config.Job, source Source, summary *RunSummary) ([]pendingDoc, error) {
	transformer := transform.New(job)
	var pending []pendingDoc

	for item, err := range source.Items(ctx) {
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			summary.Read++
			p.recordItemFailure(summary, rowErr.SourceID, rowErr.Err)
			continue
		}
		if err != nil {
			return nil, err
		}
		summary.Read++

		result, err := transformer.Transform(item)
		if err != nil {
			p.recordItemFailure(summary, item.ID, err)
			continue
		}
		if result.Skipped {
			summary.Skipped++
			p.logger.Debugf("  - skipped %s: %s", item.ID, result.SkipReason)
			continue
		}
		for _, warning := range result.Warnings {
			summary.Warnings = append(summary.Warnings, item.ID+": "+warning)
			p.logger.Warnf("  ! %s: %s", item.ID, warning)
		}

		if p.options.SkipMigrated && p.ledger != nil {
			migrated, err := p.ledger.IsMigrated(job.Name, item.ID)
			if err != nil {
				return nil, errors.Wrap(err, "check ledger")
			}
			if migrated {
				summary.Skipped++
				p.logger.Debugf("  - skipped %s: already migrated", item.ID)
				continue
			}
		}

		var enrichSource any
		if job.Enrich != nil && job.Enrich.Field != "" {
			enrichSource = item.FieldData[job.Enrich.Field]
		}
		pending = append(pending, pendingDoc{doc: result.Document, source: enrichSource})
	}
	return pending, nil
}

func (p *Pipeline) abort(summary *RunSummary, err error) (*RunSummary, error) {
	summary.Err = err
	p.complete(summary, err.Error())
	p.logger.Errorf("✗ %s: %v", summary.Job, err)
	return summary, err
}

func (p *Pipeline) updateRun(summary *RunSummary) {
	if p.recorder == nil || summary.RunID == "" {
		return
	}
	if err := p.recorder.UpdateRun(summary.RunID, summary.counts()); err != nil {
		p.logger.Warnw("failed to update run", "run_id", summary.RunID, "error", err)
	}
}

func (p *Pipeline) complete(summary *RunSummary, errorMsg string) {
	if p.recorder == nil || summary.RunID == "" {
		return
	}
	if err := p.recorder.CompleteRun(summary.RunID, summary.counts(), errorMsg); err != nil {
		p.logger.Warnw("failed to complete run", "run_id", summary.RunID, "error", err)
	}
}

// RunAll runs jobs in order. A job that fails to resolve or read does not
// stop the jobs after it.
func (p *Pipeline) RunAll(ctx context.Context, jobs []config.Job, resolver *SourceResolver) []*RunSummary {
	summaries := make([]*RunSummary, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			summaries = append(summaries, &RunSummary{Job: job.Name, DryRun: p.options.DryRun, Err: err})
			continue
		}

		source, err := resolver.Resolve(job)
		if err != nil {
			p.logger.Errorf("✗ %s: %v", job.Name, err)
			summaries = append(summaries, &RunSummary{Job: job.Name, DryRun: p.options.DryRun, Err: err})
			continue
		}

		summary, _ := p.Run(ctx, job, source)
		summaries = append(summaries, summary)
	}
	return summaries
}

// recordItemFailure counts an item that never reached the writer.
func (p *Pipeline) recordItemFailure(summary *RunSummary, sourceID string, err error) {
	summary.Failed++
	summary.Results = append(summary.Results, entities.BatchResult{
		Index:    -1,
		SourceID: sourceID,
		Label:    sourceID,
		Error:    err.Error(),
	})
	p.logger.Warnf("  ✗ %s: %v", sourceID, err)
}

// Totals adds up a set of job summaries.
type Totals struct {
	Jobs        int
	JobsFailed  int
	Read        int
	Skipped     int
	Succeeded   int
	Failed      int
	AssetFailed int
}

func Total(summaries []*RunSummary) Totals {
	var t Totals
	for _, s := range summaries {
		t.Jobs++
		if s.Err != nil {
			t.JobsFailed++
		}
		t.Read += s.Read
		t.Skipped += s.Skipped
		t.Succeeded += s.Succeeded
		t.Failed += s.Failed
		t.AssetFailed += s.AssetFailures
	}
	return t
}

// HasFailures reports whether any job aborted or any document failed.
func (t Totals) HasFailures() bool {
	return t.JobsFailed > 0 || t.Failed > 0
}
