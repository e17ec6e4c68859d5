// Package writer creates destination documents in fixed-size batches.
package writer

import (
	"context"

	"go.uber.org/zap"

	"github.com/mrlokans/cms-migrator/internal/config"
	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/logging"
)

// Creator is the destination of a write. Implementations:
//   - sanity.Client: always creates
//   - sanity.SlugUpserter: patches a document with the same slug when one exists
type Creator interface {
	Create(ctx context.Context, doc map[string]any) (string, error)
}

// Writer submits documents one at a time, in order, grouped into batches for
// progress reporting. A failed create is recorded and the next document is
// attempted.
type Writer struct {
	dest      Creator
	pacer     Pacer
	batchSize int
	logger    *zap.SugaredLogger
}

func New(dest Creator, pacer Pacer, batchSize int, logger *zap.SugaredLogger) *Writer {
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	if pacer == nil {
		pacer = NoopPacer{}
	}
	return &Writer{
		dest:      dest,
		pacer:     pacer,
		batchSize: batchSize,
		logger:    logging.OrNop(logger),
	}
}

// WriteAll returns exactly one result per document, in input order.
func (w *Writer) WriteAll(ctx context.Context, docs []*entities.Document) []entities.BatchResult {
	results := make([]entities.BatchResult, 0, len(docs))
	batches := (len(docs) + w.batchSize - 1) / w.batchSize

	for start := 0; start < len(docs); start += w.batchSize {
		end := min(start+w.batchSize, len(docs))
		batch := start/w.batchSize + 1
		w.logger.Infof("→ Writing batch %d/%d (%d documents)", batch, batches, end-start)

		for i := start; i < end; i++ {
			results = append(results, w.write(ctx, batch, i, docs[i]))
		}
	}
	return results
}

func (w *Writer) write(ctx context.Context, batch, index int, doc *entities.Document) entities.BatchResult {
	result := entities.BatchResult{
		Index:    index,
		Batch:    batch,
		SourceID: doc.SourceID,
		Label:    doc.Label,
	}

	if err := w.pacer.Wait(ctx); err != nil {
		result.Error = err.Error()
		w.logger.Warnf("  ✗ %s: %v", doc.Label, err)
		return result
	}

	id, err := w.dest.Create(ctx, doc.Payload())
	if err != nil {
		result.Error = err.Error()
		w.logger.Warnf("  ✗ %s: %v", doc.Label, err)
		return result
	}

	result.Succeeded = true
	result.DestinationID = id
	w.logger.Debugf("  ✓ %s (%s)", doc.Label, id)
	return result
}

// Summary counts the outcomes of a write.
type Summary struct {
	Succeeded int
	Failed    int
	Failures  []entities.BatchResult
}

func Summarize(results []entities.BatchResult) Summary {
	var s Summary
	for _, r := range results {
		if r.Succeeded {
			s.Succeeded++
			continue
		}
		s.Failed++
		s.Failures = append(s.Failures, r)
	}
	return s
}
