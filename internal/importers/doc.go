// Package importers runs migration jobs: it reads a source, transforms each
// item into a destination document and hands the documents to a writer.
//
// # Architecture
//
//	Source → Transformer → (ledger skip) → Enricher → Relocator → Writer
//
// Each source implements the Source interface, which yields SourceItems as a
// restartable sequence. The Pipeline reads the whole source before writing
// anything, so a read error aborts the job with the destination untouched.
//
// # Adding a New Source
//
//  1. Create a new file (e.g., airtable.go)
//  2. Implement Source: Name() and Items(ctx)
//  3. Add a source kind to config.SourceKind and resolve it in SourceResolver.Resolve
//
//     // Compile-time check
//     var _ Source = (*AirtableSource)(nil)
//
// # Existing Sources
//
//   - WebflowSource: a Webflow CMS collection, paged lazily
//   - CSVSource: a CSV export with a header row
//
// # Example Usage
//
//	resolver, err := importers.NewSourceResolver(ctx, webflowClient, jobs, ".")
//	if err != nil {
//		return err // collections could not be listed: abort the run
//	}
//
//	pipeline := importers.NewPipeline(batchWriter, relocator, logger)
//	summaries := pipeline.RunAll(ctx, jobs, resolver)
package importers
