package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mrlokans/cms-migrator/internal/importers"
)

// ErrRunFailures is returned by migrate --strict when a job aborted or a
// document could not be written.
var ErrRunFailures = errors.New("migration finished with failures")

// MigrateCommand migrates the configured jobs into the destination dataset.
type MigrateCommand struct {
	Jobs         []string
	DryRun       bool
	SkipMigrated bool
	Upsert       bool
	Strict       bool
}

func newMigrateCommand(app *App) *cobra.Command {
	mc := &MigrateCommand{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate source collections into the destination dataset",
		Long: `Migrate every job of the mapping file, or only the jobs named with --job.

Each job reads its whole source first, transforms every item, relocates images
and writes documents in paced batches. A failed document is reported and the
run continues; a job whose source cannot be read writes nothing.

Examples:
  cmsmigrate migrate                        # Run every job
  cmsmigrate migrate --job team --dry-run   # Preview the team job
  cmsmigrate migrate --skip-migrated        # Only items not created yet`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mc.Run(cmd.Context(), app)
		},
	}

	cmd.Flags().StringArrayVar(&mc.Jobs, "job", nil, "Job to run (repeatable, default all)")
	cmd.Flags().BoolVar(&mc.DryRun, "dry-run", false, "Read and transform without uploading or writing")
	cmd.Flags().BoolVar(&mc.SkipMigrated, "skip-migrated", false, "Skip items the ledger already maps to a document")
	cmd.Flags().BoolVar(&mc.Upsert, "upsert", false, "Patch documents whose type and slug already exist instead of creating duplicates")
	cmd.Flags().BoolVar(&mc.Strict, "strict", false, "Exit non-zero when any job or document failed")

	return cmd
}

func (mc *MigrateCommand) Run(ctx context.Context, app *App) error {
	m, err := newMigration(app, migrationOptions{
		Options: importers.Options{DryRun: mc.DryRun, SkipMigrated: mc.SkipMigrated},
		Jobs:    mc.Jobs,
		Upsert:  mc.Upsert,
	})
	if err != nil {
		return err
	}
	defer m.Close()

	if mc.DryRun {
		fmt.Fprintln(app.Out, "DRY RUN MODE - No changes will be made")
		fmt.Fprintln(app.Out)
	}

	summaries, err := m.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(app.Out, summaries)

	if mc.Strict && importers.Total(summaries).HasFailures() {
		return ErrRunFailures
	}
	return nil
}

func printSummary(out io.Writer, summaries []*importers.RunSummary) {
	fmt.Fprintln(out, "=== Summary ===")
	for _, s := range summaries {
		if s.Err != nil {
			fmt.Fprintf(out, "%s: aborted, nothing written\n", s.Job)
			fmt.Fprintf(out, "  [ERROR] %v\n", s.Err)
			continue
		}

		if s.DryRun {
			fmt.Fprintf(out, "%s: read %d, skipped %d, would write %d\n", s.Job, s.Read, s.Skipped, s.Planned)
			for _, doc := range s.Documents {
				fmt.Fprintf(out, "  + %s %q (source %s, slug %q)\n", doc.Type, doc.Label, doc.SourceID, doc.Slug)
			}
		} else {
			fmt.Fprintf(out, "%s: read %d, skipped %d, succeeded %d, failed %d\n", s.Job, s.Read, s.Skipped, s.Succeeded, s.Failed)
			if s.AssetFailures > 0 {
				fmt.Fprintf(out, "  %d image(s) could not be relocated\n", s.AssetFailures)
			}
			if s.EnrichFailed > 0 {
				fmt.Fprintf(out, "  %d document(s) written without suggestions\n", s.EnrichFailed)
			}
		}

		for _, r := range s.Results {
			if r.Succeeded {
				continue
			}
			fmt.Fprintf(out, "  [ERROR] %s (%s): %s\n", r.Label, r.SourceID, r.Error)
		}
		for _, w := range s.Warnings {
			fmt.Fprintf(out, "  [WARN] %s\n", w)
		}
	}

	t := importers.Total(summaries)
	fmt.Fprintf(out, "Total: %d job(s), %d read, %d skipped, %d succeeded, %d failed\n",
		t.Jobs, t.Read, t.Skipped, t.Succeeded, t.Failed)
	if t.JobsFailed > 0 {
		fmt.Fprintf(out, "%d job(s) aborted\n", t.JobsFailed)
	}
}
