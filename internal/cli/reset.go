package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mrlokans/cms-migrator/internal/config"
	"github.com/mrlokans/cms-migrator/internal/database"
	"github.com/mrlokans/cms-migrator/internal/database/items"
	"github.com/mrlokans/cms-migrator/internal/sanity"
)

const deleteByTypeQuery = `*[_type == $type]`

// datasetAdmin is the part of the destination client the reset tools use.
type datasetAdmin interface {
	Dataset() string
	Count(ctx context.Context, docType string) (int, error)
	DeleteByQuery(ctx context.Context, query string, params map[string]any) (int, error)
	Ping(ctx context.Context) error
}

// ledgerCleaner forgets migrated items so a re-run recreates them.
type ledgerCleaner interface {
	CountByJob() (map[string]int64, error)
	DeleteByJob(job string) (int64, error)
}

var (
	_ datasetAdmin  = (*sanity.Client)(nil)
	_ ledgerCleaner = (*items.Repository)(nil)
)

// ResetCommand inspects and clears the destination types the mapping writes.
type ResetCommand struct {
	Jobs    []string
	Confirm bool
}

func newResetCommand(app *App) *cobra.Command {
	rc := &ResetCommand{}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Inspect or clear migrated documents in the destination dataset",
		Long: `Inspect or clear the document types written by the mapping file.

Examples:
  cmsmigrate reset analyze               # Document counts per type
  cmsmigrate reset clear                 # Show what would be deleted
  cmsmigrate reset clear --confirm       # Delete every mapped type
  cmsmigrate reset clear --job team --confirm
  cmsmigrate reset test                  # Check destination credentials`,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show document counts for every mapped type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.withDeps(app, func(jobs []config.Job, admin datasetAdmin, ledger ledgerCleaner) error {
				return rc.Analyze(cmd.Context(), jobs, admin, ledger, app.Out)
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every document of the mapped types (dry run without --confirm)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.withDeps(app, func(jobs []config.Job, admin datasetAdmin, ledger ledgerCleaner) error {
				return rc.Clear(cmd.Context(), jobs, admin, ledger, app.Out)
			})
		},
	}
	clearCmd.Flags().BoolVar(&rc.Confirm, "confirm", false, "Actually delete documents")

	testCmd := &cobra.Command{
		Use:   "test",
		Short: "Check destination credentials and dataset access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Config.Require(config.RequireSanity); err != nil {
				return err
			}
			return rc.Test(cmd.Context(), newSanityClient(app.Config, app.Logger), app.Out)
		},
	}

	cmd.PersistentFlags().StringArrayVar(&rc.Jobs, "job", nil, "Limit to the types of these jobs (repeatable)")
	cmd.AddCommand(analyzeCmd, clearCmd, testCmd)
	return cmd
}

// withDeps loads the mapping, checks configuration and opens the ledger when
// one is configured.
func (rc *ResetCommand) withDeps(app *App, fn func([]config.Job, datasetAdmin, ledgerCleaner) error) error {
	mapping, err := config.LoadMapping(app.Config.Migration.MappingFile)
	if err != nil {
		return err
	}
	jobs, err := mapping.Select(rc.Jobs)
	if err != nil {
		return err
	}
	if err := app.Config.Require(config.RequireSanity); err != nil {
		return err
	}

	var ledger ledgerCleaner
	if app.Config.Ledger.Path != "" {
		db, err := database.NewDatabase(app.Config.Ledger.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		ledger = items.NewRepository(db.DB)
	}

	return fn(jobs, newSanityClient(app.Config, app.Logger), ledger)
}

func (rc *ResetCommand) Analyze(ctx context.Context, jobs []config.Job, admin datasetAdmin, ledger ledgerCleaner, out io.Writer) error {
	fmt.Fprintf(out, "=== Dataset %s ===\n", admin.Dataset())

	var migrated map[string]int64
	if ledger != nil {
		var err error
		if migrated, err = ledger.CountByJob(); err != nil {
			return err
		}
	}

	total := 0
	for _, docType := range distinctTypes(jobs) {
		n, err := admin.Count(ctx, docType)
		if err != nil {
			fmt.Fprintf(out, "  [ERROR] %s: %v\n", docType, err)
			continue
		}
		total += n
		fmt.Fprintf(out, "  %-24s %d document(s)\n", docType, n)
	}
	fmt.Fprintf(out, "Total: %d document(s)\n", total)

	if ledger != nil {
		fmt.Fprintln(out, "Ledger:")
		for _, job := range jobs {
			fmt.Fprintf(out, "  %-24s %d migrated item(s)\n", job.Name, migrated[job.Name])
		}
	}
	return nil
}

func (rc *ResetCommand) Clear(ctx context.Context, jobs []config.Job, admin datasetAdmin, ledger ledgerCleaner, out io.Writer) error {
	types := distinctTypes(jobs)

	if !rc.Confirm {
		fmt.Fprintln(out, "DRY RUN MODE - No changes will be made")
		for _, docType := range types {
			n, err := admin.Count(ctx, docType)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  would delete %d %s document(s)\n", n, docType)
		}
		fmt.Fprintln(out, "Re-run with --confirm to delete.")
		return nil
	}

	for _, docType := range types {
		n, err := admin.DeleteByQuery(ctx, deleteByTypeQuery, map[string]any{"type": docType})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ deleted %d %s document(s)\n", n, docType)
	}

	if ledger != nil {
		for _, job := range jobs {
			n, err := ledger.DeleteByJob(job.Name)
			if err != nil {
				return err
			}
			if n > 0 {
				fmt.Fprintf(out, "✓ forgot %d migrated item(s) of %s\n", n, job.Name)
			}
		}
	}
	return nil
}

func (rc *ResetCommand) Test(ctx context.Context, admin datasetAdmin, out io.Writer) error {
	if err := admin.Ping(ctx); err != nil {
		fmt.Fprintf(out, "✗ cannot reach dataset %s\n", admin.Dataset())
		return err
	}
	fmt.Fprintf(out, "✓ connected to dataset %s\n", admin.Dataset())
	return nil
}

func distinctTypes(jobs []config.Job) []string {
	return (&config.Mapping{Jobs: jobs}).Types()
}
