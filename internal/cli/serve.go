package cli

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mrlokans/cms-migrator/internal/database"
	"github.com/mrlokans/cms-migrator/internal/database/runs"
	"github.com/mrlokans/cms-migrator/internal/entrypoint"
	http_controllers "github.com/mrlokans/cms-migrator/internal/http"
	"github.com/mrlokans/cms-migrator/internal/importers"
	"github.com/mrlokans/cms-migrator/internal/scheduler"
)

// ServeCommand runs scheduled migrations behind a small status server.
type ServeCommand struct {
	SkipMigrated bool
	Upsert       bool
}

func newServeCommand(app *App) *cobra.Command {
	sc := &ServeCommand{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled migrations and the status server",
		Long: `Start the status server and, when SYNC_ENABLED is true, run every job of
the mapping file on SYNC_SCHEDULE (cron format, default daily at 03:00).

Endpoints:
  GET  /health         ledger and scheduler status
  GET  /api/runs       recent runs (?job=<name>&limit=<n>)
  GET  /api/runs/:id   one run
  POST /api/runs       start a migration now (409 while one is running)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return sc.Run(cmd.Context(), app)
		},
	}

	cmd.Flags().BoolVar(&sc.SkipMigrated, "skip-migrated", true, "Skip items the ledger already maps to a document")
	cmd.Flags().BoolVar(&sc.Upsert, "upsert", false, "Patch documents whose type and slug already exist")
	return cmd
}

func (sc *ServeCommand) options() migrationOptions {
	return migrationOptions{
		Options: importers.Options{SkipMigrated: sc.SkipMigrated},
		Upsert:  sc.Upsert,
	}
}

// runFunc builds a fresh pipeline for every run so mapping file edits take
// effect without a restart.
func (sc *ServeCommand) runFunc(app *App) scheduler.RunFunc {
	return func(ctx context.Context) error {
		m, err := newMigration(app, sc.options())
		if err != nil {
			return err
		}
		defer m.Close()

		summaries, err := m.Run(ctx)
		if err != nil {
			return err
		}
		for _, s := range summaries {
			app.Logger.Infow("job finished",
				"job", s.Job, "read", s.Read, "skipped", s.Skipped,
				"succeeded", s.Succeeded, "failed", s.Failed, "aborted", s.Err != nil)
		}
		if t := importers.Total(summaries); t.HasFailures() {
			return errors.Newf("%d job(s) aborted, %d document(s) failed", t.JobsFailed, t.Failed)
		}
		return nil
	}
}

func (sc *ServeCommand) Run(ctx context.Context, app *App) error {
	cfg := app.Config
	logger := app.Logger

	// Fail fast on a bad mapping or missing settings
	m, err := newMigration(app, sc.options())
	if err != nil {
		return err
	}
	if err := m.Close(); err != nil {
		return err
	}

	var db *database.Database
	var runStore http_controllers.RunStore
	if cfg.Ledger.Path != "" {
		db, err = database.NewDatabase(cfg.Ledger.Path)
		if err != nil {
			return errors.Wrapf(err, "open ledger %s", cfg.Ledger.Path)
		}
		defer db.Close()
		runStore = runs.NewRepository(db.DB)
	}

	sched := scheduler.NewMigrationScheduler(sc.runFunc(app), cfg.Sync.Schedule, logger)
	if cfg.Sync.Enabled {
		if err := sched.Start(ctx); err != nil {
			return err
		}
	} else {
		logger.Info("scheduled migrations disabled, use POST /api/runs to start one")
	}

	gin.SetMode(gin.ReleaseMode)
	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:  db,
		Runs:      runStore,
		Scheduler: sched,
		Version:   app.Version,
		Logger:    logger,
	})

	return entrypoint.Serve(ctx, router, cfg, logger, func(context.Context) {
		sched.Stop()
	})
}
