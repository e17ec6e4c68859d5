package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/mrlokans/cms-migrator/internal/config"
	"github.com/mrlokans/cms-migrator/internal/logging"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	var (
		mappingFile string
		verbose     bool
	)

	root := &cobra.Command{
		Use:   "cmsmigrate",
		Short: "Migrate Webflow CMS collections into a Sanity dataset",
		Long: `cmsmigrate copies CMS content from Webflow (or CSV exports) into Sanity.

Jobs are declared in a mapping file (MAPPING_FILE, default ./migration.yaml):
one job per destination type, with an explicit source-to-target field list.
Credentials come from the environment.

Available commands:
  migrate      - Run migration jobs
  collections  - List and analyse source collections
  reset        - Inspect or clear migrated documents
  serve        - Scheduled migrations with a status server`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Config == nil {
				app.Config = config.NewConfig()
			}
			if mappingFile != "" {
				app.Config.Migration.MappingFile = mappingFile
			}
			if app.Out == nil {
				app.Out = cmd.OutOrStdout()
			}
			if app.Logger == nil {
				level := app.Config.Logging.Level
				if verbose {
					level = "debug"
				}
				logger, err := logging.New(level, app.Config.Logging.JSON)
				if err != nil {
					return err
				}
				app.Logger = logger
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&mappingFile, "mapping", "m", "", "Mapping file (overrides MAPPING_FILE)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newMigrateCommand(app),
		newCollectionsCommand(app),
		newResetCommand(app),
		newServeCommand(app),
		newVersionCommand(app),
	)
	return root
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(app.Out, "cmsmigrate %s\n", app.Version)
		},
	}
}

// Execute runs the command line and returns the process exit code: 0 on
// success, 1 when a command returned an error.
func Execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) int {
	app := &App{Version: version, Out: stdout}
	return execute(ctx, app, args, stderr)
}

func execute(ctx context.Context, app *App, args []string, stderr io.Writer) int {
	root := NewRootCommand(app)
	root.SetArgs(args)
	root.SetOut(app.Out)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if app.Logger != nil {
		_ = app.Logger.Sync()
	}
	if err == nil {
		return 0
	}

	reportError(stderr, err)
	return 1
}

func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if hint := errors.FlattenHints(err); hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}
