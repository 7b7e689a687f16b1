package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/submission-backend/internal/adapter/postgres"
	"github.com/heartmarshall/submission-backend/internal/app"
	"github.com/heartmarshall/submission-backend/internal/config"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "migrate",
		Short:         "Apply pending database migrations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(rootOpts.Config)
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			if cfg.Database.Driver != config.DriverPostgres {
				return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("migrate needs the postgres driver, got %q", cfg.Database.Driver)}
			}

			logger := app.NewLogger(cfg.Log)
			if err := postgres.Migrate(cmd.Context(), cfg.Database.DSN, logger); err != nil {
				return WrapExitError(ExitFailure, "migrate", err)
			}

			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return f.Success(map[string]string{"status": "migrated"}, func(w io.Writer) {
				fmt.Fprintln(w, "migrations applied")
			})
		},
	}
}
