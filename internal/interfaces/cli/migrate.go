package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turtacn/reagent-match/internal/bootstrap"
	"github.com/turtacn/reagent-match/internal/config"
	"github.com/turtacn/reagent-match/internal/infrastructure/database/postgres"
)

// NewMigrateCmd creates the migrate command group for the PostgreSQL source.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL catalog schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnection(cmd, func(conn *postgres.Connection, dir string) error {
				if err := conn.RunMigrations(dir); err != nil {
					return err
				}
				PrintSuccess(cmd, "migrations applied")
				return nil
			})
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnection(cmd, func(conn *postgres.Connection, dir string) error {
				if err := conn.RollbackMigration(dir, steps); err != nil {
					return err
				}
				PrintSuccess(cmd, fmt.Sprintf("rolled back %d migration(s)", steps))
				return nil
			})
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConnection(cmd, func(conn *postgres.Connection, dir string) error {
				version, dirty, err := conn.MigrationStatus(dir)
				if err != nil {
					return err
				}
				return PrintResult(cmd, migrationStatus{Version: version, Dirty: dirty})
			})
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd)
	return cmd
}

type migrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (s migrationStatus) String() string {
	if s.Dirty {
		return fmt.Sprintf("version %d (dirty)\n", s.Version)
	}
	return fmt.Sprintf("version %d\n", s.Version)
}

func withConnection(cmd *cobra.Command, fn func(conn *postgres.Connection, migrationsDir string) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cliCtx.LoadConfig(func(c *config.Config) { c.Catalog.Source = config.SourcePostgres })
	if err != nil {
		return err
	}
	conn, err := postgres.NewConnection(bootstrap.PostgresConfig(cfg.Database), cliCtx.Logger)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn, cfg.Database.MigrationPath)
}
