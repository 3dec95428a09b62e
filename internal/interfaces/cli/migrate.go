package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/database/postgres"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Massing-Sim/pkg/errors"
)

// schemaMigrator is the subset of postgres.Migrator the CLI drives.
type schemaMigrator interface {
	Up() error
	Down(steps int) error
	Status() (version uint, dirty bool, err error)
	Force(version int) error
}

var newMigrator = func(cfg config.DatabaseConfig, log logging.Logger) schemaMigrator {
	return postgres.NewMigrator(cfg, log)
}

type migrateOptions struct {
	path  string
	steps int
}

// NewMigrateCmd creates the migrate command group.  It reads database.* from
// the loaded config.
func NewMigrateCmd() *cobra.Command {
	opts := &migrateOptions{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the run history schema",
	}
	cmd.PersistentFlags().StringVar(&opts.path, "path", "", "migration source URL (default: database.migration_path)")

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator(cmd, opts)
			if err != nil {
				return err
			}
			if err := m.Up(); err != nil {
				return err
			}
			return printMigrationStatus(cmd, m)
		},
	}

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator(cmd, opts)
			if err != nil {
				return err
			}
			if err := m.Down(opts.steps); err != nil {
				return err
			}
			return printMigrationStatus(cmd, m)
		},
	}
	downCmd.Flags().IntVar(&opts.steps, "steps", 1, "number of migrations to roll back")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := migrator(cmd, opts)
			if err != nil {
				return err
			}
			return printMigrationStatus(cmd, m)
		},
	}

	forceCmd := &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without migrating, to clear a dirty state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < -1 {
				return errors.New(errors.ErrCodeBadRequest, "invalid version").WithDetail(args[0])
			}
			m, err := migrator(cmd, opts)
			if err != nil {
				return err
			}
			if err := m.Force(v); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("schema version forced to %d", v))
			return nil
		},
	}

	cmd.AddCommand(upCmd, downCmd, statusCmd, forceCmd)
	return cmd
}

func migrator(cmd *cobra.Command, opts *migrateOptions) (schemaMigrator, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	dbCfg := cliCtx.Config.Database
	if opts.path != "" {
		dbCfg.MigrationPath = opts.path
	}
	if dbCfg.MigrationPath == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "no migration source").WithDetail("set --path or database.migration_path")
	}
	return newMigrator(dbCfg, cliCtx.Logger), nil
}

type migrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (s migrationStatus) String() string {
	if s.Dirty {
		return fmt.Sprintf("schema version %d (dirty, fix and run 'msim migrate force')\n", s.Version)
	}
	return fmt.Sprintf("schema version %d\n", s.Version)
}

func printMigrationStatus(cmd *cobra.Command, m schemaMigrator) error {
	v, dirty, err := m.Status()
	if err != nil {
		return err
	}
	return PrintResult(cmd, migrationStatus{Version: v, Dirty: dirty})
}

//Personal.AI order the ending
