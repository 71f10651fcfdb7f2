package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garyjia/pto-workflow/internal/container"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime(false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Storage.Driver != container.DriverSQLite {
		return fmt.Errorf("migrate requires the sqlite storage driver, got %q", cfg.Storage.Driver)
	}

	dbCfg := cfg.ToContainerConfig().Database
	versions, err := container.Migrate(&dbCfg, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Database %s at schema versions %v\n", dbCfg.Path, versions)
	return nil
}
