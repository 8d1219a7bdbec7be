package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/mentor-queue/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrateUp,
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.RemoteConfigured() {
		return errors.New("migrate: remote backend is not configured, set DB_HOST")
	}
	if err := database.MigrateUp(cfg.DatabaseURL(), log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("migrate up: ok")
	return nil
}
