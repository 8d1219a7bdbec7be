package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/psds-microservice/mentor-queue/internal/config"
	"github.com/psds-microservice/mentor-queue/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "mentor-queue",
	Short:         "Mentoring queue API: tickets, mentor presence, notifications",
	RunE:          runAPI,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(notifyCmd)
}

// loadConfig читает .env и окружение, проверяет конфиг и создаёт логгер.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	return cfg, logging.New(cfg.LogLevel, cfg.AppEnv), nil
}
