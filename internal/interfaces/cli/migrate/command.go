// Package migrate exposes database migration commands.
package migrate

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"nyxvpn/internal/infrastructure/config"
	"nyxvpn/internal/infrastructure/database"
	"nyxvpn/internal/infrastructure/migration"
	"nyxvpn/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Run the versioned SQL migrations against the configured database.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	cmd.AddCommand(
		newUpCommand(),
		newAutoCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE:  runUp,
	}
}

func newAutoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Auto-migrate the schema from the gorm models (development only)",
		RunE:  runAuto,
	}
}

func runUp(cmd *cobra.Command, args []string) error {
	log, err := setup()
	if err != nil {
		return err
	}
	defer database.Close()

	scriptsPath, err := filepath.Abs("./internal/infrastructure/migration/scripts")
	if err != nil {
		return fmt.Errorf("failed to resolve scripts path: %w", err)
	}

	strategy := migration.NewGolangMigrateStrategy(scriptsPath, log)
	manager := migration.NewManagerWithStrategy(strategy, log)
	return manager.Migrate(database.Get())
}

func runAuto(cmd *cobra.Command, args []string) error {
	log, err := setup()
	if err != nil {
		return err
	}
	defer database.Close()

	strategy := migration.NewGormAutoMigrateStrategy(log)
	manager := migration.NewManagerWithStrategy(strategy, log)
	return manager.Migrate(database.Get())
}

func setup() (logger.Interface, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return logger.NewLogger(), nil
}
