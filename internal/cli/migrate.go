package cli

import (
	"fmt"

	"github.com/cloo-solutions/coursebot/internal/config"
	"github.com/cloo-solutions/coursebot/internal/database"
	"github.com/spf13/cobra"
)

// MigrateCmd returns the migrate command
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the postgres store",
		RunE:  runMigrate,
	}

	cmd.Flags().String("source", database.DefaultMigrationsSource, "Migrations source URL")

	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("COURSEBOT_DATABASE_URL is required")
	}

	source, _ := cmd.Flags().GetString("source")
	return database.Migrate(cfg.DatabaseURL, source)
}
