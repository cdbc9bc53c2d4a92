package main

import (
	"github.com/skillbadge/assessment-service/internal/repositories/postgres"
	"github.com/skillbadge/assessment-service/pkg"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			db, err := pkg.InitDatabase(cfg)
			if err != nil {
				return err
			}
			if err := postgres.Migrate(db); err != nil {
				return err
			}
			logger.Info("Database migrated")
			return nil
		},
	}
}
