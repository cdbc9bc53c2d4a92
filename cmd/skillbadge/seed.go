package main

import (
	"fmt"

	"github.com/skillbadge/assessment-service/internal/models"
	"github.com/skillbadge/assessment-service/internal/repositories/postgres"
	"github.com/skillbadge/assessment-service/internal/seed"
	"github.com/skillbadge/assessment-service/internal/services"
	"github.com/skillbadge/assessment-service/internal/utils"
	"github.com/skillbadge/assessment-service/pkg"
	"github.com/spf13/cobra"
)

func seedCmd() *cobra.Command {
	var (
		file    string
		replace bool
	)

	cmd := &cobra.Command{
		Use:   "seed-questions",
		Short: "Load a question bank into the database",
		Long: `Load multiple choice questions per skill.

Without --file the built-in bank is used. Skills that already have questions
are skipped unless --replace is given.

Examples:
  skillbadge seed-questions
  skillbadge seed-questions --file bank.yaml --replace`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			var questions []*models.Question
			if file != "" {
				questions, err = seed.LoadFile(file)
			} else {
				questions, err = seed.Default()
			}
			if err != nil {
				return err
			}

			db, err := pkg.InitDatabase(cfg)
			if err != nil {
				return err
			}
			repo := postgres.NewRepository(db)
			defer repo.Close()

			serviceManager := services.NewServiceManager(services.Dependencies{
				Repo:   repo,
				Config: cfg,
				Logger: utils.ToSlogLogger(logger),
			})
			result, err := serviceManager.Question.Import(cmd.Context(), questions, replace)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions\n", result.Created)
			for _, skill := range result.SkippedSkills {
				fmt.Fprintf(cmd.OutOrStdout(), "skipped %s: questions already present\n", skill)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML question bank to load")
	cmd.Flags().BoolVar(&replace, "replace", false, "replace existing questions for the skills in the bank")
	return cmd
}
