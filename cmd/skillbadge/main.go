package main

import (
	"fmt"
	"os"

	"github.com/skillbadge/assessment-service/internal/config"
	"github.com/skillbadge/assessment-service/internal/utils"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "skillbadge",
		Short:   "Skill assessment service: payments, assessments and certification review",
		Version: Version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and the logger shared by every command
func bootstrap() (*config.Config, utils.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return cfg, utils.NewLogger(cfg.Environment), nil
}
