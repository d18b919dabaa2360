package main

import (
	"github.com/spf13/cobra"

	"filegov/internal/platform/config"
	"filegov/internal/platform/database"
	"filegov/internal/platform/logger"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded Postgres migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := config.FromEnv()
		log := logger.New(cfg.LogLevel)
		return database.Migrate(cfg.Database.URL, migrateDown, log)
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "Roll every migration back instead")
}
