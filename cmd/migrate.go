package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"study-chat/internal/config"
	"study-chat/internal/db"
	"study-chat/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := config.Load()
		log, err := logger.New(cfg.Server.Mode)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		database, err := db.Connect(cmd.Context(), cfg.Database.DSN)
		if err != nil {
			log.Error("failed to connect to db", zap.Error(err))
			return err
		}
		defer database.Close()

		return db.Migrate(cmd.Context(), database, log)
	},
}
