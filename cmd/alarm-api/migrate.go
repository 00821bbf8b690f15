package main

import (
	"github.com/spf13/cobra"

	"example.com/homealarm/internal/logging"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cmd.Context(), cfg, logging.Subsystem(logger, "migrate"))
		if err != nil {
			return err
		}
		return store.Close()
	},
}
