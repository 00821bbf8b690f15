package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"example.com/homealarm/internal/config"
	"example.com/homealarm/internal/logging"
	"example.com/homealarm/internal/storage"
	"example.com/homealarm/internal/storage/postgres"
	"example.com/homealarm/internal/storage/sqlite"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "alarm-api",
	Short: "Event log backend for a home alarm system",
	Long: `Records alarm, door sensor, state and camera motion reports and serves
them to the UI over HTTP. Reports may also arrive over MQTT.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables override it")
	rootCmd.AddCommand(serveCmd, migrateCmd, statusesCmd)
}

// loadConfig reads the layered configuration and builds the root logger.
func loadConfig() (config.Config, *logrus.Logger, error) {
	v, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Parse(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.Setup(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return cfg, logger, nil
}

// openStore connects to the configured backend and brings its schema up to date.
func openStore(ctx context.Context, cfg config.Config, log *logrus.Entry) (storage.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if err := db.Migrate(ctx, log); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration: %w", err)
		}
		return postgres.NewStore(db), nil
	default:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		if err := sqlite.Migrate(ctx, db, log); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration: %w", err)
		}
		return sqlite.NewStore(db), nil
	}
}
