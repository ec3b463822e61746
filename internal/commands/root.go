// Package commands wires configuration, storage and the HTTP server into the
// minutes-tracker CLI.
package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BuzzLyutic/minutes-tracker/internal/config"
	"github.com/BuzzLyutic/minutes-tracker/internal/repo"
)

var (
	version = "dev"
	commit  = "none"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "minutes-tracker",
	Short: "Team task tracker with a meeting-minutes audit trail",
	Long: `minutes-tracker serves the team task API. Every task change is recorded
as a snapshot on the team's minutes for that day.`,
	SilenceUsage: true,
}

func SetVersion(v, c string) {
	version = v
	commit = c
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $CONFIG_FILE)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// openStore connects to the configured backend. The caller owns Close.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repo.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := repo.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("Opened SQLite database", zap.String("path", cfg.SQLitePath))
		return store, nil
	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Successfully connected to the Database!", zap.String("host", hostOf(cfg.DatabaseURL)))
		return repo.NewPostgresStore(pool), nil
	}
}

// hostOf strips credentials from a database URL for logging.
func hostOf(url string) string {
	if i := strings.LastIndex(url, "@"); i >= 0 {
		url = url[i+1:]
	}
	if i := strings.IndexAny(url, "/?"); i >= 0 {
		url = url[:i]
	}
	return url
}

// setup loads config and opens the logger and store shared by every command.
func setup(ctx context.Context) (config.Config, *zap.Logger, repo.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return cfg, nil, nil, err
	}
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Sync()
		return cfg, nil, nil, err
	}
	return cfg, logger, store, nil
}
