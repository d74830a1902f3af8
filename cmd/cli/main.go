package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/colony-allocator/cmd/cli/commands"
	"github.com/jakechorley/colony-allocator/internal/config"
	"github.com/jakechorley/colony-allocator/pkg/core/engine"
	"github.com/jakechorley/colony-allocator/pkg/db"
	"github.com/jakechorley/colony-allocator/pkg/metrics"
	"github.com/jakechorley/colony-allocator/pkg/postgres"
	"github.com/jakechorley/colony-allocator/pkg/sqlite"
	"github.com/jakechorley/colony-allocator/pkg/utils/logging"
)

var (
	env string
	app = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Colony allocator CLI - share workers and energy between buildings",
		Long:  `A CLI tool for running allocation passes over colony planets, simulating days and managing world snapshots.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			shutdown()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	rootCmd.AddCommand(commands.AllocateCmd(app))
	rootCmd.AddCommand(commands.SimulateCmd(app))
	rootCmd.AddCommand(commands.ImportWorldCmd(app))
	rootCmd.AddCommand(commands.ExportWorldCmd(app))
	rootCmd.AddCommand(commands.ViewAllocationsCmd(app))
	rootCmd.AddCommand(commands.ListPlanetsCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		shutdown()
		os.Exit(1)
	}
}

// initApp sets up logger, config, database, metrics and the allocation engine
func initApp() error {
	var err error
	app.Ctx = context.Background()

	app.Logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully",
		zap.String("default_strategy", app.Cfg.DefaultStrategy),
		zap.Int("strategy_overrides", len(app.Cfg.StrategyOverrides)))

	app.Database, err = openDatabase(app.Ctx, app.Cfg, app.Logger)
	if err != nil {
		return err
	}

	app.Registry = prometheus.NewRegistry()
	app.Metrics = metrics.NewEngineCollector()
	if err := app.Metrics.Register(app.Registry); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	app.Engine = engine.New(engine.Options{
		Workers:   app.Cfg.Engine.Workers,
		KeepAlive: app.Cfg.Engine.KeepAliveDuration(),
		Recorder:  app.Metrics,
		Logger:    app.Logger,
	})
	app.Logger.Info("Allocation engine initialized successfully")

	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.Database, error) {
	switch cfg.Database.Driver {
	case "postgres":
		logger.Info("Connecting to PostgreSQL")
		pg, err := postgres.NewDB(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pg.RunMigrations(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("Database initialized successfully")
		return pg, nil

	case "sqlite":
		path := cfg.Database.Path
		if path == "" {
			path = fmt.Sprintf("colony_%s.db", env)
		}
		logger.Info("Opening SQLite database", zap.String("path", path))
		lite, err := sqlite.NewDB(path, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Info("Database initialized successfully")
		return lite, nil
	}

	return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
}

// shutdown drains the engine before closing the database
func shutdown() {
	if app.Engine != nil {
		app.Engine.Close()
		app.Engine = nil
	}
	if app.Database != nil {
		if err := app.Database.Close(); err != nil && app.Logger != nil {
			app.Logger.Warn("Failed to close database", zap.Error(err))
		}
		app.Database = nil
	}
	if app.Logger != nil {
		app.Logger.Sync()
	}
}
