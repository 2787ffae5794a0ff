package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"eventflow/internal/config"
	"eventflow/internal/constants"
	"eventflow/internal/logger"
	"eventflow/pkg/logging"
)

var (
	configFile string
)

// @title           eventflow Admin API
// @version         1.0
// @description     Health, metrics and inspection of streams, pipelines and aging queues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /

// @schemes   http

func main() {
	rootCmd := &cobra.Command{
		Use:   "eventflow",
		Short: "Rule-driven message routing engine",
		Long:  "eventflow reads messages from sources, routes them through filter and processor pipelines and delivers them to sinks",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(earlyLog *logging.EarlyLog) (*config.Config, error) {
	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
		if configFile == "" {
			earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
			return nil, fmt.Errorf("config file is required")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, err
	}
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the configured streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			cfg, err := loadConfig(earlyLog)
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.Logging.Level)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting eventflow", "streams", len(cfg.Streams), "pipelines", len(cfg.Pipelines))

			app := NewApp(cfg, log)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
				defer cancel()
				if err := app.Shutdown(shutdownCtx); err != nil {
					log.ErrorwCtx(shutdownCtx, "Shutdown failed", "error", err)
				}
			}()

			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				return err
			}

			log.InfowCtx(ctx, "eventflow running")
			if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", err)
				return err
			}
			log.InfowCtx(ctx, "Shutdown complete")
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	var connect bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		Long:  "validate checks the configuration file. With --connect it also opens every connection and builds all components.",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			cfg, err := loadConfig(earlyLog)
			if err != nil {
				return err
			}

			if err := config.ValidateStatic(cfg); err != nil {
				earlyLog.Error("Invalid configuration: %v", err)
				return err
			}

			if connect {
				log, err := logger.New(cfg.Logging.Level)
				if err != nil {
					return err
				}
				defer log.Sync()

				app := NewApp(cfg, log)
				initErr := app.Initialize(context.Background())

				shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
				defer cancel()
				shutdownErr := app.Shutdown(shutdownCtx)

				if initErr != nil {
					earlyLog.Error("Failed to build components: %v", initErr)
					return initErr
				}
				if shutdownErr != nil {
					return shutdownErr
				}
			}

			earlyLog.Info("Configuration is valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&connect, "connect", false, "Open connections and build every component")
	return cmd
}
