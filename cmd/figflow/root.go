package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/figflow"
	"github.com/aretw0/figflow/internal/config"
	"github.com/aretw0/figflow/internal/logging"
	"github.com/aretw0/figflow/pkg/adapters/file"
	"github.com/aretw0/figflow/pkg/adapters/redis"
	"github.com/aretw0/figflow/pkg/transform"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "figflow",
	Short: "figflow connects your editor to a code-transformation service",
	Long: `figflow runs an editor Host and a chat panel. Prompts typed in the panel are sent,
together with the focused document, to a code-transformation API; the returned code is
typed back into the document one character at a time.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	rootCmd.PersistentFlags().String("api", "", "Transformation API base URL (overrides api.base_url)")
}

// loadConfig reads the config file and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if api, _ := cmd.Flags().GetString("api"); api != "" {
		cfg.API.BaseURL = api
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithOptions(logging.Options{
		Level:  level,
		Format: logging.Format(cfg.Log.Format),
	}), nil
}

// setup loads the config and builds the logger every command starts from.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return cfg, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

// buildApp wires a figflow App from cfg. The returned cleanup closes the App and any
// store connection.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*figflow.App, func(), error) {
	opts := []figflow.Option{
		figflow.WithLogger(logger),
		figflow.WithBaseURL(cfg.API.BaseURL),
		figflow.WithTransformOptions(
			transform.WithPaths(cfg.API.ProcessPath, cfg.API.UploadPath),
			transform.WithTimeout(cfg.API.Timeout.Std()),
		),
		figflow.WithWriteDelay(cfg.WriteBack.Delay.Std()),
	}

	var closers []func()
	switch cfg.Store.Kind {
	case config.StoreFile:
		opts = append(opts, figflow.WithDocuments(figflow.FileDocuments(cfg.Store.Path, file.WithoutSync())))
	case config.StoreRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		closers = append(closers, func() { _ = client.Close() })
		opts = append(opts,
			figflow.WithDocuments(figflow.RedisDocuments(client, redis.WithPrefix(cfg.Redis.Prefix))),
			figflow.WithLocker(redis.NewLocker(client, cfg.Redis.Prefix)),
		)
	}

	app := figflow.New(opts...)
	cleanup := func() {
		if err := app.Close(); err != nil {
			logger.Warn("Close failed", "err", err)
		}
		for _, c := range closers {
			c()
		}
	}
	return app, cleanup, nil
}

// openFiles loads each path from disk into the App's store. The last one is focused.
func openFiles(ctx context.Context, app *figflow.App, paths []string) error {
	for _, name := range paths {
		data, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		if _, err := app.OpenDocument(ctx, name, string(data)); err != nil {
			return err
		}
	}
	return nil
}
