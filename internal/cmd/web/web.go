// Package web parses web command flags and launches the web service.
package web

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/louisbranch/postbook/internal/blog/storage/snapshotstore"
	"github.com/louisbranch/postbook/internal/blog/storage/sqlite"
	entrypoint "github.com/louisbranch/postbook/internal/platform/cmd"
	"github.com/louisbranch/postbook/internal/platform/kv/backend"
	platformlog "github.com/louisbranch/postbook/internal/platform/log"
	"github.com/louisbranch/postbook/internal/services/web"
)

// Config holds the web command configuration.
type Config struct {
	HTTPAddr     string `env:"POSTBOOK_WEB_HTTP_ADDR" envDefault:"localhost:8080"`
	ServerDBPath string `env:"POSTBOOK_SERVER_DB_PATH" envDefault:"data/server.db"`
	SnapshotKey  string `env:"POSTBOOK_SNAPSHOT_KEY" envDefault:"sqlite-buffer"`
	ResetCorrupt bool   `env:"POSTBOOK_SNAPSHOT_RESET_CORRUPT"`
	KV           backend.Config
	Log          platformlog.Config
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.ServerDBPath, "server-db", cfg.ServerDBPath, "SQLite file backing server mode")
	fs.StringVar(&cfg.SnapshotKey, "snapshot-key", cfg.SnapshotKey, "Key holding the local snapshot")
	fs.BoolVar(&cfg.ResetCorrupt, "reset-corrupt", cfg.ResetCorrupt, "Start empty when the stored snapshot is corrupt")
	fs.StringVar(&cfg.KV.Backend, "kv-backend", cfg.KV.Backend, "Snapshot store backend (bbolt, memory, postgres)")
	fs.StringVar(&cfg.KV.Path, "kv-path", cfg.KV.Path, "bbolt file holding snapshots")
	fs.StringVar(&cfg.KV.PostgresDSN, "kv-postgres-dsn", cfg.KV.PostgresDSN, "Postgres DSN for the postgres backend")
	fs.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "Log format (text, json)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the web service.
func Run(ctx context.Context, cfg Config) error {
	logger, logCloser, err := platformlog.New(cfg.Log, os.Stderr)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	return entrypoint.RunWithTelemetryAndOptions(ctx, entrypoint.ServiceWeb, entrypoint.RunOptions{Logger: logger}, func(ctx context.Context) error {
		return serve(ctx, cfg, logger)
	})
}

func serve(ctx context.Context, cfg Config, logger *slog.Logger) error {
	serverStore, err := sqlite.Open(ctx, cfg.ServerDBPath)
	if err != nil {
		return fmt.Errorf("open server store: %w", err)
	}
	defer closeLogged(logger, "server store", serverStore.Close)

	kvStore, kvCloser, err := backend.Open(ctx, cfg.KV)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "kv store", kvCloser.Close)

	localStore, err := snapshotstore.Open(ctx, kvStore, snapshotstore.Options{
		Key:          cfg.SnapshotKey,
		ResetCorrupt: cfg.ResetCorrupt,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer closeLogged(logger, "local store", localStore.Close)
	logger.Info("local snapshot loaded",
		"backend", cfg.KV.Backend,
		"key", localStore.DB().Key(),
		"state", localStore.State().String(),
	)

	server, err := web.NewServer(web.Config{
		HTTPAddr:    cfg.HTTPAddr,
		ServerStore: serverStore,
		LocalStore:  localStore,
		Snapshot:    localStore,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("init web server: %w", err)
	}
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve web: %w", err)
	}
	return nil
}

func closeLogged(logger *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Warn("close failed", "resource", name, "error", err)
	}
}
