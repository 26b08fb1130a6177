// Package backend opens the key-value store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/postbook/internal/platform/kv"
	kvbbolt "github.com/louisbranch/postbook/internal/platform/kv/bbolt"
	kvpostgres "github.com/louisbranch/postbook/internal/platform/kv/postgres"
)

// Backend names a key-value implementation.
type Backend string

const (
	BackendBbolt    Backend = "bbolt"
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
)

// Config selects and locates the key-value store.
type Config struct {
	Backend     string `env:"POSTBOOK_KV_BACKEND" envDefault:"bbolt"`
	Path        string `env:"POSTBOOK_KV_PATH" envDefault:"data/local.kv"`
	PostgresDSN string `env:"POSTBOOK_KV_POSTGRES_DSN"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the configured store and a closer that releases it.
func Open(ctx context.Context, cfg Config) (kv.Store, io.Closer, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(cfg.Backend))) {
	case BackendBbolt, "":
		store, err := kvbbolt.Open(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open bbolt kv store: %w", err)
		}
		return store, store, nil
	case BackendMemory:
		return kv.NewMemory(), nopCloser{}, nil
	case BackendPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return nil, nil, fmt.Errorf("postgres dsn is required for the postgres kv backend")
		}
		store, err := kvpostgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres kv store: %w", err)
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown kv backend %q", cfg.Backend)
	}
}
