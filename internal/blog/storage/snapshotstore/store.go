// Package snapshotstore keeps blog data in an in-memory SQLite database that
// is committed to a key-value store after every write.
package snapshotstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/louisbranch/postbook/internal/blog/post"
	"github.com/louisbranch/postbook/internal/blog/storage"
	"github.com/louisbranch/postbook/internal/blog/storage/sqlite"
	"github.com/louisbranch/postbook/internal/blog/storage/sqlite/migrations"
	"github.com/louisbranch/postbook/internal/platform/kv"
	"github.com/louisbranch/postbook/internal/platform/storage/snapshot"
)

// ErrPersist marks a write that was applied in memory but not committed to
// the backing store.
var ErrPersist = errors.New("snapshot not persisted")

// Options configures Open.
type Options struct {
	// Key names the snapshot entry. Empty uses snapshot.DefaultKey.
	Key string
	// ResetCorrupt discards an unreadable snapshot instead of failing.
	ResetCorrupt bool
	// SkipInit opens without running the schema script on an empty store.
	SkipInit bool
	Logger   *slog.Logger
}

// Store is a storage.Store backed by a snapshot database.
type Store struct {
	*sqlite.Queries
	db *snapshot.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens the snapshot stored in kvStore, creating the blog schema when no
// usable snapshot exists.
func Open(ctx context.Context, kvStore kv.Store, opts Options) (*Store, error) {
	var initSQL string
	if !opts.SkipInit {
		script, err := migrations.InitScript()
		if err != nil {
			return nil, fmt.Errorf("load init script: %w", err)
		}
		initSQL = script
	}

	db, err := snapshot.Open(ctx, kvStore, snapshot.Options{
		Key:          opts.Key,
		InitSQL:      initSQL,
		ResetCorrupt: opts.ResetCorrupt,
		Logger:       opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// New wraps an open snapshot database. The caller keeps ownership of db.
func New(db *snapshot.DB) *Store {
	return &Store{Queries: sqlite.New(db.SQL()), db: db}
}

// DB returns the underlying snapshot database.
func (s *Store) DB() *snapshot.DB {
	return s.db
}

// State reports how the snapshot was loaded.
func (s *Store) State() snapshot.State {
	return s.db.State()
}

// PutPost inserts p and commits the snapshot.
func (s *Store) PutPost(ctx context.Context, p post.Post) error {
	if err := s.Queries.PutPost(ctx, p); err != nil {
		return err
	}
	return s.commit(ctx)
}

// PutComment inserts c and commits the snapshot.
func (s *Store) PutComment(ctx context.Context, c post.Comment) error {
	if err := s.Queries.PutComment(ctx, c); err != nil {
		return err
	}
	return s.commit(ctx)
}

// Close closes the snapshot database without committing.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) commit(ctx context.Context) error {
	if err := s.db.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
