// Package bbolt provides a BoltDB-backed kv.Store.
package bbolt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/louisbranch/postbook/internal/platform/kv"
	"github.com/louisbranch/postbook/internal/platform/timeouts"
	"go.etcd.io/bbolt"
)

// DefaultBucket is the bucket snapshots live in unless another is configured.
const DefaultBucket = "sqlite-store"

// Store provides a BoltDB-backed byte store.
type Store struct {
	db     *bbolt.DB
	bucket []byte
}

// Open opens a BoltDB-backed store at the provided path using DefaultBucket.
func Open(path string) (*Store, error) {
	return OpenBucket(path, DefaultBucket)
}

// OpenBucket opens a BoltDB-backed store at path keeping values in bucket.
func OpenBucket(path string, bucket string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: timeouts.FileLock})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	store := &Store{db: db, bucket: []byte(bucket)}
	if err := store.ensureBucket(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put persists value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("bucket %q is missing", s.bucket)
		}
		return bucket.Put([]byte(key), value)
	})
}

// Get fetches the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("key is required")
	}

	var value []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		if bucket == nil {
			return fmt.Errorf("bucket %q is missing", s.bucket)
		}
		payload := bucket.Get([]byte(key))
		if payload == nil {
			return kv.ErrNotFound
		}
		// Bolt memory is only valid for the life of the transaction.
		value = bytes.Clone(payload)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) ensureBucket() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(s.bucket); err != nil {
			return fmt.Errorf("create %s bucket: %w", s.bucket, err)
		}
		return nil
	})
}
