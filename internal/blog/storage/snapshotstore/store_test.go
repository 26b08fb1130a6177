package snapshotstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/postbook/internal/blog/post"
	"github.com/louisbranch/postbook/internal/blog/storage"
	"github.com/louisbranch/postbook/internal/platform/kv"
	platformlog "github.com/louisbranch/postbook/internal/platform/log"
	"github.com/louisbranch/postbook/internal/platform/storage/snapshot"
)

type failingPutStore struct {
	mu     sync.Mutex
	inner  *kv.Memory
	putErr error
}

func (s *failingPutStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Get(ctx, key)
}

func (s *failingPutStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	err := s.putErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.inner.Put(ctx, key, value)
}

func (s *failingPutStore) failPuts(err error) {
	s.mu.Lock()
	s.putErr = err
	s.mu.Unlock()
}

func openTestStore(t *testing.T, kvStore kv.Store) *Store {
	t.Helper()
	store, err := Open(context.Background(), kvStore, Options{Logger: platformlog.Discard()})
	if err != nil {
		t.Fatalf("open snapshot store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenCreatesSchemaOnEmptyStore(t *testing.T) {
	kvStore := kv.NewMemory()
	store := openTestStore(t, kvStore)

	if store.State() != snapshot.StateFresh {
		t.Fatalf("State() = %v, want %v", store.State(), snapshot.StateFresh)
	}
	if err := store.DB().InitErr(); err != nil {
		t.Fatalf("InitErr() = %v, want nil", err)
	}
	if _, err := kvStore.Get(context.Background(), snapshot.DefaultKey); err != nil {
		t.Fatalf("expected committed snapshot after init: %v", err)
	}
	summaries, err := store.ListPostSummaries(context.Background())
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("len(summaries) = %d, want 0", len(summaries))
	}
}

func TestWritesSurviveReopen(t *testing.T) {
	ctx := context.Background()
	kvStore := kv.NewMemory()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first, err := Open(ctx, kvStore, Options{Logger: platformlog.Discard()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.PutPost(ctx, post.Post{ID: "p1", Title: "Hello", Content: "World", CreatedAt: now}); err != nil {
		t.Fatalf("put post: %v", err)
	}
	if err := first.PutComment(ctx, post.Comment{ID: "c1", PostID: "p1", Content: "Hi", CreatedAt: now}); err != nil {
		t.Fatalf("put comment: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := openTestStore(t, kvStore)
	if second.State() != snapshot.StateRestored {
		t.Fatalf("State() = %v, want %v", second.State(), snapshot.StateRestored)
	}
	thread, err := second.GetThread(ctx, "p1")
	if err != nil {
		t.Fatalf("get thread: %v", err)
	}
	if thread.Title != "Hello" || len(thread.Comments) != 1 {
		t.Fatalf("thread = %+v, want post Hello with one comment", thread)
	}
}

func TestPutCommentUnknownPostDoesNotCommit(t *testing.T) {
	ctx := context.Background()
	kvStore := &failingPutStore{inner: kv.NewMemory()}
	store := openTestStore(t, kvStore)

	kvStore.failPuts(errors.New("should not be called"))
	err := store.PutComment(ctx, post.Comment{ID: "c1", PostID: "missing", Content: "x", CreatedAt: time.Now()})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("PutComment() error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestCommitFailureIsReturnedAndKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	kvStore := &failingPutStore{inner: kv.NewMemory()}
	store := openTestStore(t, kvStore)

	putErr := errors.New("disk full")
	kvStore.failPuts(putErr)
	err := store.PutPost(ctx, post.Post{ID: "p1", Title: "t", Content: "c", CreatedAt: time.Now()})
	if !errors.Is(err, putErr) || !errors.Is(err, ErrPersist) {
		t.Fatalf("PutPost() error = %v, want %v wrapped in %v", err, putErr, ErrPersist)
	}

	if _, err := store.GetThread(ctx, "p1"); err != nil {
		t.Fatalf("expected post in memory after failed commit: %v", err)
	}

	reopened, err := Open(ctx, kvStore, Options{Logger: platformlog.Discard()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetThread(ctx, "p1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetThread() after reopen error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestOpenSkipInitLeavesEmptyDatabase(t *testing.T) {
	kvStore := kv.NewMemory()
	store, err := Open(context.Background(), kvStore, Options{SkipInit: true, Logger: platformlog.Discard()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if _, err := kvStore.Get(context.Background(), snapshot.DefaultKey); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get() error = %v, want %v", err, kv.ErrNotFound)
	}
	if _, err := store.Statistics(context.Background()); err == nil {
		t.Fatal("expected statistics to fail without schema")
	}
}

func TestOpenCustomKey(t *testing.T) {
	ctx := context.Background()
	kvStore := kv.NewMemory()
	store, err := Open(ctx, kvStore, Options{Key: "blog", Logger: platformlog.Discard()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if _, err := kvStore.Get(ctx, "blog"); err != nil {
		t.Fatalf("expected snapshot under custom key: %v", err)
	}
	if _, err := kvStore.Get(ctx, snapshot.DefaultKey); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get(default) error = %v, want %v", err, kv.ErrNotFound)
	}
}
