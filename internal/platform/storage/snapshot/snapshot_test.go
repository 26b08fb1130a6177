package snapshot

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/louisbranch/postbook/internal/platform/kv"
	platformlog "github.com/louisbranch/postbook/internal/platform/log"
)

const initScript = `
CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
INSERT INTO t (id, name) VALUES (1, 'first');
`

// flakyStore wraps a kv.Memory and fails reads or writes on demand.
type flakyStore struct {
	mu       sync.Mutex
	inner    *kv.Memory
	getErr   error
	putErr   error
	putCalls int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{inner: kv.NewMemory()}
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.inner.Get(ctx, key)
}

func (s *flakyStore) Put(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.putCalls++
	err := s.putErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.inner.Put(ctx, key, value)
}

func openTestDB(t *testing.T, store kv.Store, opts Options) *DB {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = platformlog.Discard()
	}
	db, err := Open(context.Background(), store, opts)
	if err != nil {
		t.Fatalf("open snapshot db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countRows(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	if err := db.SQL().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func tableExists(t *testing.T, db *DB, table string) bool {
	t.Helper()
	var n int
	err := db.SQL().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		t.Fatalf("check table %s: %v", table, err)
	}
	return n == 1
}

func TestOpenWithoutSnapshotOrScriptIsEmptyAndQueryable(t *testing.T) {
	store := kv.NewMemory()
	db := openTestDB(t, store, Options{})

	if db.State() != StateFresh {
		t.Fatalf("State() = %v, want %v", db.State(), StateFresh)
	}
	if db.Key() != DefaultKey {
		t.Fatalf("Key() = %q, want %q", db.Key(), DefaultKey)
	}
	if countRows(t, db, "sqlite_master") != 0 {
		t.Fatal("expected empty schema")
	}
	if _, err := store.Get(context.Background(), DefaultKey); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected nothing stored without init script, got %v", err)
	}
}

func TestOpenRunsInitScriptAndCommits(t *testing.T) {
	store := kv.NewMemory()
	db := openTestDB(t, store, Options{InitSQL: initScript})

	if err := db.InitErr(); err != nil {
		t.Fatalf("InitErr() = %v", err)
	}
	if got := countRows(t, db, "t"); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}
	if _, err := store.Get(context.Background(), DefaultKey); err != nil {
		t.Fatalf("expected committed snapshot, got %v", err)
	}

	reopened := openTestDB(t, store, Options{})
	if reopened.State() != StateRestored {
		t.Fatalf("State() = %v, want %v", reopened.State(), StateRestored)
	}
	var name string
	if err := reopened.SQL().QueryRow("SELECT name FROM t WHERE id = 1").Scan(&name); err != nil {
		t.Fatalf("query restored row: %v", err)
	}
	if name != "first" {
		t.Fatalf("name = %q, want %q", name, "first")
	}
	if got := countRows(t, reopened, "t"); got != 1 {
		t.Fatalf("restored rows = %d, want 1", got)
	}
}

func TestOpenDoesNotRerunInitScriptOnRestore(t *testing.T) {
	store := kv.NewMemory()
	first := openTestDB(t, store, Options{InitSQL: initScript})
	if _, err := first.SQL().Exec("INSERT INTO t (id, name) VALUES (2, 'second')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := first.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	second := openTestDB(t, store, Options{InitSQL: initScript})
	if err := second.InitErr(); err != nil {
		t.Fatalf("InitErr() = %v", err)
	}
	if got := countRows(t, second, "t"); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}
}

func TestRestoredSnapshotRoundTripsBytes(t *testing.T) {
	store := kv.NewMemory()
	openTestDB(t, store, Options{InitSQL: initScript})

	stored, err := store.Get(context.Background(), DefaultKey)
	if err != nil {
		t.Fatalf("get stored snapshot: %v", err)
	}

	db := openTestDB(t, store, Options{})
	exported, err := db.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !bytes.Equal(exported, stored) {
		t.Fatalf("exported %d bytes differ from stored %d bytes", len(exported), len(stored))
	}
}

func TestCommitIsDurable(t *testing.T) {
	store := kv.NewMemory()
	db := openTestDB(t, store, Options{InitSQL: initScript})

	if _, err := db.SQL().Exec("INSERT INTO t (id, name) VALUES (2, 'kept')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	reopened := openTestDB(t, store, Options{})
	var name string
	if err := reopened.SQL().QueryRow("SELECT name FROM t WHERE id = 2").Scan(&name); err != nil {
		t.Fatalf("query committed row: %v", err)
	}
	if name != "kept" {
		t.Fatalf("name = %q, want %q", name, "kept")
	}
}

func TestUncommittedChangesAreNotPersisted(t *testing.T) {
	store := kv.NewMemory()
	db := openTestDB(t, store, Options{InitSQL: initScript})

	if _, err := db.SQL().Exec("INSERT INTO t (id, name) VALUES (2, 'lost')"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	reopened := openTestDB(t, store, Options{})
	if got := countRows(t, reopened, "t"); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}
}

func TestReadFailureIsTreatedAsAbsent(t *testing.T) {
	store := newFlakyStore()
	store.getErr = errors.New("disk unplugged")

	db := openTestDB(t, store, Options{InitSQL: initScript})
	if db.State() != StateUnavailable {
		t.Fatalf("State() = %v, want %v", db.State(), StateUnavailable)
	}
	if err := db.LoadErr(); err == nil || !strings.Contains(err.Error(), "disk unplugged") {
		t.Fatalf("LoadErr() = %v, want read failure", err)
	}
	if err := db.InitErr(); err != nil {
		t.Fatalf("InitErr() = %v", err)
	}

	store.mu.Lock()
	store.getErr = nil
	store.mu.Unlock()

	if _, err := db.SQL().Exec("INSERT INTO t (id, name) VALUES (2, 'after')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Commit(context.Background()); err != nil {
		t.Fatalf("commit after read failure: %v", err)
	}

	reopened := openTestDB(t, store, Options{})
	if reopened.State() != StateRestored {
		t.Fatalf("State() = %v, want %v", reopened.State(), StateRestored)
	}
	if got := countRows(t, reopened, "t"); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}
}

func TestReadFailureWithoutScriptCommitsEmptyDatabase(t *testing.T) {
	store := newFlakyStore()
	store.getErr = errors.New("timeout")

	db := openTestDB(t, store, Options{})
	if db.State() != StateUnavailable {
		t.Fatalf("State() = %v, want %v", db.State(), StateUnavailable)
	}
	if err := db.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestCorruptSnapshotFailsByDefault(t *testing.T) {
	store := kv.NewMemory()
	if err := store.Put(context.Background(), DefaultKey, []byte("definitely not sqlite")); err != nil {
		t.Fatalf("seed corrupt snapshot: %v", err)
	}

	_, err := Open(context.Background(), store, Options{InitSQL: initScript, Logger: platformlog.Discard()})
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("Open() error = %v, want %v", err, ErrCorruptSnapshot)
	}

	stored, err := store.Get(context.Background(), DefaultKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(stored) != "definitely not sqlite" {
		t.Fatal("expected corrupt snapshot to be left untouched")
	}
}

func TestCorruptSnapshotResetStartsFresh(t *testing.T) {
	store := kv.NewMemory()
	if err := store.Put(context.Background(), DefaultKey, []byte("definitely not sqlite")); err != nil {
		t.Fatalf("seed corrupt snapshot: %v", err)
	}

	db := openTestDB(t, store, Options{InitSQL: initScript, ResetCorrupt: true})
	if db.State() != StateCorrupt {
		t.Fatalf("State() = %v, want %v", db.State(), StateCorrupt)
	}
	if !errors.Is(db.LoadErr(), ErrCorruptSnapshot) {
		t.Fatalf("LoadErr() = %v, want %v", db.LoadErr(), ErrCorruptSnapshot)
	}
	if got := countRows(t, db, "t"); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}

	reopened := openTestDB(t, store, Options{})
	if reopened.State() != StateRestored {
		t.Fatalf("State() = %v, want %v", reopened.State(), StateRestored)
	}
}

func TestEmptyStoredValueIsCorrupt(t *testing.T) {
	store := kv.NewMemory()
	if err := store.Put(context.Background(), DefaultKey, []byte{}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := Open(context.Background(), store, Options{Logger: platformlog.Discard()}); !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("Open() error = %v, want %v", err, ErrCorruptSnapshot)
	}
}

func TestInitScriptFailureIsKeptNotReturned(t *testing.T) {
	store := kv.NewMemory()
	script := "CREATE TABLE t (id INTEGER PRIMARY KEY);\nCREAT TABLE broken (id INTEGER);"

	db := openTestDB(t, store, Options{InitSQL: script})
	if db.InitErr() == nil {
		t.Fatal("expected init error")
	}
	if !tableExists(t, db, "t") {
		t.Fatal("expected statements before the failure to remain applied")
	}
	if _, err := store.Get(context.Background(), DefaultKey); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected failed init not to be committed, got %v", err)
	}
}

func TestInitCommitFailureIsKeptNotReturned(t *testing.T) {
	store := newFlakyStore()
	store.putErr = errors.New("read-only store")

	db := openTestDB(t, store, Options{InitSQL: initScript})
	if db.InitErr() == nil || !strings.Contains(db.InitErr().Error(), "read-only store") {
		t.Fatalf("InitErr() = %v, want commit failure", db.InitErr())
	}
	if got := countRows(t, db, "t"); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}
}

func TestCommitFailureIsReturned(t *testing.T) {
	store := newFlakyStore()
	db := openTestDB(t, store, Options{InitSQL: initScript})

	store.mu.Lock()
	store.putErr = errors.New("quota exceeded")
	store.mu.Unlock()

	err := db.Commit(context.Background())
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("Commit() error = %v, want quota failure", err)
	}
}

func TestCustomKeyIsolatesSnapshots(t *testing.T) {
	store := kv.NewMemory()
	openTestDB(t, store, Options{Key: "blog-a", InitSQL: initScript})

	other := openTestDB(t, store, Options{Key: "blog-b"})
	if other.State() != StateFresh {
		t.Fatalf("State() = %v, want %v", other.State(), StateFresh)
	}
	if _, err := store.Get(context.Background(), "blog-a"); err != nil {
		t.Fatalf("expected blog-a snapshot: %v", err)
	}
}

func TestForeignKeysAreEnforced(t *testing.T) {
	script := `
CREATE TABLE parent (id TEXT PRIMARY KEY);
CREATE TABLE child (id TEXT PRIMARY KEY, parent_id TEXT NOT NULL REFERENCES parent(id));
`
	db := openTestDB(t, kv.NewMemory(), Options{InitSQL: script})
	if _, err := db.SQL().Exec("INSERT INTO child (id, parent_id) VALUES ('c', 'missing')"); err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestClosedDBRejectsCommit(t *testing.T) {
	db, err := Open(context.Background(), kv.NewMemory(), Options{Logger: platformlog.Discard()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := db.Commit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Commit() error = %v, want %v", err, ErrClosed)
	}
	if _, err := db.Snapshot(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Snapshot() error = %v, want %v", err, ErrClosed)
	}
}

func TestOpenRequiresStore(t *testing.T) {
	if _, err := Open(context.Background(), nil, Options{}); err == nil {
		t.Fatal("expected missing store error")
	}
}

func TestOpenReturnsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Open(ctx, kv.NewMemory(), Options{Logger: platformlog.Discard()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Open() error = %v, want %v", err, context.Canceled)
	}
}

func TestVerify(t *testing.T) {
	store := kv.NewMemory()
	db := openTestDB(t, store, Options{InitSQL: initScript})
	image, err := db.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := Verify(context.Background(), image); err != nil {
		t.Fatalf("Verify(valid) = %v", err)
	}
	if err := Verify(context.Background(), []byte("garbage")); !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("Verify(garbage) = %v, want %v", err, ErrCorruptSnapshot)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateUnspecified: "unspecified",
		StateFresh:       "fresh",
		StateRestored:    "restored",
		StateUnavailable: "unavailable",
		StateCorrupt:     "corrupt",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestRestoredHandleClosesCleanly(t *testing.T) {
	store := kv.NewMemory()
	ctx := context.Background()

	first, err := Open(ctx, store, Options{InitSQL: initScript, Logger: platformlog.Discard()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close fresh handle: %v", err)
	}

	for i := 0; i < 3; i++ {
		restored, err := Open(ctx, store, Options{InitSQL: initScript, Logger: platformlog.Discard()})
		if err != nil {
			t.Fatalf("reopen %d: %v", i, err)
		}
		if restored.State() != StateRestored {
			t.Fatalf("reopen %d: State() = %v, want %v", i, restored.State(), StateRestored)
		}
		if _, err := restored.SQL().Exec("INSERT INTO t (name) VALUES ('again')"); err != nil {
			t.Fatalf("reopen %d: insert: %v", i, err)
		}
		if err := restored.Commit(ctx); err != nil {
			t.Fatalf("reopen %d: commit: %v", i, err)
		}
		if err := restored.Close(); err != nil {
			t.Fatalf("reopen %d: close restored handle: %v", i, err)
		}
	}

	last := openTestDB(t, store, Options{})
	if got := countRows(t, last, "t"); got != 4 {
		t.Fatalf("rows = %d, want 4", got)
	}
}

func TestVerifyThenResetCorruptGarbage(t *testing.T) {
	ctx := context.Background()
	source := openTestDB(t, kv.NewMemory(), Options{InitSQL: initScript})
	image, err := source.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := Verify(ctx, image); err != nil {
			t.Fatalf("Verify(valid) #%d = %v", i, err)
		}
	}

	store := kv.NewMemory()
	if err := store.Put(ctx, DefaultKey, []byte("garbage bytes, not a database")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	db, err := Open(ctx, store, Options{InitSQL: initScript, ResetCorrupt: true, Logger: platformlog.Discard()})
	if err != nil {
		t.Fatalf("open with reset: %v", err)
	}
	if db.State() != StateCorrupt {
		t.Fatalf("State() = %v, want %v", db.State(), StateCorrupt)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRestoreRemovesStagedImage(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)

	ctx := context.Background()
	store := kv.NewMemory()
	seed := openTestDB(t, store, Options{InitSQL: initScript})
	image, err := seed.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	restored, err := Open(ctx, store, Options{Logger: platformlog.Discard()})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := restored.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := Verify(ctx, image); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := Verify(ctx, []byte("garbage")); !errors.Is(err, ErrCorruptSnapshot) {
		t.Fatalf("Verify(garbage) = %v, want %v", err, ErrCorruptSnapshot)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("temp dir holds %d entries after restore, want 0", len(entries))
	}
}
