package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/louisbranch/postbook/internal/platform/kv"
	platformotel "github.com/louisbranch/postbook/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultKey is the store key used when Options.Key is empty.
const DefaultKey = "sqlite-buffer"

var (
	// ErrCorruptSnapshot indicates a stored image that SQLite cannot load.
	ErrCorruptSnapshot = errors.New("snapshot is corrupt")
	// ErrClosed indicates use of a DB after Close.
	ErrClosed = errors.New("snapshot database is closed")
)

var tracer = platformotel.Tracer("storage/snapshot")

// State describes how Open obtained the database contents.
type State int

const (
	// StateUnspecified is the zero value and never returned by Open.
	StateUnspecified State = iota
	// StateFresh means no image was stored under the key.
	StateFresh
	// StateRestored means the stored image was loaded.
	StateRestored
	// StateUnavailable means the store could not be read.
	StateUnavailable
	// StateCorrupt means the stored image could not be loaded.
	StateCorrupt
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateRestored:
		return "restored"
	case StateUnavailable:
		return "unavailable"
	case StateCorrupt:
		return "corrupt"
	default:
		return "unspecified"
	}
}

// Options configures Open.
type Options struct {
	// Key names the stored image. Defaults to DefaultKey.
	Key string
	// InitSQL runs once, and is committed, when no usable image was loaded.
	InitSQL string
	// ResetCorrupt starts an empty database instead of failing when the
	// stored image is corrupt. The corrupt image is overwritten by the next
	// Commit.
	ResetCorrupt bool
	// Logger receives load and initialization diagnostics.
	Logger *slog.Logger
}

// DB is a SQLite database held in memory and persisted by Commit.
type DB struct {
	sqlDB  *sql.DB
	store  kv.Store
	key    string
	logger *slog.Logger

	state   State
	loadErr error
	initErr error

	commitMu sync.Mutex
	closed   atomic.Bool
}

// Open loads the image stored under opts.Key into a new in-memory database.
//
// Store read failures and initialization failures are logged and reported
// through State, LoadErr, and InitErr rather than returned. Open only fails
// when the engine cannot start, when ctx is done, or when the stored image is
// corrupt and opts.ResetCorrupt is false.
func Open(ctx context.Context, store kv.Store, opts Options) (_ *DB, err error) {
	if store == nil {
		return nil, fmt.Errorf("kv store is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = DefaultKey
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("snapshot_key", key)

	ctx, span := tracer.Start(ctx, "snapshot.open", trace.WithAttributes(attribute.String("snapshot.key", key)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	d := &DB{
		store:  store,
		key:    key,
		logger: logger,
	}

	buf, readErr := store.Get(ctx, key)
	switch {
	case errors.Is(readErr, kv.ErrNotFound):
		d.state = StateFresh
	case readErr != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		d.state = StateUnavailable
		d.loadErr = fmt.Errorf("read snapshot %s: %w", key, readErr)
		logger.Error("failed to load snapshot, starting empty", "error", readErr)
	default:
		sqlDB, restoreErr := restoreEngine(ctx, buf)
		if restoreErr == nil {
			d.sqlDB = sqlDB
			d.state = StateRestored
			break
		}
		d.state = StateCorrupt
		d.loadErr = fmt.Errorf("%w: %w", ErrCorruptSnapshot, restoreErr)
		if !opts.ResetCorrupt {
			return nil, fmt.Errorf("load snapshot %s: %w", key, d.loadErr)
		}
		logger.Warn("discarding corrupt snapshot, starting empty", "bytes", len(buf), "error", restoreErr)
	}

	if d.sqlDB == nil {
		sqlDB, engineErr := openEngine(ctx)
		if engineErr != nil {
			return nil, engineErr
		}
		d.sqlDB = sqlDB
	}

	span.SetAttributes(
		attribute.String("snapshot.state", d.state.String()),
		attribute.Int("snapshot.bytes", len(buf)),
	)

	if d.state != StateRestored && strings.TrimSpace(opts.InitSQL) != "" {
		d.initialize(ctx, opts.InitSQL)
	}
	return d, nil
}

// initialize runs the init script and commits the result. Failures leave
// the database in whatever state the script reached.
func (d *DB) initialize(ctx context.Context, script string) {
	d.logger.Info("initializing database")
	d.logger.Debug("running init script", "sql", script)
	if _, err := d.sqlDB.ExecContext(ctx, script); err != nil {
		d.initErr = fmt.Errorf("run init script: %w", err)
		d.logger.Error("failed to initialize database", "error", err)
		return
	}
	if err := d.Commit(ctx); err != nil {
		d.initErr = fmt.Errorf("commit initialized database: %w", err)
		d.logger.Error("failed to initialize database", "error", err)
		return
	}
	d.logger.Info("database was initialized")
}

// SQL returns the handle for running statements. Changes made through it
// are persisted only by Commit.
func (d *DB) SQL() *sql.DB {
	if d == nil {
		return nil
	}
	return d.sqlDB
}

// Key returns the store key the image is committed under.
func (d *DB) Key() string {
	if d == nil {
		return ""
	}
	return d.key
}

// State reports how Open obtained the database contents.
func (d *DB) State() State {
	if d == nil {
		return StateUnspecified
	}
	return d.state
}

// LoadErr returns the read or restore failure behind StateUnavailable or
// StateCorrupt, and nil otherwise.
func (d *DB) LoadErr() error {
	if d == nil {
		return nil
	}
	return d.loadErr
}

// InitErr returns the initialization script or initial commit failure.
func (d *DB) InitErr() error {
	if d == nil {
		return nil
	}
	return d.initErr
}

// Commit serializes the whole database and overwrites the stored image.
func (d *DB) Commit(ctx context.Context) (err error) {
	if d == nil || d.sqlDB == nil || d.closed.Load() {
		return ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := tracer.Start(ctx, "snapshot.commit", trace.WithAttributes(attribute.String("snapshot.key", d.key)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	d.commitMu.Lock()
	defer d.commitMu.Unlock()

	buf, err := serializeEngine(ctx, d.sqlDB)
	if err != nil {
		return fmt.Errorf("serialize snapshot: %w", err)
	}
	if err := d.store.Put(ctx, d.key, buf); err != nil {
		return fmt.Errorf("write snapshot %s: %w", d.key, err)
	}
	span.SetAttributes(attribute.Int("snapshot.bytes", len(buf)))
	d.logger.Debug("snapshot committed", "bytes", len(buf))
	return nil
}

// Snapshot returns the current serialized image without storing it.
func (d *DB) Snapshot(ctx context.Context) ([]byte, error) {
	if d == nil || d.sqlDB == nil || d.closed.Load() {
		return nil, ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.commitMu.Lock()
	defer d.commitMu.Unlock()
	buf, err := serializeEngine(ctx, d.sqlDB)
	if err != nil {
		return nil, fmt.Errorf("serialize snapshot: %w", err)
	}
	return buf, nil
}

// Close releases the in-memory database. Uncommitted changes are lost.
func (d *DB) Close() error {
	if d == nil || d.sqlDB == nil {
		return nil
	}
	if d.closed.Swap(true) {
		return nil
	}
	return d.sqlDB.Close()
}
