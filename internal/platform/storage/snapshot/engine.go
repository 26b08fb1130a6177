package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"modernc.org/sqlite"
)

// memoryDSN opens a private in-memory database with foreign keys enforced.
const memoryDSN = ":memory:?_pragma=foreign_keys(1)"

// serializer is implemented by modernc.org/sqlite driver connections.
type serializer interface {
	Serialize() ([]byte, error)
}

// restorer copies a database file into the connection's main schema
// through the SQLite online backup API.
type restorer interface {
	NewRestore(srcURI string) (*sqlite.Backup, error)
}

// openEngine opens an empty in-memory database pinned to one connection.
// An in-memory database lives and dies with its connection, so the pool must
// never open a second one or recycle the first.
func openEngine(ctx context.Context) (*sql.DB, error) {
	sqlDB, err := sql.Open("sqlite", memoryDSN)
	if err != nil {
		return nil, fmt.Errorf("open sqlite engine: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite engine: %w", err)
	}
	return sqlDB, nil
}

// restoreEngine opens an engine holding buf and verifies it is readable.
func restoreEngine(ctx context.Context, buf []byte) (*sql.DB, error) {
	if len(buf) == 0 {
		return nil, errors.New("stored image is empty")
	}
	path, err := writeImage(buf)
	if err != nil {
		return nil, err
	}
	defer removeImage(path)

	sqlDB, err := openEngine(ctx)
	if err != nil {
		return nil, err
	}
	err = withDriverConn(ctx, sqlDB, func(driverConn any) error {
		r, ok := driverConn.(restorer)
		if !ok {
			return fmt.Errorf("sqlite driver %T cannot restore", driverConn)
		}
		return copyImage(r, path)
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("restore image: %w", err)
	}
	if err := quickCheck(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// copyImage runs a full restore from path. The source connection is closed
// by Finish on every path.
func copyImage(r restorer, path string) error {
	backup, err := r.NewRestore(path)
	if err != nil {
		return err
	}
	for {
		more, stepErr := backup.Step(-1)
		if stepErr != nil {
			_ = backup.Finish()
			return stepErr
		}
		if !more {
			break
		}
	}
	return backup.Finish()
}

// writeImage stages buf in a temporary file for the restore source.
func writeImage(buf []byte) (string, error) {
	f, err := os.CreateTemp("", "postbook-snapshot-*.sqlite")
	if err != nil {
		return "", fmt.Errorf("stage image: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(buf); err != nil {
		_ = f.Close()
		removeImage(path)
		return "", fmt.Errorf("stage image: %w", err)
	}
	if err := f.Close(); err != nil {
		removeImage(path)
		return "", fmt.Errorf("stage image: %w", err)
	}
	return path, nil
}

// removeImage deletes a staged image along with any journal files SQLite
// left beside it.
func removeImage(path string) {
	for _, name := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		_ = os.Remove(name)
	}
}

// serializeEngine returns the full database image.
func serializeEngine(ctx context.Context, sqlDB *sql.DB) ([]byte, error) {
	var buf []byte
	err := withDriverConn(ctx, sqlDB, func(driverConn any) error {
		s, ok := driverConn.(serializer)
		if !ok {
			return fmt.Errorf("sqlite driver %T cannot serialize", driverConn)
		}
		var err error
		buf, err = s.Serialize()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, errors.New("sqlite returned an empty image")
	}
	return buf, nil
}

// Verify reports whether buf is a loadable SQLite image.
func Verify(ctx context.Context, buf []byte) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sqlDB, err := restoreEngine(ctx, buf)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	return sqlDB.Close()
}

func withDriverConn(ctx context.Context, sqlDB *sql.DB, fn func(driverConn any) error) error {
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire sqlite connection: %w", err)
	}
	defer conn.Close()
	return conn.Raw(fn)
}

func quickCheck(ctx context.Context, sqlDB *sql.DB) error {
	rows, err := sqlDB.QueryContext(ctx, "PRAGMA quick_check")
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return fmt.Errorf("integrity check: %w", err)
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("integrity check: %v", problems)
	}
	return nil
}
