// Package timeouts defines shared timeout constants used across Postbook
// processes so the HTTP server, CLI, and storage backends agree on limits.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// FileLock caps the wait for the bbolt file lock when another process holds it.
const FileLock = time.Second

// PostgresConnect caps the initial pool connection check against Postgres.
const PostgresConnect = 5 * time.Second
