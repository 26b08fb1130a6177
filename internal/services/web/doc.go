// Package web serves the blog in three modes.
//
// Server mode reads and writes a file-backed SQLite database. Local mode uses
// the in-memory snapshot database, committed to the key-value store after
// every write. Client mode exposes the same snapshot database as a JSON API
// and falls back to HTML for browsers.
package web
