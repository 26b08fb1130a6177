// Package sqlite implements blog storage over SQLite.
//
// Queries runs against any *sql.DB holding the blog schema, including the
// in-memory databases managed by the snapshot package. Store is the
// file-backed variant used by server mode: it opens the database in WAL mode
// and applies the embedded migrations on open.
package sqlite
