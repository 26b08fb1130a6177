// Package snapshot makes an in-memory SQLite database durable by storing its
// complete serialized image in a kv.Store.
//
// Open restores the image saved under a key, or starts an empty database and
// runs an optional initialization script when nothing usable is stored.
// Nothing is persisted implicitly: callers call Commit after every change
// they want to keep, and each Commit overwrites the stored image with a full
// copy of the database.
//
// # Load states
//
// Open reports how the contents were obtained through DB.State:
//   - StateRestored: a stored image was loaded and passed an integrity check.
//   - StateFresh: nothing was stored under the key.
//   - StateUnavailable: the store read failed; the database started empty and
//     the cause is available from DB.LoadErr.
//   - StateCorrupt: an image was stored but could not be loaded. Open fails
//     with ErrCorruptSnapshot unless Options.ResetCorrupt is set.
//
// # Ownership
//
// A DB is an explicitly owned handle. It pins a single SQLite connection, so
// statements, Commit, and Snapshot run one at a time. Two handles over the
// same key do not coordinate; the last Commit wins.
package snapshot
