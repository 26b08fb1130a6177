// Package storage defines the persistence contract for blog posts and
// comments.
//
// Two implementations exist: sqlite, a file-backed SQLite database where
// every statement is durable, and snapshotstore, an in-memory SQLite database
// committed to a key-value store after each write.
//
// # Error Types
//
//   - ErrNotFound: the requested post does not exist.
package storage

import (
	"context"
	"errors"

	"github.com/louisbranch/postbook/internal/blog/post"
)

// ErrNotFound indicates a requested post is missing.
var ErrNotFound = errors.New("record not found")

// Statistics counts stored entities.
type Statistics struct {
	Posts    int
	Comments int
}

// PostReader lists and loads posts.
type PostReader interface {
	// ListPostSummaries returns every post with its comment count, oldest first.
	ListPostSummaries(ctx context.Context) ([]post.Summary, error)
	// ListThreads returns every post with its comments loaded, oldest first.
	ListThreads(ctx context.Context) ([]post.Thread, error)
	// GetThread returns one post with its comments, or ErrNotFound.
	GetThread(ctx context.Context, postID string) (post.Thread, error)
	// Statistics counts posts and comments.
	Statistics(ctx context.Context) (Statistics, error)
}

// PostWriter creates posts and comments.
type PostWriter interface {
	// PutPost inserts a new post.
	PutPost(ctx context.Context, p post.Post) error
	// PutComment inserts a comment. It returns ErrNotFound when the
	// referenced post does not exist.
	PutComment(ctx context.Context, c post.Comment) error
}

// Store combines post reads and writes.
type Store interface {
	PostReader
	PostWriter
}
