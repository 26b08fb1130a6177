package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/postbook/internal/blog/post"
	"github.com/louisbranch/postbook/internal/blog/storage"
)

const listPostSummariesQuery = `
SELECT p.post_id, p.title, p.content, p.created_at, COUNT(c.comment_id)
FROM post p
LEFT JOIN comment c ON c.post_id = p.post_id
GROUP BY p.post_id
ORDER BY p.created_at, p.post_id;
`

const listPostsQuery = `
SELECT post_id, title, content, created_at
FROM post
ORDER BY created_at, post_id;
`

const listCommentsQuery = `
SELECT comment_id, post_id, content, created_at
FROM comment
ORDER BY created_at, comment_id;
`

const getPostQuery = `
SELECT post_id, title, content, created_at
FROM post
WHERE post_id = ?;
`

const listPostCommentsQuery = `
SELECT comment_id, post_id, content, created_at
FROM comment
WHERE post_id = ?
ORDER BY created_at, comment_id;
`

const insertPostQuery = `
INSERT INTO post (post_id, title, content, created_at)
VALUES (?, ?, ?, ?);
`

const insertCommentQuery = `
INSERT INTO comment (comment_id, post_id, content, created_at)
VALUES (?, ?, ?, ?);
`

const statisticsQuery = `
SELECT (SELECT COUNT(*) FROM post), (SELECT COUNT(*) FROM comment);
`

// Queries implements storage.Store over a database holding the blog schema.
type Queries struct {
	db *sql.DB
}

var _ storage.Store = (*Queries)(nil)

// New wraps db. The schema must already exist.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// ListPostSummaries returns every post with its comment count.
func (q *Queries) ListPostSummaries(ctx context.Context) ([]post.Summary, error) {
	if err := q.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, listPostSummariesQuery)
	if err != nil {
		return nil, fmt.Errorf("list post summaries: %w", err)
	}
	defer rows.Close()

	summaries := []post.Summary{}
	for rows.Next() {
		var summary post.Summary
		var createdAt string
		if err := rows.Scan(&summary.ID, &summary.Title, &summary.Content, &createdAt, &summary.CommentCount); err != nil {
			return nil, fmt.Errorf("scan post summary: %w", err)
		}
		if summary.CreatedAt, err = fromTimestamp(createdAt); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list post summaries: %w", err)
	}
	return summaries, nil
}

// ListThreads returns every post with its comments loaded.
func (q *Queries) ListThreads(ctx context.Context) ([]post.Thread, error) {
	if err := q.ready(ctx); err != nil {
		return nil, err
	}
	posts, err := q.queryPosts(ctx, listPostsQuery)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	comments, err := q.queryComments(ctx, listCommentsQuery)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	byPost := make(map[string][]post.Comment, len(posts))
	for _, comment := range comments {
		byPost[comment.PostID] = append(byPost[comment.PostID], comment)
	}
	threads := make([]post.Thread, 0, len(posts))
	for _, p := range posts {
		thread := post.Thread{Post: p, Comments: byPost[p.ID]}
		if thread.Comments == nil {
			thread.Comments = []post.Comment{}
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

// GetThread returns one post with its comments.
func (q *Queries) GetThread(ctx context.Context, postID string) (post.Thread, error) {
	if err := q.ready(ctx); err != nil {
		return post.Thread{}, err
	}
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return post.Thread{}, fmt.Errorf("post id is required")
	}

	p, err := scanPost(q.db.QueryRowContext(ctx, getPostQuery, postID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return post.Thread{}, storage.ErrNotFound
		}
		return post.Thread{}, fmt.Errorf("get post: %w", err)
	}
	comments, err := q.queryComments(ctx, listPostCommentsQuery, postID)
	if err != nil {
		return post.Thread{}, fmt.Errorf("list post comments: %w", err)
	}
	return post.Thread{Post: p, Comments: comments}, nil
}

// PutPost inserts a new post.
func (q *Queries) PutPost(ctx context.Context, p post.Post) error {
	if err := q.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("post id is required")
	}
	if _, err := q.db.ExecContext(ctx, insertPostQuery, p.ID, p.Title, p.Content, toTimestamp(p.CreatedAt)); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// PutComment inserts a comment after checking the post exists.
func (q *Queries) PutComment(ctx context.Context, c post.Comment) error {
	if err := q.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("comment id is required")
	}
	if strings.TrimSpace(c.PostID) == "" {
		return fmt.Errorf("post id is required")
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin comment transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT 1 FROM post WHERE post_id = ?", c.PostID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("check post: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insertCommentQuery, c.ID, c.PostID, c.Content, toTimestamp(c.CreatedAt)); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit comment: %w", err)
	}
	return nil
}

// Statistics counts posts and comments.
func (q *Queries) Statistics(ctx context.Context) (storage.Statistics, error) {
	if err := q.ready(ctx); err != nil {
		return storage.Statistics{}, err
	}
	var stats storage.Statistics
	if err := q.db.QueryRowContext(ctx, statisticsQuery).Scan(&stats.Posts, &stats.Comments); err != nil {
		return storage.Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	return stats, nil
}

func (q *Queries) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if q == nil || q.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func (q *Queries) queryPosts(ctx context.Context, query string, args ...any) ([]post.Post, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (q *Queries) queryComments(ctx context.Context, query string, args ...any) ([]post.Comment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []post.Comment{}
	for rows.Next() {
		var comment post.Comment
		var createdAt string
		if err := rows.Scan(&comment.ID, &comment.PostID, &comment.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if comment.CreatedAt, err = fromTimestamp(createdAt); err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func scanPost(scan rowScanner) (post.Post, error) {
	var p post.Post
	var createdAt string
	if err := scan.Scan(&p.ID, &p.Title, &p.Content, &createdAt); err != nil {
		return post.Post{}, err
	}
	parsed, err := fromTimestamp(createdAt)
	if err != nil {
		return post.Post{}, err
	}
	p.CreatedAt = parsed
	return p, nil
}
