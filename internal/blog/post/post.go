package post

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/postbook/internal/platform/id"
)

var (
	// ErrTitleRequired indicates a missing post title.
	ErrTitleRequired = errors.New("title is required")
	// ErrContentRequired indicates missing post or comment content.
	ErrContentRequired = errors.New("content is required")
	// ErrPostIDRequired indicates a comment without a post reference.
	ErrPostIDRequired = errors.New("post id is required")
)

// Post is a published blog entry.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comment is a reply attached to a Post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is a Post with the number of comments it has.
type Summary struct {
	Post
	CommentCount int `json:"commentCount"`
}

// Thread is a Post with all of its comments in creation order.
type Thread struct {
	Post
	Comments []Comment `json:"comments"`
}

// Summary reduces the thread to its comment count.
func (t Thread) Summary() Summary {
	return Summary{Post: t.Post, CommentCount: len(t.Comments)}
}

// CreatePostInput describes the fields needed to create a post.
type CreatePostInput struct {
	Title   string
	Content string
}

// CreateCommentInput describes the fields needed to comment on a post.
type CreateCommentInput struct {
	PostID  string
	Content string
}

// CreatePost creates a new post with a generated ID and timestamp.
func CreatePost(input CreatePostInput, now func() time.Time, idGenerator func() (string, error)) (Post, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreatePostInput(input)
	if err != nil {
		return Post{}, err
	}

	postID, err := idGenerator()
	if err != nil {
		return Post{}, fmt.Errorf("generate post id: %w", err)
	}

	return Post{
		ID:        postID,
		Title:     normalized.Title,
		Content:   normalized.Content,
		CreatedAt: now().UTC(),
	}, nil
}

// NormalizeCreatePostInput trims and validates post input.
func NormalizeCreatePostInput(input CreatePostInput) (CreatePostInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return CreatePostInput{}, ErrTitleRequired
	}
	input.Content = strings.TrimSpace(input.Content)
	if input.Content == "" {
		return CreatePostInput{}, ErrContentRequired
	}
	return input, nil
}

// CreateComment creates a new comment with a generated ID and timestamp.
func CreateComment(input CreateCommentInput, now func() time.Time, idGenerator func() (string, error)) (Comment, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.PostID = strings.TrimSpace(input.PostID)
	if input.PostID == "" {
		return Comment{}, ErrPostIDRequired
	}
	input.Content = strings.TrimSpace(input.Content)
	if input.Content == "" {
		return Comment{}, ErrContentRequired
	}

	commentID, err := idGenerator()
	if err != nil {
		return Comment{}, fmt.Errorf("generate comment id: %w", err)
	}

	return Comment{
		ID:        commentID,
		PostID:    input.PostID,
		Content:   input.Content,
		CreatedAt: now().UTC(),
	}, nil
}

// IsValidationError reports whether err is one of the input validation errors.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrContentRequired) ||
		errors.Is(err, ErrPostIDRequired)
}
