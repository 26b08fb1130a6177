package post

import (
	"errors"
	"testing"
	"time"
)

func TestCreatePostNormalizesInput(t *testing.T) {
	fixedTime := time.Date(2026, 10, 19, 10, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	created, err := CreatePost(CreatePostInput{
		Title:   "  Hello  ",
		Content: "\nFirst post\n",
	}, func() time.Time { return fixedTime }, func() (string, error) {
		return "post123", nil
	})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}

	if created.ID != "post123" {
		t.Fatalf("expected id post123, got %q", created.ID)
	}
	if created.Title != "Hello" {
		t.Fatalf("expected trimmed title, got %q", created.Title)
	}
	if created.Content != "First post" {
		t.Fatalf("expected trimmed content, got %q", created.Content)
	}
	if !created.CreatedAt.Equal(fixedTime) || created.CreatedAt.Location() != time.UTC {
		t.Fatalf("expected UTC created_at equal to fixed time, got %v", created.CreatedAt)
	}
}

func TestNormalizeCreatePostInputValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreatePostInput
		err   error
	}{
		{
			name:  "empty title",
			input: CreatePostInput{Title: "   ", Content: "body"},
			err:   ErrTitleRequired,
		},
		{
			name:  "empty content",
			input: CreatePostInput{Title: "Title", Content: "\t"},
			err:   ErrContentRequired,
		},
		{
			name:  "both empty reports title first",
			input: CreatePostInput{},
			err:   ErrTitleRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeCreatePostInput(tt.input)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected error %v, got %v", tt.err, err)
			}
			if !IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreatePostIDGeneratorError(t *testing.T) {
	boom := errors.New("no entropy")
	_, err := CreatePost(CreatePostInput{Title: "T", Content: "C"}, nil, func() (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
	if IsValidationError(err) {
		t.Fatal("generator failure should not be a validation error")
	}
}

func TestCreatePostDefaultsGenerateID(t *testing.T) {
	created, err := CreatePost(CreatePostInput{Title: "T", Content: "C"}, nil, nil)
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if len(created.ID) != 26 {
		t.Fatalf("expected 26-character id, got %q", created.ID)
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}
}

func TestCreateComment(t *testing.T) {
	fixedTime := time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC)
	comment, err := CreateComment(CreateCommentInput{PostID: " post123 ", Content: " nice "},
		func() time.Time { return fixedTime },
		func() (string, error) { return "comment1", nil },
	)
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if comment.ID != "comment1" || comment.PostID != "post123" || comment.Content != "nice" {
		t.Fatalf("unexpected comment %+v", comment)
	}
	if !comment.CreatedAt.Equal(fixedTime) {
		t.Fatalf("expected created_at %v, got %v", fixedTime, comment.CreatedAt)
	}
}

func TestCreateCommentValidation(t *testing.T) {
	if _, err := CreateComment(CreateCommentInput{Content: "x"}, nil, nil); !errors.Is(err, ErrPostIDRequired) {
		t.Fatalf("expected post id error, got %v", err)
	}
	if _, err := CreateComment(CreateCommentInput{PostID: "p", Content: "  "}, nil, nil); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("expected content error, got %v", err)
	}
}

func TestThreadSummary(t *testing.T) {
	thread := Thread{
		Post:     Post{ID: "p"},
		Comments: []Comment{{ID: "a"}, {ID: "b"}},
	}
	summary := thread.Summary()
	if summary.ID != "p" || summary.CommentCount != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
