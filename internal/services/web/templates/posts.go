package templates

import (
	"context"
	"io"
	"time"

	"github.com/a-h/templ"
	"github.com/louisbranch/postbook/internal/blog/post"
)

// publishedLayout matches the browser's Date.toDateString output.
const publishedLayout = "Mon Jan 02 2006"

// PostForm carries the values and error of a post submission.
type PostForm struct {
	Title   string
	Content string
	Error   string
}

// PostListView describes a mode's post listing.
type PostListView struct {
	BasePath  string
	Summaries []post.Summary
	Form      PostForm
}

// CommentForm carries the values and error of a comment submission.
type CommentForm struct {
	Content string
	Error   string
}

// PostDetailView describes one post with its comments.
type PostDetailView struct {
	BasePath      string
	CommentAction string
	Thread        post.Thread
	Form          CommentForm
}

// PublishedOn formats a post date for display.
func PublishedOn(value time.Time) string {
	return value.Format(publishedLayout)
}

// PostListPage renders the listing with its create form.
func PostListPage(page PageContext, view PostListView) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h1>`)
		h.text(page.Title)
		h.raw(`</h1>`)

		if len(view.Summaries) == 0 {
			h.raw(`<p class="empty">`)
			h.text(T(page.Loc, "posts.empty"))
			h.raw(`</p>`)
		}
		for _, summary := range view.Summaries {
			h.raw(`<article class="post"><h2><a href="`, h.attr(view.BasePath+"/"+summary.ID), `">`)
			h.text(summary.Title)
			h.raw(`</a></h2><p class="meta">`)
			h.text(T(page.Loc, "posts.published_on", PublishedOn(summary.CreatedAt)))
			h.raw(` · `)
			h.text(T(page.Loc, "posts.comment_count", summary.CommentCount))
			h.raw(`</p><p>`)
			h.text(summary.Content)
			h.raw(`</p></article>`)
		}

		h.raw(`<section><h2>`)
		h.text(T(page.Loc, "posts.new"))
		h.raw(`</h2><form method="post" action="`, h.attr(view.BasePath), `">`)
		formError(h, view.Form.Error)
		h.raw(`<label>`)
		h.text(T(page.Loc, "posts.form.title"))
		h.raw(` <input type="text" name="title" value="`, h.attr(view.Form.Title), `"></label>`)
		h.raw(`<label>`)
		h.text(T(page.Loc, "posts.form.content"))
		h.raw(` <textarea name="content">`)
		h.text(view.Form.Content)
		h.raw(`</textarea></label><button type="submit">`)
		h.text(T(page.Loc, "posts.form.submit"))
		h.raw(`</button></form></section>`)
		return h.err
	})
	return Layout(page, body)
}

// PostDetailPage renders one post, its comments, and the comment form.
func PostDetailPage(page PageContext, view PostDetailView) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		thread := view.Thread
		h.raw(`<p><a href="`, h.attr(view.BasePath), `">`)
		h.text(T(page.Loc, "post.back"))
		h.raw(`</a></p><article class="post"><h1>`)
		h.text(thread.Title)
		h.raw(`</h1><p class="meta">`)
		h.text(T(page.Loc, "posts.published_on", PublishedOn(thread.CreatedAt)))
		h.raw(`</p><p>`)
		h.text(thread.Content)
		h.raw(`</p></article><section class="comments"><h2>`)
		h.text(T(page.Loc, "post.comments"))
		h.raw(`</h2>`)

		if len(thread.Comments) == 0 {
			h.raw(`<p class="empty">`)
			h.text(T(page.Loc, "post.no_comments"))
			h.raw(`</p>`)
		} else {
			h.raw(`<ul>`)
			for _, comment := range thread.Comments {
				h.raw(`<li><p>`)
				h.text(comment.Content)
				h.raw(`</p><p class="meta">`)
				h.text(T(page.Loc, "posts.published_on", PublishedOn(comment.CreatedAt)))
				h.raw(`</p></li>`)
			}
			h.raw(`</ul>`)
		}

		action := view.CommentAction
		if action == "" {
			action = view.BasePath + "/" + thread.ID
		}
		h.raw(`<form method="post" action="`, h.attr(action), `">`)
		formError(h, view.Form.Error)
		h.raw(`<label>`)
		h.text(T(page.Loc, "post.comment.form.content"))
		h.raw(` <textarea name="content">`)
		h.text(view.Form.Content)
		h.raw(`</textarea></label><button type="submit">`)
		h.text(T(page.Loc, "post.comment.form.submit"))
		h.raw(`</button></form></section>`)
		return h.err
	})
	return Layout(page, body)
}

func formError(h *htmlWriter, message string) {
	if message == "" {
		return
	}
	h.raw(`<p class="error" role="alert">`)
	h.text(message)
	h.raw(`</p>`)
}
