package i18n

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.AmericanEnglish

	// Layout
	message.SetString(lang, "app.name", "Postbook")
	message.SetString(lang, "nav.home", "Home")
	message.SetString(lang, "nav.server", "Server")
	message.SetString(lang, "nav.local", "Local")
	message.SetString(lang, "nav.client", "Client")

	// Home
	message.SetString(lang, "home.heading", "Postbook")
	message.SetString(lang, "home.server", "Posts rendered from the server database.")
	message.SetString(lang, "home.local", "Posts rendered from the local snapshot database.")
	message.SetString(lang, "home.client", "Posts served as JSON from the local snapshot database.")

	// Posts
	message.SetString(lang, "posts.title.server", "Posts (Server)")
	message.SetString(lang, "posts.title.local", "Posts (Local)")
	message.SetString(lang, "posts.title.client", "Posts (Client)")
	message.SetString(lang, "posts.empty", "No posts yet")
	message.SetString(lang, "posts.published_on", "Published on: %s")
	_ = message.Set(lang, "posts.comment_count", plural.Selectf(1, "%d",
		plural.One, "%d comment",
		plural.Other, "%d comments",
	))
	message.SetString(lang, "posts.new", "New post")
	message.SetString(lang, "posts.form.title", "Title")
	message.SetString(lang, "posts.form.content", "Content")
	message.SetString(lang, "posts.form.submit", "Create post")

	// Post detail
	message.SetString(lang, "post.not_found", "Post not found")
	message.SetString(lang, "post.comments", "Comments")
	message.SetString(lang, "post.no_comments", "No comments")
	message.SetString(lang, "post.back", "Back to posts")
	message.SetString(lang, "post.comment.form.content", "Comment")
	message.SetString(lang, "post.comment.form.submit", "Add comment")

	// Errors
	message.SetString(lang, "error.title_required", "Title is required")
	message.SetString(lang, "error.content_required", "Content is required")
	message.SetString(lang, "error.post_not_found", "Post not found")
	message.SetString(lang, "error.invalid_request", "Invalid request")
	message.SetString(lang, "error.storage_unavailable", "Changes could not be saved")
	message.SetString(lang, "error.server", "Something went wrong")
	message.SetString(lang, "error.page_not_found", "Page not found")
}
