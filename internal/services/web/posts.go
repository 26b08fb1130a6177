package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/louisbranch/postbook/internal/blog/post"
	"github.com/louisbranch/postbook/internal/blog/storage"
	apperrors "github.com/louisbranch/postbook/internal/services/web/platform/errors"
	"github.com/louisbranch/postbook/internal/services/web/platform/httpx"
	"github.com/louisbranch/postbook/internal/services/web/templates"
)

const maxFormBytes = 1 << 20

func postPath(m mode, postID string) string {
	return m.basePath + "/" + url.PathEscape(postID)
}

func (h *handler) handleListPosts(m mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderPostList(w, r, m, http.StatusOK, templates.PostForm{})
	}
}

func (h *handler) handleCreatePost(m mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := readPostInput(w, r)
		if err != nil {
			h.writePageError(w, r, err)
			return
		}
		h.createPostPage(w, r, m, input)
	}
}

// createPostPage validates and stores a post submitted from an HTML form.
func (h *handler) createPostPage(w http.ResponseWriter, r *http.Request, m mode, input post.CreatePostInput) {
	created, err := post.CreatePost(input, h.now, h.newID)
	if err != nil {
		if post.IsValidationError(err) {
			form := templates.PostForm{Title: input.Title, Content: input.Content}
			h.renderPostListWithError(w, r, m, form, err)
			return
		}
		h.writePageError(w, r, err)
		return
	}
	if err := m.store.PutPost(httpx.RequestContext(r), created); err != nil {
		h.writePageError(w, r, err)
		return
	}
	httpx.WriteRedirect(w, r, m.basePath)
}

func (h *handler) renderPostListWithError(w http.ResponseWriter, r *http.Request, m mode, form templates.PostForm, err error) {
	page, printer := h.pageContext(w, r, m.titleKey)
	form.Error = userMessage(printer, classifyError(err))
	h.renderPostListPage(w, r, m, page, http.StatusBadRequest, form)
}

func (h *handler) renderPostList(w http.ResponseWriter, r *http.Request, m mode, status int, form templates.PostForm) {
	page, _ := h.pageContext(w, r, m.titleKey)
	h.renderPostListPage(w, r, m, page, status, form)
}

func (h *handler) renderPostListPage(w http.ResponseWriter, r *http.Request, m mode, page templates.PageContext, status int, form templates.PostForm) {
	summaries, err := m.store.ListPostSummaries(httpx.RequestContext(r))
	if err != nil {
		h.writePageError(w, r, err)
		return
	}
	view := templates.PostListView{
		BasePath:  m.basePath,
		Summaries: summaries,
		Form:      form,
	}
	templ.Handler(templates.PostListPage(page, view), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *handler) handleShowPost(m mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderPostDetail(w, r, m, r.PathValue("postID"), http.StatusOK, templates.CommentForm{})
	}
}

func (h *handler) handleCreateComment(m mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content, err := readCommentContent(w, r)
		if err != nil {
			h.writePageError(w, r, err)
			return
		}
		h.createCommentPage(w, r, m, post.CreateCommentInput{PostID: r.PathValue("postID"), Content: content})
	}
}

// createCommentPage validates and stores a comment submitted from an HTML form.
func (h *handler) createCommentPage(w http.ResponseWriter, r *http.Request, m mode, input post.CreateCommentInput) {
	comment, err := post.CreateComment(input, h.now, h.newID)
	if err != nil {
		if post.IsValidationError(err) {
			_, printer := h.pageContext(w, r, "")
			form := templates.CommentForm{Content: input.Content, Error: userMessage(printer, classifyError(err))}
			h.renderPostDetail(w, r, m, input.PostID, http.StatusBadRequest, form)
			return
		}
		h.writePageError(w, r, err)
		return
	}
	if err := m.store.PutComment(httpx.RequestContext(r), comment); err != nil {
		h.writePageError(w, r, err)
		return
	}
	httpx.WriteRedirect(w, r, postPath(m, comment.PostID))
}

func (h *handler) renderPostDetail(w http.ResponseWriter, r *http.Request, m mode, postID string, status int, form templates.CommentForm) {
	thread, err := m.store.GetThread(httpx.RequestContext(r), postID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writePageError(w, r, apperrors.EK(apperrors.KindNotFound, "post.not_found", "post not found"))
			return
		}
		h.writePageError(w, r, err)
		return
	}
	page, _ := h.pageContext(w, r, "")
	page.Title = thread.Title
	view := templates.PostDetailView{
		BasePath: m.basePath,
		Thread:   thread,
		Form:     form,
	}
	if m.commentSuffix != "" {
		view.CommentAction = postPath(m, thread.ID) + m.commentSuffix
	}
	templ.Handler(templates.PostDetailPage(page, view), templ.WithStatus(status)).ServeHTTP(w, r)
}

// readPostInput reads a post from a form or JSON body.
func readPostInput(w http.ResponseWriter, r *http.Request) (post.CreatePostInput, error) {
	if httpx.IsJSONRequest(r) {
		var body createPostRequest
		if err := decodeJSON(w, r, &body); err != nil {
			return post.CreatePostInput{}, err
		}
		return post.CreatePostInput{Title: body.Title, Content: body.Content}, nil
	}
	if err := parseForm(w, r); err != nil {
		return post.CreatePostInput{}, err
	}
	return post.CreatePostInput{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
	}, nil
}

// readCommentContent reads comment content from a form or JSON body.
func readCommentContent(w http.ResponseWriter, r *http.Request) (string, error) {
	if httpx.IsJSONRequest(r) {
		var body createCommentRequest
		if err := decodeJSON(w, r, &body); err != nil {
			return "", err
		}
		return body.Content, nil
	}
	if err := parseForm(w, r); err != nil {
		return "", err
	}
	return r.PostFormValue("content"), nil
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return apperrors.Error{
			Kind:    apperrors.KindInvalidInput,
			Key:     "error.invalid_request",
			Message: "parse form: " + strings.TrimSpace(err.Error()),
			Cause:   err,
		}
	}
	return nil
}
