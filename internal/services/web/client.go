package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/louisbranch/postbook/internal/blog/post"
	apperrors "github.com/louisbranch/postbook/internal/services/web/platform/errors"
	"github.com/louisbranch/postbook/internal/services/web/platform/httpx"
)

type createPostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type createCommentRequest struct {
	Content string `json:"content"`
}

// threadResponse is a post with its comments and their count.
type threadResponse struct {
	post.Thread
	CommentCount int `json:"commentCount"`
}

func newThreadResponse(thread post.Thread) threadResponse {
	if thread.Comments == nil {
		thread.Comments = []post.Comment{}
	}
	return threadResponse{Thread: thread, CommentCount: len(thread.Comments)}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return apperrors.Error{
			Kind:    apperrors.KindInvalidInput,
			Key:     "error.invalid_request",
			Message: fmt.Sprintf("decode json: %v", err),
			Cause:   err,
		}
	}
	return nil
}

// browserForm reports whether a write should answer with HTML.
func browserForm(r *http.Request) bool {
	return httpx.WantsHTML(r) && !httpx.IsJSONRequest(r)
}

func (h *handler) handleClientListPosts(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsHTML(r) {
		h.handleListPosts(h.client)(w, r)
		return
	}
	threads, err := h.client.store.ListThreads(httpx.RequestContext(r))
	if err != nil {
		h.writeJSONError(w, r, err)
		return
	}
	payload := make([]threadResponse, 0, len(threads))
	for _, thread := range threads {
		payload = append(payload, newThreadResponse(thread))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, payload)
}

func (h *handler) handleClientCreatePost(w http.ResponseWriter, r *http.Request) {
	input, err := readPostInput(w, r)
	if browserForm(r) {
		if err != nil {
			h.writePageError(w, r, err)
			return
		}
		h.createPostPage(w, r, h.client, input)
		return
	}
	if err != nil {
		h.writeJSONError(w, r, err)
		return
	}

	created, err := post.CreatePost(input, h.now, h.newID)
	if err != nil {
		h.writeJSONError(w, r, err)
		return
	}
	if err := h.client.store.PutPost(httpx.RequestContext(r), created); err != nil {
		h.writeJSONError(w, r, err)
		return
	}
	w.Header().Set("Location", postPath(h.client, created.ID))
	_ = httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) handleClientShowPost(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsHTML(r) {
		h.handleShowPost(h.client)(w, r)
		return
	}
	thread, err := h.client.store.GetThread(httpx.RequestContext(r), r.PathValue("postID"))
	if err != nil {
		h.writeJSONError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, newThreadResponse(thread))
}

func (h *handler) handleClientCreateComment(w http.ResponseWriter, r *http.Request) {
	content, err := readCommentContent(w, r)
	input := post.CreateCommentInput{PostID: r.PathValue("postID"), Content: content}
	if browserForm(r) {
		if err != nil {
			h.writePageError(w, r, err)
			return
		}
		h.createCommentPage(w, r, h.client, input)
		return
	}
	if err != nil {
		h.writeJSONError(w, r, err)
		return
	}

	comment, err := post.CreateComment(input, h.now, h.newID)
	if err != nil {
		h.writeJSONError(w, r, err)
		return
	}
	if err := h.client.store.PutComment(httpx.RequestContext(r), comment); err != nil {
		h.writeJSONError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, comment)
}
