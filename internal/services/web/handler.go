package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/louisbranch/postbook/internal/blog/post"
	"github.com/louisbranch/postbook/internal/blog/storage"
	"github.com/louisbranch/postbook/internal/blog/storage/snapshotstore"
	"github.com/louisbranch/postbook/internal/platform/id"
	webi18n "github.com/louisbranch/postbook/internal/services/web/i18n"
	apperrors "github.com/louisbranch/postbook/internal/services/web/platform/errors"
	"github.com/louisbranch/postbook/internal/services/web/platform/httpx"
	"github.com/louisbranch/postbook/internal/services/web/templates"
	"golang.org/x/text/message"
)

// mode binds a route prefix to the store it renders.
type mode struct {
	name     string
	basePath string
	titleKey string
	// commentSuffix is appended to the detail path to build the comment
	// form action.
	commentSuffix string
	store         storage.Store
}

type handler struct {
	logger *slog.Logger
	now    func() time.Time
	newID  func() (string, error)
	server mode
	local  mode
	client mode
	state  StateReporter
}

// NewHandler creates the HTTP handler for every mode.
func NewHandler(config Config) (http.Handler, error) {
	if config.ServerStore == nil {
		return nil, errors.New("server store is required")
	}
	if config.LocalStore == nil {
		return nil, errors.New("local store is required")
	}
	h := &handler{
		logger: config.Logger,
		now:    config.Now,
		newID:  config.NewID,
		server: mode{name: "server", basePath: "/server/posts", titleKey: "posts.title.server", store: config.ServerStore},
		local:  mode{name: "local", basePath: "/local/posts", titleKey: "posts.title.local", store: config.LocalStore},
		client: mode{name: "client", basePath: "/client/posts", titleKey: "posts.title.client", commentSuffix: "/comments", store: config.LocalStore},
		state:  config.Snapshot,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.newID == nil {
		h.newID = id.NewID
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("GET /healthz", h.handleHealth)

	for _, m := range []mode{h.server, h.local} {
		mux.HandleFunc("GET "+m.basePath, h.handleListPosts(m))
		mux.HandleFunc("POST "+m.basePath, h.handleCreatePost(m))
		mux.HandleFunc("GET "+m.basePath+"/{postID}", h.handleShowPost(m))
		mux.HandleFunc("POST "+m.basePath+"/{postID}", h.handleCreateComment(m))
	}

	mux.HandleFunc("GET /client/posts", h.handleClientListPosts)
	mux.HandleFunc("POST /client/posts", h.handleClientCreatePost)
	mux.HandleFunc("GET /client/posts/{postID}", h.handleClientShowPost)
	mux.HandleFunc("POST /client/posts/{postID}/comments", h.handleClientCreateComment)

	mux.HandleFunc("/", h.handleNotFound)

	return httpx.Chain(mux,
		httpx.RequestID(),
		httpx.AccessLog(h.logger),
		httpx.RecoverPanic(h.logger),
	), nil
}

// pageContext resolves the request language for a page.
func (h *handler) pageContext(w http.ResponseWriter, r *http.Request, titleKey string) (templates.PageContext, *message.Printer) {
	printer, tag := webi18n.Localize(w, r)
	page := templates.PageContext{
		Lang:        tag.String(),
		Loc:         printer,
		CurrentPath: r.URL.Path,
	}
	if titleKey != "" {
		page.Title = printer.Sprintf(titleKey)
	}
	return page, printer
}

func (h *handler) handleHome(w http.ResponseWriter, r *http.Request) {
	page, _ := h.pageContext(w, r, "")
	templ.Handler(templates.HomePage(page)).ServeHTTP(w, r)
}

func (h *handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.writePageError(w, r, apperrors.EK(apperrors.KindNotFound, "error.page_not_found", "page not found"))
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if h.state != nil {
		w.Header().Set("X-Snapshot-State", h.state.State().String())
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// classifyError maps domain and storage failures to typed web errors.
func classifyError(err error) error {
	var appErr apperrors.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, post.ErrTitleRequired):
		return apperrors.Error{Kind: apperrors.KindInvalidInput, Key: "error.title_required", Message: err.Error(), Cause: err}
	case errors.Is(err, post.ErrContentRequired):
		return apperrors.Error{Kind: apperrors.KindInvalidInput, Key: "error.content_required", Message: err.Error(), Cause: err}
	case errors.Is(err, post.ErrPostIDRequired):
		return apperrors.Error{Kind: apperrors.KindInvalidInput, Key: "error.invalid_request", Message: err.Error(), Cause: err}
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Error{Kind: apperrors.KindNotFound, Key: "error.post_not_found", Message: err.Error(), Cause: err}
	case errors.Is(err, snapshotstore.ErrPersist):
		return apperrors.Error{Kind: apperrors.KindUnavailable, Key: "error.storage_unavailable", Message: err.Error(), Cause: err}
	default:
		return apperrors.Wrap(apperrors.KindUnknown, err.Error(), err)
	}
}

// userMessage returns the localized message for err.
func userMessage(printer *message.Printer, err error) string {
	key := apperrors.LocalizationKey(err)
	if key == "" {
		key = "error.server"
	}
	return printer.Sprintf(key)
}

// writePageError renders an HTML error page for err.
func (h *handler) writePageError(w http.ResponseWriter, r *http.Request, err error) {
	err = classifyError(err)
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	page, printer := h.pageContext(w, r, "")
	heading := userMessage(printer, err)
	page.Title = heading
	templ.Handler(templates.ErrorPage(page, heading), templ.WithStatus(status)).ServeHTTP(w, r)
}

// writeJSONError writes a JSON error body for err.
func (h *handler) writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	err = classifyError(err)
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	printer, _ := webi18n.Localize(w, r)
	_ = httpx.WriteJSONError(w, status, userMessage(printer, err))
}
