// Package templates renders the web service pages as templ components.
package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// PageContext provides shared layout context for pages.
type PageContext struct {
	Lang        string
	Loc         Localizer
	Title       string
	CurrentPath string
}

// htmlWriter accumulates the first write error so components can emit
// markup without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, part := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, part)
	}
}

func (h *htmlWriter) text(value string) {
	h.raw(templ.EscapeString(value))
}

func (h *htmlWriter) attr(value string) string {
	return templ.EscapeString(value)
}

func (h *htmlWriter) render(ctx context.Context, component templ.Component) {
	if h.err != nil || component == nil {
		return
	}
	h.err = component.Render(ctx, h.w)
}

func navClass(current string, prefix string) string {
	if strings.HasPrefix(current, prefix) {
		return ` class="active"`
	}
	return ""
}

// Layout wraps body in the shared document shell.
func Layout(page PageContext, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		lang := page.Lang
		if lang == "" {
			lang = "en-US"
		}
		title := strings.TrimSpace(page.Title)
		appName := T(page.Loc, "app.name")
		if title == "" {
			title = appName
		} else {
			title = title + " | " + appName
		}

		h.raw(`<!DOCTYPE html><html lang="`, h.attr(lang), `"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title></head><body><nav>`)
		h.raw(`<a href="/">`)
		h.text(T(page.Loc, "nav.home"))
		h.raw(`</a> <a href="/server/posts"`, navClass(page.CurrentPath, "/server/"), `>`)
		h.text(T(page.Loc, "nav.server"))
		h.raw(`</a> <a href="/local/posts"`, navClass(page.CurrentPath, "/local/"), `>`)
		h.text(T(page.Loc, "nav.local"))
		h.raw(`</a> <a href="/client/posts"`, navClass(page.CurrentPath, "/client/"), `>`)
		h.text(T(page.Loc, "nav.client"))
		h.raw(`</a></nav><main>`)
		h.render(ctx, body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// HomePage links to each storage mode.
func HomePage(page PageContext) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h1>`)
		h.text(T(page.Loc, "home.heading"))
		h.raw(`</h1><ul>`)
		for _, mode := range []string{"server", "local", "client"} {
			h.raw(`<li><a href="/`, mode, `/posts">`)
			h.text(T(page.Loc, "nav."+mode))
			h.raw(`</a> `)
			h.text(T(page.Loc, "home."+mode))
			h.raw(`</li>`)
		}
		h.raw(`</ul>`)
		return h.err
	})
	return Layout(page, body)
}

// ErrorPage renders a status page with a heading and a link home.
func ErrorPage(page PageContext, heading string) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<h1>`)
		h.text(heading)
		h.raw(`</h1><p><a href="/">`)
		h.text(T(page.Loc, "nav.home"))
		h.raw(`</a></p>`)
		return h.err
	})
	return Layout(page, body)
}
