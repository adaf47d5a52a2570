// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package web implements the page server.

The server renders the index page at / and serves every other path from the
public asset root, where the asset pipeline writes the bundle and the
stylesheet. Missing files are answered with the error page.

It is configured from the environment:

	ADDR                         listen address (default localhost:3000)
	PUBLIC_DIR                   public asset root (default public)
	APP_ENV                      development or production (default)
	SITE_TITLE                   index page title (default Webfront)
	OTEL_EXPORTER_OTLP_ENDPOINT  enables trace export if set

In development error pages show the underlying error. In production they
show the status text, and HTML is minified.
*/
package web

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"go.astrophena.name/base/logger"
	"go.astrophena.name/webfront/internal/minifier"
	"go.astrophena.name/webfront/internal/view"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("go.astrophena.name/webfront/internal/web")

// Handler serves the site.
type Handler struct {
	c   *Config
	fs  fs.FS
	min *minifier.Minifier

	// Views, replaced in tests.
	index     func(view.IndexParams) (view.Document, error)
	errorView func(view.ErrorParams) (view.Document, error)
}

// NewHandler returns a Handler for c.
func NewHandler(c *Config) *Handler {
	return &Handler{
		c:         c,
		fs:        os.DirFS(c.PublicDir),
		min:       minifier.New(),
		index:     view.Index,
		errorView: view.Error,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "web.ServeHTTP", trace.WithAttributes(
		attribute.String("http.method", r.Method),
		attribute.String("http.path", r.URL.Path),
	))
	defer span.End()
	r = r.WithContext(ctx)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		h.serveError(w, r, http.StatusMethodNotAllowed, nil)
		return
	}
	if r.URL.Path == "/" {
		h.serveIndex(w, r)
		return
	}
	h.serveStatic(w, r)
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	doc, err := h.index(view.IndexParams{
		Title: h.c.Title,
		Name:  r.URL.Query().Get("name"),
	})
	if err != nil {
		h.serveError(w, r, http.StatusInternalServerError, err)
		return
	}
	h.writeDocument(w, r, http.StatusOK, doc)
}

func (h *Handler) serveStatic(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if p == "" || !fs.ValidPath(p) {
		h.serveError(w, r, http.StatusNotFound, nil)
		return
	}

	// Special case: /foo will serve content from foo.html, if it exists.
	if _, err := fs.Stat(h.fs, p+".html"); err == nil {
		p += ".html"
	}

	d, err := fs.Stat(h.fs, p)
	if errors.Is(err, fs.ErrNotExist) {
		h.serveError(w, r, http.StatusNotFound, err)
		return
	} else if err != nil {
		h.serveError(w, r, http.StatusInternalServerError, err)
		return
	}
	if d.IsDir() {
		h.serveError(w, r, http.StatusNotFound, nil)
		return
	}

	b, err := fs.ReadFile(h.fs, p)
	if err != nil {
		h.serveError(w, r, http.StatusInternalServerError, err)
		return
	}

	http.ServeContent(w, r, d.Name(), d.ModTime(), bytes.NewReader(b))
}

// serveError renders the error page. If the error page can't be rendered,
// it falls back to plain text.
func (h *Handler) serveError(w http.ResponseWriter, r *http.Request, status int, err error) {
	ctx := r.Context()
	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", slog.String("path", r.URL.Path), slog.Any("err", err))
		span := trace.SpanFromContext(ctx)
		if err != nil {
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, http.StatusText(status))
	}

	msg := http.StatusText(status)
	if h.c.Env.IsDev() && err != nil {
		msg = err.Error()
	}

	doc, verr := h.errorView(view.ErrorParams{
		Error:   &view.ErrorInfo{Status: strconv.Itoa(status)},
		Message: msg,
	})
	if verr != nil {
		logger.Error(ctx, "failed to render error page", slog.Any("err", verr))
		http.Error(w, msg, status)
		return
	}
	h.writeDocument(w, r, status, doc)
}

func (h *Handler) writeDocument(w http.ResponseWriter, r *http.Request, status int, doc view.Document) {
	b := doc.Bytes()
	if !h.c.Env.IsDev() {
		if mb, err := h.min.Bytes(minifier.HTML, b); err != nil {
			logger.Error(r.Context(), "failed to minify HTML", slog.Any("err", err))
		} else {
			b = mb
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(b)
	}
}
