// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package view renders the pages of the site.

Every page is composed of page-specific content wrapped by a single shared
layout. The layout owns the document shell: metadata, the title and the
stylesheet link. Pages are plain functions that take a parameter record and
return a [Document]:

	doc, err := view.Index(view.IndexParams{Title: "Home", Name: "World"})

# Assets

The layout and the pages reference build artifacts by fixed paths, relative
to the public asset root:

	/css/styles.css  Compiled stylesheet, linked from the layout.
	/dist/bundle.js  Client script bundle, loaded by the index page.

These paths are a contract with the asset pipeline (see build.star at the
repository root).
*/
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

// Paths of the build artifacts, relative to the public asset root.
const (
	StylesheetPath = "/css/styles.css"
	BundlePath     = "/dist/bundle.js"
)

//go:embed templates
var templatesFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"stylesheet": func() string { return StylesheetPath },
	"bundle":     func() string { return BundlePath },
}).ParseFS(templatesFS, "templates/*.html", "templates/layouts/*.html"))

// Document is a rendered HTML document. It is immutable.
type Document struct {
	b []byte
}

// Bytes returns a copy of the document contents.
func (d Document) Bytes() []byte { return bytes.Clone(d.b) }

// String returns the document contents.
func (d Document) String() string { return string(d.b) }

// Len returns the document size in bytes.
func (d Document) Len() int { return len(d.b) }

// WriteTo writes the document to w.
func (d Document) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.b)
	return int64(n), err
}

// MissingPropertyError is returned when a page is rendered without a nested
// parameter it requires.
type MissingPropertyError struct {
	View     string // page that failed to render
	Property string // dotted path of the missing parameter, e.g. error.status
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("view %s: missing property %q", e.View, e.Property)
}

// LayoutParams are the inputs of the shared layout.
type LayoutParams struct {
	Title    string
	Children template.HTML // inserted into the body as is
}

// Layout renders the document shell around p.Children.
func Layout(p LayoutParams) (Document, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "layout", p); err != nil {
		return Document{}, fmt.Errorf("view layout: %w", err)
	}
	return Document{b: buf.Bytes()}, nil
}

// IndexParams are the inputs of the index page.
type IndexParams struct {
	Title string
	Name  string
}

// Index renders the index page.
func Index(p IndexParams) (Document, error) {
	return page("index", p.Title, p)
}

// ErrorInfo describes the failure shown on the error page.
type ErrorInfo struct {
	Status string
}

// ErrorParams are the inputs of the error page. Error is required.
type ErrorParams struct {
	Error   *ErrorInfo
	Message string
}

// Error renders the error page. The document title is the error status.
//
// If p.Error is nil, Error returns a *MissingPropertyError instead of a
// document with an empty title.
func Error(p ErrorParams) (Document, error) {
	if p.Error == nil {
		return Document{}, &MissingPropertyError{View: "error", Property: "error.status"}
	}
	return page("error", p.Error.Status, p)
}

// page renders the named content template and wraps it with the layout.
func page(name, title string, data any) (Document, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Document{}, fmt.Errorf("view %s: %w", name, err)
	}
	return Layout(LayoutParams{
		Title: title,
		// Already escaped by html/template above.
		Children: template.HTML(buf.String()),
	})
}
