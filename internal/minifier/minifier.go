// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package minifier minifies HTML documents and build outputs.
package minifier

import (
	"path/filepath"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	mjson "github.com/tdewolff/minify/v2/json"
)

// Media types understood by [Minifier.Bytes].
const (
	HTML = "text/html"
	CSS  = "text/css"
	JS   = "application/javascript"
	JSON = "application/json"
)

// Minifier minifies content by media type. It is safe for concurrent use.
type Minifier struct {
	m *minify.M
}

// New returns a Minifier for HTML, CSS, JavaScript and JSON.
func New() *Minifier {
	m := minify.New()
	m.AddFunc(CSS, css.Minify)
	m.Add(HTML, &html.Minifier{
		KeepDocumentTags:    true,
		KeepDefaultAttrVals: true,
		KeepEndTags:         true,
	})
	m.AddFunc(JS, js.Minify)
	m.AddFunc(JSON, mjson.Minify)

	return &Minifier{m: m}
}

// Bytes minifies b as mediaType.
func (m *Minifier) Bytes(mediaType string, b []byte) ([]byte, error) {
	return m.m.Bytes(mediaType, b)
}

// MediaType returns the media type for a file name, or an empty string if
// files with such extension are not minified.
func MediaType(name string) string {
	switch filepath.Ext(name) {
	case ".css":
		return CSS
	case ".js", ".mjs":
		return JS
	case ".json":
		return JSON
	case ".html":
		return HTML
	}
	return ""
}
