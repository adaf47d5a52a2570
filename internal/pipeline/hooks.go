// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"go.astrophena.name/webfront/internal/minifier"
)

// Hook is an optional extension of the build. A Hook implements one or more
// of OutputHook, DoneHook and io.Closer.
type Hook interface {
	Name() string
}

// OutputHook can rewrite the build outputs before they are written.
type OutputHook interface {
	Hook
	Outputs(ctx context.Context, res *Result) error
}

// DoneHook runs after the build outputs are written.
type DoneHook interface {
	Hook
	Done(ctx context.Context, res *Result) error
}

// hooks maps names of the functions available in build.star to hook
// constructors.
var hooks = map[string]func(opts Options) (Hook, error){
	"extract_css": newExtractCSS,
	"minify":      newMinify,
	"restart":     newRestart,
}

// ExtractCSS moves every stylesheet output into a single file.
type ExtractCSS struct {
	// Filename is the stylesheet path relative to the output directory.
	Filename string
}

func newExtractCSS(opts Options) (Hook, error) {
	filename, err := opts.String("filename", "css/styles.css")
	if err != nil {
		return nil, err
	}
	filename = path.Clean(strings.TrimPrefix(filename, "/"))
	if strings.HasPrefix(filename, "..") {
		return nil, fmt.Errorf("%w: filename %q is outside of the output directory", errBadOption, filename)
	}
	return &ExtractCSS{Filename: filename}, nil
}

func (h *ExtractCSS) Name() string { return "extract_css" }

func (h *ExtractCSS) Outputs(_ context.Context, res *Result) error {
	var (
		buf   bytes.Buffer
		found bool
	)
	for _, name := range res.Names() {
		if path.Ext(name) != ".css" {
			continue
		}
		found = true
		buf.Write(res.Files[name])
		delete(res.Files, name)
	}
	if found {
		res.Files[h.Filename] = buf.Bytes()
	}
	return nil
}

// Minify minifies JavaScript, CSS and JSON outputs.
type Minify struct {
	m *minifier.Minifier
}

func newMinify(opts Options) (Hook, error) {
	if len(opts) > 0 {
		return nil, fmt.Errorf("%w: minify takes no options", errBadOption)
	}
	return NewMinify(), nil
}

// NewMinify returns a Minify hook.
func NewMinify() *Minify { return &Minify{m: minifier.New()} }

func (h *Minify) Name() string { return "minify" }

func (h *Minify) Outputs(_ context.Context, res *Result) error {
	for _, name := range res.Names() {
		mt := minifier.MediaType(name)
		if mt == "" || mt == minifier.HTML {
			continue
		}
		b, err := h.m.Bytes(mt, res.Files[name])
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		res.Files[name] = b
	}
	return nil
}
