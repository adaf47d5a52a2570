// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.astrophena.name/base/logger"

	"github.com/bep/godartsass/v2"
	"github.com/evanw/esbuild/pkg/api"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("go.astrophena.name/webfront/internal/pipeline")

// TransformError is returned when a source file fails a step or can't be
// bundled.
type TransformError struct {
	File string // source file, relative to the config directory if possible
	Step string // step name, or "bundle" for bundler errors
	Err  error
}

func (e *TransformError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.File, e.Step, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Result holds the artifacts of a build.
type Result struct {
	// Files maps slash-separated paths relative to the output directory to
	// their contents.
	Files map[string][]byte
	// Changed lists the files whose change triggered this build. It is empty
	// for the first build.
	Changed []string
	// Watch reports whether the build runs in watch mode.
	Watch bool
}

// Names returns the sorted output file names.
func (r *Result) Names() []string {
	names := make([]string, 0, len(r.Files))
	for name := range r.Files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Builder runs builds for a configuration. Builds of a single Builder must
// not run concurrently; Watch guarantees that.
type Builder struct {
	c      *Config
	outDir string
	watch  bool

	mu      sync.Mutex
	sass    *godartsass.Transpiler
	failure error           // first step failure of the current build
	written map[string]bool // absolute paths of the files written by the last build
}

// NewBuilder returns a Builder for c. It returns a *ConfigError if the output
// directory can't be written to.
func NewBuilder(c *Config) (*Builder, error) {
	outDir := c.Output.Path
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(c.Dir, outDir)
	}
	if err := checkWritable(outDir); err != nil {
		return nil, &ConfigError{Path: c.Path, Err: fmt.Errorf("%w: %v", errUnwritable, err)}
	}
	return &Builder{
		c:       c,
		outDir:  outDir,
		written: make(map[string]bool),
	}, nil
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, tempPrefix+"probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// tempPrefix starts the names of temporary files created in the output
// directory.
const tempPrefix = ".webfront-"

// Build performs a one-shot build of c.
func Build(ctx context.Context, c *Config) (*Result, error) {
	b, err := NewBuilder(c)
	if err != nil {
		return nil, err
	}
	res, err := b.Build(ctx, nil)
	if cerr := b.Close(); err == nil {
		err = cerr
	}
	return res, err
}

// Build bundles the entries, runs the hooks and writes the outputs. Outputs
// are only written if bundling and all output hooks succeed, so a failed
// build leaves the previous artifacts in place.
func (b *Builder) Build(ctx context.Context, changed []string) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "pipeline.Build")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.Int("pipeline.changed", len(changed)))

	res, err = b.bundle()
	if err != nil {
		return nil, err
	}
	res.Changed = changed
	res.Watch = b.watch

	for _, h := range b.c.Hooks {
		if oh, ok := h.(OutputHook); ok {
			if err := oh.Outputs(ctx, res); err != nil {
				return nil, fmt.Errorf("hook %s: %w", h.Name(), err)
			}
		}
	}

	if err := b.write(res); err != nil {
		return nil, err
	}
	logger.Info(ctx, "build finished", slog.Any("outputs", res.Names()))

	for _, h := range b.c.Hooks {
		if dh, ok := h.(DoneHook); ok {
			if err := dh.Done(ctx, res); err != nil {
				return res, fmt.Errorf("hook %s: %w", h.Name(), err)
			}
		}
	}
	return res, nil
}

// Close stops the Sass compiler and the hooks that hold resources.
func (b *Builder) Close() error {
	var errs []error
	for _, h := range b.c.Hooks {
		if c, ok := h.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sass != nil {
		errs = append(errs, b.sass.Close())
		b.sass = nil
	}
	return errors.Join(errs...)
}

func (b *Builder) bundle() (*Result, error) {
	b.mu.Lock()
	b.failure = nil
	b.mu.Unlock()

	// All entries are imported from a virtual module, so they end up in a
	// single bundle.
	var stdin strings.Builder
	for _, e := range b.c.Entry {
		p := e
		if !filepath.IsAbs(p) {
			p = filepath.Join(b.c.Dir, p)
		}
		fmt.Fprintf(&stdin, "import %s;\n", strconv.Quote(filepath.ToSlash(p)))
	}

	br := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   stdin.String(),
			ResolveDir: b.c.Dir,
			Sourcefile: "webfront-entry.js",
			Loader:     api.LoaderJS,
		},
		AbsWorkingDir: b.c.Dir,
		Bundle:        true,
		Outfile:       filepath.Join(b.outDir, filepath.FromSlash(b.c.Output.Filename)),
		Write:         false,
		Format:        api.FormatIIFE,
		Target:        api.ESNext,
		LogLevel:      api.LogLevelSilent,
		Plugins:       []api.Plugin{b.rulesPlugin()},
	})

	b.mu.Lock()
	failure := b.failure
	b.mu.Unlock()
	if failure != nil {
		return nil, failure
	}
	if len(br.Errors) > 0 {
		te := &TransformError{Step: "bundle", Err: messagesError(br.Errors)}
		if loc := br.Errors[0].Location; loc != nil {
			te.File = loc.File
		}
		return nil, te
	}

	res := &Result{Files: make(map[string][]byte, len(br.OutputFiles))}
	for _, f := range br.OutputFiles {
		rel, err := filepath.Rel(b.outDir, f.Path)
		if err != nil {
			return nil, err
		}
		res.Files[filepath.ToSlash(rel)] = f.Contents
	}
	return res, nil
}

// rulesPlugin runs the configured rules when the bundler loads a file.
func (b *Builder) rulesPlugin() api.Plugin {
	return api.Plugin{
		Name: "rules",
		Setup: func(pb api.PluginBuild) {
			for _, r := range b.c.Rules {
				pb.OnLoad(api.OnLoadOptions{Filter: r.Test.String(), Namespace: "file"}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					if !r.matches(filepath.ToSlash(args.Path)) {
						return api.OnLoadResult{}, nil
					}
					contents, loader, err := b.apply(r, args.Path)
					if err != nil {
						return api.OnLoadResult{}, err
					}
					return api.OnLoadResult{
						Contents:   &contents,
						Loader:     loader,
						ResolveDir: filepath.Dir(args.Path),
					}, nil
				})
			}
		},
	}
}

func (b *Builder) apply(r Rule, path string) (string, api.Loader, error) {
	a := &asset{path: path, loader: loaderFor(path)}
	var err error
	if a.contents, err = os.ReadFile(path); err != nil {
		return "", 0, b.fail(path, "read", err)
	}
	for _, s := range r.Use {
		if err := steps[s.Name].run(b, a, s.Options); err != nil {
			return "", 0, b.fail(path, s.Name, err)
		}
	}
	return string(a.contents), a.loader, nil
}

// fail records the first step failure of a build. The bundler only keeps
// the message, so the typed error is reported from here.
func (b *Builder) fail(path, step string, err error) error {
	if rel, rerr := filepath.Rel(b.c.Dir, path); rerr == nil {
		path = filepath.ToSlash(rel)
	}
	te := &TransformError{File: path, Step: step, Err: err}
	b.mu.Lock()
	if b.failure == nil {
		b.failure = te
	}
	b.mu.Unlock()
	return te
}

func (b *Builder) sassTranspiler(binary string) (*godartsass.Transpiler, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sass != nil {
		return b.sass, nil
	}
	t, err := godartsass.Start(godartsass.Options{DartSassEmbeddedFilename: binary})
	if err != nil {
		return nil, fmt.Errorf("starting Dart Sass: %w", err)
	}
	b.sass = t
	return t, nil
}

// write replaces the outputs on disk. Every file is written to a temporary
// file first and renamed, so readers never see a partially written file.
func (b *Builder) write(res *Result) error {
	written := make(map[string]bool, len(res.Files))
	for _, name := range res.Names() {
		dst := filepath.Join(b.outDir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		f, err := os.CreateTemp(filepath.Dir(dst), tempPrefix+"*")
		if err != nil {
			return err
		}
		if _, err := f.Write(res.Files[name]); err != nil {
			f.Close()
			os.Remove(f.Name())
			return err
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return err
		}
		if err := os.Chmod(f.Name(), 0o644); err != nil {
			os.Remove(f.Name())
			return err
		}
		if err := os.Rename(f.Name(), dst); err != nil {
			os.Remove(f.Name())
			return err
		}
		written[dst] = true
	}

	b.mu.Lock()
	b.written = written
	b.mu.Unlock()
	return nil
}

// isOutput reports whether path was written by the last build.
func (b *Builder) isOutput(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.written[path]
}
