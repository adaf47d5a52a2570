// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/base/logger"

	"github.com/fsnotify/fsnotify"
)

var watchReadyHook func() // used in tests, called when Watch started watching

// debounceDelay is how long Watch waits for more changes before rebuilding.
const debounceDelay = 250 * time.Millisecond

// Watch builds c and rebuilds it whenever files in c.Dir change, until ctx
// is canceled. Failed builds are logged and leave the previous outputs in
// place.
func Watch(ctx context.Context, c *Config) error {
	b, err := NewBuilder(c)
	if err != nil {
		return err
	}
	b.watch = true
	defer func() {
		if err := b.Close(); err != nil {
			logger.Error(ctx, "failed to stop hooks", slog.Any("err", err))
		}
	}()

	logger.Info(ctx, "performing an initial build")
	if _, err := b.Build(ctx, nil); err != nil {
		logger.Error(ctx, "initial build failed", slog.Any("err", err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watchRecursive(watcher, c.Dir); err != nil {
		return err
	}

	r := newRebuilder(func(changed []string) {
		logger.Info(ctx, "triggering build", slog.Int("changes", len(changed)))
		if _, err := b.Build(ctx, changed); err != nil {
			logger.Error(ctx, "failed to rebuild", slog.Any("err", err))
		}
	})
	// It's better to have a bit of delay, so that we don't start building
	// on each keystroke.
	d := newDebouncer(debounceDelay, r.schedule)

	rctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.run(rctx)
	}()
	defer func() {
		d.Stop()
		cancel()
		// Let the build in progress finish before the hooks are closed.
		wg.Wait()
	}()

	logger.Info(ctx, "started watching for new changes")
	if watchReadyHook != nil {
		watchReadyHook()
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() && !shouldSkipDir(fi.Name()) {
					if err := watchRecursive(watcher, event.Name); err != nil {
						logger.Error(ctx, "failed to watch directory", slog.String("dir", event.Name), slog.Any("err", err))
					}
				}
			}
			if b.isOutput(event.Name) || !shouldRebuild(event.Name, event.Op) {
				continue
			}
			logger.Info(ctx, "detected change, scheduling build",
				slog.String("name", event.Name),
				slog.Any("op", event.Op),
			)
			r.add(event.Name)
			d.Do()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error(ctx, "watcher error", slog.Any("err", err))
		case <-ctx.Done():
			logger.Info(ctx, "stopped watching")
			return nil
		}
	}
}

// rebuilder runs builds one at a time. Changes that arrive while a build is
// running are coalesced into a single follow-up build.
type rebuilder struct {
	build   func(changed []string)
	trigger chan struct{}

	mu      sync.Mutex
	pending map[string]struct{}
}

func newRebuilder(build func(changed []string)) *rebuilder {
	return &rebuilder{
		build:   build,
		trigger: make(chan struct{}, 1),
		pending: make(map[string]struct{}),
	}
}

// add records a changed file for the next build.
func (r *rebuilder) add(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[path] = struct{}{}
}

// schedule requests a build. It never blocks.
func (r *rebuilder) schedule() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *rebuilder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	changed := make([]string, 0, len(r.pending))
	for p := range r.pending {
		changed = append(changed, p)
	}
	clear(r.pending)
	slices.Sort(changed)
	return changed
}

func (r *rebuilder) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.trigger:
			r.build(r.take())
		}
	}
}

// debouncer delays execution of a function until a specified duration has
// passed without any new events.
type debouncer struct {
	d  time.Duration
	mu sync.Mutex
	f  func()
	t  *time.Timer
}

// newDebouncer creates a new debouncer.
func newDebouncer(d time.Duration, f func()) *debouncer {
	return &debouncer{
		d: d,
		f: f,
	}
}

// Do schedules a function to be executed.
func (d *debouncer) Do() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.t != nil {
		d.t.Stop()
	}

	d.t = time.AfterFunc(d.d, d.f)
}

// Stop cancels the scheduled execution, if any.
func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.t != nil {
		d.t.Stop()
	}
}

func watchRecursive(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && shouldSkipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// shouldSkipDir reports whether a directory is not watched. Dependencies are
// not watched because there are too many of them.
func shouldSkipDir(name string) bool {
	if name == "node_modules" || name == "testdata" {
		return true
	}
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// Copied from
// https://github.com/brandur/modulir/blob/1ff912fdc45a79cb4d8d9f199d213ae9c3598cbd/watch.go#L201.
func shouldRebuild(path string, op fsnotify.Op) bool {
	base := filepath.Base(path)

	// Mac OS' worst mistake.
	if base == ".DS_Store" {
		return false
	}

	// Vim creates this temporary file to see whether it can write into a target
	// directory. It screws up our watching algorithm, so ignore it.
	if base == "4913" {
		return false
	}

	// A special case, but ignore creates on files that look like Vim backups.
	if strings.HasSuffix(base, "~") {
		return false
	}

	// Our own temporary files in the output directory.
	if strings.HasPrefix(base, tempPrefix) {
		return false
	}

	if op&fsnotify.Create != 0 {
		return true
	}

	if op&fsnotify.Remove != 0 {
		return true
	}

	if op&fsnotify.Write != 0 {
		return true
	}

	// Ignore everything else. Chmod doesn't affect the build output, and a
	// rename produces a following create event as well.
	return false
}
