// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/base/logger"
)

// stopTimeout is how long a companion process has to exit after it was asked
// to before it is killed.
const stopTimeout = 5 * time.Second

// Restart keeps a companion process, usually the page server, running in
// watch mode and restarts it when relevant files change.
type Restart struct {
	// Cmd is the command and its arguments.
	Cmd []string
	// Watch is the directory whose files trigger restarts.
	Watch string
	// Ext lists file extensions, without the leading dot, that trigger
	// restarts.
	Ext []string
	// Env is added to the environment of the process.
	Env map[string]string

	dir string // working directory of the process

	mu     sync.Mutex
	proc   *process
	starts int
}

func newRestart(opts Options) (Hook, error) {
	h := &Restart{}
	var err error
	if h.Cmd, err = opts.Strings("cmd", nil); err != nil {
		return nil, err
	}
	if len(h.Cmd) == 0 {
		return nil, fmt.Errorf("%w: restart needs cmd", errBadOption)
	}
	if h.Watch, err = opts.String("watch", "."); err != nil {
		return nil, err
	}
	ext, err := opts.Strings("ext", []string{"js", "jsx", "json"})
	if err != nil {
		return nil, err
	}
	for _, e := range ext {
		h.Ext = append(h.Ext, strings.TrimPrefix(e, "."))
	}
	if h.Env, err = opts.StringMap("env"); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Restart) resolve(dir string) {
	h.dir = dir
	if !filepath.IsAbs(h.Watch) {
		h.Watch = filepath.Join(dir, h.Watch)
	}
}

func (h *Restart) Name() string { return "restart" }

// Done starts the process after the first successful build in watch mode and
// restarts it if any of the changed files is relevant.
func (h *Restart) Done(ctx context.Context, res *Result) error {
	if !res.Watch {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.proc != nil && h.proc.running() && !h.relevant(res.Changed) {
		return nil
	}
	if h.proc != nil {
		logger.Info(ctx, "restarting companion process", slog.Any("cmd", h.Cmd))
		h.proc.stop()
		h.proc = nil
	} else {
		logger.Info(ctx, "starting companion process", slog.Any("cmd", h.Cmd))
	}

	p, err := startProcess(h.Cmd, h.dir, h.environ())
	if err != nil {
		return err
	}
	h.proc = p
	h.starts++
	return nil
}

// Close stops the process.
func (h *Restart) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.proc != nil {
		h.proc.stop()
		h.proc = nil
	}
	return nil
}

// relevant reports whether any of paths is inside the watched directory and
// has one of the watched extensions.
func (h *Restart) relevant(paths []string) bool {
	for _, p := range paths {
		rel, err := filepath.Rel(h.Watch, p)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if slices.Contains(h.Ext, strings.TrimPrefix(filepath.Ext(p), ".")) {
			return true
		}
	}
	return false
}

func (h *Restart) environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(h.Env))
	for k := range h.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+h.Env[k])
	}
	return env
}

type process struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func startProcess(args []string, dir string, env []string) (*process, error) {
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	setProcessGroup(cmd)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", args[0], err)
	}
	p := &process{cmd: cmd, done: make(chan struct{})}
	go func() {
		cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *process) running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *process) stop() {
	if !p.running() {
		return
	}
	if err := terminate(p.cmd); err != nil {
		kill(p.cmd)
	}
	select {
	case <-p.done:
	case <-time.After(stopTimeout):
		kill(p.cmd)
		<-p.done
	}
}
