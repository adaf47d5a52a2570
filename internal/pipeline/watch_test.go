// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.astrophena.name/base/testutil"

	"github.com/fsnotify/fsnotify"
)

func TestShouldRebuild(t *testing.T) {
	cases := map[string]struct {
		path string
		op   fsnotify.Op
		want bool
	}{
		"macOS garbage":   {".DS_Store", fsnotify.Create, false},
		"vim temp file":   {"lololol/4913", fsnotify.Write, false},
		"vim backup file": {"src/index.js~", fsnotify.Create, false},
		"own temp file":   {"public/dist/.webfront-123456", fsnotify.Create, false},
		"file creation":   {"src/index.js", fsnotify.Create, true},
		"file removal":    {"src/index.js", fsnotify.Remove, true},
		"file write":      {"src/index.js", fsnotify.Write, true},
		"ignore chmod":    {"src/index.js", fsnotify.Chmod, false},
		"ignore rename":   {"src/index.js", fsnotify.Rename, false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got := shouldRebuild(tc.path, tc.op)
			if got != tc.want {
				t.Fatalf("shouldRebuild(%q, %+v): want %v, got %v", tc.path, tc.op, tc.want, got)
			}
		})
	}
}

func TestShouldSkipDir(t *testing.T) {
	cases := map[string]bool{
		"node_modules": true,
		"testdata":     true,
		".git":         true,
		"_examples":    true,
		"src":          false,
		"public":       false,
	}
	for name, want := range cases {
		if got := shouldSkipDir(name); got != want {
			t.Errorf("shouldSkipDir(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestRebuilderCoalesces(t *testing.T) {
	var (
		mu     sync.Mutex
		builds [][]string
	)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{}, 2)

	r := newRebuilder(func(changed []string) {
		mu.Lock()
		builds = append(builds, changed)
		n := len(builds)
		mu.Unlock()
		if n == 1 {
			close(started)
			<-release
		}
		done <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.run(ctx)

	r.add("a.js")
	r.schedule()
	<-started

	// Changes made while the first build runs are built together.
	r.add("c.js")
	r.schedule()
	r.add("b.js")
	r.schedule()
	r.add("c.js")
	r.schedule()
	close(release)

	for range 2 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for builds")
		}
	}
	// No third build is started.
	select {
	case <-done:
		t.Fatal("unexpected third build")
	case <-time.After(50 * time.Millisecond):
	}

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertEqual(t, builds, [][]string{{"a.js"}, {"b.js", "c.js"}})
}

func TestDebouncer(t *testing.T) {
	var calls atomic.Int32
	fired := make(chan struct{}, 10)
	d := newDebouncer(20*time.Millisecond, func() {
		calls.Add(1)
		fired <- struct{}{}
	})

	for range 5 {
		d.Do()
	}
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("debounced function was not called")
	}
	time.Sleep(50 * time.Millisecond)
	testutil.AssertEqual(t, calls.Load(), int32(1))

	d.Do()
	d.Stop()
	time.Sleep(50 * time.Millisecond)
	testutil.AssertEqual(t, calls.Load(), int32(1))
}

func TestWatch(t *testing.T) {
	c := extract(t, "basic.txtar")
	bundle := filepath.Join(c.Dir, "public", "dist", "bundle.js")

	ready := make(chan struct{})
	watchReadyHook = func() { close(ready) }
	t.Cleanup(func() { watchReadyHook = nil })

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Watch(ctx, c) }()

	select {
	case <-ready:
	case err := <-errCh:
		t.Fatalf("Watch returned early: %v", err)
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for Watch to start")
	}

	// The initial build has finished before watching starts.
	if b := readFile(t, bundle); !bytes.Contains(b, []byte("stranger")) {
		t.Fatalf("initial bundle is unexpected:\n%s", b)
	}

	writeFile(t, filepath.Join(c.Dir, "src", "greet.js"), "export function greet(name) {\n  return \"Howdy \" + name;\n}\n")

	deadline := time.Now().Add(30 * time.Second)
	for {
		b, err := os.ReadFile(bundle)
		if err == nil && bytes.Contains(b, []byte("Howdy ")) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("bundle was not rebuilt:\n%s", b)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for Watch to stop")
	}
}
