// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"go.astrophena.name/base/logger"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// LoadConfig reads and validates the build configuration from a Starlark
// file. Any error is a *ConfigError.
func LoadConfig(ctx context.Context, path string) (*Config, error) {
	cerr := func(err error) error { return &ConfigError{Path: path, Err: err} }

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, cerr(err)
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, cerr(err)
	}

	thread := &starlark.Thread{
		Name: "config",
		Print: func(_ *starlark.Thread, msg string) {
			logger.Info(ctx, "build.star", slog.String("msg", msg))
		},
	}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, path, src, predeclared())
	if err != nil {
		return nil, cerr(err)
	}

	c := &Config{
		Path: path,
		Dir:  filepath.Dir(abs),
	}
	if err := c.decode(globals); err != nil {
		return nil, cerr(err)
	}
	return c, nil
}

// Kinds of values created by the predeclared functions.
const (
	kindOutput = "output"
	kindRule   = "rule"
	kindStep   = "step"
	kindHook   = "hook"
)

// object wraps a Go value created by one of the predeclared functions.
type object struct {
	kind string
	v    any
}

func (o *object) String() string        { return fmt.Sprintf("<%s>", o.kind) }
func (o *object) Type() string          { return o.kind }
func (o *object) Freeze()               {}
func (o *object) Truth() starlark.Bool  { return starlark.True }
func (o *object) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: %s", o.kind) }

type rawRule struct {
	test, exclude string
	use           starlark.Value
}

type rawHook struct {
	name string
	opts Options
}

func predeclared() starlark.StringDict {
	d := starlark.StringDict{
		"bundle": starlark.NewBuiltin("bundle", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var out Output
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "path", &out.Path, "filename", &out.Filename); err != nil {
				return nil, err
			}
			return &object{kind: kindOutput, v: out}, nil
		}),
		"rule": starlark.NewBuiltin("rule", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var r rawRule
			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "test", &r.test, "exclude?", &r.exclude, "use?", &r.use); err != nil {
				return nil, err
			}
			return &object{kind: kindRule, v: r}, nil
		}),
		"step": starlark.NewBuiltin("step", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var name string
			if err := starlark.UnpackPositionalArgs(fn.Name(), args, nil, 1, &name); err != nil {
				return nil, err
			}
			opts, err := kwargsOptions(kwargs)
			if err != nil {
				return nil, err
			}
			return &object{kind: kindStep, v: Step{Name: name, Options: opts}}, nil
		}),
	}
	for name := range hooks {
		d[name] = starlark.NewBuiltin(name, func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if len(args) > 0 {
				return nil, fmt.Errorf("%s: only keyword arguments are accepted", fn.Name())
			}
			opts, err := kwargsOptions(kwargs)
			if err != nil {
				return nil, err
			}
			return &object{kind: kindHook, v: rawHook{name: fn.Name(), opts: opts}}, nil
		})
	}
	return d
}

func kwargsOptions(kwargs []starlark.Tuple) (Options, error) {
	opts := make(Options, len(kwargs))
	for _, kv := range kwargs {
		k, ok := starlark.AsString(kv[0])
		if !ok {
			return nil, fmt.Errorf("keyword is not a string: %v", kv[0])
		}
		v, err := fromStarlark(kv[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		opts[k] = v
	}
	return opts, nil
}

// fromStarlark converts a Starlark value into a Go value.
func fromStarlark(v starlark.Value) (any, error) {
	switch v := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.Bool:
		return bool(v), nil
	case starlark.String:
		return string(v), nil
	case starlark.Int:
		i, ok := v.Int64()
		if !ok {
			return nil, fmt.Errorf("integer %v out of range", v)
		}
		return i, nil
	case starlark.Float:
		return float64(v), nil
	case *starlark.List:
		return fromIterable(v, v.Len())
	case starlark.Tuple:
		return fromIterable(v, v.Len())
	case *starlark.Dict:
		m := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			k, ok := starlark.AsString(item[0])
			if !ok {
				return nil, fmt.Errorf("dict key %v is not a string", item[0])
			}
			e, err := fromStarlark(item[1])
			if err != nil {
				return nil, err
			}
			m[k] = e
		}
		return m, nil
	case *object:
		return v.v, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", v.Type())
}

func fromIterable(v starlark.Indexable, n int) ([]any, error) {
	s := make([]any, 0, n)
	for i := range n {
		e, err := fromStarlark(v.Index(i))
		if err != nil {
			return nil, err
		}
		s = append(s, e)
	}
	return s, nil
}

func (c *Config) decode(globals starlark.StringDict) error {
	// Entry points.
	entry, err := fromStarlark(valueOrNone(globals, "entry"))
	if err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	switch e := entry.(type) {
	case string:
		c.Entry = []string{e}
	case []any:
		for _, v := range e {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("entry: want a list of strings, got %T element", v)
			}
			c.Entry = append(c.Entry, s)
		}
	case nil:
	default:
		return fmt.Errorf("entry: want a string or a list of strings, got %T", e)
	}
	if len(c.Entry) == 0 {
		return errNoEntry
	}

	// Output.
	out, ok := globals["output"].(*object)
	if !ok || out.kind != kindOutput {
		return fmt.Errorf("%w: output must be set with bundle(path, filename)", errNoOutput)
	}
	c.Output = out.v.(Output)
	if c.Output.Path == "" || c.Output.Filename == "" {
		return fmt.Errorf("%w: both path and filename are required", errNoOutput)
	}
	if filepath.IsAbs(c.Output.Filename) {
		return fmt.Errorf("%w: filename must be relative to path", errNoOutput)
	}

	// Rules.
	rules, err := objects(globals, "rules", kindRule)
	if err != nil {
		return err
	}
	for i, v := range rules {
		rr := v.(rawRule)
		r, err := rr.compile()
		if err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
		c.Rules = append(c.Rules, r)
	}

	// Hooks.
	hs, err := objects(globals, "hooks", kindHook)
	if err != nil {
		return err
	}
	for i, v := range hs {
		rh := v.(rawHook)
		h, err := hooks[rh.name](rh.opts)
		if err != nil {
			return fmt.Errorf("hooks[%d] (%s): %w", i, rh.name, err)
		}
		if r, ok := h.(interface{ resolve(dir string) }); ok {
			r.resolve(c.Dir)
		}
		c.Hooks = append(c.Hooks, h)
	}

	return nil
}

func valueOrNone(globals starlark.StringDict, name string) starlark.Value {
	if v, ok := globals[name]; ok {
		return v
	}
	return starlark.None
}

// objects returns the values of a global list whose elements must all be of
// the given kind.
func objects(globals starlark.StringDict, name, kind string) ([]any, error) {
	v, ok := globals[name]
	if !ok || v == starlark.None {
		return nil, nil
	}
	list, ok := v.(*starlark.List)
	if !ok {
		return nil, fmt.Errorf("%s: want a list, got %s", name, v.Type())
	}
	var vals []any
	for i := range list.Len() {
		o, ok := list.Index(i).(*object)
		if !ok || o.kind != kind {
			if kind == kindHook {
				return nil, fmt.Errorf("%w: %s[%d] is %s", errUnknownHook, name, i, list.Index(i).Type())
			}
			return nil, fmt.Errorf("%s[%d]: want %s, got %s", name, i, kind, list.Index(i).Type())
		}
		vals = append(vals, o.v)
	}
	return vals, nil
}

func (rr rawRule) compile() (Rule, error) {
	if rr.test == "" {
		return Rule{}, errNoTest
	}
	var (
		r   Rule
		err error
	)
	if r.Test, err = regexp.Compile(rr.test); err != nil {
		return Rule{}, fmt.Errorf("test: %w", err)
	}
	if rr.exclude != "" {
		if r.Exclude, err = regexp.Compile(rr.exclude); err != nil {
			return Rule{}, fmt.Errorf("exclude: %w", err)
		}
	}

	use, err := fromStarlark(orNone(rr.use))
	if err != nil {
		return Rule{}, fmt.Errorf("use: %w", err)
	}
	var list []any
	switch u := use.(type) {
	case Step:
		list = []any{u}
	case []any:
		list = u
	case nil:
	default:
		return Rule{}, fmt.Errorf("use: want a list of steps, got %T", u)
	}
	for i, v := range list {
		s, ok := v.(Step)
		if !ok {
			return Rule{}, fmt.Errorf("use[%d]: want step, got %T", i, v)
		}
		st, ok := steps[s.Name]
		if !ok {
			return Rule{}, fmt.Errorf("%w %q (known steps: %v)", errUnknownStep, s.Name, stepNames())
		}
		if st.check != nil {
			if err := st.check(s.Options); err != nil {
				return Rule{}, fmt.Errorf("step %q: %w", s.Name, err)
			}
		}
		r.Use = append(r.Use, s)
	}
	return r, nil
}

func orNone(v starlark.Value) starlark.Value {
	if v == nil {
		return starlark.None
	}
	return v
}

func stepNames() []string {
	names := make([]string, 0, len(steps))
	for name := range steps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
