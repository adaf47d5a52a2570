// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Package pipeline builds the client-side assets of the site.

The pipeline is configured by a Starlark file, build.star by default, at the
repository root:

	entry = "./public/index.js"

	output = bundle(
	    path = "public",
	    filename = "dist/bundle.js",
	)

	rules = [
	    rule(
	        test = r"\.m?js$",
	        exclude = "node_modules",
	        use = [step("transpile", target = "es2015")],
	    ),
	    rule(
	        test = r"\.scss$",
	        use = [step("sass"), step("css")],
	    ),
	]

	hooks = [
	    extract_css(filename = "css/styles.css"),
	]

# Entries and Output

All entries are bundled into a single script. The output global is built with
bundle(path, filename): filename is relative to the path directory (the
public asset root). Stylesheets imported from scripts are emitted next to the
bundle unless a hook moves them.

# Rules

A rule applies an ordered chain of steps to every source file whose path
matches test and doesn't match exclude. Steps run first to last. Available
steps:

	transpile  Lowers JavaScript and JSX syntax to target (default es2015).
	sass       Compiles SCSS or indented Sass into CSS. Options: style
	           ("expanded" or "compressed"), source_map, include_paths,
	           binary (path to the Dart Sass executable).
	css        Loads the content as plain CSS, resolving @import and url().

Files that are not matched by any rule are loaded by the bundler as is.

# Hooks

Hooks are optional and independent of each other:

	extract_css(filename)        Moves all stylesheet output into filename.
	minify()                     Minifies JavaScript, CSS and JSON output.
	restart(cmd, watch, ext, env)
	                             In watch mode, runs cmd after the first
	                             successful build and restarts it when a
	                             file under watch with one of ext extensions
	                             changes.
*/
package pipeline

import (
	"errors"
	"fmt"
	"regexp"
)

// Possible configuration errors, used in tests.
var (
	errNoEntry     = errors.New("no entry points")
	errNoOutput    = errors.New("missing output")
	errNoTest      = errors.New("rule without test")
	errUnknownStep = errors.New("unknown step")
	errUnknownHook = errors.New("unknown hook")
	errBadOption   = errors.New("invalid option")
	errUnwritable  = errors.New("output directory is not writable")
)

// ConfigError is returned when the build configuration is malformed.
type ConfigError struct {
	Path string // configuration file
	Err  error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *ConfigError) Unwrap() error { return e.Err }

// Config is a build configuration. It is not modified after it was loaded.
type Config struct {
	// Path is the configuration file.
	Path string
	// Dir is the absolute directory relative paths are resolved against.
	Dir string
	// Entry lists the source files bundled into the output script.
	Entry []string
	// Output describes where the build artifacts are written.
	Output Output
	// Rules are tried in order for every loaded source file.
	Rules []Rule
	// Hooks run around writing the build artifacts.
	Hooks []Hook
}

// Output describes the location of the bundle.
type Output struct {
	Path     string // public asset root
	Filename string // bundle path relative to Path
}

// Rule is a chain of steps applied to matching source files.
type Rule struct {
	Test    *regexp.Regexp
	Exclude *regexp.Regexp // may be nil
	Use     []Step
}

// Step is a named transformation with options.
type Step struct {
	Name    string
	Options Options
}

func (r Rule) matches(path string) bool {
	if !r.Test.MatchString(path) {
		return false
	}
	return r.Exclude == nil || !r.Exclude.MatchString(path)
}

// Options are keyword arguments of a step or a hook.
type Options map[string]any

// String returns a string option or def if it is not set.
func (o Options) String(key, def string) (string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", errBadOption, key, v)
	}
	return s, nil
}

// Bool returns a boolean option or def if it is not set.
func (o Options) Bool(key string, def bool) (bool, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a bool, got %T", errBadOption, key, v)
	}
	return b, nil
}

// Strings returns a list option or def if it is not set. A single string is
// treated as a list of one element.
func (o Options) Strings(key string, def []string) ([]string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []any:
		ss := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must contain only strings, got %T", errBadOption, key, e)
			}
			ss = append(ss, s)
		}
		return ss, nil
	}
	return nil, fmt.Errorf("%w: %s must be a list of strings, got %T", errBadOption, key, v)
}

// StringMap returns a dict option or nil if it is not set.
func (o Options) StringMap(key string) (map[string]string, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return nil, nil
	}
	d, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a dict, got %T", errBadOption, key, v)
	}
	m := make(map[string]string, len(d))
	for k, e := range d {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%q] must be a string, got %T", errBadOption, key, k, e)
		}
		m[k] = s
	}
	return m, nil
}
