// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package pipeline

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bep/godartsass/v2"
	"github.com/evanw/esbuild/pkg/api"
)

// asset is a source file passing through the steps of a rule.
type asset struct {
	path     string // absolute
	contents []byte
	loader   api.Loader
}

type step struct {
	run   func(b *Builder, a *asset, opts Options) error
	check func(opts Options) error // validates options when the config is loaded
}

var steps = map[string]step{
	"transpile": {run: transpile, check: checkTranspile},
	"sass":      {run: compileSass, check: checkSass},
	"css":       {run: loadCSS},
}

var loaders = map[string]api.Loader{
	".js":   api.LoaderJS,
	".mjs":  api.LoaderJS,
	".cjs":  api.LoaderJS,
	".jsx":  api.LoaderJSX,
	".ts":   api.LoaderTS,
	".tsx":  api.LoaderTSX,
	".json": api.LoaderJSON,
	".css":  api.LoaderCSS,
	".scss": api.LoaderCSS,
	".sass": api.LoaderCSS,
}

func loaderFor(path string) api.Loader {
	if l, ok := loaders[strings.ToLower(filepath.Ext(path))]; ok {
		return l
	}
	return api.LoaderDefault
}

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

func target(opts Options) (api.Target, error) {
	name, err := opts.String("target", "es2015")
	if err != nil {
		return 0, err
	}
	t, ok := targets[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown target %q", errBadOption, name)
	}
	return t, nil
}

func checkTranspile(opts Options) error {
	_, err := target(opts)
	return err
}

func transpile(_ *Builder, a *asset, opts Options) error {
	t, err := target(opts)
	if err != nil {
		return err
	}
	switch a.loader {
	case api.LoaderJS, api.LoaderJSX, api.LoaderTS, api.LoaderTSX:
	default:
		return fmt.Errorf("cannot transpile %s as a script", filepath.Base(a.path))
	}
	res := api.Transform(string(a.contents), api.TransformOptions{
		Loader:     a.loader,
		Target:     t,
		Sourcefile: a.path,
		LogLevel:   api.LogLevelSilent,
	})
	if len(res.Errors) > 0 {
		return messagesError(res.Errors)
	}
	a.contents = res.Code
	a.loader = api.LoaderJS
	return nil
}

var sassStyles = map[string]godartsass.OutputStyle{
	"expanded":   godartsass.OutputStyleExpanded,
	"compressed": godartsass.OutputStyleCompressed,
}

func checkSass(opts Options) error {
	style, err := opts.String("style", "expanded")
	if err != nil {
		return err
	}
	if _, ok := sassStyles[style]; !ok {
		return fmt.Errorf("%w: unknown style %q", errBadOption, style)
	}
	if _, err := opts.Bool("source_map", false); err != nil {
		return err
	}
	if _, err := opts.Strings("include_paths", nil); err != nil {
		return err
	}
	_, err = opts.String("binary", "")
	return err
}

func compileSass(b *Builder, a *asset, opts Options) error {
	// Options were checked when the config was loaded.
	style, _ := opts.String("style", "expanded")
	sourceMap, _ := opts.Bool("source_map", false)
	includes, _ := opts.Strings("include_paths", nil)
	binary, _ := opts.String("binary", os.Getenv("DART_SASS_BINARY"))

	t, err := b.sassTranspiler(binary)
	if err != nil {
		return err
	}

	syntax := godartsass.SourceSyntaxSCSS
	if strings.EqualFold(filepath.Ext(a.path), ".sass") {
		syntax = godartsass.SourceSyntaxSASS
	}
	paths := []string{filepath.Dir(a.path)}
	for _, p := range includes {
		if !filepath.IsAbs(p) {
			p = filepath.Join(b.c.Dir, p)
		}
		paths = append(paths, p)
	}

	res, err := t.Execute(godartsass.Args{
		Source:          string(a.contents),
		OutputStyle:     sassStyles[style],
		SourceSyntax:    syntax,
		IncludePaths:    paths,
		EnableSourceMap: sourceMap,
	})
	if err != nil {
		return err
	}

	css := res.CSS
	if sourceMap && res.SourceMap != "" {
		css += "\n/*# sourceMappingURL=data:application/json;base64," +
			base64.StdEncoding.EncodeToString([]byte(res.SourceMap)) + " */\n"
	}
	a.contents = []byte(css)
	a.loader = api.LoaderCSS
	return nil
}

func loadCSS(_ *Builder, a *asset, _ Options) error {
	a.loader = api.LoaderCSS
	return nil
}

// messagesError joins bundler messages into a single error.
func messagesError(msgs []api.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			errs = append(errs, fmt.Errorf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		errs = append(errs, errors.New(m.Text))
	}
	return errors.Join(errs...)
}
