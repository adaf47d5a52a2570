// © 2022 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"

	"go.astrophena.name/base/cli"
	"go.astrophena.name/webfront/internal/devtools"
	"go.astrophena.name/webfront/internal/pipeline"
)

func main() { cli.Main(new(app)) }

type app struct {
	config string
	prod   bool
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.config, "config", devtools.ConfigFile, "Read pipeline configuration from `file`.")
	fs.BoolVar(&a.prod, "prod", false, "Build in a production mode.")
}

func (a *app) Run(ctx context.Context) error {
	devtools.EnsureRoot()

	stop, err := devtools.StartTracing(ctx, "webfront-build")
	if err != nil {
		return err
	}
	defer stop()

	c, err := pipeline.LoadConfig(ctx, a.config)
	if err != nil {
		return err
	}
	if a.prod {
		withMinify(c)
	}
	_, err = pipeline.Build(ctx, c)
	return err
}

// withMinify adds the minify hook to c unless it's already there.
func withMinify(c *pipeline.Config) {
	for _, h := range c.Hooks {
		if _, ok := h.(*pipeline.Minify); ok {
			return
		}
	}
	c.Hooks = append(c.Hooks, pipeline.NewMinify())
}
