// © 2026 Ilya Mateyko. All rights reserved.
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
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.config, "config", devtools.ConfigFile, "Read pipeline configuration from `file`.")
}

func (a *app) Run(ctx context.Context) error {
	devtools.EnsureRoot()

	stop, err := devtools.StartTracing(ctx, "webfront-watch")
	if err != nil {
		return err
	}
	defer stop()

	c, err := pipeline.LoadConfig(ctx, a.config)
	if err != nil {
		return err
	}
	return pipeline.Watch(ctx, c)
}
