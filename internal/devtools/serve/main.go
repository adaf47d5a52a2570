// © 2022 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"flag"
	"log/slog"

	"go.astrophena.name/base/cli"
	"go.astrophena.name/base/logger"
	"go.astrophena.name/webfront/internal/devtools"
	"go.astrophena.name/webfront/internal/telemetry"
	"go.astrophena.name/webfront/internal/web"
)

func main() { cli.Main(new(app)) }

type app struct {
	listen string
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.StringVar(&a.listen, "listen", "", "Listen on `host:port` instead of ADDR.")
}

func (a *app) Run(ctx context.Context) error {
	devtools.EnsureRoot()

	cfg, err := web.LoadConfig(nil)
	if err != nil {
		return err
	}
	if a.listen != "" {
		cfg.Addr = a.listen
	}

	shutdown, err := telemetry.Setup(ctx, "webfront", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error(ctx, "failed to flush traces", slog.Any("err", err))
		}
	}()

	return web.Serve(ctx, cfg)
}
