// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.astrophena.name/base/logger"
)

var serveReadyHook func(addr string) // used in tests, called when Serve started serving the site

// Serve serves the site on c.Addr until ctx is canceled, then shuts down
// gracefully.
func Serve(ctx context.Context, c *Config) error {
	l, err := net.Listen("tcp", c.Addr)
	if err != nil {
		return err
	}
	defer l.Close()
	logger.Info(ctx, "listening for HTTP requests",
		slog.String("addr", "http://"+l.Addr().String()),
		slog.String("env", string(c.Env)),
	)

	httpSrv := &http.Server{
		Handler:           NewHandler(c),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if serveReadyHook != nil {
		serveReadyHook(l.Addr().String())
	}

	select {
	case <-ctx.Done():
		logger.Info(ctx, "gracefully shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return httpSrv.Shutdown(shutdownCtx)
}
