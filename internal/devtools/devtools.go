// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package devtools contains common functionality for development tools.
package devtools

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"go.astrophena.name/base/logger"
	"go.astrophena.name/base/unwrap"
	"go.astrophena.name/webfront/internal/telemetry"
)

// ConfigFile is the build configuration at the repository root.
const ConfigFile = "build.star"

// EnsureRoot checks that the current working directory is at the repository
// root, the directory with build.star, and panics if it doesn't.
func EnsureRoot() {
	wd := unwrap.Value(os.Getwd())
	if _, err := os.Stat(filepath.Join(wd, ConfigFile)); os.IsNotExist(err) {
		panic("Are you at repo root? " + ConfigFile + " not found")
	} else if err != nil {
		panic(err)
	}
}

// StartTracing exports spans of the named service to the endpoint in
// OTEL_EXPORTER_OTLP_ENDPOINT, if it is set. The returned function flushes
// pending spans and must be called before the tool exits.
func StartTracing(ctx context.Context, service string) (stop func(), err error) {
	shutdown, err := telemetry.Setup(ctx, service, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		return nil, err
	}
	return func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error(ctx, "failed to flush traces", slog.Any("err", err))
		}
	}, nil
}
