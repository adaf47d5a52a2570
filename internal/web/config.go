// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package web

import (
	"fmt"

	"go.astrophena.name/webfront/internal/env"

	envparse "github.com/caarlos0/env/v11"
)

// Config configures the page server.
type Config struct {
	// Addr is the host:port the server listens on.
	Addr string `env:"ADDR" envDefault:"localhost:3000"`
	// PublicDir is the public asset root, where the pipeline writes its
	// outputs.
	PublicDir string `env:"PUBLIC_DIR" envDefault:"public"`
	// Env selects error verbosity and HTML minification.
	Env env.Env `env:"APP_ENV" envDefault:"production"`
	// Title is the title of the index page.
	Title string `env:"SITE_TITLE" envDefault:"Webfront"`
	// OTLPEndpoint, if set, enables trace export.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadConfig loads the configuration from environ. If environ is nil, the
// process environment is used.
func LoadConfig(environ map[string]string) (*Config, error) {
	var c Config
	if err := envparse.ParseWithOptions(&c, envparse.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &c, nil
}
