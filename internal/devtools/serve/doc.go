// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Serve runs the page server.

# Usage:

	$ go tool serve [flags]

Serve renders the index page at / and serves the public asset root built by
"go tool build" or "go tool watch". It is configured by the ADDR,
PUBLIC_DIR, APP_ENV, SITE_TITLE and OTEL_EXPORTER_OTLP_ENDPOINT environment
variables; -listen takes precedence over ADDR.

For development, run it with APP_ENV=development, or let the restart hook
of "go tool watch" start it.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/base/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
