// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Build builds the client-side assets once.

# Usage

	$ go tool build [flags]

Build reads the pipeline configuration (build.star by default), bundles the
entries and writes the outputs under the public asset root. It exits with a
non-zero status if any source file fails to build, leaving the previous
outputs in place.

With -prod, JavaScript, CSS and JSON outputs are minified even if the
configuration doesn't list the minify hook.

# Requirements

The sass step runs Dart Sass through its embedded protocol. The sass
executable must be on PATH, or DART_SASS_BINARY must point to it; otherwise
every stylesheet fails with a "sass" step error. Install it from
https://github.com/sass/dart-sass/releases.

If OTEL_EXPORTER_OTLP_ENDPOINT is set, build spans are exported there.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/base/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
