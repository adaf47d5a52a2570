// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Watch rebuilds the client-side assets on changes.

# Usage

	$ go tool watch [flags]

Watch performs an initial build and then watches the repository for file
changes, rebuilding the assets shortly after the last change. Failed builds
are logged and keep the previous outputs. Dependencies in node_modules and
directories starting with "." or "_" are not watched.

If the configuration has a restart hook, its command is started after the
first successful build and restarted when relevant files change.

Like "go tool build", Watch needs the Dart Sass executable on PATH or in
DART_SASS_BINARY to compile stylesheets, and exports spans to
OTEL_EXPORTER_OTLP_ENDPOINT if it is set.
*/
package main

import (
	_ "embed"

	"go.astrophena.name/base/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
