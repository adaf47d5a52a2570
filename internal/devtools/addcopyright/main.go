// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Addcopyright adds copyright header to each source file.
package main

import (
	"bytes"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.astrophena.name/webfront/internal/devtools"
)

const (
	slashHeader = `// © %d Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

`
	hashHeader = `# © %d Ilya Mateyko. All rights reserved.
# Use of this source code is governed by the ISC
# license that can be found in the LICENSE.md file.

`
	htmlHeader = `<!--
© %d Ilya Mateyko. All rights reserved.
Use of this source code is governed by the CC-BY-SA
license that can be found in the LICENSE.md file.
-->
`
)

var templates = map[string]string{
	".go":   slashHeader,
	".js":   slashHeader,
	".scss": slashHeader,
	".star": hashHeader,
	".html": htmlHeader,
}

var headers = map[string]string{
	".go":   `// ©`,
	".js":   `// ©`,
	".scss": `// ©`,
	".star": `# ©`,
	".html": "<!--\n© ",
}

// skipDir reports whether a directory is left alone: dependencies, test
// fixtures, build outputs and hidden or ignored directories.
func skipDir(name string) bool {
	switch name {
	case "node_modules", "testdata", "dist", "css":
		return true
	}
	return name != "." && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_"))
}

// addHeader returns content prefixed with the header for ext, and false if
// content already has one or files with ext don't get headers.
func addHeader(ext string, content []byte, year int) ([]byte, bool) {
	tmpl, ok := templates[ext]
	if !ok {
		return nil, false
	}
	if bytes.HasPrefix(content, []byte(headers[ext])) {
		return nil, false // Already has a copyright header
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, tmpl, year)
	buf.Write(content)
	return buf.Bytes(), true
}

func main() {
	devtools.EnsureRoot()

	if err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		b, ok := addHeader(filepath.Ext(path), content, info.ModTime().Year())
		if !ok {
			return nil
		}
		return os.WriteFile(path, b, 0o644)
	}); err != nil {
		log.Fatal(err)
	}
}
