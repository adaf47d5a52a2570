// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"strings"
	"testing"

	"go.astrophena.name/base/testutil"
)

func TestAddHeader(t *testing.T) {
	cases := map[string]struct {
		ext     string
		content string
		want    string
		wantOK  bool
	}{
		"go": {
			ext:     ".go",
			content: "package main\n",
			want:    "// © 2026 Ilya Mateyko. All rights reserved.\n",
			wantOK:  true,
		},
		"script": {
			ext:     ".js",
			content: "console.log(1);\n",
			want:    "// © 2026 Ilya Mateyko. All rights reserved.\n",
			wantOK:  true,
		},
		"starlark": {
			ext:     ".star",
			content: "entry = \"./public/index.js\"\n",
			want:    "# © 2026 Ilya Mateyko. All rights reserved.\n",
			wantOK:  true,
		},
		"template": {
			ext:     ".html",
			content: "{{ define \"x\" }}{{ end }}\n",
			want:    "<!--\n© 2026 Ilya Mateyko. All rights reserved.\n",
			wantOK:  true,
		},
		"already has header": {
			ext:     ".scss",
			content: "// © 2025 Ilya Mateyko. All rights reserved.\n$a: 1;\n",
		},
		"unknown extension": {
			ext:     ".json",
			content: "{}\n",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := addHeader(tc.ext, []byte(tc.content), 2026)
			testutil.AssertEqual(t, ok, tc.wantOK)
			if !ok {
				return
			}
			if !strings.HasPrefix(string(got), tc.want) {
				t.Errorf("header is missing:\n%s", got)
			}
			if !strings.HasSuffix(string(got), tc.content) {
				t.Errorf("content was not preserved:\n%s", got)
			}
		})
	}
}

func TestSkipDir(t *testing.T) {
	cases := map[string]bool{
		".":            false,
		"internal":     false,
		"public":       false,
		"node_modules": true,
		"testdata":     true,
		"dist":         true,
		".git":         true,
		"_examples":    true,
	}
	for name, want := range cases {
		if got := skipDir(name); got != want {
			t.Errorf("skipDir(%q) = %v, want %v", name, got, want)
		}
	}
}
