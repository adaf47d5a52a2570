// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package view

import (
	"bytes"
	"errors"
	"html/template"
	"strings"
	"testing"

	"go.astrophena.name/base/testutil"

	"github.com/PuerkitoBio/goquery"
)

func parse(t *testing.T, d Document) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(d.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

// assertLayout checks the shell properties shared by every page.
func assertLayout(t *testing.T, d Document, wantTitle string) {
	t.Helper()
	s := d.String()

	testutil.AssertEqual(t, strings.Count(s, "<!DOCTYPE html>"), 1)
	testutil.AssertEqual(t, strings.Count(s, "<html"), 1)

	doc := parse(t, d)
	testutil.AssertEqual(t, doc.Find("head meta[charset]").Length(), 1)
	testutil.AssertEqual(t, doc.Find(`head meta[name="viewport"]`).Length(), 1)

	title := doc.Find("title")
	testutil.AssertEqual(t, title.Length(), 1)
	testutil.AssertEqual(t, title.Text(), wantTitle)

	links := doc.Find(`link[rel="stylesheet"]`)
	testutil.AssertEqual(t, links.Length(), 1)
	href, _ := links.Attr("href")
	testutil.AssertEqual(t, href, StylesheetPath)
}

func TestLayout(t *testing.T) {
	cases := map[string]LayoutParams{
		"empty":         {},
		"title only":    {Title: "Home"},
		"text children": {Title: "Home", Children: "just text"},
		"nested children": {
			Title:    "Nested",
			Children: `<main><section><p>One</p><p>Two</p></section></main>`,
		},
		"children with script": {
			Title:    "Scripted",
			Children: `<div>x</div><script src="/other.js"></script>`,
		},
		"title needs escaping": {Title: `Tom & "Jerry" <3`},
	}

	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			d, err := Layout(p)
			if err != nil {
				t.Fatal(err)
			}
			assertLayout(t, d, p.Title)
			if p.Children != "" && !strings.Contains(d.String(), string(p.Children)) {
				t.Fatalf("children were not inserted verbatim:\n%s", d)
			}
		})
	}
}

func TestLayoutEmptyBody(t *testing.T) {
	d, err := Layout(LayoutParams{Title: "Empty"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(d.String(), "<body></body>") {
		t.Fatalf("want empty body, got:\n%s", d)
	}
}

func TestIndex(t *testing.T) {
	cases := map[string]IndexParams{
		"simple":       {Title: "Home", Name: "World"},
		"empty name":   {Title: "Home"},
		"empty title":  {Name: "Ann"},
		"unicode name": {Title: "Привет", Name: "Илья"},
	}

	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			d, err := Index(p)
			if err != nil {
				t.Fatal(err)
			}
			assertLayout(t, d, p.Title)

			s := d.String()
			testutil.AssertEqual(t, strings.Count(s, "Hello "+p.Name), 1)
			testutil.AssertEqual(t, strings.Count(s, BundlePath), 1)

			doc := parse(t, d)
			scripts := doc.Find("script[src]")
			testutil.AssertEqual(t, scripts.Length(), 1)
			src, _ := scripts.Attr("src")
			testutil.AssertEqual(t, src, BundlePath)
			testutil.AssertEqual(t, strings.TrimSpace(doc.Find("#subtitle").Text()), "Subtitle here")
		})
	}
}

func TestIndexEscapesName(t *testing.T) {
	const name = `<script>alert("hi")</script>`
	d, err := Index(IndexParams{Title: "Home", Name: name})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(d.String(), name) {
		t.Fatalf("name was not escaped:\n%s", d)
	}
	doc := parse(t, d)
	testutil.AssertEqual(t, doc.Find("h1").Text(), "Hello "+name)
	testutil.AssertEqual(t, doc.Find("script").Length(), 1)
}

func TestError(t *testing.T) {
	cases := map[string]ErrorParams{
		"not found": {Error: &ErrorInfo{Status: "404"}, Message: "Not Found"},
		"server":    {Error: &ErrorInfo{Status: "500"}, Message: "boom"},
		"empty":     {Error: &ErrorInfo{}},
	}

	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			d, err := Error(p)
			if err != nil {
				t.Fatal(err)
			}
			assertLayout(t, d, p.Error.Status)
			testutil.AssertEqual(t, strings.Count(d.String(), "Error "+p.Message), 1)
			testutil.AssertEqual(t, parse(t, d).Find("script").Length(), 0)
		})
	}
}

func TestErrorMissingStatus(t *testing.T) {
	d, err := Error(ErrorParams{Message: "x"})
	if err == nil {
		t.Fatalf("want error, got document:\n%s", d)
	}
	var mpe *MissingPropertyError
	if !errors.As(err, &mpe) {
		t.Fatalf("want *MissingPropertyError, got %T: %v", err, err)
	}
	testutil.AssertEqual(t, mpe.Property, "error.status")
	testutil.AssertEqual(t, d.Len(), 0)
}

func TestIdempotent(t *testing.T) {
	cases := map[string]func() (Document, error){
		"index": func() (Document, error) { return Index(IndexParams{Title: "Home", Name: "World"}) },
		"error": func() (Document, error) {
			return Error(ErrorParams{Error: &ErrorInfo{Status: "500"}, Message: "boom"})
		},
		"layout": func() (Document, error) {
			return Layout(LayoutParams{Title: "T", Children: template.HTML("<p>c</p>")})
		},
	}

	for name, render := range cases {
		t.Run(name, func(t *testing.T) {
			a, err := render()
			if err != nil {
				t.Fatal(err)
			}
			b, err := render()
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(a.Bytes(), b.Bytes()) {
				t.Fatalf("renders differ:\n%s\n---\n%s", a, b)
			}
		})
	}
}

func TestDocumentBytesIsCopy(t *testing.T) {
	d, err := Index(IndexParams{Title: "Home", Name: "World"})
	if err != nil {
		t.Fatal(err)
	}
	b := d.Bytes()
	b[0] = 'X'
	if d.String()[0] == 'X' {
		t.Fatal("Bytes returned the underlying slice")
	}

	var buf bytes.Buffer
	n, err := d.WriteTo(&buf)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, int(n), d.Len())
	testutil.AssertEqual(t, buf.String(), d.String())
}
