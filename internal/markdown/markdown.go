// Package markdown renders GitHub release notes for the update prompt.
package markdown

import (
	"bytes"
	"regexp"

	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM, // tables, strikethrough, autolinks, task lists
		highlighting.NewHighlighting(
			highlighting.WithStyle("monokai"),
		),
	),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
	),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

// Render converts release notes to HTML. Raw HTML in the notes is dropped
// since they come from the network. Links open outside the app window.
func Render(content string) string {
	if content == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// The UI falls back to the plain notes.
		return ""
	}
	return externalLinks(buf.String())
}

var linkRe = regexp.MustCompile(`<a href="(https?://[^"]*)"`)

// externalLinks adds target="_blank" rel="noopener noreferrer" to http(s) links.
func externalLinks(s string) string {
	return linkRe.ReplaceAllString(s, `<a href="$1" target="_blank" rel="noopener noreferrer"`)
}
