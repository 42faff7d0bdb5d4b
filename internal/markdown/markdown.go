// Package markdown renders initiative content to HTML.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

// Renderer converts Markdown to HTML. Raw HTML in the source is dropped
// because goldmark is not configured with WithUnsafe.
type Renderer struct {
	md goldmark.Markdown
}

func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			&frontmatter.Extender{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
		),
	)

	return &Renderer{md: md}
}

// Render returns the HTML for content. Empty content renders to "".
func (r *Renderer) Render(content string) (string, error) {
	html, _, err := r.RenderWithMeta(content)
	return html, err
}

// RenderWithMeta also returns any YAML or TOML frontmatter at the top of the
// content. The frontmatter block itself is never rendered.
func (r *Renderer) RenderWithMeta(content string) (string, map[string]any, error) {
	meta := make(map[string]any)
	if strings.TrimSpace(content) == "" {
		return "", meta, nil
	}

	ctx := parser.NewContext()
	var buf bytes.Buffer
	err := r.md.Convert([]byte(content), &buf, parser.WithContext(ctx))
	if err != nil {
		return "", nil, err
	}

	if data := frontmatter.Get(ctx); data != nil {
		if err := data.Decode(&meta); err != nil {
			meta = make(map[string]any)
		}
	}

	return buf.String(), meta, nil
}
