package main

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// renderMarkdownToHTML converts assistant-authored markdown into HTML for
// the chat transcript. Raw HTML in the source is escaped; the model's output
// is never trusted as markup.
func (app *application) renderMarkdownToHTML(ctx context.Context, markdown string) template.HTML {
	converter := goldmark.New(
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	var buf bytes.Buffer
	if err := converter.Convert([]byte(markdown), &buf); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "convert markdown", slog.Any("error", err))
		return template.HTML(template.HTMLEscapeString(markdown)) //nolint:gosec // escaped fallback.
	}
	return template.HTML(buf.String()) //nolint:gosec // goldmark escapes raw HTML by default.
}
