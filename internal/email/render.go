// Package email renders a summary document to sanitized HTML and delivers
// it over SMTP.
package email

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML is passed through the renderer so the sanitizer is the single
// place that decides what survives, mirroring the allow-list contract.
var (
	markdown  = goldmark.New(goldmark.WithRendererOptions(html.WithUnsafe()))
	sanitizer = newPolicy()
)

// newPolicy builds the allow-list for email bodies: structural elements and
// links only, no scripts, styles or event handlers.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"strong", "em", "br", "hr",
		"code", "pre", "blockquote",
	)
	p.AllowAttrs("href").OnElements("a")
	return p
}

// RenderMarkdown converts a markdown document to sanitized HTML.
func RenderMarkdown(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return sanitizer.Sanitize(buf.String()), nil
}

// Subject derives the email subject from the summary object's name.
func Subject(objectName string) string {
	parts := strings.Split(objectName, "/")
	filename := strings.TrimSuffix(parts[len(parts)-1], ".md")
	return "SE Daily Briefing: " + sanitizeFilename(filename)
}

// sanitizeFilename keeps only characters safe for an email subject.
func sanitizeFilename(filename string) string {
	var b strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.' || r == ' ':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// wrapHTML frames the rendered body in the briefing layout.
func wrapHTML(htmlBody string) string {
	return fmt.Sprintf(`
    <html>
      <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
        <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
          <h2 style="color: #2c3e50;">Your Daily Software Engineering Briefing</h2>
          <hr style="border: 0; border-top: 1px solid #eee;">
          %s
          <hr style="border: 0; border-top: 1px solid #eee;">
          <p style="font-size: 12px; color: #999;">Sent by your Cloud Agent.</p>
        </div>
      </body>
    </html>
    `, htmlBody)
}
