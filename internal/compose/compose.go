// Package compose derives the push notification payload from a raw summary
// document. Best-effort text heuristics, not a markdown parser.
package compose

import (
	"fmt"
	"strings"

	"github.com/tsvet01/eng-pulse/pkg/push"
)

const (
	// DefaultTitle is used when the document yields no usable heading or line.
	DefaultTitle = "Daily Engineering Briefing"

	maxTitleLen = 80
	maxBodyLen  = 150
)

// IsSummaryObject reports whether an object-storage write should trigger a
// notification cycle: only markdown files under summaries/ qualify.
func IsSummaryObject(name string) bool {
	return strings.HasPrefix(name, "summaries/") && strings.HasSuffix(name, ".md")
}

// ArticleURL builds the public URL for a summary object, carried in the push
// payload for client-side deep linking.
func ArticleURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, object)
}

// FromDocument derives title and body from the document text and pairs them
// with the object's public URL.
func FromDocument(content, bucket, object string) push.Notification {
	return push.Notification{
		Title:      titleFrom(content),
		Body:       bodyFrom(content),
		ArticleURL: ArticleURL(bucket, object),
	}
}

// titleFrom takes the first heading, else the first non-empty non-bullet
// line truncated to 80 characters, else the default.
func titleFrom(content string) string {
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "#") {
			return strings.TrimSpace(strings.TrimLeft(stripped, "#"))
		}
		if stripped != "" && !strings.HasPrefix(stripped, "*") {
			return truncate(stripped, maxTitleLen)
		}
	}
	return DefaultTitle
}

// bodyFrom is a snippet of the first 150 characters with markdown marker
// characters stripped, plus a continuation marker when the document is
// longer.
func bodyFrom(content string) string {
	runes := []rune(content)
	snippet := runes
	if len(runes) > maxBodyLen {
		snippet = runes[:maxBodyLen]
	}

	body := string(snippet)
	body = strings.ReplaceAll(body, "#", "")
	body = strings.ReplaceAll(body, "*", "")
	body = strings.TrimSpace(body)

	if len(runes) > maxBodyLen {
		body += "..."
	}
	return body
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
