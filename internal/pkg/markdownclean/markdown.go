package markdownclean

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
)

var (
	blankRuns      = regexp.MustCompile(`\n{3,}`)
	horizontalRuns = regexp.MustCompile(`[ \t]{2,}|\t`)
)

// Clean renders markdown to HTML and strips it back down to plain text,
// keeping paragraph structure as single newlines. The conversion is lossy:
// emphasis, links and other formatting are discarded.
func Clean(text string) (string, error) {
	var html bytes.Buffer
	if err := goldmark.Convert([]byte(text), &html); err != nil {
		return "", fmt.Errorf("render markdown failed: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&html)
	if err != nil {
		return "", fmt.Errorf("parse rendered html failed: %w", err)
	}

	var b strings.Builder
	doc.Find("body").Children().Each(func(_ int, block *goquery.Selection) {
		// List items keep one line each instead of running together.
		items := block.Find("li")
		if items.Length() > 0 {
			items.Each(func(_ int, li *goquery.Selection) {
				b.WriteString(strings.TrimSpace(li.Text()))
				b.WriteString("\n")
			})
		} else {
			b.WriteString(strings.TrimSpace(block.Text()))
		}
		b.WriteString("\n\n")
	})

	plain := blankRuns.ReplaceAllString(b.String(), "\n\n")
	plain = horizontalRuns.ReplaceAllString(plain, " ")
	return strings.TrimSpace(plain), nil
}
