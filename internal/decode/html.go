package decode

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, pre, blockquote, td, th, dt, dd, caption, figcaption"

// decodeHTML extracts readable text, one line per block element.
// Documents without block markup fall back to the body text.
func decodeHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	// Remove unwanted elements
	doc.Find("script, style, noscript, template, nav, footer, aside").Remove()

	var lines []string
	if title := collapse(doc.Find("title").First().Text()); title != "" {
		lines = append(lines, title)
	}

	body := doc.Find("body")
	body.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		// Nested blocks (a <p> inside an <li>) are emitted by the innermost element.
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if goquery.NodeName(s) == "pre" {
			lines = append(lines, strings.Split(s.Text(), "\n")...)
			return
		}
		lines = append(lines, collapse(s.Text()))
	})

	if len(lines) == 0 || body.Find(blockSelector).Length() == 0 {
		lines = append(lines, collapse(body.Text()))
	}

	return joinLines(lines), nil
}

// collapse squeezes runs of whitespace into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
