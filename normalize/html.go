package normalize

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Elements whose content is never readable text.
var droppedElements = "script, style, noscript, svg, head, iframe, template"

// Elements that end a visual line.
var blockElements = "p, div, section, article, header, footer, nav, aside, main, li, ul, ol, " +
	"h1, h2, h3, h4, h5, h6, br, tr, table, blockquote, pre, dt, dd"

// HTMLToText extracts the readable text of an HTML document and cleans it.
// Entities are decoded by the parser.
func HTMLToText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find(droppedElements).Remove()
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return Clean(doc.Text()), nil
}

// HTMLStringToText is HTMLToText for in-memory markup.
func HTMLStringToText(markup string) (string, error) {
	return HTMLToText(strings.NewReader(markup))
}
