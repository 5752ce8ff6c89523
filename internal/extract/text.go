// Package extract pulls readable text out of fetched documents.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DefaultJoin separates extracted strings when no join character is configured.
const DefaultJoin = " "

const textSelector = "p, code, pre, span, h1, h2, h3, h4"

var (
	spacer = strings.NewReplacer(
		"\u00a0", " ",
		"\u200b", " ",
		"\u200c", " ",
		"•", " ",
		"|", " ",
		"â", "",
		"Â", "",
		"©", "",
		"×", "",
		" // ", " ",
		"\n", " ",
		"\r", " ",
		"\t", " ",
	)
	spaceBeforePunct = regexp.MustCompile(` +([.,])`)
	spaceRuns        = regexp.MustCompile(` {2,}`)
)

// Text returns the title, meta description and the text of every paragraph,
// code, span and heading element of doc, in document order. Raw strings
// shorter than two words are dropped before the survivors are cleaned. A nil
// doc yields "".
func Text(doc *goquery.Document, join string) string {
	if doc == nil {
		return ""
	}
	if join == "" {
		join = DefaultJoin
	}
	var parts []string
	keep := func(raw string) {
		if len(strings.Fields(raw)) < 2 {
			return
		}
		if cleaned := Clean(raw); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}

	keep(doc.Find("title").First().Text())
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		keep(desc)
	}
	doc.Find(textSelector).Each(func(_ int, s *goquery.Selection) {
		keep(spacedText(s))
	})
	return strings.Join(parts, join)
}

// spacedText joins the trimmed descendant text nodes of s with single spaces,
// so words split across inline children stay apart.
func spacedText(s *goquery.Selection) string {
	var pieces []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				pieces = append(pieces, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return strings.Join(pieces, " ")
}

// Clean strips encoding debris and decorative separators from s, collapses
// whitespace and terminates the result with a period. Blank input yields "".
func Clean(s string) string {
	s = spacer.Replace(s)
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	s = spaceRuns.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	switch s[len(s)-1] {
	case '.', '?', '!':
		return s
	default:
		return s + "."
	}
}
