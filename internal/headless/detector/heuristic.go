// Package detector decides when an HTTP fetch should be redone in a browser.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

// Heuristic flags pages that look like client-rendered application shells.
type Heuristic struct {
	BodyLengthThreshold int
	MinTextWords        int
}

// NewHeuristic creates a new detector. Zero values pick the defaults.
func NewHeuristic(threshold, minWords int) *Heuristic {
	if threshold == 0 {
		threshold = 2048
	}
	if minWords == 0 {
		minWords = 50
	}
	return &Heuristic{BodyLengthThreshold: threshold, MinTextWords: minWords}
}

// Mount points of the common single page application frameworks.
const mountSelector = `#__next, #root, #app, #___gatsby, [data-reactroot], [ng-app], [ng-version]`

// ShouldPromote reports whether resp is an application shell whose content
// only appears after JavaScript runs.
func (h *Heuristic) ShouldPromote(resp crawler.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK || resp.UsedHeadless {
		return false
	}
	body := resp.Body
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	sparse := len(strings.Fields(visibleText(doc))) < h.MinTextWords
	if sparse && doc.Find(mountSelector).Length() > 0 {
		return true
	}
	return len(body) < h.BodyLengthThreshold && scriptShare(doc, len(body)) >= 25
}

func visibleText(doc *goquery.Document) string {
	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()
	return body.Text()
}

// scriptShare returns the percentage of the document taken by inline scripts.
func scriptShare(doc *goquery.Document, total int) int {
	if total == 0 {
		return 0
	}
	scripts := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scripts += len(s.Text()) + len("<script></script>")
	})
	return scripts * 100 / total
}
