package legislation

import (
	"strings"

	"legisdraft/api/internal/markup"
)

var introBodySelectors = []markup.Selector{
	markup.MustCompile("#viewLegSnippet"),
	markup.MustCompile("#viewLegContents .LegSnippet"),
	markup.MustCompile(".LegP1Container"),
	markup.MustCompile("#legislation-body"),
	markup.MustCompile("#content"),
	markup.MustCompile("article"),
	markup.MustCompile("main"),
}

var sectionBodySelectors = []markup.Selector{
	markup.MustCompile("#viewLegSnippet"),
	markup.MustCompile("#viewLegContents .LegSnippet"),
	markup.MustCompile(".LegP1Container"),
	markup.MustCompile(".LegPartContainer"),
	markup.MustCompile(".LegScheduleContainer"),
	markup.MustCompile(".LegArticle"),
	markup.MustCompile(".LegSection"),
	markup.MustCompile("#legislation-body"),
	markup.MustCompile("#content"),
	markup.MustCompile("article"),
	markup.MustCompile("main"),
}

// extractBody returns the inner markup of the first selector that matches
// a non-empty element, or nil.
func extractBody(page string, selectors []markup.Selector) *string {
	doc, err := markup.Parse(page)
	if err != nil {
		return nil
	}
	for _, sel := range selectors {
		node := markup.First(doc, sel)
		if node == nil {
			continue
		}
		body := strings.TrimSpace(markup.InnerHTML(node))
		if body == "" {
			continue
		}
		return &body
	}
	return nil
}
