package legislation

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"legisdraft/api/internal/markup"
)

// TocItem is one entry of a contents page. The same Href may appear more
// than once; downstream identity is (Href, position).
type TocItem struct {
	Title  string `json:"title"`
	Href   string `json:"fullHref"`
	Level  int    `json:"level"`
	Anchor string `json:"anchor,omitempty"`
}

type TOC struct {
	Items     []TocItem
	IntroLink string
}

const headingFragment = "#heading-"

// Container selectors, most specific first.
var tocContainers = []markup.Selector{
	markup.MustCompile("#viewLegContents .LegContents.LegClearFix > ol"),
	markup.MustCompile("#tocControlsAdded .LegContents.LegClearFix > ol"),
	markup.MustCompile(".LegContents > ol"),
	markup.MustCompile("#legContents > ol"),
	markup.MustCompile("#viewLegContents ol, #viewLegContents ul"),
}

var (
	itemParagraph = markup.MustCompile("p.LegContentsItem")
	titleSpan     = markup.MustCompile("span.LegContentsTitle")
	numberSpan    = markup.MustCompile("span.LegContentsNo")
	anyLink       = markup.MustCompile("a")
	titleBlock    = markup.MustCompile("p.LegContentsTitle, p.LegContentsNo, p.LegContentsPart, p.LegContentsChapter, p.LegScheduleFirst, p.LegP1GroupTitle")
	nestedOrdered = markup.MustCompile("ol")
)

// ParseTOC extracts the table of contents from a contents page. A page
// without a recognisable container yields an empty TOC.
func ParseTOC(contentsHTML, contentsURL string) TOC {
	doc, err := markup.Parse(contentsHTML)
	if err != nil {
		return TOC{}
	}
	return parseTOCNode(doc, contentsURL)
}

func parseTOCNode(doc *html.Node, contentsURL string) TOC {
	var container *html.Node
	for _, sel := range tocContainers {
		if container = markup.First(doc, sel); container != nil {
			break
		}
	}
	if container == nil {
		return TOC{}
	}

	base, _ := url.Parse(contentsURL)
	p := &tocParser{base: base, contentsURL: contentsURL}
	p.walkList(container, 0)

	toc := TOC{Items: p.items}
	for _, item := range toc.Items {
		if isIntroHref(item.Href) {
			toc.IntroLink = item.Href
			break
		}
	}
	return toc
}

type tocParser struct {
	base        *url.URL
	contentsURL string
	items       []TocItem
}

func (p *tocParser) walkList(list *html.Node, level int) {
	for _, child := range markup.Children(list) {
		switch child.Data {
		case "li":
			p.walkItem(child, level)
		case "ol", "ul":
			p.walkList(child, level)
		}
	}
}

func (p *tocParser) walkItem(li *html.Node, level int) {
	title, href := extractEntry(li)
	if title != "" {
		if href == "" {
			p.items = append(p.items, TocItem{
				Title: title,
				Href:  p.contentsURL + headingFragment + GenerateSlug(title),
				Level: level,
			})
		} else if resolved := p.resolve(href); resolved != "" && !p.isContentsLink(resolved) {
			p.items = append(p.items, TocItem{Title: title, Href: resolved, Level: level})
		}
	}

	// Only an item that yielded a title owns children, and only through its
	// first nested ordered list.
	if title == "" {
		return
	}
	if nested := markup.First(li, nestedOrdered); nested != nil {
		p.walkList(nested, level+1)
	}
}

// extractEntry applies the title/link fallback chain to one list item.
// Nested lists belong to child items and are never searched.
func extractEntry(li *html.Node) (title, href string) {
	if para := markup.FirstPruned(li, itemParagraph, isList); para != nil {
		titleNode := markup.First(para, titleSpan)
		numberNode := markup.First(para, numberSpan)

		var link *html.Node
		for _, scope := range []*html.Node{titleNode, numberNode, para} {
			if scope == nil {
				continue
			}
			if link = markup.First(scope, anyLink); link != nil {
				break
			}
		}

		switch {
		case titleNode != nil:
			title = markup.Text(titleNode)
		case numberNode != nil:
			title = markup.Text(numberNode)
		case link != nil:
			title = markup.Text(link)
		}
		if title != "" {
			return title, strings.TrimSpace(markup.Attr(link, "href"))
		}
	}

	link := markup.FirstPruned(li, anyLink, isList)
	if block := markup.FirstPruned(li, titleBlock, isList); block != nil {
		title = markup.Text(block)
	}
	if title == "" && link != nil {
		title = markup.Text(link)
	}
	return title, strings.TrimSpace(markup.Attr(link, "href"))
}

func isList(n *html.Node) bool {
	return markup.IsTag(n, "ol", "ul")
}

func (p *tocParser) resolve(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if p.base == nil || ref.IsAbs() {
		return ref.String()
	}
	return p.base.ResolveReference(ref).String()
}

func (p *tocParser) isContentsLink(href string) bool {
	trimmed := strings.TrimSuffix(stripFragment(href), "/")
	return trimmed == strings.TrimSuffix(stripFragment(p.contentsURL), "/") || strings.HasSuffix(trimmed, "/contents")
}

func isIntroHref(href string) bool {
	return strings.HasSuffix(stripFragment(href), "/introduction")
}

func isHeadingHref(href string) bool {
	return strings.Contains(href, headingFragment)
}

func stripFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}
